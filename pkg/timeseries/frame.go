package timeseries

import (
	"fmt"

	"grainrate/internal/models"
	"grainrate/pkg/denoise"
	"grainrate/pkg/edge"
	"grainrate/pkg/preprocess"
	"grainrate/pkg/threshold"
)

// Stages holds every intermediate image produced for one frame
type Stages struct {
	// Cropped is the contrast-adjusted crop
	Cropped *models.Raster

	// Thresholded is the raw grain mask
	Thresholded *models.Mask

	// Despeckled is the mask after the median filter
	Despeckled *models.Mask
}

// ProcessFrame runs preprocessing, thresholding and despeckling on a decoded frame
func ProcessFrame(frame *models.Raster, session models.Session) (*Stages, error) {
	cropped, err := preprocess.Preprocess(frame, session.Crop, session.Threshold.Contrast)
	if err != nil {
		return nil, err
	}

	thresholded := threshold.Apply(cropped, session.Threshold.Ranges, session.Threshold.Invert)

	despeckled, err := denoise.Median(thresholded, session.Threshold.DiskRadius)
	if err != nil {
		return nil, err
	}

	return &Stages{Cropped: cropped, Thresholded: thresholded, Despeckled: despeckled}, nil
}

// MeasureLines locates the growth front along every line of the despeckled mask.
// A line without a front yields a nil measurement and its error.
func MeasureLines(mask *models.Mask, lines []models.DirectionalLine, lengthPerPixel float64) ([]*edge.Measurement, []error) {
	img := mask.Raster()
	measurements := make([]*edge.Measurement, len(lines))
	errs := make([]error, len(lines))
	for i, line := range lines {
		m, err := edge.Locate(img, line, lengthPerPixel)
		if err != nil {
			errs[i] = fmt.Errorf("line %d: %w", i+1, err)
			continue
		}
		measurements[i] = &m
	}
	return measurements, errs
}
