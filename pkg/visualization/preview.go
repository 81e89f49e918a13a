package visualization

import (
	"fmt"
	"image"
	"io"
	"os"

	"github.com/disintegration/imaging"
	log "github.com/sirupsen/logrus"

	"grainrate/internal/models"
	"grainrate/pkg/edge"
	"grainrate/pkg/preprocess"
	"grainrate/pkg/results"
	"grainrate/pkg/timeseries"
)

// saveImage writes img under a non-clobbering name and returns the path
func saveImage(dir, base string, img image.Image) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := results.UniqueName(dir, base, ".png")
	if err := imaging.Save(img, path); err != nil {
		return "", fmt.Errorf("failed to save %s: %w", path, err)
	}
	return path, nil
}

// SaveThresholdPreview writes the cropped, thresholded and despeckled images
// of one frame along with its intensity histogram
func SaveThresholdPreview(dir string, stages *timeseries.Stages, ranges []models.Range) ([]string, error) {
	var paths []string
	for _, s := range []struct {
		name string
		img  image.Image
	}{
		{"threshold_cropped", preprocess.ToImage(stages.Cropped)},
		{"threshold_mask", preprocess.MaskImage(stages.Thresholded)},
		{"threshold_despeckled", preprocess.MaskImage(stages.Despeckled)},
	} {
		path, err := saveImage(dir, s.name, s.img)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	path := results.UniqueName(dir, "threshold_histogram", ".png")
	if err := SaveChart(path, func(w io.Writer) error {
		return HistogramPlot(stages.Cropped, ranges, w)
	}); err != nil {
		return paths, err
	}
	paths = append(paths, path)

	log.WithFields(log.Fields{
		"dir":        dir,
		"foreground": stages.Despeckled.Count(),
	}).Infoln("saved threshold preview")
	return paths, nil
}

// EdgeCheck locates the front on every line of one frame and writes an
// overlay of lines and fronts plus the profile of the first line that has a
// front. Lines without a front are logged and skipped.
func EdgeCheck(dir string, stages *timeseries.Stages, lines []models.DirectionalLine, lengthPerPixel float64) ([]string, error) {
	measurements, errs := timeseries.MeasureLines(stages.Despeckled, lines, lengthPerPixel)
	fronts := make([]*models.Point, len(lines))
	profiled := -1
	for i, m := range measurements {
		if m == nil {
			log.WithError(errs[i]).Warnln("edge check found no front")
			continue
		}
		front := m.Front
		fronts[i] = &front
		if profiled < 0 {
			profiled = i
		}
		log.WithFields(log.Fields{
			"line":     i + 1,
			"distance": m.Distance,
			"x":        front.X,
			"y":        front.Y,
		}).Infoln("growth front")
	}

	var paths []string
	path, err := saveImage(dir, "edge_overlay", Overlay(stages.Cropped, lines, fronts))
	if err != nil {
		return paths, err
	}
	paths = append(paths, path)

	if profiled < 0 {
		return paths, fmt.Errorf("%w on any line", edge.ErrNoGrowthFrontFound)
	}
	line := lines[profiled]
	profile := edge.Profile(stages.Despeckled.Raster(), line)
	path = results.UniqueName(dir, "edge_profile", ".png")
	if err := SaveChart(path, func(w io.Writer) error {
		return ProfilePlot(profile, line, *measurements[profiled], w)
	}); err != nil {
		return paths, err
	}
	return append(paths, path), nil
}
