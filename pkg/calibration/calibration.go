// Package calibration converts microscope magnification labels into physical
// pixel sizes.
package calibration

import (
	"errors"
	"fmt"
	"sort"
)

// CanonicalWidth is the pixel width of full frames saved by the camera software
const CanonicalWidth = 2048

// ErrUnknownMagnification is returned when a label is missing from the tables
var ErrUnknownMagnification = errors.New("unknown magnification")

// Table maps magnification labels to length-per-pixel values in microns
type Table struct {
	// MicronsPerPixel is the scale of a canonical-width frame
	MicronsPerPixel map[string]float64

	// FrameWidthMicrons is the physical width of a full frame. It is used to
	// derive the scale when a frame was saved at a non-canonical resolution.
	FrameWidthMicrons map[string]float64
}

// Default returns the calibration of the Nikon microscope with the Lumenera camera
func Default() *Table {
	return &Table{
		MicronsPerPixel: map[string]float64{
			"4x":  1000.0 / 696,
			"10x": 1000.0 / 1750,
			"20x": 500.0 / 1740,
			"50x": 230.0 / 2016,
		},
		// micronsPerPixel * 2048
		FrameWidthMicrons: map[string]float64{
			"4x":  2942.5,
			"10x": 1170.3,
			"20x": 588.5,
			"50x": 233.7,
		},
	}
}

// ScaleFor returns the microns per pixel for a frame of the given pixel width
func (t *Table) ScaleFor(magnification string, imageWidth int) (float64, error) {
	if imageWidth == CanonicalWidth {
		if scale, ok := t.MicronsPerPixel[magnification]; ok && scale > 0 {
			return scale, nil
		}
	}

	width, ok := t.FrameWidthMicrons[magnification]
	if !ok || width <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrUnknownMagnification, magnification)
	}
	if imageWidth <= 0 {
		return 0, fmt.Errorf("invalid image width %d", imageWidth)
	}
	return width / float64(imageWidth), nil
}

// Labels lists the magnifications known to either table, sorted
func (t *Table) Labels() []string {
	seen := make(map[string]bool)
	var labels []string
	for _, m := range []map[string]float64{t.MicronsPerPixel, t.FrameWidthMicrons} {
		for k := range m {
			if !seen[k] {
				seen[k] = true
				labels = append(labels, k)
			}
		}
	}
	sort.Strings(labels)
	return labels
}

// Merge overrides entries of the table with the given values
func (t *Table) Merge(micronsPerPixel, frameWidthMicrons map[string]float64) {
	for k, v := range micronsPerPixel {
		t.MicronsPerPixel[k] = v
	}
	for k, v := range frameWidthMicrons {
		t.FrameWidthMicrons[k] = v
	}
}
