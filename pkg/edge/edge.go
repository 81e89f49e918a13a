// Package edge locates the growth front of a grain along a directional line.
package edge

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"

	"grainrate/internal/models"
)

// ErrNoGrowthFrontFound is returned when a profile holds no foreground sample
var ErrNoGrowthFrontFound = errors.New("no growth front found")

// Measurement describes where the growth front was found along a line
type Measurement struct {
	// Index is the profile sample of the front
	Index int

	// Samples is the profile length
	Samples int

	// Fraction of the line length up to and including the front sample
	Fraction float64

	// Distance from the line start to the front in microns
	Distance float64

	// Front is the pixel position of the front in cropped-image coordinates
	Front models.Point
}

// FrontIndex returns the last sample equal to the profile maximum.
// Scanning from the far end, the first saturated sample is taken as the
// outermost point still inside the grain; foreground further out is ignored.
func FrontIndex(profile []float64) (int, error) {
	if len(profile) == 0 || floats.HasNaN(profile) {
		return 0, ErrNoGrowthFrontFound
	}
	peak := floats.Max(profile)
	if peak <= 0 || math.IsInf(peak, 0) {
		return 0, ErrNoGrowthFrontFound
	}
	for i := len(profile) - 1; i >= 0; i-- {
		if profile[i] == peak {
			return i, nil
		}
	}
	return 0, ErrNoGrowthFrontFound
}

// Locate measures the physical distance from line.Start to the growth front
func Locate(r *models.Raster, line models.DirectionalLine, lengthPerPixel float64) (Measurement, error) {
	profile := Profile(r, line)
	idx, err := FrontIndex(profile)
	if err != nil {
		return Measurement{Samples: len(profile)}, err
	}

	// +1 so a front on the last sample reports the full line length
	fraction := float64(idx+1) / float64(len(profile))
	return Measurement{
		Index:    idx,
		Samples:  len(profile),
		Fraction: fraction,
		Distance: fraction * line.Length() * lengthPerPixel,
		Front:    line.PointAt(fraction),
	}, nil
}
