package edge

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"grainrate/internal/models"
)

// SampleCount is the number of profile samples taken along a line.
// Both end points are included, one sample per pixel of length.
func SampleCount(line models.DirectionalLine) int {
	return int(math.Ceil(line.Length() + 1))
}

// Profile samples the raster along the segment from line.Start to line.End.
// Samples are evenly spaced and interpolated bilinearly; anything outside the
// raster reads as 0.
func Profile(r *models.Raster, line models.DirectionalLine) []float64 {
	n := SampleCount(line)
	if n == 1 {
		return []float64{Bilinear(r, line.Start.X, line.Start.Y)}
	}

	xs := floats.Span(make([]float64, n), line.Start.X, line.End.X)
	ys := floats.Span(make([]float64, n), line.Start.Y, line.End.Y)

	profile := make([]float64, n)
	for i := range profile {
		profile[i] = Bilinear(r, xs[i], ys[i])
	}
	return profile
}

// Bilinear interpolates the raster at a fractional position
func Bilinear(r *models.Raster, x, y float64) float64 {
	x0 := math.Floor(x)
	y0 := math.Floor(y)
	fx := x - x0
	fy := y - y0
	ix, iy := int(x0), int(y0)

	v00 := pixel(r, ix, iy)
	v10 := pixel(r, ix+1, iy)
	v01 := pixel(r, ix, iy+1)
	v11 := pixel(r, ix+1, iy+1)

	top := v00 + fx*(v10-v00)
	bottom := v01 + fx*(v11-v01)
	return top + fy*(bottom-top)
}

func pixel(r *models.Raster, x, y int) float64 {
	if x < 0 || y < 0 || x >= r.Width || y >= r.Height {
		return 0
	}
	return r.At(x, y)
}
