// Package ratefit fits growth rates to distance-versus-time measurements.
package ratefit

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"grainrate/internal/models"
)

// ErrInsufficientData is returned when fewer than two usable points remain
var ErrInsufficientData = errors.New("insufficient data for fit")

// Line is a first-degree fit d = Slope*t + Intercept
type Line struct {
	Slope     float64
	Intercept float64
	RSquared  float64
	Points    int
}

// valid reports whether a distance is a real measurement
func valid(d float64) bool {
	return d > 0 && !math.IsNaN(d) && !math.IsInf(d, 0)
}

// Fit performs an ordinary least squares line fit over the valid points.
// Distances that are non-positive or not finite are skipped.
func Fit(times, distances []float64) (Line, error) {
	if len(times) != len(distances) {
		return Line{}, fmt.Errorf("times and distances differ in length: %d vs %d", len(times), len(distances))
	}

	var xs, ys []float64
	for i, d := range distances {
		if valid(d) && !math.IsNaN(times[i]) {
			xs = append(xs, times[i])
			ys = append(ys, d)
		}
	}
	if len(xs) < 2 {
		return Line{Points: len(xs)}, fmt.Errorf("%w: %d valid points", ErrInsufficientData, len(xs))
	}
	if stat.Variance(xs, nil) == 0 {
		return Line{Points: len(xs)}, fmt.Errorf("%w: all valid points share one time", ErrInsufficientData)
	}

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	r2 := stat.RSquared(xs, ys, nil, alpha, beta)
	if math.IsNaN(r2) {
		// Perfectly flat data has no variance to explain
		r2 = 1
	}
	return Line{Slope: beta, Intercept: alpha, RSquared: r2, Points: len(xs)}, nil
}

// FitAll fits every direction of the matrix. A direction that cannot be fitted
// carries its error in the result; the others are unaffected.
func FitAll(times []float64, matrix *models.DistanceMatrix) []models.GrowthRateResult {
	results := make([]models.GrowthRateResult, matrix.Rows)
	for line := 0; line < matrix.Rows; line++ {
		fit, err := Fit(times, matrix.Row(line))
		results[line] = models.GrowthRateResult{
			Line:      line,
			Slope:     fit.Slope,
			Intercept: fit.Intercept,
			RSquared:  fit.RSquared,
			Points:    fit.Points,
			Err:       err,
		}
	}
	return results
}

// FormatRate renders a growth rate the way it is reported to users
func FormatRate(slope float64) string {
	return fmt.Sprintf("%.2f micron/sec", slope)
}
