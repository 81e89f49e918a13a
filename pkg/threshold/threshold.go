// Package threshold converts cropped grayscale frames into grain masks using
// one or more intensity bands.
package threshold

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"grainrate/internal/models"
)

// ErrRangeLengthMismatch is returned when lower and upper bounds do not pair up
var ErrRangeLengthMismatch = errors.New("threshold lower and upper bounds differ in length")

// ErrEmptyRange is returned when a range's lower bound is not below its upper bound
var ErrEmptyRange = errors.New("threshold range is empty")

// predicate decides whether a single intensity belongs to the grain
type predicate func(v float64) bool

// inside is the open interval test lower < v < upper
func inside(r models.Range) predicate {
	return func(v float64) bool { return v > r.Lower && v < r.Upper }
}

// outside is the complement of the closed band, v < lower or v > upper
func outside(r models.Range) predicate {
	return func(v float64) bool { return v < r.Lower || v > r.Upper }
}

// combine joins predicates with AND when requireAll is set and OR otherwise
func combine(preds []predicate, requireAll bool) predicate {
	return func(v float64) bool {
		for _, p := range preds {
			if p(v) != requireAll {
				return !requireAll
			}
		}
		return requireAll
	}
}

// Predicate builds the foreground test for a set of ranges.
// Inverted specs are the De Morgan dual: a pixel must be excluded by every band.
func Predicate(ranges []models.Range, invert bool) func(v float64) bool {
	preds := make([]predicate, len(ranges))
	for i, r := range ranges {
		if invert {
			preds[i] = outside(r)
		} else {
			preds[i] = inside(r)
		}
	}
	return combine(preds, invert)
}

// Apply thresholds a raster into a mask of the same shape
func Apply(r *models.Raster, ranges []models.Range, invert bool) *models.Mask {
	test := Predicate(ranges, invert)
	mask := models.NewMask(r.Width, r.Height)
	for i, v := range r.Pix {
		mask.Pix[i] = test(v)
	}
	return mask
}

// Ranges pairs lower and upper bounds into ranges
func Ranges(lower, upper []float64) ([]models.Range, error) {
	if len(lower) != len(upper) {
		return nil, fmt.Errorf("%w: %d lower, %d upper", ErrRangeLengthMismatch, len(lower), len(upper))
	}
	ranges := make([]models.Range, len(lower))
	for i := range lower {
		ranges[i] = models.Range{Lower: lower[i], Upper: upper[i]}
	}
	if err := CheckRanges(ranges); err != nil {
		return nil, err
	}
	return ranges, nil
}

// CheckRanges rejects ranges whose open interval holds no intensity
func CheckRanges(ranges []models.Range) error {
	for i, r := range ranges {
		if r.Lower >= r.Upper {
			return fmt.Errorf("%w: range %d is (%g, %g)", ErrEmptyRange, i+1, r.Lower, r.Upper)
		}
	}
	return nil
}

// ParseBounds parses a comma separated list of numbers such as "60,120"
func ParseBounds(s string) ([]float64, error) {
	var values []float64
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid threshold value %q: %w", field, err)
		}
		values = append(values, v)
	}
	return values, nil
}

// FormatBounds joins bounds back into the comma separated form
func FormatBounds(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}
