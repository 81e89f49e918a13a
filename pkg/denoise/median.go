// Package denoise removes speckle from binary grain masks with a rank-order
// median filter over a disk-shaped neighbourhood.
package denoise

import (
	"fmt"
	"math"

	"grainrate/internal/models"
)

// DiskHalfWidths returns, for each row offset dy in [-radius, radius], the
// largest dx such that dx*dx + dy*dy <= radius*radius. Index 0 is dy = -radius.
func DiskHalfWidths(radius int) []int {
	widths := make([]int, 2*radius+1)
	r2 := radius * radius
	for dy := -radius; dy <= radius; dy++ {
		widths[dy+radius] = int(math.Sqrt(float64(r2 - dy*dy)))
	}
	return widths
}

// Median applies a binary median filter with a disk of the given radius.
//
// A pixel becomes foreground when strictly more than half of its neighbourhood
// is foreground. Neighbours outside the image are not counted, so the
// neighbourhood shrinks at the borders. A radius of 0 returns a copy.
func Median(mask *models.Mask, radius int) (*models.Mask, error) {
	if radius < 0 {
		return nil, fmt.Errorf("disk radius must be non-negative, got %d", radius)
	}

	out := models.NewMask(mask.Width, mask.Height)
	if radius == 0 {
		copy(out.Pix, mask.Pix)
		return out, nil
	}

	w, h := mask.Width, mask.Height

	// Row prefix sums: prefix[y*(w+1)+x] is the foreground count of row y before column x
	prefix := make([]int, h*(w+1))
	for y := 0; y < h; y++ {
		base := y * (w + 1)
		for x := 0; x < w; x++ {
			prefix[base+x+1] = prefix[base+x]
			if mask.Pix[y*w+x] {
				prefix[base+x+1]++
			}
		}
	}

	halfWidths := DiskHalfWidths(radius)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			count, pop := 0, 0
			for dy := -radius; dy <= radius; dy++ {
				yy := y + dy
				if yy < 0 || yy >= h {
					continue
				}
				hw := halfWidths[dy+radius]
				x0 := max(x-hw, 0)
				x1 := min(x+hw+1, w)
				base := yy * (w + 1)
				count += prefix[base+x1] - prefix[base+x0]
				pop += x1 - x0
			}
			out.Pix[y*w+x] = 2*count > pop
		}
	}
	return out, nil
}
