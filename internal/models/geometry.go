package models

import (
	"fmt"
	"math"
)

// Point is a pixel coordinate. X is the column and Y is the row.
type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// DirectionalLine is a ray from a reference point (usually the nucleation
// site) out through the grain, in cropped-image pixel coordinates
type DirectionalLine struct {
	Start Point `yaml:"start"`
	End   Point `yaml:"end"`
}

// Length returns the Euclidean pixel length of the segment
func (l DirectionalLine) Length() float64 {
	return math.Hypot(l.End.X-l.Start.X, l.End.Y-l.Start.Y)
}

// PointAt returns the point at the given fraction of the way from Start to End
func (l DirectionalLine) PointAt(fraction float64) Point {
	return Point{
		X: l.Start.X + (l.End.X-l.Start.X)*fraction,
		Y: l.Start.Y + (l.End.Y-l.Start.Y)*fraction,
	}
}

// FanLines builds one line from origin to each end point, in order
func FanLines(origin Point, ends []Point) []DirectionalLine {
	lines := make([]DirectionalLine, 0, len(ends))
	for _, end := range ends {
		lines = append(lines, DirectionalLine{Start: origin, End: end})
	}
	return lines
}

// CropRegion is a half-open pixel rectangle [X1,X2) x [Y1,Y2) of a full-resolution frame
type CropRegion struct {
	X1 int `yaml:"x1"`
	X2 int `yaml:"x2"`
	Y1 int `yaml:"y1"`
	Y2 int `yaml:"y2"`
}

// Width of the cropped region in pixels
func (c CropRegion) Width() int { return c.X2 - c.X1 }

// Height of the cropped region in pixels
func (c CropRegion) Height() int { return c.Y2 - c.Y1 }

// Fits reports whether the region is non-empty and lies inside a frame of the given size
func (c CropRegion) Fits(width, height int) bool {
	return c.X1 >= 0 && c.Y1 >= 0 && c.X1 < c.X2 && c.Y1 < c.Y2 &&
		c.X2 <= width && c.Y2 <= height
}

func (c CropRegion) String() string {
	return fmt.Sprintf("x%d:%d,y%d:%d", c.X1, c.X2, c.Y1, c.Y2)
}
