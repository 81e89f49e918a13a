package visualization

import (
	"image"
	"math"
	"strconv"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"

	"grainrate/internal/models"
	"grainrate/pkg/preprocess"
)

const (
	// markerSize is the half width of the square drawn at each front
	markerSize = 3

	lineWidth = 2
)

// Overlay draws the directional lines, their numbers and the detected fronts
// over a cropped frame. A nil front is skipped.
func Overlay(r *models.Raster, lines []models.DirectionalLine, fronts []*models.Point) *image.RGBA {
	dc := gg.NewContextForImage(preprocess.ToImage(r))
	dc.SetFontFace(basicfont.Face7x13)
	w, h := float64(dc.Width()), float64(dc.Height())

	for i, line := range lines {
		// Pixel (x, y) covers [x, x+1), so strokes go through pixel centres
		dc.SetColor(lineColor(i))
		dc.SetLineWidth(lineWidth)
		dc.DrawLine(line.Start.X+0.5, line.Start.Y+0.5, line.End.X+0.5, line.End.Y+0.5)
		dc.Stroke()

		label := strconv.Itoa(i + 1)
		tw, th := dc.MeasureString(label)
		x := min(max(line.End.X+markerSize, 0), w-tw)
		y := min(max(line.End.Y-markerSize, th), h)
		dc.DrawString(label, x, y)
	}

	for _, front := range fronts {
		if front == nil {
			continue
		}
		x, y := math.Round(front.X), math.Round(front.Y)
		dc.SetRGB(0, 1, 0)
		dc.DrawRectangle(x-markerSize, y-markerSize, 2*markerSize+1, 2*markerSize+1)
		dc.Fill()
	}

	return dc.Image().(*image.RGBA)
}
