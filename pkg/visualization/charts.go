// Package visualization renders growth plots, threshold previews and edge
// checks for a time series of frames.
package visualization

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"gonum.org/v1/gonum/floats"

	"grainrate/internal/models"
	"grainrate/pkg/edge"
	"grainrate/pkg/ratefit"
)

const (
	chartWidth  = 1600
	chartHeight = 1000
	histBins    = 256
)

var palette = []drawing.Color{
	chart.ColorBlue,
	chart.ColorRed,
	chart.ColorAlternateGreen,
	chart.ColorOrange,
	chart.ColorCyan,
	chart.ColorAlternateGray,
	chart.ColorAlternateYellow,
	chart.ColorBlack,
}

// lineColor returns the colour used for a direction in every plot
func lineColor(line int) drawing.Color {
	return palette[line%len(palette)]
}

// GrowthPlot draws the measured distances of every direction against time
// together with the fitted line, and writes a PNG to w
func GrowthPlot(times []float64, matrix *models.DistanceMatrix, rates []models.GrowthRateResult, w io.Writer) error {
	if len(times) != matrix.Cols {
		return fmt.Errorf("have %d times for %d frames", len(times), matrix.Cols)
	}

	var series []chart.Series
	var all []float64
	for line := 0; line < matrix.Rows; line++ {
		var xs, ys []float64
		for frame := 0; frame < matrix.Cols; frame++ {
			if matrix.Valid(line, frame) {
				xs = append(xs, times[frame])
				ys = append(ys, matrix.At(line, frame))
			}
		}
		if len(xs) == 0 {
			continue
		}
		all = append(all, xs...)

		c := lineColor(line)
		name := fmt.Sprintf("%d", line+1)
		if line < len(rates) && rates[line].Err == nil {
			name = fmt.Sprintf("%d: %s", line+1, ratefit.FormatRate(rates[line].Slope))
		}
		series = append(series, chart.ContinuousSeries{
			Name: name,
			Style: chart.Style{
				StrokeWidth: chart.Disabled,
				DotWidth:    5,
				DotColor:    c,
			},
			XValues: xs,
			YValues: ys,
		})
		if line < len(rates) && rates[line].Err == nil {
			r := rates[line]
			x0, x1 := floats.Min(xs), floats.Max(xs)
			series = append(series, chart.ContinuousSeries{
				Style: chart.Style{
					StrokeColor:     c,
					StrokeWidth:     2,
					StrokeDashArray: []float64{5.0, 5.0},
				},
				XValues: []float64{x0, x1},
				YValues: []float64{r.Intercept + r.Slope*x0, r.Intercept + r.Slope*x1},
			})
		}
	}
	if len(all) == 0 {
		return errors.New("no valid distances to plot")
	}
	if floats.Min(all) == floats.Max(all) {
		return errors.New("all measurements share one time")
	}

	graph := chart.Chart{
		Width:  chartWidth,
		Height: chartHeight,
		XAxis: chart.XAxis{
			Name: "Time (s)",
		},
		YAxis: chart.YAxis{
			Name: "Distance (micron)",
		},
		Background: chart.Style{
			Padding: chart.Box{Top: 20, Left: 20, Right: 20, Bottom: 20},
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	return graph.Render(chart.PNG, w)
}

// Histogram counts raster intensities into 256 unit-wide bins over 0-255
func Histogram(r *models.Raster) []float64 {
	counts := make([]float64, histBins)
	for _, v := range r.Pix {
		bin := int(v)
		if bin < 0 {
			bin = 0
		}
		if bin >= histBins {
			bin = histBins - 1
		}
		counts[bin]++
	}
	return counts
}

// HistogramPlot draws the intensity histogram of the cropped frame with the
// threshold range bounds marked, and writes a PNG to w
func HistogramPlot(r *models.Raster, ranges []models.Range, w io.Writer) error {
	counts := Histogram(r)
	peak := floats.Max(counts)
	if peak == 0 {
		return errors.New("empty image")
	}
	bins := make([]float64, histBins)
	floats.Span(bins, 0, histBins-1)

	series := []chart.Series{
		chart.ContinuousSeries{
			Name: "Intensity",
			Style: chart.Style{
				StrokeColor: chart.ColorBlue,
				FillColor:   chart.ColorAlternateBlue,
			},
			XValues: bins,
			YValues: counts,
		},
	}
	for i, rg := range ranges {
		for _, bound := range []float64{rg.Lower, rg.Upper} {
			series = append(series, chart.ContinuousSeries{
				Style: chart.Style{
					StrokeColor:     lineColor(i + 1),
					StrokeWidth:     2,
					StrokeDashArray: []float64{5.0, 5.0},
				},
				XValues: []float64{bound, bound},
				YValues: []float64{0, peak},
			})
		}
	}

	graph := chart.Chart{
		Width:  chartWidth,
		Height: chartHeight / 2,
		XAxis: chart.XAxis{
			Name:  "Intensity",
			Range: &chart.ContinuousRange{Min: 0, Max: 255},
		},
		YAxis: chart.YAxis{
			Name:  "Pixels",
			Range: &chart.ContinuousRange{Min: 0, Max: peak},
		},
		Series: series,
	}
	return graph.Render(chart.PNG, w)
}

// ProfilePlot draws the intensity profile along a line with the detected
// front marked, and writes a PNG to w
func ProfilePlot(profile []float64, line models.DirectionalLine, m edge.Measurement, w io.Writer) error {
	if len(profile) < 2 {
		return errors.New("profile too short to plot")
	}
	xs := make([]float64, len(profile))
	floats.Span(xs, 0, line.Length())

	frontX := xs[m.Index]
	graph := chart.Chart{
		Width:  chartWidth,
		Height: chartHeight / 2,
		XAxis: chart.XAxis{
			Name: "Position along line (px)",
		},
		YAxis: chart.YAxis{
			Name:  "Intensity",
			Range: &chart.ContinuousRange{Min: 0, Max: 255},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Style: chart.Style{
					StrokeColor: chart.ColorBlue,
					StrokeWidth: 2,
				},
				XValues: xs,
				YValues: profile,
			},
			chart.ContinuousSeries{
				Style: chart.Style{
					StrokeColor:     chart.ColorRed,
					StrokeDashArray: []float64{5.0, 5.0},
				},
				XValues: []float64{frontX, frontX},
				YValues: []float64{0, 255},
			},
			chart.AnnotationSeries{
				Annotations: []chart.Value2{
					{Label: fmt.Sprintf("%.2f micron", m.Distance), XValue: frontX, YValue: profile[m.Index]},
				},
			},
		},
	}
	return graph.Render(chart.PNG, w)
}

// SaveChart renders a chart into a new file at path
func SaveChart(path string, render func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to render %s: %w", path, err)
	}
	return f.Close()
}
