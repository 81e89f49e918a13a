package visualization

import (
	"bytes"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"grainrate/internal/models"
	"grainrate/pkg/edge"
	"grainrate/pkg/timeseries"
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

func isPNG(b []byte) bool {
	return bytes.HasPrefix(b, pngSignature)
}

func TestGrowthPlot(t *testing.T) {
	matrix := models.NewDistanceMatrix(2, 3)
	for frame, d := range []float64{10, 20, 30} {
		matrix.Set(0, frame, d)
	}
	matrix.Set(1, 1, 5)
	rates := []models.GrowthRateResult{
		{Line: 0, Slope: 1, Intercept: 10, Points: 3},
		{Line: 1, Points: 1, Err: edge.ErrNoGrowthFrontFound},
	}

	var buf bytes.Buffer
	if err := GrowthPlot([]float64{0, 10, 20}, matrix, rates, &buf); err != nil {
		t.Fatalf("GrowthPlot failed: %v", err)
	}
	if !isPNG(buf.Bytes()) {
		t.Errorf("Expected PNG output")
	}
}

func TestGrowthPlotNoData(t *testing.T) {
	matrix := models.NewDistanceMatrix(1, 2)
	var buf bytes.Buffer
	if err := GrowthPlot([]float64{0, 10}, matrix, nil, &buf); err == nil {
		t.Errorf("Expected error when nothing was measured")
	}
	if err := GrowthPlot([]float64{0}, matrix, nil, &buf); err == nil {
		t.Errorf("Expected error for mismatched times")
	}
}

func TestHistogram(t *testing.T) {
	r := &models.Raster{Width: 4, Height: 1, Pix: []float64{0, 10.7, 10.2, 300}}
	counts := Histogram(r)
	if counts[0] != 1 || counts[10] != 2 || counts[255] != 1 {
		t.Errorf("Unexpected counts %v %v %v", counts[0], counts[10], counts[255])
	}

	var buf bytes.Buffer
	if err := HistogramPlot(r, []models.Range{{Lower: 5, Upper: 20}}, &buf); err != nil {
		t.Fatalf("HistogramPlot failed: %v", err)
	}
	if !isPNG(buf.Bytes()) {
		t.Errorf("Expected PNG output")
	}
}

func TestProfilePlot(t *testing.T) {
	line := models.DirectionalLine{End: models.Point{X: 4}}
	profile := []float64{255, 255, 255, 0, 0}
	m := edge.Measurement{Index: 2, Samples: 5, Distance: 2.4}

	var buf bytes.Buffer
	if err := ProfilePlot(profile, line, m, &buf); err != nil {
		t.Fatalf("ProfilePlot failed: %v", err)
	}
	if !isPNG(buf.Bytes()) {
		t.Errorf("Expected PNG output")
	}
	if err := ProfilePlot([]float64{1}, line, m, &buf); err == nil {
		t.Errorf("Expected error for a single sample profile")
	}
}

func TestOverlay(t *testing.T) {
	r := models.NewRaster(40, 30)
	lines := []models.DirectionalLine{
		{Start: models.Point{X: 5, Y: 15}, End: models.Point{X: 35, Y: 15}},
	}
	front := models.Point{X: 20, Y: 15}

	img := Overlay(r, lines, []*models.Point{&front})
	if img.Bounds().Dx() != 40 || img.Bounds().Dy() != 30 {
		t.Fatalf("Unexpected overlay size %v", img.Bounds())
	}
	if got := img.RGBAAt(20, 15); got != (color.RGBA{G: 255, A: 255}) {
		t.Errorf("Expected front marker at (20,15), got %v", got)
	}
	if got := img.RGBAAt(8, 15); got.R == 0 && got.G == 0 && got.B == 0 {
		t.Errorf("Expected line pixel at (8,15)")
	}
	if got := img.RGBAAt(0, 29); got != (color.RGBA{A: 255}) {
		t.Errorf("Expected untouched background, got %v", got)
	}
}

func diskStages(size, radius int) *timeseries.Stages {
	mask := models.NewMask(size, size)
	c := size / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx, dy := x-c, y-c
			if dx*dx+dy*dy <= radius*radius {
				mask.Set(x, y, true)
			}
		}
	}
	return &timeseries.Stages{Cropped: mask.Raster(), Thresholded: mask, Despeckled: mask}
}

func TestSaveThresholdPreview(t *testing.T) {
	dir := t.TempDir()
	paths, err := SaveThresholdPreview(dir, diskStages(32, 8), []models.Range{{Lower: 100, Upper: 256}})
	if err != nil {
		t.Fatalf("SaveThresholdPreview failed: %v", err)
	}
	if len(paths) != 4 {
		t.Fatalf("Expected 4 files, got %v", paths)
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("Missing %s: %v", p, err)
		}
	}

	again, err := SaveThresholdPreview(dir, diskStages(32, 8), []models.Range{{Lower: 100, Upper: 256}})
	if err != nil {
		t.Fatalf("Second SaveThresholdPreview failed: %v", err)
	}
	if filepath.Base(again[0]) != "threshold_cropped_1.png" {
		t.Errorf("Expected a non-clobbering name, got %s", again[0])
	}
}

func TestEdgeCheck(t *testing.T) {
	lines := []models.DirectionalLine{
		{Start: models.Point{X: 16, Y: 16}, End: models.Point{X: 30, Y: 16}},
		{Start: models.Point{X: 31, Y: 0}, End: models.Point{X: 31, Y: 5}},
	}
	paths, err := EdgeCheck(t.TempDir(), diskStages(32, 8), lines, 1)
	if err != nil {
		t.Fatalf("EdgeCheck failed: %v", err)
	}
	if len(paths) != 2 {
		t.Errorf("Expected overlay and profile, got %v", paths)
	}

	empty := diskStages(32, 0)
	empty.Despeckled = models.NewMask(32, 32)
	if _, err := EdgeCheck(t.TempDir(), empty, lines, 1); err == nil {
		t.Errorf("Expected error when no line has a front")
	}
}
