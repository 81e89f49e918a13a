package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"grainrate/internal/models"
	"grainrate/pkg/calibration"
	"grainrate/pkg/preprocess"
	"grainrate/pkg/threshold"
	"grainrate/pkg/timeseries"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Expected default config to be valid, got %v", err)
	}
	if cfg.Processing.NumWorkers <= 0 {
		t.Errorf("Expected positive worker count, got %d", cfg.Processing.NumWorkers)
	}
	if cfg.Output.SQLiteFile != "grainrate.sqlite" {
		t.Errorf("Expected default sqlite file grainrate.sqlite, got %s", cfg.Output.SQLiteFile)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Magnification != DefaultConfig().Magnification {
		t.Errorf("Expected defaults for a missing file, got magnification %s", cfg.Magnification)
	}
}

func TestSaveAndLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.yaml")
	if err := CreateDefaultConfigFile(path); err != nil {
		t.Fatalf("CreateDefaultConfigFile failed: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	def := DefaultConfig()
	if cfg.Crop != def.Crop {
		t.Errorf("Expected crop %s, got %s", def.Crop, cfg.Crop)
	}
	if len(cfg.Lines) != 1 || cfg.Lines[0] != def.Lines[0] {
		t.Errorf("Expected default line, got %+v", cfg.Lines)
	}
	if len(cfg.Threshold.Lower) != 1 || cfg.Threshold.Lower[0] != 60 {
		t.Errorf("Expected lower bound 60, got %v", cfg.Threshold.Lower)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	content := `
magnification: 50x
time:
  source: filename
crop: {x1: 10, x2: 110, y1: 20, y2: 220}
nucleation: {x: 50, y: 50}
endPoints:
  - {x: 90, y: 50}
  - {x: 50, y: 90}
threshold:
  lower: [10, 50]
  upper: [20, 60]
  multipleRanges: true
  invert: true
  disk: 2
calibration:
  frameWidthMicrons:
    100x: 117.0
sample:
  substrate: WS2
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	session, err := cfg.Session()
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}

	if session.Crop != (models.CropRegion{X1: 10, X2: 110, Y1: 20, Y2: 220}) {
		t.Errorf("Unexpected crop %s", session.Crop)
	}
	if len(session.Lines) != 2 || session.Lines[1].End != (models.Point{X: 50, Y: 90}) {
		t.Errorf("Expected two fanned lines, got %+v", session.Lines)
	}
	if session.Lines[0].Start != (models.Point{X: 50, Y: 50}) {
		t.Errorf("Expected lines to start at the nucleation point, got %+v", session.Lines[0].Start)
	}
	if len(session.Threshold.Ranges) != 2 || !session.Threshold.Invert || session.Threshold.DiskRadius != 2 {
		t.Errorf("Unexpected threshold %+v", session.Threshold)
	}
	if cfg.TimeResolver().Source != timeseries.FilenameToken {
		t.Errorf("Expected filename time source, got %s", cfg.TimeResolver().Source)
	}
	if cfg.Sample["substrate"] != "WS2" {
		t.Errorf("Expected sample metadata, got %v", cfg.Sample)
	}

	table := cfg.CalibrationTable()
	scale, err := table.ScaleFor("100x", 1170)
	if err != nil || scale != 0.1 {
		t.Errorf("Expected override scale 0.1, got %f (%v)", scale, err)
	}
	if _, err := table.ScaleFor("20x", 2048); err != nil {
		t.Errorf("Expected built-in entries to remain, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		target error
	}{
		{"unknown time source", func(c *Config) { c.Time.Source = "exif" }, nil},
		{"mismatched bounds", func(c *Config) { c.Threshold.Upper = []float64{1, 2} }, threshold.ErrRangeLengthMismatch},
		{"no bounds", func(c *Config) { c.Threshold.Lower, c.Threshold.Upper = nil, nil }, threshold.ErrRangeLengthMismatch},
		{"several ranges without flag", func(c *Config) {
			c.Threshold.Lower = []float64{1, 5}
			c.Threshold.Upper = []float64{2, 6}
		}, threshold.ErrRangeLengthMismatch},
		{"negative disk", func(c *Config) { c.Threshold.Disk = -1 }, nil},
		{"disk above maximum", func(c *Config) { c.Threshold.Disk = 51 }, nil},
		{"empty rescale", func(c *Config) {
			c.Threshold.Rescale.Enabled = true
			c.Threshold.Rescale.Low, c.Threshold.Rescale.High = 100, 100
		}, nil},
		{"clip limit", func(c *Config) {
			c.Threshold.Equalize = true
			c.Threshold.ClipLimit = 0
		}, nil},
		{"inverted range", func(c *Config) {
			c.Threshold.Lower = []float64{200}
			c.Threshold.Upper = []float64{100}
		}, threshold.ErrEmptyRange},
		{"unknown magnification", func(c *Config) { c.Magnification = "100x" }, calibration.ErrUnknownMagnification},
		{"empty crop", func(c *Config) { c.Crop.X2 = c.Crop.X1 }, preprocess.ErrInvalidCropRegion},
		{"negative crop origin", func(c *Config) { c.Crop.Y1 = -1 }, preprocess.ErrInvalidCropRegion},
		{"no lines", func(c *Config) { c.Lines = nil }, nil},
		{"no images", func(c *Config) { c.Images.Dir = "" }, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.modify(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("Expected validation error")
			}
			if tc.target != nil && !errors.Is(err, tc.target) {
				t.Errorf("Expected %v, got %v", tc.target, err)
			}
		})
	}
}

func TestValidateMagnificationOverride(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Magnification = "100x"
	cfg.Calibration.FrameWidthMicrons = map[string]float64{"100x": 117}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected a magnification from the overrides to be accepted, got %v", err)
	}

	cfg.Magnification = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected an empty magnification to be left for guessing, got %v", err)
	}
}

func TestResultsDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Images.Dir = filepath.Join("data", "run1")
	if got := cfg.ResultsDir(); got != filepath.Join("data", "run1", "analysis_results") {
		t.Errorf("Unexpected results dir %s", got)
	}

	cfg.Images.Files = []string{filepath.Join("other", "a.png")}
	if got := cfg.ResultsDir(); got != filepath.Join("other", "analysis_results") {
		t.Errorf("Unexpected results dir %s", got)
	}

	cfg.Output.ResultsDir = "out"
	if got := cfg.ResultsDir(); got != "out" {
		t.Errorf("Expected explicit results dir, got %s", got)
	}
}
