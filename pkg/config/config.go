// Package config provides loading and management of grainrate session files.
// A session file holds every externally chosen parameter of one analysis and
// is read from YAML, with default values for anything left out.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"

	"gopkg.in/yaml.v3"

	"grainrate/internal/models"
	"grainrate/pkg/calibration"
	"grainrate/pkg/preprocess"
	"grainrate/pkg/threshold"
	"grainrate/pkg/timeseries"
)

// Config represents a grainrate session loaded from YAML
type Config struct {
	// Images selects the frames of the time series
	Images struct {
		// Dir is scanned for images when Files is empty
		Dir string `yaml:"dir"`

		// Files lists frames explicitly
		Files []string `yaml:"files,omitempty"`
	} `yaml:"images"`

	// Magnification is the objective label, e.g. "20x". When empty it is
	// guessed from the frame file names.
	Magnification string `yaml:"magnification"`

	// Time controls how acquisition times are read
	Time struct {
		// Source is "modtime" or "filename"
		Source string `yaml:"source"`

		// Prefix and Suffix delimit the time token in file names
		Prefix string `yaml:"prefix"`
		Suffix string `yaml:"suffix"`
	} `yaml:"time"`

	// Crop is the region of interest in full-frame pixels
	Crop models.CropRegion `yaml:"crop"`

	// Lines are explicit directional lines in cropped-image pixels
	Lines []models.DirectionalLine `yaml:"lines,omitempty"`

	// Nucleation and EndPoints describe a fan of lines from one point.
	// They are used when Lines is empty.
	Nucleation *models.Point `yaml:"nucleation,omitempty"`
	EndPoints  []models.Point `yaml:"endPoints,omitempty"`

	// Threshold parameters
	Threshold struct {
		// Lower and Upper are the bounds of each intensity range
		Lower []float64 `yaml:"lower"`
		Upper []float64 `yaml:"upper"`

		// MultipleRanges must be set to use more than one range
		MultipleRanges bool `yaml:"multipleRanges"`

		// Invert selects pixels outside the ranges
		Invert bool `yaml:"invert"`

		// Disk is the despeckle radius in pixels
		Disk int `yaml:"disk"`

		// Rescale maps [Low, High] linearly onto 0-255 before thresholding
		Rescale struct {
			Enabled bool    `yaml:"enabled"`
			Low     float64 `yaml:"low"`
			High    float64 `yaml:"high"`
		} `yaml:"rescale"`

		// Equalize enables adaptive histogram equalization with ClipLimit
		Equalize  bool    `yaml:"equalize"`
		ClipLimit float64 `yaml:"clipLimit"`
	} `yaml:"threshold"`

	// Calibration overrides or extends the built-in magnification table
	Calibration struct {
		MicronsPerPixel   map[string]float64 `yaml:"micronsPerPixel,omitempty"`
		FrameWidthMicrons map[string]float64 `yaml:"frameWidthMicrons,omitempty"`
	} `yaml:"calibration"`

	// Processing parameters
	Processing struct {
		// NumWorkers specifies how many frames are processed in parallel
		NumWorkers int `yaml:"numWorkers"`

		// MaxDiskRadius bounds the despeckle radius
		MaxDiskRadius int `yaml:"maxDiskRadius"`
	} `yaml:"processing"`

	// Output parameters
	Output struct {
		// SaveIntermediaryResults writes every processing stage of every frame
		SaveIntermediaryResults bool   `yaml:"saveIntermediaryResults"`
		IntermediaryDir         string `yaml:"intermediaryDir"`

		// ResultsDir receives CSV files and plots. Empty means
		// <image dir>/analysis_results.
		ResultsDir string `yaml:"resultsDir"`

		// WriteDB enables the results store
		WriteDB bool `yaml:"writeDB"`

		// SQLiteFile is the local results database
		SQLiteFile string `yaml:"sqliteFile"`

		// PostgresDSN, when set, stores results in PostgreSQL instead
		PostgresDSN string `yaml:"postgresDSN,omitempty"`
	} `yaml:"output"`

	// Sample holds free-form metadata recorded with each result
	Sample map[string]string `yaml:"sample,omitempty"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Images.Dir = "."

	cfg.Time.Source = string(timeseries.ModTime)
	cfg.Time.Prefix = timeseries.DefaultTimePrefix
	cfg.Time.Suffix = timeseries.DefaultTimeSuffix

	cfg.Crop = models.CropRegion{X1: 0, X2: calibration.CanonicalWidth, Y1: 0, Y2: 1536}
	cfg.Lines = []models.DirectionalLine{
		{Start: models.Point{X: 1024, Y: 768}, End: models.Point{X: 1524, Y: 768}},
	}

	cfg.Threshold.Lower = []float64{60}
	cfg.Threshold.Upper = []float64{120}
	cfg.Threshold.Disk = 3
	cfg.Threshold.Rescale.Low = 0
	cfg.Threshold.Rescale.High = 255
	cfg.Threshold.ClipLimit = 0.01

	cfg.Processing.NumWorkers = runtime.NumCPU()
	cfg.Processing.MaxDiskRadius = 50

	cfg.Output.IntermediaryDir = "intermediary"
	cfg.Output.WriteDB = true
	cfg.Output.SQLiteFile = "grainrate.sqlite"

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Lists replace the defaults rather than merging with them
	cfg.Lines = nil
	cfg.Threshold.Lower = nil
	cfg.Threshold.Upper = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}

// Validate checks the configuration for errors that would make every frame fail
func (c *Config) Validate() error {
	switch timeseries.TimeSource(c.Time.Source) {
	case timeseries.ModTime, timeseries.FilenameToken:
	default:
		return fmt.Errorf("unknown time source %q", c.Time.Source)
	}

	if _, err := c.Ranges(); err != nil {
		return err
	}
	if c.Magnification != "" && !slices.Contains(c.CalibrationTable().Labels(), c.Magnification) {
		return fmt.Errorf("%w: %q", calibration.ErrUnknownMagnification, c.Magnification)
	}
	if c.Threshold.Disk < 0 {
		return fmt.Errorf("threshold disk must be non-negative, got %d", c.Threshold.Disk)
	}
	if c.Processing.MaxDiskRadius > 0 && c.Threshold.Disk > c.Processing.MaxDiskRadius {
		return fmt.Errorf("threshold disk %d exceeds the maximum of %d", c.Threshold.Disk, c.Processing.MaxDiskRadius)
	}
	if c.Threshold.Rescale.Enabled && c.Threshold.Rescale.High <= c.Threshold.Rescale.Low {
		return fmt.Errorf("rescale range [%g, %g] is empty", c.Threshold.Rescale.Low, c.Threshold.Rescale.High)
	}
	if c.Threshold.Equalize && (c.Threshold.ClipLimit <= 0 || c.Threshold.ClipLimit > 1) {
		return fmt.Errorf("clip limit must be in (0, 1], got %g", c.Threshold.ClipLimit)
	}

	if c.Crop.X1 < 0 || c.Crop.Y1 < 0 || c.Crop.X1 >= c.Crop.X2 || c.Crop.Y1 >= c.Crop.Y2 {
		return fmt.Errorf("%w: %s", preprocess.ErrInvalidCropRegion, c.Crop)
	}
	if len(c.DirectionalLines()) == 0 {
		return errors.New("no lines: set lines or nucleation with endPoints")
	}
	if c.Images.Dir == "" && len(c.Images.Files) == 0 {
		return errors.New("no images: set images.dir or images.files")
	}
	return nil
}

// Ranges pairs the threshold bounds into ranges
func (c *Config) Ranges() ([]models.Range, error) {
	ranges, err := threshold.Ranges(c.Threshold.Lower, c.Threshold.Upper)
	if err != nil {
		return nil, err
	}
	if len(ranges) == 0 {
		return nil, fmt.Errorf("%w: no threshold bounds", threshold.ErrRangeLengthMismatch)
	}
	if len(ranges) > 1 && !c.Threshold.MultipleRanges {
		return nil, fmt.Errorf("%w: %d ranges given without multipleRanges", threshold.ErrRangeLengthMismatch, len(ranges))
	}
	return ranges, nil
}

// DirectionalLines returns the explicit lines, or the fan from the nucleation point
func (c *Config) DirectionalLines() []models.DirectionalLine {
	if len(c.Lines) > 0 {
		return c.Lines
	}
	if c.Nucleation != nil {
		return models.FanLines(*c.Nucleation, c.EndPoints)
	}
	return nil
}

// Session builds the immutable analysis session from the configuration
func (c *Config) Session() (models.Session, error) {
	if err := c.Validate(); err != nil {
		return models.Session{}, err
	}
	ranges, err := c.Ranges()
	if err != nil {
		return models.Session{}, err
	}

	lines := c.DirectionalLines()
	return models.Session{
		Crop: c.Crop,
		Threshold: models.ThresholdSpec{
			Ranges:     ranges,
			Invert:     c.Threshold.Invert,
			DiskRadius: c.Threshold.Disk,
			Contrast: models.ContrastOptions{
				Rescale:     c.Threshold.Rescale.Enabled,
				RescaleLow:  c.Threshold.Rescale.Low,
				RescaleHigh: c.Threshold.Rescale.High,
				Equalize:    c.Threshold.Equalize,
				ClipLimit:   c.Threshold.ClipLimit,
			},
		},
		Lines: append([]models.DirectionalLine(nil), lines...),
	}, nil
}

// TimeResolver returns the timestamp strategy of the configuration
func (c *Config) TimeResolver() timeseries.TimeResolver {
	return timeseries.TimeResolver{
		Source: timeseries.TimeSource(c.Time.Source),
		Prefix: c.Time.Prefix,
		Suffix: c.Time.Suffix,
	}
}

// CalibrationTable returns the built-in table with the configured overrides applied
func (c *Config) CalibrationTable() *calibration.Table {
	table := calibration.Default()
	table.Merge(c.Calibration.MicronsPerPixel, c.Calibration.FrameWidthMicrons)
	return table
}

// ImageFiles returns the configured frame paths
func (c *Config) ImageFiles() ([]string, error) {
	if len(c.Images.Files) > 0 {
		return c.Images.Files, nil
	}
	return timeseries.ListImages(c.Images.Dir)
}

// ResultsDir returns where CSV files and plots are written
func (c *Config) ResultsDir() string {
	if c.Output.ResultsDir != "" {
		return c.Output.ResultsDir
	}
	dir := c.Images.Dir
	if len(c.Images.Files) > 0 {
		dir = filepath.Dir(c.Images.Files[0])
	}
	return filepath.Join(dir, "analysis_results")
}
