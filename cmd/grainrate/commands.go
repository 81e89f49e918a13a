package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"grainrate/internal/models"
	"grainrate/pkg/config"
	"grainrate/pkg/metadata"
	"grainrate/pkg/preprocess"
	"grainrate/pkg/ratefit"
	"grainrate/pkg/results"
	"grainrate/pkg/threshold"
	"grainrate/pkg/timeseries"
	"grainrate/pkg/visualization"
)

func initAction(c *cli.Context) error {
	path := c.String("config")
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := config.CreateDefaultConfigFile(path); err != nil {
		return err
	}
	log.WithField("path", path).Infoln("wrote default session file")
	return nil
}

// loadConfig reads the session file and applies command line overrides
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}

	if dir := c.String("images"); dir != "" {
		cfg.Images.Dir = dir
		cfg.Images.Files = nil
	}
	if src := c.String("time-source"); src != "" {
		cfg.Time.Source = src
	}
	if out := c.String("out"); out != "" {
		cfg.Output.ResultsDir = out
	}
	if s := c.String("lower"); s != "" {
		if cfg.Threshold.Lower, err = threshold.ParseBounds(s); err != nil {
			return nil, err
		}
	}
	if s := c.String("upper"); s != "" {
		if cfg.Threshold.Upper, err = threshold.ParseBounds(s); err != nil {
			return nil, err
		}
	}
	if c.IsSet("workers") {
		cfg.Processing.NumWorkers = c.Int("workers")
	}
	if c.IsSet("sqlitefile") {
		cfg.Output.SQLiteFile = c.String("sqlitefile")
	}
	if c.IsSet("postgres-dsn") {
		cfg.Output.PostgresDSN = c.String("postgres-dsn")
	}
	if c.Bool("nowritedb") {
		cfg.Output.WriteDB = false
	}
	if mag := c.String("mag"); mag != "" {
		cfg.Magnification = mag
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// sampleFor guesses sample metadata from the frames and fills a missing magnification
func sampleFor(cfg *config.Config, files []string) metadata.Sample {
	sample := metadata.Guess(files[0])
	for _, key := range sample.Apply(cfg.Sample) {
		log.WithField("key", key).Warnln("unknown sample property")
	}
	if cfg.Magnification == "" {
		cfg.Magnification = sample.Magnification
	}
	sample.Magnification = cfg.Magnification
	return sample
}

func extractAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	session, err := cfg.Session()
	if err != nil {
		return err
	}
	files, err := cfg.ImageFiles()
	if err != nil {
		return err
	}
	sample := sampleFor(cfg, files)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	ext := timeseries.NewExtractor(&timeseries.Params{
		Files:                   files,
		Time:                    cfg.TimeResolver(),
		Magnification:           cfg.Magnification,
		Calibration:             cfg.CalibrationTable(),
		Session:                 session,
		NumWorkers:              cfg.Processing.NumWorkers,
		SaveIntermediaryResults: cfg.Output.SaveIntermediaryResults,
		IntermediaryDir:         cfg.Output.IntermediaryDir,
	})
	if err := ext.Process(ctx); err != nil {
		return err
	}
	res := ext.Result()

	fmt.Printf("\nGrowth rates (%d frames over %.1f s, %.4f micron/px):\n",
		len(res.Frames), res.Times[len(res.Times)-1], res.LengthPerPixel)
	for _, r := range res.Rates {
		if r.Err != nil {
			fmt.Printf("  line %d: %v\n", r.LineNumber(), r.Err)
			continue
		}
		fmt.Printf("  line %d: %s (R^2 %.3f, %d points)\n", r.LineNumber(), ratefit.FormatRate(r.Slope), r.RSquared, r.Points)
	}

	return saveResults(cfg, res, session, sample)
}

// saveResults writes the CSV files, the growth plot and the database records of a run
func saveResults(cfg *config.Config, res *timeseries.Result, session models.Session, sample metadata.Sample) error {
	outDir := cfg.ResultsDir()
	records := results.BuildRecords(results.Run{
		Frames:          res.Frames,
		Session:         session,
		Rates:           res.Rates,
		Magnification:   cfg.Magnification,
		MicronsPerPixel: res.LengthPerPixel,
		TimeSource:      cfg.Time.Source,
		Sample:          sample,
	})

	ratesPath, err := results.WriteGrowthRates(outDir, records)
	if err != nil {
		return err
	}
	radiusPath, err := results.WriteRadiusVsTime(outDir, res.Times, res.Distances, res.Rates)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"rates":  ratesPath,
		"radius": radiusPath,
	}).Infoln("saved CSV results")

	plotPath := results.UniqueName(outDir, "growth_rates_plot", ".png")
	if err := visualization.SaveChart(plotPath, func(w io.Writer) error {
		return visualization.GrowthPlot(res.Times, res.Distances, res.Rates, w)
	}); err != nil {
		log.WithError(err).Warnln("failed to save growth plot")
	} else {
		log.WithField("path", plotPath).Infoln("saved growth plot")
	}

	if !cfg.Output.WriteDB {
		return nil
	}
	store, err := results.Open(cfg.Output.SQLiteFile, cfg.Output.PostgresDSN)
	if err != nil {
		return err
	}
	defer store.Close()
	if !store.Enabled() {
		log.Warnln("no results database configured, records not stored")
		return nil
	}
	if err := store.Append(records); err != nil {
		return err
	}
	if len(records) > 0 {
		stored, err := store.Records(records[0].Directory)
		if err != nil {
			return fmt.Errorf("failed to read back growth records: %w", err)
		}
		log.WithFields(log.Fields{
			"directory": records[0].Directory,
			"records":   len(stored),
		}).Infoln("growth records stored for directory")
	}
	return nil
}

// latestFrame processes the most recent frame of the series
func latestFrame(cfg *config.Config) (models.FrameRecord, *timeseries.Stages, models.Session, error) {
	var frame models.FrameRecord
	session, err := cfg.Session()
	if err != nil {
		return frame, nil, session, err
	}
	files, err := cfg.ImageFiles()
	if err != nil {
		return frame, nil, session, err
	}
	frames, err := timeseries.ResolveFrames(files, cfg.TimeResolver())
	if err != nil {
		return frame, nil, session, err
	}
	frames = timeseries.SortFrames(frames)
	frame = frames[len(frames)-1]

	raster, err := preprocess.Load(frame.Path)
	if err != nil {
		return frame, nil, session, err
	}
	stages, err := timeseries.ProcessFrame(raster, session)
	if err != nil {
		return frame, nil, session, err
	}
	log.WithFields(log.Fields{
		"frame":   filepath.Base(frame.Path),
		"elapsed": frame.Elapsed,
	}).Infoln("processed latest frame")
	return frame, stages, session, nil
}

func checkThresholdAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	_, stages, session, err := latestFrame(cfg)
	if err != nil {
		return err
	}
	paths, err := visualization.SaveThresholdPreview(cfg.ResultsDir(), stages, session.Threshold.Ranges)
	for _, p := range paths {
		fmt.Println(p)
	}
	return err
}

func checkEdgeAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	frame, stages, session, err := latestFrame(cfg)
	if err != nil {
		return err
	}

	width, _, err := preprocess.DecodeSize(frame.Path)
	if err != nil {
		return err
	}
	files, err := cfg.ImageFiles()
	if err != nil {
		return err
	}
	sample := sampleFor(cfg, files)
	scale, err := cfg.CalibrationTable().ScaleFor(sample.Magnification, width)
	if err != nil {
		return err
	}

	paths, err := visualization.EdgeCheck(cfg.ResultsDir(), stages, session.Lines, scale)
	for _, p := range paths {
		fmt.Println(p)
	}
	return err
}

