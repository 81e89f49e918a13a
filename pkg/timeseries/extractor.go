// Package timeseries drives the growth-front measurement over a time-ordered
// series of microscope frames.
package timeseries

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"grainrate/internal/models"
	"grainrate/pkg/calibration"
	"grainrate/pkg/preprocess"
	"grainrate/pkg/ratefit"
	"grainrate/pkg/threshold"
)

// Params holds the inputs of one extraction run
type Params struct {
	// Files are the frame images, in any order
	Files []string

	// Time selects how acquisition times are resolved
	Time TimeResolver

	// Magnification is the calibration label, e.g. "20x"
	Magnification string

	// Calibration is the magnification table; calibration.Default() when nil
	Calibration *calibration.Table

	// Session holds the crop, threshold and lines
	Session models.Session

	// NumWorkers bounds how many frames are processed at once
	NumWorkers int

	// SaveIntermediaryResults writes the cropped, thresholded and despeckled
	// image of every frame under IntermediaryDir
	SaveIntermediaryResults bool
	IntermediaryDir         string
}

// Result is the outcome of an extraction run
type Result struct {
	// Frames in ascending time order
	Frames []models.FrameRecord

	// Times are the elapsed seconds of each frame
	Times []float64

	// LengthPerPixel is the calibration used, in microns per pixel
	LengthPerPixel float64

	// Distances is indexed by [line, frame]
	Distances *models.DistanceMatrix

	// Rates holds one fit per line
	Rates []models.GrowthRateResult
}

// Extractor runs the measurement pipeline:
// 1. Resolving and sorting frame timestamps
// 2. Validating frame sizes and resolving the pixel scale
// 3. Measuring every frame in parallel
// 4. Fitting a growth rate per line
type Extractor struct {
	params *Params
	result *Result
}

// NewExtractor creates an extractor for the given parameters
func NewExtractor(params *Params) *Extractor {
	return &Extractor{params: params}
}

// Process runs the complete pipeline. Configuration problems are reported
// before any frame is measured.
func (e *Extractor) Process(ctx context.Context) error {
	p := e.params
	if err := ValidateSession(p.Session); err != nil {
		return err
	}
	if len(p.Files) == 0 {
		return errors.New("no frames to process")
	}

	// Step 1: timestamps
	frames, err := ResolveFrames(p.Files, p.Time)
	if err != nil {
		return err
	}
	frames = SortFrames(frames)
	log.WithFields(log.Fields{
		"frames":   len(frames),
		"source":   p.Time.Source,
		"duration": frames[len(frames)-1].Elapsed,
	}).Infoln("resolved frame timestamps")

	// Step 2: frame sizes and scale
	scale, err := e.checkFrames(frames)
	if err != nil {
		return err
	}

	// Step 3: measurement
	var save stageSaver
	if p.SaveIntermediaryResults {
		save = e.saveIntermediaryResult
	}
	start := time.Now()
	matrix, err := extract(ctx, frames, p.Session, scale, p.NumWorkers, save)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"frames":  len(frames),
		"lines":   len(p.Session.Lines),
		"elapsed": time.Since(start).Round(time.Millisecond),
	}).Infoln("extracted growth front distances")

	// Step 4: fit
	times := ElapsedTimes(frames)
	rates := ratefit.FitAll(times, matrix)
	for _, r := range rates {
		fields := log.Fields{"line": r.LineNumber(), "points": r.Points}
		if r.Err != nil {
			log.WithFields(fields).WithError(r.Err).Warnln("could not fit growth rate")
			continue
		}
		fields["rate"] = ratefit.FormatRate(r.Slope)
		log.WithFields(fields).Infoln("fitted growth rate")
	}

	e.result = &Result{
		Frames:         frames,
		Times:          times,
		LengthPerPixel: scale,
		Distances:      matrix,
		Rates:          rates,
	}
	return nil
}

// Result returns the outcome of the last successful Process call
func (e *Extractor) Result() *Result {
	return e.result
}

// checkFrames reads every frame header, rejects frames the crop does not fit
// and resolves the scale from the earliest frame's pixel width
func (e *Extractor) checkFrames(frames []models.FrameRecord) (float64, error) {
	crop := e.params.Session.Crop
	var refWidth int
	for i, f := range frames {
		w, h, err := preprocess.DecodeSize(f.Path)
		if err != nil {
			return 0, err
		}
		if !crop.Fits(w, h) {
			return 0, fmt.Errorf("%w: %s in %dx%d frame %s", preprocess.ErrInvalidCropRegion, crop, w, h, f.Path)
		}
		if i == 0 {
			refWidth = w
		}
	}

	table := e.params.Calibration
	if table == nil {
		table = calibration.Default()
	}
	scale, err := table.ScaleFor(e.params.Magnification, refWidth)
	if err != nil {
		return 0, err
	}
	log.WithFields(log.Fields{
		"magnification":   e.params.Magnification,
		"width":           refWidth,
		"micronsPerPixel": scale,
	}).Infoln("resolved calibration")
	return scale, nil
}

// ValidateSession checks the parts of a session that every frame depends on
func ValidateSession(s models.Session) error {
	if len(s.Lines) == 0 {
		return errors.New("session has no lines")
	}
	if len(s.Threshold.Ranges) == 0 {
		return fmt.Errorf("%w: no threshold ranges", threshold.ErrRangeLengthMismatch)
	}
	if err := threshold.CheckRanges(s.Threshold.Ranges); err != nil {
		return err
	}
	if s.Threshold.DiskRadius < 0 {
		return fmt.Errorf("disk radius must be non-negative, got %d", s.Threshold.DiskRadius)
	}
	if s.Crop.X1 >= s.Crop.X2 || s.Crop.Y1 >= s.Crop.Y2 || s.Crop.X1 < 0 || s.Crop.Y1 < 0 {
		return fmt.Errorf("%w: %s", preprocess.ErrInvalidCropRegion, s.Crop)
	}
	return nil
}

// Extract measures every line on every frame. Frames must already be sorted.
// Lines without a growth front leave models.InvalidDistance in their cell.
func Extract(ctx context.Context, frames []models.FrameRecord, session models.Session, lengthPerPixel float64, workers int) (*models.DistanceMatrix, error) {
	return extract(ctx, frames, session, lengthPerPixel, workers, nil)
}

// stageSaver receives the intermediate images of a frame
type stageSaver func(index int, stages *Stages) error

func extract(ctx context.Context, frames []models.FrameRecord, session models.Session, lengthPerPixel float64, workers int, save stageSaver) (*models.DistanceMatrix, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	matrix := models.NewDistanceMatrix(len(session.Lines), len(frames))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, f := range frames {
		// Stop scheduling frames once the run is cancelled
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return measureFrame(i, f, session, lengthPerPixel, matrix, save)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return matrix, nil
}

// measureFrame fills column index of the matrix. Each call writes only its own column.
func measureFrame(index int, f models.FrameRecord, session models.Session, lengthPerPixel float64, matrix *models.DistanceMatrix, save stageSaver) error {
	frame, err := preprocess.Load(f.Path)
	if err != nil {
		return err
	}
	stages, err := ProcessFrame(frame, session)
	if err != nil {
		return fmt.Errorf("frame %s: %w", f.Path, err)
	}
	if save != nil {
		if err := save(index, stages); err != nil {
			log.WithError(err).WithField("frame", f.Path).Warnln("failed to save intermediary images")
		}
	}

	measurements, errs := MeasureLines(stages.Despeckled, session.Lines, lengthPerPixel)
	for line, m := range measurements {
		if m == nil {
			log.WithFields(log.Fields{
				"frame":   f.Path,
				"elapsed": f.Elapsed,
			}).WithError(errs[line]).Debugln("no growth front")
			continue
		}
		matrix.Set(line, index, m.Distance)
	}
	log.WithFields(log.Fields{
		"frame":   f.Path,
		"elapsed": f.Elapsed,
	}).Debugln("measured frame")
	return nil
}
