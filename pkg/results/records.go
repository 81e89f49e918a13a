package results

import (
	"path/filepath"
	"strings"

	"grainrate/internal/models"
	"grainrate/pkg/metadata"
	"grainrate/pkg/threshold"
)

// Run describes one finished extraction
type Run struct {
	Frames          []models.FrameRecord
	Session         models.Session
	Rates           []models.GrowthRateResult
	Magnification   string
	MicronsPerPixel float64
	TimeSource      string
	Sample          metadata.Sample
}

// BuildRecords returns one record per direction of the run
func BuildRecords(run Run) []GrowthRecord {
	names := make([]string, len(run.Frames))
	for i, f := range run.Frames {
		names[i] = filepath.Base(f.Path)
	}
	var dir string
	if len(run.Frames) > 0 {
		dir = filepath.Dir(run.Frames[0].Path)
	}

	lower := make([]float64, len(run.Session.Threshold.Ranges))
	upper := make([]float64, len(run.Session.Threshold.Ranges))
	for i, r := range run.Session.Threshold.Ranges {
		lower[i] = r.Lower
		upper[i] = r.Upper
	}

	records := make([]GrowthRecord, 0, len(run.Rates))
	for _, rate := range run.Rates {
		line := run.Session.Lines[rate.Line]
		rec := GrowthRecord{
			Directory:       dir,
			Files:           strings.Join(names, ","),
			Line:            rate.LineNumber(),
			StartX:          line.Start.X,
			StartY:          line.Start.Y,
			EndX:            line.End.X,
			EndY:            line.End.Y,
			Crop:            run.Session.Crop.String(),
			Points:          rate.Points,
			Magnification:   run.Magnification,
			MicronsPerPixel: run.MicronsPerPixel,
			TimeSource:      run.TimeSource,
			LowerBounds:     threshold.FormatBounds(lower),
			UpperBounds:     threshold.FormatBounds(upper),
			Invert:          run.Session.Threshold.Invert,
			DiskRadius:      run.Session.Threshold.DiskRadius,
			Equalized:       run.Session.Threshold.Contrast.Equalize,
			Substrate:       run.Sample.Substrate,
			Material:        run.Sample.Material,
			AnnealTemp:      run.Sample.AnnealTempC,
			Thickness:       run.Sample.ThicknessNm,
			DepositionTemp:  run.Sample.DepositionTempC,
			GrowthDate:      run.Sample.GrowthDate,
			Notes:           run.Sample.Note,
		}
		if rate.Err != nil {
			rec.FitError = rate.Err.Error()
		} else {
			slope, intercept, r2 := rate.Slope, rate.Intercept, rate.RSquared
			rec.GrowthRate = &slope
			rec.Intercept = &intercept
			rec.RSquared = &r2
		}
		records = append(records, rec)
	}
	return records
}
