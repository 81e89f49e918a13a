package results

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"grainrate/internal/models"
)

// maxNameSuffix is the highest _N suffix tried before a file is overwritten
const maxNameSuffix = 9

// UniqueName returns dir/base+ext, or the first of dir/base_1+ext ... dir/base_9+ext
// that does not exist yet. When all are taken the unsuffixed name is reused.
func UniqueName(dir, base, ext string) string {
	name := filepath.Join(dir, base+ext)
	if _, err := os.Stat(name); os.IsNotExist(err) {
		return name
	}
	for i := 1; i <= maxNameSuffix; i++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s_%d%s", base, i, ext))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
	return name
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func optional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

// WriteGrowthRates writes one row per record to growth_rates_data.csv in dir
// and returns the path written
func WriteGrowthRates(dir string, records []GrowthRecord) (string, error) {
	header := []string{
		"line", "growth_rate_umps", "intercept_um", "r_squared", "points", "fit_error",
		"start_x", "start_y", "end_x", "end_y", "crop", "image_dir", "image_files",
		"magnification", "microns_per_pixel", "time_source",
		"threshold_lower", "threshold_upper", "invert", "disk", "histogram_equalization",
		"substrate", "material", "thickness_nm", "anneal_temp_c", "deposition_temp_c",
		"growth_date", "note",
	}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			strconv.Itoa(r.Line), optional(r.GrowthRate), optional(r.Intercept), optional(r.RSquared),
			strconv.Itoa(r.Points), r.FitError,
			formatFloat(r.StartX), formatFloat(r.StartY), formatFloat(r.EndX), formatFloat(r.EndY),
			r.Crop, r.Directory, r.Files,
			r.Magnification, formatFloat(r.MicronsPerPixel), r.TimeSource,
			r.LowerBounds, r.UpperBounds, strconv.FormatBool(r.Invert), strconv.Itoa(r.DiskRadius),
			strconv.FormatBool(r.Equalized),
			r.Substrate, r.Material, r.Thickness, r.AnnealTemp, r.DepositionTemp,
			r.GrowthDate, r.Notes,
		})
	}
	return writeCSV(dir, "growth_rates_data", header, rows)
}

// WriteRadiusVsTime writes the distance matrix with a time column to
// radius_vs_time.csv in dir. Unmeasured cells are left empty.
func WriteRadiusVsTime(dir string, times []float64, matrix *models.DistanceMatrix, rates []models.GrowthRateResult) (string, error) {
	header := make([]string, 0, matrix.Rows+1)
	header = append(header, "time(s)")
	for line := 0; line < matrix.Rows; line++ {
		col := fmt.Sprintf("line#%d(micron)", line+1)
		if line < len(rates) && rates[line].Err == nil {
			col = fmt.Sprintf("%s %.2f micron/sec", col, rates[line].Slope)
		}
		header = append(header, col)
	}

	rows := make([][]string, matrix.Cols)
	for frame := 0; frame < matrix.Cols; frame++ {
		row := make([]string, 0, matrix.Rows+1)
		row = append(row, formatFloat(times[frame]))
		for line := 0; line < matrix.Rows; line++ {
			if matrix.Valid(line, frame) {
				row = append(row, formatFloat(matrix.At(line, frame)))
			} else {
				row = append(row, "")
			}
		}
		rows[frame] = row
	}
	return writeCSV(dir, "radius_vs_time", header, rows)
}

func writeCSV(dir, base string, header []string, rows [][]string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create results directory: %w", err)
	}
	path := UniqueName(dir, base, ".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return "", err
	}
	if err := w.WriteAll(rows); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, f.Close()
}
