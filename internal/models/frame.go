package models

import (
	"math"
)

// InvalidDistance marks a matrix cell where no growth front could be measured.
// Any non-positive value is treated as invalid by the rate fitter.
const InvalidDistance = -1.0

// FrameRecord represents a single microscope image in a time series
type FrameRecord struct {
	// Path is the location of the image file
	Path string

	// Timestamp is the acquisition time in seconds. Its origin depends on the
	// timestamp source (unix seconds for modification time, arbitrary for
	// filename tokens); only differences between frames are meaningful.
	Timestamp float64

	// Elapsed is the time in seconds since the earliest frame of the series.
	// It is filled in once the series has been sorted.
	Elapsed float64
}

// DistanceMatrix holds growth front distances in microns.
// Rows are directions (line index) and columns are time-sorted frames.
type DistanceMatrix struct {
	// Rows is the number of directions
	Rows int

	// Cols is the number of frames
	Cols int

	// Data is stored row-major
	Data []float64
}

// NewDistanceMatrix creates a matrix with every cell set to InvalidDistance
func NewDistanceMatrix(rows, cols int) *DistanceMatrix {
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = InvalidDistance
	}
	return &DistanceMatrix{Rows: rows, Cols: cols, Data: data}
}

// At returns the distance for a direction and frame
func (m *DistanceMatrix) At(line, frame int) float64 {
	return m.Data[line*m.Cols+frame]
}

// Set stores the distance for a direction and frame
func (m *DistanceMatrix) Set(line, frame int, v float64) {
	m.Data[line*m.Cols+frame] = v
}

// Row returns a copy of all distances measured along one direction
func (m *DistanceMatrix) Row(line int) []float64 {
	row := make([]float64, m.Cols)
	copy(row, m.Data[line*m.Cols:(line+1)*m.Cols])
	return row
}

// Valid reports whether a cell holds a usable measurement
func (m *DistanceMatrix) Valid(line, frame int) bool {
	v := m.At(line, frame)
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// GrowthRateResult is the linear fit of distance against elapsed time for one direction
type GrowthRateResult struct {
	// Line is the zero-based direction index
	Line int

	// Slope is the growth rate in microns per second
	Slope float64

	// Intercept is the fitted distance at t = 0 in microns
	Intercept float64

	// RSquared is the coefficient of determination of the fit
	RSquared float64

	// Points is the number of valid measurements used by the fit
	Points int

	// Err is set when the direction could not be fitted
	Err error
}

// LineNumber is the one-based number shown to users
func (r GrowthRateResult) LineNumber() int {
	return r.Line + 1
}
