package models

// Raster is a single-channel intensity image stored row-major.
// Values are on the 8-bit scale (0-255) but kept as float64 so that contrast
// adjustments do not lose precision before thresholding.
type Raster struct {
	Width  int
	Height int
	Pix    []float64
}

// NewRaster allocates a zeroed raster
func NewRaster(width, height int) *Raster {
	return &Raster{Width: width, Height: height, Pix: make([]float64, width*height)}
}

// At returns the intensity at column x, row y
func (r *Raster) At(x, y int) float64 {
	return r.Pix[y*r.Width+x]
}

// Set stores the intensity at column x, row y
func (r *Raster) Set(x, y int, v float64) {
	r.Pix[y*r.Width+x] = v
}

// Mask is a binary image; true marks foreground (grain) pixels
type Mask struct {
	Width  int
	Height int
	Pix    []bool
}

// NewMask allocates an all-background mask
func NewMask(width, height int) *Mask {
	return &Mask{Width: width, Height: height, Pix: make([]bool, width*height)}
}

// At reports whether the pixel at column x, row y is foreground
func (m *Mask) At(x, y int) bool {
	return m.Pix[y*m.Width+x]
}

// Set marks the pixel at column x, row y
func (m *Mask) Set(x, y int, v bool) {
	m.Pix[y*m.Width+x] = v
}

// Count returns the number of foreground pixels
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v {
			n++
		}
	}
	return n
}

// Raster converts the mask to an intensity image with foreground at 255
func (m *Mask) Raster() *Raster {
	r := NewRaster(m.Width, m.Height)
	for i, v := range m.Pix {
		if v {
			r.Pix[i] = 255
		}
	}
	return r
}
