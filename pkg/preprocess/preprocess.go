// Package preprocess loads microscope frames as grayscale rasters and applies
// contrast enhancement and cropping before thresholding.
package preprocess

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"grainrate/internal/models"
)

// ErrInvalidCropRegion is returned when crop bounds are inverted or exceed the frame
var ErrInvalidCropRegion = errors.New("invalid crop region")

// Load decodes an image file and collapses it to a luminance raster
func Load(path string) (*models.Raster, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", path, err)
	}
	return FromImage(img), nil
}

// FromImage converts any image to a luminance raster on the 0-255 scale.
// Colour images use the ITU-R 601 weights applied by imaging.Grayscale.
func FromImage(img image.Image) *models.Raster {
	gray := imaging.Grayscale(img)
	b := gray.Bounds()
	r := models.NewRaster(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		row := gray.Pix[y*gray.Stride:]
		for x := 0; x < b.Dx(); x++ {
			r.Pix[y*r.Width+x] = float64(row[x*4])
		}
	}
	return r
}

// ToImage converts a raster back to an 8-bit grayscale image, clamping values to 0-255
func ToImage(r *models.Raster) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, r.Width, r.Height))
	for i, v := range r.Pix {
		img.Pix[i] = clampByte(v)
	}
	return img
}

// MaskImage converts a mask to a black and white image
func MaskImage(m *models.Mask) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, v := range m.Pix {
		if v {
			img.Pix[i] = 255
		}
	}
	return img
}

// DecodeSize reads only the header of an image file and returns its pixel dimensions
func DecodeSize(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read image header %s: %w", path, err)
	}
	return cfg.Width, cfg.Height, nil
}

// Rescale linearly maps [low, high] onto [0, 255], clipping values outside the range
func Rescale(r *models.Raster, low, high float64) (*models.Raster, error) {
	if high <= low {
		return nil, fmt.Errorf("invalid rescale range [%g, %g]", low, high)
	}
	out := models.NewRaster(r.Width, r.Height)
	span := high - low
	for i, v := range r.Pix {
		if v < low {
			v = low
		} else if v > high {
			v = high
		}
		out.Pix[i] = (v - low) / span * 255
	}
	return out, nil
}

// Crop returns the y1:y2, x1:x2 sub-raster
func Crop(r *models.Raster, crop models.CropRegion) (*models.Raster, error) {
	if !crop.Fits(r.Width, r.Height) {
		return nil, fmt.Errorf("%w: %s in %dx%d frame", ErrInvalidCropRegion, crop, r.Width, r.Height)
	}
	out := models.NewRaster(crop.Width(), crop.Height())
	for y := 0; y < out.Height; y++ {
		copy(out.Pix[y*out.Width:(y+1)*out.Width], r.Pix[(crop.Y1+y)*r.Width+crop.X1:])
	}
	return out, nil
}

// Preprocess applies the contrast options to the full frame and then crops it.
// Equalization runs before cropping so its tile statistics match the whole frame.
func Preprocess(frame *models.Raster, crop models.CropRegion, opts models.ContrastOptions) (*models.Raster, error) {
	if !crop.Fits(frame.Width, frame.Height) {
		return nil, fmt.Errorf("%w: %s in %dx%d frame", ErrInvalidCropRegion, crop, frame.Width, frame.Height)
	}

	img := frame
	var err error
	if opts.Rescale {
		img, err = Rescale(img, opts.RescaleLow, opts.RescaleHigh)
		if err != nil {
			return nil, err
		}
	}
	if opts.Equalize {
		img, err = EqualizeAdaptive(img, opts.ClipLimit)
		if err != nil {
			return nil, err
		}
	}
	return Crop(img, crop)
}

func clampByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
