package preprocess

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"grainrate/internal/models"
)

const (
	// claheBins is the number of histogram bins per tile
	claheBins = 256

	// claheTiles is the number of tiles along each axis
	claheTiles = 8
)

// EqualizeAdaptive applies contrast limited adaptive histogram equalization
// over an 8x8 tile grid.
//
// clipLimit is normalized to the tile area: a histogram bin is clipped at
// clipLimit times the number of pixels in the tile. OpenCV expresses the same
// limit relative to the mean bin height, hence the scaling by the bin count.
// The result stays on the 0-255 scale so downstream thresholds keep working.
func EqualizeAdaptive(r *models.Raster, clipLimit float64) (*models.Raster, error) {
	if clipLimit <= 0 || clipLimit > 1 {
		return nil, fmt.Errorf("clip limit must be in (0,1], got %g", clipLimit)
	}
	if r.Width == 0 || r.Height == 0 {
		return models.NewRaster(r.Width, r.Height), nil
	}

	src, err := gocv.NewMatFromBytes(r.Height, r.Width, gocv.MatTypeCV8U, ToImage(r).Pix)
	if err != nil {
		return nil, fmt.Errorf("failed to build image matrix: %w", err)
	}
	defer src.Close()

	clahe := gocv.NewCLAHEWithParams(clipLimit*claheBins, image.Point{X: claheTiles, Y: claheTiles})
	defer clahe.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	clahe.Apply(src, &dst)

	out := models.NewRaster(r.Width, r.Height)
	for i, v := range dst.ToBytes() {
		out.Pix[i] = float64(v)
	}
	return out, nil
}
