package timeseries

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"grainrate/pkg/preprocess"
)

// Stage directories under the intermediary root
const (
	StageCropped     = "01_cropped"
	StageThresholded = "02_thresholded"
	StageDespeckled  = "03_despeckled"
)

// saveIntermediaryResult writes every stage image of one frame.
// Files are named by the frame's position in time order.
func (e *Extractor) saveIntermediaryResult(index int, stages *Stages) error {
	return SaveStages(e.params.IntermediaryDir, index, stages)
}

// SaveStages writes the cropped, thresholded and despeckled images of a frame below root
func SaveStages(root string, index int, stages *Stages) error {
	if err := saveStage(root, StageCropped, index, preprocess.ToImage(stages.Cropped)); err != nil {
		return err
	}
	if err := saveStage(root, StageThresholded, index, preprocess.MaskImage(stages.Thresholded)); err != nil {
		return err
	}
	return saveStage(root, StageDespeckled, index, preprocess.MaskImage(stages.Despeckled))
}

func saveStage(root, stage string, index int, img image.Image) error {
	stageDir := filepath.Join(root, stage)
	if err := os.MkdirAll(stageDir, 0755); err != nil {
		return fmt.Errorf("failed to create intermediary directory: %w", err)
	}
	filename := filepath.Join(stageDir, fmt.Sprintf("%03d.png", index))
	if err := imaging.Save(img, filename); err != nil {
		return fmt.Errorf("failed to save %s: %w", filename, err)
	}
	return nil
}

