//go:build !gocv
// +build !gocv

package detector

import (
	"context"
	"errors"
	"image"

	"ProjectZukan/internal/entity"
)

type YOLO struct{}

func NewYOLO(modelPath, labelsPath string) (*YOLO, error) {
	return nil, errors.New("gocv build tag is not enabled, the in-process detector is unavailable")
}

func (y *YOLO) Detect(ctx context.Context, img image.Image, threshold float64) ([]entity.Detection, error) {
	return nil, ErrDetection
}

func (y *YOLO) Close() error {
	return nil
}
