//go:build !gocv
// +build !gocv

package camera

import (
	"context"
	"errors"
	"image"
)

type WebcamSource struct{}

// NewWebcamSource returns an error when built without the gocv tag.
func NewWebcamSource(deviceID int) (*WebcamSource, error) {
	_ = deviceID
	return nil, errors.New("gocv build tag is not enabled, local webcams are unavailable")
}

func (s *WebcamSource) Capture(ctx context.Context) (image.Image, error) {
	_ = ctx
	return nil, ErrCapture
}

func (s *WebcamSource) Close() error {
	return nil
}
