//go:build gocv
// +build gocv

package camera

import (
	"context"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// WebcamSource owns a local capture device. Only the inference loop may hold one.
type WebcamSource struct {
	mu      sync.Mutex
	capture *gocv.VideoCapture
	frame   gocv.Mat
}

func NewWebcamSource(deviceID int) (*WebcamSource, error) {
	capture, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to open video capture %d: %w", deviceID, err)
	}

	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("video capture %d is not opened", deviceID)
	}

	return &WebcamSource{
		capture: capture,
		frame:   gocv.NewMat(),
	}, nil
}

func (s *WebcamSource) Capture(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.capture == nil {
		return nil, fmt.Errorf("%w: device closed", ErrCapture)
	}
	if ok := s.capture.Read(&s.frame); !ok || s.frame.Empty() {
		return nil, fmt.Errorf("%w: device returned no frame", ErrCapture)
	}

	img, err := s.frame.ToImage()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCapture, err)
	}
	return img, nil
}

func (s *WebcamSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.capture != nil {
		err = s.capture.Close()
		s.capture = nil
	}
	s.frame.Close()
	return err
}
