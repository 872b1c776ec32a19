package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strconv"
	"strings"
	"time"
)

// ErrCapture is returned when the device cannot deliver a frame. Callers retry on the next iteration.
var ErrCapture = errors.New("camera capture failed")

type ISource interface {
	Capture(ctx context.Context) (image.Image, error)
	Close() error
}

type Options struct {
	// FrameTimeout bounds how long Capture waits for a network camera frame.
	FrameTimeout time.Duration
	// Interval paces directory playback to look like a live device.
	Interval time.Duration
}

// New builds a source from a CAMERA_SOURCE value:
//
//	none | ""          no camera, returns (nil, nil)
//	device:<index>     local webcam (requires the gocv build tag)
//	dir:<path>         cycles over the images of a directory
//	http(s)://...      MJPEG network camera
func New(source string, opts Options) (ISource, error) {
	source = strings.TrimSpace(source)

	switch {
	case source == "" || source == "none":
		return nil, nil
	case strings.HasPrefix(source, "device:"):
		id, err := strconv.Atoi(strings.TrimPrefix(source, "device:"))
		if err != nil {
			return nil, fmt.Errorf("invalid camera device %q: %w", source, err)
		}
		src, err := NewWebcamSource(id)
		if err != nil {
			return nil, err
		}
		return src, nil
	case strings.HasPrefix(source, "dir:"):
		src, err := NewDirectorySource(strings.TrimPrefix(source, "dir:"), opts.Interval)
		if err != nil {
			return nil, err
		}
		return src, nil
	case strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://"):
		return NewMJPEGSource(source, opts.FrameTimeout), nil
	default:
		return nil, fmt.Errorf("unsupported camera source %q", source)
	}
}
