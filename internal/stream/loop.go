package stream

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync/atomic"
	"time"

	"ProjectZukan/internal/entity"
	"ProjectZukan/pkg/camera"
	"ProjectZukan/pkg/detector"
	"ProjectZukan/pkg/log"
	"ProjectZukan/pkg/utils"
)

type Config struct {
	// FrameSkip runs inference on every Nth captured frame. Values <= 1 infer on every frame.
	FrameSkip           int
	WorkingWidth        int
	ConfidenceThreshold float64
	JPEGQuality         int
	CaptureRetry        time.Duration
}

type Stats struct {
	Captured        uint64        `json:"captured"`
	Inferred        uint64        `json:"inferred"`
	Skipped         uint64        `json:"skipped"`
	CaptureErrors   uint64        `json:"capture_errors"`
	DetectionErrors uint64        `json:"detection_errors"`
	LastLatency     time.Duration `json:"last_latency_ns"`
	LastPublishedAt time.Time     `json:"last_published_at"`
	Running         bool          `json:"running"`
}

// InferenceLoop is the only owner of the camera. It captures, infers on a reduced
// copy and publishes annotated snapshots into the slot.
type InferenceLoop struct {
	source   camera.ISource
	detector detector.IDetector
	slot     *FrameSlot
	cfg      Config

	captured        atomic.Uint64
	inferred        atomic.Uint64
	skipped         atomic.Uint64
	captureErrors   atomic.Uint64
	detectionErrors atomic.Uint64
	lastLatency     atomic.Int64
	lastPublished   atomic.Int64
	running         atomic.Bool
}

func NewInferenceLoop(source camera.ISource, det detector.IDetector, slot *FrameSlot, cfg Config) *InferenceLoop {
	if cfg.JPEGQuality <= 0 || cfg.JPEGQuality > 100 {
		cfg.JPEGQuality = 80
	}
	if cfg.CaptureRetry <= 0 {
		cfg.CaptureRetry = 500 * time.Millisecond
	}

	return &InferenceLoop{
		source:   source,
		detector: det,
		slot:     slot,
		cfg:      cfg,
	}
}

// Run blocks until ctx is cancelled.
func (l *InferenceLoop) Run(ctx context.Context) {
	l.running.Store(true)
	defer l.running.Store(false)

	log.Info(log.Fields{
		"frame_skip":    l.cfg.FrameSkip,
		"working_width": l.cfg.WorkingWidth,
		"threshold":     l.cfg.ConfidenceThreshold,
	}, "[InferenceLoop.Run] inference loop started")

	for ctx.Err() == nil {
		img, err := l.source.Capture(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			l.captureErrors.Add(1)
			log.Warn(log.Fields{
				"error":   err.Error(),
				"capture": errors.Is(err, camera.ErrCapture),
			}, "[InferenceLoop.Run] failed to capture frame, retrying")

			if !sleep(ctx, l.cfg.CaptureRetry) {
				break
			}
			continue
		}

		n := l.captured.Add(1)
		if !l.shouldInfer(n) {
			l.skipped.Add(1)
			continue
		}

		l.infer(ctx, img)
	}

	log.Info(nil, "[InferenceLoop.Run] inference loop stopped")
}

func (l *InferenceLoop) shouldInfer(frame uint64) bool {
	if l.cfg.FrameSkip <= 1 {
		return true
	}
	return (frame-1)%uint64(l.cfg.FrameSkip) == 0
}

func (l *InferenceLoop) infer(ctx context.Context, frame image.Image) {
	start := time.Now()
	working := utils.FitWidth(frame, l.cfg.WorkingWidth)

	dets, err := l.detector.Detect(ctx, working, l.cfg.ConfidenceThreshold)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		if !errors.Is(err, detector.ErrDetection) {
			err = fmt.Errorf("%w: %v", detector.ErrDetection, err)
		}
		l.detectionErrors.Add(1)
		log.Warn(log.Fields{
			"error": err.Error(),
		}, "[InferenceLoop.infer] detection failed, keeping previous frame")
		return
	}

	encoded, err := utils.EncodeJPEG(Annotate(working, dets), l.cfg.JPEGQuality)
	if err != nil {
		l.detectionErrors.Add(1)
		log.Error(log.Fields{
			"error": err.Error(),
		}, "[InferenceLoop.infer] failed to encode annotated frame")
		return
	}

	if dets == nil {
		dets = []entity.Detection{}
	}
	bounds := working.Bounds()
	l.slot.Publish(entity.Snapshot{
		CapturedAt: start,
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
		JPEG:       encoded,
		Detections: dets,
	})

	l.inferred.Add(1)
	l.lastLatency.Store(int64(time.Since(start)))
	l.lastPublished.Store(time.Now().UnixNano())
}

func (l *InferenceLoop) Stats() Stats {
	s := Stats{
		Captured:        l.captured.Load(),
		Inferred:        l.inferred.Load(),
		Skipped:         l.skipped.Load(),
		CaptureErrors:   l.captureErrors.Load(),
		DetectionErrors: l.detectionErrors.Load(),
		LastLatency:     time.Duration(l.lastLatency.Load()),
		Running:         l.running.Load(),
	}
	if ns := l.lastPublished.Load(); ns != 0 {
		s.LastPublishedAt = time.Unix(0, ns)
	}
	return s
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
