package detectionService

import (
	"context"
	"image"

	"ProjectZukan/internal/api/detection"
	"ProjectZukan/internal/describer"
	"ProjectZukan/internal/entity"
	"ProjectZukan/internal/stream"
	contextPkg "ProjectZukan/pkg/context"
	"ProjectZukan/pkg/utils"
	"github.com/sirupsen/logrus"
)

func (s *detectionService) StreamEnabled() bool {
	return s.loop != nil
}

func (s *detectionService) Latest() (entity.Snapshot, bool) {
	return s.slot.Peek()
}

func (s *detectionService) WaitNext(since uint64) <-chan struct{} {
	return s.slot.WaitNext(since)
}

func (s *detectionService) Stats() stream.Stats {
	if s.loop == nil {
		return stream.Stats{}
	}
	return s.loop.Stats()
}

// Detect runs the detector on an uploaded photo. Boxes are returned in the photo's own
// coordinates even though inference runs on the working-width copy.
func (s *detectionService) Detect(ctx context.Context, data []byte) ([]entity.Detection, error) {
	img, err := utils.DecodeImage(data)
	if err != nil {
		return nil, detection.ErrInvalidImage
	}

	working := utils.FitWidth(img, s.cfg.WorkingWidth)
	dets, err := s.detector.Detect(ctx, working, s.cfg.ConfidenceThreshold)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"error":      err.Error(),
		}).Error("Ad-hoc detection failed")
		return nil, detection.ErrDetectionFailed
	}

	if dets == nil {
		dets = []entity.Detection{}
	}
	return scaleDetections(dets, img.Bounds(), working.Bounds()), nil
}

// Describe never fails once the image decodes: a hosted failure degrades to a
// locally built explanation with source "fallback".
func (s *detectionService) Describe(ctx context.Context, req detection.DescribeRequest) (detection.DescribeResponse, error) {
	if _, err := utils.DecodeImage(req.ImageBytes); err != nil {
		return detection.DescribeResponse{}, detection.ErrInvalidImage
	}

	text, err := s.describer.Describe(ctx, req.Detection.Name(), req.Place, req.ImageBytes)
	if err == nil {
		return detection.DescribeResponse{Description: text, Source: s.describer.Source()}, nil
	}

	s.log.WithFields(logrus.Fields{
		"request_id": contextPkg.GetRequestID(ctx),
		"label":      req.Detection.Name(),
		"error":      err.Error(),
	}).Warn("Describer failed, using fallback description")

	confidence := -1.0
	if req.Detection.Confidence != nil {
		confidence = *req.Detection.Confidence
	}
	width, height := req.Detection.Size()

	return detection.DescribeResponse{
		Description: describer.Fallback(req.Detection.Name(), confidence, width, height, ""),
		Source:      describer.SourceFallback,
		Error:       err.Error(),
	}, nil
}

func scaleDetections(dets []entity.Detection, original, working image.Rectangle) []entity.Detection {
	if working.Dx() == 0 || original.Dx() == working.Dx() {
		return dets
	}

	factor := float64(original.Dx()) / float64(working.Dx())
	scaled := make([]entity.Detection, len(dets))
	for i, d := range dets {
		d.Box = entity.Box{
			X: int(float64(d.Box.X) * factor),
			Y: int(float64(d.Box.Y) * factor),
			W: int(float64(d.Box.W) * factor),
			H: int(float64(d.Box.H) * factor),
		}
		scaled[i] = d
	}
	return scaled
}
