package detectionService

import (
	"context"

	"ProjectZukan/internal/api/detection"
	"ProjectZukan/internal/describer"
	"ProjectZukan/internal/entity"
	"ProjectZukan/internal/stream"
	"ProjectZukan/pkg/detector"
	"github.com/sirupsen/logrus"
)

type IDetectionService interface {
	// StreamEnabled reports whether a camera feeds the frame slot.
	StreamEnabled() bool
	Latest() (entity.Snapshot, bool)
	WaitNext(since uint64) <-chan struct{}
	Stats() stream.Stats
	Detect(ctx context.Context, image []byte) ([]entity.Detection, error)
	Describe(ctx context.Context, req detection.DescribeRequest) (detection.DescribeResponse, error)
}

type Config struct {
	ConfidenceThreshold float64
	WorkingWidth        int
}

type detectionService struct {
	log       *logrus.Logger
	slot      *stream.FrameSlot
	loop      *stream.InferenceLoop
	detector  detector.IDetector
	describer describer.IDescriber
	cfg       Config
}

// NewDetectionService wires the live stream and the ad-hoc endpoints. loop is nil when
// no camera is configured; the slot then stays empty.
func NewDetectionService(
	log *logrus.Logger,
	slot *stream.FrameSlot,
	loop *stream.InferenceLoop,
	det detector.IDetector,
	desc describer.IDescriber,
	cfg Config,
) IDetectionService {
	return &detectionService{
		log:       log,
		slot:      slot,
		loop:      loop,
		detector:  det,
		describer: desc,
		cfg:       cfg,
	}
}
