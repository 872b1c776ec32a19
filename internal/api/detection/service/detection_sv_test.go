package detectionService

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"testing"

	"ProjectZukan/internal/api/detection"
	"ProjectZukan/internal/describer"
	"ProjectZukan/internal/entity"
	"ProjectZukan/internal/stream"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type stubDetector struct {
	dets  []entity.Detection
	err   error
	width int
}

func (d *stubDetector) Detect(ctx context.Context, img image.Image, threshold float64) ([]entity.Detection, error) {
	d.width = img.Bounds().Dx()
	return d.dets, d.err
}

type stubDescriber struct {
	text   string
	err    error
	source string
}

func (d *stubDescriber) Describe(ctx context.Context, objectName, place string, image []byte) (string, error) {
	return d.text, d.err
}

func (d *stubDescriber) Source() string { return d.source }

func pngOfWidth(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func newService(det *stubDetector, desc *stubDescriber, loop *stream.InferenceLoop) IDetectionService {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewDetectionService(logger, stream.NewFrameSlot(), loop, det, desc, Config{
		ConfidenceThreshold: 0.5,
		WorkingWidth:        320,
	})
}

func TestDetect_ScalesBoxesBackToPhoto(t *testing.T) {
	det := &stubDetector{dets: []entity.Detection{
		{Label: "dog", Confidence: 0.9, Box: entity.Box{X: 10, Y: 20, W: 30, H: 40}},
	}}
	svc := newService(det, &stubDescriber{}, nil)

	dets, err := svc.Detect(context.Background(), pngOfWidth(t, 640, 480))
	require.NoError(t, err)
	require.Equal(t, 320, det.width)
	require.Equal(t, entity.Box{X: 20, Y: 40, W: 60, H: 80}, dets[0].Box)
}

func TestDetect_Errors(t *testing.T) {
	svc := newService(&stubDetector{}, &stubDescriber{}, nil)
	_, err := svc.Detect(context.Background(), []byte("not an image"))
	require.ErrorIs(t, err, detection.ErrInvalidImage)

	svc = newService(&stubDetector{err: errors.New("sidecar down")}, &stubDescriber{}, nil)
	_, err = svc.Detect(context.Background(), pngOfWidth(t, 10, 10))
	require.ErrorIs(t, err, detection.ErrDetectionFailed)

	svc = newService(&stubDetector{}, &stubDescriber{}, nil)
	dets, err := svc.Detect(context.Background(), pngOfWidth(t, 10, 10))
	require.NoError(t, err)
	require.NotNil(t, dets)
	require.Empty(t, dets)
}

func TestDescribe(t *testing.T) {
	conf := 0.87
	req := detection.DescribeRequest{
		Detection:  detection.DetectionRef{Class: "cat", Confidence: &conf, BBox: []float64{0, 0, 120, 80}},
		ImageBytes: pngOfWidth(t, 8, 8),
	}

	t.Run("hosted answer", func(t *testing.T) {
		svc := newService(&stubDetector{}, &stubDescriber{text: "ねこだよ", source: describer.SourceLLM}, nil)
		res, err := svc.Describe(context.Background(), req)
		require.NoError(t, err)
		require.Equal(t, "ねこだよ", res.Description)
		require.Equal(t, describer.SourceLLM, res.Source)
		require.Empty(t, res.Error)
	})

	t.Run("fallback on failure", func(t *testing.T) {
		svc := newService(&stubDetector{}, &stubDescriber{err: errors.New("quota"), source: describer.SourceLLM}, nil)
		res, err := svc.Describe(context.Background(), req)
		require.NoError(t, err)
		require.Equal(t, describer.SourceFallback, res.Source)
		require.Contains(t, res.Description, "cat（信頼度87.0%）")
		require.Contains(t, res.Description, "120×80")
		require.Equal(t, "quota", res.Error)
	})

	t.Run("fallback with label and box", func(t *testing.T) {
		desc := &stubDescriber{err: errors.New("quota"), source: describer.SourceLLM}
		svc := newService(&stubDetector{}, desc, nil)
		res, err := svc.Describe(context.Background(), detection.DescribeRequest{
			Detection:  detection.DetectionRef{Label: "dog", Box: &entity.Box{X: 5, Y: 5, W: 64, H: 48}},
			ImageBytes: pngOfWidth(t, 8, 8),
		})
		require.NoError(t, err)
		require.Contains(t, res.Description, "dog")
		require.Contains(t, res.Description, "64×48")
	})

	t.Run("undecodable image", func(t *testing.T) {
		svc := newService(&stubDetector{}, &stubDescriber{}, nil)
		bad := req
		bad.ImageBytes = []byte("nope")
		_, err := svc.Describe(context.Background(), bad)
		require.ErrorIs(t, err, detection.ErrInvalidImage)
	})
}

func TestStream_WithoutCamera(t *testing.T) {
	svc := newService(&stubDetector{}, &stubDescriber{}, nil)
	require.False(t, svc.StreamEnabled())
	require.Equal(t, stream.Stats{}, svc.Stats())

	_, ok := svc.Latest()
	require.False(t, ok)
}
