package config

import (
	"context"
	"image"
	"io"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"ProjectZukan/internal/stream"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	dir := t.TempDir()
	env := Env{
		AppEnv:          "test",
		EncyclopediaCSV: filepath.Join(dir, "data", "Encyclopedia.csv"),
		LocationCSV:     filepath.Join(dir, "data", "Location.csv"),
		StoreDriver:     "csv",
		UploadDir:       filepath.Join(dir, "uploads"),
		ImageStore:      "local",
		Detector:        "sidecar",
		DetectorURL:     "ws://127.0.0.1:1/ws",
		Describer:       "local",
		CameraSource:    "none",
		PersonThreshold: 0.5,
	}

	server, err := NewServer(
		WithLogger(logger),
		WithEnv(env),
		WithFiber(fiber.New()),
		WithValidator(NewValidator()),
		WithUtils(),
		WithMiddleware(),
		WithRepository(),
		WithImageStore(),
		WithDetector(),
		WithDescriber(),
		WithCamera(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { server.closeResources() })

	server.RegisterHandler()
	for _, h := range server.handlers {
		h.Start(server.engine)
	}
	return server
}

func TestServer_Health(t *testing.T) {
	server := newTestServer(t)

	resp, err := server.engine.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var body map[string]interface{}
	require.NoError(t, jsoniter.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, false, body["camera"])
	require.Equal(t, "local", body["describer"])
}

func TestServer_RoutesWithoutCamera(t *testing.T) {
	server := newTestServer(t)

	resp, err := server.engine.Test(httptest.NewRequest("GET", "/api/places", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	resp, err = server.engine.Test(httptest.NewRequest("GET", "/detections", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	resp, err = server.engine.Test(httptest.NewRequest("GET", "/api/stream/stats", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
}

func TestNewServer_RejectsUnknownDrivers(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	_, err := NewServer(
		WithLogger(logger),
		WithEnv(Env{StoreDriver: "mongo"}),
		WithFiber(fiber.New()),
		WithRepository(),
	)
	require.ErrorContains(t, err, "STORE_DRIVER")
}

// slowSource takes a while to return from Capture after cancellation, like a webcam read.
type slowSource struct {
	capturing   chan struct{}
	inCapture   atomic.Bool
	closedEarly atomic.Bool
	closed      atomic.Bool
}

func (s *slowSource) Capture(ctx context.Context) (image.Image, error) {
	s.inCapture.Store(true)
	defer s.inCapture.Store(false)
	select {
	case s.capturing <- struct{}{}:
	default:
	}
	<-ctx.Done()
	time.Sleep(50 * time.Millisecond)
	return nil, ctx.Err()
}

func (s *slowSource) Close() error {
	s.closedEarly.Store(s.inCapture.Load())
	s.closed.Store(true)
	return nil
}

func TestServer_ShutdownWaitsForLoopBeforeClosingCamera(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	source := &slowSource{capturing: make(chan struct{}, 1)}
	slot := stream.NewFrameSlot()
	server := &Server{
		engine:   fiber.New(),
		log:      logger,
		source:   source,
		slot:     slot,
		loop:     stream.NewInferenceLoop(source, nil, slot, stream.Config{}),
		loopDone: make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}

	server.startLoop()
	select {
	case <-source.capturing:
	case <-time.After(2 * time.Second):
		t.Fatal("loop never called Capture")
	}

	_ = server.Shutdown(time.Second)
	require.True(t, source.closed.Load())
	require.False(t, source.closedEarly.Load())
}
