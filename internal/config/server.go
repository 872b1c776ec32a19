package config

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"ProjectZukan/database/postgres"
	detectionHandler "ProjectZukan/internal/api/detection/handler"
	detectionService "ProjectZukan/internal/api/detection/service"
	encyclopediaHandler "ProjectZukan/internal/api/encyclopedia/handler"
	encyclopediaRepository "ProjectZukan/internal/api/encyclopedia/repository"
	encyclopediaService "ProjectZukan/internal/api/encyclopedia/service"
	pageHandler "ProjectZukan/internal/api/page/handler"
	"ProjectZukan/internal/describer"
	"ProjectZukan/internal/middleware"
	"ProjectZukan/internal/stream"
	"ProjectZukan/pkg/camera"
	"ProjectZukan/pkg/detector"
	"ProjectZukan/pkg/redis"
	"ProjectZukan/pkg/s3"
	"ProjectZukan/pkg/storage"
	"ProjectZukan/pkg/utils"
	websocketPkg "ProjectZukan/pkg/websocket"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

const uploadsRoute = "/uploads"

type ServerOption func(*Server) error

type Server struct {
	engine     *fiber.App
	env        Env
	db         *sqlx.DB
	log        *logrus.Logger
	middleware middleware.Middleware
	validator  *validator.Validate
	utils      utils.IUtils
	handlers   []handler

	repo        encyclopediaRepository.Repository
	images      storage.IImageStore
	detector    detector.IDetector
	yolo        *detector.YOLO
	aiWebsocket websocketPkg.IWebsocket
	describer   describer.IDescriber
	redisServer redis.IRedis

	source camera.ISource
	slot   *stream.FrameSlot
	loop   *stream.InferenceLoop
	// loopDone is closed when the inference loop returns.
	loopDone    chan struct{}
	loopStarted atomic.Bool

	// ctx is cancelled on shutdown; it stops the inference loop and open streams.
	ctx    context.Context
	cancel context.CancelFunc
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	ctx, cancel := context.WithCancel(context.Background())
	server := &Server{
		ctx:      ctx,
		cancel:   cancel,
		slot:     stream.NewFrameSlot(),
		loopDone: make(chan struct{}),
	}

	for _, option := range options {
		if err := option(server); err != nil {
			server.closeResources()
			cancel()
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		cancel()
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		cancel()
		return nil, fmt.Errorf("logger is required")
	}
	if server.repo == nil {
		cancel()
		return nil, fmt.Errorf("encyclopedia repository is required")
	}
	if server.images == nil {
		cancel()
		return nil, fmt.Errorf("image store is required")
	}
	if server.detector == nil {
		cancel()
		return nil, fmt.Errorf("detector is required")
	}
	if server.describer == nil {
		server.describer = describer.NewLocal()
	}
	if server.middleware == nil {
		server.middleware = middleware.New(server.log, middleware.Config{})
	}
	if server.utils == nil {
		server.utils = utils.New()
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithEnv(env Env) ServerOption {
	return func(s *Server) error {
		s.env = env
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New()
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log, middleware.Config{
			RateLimitRPS:   s.env.RateLimitRPS,
			RateLimitBurst: s.env.RateLimitBurst,
		})
		return nil
	}
}

// WithRepository opens the encyclopedia store selected by STORE_DRIVER.
func WithRepository() ServerOption {
	return func(s *Server) error {
		switch s.env.StoreDriver {
		case "", "csv":
			repo, err := encyclopediaRepository.NewCSV(s.env.EncyclopediaCSV, s.env.LocationCSV, s.log)
			if err != nil {
				return fmt.Errorf("failed to open csv store: %w", err)
			}
			s.repo = repo
		case "postgres":
			db, err := postgres.New(s.env.DatabaseURL)
			if err != nil {
				s.log.Errorf("Failed to connect to database: %v", err)
				return fmt.Errorf("failed to create database connection: %w", err)
			}
			s.db = db

			ctx, cancel := context.WithTimeout(s.ctx, 10*time.Second)
			defer cancel()
			repo, err := encyclopediaRepository.NewPostgres(ctx, db, s.log)
			if err != nil {
				return fmt.Errorf("failed to prepare postgres store: %w", err)
			}
			s.repo = repo
		default:
			return fmt.Errorf("unknown STORE_DRIVER %q", s.env.StoreDriver)
		}

		s.log.WithField("driver", s.env.StoreDriver).Info("Encyclopedia store ready")
		return nil
	}
}

// WithImageStore selects where captured photos are written, by IMAGE_STORE.
func WithImageStore() ServerOption {
	return func(s *Server) error {
		if s.utils == nil {
			s.utils = utils.New()
		}

		switch s.env.ImageStore {
		case "", "local":
			store, err := storage.NewLocalStore(s.env.UploadDir, uploadsRoute, s.utils)
			if err != nil {
				return fmt.Errorf("failed to prepare upload dir: %w", err)
			}
			s.images = store
		case "s3":
			client, err := s3.New(s3.Config{
				Region:          s.env.AWSRegion,
				BucketName:      s.env.AWSBucketName,
				AccessKeyID:     s.env.AWSAccessKeyID,
				SecretAccessKey: s.env.AWSSecretAccessKey,
			})
			if err != nil {
				s.log.Errorf("Failed to initialize S3 client: %v", err)
				return fmt.Errorf("failed to create S3 client: %w", err)
			}
			s.images = storage.NewS3Store(client, "captures", s.utils)
		default:
			return fmt.Errorf("unknown IMAGE_STORE %q", s.env.ImageStore)
		}
		return nil
	}
}

// WithDetector selects the YOLO sidecar over websocket or the in-process gocv model.
func WithDetector() ServerOption {
	return func(s *Server) error {
		switch s.env.Detector {
		case "", "sidecar":
			s.aiWebsocket = websocketPkg.NewAIWebSocketClient(s.env.DetectorURL)
			s.detector = detector.NewSidecar(s.aiWebsocket, s.env.JPEGQuality)
		case "gocv":
			yolo, err := detector.NewYOLO(s.env.YOLOModelPath, s.env.YOLOLabelsPath)
			if err != nil {
				return fmt.Errorf("failed to load YOLO model: %w", err)
			}
			s.yolo = yolo
			s.detector = yolo
		default:
			return fmt.Errorf("unknown DETECTOR %q", s.env.Detector)
		}

		s.log.WithField("detector", s.env.Detector).Info("Detector ready")
		return nil
	}
}

// WithDescriber picks the description strategy and puts a redis cache in front of it
// when REDIS_ADDRESS is set.
func WithDescriber() ServerOption {
	return func(s *Server) error {
		desc := describer.New(describer.Options{
			Kind:        s.env.Describer,
			OpenAIKey:   s.env.OpenAIAPIKey,
			OpenAIModel: s.env.OpenAIChatModel,
			GeminiKey:   s.env.GeminiAPIKey,
			GeminiModel: s.env.GeminiModelName,
			Language:    s.env.DescriptionLanguage,
		})

		if s.env.RedisAddress != "" && desc.Source() == describer.SourceLLM {
			s.redisServer = redis.New(s.env.RedisAddress, s.env.RedisPassword, s.env.RedisDB)
			desc = describer.NewCached(desc, s.redisServer, s.env.DescriptionCacheTTL)
		}

		s.describer = desc
		return nil
	}
}

// WithCamera opens CAMERA_SOURCE and builds the inference loop over it. With no camera
// the live endpoints stay empty and the rest of the service works unchanged.
func WithCamera() ServerOption {
	return func(s *Server) error {
		if s.detector == nil {
			return fmt.Errorf("detector must be initialized before camera")
		}

		source, err := camera.New(s.env.CameraSource, camera.Options{
			FrameTimeout: 5 * time.Second,
			Interval:     200 * time.Millisecond,
		})
		if err != nil {
			return fmt.Errorf("failed to open camera: %w", err)
		}
		if source == nil {
			s.log.Info("No camera configured, live stream disabled")
			return nil
		}

		s.source = source
		s.loop = stream.NewInferenceLoop(source, s.detector, s.slot, stream.Config{
			FrameSkip:           s.env.FrameSkip,
			WorkingWidth:        s.env.WorkingWidth,
			ConfidenceThreshold: s.env.ConfidenceThreshold,
			JPEGQuality:         s.env.JPEGQuality,
			CaptureRetry:        s.env.CaptureRetry,
		})
		return nil
	}
}

func (s *Server) RegisterHandler() {
	if s.validator == nil {
		s.validator = NewValidator()
	}

	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(middleware.LoggerConfig())

	// Encyclopedia Domain
	encyclopediaServices := encyclopediaService.New(s.log, s.repo, s.detector, s.describer, s.images, encyclopediaService.Config{
		PersonThreshold:     s.env.PersonThreshold,
		ConfidenceThreshold: s.env.ConfidenceThreshold,
		WorkingWidth:        s.env.WorkingWidth,
	})
	encyclopediaHandlers := encyclopediaHandler.New(s.log, s.validator, s.middleware, encyclopediaServices, s.utils)

	// Detection
	detectionServices := detectionService.NewDetectionService(s.log, s.slot, s.loop, s.detector, s.describer, detectionService.Config{
		ConfidenceThreshold: s.env.ConfidenceThreshold,
		WorkingWidth:        s.env.WorkingWidth,
	})
	detectionHandlers := detectionHandler.New(s.log, s.validator, s.middleware, detectionServices, s.utils, s.ctx)

	// Pages
	pageHandlers := pageHandler.New(s.log, s.middleware, encyclopediaServices, s.loop != nil)

	s.setupHealthCheck()
	s.setupStatic()
	s.handlers = append(s.handlers, encyclopediaHandlers, detectionHandlers, pageHandlers)
}

func (s *Server) Run() error {
	for _, h := range s.handlers {
		h.Start(s.engine)
	}

	s.startLoop()

	port := s.env.AppPort
	if port == "" {
		port = "5000"
	}

	return s.engine.Listen(fmt.Sprintf(":%s", port))
}

// Shutdown stops the inference loop and live streams first so in-flight MJPEG responses
// can finish, then drains HTTP and releases devices and clients.
func (s *Server) Shutdown(timeout time.Duration) error {
	s.cancel()

	err := s.engine.ShutdownWithTimeout(timeout)
	s.waitLoop(timeout)
	s.closeResources()
	return err
}

func (s *Server) startLoop() {
	if s.loop == nil || !s.loopStarted.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(s.loopDone)
		s.loop.Run(s.ctx)
	}()
}

// waitLoop blocks until the loop has left Capture so the camera is never closed under a read.
func (s *Server) waitLoop(timeout time.Duration) {
	if !s.loopStarted.Load() {
		return
	}
	select {
	case <-s.loopDone:
	case <-time.After(timeout):
		s.log.Warn("Inference loop did not stop in time, closing camera anyway")
	}
}

func (s *Server) closeResources() {
	if s.source != nil {
		if err := s.source.Close(); err != nil {
			s.log.Errorf("Failed to close camera: %v", err)
		}
	}
	if s.aiWebsocket != nil {
		s.aiWebsocket.CloseConnections()
	}
	if s.yolo != nil {
		if err := s.yolo.Close(); err != nil {
			s.log.Errorf("Failed to release YOLO model: %v", err)
		}
	}
	if s.redisServer != nil {
		if err := s.redisServer.Close(); err != nil {
			s.log.Errorf("Failed to close redis: %v", err)
		}
	}
	if s.repo != nil {
		if err := s.repo.Close(); err != nil {
			s.log.Errorf("Failed to close store: %v", err)
		}
	}
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/health", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"message":   "Server is Healthy!",
			"camera":    s.loop != nil,
			"detector":  s.env.Detector,
			"describer": s.describer.Source(),
		})
	})
}

func (s *Server) setupStatic() {
	s.engine.Static("/static", "./web/static")
	if s.env.ImageStore == "" || s.env.ImageStore == "local" {
		s.engine.Static(uploadsRoute, s.env.UploadDir)
	}
}
