package detectionHandler

import (
	"context"

	detectionService "ProjectZukan/internal/api/detection/service"
	"ProjectZukan/internal/middleware"
	"ProjectZukan/pkg/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

type DetectionHandler struct {
	log              *logrus.Logger
	validator        *validator.Validate
	middleware       middleware.Middleware
	detectionService detectionService.IDetectionService
	utils            utils.IUtils
	// shutdown ends long-lived MJPEG and websocket responses.
	shutdown context.Context
}

func New(
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	ds detectionService.IDetectionService,
	utils utils.IUtils,
	shutdown context.Context,
) *DetectionHandler {
	if shutdown == nil {
		shutdown = context.Background()
	}

	return &DetectionHandler{
		detectionService: ds,
		log:              log,
		validator:        validator,
		middleware:       middleware,
		utils:            utils,
		shutdown:         shutdown,
	}
}

func (h *DetectionHandler) Start(srv fiber.Router) {
	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	srv.Get("/video", h.StreamVideo)
	srv.Get("/detections", h.LatestDetections)

	srv.Use("/ws/detections", wsMiddleware)
	srv.Get("/ws/detections", websocket.New(h.handleDetectionsWebSocket))

	api := srv.Group("/api")
	api.Post("/detect", h.middleware.NewRateLimiter, h.Detect)
	api.Post("/describe", h.middleware.NewRateLimiter, h.Describe)
	api.Get("/stream/stats", h.StreamStats)
}
