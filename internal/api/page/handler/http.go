package pageHandler

import (
	encyclopediaService "ProjectZukan/internal/api/encyclopedia/service"
	"ProjectZukan/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const layout = "layouts/main"

type PageHandler struct {
	log                 *logrus.Logger
	middleware          middleware.Middleware
	encyclopediaService encyclopediaService.IEncyclopediaService
	// streamEnabled hides the live view when no camera is configured.
	streamEnabled bool
}

func New(
	log *logrus.Logger,
	middleware middleware.Middleware,
	es encyclopediaService.IEncyclopediaService,
	streamEnabled bool,
) *PageHandler {
	return &PageHandler{
		log:                 log,
		middleware:          middleware,
		encyclopediaService: es,
		streamEnabled:       streamEnabled,
	}
}

func (h *PageHandler) Start(srv fiber.Router) {
	srv.Get("/", h.Home)
	srv.Get("/camera", h.Camera)
	srv.Get("/encyclopedia", h.Encyclopedia)
	srv.Get("/encyclopedia/:place/:name", h.Entry)
	srv.Get("/map", h.Map)
}
