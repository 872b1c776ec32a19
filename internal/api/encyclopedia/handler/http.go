package encyclopediaHandler

import (
	encyclopediaService "ProjectZukan/internal/api/encyclopedia/service"
	"ProjectZukan/internal/middleware"
	"ProjectZukan/pkg/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type EncyclopediaHandler struct {
	log                 *logrus.Logger
	validator           *validator.Validate
	middleware          middleware.Middleware
	encyclopediaService encyclopediaService.IEncyclopediaService
	utils               utils.IUtils
}

func New(
	log *logrus.Logger,
	validate *validator.Validate,
	middleware middleware.Middleware,
	es encyclopediaService.IEncyclopediaService,
	utils utils.IUtils,
) *EncyclopediaHandler {
	return &EncyclopediaHandler{
		log:                 log,
		validator:           validate,
		middleware:          middleware,
		encyclopediaService: es,
		utils:               utils,
	}
}

func (h *EncyclopediaHandler) Start(srv fiber.Router) {
	api := srv.Group("/api")

	encyclopedia := api.Group("/encyclopedia")
	encyclopedia.Post("", h.middleware.NewRateLimiter, h.CreateEntry)
	encyclopedia.Get("", h.ListNames)
	encyclopedia.Post("/suggest", h.middleware.NewRateLimiter, h.Suggest)
	encyclopedia.Get("/:place/:name", h.GetEntry)

	api.Get("/places", h.ListPlaces)

	api.Post("/locations", h.middleware.NewRateLimiter, h.ConfirmLocation)
	api.Get("/locations", h.ListLocations)
}
