package pageHandler

import (
	"errors"
	"net/url"
	"time"

	"ProjectZukan/internal/api/encyclopedia"
	contextPkg "ProjectZukan/pkg/context"
	"ProjectZukan/pkg/log"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
)

type placeGroup struct {
	Place string
	Names []string
}

func (h *PageHandler) Home(ctx *fiber.Ctx) error {
	return ctx.Render("index", fiber.Map{
		"Title":         "ずかんをつくろう",
		"StreamEnabled": h.streamEnabled,
	}, layout)
}

func (h *PageHandler) Camera(ctx *fiber.Ctx) error {
	return ctx.Render("camera", fiber.Map{
		"Title":         "カメラ",
		"Place":         ctx.Query("place"),
		"StreamEnabled": h.streamEnabled,
	}, layout)
}

func (h *PageHandler) Map(ctx *fiber.Ctx) error {
	return ctx.Render("map", fiber.Map{
		"Title": "ちず",
	}, layout)
}

func (h *PageHandler) Encyclopedia(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx.UserContext(), ctx), 10*time.Second)
	defer cancel()

	places, err := h.encyclopediaService.ListPlaces(c)
	if err != nil {
		return h.renderError(ctx, requestID, err)
	}

	groups := make([]placeGroup, 0, len(places))
	for _, place := range places {
		names, err := h.encyclopediaService.ListNames(c, place)
		if err != nil {
			return h.renderError(ctx, requestID, err)
		}
		groups = append(groups, placeGroup{Place: place, Names: names})
	}

	return ctx.Render("encyclopedia", fiber.Map{
		"Title":  "ずかん",
		"Groups": groups,
	}, layout)
}

func (h *PageHandler) Entry(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx.UserContext(), ctx), 10*time.Second)
	defer cancel()

	place, err := url.PathUnescape(ctx.Params("place"))
	if err != nil {
		return h.renderError(ctx, requestID, encyclopedia.ErrEntryNotFound)
	}
	name, err := url.PathUnescape(ctx.Params("name"))
	if err != nil {
		return h.renderError(ctx, requestID, encyclopedia.ErrEntryNotFound)
	}

	entry, err := h.encyclopediaService.GetEntry(c, place, name)
	if err != nil {
		return h.renderError(ctx, requestID, err)
	}

	return ctx.Render("entry", fiber.Map{
		"Title": entry.Name,
		"Entry": entry,
	}, layout)
}

func (h *PageHandler) renderError(ctx *fiber.Ctx, requestID string, err error) error {
	status := fiber.StatusInternalServerError
	if errors.Is(err, encyclopedia.ErrEntryNotFound) {
		status = fiber.StatusNotFound
	}

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
		"error":      err.Error(),
	}).Warn("Page render failed")

	return ctx.Status(status).Render("error", fiber.Map{
		"Title":   "エラー",
		"Status":  status,
		"Message": err.Error(),
	}, layout)
}
