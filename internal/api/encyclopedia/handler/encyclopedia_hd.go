package encyclopediaHandler

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"ProjectZukan/internal/api/encyclopedia"
	contextPkg "ProjectZukan/pkg/context"
	"ProjectZukan/pkg/handlerUtil"
	"ProjectZukan/pkg/log"
	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cast"
	"golang.org/x/net/context"
)

// Capture flows call the detector and the hosted LLM, so they get a longer budget.
const captureTimeout = 60 * time.Second

func (h *EncyclopediaHandler) CreateEntry(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx.UserContext(), ctx), captureTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing create entry request")

	var req encyclopedia.CreateEntryRequest
	if isMultipart(ctx) {
		req.Place = ctx.FormValue("place")
		req.Name = ctx.FormValue("name")

		lat, lon, err := formCoordinates(ctx)
		if err != nil {
			return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
		}
		req.Lat, req.Lon = lat, lon
	} else if err := ctx.BodyParser(&req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	req.Place = strings.TrimSpace(req.Place)
	req.Name = strings.TrimSpace(req.Name)

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	image, err := h.readImage(ctx, req.ImageBase64)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "read_image")
	}
	req.Image = image

	res, err := h.encyclopediaService.CreateEntry(c, req)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "create_entry")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusCreated, res)
	}
}

func (h *EncyclopediaHandler) ListNames(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx.UserContext(), ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	place := strings.TrimSpace(ctx.Query("place"))

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
		"place":      place,
	}).Debug("Processing list names request")

	if place == "" {
		return errHandler.HandleValidationError(ctx, requestID, errors.New("place query parameter is required"), ctx.Path())
	}

	names, err := h.encyclopediaService.ListNames(c, place)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "list_names")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, encyclopedia.NamesResponse{
			Place: place,
			Names: names,
		})
	}
}

func (h *EncyclopediaHandler) GetEntry(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx.UserContext(), ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	place, err := url.PathUnescape(ctx.Params("place"))
	if err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}
	name, err := url.PathUnescape(ctx.Params("name"))
	if err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
		"place":      place,
		"name":       name,
	}).Debug("Processing get entry request")

	entry, err := h.encyclopediaService.GetEntry(c, place, name)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_entry")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, encyclopedia.NewEntryResponse(entry))
	}
}

func (h *EncyclopediaHandler) ListPlaces(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx.UserContext(), ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	places, err := h.encyclopediaService.ListPlaces(c)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "list_places")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, encyclopedia.PlacesResponse{Places: places})
	}
}

func (h *EncyclopediaHandler) Suggest(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx.UserContext(), ctx), captureTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing suggest request")

	var req encyclopedia.SuggestRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}
	req.Place = strings.TrimSpace(req.Place)

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	suggestions, err := h.encyclopediaService.Suggest(c, req.Place)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "suggest")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, encyclopedia.SuggestResponse{
			Place:        req.Place,
			Encyclopedia: suggestions,
		})
	}
}

func (h *EncyclopediaHandler) ConfirmLocation(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx.UserContext(), ctx), captureTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing confirm location request")

	var req encyclopedia.ConfirmLocationRequest
	if isMultipart(ctx) {
		lat, lon, err := formCoordinates(ctx)
		if err != nil {
			return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
		}
		req.Lat, req.Lon = lat, lon
	} else if err := ctx.BodyParser(&req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	image, err := h.readImage(ctx, req.ImageBase64)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "read_image")
	}
	req.Image = image

	record, err := h.encyclopediaService.ConfirmLocation(c, req)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "confirm_location")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusCreated, encyclopedia.NewLocationResponse(record))
	}
}

func (h *EncyclopediaHandler) ListLocations(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx.UserContext(), ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	records, err := h.encyclopediaService.ListLocations(c)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "list_locations")
	}

	res := encyclopedia.LocationsResponse{Locations: make([]encyclopedia.LocationResponse, 0, len(records))}
	for _, r := range records {
		res.Locations = append(res.Locations, encyclopedia.NewLocationResponse(r))
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, res)
	}
}

// readImage takes the multipart "image" field when present, otherwise the base64 body field.
func (h *EncyclopediaHandler) readImage(ctx *fiber.Ctx, encoded string) ([]byte, error) {
	if file, err := ctx.FormFile("image"); err == nil {
		return h.utils.ReadImageFile(file)
	}
	return h.utils.DecodeBase64Image(encoded)
}

func isMultipart(ctx *fiber.Ctx) bool {
	return strings.HasPrefix(ctx.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm)
}

func formCoordinates(ctx *fiber.Ctx) (*float64, *float64, error) {
	lat, err := optionalFloat(ctx.FormValue("lat"))
	if err != nil {
		return nil, nil, errors.New("lat must be a number")
	}
	lon, err := optionalFloat(ctx.FormValue("lon"))
	if err != nil {
		return nil, nil, errors.New("lon must be a number")
	}
	return lat, lon, nil
}

func optionalFloat(raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := cast.ToFloat64E(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
