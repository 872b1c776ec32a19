package detectionHandler

import (
	"time"

	"ProjectZukan/internal/api/detection"
	contextPkg "ProjectZukan/pkg/context"
	"ProjectZukan/pkg/handlerUtil"
	"ProjectZukan/pkg/log"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
)

func (h *DetectionHandler) Detect(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx.UserContext(), ctx), 20*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing detect request")

	var image []byte
	file, err := ctx.FormFile("image")
	if err == nil {
		h.log.WithFields(log.Fields{
			"request_id": requestID,
			"file_name":  file.Filename,
			"file_size":  file.Size,
		}).Debug("Processing file upload")

		image, err = h.utils.ReadImageFile(file)
		if err != nil {
			return errHandler.Handle(ctx, requestID, err, ctx.Path(), "read_image_file")
		}
	} else {
		var req detection.DetectRequest
		if err := ctx.BodyParser(&req); err != nil {
			return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
		}

		image, err = h.utils.DecodeBase64Image(req.EncodedImage())
		if err != nil {
			return errHandler.Handle(ctx, requestID, err, ctx.Path(), "decode_base64")
		}
	}

	dets, err := h.detectionService.Detect(c, image)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "detect")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, detection.DetectResponse{
			Detections: dets,
			Count:      len(dets),
		})
	}
}

func (h *DetectionHandler) Describe(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx.UserContext(), ctx), 60*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing describe request")

	var req detection.DescribeRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	image, err := h.utils.DecodeBase64Image(req.EncodedImage())
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "decode_base64")
	}
	req.ImageBytes = image

	res, err := h.detectionService.Describe(c, req)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "describe")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, res)
	}
}
