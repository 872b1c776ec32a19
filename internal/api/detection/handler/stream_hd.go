package detectionHandler

import (
	"bufio"
	"fmt"
	"time"

	"ProjectZukan/internal/api/detection"
	"ProjectZukan/internal/entity"
	"ProjectZukan/pkg/handlerUtil"
	"ProjectZukan/pkg/log"
	"github.com/gofiber/fiber/v2"
	fiberUtils "github.com/gofiber/fiber/v2/utils"
	"github.com/gofiber/websocket/v2"
)

const mjpegBoundary = "frame"

// mjpegHeartbeat paces preamble writes while no frame has been sent yet, so a client
// that leaves before the camera produces anything is still noticed.
var mjpegHeartbeat = 5 * time.Second

// StreamVideo serves the annotated frames as multipart/x-mixed-replace. Each client only
// reads the frame slot, so any number of viewers share the single inference loop. An
// empty slot, including when no camera is configured, makes the client wait.
func (h *DetectionHandler) StreamVideo(ctx *fiber.Ctx) error {
	// The writer outlives the fiber ctx, so nothing it captures may alias ctx buffers.
	requestID := fiberUtils.CopyString(h.middleware.GetRequestID(ctx))

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"remote":     ctx.IP(),
		"camera":     h.detectionService.StreamEnabled(),
	}).Info("MJPEG client connected")

	ctx.Set(fiber.HeaderContentType, "multipart/x-mixed-replace; boundary="+mjpegBoundary)
	ctx.Set(fiber.HeaderCacheControl, "no-cache, no-store, must-revalidate")
	ctx.Set("Pragma", "no-cache")
	ctx.Set(fiber.HeaderConnection, "close")

	ctx.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer h.log.WithFields(log.Fields{
			"request_id": requestID,
		}).Info("MJPEG client disconnected")

		heartbeat := time.NewTicker(mjpegHeartbeat)
		defer heartbeat.Stop()

		var since uint64
		for {
			select {
			case <-h.shutdown.Done():
				return
			case <-heartbeat.C:
				if since > 0 {
					continue
				}
				// Bytes before the first boundary are preamble and ignored by clients.
				if _, err := w.WriteString("\r\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
				continue
			case <-h.detectionService.WaitNext(since):
			}

			// Shutdown wins over a frame that became ready at the same time.
			if h.shutdown.Err() != nil {
				return
			}

			snap, ok := h.detectionService.Latest()
			if !ok {
				continue
			}
			since = snap.Seq

			if err := writeMJPEGPart(w, snap); err != nil {
				return
			}
		}
	})

	return nil
}

func writeMJPEGPart(w *bufio.Writer, snap entity.Snapshot) error {
	if _, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", mjpegBoundary, len(snap.JPEG)); err != nil {
		return err
	}
	if _, err := w.Write(snap.JPEG); err != nil {
		return err
	}
	if _, err := w.WriteString("\r\n"); err != nil {
		return err
	}
	return w.Flush()
}

func (h *DetectionHandler) LatestDetections(ctx *fiber.Ctx) error {
	errHandler := handlerUtil.New(h.log)
	snap, ok := h.detectionService.Latest()
	return errHandler.HandleSuccess(ctx, fiber.StatusOK, detection.NewLatestResponse(snap, ok))
}

func (h *DetectionHandler) StreamStats(ctx *fiber.Ctx) error {
	errHandler := handlerUtil.New(h.log)
	return errHandler.HandleSuccess(ctx, fiber.StatusOK, fiber.Map{
		"enabled": h.detectionService.StreamEnabled(),
		"stats":   h.detectionService.Stats(),
	})
}

// handleDetectionsWebSocket pushes every new snapshot's detections until the client
// goes away or the server shuts down.
func (h *DetectionHandler) handleDetectionsWebSocket(c *websocket.Conn) {
	h.log.Info("Detections WebSocket client connected")
	defer h.log.Info("Detections WebSocket client disconnected")

	c.SetPingHandler(func(data string) error {
		if err := c.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second)); err != nil {
			h.log.Errorf("Error sending pong: %v", err)
		}
		return nil
	})

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.log.Errorf("Detections WebSocket error: %v", err)
				}
				return
			}
		}
	}()

	var since uint64
	for {
		select {
		case <-closed:
			return
		case <-h.shutdown.Done():
			_ = c.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(time.Second))
			return
		case <-h.detectionService.WaitNext(since):
		}

		snap, ok := h.detectionService.Latest()
		if !ok {
			continue
		}
		since = snap.Seq

		if err := c.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
			h.log.Errorf("Error setting write deadline: %v", err)
			return
		}
		if err := c.WriteJSON(detection.NewLatestResponse(snap, true)); err != nil {
			h.log.Errorf("Error writing detections: %v", err)
			return
		}
	}
}
