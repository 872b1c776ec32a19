package detector

import (
	"context"
	"fmt"
	"image"

	"ProjectZukan/internal/entity"
	"ProjectZukan/pkg/utils"
	websocketPkg "ProjectZukan/pkg/websocket"
)

// Sidecar forwards frames to the YOLO inference service over a websocket.
type Sidecar struct {
	client  websocketPkg.IWebsocket
	quality int
}

func NewSidecar(client websocketPkg.IWebsocket, jpegQuality int) *Sidecar {
	if jpegQuality <= 0 || jpegQuality > 100 {
		jpegQuality = 85
	}
	return &Sidecar{client: client, quality: jpegQuality}
}

func (s *Sidecar) Detect(ctx context.Context, img image.Image, threshold float64) ([]entity.Detection, error) {
	frame, err := utils.EncodeJPEG(img, s.quality)
	if err != nil {
		return nil, fmt.Errorf("%w: encode frame: %v", ErrDetection, err)
	}

	dets, err := s.client.DetectFrame(ctx, frame)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDetection, err)
	}

	return FilterByConfidence(dets, threshold), nil
}
