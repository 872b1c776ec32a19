package detection

import (
	"time"

	"ProjectZukan/internal/entity"
)

type DetectRequest struct {
	ImageBase64 string `json:"image_base64"`
	// Image is accepted for clients that post the field name used by the camera page.
	Image string `json:"image"`
}

type DetectResponse struct {
	Detections []entity.Detection `json:"detections"`
	Count      int                `json:"count"`
}

// DetectionRef is the detection the user tapped, echoed back from /detections or /api/detect
// as {label, confidence, box}. The older {class, bbox:[x1,y1,x2,y2]} shape is still accepted.
type DetectionRef struct {
	Label      string      `json:"label" validate:"required_without=Class,max=128"`
	Class      string      `json:"class" validate:"required_without=Label,max=128"`
	Confidence *float64    `json:"confidence" validate:"omitempty,min=0,max=1"`
	Box        *entity.Box `json:"box"`
	BBox       []float64   `json:"bbox" validate:"omitempty,len=4"`
}

// Name returns the object label, preferring the label field.
func (d DetectionRef) Name() string {
	if d.Label != "" {
		return d.Label
	}
	return d.Class
}

// Size returns the box dimensions in pixels, or zeros when no box was sent.
func (d DetectionRef) Size() (int, int) {
	box := d.Box
	if box == nil && len(d.BBox) == 4 {
		b := entity.BoxFromCorners(d.BBox[0], d.BBox[1], d.BBox[2], d.BBox[3])
		box = &b
	}
	if box == nil {
		return 0, 0
	}
	return max(box.W, 1), max(box.H, 1)
}

type DescribeRequest struct {
	ImageBase64 string       `json:"image_base64"`
	Image       string       `json:"image"`
	Detection   DetectionRef `json:"detection"`
	Place       string       `json:"place" validate:"omitempty,max=128"`

	ImageBytes []byte `json:"-"`
}

type DescribeResponse struct {
	Description string `json:"description"`
	Source      string `json:"source"`
	Error       string `json:"error,omitempty"`
}

type LatestResponse struct {
	Seq        uint64             `json:"seq"`
	CapturedAt *time.Time         `json:"captured_at"`
	Width      int                `json:"width,omitempty"`
	Height     int                `json:"height,omitempty"`
	Detections []entity.Detection `json:"detections"`
}

func NewLatestResponse(snap entity.Snapshot, ok bool) LatestResponse {
	if !ok {
		return LatestResponse{Detections: []entity.Detection{}}
	}

	capturedAt := snap.CapturedAt
	dets := snap.Detections
	if dets == nil {
		dets = []entity.Detection{}
	}
	return LatestResponse{
		Seq:        snap.Seq,
		CapturedAt: &capturedAt,
		Width:      snap.Width,
		Height:     snap.Height,
		Detections: dets,
	}
}

// EncodedImage returns whichever image field the client filled.
func (r DetectRequest) EncodedImage() string {
	if r.ImageBase64 != "" {
		return r.ImageBase64
	}
	return r.Image
}

func (r DescribeRequest) EncodedImage() string {
	if r.ImageBase64 != "" {
		return r.ImageBase64
	}
	return r.Image
}
