package entity

import (
	"image"
	"time"
)

type Box struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// BoxFromCorners builds a Box from x1,y1,x2,y2 corner coordinates.
func BoxFromCorners(x1, y1, x2, y2 float64) Box {
	return Box{
		X: int(x1),
		Y: int(y1),
		W: int(x2 - x1),
		H: int(y2 - y1),
	}
}

func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.W, b.Y+b.H)
}

type Detection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
}

// Snapshot is the (frame, detections) pair published by one inference cycle.
type Snapshot struct {
	Seq        uint64
	CapturedAt time.Time
	Width      int
	Height     int
	JPEG       []byte
	Detections []Detection
}
