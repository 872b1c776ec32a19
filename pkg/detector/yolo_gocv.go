//go:build gocv
// +build gocv

package detector

import (
	"context"
	"fmt"
	"image"
	"sync"

	"ProjectZukan/internal/entity"
	"gocv.io/x/gocv"
)

const (
	yoloInputSize = 640
	nmsThreshold  = 0.45
)

// YOLO runs a YOLOv8 ONNX export in process. The network is not safe for
// concurrent use, so Detect calls are serialized.
type YOLO struct {
	mu     sync.Mutex
	net    gocv.Net
	labels []string
}

func NewYOLO(modelPath, labelsPath string) (*YOLO, error) {
	labels, err := LoadLabels(labelsPath)
	if err != nil {
		return nil, err
	}

	net := gocv.ReadNetFromONNX(modelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load model %s", modelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &YOLO{net: net, labels: labels}, nil
}

func (y *YOLO) Detect(ctx context.Context, img image.Image, threshold float64) ([]entity.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	frame, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("%w: convert frame: %v", ErrDetection, err)
	}
	defer frame.Close()

	blob := gocv.BlobFromImage(frame, 1.0/255.0, image.Pt(yoloInputSize, yoloInputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	y.mu.Lock()
	y.net.SetInput(blob, "")
	output := y.net.Forward("")
	y.mu.Unlock()
	defer output.Close()

	sizes := output.Size()
	if len(sizes) != 3 || sizes[1] < 5 {
		return nil, fmt.Errorf("%w: unexpected output shape %v", ErrDetection, sizes)
	}
	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("%w: read output: %v", ErrDetection, err)
	}

	// Output is [1, 4+classes, anchors]: cx, cy, w, h rows then one score row per class.
	channels, anchors := sizes[1], sizes[2]
	scaleX := float32(frame.Cols()) / yoloInputSize
	scaleY := float32(frame.Rows()) / yoloInputSize

	var (
		boxes   []image.Rectangle
		scores  []float32
		classes []int
	)
	for i := 0; i < anchors; i++ {
		classID, best := -1, float32(0)
		for c := 4; c < channels; c++ {
			if s := data[c*anchors+i]; s > best {
				best, classID = s, c-4
			}
		}
		if classID < 0 || float64(best) < threshold {
			continue
		}

		cx, cy := data[i]*scaleX, data[anchors+i]*scaleY
		w, h := data[2*anchors+i]*scaleX, data[3*anchors+i]*scaleY
		x1, y1 := int(cx-w/2), int(cy-h/2)
		boxes = append(boxes, image.Rect(x1, y1, x1+int(w), y1+int(h)))
		scores = append(scores, best)
		classes = append(classes, classID)
	}
	if len(boxes) == 0 {
		return []entity.Detection{}, nil
	}

	keep := suppressPerClass(classes, func(members []int) []int {
		b := make([]image.Rectangle, len(members))
		sc := make([]float32, len(members))
		for i, idx := range members {
			b[i], sc[i] = boxes[idx], scores[idx]
		}
		kept := gocv.NMSBoxes(b, sc, float32(threshold), nmsThreshold)
		out := make([]int, len(kept))
		for i, k := range kept {
			out[i] = members[k]
		}
		return out
	})
	dets := make([]entity.Detection, 0, len(keep))
	for _, idx := range keep {
		r := boxes[idx]
		dets = append(dets, entity.Detection{
			Label:      y.label(classes[idx]),
			Confidence: float64(scores[idx]),
			Box:        entity.BoxFromCorners(float64(r.Min.X), float64(r.Min.Y), float64(r.Max.X), float64(r.Max.Y)),
		})
	}

	return FilterByConfidence(dets, threshold), nil
}

func (y *YOLO) label(classID int) string {
	if classID >= 0 && classID < len(y.labels) {
		return y.labels[classID]
	}
	return fmt.Sprintf("class_%d", classID)
}

func (y *YOLO) Close() error {
	y.mu.Lock()
	defer y.mu.Unlock()
	return y.net.Close()
}
