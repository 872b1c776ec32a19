package detector

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sort"
	"strings"

	"ProjectZukan/internal/entity"
)

const PersonLabel = "person"

var (
	// ErrDetection wraps any model or sidecar failure.
	ErrDetection = errors.New("object detection failed")
	// ErrPersonDetected rejects captures that contain a person.
	ErrPersonDetected = errors.New("person detected in image")
)

type IDetector interface {
	Detect(ctx context.Context, img image.Image, threshold float64) ([]entity.Detection, error)
}

// FilterByConfidence keeps detections at or above threshold, highest confidence first.
func FilterByConfidence(dets []entity.Detection, threshold float64) []entity.Detection {
	out := make([]entity.Detection, 0, len(dets))
	for _, d := range dets {
		if d.Confidence >= threshold {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}

func ContainsLabel(dets []entity.Detection, label string, threshold float64) bool {
	for _, d := range dets {
		if strings.EqualFold(d.Label, label) && d.Confidence >= threshold {
			return true
		}
	}
	return false
}

// TopLabel returns the most confident detection whose label is not excluded.
func TopLabel(dets []entity.Detection, exclude ...string) (entity.Detection, bool) {
	var (
		best  entity.Detection
		found bool
	)
	for _, d := range dets {
		skip := false
		for _, e := range exclude {
			if strings.EqualFold(d.Label, e) {
				skip = true
				break
			}
		}
		if skip {
			continue
		}
		if !found || d.Confidence > best.Confidence {
			best = d
			found = true
		}
	}
	return best, found
}

// RejectPeople runs det on img and fails with ErrPersonDetected when a person is present.
// The detections are returned so callers can reuse them without a second pass.
func RejectPeople(ctx context.Context, det IDetector, img image.Image, threshold float64) ([]entity.Detection, error) {
	dets, err := det.Detect(ctx, img, 0)
	if err != nil {
		if errors.Is(err, ErrDetection) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrDetection, err)
	}

	if ContainsLabel(dets, PersonLabel, threshold) {
		return dets, ErrPersonDetected
	}
	return dets, nil
}
