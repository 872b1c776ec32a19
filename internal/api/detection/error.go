package detection

import (
	"net/http"

	"ProjectZukan/pkg/response"
)

var (
	ErrInvalidImage    = response.NewErrorWithReason(http.StatusBadRequest, "INVALID_IMAGE", "image is missing or cannot be decoded")
	ErrDetectionFailed = response.NewErrorWithReason(http.StatusServiceUnavailable, "DETECTION_UNAVAILABLE", "object detection is unavailable")
)
