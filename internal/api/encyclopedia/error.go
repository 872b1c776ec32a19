package encyclopedia

import "ProjectZukan/pkg/response"

var (
	ErrInvalidImage       = response.NewErrorWithReason(400, "INVALID_IMAGE", "image is missing or cannot be decoded")
	ErrInvalidLocation    = response.NewErrorWithReason(400, "INVALID_LOCATION", "lat and lon must be given together")
	ErrEntryNotFound      = response.NewErrorWithReason(404, "ENTRY_NOT_FOUND", "encyclopedia entry not found")
	ErrPersonDetected     = response.NewErrorWithReason(422, "PERSON_DETECTED", "a person was detected in the photo, capture rejected")
	ErrNoObjectDetected   = response.NewErrorWithReason(422, "NO_OBJECT_DETECTED", "no object was detected, please provide a name")
	ErrDetectionFailed    = response.NewErrorWithReason(503, "DETECTION_UNAVAILABLE", "object detection is unavailable")
	ErrGenerationFailed   = response.NewErrorWithReason(502, "GENERATION_FAILED", "failed to generate a description")
	ErrSuggestUnavailable = response.NewErrorWithReason(503, "SUGGEST_UNAVAILABLE", "suggestions need a hosted describer")
	ErrStoreImage         = response.NewErrorWithReason(500, "IMAGE_STORE_FAILED", "failed to store image")
	ErrStoreWrite         = response.NewErrorWithReason(500, "STORE_WRITE_FAILED", "failed to save record")
	ErrStoreRead          = response.NewErrorWithReason(500, "STORE_READ_FAILED", "failed to read records")
)
