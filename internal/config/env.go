package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"ProjectZukan/pkg/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

// Env is the process configuration. Every field has a default so the service starts
// with an empty environment: no camera, CSV store, local images, local descriptions.
type Env struct {
	AppPort string
	AppEnv  string

	DataDir         string
	EncyclopediaCSV string
	LocationCSV     string
	StoreDriver     string
	DatabaseURL     string

	UploadDir          string
	ImageStore         string
	AWSRegion          string
	AWSBucketName      string
	AWSAccessKeyID     string
	AWSSecretAccessKey string

	Detector            string
	DetectorURL         string
	YOLOModelPath       string
	YOLOLabelsPath      string
	ConfidenceThreshold float64
	PersonThreshold     float64

	CameraSource string
	FrameSkip    int
	WorkingWidth int
	JPEGQuality  int
	CaptureRetry time.Duration

	Describer           string
	OpenAIAPIKey        string
	OpenAIChatModel     string
	GeminiAPIKey        string
	GeminiModelName     string
	DescriptionLanguage string

	RedisAddress        string
	RedisPassword       string
	RedisDB             int
	DescriptionCacheTTL time.Duration

	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads .env when present and then the process environment.
func Load() Env {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn(log.Fields{"error": err.Error()}, "[config.Load] failed to read .env file")
	}
	return FromEnviron()
}

func FromEnviron() Env {
	dataDir := getString("DATA_DIR", "data")

	return Env{
		AppPort: getString("APP_PORT", "5000"),
		AppEnv:  getString("APP_ENV", "development"),

		DataDir:         dataDir,
		EncyclopediaCSV: getString("ENCYCLOPEDIA_CSV", filepath.Join(dataDir, "Encyclopedia.csv")),
		LocationCSV:     getString("LOCATION_CSV", filepath.Join(dataDir, "Location.csv")),
		StoreDriver:     strings.ToLower(getString("STORE_DRIVER", "csv")),
		DatabaseURL:     getString("DATABASE_URL", ""),

		UploadDir:          getString("UPLOAD_DIR", filepath.Join("storage", "uploads")),
		ImageStore:         strings.ToLower(getString("IMAGE_STORE", "local")),
		AWSRegion:          getString("AWS_REGION", ""),
		AWSBucketName:      getString("AWS_BUCKET_NAME", ""),
		AWSAccessKeyID:     getString("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getString("AWS_SECRET_ACCESS_KEY", ""),

		Detector:            strings.ToLower(getString("DETECTOR", "sidecar")),
		DetectorURL:         getString("AI_YOLO_DETECTION_URL", ""),
		YOLOModelPath:       getString("YOLO_MODEL_PATH", "yolov8n.onnx"),
		YOLOLabelsPath:      getString("YOLO_LABELS_PATH", ""),
		ConfidenceThreshold: getFloat("CONFIDENCE_THRESHOLD", 0.5),
		PersonThreshold:     getFloat("PERSON_THRESHOLD", 0.5),

		CameraSource: getString("CAMERA_SOURCE", "none"),
		FrameSkip:    getInt("FRAME_SKIP", 3),
		WorkingWidth: getInt("WORKING_WIDTH", 640),
		JPEGQuality:  getInt("JPEG_QUALITY", 80),
		CaptureRetry: getDuration("CAPTURE_RETRY", 500*time.Millisecond),

		Describer:           strings.ToLower(getString("DESCRIBER", "openai")),
		OpenAIAPIKey:        getString("OPENAI_API_KEY", ""),
		OpenAIChatModel:     getString("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
		GeminiAPIKey:        getString("GEMINI_API_KEY", ""),
		GeminiModelName:     getString("GEMINI_MODEL_NAME", ""),
		DescriptionLanguage: getString("DESCRIPTION_LANGUAGE", "Japanese"),

		RedisAddress:        getString("REDIS_ADDRESS", ""),
		RedisPassword:       getString("REDIS_PASSWORD", ""),
		RedisDB:             getInt("REDIS_DB", 0),
		DescriptionCacheTTL: getDuration("DESCRIPTION_CACHE_TTL", 24*time.Hour),

		RateLimitRPS:   getFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getInt("RATE_LIMIT_BURST", 10),
	}
}

func getString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := cast.ToIntE(raw)
	if err != nil {
		warnInvalid(key, raw, err)
		return fallback
	}
	return v
}

func getFloat(key string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := cast.ToFloat64E(raw)
	if err != nil {
		warnInvalid(key, raw, err)
		return fallback
	}
	return v
}

// getDuration accepts Go durations ("750ms") or a bare number of milliseconds.
func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	if ms, err := cast.ToInt64E(raw); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	v, err := cast.ToDurationE(raw)
	if err != nil {
		warnInvalid(key, raw, err)
		return fallback
	}
	return v
}

func warnInvalid(key, raw string, err error) {
	log.Warn(log.Fields{
		"key":   key,
		"value": raw,
		"error": err.Error(),
	}, "[config] invalid value, using default")
}
