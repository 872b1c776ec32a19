package middleware

import (
	"fmt"
	"strings"
	"time"

	"ProjectZukan/pkg/log"
	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
)

// LoggerConfig logs one line per request. Streaming endpoints are logged when they end.
func LoggerConfig() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		requestID, ok := c.Locals(RequestIDKey).(string)
		if !ok || requestID == "" {
			requestID = "unknown"
		}

		err := c.Next()

		latency := time.Since(start)
		status := c.Response().StatusCode()

		logFields := log.Fields{
			"request_id": requestID,
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     status,
			"latency_ms": latency.Milliseconds(),
			"ip":         c.IP(),
			"user_agent": c.Get(fiber.HeaderUserAgent),
		}

		if body := c.Request().Body(); len(body) > 0 && c.Is("json") {
			logFields["request_body"] = sanitizeRequestBody(body)
		}

		if err != nil {
			logFields["error"] = err.Error()
		}

		if status >= 500 {
			log.Error(logFields, "Server error")
		} else if status >= 400 {
			log.Warn(logFields, "Client error")
		} else {
			log.Info(logFields, "Success")
		}

		return err
	}
}

// sanitizeRequestBody hides secrets and replaces inline images with their size.
func sanitizeRequestBody(body []byte) string {
	var jsonBody map[string]interface{}
	if err := jsoniter.Unmarshal(body, &jsonBody); err != nil {
		return "[non-JSON body]"
	}

	for key, value := range jsonBody {
		lower := strings.ToLower(key)
		switch {
		case strings.Contains(lower, "key"), strings.Contains(lower, "token"), strings.Contains(lower, "secret"):
			jsonBody[key] = "[SECRET]"
		case strings.Contains(lower, "image"):
			if s, ok := value.(string); ok {
				jsonBody[key] = "[image " + byteCount(len(s)) + "]"
			}
		}
	}

	sanitized, err := jsoniter.Marshal(jsonBody)
	if err != nil {
		return "[sanitization-failed]"
	}

	return string(sanitized)
}

func byteCount(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%d MB", n>>20)
	case n >= 1<<10:
		return fmt.Sprintf("%d KB", n>>10)
	default:
		return fmt.Sprintf("%d B", n)
	}
}
