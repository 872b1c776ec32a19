package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFromEnviron_Defaults(t *testing.T) {
	for _, key := range []string{"DATA_DIR", "ENCYCLOPEDIA_CSV", "APP_PORT", "FRAME_SKIP", "DESCRIBER", "CAMERA_SOURCE", "CAPTURE_RETRY"} {
		t.Setenv(key, "")
	}

	env := FromEnviron()
	require.Equal(t, "5000", env.AppPort)
	require.Equal(t, filepath.Join("data", "Encyclopedia.csv"), env.EncyclopediaCSV)
	require.Equal(t, filepath.Join("data", "Location.csv"), env.LocationCSV)
	require.Equal(t, 3, env.FrameSkip)
	require.Equal(t, "openai", env.Describer)
	require.Equal(t, "none", env.CameraSource)
	require.Equal(t, 500*time.Millisecond, env.CaptureRetry)
	require.InDelta(t, 0.5, env.PersonThreshold, 1e-9)
}

func TestFromEnviron_Overrides(t *testing.T) {
	t.Setenv("DATA_DIR", "/srv/zukan")
	t.Setenv("FRAME_SKIP", "5")
	t.Setenv("PERSON_THRESHOLD", "0.35")
	t.Setenv("CAPTURE_RETRY", "2s")
	t.Setenv("DESCRIPTION_CACHE_TTL", "1500")
	t.Setenv("DESCRIBER", "Gemini")
	t.Setenv("WORKING_WIDTH", "wide")

	env := FromEnviron()
	require.Equal(t, filepath.Join("/srv/zukan", "Encyclopedia.csv"), env.EncyclopediaCSV)
	require.Equal(t, 5, env.FrameSkip)
	require.InDelta(t, 0.35, env.PersonThreshold, 1e-9)
	require.Equal(t, 2*time.Second, env.CaptureRetry)
	require.Equal(t, 1500*time.Millisecond, env.DescriptionCacheTTL)
	require.Equal(t, "gemini", env.Describer)
	require.Equal(t, 640, env.WorkingWidth)
}

func TestNewValidator_UsesJSONNames(t *testing.T) {
	type req struct {
		Place string `json:"place" validate:"required"`
	}

	err := NewValidator().Struct(req{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "'place'")
}
