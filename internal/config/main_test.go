package config

import (
	"os"
	"testing"
)

func TestMain(m *testing.M) {
	os.Setenv("APP_ENV", "test")
	os.Setenv("LOG_LEVEL", "error")
	os.Exit(m.Run())
}
