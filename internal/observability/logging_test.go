package observability

import (
	"testing"

	"github.com/spec-kit/staff-portal/internal/config"
)

func TestNewLoggerFallsBackOnBadLevel(t *testing.T) {
	logger, err := NewLogger(config.LoggerConfig{Level: "loud"}, config.AppConfig{Name: "staff-portal", Env: "test"})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if !logger.Core().Enabled(0) {
		t.Error("info level should be enabled after fallback")
	}
	if logger.Core().Enabled(-1) {
		t.Error("debug level should be disabled after fallback")
	}
}
