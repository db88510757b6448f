package observability

import (
	"log/slog"

	"github.com/couchcryptid/collision-dashboard/internal/config"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// NewLogger builds the service logger from LOG_LEVEL and LOG_FORMAT and makes
// it the slog default.
func NewLogger(cfg *config.Config) *slog.Logger {
	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat).With("service", "collision-dashboard")
	slog.SetDefault(logger)
	return logger
}
