package app

import (
	"log/slog"
	"os"
	"strings"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/config"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/pkg/logger"
)

// SetupLogger builds the process logger and installs it as the slog default.
// Production always logs JSON; APP_DEBUG forces the debug level.
func SetupLogger(cfg *config.Config) *slog.Logger {
	level := logger.ParseLevel(cfg.Observability.LogLevel)
	if cfg.App.Debug {
		level = logger.LevelDebug
	}

	log := logger.New(logger.Options{
		Output:    os.Stdout,
		Level:     level,
		JSON:      cfg.IsProduction() || !strings.EqualFold(cfg.Observability.LogFormat, "text"),
		AddSource: cfg.App.Debug,
	}).With(
		logger.String("app", cfg.App.Name),
		logger.String("env", string(cfg.App.Environment)),
	).Slog()

	slog.SetDefault(log)
	return log
}
