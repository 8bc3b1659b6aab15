package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"intrusion-worker-go/internal/config"
)

// Setup configures the global zerolog logger: console output on stderr, optionally teed
// into the Logdy UI, at the configured level.
func Setup(cfg *config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stderr}

	if cfg.LogdyEnabled {
		if w, _, err := StartLogdy(cfg); err != nil {
			log.Warn().Err(err).Msg("Logdy disabled")
		} else {
			out = zerolog.MultiLevelWriter(out, w)
		}
	}
	log.Logger = log.Output(out)

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("Invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

func NewServiceLogger(cfg *config.Config, service string) zerolog.Logger {
	return log.With().Str("worker_id", cfg.WorkerID).Str("service", service).Logger()
}

func WithCamera(base zerolog.Logger, cameraID string) zerolog.Logger {
	return base.With().Str("camera_id", cameraID).Logger()
}
