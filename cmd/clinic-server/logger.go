package main

import (
	"io"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/clinicdesk/clinic/internal/config"
)

// newLogger writes JSON to stdout, or console output in development, and
// additionally to a size-rotated file when LOG_FILE is set. The file always
// receives JSON.
func newLogger(cfg *config.Config, stdout io.Writer) zerolog.Logger {
	var console io.Writer = stdout
	if cfg != nil && cfg.IsDev() {
		console = zerolog.ConsoleWriter{Out: stdout}
	}

	out := console
	if cfg != nil && cfg.LogFile != "" {
		out = zerolog.MultiLevelWriter(console, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogFileMaxMB,
			MaxBackups: cfg.LogFileBackups,
			MaxAge:     cfg.LogFileMaxDays,
			Compress:   true,
		})
	}

	level := zerolog.InfoLevel
	if cfg != nil {
		if l, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && l != zerolog.NoLevel {
			level = l
		}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Str("service", "clinic-server").Logger()
}
