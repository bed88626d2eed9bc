// Package logger builds the service's slog logger from config.LoggerSettings.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/natefinch/lumberjack"
	"github.com/nekruzvatanshoev/carstore/pkg/carserv/config"
)

// New returns a console or rotating file logger.
func New(settings *config.LoggerSettings) (*slog.Logger, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	opts := &slog.HandlerOptions{
		Level: parseLevel(settings.Level),
	}

	switch settings.Output {
	case config.LogOutputConsole:
		return slog.New(slog.NewTextHandler(os.Stdout, opts)), nil
	case config.LogOutputFile:
		return slog.New(slog.NewJSONHandler(newRotatingWriter(settings), opts)), nil
	default:
		return nil, fmt.Errorf("unsupported log output: %s", settings.Output)
	}
}

// Discard returns a logger that drops everything, for tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRotatingWriter(settings *config.LoggerSettings) io.Writer {
	return &lumberjack.Logger{
		Filename:   settings.File,
		MaxSize:    settings.MaxSizeMB,
		MaxBackups: settings.MaxBackups,
		MaxAge:     settings.MaxAgeDays,
		Compress:   true,
	}
}

func parseLevel(level string) slog.Level {
	switch level {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelWarning:
		return slog.LevelWarn
	case config.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
