// Package logging builds the zap loggers used by the service and CLI
// entrypoints.
package logging

import (
	"fmt"

	"github.com/vcaboara/job-lead-finder-sub000/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ParseLevel maps a configured level string onto a zap level. Unknown values
// fall back to info rather than failing startup.
func ParseLevel(s string) zapcore.Level {
	switch s {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func build(level zapcore.Level, jsonFormat bool, fields ...zap.Field) (*zap.Logger, error) {
	var logConfig zap.Config
	if jsonFormat {
		logConfig = zap.NewProductionConfig()
	} else {
		logConfig = zap.NewDevelopmentConfig()
		logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	logConfig.Level = zap.NewAtomicLevelAt(level)

	logger, err := logConfig.Build(zap.Fields(fields...))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// InitLogger builds the service logger from the logging section of the
// configuration. Every entry carries the service name so aggregated streams
// stay attributable.
func InitLogger(cfg *config.Config) (*zap.Logger, error) {
	return build(
		ParseLevel(cfg.GetString("logging.level")),
		cfg.GetString("logging.format") == "json",
		zap.String("service", "job-lead-finder"),
	)
}

// InitConsoleLogger builds a logger for the command-line tools
func InitConsoleLogger(verbose bool, jsonFormat bool) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	return build(level, jsonFormat)
}
