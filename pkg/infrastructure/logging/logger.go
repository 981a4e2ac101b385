// Package logging builds the structured logger shared by all components.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config represents the logger configuration
type Config struct {
	// Level is the minimum logging level (debug, info, warn, error)
	Level string
	// OutputPaths is a list of URLs or file paths to write logging output to
	OutputPaths []string
	// Development disables sampling so every entry is written
	Development bool
}

// DefaultOutputPaths is where logs go when no path is configured
var DefaultOutputPaths = []string{"stderr"}

// New creates a JSON logger with ISO8601 timestamps
func New(cfg Config) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	zapCfg.Level = zap.NewAtomicLevelAt(ParseLevel(cfg.Level))

	zapCfg.OutputPaths = DefaultOutputPaths
	if len(cfg.OutputPaths) > 0 {
		zapCfg.OutputPaths = cfg.OutputPaths
	}
	zapCfg.ErrorOutputPaths = zapCfg.OutputPaths

	if cfg.Development {
		zapCfg.Sampling = nil
	}

	logger, err := zapCfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("build zap logger: %w", err)
	}
	return logger, nil
}

// ParseLevel converts a string level to zapcore.Level, defaulting to info
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
