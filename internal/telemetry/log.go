// Package telemetry builds flowcore's structured logger and optional
// Prometheus metrics registry.
package telemetry

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/sonne120/flowcore/internal/config"
)

// NewLogger builds a zap.Logger from a LogConfig: stderr always gets a
// console or JSON encoder per Format, and — when Output.Enabled — a second
// core writes JSON lines to a lumberjack-rotated file.
func NewLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("telemetry: invalid log level %q: %w", cfg.Level, err)
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stack",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	stderrEncoder := zapcore.NewConsoleEncoder(encoderConfig)
	if cfg.Format == "json" {
		stderrEncoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(stderrEncoder, zapcore.AddSync(os.Stderr), level),
	}

	if cfg.Output.Enabled {
		rotator := &lumberjack.Logger{
			Filename:   cfg.Output.Path,
			MaxSize:    cfg.Output.MaxSizeMB,
			MaxAge:     cfg.Output.MaxAgeDays,
			MaxBackups: cfg.Output.MaxBackups,
			Compress:   cfg.Output.Compress,
		}
		fileEncoder := zapcore.NewJSONEncoder(encoderConfig)
		cores = append(cores, zapcore.NewCore(fileEncoder, zapcore.AddSync(rotator), level))
	}

	core := zapcore.NewTee(cores...)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}
