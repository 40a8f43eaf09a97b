// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	Level string
	// File enables rotated file output in addition to stdout when set.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// New returns a JSON logger writing to stdout and, if configured, a rotated file.
// The returned closer releases the file handle.
func New(cfg Config) (*zap.Logger, io.Closer, error) {
	return newLogger(cfg, zapcore.Lock(os.Stdout))
}

func newLogger(cfg Config, stdout zapcore.WriteSyncer) (*zap.Logger, io.Closer, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		parsed, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid log level %s: %w", cfg.Level, err)
		}
		level = parsed
	}

	sinks := []zapcore.WriteSyncer{stdout}
	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    orDefault(cfg.MaxSizeMB, 100),
			MaxBackups: orDefault(cfg.MaxBackups, 10),
			MaxAge:     orDefault(cfg.MaxAgeDays, 30),
			Compress:   true,
		}
		sinks = append(sinks, zapcore.AddSync(rotator))
		closer = rotator
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig()),
		zapcore.NewMultiWriteSyncer(sinks...),
		level,
	)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), closer, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
