// Copyright 2022 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logutil builds the zap loggers handed to each process.  There is
// no package level logger, callers own what NewLogger returns.
package logutil

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/matrixorigin/mobatch/pkg/common/moerr"
)

// LogConfig log config
type LogConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	Filename   string `toml:"filename"`
	MaxSize    int    `toml:"max-size"`
	MaxDays    int    `toml:"max-days"`
	MaxBackups int    `toml:"max-backups"`
	// StacktraceLevel is the lowest level that records a stack, fatal when
	// empty.
	StacktraceLevel string `toml:"stacktrace-level"`
}

// ZapSink pairs an encoder with where it writes.
type ZapSink struct {
	enc zapcore.Encoder
	out zapcore.WriteSyncer
}

// Validate checks the config without building anything.
func (cfg *LogConfig) Validate() error {
	if _, err := parseLevel(cfg.Level); err != nil {
		return moerr.NewBadConfig(context.TODO(), "log level %q", cfg.Level)
	}
	if cfg.StacktraceLevel != "" {
		if _, err := parseLevel(cfg.StacktraceLevel); err != nil {
			return moerr.NewBadConfig(context.TODO(), "log stacktrace level %q", cfg.StacktraceLevel)
		}
	}
	switch cfg.Format {
	case "console", "json":
	default:
		return moerr.NewBadConfig(context.TODO(), "unsupported log format: %s", cfg.Format)
	}
	if cfg.Filename != "" {
		if stat, err := os.Stat(cfg.Filename); err == nil && stat.IsDir() {
			return moerr.NewBadConfig(context.TODO(), "log file %s is a directory", cfg.Filename)
		}
	}
	return nil
}

func (cfg *LogConfig) getLevel() zap.AtomicLevel {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level.SetLevel(zap.InfoLevel)
	}
	return level
}

func (cfg *LogConfig) getStacktraceLevel() zapcore.Level {
	if cfg.StacktraceLevel == "" {
		return zapcore.FatalLevel
	}
	level, err := parseLevel(cfg.StacktraceLevel)
	if err != nil {
		return zapcore.FatalLevel
	}
	return level
}

func parseLevel(text string) (zapcore.Level, error) {
	var level zapcore.Level
	err := level.UnmarshalText([]byte(text))
	return level, err
}

func (cfg *LogConfig) getOptions() []zap.Option {
	return []zap.Option{
		zap.AddStacktrace(cfg.getStacktraceLevel()),
		zap.AddCaller(),
	}
}

func (cfg *LogConfig) getSyncer() zapcore.WriteSyncer {
	if cfg.Filename == "" {
		return getConsoleSyncer()
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.Filename,
		MaxSize:    cfg.MaxSize,
		MaxAge:     cfg.MaxDays,
		MaxBackups: cfg.MaxBackups,
		LocalTime:  true,
		Compress:   false,
	})
}

func (cfg *LogConfig) getEncoder() zapcore.Encoder {
	return getLoggerEncoder(cfg.Format)
}

func (cfg *LogConfig) getSinks() []ZapSink {
	return []ZapSink{{enc: cfg.getEncoder(), out: cfg.getSyncer()}}
}

// NewLogger builds a logger from cfg.
func NewLogger(cfg *LogConfig) (*zap.Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	level := cfg.getLevel()
	sinks := cfg.getSinks()
	cores := make([]zapcore.Core, 0, len(sinks))
	for _, sink := range sinks {
		cores = append(cores, zapcore.NewCore(sink.enc, sink.out, level))
	}
	return zap.New(zapcore.NewTee(cores...), cfg.getOptions()...), nil
}

func MustNewLogger(cfg *LogConfig) *zap.Logger {
	logger, err := NewLogger(cfg)
	if err != nil {
		panic(err)
	}
	return logger
}

// Nop is the logger of processes built without one.
func Nop() *zap.Logger {
	return zap.NewNop()
}

func getConsoleSyncer() zapcore.WriteSyncer {
	return zapcore.Lock(os.Stdout)
}

func getLoggerEncoder(format string) zapcore.Encoder {
	encoderConfig := zapcore.EncoderConfig{
		MessageKey:    "msg",
		LevelKey:      "level",
		TimeKey:       "time",
		NameKey:       "name",
		CallerKey:     "caller",
		StacktraceKey: "stacktrace",
		LineEnding:    zapcore.DefaultLineEnding,
		EncodeLevel:   zapcore.CapitalLevelEncoder,
		EncodeTime: zapcore.TimeEncoder(func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(t.Format("2006/01/02 15:04:05.000000 -0700"))
		}),
		EncodeDuration:   zapcore.StringDurationEncoder,
		EncodeCaller:     zapcore.ShortCallerEncoder,
		EncodeName:       zapcore.FullNameEncoder,
		ConsoleSeparator: " ",
	}
	if format == "json" {
		return zapcore.NewJSONEncoder(encoderConfig)
	}
	return zapcore.NewConsoleEncoder(encoderConfig)
}
