// Copyright 2025 RouteSec Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package log provides leveled, structured logging on top of zap. Log entries
// take a message and alternating key/value context, mirroring the error
// context of the serrors package.
package log

import (
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger describes the logger interface.
type Logger interface {
	// New returns a child logger with the given context attached to every
	// entry.
	New(ctx ...interface{}) Logger
	Debug(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})
	Enabled(lvl Level) bool
}

// Level is the log level.
type Level zapcore.Level

// The different log levels.
const (
	LevelDebug = Level(zapcore.DebugLevel)
	LevelInfo  = Level(zapcore.InfoLevel)
	LevelError = Level(zapcore.ErrorLevel)
)

// LevelFromString parses the log level.
func LevelFromString(lvl string) (Level, error) {
	switch strings.ToLower(lvl) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "error":
		return LevelError, nil
	default:
		return LevelDebug, fmt.Errorf("unknown level: %v", lvl)
	}
}

var root atomic.Pointer[logger]

func init() {
	root.Store(&logger{l: zap.NewNop()})
}

// Config configures the process-wide root logger.
type Config struct {
	// Console enables human-friendly console encoding instead of JSON.
	Console bool
	// Level is the minimum level emitted. Defaults to LevelInfo if empty.
	Level string
}

// Setup configures the root logger for the whole process. It must be called
// before the first log entry is emitted from a component that uses the root
// logger; calling it again replaces the root logger.
func Setup(cfg Config) error {
	lvl := LevelInfo
	if cfg.Level != "" {
		var err error
		if lvl, err = LevelFromString(cfg.Level); err != nil {
			return err
		}
	}
	zCfg := zap.NewProductionConfig()
	if cfg.Console {
		zCfg = zap.NewDevelopmentConfig()
	}
	zCfg.Level = zap.NewAtomicLevelAt(zapcore.Level(lvl))
	zCfg.DisableStacktrace = true
	l, err := zCfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return err
	}
	root.Store(&logger{l: l})
	return nil
}

// Root returns the root logger. It is never nil.
func Root() Logger {
	return root.Load()
}

// New creates a logger with the given context attached to the root logger.
func New(ctx ...interface{}) Logger {
	return Root().New(ctx...)
}

// Discard sets the root logger up to discard all log entries. This is useful
// for testing.
func Discard() {
	root.Store(&logger{l: zap.NewNop()})
}

// Flush writes the logs to the underlying buffer.
func Flush() error {
	return root.Load().l.Sync()
}

// Debug logs at debug level on the root logger.
func Debug(msg string, ctx ...interface{}) {
	root.Load().Debug(msg, ctx...)
}

// Info logs at info level on the root logger.
func Info(msg string, ctx ...interface{}) {
	root.Load().Info(msg, ctx...)
}

// Error logs at error level on the root logger.
func Error(msg string, ctx ...interface{}) {
	root.Load().Error(msg, ctx...)
}

// SafeDebug logs to the given logger at debug level, if the logger is not
// nil.
func SafeDebug(l Logger, msg string, ctx ...interface{}) {
	if l != nil {
		l.Debug(msg, ctx...)
	}
}

// SafeInfo logs to the given logger at info level, if the logger is not nil.
func SafeInfo(l Logger, msg string, ctx ...interface{}) {
	if l != nil {
		l.Info(msg, ctx...)
	}
}

// SafeError logs to the given logger at error level, if the logger is not
// nil.
func SafeError(l Logger, msg string, ctx ...interface{}) {
	if l != nil {
		l.Error(msg, ctx...)
	}
}

type logger struct {
	l *zap.Logger
}

func (l *logger) New(ctx ...interface{}) Logger {
	return &logger{l: l.l.With(convertCtx(ctx)...)}
}

func (l *logger) Debug(msg string, ctx ...interface{}) {
	l.l.Debug(msg, convertCtx(ctx)...)
}

func (l *logger) Info(msg string, ctx ...interface{}) {
	l.l.Info(msg, convertCtx(ctx)...)
}

func (l *logger) Error(msg string, ctx ...interface{}) {
	l.l.Error(msg, convertCtx(ctx)...)
}

func (l *logger) Enabled(lvl Level) bool {
	return l.l.Core().Enabled(zapcore.Level(lvl))
}

func convertCtx(ctx []interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(ctx)/2)
	for i := 0; i+1 < len(ctx); i += 2 {
		fields = append(fields, zap.Any(fmt.Sprint(ctx[i]), ctx[i+1]))
	}
	return fields
}
