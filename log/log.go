// Package log provides module-scoped structured loggers for peerengine,
// mirroring the way the teacher repo's common package obtains a logger via
// log.NewModuleLogger(log.Common).
package log

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Module names, one per subsystem that logs.
const (
	Engine    = "engine"
	Handshake = "handshake"
	Dispatch  = "dispatch"
	Wire      = "wire"
	Tracker   = "tracker"
	Dedupe    = "dedupe"
	Throttle  = "throttle"
	Config    = "config"
	Cache     = "cache"
)

var (
	baseOnce sync.Once
	base     *zap.Logger
)

func root() *zap.Logger {
	baseOnce.Do(func() {
		cfg := zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.OutputPaths = []string{"stderr"}
		l, err := cfg.Build()
		if err != nil {
			// Should not happen with the static config above; fall back to a
			// no-op logger rather than panicking the caller.
			l = zap.NewNop()
		}
		base = l
		_ = os.Stderr
	})
	return base
}

// Logger is a module-scoped structured logger. The zero value is not usable;
// obtain one via NewModuleLogger.
type Logger struct {
	z *zap.SugaredLogger
}

// NewModuleLogger returns a Logger tagged with the given module name.
func NewModuleLogger(module string) *Logger {
	return &Logger{z: root().Sugar().With("module", module)}
}

func (l *Logger) Debug(msg string, kv ...interface{}) { l.z.Debugw(msg, kv...) }
func (l *Logger) Trace(msg string, kv ...interface{}) { l.z.Debugw(msg, kv...) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.z.Infow(msg, kv...) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.z.Warnw(msg, kv...) }
func (l *Logger) Error(msg string, kv ...interface{}) { l.z.Errorw(msg, kv...) }

// With returns a child logger with additional static fields, used when an
// engine instance wants every subsequent log line tagged with its peer id.
func (l *Logger) With(kv ...interface{}) *Logger {
	return &Logger{z: l.z.With(kv...)}
}
