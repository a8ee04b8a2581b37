// Package logger provides a structured, context-aware logger built on
// go.uber.org/zap. Unlike a global logger, each Logger instance is an
// explicit value passed down through the monolith and its modules, so
// tests and the TUI front end can each choose where logs go (or discard
// them) without touching global state.
package logger

import (
	"context"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is the minimum severity a Logger will emit.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// LoggerInterface is the logging contract consumed by the rest of the
// module. Methods take a context so a future OTEL log bridge can pull a
// trace ID out of it without changing every call site.
type LoggerInterface interface {
	Debug(ctx context.Context, msg string, keysAndValues ...any)
	Info(ctx context.Context, msg string, keysAndValues ...any)
	Warn(ctx context.Context, msg string, keysAndValues ...any)
	Error(ctx context.Context, msg string, keysAndValues ...any)
	// With returns a child logger with the given key/value pairs attached
	// to every subsequent log line.
	With(keysAndValues ...any) LoggerInterface
	Sync() error
}

// Logger is the default LoggerInterface implementation.
type Logger struct {
	sugar *zap.SugaredLogger
}

var _ LoggerInterface = (*Logger)(nil)

// New creates a Logger that writes JSON lines to w at or above level,
// tagging every entry with a "service" field set to appName.
func New(w io.Writer, level Level, appName string) *Logger {
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(w),
		level.zapLevel(),
	)
	base := zap.New(core).With(zap.String("service", appName))
	return &Logger{sugar: base.Sugar()}
}

func (l *Logger) Debug(_ context.Context, msg string, kv ...any) { l.sugar.Debugw(msg, kv...) }
func (l *Logger) Info(_ context.Context, msg string, kv ...any)  { l.sugar.Infow(msg, kv...) }
func (l *Logger) Warn(_ context.Context, msg string, kv ...any)  { l.sugar.Warnw(msg, kv...) }
func (l *Logger) Error(_ context.Context, msg string, kv ...any) { l.sugar.Errorw(msg, kv...) }

func (l *Logger) With(kv ...any) LoggerInterface {
	return &Logger{sugar: l.sugar.With(kv...)}
}

func (l *Logger) Sync() error {
	return l.sugar.Sync()
}

// Nop returns a LoggerInterface that discards everything, for tests that
// do not care about log output.
func Nop() LoggerInterface {
	return &Logger{sugar: zap.NewNop().Sugar()}
}
