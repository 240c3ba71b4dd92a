// Package logging provides the engine's structured logger: a thin,
// explicitly-constructed wrapper over zap so every component gets the
// same call-site shape the teacher used (Info/Warn/Error/Debug with
// trailing key-value pairs) while every line carries real structured
// fields instead of a printf-joined suffix.
package logging

import (
	"go.uber.org/zap"
)

// Logger wraps zap's SugaredLogger behind the component's own prefix.
type Logger struct {
	prefix string
	sugar  *zap.SugaredLogger
}

// New builds a Logger for a named component. Components construct
// their own Logger explicitly and hold it as a field; none reach for a
// package-level global.
func New(component string) *Logger {
	base, err := zap.NewProduction()
	if err != nil {
		base = zap.NewNop()
	}
	return &Logger{
		prefix: component,
		sugar:  base.Sugar().With("component", component),
	}
}

// NewDevelopment builds a human-readable console Logger, used by the
// tests.
func NewDevelopment(component string) *Logger {
	base, err := zap.NewDevelopment()
	if err != nil {
		base = zap.NewNop()
	}
	return &Logger{
		prefix: component,
		sugar:  base.Sugar().With("component", component),
	}
}

func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Infow(msg, keysAndValues...)
}

func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.sugar.Warnw(msg, keysAndValues...)
}

func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, keysAndValues...)
}

func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

// Sync flushes any buffered log entries; call on shutdown.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}

// Named returns a child Logger scoped under an additional name
// segment, e.g. a per-run_id logger inside the orchestrator.
func (l *Logger) Named(name string) *Logger {
	return &Logger{
		prefix: l.prefix + "." + name,
		sugar:  l.sugar.Named(name),
	}
}
