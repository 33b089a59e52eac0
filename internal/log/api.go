// Package log is the service's leveled logger. Loggers travel in the request
// context and write entries to a Sink.
package log

import (
	"context"
	"os"
)

// ServiceName is attached to every entry emitted by a logger created with Configure.
const ServiceName = "android-store-service"

// Sink receives every entry at or above a logger's level.
type Sink interface {
	Log(entry Entry) error
}

type Interface interface {
	Log(entry Entry)
	Logf(level Level, format string, args ...interface{})
	Tracef(format string, args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	// Errorf logs err with a message. Nil errors are dropped.
	Errorf(err error, format string, args ...interface{})
}

type loggerKey struct{}

// FromContext returns the logger attached to ctx. It panics if there is none,
// as every request context is created with one.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*Logger); ok {
		return logger
	}
	panic("log: no logger in context")
}

func ContextWithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// ContextWithNewDefaultLogger attaches a plain debug logger writing to stderr.
func ContextWithNewDefaultLogger(ctx context.Context) context.Context {
	return ContextWithLogger(ctx, Configure(os.Stderr, Config{Level: Debug}))
}
