package log

import (
	"fmt"
	"os"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/exp/maps"
)

var _ Interface = (*Logger)(nil)

const (
	scopeKey       = "scope"
	serviceNameKey = "service_name"
	requestIDKey   = "request_id"
)

type Entry struct {
	Time       time.Time         `json:"-"`
	Level      Level             `json:"level"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Message    string            `json:"message"`

	Error error `json:"-"`
}

// Logger is the concrete logger.
type Logger struct {
	level      Level
	attributes map[string]string
	sink       Sink
	clock      clock.Clock
}

// New returns a new logger.
func New(level Level, sink Sink) *Logger {
	return &Logger{
		level:      level,
		attributes: map[string]string{},
		sink:       sink,
		clock:      clock.New(),
	}
}

func (l Logger) Scope(scope string) *Logger {
	return l.Attrs(map[string]string{scopeKey: scope})
}

// RequestID returns a logger that tags every entry with the given request ID.
func (l Logger) RequestID(id string) *Logger {
	return l.Attrs(map[string]string{requestIDKey: id})
}

// Attrs creates a new logger with the given attributes.
func (l Logger) Attrs(attributes map[string]string) *Logger {
	attr := map[string]string{}
	maps.Copy(attr, l.attributes)
	maps.Copy(attr, attributes)
	l.attributes = attr
	return &l
}

func (l Logger) AddSink(sink Sink) *Logger {
	l.sink = Tee(l.sink, sink)
	return &l
}

func (l Logger) Level(level Level) *Logger {
	l.level = level
	return &l
}

func (l Logger) GetLevel() Level {
	return l.level
}

func (l *Logger) Log(entry Entry) {
	if entry.Level < l.level {
		return
	}
	if entry.Time.IsZero() {
		entry.Time = l.clock.Now()
	}
	entry.Attributes = l.attributes
	if err := l.sink.Log(entry); err != nil {
		fmt.Fprintf(os.Stderr, "log: failed to log entry: %v", err)
	}
}

func (l *Logger) Logf(level Level, format string, args ...interface{}) {
	l.Log(Entry{Level: level, Message: fmt.Sprintf(format, args...)})
}

func (l *Logger) Tracef(format string, args ...interface{}) {
	l.Log(Entry{Level: Trace, Message: fmt.Sprintf(format, args...)})
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.Log(Entry{Level: Debug, Message: fmt.Sprintf(format, args...)})
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.Log(Entry{Level: Info, Message: fmt.Sprintf(format, args...)})
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.Log(Entry{Level: Warn, Message: fmt.Sprintf(format, args...)})
}

func (l *Logger) Errorf(err error, format string, args ...interface{}) {
	if err == nil {
		return
	}
	l.Log(Entry{Level: Error, Message: fmt.Sprintf(format, args...) + ": " + err.Error(), Error: err})
}

// Tee returns a sink that writes every entry to all of the given sinks.
func Tee(sinks ...Sink) Sink {
	return teeSink(sinks)
}

type teeSink []Sink

func (t teeSink) Log(entry Entry) error {
	var firstErr error
	for _, sink := range t {
		if err := sink.Log(entry); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
