package observability

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-logr/logr"

	"github.com/spotify/android-store-service/internal/log"
)

type logSink struct {
	keyValues map[string]any
	logger    *log.Logger
}

// NewOtelLogger bridges OTEL's internal logging into logger.
func NewOtelLogger(logger *log.Logger, level log.Level) logr.Logger {
	sink := &logSink{
		logger: logger.Scope("otel").Level(level),
	}
	return logr.New(sink)
}

var _ logr.LogSink = &logSink{}

func (l *logSink) Init(info logr.RuntimeInfo) {
}

func (l logSink) Enabled(level int) bool {
	return otelLevelToLevel(level) >= l.logger.GetLevel()
}

func (l logSink) Info(level int, msg string, kvs ...any) {
	l.logger.Logf(otelLevelToLevel(level), "%s", l.format(msg, kvs))
}

func (l logSink) Error(err error, msg string, kvs ...any) {
	l.logger.Errorf(err, "%s", l.format(msg, kvs))
}

func (l logSink) WithName(name string) logr.LogSink {
	return &logSink{
		keyValues: l.keyValues,
		logger:    l.logger.Scope(name),
	}
}

func (l logSink) WithValues(kvs ...any) logr.LogSink {
	newMap := make(map[string]any, len(l.keyValues)+len(kvs)/2)
	for k, v := range l.keyValues {
		newMap[k] = v
	}
	for i := 0; i+1 < len(kvs); i += 2 {
		newMap[fmt.Sprint(kvs[i])] = kvs[i+1]
	}
	return &logSink{
		keyValues: newMap,
		logger:    l.logger,
	}
}

func (l logSink) format(msg string, kvs []any) string {
	parts := []string{msg}
	keys := make([]string, 0, len(l.keyValues))
	for k := range l.keyValues {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%+v", k, l.keyValues[k]))
	}
	for i := 0; i+1 < len(kvs); i += 2 {
		parts = append(parts, fmt.Sprintf("%v=%+v", kvs[i], kvs[i+1]))
	}
	return strings.Join(parts, " ")
}

// otelLevelToLevel maps logr verbosity as used by OTEL:
// 0 error, 1 warning, 4 info, 8 debug.
func otelLevelToLevel(level int) log.Level {
	switch level {
	case 4:
		return log.Info
	case 8:
		return log.Debug
	case 1:
		return log.Warn
	case 0:
		return log.Error
	default:
		return log.Trace
	}
}
