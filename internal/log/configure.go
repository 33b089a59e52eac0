package log

import (
	"io"
)

type Config struct {
	Level      Level `help:"Log level." default:"info" env:"LOG_LEVEL"`
	JSON       bool  `help:"Log in JSON format." env:"LOG_JSON"`
	Timestamps bool  `help:"Include timestamps in plain logs." env:"LOG_TIMESTAMPS"`
}

// Configure creates the root logger, tagged with the service name.
//
// A zero Level logs at Info.
func Configure(w io.Writer, cfg Config) *Logger {
	sink := Sink(newPlainSink(w, cfg.Timestamps))
	if cfg.JSON {
		sink = newJSONSink(w)
	}
	level := cfg.Level
	if level < Trace {
		level = Info
	}
	return New(level, sink).Attrs(map[string]string{serviceNameKey: ServiceName})
}
