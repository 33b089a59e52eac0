package log

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

var _ Sink = (*plainSink)(nil)

var levelColours = map[Level]string{
	Trace: "\x1b[90m",
	Debug: "\x1b[34m",
	Info:  "\x1b[37m",
	Warn:  "\x1b[33m",
	Error: "\x1b[31m",
}

func newPlainSink(w io.Writer, timestamps bool) *plainSink {
	var colour bool
	if f, ok := w.(*os.File); ok {
		colour = isatty.IsTerminal(f.Fd())
	}
	return &plainSink{
		w:          w,
		colour:     colour,
		timestamps: timestamps,
	}
}

type plainSink struct {
	lock       sync.Mutex
	w          io.Writer
	colour     bool
	timestamps bool
}

// Log writes "level:scope: message key=value..." on a single line.
func (p *plainSink) Log(entry Entry) error {
	var prefix strings.Builder
	if p.timestamps {
		prefix.WriteString(entry.Time.Format(time.TimeOnly))
		prefix.WriteByte(' ')
	}
	prefix.WriteString(entry.Level.String())
	if scope, ok := entry.Attributes[scopeKey]; ok {
		prefix.WriteByte(':')
		prefix.WriteString(scope)
	}

	keys := make([]string, 0, len(entry.Attributes))
	for key := range entry.Attributes {
		if key == scopeKey || key == serviceNameKey {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	var suffix strings.Builder
	for _, key := range keys {
		fmt.Fprintf(&suffix, " %s=%s", key, entry.Attributes[key])
	}

	line := prefix.String() + ": " + entry.Message + suffix.String()
	if p.colour {
		line = levelColours[entry.Level] + line + "\x1b[0m"
	}

	p.lock.Lock()
	defer p.lock.Unlock()
	_, err := fmt.Fprintln(p.w, line)
	return err
}
