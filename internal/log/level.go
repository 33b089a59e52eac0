package log

import (
	"fmt"
	"strings"

	"github.com/alecthomas/errors"
)

// Level of a log entry. Values match OpenTelemetry severity numbers.
type Level int

const (
	Trace Level = 1
	Debug Level = 5
	Info  Level = 9
	Warn  Level = 13
	Error Level = 17
)

var levelNames = map[Level]string{
	Trace: "trace",
	Debug: "debug",
	Info:  "info",
	Warn:  "warn",
	Error: "error",
}

// Severity returns the OpenTelemetry severity number of the level.
func (l Level) Severity() int { return int(l) }

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText accepts level names in any case, and "warning" for warn.
func (l *Level) UnmarshalText(text []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(text)))
	if name == "warning" {
		name = "warn"
	}
	for level, candidate := range levelNames {
		if candidate == name {
			*l = level
			return nil
		}
	}
	return errors.Errorf("%q is not a valid log level", string(text))
}

func ParseLevel(input string) (Level, error) {
	var level Level
	err := level.UnmarshalText([]byte(input))
	return level, err
}
