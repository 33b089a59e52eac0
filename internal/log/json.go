package log

import (
	"encoding/json"
	"io"
	"sync"
	"time"
)

var _ Sink = (*jsonSink)(nil)

type jsonEntry struct {
	Entry
	Time  string `json:"time"`
	Error string `json:"error,omitempty"`
}

func newJSONSink(w io.Writer) *jsonSink {
	return &jsonSink{enc: json.NewEncoder(w)}
}

type jsonSink struct {
	lock sync.Mutex
	enc  *json.Encoder
}

func (j *jsonSink) Log(entry Entry) error {
	jentry := jsonEntry{
		Entry: entry,
		Time:  entry.Time.UTC().Format(time.RFC3339Nano),
	}
	if entry.Error != nil {
		jentry.Error = entry.Error.Error()
	}
	j.lock.Lock()
	defer j.lock.Unlock()
	return j.enc.Encode(jentry)
}
