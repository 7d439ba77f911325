// Package stream turns server-sent-event responses into ordered chat deltas.
package stream

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/davidbz/hearth/internal/domain"
)

const (
	readChunkSize    = 4096
	defaultEventType = "data"
)

//nolint:gochecknoglobals // Read-only separators.
var (
	eventSeparator = []byte("\n\n")
	carriageReturn = []byte("\r")
)

// EventReader frames a byte stream into SSE events. Bytes are decoded as
// UTF-8 incrementally, so a multi-byte character split across reads is
// held back until its remaining bytes arrive. Only complete events are
// returned; a trailing partial event stays buffered until more data or EOF.
type EventReader struct {
	src   io.Reader
	chunk []byte
	buf   []byte
	err   error
}

// NewEventReader wraps r with an incremental UTF-8 decoder.
func NewEventReader(r io.Reader) *EventReader {
	return &EventReader{
		src:   transform.NewReader(r, unicode.UTF8.NewDecoder()),
		chunk: make([]byte, readChunkSize),
	}
}

// Next returns the next event carrying a payload. It returns io.EOF once the
// source is exhausted; an event left unterminated at EOF is still returned.
func (r *EventReader) Next() (domain.StreamEvent, error) {
	for {
		if event, ok := r.take(); ok {
			return event, nil
		}

		if r.err != nil {
			if errors.Is(r.err, io.EOF) && len(bytes.TrimSpace(r.buf)) > 0 {
				raw := r.buf
				r.buf = nil
				if event, ok := parseEvent(raw); ok {
					return event, nil
				}
			}
			return domain.StreamEvent{}, r.err
		}

		n, err := r.src.Read(r.chunk)
		if n > 0 {
			r.buf = append(r.buf, bytes.ReplaceAll(r.chunk[:n], carriageReturn, nil)...)
		}
		if err != nil {
			r.err = err
		}
	}
}

// take pops complete events off the buffer until one carries a payload.
func (r *EventReader) take() (domain.StreamEvent, bool) {
	for {
		idx := bytes.Index(r.buf, eventSeparator)
		if idx < 0 {
			return domain.StreamEvent{}, false
		}

		raw := r.buf[:idx]
		r.buf = r.buf[idx+len(eventSeparator):]

		if event, ok := parseEvent(raw); ok {
			return event, true
		}
	}
}

// parseEvent reads the data and event fields of one SSE block. Comment lines
// and blocks without a data field are dropped.
func parseEvent(raw []byte) (domain.StreamEvent, bool) {
	event := domain.StreamEvent{EventType: defaultEventType}
	var data []string

	for _, line := range strings.Split(string(raw), "\n") {
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "data":
			data = append(data, value)
		case "event":
			event.EventType = value
		}
	}

	if len(data) == 0 {
		return domain.StreamEvent{}, false
	}

	event.Payload = strings.Join(data, "\n")
	return event, true
}
