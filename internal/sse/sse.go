// Package sse implements the EventSource wire format: decoding a stream of
// lines into discrete events, and re-encoding events back into that same
// line format. Hand-written per spec §4.1/§8 — this is core-scope, not
// delegated to a client library (see DESIGN.md).
package sse

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

// Event is one decoded Server-Sent Event.
type Event struct {
	ID    string
	Event string
	Data  string // joined with "\n" when multiple data: lines were seen
}

// Decoder incrementally turns a line stream into Events following the
// EventSource convention: ":"-prefixed lines are comments and are ignored;
// a blank line flushes the accumulated event, but only if it accumulated
// any data: content (a blank line with no preceding data is a no-op);
// "data:", "event:", "id:" lines populate the respective fields.
type Decoder struct {
	r       *bufio.Reader
	current Event
	hasData bool
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Next returns the next decoded Event, or io.EOF when the stream ends
// without a final blank line flushing a pending event.
func (d *Decoder) Next() (*Event, error) {
	for {
		line, err := d.r.ReadString('\n')
		if line == "" && err != nil {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if d.hasData {
				ev := d.current
				d.current = Event{}
				d.hasData = false
				return &ev, nil
			}
			d.current = Event{}
			if err != nil {
				return nil, err
			}
			continue
		}

		if strings.HasPrefix(line, ":") {
			if err != nil {
				return nil, err
			}
			continue
		}

		field, value := splitField(line)
		switch field {
		case "data":
			if d.hasData {
				d.current.Data += "\n" + value
			} else {
				d.current.Data = value
			}
			d.hasData = true
		case "event":
			d.current.Event = value
		case "id":
			d.current.ID = value
		}

		if err != nil {
			if err == io.EOF && d.hasData {
				ev := d.current
				d.current = Event{}
				d.hasData = false
				return &ev, nil
			}
			return nil, err
		}
	}
}

// DecodeAll reads every event out of r. It is a convenience wrapper for
// tests and for transports that buffer a full response body before parsing.
func DecodeAll(r io.Reader) ([]Event, error) {
	d := NewDecoder(r)
	var events []Event
	for {
		ev, err := d.Next()
		if ev != nil {
			events = append(events, *ev)
		}
		if err != nil {
			if err == io.EOF {
				return events, nil
			}
			return events, err
		}
	}
}

// splitField parses "field: value" or "field:value"; a field with no colon
// is treated as the field name with an empty value, per the EventSource
// spec's tolerant grammar.
func splitField(line string) (field, value string) {
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return line, ""
	}
	field = line[:idx]
	value = line[idx+1:]
	value = strings.TrimPrefix(value, " ")
	return field, value
}

// Encode serializes events back into EventSource wire format, the inverse
// of Decoder — used by tests to exercise the round-trip law of spec §8 and
// by the in-process mock HTTP servers that simulate streaming responses.
func Encode(events []Event) []byte {
	var buf bytes.Buffer
	for _, ev := range events {
		if ev.ID != "" {
			buf.WriteString("id: " + ev.ID + "\n")
		}
		if ev.Event != "" {
			buf.WriteString("event: " + ev.Event + "\n")
		}
		for _, line := range strings.Split(ev.Data, "\n") {
			buf.WriteString("data: " + line + "\n")
		}
		buf.WriteString("\n")
	}
	return buf.Bytes()
}
