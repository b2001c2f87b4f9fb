// Package sse reads Server-Sent Events, the framing used by streaming
// chat-completion endpoints (OpenAI-compatible APIs, TGI, llama.cpp).
package sse

import (
	"bufio"
	"io"
	"strings"
)

// Event is one dispatched server-sent event. Data lines are joined with "\n".
type Event struct {
	Event string
	Data  string
	ID    string
}

// Reader yields events until io.EOF.
type Reader interface {
	Next() (*Event, error)
	Close() error
}

// maxLineSize bounds a single line. Some servers send whole completions as
// one event.
const maxLineSize = 1 << 20

type reader struct {
	lines *bufio.Scanner
	body  io.ReadCloser
}

// NewReader reads events from body. Close closes body.
func NewReader(body io.ReadCloser) Reader {
	s := bufio.NewScanner(body)
	s.Buffer(make([]byte, 0, 64<<10), maxLineSize)
	return &reader{lines: s, body: body}
}

// Next returns the next event that carries data. Comment lines and events
// without data are skipped; a final event missing its blank line is still
// returned.
func (r *reader) Next() (*Event, error) {
	var (
		ev   Event
		data []string
	)
	for r.lines.Scan() {
		line := strings.TrimSuffix(r.lines.Text(), "\r")
		if line == "" {
			if len(data) > 0 {
				break
			}
			ev = Event{}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		switch field, value := parseField(line); field {
		case "data":
			data = append(data, value)
		case "event":
			ev.Event = value
		case "id":
			ev.ID = value
		}
	}
	if err := r.lines.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, io.EOF
	}
	ev.Data = strings.Join(data, "\n")
	return &ev, nil
}

func (r *reader) Close() error { return r.body.Close() }

// parseField splits "field: value", dropping one leading space of value.
func parseField(line string) (field, value string) {
	field, value, _ = strings.Cut(line, ":")
	return field, strings.TrimPrefix(value, " ")
}
