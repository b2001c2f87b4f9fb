package llm

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/kbukum/modelkit/httpclient"
	"github.com/kbukum/modelkit/httpclient/sse"
)

const maxNDJSONLine = 1 << 20

// readStream dispatches on the dialect's stream format. Servers that send
// SSE frames without a text/event-stream content type are still read as SSE.
func (a *Adapter) readStream(ctx context.Context, resp *httpclient.StreamResponse, ch chan<- StreamChunk) {
	defer close(ch)
	defer func() { _ = resp.Close() }()

	switch a.dialect.StreamFormat() {
	case StreamSSE:
		reader := resp.SSE
		if reader == nil {
			if resp.Body == nil {
				ch <- StreamChunk{Err: ErrNoStreamBody}
				return
			}
			reader = sse.NewReader(resp.Body)
		}
		a.readSSEStream(ctx, reader, ch)
	case StreamNDJSON:
		if resp.Body == nil {
			ch <- StreamChunk{Err: ErrNoStreamBody}
			return
		}
		a.readNDJSONStream(ctx, resp.Body, ch)
	}
}

func (a *Adapter) readSSEStream(ctx context.Context, reader sse.Reader, ch chan<- StreamChunk) {
	for {
		event, err := reader.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				send(ctx, ch, StreamChunk{Err: err})
			}
			return
		}
		if a.emit(ctx, ch, []byte(event.Data)) {
			return
		}
	}
}

func (a *Adapter) readNDJSONStream(ctx context.Context, body io.Reader, ch chan<- StreamChunk) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxNDJSONLine)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		if a.emit(ctx, ch, line) {
			return
		}
	}
	if err := scanner.Err(); err != nil {
		send(ctx, ch, StreamChunk{Err: err})
	}
}

// emit parses one payload and forwards it. It reports whether reading must stop.
func (a *Adapter) emit(ctx context.Context, ch chan<- StreamChunk, data []byte) bool {
	content, done, err := a.dialect.ParseStreamChunk(data)
	if errors.Is(err, ErrSkipChunk) {
		return false
	}
	if err != nil {
		send(ctx, ch, StreamChunk{Err: err})
		return true
	}
	if content == "" && !done {
		return false
	}
	if !send(ctx, ch, StreamChunk{Content: content, Done: done}) {
		return true
	}
	return done
}

// send delivers chunk unless ctx is cancelled first, in which case it tries
// to deliver ctx.Err() and reports false.
func send(ctx context.Context, ch chan<- StreamChunk, chunk StreamChunk) bool {
	select {
	case ch <- chunk:
		return true
	case <-ctx.Done():
		select {
		case ch <- StreamChunk{Err: ctx.Err()}:
		default:
		}
		return false
	}
}

// Collect drains a stream into one string. It returns the text received so
// far together with the first stream error.
func Collect(ctx context.Context, ch <-chan StreamChunk) (string, error) {
	var b strings.Builder
	for {
		select {
		case chunk, ok := <-ch:
			if !ok {
				return b.String(), nil
			}
			if chunk.Err != nil {
				return b.String(), chunk.Err
			}
			b.WriteString(chunk.Content)
			if chunk.Done {
				return b.String(), nil
			}
		case <-ctx.Done():
			return b.String(), ctx.Err()
		}
	}
}
