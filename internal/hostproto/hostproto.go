// Package hostproto is the line protocol a host application speaks to the
// assistant: one JSON request object per line in, one response object per
// line out. The same frames travel over the chat websocket.
package hostproto

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// maxLine bounds a single request line.
const maxLine = 1 << 20

// Request is one inbound frame. ID is echoed back untouched and may be any
// JSON value.
type Request struct {
	ID      json.RawMessage `json:"id,omitempty"`
	Message string          `json:"message"`
}

// Response always carries all three keys; exactly one of Reply and Error is
// non-null.
type Response struct {
	ID    json.RawMessage `json:"id"`
	Reply *string         `json:"reply"`
	Error *string         `json:"error"`
}

// Handler produces the reply text for one message.
type Handler interface {
	Reply(ctx context.Context, message string) string
}

type HandlerFunc func(ctx context.Context, message string) string

func (f HandlerFunc) Reply(ctx context.Context, message string) string { return f(ctx, message) }

var nullID = json.RawMessage("null")

// Decode parses one frame. On failure the returned Response is the error
// frame to send back. Once the line is a JSON object its id is kept, so
// a frame with a bad field still gets an error correlated to it.
func Decode(line []byte) (Request, *Response) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(line, &fields); err != nil {
		return Request{}, Failure(nil, fmt.Sprintf("invalid JSON: %v", err))
	}
	req := Request{ID: fields["id"]}
	if raw, ok := fields["message"]; ok {
		if err := json.Unmarshal(raw, &req.Message); err != nil {
			return Request{}, Failure(req.ID, "invalid JSON: message must be a string")
		}
	}
	return req, nil
}

// Answer runs handler for req and wraps the text into a response frame.
func Answer(ctx context.Context, handler Handler, req Request) Response {
	text := handler.Reply(ctx, req.Message)
	return Response{ID: normalizeID(req.ID), Reply: &text}
}

// Encode renders the frame without a trailing newline.
func (r Response) Encode() ([]byte, error) {
	return json.Marshal(r)
}

func Failure(id json.RawMessage, msg string) *Response {
	return &Response{ID: normalizeID(id), Error: &msg}
}

func normalizeID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return nullID
	}
	return id
}

// Serve reads requests from r until EOF or ctx is done, writing one
// response line per non-blank input line to w. Requests are handled one at
// a time, in order.
func Serve(ctx context.Context, r io.Reader, w io.Writer, handler Handler, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
	out := &lineWriter{w: w}

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		req, bad := Decode([]byte(line))
		if bad != nil {
			log.Warn("rejected malformed request line", zap.String("error", *bad.Error))
			if err := out.write(*bad); err != nil {
				return err
			}
			continue
		}
		resp := Answer(ctx, handler, req)
		if err := out.write(resp); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read requests: %w", err)
	}
	return nil
}

type lineWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lineWriter) write(resp Response) error {
	data, err := resp.Encode()
	if err != nil {
		return err
	}
	data = append(data, '\n')
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.w.Write(data); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}
