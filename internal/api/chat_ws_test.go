package api

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
)

func TestChatWebsocketFrames(t *testing.T) {
	server, _, _ := newTestServer(t)
	httpServer := httptest.NewServer(server.Handler())
	defer httpServer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(httpServer.URL, "http")+"/api/chat/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	exchange := func(frame string) map[string]any {
		t.Helper()
		if err := conn.Write(ctx, websocket.MessageText, []byte(frame)); err != nil {
			t.Fatalf("write: %v", err)
		}
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var out map[string]any
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatalf("decode %q: %v", data, err)
		}
		return out
	}

	out := exchange(`{"id": 7, "message": "lunch?"}`)
	if out["id"] != float64(7) || out["reply"] != "you said lunch?" || out["error"] != nil {
		t.Fatalf("unexpected frame %v", out)
	}

	out = exchange(`not json`)
	if out["id"] != nil || out["reply"] != nil {
		t.Fatalf("unexpected error frame %v", out)
	}
	if msg, _ := out["error"].(string); !strings.HasPrefix(msg, "invalid JSON") {
		t.Fatalf("unexpected error %q", msg)
	}
}

type scriptedConn struct {
	in      [][]byte
	written [][]byte
}

func (c *scriptedConn) Read(ctx context.Context) (websocket.MessageType, []byte, error) {
	if len(c.in) == 0 {
		return 0, nil, context.Canceled
	}
	next := c.in[0]
	c.in = c.in[1:]
	return websocket.MessageText, next, nil
}

func (c *scriptedConn) Write(_ context.Context, _ websocket.MessageType, data []byte) error {
	c.written = append(c.written, data)
	return nil
}

func TestServeChatAnswersInOrder(t *testing.T) {
	server, _, chat := newTestServer(t)
	conn := &scriptedConn{in: [][]byte{
		[]byte(`{"id": "a", "message": "one"}`),
		[]byte(`{"id": "b", "message": "two"}`),
	}}
	err := server.serveChat(context.Background(), conn)
	if err != context.Canceled {
		t.Fatalf("expected read error to end the loop, got %v", err)
	}
	if len(conn.written) != 2 {
		t.Fatalf("expected two frames, got %d", len(conn.written))
	}
	if !strings.Contains(string(conn.written[1]), `"id":"b"`) {
		t.Fatalf("unexpected second frame %s", conn.written[1])
	}
	if strings.Join(chat.seen, ",") != "one,two" {
		t.Fatalf("unexpected handled messages %v", chat.seen)
	}
}
