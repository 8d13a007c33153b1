package hostproto

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func echo(_ context.Context, msg string) string { return "echo: " + msg }

func decodeLines(t *testing.T, out string) []map[string]any {
	t.Helper()
	var frames []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		var frame map[string]any
		if err := json.Unmarshal([]byte(line), &frame); err != nil {
			t.Fatalf("decode %q: %v", line, err)
		}
		frames = append(frames, frame)
	}
	return frames
}

func TestServeAnswersEachLine(t *testing.T) {
	in := strings.NewReader(`{"id": 1, "message": "hi"}` + "\n\n   \n" + `{"id": "abc", "message": "what's up"}` + "\n")
	var out bytes.Buffer
	if err := Serve(context.Background(), in, &out, HandlerFunc(echo), nil); err != nil {
		t.Fatalf("serve: %v", err)
	}
	frames := decodeLines(t, out.String())
	if len(frames) != 2 {
		t.Fatalf("expected two frames, got %d: %q", len(frames), out.String())
	}
	if frames[0]["id"] != float64(1) || frames[0]["reply"] != "echo: hi" || frames[0]["error"] != nil {
		t.Fatalf("unexpected first frame %v", frames[0])
	}
	if frames[1]["id"] != "abc" || frames[1]["reply"] != "echo: what's up" {
		t.Fatalf("unexpected second frame %v", frames[1])
	}
	if _, ok := frames[0]["error"]; !ok {
		t.Fatalf("error key should always be present")
	}
}

func TestServeRejectsMalformedLine(t *testing.T) {
	in := strings.NewReader("{not json\n" + `{"id": 7, "message": 42}` + "\n" + `{"message": "still here"}` + "\n")
	var out bytes.Buffer
	if err := Serve(context.Background(), in, &out, HandlerFunc(echo), nil); err != nil {
		t.Fatalf("serve: %v", err)
	}
	frames := decodeLines(t, out.String())
	if len(frames) != 3 {
		t.Fatalf("expected three frames, got %d", len(frames))
	}
	bad := frames[0]
	if bad["id"] != nil || bad["reply"] != nil {
		t.Fatalf("unexpected error frame %v", bad)
	}
	if msg, _ := bad["error"].(string); !strings.HasPrefix(msg, "invalid JSON") {
		t.Fatalf("unexpected error text %q", msg)
	}
	mistyped := frames[1]
	if mistyped["id"] != float64(7) || mistyped["reply"] != nil {
		t.Fatalf("expected the id of a mistyped frame to be kept, got %v", mistyped)
	}
	if msg, _ := mistyped["error"].(string); !strings.Contains(msg, "message must be a string") {
		t.Fatalf("unexpected error text %q", msg)
	}
	if frames[2]["id"] != nil || frames[2]["reply"] != "echo: still here" {
		t.Fatalf("processing should continue after a bad line, got %v", frames[2])
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out bytes.Buffer
	err := Serve(ctx, strings.NewReader(`{"message": "x"}`+"\n"), &out, HandlerFunc(echo), nil)
	if err == nil {
		t.Fatalf("expected context error")
	}
	if out.Len() != 0 {
		t.Fatalf("nothing should be written after cancel")
	}
}
