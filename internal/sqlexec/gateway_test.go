package sqlexec_test

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/flitsinc/go-calendar/internal/sqlexec"
	"github.com/flitsinc/go-calendar/internal/state"
	"github.com/flitsinc/go-calendar/internal/testutil"
)

func newGateway(t *testing.T) (*sqlexec.Gateway, *state.Store) {
	t.Helper()
	db, closeFn := testutil.OpenTestDB(t)
	t.Cleanup(closeFn)
	store := state.NewStore(db)
	return sqlexec.NewGateway(db, store.WriteLock(), nil), store
}

func TestExecuteWriteThenRead(t *testing.T) {
	gw, _ := newGateway(t)
	ctx := context.Background()

	res := gw.Execute(ctx, `INSERT INTO events (title, description, start_time, end_time, all_day, location)
VALUES ('Manual test event', '', '2025-12-11T11:00:00', '2025-12-11T12:00:00', 0, '')`)
	if !res.Success {
		t.Fatalf("insert failed: %s", res.Error)
	}
	if res.RowsAffected != 1 {
		t.Fatalf("expected 1 row affected, got %d", res.RowsAffected)
	}
	if res.Rows != nil {
		t.Fatalf("expected no rows for a write")
	}

	res = gw.Execute(ctx, "  select title, all_day FROM events ORDER BY rowid DESC LIMIT 5;")
	if !res.Success {
		t.Fatalf("select failed: %s", res.Error)
	}
	if res.RowsAffected != 0 {
		t.Fatalf("expected 0 rows affected for a read, got %d", res.RowsAffected)
	}
	if len(res.Rows) != 1 || res.Rows[0]["title"] != "Manual test event" {
		t.Fatalf("unexpected rows: %#v", res.Rows)
	}
}

func TestExecuteNeverRaises(t *testing.T) {
	gw, _ := newGateway(t)
	cases := []string{
		"SELEC * FRM events",
		"SELECT * FROM no_such_table",
		"INSERT INTO events (title) VALUES ('missing times')",
		"DROP TABLE",
		"",
		"   ",
	}
	for _, stmt := range cases {
		res := gw.Execute(context.Background(), stmt)
		if res.Success {
			t.Fatalf("expected failure for %q", stmt)
		}
		if strings.TrimSpace(res.Error) == "" {
			t.Fatalf("expected error text for %q", stmt)
		}
		if res.SQL != stmt {
			t.Fatalf("expected sql echoed back for %q, got %q", stmt, res.SQL)
		}
	}
}

func TestExecuteDeleteReportsAffected(t *testing.T) {
	gw, store := newGateway(t)
	ctx := context.Background()
	for _, start := range []string{"2025-12-07T09:00:00", "2025-12-07T15:00:00"} {
		if _, err := store.InsertEvent(ctx, state.EventInput{Title: "x", StartTime: start, EndTime: start}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	res := gw.Execute(ctx, "DELETE FROM events WHERE date(start_time) = '2025-12-07'")
	if !res.Success || res.RowsAffected != 2 {
		t.Fatalf("expected 2 deleted, got %+v", res)
	}
}

func TestResultJSONShape(t *testing.T) {
	gw, _ := newGateway(t)
	ctx := context.Background()

	read := gw.Execute(ctx, "SELECT * FROM events")
	data, err := json.Marshal(read)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var payload map[string]any
	_ = json.Unmarshal(data, &payload)
	rows, ok := payload["rows"].([]any)
	if !ok || len(rows) != 0 {
		t.Fatalf("expected empty rows array for read, got %s", data)
	}
	if _, ok := payload["error"]; ok {
		t.Fatalf("unexpected error key: %s", data)
	}

	failed := gw.Execute(ctx, "garbage")
	data, _ = json.Marshal(failed)
	payload = map[string]any{}
	_ = json.Unmarshal(data, &payload)
	if payload["success"] != false || payload["error"] == "" {
		t.Fatalf("unexpected failure payload: %s", data)
	}
	if _, ok := payload["rows"]; ok {
		t.Fatalf("expected rows to be absent on failure: %s", data)
	}
}

func TestIsRead(t *testing.T) {
	if !sqlexec.IsRead("\n  select 1") {
		t.Fatalf("expected lowercase select to be a read")
	}
	if sqlexec.IsRead("WITH x AS (SELECT 1) SELECT * FROM x") {
		t.Fatalf("only the SELECT prefix counts as a read")
	}
	if sqlexec.IsRead("UPDATE events SET title = 'x'") {
		t.Fatalf("update is a write")
	}
}

func TestWritesWaitForStoreLock(t *testing.T) {
	gw, store := newGateway(t)
	ctx := context.Background()

	lock := store.WriteLock()
	lock.Lock()
	done := make(chan sqlexec.Result, 1)
	go func() {
		done <- gw.Execute(ctx, "DELETE FROM events")
	}()
	select {
	case res := <-done:
		lock.Unlock()
		t.Fatalf("write ran while the store lock was held: %+v", res)
	case <-time.After(100 * time.Millisecond):
	}

	read := gw.Execute(ctx, "SELECT count(*) AS n FROM events")
	if !read.Success {
		t.Fatalf("reads must not wait for the write lock: %s", read.Error)
	}

	lock.Unlock()
	select {
	case res := <-done:
		if !res.Success {
			t.Fatalf("delete failed: %s", res.Error)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("write never ran after the lock was released")
	}
}

func TestConcurrentStoreAndGatewayWrites(t *testing.T) {
	gw, store := newGateway(t)
	ctx := context.Background()

	const n = 20
	for i := 0; i < n; i++ {
		start := fmt.Sprintf("2025-12-07T%02d:00:00", i)
		if _, err := store.InsertEvent(ctx, state.EventInput{Title: "old", StartTime: start, EndTime: start}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	var wg sync.WaitGroup
	errs := make(chan error, 2*n)
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			start := fmt.Sprintf("2025-12-08T%02d:00:00", i)
			if _, err := store.InsertEvent(ctx, state.EventInput{Title: "new", StartTime: start, EndTime: start}); err != nil {
				errs <- err
			}
		}(i)
		go func(i int) {
			defer wg.Done()
			stmt := fmt.Sprintf("DELETE FROM events WHERE start_time = '2025-12-07T%02d:00:00'", i)
			if res := gw.Execute(ctx, stmt); !res.Success || res.RowsAffected != 1 {
				errs <- fmt.Errorf("%s: %+v", stmt, res)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent write: %v", err)
	}

	events, err := store.AllEvents(ctx)
	if err != nil {
		t.Fatalf("all events: %v", err)
	}
	if len(events) != n {
		t.Fatalf("expected %d events, got %d", n, len(events))
	}
	for _, ev := range events {
		if ev.Title != "new" {
			t.Fatalf("unexpected survivor %+v", ev)
		}
	}
}
