package planner_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/flitsinc/go-calendar/internal/intent"
	"github.com/flitsinc/go-calendar/internal/planner"
	"github.com/flitsinc/go-calendar/internal/sqlexec"
	"github.com/flitsinc/go-calendar/internal/testutil"
)

func fixedClock() time.Time {
	return time.Date(2025, 12, 10, 8, 30, 0, 0, time.Local)
}

func TestParsePlan(t *testing.T) {
	cases := []struct {
		in   string
		sql  string
		none bool
	}{
		{"NONE", "", true},
		{"none.", "", true},
		{"", "", true},
		{"   \n", "", true},
		{"SELECT * FROM events;", "SELECT * FROM events;", false},
		{"```sql\nSELECT * FROM events\n```", "SELECT * FROM events", false},
		{"```\nDELETE FROM events WHERE id = 3\n```", "DELETE FROM events WHERE id = 3", false},
		{"```SELECT 1```", "SELECT 1", false},
	}
	for _, tc := range cases {
		got := planner.ParsePlan(tc.in)
		if got.None != tc.none || got.SQL != tc.sql {
			t.Fatalf("ParsePlan(%q) = %+v, want sql=%q none=%v", tc.in, got, tc.sql, tc.none)
		}
	}
	if planner.ParsePlan("NONE").String() != planner.NoSQL {
		t.Fatalf("expected no-op plan to render as NONE")
	}
}

func TestInterpretDecodesJSON(t *testing.T) {
	script := testutil.NewScript(`Here you go: {"intent": "Delete", "date": "2025-12-07"}`)
	p := planner.New(script, nil, nil).WithClock(fixedClock)
	in, err := p.Interpret(context.Background(), "remove all events on December 7th")
	if err != nil {
		t.Fatalf("interpret: %v", err)
	}
	if in.Intent != intent.Delete {
		t.Fatalf("expected delete intent, got %q", in.Intent)
	}
	if !strings.Contains(in.Text(), `"date": "2025-12-07"`) {
		t.Fatalf("expected fields in text, got %q", in.Text())
	}
	req := script.Requests()[0]
	if !strings.Contains(req.System, "Today is 2025-12-10, the time is 08:30, the year is 2025.") {
		t.Fatalf("expected date context, got %q", req.System)
	}
}

func TestInterpretKeepsRawText(t *testing.T) {
	p := planner.New(testutil.NewScript("the user is saying hello"), nil, nil)
	in, err := p.Interpret(context.Background(), "hi")
	if err != nil {
		t.Fatalf("interpret: %v", err)
	}
	if in.Intent != intent.Other || in.Fields != nil || in.Text() != "the user is saying hello" {
		t.Fatalf("unexpected interpretation %+v", in)
	}
}

func TestPlanIncludesSchema(t *testing.T) {
	script := testutil.NewScript("```sql\nSELECT title FROM events WHERE date(start_time) = '2025-12-11'\n```")
	p := planner.New(script, nil, nil).WithClock(fixedClock)
	plan, err := p.Plan(context.Background(), planner.Interpretation{Raw: `{"intent":"query"}`})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan.None || !strings.HasPrefix(plan.SQL, "SELECT title") {
		t.Fatalf("unexpected plan %+v", plan)
	}
	if !strings.Contains(script.Requests()[0].Prompt, "CREATE TABLE IF NOT EXISTS events") {
		t.Fatalf("expected schema in planner prompt")
	}
}

func TestRespondPassesNoSQLThrough(t *testing.T) {
	script := testutil.NewScript("  Hi! Ask me about your calendar.  ")
	p := planner.New(script, nil, nil)
	reply, err := p.Respond(context.Background(), "hello", planner.Interpretation{Raw: "greeting"}, planner.Plan{None: true}, nil)
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if reply != "Hi! Ask me about your calendar." {
		t.Fatalf("unexpected reply %q", reply)
	}
	prompt := script.Requests()[0].Prompt
	if !strings.Contains(prompt, "SQL plan: NONE") || !strings.Contains(prompt, "no SQL was needed") {
		t.Fatalf("expected no-op signal in responder prompt, got %q", prompt)
	}
}

func TestRespondIncludesResult(t *testing.T) {
	script := testutil.NewScript("Removed 2 events.")
	p := planner.New(script, nil, nil)
	res := &sqlexec.Result{Success: true, SQL: "DELETE FROM events", RowsAffected: 2}
	if _, err := p.Respond(context.Background(), "clear", planner.Interpretation{}, planner.Plan{SQL: res.SQL}, res); err != nil {
		t.Fatalf("respond: %v", err)
	}
	if !strings.Contains(script.Requests()[0].Prompt, `"rows_affected":2`) {
		t.Fatalf("expected execution result in prompt, got %q", script.Requests()[0].Prompt)
	}
}
