// Package planner implements the stages of the fixed calendar pipeline:
// interpret the request, plan one SQL statement, and phrase the reply.
// Execution between planning and replying belongs to the SQL gateway.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/flitsinc/go-calendar/internal/ai"
	"github.com/flitsinc/go-calendar/internal/extract"
	"github.com/flitsinc/go-calendar/internal/intent"
	"github.com/flitsinc/go-calendar/internal/prompt"
	"github.com/flitsinc/go-calendar/internal/sqlexec"
	"github.com/flitsinc/go-calendar/internal/state"
)

// NoSQL is the planner's "no statement needed" marker.
const NoSQL = "NONE"

// Interpretation is the NLU stage output. Raw always holds what the model
// said; Fields is set only when the reply contained a JSON object.
type Interpretation struct {
	Intent intent.Intent
	Fields map[string]any
	Raw    string
}

// Text is the form handed to later stages.
func (in Interpretation) Text() string {
	if in.Fields == nil {
		return strings.TrimSpace(in.Raw)
	}
	data, err := json.MarshalIndent(in.Fields, "", "  ")
	if err != nil {
		return strings.TrimSpace(in.Raw)
	}
	return string(data)
}

// Plan is one SQL statement or the explicit no-op.
type Plan struct {
	SQL  string
	None bool
}

func (p Plan) String() string {
	if p.None {
		return NoSQL
	}
	return p.SQL
}

// ParsePlan strips markdown fences from a planner reply. An empty reply or
// a reply starting with NONE is the no-op plan.
func ParsePlan(reply string) Plan {
	text := strings.TrimSpace(reply)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if nl := strings.IndexByte(text, '\n'); nl >= 0 {
			first := strings.TrimSpace(text[:nl])
			if first == "" || !strings.ContainsAny(first, " (") {
				text = text[nl+1:]
			}
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Plan{None: true}
	}
	first := strings.Trim(strings.ToUpper(strings.Fields(text)[0]), " .;:!")
	if first == NoSQL {
		return Plan{None: true}
	}
	return Plan{SQL: text}
}

type Planner struct {
	llm     ai.Completer
	prompts *prompt.Catalog
	log     *zap.Logger
	now     func() time.Time
}

func New(llm ai.Completer, prompts *prompt.Catalog, log *zap.Logger) *Planner {
	if prompts == nil {
		prompts = prompt.Default()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Planner{llm: llm, prompts: prompts, log: log, now: time.Now}
}

func (p *Planner) WithClock(now func() time.Time) *Planner {
	p.now = now
	return p
}

func (p *Planner) vars(extra map[string]string) map[string]string {
	now := p.now()
	vars := map[string]string{
		"today":    now.Format("2006-01-02"),
		"now_time": now.Format("15:04"),
		"year":     now.Format("2006"),
	}
	for k, v := range extra {
		vars[k] = v
	}
	return vars
}

func (p *Planner) complete(ctx context.Context, name string, vars map[string]string) (string, error) {
	req, err := p.prompts.Render(name, p.vars(vars))
	if err != nil {
		return "", err
	}
	reply, err := p.llm.Complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return reply, nil
}

// Interpret is the NLU stage.
func (p *Planner) Interpret(ctx context.Context, message string) (Interpretation, error) {
	reply, err := p.complete(ctx, prompt.InterpretUserQuery, map[string]string{"message": message})
	if err != nil {
		return Interpretation{}, err
	}
	in := Interpretation{Intent: intent.Other, Raw: reply}
	var fields map[string]any
	if err := extract.DecodeJSON(reply, &fields); err == nil {
		in.Fields = fields
		if v, ok := fields["intent"].(string); ok {
			in.Intent = intent.Parse(v)
		}
	} else {
		p.log.Debug("interpretation is not JSON, passing raw text", zap.Error(err))
	}
	return in, nil
}

// Plan is the planner stage.
func (p *Planner) Plan(ctx context.Context, in Interpretation) (Plan, error) {
	reply, err := p.complete(ctx, prompt.PlanSQLForIntent, map[string]string{
		"interpretation": in.Text(),
		"schema":         strings.TrimSpace(state.Schema()),
	})
	if err != nil {
		return Plan{}, err
	}
	plan := ParsePlan(reply)
	p.log.Debug("sql planned", zap.String("plan", plan.String()))
	return plan, nil
}

// Respond is the responder stage. A nil result means nothing was executed
// because the plan was the no-op.
func (p *Planner) Respond(ctx context.Context, message string, in Interpretation, plan Plan, result *sqlexec.Result) (string, error) {
	resultText := "not executed: no SQL was needed for this request"
	if result != nil {
		data, err := json.Marshal(result)
		if err != nil {
			return "", fmt.Errorf("encode execution result: %w", err)
		}
		resultText = string(data)
	}
	reply, err := p.complete(ctx, prompt.RespondToUser, map[string]string{
		"message":        message,
		"interpretation": in.Text(),
		"sql":            plan.String(),
		"result":         resultText,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}
