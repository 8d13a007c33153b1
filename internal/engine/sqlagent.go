package engine

import (
	"context"
	"strings"
	"time"

	llmtools "github.com/flitsinc/go-llms/tools"
	"go.uber.org/zap"

	"github.com/flitsinc/go-calendar/internal/agenttools"
	"github.com/flitsinc/go-calendar/internal/ai"
	agentprompt "github.com/flitsinc/go-calendar/internal/prompt"
	"github.com/flitsinc/go-calendar/internal/state"
)

// ToolRunner is a model that can call tools before answering.
type ToolRunner interface {
	Run(ctx context.Context, req ai.Request, tools ...llmtools.Tool) (string, error)
}

// SQLAgent answers calendar questions by letting the model query the store
// through the SQL gateway.
type SQLAgent struct {
	llm     ToolRunner
	sql     agenttools.Executor
	prompts *agentprompt.Catalog
	log     *zap.Logger
	now     func() time.Time
}

func NewSQLAgent(llm ToolRunner, sql agenttools.Executor, prompts *agentprompt.Catalog, log *zap.Logger) *SQLAgent {
	if prompts == nil {
		prompts = agentprompt.Default()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SQLAgent{llm: llm, sql: sql, prompts: prompts, log: log, now: time.Now}
}

func (a *SQLAgent) WithClock(now func() time.Time) *SQLAgent {
	a.now = now
	return a
}

func (a *SQLAgent) Answer(ctx context.Context, question string) (string, error) {
	now := a.now()
	req, err := a.prompts.Render(agentprompt.AnswerQuestion, map[string]string{
		"message":  question,
		"today":    now.Format("2006-01-02"),
		"now_time": now.Format("15:04"),
	})
	if err != nil {
		return "", err
	}
	req.System = agentprompt.NewBuilder().
		Add(agentprompt.Block{ID: "instructions", Priority: 100, Content: req.System}).
		Add(agentprompt.Block{ID: "schema", Priority: 50, Content: "Database schema:\n" + strings.TrimSpace(state.Schema())}).
		Build()

	answer, err := a.llm.Run(ctx, req, agenttools.RunSQLTool(a.sql), agenttools.DescribeSchemaTool(a.sql))
	if err != nil {
		return "", err
	}
	answer = strings.TrimSpace(answer)
	a.log.Debug("question answered", zap.Int("answer_len", len(answer)))
	return answer, nil
}
