// Package intent maps a user message to one of a closed set of intents.
package intent

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/flitsinc/go-calendar/internal/ai"
	"github.com/flitsinc/go-calendar/internal/prompt"
)

type Intent string

const (
	Schedule Intent = "schedule"
	Query    Intent = "query"
	Delete   Intent = "delete"
	Other    Intent = "other"
)

func (i Intent) String() string { return string(i) }

// Parse reads the first whitespace-delimited token of a model reply. Any
// token outside the four known intents, including an empty reply, is Other.
func Parse(reply string) Intent {
	fields := strings.Fields(reply)
	if len(fields) == 0 {
		return Other
	}
	token := strings.Trim(strings.ToLower(fields[0]), " .,:;!?")
	switch Intent(token) {
	case Schedule, Query, Delete, Other:
		return Intent(token)
	default:
		return Other
	}
}

type Classifier struct {
	llm     ai.Completer
	prompts *prompt.Catalog
	log     *zap.Logger
}

func NewClassifier(llm ai.Completer, prompts *prompt.Catalog, log *zap.Logger) *Classifier {
	if prompts == nil {
		prompts = prompt.Default()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Classifier{llm: llm, prompts: prompts, log: log}
}

// Classify never fails: model errors and off-list replies degrade to Other.
func (c *Classifier) Classify(ctx context.Context, message string) Intent {
	req, err := c.prompts.Render(prompt.ClassifyIntent, map[string]string{"message": message})
	if err != nil {
		c.log.Error("render intent prompt", zap.Error(err))
		return Other
	}
	reply, err := c.llm.Complete(ctx, req)
	if err != nil {
		c.log.Warn("intent classification failed", zap.Error(err))
		return Other
	}
	got := Parse(reply)
	c.log.Debug("intent classified", zap.String("intent", got.String()), zap.String("raw", reply))
	return got
}
