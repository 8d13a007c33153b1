// Package dates resolves the calendar day a delete request refers to.
package dates

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/flitsinc/go-calendar/internal/ai"
	"github.com/flitsinc/go-calendar/internal/prompt"
)

const Layout = "2006-01-02"

// Parse validates a model reply. It returns the date and true only when the
// reply (spaces removed) starts with DDDD-DD-DD. NONE, empty and anything
// else is unresolved; nothing is guessed.
func Parse(reply string) (string, bool) {
	text := strings.ReplaceAll(strings.TrimSpace(reply), " ", "")
	if strings.HasPrefix(strings.ToUpper(text), "NONE") {
		return "", false
	}
	if len(text) < 10 || text[4] != '-' || text[7] != '-' {
		return "", false
	}
	for i := 0; i < 10; i++ {
		if i == 4 || i == 7 {
			continue
		}
		if text[i] < '0' || text[i] > '9' {
			return "", false
		}
	}
	return text[:10], true
}

type Resolver struct {
	llm     ai.Completer
	prompts *prompt.Catalog
	log     *zap.Logger
	now     func() time.Time
}

func NewResolver(llm ai.Completer, prompts *prompt.Catalog, log *zap.Logger) *Resolver {
	if prompts == nil {
		prompts = prompt.Default()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{llm: llm, prompts: prompts, log: log, now: time.Now}
}

// WithClock fixes the reference date used in the prompt.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.now = now
	return r
}

// Resolve returns the targeted date, or ok=false when none can be pinned
// down. A model failure is reported as err with ok=false.
func (r *Resolver) Resolve(ctx context.Context, message string) (date string, ok bool, err error) {
	req, err := r.prompts.Render(prompt.ResolveDeleteDate, map[string]string{
		"message": message,
		"today":   r.now().Format(Layout),
	})
	if err != nil {
		return "", false, err
	}
	reply, err := r.llm.Complete(ctx, req)
	if err != nil {
		return "", false, err
	}
	date, ok = Parse(reply)
	r.log.Debug("delete date resolved", zap.String("raw", reply), zap.String("date", date), zap.Bool("ok", ok))
	return date, ok, nil
}
