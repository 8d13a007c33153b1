package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/flitsinc/go-llms/anthropic"
	"github.com/flitsinc/go-llms/content"
	"github.com/flitsinc/go-llms/google"
	"github.com/flitsinc/go-llms/llms"
	"github.com/flitsinc/go-llms/openai"
	llmtools "github.com/flitsinc/go-llms/tools"
	"go.uber.org/zap"
)

// ErrNoCredential means no API key was configured for the provider.
var ErrNoCredential = errors.New("llm api key is required")

type Config struct {
	Provider string
	Model    string
	APIKey   string
	// Timeout bounds every single completion. Zero means no limit.
	Timeout time.Duration
}

// Request is one prompt sent to the model. System may be empty.
type Request struct {
	System string
	Prompt string
}

// Completer returns raw model text. Callers must not assume the text has
// the shape the prompt asked for.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Client talks to a go-llms provider. Each call builds its own llms.LLM so
// concurrent requests never share conversation state.
type Client struct {
	provider llms.Provider
	config   Config
	debug    *logDebugger
}

func NewClient(cfg Config) (*Client, error) {
	provider, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{provider: provider, config: cfg}, nil
}

// WithDebugLog logs every raw request and streamed event to log.
func (c *Client) WithDebugLog(log *zap.Logger) *Client {
	if log != nil {
		c.debug = newLogDebugger(log.Named("llm"), c.config.APIKey)
	}
	return c
}

// NewClientWithProvider wraps an already constructed provider.
func NewClientWithProvider(provider llms.Provider, timeout time.Duration) *Client {
	return &Client{provider: provider, config: Config{Timeout: timeout}}
}

func newProvider(cfg Config) (llms.Provider, error) {
	if cfg.Provider == "" {
		return nil, fmt.Errorf("llm provider is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("llm model is required")
	}
	if cfg.APIKey == "" {
		return nil, ErrNoCredential
	}

	switch cfg.Provider {
	case "openai-responses":
		return openai.NewResponsesAPI(cfg.APIKey, cfg.Model), nil
	case "openai-chat":
		return openai.NewChatCompletionsAPI(cfg.APIKey, cfg.Model), nil
	case "anthropic":
		model := anthropic.New(cfg.APIKey, resolveModelAlias(cfg.Provider, cfg.Model))
		model.WithMaxTokens(4096)
		return model, nil
	case "google":
		return google.New(cfg.Model).WithGeminiAPI(cfg.APIKey), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}

func resolveModelAlias(provider, model string) string {
	alias := strings.ToLower(strings.TrimSpace(model))
	if alias == "" {
		return model
	}
	if provider == "anthropic" {
		switch alias {
		case "fast":
			return "claude-3-5-haiku-latest"
		case "balanced":
			return "claude-3-5-sonnet-latest"
		}
	}
	return model
}

func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	return c.Run(ctx, req)
}

// Run sends req and lets the model call tools until it produces a final
// text answer. The concatenated text output is returned untrimmed.
func (c *Client) Run(ctx context.Context, req Request, tools ...llmtools.Tool) (string, error) {
	if c == nil || c.provider == nil {
		return "", errors.New("client is nil")
	}
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	var llm *llms.LLM
	if len(tools) > 0 {
		llm = llms.New(c.provider, tools...)
	} else {
		llm = llms.New(c.provider)
	}
	if c.debug != nil {
		llm.WithDebugger(c.debug)
	}
	if system := strings.TrimSpace(req.System); system != "" {
		llm.SystemPrompt = func() content.Content { return content.FromText(system) }
	}

	updates := llm.ChatUsingMessages(ctx, []llms.Message{
		{Role: "user", Content: content.FromText(req.Prompt)},
	})
	var sb strings.Builder
	for update := range updates {
		if textUpdate, ok := update.(llms.TextUpdate); ok {
			sb.WriteString(textUpdate.Text)
		}
	}
	if err := llm.Err(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Unavailable is the Completer used when no client could be built. Every
// call fails with Err.
type Unavailable struct {
	Err error
}

func (u Unavailable) Complete(context.Context, Request) (string, error) {
	if u.Err == nil {
		return "", ErrNoCredential
	}
	return "", u.Err
}

func (u Unavailable) Run(ctx context.Context, req Request, _ ...llmtools.Tool) (string, error) {
	return u.Complete(ctx, req)
}
