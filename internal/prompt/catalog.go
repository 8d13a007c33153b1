// Package prompt holds the prompt catalogue used by every model call and a
// small builder for composing multi-part prompts.
package prompt

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/flitsinc/go-calendar/internal/ai"
)

const (
	ClassifyIntent     = "classify_intent"
	ResolveDeleteDate  = "resolve_delete_date"
	ExtractEvent       = "extract_event"
	AnswerQuestion     = "answer_question"
	InterpretUserQuery = "interpret_user_query"
	PlanSQLForIntent   = "plan_sql_for_intent"
	RespondToUser      = "respond_to_user"
)

//go:embed prompts.yaml
var defaultCatalog []byte

type Template struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

type Catalog struct {
	Prompts map[string]Template `yaml:"prompts"`
}

var loadDefault = sync.OnceValues(func() (*Catalog, error) {
	return Parse(defaultCatalog)
})

// Default returns the embedded catalogue.
func Default() *Catalog {
	c, err := loadDefault()
	if err != nil {
		panic(fmt.Sprintf("embedded prompt catalogue: %v", err))
	}
	return c
}

func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse prompt catalogue: %w", err)
	}
	if c.Prompts == nil {
		c.Prompts = map[string]Template{}
	}
	return &c, nil
}

// Load reads an override file and lays it over the embedded catalogue.
// Prompts missing from the file keep their defaults.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt catalogue: %w", err)
	}
	override, err := Parse(data)
	if err != nil {
		return nil, err
	}
	merged := &Catalog{Prompts: map[string]Template{}}
	for name, tpl := range Default().Prompts {
		merged.Prompts[name] = tpl
	}
	for name, tpl := range override.Prompts {
		merged.Prompts[name] = tpl
	}
	return merged, nil
}

// Render fills {key} placeholders in the named template.
func (c *Catalog) Render(name string, vars map[string]string) (ai.Request, error) {
	if c == nil {
		c = Default()
	}
	tpl, ok := c.Prompts[name]
	if !ok {
		return ai.Request{}, fmt.Errorf("unknown prompt %q", name)
	}
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	r := strings.NewReplacer(pairs...)
	return ai.Request{
		System: strings.TrimSpace(r.Replace(tpl.System)),
		Prompt: strings.TrimSpace(r.Replace(tpl.User)),
	}, nil
}
