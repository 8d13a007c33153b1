// Package extract turns a scheduling request into event fields.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/flitsinc/go-calendar/internal/ai"
	"github.com/flitsinc/go-calendar/internal/prompt"
	"github.com/flitsinc/go-calendar/internal/state"
)

var (
	ErrNoJSON       = errors.New("model reply contains no JSON object")
	ErrMissingField = errors.New("model reply is missing a required field")
)

// Fields is the structured description requested from the model. Times are
// HH:MM in 24-hour form; nil means the model left them out.
type Fields struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
	StartTime   *string `json:"start_time"`
	EndTime     *string `json:"end_time"`
	AllDay      bool    `json:"all_day"`
	Location    string  `json:"location"`
}

type Extractor struct {
	llm     ai.Completer
	prompts *prompt.Catalog
	log     *zap.Logger
}

func NewExtractor(llm ai.Completer, prompts *prompt.Catalog, log *zap.Logger) *Extractor {
	if prompts == nil {
		prompts = prompt.Default()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{llm: llm, prompts: prompts, log: log}
}

// Extract asks the model for event fields relative to ref. A zero ref
// means now.
func (e *Extractor) Extract(ctx context.Context, message string, ref time.Time) (Fields, error) {
	if ref.IsZero() {
		ref = time.Now()
	}
	req, err := e.prompts.Render(prompt.ExtractEvent, map[string]string{
		"message": message,
		"today":   ref.Format("2006-01-02"),
	})
	if err != nil {
		return Fields{}, err
	}
	reply, err := e.llm.Complete(ctx, req)
	if err != nil {
		return Fields{}, fmt.Errorf("extract event: %w", err)
	}
	var fields Fields
	if err := DecodeJSON(reply, &fields); err != nil {
		return Fields{}, fmt.Errorf("extract event: %w", err)
	}
	e.log.Debug("event extracted", zap.String("title", fields.Title), zap.String("date", fields.Date), zap.Bool("all_day", fields.AllDay))
	return fields, nil
}

// DecodeJSON pulls the first JSON object out of a model reply, tolerating
// markdown fences and chatter around it.
func DecodeJSON(reply string, dest any) error {
	text := strings.TrimSpace(reply)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return ErrNoJSON
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), dest); err != nil {
		return fmt.Errorf("decode model json: %w", err)
	}
	return nil
}

const isoLayout = "2006-01-02T15:04:05"

// EventInput composes store fields. All-day events span the whole date;
// otherwise the date and HH:MM times are joined as local ISO-8601 with
// seconds. A missing end time defaults to one hour after the start; an end
// time earlier than the start falls on the next day.
func (f Fields) EventInput() (state.EventInput, error) {
	title := strings.TrimSpace(f.Title)
	date := strings.TrimSpace(f.Date)
	if title == "" {
		return state.EventInput{}, fmt.Errorf("%w: title", ErrMissingField)
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return state.EventInput{}, fmt.Errorf("%w: date %q", ErrMissingField, f.Date)
	}

	in := state.EventInput{
		Title:       title,
		Description: strings.TrimSpace(f.Description),
		AllDay:      f.AllDay,
		Location:    strings.TrimSpace(f.Location),
	}
	if f.AllDay {
		in.StartTime = date + "T00:00:00"
		in.EndTime = date + "T23:59:59"
		return in, nil
	}

	start, ok := clock(f.StartTime)
	if !ok {
		return state.EventInput{}, fmt.Errorf("%w: start_time", ErrMissingField)
	}
	in.StartTime = date + "T" + start + ":00"

	startAt, _ := time.Parse(isoLayout, in.StartTime)
	if end, ok := clock(f.EndTime); ok {
		endAt, _ := time.Parse(isoLayout, date+"T"+end+":00")
		if endAt.Before(startAt) {
			endAt = endAt.AddDate(0, 0, 1)
		}
		in.EndTime = endAt.Format(isoLayout)
	} else {
		in.EndTime = startAt.Add(time.Hour).Format(isoLayout)
	}
	return in, nil
}

func clock(v *string) (string, bool) {
	if v == nil {
		return "", false
	}
	s := strings.TrimSpace(*v)
	t, err := time.Parse("15:04", s)
	if err != nil {
		return "", false
	}
	return t.Format("15:04"), true
}
