// Package engine turns one free-text calendar message into one reply.
//
// Runtime routes by classified intent; Pipeline runs the fixed
// interpret/plan/execute/respond sequence. Both keep all per-request data on
// the stack, so a Handler may serve concurrent requests.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/flitsinc/go-calendar/internal/dates"
	"github.com/flitsinc/go-calendar/internal/extract"
	"github.com/flitsinc/go-calendar/internal/intent"
	"github.com/flitsinc/go-calendar/internal/reqctx"
	"github.com/flitsinc/go-calendar/internal/state"
)

// Handler answers a single message. Handle always returns a reply with
// non-empty text.
type Handler interface {
	Handle(ctx context.Context, message string) Reply
}

type Reply struct {
	RequestID string        `json:"request_id"`
	Intent    intent.Intent `json:"intent,omitempty"`
	Text      string        `json:"reply"`
}

// Stage names the orchestrator states, used in logs.
type Stage string

const (
	StageReceived   Stage = "received"
	StageClassified Stage = "classified"
	StageResolved   Stage = "resolved"
	StageResponded  Stage = "responded"
)

// Answerer answers a free-form question about the calendar.
type Answerer interface {
	Answer(ctx context.Context, question string) (string, error)
}

type AnswererFunc func(ctx context.Context, question string) (string, error)

func (f AnswererFunc) Answer(ctx context.Context, question string) (string, error) {
	return f(ctx, question)
}

// EventWriter is the part of the event store the orchestrator mutates.
type EventWriter interface {
	InsertEvent(ctx context.Context, in state.EventInput) (int64, error)
	DeleteEventsOnDate(ctx context.Context, date string) (int64, error)
}

type Runtime struct {
	Classifier *intent.Classifier
	Extractor  *extract.Extractor
	Dates      *dates.Resolver
	Answerer   Answerer
	Events     EventWriter
	Log        *zap.Logger
	// Now is the reference time for relative dates. Nil means time.Now.
	Now func() time.Time
}

var errNoAnswerer = errors.New("no question answerer configured")

func (r *Runtime) logger() *zap.Logger {
	if r.Log == nil {
		return zap.NewNop()
	}
	return r.Log
}

func (r *Runtime) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

func (r *Runtime) Handle(ctx context.Context, message string) Reply {
	reply := Reply{RequestID: ulid.Make().String()}
	log := r.logger().With(zap.String("request_id", reply.RequestID))
	ctx = reqctx.WithRequestID(ctx, reply.RequestID)
	msg := strings.TrimSpace(message)
	log.Debug("stage", zap.String("stage", string(StageReceived)))

	if msg == "" {
		reply.Intent = intent.Other
		reply.Text = replyEmptyMessage
		return reply
	}

	reply.Intent = r.Classifier.Classify(ctx, msg)
	log.Info("message classified", zap.String("stage", string(StageClassified)), zap.String("intent", reply.Intent.String()))

	switch reply.Intent {
	case intent.Schedule:
		reply.Text = guard(log, "schedule", replyScheduleFailed, func() (string, error) {
			return r.schedule(ctx, msg)
		})
	case intent.Query:
		reply.Text = guard(log, "query", replyQueryFailed, func() (string, error) {
			return r.query(ctx, msg, replyQueryEmpty)
		})
	case intent.Delete:
		reply.Text = guard(log, "delete", replyDeleteFailed, func() (string, error) {
			return r.remove(ctx, log, msg)
		})
	default:
		reply.Text = guard(log, "other", replyHelp, func() (string, error) {
			return r.query(ctx, msg, replyHelp)
		})
	}

	log.Debug("stage", zap.String("stage", string(StageResponded)))
	return reply
}

// guard is the failure boundary around one intent branch. Errors and panics
// are logged and replaced by fallback.
func guard(log *zap.Logger, branch, fallback string, fn func() (string, error)) (text string) {
	defer func() {
		if p := recover(); p != nil {
			log.Error("branch panicked", zap.String("branch", branch), zap.Any("panic", p))
			text = fallback
		}
	}()
	out, err := fn()
	if err != nil {
		log.Error("branch failed", zap.String("branch", branch), zap.Error(err))
		return fallback
	}
	if strings.TrimSpace(out) == "" {
		return fallback
	}
	return out
}

func (r *Runtime) schedule(ctx context.Context, msg string) (string, error) {
	fields, err := r.Extractor.Extract(ctx, msg, r.now())
	if err != nil {
		return "", err
	}
	in, err := fields.EventInput()
	if err != nil {
		return "", err
	}
	id, err := r.Events.InsertEvent(ctx, in)
	if err != nil {
		return "", err
	}
	reqctx.Logger(ctx, r.logger()).Info("event scheduled", zap.Int64("event_id", id), zap.String("start_time", in.StartTime), zap.String("stage", string(StageResolved)))
	return scheduledReply(in), nil
}

func (r *Runtime) query(ctx context.Context, msg, whenEmpty string) (string, error) {
	if r.Answerer == nil {
		return "", errNoAnswerer
	}
	answer, err := r.Answerer.Answer(ctx, msg)
	if err != nil {
		return "", err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return whenEmpty, nil
	}
	return answer, nil
}

func (r *Runtime) remove(ctx context.Context, log *zap.Logger, msg string) (string, error) {
	date, ok, err := r.Dates.Resolve(ctx, msg)
	if err != nil {
		return "", fmt.Errorf("resolve delete date: %w", err)
	}
	if !ok {
		return replyDeleteNoDate, nil
	}
	n, err := r.Events.DeleteEventsOnDate(ctx, date)
	if err != nil {
		return "", err
	}
	log.Info("events deleted", zap.String("date", date), zap.Int64("count", n), zap.String("stage", string(StageResolved)))
	return deletedReply(date, n), nil
}
