package engine

import (
	"context"
	"strings"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/flitsinc/go-calendar/internal/agenttools"
	"github.com/flitsinc/go-calendar/internal/intent"
	"github.com/flitsinc/go-calendar/internal/planner"
	"github.com/flitsinc/go-calendar/internal/reqctx"
	"github.com/flitsinc/go-calendar/internal/sqlexec"
)

// Pipeline runs every message through interpret, plan, execute and respond,
// in that order, whatever the intent. A NONE plan skips execution and the
// responder is told nothing ran.
type Pipeline struct {
	Planner *planner.Planner
	SQL     agenttools.Executor
	Log     *zap.Logger
}

func (p *Pipeline) logger() *zap.Logger {
	if p.Log == nil {
		return zap.NewNop()
	}
	return p.Log
}

func (p *Pipeline) Handle(ctx context.Context, message string) Reply {
	reply := Reply{RequestID: ulid.Make().String(), Intent: intent.Other}
	log := p.logger().With(zap.String("request_id", reply.RequestID))
	ctx = reqctx.WithRequestID(ctx, reply.RequestID)
	msg := strings.TrimSpace(message)
	if msg == "" {
		reply.Text = replyEmptyMessage
		return reply
	}

	reply.Text = guard(log, "pipeline", replyPipelineFailed, func() (string, error) {
		in, err := p.Planner.Interpret(ctx, msg)
		if err != nil {
			return "", err
		}
		reply.Intent = in.Intent
		log.Info("message interpreted", zap.String("intent", in.Intent.String()))

		plan, err := p.Planner.Plan(ctx, in)
		if err != nil {
			return "", err
		}

		var result *sqlexec.Result
		if !plan.None {
			res := p.SQL.Execute(ctx, plan.SQL)
			result = &res
			log.Info("plan executed", zap.Bool("success", res.Success), zap.Int64("rows_affected", res.RowsAffected), zap.Int("rows", len(res.Rows)))
		} else {
			log.Info("plan needs no sql")
		}

		text, err := p.Planner.Respond(ctx, msg, in, plan, result)
		if err != nil {
			return "", err
		}
		if text == "" {
			return replyPipelineEmpty, nil
		}
		return text, nil
	})
	return reply
}
