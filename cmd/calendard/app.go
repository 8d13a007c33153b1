package main

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/flitsinc/go-calendar/internal/ai"
	"github.com/flitsinc/go-calendar/internal/config"
	"github.com/flitsinc/go-calendar/internal/dates"
	"github.com/flitsinc/go-calendar/internal/engine"
	"github.com/flitsinc/go-calendar/internal/extract"
	"github.com/flitsinc/go-calendar/internal/intent"
	"github.com/flitsinc/go-calendar/internal/logging"
	"github.com/flitsinc/go-calendar/internal/planner"
	"github.com/flitsinc/go-calendar/internal/prompt"
	"github.com/flitsinc/go-calendar/internal/sqlexec"
	"github.com/flitsinc/go-calendar/internal/state"
)

// app holds what every subcommand needs: configuration, the logger and
// the open store.
type app struct {
	cfg   config.Config
	log   *zap.Logger
	db    *sql.DB
	store *state.Store
}

func openApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	db, err := state.Open(cfg.DBPath)
	if err != nil {
		_ = log.Sync()
		return nil, fmt.Errorf("open db: %w", err)
	}
	log.Debug("store opened", zap.String("db_path", cfg.DBPath))
	return &app{cfg: cfg, log: log, db: db, store: state.NewStore(db)}, nil
}

func (a *app) Close() {
	_ = a.db.Close()
	_ = a.log.Sync()
}

// llm is either a live client or ai.Unavailable.
type llm interface {
	ai.Completer
	engine.ToolRunner
}

// model reads the credential and builds the client. A missing credential
// is not fatal: the assistant keeps answering with its fixed apologies.
func (a *app) model(ctx context.Context) (llm, bool) {
	key, err := ai.LoadAPIKey(ctx, a.store, a.cfg.APIKeySetting, a.cfg.LLMAPIKey)
	if err != nil {
		a.log.Warn("language model disabled, no API key found",
			zap.String("setting", a.cfg.APIKeySetting), zap.Error(err))
		return ai.Unavailable{Err: err}, false
	}
	client, err := ai.NewClient(ai.Config{
		Provider: a.cfg.LLMProvider,
		Model:    a.cfg.LLMModel,
		APIKey:   key,
		Timeout:  a.cfg.LLMTimeout,
	})
	if err != nil {
		a.log.Warn("language model disabled", zap.Error(err))
		return ai.Unavailable{Err: err}, false
	}
	if a.cfg.LLMDebug {
		client.WithDebugLog(a.log)
	}
	return client, true
}

func (a *app) prompts() (*prompt.Catalog, error) {
	if a.cfg.PromptsPath == "" {
		return prompt.Default(), nil
	}
	catalog, err := prompt.Load(a.cfg.PromptsPath)
	if err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	return catalog, nil
}

// gateway returns the SQL gateway over the store. It shares the store's
// write lock so model-generated writes never interleave with store writes.
func (a *app) gateway() *sqlexec.Gateway {
	return sqlexec.NewGateway(a.db, a.store.WriteLock(), a.log.Named("sql"))
}

// handler builds the orchestrator for the configured mode.
func (a *app) handler(ctx context.Context) (engine.Handler, bool, error) {
	prompts, err := a.prompts()
	if err != nil {
		return nil, false, err
	}
	model, ok := a.model(ctx)
	gateway := a.gateway()

	if a.cfg.Mode == config.ModePipeline {
		return &engine.Pipeline{
			Planner: planner.New(model, prompts, a.log.Named("planner")),
			SQL:     gateway,
			Log:     a.log,
		}, ok, nil
	}
	return &engine.Runtime{
		Classifier: intent.NewClassifier(model, prompts, a.log.Named("intent")),
		Extractor:  extract.NewExtractor(model, prompts, a.log.Named("extract")),
		Dates:      dates.NewResolver(model, prompts, a.log.Named("dates")),
		Answerer:   engine.NewSQLAgent(model, gateway, prompts, a.log.Named("sqlagent")),
		Events:     a.store,
		Log:        a.log,
	}, ok, nil
}
