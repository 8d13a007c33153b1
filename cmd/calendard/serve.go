package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/flitsinc/go-calendar/internal/api"
	"github.com/flitsinc/go-calendar/internal/web"
)

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat and events HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()
			if addr != "" {
				a.cfg.HTTPAddr = addr
			}
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides CALENDAR_HTTP_ADDR)")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	chat, llmReady, err := a.handler(ctx)
	if err != nil {
		return err
	}
	apiServer := &api.Server{
		Chat:      chat,
		Events:    a.store,
		Log:       a.log.Named("api"),
		StartedAt: time.Now().UTC(),
		Info: api.DiagnosticsInfo{
			HTTPAddr:      a.cfg.HTTPAddr,
			DBPath:        a.cfg.DBPath,
			Mode:          a.cfg.Mode,
			LLMProvider:   a.cfg.LLMProvider,
			LLMModel:      a.cfg.LLMModel,
			LLMConfigured: llmReady,
		},
	}
	if a.cfg.WebDir != "" {
		apiServer.Static = (&web.Server{Dir: a.cfg.WebDir}).Handler()
	}

	listener, err := net.Listen("tcp", a.cfg.HTTPAddr)
	if err != nil {
		return err
	}
	serverCtx, serverCancel := context.WithCancel(context.Background())
	defer serverCancel()
	httpServer := &http.Server{
		Handler:           loggingMiddleware(a.log, apiServer.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return serverCtx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("calendard listening", zap.String("addr", listener.Addr().String()), zap.String("mode", a.cfg.Mode))
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	serverCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		a.log.Warn("server shutdown error", zap.Error(err))
	}
	_ = httpServer.Close()
	return nil
}

func loggingMiddleware(log *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Info("http request", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Duration("elapsed", time.Since(start)))
	})
}
