package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/flitsinc/go-calendar/internal/engine"
	"github.com/flitsinc/go-calendar/internal/state"
)

// EventStore is the part of the event store the API reads and edits.
type EventStore interface {
	AllEvents(ctx context.Context) ([]state.Event, error)
	EventsBetween(ctx context.Context, startISO, endISO string) ([]state.Event, error)
	GetEvent(ctx context.Context, id int64) (state.Event, error)
	InsertEvent(ctx context.Context, in state.EventInput) (int64, error)
	UpdateEvent(ctx context.Context, id int64, in state.EventInput) error
	DeleteEvent(ctx context.Context, id int64) error
}

type Server struct {
	Chat      engine.Handler
	Events    EventStore
	Log       *zap.Logger
	StartedAt time.Time
	Info      DiagnosticsInfo
	// Static, when set, serves everything outside the API routes.
	Static http.Handler
}

// Handler returns the routed API wrapped in a CORS layer that accepts any
// origin.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/chat", s.handleChat).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/chat", s.handleChat).Methods(http.MethodPost)
	api.HandleFunc("/chat/ws", s.handleChatWS).Methods(http.MethodGet)
	api.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)
	api.HandleFunc("/events", s.handleCreateEvent).Methods(http.MethodPost)
	api.HandleFunc("/events/{id:[0-9]+}", s.handleGetEvent).Methods(http.MethodGet)
	api.HandleFunc("/events/{id:[0-9]+}", s.handleUpdateEvent).Methods(http.MethodPut)
	api.HandleFunc("/events/{id:[0-9]+}", s.handleDeleteEvent).Methods(http.MethodDelete)
	api.HandleFunc("/diagnostics", s.handleDiagnostics).Methods(http.MethodGet)

	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeMethodNotAllowed(w)
	})
	if s.Static != nil {
		r.PathPrefix("/").Handler(s.Static)
	} else {
		r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusNotFound, errNotFound("route"))
		})
	}

	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}).Handler(r)
}

func (s *Server) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "time": time.Now().UTC()})
}

func decodeJSON(body io.Reader, dest any) error {
	dec := json.NewDecoder(body)
	if err := dec.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
}

type notFoundError struct {
	msg string
}

func (e notFoundError) Error() string { return e.msg }

func errNotFound(target string) error {
	return notFoundError{msg: target + " not found"}
}
