package api

import (
	"net/http"
	"runtime"
	"time"
)

type DiagnosticsInfo struct {
	HTTPAddr      string `json:"http_addr"`
	DBPath        string `json:"db_path"`
	Mode          string `json:"mode"`
	LLMProvider   string `json:"llm_provider"`
	LLMModel      string `json:"llm_model"`
	LLMConfigured bool   `json:"llm_configured"`
}

type DiagnosticsResponse struct {
	Time          time.Time       `json:"time"`
	StartedAt     time.Time       `json:"started_at"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	GoVersion     string          `json:"go_version"`
	Info          DiagnosticsInfo `json:"info"`
	Events        map[string]any  `json:"events"`
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	started := s.StartedAt
	if started.IsZero() {
		started = now
	}
	resp := DiagnosticsResponse{
		Time:          now,
		StartedAt:     started,
		UptimeSeconds: int64(now.Sub(started).Seconds()),
		GoVersion:     runtime.Version(),
		Info:          s.Info,
		Events:        map[string]any{},
	}
	if s.Events != nil {
		if all, err := s.Events.AllEvents(r.Context()); err == nil {
			resp.Events["count"] = len(all)
		} else {
			resp.Events["error"] = err.Error()
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
