package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/flitsinc/go-calendar/internal/state"
)

const eventTimeLayout = "2006-01-02T15:04:05"

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.Events == nil {
		writeError(w, http.StatusServiceUnavailable, errNotFound("event store"))
		return
	}
	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")
	if (start == "") != (end == "") {
		writeError(w, http.StatusBadRequest, errors.New("start and end must be given together"))
		return
	}

	var err error
	var events []state.Event
	if start == "" {
		events, err = s.Events.AllEvents(r.Context())
	} else {
		events, err = s.Events.EventsBetween(r.Context(), start, end)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := s.eventID(w, r)
	if !ok {
		return
	}
	ev, err := s.Events.GetEvent(r.Context(), id)
	if err != nil {
		writeEventError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	if s.Events == nil {
		writeError(w, http.StatusServiceUnavailable, errNotFound("event store"))
		return
	}
	in, ok := decodeEventInput(w, r)
	if !ok {
		return
	}
	id, err := s.Events.InsertEvent(r.Context(), in)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.logger().Info("event created", zap.Int64("event_id", id))
	s.writeEvent(w, r, http.StatusCreated, id)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := s.eventID(w, r)
	if !ok {
		return
	}
	in, ok := decodeEventInput(w, r)
	if !ok {
		return
	}
	if err := s.Events.UpdateEvent(r.Context(), id, in); err != nil {
		writeEventError(w, err)
		return
	}
	s.logger().Info("event updated", zap.Int64("event_id", id))
	s.writeEvent(w, r, http.StatusOK, id)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := s.eventID(w, r)
	if !ok {
		return
	}
	if err := s.Events.DeleteEvent(r.Context(), id); err != nil {
		writeEventError(w, err)
		return
	}
	s.logger().Info("event deleted", zap.Int64("event_id", id))
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

func (s *Server) eventID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	if s.Events == nil {
		writeError(w, http.StatusServiceUnavailable, errNotFound("event store"))
		return 0, false
	}
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid event id: %w", err))
		return 0, false
	}
	return id, true
}

// writeEvent answers with the stored row so clients see the timestamps.
func (s *Server) writeEvent(w http.ResponseWriter, r *http.Request, status int, id int64) {
	ev, err := s.Events.GetEvent(r.Context(), id)
	if err != nil {
		writeEventError(w, err)
		return
	}
	writeJSON(w, status, ev)
}

func writeEventError(w http.ResponseWriter, err error) {
	if errors.Is(err, state.ErrEventNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeError(w, http.StatusInternalServerError, err)
}

func decodeEventInput(w http.ResponseWriter, r *http.Request) (state.EventInput, bool) {
	var in state.EventInput
	if err := decodeJSON(r.Body, &in); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return in, false
	}
	if err := validateEventInput(&in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return in, false
	}
	return in, true
}

func validateEventInput(in *state.EventInput) error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return errors.New("title is required")
	}
	start, err := time.Parse(eventTimeLayout, in.StartTime)
	if err != nil {
		return fmt.Errorf("start_time must look like %s", eventTimeLayout)
	}
	end, err := time.Parse(eventTimeLayout, in.EndTime)
	if err != nil {
		return fmt.Errorf("end_time must look like %s", eventTimeLayout)
	}
	if end.Before(start) {
		return errors.New("end_time is before start_time")
	}
	return nil
}
