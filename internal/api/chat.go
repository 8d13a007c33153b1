package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/flitsinc/go-calendar/internal/hostproto"
)

type chatRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.Chat == nil {
		writeError(w, http.StatusServiceUnavailable, errNotFound("chat handler"))
		return
	}
	var req chatRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Chat.Handle(r.Context(), req.Message))
}

// handleChatWS speaks the host line protocol over a websocket: each text
// message is one request frame and gets exactly one response frame.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	if s.Chat == nil {
		writeError(w, http.StatusServiceUnavailable, errNotFound("chat handler"))
		return
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closed")

	if err := s.serveChat(r.Context(), conn); err != nil {
		status := websocket.CloseStatus(err)
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
			_ = conn.Close(websocket.StatusNormalClosure, "done")
			return
		}
		s.logger().Warn("chat websocket closed", zap.Error(err))
		_ = conn.Close(websocket.StatusInternalError, "chat error")
		return
	}
	_ = conn.Close(websocket.StatusNormalClosure, "done")
}

type wsConn interface {
	Read(ctx context.Context) (websocket.MessageType, []byte, error)
	Write(ctx context.Context, msgType websocket.MessageType, data []byte) error
}

func (s *Server) serveChat(ctx context.Context, conn wsConn) error {
	handler := hostproto.HandlerFunc(func(ctx context.Context, msg string) string {
		return s.Chat.Handle(ctx, msg).Text
	})
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		req, bad := hostproto.Decode(data)
		resp := bad
		if resp == nil {
			answered := hostproto.Answer(ctx, handler, req)
			resp = &answered
		}
		payload, err := resp.Encode()
		if err != nil {
			return err
		}
		if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
			return err
		}
	}
}
