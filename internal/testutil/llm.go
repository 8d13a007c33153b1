package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/flitsinc/go-calendar/internal/ai"
)

// ErrScriptExhausted is returned once a Script has no replies left.
var ErrScriptExhausted = errors.New("scripted completer exhausted")

type Reply struct {
	Text string
	Err  error
}

// Script is a Completer that hands out canned replies in order and records
// every request it saw.
type Script struct {
	mu       sync.Mutex
	replies  []Reply
	requests []ai.Request
}

func NewScript(texts ...string) *Script {
	s := &Script{}
	for _, text := range texts {
		s.replies = append(s.replies, Reply{Text: text})
	}
	return s
}

func (s *Script) Then(reply Reply) *Script {
	s.mu.Lock()
	s.replies = append(s.replies, reply)
	s.mu.Unlock()
	return s
}

func (s *Script) Complete(_ context.Context, req ai.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if len(s.replies) == 0 {
		return "", ErrScriptExhausted
	}
	next := s.replies[0]
	s.replies = s.replies[1:]
	return next.Text, next.Err
}

func (s *Script) Requests() []ai.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ai.Request, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *Script) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.replies)
}
