package chat

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/a-h/revchat/models"
	"github.com/a-h/revchat/stream"
)

// Poster sends a chat request and streams the response text to f.
type Poster interface {
	ChatPost(ctx context.Context, req models.ChatRequest, f stream.Sink) (string, error)
}

// Session runs chat requests one at a time. Starting a request cancels the
// one before it.
type Session struct {
	log    *slog.Logger
	poster Poster

	m       sync.Mutex
	cancel  context.CancelFunc
	current int
}

func NewSession(log *slog.Logger, poster Poster) *Session {
	return &Session{
		log:    log,
		poster: poster,
	}
}

// Submit sends req and reports progress to dispatch as ChunkReceived events,
// followed by exactly one of Completed, Failed or Cancelled. It returns when
// the request has finished.
func (s *Session) Submit(ctx context.Context, requestID int, req models.ChatRequest, dispatch func(Event)) {
	ctx, cancel := s.begin(ctx, requestID)
	s.run(ctx, cancel, requestID, req, dispatch)
}

// Start is Submit without waiting. The request can be cancelled as soon as
// Start returns.
func (s *Session) Start(ctx context.Context, requestID int, req models.ChatRequest, dispatch func(Event)) {
	ctx, cancel := s.begin(ctx, requestID)
	go s.run(ctx, cancel, requestID, req, dispatch)
}

func (s *Session) begin(ctx context.Context, requestID int) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	s.m.Lock()
	defer s.m.Unlock()
	if s.cancel != nil {
		s.log.Info("cancelling superseded request", slog.Int("requestID", s.current))
		s.cancel()
	}
	s.cancel = cancel
	s.current = requestID
	return ctx, cancel
}

func (s *Session) run(ctx context.Context, cancel context.CancelFunc, requestID int, req models.ChatRequest, dispatch func(Event)) {
	defer func() {
		s.m.Lock()
		if s.current == requestID {
			s.cancel = nil
		}
		s.m.Unlock()
		cancel()
	}()

	log := s.log.With(slog.Int("requestID", requestID))
	log.Info("submitting chat request", slog.String("model", req.Model))

	f := func(ctx context.Context, text string) error {
		dispatch(ChunkReceived{RequestID: requestID, Text: text})
		return nil
	}
	text, err := s.poster.ChatPost(ctx, req, f)
	if err == nil && ctx.Err() != nil {
		// The poster finished without noticing the cancellation.
		err = ctx.Err()
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info("chat request cancelled")
			dispatch(Cancelled{RequestID: requestID})
			return
		}
		log.Error("chat request failed", slog.Any("error", err))
		dispatch(Failed{RequestID: requestID, Err: err})
		return
	}
	log.Info("chat request complete", slog.Int("length", len(text)))
	dispatch(Completed{RequestID: requestID, Text: text})
}

// Cancel aborts the request in flight, if there is one.
func (s *Session) Cancel() {
	s.m.Lock()
	defer s.m.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
