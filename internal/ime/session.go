// Package ime implements the input-method session: double-buffered
// activation state, the local serial counter and the rising-edge trigger
// that starts a dictation.
package ime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/loqalabs/loqa-ime/internal/dictation"
)

// Snapshot is the activation state at one point in time.
type Snapshot struct {
	Active bool
	Serial uint32
}

// Runner executes one dictation with the session's handles.
type Runner interface {
	Run(ctx context.Context, h dictation.Handles, serial uint32)
}

// Dispatcher blocks until the next protocol event has been delivered.
type Dispatcher interface {
	Dispatch() error
}

// Session consumes events on the dispatch goroutine. It is not safe for
// concurrent use.
type Session struct {
	ctx     context.Context
	log     *slog.Logger
	handles dictation.Handles
	runner  Runner

	running     bool
	pending     Snapshot
	current     Snapshot
	contentType ContentType
}

func NewSession(ctx context.Context, handles dictation.Handles, runner Runner, logger *slog.Logger) *Session {
	return &Session{
		ctx:     ctx,
		log:     logger.With(slog.String("component", "ime-session")),
		handles: handles,
		runner:  runner,
		running: true,
	}
}

// Running is false once the compositor reported the input method unavailable.
func (s *Session) Running() bool { return s.running }

// Current returns the last committed snapshot.
func (s *Session) Current() Snapshot { return s.current }

// Pending returns the snapshot accumulating the current batch.
func (s *Session) Pending() Snapshot { return s.pending }

// ContentType returns the last content type the compositor sent.
func (s *Session) ContentType() ContentType { return s.contentType }

// Handle applies ev. Events after Unavailable are dropped.
func (s *Session) Handle(ev Event) {
	if !s.running {
		s.log.Debug("event after unavailable ignored", slog.String("event", ev.eventName()))
		return
	}
	switch e := ev.(type) {
	case Activate:
		s.pending.Active = true
	case Deactivate:
		s.pending.Active = false
	case SurroundingText, TextChangeCause:
	case ContentType:
		s.contentType = e
		s.log.Debug("content type", slog.Any("hint", e.Hint), slog.Any("purpose", e.Purpose))
	case Done:
		s.done()
	case Unavailable:
		s.running = false
		s.log.Info("input method unavailable")
	}
}

func (s *Session) done() {
	s.pending.Serial++
	if s.pending.Active && !s.current.Active {
		s.log.Info("activated", slog.Any("serial", s.pending.Serial))
		s.runner.Run(s.ctx, s.handles, s.pending.Serial)
	}
	s.current = s.pending
}

// Run dispatches until the session stops running. A dispatch failure is
// returned as is; Unavailable returns nil.
func (s *Session) Run(d Dispatcher) error {
	for s.running {
		if err := d.Dispatch(); err != nil {
			return fmt.Errorf("dispatch: %w", err)
		}
	}
	return nil
}
