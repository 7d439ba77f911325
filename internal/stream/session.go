package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/davidbz/hearth/internal/domain"
	"github.com/davidbz/hearth/internal/metrics"
	"github.com/davidbz/hearth/internal/observability"
)

// State is a session's position in its lifecycle.
type State int

// Session states. Finished, Errored and Cancelled are terminal.
const (
	StateIdle State = iota
	StateStreaming
	StateFinished
	StateErrored
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateFinished:
		return "finished"
	case StateErrored:
		return "errored"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateFinished || s == StateErrored || s == StateCancelled
}

// Callbacks receive a session's output. OnFinish fires once on natural end,
// [DONE] or cancellation; OnError fires once on failure. Nil callbacks are skipped.
type Callbacks struct {
	OnDelta  func(domain.ChatDelta)
	OnFinish func()
	OnError  func(error)
}

// Opener starts the upstream call and returns its body. It must honour ctx.
type Opener func(ctx context.Context) (io.ReadCloser, error)

// Session is one streaming request. Sessions share no state with each other.
type Session struct {
	id       string
	recorder *metrics.Recorder

	mu      sync.Mutex
	state   State
	cancel  context.CancelFunc
	stopped atomic.Bool

	// deliver is held across the stop check and OnDelta.
	deliver sync.Mutex
}

// NewSession creates an idle session.
func NewSession(id string, recorder *metrics.Recorder) *Session {
	return &Session{
		id:       id,
		recorder: recorder,
		state:    StateIdle,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Cancel stops an in-flight session. The pending read is aborted and OnFinish
// still runs. Once Cancel returns true no further delta is delivered: a
// delivery already in progress is waited for. Cancelling a session that is
// not streaming is a no-op; the return value reports whether it took effect.
//
// Cancel must not be called from inside a callback; use Stop there.
func (s *Session) Cancel() bool {
	if !s.Stop() {
		return false
	}

	s.deliver.Lock()
	//nolint:staticcheck // Empty critical section waits out an in-flight delivery.
	s.deliver.Unlock()
	return true
}

// Stop is Cancel without waiting for an in-flight delivery. It is the form to
// use from inside OnDelta, where the delivery being waited for is the caller's own.
func (s *Session) Stop() bool {
	s.mu.Lock()
	if s.state != StateStreaming {
		s.mu.Unlock()
		return false
	}
	s.stopped.Store(true)
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	return true
}

// Run opens the stream and delivers deltas in wire order until the stream
// ends, fails or is cancelled. It blocks until a terminal state is reached
// and returns it. A session runs at most once.
func (s *Session) Run(ctx context.Context, open Opener, cb Callbacks) State {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.state != StateIdle {
		state := s.state
		s.mu.Unlock()
		return state
	}
	s.state = StateStreaming
	s.cancel = cancel
	s.mu.Unlock()

	s.recorder.SessionStarted()
	ctx = observability.WithSessionID(ctx, s.id)
	logger := observability.FromContext(ctx)
	logger.Debug("stream session started")

	body, err := open(runCtx)
	if err != nil {
		if s.interrupted(runCtx) {
			return s.finish(ctx, StateCancelled, cb, nil)
		}
		logger.Warn("stream open failed", observability.Error(err))
		return s.finish(ctx, StateErrored, cb, err)
	}
	defer func() {
		_ = body.Close()
	}()

	// Closing the body unblocks a pending read as soon as the session is cancelled.
	stop := context.AfterFunc(runCtx, func() {
		_ = body.Close()
	})
	defer stop()

	events := NewEventReader(body)
	for {
		if s.interrupted(runCtx) {
			return s.finish(ctx, StateCancelled, cb, nil)
		}

		event, err := events.Next()
		if err != nil {
			if s.interrupted(runCtx) {
				return s.finish(ctx, StateCancelled, cb, nil)
			}
			if errors.Is(err, io.EOF) {
				return s.finish(ctx, StateFinished, cb, nil)
			}
			logger.Warn("stream read failed", observability.Error(err))
			return s.finish(ctx, StateErrored, cb, fmt.Errorf("failed to read stream: %w", err))
		}

		if event.IsDone() {
			return s.finish(ctx, StateFinished, cb, nil)
		}

		content, err := ParseDelta(event.Payload)
		if err != nil {
			s.recorder.ParseErrorSkipped()
			logger.Warn("skipping malformed stream event", observability.Error(err))
			continue
		}

		if content == "" {
			continue
		}

		if !s.deliverDelta(runCtx, cb, content) {
			return s.finish(ctx, StateCancelled, cb, nil)
		}
	}
}

// deliverDelta hands one delta to OnDelta unless the session was stopped.
func (s *Session) deliverDelta(ctx context.Context, cb Callbacks, content string) bool {
	s.deliver.Lock()
	defer s.deliver.Unlock()

	if s.interrupted(ctx) {
		return false
	}

	if cb.OnDelta != nil {
		cb.OnDelta(domain.ChatDelta{Content: content})
	}
	s.recorder.DeltaDelivered()
	return true
}

func (s *Session) interrupted(ctx context.Context) bool {
	return s.stopped.Load() || ctx.Err() != nil
}

// finish records the terminal state, then runs the matching callback outside the lock.
func (s *Session) finish(ctx context.Context, state State, cb Callbacks, err error) State {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	s.recorder.SessionEnded(state.String())

	observability.FromContext(ctx).Debug("stream session ended", observability.String("state", state.String()))

	switch state {
	case StateErrored:
		if cb.OnError != nil {
			cb.OnError(err)
		}
	case StateFinished, StateCancelled:
		if cb.OnFinish != nil {
			cb.OnFinish()
		}
	case StateIdle, StateStreaming:
	}

	return state
}
