package stream

import (
	"sync"

	"github.com/davidbz/hearth/internal/metrics"
	"github.com/davidbz/hearth/internal/observability"
)

// Tracker indexes in-flight sessions by id so an external stop control can
// reach them. Registering an id that is still in use replaces the entry; the
// older session keeps running but is no longer addressable.
type Tracker struct {
	mu       sync.Mutex
	sessions map[string]*Session
	recorder *metrics.Recorder
}

// NewTracker creates an empty tracker.
func NewTracker(recorder *metrics.Recorder) *Tracker {
	return &Tracker{
		sessions: make(map[string]*Session),
		recorder: recorder,
	}
}

// Start registers a new idle session. An empty id gets a generated one.
func (t *Tracker) Start(id string) *Session {
	if id == "" {
		id = observability.GenerateSessionID()
	}

	session := NewSession(id, t.recorder)

	t.mu.Lock()
	t.sessions[id] = session
	t.mu.Unlock()

	return session
}

// Cancel stops the session registered under id. Unknown ids and sessions
// that are not streaming are a no-op.
func (t *Tracker) Cancel(id string) bool {
	t.mu.Lock()
	session, ok := t.sessions[id]
	t.mu.Unlock()

	if !ok {
		return false
	}
	return session.Cancel()
}

// Release removes session if it is still the one registered under its id.
func (t *Tracker) Release(session *Session) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if current, ok := t.sessions[session.ID()]; ok && current == session {
		delete(t.sessions, session.ID())
	}
}

// Len returns the number of registered sessions.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}
