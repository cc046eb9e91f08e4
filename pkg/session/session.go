// Package session implements the Session Manager: a registry of live
// InterviewContexts keyed by session id, one mutex per session so a single
// turn serializes mutation while other sessions proceed independently, idle
// eviction, and a grace period for reading completed sessions.
package session

import (
	"sync"
	"time"

	"github.com/lattice-hire/interviewer/pkg/apperrors"
	"github.com/lattice-hire/interviewer/pkg/interview"
)

// entry bundles a context with the mutex that serializes turns against it.
type entry struct {
	mu  sync.Mutex
	ctx *interview.Context
}

// Manager is the process-wide Session Registry — the only shared mutable
// store in the engine.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*entry

	idleTimeout   time.Duration
	completeGrace time.Duration
}

// New builds a Manager. idleTimeout evicts any session untouched for that
// long; completeGrace extends the eviction deadline for sessions that
// reached stage=complete, so status reads still succeed briefly afterward.
func New(idleTimeout, completeGrace time.Duration) *Manager {
	return &Manager{
		sessions:      make(map[string]*entry),
		idleTimeout:   idleTimeout,
		completeGrace: completeGrace,
	}
}

// Create registers a freshly started context under its session id.
func (m *Manager) Create(ctx *interview.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[ctx.SessionID] = &entry{ctx: ctx}
}

// Snapshot returns a deep copy of the session's context for read-only
// endpoints, without taking the per-session turn lock for longer than the
// copy itself. The lock is the one WithLock holds for a whole turn, so a
// Snapshot waits for an in-flight turn to finish. It fails if the session
// is unknown or has expired.
func (m *Manager) Snapshot(sessionID string) (*interview.Context, error) {
	e, err := m.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ctx.Clone(), nil
}

// WithLock runs fn against a working copy of the session's context while
// holding that session's exclusive turn lock, then — only if fn succeeds —
// commits the mutation by replacing the stored context with the working
// copy. On error the stored context is left untouched (rollback
// semantics: a turn that fails, e.g. on LLMFailure, persists nothing).
func (m *Manager) WithLock(sessionID string, fn func(working *interview.Context) error) (*interview.Context, error) {
	e, err := m.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ctx.Stage == interview.StageComplete {
		return nil, apperrors.ErrSessionComplete
	}

	working := e.ctx.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}

	e.ctx = working
	return working.Clone(), nil
}

// lookup resolves a session id, enforcing idle/grace expiry.
func (m *Manager) lookup(sessionID string) (*entry, error) {
	m.mu.RLock()
	e, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, apperrors.ErrSessionUnknown
	}

	e.mu.Lock()
	expired := m.isExpired(e.ctx)
	e.mu.Unlock()
	if expired {
		m.mu.Lock()
		delete(m.sessions, sessionID)
		m.mu.Unlock()
		return nil, apperrors.ErrSessionExpired
	}

	return e, nil
}

func (m *Manager) isExpired(ctx *interview.Context) bool {
	deadline := m.idleTimeout
	if ctx.Stage == interview.StageComplete {
		deadline += m.completeGrace
	}
	if deadline <= 0 {
		return false
	}
	return time.Since(ctx.LastTouched) > deadline
}

// Sweep evicts every session idle past its deadline. Callers may run this
// periodically; it is also applied lazily on lookup.
func (m *Manager) Sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, e := range m.sessions {
		e.mu.Lock()
		expired := m.isExpired(e.ctx)
		e.mu.Unlock()
		if expired {
			delete(m.sessions, id)
		}
	}
}

// Count reports the number of live sessions, mainly for diagnostics.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
