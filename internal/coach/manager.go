package coach

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/chess-coach/internal/sessionstore"
)

// Manager owns the live sessions of the process.
type Manager struct {
	deps Deps
	log  *zap.Logger

	mu       sync.Mutex
	sessions map[string]*managedSession

	stop     chan struct{}
	stopOnce sync.Once
}

type managedSession struct {
	s       *Session
	touched time.Time
}

func NewManager(deps Deps) *Manager {
	deps = deps.withDefaults()
	m := &Manager{
		deps:     deps,
		log:      deps.Logger,
		sessions: make(map[string]*managedSession),
		stop:     make(chan struct{}),
	}
	if deps.IdleTTL > 0 {
		go m.janitor(deps.IdleTTL)
	}
	return m
}

func sweepInterval(ttl time.Duration) time.Duration {
	iv := ttl / 4
	if iv > time.Minute {
		iv = time.Minute
	}
	if iv < time.Second {
		iv = time.Second
	}
	return iv
}

func (m *Manager) janitor(ttl time.Duration) {
	t := time.NewTicker(sweepInterval(ttl))
	defer t.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-t.C:
			if n := m.Sweep(ttl); n > 0 {
				m.log.Info("sessions_evicted", zap.Int("count", n))
			}
		}
	}
}

// Sweep closes sessions untouched for longer than ttl and returns how many it dropped.
// Sessions with a live event stream count as in use. Their snapshots stay in the store
// so a late request can still restore them.
func (m *Manager) Sweep(ttl time.Duration) int {
	cutoff := m.deps.Now().Add(-ttl)
	var idle []*Session

	m.mu.Lock()
	for id, e := range m.sessions {
		if e.touched.After(cutoff) {
			continue
		}
		if e.s.watched() {
			e.touched = m.deps.Now()
			continue
		}
		delete(m.sessions, id)
		idle = append(idle, e.s)
	}
	m.mu.Unlock()

	for _, s := range idle {
		s.Close()
		m.log.Debug("session_evicted", zap.String("session_id", s.ID()))
	}
	return len(idle)
}

// Create registers a new idle session.
func (m *Manager) Create() *Session {
	s := NewSession(uuid.NewString(), m.deps)
	m.mu.Lock()
	m.sessions[s.ID()] = &managedSession{s: s, touched: m.deps.Now()}
	m.mu.Unlock()
	m.log.Info("session_created", zap.String("session_id", s.ID()))
	return s
}

// Get returns a live session, restoring it from the snapshot store when the
// process no longer holds it.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	id = strings.TrimSpace(id)
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrSessionNotFound
	}
	m.mu.Lock()
	if e, ok := m.sessions[id]; ok {
		e.touched = m.deps.Now()
		m.mu.Unlock()
		return e.s, nil
	}
	m.mu.Unlock()

	if m.deps.Store == nil {
		return nil, ErrSessionNotFound
	}
	snap, err := m.deps.Store.Load(ctx, id)
	if errors.Is(err, sessionstore.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	s := NewSession(id, m.deps)
	if err := s.restore(snap); err != nil {
		m.log.Warn("session_restore_failed", zap.String("session_id", id), zap.Error(err))
		s.Close()
		return nil, err
	}

	m.mu.Lock()
	// another request may have restored it first
	if e, ok := m.sessions[id]; ok {
		e.touched = m.deps.Now()
		m.mu.Unlock()
		s.Close()
		return e.s, nil
	}
	m.sessions[id] = &managedSession{s: s, touched: m.deps.Now()}
	m.mu.Unlock()

	s.resume()
	return s, nil
}

// Remove ends the match, drops its snapshot and forgets the session.
func (m *Manager) Remove(id string) bool {
	m.mu.Lock()
	e, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return false
	}
	s := e.s
	s.EndMatch()
	s.Close()
	return true
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close stops every session and waits for in-flight work to settle or ctx to end.
func (m *Manager) Close(ctx context.Context) error {
	m.stopOnce.Do(func() { close(m.stop) })

	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for _, e := range m.sessions {
		all = append(all, e.s)
	}
	m.sessions = make(map[string]*managedSession)
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		for _, s := range all {
			s.Close()
			s.Wait()
		}
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
