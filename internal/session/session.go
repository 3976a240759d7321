// Package session keeps the working state of every connected user. A Session serializes the state
// transitions of one user; the Manager creates sessions on demand, restoring them from the snapshot store.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/MegaGrindStone/docchat-web-ui/internal/state"
)

// Store persists state snapshots per user.
type Store interface {
	LoadState(ctx context.Context, userID string) (state.State, bool, error)
	SaveState(ctx context.Context, userID string, st state.State) error
}

// Session is the working state of one user.
type Session struct {
	userID string

	mu sync.Mutex
	st state.State
}

// UserID returns the id of the user owning the session.
func (s *Session) UserID() string {
	return s.userID
}

// State returns the current state.
func (s *Session) State() state.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.st
}

// Apply runs a transition against the current state. The state is replaced only when the transition
// succeeds; the returned state is the one in effect after the call.
func (s *Session) Apply(fn func(state.State) (state.State, error)) (state.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(s.st)
	if err != nil {
		return s.st, err
	}
	s.st = next
	return s.st, nil
}

// Update runs a transition that cannot fail.
func (s *Session) Update(fn func(state.State) state.State) state.State {
	st, _ := s.Apply(func(st state.State) (state.State, error) {
		return fn(st), nil
	})
	return st
}

// Manager owns the sessions of all users.
type Manager struct {
	store Store

	mu       sync.Mutex
	sessions map[string]*Session

	logger *slog.Logger
}

// NewManager creates a Manager persisting snapshots to store.
func NewManager(store Store, logger *slog.Logger) *Manager {
	return &Manager{
		store:    store,
		sessions: make(map[string]*Session),
		logger:   logger.With(slog.String("module", "session")),
	}
}

// Get returns the session of a user, restoring it from the store on first use.
func (m *Manager) Get(ctx context.Context, userID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sess, ok := m.sessions[userID]; ok {
		return sess, nil
	}

	st, found, err := m.store.LoadState(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}
	if found {
		st = st.Restore()
	} else {
		st = state.New()
	}

	sess := &Session{userID: userID, st: st}
	m.sessions[userID] = sess
	m.logger.Debug("Session opened", slog.String("userID", userID), slog.Bool("restored", found))
	return sess, nil
}

// Save persists the current state of a session.
func (m *Manager) Save(ctx context.Context, sess *Session) error {
	if err := m.store.SaveState(ctx, sess.userID, sess.State()); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

// SaveAll persists every open session. It is called on shutdown.
func (m *Manager) SaveAll(ctx context.Context) error {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		sessions = append(sessions, sess)
	}
	m.mu.Unlock()

	for _, sess := range sessions {
		if err := m.Save(ctx, sess); err != nil {
			return err
		}
	}
	return nil
}
