// Package session maps client connections to player actors. It owns the
// join and leave lifecycle and forwards decoded input to the engine.
package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"hellscape/internal/game"
	"hellscape/internal/game/spatial"
)

var (
	// ErrServerFull is returned by Join when the player cap is reached.
	ErrServerFull = errors.New("server is full")
	// ErrUnknownSession is returned for ids that never joined or already left.
	ErrUnknownSession = errors.New("unknown session")
	// ErrActorGone is returned when the engine no longer knows the actor.
	ErrActorGone = errors.New("actor no longer exists")
)

// Engine is the slice of the simulation the session layer drives.
type Engine interface {
	RegisterPlayerWithInventory(pos spatial.Vec2) int32
	RemovePlayerActor(id int32) bool
	ApplyForActor(id int32, cmd game.InputCommand)
	TryGetActorState(id int32) (game.ActorState, bool)
}

// Session is one connected client.
type Session struct {
	ID         string    `json:"id"`
	ActorID    int32     `json:"actorId"`
	RemoteAddr string    `json:"remoteAddr"`
	JoinedAt   time.Time `json:"joinedAt"`
	LastInput  time.Time `json:"lastInput"`
	Inputs     uint64    `json:"inputs"`
}

// Options configures a Manager.
type Options struct {
	Spawn      spatial.Vec2
	MaxPlayers int // 0 means unlimited
	Logger     zerolog.Logger
	Now        func() time.Time
}

// Manager tracks sessions. Safe for concurrent use.
type Manager struct {
	mu       sync.RWMutex
	engine   Engine
	spawn    spatial.Vec2
	max      int
	sessions map[string]*Session
	byActor  map[int32]string

	logger zerolog.Logger
	now    func() time.Time
}

// NewManager creates a Manager driving engine.
func NewManager(engine Engine, opts Options) *Manager {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		engine:   engine,
		spawn:    opts.Spawn,
		max:      opts.MaxPlayers,
		sessions: make(map[string]*Session),
		byActor:  make(map[int32]string),
		logger:   opts.Logger.With().Str("component", "session").Logger(),
		now:      now,
	}
}

// Join spawns a player with the base inventory at the spawn point.
func (m *Manager) Join(remoteAddr string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.max > 0 && len(m.sessions) >= m.max {
		return Session{}, ErrServerFull
	}

	actorID := m.engine.RegisterPlayerWithInventory(m.spawn)
	s := &Session{
		ID:         uuid.NewString(),
		ActorID:    actorID,
		RemoteAddr: remoteAddr,
		JoinedAt:   m.now(),
	}
	m.sessions[s.ID] = s
	m.byActor[actorID] = s.ID

	m.logger.Info().
		Str("session", s.ID).
		Int32("actor", actorID).
		Str("remote", remoteAddr).
		Int("sessions", len(m.sessions)).
		Msg("player joined")
	return *s, nil
}

// Leave removes the session and its actor.
func (m *Manager) Leave(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("leave %s: %w", id, ErrUnknownSession)
	}
	m.drop(s)
	m.logger.Info().Str("session", id).Int32("actor", s.ActorID).Msg("player left")
	return nil
}

func (m *Manager) drop(s *Session) {
	delete(m.sessions, s.ID)
	delete(m.byActor, s.ActorID)
	m.engine.RemovePlayerActor(s.ActorID)
}

// SubmitInput stores cmd as the session's latest input.
func (m *Manager) SubmitInput(id string, cmd game.InputCommand) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("input for %s: %w", id, ErrUnknownSession)
	}
	m.engine.ApplyForActor(s.ActorID, cmd)
	s.LastInput = m.now()
	s.Inputs++
	return nil
}

// SubmitEncodedInput decodes a wire input frame and submits it.
func (m *Manager) SubmitEncodedInput(id string, frame []byte) error {
	cmd, err := game.DecodeInput(frame)
	if err != nil {
		return err
	}
	return m.SubmitInput(id, cmd)
}

// State returns the actor state behind a session.
func (m *Manager) State(id string) (game.ActorState, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return game.ActorState{}, fmt.Errorf("state for %s: %w", id, ErrUnknownSession)
	}

	st, ok := m.engine.TryGetActorState(s.ActorID)
	if !ok {
		return game.ActorState{}, fmt.Errorf("state for %s: %w", id, ErrActorGone)
	}
	return st, nil
}

// Get returns a copy of a session.
func (m *Manager) Get(id string) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// ByActor returns the session owning an actor.
func (m *Manager) ByActor(actorID int32) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byActor[actorID]
	if !ok {
		return Session{}, false
	}
	return *m.sessions[id], true
}

// Count returns the number of sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sessions returns every session ordered by actor id.
func (m *Manager) Sessions() []Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ActorID < out[j].ActorID })
	return out
}

// PruneIdle removes sessions with no input for longer than maxIdle.
// A session that never sent input is measured from its join time.
func (m *Manager) PruneIdle(maxIdle time.Duration) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-maxIdle)
	var pruned []string
	for id, s := range m.sessions {
		last := s.LastInput
		if last.IsZero() {
			last = s.JoinedAt
		}
		if last.Before(cutoff) {
			m.drop(s)
			pruned = append(pruned, id)
		}
	}
	sort.Strings(pruned)
	if len(pruned) > 0 {
		m.logger.Info().Strs("sessions", pruned).Msg("pruned idle sessions")
	}
	return pruned
}
