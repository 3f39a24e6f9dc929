package session

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hellscape/internal/game"
	"hellscape/internal/game/spatial"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestManager(t *testing.T, max int) (*Manager, *game.Engine, *fakeClock) {
	t.Helper()
	engine := game.NewEngine(game.EngineConfig{Seed: 1})
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := NewManager(engine, Options{
		Spawn:      game.DefaultPlayerSpawn,
		MaxPlayers: max,
		Logger:     zerolog.Nop(),
		Now:        clock.Now,
	})
	return m, engine, clock
}

func TestJoinSpawnsPlayerWithInventory(t *testing.T) {
	m, engine, _ := newTestManager(t, 0)

	s, err := m.Join("10.0.0.1:5000")
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "10.0.0.1:5000", s.RemoteAddr)

	state, ok := engine.TryGetActorState(s.ActorID)
	require.True(t, ok)
	assert.Equal(t, game.TeamPlayer, state.Team)
	assert.Equal(t, spatial.V(-10, 6), state.Pos)

	inv, ok := engine.GetInventory(s.ActorID)
	require.True(t, ok)
	assert.Equal(t, game.NewWithBase(), inv)

	byActor, ok := m.ByActor(s.ActorID)
	require.True(t, ok)
	assert.Equal(t, s.ID, byActor.ID)
}

func TestJoinRespectsPlayerCap(t *testing.T) {
	m, _, _ := newTestManager(t, 2)

	_, err := m.Join("a")
	require.NoError(t, err)
	_, err = m.Join("b")
	require.NoError(t, err)

	_, err = m.Join("c")
	assert.ErrorIs(t, err, ErrServerFull)
	assert.Equal(t, 2, m.Count())
}

func TestLeaveRemovesActor(t *testing.T) {
	m, engine, _ := newTestManager(t, 0)
	s, _ := m.Join("a")

	require.NoError(t, m.Leave(s.ID))
	_, ok := engine.TryGetActorState(s.ActorID)
	assert.False(t, ok)
	_, ok = m.Get(s.ID)
	assert.False(t, ok)

	err := m.Leave(s.ID)
	assert.True(t, errors.Is(err, ErrUnknownSession))
}

func TestSubmitEncodedInputDrivesActor(t *testing.T) {
	m, engine, clock := newTestManager(t, 0)
	s, _ := m.Join("a")

	clock.Advance(time.Second)
	frame := game.EncodeInput(game.InputCommand{Tick: 1, Move: spatial.V(1, 0)})
	require.NoError(t, m.SubmitEncodedInput(s.ID, frame))

	engine.Tick(engine.DeltaTime())

	state, err := m.State(s.ID)
	require.NoError(t, err)
	assert.Greater(t, state.Vel.X, float32(0))

	got, _ := m.Get(s.ID)
	assert.Equal(t, uint64(1), got.Inputs)
	assert.Equal(t, clock.Now(), got.LastInput)
}

func TestSubmitInputErrors(t *testing.T) {
	m, engine, _ := newTestManager(t, 0)

	err := m.SubmitInput("missing", game.InputCommand{})
	assert.ErrorIs(t, err, ErrUnknownSession)

	s, _ := m.Join("a")
	err = m.SubmitEncodedInput(s.ID, []byte{1, 2, 3})
	assert.ErrorIs(t, err, game.ErrInputSize)

	engine.RemovePlayerActor(s.ActorID)
	_, err = m.State(s.ID)
	assert.ErrorIs(t, err, ErrActorGone)
}

func TestSessionsOrderedByActor(t *testing.T) {
	m, _, _ := newTestManager(t, 0)
	for _, addr := range []string{"a", "b", "c"} {
		_, err := m.Join(addr)
		require.NoError(t, err)
	}

	sessions := m.Sessions()
	require.Len(t, sessions, 3)
	for i := 1; i < len(sessions); i++ {
		assert.Less(t, sessions[i-1].ActorID, sessions[i].ActorID)
	}
}

func TestPruneIdle(t *testing.T) {
	m, engine, clock := newTestManager(t, 0)
	quiet, _ := m.Join("quiet")
	busy, _ := m.Join("busy")

	clock.Advance(20 * time.Second)
	require.NoError(t, m.SubmitInput(busy.ID, game.InputCommand{}))
	clock.Advance(15 * time.Second)

	pruned := m.PruneIdle(30 * time.Second)
	assert.Equal(t, []string{quiet.ID}, pruned)
	assert.Equal(t, 1, m.Count())

	_, ok := engine.TryGetActorState(quiet.ActorID)
	assert.False(t, ok)
	_, ok = engine.TryGetActorState(busy.ActorID)
	assert.True(t, ok)
}
