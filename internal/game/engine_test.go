package game

import (
	"bytes"
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hellscape/internal/game/spatial"
)

const testDt float32 = 0.02

func newTestEngine() *Engine {
	e := NewEngine(EngineConfig{Seed: 42})
	e.Init()
	return e
}

func fire(aim spatial.Vec2) InputCommand {
	return InputCommand{Aim: aim, Buttons: ButtonAttack}
}

// TestNewEngine verifies engine creation with correct defaults
func TestNewEngine(t *testing.T) {
	tests := []struct {
		name     string
		tickRate int
		dt       float32
	}{
		{"standard 50 TPS", 50, 0.02},
		{"high 60 TPS", 60, 1.0 / 60},
		{"default when zero", 0, 0.02},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine(EngineConfig{TickRate: tt.tickRate})
			if engine == nil {
				t.Fatal("NewEngine returned nil")
			}
			if engine.DeltaTime() != tt.dt {
				t.Errorf("Expected dt %f, got %f", tt.dt, engine.DeltaTime())
			}
			if engine.Config().HalfExtents != DefaultHalfExtents {
				t.Errorf("Expected default half extents, got %+v", engine.Config().HalfExtents)
			}
		})
	}
}

// TestEngineInitSpawnsOnce verifies the opening pack is spawned once
func TestEngineInitSpawnsOnce(t *testing.T) {
	engine := NewEngine(EngineConfig{Seed: 5, InitialEnemies: 8})
	engine.Init()
	engine.Init()

	if got := len(engine.EnemyStates()); got != 8 {
		t.Errorf("Expected 8 enemies, got %d", got)
	}
}

// TestEngineRunStops verifies the loop ticks and exits on cancel
func TestEngineRunStops(t *testing.T) {
	engine := NewEngine(EngineConfig{Seed: 1, TickRate: 100})
	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	var mu sync.Mutex
	reports := 0
	err := engine.Run(ctx, func(r TickReport) {
		mu.Lock()
		reports++
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if engine.TickCount() == 0 {
		t.Error("Expected ticks to run")
	}
	mu.Lock()
	defer mu.Unlock()
	if int64(reports) != engine.TickCount() {
		t.Errorf("Expected one report per tick, got %d reports for %d ticks", reports, engine.TickCount())
	}
}

func TestCombatScenario(t *testing.T) {
	engine := newTestEngine()
	player := engine.SpawnPlayerAt(spatial.V(0, 0))
	enemy := engine.SpawnEnemyAt(spatial.V(6, 0))
	require.True(t, engine.SetActorHp(enemy, 100))

	engine.ApplyForActor(player, fire(spatial.V(1, 0)))
	engine.Tick(testDt)

	state, ok := engine.TryGetActorState(enemy)
	require.True(t, ok)
	assert.Equal(t, int16(75), state.HP)

	engine.ApplyForActor(player, fire(spatial.V(1, 0)))
	engine.Tick(testDt)

	state, ok = engine.TryGetActorState(enemy)
	require.True(t, ok)
	assert.Equal(t, int16(75), state.HP, "cooldown must block the second shot")

	// Cooldown of 8 ticks elapses, the held trigger fires again
	for i := 0; i < 7; i++ {
		engine.Tick(testDt)
	}
	state, _ = engine.TryGetActorState(enemy)
	assert.Equal(t, int16(50), state.HP)
}

func TestCombatMisses(t *testing.T) {
	tests := []struct {
		name  string
		enemy spatial.Vec2
	}{
		{"out of range", spatial.V(13, 0)},
		{"off the line", spatial.V(5, 2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine()
			player := engine.SpawnPlayerAt(spatial.V(0, 0))
			enemy := engine.SpawnEnemyAt(tt.enemy)

			engine.ApplyForActor(player, fire(spatial.V(1, 0)))
			engine.Tick(testDt)

			state, ok := engine.TryGetActorState(enemy)
			require.True(t, ok)
			assert.Equal(t, int16(EnemyMaxHP), state.HP)

			shots := engine.ConsumeShotEvents()
			require.Len(t, shots, 1)
			assert.False(t, shots[0].Hit)
			assert.InDelta(t, PistolRange, shots[0].End.X, 1e-5)
		})
	}
}

func TestShotEventsDrain(t *testing.T) {
	engine := newTestEngine()
	player := engine.SpawnPlayerAt(spatial.V(0, 0))
	engine.SpawnEnemyAt(spatial.V(5, 0))

	engine.ApplyForActor(player, fire(spatial.V(1, 0)))
	engine.Tick(0.016)

	shots := engine.ConsumeShotEvents()
	require.Len(t, shots, 1)
	assert.Equal(t, spatial.V(0, 0), shots[0].Start)
	assert.True(t, shots[0].Hit)
	assert.Equal(t, spatial.V(5, 0), shots[0].End, "tracer ends at the closest approach to the target")

	assert.Empty(t, engine.ConsumeShotEvents())
}

func TestZeroAimIsNoOp(t *testing.T) {
	engine := newTestEngine()
	player := engine.SpawnPlayerAt(spatial.V(0, 0))
	enemy := engine.SpawnEnemyAt(spatial.V(6, 0))

	engine.ApplyForActor(player, fire(spatial.Zero))
	engine.Tick(testDt)
	assert.Empty(t, engine.ConsumeShotEvents())

	// Cooldown was not spent: a real aim fires on the very next tick
	engine.ApplyForActor(player, fire(spatial.V(1, 0)))
	engine.Tick(testDt)
	require.Len(t, engine.ConsumeShotEvents(), 1)
	state, _ := engine.TryGetActorState(enemy)
	assert.Equal(t, int16(EnemyMaxHP)-PistolDamage, state.HP)
}

func TestEnemyDeathRemovesAndScores(t *testing.T) {
	engine := newTestEngine()
	player := engine.SpawnPlayerAt(spatial.V(0, 0))
	enemy := engine.SpawnEnemyAt(spatial.V(6, 0))
	engine.SetActorHp(enemy, 20)

	engine.ApplyForActor(player, fire(spatial.V(1, 0)))
	engine.Tick(testDt)

	_, ok := engine.TryGetActorState(enemy)
	assert.False(t, ok, "dead enemy must be removed")
	assert.Equal(t, 1, engine.Score())
	kills, ok := engine.Kills(player)
	require.True(t, ok)
	assert.Equal(t, 1, kills)
	assert.Greater(t, engine.Status().Intensity, float32(0))

	hit, ok := engine.TryDequeueEvent()
	require.True(t, ok)
	assert.Equal(t, KindHitLanded, hit.Kind)
	assert.Equal(t, player, hit.AttackerID)
	assert.Equal(t, enemy, hit.TargetID)
	assert.Equal(t, PistolDamage, hit.Damage)
	assert.Equal(t, int64(1), hit.Tick)

	died, ok := engine.TryDequeueEvent()
	require.True(t, ok)
	assert.Equal(t, ActorDied(enemy).Kind, died.Kind)
	assert.Equal(t, enemy, died.TargetID)

	_, ok = engine.TryDequeueEvent()
	assert.False(t, ok)
}

func TestSecondShooterPassesThroughKilledEnemy(t *testing.T) {
	engine := newTestEngine()
	first := engine.SpawnPlayerAt(spatial.V(0, 0))
	second := engine.SpawnPlayerAt(spatial.V(0, 0))
	near := engine.SpawnEnemyAt(spatial.V(3, 0))
	far := engine.SpawnEnemyAt(spatial.V(6, 0))
	require.True(t, engine.SetActorHp(near, 10))

	engine.ApplyForActor(first, fire(spatial.V(1, 0)))
	engine.ApplyForActor(second, fire(spatial.V(1, 0)))
	engine.Tick(testDt)

	_, ok := engine.TryGetActorState(near)
	assert.False(t, ok)
	state, ok := engine.TryGetActorState(far)
	require.True(t, ok)
	assert.Equal(t, int16(EnemyMaxHP)-PistolDamage, state.HP)

	var hits []DomainEvent
	for {
		ev, ok := engine.TryDequeueEvent()
		if !ok {
			break
		}
		if ev.Kind == KindHitLanded && (ev.TargetID == near || ev.TargetID == far) {
			hits = append(hits, ev)
		}
	}
	require.Len(t, hits, 2)
	assert.Equal(t, near, hits[0].TargetID)
	assert.Equal(t, first, hits[0].AttackerID)
	assert.Equal(t, far, hits[1].TargetID)
	assert.Equal(t, second, hits[1].AttackerID)

	kills, _ := engine.Kills(first)
	assert.Equal(t, 1, kills)
}

func TestDamageDoesNotWrapHP(t *testing.T) {
	engine := newTestEngine()
	player := engine.SpawnPlayerAt(spatial.V(0, 0))
	enemy := engine.SpawnEnemyAt(spatial.V(6, 0))
	require.True(t, engine.SetActorHp(enemy, math.MinInt16+8))

	engine.ApplyForActor(player, fire(spatial.V(1, 0)))
	engine.Tick(testDt)

	_, ok := engine.TryGetActorState(enemy)
	assert.False(t, ok, "an enemy at the hp floor dies instead of wrapping")
}

func TestInputForUnknownOrDeadActorIsIgnored(t *testing.T) {
	engine := newTestEngine()
	engine.ApplyForActor(999, fire(spatial.V(1, 0)))
	engine.Tick(testDt)
	assert.Empty(t, engine.ConsumeShotEvents())

	player := engine.SpawnPlayerAt(spatial.V(0, 0))
	engine.SetActorHp(player, 0)
	engine.mu.Lock()
	p, _ := engine.store.Player(player)
	engine.killPlayer(p)
	engine.mu.Unlock()

	engine.ApplyForActor(player, InputCommand{Move: spatial.V(1, 0), Aim: spatial.V(1, 0), Buttons: ButtonAttack | ButtonDash})
	engine.Tick(testDt)

	state, _ := engine.TryGetActorState(player)
	assert.False(t, state.Alive)
	assert.Equal(t, spatial.V(0, 0), state.Pos)
	assert.Equal(t, spatial.Zero, state.Vel)
	assert.Empty(t, engine.ConsumeShotEvents())
}

func TestNoDrift(t *testing.T) {
	engine := newTestEngine()
	player := engine.SpawnPlayerAt(spatial.V(3, -2))

	for i := 0; i < 1000; i++ {
		engine.ApplyForActor(player, InputCommand{Tick: int32(i)})
		engine.Tick(testDt)
	}

	state, _ := engine.TryGetActorState(player)
	assert.InDelta(t, 3, state.Pos.X, 1e-6)
	assert.InDelta(t, -2, state.Pos.Y, 1e-6)
}

func TestMovementAcceleratesTowardSpeed(t *testing.T) {
	engine := newTestEngine()
	player := engine.SpawnPlayerAt(spatial.V(0, 0))
	engine.ApplyForActor(player, InputCommand{Move: spatial.V(3, 4)})

	engine.Tick(testDt)
	state, _ := engine.TryGetActorState(player)
	// lerp(0, 5*(0.6,0.8), 15*0.02)
	assert.InDelta(t, 0.9, state.Vel.X, 1e-5)
	assert.InDelta(t, 1.2, state.Vel.Y, 1e-5)

	for i := 0; i < 100; i++ {
		engine.Tick(testDt)
	}
	state, _ = engine.TryGetActorState(player)
	assert.InDelta(t, PlayerSpeed, state.Vel.Len(), 1e-3)
}

func TestDash(t *testing.T) {
	engine := newTestEngine()
	player := engine.SpawnPlayerAt(spatial.V(0, 0))
	engine.ApplyForActor(player, InputCommand{Move: spatial.V(0, 2), Buttons: ButtonDash})

	engine.Tick(testDt)
	state, _ := engine.TryGetActorState(player)
	assert.Equal(t, spatial.V(0, DashImpulse), state.Vel)
	assert.InDelta(t, DashImpulse*testDt, state.Pos.Y, 1e-6)

	// Held dash during cooldown falls back to normal movement
	engine.Tick(testDt)
	state, _ = engine.TryGetActorState(player)
	assert.Less(t, state.Vel.Y, DashImpulse)
	assert.Greater(t, state.Vel.Y, PlayerSpeed)

	// Dash without a move vector does nothing
	other := engine.SpawnPlayerAt(spatial.V(5, 5))
	engine.ApplyForActor(other, InputCommand{Buttons: ButtonDash})
	engine.Tick(testDt)
	state, _ = engine.TryGetActorState(other)
	assert.Equal(t, spatial.Zero, state.Vel)
}

func TestClampToPlayfield(t *testing.T) {
	engine := newTestEngine()
	player := engine.SpawnPlayerAt(spatial.V(24.9, 13.9))
	engine.ApplyForActor(player, InputCommand{Move: spatial.V(1, 1)})

	for i := 0; i < 100; i++ {
		engine.Tick(testDt)
	}
	state, _ := engine.TryGetActorState(player)
	assert.Equal(t, float32(25), state.Pos.X)
	assert.Equal(t, float32(14), state.Pos.Y)

	assert.Equal(t, spatial.V(-25, 14), engine.ClampToPlayfield(spatial.V(-100, 100)))
	assert.Equal(t, spatial.V(1, 2), engine.ClampToPlayfield(spatial.V(1, 2)))
}

func TestRandomEdgePosition(t *testing.T) {
	engine := NewEngine(EngineConfig{Seed: 1234})
	half := engine.Config().HalfExtents

	for i := 0; i < 500; i++ {
		p := engine.RandomEdgePosition(DefaultEdgeInset)
		assert.LessOrEqual(t, p.X, half.X)
		assert.GreaterOrEqual(t, p.X, -half.X)
		assert.LessOrEqual(t, p.Y, half.Y)
		assert.GreaterOrEqual(t, p.Y, -half.Y)

		nearX := half.X-abs32(p.X) <= 1.6
		nearY := half.Y-abs32(p.Y) <= 1.6
		assert.True(t, nearX || nearY, "position %+v is not near an edge", p)
	}
}

func TestSpawnEnemiesAtEdges(t *testing.T) {
	engine := newTestEngine()
	ids := engine.SpawnEnemiesAtEdges(4, DefaultEdgeInset)
	require.Len(t, ids, 4)
	for i := 1; i < len(ids); i++ {
		assert.Equal(t, ids[i-1]+1, ids[i])
	}
	assert.Nil(t, engine.SpawnEnemiesAtEdges(0, DefaultEdgeInset))
}

func TestEnemyChasesPlayer(t *testing.T) {
	engine := newTestEngine()
	engine.SpawnPlayerAt(spatial.V(0, 0))
	enemy := engine.SpawnEnemyAt(spatial.V(5, 0))

	for i := 0; i < 10; i++ {
		engine.Tick(testDt)
	}
	state, _ := engine.TryGetActorState(enemy)
	assert.Less(t, state.Pos.X, float32(5))
	assert.InDelta(t, 0, state.Pos.Y, 1e-6)
}

func TestEnemyIdlesWithoutPlayers(t *testing.T) {
	engine := newTestEngine()
	enemy := engine.SpawnEnemyAt(spatial.V(5, 0))
	for i := 0; i < 10; i++ {
		engine.Tick(testDt)
	}
	state, _ := engine.TryGetActorState(enemy)
	assert.Equal(t, spatial.V(5, 0), state.Pos)
}

func TestMeleeDeathAndRespawn(t *testing.T) {
	engine := newTestEngine()
	victim := engine.SpawnPlayerAt(spatial.V(0, 0))
	buddy := engine.SpawnPlayerAt(spatial.V(5, 5))
	enemy := engine.SpawnEnemyAt(spatial.V(0.5, 0))
	engine.SetActorHp(victim, 10)

	engine.Tick(testDt)

	state, _ := engine.TryGetActorState(victim)
	require.False(t, state.Alive)
	assert.Equal(t, int16(0), state.HP)
	assert.Equal(t, spatial.Zero, state.Vel)

	events := engine.DrainEvents()
	require.Len(t, events, 2)
	assert.Equal(t, HitLanded(enemy, victim, EnemyMeleeDamage).Kind, events[0].Kind)
	assert.Equal(t, enemy, events[0].AttackerID)
	assert.Equal(t, KindActorDied, events[1].Kind)
	assert.Equal(t, victim, events[1].TargetID)
	assert.False(t, engine.TeamWiped())

	require.True(t, engine.RemoveEnemyActor(enemy))

	ticks := 0
	for ; ticks < 600; ticks++ {
		engine.Tick(testDt)
		if s, _ := engine.TryGetActorState(victim); s.Alive {
			break
		}
	}
	assert.GreaterOrEqual(t, ticks, 495)
	assert.Less(t, ticks, 600)

	state, _ = engine.TryGetActorState(victim)
	buddyState, _ := engine.TryGetActorState(buddy)
	assert.True(t, state.Alive)
	assert.Equal(t, RespawnHP, state.HP)
	assert.Equal(t, buddyState.Pos.Add(RespawnOffset), state.Pos)
	assert.Equal(t, spatial.Zero, state.Vel)
}

func TestTeamWipeSuspendsRespawn(t *testing.T) {
	engine := newTestEngine()
	solo := engine.SpawnPlayerAt(spatial.V(0, 0))
	enemy := engine.SpawnEnemyAt(spatial.V(0.5, 0))
	engine.SetActorHp(solo, 5)

	engine.Tick(testDt)
	engine.RemoveEnemyActor(enemy)
	require.True(t, engine.TeamWiped())

	for i := 0; i < 1000; i++ {
		engine.Tick(testDt)
	}
	state, _ := engine.TryGetActorState(solo)
	assert.False(t, state.Alive)
	assert.True(t, engine.TeamWiped())
	assert.Equal(t, float32(0), engine.Status().ReviveSeconds)
}

func TestRemovePlayerActor(t *testing.T) {
	engine := newTestEngine()
	id := engine.RegisterPlayerWithInventory(spatial.Zero)

	assert.True(t, engine.RemovePlayerActor(id))
	assert.False(t, engine.RemovePlayerActor(id))
	_, ok := engine.TryGetActorState(id)
	assert.False(t, ok)
	_, ok = engine.GetInventory(id)
	assert.False(t, ok)
	assert.False(t, engine.SetActorHp(id, 50))
}

func TestInventoryBridge(t *testing.T) {
	engine := newTestEngine()
	id := engine.RegisterPlayerWithInventory(DefaultPlayerSpawn)

	inv, ok := engine.GetInventory(id)
	require.True(t, ok)
	assert.Equal(t, NewWithBase(), inv)

	res, ok := engine.ApplyPickup(id, Pickup{Type: WeaponShotgun, Ammo: 2})
	require.True(t, ok)
	assert.False(t, res.Dropped)
	assert.Equal(t, WeaponShotgun, res.Inventory.Slots[1].Type)

	inv, ok = engine.SetActiveSlot(id, 42)
	require.True(t, ok)
	assert.Equal(t, 3, inv.Active)
	inv, _ = engine.SetActiveSlot(id, 1)
	assert.Equal(t, 1, inv.Active)

	for want := 1; want >= 0; want-- {
		c, ok := engine.TryConsumeAmmo(id)
		require.True(t, ok)
		assert.True(t, c.Fired)
		assert.Equal(t, want, c.Next.Slots[1].Ammo)
	}
	c, _ := engine.TryConsumeAmmo(id)
	assert.False(t, c.Fired)

	// Players spawned without inventory have none
	bare := engine.SpawnPlayerAt(spatial.Zero)
	_, ok = engine.GetInventory(bare)
	assert.False(t, ok)
	_, ok = engine.TryConsumeAmmo(bare)
	assert.False(t, ok)
}

func TestWeaponSpawns(t *testing.T) {
	engine := NewEngine(EngineConfig{Seed: 9, WeaponSpawnSeconds: 1})
	for i := 0; i < 40; i++ {
		engine.Tick(testDt)
	}
	assert.Empty(t, engine.ConsumeWeaponSpawns(), "first drop comes after one interval")

	for i := 0; i < 20; i++ {
		engine.Tick(testDt)
	}
	spawns := engine.ConsumeWeaponSpawns()
	require.Len(t, spawns, 1)
	req := spawns[0]
	assert.Contains(t, SpawnableWeapons, req.Type)
	assert.GreaterOrEqual(t, req.Ammo, 10)
	assert.LessOrEqual(t, req.Ammo, 30)
	assert.GreaterOrEqual(t, req.Position.Len(), float32(8))
	assert.Equal(t, engine.grid.TagAt(req.Position).String(), req.District)
	assert.NotEmpty(t, req.District)
	assert.Empty(t, engine.ConsumeWeaponSpawns())

	grid := engine.Status().Grid
	assert.Equal(t, CityWidth*CityHeight, grid.TotalTiles)
	assert.Equal(t, grid.TotalTiles, grid.Downtown+grid.Industrial+grid.Suburbs)
}

func TestEnemyWaves(t *testing.T) {
	engine := NewEngine(EngineConfig{Seed: 3, EnemyWaveSeconds: 1, Limits: ResourceLimits{MaxPlayers: 4, MaxEnemies: 2, MaxShots: 4}})
	for i := 0; i < 160; i++ {
		engine.Tick(testDt)
	}
	assert.Equal(t, 2, engine.Status().Enemies, "waves stop at the enemy cap")
}

func TestLatestFramePublished(t *testing.T) {
	engine := newTestEngine()
	_, ok := engine.LatestFrame()
	assert.False(t, ok)

	player := engine.SpawnPlayerAt(spatial.V(0, 0))
	engine.SpawnEnemyAt(spatial.V(5, 0))
	engine.ApplyForActor(player, fire(spatial.V(1, 0)))
	engine.Tick(testDt)

	frame, ok := engine.LatestFrame()
	require.True(t, ok)
	assert.Equal(t, int32(1), frame.World.Tick)
	require.Len(t, frame.World.Actors, 2)
	assert.Equal(t, TeamPlayer, frame.World.Actors[0].Team)
	assert.Equal(t, TeamEnemy, frame.World.Actors[1].Team)
	require.Len(t, frame.Shots, 1)
	assert.True(t, frame.Shots[0].Hit)
	assert.Equal(t, engine.Snapshot(), frame.World)

	engine.Tick(testDt)
	frame, _ = engine.LatestFrame()
	assert.Empty(t, frame.Shots, "frames carry only the shots of their own tick")
}

func TestDeterminism(t *testing.T) {
	run := func(seed uint32) [][]byte {
		engine := NewEngine(EngineConfig{Seed: seed, InitialEnemies: 6, EnemyWaveSeconds: 2, WeaponSpawnSeconds: 1})
		engine.Init()
		a := engine.SpawnPlayerAt(DefaultPlayerSpawn)
		b := engine.SpawnPlayerAt(spatial.V(10, -4))

		var frames [][]byte
		for i := 0; i < 400; i++ {
			engine.ApplyForActor(a, InputCommand{
				Tick:    int32(i),
				Move:    spatial.V(float32(i%7)-3, float32(i%5)-2),
				Aim:     spatial.V(1, float32(i%3)-1),
				Buttons: ButtonAttack,
			})
			if i%40 == 0 {
				engine.ApplyForActor(b, InputCommand{Move: spatial.V(-1, 0.5), Aim: spatial.V(-1, 0), Buttons: ButtonAttack | ButtonDash})
			}
			engine.Tick(testDt)
			frames = append(frames, EncodeSnapshot(engine.Snapshot()))
		}
		return frames
	}

	first := run(77)
	second := run(77)
	require.Equal(t, len(first), len(second))
	for i := range first {
		if !bytes.Equal(first[i], second[i]) {
			t.Fatalf("Snapshots diverged at tick %d", i+1)
		}
	}

	other := run(78)
	assert.NotEqual(t, first[0], other[0], "different seeds should place enemies differently")
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
