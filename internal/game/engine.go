package game

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"hellscape/internal/game/spatial"
)

// World and pacing defaults.
const (
	DefaultTickRate          = 50
	DefaultEdgeInset float32 = 1.5
	directorKillBump float32 = 0.05

	// Undrained queues are trimmed to this length at the start of a tick.
	maxPendingEvents = 4096
)

// City grid dimensions.
const (
	CityWidth        = 64
	CityHeight       = 64
	CityCenterRadius = 32
)

// DefaultHalfExtents bounds the playfield to [-25, 25] x [-14, 14].
var DefaultHalfExtents = spatial.V(25, 14)

// DefaultPlayerSpawn is where joining players appear.
var DefaultPlayerSpawn = spatial.V(-10, 6)

// EngineConfig configures a simulation instance.
type EngineConfig struct {
	Seed               uint32
	TickRate           int
	HalfExtents        spatial.Vec2
	PlayerSpawn        spatial.Vec2
	ReviveSeconds      float32
	InitialEnemies     int     // spawned by Init at the edges
	EnemyWaveSeconds   float32 // 0 disables waves
	WeaponSpawnSeconds float32 // 0 disables weapon drops
	Limits             ResourceLimits
	EventLogPath       string // empty disables the JSONL log

	Logger  *zerolog.Logger // nil logs nothing
	Metrics Metrics         // nil records nothing
}

// DefaultEngineConfig returns the standard 50 Hz configuration with no
// opening enemies.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Seed:               1,
		TickRate:           DefaultTickRate,
		HalfExtents:        DefaultHalfExtents,
		PlayerSpawn:        DefaultPlayerSpawn,
		ReviveSeconds:      DefaultReviveSeconds,
		WeaponSpawnSeconds: DefaultWeaponSpawnSeconds,
		Limits:             DefaultLimits,
	}
}

// Engine is the authoritative fixed-step simulation.
//
// Every exported method takes the engine lock, so a Tick always runs to
// completion before any other read or write. Commands that arrive while a
// tick is running apply on the next one.
type Engine struct {
	mu  sync.RWMutex
	cfg EngineConfig
	dt  float32

	rng         *Rng
	store       *ActorStore
	enemyTypes  *EnemyDatabase
	inventories map[int32]InventoryState
	inputs      map[int32]InputCommand

	grid      *spatial.CityGrid
	gridStats spatial.GridStats
	night     *NightSystem
	director  *Director
	life      *LifeSystem
	weapons   *WeaponSpawnSystem

	// Queues drained by callers
	events       []DomainEvent
	eventHead    int
	shots        []ShotEvent
	weaponSpawns []WeaponSpawnRequest

	tick        int64
	simTime     float32
	waveTimer   float32
	score       int
	wiped       bool
	initialized bool

	snapshotPool *SnapshotPool
	eventLog     *EventLog
	logger       zerolog.Logger
	metrics      Metrics

	// Reused per tick
	playerScratch []*Actor
	enemyScratch  []*Actor
}

// NewEngine creates a simulation. Zero-valued config fields fall back to
// DefaultEngineConfig, except counts and intervals where zero means off.
func NewEngine(cfg EngineConfig) *Engine {
	def := DefaultEngineConfig()
	if cfg.TickRate <= 0 {
		cfg.TickRate = def.TickRate
	}
	if cfg.HalfExtents.X <= 0 || cfg.HalfExtents.Y <= 0 {
		cfg.HalfExtents = def.HalfExtents
	}
	if cfg.ReviveSeconds <= 0 {
		cfg.ReviveSeconds = def.ReviveSeconds
	}
	if cfg.Limits == (ResourceLimits{}) {
		cfg.Limits = def.Limits
	}

	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str("component", "engine").Logger()
	}
	var metrics Metrics = nopMetrics{}
	if cfg.Metrics != nil {
		metrics = cfg.Metrics
	}

	rng := NewRng(cfg.Seed)
	grid := spatial.NewCityGrid(CityWidth, CityHeight, CityCenterRadius)
	return &Engine{
		cfg:           cfg,
		dt:            1 / float32(cfg.TickRate),
		rng:           rng,
		store:         NewActorStore(),
		enemyTypes:    NewEnemyDatabase(),
		inventories:   make(map[int32]InventoryState),
		inputs:        make(map[int32]InputCommand),
		grid:          grid,
		gridStats:     grid.Stats(),
		night:         NewNightSystem(),
		director:      &Director{},
		life:          NewLifeSystem(cfg.ReviveSeconds),
		weapons:       NewWeaponSpawnSystem(rng, grid, cfg.HalfExtents, cfg.WeaponSpawnSeconds),
		snapshotPool:  NewSnapshotPool(cfg.Limits),
		eventLog:      NewEventLog(logger),
		logger:        logger,
		metrics:       metrics,
		playerScratch: make([]*Actor, 0, cfg.Limits.MaxPlayers),
		enemyScratch:  make([]*Actor, 0, cfg.Limits.MaxEnemies),
	}
}

// Init spawns the opening enemy pack. Later calls are no-ops.
func (e *Engine) Init() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initialized {
		return
	}
	e.initialized = true
	e.spawnEnemiesAtEdges(e.cfg.InitialEnemies, DefaultEdgeInset)
	e.logger.Info().
		Uint32("seed", e.cfg.Seed).
		Int("enemies", e.store.EnemyCount()).
		Msg("simulation initialized")
}

// DeltaTime returns the fixed step derived from the tick rate.
func (e *Engine) DeltaTime() float32 {
	return e.dt
}

// Config returns the effective configuration.
func (e *Engine) Config() EngineConfig {
	return e.cfg
}

// EnemyTypes returns the enemy registry.
func (e *Engine) EnemyTypes() *EnemyDatabase {
	return e.enemyTypes
}

// Tick advances the simulation by dt seconds:
// inputs, enemies, enemy deaths, player movement and clamping,
// revive countdown, then environment.
func (e *Engine) Tick(dt float32) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	e.trimQueues()
	e.tick++
	e.simTime += dt
	firstShot := len(e.shots)

	e.eventLog.EmitSimple(EventTypeTick, uint64(e.tick), 0,
		TickPayload{
			RNGState:    e.rng.State(),
			PlayerCount: e.store.PlayerCount(),
			EnemyCount:  e.store.EnemyCount(),
			DeltaTimeNs: int64(float64(dt) * 1e9),
		})

	e.applyInputs(dt)
	e.updateEnemies(dt)
	e.cullEnemies()
	e.integratePlayers(dt)
	e.tickLife(dt)
	e.tickEnvironment(dt)

	e.publishSnapshot(e.shots[firstShot:])
	e.metrics.TickCompleted(time.Since(start), e.store.PlayerCount(), e.store.EnemyCount())
}

// applyInputs runs cooldowns and the latest command for every live player.
func (e *Engine) applyInputs(dt float32) {
	e.playerScratch = e.store.Players(e.playerScratch[:0])
	for _, p := range e.playerScratch {
		if !p.Alive {
			continue
		}
		if p.GunCooldown > 0 {
			p.GunCooldown--
		}
		if p.DashCooldown > 0 {
			p.DashCooldown -= dt
			if p.DashCooldown < 0 {
				p.DashCooldown = 0
			}
		}

		cmd, ok := e.inputs[p.ID]
		if !ok {
			continue
		}
		e.applyCommand(p, cmd, dt)
	}
}

func (e *Engine) applyCommand(p *Actor, cmd InputCommand, dt float32) {
	move := cmd.Move.Normalize()

	switch {
	case cmd.Dash() && p.DashCooldown <= 0 && !move.IsZero():
		p.Vel = move.Scale(DashImpulse)
		p.DashCooldown = DashCooldownSeconds
	case move.IsZero():
		p.Vel = Brake(p.Vel, dt)
	default:
		p.Vel = spatial.Lerp(p.Vel, move.Scale(p.MoveSpeed), spatial.Clamp01(PlayerAcceleration*dt))
	}

	if cmd.Attack() && cmd.Aim.LenSq() > 0 && p.GunCooldown == 0 {
		e.processShooting(p, cmd.Aim, dt)
	}
}

// updateEnemies moves enemies, runs their timers and steers the ones that
// can act.
func (e *Engine) updateEnemies(dt float32) {
	e.playerScratch = e.store.Players(e.playerScratch[:0])
	e.enemyScratch = e.store.Enemies(e.enemyScratch[:0])

	for _, en := range e.enemyScratch {
		en.Pos = en.Pos.Add(en.Vel.Scale(dt))
		if en.FlinchTimer > 0 {
			en.FlinchTimer -= dt
		}
		if en.AttackCooldown > 0 {
			en.AttackCooldown -= dt
		}
		if en.Alive && en.HP > 0 && en.FlinchTimer <= 0 {
			e.runEnemyAI(en, e.playerScratch, dt)
		}
	}
}

// cullEnemies removes dead enemies and scores them.
func (e *Engine) cullEnemies() {
	e.enemyScratch = e.store.Enemies(e.enemyScratch[:0])
	for _, en := range e.enemyScratch {
		if en.HP > 0 {
			continue
		}
		e.store.RemoveEnemy(en.ID)
		e.enqueueEvent(ActorDied(en.ID))
		e.score++
		e.director.Bump(directorKillBump)

		if killer, ok := e.store.Player(en.KilledBy); ok {
			killer.Kills++
		}

		e.eventLog.EmitSimple(EventTypeDeath, uint64(e.tick), en.ID,
			DeathPayload{ActorID: en.ID, Team: en.Team.String(), KillerID: en.KilledBy})
		e.metrics.ActorDied(TeamEnemy)
		e.logger.Debug().
			Int32("actor", en.ID).
			Int32("killer", en.KilledBy).
			Int("score", e.score).
			Msg("enemy killed")
	}
}

// integratePlayers moves players and clamps everyone to the playfield.
func (e *Engine) integratePlayers(dt float32) {
	e.playerScratch = e.store.Players(e.playerScratch[:0])
	for _, p := range e.playerScratch {
		if p.Alive {
			p.Pos = p.Pos.Add(p.Vel.Scale(dt))
		}
		p.Pos = e.ClampToPlayfield(p.Pos)
	}

	e.enemyScratch = e.store.Enemies(e.enemyScratch[:0])
	for _, en := range e.enemyScratch {
		en.Pos = e.ClampToPlayfield(en.Pos)
	}
}

// tickLife advances the revive countdown and respawns whoever is due.
func (e *Engine) tickLife(dt float32) {
	e.life.Tick(dt, e.store.AlivePlayerCount())

	if due := e.life.ConsumeRespawns(); len(due) > 0 {
		anchor, hasAnchor := e.firstLivingPlayer()
		for _, id := range due {
			p, ok := e.store.Player(id)
			if !ok || p.Alive {
				continue
			}
			pos := e.cfg.PlayerSpawn
			if hasAnchor {
				pos = anchor.Add(RespawnOffset)
			}
			e.respawn(p, e.ClampToPlayfield(pos))
		}
		e.metrics.Respawned(len(due))
	}

	wiped := e.store.PlayerCount() > 0 && e.store.AlivePlayerCount() == 0
	if wiped != e.wiped {
		e.wiped = wiped
		if wiped {
			e.logger.Warn().Int64("tick", e.tick).Int("score", e.score).Msg("team wiped")
		} else {
			e.logger.Info().Int64("tick", e.tick).Msg("team back in play")
		}
	}
}

func (e *Engine) firstLivingPlayer() (spatial.Vec2, bool) {
	e.playerScratch = e.store.Players(e.playerScratch[:0])
	for _, p := range e.playerScratch {
		if p.Alive {
			return p.Pos, true
		}
	}
	return spatial.Zero, false
}

func (e *Engine) respawn(p *Actor, pos spatial.Vec2) {
	p.Alive = true
	p.HP = RespawnHP
	p.Pos = pos
	p.Vel = spatial.Zero
	p.GunCooldown = 0
	p.DashCooldown = 0
	e.life.MarkAlive(p.ID)

	e.eventLog.EmitSimple(EventTypeRespawn, uint64(e.tick), p.ID,
		RespawnPayload{ActorID: p.ID, SpawnX: pos.X, SpawnY: pos.Y})
	e.logger.Debug().Int32("actor", p.ID).Float32("x", pos.X).Float32("y", pos.Y).Msg("player respawned")
}

// tickEnvironment advances day/night, the director, enemy waves and drops.
func (e *Engine) tickEnvironment(dt float32) {
	e.night.Tick(dt)
	e.director.Tick()

	if wave := e.cfg.EnemyWaveSeconds; wave > 0 {
		e.waveTimer += dt
		if e.waveTimer >= wave {
			e.waveTimer -= wave
			n := 1 + e.night.NightCount
			if room := e.cfg.Limits.MaxEnemies - e.store.EnemyCount(); n > room {
				n = room
			}
			if n > 0 {
				e.spawnEnemiesAtEdges(n, DefaultEdgeInset)
			}
		}
	}

	if req, ok := e.weapons.Update(e.simTime); ok {
		e.weaponSpawns = append(e.weaponSpawns, req)
		e.eventLog.EmitSimple(EventTypeWeaponSpawn, uint64(e.tick), 0,
			WeaponSpawnPayload{Weapon: req.Type.String(), Ammo: req.Ammo, X: req.Position.X, Y: req.Position.Y})
	}
}

// publishSnapshot fills the next snapshot buffer from current state.
func (e *Engine) publishSnapshot(shots []ShotEvent) {
	snap := e.snapshotPool.AcquireWrite()
	snap.World.Tick = int32(e.tick)
	snap.World.Actors = e.appendStates(snap.World.Actors)
	snap.Shots = append(snap.Shots, shots...)
	snap.Score = e.score
	snap.Intensity = e.director.Intensity
	snap.TimeOfDay = e.night.TimeOfDay
	snap.NightCount = e.night.NightCount
	snap.ReviveSeconds = e.life.ReviveSecondsRemaining()
	snap.TeamWiped = e.wiped
	snap.RNGState = e.rng.State()
	e.snapshotPool.PublishWrite()
}

// appendStates appends players then enemies, each in id order.
func (e *Engine) appendStates(dst []ActorState) []ActorState {
	e.playerScratch = e.store.Players(e.playerScratch[:0])
	for _, p := range e.playerScratch {
		dst = append(dst, p.State())
	}
	e.enemyScratch = e.store.Enemies(e.enemyScratch[:0])
	for _, en := range e.enemyScratch {
		dst = append(dst, en.State())
	}
	return dst
}

// trimQueues drops the oldest entries of queues nobody is draining.
func (e *Engine) trimQueues() {
	if n := len(e.events) - e.eventHead; n > maxPendingEvents {
		e.eventHead = len(e.events) - maxPendingEvents
	}
	if e.eventHead > 0 {
		e.events = append(e.events[:0], e.events[e.eventHead:]...)
		e.eventHead = 0
	}
	if n := len(e.shots); n > maxPendingEvents {
		e.shots = append(e.shots[:0], e.shots[n-maxPendingEvents:]...)
	}
	if n := len(e.weaponSpawns); n > maxPendingEvents {
		e.weaponSpawns = append(e.weaponSpawns[:0], e.weaponSpawns[n-maxPendingEvents:]...)
	}
}

func (e *Engine) enqueueEvent(ev DomainEvent) {
	ev.Tick = e.tick
	e.events = append(e.events, ev)
}

// ClampToPlayfield bounds pos to the configured half-extents.
func (e *Engine) ClampToPlayfield(pos spatial.Vec2) spatial.Vec2 {
	return spatial.ClampVec(pos, e.cfg.HalfExtents)
}

// ApplyForActor stores cmd as the latest input for a player. It stays in
// effect until replaced or the player is removed. Unknown ids are ignored;
// dead players keep the command but do not act on it.
func (e *Engine) ApplyForActor(id int32, cmd InputCommand) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.store.Player(id); !ok {
		return
	}
	e.inputs[id] = cmd
}

// SpawnPlayerAt creates a player without an inventory.
func (e *Engine) SpawnPlayerAt(pos spatial.Vec2) int32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.spawnPlayer(pos).ID
}

// RegisterPlayerWithInventory creates a player holding the base pistol.
func (e *Engine) RegisterPlayerWithInventory(pos spatial.Vec2) int32 {
	e.mu.Lock()
	defer e.mu.Unlock()

	p := e.spawnPlayer(pos)
	e.inventories[p.ID] = NewWithBase()
	return p.ID
}

func (e *Engine) spawnPlayer(pos spatial.Vec2) *Actor {
	p := e.store.SpawnPlayer(pos)
	e.eventLog.EmitSimple(EventTypePlayerJoin, uint64(e.tick), p.ID,
		SpawnPayload{ActorID: p.ID, SpawnX: pos.X, SpawnY: pos.Y})
	e.logger.Debug().Int32("actor", p.ID).Msg("player spawned")
	return p
}

// SpawnEnemyAt creates a default enemy.
func (e *Engine) SpawnEnemyAt(pos spatial.Vec2) int32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.spawnEnemy(pos, e.enemyTypes.Default()).ID
}

// SpawnEnemyOfType creates an enemy of a registered kind.
func (e *Engine) SpawnEnemyOfType(pos spatial.Vec2, kind string) (int32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok := e.enemyTypes.Get(kind)
	if !ok {
		return 0, fmt.Errorf("unknown enemy type %q", kind)
	}
	return e.spawnEnemy(pos, t).ID, nil
}

func (e *Engine) spawnEnemy(pos spatial.Vec2, kind *EnemyType) *Actor {
	en := e.store.SpawnEnemy(pos, kind)
	e.eventLog.EmitSimple(EventTypeEnemySpawn, uint64(e.tick), 0,
		SpawnPayload{ActorID: en.ID, SpawnX: pos.X, SpawnY: pos.Y})
	return en
}

// RandomEdgePosition picks a side at random and a uniform point along it,
// inset from the playfield border.
func (e *Engine) RandomEdgePosition(inset float32) spatial.Vec2 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.randomEdgePosition(inset)
}

func (e *Engine) randomEdgePosition(inset float32) spatial.Vec2 {
	hx := e.cfg.HalfExtents.X - inset
	hy := e.cfg.HalfExtents.Y - inset
	if hx < 0 {
		hx = 0
	}
	if hy < 0 {
		hy = 0
	}

	switch e.rng.Range(0, 4) {
	case 0:
		return spatial.V(-hx, e.rng.RangeFloat(-hy, hy))
	case 1:
		return spatial.V(hx, e.rng.RangeFloat(-hy, hy))
	case 2:
		return spatial.V(e.rng.RangeFloat(-hx, hx), -hy)
	default:
		return spatial.V(e.rng.RangeFloat(-hx, hx), hy)
	}
}

// SpawnEnemiesAtEdges creates count default enemies at random edge points.
func (e *Engine) SpawnEnemiesAtEdges(count int, inset float32) []int32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.spawnEnemiesAtEdges(count, inset)
}

func (e *Engine) spawnEnemiesAtEdges(count int, inset float32) []int32 {
	if count <= 0 {
		return nil
	}
	ids := make([]int32, 0, count)
	kind := e.enemyTypes.Default()
	for i := 0; i < count; i++ {
		ids = append(ids, e.spawnEnemy(e.randomEdgePosition(inset), kind).ID)
	}
	return ids
}

// RemovePlayerActor deletes a player with its input and inventory.
func (e *Engine) RemovePlayerActor(id int32) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.store.RemovePlayer(id) {
		return false
	}
	delete(e.inputs, id)
	delete(e.inventories, id)
	e.life.MarkAlive(id)
	e.eventLog.EmitSimple(EventTypePlayerLeave, uint64(e.tick), id, nil)
	e.logger.Debug().Int32("actor", id).Msg("player removed")
	return true
}

// RemoveEnemyActor deletes an enemy without scoring it.
func (e *Engine) RemoveEnemyActor(id int32) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.RemoveEnemy(id)
}

// TryGetActorState returns the state of any actor.
func (e *Engine) TryGetActorState(id int32) (ActorState, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	a, ok := e.store.Get(id)
	if !ok {
		return ActorState{}, false
	}
	return a.State(), true
}

// SetActorHp overwrites an actor's hit points.
func (e *Engine) SetActorHp(id int32, hp int16) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, ok := e.store.Get(id)
	if !ok {
		return false
	}
	a.HP = hp
	return true
}

// PlayerStates returns every player in id order.
func (e *Engine) PlayerStates() []ActorState {
	e.mu.RLock()
	defer e.mu.RUnlock()

	players := e.store.Players(nil)
	out := make([]ActorState, len(players))
	for i, p := range players {
		out[i] = p.State()
	}
	return out
}

// EnemyStates returns every enemy in id order.
func (e *Engine) EnemyStates() []ActorState {
	e.mu.RLock()
	defer e.mu.RUnlock()

	enemies := e.store.Enemies(nil)
	out := make([]ActorState, len(enemies))
	for i, en := range enemies {
		out[i] = en.State()
	}
	return out
}

// Snapshot captures the current world: players then enemies, by id.
func (e *Engine) Snapshot() WorldSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	actors := make([]ActorState, 0, e.store.PlayerCount()+e.store.EnemyCount())
	for _, p := range e.store.Players(nil) {
		actors = append(actors, p.State())
	}
	for _, en := range e.store.Enemies(nil) {
		actors = append(actors, en.State())
	}
	return WorldSnapshot{Tick: int32(e.tick), Actors: actors}
}

// LatestFrame returns a copy of the snapshot published by the last tick.
func (e *Engine) LatestFrame() (FrameSnapshot, bool) {
	return e.snapshotPool.Latest()
}

// ReadFrame calls fn with the last published snapshot without copying.
func (e *Engine) ReadFrame(fn func(*FrameSnapshot)) bool {
	return e.snapshotPool.Read(fn)
}

// TryDequeueEvent pops the oldest pending domain event.
func (e *Engine) TryDequeueEvent() (DomainEvent, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.eventHead >= len(e.events) {
		return DomainEvent{}, false
	}
	ev := e.events[e.eventHead]
	e.eventHead++
	if e.eventHead == len(e.events) {
		e.events = e.events[:0]
		e.eventHead = 0
	}
	return ev, true
}

// DrainEvents returns and clears all pending domain events.
func (e *Engine) DrainEvents() []DomainEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.drainEvents()
}

func (e *Engine) drainEvents() []DomainEvent {
	if e.eventHead >= len(e.events) {
		return nil
	}
	out := make([]DomainEvent, len(e.events)-e.eventHead)
	copy(out, e.events[e.eventHead:])
	e.events = e.events[:0]
	e.eventHead = 0
	return out
}

// ConsumeShotEvents returns and clears all pending shot events.
func (e *Engine) ConsumeShotEvents() []ShotEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.consumeShots()
}

func (e *Engine) consumeShots() []ShotEvent {
	if len(e.shots) == 0 {
		return nil
	}
	out := make([]ShotEvent, len(e.shots))
	copy(out, e.shots)
	e.shots = e.shots[:0]
	return out
}

// ConsumeWeaponSpawns returns and clears pending weapon drop requests.
func (e *Engine) ConsumeWeaponSpawns() []WeaponSpawnRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.consumeWeaponSpawns()
}

func (e *Engine) consumeWeaponSpawns() []WeaponSpawnRequest {
	if len(e.weaponSpawns) == 0 {
		return nil
	}
	out := make([]WeaponSpawnRequest, len(e.weaponSpawns))
	copy(out, e.weaponSpawns)
	e.weaponSpawns = e.weaponSpawns[:0]
	return out
}

// PickupResult is the outcome of Engine.ApplyPickup.
type PickupResult struct {
	Inventory     InventoryState `json:"inventory"`
	Dropped       bool           `json:"dropped"`
	DroppedPickup Pickup         `json:"droppedPickup"`
}

// GetInventory returns a player's inventory.
func (e *Engine) GetInventory(id int32) (InventoryState, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	inv, ok := e.inventories[id]
	return inv, ok
}

// SetActiveSlot selects a slot, clamped into range.
func (e *Engine) SetActiveSlot(id int32, index int) (InventoryState, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	inv, ok := e.inventories[id]
	if !ok {
		return InventoryState{}, false
	}
	inv = SetActive(inv, index)
	e.inventories[id] = inv
	return inv, true
}

// ApplyPickup gives loot to a player.
func (e *Engine) ApplyPickup(id int32, loot Pickup) (PickupResult, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	inv, ok := e.inventories[id]
	if !ok {
		return PickupResult{}, false
	}
	next, dropped, droppedPickup := ApplyPickup(inv, loot)
	e.inventories[id] = next
	return PickupResult{Inventory: next, Dropped: dropped, DroppedPickup: droppedPickup}, true
}

// ConsumeResult is the outcome of Engine.TryConsumeAmmo.
type ConsumeResult struct {
	Fired bool           `json:"fired"`
	Next  InventoryState `json:"next"`
}

// TryConsumeAmmo spends one round from the player's active slot.
func (e *Engine) TryConsumeAmmo(id int32) (ConsumeResult, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	inv, ok := e.inventories[id]
	if !ok {
		return ConsumeResult{}, false
	}
	fired, next := TryConsume(inv)
	e.inventories[id] = next
	return ConsumeResult{Fired: fired, Next: next}, true
}

// Status is a summary of the simulation for status endpoints.
type Status struct {
	Tick          int64   `json:"tick"`
	Players       int     `json:"players"`
	AlivePlayers  int     `json:"alivePlayers"`
	Enemies       int     `json:"enemies"`
	Score         int     `json:"score"`
	TeamWiped     bool    `json:"teamWiped"`
	ReviveSeconds float32 `json:"reviveSeconds"`
	DeadPlayers   int     `json:"deadPlayers"`
	TimeOfDay     float32 `json:"timeOfDay"`
	NightCount    int     `json:"nightCount"`
	Corruption    float32 `json:"corruptionRadius"`
	Intensity     float32 `json:"intensity"`

	Grid spatial.GridStats `json:"grid"`
}

// Status returns the current summary.
func (e *Engine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return Status{
		Tick:          e.tick,
		Players:       e.store.PlayerCount(),
		AlivePlayers:  e.store.AlivePlayerCount(),
		Enemies:       e.store.EnemyCount(),
		Score:         e.score,
		TeamWiped:     e.wiped,
		ReviveSeconds: e.life.ReviveSecondsRemaining(),
		DeadPlayers:   e.life.DeadCount(),
		TimeOfDay:     e.night.TimeOfDay,
		NightCount:    e.night.NightCount,
		Corruption:    e.night.CorruptionRadius(),
		Intensity:     e.director.Intensity,
		Grid:          e.gridStats,
	}
}

// TickCount returns the number of completed ticks.
func (e *Engine) TickCount() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tick
}

// Score returns enemies killed by the team.
func (e *Engine) Score() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.score
}

// Kills returns enemies credited to a player.
func (e *Engine) Kills(id int32) (int, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	p, ok := e.store.Player(id)
	if !ok {
		return 0, false
	}
	return p.Kills, true
}

// TeamWiped reports whether players exist and none is alive.
func (e *Engine) TeamWiped() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.wiped
}

// EventLogStats returns counters of the JSONL event log.
func (e *Engine) EventLogStats() map[string]interface{} {
	return e.eventLog.GetStats()
}

// TickReport is everything a tick produced, handed to the Run sink.
type TickReport struct {
	Tick         int64
	Duration     time.Duration
	Events       []DomainEvent
	Shots        []ShotEvent
	WeaponSpawns []WeaponSpawnRequest
}

// Run calls Init, then Tick at the configured rate until ctx is done.
// After every tick it drains the event, shot and weapon queues into sink,
// so Run is the only consumer of those queues while it runs.
func (e *Engine) Run(ctx context.Context, sink func(TickReport)) error {
	if path := e.cfg.EventLogPath; path != "" {
		if err := e.eventLog.Start(path); err != nil {
			return fmt.Errorf("start event log: %w", err)
		}
		defer e.eventLog.Stop()
	}

	e.Init()

	ticker := time.NewTicker(time.Second / time.Duration(e.cfg.TickRate))
	defer ticker.Stop()

	e.logger.Info().Int("tickRate", e.cfg.TickRate).Msg("simulation started")

	for {
		select {
		case <-ctx.Done():
			e.logger.Info().Int64("tick", e.TickCount()).Msg("simulation stopped")
			return nil
		case <-ticker.C:
			start := time.Now()
			e.Tick(e.dt)
			if sink == nil {
				continue
			}
			e.mu.Lock()
			report := TickReport{
				Tick:         e.tick,
				Duration:     time.Since(start),
				Events:       e.drainEvents(),
				Shots:        e.consumeShots(),
				WeaponSpawns: e.consumeWeaponSpawns(),
			}
			e.mu.Unlock()
			sink(report)
		}
	}
}
