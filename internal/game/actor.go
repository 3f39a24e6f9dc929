package game

import (
	"sort"

	"hellscape/internal/game/spatial"
)

// Team separates players from enemies.
type Team uint8

const (
	TeamPlayer Team = iota
	TeamEnemy
)

// String returns the team name.
func (t Team) String() string {
	switch t {
	case TeamPlayer:
		return "player"
	case TeamEnemy:
		return "enemy"
	default:
		return "unknown"
	}
}

// ActorType is the wire type tag of an actor.
type ActorType uint8

const (
	ActorTypePlayer ActorType = iota
	ActorTypeEnemy
)

// Actor is the authoritative record for one simulated entity.
// Only the ActorStore holds *Actor; other components work through ids.
type Actor struct {
	ID        int32
	Pos       spatial.Vec2
	Vel       spatial.Vec2
	Team      Team
	Type      ActorType
	Radius    float32
	HP        int16
	Alive     bool
	MoveSpeed float32

	// Timers
	DashCooldown   float32 // seconds
	GunCooldown    int     // ticks
	AttackCooldown float32 // seconds, enemies only
	FlinchTimer    float32 // seconds, enemies only

	Kind     *EnemyType // nil for players
	Kills    int        // enemies killed, players only
	KilledBy int32      // shooter credited with the kill, enemies only
}

// ActorState is the value view of an actor handed to callers and snapshots.
type ActorState struct {
	ID     int32        `json:"id"`
	Pos    spatial.Vec2 `json:"pos"`
	Vel    spatial.Vec2 `json:"vel"`
	HP     int16        `json:"hp"`
	Type   ActorType    `json:"type"`
	Team   Team         `json:"team"`
	Radius float32      `json:"radius"`
	Alive  bool         `json:"alive"`
}

// State copies the replicated fields of the actor.
func (a *Actor) State() ActorState {
	return ActorState{
		ID:     a.ID,
		Pos:    a.Pos,
		Vel:    a.Vel,
		HP:     a.HP,
		Type:   a.Type,
		Team:   a.Team,
		Radius: a.Radius,
		Alive:  a.Alive,
	}
}

// actorTable is an id-keyed collection that iterates in ascending id order.
// Ids are handed out monotonically, so appending keeps order sorted.
type actorTable struct {
	byID  map[int32]*Actor
	order []int32
}

func newActorTable() actorTable {
	return actorTable{byID: make(map[int32]*Actor)}
}

func (t *actorTable) add(a *Actor) {
	t.byID[a.ID] = a
	t.order = append(t.order, a.ID)
}

func (t *actorTable) remove(id int32) bool {
	if _, ok := t.byID[id]; !ok {
		return false
	}
	delete(t.byID, id)
	i := sort.Search(len(t.order), func(i int) bool { return t.order[i] >= id })
	if i < len(t.order) && t.order[i] == id {
		t.order = append(t.order[:i], t.order[i+1:]...)
	}
	return true
}

func (t *actorTable) get(id int32) (*Actor, bool) {
	a, ok := t.byID[id]
	return a, ok
}

// appendTo appends actors in id order to dst.
func (t *actorTable) appendTo(dst []*Actor) []*Actor {
	for _, id := range t.order {
		dst = append(dst, t.byID[id])
	}
	return dst
}

// ActorStore owns all live actors. Players and enemies live in separate
// tables but draw ids from one counter, so ids never collide.
type ActorStore struct {
	players actorTable
	enemies actorTable
	nextID  int32
}

// NewActorStore creates an empty store. The first id handed out is 1.
func NewActorStore() *ActorStore {
	return &ActorStore{
		players: newActorTable(),
		enemies: newActorTable(),
		nextID:  1,
	}
}

func (s *ActorStore) allocID() int32 {
	id := s.nextID
	s.nextID++
	return id
}

// SpawnPlayer creates a live player at pos.
func (s *ActorStore) SpawnPlayer(pos spatial.Vec2) *Actor {
	a := &Actor{
		ID:        s.allocID(),
		Pos:       pos,
		Team:      TeamPlayer,
		Type:      ActorTypePlayer,
		Radius:    PlayerRadius,
		HP:        PlayerMaxHP,
		Alive:     true,
		MoveSpeed: PlayerSpeed,
	}
	s.players.add(a)
	return a
}

// SpawnEnemy creates a live enemy of the given kind at pos.
func (s *ActorStore) SpawnEnemy(pos spatial.Vec2, kind *EnemyType) *Actor {
	a := &Actor{
		ID:        s.allocID(),
		Pos:       pos,
		Team:      TeamEnemy,
		Type:      ActorTypeEnemy,
		Radius:    EnemyRadius,
		HP:        int16(kind.MaxHP),
		Alive:     true,
		MoveSpeed: kind.MoveSpeed,
		Kind:      kind,
	}
	s.enemies.add(a)
	return a
}

// RemovePlayer deletes a player. Returns false if id is not a player.
func (s *ActorStore) RemovePlayer(id int32) bool {
	return s.players.remove(id)
}

// RemoveEnemy deletes an enemy. Returns false if id is not an enemy.
func (s *ActorStore) RemoveEnemy(id int32) bool {
	return s.enemies.remove(id)
}

// Get looks up an actor in either table.
func (s *ActorStore) Get(id int32) (*Actor, bool) {
	if a, ok := s.players.get(id); ok {
		return a, true
	}
	return s.enemies.get(id)
}

// Player looks up a player actor.
func (s *ActorStore) Player(id int32) (*Actor, bool) {
	return s.players.get(id)
}

// Enemy looks up an enemy actor.
func (s *ActorStore) Enemy(id int32) (*Actor, bool) {
	return s.enemies.get(id)
}

// Players appends all players in id order to dst and returns it.
func (s *ActorStore) Players(dst []*Actor) []*Actor {
	return s.players.appendTo(dst)
}

// Enemies appends all enemies in id order to dst and returns it.
func (s *ActorStore) Enemies(dst []*Actor) []*Actor {
	return s.enemies.appendTo(dst)
}

// PlayerCount returns the number of player actors, dead or alive.
func (s *ActorStore) PlayerCount() int {
	return len(s.players.order)
}

// EnemyCount returns the number of enemy actors.
func (s *ActorStore) EnemyCount() int {
	return len(s.enemies.order)
}

// AlivePlayerCount returns the number of living players.
func (s *ActorStore) AlivePlayerCount() int {
	n := 0
	for _, id := range s.players.order {
		if s.players.byID[id].Alive {
			n++
		}
	}
	return n
}

// NextID returns the id the next spawn will receive.
func (s *ActorStore) NextID() int32 {
	return s.nextID
}
