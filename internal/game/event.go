package game

import (
	"encoding/json"
	"time"
)

// EventType enum for event classification
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeTick              // Tick boundary with RNG state
	EventTypePlayerJoin
	EventTypePlayerLeave
	EventTypeDamage
	EventTypeDeath
	EventTypeRespawn
	EventTypeEnemySpawn
	EventTypeWeaponSpawn
)

// EventVersion for backwards compatibility in replay
const EventVersion uint8 = 1

// Event is the core event structure for the event log
type Event struct {
	Version   uint8           `json:"version"`   // Schema version
	Type      EventType       `json:"type"`      // Event type
	Timestamp int64           `json:"timestamp"` // Unix nano
	Sequence  uint64          `json:"sequence"`  // Monotonic sequence
	TickNum   uint64          `json:"tickNum"`   // Sim tick this occurred in
	ActorID   int32           `json:"actorId"`   // Source actor (for rate limiting), 0 if none
	Payload   json.RawMessage `json:"payload"`   // JSON-encoded payload
}

// String returns human-readable event type
func (t EventType) String() string {
	switch t {
	case EventTypeTick:
		return "tick"
	case EventTypePlayerJoin:
		return "player_join"
	case EventTypePlayerLeave:
		return "player_leave"
	case EventTypeDamage:
		return "damage"
	case EventTypeDeath:
		return "death"
	case EventTypeRespawn:
		return "respawn"
	case EventTypeEnemySpawn:
		return "enemy_spawn"
	case EventTypeWeaponSpawn:
		return "weapon_spawn"
	default:
		return "unknown"
	}
}

// Typed payloads for different event types

// TickPayload contains tick boundary information for replay
type TickPayload struct {
	RNGState    uint32 `json:"rngState"`
	PlayerCount int    `json:"playerCount"`
	EnemyCount  int    `json:"enemyCount"`
	DeltaTimeNs int64  `json:"deltaTimeNs"`
}

// DamagePayload contains damage event details
type DamagePayload struct {
	AttackerID int32 `json:"attackerId"`
	VictimID   int32 `json:"victimId"`
	Damage     int   `json:"damage"`
	VictimHP   int   `json:"victimHp"`
}

// DeathPayload contains death event details
type DeathPayload struct {
	ActorID  int32  `json:"actorId"`
	Team     string `json:"team"`
	KillerID int32  `json:"killerId,omitempty"`
}

// SpawnPayload contains player join and enemy spawn details
type SpawnPayload struct {
	ActorID int32   `json:"actorId"`
	SpawnX  float32 `json:"spawnX"`
	SpawnY  float32 `json:"spawnY"`
}

// RespawnPayload contains respawn event details
type RespawnPayload struct {
	ActorID int32   `json:"actorId"`
	SpawnX  float32 `json:"spawnX"`
	SpawnY  float32 `json:"spawnY"`
}

// WeaponSpawnPayload contains weapon drop details
type WeaponSpawnPayload struct {
	Weapon string  `json:"weapon"`
	Ammo   int     `json:"ammo"`
	X      float32 `json:"x"`
	Y      float32 `json:"y"`
}

// EncodePayload marshals a payload to JSON bytes
func EncodePayload(payload interface{}) []byte {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, tickNum uint64, actorID int32, payload interface{}) Event {
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Timestamp: time.Now().UnixNano(),
		TickNum:   tickNum,
		ActorID:   actorID,
		Payload:   EncodePayload(payload),
	}
}
