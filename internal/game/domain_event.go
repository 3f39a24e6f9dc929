package game

import "hellscape/internal/game/spatial"

// DomainEventKind tags a DomainEvent.
type DomainEventKind uint8

const (
	KindHitLanded DomainEventKind = iota
	KindActorDied
)

// String returns the kind name.
func (k DomainEventKind) String() string {
	switch k {
	case KindHitLanded:
		return "hit_landed"
	case KindActorDied:
		return "actor_died"
	default:
		return "unknown"
	}
}

// DomainEvent is a combat or lifecycle occurrence produced during a tick.
// AttackerID and Damage are only set for KindHitLanded.
type DomainEvent struct {
	Kind       DomainEventKind `json:"kind"`
	Tick       int64           `json:"tick"`
	AttackerID int32           `json:"attackerId,omitempty"`
	TargetID   int32           `json:"targetId"`
	Damage     int16           `json:"damage,omitempty"`
}

// HitLanded builds a hit event.
func HitLanded(attacker, target int32, damage int16) DomainEvent {
	return DomainEvent{Kind: KindHitLanded, AttackerID: attacker, TargetID: target, Damage: damage}
}

// ActorDied builds a death event.
func ActorDied(target int32) DomainEvent {
	return DomainEvent{Kind: KindActorDied, TargetID: target}
}

// ShotEvent describes one weapon discharge for tracer rendering.
// End is the impact point on a hit, otherwise the end of the range.
type ShotEvent struct {
	Start spatial.Vec2 `json:"start"`
	End   spatial.Vec2 `json:"end"`
	Hit   bool         `json:"hit"`
}
