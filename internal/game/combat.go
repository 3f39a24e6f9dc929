package game

import (
	"math"

	"hellscape/internal/game/spatial"
)

// Movement and combat balance. Server-authoritative; clients never see
// these except through their effects on snapshots.
const (
	// Player movement
	PlayerSpeed         float32 = 5.0  // units/s
	PlayerAcceleration  float32 = 15.0 // smoothing rate, 1/s
	PlayerDeceleration  float32 = 20.0 // smoothing rate, 1/s
	DashImpulse         float32 = 8.0  // units/s
	DashCooldownSeconds float32 = 0.5

	// Input button bits
	ButtonAttack byte = 0x01
	ButtonDash   byte = 0x04

	// Pistol
	PistolDamage          int16   = 25
	PistolRange           float32 = 12.0
	PistolCooldownSeconds float32 = 0.16 // 8 ticks at 50 Hz

	// Enemies
	EnemySpeed          float32 = 3.5
	EnemySenseRange     float32 = 50.0
	EnemyMeleeRange     float32 = 0.75
	EnemyMeleeDamage    int16   = 10
	EnemyAttackCooldown float32 = 0.8 // seconds
	FlinchSeconds       float32 = 0.1

	// Bodies
	PlayerRadius float32 = 0.45
	EnemyRadius  float32 = 0.5
	PlayerMaxHP  int16   = 100
	EnemyMaxHP   int     = 60

	// Lifecycle
	RespawnHP int16 = 80
)

// RespawnOffset is added to a living teammate's position on respawn.
var RespawnOffset = spatial.V(2, 2)

// GunCooldownTicks converts the pistol cooldown to ticks at dt.
// Always at least one tick.
func GunCooldownTicks(dt float32) int {
	if dt <= 0 {
		return 1
	}
	ticks := int(math.Round(float64(PistolCooldownSeconds / dt)))
	if ticks < 1 {
		ticks = 1
	}
	return ticks
}

// subHP returns hp - dmg, saturating at the int16 bounds.
func subHP(hp, dmg int16) int16 {
	v := int32(hp) - int32(dmg)
	switch {
	case v < math.MinInt16:
		return math.MinInt16
	case v > math.MaxInt16:
		return math.MaxInt16
	}
	return int16(v)
}

// HitscanResult is the outcome of tracing one shot.
type HitscanResult struct {
	Target *Actor // nil on miss
	T      float32
	End    spatial.Vec2
}

// Hit reports whether the trace struck an actor.
func (r HitscanResult) Hit() bool {
	return r.Target != nil
}

// TraceShot tests the segment start→end against every candidate and picks
// the one with the smallest projection parameter. Candidates must be in
// ascending id order; on equal parameters the earlier (lower id) wins.
// Dead candidates, including ones at hp <= 0 awaiting the cull, are skipped. End is the impact point on a hit, or end.
func TraceShot(start, end spatial.Vec2, candidates []*Actor) HitscanResult {
	res := HitscanResult{End: end}
	best := float32(math.MaxFloat32)
	for _, c := range candidates {
		if !c.Alive || c.HP <= 0 {
			continue
		}
		hit, t := spatial.SegmentCircle(start, end, c.Pos, c.Radius)
		if hit && t < best {
			best = t
			res.Target = c
			res.T = t
		}
	}
	if res.Target != nil {
		res.End = spatial.PointAlong(start, end, res.T)
	}
	return res
}

// processShooting resolves one pistol discharge by shooter. Caller holds e.mu
// and has checked the cooldown and aim.
func (e *Engine) processShooting(shooter *Actor, aim spatial.Vec2, dt float32) {
	dir := aim.Normalize()
	start := shooter.Pos
	end := start.Add(dir.Scale(PistolRange))

	e.enemyScratch = e.store.Enemies(e.enemyScratch[:0])
	res := TraceShot(start, end, e.enemyScratch)

	if res.Hit() {
		target := res.Target
		target.HP = subHP(target.HP, PistolDamage)
		target.FlinchTimer = FlinchSeconds
		if target.HP <= 0 && target.KilledBy == 0 {
			target.KilledBy = shooter.ID
		}
		e.enqueueEvent(HitLanded(shooter.ID, target.ID, PistolDamage))
		e.eventLog.EmitSimple(EventTypeDamage, uint64(e.tick), shooter.ID,
			DamagePayload{
				AttackerID: shooter.ID,
				VictimID:   target.ID,
				Damage:     int(PistolDamage),
				VictimHP:   int(target.HP),
			})
	}

	e.shots = append(e.shots, ShotEvent{Start: start, End: res.End, Hit: res.Hit()})
	shooter.GunCooldown = GunCooldownTicks(dt)
	e.metrics.ShotFired(res.Hit())
}
