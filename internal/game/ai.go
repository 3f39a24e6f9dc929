package game

import "hellscape/internal/game/spatial"

// NearestLivingPlayer returns the living player closest to pos by squared
// distance, limited to maxRange. Ties keep the earlier (lower id) player.
func NearestLivingPlayer(pos spatial.Vec2, players []*Actor, maxRange float32) (*Actor, bool) {
	var best *Actor
	bestSq := maxRange * maxRange
	for _, p := range players {
		if !p.Alive || p.HP <= 0 {
			continue
		}
		d := spatial.DistanceSq(pos, p.Pos)
		if d <= bestSq && (best == nil || d < bestSq) {
			best = p
			bestSq = d
		}
	}
	return best, best != nil
}

// Seek steers vel toward target at speed using exponential smoothing.
func Seek(vel, from, target spatial.Vec2, speed, dt float32) spatial.Vec2 {
	desired := target.Sub(from).Normalize().Scale(speed)
	return spatial.Lerp(vel, desired, spatial.Clamp01(PlayerAcceleration*dt))
}

// Brake decays vel toward zero using exponential smoothing.
func Brake(vel spatial.Vec2, dt float32) spatial.Vec2 {
	return spatial.Lerp(vel, spatial.Zero, spatial.Clamp01(PlayerDeceleration*dt))
}

// runEnemyAI steers one living, non-flinching enemy and resolves its melee.
func (e *Engine) runEnemyAI(enemy *Actor, players []*Actor, dt float32) {
	target, ok := NearestLivingPlayer(enemy.Pos, players, EnemySenseRange)
	if !ok {
		enemy.Vel = Brake(enemy.Vel, dt)
		return
	}

	enemy.Vel = Seek(enemy.Vel, enemy.Pos, target.Pos, enemy.MoveSpeed, dt)

	kind := enemy.Kind
	if kind == nil || enemy.AttackCooldown > 0 {
		return
	}
	reach := kind.AttackRange
	if spatial.DistanceSq(enemy.Pos, target.Pos) > reach*reach {
		return
	}

	enemy.AttackCooldown = kind.AttackCooldown
	target.HP = subHP(target.HP, kind.AttackDamage)
	if target.HP < 0 {
		target.HP = 0
	}
	e.enqueueEvent(HitLanded(enemy.ID, target.ID, kind.AttackDamage))

	if target.HP == 0 {
		e.killPlayer(target)
	}
}

// killPlayer marks a player dead and hands it to the life system.
func (e *Engine) killPlayer(p *Actor) {
	p.Alive = false
	p.Vel = spatial.Zero
	e.life.MarkDead(p.ID)
	e.enqueueEvent(ActorDied(p.ID))
	e.eventLog.EmitSimple(EventTypeDeath, uint64(e.tick), p.ID, DeathPayload{ActorID: p.ID, Team: p.Team.String()})
	e.metrics.ActorDied(TeamPlayer)
	e.logger.Debug().Int32("actor", p.ID).Int64("tick", e.tick).Msg("player died")
}
