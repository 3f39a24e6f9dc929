package game

import "sort"

// DefaultReviveSeconds is the shared revive countdown length.
const DefaultReviveSeconds float32 = 10

// LifeSystem tracks dead players and the shared revive countdown.
//
// The countdown runs only while at least one player is dead and at least
// one is alive. A new death restarts it at full duration. With nobody
// alive it drops back to idle and restarts in full once someone is alive
// again; ending the round on a wipe is the engine's business.
type LifeSystem struct {
	dead      map[int32]struct{}
	countdown float32 // < 0 means idle
	duration  float32
	respawns  []int32
}

// NewLifeSystem creates an idle life system.
func NewLifeSystem(reviveSeconds float32) *LifeSystem {
	return &LifeSystem{
		dead:      make(map[int32]struct{}),
		countdown: -1,
		duration:  reviveSeconds,
	}
}

// IsDead reports whether id is waiting for revival.
func (l *LifeSystem) IsDead(id int32) bool {
	_, ok := l.dead[id]
	return ok
}

// MarkDead registers id as dead. A newly dead id restarts the countdown.
func (l *LifeSystem) MarkDead(id int32) {
	if _, ok := l.dead[id]; ok {
		return
	}
	l.dead[id] = struct{}{}
	l.countdown = l.duration
}

// MarkAlive forgets id. The countdown goes idle once nobody is dead.
func (l *LifeSystem) MarkAlive(id int32) {
	delete(l.dead, id)
	if len(l.dead) == 0 {
		l.countdown = -1
	}
}

// Tick advances the countdown by dt given the current living player count.
// Respawns produced by an earlier Tick and not yet consumed are discarded.
func (l *LifeSystem) Tick(dt float32, alivePlayers int) {
	l.respawns = l.respawns[:0]
	if alivePlayers <= 0 || len(l.dead) == 0 {
		l.countdown = -1
		return
	}
	if l.countdown < 0 {
		l.countdown = l.duration
	}

	l.countdown -= dt
	if l.countdown > 0 {
		return
	}

	for id := range l.dead {
		l.respawns = append(l.respawns, id)
	}
	sort.Slice(l.respawns, func(i, j int) bool { return l.respawns[i] < l.respawns[j] })
	clear(l.dead)
	l.countdown = -1
}

// ConsumeRespawns returns the ids due for respawn, in ascending order.
// Each batch is returned by exactly one call.
func (l *LifeSystem) ConsumeRespawns() []int32 {
	if len(l.respawns) == 0 {
		return nil
	}
	out := make([]int32, len(l.respawns))
	copy(out, l.respawns)
	l.respawns = l.respawns[:0]
	return out
}

// ReviveSecondsRemaining returns the countdown, or 0 when idle.
func (l *LifeSystem) ReviveSecondsRemaining() float32 {
	if l.countdown < 0 {
		return 0
	}
	return l.countdown
}

// DeadCount returns the number of players waiting for revival.
func (l *LifeSystem) DeadCount() int {
	return len(l.dead)
}

// Active reports whether the countdown is running.
func (l *LifeSystem) Active() bool {
	return l.countdown >= 0
}
