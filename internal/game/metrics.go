package game

import "time"

// Metrics receives simulation counters. Implementations must be cheap and
// must not call back into the Engine; they run with the engine lock held.
type Metrics interface {
	TickCompleted(d time.Duration, players, enemies int)
	ShotFired(hit bool)
	ActorDied(team Team)
	Respawned(n int)
}

type nopMetrics struct{}

func (nopMetrics) TickCompleted(time.Duration, int, int) {}
func (nopMetrics) ShotFired(bool)                        {}
func (nopMetrics) ActorDied(Team)                        {}
func (nopMetrics) Respawned(int)                         {}
