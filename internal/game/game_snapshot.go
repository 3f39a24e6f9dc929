package game

import (
	"sync"
	"sync/atomic"
	"time"
)

// ResourceLimits caps what a snapshot pre-allocates and what waves may spawn.
type ResourceLimits struct {
	MaxPlayers int // Players per snapshot
	MaxEnemies int // Live enemies; wave spawns stop at this count
	MaxShots   int // Shot events per snapshot
}

// DefaultLimits provides production-safe default limits
var DefaultLimits = ResourceLimits{
	MaxPlayers: 64,
	MaxEnemies: 256,
	MaxShots:   128,
}

// FrameSnapshot is the published state of one completed tick.
// Readers must treat it as immutable.
type FrameSnapshot struct {
	Sequence  uint64    // Monotonic sequence for ordering
	Timestamp time.Time // When the snapshot was produced

	World WorldSnapshot
	Shots []ShotEvent // Shots fired during this tick

	Score         int
	Intensity     float32
	TimeOfDay     float32
	NightCount    int
	ReviveSeconds float32
	TeamWiped     bool
	RNGState      uint32
}

// Clone returns a deep copy that the caller may keep.
func (f *FrameSnapshot) Clone() FrameSnapshot {
	c := *f
	c.World.Actors = append([]ActorState(nil), f.World.Actors...)
	c.Shots = append([]ShotEvent(nil), f.Shots...)
	return c
}

type snapshotSlot struct {
	mu   sync.RWMutex
	snap FrameSnapshot
}

// SnapshotPool is a triple buffer between the tick (single writer) and any
// number of readers. The writer fills a slot other than the published one;
// readers hold a slot's read lock only while they look at it.
type SnapshotPool struct {
	slots     [3]snapshotSlot
	limits    ResourceLimits
	writeIdx  uint32 // writer only
	readIdx   atomic.Uint32
	published atomic.Bool
	sequence  uint64 // writer only
}

// NewSnapshotPool creates a pool with pre-allocated slices
func NewSnapshotPool(limits ResourceLimits) *SnapshotPool {
	pool := &SnapshotPool{limits: limits}
	for i := range pool.slots {
		pool.slots[i].snap = FrameSnapshot{
			World: WorldSnapshot{Actors: make([]ActorState, 0, limits.MaxPlayers+limits.MaxEnemies)},
			Shots: make([]ShotEvent, 0, limits.MaxShots),
		}
	}
	return pool
}

// AcquireWrite locks the next write slot and returns it reset, keeping
// slice capacity. Must be followed by PublishWrite.
func (p *SnapshotPool) AcquireWrite() *FrameSnapshot {
	idx := (p.readIdx.Load() + 1) % 3
	p.writeIdx = idx
	slot := &p.slots[idx]
	slot.mu.Lock()

	snap := &slot.snap
	actors := snap.World.Actors[:0]
	shots := snap.Shots[:0]
	p.sequence++
	*snap = FrameSnapshot{
		Sequence:  p.sequence,
		Timestamp: time.Now(),
		World:     WorldSnapshot{Actors: actors},
		Shots:     shots,
	}
	return snap
}

// PublishWrite unlocks the slot filled since AcquireWrite and makes it the
// one readers see.
func (p *SnapshotPool) PublishWrite() {
	p.slots[p.writeIdx].mu.Unlock()
	p.readIdx.Store(p.writeIdx)
	p.published.Store(true)
}

// Read calls fn with the latest published snapshot. fn must not retain it.
// Returns false if nothing has been published yet.
func (p *SnapshotPool) Read(fn func(*FrameSnapshot)) bool {
	if !p.published.Load() {
		return false
	}
	slot := &p.slots[p.readIdx.Load()]
	slot.mu.RLock()
	defer slot.mu.RUnlock()
	fn(&slot.snap)
	return true
}

// Latest returns a copy of the latest published snapshot.
func (p *SnapshotPool) Latest() (FrameSnapshot, bool) {
	var out FrameSnapshot
	ok := p.Read(func(f *FrameSnapshot) { out = f.Clone() })
	return out, ok
}

// GetLimits returns the resource limits
func (p *SnapshotPool) GetLimits() ResourceLimits {
	return p.limits
}
