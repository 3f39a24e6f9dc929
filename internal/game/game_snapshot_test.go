package game

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotPoolEmpty(t *testing.T) {
	p := NewSnapshotPool(DefaultLimits)
	_, ok := p.Latest()
	assert.False(t, ok)
}

func TestSnapshotPoolPublish(t *testing.T) {
	p := NewSnapshotPool(DefaultLimits)

	for i := 1; i <= 5; i++ {
		w := p.AcquireWrite()
		w.World.Tick = int32(i)
		w.World.Actors = append(w.World.Actors, ActorState{ID: int32(i)})
		p.PublishWrite()

		got, ok := p.Latest()
		require.True(t, ok)
		assert.Equal(t, int32(i), got.World.Tick)
		assert.Equal(t, uint64(i), got.Sequence)
		require.Len(t, got.World.Actors, 1, "slices must be reset between writes")
		assert.Equal(t, int32(i), got.World.Actors[0].ID)
	}
}

func TestSnapshotPoolCloneIsIndependent(t *testing.T) {
	p := NewSnapshotPool(DefaultLimits)
	w := p.AcquireWrite()
	w.World.Actors = append(w.World.Actors, ActorState{ID: 1})
	p.PublishWrite()

	c, _ := p.Latest()
	c.World.Actors[0].ID = 99

	again, _ := p.Latest()
	assert.Equal(t, int32(1), again.World.Actors[0].ID)
}

func TestSnapshotPoolConcurrentReaders(t *testing.T) {
	p := NewSnapshotPool(DefaultLimits)
	var wg sync.WaitGroup
	stop := make(chan struct{})

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				p.Read(func(f *FrameSnapshot) {
					if len(f.World.Actors) > 0 && f.World.Actors[0].ID != f.World.Tick {
						t.Errorf("Torn snapshot: tick %d actor %d", f.World.Tick, f.World.Actors[0].ID)
					}
				})
			}
		}()
	}

	for i := 1; i <= 2000; i++ {
		w := p.AcquireWrite()
		w.World.Tick = int32(i)
		w.World.Actors = append(w.World.Actors, ActorState{ID: int32(i)})
		p.PublishWrite()
	}
	close(stop)
	wg.Wait()
}
