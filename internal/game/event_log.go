package game

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	EventBufferSize     = 1024                   // Circular buffer size
	MaxEventsPerSec     = 10000                  // Global rate limit
	MaxEventsPerActor   = 100                    // Per-actor rate limit per second
	BatchFlushSize      = 64                     // Events per batch write
	BatchFlushInterval  = 100 * time.Millisecond // How often to flush
	ActorLimiterCleanup = 5 * time.Minute        // Cleanup interval for actor limiters
)

// EventLog is a bounded, rate-limited, append-only JSONL log of sim events.
// Emit never blocks the tick: under pressure the oldest events are dropped.
type EventLog struct {
	mu        sync.Mutex
	buffer    [EventBufferSize]Event
	writeHead uint64
	readHead  uint64

	globalLimiter *rate.Limiter
	actorLimiters sync.Map // map[int32]*actorLimiterEntry

	writerWg sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	file   *os.File
	out    *bufio.Writer
	fileMu sync.Mutex
	logger zerolog.Logger

	droppedCount atomic.Uint64
	totalCount   atomic.Uint64
}

type actorLimiterEntry struct {
	limiter  *rate.Limiter
	lastUsed atomic.Int64 // unix nano
}

// NewEventLog creates a stopped event log. Emit is a no-op until Start.
func NewEventLog(logger zerolog.Logger) *EventLog {
	return &EventLog{
		globalLimiter: rate.NewLimiter(MaxEventsPerSec, MaxEventsPerSec/10),
		stopChan:      make(chan struct{}),
		logger:        logger,
	}
}

// Start opens filePath for append and begins the async writer.
// An empty path keeps events in memory only.
func (el *EventLog) Start(filePath string) error {
	if el.running.Load() {
		return nil
	}

	if filePath != "" {
		file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		el.file = file
		el.out = bufio.NewWriter(file)
	}

	el.running.Store(true)
	el.writerWg.Add(2)
	go el.writerLoop()
	go el.cleanupLoop()

	return nil
}

// Stop flushes pending events and closes the file. Safe to call twice.
func (el *EventLog) Stop() {
	if !el.running.Load() {
		return
	}
	el.stopOnce.Do(func() {
		el.running.Store(false)
		close(el.stopChan)
		el.writerWg.Wait()

		el.fileMu.Lock()
		defer el.fileMu.Unlock()
		if el.out != nil {
			if err := el.out.Flush(); err != nil {
				el.logger.Warn().Err(err).Msg("event log flush failed")
			}
		}
		if el.file != nil {
			el.file.Close()
		}
	})
}

// Emit adds an event. Returns false if stopped, rate limited or if the
// buffer overflowed and an older event had to be dropped.
func (el *EventLog) Emit(event Event) bool {
	if !el.running.Load() {
		return false
	}

	if !el.globalLimiter.Allow() {
		el.droppedCount.Add(1)
		return false
	}

	if event.ActorID != 0 && !el.actorLimiter(event.ActorID).Allow() {
		el.droppedCount.Add(1)
		return false
	}

	el.mu.Lock()
	el.writeHead++
	event.Sequence = el.writeHead
	if el.writeHead-el.readHead > EventBufferSize {
		el.readHead++
		el.droppedCount.Add(1)
	}
	el.buffer[el.writeHead%EventBufferSize] = event
	el.mu.Unlock()

	el.totalCount.Add(1)
	return true
}

// EmitSimple builds and emits an event. The payload is only marshalled
// while the log is running.
func (el *EventLog) EmitSimple(eventType EventType, tickNum uint64, actorID int32, payload interface{}) bool {
	if !el.running.Load() {
		return false
	}
	return el.Emit(NewEvent(eventType, tickNum, actorID, payload))
}

func (el *EventLog) actorLimiter(id int32) *rate.Limiter {
	now := time.Now().UnixNano()
	if entry, ok := el.actorLimiters.Load(id); ok {
		e := entry.(*actorLimiterEntry)
		e.lastUsed.Store(now)
		return e.limiter
	}

	entry := &actorLimiterEntry{limiter: rate.NewLimiter(MaxEventsPerActor, MaxEventsPerActor/10)}
	entry.lastUsed.Store(now)
	actual, _ := el.actorLimiters.LoadOrStore(id, entry)
	return actual.(*actorLimiterEntry).limiter
}

func (el *EventLog) writerLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(BatchFlushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, BatchFlushSize)

	for {
		select {
		case <-el.stopChan:
			for {
				batch = el.collectBatch(batch[:0])
				if len(batch) == 0 {
					return
				}
				el.flushBatch(batch)
			}

		case <-ticker.C:
			batch = el.collectBatch(batch[:0])
			if len(batch) > 0 {
				el.flushBatch(batch)
			}
		}
	}
}

// cleanupLoop removes idle actor limiters.
func (el *EventLog) cleanupLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(ActorLimiterCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-el.stopChan:
			return
		case <-ticker.C:
			el.cleanupActorLimiters()
		}
	}
}

func (el *EventLog) cleanupActorLimiters() {
	cutoff := time.Now().Add(-ActorLimiterCleanup).UnixNano()
	el.actorLimiters.Range(func(key, value interface{}) bool {
		if value.(*actorLimiterEntry).lastUsed.Load() < cutoff {
			el.actorLimiters.Delete(key)
		}
		return true
	})
}

// collectBatch moves up to BatchFlushSize pending events into batch.
func (el *EventLog) collectBatch(batch []Event) []Event {
	el.mu.Lock()
	defer el.mu.Unlock()

	for el.readHead < el.writeHead && len(batch) < BatchFlushSize {
		el.readHead++
		batch = append(batch, el.buffer[el.readHead%EventBufferSize])
	}
	return batch
}

// flushBatch writes events as newline-delimited JSON.
func (el *EventLog) flushBatch(batch []Event) {
	el.fileMu.Lock()
	defer el.fileMu.Unlock()

	if el.out == nil {
		return
	}

	enc := json.NewEncoder(el.out)
	for _, event := range batch {
		if err := enc.Encode(event); err != nil {
			el.logger.Warn().Err(err).Uint64("seq", event.Sequence).Msg("event log write failed")
			continue
		}
	}
	if err := el.out.Flush(); err != nil {
		el.logger.Warn().Err(err).Msg("event log flush failed")
	}
}

// GetStats returns counters for monitoring.
func (el *EventLog) GetStats() map[string]interface{} {
	el.mu.Lock()
	pending := el.writeHead - el.readHead
	el.mu.Unlock()

	return map[string]interface{}{
		"total":   el.totalCount.Load(),
		"dropped": el.droppedCount.Load(),
		"pending": pending,
		"running": el.running.Load(),
	}
}

// GetDroppedCount returns the number of dropped events.
func (el *EventLog) GetDroppedCount() uint64 {
	return el.droppedCount.Load()
}

// GetTotalCount returns the number of accepted events.
func (el *EventLog) GetTotalCount() uint64 {
	return el.totalCount.Load()
}
