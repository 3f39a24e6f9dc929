package recorder

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"hellscape/internal/game"
)

// Defaults for Options.
const (
	DefaultQueueSize     = 1024
	DefaultBatchTicks    = 250 // 5 s at 50 Hz
	DefaultFlushInterval = 2 * time.Second
)

// Options configures a Recorder.
type Options struct {
	Seed          uint32
	TickRate      int
	QueueSize     int
	BatchTicks    int
	FlushInterval time.Duration
	Score         func() int // read when the match ends; nil records 0
	Logger        zerolog.Logger
	Now           func() time.Time
}

// Recorder buffers tick reports from the simulation loop and writes them to
// a Store in batches. Record never blocks the tick; reports that do not
// fit the queue are counted and dropped.
type Recorder struct {
	store   Store
	opts    Options
	matchID string
	queue   chan game.TickReport

	events  []EventRecord
	ticks   []TickSummary
	last    int64
	dropped atomic.Uint64
	written atomic.Uint64

	logger zerolog.Logger
}

// New creates a Recorder with a fresh match id.
func New(store Store, opts Options) *Recorder {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.BatchTicks <= 0 {
		opts.BatchTicks = DefaultBatchTicks
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = DefaultFlushInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	id := uuid.NewString()
	return &Recorder{
		store:   store,
		opts:    opts,
		matchID: id,
		queue:   make(chan game.TickReport, opts.QueueSize),
		logger:  opts.Logger.With().Str("component", "recorder").Str("match", id).Logger(),
	}
}

// MatchID returns the id of the match being recorded.
func (r *Recorder) MatchID() string {
	return r.matchID
}

// Record enqueues a report. Safe to call from the simulation loop.
func (r *Recorder) Record(report game.TickReport) {
	select {
	case r.queue <- report:
	default:
		r.dropped.Add(1)
	}
}

// Dropped returns the number of reports lost to a full queue.
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

// Written returns the number of tick summaries persisted.
func (r *Recorder) Written() uint64 {
	return r.written.Load()
}

// Run creates the match row and writes batches until ctx is done, then
// drains the queue, flushes and closes the match.
func (r *Recorder) Run(ctx context.Context) error {
	match := &Match{
		ID:        r.matchID,
		Seed:      r.opts.Seed,
		TickRate:  r.opts.TickRate,
		StartedAt: r.opts.Now().UTC(),
	}
	if err := r.store.CreateMatch(ctx, match); err != nil {
		return err
	}
	r.logger.Info().Uint32("seed", match.Seed).Msg("recording match")

	ticker := time.NewTicker(r.opts.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return r.finish(context.WithoutCancel(ctx))
		case report := <-r.queue:
			r.add(report)
			if len(r.ticks) >= r.opts.BatchTicks {
				if err := r.flush(ctx); err != nil {
					return err
				}
			}
		case <-ticker.C:
			if err := r.flush(ctx); err != nil {
				return err
			}
		}
	}
}

func (r *Recorder) add(report game.TickReport) {
	hits := 0
	for _, s := range report.Shots {
		if s.Hit {
			hits++
		}
	}
	for _, ev := range report.Events {
		r.events = append(r.events, EventRecord{
			MatchID:    r.matchID,
			Tick:       ev.Tick,
			Kind:       ev.Kind.String(),
			AttackerID: ev.AttackerID,
			TargetID:   ev.TargetID,
			Damage:     ev.Damage,
		})
	}
	r.ticks = append(r.ticks, TickSummary{
		MatchID:        r.matchID,
		Tick:           report.Tick,
		DurationMicros: report.Duration.Microseconds(),
		Events:         len(report.Events),
		Shots:          len(report.Shots),
		Hits:           hits,
		WeaponSpawns:   len(report.WeaponSpawns),
	})
	r.last = report.Tick
}

func (r *Recorder) flush(ctx context.Context) error {
	if len(r.events) == 0 && len(r.ticks) == 0 {
		return nil
	}
	if err := r.store.AppendEvents(ctx, r.events); err != nil {
		return fmt.Errorf("flush events: %w", err)
	}
	if err := r.store.AppendTickSummaries(ctx, r.ticks); err != nil {
		return fmt.Errorf("flush ticks: %w", err)
	}
	r.written.Add(uint64(len(r.ticks)))
	r.logger.Debug().Int("events", len(r.events)).Int("ticks", len(r.ticks)).Msg("flushed batch")
	r.events = r.events[:0]
	r.ticks = r.ticks[:0]
	return nil
}

func (r *Recorder) finish(ctx context.Context) error {
drain:
	for {
		select {
		case report := <-r.queue:
			r.add(report)
		default:
			break drain
		}
	}
	if err := r.flush(ctx); err != nil {
		return err
	}

	score := 0
	if r.opts.Score != nil {
		score = r.opts.Score()
	}
	if err := r.store.FinishMatch(ctx, r.matchID, r.opts.Now().UTC(), r.last, score); err != nil {
		return err
	}
	r.logger.Info().
		Int64("ticks", r.last).
		Int("score", score).
		Uint64("dropped", r.Dropped()).
		Msg("match recorded")
	return nil
}
