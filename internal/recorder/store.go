// Package recorder persists match history: one Match row per server run,
// every domain event, and a compact per-tick summary.
package recorder

import (
	"context"
	"time"
)

//go:generate go tool mockgen -destination=./mocks/store_mock.go -package=mocks . Store

// Match is one simulation run.
type Match struct {
	ID        string `gorm:"primaryKey;size:36"`
	Seed      uint32
	TickRate  int
	StartedAt time.Time
	EndedAt   *time.Time
	Ticks     int64
	Score     int
}

// EventRecord is a persisted domain event.
type EventRecord struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	MatchID    string `gorm:"index;size:36"`
	Tick       int64  `gorm:"index"`
	Kind       string `gorm:"size:32"`
	AttackerID int32
	TargetID   int32
	Damage     int16
}

// TickSummary condenses one TickReport.
type TickSummary struct {
	ID             uint   `gorm:"primaryKey;autoIncrement"`
	MatchID        string `gorm:"index;size:36"`
	Tick           int64
	DurationMicros int64
	Events         int
	Shots          int
	Hits           int
	WeaponSpawns   int
}

// Store is the persistence backend.
type Store interface {
	CreateMatch(ctx context.Context, m *Match) error
	AppendEvents(ctx context.Context, events []EventRecord) error
	AppendTickSummaries(ctx context.Context, ticks []TickSummary) error
	FinishMatch(ctx context.Context, id string, endedAt time.Time, ticks int64, score int) error
	Close() error
}
