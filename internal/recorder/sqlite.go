package recorder

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLiteStore is a Store backed by a local SQLite file through GORM.
type SQLiteStore struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// OpenSQLite opens (or creates) the database at path and migrates the schema.
func OpenSQLite(path string, log zerolog.Logger) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        2000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA temp_store = MEMORY;",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}

	if err := db.AutoMigrate(&Match{}, &EventRecord{}, &TickSummary{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	log.Info().Str("path", path).Msg("Using local SQLite DB")
	return &SQLiteStore{db: db, logger: log}, nil
}

// DB exposes the underlying handle for queries.
func (s *SQLiteStore) DB() *gorm.DB {
	return s.db
}

// CreateMatch inserts a match row.
func (s *SQLiteStore) CreateMatch(ctx context.Context, m *Match) error {
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("create match %s: %w", m.ID, err)
	}
	return nil
}

// AppendEvents inserts events in batches.
func (s *SQLiteStore) AppendEvents(ctx context.Context, events []EventRecord) error {
	if len(events) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(&events).Error; err != nil {
		return fmt.Errorf("append %d events: %w", len(events), err)
	}
	return nil
}

// AppendTickSummaries inserts tick summaries in batches.
func (s *SQLiteStore) AppendTickSummaries(ctx context.Context, ticks []TickSummary) error {
	if len(ticks) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(&ticks).Error; err != nil {
		return fmt.Errorf("append %d tick summaries: %w", len(ticks), err)
	}
	return nil
}

// FinishMatch stamps the end of a match.
func (s *SQLiteStore) FinishMatch(ctx context.Context, id string, endedAt time.Time, ticks int64, score int) error {
	res := s.db.WithContext(ctx).Model(&Match{}).Where("id = ?", id).Updates(map[string]interface{}{
		"ended_at": endedAt,
		"ticks":    ticks,
		"score":    score,
	})
	if res.Error != nil {
		return fmt.Errorf("finish match %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("finish match %s: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}

// Close releases the connection pool.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	return sqlDB.Close()
}
