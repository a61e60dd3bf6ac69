// Package sqlstore implements store.Store on a SQL database through GORM.
// Open uses SQLite via the pure-Go glebarez driver; New accepts any *gorm.DB.
package sqlstore

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/go-drift/grant/pkg/diagnostics"
	"github.com/go-drift/grant/pkg/errors"
	"github.com/go-drift/grant/pkg/store"
)

// DefaultTimeout bounds each database operation.
const DefaultTimeout = 2 * time.Second

// StateModel is one persisted key.
type StateModel struct {
	Key       string `gorm:"primaryKey;size:255"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

// TableName overrides the GORM default table name.
func (StateModel) TableName() string { return "grant_states" }

// Config holds SQLite-specific configuration.
type Config struct {
	Path        string        // Database file path.
	JournalMode string        // WAL by default.
	Timeout     time.Duration // Per-operation timeout; DefaultTimeout when zero.
}

// Store implements store.Store backed by a SQL table.
type Store struct {
	db      *gorm.DB
	sink    diagnostics.Sink
	timeout time.Duration
}

var _ store.Store = (*Store)(nil)

// Open creates a SQLite-backed Store and migrates its table.
func Open(cfg Config, sink diagnostics.Sink) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o750); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	journalMode := cfg.JournalMode
	if journalMode == "" {
		journalMode = "wal"
	}
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(%s)&_pragma=busy_timeout(5000)", cfg.Path, journalMode)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	return New(db, cfg.Timeout, sink)
}

// New wraps an existing GORM connection and migrates the state table.
func New(db *gorm.DB, timeout time.Duration, sink diagnostics.Sink) (*Store, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if err := db.AutoMigrate(&StateModel{}); err != nil {
		return nil, fmt.Errorf("migrating state table: %w", err)
	}
	return &Store{db: db, sink: diagnostics.OrNop(sink), timeout: timeout}, nil
}

func (s *Store) SaveState(key, value string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&StateModel{Key: key, Value: value}).Error
	s.report("store.sql.save", key, err)
}

func (s *Store) RestoreState(key string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	var m StateModel
	err := s.db.WithContext(ctx).Where(map[string]any{"key": key}).Take(&m).Error
	if err != nil {
		if !stderrors.Is(err, gorm.ErrRecordNotFound) {
			s.report("store.sql.restore", key, err)
		}
		return "", false
	}
	return m.Value, true
}

func (s *Store) Clear(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	err := s.db.WithContext(ctx).Where(map[string]any{"key": key}).Delete(&StateModel{}).Error
	s.report("store.sql.clear", key, err)
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) report(op, key string, err error) {
	if err == nil {
		return
	}
	errors.Report(s.sink, &errors.GrantError{
		Op:   op,
		Kind: errors.KindStore,
		Err:  fmt.Errorf("key %q: %w", key, err),
	})
}
