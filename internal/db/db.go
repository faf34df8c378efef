package db

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Options selects the storage backend. A non-empty DatabaseURL selects
// PostgreSQL; otherwise a SQLite file at Path is used.
type Options struct {
	DatabaseURL string
	Path        string
}

// Open connects to the configured backend and ensures the schema exists.
func Open(ctx context.Context, opts Options) (*Store, error) {
	dialector, err := dialectorFor(opts)
	if err != nil {
		return nil, err
	}

	instance, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrStore, dialector.Name(), err)
	}

	s := NewWithDB(instance)
	if err := s.Initialize(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func dialectorFor(opts Options) (gorm.Dialector, error) {
	if dsn := strings.TrimSpace(opts.DatabaseURL); dsn != "" {
		return postgres.Open(dsn), nil
	}

	path := strings.TrimSpace(opts.Path)
	if path == "" {
		return nil, fmt.Errorf("database path is required when DATABASE_URL is not set")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	return sqlite.Open(path + "?_busy_timeout=5000&_journal_mode=WAL"), nil
}

// OpenMemory opens a private in-memory SQLite store. Stores opened with
// different names in one process never share rows.
func OpenMemory(ctx context.Context, name string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", url.PathEscape(name))
	instance, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: open memory store: %w", ErrStore, err)
	}

	// Every connection to a shared-cache memory database sees the same
	// tables, but concurrent writers trip table locks; one connection
	// keeps writes serialized.
	sqlDB, err := instance.DB()
	if err != nil {
		return nil, fmt.Errorf("%w: open memory store: %w", ErrStore, err)
	}
	sqlDB.SetMaxOpenConns(1)

	s := NewWithDB(instance)
	if err := s.Initialize(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps a pre-configured *gorm.DB (useful for testing). The
// caller is responsible for calling Initialize.
func NewWithDB(d *gorm.DB) *Store {
	return &Store{db: d}
}

// Initialize creates the requests table if absent and adds any missing
// columns. It is safe to call on every start. A legacy table that still
// carries a plain "date" column keeps it; rows without created_at get it
// from that column once, after which "date" is never read.
func (s *Store) Initialize(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&Request{}); err != nil {
		return fmt.Errorf("%w: migrate requests: %w", ErrStore, err)
	}
	if s.db.Migrator().HasColumn(&Request{}, legacyDateColumn) {
		if err := s.backfillCreatedAt(ctx); err != nil {
			return fmt.Errorf("%w: backfill created_at: %w", ErrStore, err)
		}
	}
	return nil
}

const (
	legacyDateColumn = "date"
	legacyDateLayout = "2006-01-02 15:04"
)

type legacyRow struct {
	ID   uint
	Date string
}

// backfillCreatedAt copies legacy "date" values (UTC, minute precision) into
// created_at. Values that do not parse are left alone.
func (s *Store) backfillCreatedAt(ctx context.Context) error {
	var rows []legacyRow
	err := s.db.WithContext(ctx).Table(Request{}.TableName()).
		Select("id, " + legacyDateColumn).
		Where("created_at IS NULL AND " + legacyDateColumn + " IS NOT NULL").
		Scan(&rows).Error
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			created, err := time.ParseInLocation(legacyDateLayout, strings.TrimSpace(row.Date), time.UTC)
			if err != nil {
				continue
			}
			if err := tx.Model(&Request{}).Where("id = ?", row.ID).Update("created_at", created).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
