package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"
)

var (
	// ErrValidation marks a request missing a required field. Nothing is written.
	ErrValidation = errors.New("validation failed")
	// ErrStore marks an I/O or connection failure of the backend.
	ErrStore = errors.New("store failure")
)

// Order is a listing order. Column must be one of id, created_at, name.
type Order struct {
	Column    string
	Ascending bool
}

// NewestFirst is the default listing order.
var NewestFirst = Order{Column: "id"}

var orderColumns = map[string]struct{}{
	"id":         {},
	"created_at": {},
	"name":       {},
}

func (o Order) clause() (string, error) {
	column := o.Column
	if column == "" {
		column = "id"
	}
	if _, ok := orderColumns[column]; !ok {
		return "", fmt.Errorf("unsupported order column %q", o.Column)
	}
	if o.Ascending {
		return column + " ASC", nil
	}
	return column + " DESC", nil
}

// Store is the durable table of repair requests. Appends and clears are
// serialized against each other; reads may run alongside appends.
type Store struct {
	mu sync.RWMutex
	db *gorm.DB
}

// Append validates and persists a new request, returning it with the
// assigned ID and creation time.
func (s *Store) Append(ctx context.Context, name, phone, problem string, source Source) (Request, error) {
	name = strings.TrimSpace(name)
	phone = strings.TrimSpace(phone)
	if name == "" || phone == "" {
		return Request{}, fmt.Errorf("%w: name and phone are required", ErrValidation)
	}

	req := Request{
		Name:    name,
		Phone:   phone,
		Problem: strings.TrimSpace(problem),
		Source:  source.Normalize(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Stamped under the write lock so created_at never decreases as id grows.
	req.CreatedAt = time.Now().UTC()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&req).Error
	})
	if err != nil {
		return Request{}, fmt.Errorf("%w: insert request: %w", ErrStore, err)
	}
	return req, nil
}

// ListAll returns every stored request, newest first unless an order is given.
// An empty store yields an empty slice.
func (s *Store) ListAll(ctx context.Context, order ...Order) ([]Request, error) {
	o := NewestFirst
	if len(order) > 0 {
		o = order[0]
	}
	clause, err := o.clause()
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	requests := make([]Request, 0)
	if err := s.db.WithContext(ctx).Order(clause).Find(&requests).Error; err != nil {
		return nil, fmt.Errorf("%w: list requests: %w", ErrStore, err)
	}
	return requests, nil
}

// SearchByName returns requests whose name contains fragment, ignoring case.
// No match yields an empty slice.
func (s *Store) SearchByName(ctx context.Context, fragment string) ([]Request, error) {
	fragment = strings.TrimSpace(fragment)

	if s.db.Dialector.Name() == "postgres" {
		s.mu.RLock()
		defer s.mu.RUnlock()

		requests := make([]Request, 0)
		pattern := "%" + likeEscaper.Replace(fragment) + "%"
		if err := s.db.WithContext(ctx).Where("name ILIKE ?", pattern).Order("id DESC").Find(&requests).Error; err != nil {
			return nil, fmt.Errorf("%w: search requests: %w", ErrStore, err)
		}
		return requests, nil
	}

	// SQLite's LIKE and lower() only fold ASCII, so Cyrillic names are
	// matched here instead.
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(fragment)
	matched := make([]Request, 0)
	for _, req := range all {
		if strings.Contains(strings.ToLower(req.Name), needle) {
			matched = append(matched, req)
		}
	}
	return matched, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ClearAll deletes every request in one transaction and returns how many
// rows were removed. IDs are not reused afterwards.
func (s *Store) ClearAll(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&Request{})
		if result.Error != nil {
			return result.Error
		}
		removed = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: clear requests: %w", ErrStore, err)
	}
	return removed, nil
}

// Count returns the number of stored requests.
func (s *Store) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	if err := s.db.WithContext(ctx).Model(&Request{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("%w: count requests: %w", ErrStore, err)
	}
	return n, nil
}
