// Package store is the typed query/command layer over the relational
// database. It knows nothing about vote budgets or events; callers in
// package retro apply those rules.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a referenced row does not exist, or does not
// belong to the referenced parent.
var ErrNotFound = errors.New("not found")

// Store wraps a GORM handle.
type Store struct {
	db *gorm.DB
}

// New returns a Store over db. db must already be migrated.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for diagnostics and tests.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// newID returns a fresh entity identifier.
func newID() string {
	return uuid.NewString()
}

// notFound converts gorm.ErrRecordNotFound to ErrNotFound and wraps
// everything else with op.
func notFound(err error, format string, args ...any) error {
	what := fmt.Sprintf(format, args...)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("store: %s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("store: %s: %w", what, err)
}
