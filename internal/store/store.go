// Package store implements the version store: scenarios, their ordered
// version history, autosave deduplication by content hash, and the
// retention policy over unnamed versions. It talks straight to the
// document store; caching is layered on top by the cached package.
package store

import (
	"crypto/rand"
	"database/sql"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/itinvault/itinvault/internal/config"
)

// History limits.
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// Store manages scenarios and their version history for one owner.
type Store struct {
	db  *sql.DB
	cfg *config.Config
}

// New creates a Store.
func New(db *sql.DB, cfg *config.Config) *Store {
	return &Store{db: db, cfg: cfg}
}

// DB exposes the underlying handle for surfaces that need direct reads.
func (s *Store) DB() *sql.DB {
	return s.db
}

// nowMillis is the store's clock; a variable so tests can pin time.
var nowMillis = func() int64 {
	return time.Now().UnixMilli()
}

// generateULID generates a new ULID.
func generateULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// ClampHistoryLimit applies the default and maximum history limits.
func ClampHistoryLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}
