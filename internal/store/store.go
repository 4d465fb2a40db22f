// Package store provides the data access layer over the jobs table.
// All queries go through *pgxpool.Pool directly; each call acquires its own
// connection from the pool, so the fetcher and the dispatch workers never
// contend on a shared connection handle.
package store

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the central data access object for the jobs table.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store backed by pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Pool returns the underlying pgxpool for callers that need raw access
// (health-check pings, test assertions).
func (s *Store) Pool() *pgxpool.Pool { return s.pool }
