// Package storage persists job definitions, runs, snapshots and insights in PostgreSQL.
package storage

import (
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/cuongbtq/trade-insights/shared/postgresql"
)

// Storage handles all database operations of the pipeline
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(pg *postgresql.Client, logger *slog.Logger) *Storage {
	return New(pg.GetDB(), logger)
}

// New wraps an sqlx handle
func New(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}
