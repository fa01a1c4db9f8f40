// Package store persists canonical jobs, the sync-run history and the email
// ledger. SQLite is the default backend; PostgreSQL is used when a database
// URL is configured.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/amishk599/jobsync/internal/model"
)

// Store is everything the sync engine and CLI need from a backend.
type Store interface {
	model.JobStore
	model.RunLedger
	model.EmailLog
	Close() error
}

// Config selects and locates a backend.
type Config struct {
	Driver string // "sqlite" or "postgres"
	Path   string // sqlite file
	URL    string // postgres connection string
	Schema string // postgres search_path, optional
}

// Open connects to the configured backend and applies pending migrations.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		if cfg.Path == "" {
			return nil, errors.New("database.path is required for sqlite")
		}
		return NewSQLiteStore(ctx, cfg.Path)
	case "postgres":
		if cfg.URL == "" {
			return nil, errors.New("database.url is required for postgres")
		}
		return NewPostgresStore(ctx, cfg.URL, cfg.Schema)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// migration is one forward-only schema step. Columns are created only when
// missing so that databases built by older tooling converge on the same shape.
type migration struct {
	version     int
	description string
	stmts       []string
	columns     []column
}

type column struct {
	table string
	name  string
	ddl   string
}

func emptySkills(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func checkTerminal(run model.SyncRun) error {
	if !run.Terminal() {
		return fmt.Errorf("finishing run %d with status %s", run.ID, run.Status)
	}
	return nil
}

const defaultListLimit = 20
