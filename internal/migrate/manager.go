// Package migrate applies the embedded PostgreSQL schema with goose.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed sql/*.sql
var migrations embed.FS

const (
	migrationsDir = "sql"
	dialect       = "pgx"
)

// Seams for tests; goose keeps its configuration in package globals.
var (
	gooseUp      = goose.UpContext
	gooseDown    = goose.DownContext
	gooseVersion = goose.GetDBVersionContext
	gooseCollect = goose.CollectMigrations
)

var setupOnce sync.Once

func setup() error {
	var err error
	setupOnce.Do(func() {
		goose.SetBaseFS(migrations)
		goose.SetLogger(goose.NopLogger())
		err = goose.SetDialect(dialect)
	})
	return err
}

// Manager runs schema migrations against a database.
type Manager struct {
	db *sql.DB
}

// NewManager constructs a Manager.
func NewManager(db *sql.DB) *Manager {
	return &Manager{db: db}
}

// Up applies all pending migrations.
func (m *Manager) Up(ctx context.Context) error {
	if err := setup(); err != nil {
		return err
	}
	if err := gooseUp(ctx, m.db, migrationsDir); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// Down rolls back the most recent applied migration.
func (m *Manager) Down(ctx context.Context) error {
	if err := setup(); err != nil {
		return err
	}
	if err := gooseDown(ctx, m.db, migrationsDir); err != nil {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

// Status lists every known migration with whether it has been applied.
func (m *Manager) Status(ctx context.Context) ([]string, error) {
	if err := setup(); err != nil {
		return nil, err
	}
	current, err := gooseVersion(ctx, m.db)
	if err != nil {
		return nil, fmt.Errorf("migrate status: %w", err)
	}
	all, err := gooseCollect(migrationsDir, 0, goose.MaxVersion)
	if err != nil {
		return nil, fmt.Errorf("migrate status: %w", err)
	}
	lines := make([]string, 0, len(all))
	for _, mig := range all {
		state := "pending"
		if mig.Version <= current {
			state = "applied"
		}
		lines = append(lines, fmt.Sprintf("%05d %s %s", mig.Version, state, filepath.Base(mig.Source)))
	}
	return lines, nil
}
