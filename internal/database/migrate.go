package database

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/aawaaz/ticket-server/internal/database/migrations"
)

// Migrator applies the embedded schema migrations with goose.
type Migrator struct {
	databaseURL string
	logger      *zap.SugaredLogger
}

// NewMigrator creates a migrator for the given database.
func NewMigrator(databaseURL string, logger *zap.SugaredLogger) *Migrator {
	return &Migrator{
		databaseURL: databaseURL,
		logger:      logger.With("component", "migration.goose"),
	}
}

func (m *Migrator) open() (*sql.DB, error) {
	if m.databaseURL == "" {
		return nil, fmt.Errorf("database URL is empty")
	}
	db, err := sql.Open("pgx", m.databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return db, nil
}

// Up applies every pending migration.
func (m *Migrator) Up() error {
	db, err := m.open()
	if err != nil {
		return err
	}
	defer db.Close()

	currentVersion, err := goose.GetDBVersion(db)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}
	m.logger.Infow("starting migration", "version", currentVersion)

	if err := goose.Up(db, "."); err != nil {
		m.logger.Errorw("migration failed", "error", err)
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	finalVersion, err := goose.GetDBVersion(db)
	if err != nil {
		return fmt.Errorf("failed to get final version: %w", err)
	}
	m.logger.Infow("migration completed",
		"from_version", currentVersion,
		"to_version", finalVersion)
	return nil
}

// Down rolls back the given number of migrations.
func (m *Migrator) Down(steps int) error {
	db, err := m.open()
	if err != nil {
		return err
	}
	defer db.Close()

	for i := 0; i < steps; i++ {
		if err := goose.Down(db, "."); err != nil {
			m.logger.Errorw("down migration failed", "error", err, "step", i+1)
			return fmt.Errorf("failed to run down migration: %w", err)
		}
	}
	m.logger.Infow("down migration completed", "steps", steps)
	return nil
}

// Status prints the applied state of every migration.
func (m *Migrator) Status() error {
	db, err := m.open()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := goose.Status(db, "."); err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}
	return nil
}

// Version returns the current schema version.
func (m *Migrator) Version() (int64, error) {
	db, err := m.open()
	if err != nil {
		return 0, err
	}
	defer db.Close()

	version, err := goose.GetDBVersion(db)
	if err != nil {
		return 0, fmt.Errorf("failed to get version: %w", err)
	}
	return version, nil
}
