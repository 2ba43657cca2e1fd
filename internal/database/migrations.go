package database

import (
	"database/sql"
	"fmt"
	"time"
)

// Migration represents a database schema migration
type Migration struct {
	Version     int
	Description string
	Up          func(*sql.Tx) error
	Down        func(*sql.Tx) error
}

// migrations is the ordered list of all database migrations
var migrations = []Migration{
	{
		Version:     1,
		Description: "Create schema_version table",
		Up:          migration001Up,
		Down:        migration001Down,
	},
	{
		Version:     2,
		Description: "Create job_events table",
		Up:          migration002Up,
		Down:        migration002Down,
	},
	{
		Version:     3,
		Description: "Create action_registrations table",
		Up:          migration003Up,
		Down:        migration003Down,
	},
}

// LatestVersion is the schema version after all migrations
func LatestVersion() int {
	return migrations[len(migrations)-1].Version
}

// RunMigrations runs all pending database migrations and returns how many ran
func (db *DB) RunMigrations() (int, error) {
	currentVersion, err := db.getCurrentVersion()
	if err != nil {
		return 0, fmt.Errorf("failed to get current version: %w", err)
	}

	applied := 0
	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		err := db.ExecTx(func(tx *sql.Tx) error {
			if err := migration.Up(tx); err != nil {
				return fmt.Errorf("migration %d failed: %w", migration.Version, err)
			}

			_, err := tx.Exec(`
				INSERT INTO schema_version (version, description, applied_at)
				VALUES (?, ?, ?)
			`, migration.Version, migration.Description, time.Now())
			return err
		})
		if err != nil {
			return applied, err
		}
		applied++
	}

	return applied, nil
}

// RollbackTo reverts migrations above version, newest first
func (db *DB) RollbackTo(version int) error {
	currentVersion, err := db.getCurrentVersion()
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	for i := len(migrations) - 1; i >= 0; i-- {
		migration := migrations[i]
		if migration.Version <= version || migration.Version > currentVersion {
			continue
		}
		err := db.ExecTx(func(tx *sql.Tx) error {
			if migration.Version > 1 {
				if _, err := tx.Exec(`DELETE FROM schema_version WHERE version = ?`, migration.Version); err != nil {
					return err
				}
			}
			if err := migration.Down(tx); err != nil {
				return fmt.Errorf("rollback of migration %d failed: %w", migration.Version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// getCurrentVersion returns the current schema version
func (db *DB) getCurrentVersion() (int, error) {
	var tableExists bool
	err := db.conn.QueryRow(`
		SELECT COUNT(*) > 0
		FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&tableExists)
	if err != nil {
		return 0, err
	}

	if !tableExists {
		return 0, nil
	}

	var version int
	err = db.conn.QueryRow(`
		SELECT COALESCE(MAX(version), 0)
		FROM schema_version
	`).Scan(&version)
	if err != nil {
		return 0, err
	}

	return version, nil
}

// Migration 001: Schema version tracking table
func migration001Up(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			version INTEGER NOT NULL UNIQUE,
			description TEXT NOT NULL,
			applied_at DATETIME NOT NULL
		)
	`)
	return err
}

func migration001Down(tx *sql.Tx) error {
	_, err := tx.Exec(`DROP TABLE IF EXISTS schema_version`)
	return err
}

// Migration 002: Job event journal
func migration002Up(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS job_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			bot TEXT NOT NULL,
			job_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			action_name TEXT NOT NULL DEFAULT '',
			state TEXT NOT NULL DEFAULT '',
			message TEXT NOT NULL DEFAULT '',
			data TEXT NOT NULL DEFAULT '{}',
			occurred_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		return err
	}
	_, err = tx.Exec(`CREATE INDEX IF NOT EXISTS idx_job_events_job ON job_events(job_id, id)`)
	return err
}

func migration002Down(tx *sql.Tx) error {
	_, err := tx.Exec(`DROP TABLE IF EXISTS job_events`)
	return err
}

// Migration 003: Action registrations
func migration003Up(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS action_registrations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			bot TEXT NOT NULL,
			action_name TEXT NOT NULL,
			predefined INTEGER NOT NULL DEFAULT 0,
			registered_at DATETIME NOT NULL
		)
	`)
	return err
}

func migration003Down(tx *sql.Tx) error {
	_, err := tx.Exec(`DROP TABLE IF EXISTS action_registrations`)
	return err
}
