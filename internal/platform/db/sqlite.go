package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// OpenSQLite opens (creating if needed) a SQLite database at path and applies
// the embedded SQLite migrations.
func OpenSQLite(ctx context.Context, path string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := MigrateSQLite(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// MigrateSQLite applies pending SQLite migrations and returns nil when the
// schema is current.
func MigrateSQLite(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS _migrations (
	version    INTEGER PRIMARY KEY,
	name       TEXT NOT NULL,
	applied_at TEXT NOT NULL
)`); err != nil {
		return fmt.Errorf("create _migrations table: %w", err)
	}

	migrations, err := LoadMigrations(SQLiteMigrations())
	if err != nil {
		return err
	}
	applied, err := sqliteAppliedVersions(ctx, db)
	if err != nil {
		return err
	}

	for _, mig := range PendingMigrations(migrations, applied) {
		tx, err := db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		if _, err := tx.ExecContext(ctx, mig.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration %d (%s): %w", mig.Version, mig.Name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO _migrations (version, name, applied_at) VALUES (?, ?, ?)`,
			mig.Version, mig.Name, time.Now().UTC().Format(time.RFC3339Nano),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", mig.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", mig.Version, err)
		}
	}
	return nil
}

// SQLiteStatus reports applied and pending SQLite migrations.
func SQLiteStatus(ctx context.Context, db *sqlx.DB) ([]MigrationStatus, error) {
	migrations, err := LoadMigrations(SQLiteMigrations())
	if err != nil {
		return nil, err
	}
	applied, err := sqliteAppliedVersions(ctx, db)
	if err != nil {
		return nil, err
	}
	return BuildStatus(migrations, applied), nil
}

func sqliteAppliedVersions(ctx context.Context, db *sqlx.DB) (map[int]time.Time, error) {
	var rows []struct {
		Version   int    `db:"version"`
		AppliedAt string `db:"applied_at"`
	}
	if err := db.SelectContext(ctx, &rows, `SELECT version, applied_at FROM _migrations`); err != nil {
		return nil, fmt.Errorf("query applied versions: %w", err)
	}
	applied := make(map[int]time.Time, len(rows))
	for _, r := range rows {
		at, _ := time.Parse(time.RFC3339Nano, r.AppliedAt)
		applied[r.Version] = at
	}
	return applied, nil
}
