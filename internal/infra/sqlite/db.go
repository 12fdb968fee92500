// Package sqlite persists playback state in a SQLite database.
package sqlite

import (
	"database/sql"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	_ "modernc.org/sqlite"
)

// Bootstrap opens the database at path and applies pending migrations.
func Bootstrap(path string) (*sql.DB, error) {
	database, err := Open(path)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(database); err != nil {
		database.Close()
		return nil, err
	}

	return database, nil
}

// Open opens the database at path, creating its directory if needed.
func Open(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create db directory")
	}

	database, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open sqlite")
	}
	// SQLite allows a single writer.
	database.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}

	for _, pragma := range pragmas {
		if _, err := database.Exec(pragma); err != nil {
			database.Close()
			return nil, errors.Wrapf(err, "failed to apply sqlite pragma %q", pragma)
		}
	}

	if err := database.Ping(); err != nil {
		database.Close()
		return nil, errors.Wrap(err, "failed to ping sqlite")
	}

	return database, nil
}
