// Package sqlite stores drafts and submissions in a SQLite database using the
// pure-Go modernc driver. Values and instances are kept as JSON columns.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DefaultPath is where the CLI keeps its database when no path is given.
const DefaultPath = ".formstate/formstate.db"

// Open opens (creating if needed) the database at path with foreign keys on
// and applies pending migrations. ":memory:" opens a private in-memory db.
func Open(path string) (*sql.DB, error) {
	if path == "" {
		path = DefaultPath
	}
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	if path == ":memory:" {
		dsn = "file::memory:?_pragma=foreign_keys(1)"
	} else if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: create %s: %w", dir, err)
		}
	}
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	if path == ":memory:" {
		// Each pooled connection would get its own empty in-memory database.
		conn.SetMaxOpenConns(1)
	}
	if err := Migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}
