// internal/db/sqlite.go
package db

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	_ "github.com/mattn/go-sqlite3"
)

// sqliteDSN returns the database file path, without any sqlite:// prefix
func sqliteDSN(params ConnectParams) string {
	return strings.TrimPrefix(params.Database, "sqlite://")
}

// applySQLitePragmas enables foreign keys and a busy timeout on the
// freshly opened database
func applySQLitePragmas(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return errors.Wrap(err, "pragma foreign_keys")
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 10000"); err != nil {
		return errors.Wrap(err, "pragma busy_timeout")
	}
	return nil
}
