package db

import (
	"context"
	"database/sql"
)

// ServerVersion asks the server which version it runs. Failures are
// returned as query errors.
func ServerVersion(ctx context.Context, db *sql.DB, driverType DriverType) (string, error) {
	query := "SELECT VERSION()"
	if driverType == SQLite {
		query = "SELECT sqlite_version()"
	}

	var version string
	if err := db.QueryRowContext(ctx, query).Scan(&version); err != nil {
		return "", WrapQueryError(err)
	}
	return version, nil
}
