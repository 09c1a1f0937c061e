// internal/db/postgres.go
package db

import (
	"context"
	"net"
	"net/url"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

// postgresDSN parses params into a pgx config and registers it with the
// stdlib driver, returning the registered name for sql.Open("pgx", ...)
func postgresDSN(params ConnectParams) (string, error) {
	port := params.Port
	if port == 0 {
		port = defaultPostgresPort
	}
	address := net.JoinHostPort(params.Host, strconv.Itoa(port))

	// Build connection string safely with url.URL
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(params.User, params.Password),
		Host:   address,
		Path:   "/" + params.Database,
	}

	connConfig, err := pgx.ParseConfig(u.String())
	if err != nil {
		return "", err
	}
	if params.Timeout > 0 {
		connConfig.ConnectTimeout = params.Timeout
	}

	if params.Tunnel != nil {
		tunnel := params.Tunnel
		// The SSH server resolves the hostname, not the local machine
		connConfig.LookupFunc = func(ctx context.Context, host string) ([]string, error) {
			return []string{host}, nil
		}
		connConfig.DialFunc = func(ctx context.Context, network, _ string) (net.Conn, error) {
			return tunnel.DialContext(ctx, network, address)
		}
	}

	return stdlib.RegisterConnConfig(connConfig), nil
}
