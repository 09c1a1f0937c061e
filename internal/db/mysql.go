// internal/db/mysql.go
package db

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-sql-driver/mysql"
)

var tunnelSeq atomic.Uint64

// MySQLDSN returns the go-sql-driver DSN for params over plain TCP
func MySQLDSN(params ConnectParams) string {
	return mysqlConfig(params, "tcp").FormatDSN()
}

func mysqlConfig(params ConnectParams, network string) *mysql.Config {
	port := params.Port
	if port == 0 {
		port = defaultMySQLPort
	}

	cfg := mysql.NewConfig()
	cfg.User = params.User
	cfg.Passwd = params.Password
	cfg.Net = network
	cfg.Addr = net.JoinHostPort(params.Host, strconv.Itoa(port))
	cfg.DBName = params.Database
	if params.Timeout > 0 {
		cfg.Timeout = params.Timeout
	}
	return cfg
}

// registerMySQLTunnel registers a dial network routed through the tunnel
// and returns its name. The driver offers no way to unregister, the
// entries are small.
func registerMySQLTunnel(tunnel Dialer) string {
	name := fmt.Sprintf("mysql+ssh+%d+%d", time.Now().UnixNano(), tunnelSeq.Add(1))
	mysql.RegisterDialContext(name, func(ctx context.Context, addr string) (net.Conn, error) {
		return tunnel.DialContext(ctx, "tcp", addr)
	})
	return name
}
