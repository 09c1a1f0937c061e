// internal/db/driver.go
package db

import (
	"context"
	"database/sql"
	"net"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DriverType represents supported database types
type DriverType string

const (
	Postgres DriverType = "postgres"
	MySQL    DriverType = "mysql"
	SQLite   DriverType = "sqlite"
)

// Default ports used when ConnectParams.Port is zero
const (
	defaultMySQLPort    = 3306
	defaultPostgresPort = 5432
)

// Dialer opens raw connections on behalf of a driver, e.g. an SSH tunnel
type Dialer interface {
	DialContext(ctx context.Context, network, addr string) (net.Conn, error)
}

// ConnectParams holds database connection details. For SQLite, Database
// is the file path and the network fields are ignored.
type ConnectParams struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	// Timeout is the dial timeout handed to the driver; zero keeps the driver default.
	Timeout time.Duration
	// Tunnel, when set, carries the driver's network traffic.
	Tunnel Dialer
}

// ParseDriverType maps a profile type string to a DriverType
func ParseDriverType(s string) (DriverType, error) {
	switch DriverType(s) {
	case Postgres, MySQL, SQLite:
		return DriverType(s), nil
	case "postgresql":
		return Postgres, nil
	case "sqlite3":
		return SQLite, nil
	default:
		return "", errors.Errorf("unknown driver type: %s", s)
	}
}

// Opener establishes database connections. It holds no connection state;
// every Open is a single independent attempt.
type Opener struct {
	driverType DriverType
	sqlDriver  string
	logger     *zap.Logger
}

// Option configures an Opener
type Option func(*Opener)

// WithLogger sets the logger used for connection attempts
func WithLogger(logger *zap.Logger) Option {
	return func(o *Opener) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithSQLDriver overrides the database/sql driver name the DSN is opened with
func WithSQLDriver(name string) Option {
	return func(o *Opener) {
		o.sqlDriver = name
	}
}

// NewOpener creates an opener for the given driver type
func NewOpener(driverType DriverType, opts ...Option) (*Opener, error) {
	o := &Opener{driverType: driverType, logger: zap.NewNop()}
	switch driverType {
	case MySQL:
		o.sqlDriver = "mysql"
	case Postgres:
		o.sqlDriver = "pgx"
	case SQLite:
		o.sqlDriver = "sqlite3"
	default:
		return nil, errors.Errorf("unknown driver type: %s", driverType)
	}

	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Type returns the driver type
func (o *Opener) Type() DriverType {
	return o.driverType
}

// Open makes one connection attempt and returns the live handle. Any
// failure comes back as an *Error of KindConnection with the driver error
// as its Cause. The caller owns the handle and must Close it.
func (o *Opener) Open(ctx context.Context, params ConnectParams) (*sql.DB, error) {
	dsn, release, err := o.dsn(params)
	if err != nil {
		return nil, o.fail(params, err)
	}

	db, err := sql.Open(o.sqlDriver, dsn)
	if err != nil {
		release()
		return nil, o.fail(params, err)
	}

	configurePool(db)

	// sql.Open is lazy, the ping is the actual connect
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		release()
		return nil, o.fail(params, err)
	}

	if o.driverType == SQLite {
		if err := applySQLitePragmas(ctx, db); err != nil {
			db.Close()
			release()
			return nil, o.fail(params, err)
		}
	}

	o.logger.Debug("connection established",
		zap.String("driver", string(o.driverType)),
		zap.String("host", params.Host),
		zap.String("database", params.Database),
	)
	return db, nil
}

// dsn builds the data source name for params. release drops any driver
// registration made for it and must only be called once the pool is closed.
func (o *Opener) dsn(params ConnectParams) (string, func(), error) {
	switch o.driverType {
	case MySQL:
		network := "tcp"
		if params.Tunnel != nil {
			network = registerMySQLTunnel(params.Tunnel)
		}
		return mysqlConfig(params, network).FormatDSN(), func() {}, nil
	case Postgres:
		name, err := postgresDSN(params)
		if err != nil {
			return "", nil, err
		}
		return name, func() { stdlib.UnregisterConnConfig(name) }, nil
	default:
		return sqliteDSN(params), func() {}, nil
	}
}

func (o *Opener) fail(params ConnectParams, err error) error {
	wrapped := WrapConnectionError(err)
	code := 0
	if e, ok := AsError(wrapped); ok {
		code = e.Code
	}
	o.logger.Warn("connection attempt failed",
		zap.String("driver", string(o.driverType)),
		zap.String("host", params.Host),
		zap.String("database", params.Database),
		zap.Int("code", code),
		zap.Error(err),
	)
	return wrapped
}

func configurePool(db *sql.DB) {
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
}
