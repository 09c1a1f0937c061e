package db

import (
	"context"
	"database/sql"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockMySQL registers a sqlmock database under the DSN the opener will build
// for params, so Open goes through the real DSN path and a fake ping.
func mockMySQL(t *testing.T, params ConnectParams) sqlmock.Sqlmock {
	t.Helper()
	mockDB, mock, err := sqlmock.NewWithDSN(MySQLDSN(params), sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return mock
}

func newMockOpener(t *testing.T) *Opener {
	t.Helper()
	o, err := NewOpener(MySQL, WithSQLDriver("sqlmock"))
	require.NoError(t, err)
	return o
}

// recordingDialer stands in for an SSH tunnel and fails every dial
type recordingDialer struct {
	mu    sync.Mutex
	calls int
	addr  string
	err   error
}

func (d *recordingDialer) DialContext(_ context.Context, _, addr string) (net.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	d.addr = addr
	if d.err != nil {
		return nil, d.err
	}
	return nil, errors.New("tunnel unavailable")
}

func (d *recordingDialer) seen() (int, string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls, d.addr
}

func TestNewOpenerUnknownType(t *testing.T) {
	o, err := NewOpener(DriverType("oracle"))
	assert.Nil(t, o)
	require.Error(t, err)
	assert.False(t, IsConnectionError(err))
}

func TestParseDriverType(t *testing.T) {
	tests := []struct {
		in   string
		want DriverType
	}{
		{"mysql", MySQL},
		{"postgres", Postgres},
		{"postgresql", Postgres},
		{"sqlite", SQLite},
		{"sqlite3", SQLite},
	}
	for _, tt := range tests {
		got, err := ParseDriverType(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseDriverType("mssql")
	assert.Error(t, err)
}

func TestMySQLDSN(t *testing.T) {
	dsn := MySQLDSN(ConnectParams{Host: "10.10.60.165", User: "root", Password: "root", Database: "lab114"})
	assert.Equal(t, "root:root@tcp(10.10.60.165:3306)/lab114", dsn)

	dsn = MySQLDSN(ConnectParams{Host: "db", Port: 3307, User: "app", Database: "shop", Timeout: 2 * time.Second})
	assert.Equal(t, "app@tcp(db:3307)/shop?timeout=2s", dsn)
}

func TestOpenerMySQLSuccess(t *testing.T) {
	params := ConnectParams{Host: "10.10.60.165", User: "root", Password: "root", Database: "lab114"}
	mock := mockMySQL(t, params)
	mock.ExpectPing()
	mock.ExpectClose()

	handle, err := newMockOpener(t).Open(context.Background(), params)
	require.NoError(t, err)
	require.NotNil(t, handle)

	require.NoError(t, handle.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenerMySQLAccessDenied(t *testing.T) {
	params := ConnectParams{Host: "localhost", User: "wrong_user", Password: "wrong_pass", Database: "wrong_db"}
	mock := mockMySQL(t, params)
	cause := accessDenied()
	mock.ExpectPing().WillReturnError(cause)
	// the unreturned pool is closed
	mock.ExpectClose()

	handle, err := newMockOpener(t).Open(context.Background(), params)
	assert.Nil(t, handle)
	require.Error(t, err)

	e, ok := AsError(err)
	require.True(t, ok, "expected *db.Error, got %T", err)
	assert.Equal(t, KindConnection, e.Kind)
	assert.Contains(t, e.Error(), "connection failed")
	assert.Equal(t, 1045, e.Code)
	assert.Equal(t, "28000", e.SQLState)
	assert.Same(t, cause, e.Cause)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenerMySQLRepeatedFailureIsDeterministic(t *testing.T) {
	params := ConnectParams{Host: "localhost", User: "wrong_user", Password: "wrong_pass", Database: "repeat_db"}
	mock := mockMySQL(t, params)
	mock.ExpectPing().WillReturnError(accessDenied())
	mock.ExpectClose()
	mock.ExpectPing().WillReturnError(accessDenied())
	mock.ExpectClose()

	o := newMockOpener(t)
	_, err1 := o.Open(context.Background(), params)
	_, err2 := o.Open(context.Background(), params)

	e1, ok := AsError(err1)
	require.True(t, ok)
	e2, ok := AsError(err2)
	require.True(t, ok)
	assert.Equal(t, e1.Message, e2.Message)
	assert.Equal(t, e1.Code, e2.Code)
	assert.Equal(t, e1.SQLState, e2.SQLState)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenerMySQLRefused(t *testing.T) {
	o, err := NewOpener(MySQL)
	require.NoError(t, err)

	params := ConnectParams{Host: "127.0.0.1", Port: 1, User: "root", Password: "root", Database: "lab114", Timeout: 2 * time.Second}
	handle, err := o.Open(context.Background(), params)
	assert.Nil(t, handle)

	e, ok := AsError(err)
	require.True(t, ok, "expected *db.Error, got %T: %v", err, err)
	assert.Equal(t, KindConnection, e.Kind)
	assert.Equal(t, MsgConnectionFailed, e.Message)
	assert.Equal(t, 0, e.Code)
	assert.NotNil(t, e.Cause)
	_, nested := e.Cause.(*Error)
	assert.False(t, nested)
}

func TestOpenerSQLiteMemory(t *testing.T) {
	o, err := NewOpener(SQLite)
	require.NoError(t, err)

	handle, err := o.Open(context.Background(), ConnectParams{Database: ":memory:"})
	require.NoError(t, err)
	defer handle.Close()

	assert.NoError(t, handle.Ping())
}

func TestOpenerSQLiteFilePrefix(t *testing.T) {
	o, err := NewOpener(SQLite)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "app.db")
	handle, err := o.Open(context.Background(), ConnectParams{Database: "sqlite://" + path})
	require.NoError(t, err)
	defer handle.Close()

	assert.FileExists(t, path)
}

func TestOpenerSQLiteCantOpen(t *testing.T) {
	o, err := NewOpener(SQLite)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "missing", "dir", "app.db")
	handle, err := o.Open(context.Background(), ConnectParams{Database: path})
	assert.Nil(t, handle)

	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindConnection, e.Kind)
	assert.Equal(t, int(sqlite3.ErrCantOpen), e.Code)
}

func TestOpenerPostgresRefused(t *testing.T) {
	o, err := NewOpener(Postgres)
	require.NoError(t, err)

	params := ConnectParams{Host: "127.0.0.1", Port: 1, User: "postgres", Password: "postgres", Database: "lab114", Timeout: 2 * time.Second}
	handle, err := o.Open(context.Background(), params)
	assert.Nil(t, handle)

	e, ok := AsError(err)
	require.True(t, ok, "expected *db.Error, got %T: %v", err, err)
	assert.Equal(t, KindConnection, e.Kind)
	assert.Equal(t, MsgConnectionFailed, e.Message)
	assert.NotNil(t, e.Cause)
}

func TestOpenerMySQLThroughTunnel(t *testing.T) {
	o, err := NewOpener(MySQL)
	require.NoError(t, err)

	tunnel := &recordingDialer{}
	params := ConnectParams{Host: "db.internal", User: "root", Password: "root", Database: "lab114", Tunnel: tunnel}
	handle, err := o.Open(context.Background(), params)
	assert.Nil(t, handle)
	assert.True(t, IsConnectionError(err))

	calls, addr := tunnel.seen()
	assert.Equal(t, 1, calls)
	assert.Equal(t, "db.internal:3306", addr)
}

func TestOpenerPostgresThroughTunnel(t *testing.T) {
	o, err := NewOpener(Postgres)
	require.NoError(t, err)

	tunnel := &recordingDialer{}
	params := ConnectParams{Host: "db.internal", User: "postgres", Database: "lab114", Tunnel: tunnel}
	handle, err := o.Open(context.Background(), params)
	assert.Nil(t, handle)
	assert.True(t, IsConnectionError(err))

	// sslmode=prefer makes pgx try TLS then plaintext
	calls, addr := tunnel.seen()
	assert.GreaterOrEqual(t, calls, 1)
	assert.Equal(t, "db.internal:5432", addr)
}

func TestOpenerReturnsConnectionKindForTranslatedDialError(t *testing.T) {
	o, err := NewOpener(MySQL)
	require.NoError(t, err)

	tunnel := &recordingDialer{err: WrapQueryError(errors.New("tunnel closed"))}
	params := ConnectParams{Host: "db.internal", User: "root", Database: "lab114", Tunnel: tunnel}
	_, err = o.Open(context.Background(), params)

	e, ok := AsError(err)
	require.True(t, ok, "expected *db.Error, got %T: %v", err, err)
	assert.Equal(t, KindConnection, e.Kind)
	assert.Equal(t, MsgConnectionFailed, e.Message)
}

func TestPostgresReleaseDropsRegistration(t *testing.T) {
	o, err := NewOpener(Postgres)
	require.NoError(t, err)

	tunnel := &recordingDialer{}
	params := ConnectParams{Host: "db.internal", User: "postgres", Database: "lab114", Timeout: 2 * time.Second, Tunnel: tunnel}
	name, release, err := o.dsn(params)
	require.NoError(t, err)

	handle, err := sql.Open("pgx", name)
	require.NoError(t, err)
	assert.Error(t, handle.Ping())
	handle.Close()
	before, _ := tunnel.seen()
	require.NotZero(t, before)

	release()

	handle, err = sql.Open("pgx", name)
	require.NoError(t, err)
	defer handle.Close()
	assert.Error(t, handle.Ping())
	after, _ := tunnel.seen()
	assert.Equal(t, before, after, "released config must not be used again")
}
