// internal/db/errors.go
package db

import (
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// Kind tags the failure class of an Error
type Kind int

const (
	KindConnection Kind = iota + 1
	KindQuery
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindQuery:
		return "query"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Caller-facing messages. These never change with the underlying failure.
const (
	MsgConnectionFailed = "connection failed"
	MsgQueryFailed      = "query failed"
)

// Error is a translated database failure. Code is the driver's numeric
// error code (MySQL error number, SQLite result code) or 0 when the cause
// carries none. SQLState is set for drivers that report one.
type Error struct {
	Kind     Kind
	Message  string
	Code     int
	SQLState string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

// Unwrap exposes the underlying driver error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WrapConnectionError translates a failure of the connect path
func WrapConnectionError(err error) error {
	return translate(KindConnection, err)
}

// WrapQueryError translates a failure of a statement run on an open handle
func WrapQueryError(err error) error {
	return translate(KindQuery, err)
}

// AsError returns the translated error in err's chain, if any
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsConnectionError reports whether err is a translated connection failure
func IsConnectionError(err error) bool {
	e, ok := AsError(err)
	return ok && e.Kind == KindConnection
}

func translate(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	if e, ok := AsError(err); ok && e.Kind == kind {
		return err
	}

	code, state := driverCode(err)
	return &Error{
		Kind:     kind,
		Message:  messageFor(kind),
		Code:     code,
		SQLState: state,
		Cause:    err,
	}
}

func messageFor(kind Kind) string {
	if kind == KindQuery {
		return MsgQueryFailed
	}
	return MsgConnectionFailed
}

// driverCode digs the numeric code and SQLSTATE out of known driver errors
func driverCode(err error) (int, string) {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return int(myErr.Number), sqlState(myErr.SQLState)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return 0, pgErr.Code
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return int(liteErr.Code), ""
	}

	return 0, ""
}

func sqlState(s [5]byte) string {
	if s == [5]byte{} {
		return ""
	}
	return string(s[:])
}
