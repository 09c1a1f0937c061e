// internal/attempts/store.go
package attempts

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/pkg/errors"

	_ "github.com/mattn/go-sqlite3"
)

const (
	defaultRetention     = 90 * 24 * time.Hour
	defaultMaxPerProfile = 500
)

// Store persists connection attempts in SQLite
type Store struct {
	db            *sql.DB
	retention     time.Duration
	maxPerProfile int
}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithRetention sets how long attempts are kept
func WithRetention(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.retention = d
		}
	}
}

// WithMaxPerProfile caps the number of attempts kept per profile
func WithMaxPerProfile(n int) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.maxPerProfile = n
		}
	}
}

// DefaultPath returns the XDG data location of the attempt log
func DefaultPath() (string, error) {
	return xdg.DataFile("ezconn/attempts.db")
}

// NewStore opens (and creates if needed) the attempt log at path
func NewStore(path string, opts ...StoreOption) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, errors.Wrap(err, "create data dir")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "open attempt log")
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "pragma busy_timeout")
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS attempts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			profile_name TEXT NOT NULL,
			driver TEXT NOT NULL,
			target TEXT NOT NULL,
			attempted_at TIMESTAMP NOT NULL,
			duration_ms INTEGER NOT NULL,
			status TEXT NOT NULL,
			code INTEGER NOT NULL DEFAULT 0,
			sql_state TEXT NOT NULL DEFAULT '',
			message TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_attempts_profile ON attempts(profile_name);
		CREATE INDEX IF NOT EXISTS idx_attempts_attempted_at ON attempts(attempted_at);
	`)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create attempts table")
	}

	s := &Store{db: db, retention: defaultRetention, maxPerProfile: defaultMaxPerProfile}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.Prune(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Add inserts an attempt and trims the profile to the configured cap
func (s *Store) Add(a *Attempt) error {
	if a.AttemptedAt.IsZero() {
		a.AttemptedAt = time.Now()
	}
	a.AttemptedAt = a.AttemptedAt.UTC()

	res, err := s.db.Exec(`
		INSERT INTO attempts (profile_name, driver, target, attempted_at, duration_ms, status, code, sql_state, message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		a.ProfileName,
		a.Driver,
		a.Target,
		a.AttemptedAt,
		a.DurationMs,
		a.Status,
		a.Code,
		a.SQLState,
		a.Message,
	)
	if err != nil {
		return errors.Wrap(err, "insert attempt")
	}

	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "insert attempt")
	}
	a.ID = id

	return s.enforceLimit(a.ProfileName)
}

// enforceLimit keeps only the most recent attempts of a profile
func (s *Store) enforceLimit(profileName string) error {
	_, err := s.db.Exec(`
		DELETE FROM attempts
		WHERE profile_name = ?
		AND id NOT IN (
			SELECT id FROM attempts
			WHERE profile_name = ?
			ORDER BY attempted_at DESC, id DESC
			LIMIT ?
		)
	`, profileName, profileName, s.maxPerProfile)
	return errors.Wrap(err, "trim attempts")
}

// List returns attempts newest first. An empty profileName lists all profiles.
func (s *Store) List(profileName string, limit, offset int) ([]Attempt, error) {
	query := "SELECT id, profile_name, driver, target, attempted_at, duration_ms, status, code, sql_state, message FROM attempts"
	args := []any{}
	if profileName != "" {
		query += " WHERE profile_name = ?"
		args = append(args, profileName)
	}
	query += " ORDER BY attempted_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list attempts")
	}
	defer rows.Close()

	return scanAttempts(rows)
}

func scanAttempts(rows *sql.Rows) ([]Attempt, error) {
	var out []Attempt
	for rows.Next() {
		var a Attempt
		if err := rows.Scan(&a.ID, &a.ProfileName, &a.Driver, &a.Target, &a.AttemptedAt,
			&a.DurationMs, &a.Status, &a.Code, &a.SQLState, &a.Message); err != nil {
			return nil, errors.Wrap(err, "scan attempt")
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetByID retrieves a single attempt. It returns nil, nil when none exists.
func (s *Store) GetByID(id int64) (*Attempt, error) {
	row := s.db.QueryRow(`
		SELECT id, profile_name, driver, target, attempted_at, duration_ms, status, code, sql_state, message
		FROM attempts WHERE id = ?
	`, id)

	var a Attempt
	err := row.Scan(&a.ID, &a.ProfileName, &a.Driver, &a.Target, &a.AttemptedAt,
		&a.DurationMs, &a.Status, &a.Code, &a.SQLState, &a.Message)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get attempt")
	}
	return &a, nil
}

// Delete removes an attempt by ID
func (s *Store) Delete(id int64) error {
	_, err := s.db.Exec("DELETE FROM attempts WHERE id = ?", id)
	return errors.Wrap(err, "delete attempt")
}

// Prune removes attempts older than the retention period
func (s *Store) Prune() error {
	cutoff := time.Now().UTC().Add(-s.retention)
	_, err := s.db.Exec("DELETE FROM attempts WHERE attempted_at < ?", cutoff)
	return errors.Wrap(err, "prune attempts")
}

// Count returns the number of attempts recorded for a profile
func (s *Store) Count(profileName string) (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM attempts WHERE profile_name = ?", profileName).Scan(&count)
	if err != nil {
		return 0, errors.Wrapf(err, "count attempts for %s", profileName)
	}
	return count, nil
}
