// internal/attempts/attempt.go
package attempts

import "time"

// Status values stored for an attempt
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Attempt records one connection attempt and its outcome
type Attempt struct {
	ID          int64
	ProfileName string
	Driver      string
	// Target is the display DSN, never containing a password
	Target      string
	AttemptedAt time.Time
	DurationMs  int64
	Status      string
	Code        int
	SQLState    string
	Message     string
}

// Succeeded reports whether the attempt returned a handle
func (a *Attempt) Succeeded() bool {
	return a.Status == StatusSuccess
}
