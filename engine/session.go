// ABOUTME: Session lifecycle: status enum, allowed transitions, and ULID session identifiers.
// ABOUTME: A session moves idle -> running -> {completed, errored, cancelled} and never leaves a terminal state.
package engine

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusErrored   Status = "errored"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further events are accepted in this status.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusErrored, StatusCancelled:
		return true
	default:
		return false
	}
}

// ErrInvalidTransition is returned when a status change is not allowed.
var ErrInvalidTransition = errors.New("invalid session status transition")

var allowedTransitions = map[Status]map[Status]struct{}{
	StatusIdle: {
		StatusRunning: {},
	},
	StatusRunning: {
		StatusCompleted: {},
		StatusErrored:   {},
		StatusCancelled: {},
	},
	StatusCompleted: {},
	StatusErrored:   {},
	StatusCancelled: {},
}

func validateTransition(from, to Status) error {
	allowed, ok := allowedTransitions[from]
	if !ok {
		return fmt.Errorf("%w: unknown source status %q", ErrInvalidTransition, from)
	}
	if _, ok := allowed[to]; !ok {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// Session is one request/response cycle against the streaming endpoint.
// StartedAt carries Go's monotonic clock reading, so elapsed times are
// immune to wall-clock jumps.
type Session struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Status    Status    `json:"status"`
}

func (s *Session) transition(to Status) error {
	if err := validateTransition(s.Status, to); err != nil {
		return err
	}
	s.Status = to
	return nil
}

// NewSessionID returns a fresh, lexically time-ordered session id.
func NewSessionID() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
