package interview

import "errors"

var (
	// ErrDuplicateSession is returned by Start when the session id is already
	// present in the store. The caller must pick a new identifier.
	ErrDuplicateSession = errors.New("session id already in use")

	// ErrSessionNotFound is returned when no session exists for the given id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionClosed is returned by Submit after the session was finalized.
	ErrSessionClosed = errors.New("session already closed")
)

// GatewayError wraps a failed model round trip. The triggering operation
// leaves the stored session untouched, so the caller may retry it safely.
type GatewayError struct {
	Err error
}

func (e *GatewayError) Error() string {
	return "gateway: " + e.Err.Error()
}

func (e *GatewayError) Unwrap() error { return e.Err }

// ScorerError wraps a failed evaluation call during Finalize. The session
// stays in its prior state, so Finalize may be retried.
type ScorerError struct {
	Err error
}

func (e *ScorerError) Error() string {
	return "scorer: " + e.Err.Error()
}

func (e *ScorerError) Unwrap() error { return e.Err }
