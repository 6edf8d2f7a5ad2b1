package research

import (
	"errors"
	"fmt"
)

// ErrCircuitOpen is returned when a domain's circuit breaker denies entry.
// It signals "temporarily unavailable", not a failed fetch.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// BlockedError indicates the remote host is refusing us outright
// (403, 429, captcha walls). The circuit breaker opens immediately on it.
type BlockedError struct {
	Domain     string
	StatusCode int
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("blocked by %s (status %d)", e.Domain, e.StatusCode)
}

// IsBlocked reports whether err carries an explicit blocking signal.
func IsBlocked(err error) bool {
	var blocked *BlockedError
	return errors.As(err, &blocked)
}

// RetriesExhaustedError wraps the last underlying cause after all
// retry attempts failed.
type RetriesExhaustedError struct {
	Domain   string
	Attempts int
	Last     error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("%s: %d attempts exhausted: %v", e.Domain, e.Attempts, e.Last)
}

func (e *RetriesExhaustedError) Unwrap() error {
	return e.Last
}
