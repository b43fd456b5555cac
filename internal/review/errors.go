package review

import (
	"errors"
	"fmt"
)

var (
	// ErrNoContent is returned when a category has no phrase to ask.
	ErrNoContent = errors.New("review: no phrases available")

	// ErrInvalidTransition is returned for an operation the current state
	// does not allow, such as answering without an active round.
	ErrInvalidTransition = errors.New("review: invalid state transition")
)

// QuotaDeniedError is returned when the daily quota refuses a new round.
type QuotaDeniedError struct {
	Reason string
	Limit  int
}

func (e *QuotaDeniedError) Error() string {
	return fmt.Sprintf("review: quota denied: %s (limit %d)", e.Reason, e.Limit)
}

// ErrQuotaDenied matches any *QuotaDeniedError with errors.Is.
var ErrQuotaDenied = errors.New("review: quota denied")

func (e *QuotaDeniedError) Is(target error) bool { return target == ErrQuotaDenied }

func invalid(op string, s State) error {
	return fmt.Errorf("%w: %s in state %s", ErrInvalidTransition, op, s)
}
