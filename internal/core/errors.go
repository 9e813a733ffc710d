package core

import (
	"errors"
	"fmt"
)

var (
	// ErrUserNotFound means the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailTaken means registration hit an already-used email address.
	ErrEmailTaken = errors.New("email already registered")
)

// QueryError wraps a failed read against the record store. The alert
// pipeline skips the affected user for the current tick and retries on
// the next one.
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %s: %v", e.Op, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// DeliveryError wraps a failed notification send. A delivery failure must
// leave no alert-ledger entry so the send stays retryable.
type DeliveryError struct {
	Recipient string
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver to %s: %v", e.Recipient, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
