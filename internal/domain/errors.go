package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors shared between the service layer and the HTTP handlers.
// Handlers match these with errors.Is and translate them to status codes.
var (
	ErrMissingField          = errors.New("required field is missing")
	ErrDuplicateSubscriber   = errors.New("user is already subscribed or pending confirmation")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrSubscriberNotFound    = errors.New("subscriber not found")
	ErrPostNotFound          = errors.New("post not found")
	ErrInvalidCredentials    = errors.New("incorrect username or password")
)

// LockedError reports that a client address is inside its login lockout
// window. It carries the remaining lockout duration for the response body.
type LockedError struct {
	RetryAfter time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("too many attempts, locked for another %s", e.RetryAfter)
}
