package model

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested event or profile does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyRegistered is returned when the user already holds a seat. It is
// an idempotent rejection, not a failure worth retrying.
var ErrAlreadyRegistered = errors.New("user already registered for this event")

// ErrEventFull is returned when an event has no remaining capacity.
var ErrEventFull = errors.New("event is fully booked")

// ErrEventClosed is returned when registering for an event that is not
// published.
var ErrEventClosed = errors.New("event is not open for registration")

// ErrInvalidRecord marks a content record that failed validation.
var ErrInvalidRecord = errors.New("invalid content record")

// ErrUnavailable marks a transient failure of an external backend.
var ErrUnavailable = errors.New("backend unavailable")

// ErrUnauthenticated is returned when a credential or session is missing or
// cannot be verified.
var ErrUnauthenticated = errors.New("unauthenticated")

// ErrInvalidInput wraps request validation failures.
var ErrInvalidInput = errors.New("invalid input")

// ErrProfileNotFound is returned when the signed-in user has no stored
// profile. It matches ErrNotFound.
var ErrProfileNotFound = fmt.Errorf("profile %w", ErrNotFound)
