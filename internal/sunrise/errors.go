package sunrise

import (
	"errors"
	"fmt"
)

// ErrUpstreamUnavailable matches every failure the Client returns once a
// fetch has been given up on, whatever its cause.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// TransportError is a single failed attempt: the request could not be sent,
// timed out, or came back with a non-2xx status. These are retried.
type TransportError struct {
	Attempt    int
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("attempt %d: %v", e.Attempt, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DomainError means the provider answered but the payload is unusable:
// status other than OK, no results, or a required field missing.
// It is never retried.
type DomainError struct {
	Status string
	Reason string
	Err    error
}

func (e *DomainError) Error() string {
	msg := fmt.Sprintf("sunrise-sunset returned status %q: %s", e.Status, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func (e *DomainError) Is(target error) bool {
	return target == ErrUpstreamUnavailable
}

// UnreachableError is returned after the attempt budget is spent on
// transport failures, or when the context ends during a backoff. Last is
// the final attempt's error and Cause, if set, is the context error that
// stopped the retries.
type UnreachableError struct {
	Attempts int
	Last     *TransportError
	Cause    error
}

func (e *UnreachableError) Error() string {
	msg := fmt.Sprintf("sunrise-sunset unreachable after %d attempts", e.Attempts)
	if e.Cause != nil {
		msg += fmt.Sprintf(" (%v)", e.Cause)
	}
	if e.Last != nil {
		msg += fmt.Sprintf(": %v", e.Last)
	}
	return msg
}

func (e *UnreachableError) Unwrap() []error {
	var errs []error
	if e.Last != nil {
		errs = append(errs, e.Last)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

func (e *UnreachableError) Is(target error) bool {
	return target == ErrUpstreamUnavailable
}
