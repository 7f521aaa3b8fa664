package connectors

import (
	"fmt"
	"time"
)

// ThrottleError — бэкенд попросил подождать (ResourceExhausted + retry-after).
type ThrottleError struct {
	RetryAfter time.Duration
	Cause      error
}

func (e *ThrottleError) Error() string {
	return fmt.Sprintf("throttled: retry after %v (cause: %v)", e.RetryAfter, e.Cause)
}

func (e *ThrottleError) Unwrap() error { return e.Cause }

// StatusError — Livestatus вернул код ответа отличный от 200.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("livestatus returned %d: %s", e.Code, e.Message)
}
