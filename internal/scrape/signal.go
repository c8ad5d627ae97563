package scrape

import (
	"errors"
	"fmt"
)

// Operation signals are the structured errors the driver reports for a
// failed attempt. The classifier turns them into fault categories; no
// other code branches on them.

// TimeoutError signals that an operation hit its deadline.
type TimeoutError struct {
	Err error
}

func (e *TimeoutError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("operation timed out: %v", e.Err)
	}
	return "operation timed out"
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// ConnectError signals that the identity could not reach the target.
type ConnectError struct {
	Err error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connection failed: %v", e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// StatusError signals an HTTP-like status observed during the operation.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("target returned status %d", e.Code)
}

// BlockedError signals a recognized block or verification marker in the
// retrieved content (CAPTCHA frame, anti-bot interstitial).
type BlockedError struct {
	Marker string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("blocking detected: %s", e.Marker)
}

// MalformedTargetError signals that the requested target reference could
// not be parsed into a valid request. Never retried.
type MalformedTargetError struct {
	Target string
}

func (e *MalformedTargetError) Error() string {
	return fmt.Sprintf("malformed target: %q", e.Target)
}

// EmptyResultError signals that an expected result set came back empty.
type EmptyResultError struct {
	What string
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("empty result: %s", e.What)
}

// SignalKind names a signal for diagnostics and metrics labels.
func SignalKind(err error) string {
	var (
		timeout   *TimeoutError
		connect   *ConnectError
		status    *StatusError
		blocked   *BlockedError
		malformed *MalformedTargetError
		empty     *EmptyResultError
	)
	switch {
	case errors.As(err, &timeout):
		return "timeout"
	case errors.As(err, &connect):
		return "connect"
	case errors.As(err, &status):
		return fmt.Sprintf("status_%d", status.Code)
	case errors.As(err, &blocked):
		return "blocked"
	case errors.As(err, &malformed):
		return "malformed_target"
	case errors.As(err, &empty):
		return "empty_result"
	default:
		return "other"
	}
}
