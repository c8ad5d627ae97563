package scrape

import "fmt"

// FailureReason distinguishes why an Execute gave up.
type FailureReason int

const (
	ReasonRetriesExceeded     FailureReason = iota // attempt ceiling reached
	ReasonIdentitiesExhausted                      // pool signalled exhaustion
	ReasonInvalidInput                             // retrying cannot help
)

func (r FailureReason) String() string {
	switch r {
	case ReasonRetriesExceeded:
		return "retries exceeded"
	case ReasonIdentitiesExhausted:
		return "identities exhausted"
	case ReasonInvalidInput:
		return "invalid input"
	default:
		return "unknown"
	}
}

// Failure is a terminal outcome of Execute. It carries enough structure
// (category, last identity, attempt count) for the caller to log a
// precise cause.
type Failure struct {
	Reason   FailureReason
	Fault    Fault
	Attempts int
	Identity string // last identity used, empty when running direct
	Err      error
}

func (f *Failure) Error() string {
	if f.Identity != "" {
		return fmt.Sprintf("%s after %d attempt(s) via %s (%s fault): %v",
			f.Reason, f.Attempts, f.Identity, f.Fault, f.Err)
	}
	return fmt.Sprintf("%s after %d attempt(s) (%s fault): %v",
		f.Reason, f.Attempts, f.Fault, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }
