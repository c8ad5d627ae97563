package scrape

import (
	"context"
	"errors"
	"net"
)

// Fault categorizes a failed operation.
type Fault int

const (
	FaultNone   Fault = iota // operation succeeded
	ProxyFault               // recoverable by switching identity
	TargetFault              // recoverable by waiting
	InputFault               // caller's request was invalid, never retried
)

func (f Fault) String() string {
	switch f {
	case FaultNone:
		return "none"
	case ProxyFault:
		return "proxy"
	case TargetFault:
		return "target"
	case InputFault:
		return "input"
	default:
		return "unknown"
	}
}

// Classify maps an operation error to its fault category.
//
// Priority order: a malformed target reference is an InputFault;
// timeouts, connection failures, HTTP 403/429 and recognized block
// markers are ProxyFaults; everything else (empty results, missing
// structure, other statuses) is a TargetFault.
func Classify(err error) Fault {
	if err == nil {
		return FaultNone
	}

	var malformed *MalformedTargetError
	if errors.As(err, &malformed) {
		return InputFault
	}

	var timeout *TimeoutError
	var connect *ConnectError
	var blocked *BlockedError
	if errors.As(err, &timeout) || errors.As(err, &connect) || errors.As(err, &blocked) {
		return ProxyFault
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ProxyFault
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ProxyFault
	}

	var status *StatusError
	if errors.As(err, &status) {
		if status.Code == 403 || status.Code == 429 {
			return ProxyFault
		}
		return TargetFault
	}

	return TargetFault
}
