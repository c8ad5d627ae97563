package scrape

import (
	"context"
	"errors"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		expect Fault
	}{
		{"nil", nil, FaultNone},
		{"malformed target", &MalformedTargetError{Target: "nonsense"}, InputFault},
		{"timeout", &TimeoutError{}, ProxyFault},
		{"connect", &ConnectError{Err: errors.New("connection refused")}, ProxyFault},
		{"deadline", context.DeadlineExceeded, ProxyFault},
		{"status 403", &StatusError{Code: 403}, ProxyFault},
		{"status 429", &StatusError{Code: 429}, ProxyFault},
		{"status 500", &StatusError{Code: 500}, TargetFault},
		{"status 404", &StatusError{Code: 404}, TargetFault},
		{"blocked marker", &BlockedError{Marker: "not a robot"}, ProxyFault},
		{"empty result", &EmptyResultError{What: "results container"}, TargetFault},
		{"plain error", errors.New("missing expected structure"), TargetFault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.expect {
				t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.expect)
			}
		})
	}
}

func TestClassifyWrappedSignals(t *testing.T) {
	err := errorsJoin("operation failed", &BlockedError{Marker: "captcha indicator"})
	if got := Classify(err); got != ProxyFault {
		t.Errorf("Classify(wrapped blocked) = %v, want ProxyFault", got)
	}
}

func errorsJoin(msg string, err error) error {
	return &wrapped{msg: msg, err: err}
}

type wrapped struct {
	msg string
	err error
}

func (w *wrapped) Error() string { return w.msg + ": " + w.err.Error() }
func (w *wrapped) Unwrap() error { return w.err }

func TestSignalKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&TimeoutError{}, "timeout"},
		{&ConnectError{Err: errors.New("refused")}, "connect"},
		{&StatusError{Code: 429}, "status_429"},
		{&BlockedError{Marker: "captcha"}, "blocked"},
		{&MalformedTargetError{Target: "x"}, "malformed_target"},
		{&EmptyResultError{What: "feed"}, "empty_result"},
		{errors.New("anything"), "other"},
	}
	for _, tt := range tests {
		if got := SignalKind(tt.err); got != tt.want {
			t.Errorf("SignalKind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
