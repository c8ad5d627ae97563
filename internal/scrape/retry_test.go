package scrape

import (
	"context"
	"errors"
	"testing"
	"time"

	"placewatch/internal/proxy"
)

func testPool(t *testing.T, threshold int, addrs ...string) *proxy.Pool {
	t.Helper()
	p, err := proxy.Load(addrs, threshold)
	if err != nil {
		t.Fatalf("proxy.Load() error = %v", err)
	}
	return p
}

func fastOptions(maxAttempts int) RetryOptions {
	return RetryOptions{
		MaxAttempts:     maxAttempts,
		InitialDelay:    time.Millisecond,
		MaxDelay:        5 * time.Millisecond,
		BackoffMultiple: 2.0,
		RotateEvery:     4,
	}
}

func TestExecuteInputFaultAbortsImmediately(t *testing.T) {
	pool := testPool(t, 3, "a:1", "b:1")
	c := NewController(pool, fastOptions(3))

	calls := 0
	_, err := c.Execute(context.Background(), "op", func(context.Context, *proxy.Identity) (any, error) {
		calls++
		return nil, &MalformedTargetError{Target: "junk"}
	})

	var failure *Failure
	if !errors.As(err, &failure) {
		t.Fatalf("Execute() error = %v, want *Failure", err)
	}
	if failure.Reason != ReasonInvalidInput {
		t.Errorf("Reason = %v, want ReasonInvalidInput", failure.Reason)
	}
	if calls != 1 {
		t.Errorf("operation called %d times, want 1 (no retry on input fault)", calls)
	}
	if failure.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", failure.Attempts)
	}
	// No rotation happened: both identities still healthy.
	if pool.Alive() != 2 {
		t.Errorf("Alive() = %d, want 2", pool.Alive())
	}
}

func TestExecuteProxyFaultExhaustsPool(t *testing.T) {
	// Threshold 1 so every proxy fault kills its identity outright.
	pool := testPool(t, 1, "a:1", "b:1")
	c := NewController(pool, fastOptions(3))

	calls := 0
	var used []string
	_, err := c.Execute(context.Background(), "op", func(_ context.Context, ident *proxy.Identity) (any, error) {
		calls++
		used = append(used, ident.Address)
		return nil, &StatusError{Code: 403}
	})

	var failure *Failure
	if !errors.As(err, &failure) {
		t.Fatalf("Execute() error = %v, want *Failure", err)
	}
	if failure.Reason != ReasonIdentitiesExhausted {
		t.Errorf("Reason = %v, want ReasonIdentitiesExhausted", failure.Reason)
	}
	if calls != 2 {
		t.Errorf("operation called %d times, want 2 (both identities burned)", calls)
	}
	if used[0] == used[1] {
		t.Errorf("both attempts used %s, want rotation between attempts", used[0])
	}
	if failure.Fault != ProxyFault {
		t.Errorf("Fault = %v, want ProxyFault", failure.Fault)
	}
	if pool.Alive() != 0 {
		t.Errorf("Alive() = %d, want 0", pool.Alive())
	}
}

func TestExecuteTargetFaultRetriesSameIdentity(t *testing.T) {
	pool := testPool(t, 3, "a:1", "b:1")
	c := NewController(pool, fastOptions(3))

	var used []string
	attempts := 0
	payload, err := c.Execute(context.Background(), "op", func(_ context.Context, ident *proxy.Identity) (any, error) {
		attempts++
		used = append(used, ident.Address)
		if attempts < 3 {
			return nil, &EmptyResultError{What: "feed"}
		}
		return "done", nil
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if payload != "done" {
		t.Errorf("payload = %v, want done", payload)
	}
	for _, addr := range used {
		if addr != used[0] {
			t.Fatalf("identity changed across target-fault retries: %v", used)
		}
	}
}

func TestExecuteRetriesExceeded(t *testing.T) {
	pool := testPool(t, 3, "a:1")
	c := NewController(pool, fastOptions(3))

	_, err := c.Execute(context.Background(), "op", func(context.Context, *proxy.Identity) (any, error) {
		return nil, &EmptyResultError{What: "feed"}
	})

	var failure *Failure
	if !errors.As(err, &failure) {
		t.Fatalf("Execute() error = %v, want *Failure", err)
	}
	if failure.Reason != ReasonRetriesExceeded {
		t.Errorf("Reason = %v, want ReasonRetriesExceeded", failure.Reason)
	}
	if failure.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", failure.Attempts)
	}
	if failure.Identity != "a:1" {
		t.Errorf("Identity = %q, want a:1", failure.Identity)
	}
}

func TestProactiveRotationEveryFourthSuccess(t *testing.T) {
	pool := testPool(t, 3, "a:1", "b:1", "c:1")
	c := NewController(pool, fastOptions(1))

	succeed := func() string {
		t.Helper()
		var addr string
		_, err := c.Execute(context.Background(), "op", func(_ context.Context, ident *proxy.Identity) (any, error) {
			addr = ident.Address
			return "ok", nil
		})
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		return addr
	}

	fail := func() {
		t.Helper()
		_, err := c.Execute(context.Background(), "op", func(context.Context, *proxy.Identity) (any, error) {
			return nil, &EmptyResultError{What: "feed"}
		})
		if err == nil {
			t.Fatal("Execute() succeeded, want failure")
		}
	}

	// Three successes and a failure: no rotation yet.
	for i := 0; i < 3; i++ {
		if addr := succeed(); addr != "a:1" {
			t.Fatalf("success #%d used %s, want a:1", i+1, addr)
		}
	}
	fail()
	if addr := succeed(); addr != "a:1" {
		t.Fatalf("fourth success used %s, want a:1 (rotation fires after it)", addr)
	}

	// The fourth success triggered exactly one proactive rotation.
	if addr := succeed(); addr != "b:1" {
		t.Errorf("fifth success used %s, want b:1 after proactive rotation", addr)
	}
}

func TestExecuteWithoutPoolBackoffOnProxyFault(t *testing.T) {
	c := NewController(nil, fastOptions(2))

	calls := 0
	_, err := c.Execute(context.Background(), "op", func(_ context.Context, ident *proxy.Identity) (any, error) {
		if ident != nil {
			t.Fatal("expected nil identity when running direct")
		}
		calls++
		return nil, &TimeoutError{}
	})

	var failure *Failure
	if !errors.As(err, &failure) {
		t.Fatalf("Execute() error = %v, want *Failure", err)
	}
	if failure.Reason != ReasonRetriesExceeded {
		t.Errorf("Reason = %v, want ReasonRetriesExceeded", failure.Reason)
	}
	if calls != 2 {
		t.Errorf("operation called %d times, want 2", calls)
	}
}
