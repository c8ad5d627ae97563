package scrape

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"placewatch/internal/metrics"
	"placewatch/internal/proxy"
)

// Operation performs one attempt against the target using the supplied
// identity (nil when running without a pool) and returns a payload or a
// signal error.
type Operation func(ctx context.Context, ident *proxy.Identity) (any, error)

// RetryOptions defines retry behavior.
type RetryOptions struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffMultiple float64
	RotateEvery     int // successful operations between proactive rotations, 0 disables
}

// DefaultRetryOptions provides sensible defaults.
var DefaultRetryOptions = RetryOptions{
	MaxAttempts:     3,
	InitialDelay:    1 * time.Second,
	MaxDelay:        60 * time.Second,
	BackoffMultiple: 2.0,
	RotateEvery:     4,
}

// Controller executes operations against the target, consulting the
// classifier and the pool to decide retry, rotate, or abort. Owned by a
// single run goroutine.
type Controller struct {
	pool *proxy.Pool // nil when rotation is disabled
	opts RetryOptions

	current   *proxy.Identity
	successes int
}

// NewController creates a controller over an optional identity pool.
func NewController(pool *proxy.Pool, opts RetryOptions) *Controller {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultRetryOptions.MaxAttempts
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = DefaultRetryOptions.InitialDelay
	}
	if opts.BackoffMultiple <= 0 {
		opts.BackoffMultiple = DefaultRetryOptions.BackoffMultiple
	}
	return &Controller{pool: pool, opts: opts}
}

// Identity returns the identity currently held by the controller, nil
// when running direct or before the first acquisition.
func (c *Controller) Identity() *proxy.Identity {
	return c.current
}

// Execute runs op until it succeeds, the attempt ceiling is reached, the
// pool is exhausted, or the failure is classified as an InputFault.
//
// ProxyFault rotates identity and retries; TargetFault retries the same
// identity after jittered exponential backoff; InputFault aborts
// immediately. Independently, every Nth successful operation triggers a
// proactive rotation.
func (c *Controller) Execute(ctx context.Context, name string, op Operation) (any, error) {
	var lastErr error
	var lastFault Fault
	var lastUsed string

	for attempt := 1; attempt <= c.opts.MaxAttempts; attempt++ {
		ident, err := c.acquire()
		if err != nil {
			return nil, &Failure{
				Reason:   ReasonIdentitiesExhausted,
				Fault:    ProxyFault,
				Attempts: attempt - 1,
				Err:      err,
			}
		}

		lastUsed = identityAddress(ident)
		start := time.Now()
		payload, opErr := op(ctx, ident)
		metrics.OperationLatency.WithLabelValues(name).Observe(time.Since(start).Seconds())

		if opErr == nil {
			metrics.OperationsTotal.WithLabelValues(name, "success").Inc()
			c.recordSuccess(ident)
			return payload, nil
		}

		lastErr = opErr
		lastFault = Classify(opErr)
		metrics.OperationsTotal.WithLabelValues(name, lastFault.String()).Inc()
		slog.Debug("Operation attempt failed",
			"operation", name,
			"attempt", attempt,
			"fault", lastFault.String(),
			"identity", identityAddress(ident),
			"error", opErr)

		switch lastFault {
		case InputFault:
			return nil, &Failure{
				Reason:   ReasonInvalidInput,
				Fault:    InputFault,
				Attempts: attempt,
				Identity: identityAddress(ident),
				Err:      opErr,
			}

		case ProxyFault:
			if c.pool == nil {
				// Nothing to rotate away from; wait it out instead.
				if err := c.wait(ctx, attempt); err != nil {
					return nil, err
				}
				continue
			}
			c.pool.ReportError(ident, SignalKind(opErr))
			next, nextErr := c.pool.Next()
			if nextErr != nil {
				if errors.Is(nextErr, proxy.ErrExhausted) {
					return nil, &Failure{
						Reason:   ReasonIdentitiesExhausted,
						Fault:    ProxyFault,
						Attempts: attempt,
						Identity: identityAddress(ident),
						Err:      lastErr,
					}
				}
				return nil, nextErr
			}
			metrics.RotationsTotal.WithLabelValues("fault").Inc()
			slog.Info("Rotating proxy identity",
				"from", identityAddress(ident),
				"to", next.Address,
				"kind", SignalKind(opErr))
			c.current = next

		case TargetFault:
			if err := c.wait(ctx, attempt); err != nil {
				return nil, err
			}
		}
	}

	return nil, &Failure{
		Reason:   ReasonRetriesExceeded,
		Fault:    lastFault,
		Attempts: c.opts.MaxAttempts,
		Identity: lastUsed,
		Err:      lastErr,
	}
}

func (c *Controller) acquire() (*proxy.Identity, error) {
	if c.pool == nil {
		return nil, nil
	}
	if c.current == nil {
		ident, err := c.pool.Next()
		if err != nil {
			return nil, err
		}
		c.current = ident
	}
	return c.current, nil
}

// recordSuccess reports the success and fires the proactive rotation on
// the configured schedule. Rotation here is unconditional and not gated
// by retry state; it counts successful operations only.
func (c *Controller) recordSuccess(ident *proxy.Identity) {
	if c.pool != nil && ident != nil {
		c.pool.ReportSuccess(ident)
	}
	c.successes++
	if c.pool != nil && c.opts.RotateEvery > 0 && c.successes%c.opts.RotateEvery == 0 {
		if next, err := c.pool.ForceRotate(); err == nil {
			c.current = next
		}
	}
}

// wait sleeps for the backoff delay of the given attempt, or returns
// early when the context is cancelled.
func (c *Controller) wait(ctx context.Context, attempt int) error {
	delay := c.backoff(attempt)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

// backoff grows exponentially with the attempt number plus randomized
// jitter of up to half the base delay.
func (c *Controller) backoff(attempt int) time.Duration {
	base := float64(c.opts.InitialDelay) * math.Pow(c.opts.BackoffMultiple, float64(attempt-1))
	if c.opts.MaxDelay > 0 && base > float64(c.opts.MaxDelay) {
		base = float64(c.opts.MaxDelay)
	}
	jitter := rand.Float64() * base / 2
	return time.Duration(base + jitter)
}

func identityAddress(ident *proxy.Identity) string {
	if ident == nil {
		return ""
	}
	return ident.Address
}
