// Package proxy implements the identity pool used to reach the target.
//
// A pool is owned by exactly one run and is driven from a single
// goroutine; there is no internal locking.
package proxy

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"placewatch/internal/metrics"
)

var (
	// ErrNoIdentities is returned when rotation is requested but the
	// identity list is empty.
	ErrNoIdentities = errors.New("no usable proxy identities configured")

	// ErrExhausted is returned by Next when every identity is dead.
	// Callers must treat this as a hard stop.
	ErrExhausted = errors.New("all proxy identities are dead")
)

// Identity is one network egress point (address plus optional
// credentials) with per-run health state.
type Identity struct {
	Address  string
	Username string
	Password string

	ConsecutiveErrors int
	Dead              bool
	TotalUses         int
}

// HasCredentials reports whether the identity carries a username/password.
func (id *Identity) HasCredentials() bool {
	return id.Username != ""
}

// URL renders the identity as a proxy URL for the browser launcher.
func (id *Identity) URL() string {
	return "http://" + id.Address
}

// Pool holds the run's identities and the round-robin cursor.
//
// Identities are never removed, only marked dead, so end-of-run
// diagnostics can report over the full list. Dead is a one-way
// transition: a success zeroes the error counter but never revives.
type Pool struct {
	identities    []*Identity
	cursor        int // index of the last returned identity
	deadThreshold int
}

// Load parses proxy entries, one identity per line in
// host:port or host:port:username:password form. Blank lines, comment
// lines and lines with the wrong field count are skipped with a warning.
// Returns ErrNoIdentities when nothing usable was parsed.
func Load(lines []string, deadThreshold int) (*Pool, error) {
	p := &Pool{
		cursor:        -1,
		deadThreshold: deadThreshold,
	}

	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ":")
		switch len(parts) {
		case 2:
			p.identities = append(p.identities, &Identity{
				Address: parts[0] + ":" + parts[1],
			})
		case 4:
			p.identities = append(p.identities, &Identity{
				Address:  parts[0] + ":" + parts[1],
				Username: parts[2],
				Password: parts[3],
			})
		default:
			slog.Warn("Skipping malformed proxy entry", "line", i+1, "fields", len(parts))
		}
	}

	if len(p.identities) == 0 {
		return nil, ErrNoIdentities
	}

	slog.Info("Loaded proxy identities", "count", len(p.identities))
	return p, nil
}

// LoadFile reads a proxy list file and builds a pool from it.
func LoadFile(path string, deadThreshold int) (*Pool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read proxy file: %w", err)
	}
	return Load(strings.Split(string(data), "\n"), deadThreshold)
}

// Next returns the next live identity in round-robin order, starting
// after the last returned index. Dead identities are skipped. When every
// identity is dead it returns ErrExhausted.
func (p *Pool) Next() (*Identity, error) {
	n := len(p.identities)
	for i := 1; i <= n; i++ {
		idx := (p.cursor + i) % n
		if !p.identities[idx].Dead {
			p.cursor = idx
			return p.identities[idx], nil
		}
	}
	return nil, ErrExhausted
}

// ForceRotate advances the cursor without requiring an error, used for
// proactive rotation on a fixed operation schedule. It returns the newly
// selected identity, or ErrExhausted.
func (p *Pool) ForceRotate() (*Identity, error) {
	id, err := p.Next()
	if err != nil {
		return nil, err
	}
	metrics.RotationsTotal.WithLabelValues("proactive").Inc()
	slog.Debug("Proactive identity rotation", "identity", id.Address)
	return id, nil
}

// ReportSuccess resets the identity's consecutive error count and bumps
// its use counter. It does not revive a dead identity.
func (p *Pool) ReportSuccess(id *Identity) {
	id.ConsecutiveErrors = 0
	id.TotalUses++
}

// ReportError increments the identity's consecutive error count; on
// reaching the pool's threshold the identity is marked dead and a
// diagnostic names the identity and the triggering error kind.
func (p *Pool) ReportError(id *Identity, kind string) {
	id.ConsecutiveErrors++
	metrics.ProxyErrorsTotal.WithLabelValues(kind).Inc()

	if !id.Dead && id.ConsecutiveErrors >= p.deadThreshold {
		id.Dead = true
		metrics.IdentitiesDead.Inc()
		slog.Warn("Proxy identity marked dead",
			"identity", id.Address,
			"kind", kind,
			"consecutive_errors", id.ConsecutiveErrors)
	}
}

// Size returns the total number of identities, dead ones included.
func (p *Pool) Size() int {
	return len(p.identities)
}

// Alive returns the number of identities still usable.
func (p *Pool) Alive() int {
	alive := 0
	for _, id := range p.identities {
		if !id.Dead {
			alive++
		}
	}
	return alive
}

// Identities returns the full identity list for end-of-run diagnostics.
func (p *Pool) Identities() []*Identity {
	return p.identities
}
