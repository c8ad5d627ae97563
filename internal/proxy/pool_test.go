package proxy

import (
	"errors"
	"testing"
)

func mustLoad(t *testing.T, lines []string, threshold int) *Pool {
	t.Helper()
	p, err := Load(lines, threshold)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return p
}

func TestLoadParsesEntries(t *testing.T) {
	p := mustLoad(t, []string{
		"10.0.0.1:8080",
		"",
		"# comment",
		"10.0.0.2:8080:user:pass",
		"not-a-proxy",
		"a:b:c", // 3 fields, skipped
	}, 3)

	if p.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", p.Size())
	}

	ids := p.Identities()
	if ids[0].Address != "10.0.0.1:8080" || ids[0].HasCredentials() {
		t.Errorf("first identity = %+v, want bare 10.0.0.1:8080", ids[0])
	}
	if ids[1].Username != "user" || ids[1].Password != "pass" {
		t.Errorf("second identity credentials = %q/%q, want user/pass", ids[1].Username, ids[1].Password)
	}
}

func TestLoadEmptyList(t *testing.T) {
	if _, err := Load([]string{"", "# only comments"}, 3); !errors.Is(err, ErrNoIdentities) {
		t.Fatalf("Load() error = %v, want ErrNoIdentities", err)
	}
}

func TestNextRoundRobin(t *testing.T) {
	p := mustLoad(t, []string{"a:1", "b:1", "c:1"}, 3)

	want := []string{"a:1", "b:1", "c:1", "a:1"}
	for i, addr := range want {
		id, err := p.Next()
		if err != nil {
			t.Fatalf("Next() #%d error = %v", i, err)
		}
		if id.Address != addr {
			t.Errorf("Next() #%d = %s, want %s", i, id.Address, addr)
		}
	}
}

func TestDeadAfterThresholdErrors(t *testing.T) {
	p := mustLoad(t, []string{"a:1", "b:1"}, 3)
	id, _ := p.Next()

	for i := 0; i < 3; i++ {
		if id.Dead {
			t.Fatalf("identity dead after %d errors, threshold is 3", i)
		}
		p.ReportError(id, "timeout")
	}
	if !id.Dead {
		t.Fatal("identity not dead after 3 consecutive errors")
	}

	// Dead identities are excluded from all subsequent Next() results.
	for i := 0; i < 10; i++ {
		got, err := p.Next()
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if got.Address == id.Address {
			t.Fatal("Next() returned a dead identity")
		}
	}
}

func TestSuccessResetsErrorsButNeverRevives(t *testing.T) {
	p := mustLoad(t, []string{"a:1"}, 3)
	id, _ := p.Next()

	p.ReportError(id, "timeout")
	p.ReportError(id, "timeout")
	p.ReportSuccess(id)
	if id.ConsecutiveErrors != 0 {
		t.Errorf("ConsecutiveErrors = %d after success, want 0", id.ConsecutiveErrors)
	}
	if id.TotalUses != 1 {
		t.Errorf("TotalUses = %d, want 1", id.TotalUses)
	}

	p.ReportError(id, "status_403")
	p.ReportError(id, "status_403")
	p.ReportError(id, "status_403")
	if !id.Dead {
		t.Fatal("identity not dead after 3 consecutive errors")
	}

	// The one-way transition: success zeroes the counter but the
	// identity stays dead for the rest of the run.
	p.ReportSuccess(id)
	if !id.Dead {
		t.Fatal("success revived a dead identity")
	}
	if _, err := p.Next(); !errors.Is(err, ErrExhausted) {
		t.Fatalf("Next() error = %v, want ErrExhausted", err)
	}
}

func TestExhaustionOnlyWhenAllDead(t *testing.T) {
	lines := make([]string, 10)
	for i := range lines {
		lines[i] = string(rune('a'+i)) + ":1"
	}
	p := mustLoad(t, lines, 1)

	// Kill one identity up front.
	first, _ := p.Next()
	p.ReportError(first, "blocked")

	// The dead one never comes back across many calls.
	for i := 0; i < 50; i++ {
		id, err := p.Next()
		if err != nil {
			t.Fatalf("Next() error = %v with %d alive", err, p.Alive())
		}
		if id.Address == first.Address {
			t.Fatal("Next() returned the dead identity")
		}
	}

	// Exhaustion is signalled only once all ten are dead.
	for p.Alive() > 0 {
		id, err := p.Next()
		if err != nil {
			t.Fatalf("Next() error = %v with %d alive", err, p.Alive())
		}
		p.ReportError(id, "blocked")
	}
	if _, err := p.Next(); !errors.Is(err, ErrExhausted) {
		t.Fatalf("Next() error = %v, want ErrExhausted", err)
	}
}

func TestForceRotateAdvancesCursor(t *testing.T) {
	p := mustLoad(t, []string{"a:1", "b:1", "c:1"}, 3)

	id, _ := p.Next()
	if id.Address != "a:1" {
		t.Fatalf("Next() = %s, want a:1", id.Address)
	}

	rotated, err := p.ForceRotate()
	if err != nil {
		t.Fatalf("ForceRotate() error = %v", err)
	}
	if rotated.Address != "b:1" {
		t.Errorf("ForceRotate() = %s, want b:1", rotated.Address)
	}

	next, _ := p.Next()
	if next.Address != "c:1" {
		t.Errorf("Next() after rotation = %s, want c:1", next.Address)
	}
}
