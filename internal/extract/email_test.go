package extract

import (
	"testing"
)

func testBlacklist() Blacklist {
	return Blacklist{
		LocalParts: []string{"noreply", "no-reply", "donotreply", "test", "admin@localhost"},
		Domains:    []string{"example.", "sentry.io", "wixpress.com", "localhost"},
		Extensions: []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp"},
	}
}

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}

func TestExtractFiltersBlacklistedDomains(t *testing.T) {
	x := NewExtractor(testBlacklist())

	got := x.Extract("Contact: fake@example.com or hello@realbiz.io")
	if len(got) != 1 {
		t.Fatalf("Extract() = %v, want exactly hello@realbiz.io", keys(got))
	}
	if _, ok := got["hello@realbiz.io"]; !ok {
		t.Errorf("Extract() = %v, want hello@realbiz.io", keys(got))
	}
}

func TestExtractRejectsImageFilenames(t *testing.T) {
	x := NewExtractor(testBlacklist())

	got := x.Extract(`<img src="logo.png@cdn.assets.io">`)
	if len(got) != 0 {
		t.Errorf("Extract() = %v, want empty set", keys(got))
	}
}

func TestExtractBlacklistCases(t *testing.T) {
	x := NewExtractor(testBlacklist())

	tests := []struct {
		name string
		blob string
		keep bool
	}{
		{"plain business address", "write to info@realbiz.io", true},
		{"noreply local part", "noreply@realbiz.io", false},
		{"domain family match", "sales@example.org", false},
		{"subdomain of blacklisted domain", "bot@mail.sentry.io", false},
		{"noreply as prefix only", "noreply-sales@realbiz.io", true},
		{"uppercase variant of blacklisted", "NOREPLY@REALBIZ.IO", false},
		{"no email shaped token", "call us at 555-0100", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := x.Extract(tt.blob)
			if tt.keep && len(got) != 1 {
				t.Errorf("Extract(%q) = %v, want one candidate", tt.blob, keys(got))
			}
			if !tt.keep && len(got) != 0 {
				t.Errorf("Extract(%q) = %v, want empty set", tt.blob, keys(got))
			}
		})
	}
}

func TestExtractDeduplicatesAcrossBlobs(t *testing.T) {
	x := NewExtractor(testBlacklist())

	got := x.Extract(
		"reach us at hello@realbiz.io",
		"footer: hello@realbiz.io | press@realbiz.io",
		"",
	)
	if len(got) != 2 {
		t.Fatalf("Extract() = %v, want 2 distinct candidates", keys(got))
	}
}

func TestExtractHTMLMailtoPass(t *testing.T) {
	x := NewExtractor(testBlacklist())

	markup := `<html><body>
		<a href="mailto:owner@realbiz.io?subject=Hi">Email us</a>
		<a href="mailto:fake@example.com">Fake</a>
		<a href="/contact">Contact</a>
	</body></html>`

	got := x.ExtractHTML(markup)
	if _, ok := got["owner@realbiz.io"]; !ok {
		t.Errorf("ExtractHTML() = %v, want owner@realbiz.io from mailto link", keys(got))
	}
	if _, ok := got["fake@example.com"]; ok {
		t.Error("ExtractHTML() kept a blacklisted mailto address")
	}
}

func TestMerge(t *testing.T) {
	dst := map[string]struct{}{"a@realbiz.io": {}}
	Merge(dst,
		map[string]struct{}{"b@realbiz.io": {}},
		map[string]struct{}{"a@realbiz.io": {}, "c@realbiz.io": {}},
	)
	if len(dst) != 3 {
		t.Errorf("Merge() produced %d entries, want 3", len(dst))
	}
}
