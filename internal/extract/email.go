// Package extract pulls email candidates out of raw text and markup and
// filters known-fake patterns through a configured blacklist.
package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"placewatch/internal/metrics"
)

// emailPattern matches email-shaped tokens: local part, @, domain with a
// top-level segment of at least two characters.
var emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`)

// Blacklist enumerates candidate families to reject. All matching is
// case-insensitive.
type Blacklist struct {
	LocalParts []string // rejected when equal to the local part
	Domains    []string // rejected domains; a trailing dot matches the whole family (example.*)
	Extensions []string // filename extensions that disqualify a token outright
}

// Extractor scans text blobs for plausible business email addresses.
type Extractor struct {
	localParts []string
	domains    []string
	extensions []string
}

// NewExtractor builds an extractor around a blacklist.
func NewExtractor(bl Blacklist) *Extractor {
	return &Extractor{
		localParts: lowerAll(bl.LocalParts),
		domains:    lowerAll(bl.Domains),
		extensions: lowerAll(bl.Extensions),
	}
}

// Extract scans each blob for email-shaped tokens and returns the
// surviving candidates as a set. An empty set is a valid result.
func (x *Extractor) Extract(blobs ...string) map[string]struct{} {
	found := make(map[string]struct{})
	for _, blob := range blobs {
		if blob == "" {
			continue
		}
		for _, candidate := range emailPattern.FindAllString(blob, -1) {
			if x.allowed(candidate) {
				found[candidate] = struct{}{}
			}
		}
	}
	metrics.EmailsExtracted.Add(float64(len(found)))
	return found
}

// ExtractHTML runs the text pass over raw markup and adds a second pass
// for explicit mailto link annotations.
func (x *Extractor) ExtractHTML(markup string) map[string]struct{} {
	found := x.Extract(markup)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return found
	}
	doc.Find(`a[href^="mailto:"]`).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		candidate := strings.TrimPrefix(href, "mailto:")
		if i := strings.IndexByte(candidate, '?'); i >= 0 {
			candidate = candidate[:i]
		}
		if emailPattern.MatchString(candidate) && x.allowed(candidate) {
			found[candidate] = struct{}{}
		}
	})
	return found
}

// Merge unions candidate sets into dst.
func Merge(dst map[string]struct{}, srcs ...map[string]struct{}) {
	for _, src := range srcs {
		for e := range src {
			dst[e] = struct{}{}
		}
	}
}

func (x *Extractor) allowed(candidate string) bool {
	lower := strings.ToLower(candidate)

	// Image filenames masquerading as addresses (logo.png@cdn...).
	for _, ext := range x.extensions {
		if strings.Contains(lower, ext) {
			return false
		}
	}

	at := strings.LastIndexByte(lower, '@')
	if at <= 0 || at == len(lower)-1 {
		return false
	}
	local, domain := lower[:at], lower[at+1:]

	for _, lp := range x.localParts {
		if local == lp {
			return false
		}
	}

	for _, d := range x.domains {
		if strings.HasSuffix(d, ".") {
			// Family entry: example. rejects example.com, example.org, ...
			if strings.HasPrefix(domain, d) {
				return false
			}
			continue
		}
		if domain == d || strings.HasSuffix(domain, "."+d) {
			return false
		}
	}

	return true
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
