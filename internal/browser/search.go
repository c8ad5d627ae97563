package browser

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"placewatch/internal/scrape"
)

const mapsBaseURL = "https://www.google.com/maps"

// blockingKeywords are content markers of an anti-bot interstitial.
var blockingKeywords = []string{
	"unusual traffic",
	"automated requests",
	"verify you",
	"not a robot",
}

// Search opens the target in English and runs the query, leaving the
// page on the result feed. Failures come back as operation signals.
func (s *Session) Search(ctx context.Context, query string) error {
	if strings.TrimSpace(query) == "" {
		return &scrape.MalformedTargetError{Target: query}
	}

	page := s.page.Context(ctx)

	// First visit sets the interface language before searching.
	if err := page.Timeout(s.driver.cfg.PageLoadTimeout()).Navigate(mapsBaseURL + "?hl=en"); err != nil {
		return navSignal(err)
	}
	if err := s.randomDelay(ctx, 1, 2); err != nil {
		return err
	}

	searchURL := mapsBaseURL + "/search/" + url.QueryEscape(query) + "?hl=en"
	slog.Info("Navigating to search", "url", searchURL)

	nav := page.Timeout(s.driver.cfg.PageLoadTimeout())
	if err := nav.Navigate(searchURL); err != nil {
		return navSignal(err)
	}
	if err := nav.WaitLoad(); err != nil {
		return navSignal(err)
	}
	if err := s.randomDelay(ctx, 2, 4); err != nil {
		return err
	}

	if err := s.CheckBlocked(); err != nil {
		return err
	}

	// Result feed must appear before collection makes sense.
	if _, err := page.Timeout(10 * time.Second).Element(s.driver.selectors.ResultsContainer); err != nil {
		return &scrape.EmptyResultError{What: "results container not found"}
	}

	slog.Info("Search results loaded")
	return nil
}

// CheckBlocked inspects the current page for CAPTCHA or anti-bot
// markers and reports them as a blocking signal.
func (s *Session) CheckBlocked() error {
	has, _, err := s.page.Has(s.driver.selectors.CaptchaIndicator)
	if err == nil && has {
		return &scrape.BlockedError{Marker: "captcha indicator"}
	}

	html, err := s.page.HTML()
	if err != nil {
		return nil
	}
	lower := strings.ToLower(html)
	for _, kw := range blockingKeywords {
		if strings.Contains(lower, kw) {
			return &scrape.BlockedError{Marker: kw}
		}
	}
	return nil
}

// CollectLinks scrolls the result feed and gathers place links, up to
// the given limit. Extra links cover later duplicate rejections.
func (s *Session) CollectLinks(ctx context.Context, limit int) ([]string, error) {
	if err := s.scrollResults(ctx); err != nil {
		return nil, err
	}

	elements, err := s.page.Context(ctx).Elements(s.driver.selectors.ResultItems)
	if err != nil {
		return nil, &scrape.EmptyResultError{What: "result items"}
	}

	var links []string
	for _, el := range elements {
		if len(links) >= limit {
			break
		}
		href, err := el.Attribute("href")
		if err != nil || href == nil {
			continue
		}
		if strings.Contains(*href, "/maps/place/") {
			links = append(links, *href)
		}
	}

	if len(links) == 0 {
		return nil, &scrape.EmptyResultError{What: "no place links in feed"}
	}

	slog.Info("Collected result links", "count", len(links))
	return links, nil
}

// scrollResults loads more feed items with a fixed number of scroll
// passes.
func (s *Session) scrollResults(ctx context.Context) error {
	cfg := s.driver.cfg
	page := s.page.Context(ctx)

	for i := 0; i < cfg.ScrollPasses; i++ {
		_, err := page.Eval(`(sel) => {
			const el = document.querySelector(sel);
			if (el) el.scrollBy(0, el.scrollHeight);
		}`, s.driver.selectors.ResultsContainer)
		if err != nil {
			slog.Debug("Scroll pass failed", "pass", i+1, "error", err)
			return nil
		}
		if err := s.randomDelay(ctx, cfg.ScrollDelaySec, cfg.ScrollDelaySec); err != nil {
			return err
		}
	}
	return nil
}

// navSignal converts a navigation error into an operation signal.
func navSignal(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &scrape.TimeoutError{Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &scrape.ConnectError{Err: err}
}
