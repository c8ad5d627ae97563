package browser

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

const websiteTimeout = 15 * time.Second

// FetchWebsite visits a business website and returns text and markup
// blobs for email extraction: the landing page plus up to maxLinks
// contact-flavored subpages. Failures here are non-fatal; whatever was
// gathered is returned.
func (s *Session) FetchWebsite(ctx context.Context, site string, maxLinks int) []string {
	if site == "" || strings.Contains(site, "google.com") {
		return nil
	}

	page, err := s.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		slog.Debug("Failed to open website page", "error", err)
		return nil
	}
	defer func() { _ = page.Close() }()
	page = page.Context(ctx)

	slog.Info("Visiting website for emails", "url", site)

	var blobs []string
	text, html, ok := navigateAndRead(page, site)
	if !ok {
		return nil
	}
	blobs = append(blobs, text, html)

	for _, link := range contactLinks(html, site, maxLinks) {
		if err := s.randomDelay(ctx, 0.5, 1); err != nil {
			return blobs
		}
		subText, _, ok := navigateAndRead(page, link)
		if ok {
			blobs = append(blobs, subText)
		}
	}

	return blobs
}

// navigateAndRead loads a URL and returns its rendered text and markup.
func navigateAndRead(page *rod.Page, target string) (text, html string, ok bool) {
	nav := page.Timeout(websiteTimeout)
	if err := nav.Navigate(target); err != nil {
		slog.Debug("Website navigation failed", "url", target, "error", err)
		return "", "", false
	}
	if err := nav.WaitLoad(); err != nil {
		slog.Debug("Website load wait failed", "url", target, "error", err)
		return "", "", false
	}

	if res, err := page.Eval(`() => document.body.innerText`); err == nil {
		text = res.Value.Str()
	}
	if h, err := page.HTML(); err == nil {
		html = h
	}
	return text, html, text != "" || html != ""
}

// contactLinks picks up to max contact/about/team links from the landing
// page markup, resolved against the site URL.
func contactLinks(html, site string, max int) []string {
	if max <= 0 || html == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	base, err := url.Parse(site)
	if err != nil {
		return nil
	}

	seen := make(map[string]struct{})
	var links []string
	doc.Find(`a[href*="contact"], a[href*="about"], a[href*="team"]`).
		EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			href, ok := sel.Attr("href")
			if !ok || strings.HasPrefix(href, "mailto:") {
				return true
			}
			ref, err := url.Parse(href)
			if err != nil {
				return true
			}
			abs := base.ResolveReference(ref).String()
			if !strings.HasPrefix(abs, "http") {
				return true
			}
			if _, dup := seen[abs]; dup {
				return true
			}
			seen[abs] = struct{}{}
			links = append(links, abs)
			return len(links) < max
		})
	return links
}
