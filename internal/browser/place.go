package browser

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"placewatch/internal/core/domain"
	"placewatch/internal/scrape"
)

// Parsed is one place page broken into the structured record plus the
// raw text and markup the email extractor consumes.
type Parsed struct {
	Place domain.Place
	Text  string
	HTML  string
}

var ratingPattern = regexp.MustCompile(`(\d+\.?\d*)`)

// ParsePlace navigates to a place link and extracts the full record.
// The name is mandatory; every other field is optional data whose
// absence is not an error.
func (s *Session) ParsePlace(ctx context.Context, link string) (*Parsed, error) {
	if !strings.Contains(link, "/maps/place/") {
		return nil, &scrape.MalformedTargetError{Target: link}
	}

	cfg := s.driver.cfg
	page := s.page.Context(ctx)

	nav := page.Timeout(cfg.NavTimeout())
	if err := nav.Navigate(link); err != nil {
		return nil, navSignal(err)
	}
	if err := nav.WaitLoad(); err != nil {
		return nil, navSignal(err)
	}
	if err := s.randomDelay(ctx, cfg.MinDelaySec, cfg.MaxDelaySec); err != nil {
		return nil, err
	}

	if err := s.CheckBlocked(); err != nil {
		return nil, err
	}

	sel := s.driver.selectors

	name := s.elementText(sel.PlaceName)
	if name == "" {
		return nil, &scrape.EmptyResultError{What: "place name"}
	}

	lat, lon := s.extractCoordinates()

	website := s.elementAttr(sel.PlaceWebsite, "href")
	if website == "" {
		website = s.websiteFallback()
	}

	place := domain.Place{
		Name:           name,
		Address:        s.elementText(sel.PlaceAddress),
		Latitude:       lat,
		Longitude:      lon,
		Phone:          s.elementText(sel.PlacePhone),
		Website:        website,
		Category:       s.elementText(sel.PlaceCategory),
		Rating:         s.extractRating(),
		Hours:          s.elementText(sel.PlaceHours),
		PriceLevel:     s.extractPrice(),
		BusinessStatus: s.elementText(sel.PlaceStatus),
		ScrapedAt:      time.Now(),
	}

	text := s.pageText()
	html, err := s.page.HTML()
	if err != nil {
		html = ""
	}

	slog.Info("Parsed place", "name", name, "lat", lat, "lon", lon)
	return &Parsed{Place: place, Text: text, HTML: html}, nil
}

// extractCoordinates pulls latitude/longitude from the @lat,lng URL
// segment the target embeds after navigation.
func (s *Session) extractCoordinates() (float64, float64) {
	info, err := s.page.Info()
	if err != nil {
		return 0, 0
	}
	at := strings.Index(info.URL, "@")
	if at < 0 {
		return 0, 0
	}
	parts := strings.Split(info.URL[at+1:], ",")
	if len(parts) < 2 {
		return 0, 0
	}
	lat, err1 := strconv.ParseFloat(parts[0], 64)
	lon, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil {
		return 0, 0
	}
	return lat, lon
}

func (s *Session) extractRating() float64 {
	text := s.elementText(s.driver.selectors.PlaceRating)
	if text == "" {
		if attr := s.elementAttr(s.driver.selectors.PlaceRating, "aria-label"); attr != "" {
			text = attr
		}
	}
	m := ratingPattern.FindString(text)
	if m == "" {
		return 0
	}
	rating, err := strconv.ParseFloat(m, 64)
	if err != nil || rating < 0 || rating > 5 {
		return 0
	}
	return rating
}

func (s *Session) extractPrice() string {
	if label := s.elementAttr(s.driver.selectors.PlacePrice, "aria-label"); label != "" {
		return label
	}
	return s.elementText(s.driver.selectors.PlacePrice)
}

// websiteFallback sweeps page anchors for the first external link when
// the website selector found nothing.
func (s *Session) websiteFallback() string {
	res, err := s.page.Eval(`() => {
		const links = document.querySelectorAll('a[href*="http"]');
		for (const link of links) {
			const href = link.href;
			if (href && !href.includes('google.com') && !href.includes('gstatic.com')) {
				return href;
			}
		}
		return '';
	}`)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// pageText returns the rendered text of the whole page.
func (s *Session) pageText() string {
	res, err := s.page.Eval(`() => document.body.innerText`)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// elementText returns the trimmed text of the first match, empty when
// absent.
func (s *Session) elementText(selector string) string {
	has, el, err := s.page.Has(selector)
	if err != nil || !has {
		return ""
	}
	text, err := el.Text()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

// elementAttr returns an attribute of the first match, empty when
// absent.
func (s *Session) elementAttr(selector, attr string) string {
	has, el, err := s.page.Has(selector)
	if err != nil || !has {
		return ""
	}
	val, err := el.Attribute(attr)
	if err != nil || val == nil {
		return ""
	}
	return strings.TrimSpace(*val)
}
