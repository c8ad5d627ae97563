// Package browser drives the target through a real browser. Each
// session is bound to one proxy identity; rotating identity means
// tearing the session down and launching a fresh one.
package browser

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"placewatch/internal/core/config"
	"placewatch/internal/proxy"
)

// stealthScript hides the obvious automation tells before any page
// script runs.
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', {get: () => undefined});
Object.defineProperty(navigator, 'language', {get: () => 'en-US'});
Object.defineProperty(navigator, 'languages', {get: () => ['en-US', 'en']});
window.chrome = {runtime: {}};
`

// Driver launches identity-bound browser sessions.
type Driver struct {
	cfg       config.BrowserConfig
	selectors config.SelectorConfig
}

// NewDriver creates a driver from browser and selector configuration.
func NewDriver(cfg config.BrowserConfig, selectors config.SelectorConfig) *Driver {
	return &Driver{cfg: cfg, selectors: selectors}
}

// Session is one live browser bound to a proxy identity.
type Session struct {
	driver   *Driver
	ident    *proxy.Identity
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

// Session launches a browser for the given identity (nil runs direct)
// and prepares a page with a randomized user agent and the stealth
// script installed.
func (d *Driver) Session(ident *proxy.Identity) (*Session, error) {
	l := launcher.New().
		Headless(d.cfg.Headless).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("lang", "en-US")

	if ident != nil {
		l = l.Proxy(ident.URL())
		slog.Info("Using proxy identity", "identity", ident.Address)
	}

	url, err := l.Launch()
	if err != nil {
		return nil, err
	}

	b := rod.New().ControlURL(url)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, err
	}

	if ident != nil && ident.HasCredentials() {
		go b.HandleAuth(ident.Username, ident.Password)()
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = b.Close()
		l.Kill()
		return nil, err
	}

	s := &Session{driver: d, ident: ident, launcher: l, browser: b, page: page}
	if err := s.preparePage(page); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Identity returns the identity this session is bound to, nil when
// running direct.
func (s *Session) Identity() *proxy.Identity {
	return s.ident
}

// preparePage installs the user agent, the stealth script, and clears
// cookies carried over from a previous target visit.
func (s *Session) preparePage(page *rod.Page) error {
	ua := s.driver.userAgent()
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      ua,
		AcceptLanguage: "en-US,en;q=0.9",
	}); err != nil {
		return err
	}

	if _, err := (proto.PageAddScriptToEvaluateOnNewDocument{
		Source: stealthScript,
	}).Call(page); err != nil {
		return err
	}

	return proto.NetworkClearBrowserCookies{}.Call(page)
}

// Close tears the session down. Safe to call more than once.
func (s *Session) Close() {
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			slog.Debug("Error closing browser", "error", err)
		}
		s.browser = nil
	}
	if s.launcher != nil {
		s.launcher.Kill()
		s.launcher = nil
	}
}

func (d *Driver) userAgent() string {
	agents := d.cfg.UserAgents
	if len(agents) == 0 {
		return ""
	}
	return agents[rand.Intn(len(agents))]
}

// randomDelay sleeps a human-like random interval between the
// configured bounds, returning early on cancellation.
func (s *Session) randomDelay(ctx context.Context, minSec, maxSec float64) error {
	if maxSec < minSec {
		maxSec = minSec
	}
	d := time.Duration((minSec + rand.Float64()*(maxSec-minSec)) * float64(time.Second))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
