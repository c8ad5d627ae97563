package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file and applies defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// Default returns a configuration with every default applied, for runs
// driven purely by CLI flags.
func Default() *AppConfig {
	var cfg AppConfig
	cfg.ApplyDefaults()
	return &cfg
}

// ApplyDefaults fills in zero-valued fields.
func (cfg *AppConfig) ApplyDefaults() {
	if cfg.Search.MaxResults == 0 {
		cfg.Search.MaxResults = 10
	}

	b := &cfg.Browser
	if len(b.UserAgents) == 0 {
		b.UserAgents = defaultUserAgents
	}
	if b.PageLoadTimeoutMs == 0 {
		b.PageLoadTimeoutMs = 30000
	}
	if b.NavTimeoutMs == 0 {
		b.NavTimeoutMs = 30000
	}
	if b.MinDelaySec == 0 {
		b.MinDelaySec = 1.5
	}
	if b.MaxDelaySec == 0 {
		b.MaxDelaySec = 3.5
	}
	if b.ScrollPasses == 0 {
		b.ScrollPasses = 5
	}
	if b.ScrollDelaySec == 0 {
		b.ScrollDelaySec = 0.8
	}

	if cfg.Proxy.DeadThreshold == 0 {
		cfg.Proxy.DeadThreshold = 3
	}
	if cfg.Proxy.RotateEvery == 0 {
		cfg.Proxy.RotateEvery = 4
	}

	r := &cfg.Retry
	if r.MaxAttempts == 0 {
		r.MaxAttempts = 3
	}
	if r.InitialDelayMs == 0 {
		r.InitialDelayMs = 1000
	}
	if r.MaxDelayMs == 0 {
		r.MaxDelayMs = 60000
	}
	if r.BackoffMultiple == 0 {
		r.BackoffMultiple = 2.0
	}

	if cfg.Dedup.ToleranceMeters == 0 {
		cfg.Dedup.ToleranceMeters = 25
	}

	e := &cfg.Email
	if len(e.Blacklist.LocalParts) == 0 {
		e.Blacklist.LocalParts = defaultBlacklistLocalParts
	}
	if len(e.Blacklist.Domains) == 0 {
		e.Blacklist.Domains = defaultBlacklistDomains
	}
	if len(e.Blacklist.Extensions) == 0 {
		e.Blacklist.Extensions = defaultBlacklistExtensions
	}
	if e.MaxContactLinks == 0 {
		e.MaxContactLinks = 3
	}

	s := &cfg.Selectors
	if s.ResultsContainer == "" {
		s.ResultsContainer = `div[role='feed']`
	}
	if s.ResultItems == "" {
		s.ResultItems = `div[role='feed'] > div > div > a`
	}
	if s.PlaceName == "" {
		s.PlaceName = `h1.DUwDvf, h1.fontHeadlineLarge`
	}
	if s.PlaceAddress == "" {
		s.PlaceAddress = `button[data-item-id='address'], button[data-tooltip='Copy address']`
	}
	if s.PlacePhone == "" {
		s.PlacePhone = `button[data-item-id*='phone'], button[aria-label*='Phone']`
	}
	if s.PlaceWebsite == "" {
		s.PlaceWebsite = `a[data-item-id='authority'], a[aria-label*='Website']`
	}
	if s.PlaceCategory == "" {
		s.PlaceCategory = `button[jsaction*='category'], button.DkEaL`
	}
	if s.PlaceRating == "" {
		s.PlaceRating = `div.F7nice > span[role='img'], span.ceNzKf, div.F7nice span[aria-hidden='true']`
	}
	if s.PlaceHours == "" {
		s.PlaceHours = `button[data-item-id*='oh'], div[aria-label*='Hours']`
	}
	if s.PlacePrice == "" {
		s.PlacePrice = `span[aria-label*='Price'], span.mgr77e`
	}
	if s.PlaceStatus == "" {
		s.PlaceStatus = `span[class*='ZDu9vd'], span.o0Svhf`
	}
	if s.CaptchaIndicator == "" {
		s.CaptchaIndicator = `iframe[src*='recaptcha'], div[id*='captcha']`
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

var defaultBlacklistLocalParts = []string{
	"test", "demo", "sample", "fake", "dummy",
	"noreply", "no-reply", "no_reply", "donotreply",
}

var defaultBlacklistDomains = []string{
	"example.", "test.", "domain.",
	"email.com", "yourdomain.com", "yoursite.com",
	"sentry.io", "wixpress.com", "schema.org",
}

var defaultBlacklistExtensions = []string{
	".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp",
}
