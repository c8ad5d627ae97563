package config

import (
	"time"

	"placewatch/internal/output"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Search    SearchConfig   `yaml:"search"`
	Browser   BrowserConfig  `yaml:"browser"`
	Proxy     ProxyConfig    `yaml:"proxy"`
	Retry     RetryConfig    `yaml:"retry"`
	Dedup     DedupConfig    `yaml:"dedup"`
	Email     EmailConfig    `yaml:"email"`
	Selectors SelectorConfig `yaml:"selectors"`
	Output    OutputConfig   `yaml:"output"`
	Metrics   MetricsConfig  `yaml:"metrics"`
	Logging   LoggingConfig  `yaml:"logging"`
}

// SearchConfig describes what to scrape.
type SearchConfig struct {
	Keyword    string `yaml:"keyword"`
	Location   string `yaml:"location"`
	MaxResults int    `yaml:"max_results"`
}

// BrowserConfig holds driver settings. Timeouts are milliseconds,
// delays are seconds.
type BrowserConfig struct {
	Headless          bool     `yaml:"headless"`
	UserAgents        []string `yaml:"user_agents"`
	PageLoadTimeoutMs int      `yaml:"page_load_timeout_ms"`
	NavTimeoutMs      int      `yaml:"navigation_timeout_ms"`
	MinDelaySec       float64  `yaml:"min_delay_sec"`
	MaxDelaySec       float64  `yaml:"max_delay_sec"`
	ScrollPasses      int      `yaml:"scroll_passes"`
	ScrollDelaySec    float64  `yaml:"scroll_delay_sec"`
}

// PageLoadTimeout returns the page load ceiling as a duration.
func (b BrowserConfig) PageLoadTimeout() time.Duration {
	return time.Duration(b.PageLoadTimeoutMs) * time.Millisecond
}

// NavTimeout returns the per-navigation ceiling as a duration.
func (b BrowserConfig) NavTimeout() time.Duration {
	return time.Duration(b.NavTimeoutMs) * time.Millisecond
}

// ProxyConfig holds identity pool settings.
type ProxyConfig struct {
	File            string `yaml:"file"`
	RotationEnabled bool   `yaml:"rotation_enabled"`
	DeadThreshold   int    `yaml:"dead_threshold"` // consecutive errors before an identity is dead
	RotateEvery     int    `yaml:"rotate_every"`   // proactive rotation interval in successful operations
}

// RetryConfig holds retry controller settings.
type RetryConfig struct {
	MaxAttempts     int     `yaml:"max_attempts"`
	InitialDelayMs  int     `yaml:"initial_delay_ms"`
	MaxDelayMs      int     `yaml:"max_delay_ms"`
	BackoffMultiple float64 `yaml:"backoff_multiple"`
}

// InitialDelay returns the first backoff delay as a duration.
func (r RetryConfig) InitialDelay() time.Duration {
	return time.Duration(r.InitialDelayMs) * time.Millisecond
}

// MaxDelay returns the backoff ceiling as a duration.
func (r RetryConfig) MaxDelay() time.Duration {
	return time.Duration(r.MaxDelayMs) * time.Millisecond
}

// DedupConfig holds deduplication settings.
type DedupConfig struct {
	ToleranceMeters float64 `yaml:"tolerance_meters"`
}

// EmailConfig holds extraction settings. The blacklist is data, not
// code, so new reject families need no control-flow change.
type EmailConfig struct {
	Blacklist       BlacklistConfig `yaml:"blacklist"`
	CrawlWebsites   bool            `yaml:"crawl_websites"`
	MaxContactLinks int             `yaml:"max_contact_links"`
}

// BlacklistConfig enumerates the candidate families rejected by the
// email extractor.
type BlacklistConfig struct {
	LocalParts []string `yaml:"local_parts"`
	Domains    []string `yaml:"domains"`
	Extensions []string `yaml:"extensions"`
}

// SelectorConfig maps logical page elements to CSS selectors.
type SelectorConfig struct {
	ResultsContainer string `yaml:"results_container"`
	ResultItems      string `yaml:"result_items"`
	PlaceName        string `yaml:"place_name"`
	PlaceAddress     string `yaml:"place_address"`
	PlacePhone       string `yaml:"place_phone"`
	PlaceWebsite     string `yaml:"place_website"`
	PlaceCategory    string `yaml:"place_category"`
	PlaceRating      string `yaml:"place_rating"`
	PlaceHours       string `yaml:"place_hours"`
	PlacePrice       string `yaml:"place_price"`
	PlaceStatus      string `yaml:"place_status"`
	CaptchaIndicator string `yaml:"captcha_indicator"`
}

// OutputConfig holds writer settings. Empty paths disable a writer.
type OutputConfig struct {
	CSV      string                `yaml:"csv"`
	JSONL    string                `yaml:"jsonl"`
	Postgres output.PostgresConfig `yaml:"postgres"`
}

// MetricsConfig holds the optional Prometheus listener address.
type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}
