package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Browser    BrowserConfig
	Navigation NavigationConfig
	Scraper    ScraperConfig
	Auth       AuthConfig
	RateLimit  RateLimitConfig
	Log        LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"

	// ShutdownTimeout bounds how long in-flight requests may run after a
	// shutdown signal, and how long the gate waits for open pages.
	ShutdownTimeout time.Duration // default: 5s
}

// BrowserConfig controls the shared Chrome instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// MaxConcurrentPages is the gate capacity (max simultaneous tabs).
	MaxConcurrentPages int // default: 4

	// NoSandbox disables Chrome's sandbox (needed in most containers).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Proxy is passed to Chrome as --proxy-server.
	Proxy string

	// Stealth masks navigator.webdriver and friends on every new page.
	Stealth bool // default: true
}

// NavigationConfig controls the navigation retry loop.
type NavigationConfig struct {
	// Timeout is the deadline for a single navigation attempt.
	Timeout time.Duration // default: 60s

	// Retries is the number of extra attempts after a timed-out first one.
	Retries int // default: 2

	// Backoff is the fixed pause between attempts.
	Backoff time.Duration // default: 250ms
}

// ScraperConfig controls the search flow.
type ScraperConfig struct {
	// BaseURL is the deal site root; searches go to BaseURL + "/search".
	BaseURL string // default: "https://www.groupon.com"

	// WaitTimeout bounds the wait for the result grid after navigation.
	WaitTimeout time.Duration // default: 30s

	// RequestTimeout is the hard deadline for one whole search, permit wait included.
	RequestTimeout time.Duration // default: 3m

	// BlockedResourceTypes lists resource types the page never downloads.
	// default: ["Image", "Font", "Media"]
	BlockedResourceTypes []string

	// AcceptLanguage is sent with every page request.
	AcceptLanguage string // default: "en-US,en;q=0.9"
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication on /search.
	Enabled bool // default: false

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-identity rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key or client IP.
	// Zero or less disables the limiter.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size per identity.
	Burst int // default: 10
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// defaults keys double as environment variable names (viper upper-cases them).
var defaults = map[string]any{
	"host":                 "0.0.0.0",
	"port":                 8080,
	"gin_mode":             "release",
	"shutdown_timeout_ms":  5000,
	"browser_headless":     true,
	"max_concurrent_pages": 4,
	"browser_no_sandbox":   false,
	"browser_bin":          "",
	"browser_proxy":        "",
	"browser_stealth":      true,
	"page_goto_timeout_ms": 60000,
	"page_goto_retries":    2,
	"page_goto_backoff_ms": 250,
	"page_wait_timeout_ms": 30000,
	"request_timeout_ms":   180000,
	"search_base_url":      "https://www.groupon.com",
	"blocked_resources":    "Image,Font,Media",
	"accept_language":      "en-US,en;q=0.9",
	"auth_enabled":         false,
	"api_keys":             "",
	"rate_rps":             5.0,
	"rate_burst":           10,
	"log_level":            "info",
	"log_format":           "json",
}

// Load reads configuration from environment variables with sane defaults.
// Numbers that fail to parse, or fall outside their valid range, use the
// default instead.
func Load() *Config {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Host:            v.GetString("host"),
			Port:            positiveOr(intValue(v, "port"), 8080),
			Mode:            v.GetString("gin_mode"),
			ShutdownTimeout: millis(positiveOr(intValue(v, "shutdown_timeout_ms"), 5000)),
		},
		Browser: BrowserConfig{
			Headless:           v.GetBool("browser_headless"),
			MaxConcurrentPages: positiveOr(intValue(v, "max_concurrent_pages"), 4),
			NoSandbox:          v.GetBool("browser_no_sandbox"),
			BrowserBin:         v.GetString("browser_bin"),
			Proxy:              v.GetString("browser_proxy"),
			Stealth:            v.GetBool("browser_stealth"),
		},
		Navigation: NavigationConfig{
			Timeout: millis(positiveOr(intValue(v, "page_goto_timeout_ms"), 60000)),
			Retries: nonNegativeOr(intValue(v, "page_goto_retries"), 2),
			Backoff: millis(nonNegativeOr(intValue(v, "page_goto_backoff_ms"), 250)),
		},
		Scraper: ScraperConfig{
			BaseURL:              strings.TrimRight(v.GetString("search_base_url"), "/"),
			WaitTimeout:          millis(positiveOr(intValue(v, "page_wait_timeout_ms"), 30000)),
			RequestTimeout:       millis(positiveOr(intValue(v, "request_timeout_ms"), 180000)),
			BlockedResourceTypes: splitList(v.GetString("blocked_resources")),
			AcceptLanguage:       v.GetString("accept_language"),
		},
		Auth: AuthConfig{
			Enabled: v.GetBool("auth_enabled"),
			APIKeys: splitList(v.GetString("api_keys")),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: floatValue(v, "rate_rps"),
			Burst:             positiveOr(intValue(v, "rate_burst"), 10),
		},
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString("log_level")),
			Format: strings.ToLower(v.GetString("log_format")),
		},
	}
	return cfg
}

// --- helper functions ---

// intValue parses key as an integer. Unparseable values yield -1 so the
// positiveOr/nonNegativeOr fallbacks apply, instead of viper's silent 0.
func intValue(v *viper.Viper, key string) int {
	n, err := strconv.Atoi(strings.TrimSpace(v.GetString(key)))
	if err != nil {
		return -1
	}
	return n
}

// floatValue parses key as a float, falling back to its default.
func floatValue(v *viper.Viper, key string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v.GetString(key)), 64)
	if err != nil {
		f, _ = defaults[key].(float64)
	}
	return f
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

func nonNegativeOr(v, fallback int) int {
	if v >= 0 {
		return v
	}
	return fallback
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
