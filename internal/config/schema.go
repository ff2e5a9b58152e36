package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/jackzampolin/wikibook/internal/bookapi"
	"github.com/jackzampolin/wikibook/internal/poller"
	"github.com/jackzampolin/wikibook/internal/wiki"
)

// Config holds wikibook configuration.
// Stored at: {home}/config.yaml
type Config struct {
	Backend BackendConfig `mapstructure:"backend" yaml:"backend"`
	Wiki    WikiConfig    `mapstructure:"wiki" yaml:"wiki"`
	Poll    PollConfig    `mapstructure:"poll" yaml:"poll"`
	Book    BookConfig    `mapstructure:"book" yaml:"book"`
	Render  RenderConfig  `mapstructure:"render" yaml:"render"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
}

// BackendConfig points at the PDF generation service.
type BackendConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	// ContentBaseURL serves generated files (default: base_url without /api)
	ContentBaseURL string `mapstructure:"content_base_url" yaml:"content_base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// Timeout returns the per-request timeout.
func (c BackendConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// WikiConfig points at the MediaWiki instance pages come from.
type WikiConfig struct {
	APIURL               string   `mapstructure:"api_url" yaml:"api_url"`
	RestURL              string   `mapstructure:"rest_url" yaml:"rest_url"`
	SearchURL            string   `mapstructure:"search_url" yaml:"search_url"`
	SiteURL              string   `mapstructure:"site_url" yaml:"site_url"`
	CategoryPrefix       string   `mapstructure:"category_prefix" yaml:"category_prefix"`
	SearchLimit          int      `mapstructure:"search_limit" yaml:"search_limit"`
	MinSearchLength      int      `mapstructure:"min_search_length" yaml:"min_search_length"`
	CacheTTLSeconds      int      `mapstructure:"cache_ttl_seconds" yaml:"cache_ttl_seconds"`
	ExcludeCategories    []string `mapstructure:"exclude_categories" yaml:"exclude_categories"`
	RestrictToCategories []string `mapstructure:"restrict_to_categories" yaml:"restrict_to_categories"`
}

// CacheTTL returns how long wiki responses are cached.
func (c WikiConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// PollConfig controls job status polling.
type PollConfig struct {
	IntervalSeconds int  `mapstructure:"interval_seconds" yaml:"interval_seconds"`
	MaxAttempts     uint `mapstructure:"max_attempts" yaml:"max_attempts"`
}

// Interval returns the delay between status requests.
func (c PollConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// BookConfig holds metadata defaults for new books.
type BookConfig struct {
	DefaultTitle    string `mapstructure:"default_title" yaml:"default_title"`
	DefaultSubtitle string `mapstructure:"default_subtitle" yaml:"default_subtitle"`
}

// RenderConfig controls local previews.
type RenderConfig struct {
	FontPath   string `mapstructure:"font_path" yaml:"font_path"`
	FontFamily string `mapstructure:"font_family" yaml:"font_family"`
	RTL        bool   `mapstructure:"rtl" yaml:"rtl"`
	Lang       string `mapstructure:"lang" yaml:"lang"`
}

// ServerConfig controls the local desk server.
type ServerConfig struct {
	Host               string `mapstructure:"host" yaml:"host"`
	Port               string `mapstructure:"port" yaml:"port"`
	RateLimitPerMinute int    `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`
}

// Addr returns host:port.
func (c ServerConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL:        bookapi.DefaultBaseURL,
			TimeoutSeconds: 30,
		},
		Wiki: WikiConfig{
			APIURL:            wiki.DefaultAPIURL,
			RestURL:           wiki.DefaultRestURL,
			SearchURL:         wiki.DefaultSearchURL,
			SiteURL:           wiki.DefaultSiteURL,
			CategoryPrefix:    wiki.DefaultCategoryPrefix,
			SearchLimit:       wiki.DefaultSearchLimit,
			MinSearchLength:   wiki.DefaultMinSearchLength,
			CacheTTLSeconds:   int(wiki.DefaultCacheTTL / time.Second),
			ExcludeCategories: append([]string(nil), wiki.DefaultExcludeCategories...),
		},
		Poll: PollConfig{
			IntervalSeconds: int(poller.DefaultInterval / time.Second),
			MaxAttempts:     poller.DefaultMaxAttempts,
		},
		Book: BookConfig{
			DefaultTitle: "My Book",
		},
		Render: RenderConfig{
			FontFamily: "BookFont",
			RTL:        true,
			Lang:       "he",
		},
		Server: ServerConfig{
			Host:               "127.0.0.1",
			Port:               "8080",
			RateLimitPerMinute: 120,
		},
	}
}

// Validate checks the fields nothing can work without.
func (c *Config) Validate() error {
	var errs []error
	for name, u := range map[string]string{
		"backend.base_url": c.Backend.BaseURL,
		"wiki.api_url":     c.Wiki.APIURL,
		"wiki.rest_url":    c.Wiki.RestURL,
		"wiki.search_url":  c.Wiki.SearchURL,
	} {
		if err := checkURL(u); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	if c.Backend.ContentBaseURL != "" {
		if err := checkURL(c.Backend.ContentBaseURL); err != nil {
			errs = append(errs, fmt.Errorf("backend.content_base_url: %w", err))
		}
	}
	if c.Poll.IntervalSeconds <= 0 {
		errs = append(errs, errors.New("poll.interval_seconds must be positive"))
	}
	if c.Poll.MaxAttempts == 0 {
		errs = append(errs, errors.New("poll.max_attempts must be positive"))
	}
	return errors.Join(errs...)
}

func checkURL(s string) error {
	if s == "" {
		return errors.New("is required")
	}
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("%q is not an absolute http(s) url", s)
	}
	return nil
}
