package config

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoDefault is returned when no default value exists for a config key.
var ErrNoDefault = errors.New("no default exists")

// DefaultEntries returns one entry per configuration key with its default
// value. Viper is seeded from these so every key can be overridden from the
// environment.
func DefaultEntries() []Entry {
	d := DefaultConfig()
	return []Entry{
		// ===================
		// PDF service
		// ===================
		{
			Key:         "backend.base_url",
			Value:       d.Backend.BaseURL,
			Description: "Base URL of the PDF service API",
		},
		{
			Key:         "backend.content_base_url",
			Value:       d.Backend.ContentBaseURL,
			Description: "Origin serving generated files (empty: base_url without /api)",
		},
		{
			Key:         "backend.timeout_seconds",
			Value:       d.Backend.TimeoutSeconds,
			Description: "HTTP timeout in seconds for PDF service requests",
		},

		// ===================
		// Wiki
		// ===================
		{
			Key:         "wiki.api_url",
			Value:       d.Wiki.APIURL,
			Description: "MediaWiki action API endpoint",
		},
		{
			Key:         "wiki.rest_url",
			Value:       d.Wiki.RestURL,
			Description: "MediaWiki REST page endpoint, also sent to the PDF service as base_url",
		},
		{
			Key:         "wiki.search_url",
			Value:       d.Wiki.SearchURL,
			Description: "MediaWiki REST title search endpoint",
		},
		{
			Key:         "wiki.site_url",
			Value:       d.Wiki.SiteURL,
			Description: "Public wiki origin used to build page links",
		},
		{
			Key:         "wiki.category_prefix",
			Value:       d.Wiki.CategoryPrefix,
			Description: "Localized namespace prefix for category titles",
		},
		{
			Key:         "wiki.search_limit",
			Value:       d.Wiki.SearchLimit,
			Description: "Maximum search results returned",
		},
		{
			Key:         "wiki.min_search_length",
			Value:       d.Wiki.MinSearchLength,
			Description: "Shorter queries return no results without a request",
		},
		{
			Key:         "wiki.cache_ttl_seconds",
			Value:       d.Wiki.CacheTTLSeconds,
			Description: "How long wiki responses are cached",
		},
		{
			Key:         "wiki.exclude_categories",
			Value:       d.Wiki.ExcludeCategories,
			Description: "Pages in any of these categories are hidden from search",
		},
		{
			Key:         "wiki.restrict_to_categories",
			Value:       []string{},
			Description: "When set, only pages in one of these categories are shown",
		},

		// ===================
		// Polling
		// ===================
		{
			Key:         "poll.interval_seconds",
			Value:       d.Poll.IntervalSeconds,
			Description: "Delay between job status requests",
		},
		{
			Key:         "poll.max_attempts",
			Value:       d.Poll.MaxAttempts,
			Description: "Status requests before giving up on a job",
		},

		// ===================
		// Book defaults
		// ===================
		{
			Key:         "book.default_title",
			Value:       d.Book.DefaultTitle,
			Description: "Title used when a book is submitted without one",
		},
		{
			Key:         "book.default_subtitle",
			Value:       d.Book.DefaultSubtitle,
			Description: "Subtitle used for local previews without one",
		},

		// ===================
		// Local rendering
		// ===================
		{
			Key:         "render.font_path",
			Value:       d.Render.FontPath,
			Description: "TrueType font for local PDF previews (needed for non-Latin text)",
		},
		{
			Key:         "render.font_family",
			Value:       d.Render.FontFamily,
			Description: "Name the preview font is registered under",
		},
		{
			Key:         "render.rtl",
			Value:       d.Render.RTL,
			Description: "Lay out previews right to left (requires font_path)",
		},
		{
			Key:         "render.lang",
			Value:       d.Render.Lang,
			Description: "Language tag written into EPUB exports",
		},

		// ===================
		// Desk server
		// ===================
		{
			Key:         "server.host",
			Value:       d.Server.Host,
			Description: "Address the desk server listens on",
		},
		{
			Key:         "server.port",
			Value:       d.Server.Port,
			Description: "Port the desk server listens on",
		},
		{
			Key:         "server.rate_limit_per_minute",
			Value:       d.Server.RateLimitPerMinute,
			Description: "Requests per minute allowed per client IP (0 disables)",
		},
	}
}

// GetDefault returns the default value for a config key.
// Returns nil if no default exists for the key.
func GetDefault(key string) *Entry {
	for _, entry := range DefaultEntries() {
		if entry.Key == key {
			return &entry
		}
	}
	return nil
}

// ResetToDefault resets a config key to its default value.
// Returns ErrNoDefault if no default exists for the key.
func ResetToDefault(ctx context.Context, store Store, key string) error {
	def := GetDefault(key)
	if def == nil {
		return fmt.Errorf("%w for key %q", ErrNoDefault, key)
	}
	return store.Delete(ctx, key)
}
