// Package wiki is a small MediaWiki client: page and category search, page
// HTML from the REST API, category filtering and page URL helpers.
package wiki

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jackzampolin/wikibook/internal/api"
)

// Defaults for the encyclopedia the service is built around.
const (
	DefaultSiteURL         = "https://www.hamichlol.org.il"
	DefaultAPIURL          = DefaultSiteURL + "/w/api.php"
	DefaultRestURL         = DefaultSiteURL + "/w/rest.php/v1/page"
	DefaultSearchURL       = DefaultSiteURL + "/w/rest.php/v1/search/title"
	DefaultCategoryPrefix  = "קטגוריה"
	DefaultSearchLimit     = 10
	DefaultMinSearchLength = 2
	DefaultCacheTTL        = 10 * time.Minute
)

// DefaultExcludeCategories hides pages the service does not print.
var DefaultExcludeCategories = []string{
	"פורנוגרפיה",
	"אלימות",
	"גזענות",
	"תוכן לא הולם",
	"קטגוריות למחיקה",
	"דפים למחיקה מהירה",
	"ערכים שנויים במחלוקת",
}

// Config configures a Client.
type Config struct {
	APIURL    string
	RestURL   string
	SearchURL string
	SiteURL   string
	// CategoryPrefix is the localized namespace name for categories.
	CategoryPrefix  string
	SearchLimit     int
	MinSearchLength int
	CacheTTL        time.Duration
	Timeout         time.Duration
	// ExcludeCategories drops any result in a matching category.
	ExcludeCategories []string
	// RestrictToCategories, when non-empty, keeps only results in a
	// matching category.
	RestrictToCategories []string
	HTTPClient           *http.Client
	Logger               *slog.Logger
}

func (c *Config) applyDefaults() {
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	if c.RestURL == "" {
		c.RestURL = DefaultRestURL
	}
	if c.SearchURL == "" {
		c.SearchURL = DefaultSearchURL
	}
	if c.SiteURL == "" {
		c.SiteURL = strings.TrimSuffix(c.APIURL, "/w/api.php")
	}
	if c.CategoryPrefix == "" {
		c.CategoryPrefix = DefaultCategoryPrefix
	}
	if c.SearchLimit <= 0 {
		c.SearchLimit = DefaultSearchLimit
	}
	if c.MinSearchLength <= 0 {
		c.MinSearchLength = DefaultMinSearchLength
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = DefaultCacheTTL
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Client queries a MediaWiki site.
type Client struct {
	cfg    Config
	http   *api.Client
	cache  *cache.Cache
	logger *slog.Logger
}

// NewClient creates a Client. Zero Config fields take the package defaults.
func NewClient(cfg Config) *Client {
	cfg.applyDefaults()

	opts := []api.Option{api.WithTimeout(cfg.Timeout)}
	if cfg.HTTPClient != nil {
		opts = append(opts, api.WithHTTPClient(cfg.HTTPClient))
	}

	return &Client{
		cfg:    cfg,
		http:   api.NewClient(cfg.SiteURL, opts...),
		cache:  cache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		logger: cfg.Logger,
	}
}

// Config returns the effective configuration.
func (c *Client) Config() Config { return c.cfg }

// getJSON fetches u and decodes it into result, serving repeats from cache.
func (c *Client) getJSON(ctx context.Context, u string, result any) error {
	if raw, ok := c.cache.Get(u); ok {
		return json.Unmarshal(raw.(json.RawMessage), result)
	}

	var raw json.RawMessage
	if err := c.http.Get(ctx, u, &raw); err != nil {
		return err
	}
	c.cache.SetDefault(u, raw)
	return json.Unmarshal(raw, result)
}

func (c *Client) actionURL(params url.Values) string {
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("origin", "*")
	return c.cfg.APIURL + "?" + params.Encode()
}

// PageHTML returns the rendered HTML of a page from the REST API.
func (c *Client) PageHTML(ctx context.Context, title string) (string, error) {
	u := fmt.Sprintf("%s/%s/html", strings.TrimRight(c.cfg.RestURL, "/"), url.PathEscape(title))
	if cached, ok := c.cache.Get(u); ok {
		return cached.(string), nil
	}

	var buf bytes.Buffer
	if _, err := c.http.Download(ctx, u, &buf); err != nil {
		return "", fmt.Errorf("fetch page %q: %w", title, err)
	}
	html := buf.String()
	c.cache.SetDefault(u, html)
	c.logger.Debug("fetched wiki page", "title", title, "bytes", len(html))
	return html, nil
}

// Flush drops every cached response.
func (c *Client) Flush() {
	c.cache.Flush()
}
