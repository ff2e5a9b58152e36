// Package bookapi is the client for the remote PDF generation service:
// book submission, job status, the user's library and authentication.
package bookapi

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/jackzampolin/wikibook/internal/api"
)

// DefaultBaseURL is the production PDF service.
const DefaultBaseURL = "https://pdf.test.hamichlol.org.il/api"

//go:embed schema/status.json
var statusSchemaJSON []byte

// Config configures a Client.
type Config struct {
	// BaseURL of the PDF service API (default: DefaultBaseURL)
	BaseURL string
	// ContentBaseURL serves relative download and view URLs
	// (default: BaseURL without its trailing /api segment)
	ContentBaseURL string
	// Timeout per request (default: api.DefaultTimeout)
	Timeout time.Duration
	// Tokens supplies the bearer token. Nil sends unauthenticated requests.
	Tokens api.TokenSource
	// OnUnauthorized runs whenever the service answers 401.
	OnUnauthorized func()
	HTTPClient     *http.Client
	Logger         *slog.Logger
}

// Client talks to the PDF service.
type Client struct {
	cfg          Config
	http         *api.Client
	statusSchema *jsonschema.Schema
	logger       *slog.Logger
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	schema, err := compileStatusSchema()
	if err != nil {
		return nil, err
	}

	return &Client{
		cfg:          cfg,
		http:         api.NewClient(cfg.BaseURL, clientOptions(cfg, cfg.Tokens)...),
		statusSchema: schema,
		logger:       cfg.Logger,
	}, nil
}

func clientOptions(cfg Config, tokens api.TokenSource) []api.Option {
	opts := []api.Option{
		api.WithTimeout(cfg.Timeout),
		api.WithTokenSource(tokens),
		api.WithUnauthorizedHandler(cfg.OnUnauthorized),
		api.WithTrustedOrigins(contentBaseURL(cfg)),
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, api.WithHTTPClient(cfg.HTTPClient))
	}
	return opts
}

// withToken returns an api client that authenticates with an explicit token
// instead of the configured source.
func (c *Client) withToken(token string) *api.Client {
	return api.NewClient(c.cfg.BaseURL, clientOptions(c.cfg, api.StaticToken(token))...)
}

// BaseURL returns the service API base URL.
func (c *Client) BaseURL() string { return c.cfg.BaseURL }

// ContentBaseURL returns the service origin that relative download and view
// URLs are served from (the API base without its trailing /api segment).
func (c *Client) ContentBaseURL() string {
	return contentBaseURL(c.cfg)
}

func contentBaseURL(cfg Config) string {
	if cfg.ContentBaseURL != "" {
		return strings.TrimRight(cfg.ContentBaseURL, "/")
	}
	return strings.TrimSuffix(strings.TrimRight(cfg.BaseURL, "/"), "/api")
}

// ResolveURL makes a relative download or view URL absolute.
func (c *Client) ResolveURL(u string) string {
	if u == "" {
		return ""
	}
	return api.NewClient(c.ContentBaseURL()).ResolveURL(u)
}

// Ping checks that the service answers. Any status below 500 counts as
// reachable. The probe is sent without credentials.
func (c *Client) Ping(ctx context.Context) error {
	probe := api.NewClient(c.cfg.BaseURL, clientOptions(Config{Timeout: c.cfg.Timeout, HTTPClient: c.cfg.HTTPClient}, nil)...)
	code, err := probe.Head(ctx, "/")
	if err != nil && (code == 0 || code >= 500) {
		return err
	}
	return nil
}

func compileStatusSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("status.json", bytes.NewReader(statusSchemaJSON)); err != nil {
		return nil, fmt.Errorf("failed to load status schema: %w", err)
	}
	schema, err := compiler.Compile("status.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile status schema: %w", err)
	}
	return schema, nil
}
