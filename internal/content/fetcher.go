// Package content fetches source pages and reduces them to sanitized
// article HTML ready for translation.
package content

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"

	"github.com/jackzampolin/wikibook/internal/types"
)

// MaxBodySize caps how much of an external page is read.
const MaxBodySize = 10 << 20

// ErrEmptyContent is returned when nothing readable remains after cleanup.
var ErrEmptyContent = errors.New("page has no readable content")

// Page is a fetched and cleaned source page.
type Page struct {
	Source types.SourcePage `json:"source" yaml:"source"`
	Title  string           `json:"title" yaml:"title"`
	// URL is the public address of the page.
	URL string `json:"url" yaml:"url"`
	// HTML is sanitized article markup.
	HTML string `json:"html" yaml:"html"`
	Text string `json:"text" yaml:"text"`
}

// WikiSource resolves and fetches wiki pages.
type WikiSource interface {
	PageName(ref string) (string, bool)
	IsWikiURL(ref string) bool
	PageHTML(ctx context.Context, title string) (string, error)
	PageURL(title string) string
}

// Fetcher fetches wiki pages through the wiki client and any other URL
// directly.
type Fetcher struct {
	wiki       WikiSource
	httpClient *http.Client
	ugc        *bluemonday.Policy
	strip      *bluemonday.Policy
	logger     *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets the client used for non-wiki URLs.
func WithHTTPClient(hc *http.Client) Option {
	return func(f *Fetcher) {
		if hc != nil {
			f.httpClient = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewFetcher creates a Fetcher.
func NewFetcher(wiki WikiSource, opts ...Option) *Fetcher {
	f := &Fetcher{
		wiki:       wiki,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		ugc:        bluemonday.UGCPolicy(),
		strip:      bluemonday.StripTagsPolicy(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves one source page. Bare titles and wiki URLs go through the
// wiki REST API; other URLs are downloaded and reduced to their main article.
func (f *Fetcher) Fetch(ctx context.Context, src types.SourcePage) (*Page, error) {
	ref := strings.TrimSpace(src.URL)
	if ref == "" {
		return nil, fmt.Errorf("empty source url")
	}

	if f.isWikiRef(ref) {
		return f.fetchWiki(ctx, src, ref)
	}
	return f.fetchExternal(ctx, src, ref)
}

// FetchAll fetches pages in order, stopping at the first error.
func (f *Fetcher) FetchAll(ctx context.Context, srcs []types.SourcePage) ([]*Page, error) {
	pages := make([]*Page, 0, len(srcs))
	for i, src := range srcs {
		p, err := f.Fetch(ctx, src)
		if err != nil {
			return nil, fmt.Errorf("page %d (%s): %w", i+1, src.URL, err)
		}
		pages = append(pages, p)
	}
	return pages, nil
}

func (f *Fetcher) isWikiRef(ref string) bool {
	u, err := url.Parse(ref)
	if err != nil || u.Host == "" {
		return true
	}
	return f.wiki != nil && f.wiki.IsWikiURL(ref)
}

func (f *Fetcher) fetchWiki(ctx context.Context, src types.SourcePage, ref string) (*Page, error) {
	if f.wiki == nil {
		return nil, fmt.Errorf("no wiki configured for %q", ref)
	}
	name, ok := f.wiki.PageName(ref)
	if !ok {
		return nil, fmt.Errorf("cannot resolve wiki page from %q", ref)
	}

	raw, err := f.wiki.PageHTML(ctx, name)
	if err != nil {
		return nil, err
	}
	article, err := CleanWikiHTML(raw)
	if err != nil {
		return nil, err
	}

	return f.page(src, orDefault(src.Title, name), f.wiki.PageURL(name), article)
}

func (f *Fetcher) fetchExternal(ctx context.Context, src types.SourcePage, ref string) (*Page, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", ref, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", ref, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetch %s: status %d", ref, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ref, err)
	}

	if isMarkdown(u, resp.Header.Get("Content-Type")) {
		html, title := RenderMarkdown(body)
		return f.page(src, orDefault(src.Title, orDefault(title, path.Base(u.Path))), ref, html)
	}

	article, err := readability.FromReader(bytes.NewReader(body), u)
	if err != nil || strings.TrimSpace(article.Content) == "" {
		f.logger.Warn("readability extraction failed, using page body", "url", ref, "error", err)
		fallback, ferr := MainContent(string(body))
		if ferr != nil {
			return nil, ferr
		}
		return f.page(src, orDefault(src.Title, u.Host), ref, fallback)
	}

	return f.page(src, orDefault(src.Title, orDefault(article.Title, u.Host)), ref, article.Content)
}

func (f *Fetcher) page(src types.SourcePage, title, pageURL, rawHTML string) (*Page, error) {
	clean := strings.TrimSpace(f.ugc.Sanitize(rawHTML))
	text := strings.TrimSpace(f.strip.Sanitize(clean))
	if clean == "" || text == "" {
		return nil, fmt.Errorf("%s: %w", pageURL, ErrEmptyContent)
	}

	f.logger.Debug("page fetched", "title", title, "url", pageURL, "bytes", len(clean))
	return &Page{
		Source: src,
		Title:  strings.TrimSpace(title),
		URL:    pageURL,
		HTML:   clean,
		Text:   text,
	}, nil
}

func isMarkdown(u *url.URL, contentType string) bool {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil && mt == "text/markdown" {
		return true
	}
	ext := strings.ToLower(path.Ext(u.Path))
	return ext == ".md" || ext == ".markdown"
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
