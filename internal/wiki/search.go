package wiki

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// SearchResult is one page hit.
type SearchResult struct {
	PageID      int    `json:"pageid" yaml:"pageid"`
	Title       string `json:"title" yaml:"title"`
	Snippet     string `json:"snippet,omitempty" yaml:"snippet,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Category is a category name with its member count.
type Category struct {
	Name  string `json:"name" yaml:"name"`
	Pages int    `json:"pages" yaml:"pages"`
}

// CategoryMember is a page listed in a category.
type CategoryMember struct {
	PageID    int    `json:"pageid" yaml:"pageid"`
	Title     string `json:"title" yaml:"title"`
	Timestamp string `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

// SearchOptions narrows SearchPages.
type SearchOptions struct {
	// Category restricts the search to members of one category.
	Category string
	// Limit caps the number of results (default: Config.SearchLimit).
	Limit int
}

type queryResponse struct {
	Query struct {
		Search          []SearchResult   `json:"search"`
		CategoryMembers []CategoryMember `json:"categorymembers"`
		AllCategories   []struct {
			Name     string `json:"*"`
			Category string `json:"category"`
			Pages    int    `json:"pages"`
		} `json:"allcategories"`
		Pages map[string]struct {
			Title      string `json:"title"`
			Categories []struct {
				Title string `json:"title"`
			} `json:"categories"`
		} `json:"pages"`
	} `json:"query"`
	Continue struct {
		CMContinue string `json:"cmcontinue"`
	} `json:"continue"`
}

func (c *Client) tooShort(query string) bool {
	return len([]rune(query)) < c.cfg.MinSearchLength
}

// SearchPages runs a full-text search, or a title search within
// opts.Category, and applies the category filter. Queries shorter than the
// configured minimum return no results without a request.
func (c *Client) SearchPages(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if c.tooShort(query) {
		return nil, nil
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = c.cfg.SearchLimit
	}

	var results []SearchResult
	var resp queryResponse
	if opts.Category != "" {
		params := url.Values{}
		params.Set("list", "categorymembers")
		params.Set("cmtitle", c.categoryTitle(opts.Category))
		params.Set("cmlimit", "20")
		params.Set("cmsort", "timestamp")
		params.Set("cmdir", "desc")
		params.Set("cmprefix", query)
		if err := c.getJSON(ctx, c.actionURL(params), &resp); err != nil {
			return nil, fmt.Errorf("search category %q: %w", opts.Category, err)
		}
		lower := strings.ToLower(query)
		for _, m := range resp.Query.CategoryMembers {
			if strings.Contains(strings.ToLower(m.Title), lower) {
				results = append(results, SearchResult{
					PageID:  m.PageID,
					Title:   m.Title,
					Snippet: "page in category: " + opts.Category,
				})
			}
		}
	} else {
		params := url.Values{}
		params.Set("list", "search")
		params.Set("srsearch", query)
		// Over-fetch so filtering still leaves a full page of results.
		params.Set("srlimit", strconv.Itoa(limit+5))
		params.Set("srprop", "snippet")
		if err := c.getJSON(ctx, c.actionURL(params), &resp); err != nil {
			return nil, fmt.Errorf("search %q: %w", query, err)
		}
		results = resp.Query.Search
	}

	results = c.FilterResults(ctx, results)
	if len(results) > limit {
		results = results[:limit]
	}
	c.logger.Debug("wiki search", "query", query, "category", opts.Category, "results", len(results))
	return results, nil
}

// SearchTitles runs a prefix title search through the REST API.
func (c *Client) SearchTitles(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if c.tooShort(query) {
		return nil, nil
	}
	if limit <= 0 {
		limit = c.cfg.SearchLimit
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))

	var resp struct {
		Pages []struct {
			ID          int    `json:"id"`
			Title       string `json:"title"`
			Excerpt     string `json:"excerpt"`
			Description string `json:"description"`
		} `json:"pages"`
	}
	if err := c.getJSON(ctx, c.cfg.SearchURL+"?"+params.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("search titles %q: %w", query, err)
	}

	results := make([]SearchResult, 0, len(resp.Pages))
	for _, p := range resp.Pages {
		results = append(results, SearchResult{
			PageID:      p.ID,
			Title:       p.Title,
			Snippet:     p.Excerpt,
			Description: p.Description,
		})
	}
	return results, nil
}

// SearchCategories lists categories starting with prefix.
func (c *Client) SearchCategories(ctx context.Context, prefix string) ([]Category, error) {
	prefix = strings.TrimSpace(prefix)
	if c.tooShort(prefix) {
		return nil, nil
	}

	params := url.Values{}
	params.Set("list", "allcategories")
	params.Set("acprefix", prefix)
	params.Set("aclimit", "10")
	params.Set("acprop", "size")

	var resp queryResponse
	if err := c.getJSON(ctx, c.actionURL(params), &resp); err != nil {
		return nil, fmt.Errorf("search categories %q: %w", prefix, err)
	}

	cats := make([]Category, 0, len(resp.Query.AllCategories))
	for _, ac := range resp.Query.AllCategories {
		name := ac.Category
		if name == "" {
			name = ac.Name
		}
		cats = append(cats, Category{Name: c.stripCategoryPrefix(name), Pages: ac.Pages})
	}
	return cats, nil
}

// CategoryMembers lists every page (not subcategory) in a category,
// following continuation.
func (c *Client) CategoryMembers(ctx context.Context, category string) ([]CategoryMember, error) {
	var members []CategoryMember
	cont := ""
	for {
		params := url.Values{}
		params.Set("list", "categorymembers")
		params.Set("cmtitle", c.categoryTitle(category))
		params.Set("cmlimit", "50")
		params.Set("cmprop", "ids|title|timestamp")
		params.Set("cmtype", "page")
		if cont != "" {
			params.Set("cmcontinue", cont)
		}

		var resp queryResponse
		if err := c.getJSON(ctx, c.actionURL(params), &resp); err != nil {
			return nil, fmt.Errorf("list category %q: %w", category, err)
		}
		members = append(members, resp.Query.CategoryMembers...)

		cont = resp.Continue.CMContinue
		if cont == "" {
			return members, nil
		}
	}
}

// PageCategories returns the categories of a page without the namespace
// prefix.
func (c *Client) PageCategories(ctx context.Context, title string) ([]string, error) {
	params := url.Values{}
	params.Set("titles", title)
	params.Set("prop", "categories")
	params.Set("cllimit", "50")

	var resp queryResponse
	if err := c.getJSON(ctx, c.actionURL(params), &resp); err != nil {
		return nil, fmt.Errorf("page categories %q: %w", title, err)
	}

	var cats []string
	for _, page := range resp.Query.Pages {
		for _, cat := range page.Categories {
			cats = append(cats, c.stripCategoryPrefix(cat.Title))
		}
		break
	}
	return cats, nil
}

// FilterResults drops results excluded by the category rules. A page whose
// categories cannot be fetched is kept when only exclusions apply and
// dropped when a restrict list is set.
func (c *Client) FilterResults(ctx context.Context, results []SearchResult) []SearchResult {
	if len(c.cfg.ExcludeCategories) == 0 && len(c.cfg.RestrictToCategories) == 0 {
		return results
	}

	kept := make([]SearchResult, 0, len(results))
	for _, r := range results {
		cats, err := c.PageCategories(ctx, r.Title)
		if err != nil {
			c.logger.Warn("category lookup failed", "title", r.Title, "error", err)
		}
		if Allowed(cats, c.cfg.ExcludeCategories, c.cfg.RestrictToCategories) {
			kept = append(kept, r)
		} else {
			c.logger.Debug("page filtered by category", "title", r.Title, "categories", cats)
		}
	}
	return kept
}

// Allowed applies the category rules to a page's categories. Names match
// case-insensitively when either contains the other.
func Allowed(pageCats, exclude, restrict []string) bool {
	if matchesAny(pageCats, exclude) {
		return false
	}
	if len(restrict) > 0 && !matchesAny(pageCats, restrict) {
		return false
	}
	return true
}

func matchesAny(pageCats, rules []string) bool {
	for _, rule := range rules {
		rule = strings.ToLower(strings.TrimSpace(rule))
		if rule == "" {
			continue
		}
		for _, cat := range pageCats {
			cat = strings.ToLower(strings.TrimSpace(cat))
			if cat == "" {
				continue
			}
			if strings.Contains(cat, rule) || strings.Contains(rule, cat) {
				return true
			}
		}
	}
	return false
}

func (c *Client) categoryTitle(name string) string {
	return c.cfg.CategoryPrefix + ":" + c.stripCategoryPrefix(name)
}

func (c *Client) stripCategoryPrefix(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, c.cfg.CategoryPrefix+":")
	name = strings.TrimPrefix(name, "Category:")
	return strings.TrimSpace(name)
}
