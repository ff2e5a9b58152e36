package wiki

import (
	"net/url"
	"strings"
)

// PageURL returns the public address of a page.
func (c *Client) PageURL(title string) string {
	return strings.TrimRight(c.cfg.SiteURL, "/") + "/" + url.PathEscape(title)
}

// IsWikiURL reports whether s points at the configured wiki site.
func (c *Client) IsWikiURL(s string) bool {
	host := c.siteHost()
	if host == "" {
		return false
	}
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || u.Host == "" {
		return false
	}
	h := strings.ToLower(u.Hostname())
	return h == host || strings.HasSuffix(h, "."+host)
}

// PageName resolves a source reference to a wiki page title. Bare titles are
// returned unescaped; wiki URLs yield their first path segment. ok is false
// for URLs of other sites and for wiki URLs without a page segment.
func (c *Client) PageName(ref string) (title string, ok bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}

	u, err := url.Parse(ref)
	if err != nil || u.Host == "" {
		if decoded, err := url.PathUnescape(ref); err == nil {
			return decoded, true
		}
		return ref, true
	}
	if !c.IsWikiURL(ref) {
		return "", false
	}

	segment := strings.TrimPrefix(u.EscapedPath(), "/")
	if i := strings.Index(segment, "/"); i >= 0 {
		segment = segment[:i]
	}
	if segment == "" {
		return "", false
	}
	decoded, err := url.PathUnescape(segment)
	if err != nil {
		return segment, true
	}
	return decoded, true
}

func (c *Client) siteHost() string {
	u, err := url.Parse(c.cfg.SiteURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
