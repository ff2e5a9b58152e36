package testutil

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// WikiPage is a page served by Wiki.
type WikiPage struct {
	Title      string
	HTML       string
	Categories []string
}

// Wiki is an in-process MediaWiki exposing the action API at /w/api.php
// and the REST API under /w/rest.php/v1. Categories use the "Category"
// namespace.
type Wiki struct {
	Server *httptest.Server

	mu    sync.Mutex
	pages []WikiPage
	hits  map[string]int
}

// NewWiki starts a fake wiki serving pages. It is closed with the test.
func NewWiki(t *testing.T, pages ...WikiPage) *Wiki {
	t.Helper()

	w := &Wiki{pages: pages, hits: make(map[string]int)}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /w/api.php", w.handleAction)
	mux.HandleFunc("GET /w/rest.php/v1/search/title", w.handleTitleSearch)
	mux.HandleFunc("GET /w/rest.php/v1/page/{title}/html", w.handlePageHTML)
	w.Server = httptest.NewServer(mux)
	t.Cleanup(w.Server.Close)
	return w
}

// APIURL returns the action API endpoint.
func (w *Wiki) APIURL() string { return w.Server.URL + "/w/api.php" }

// RestURL returns the REST page endpoint.
func (w *Wiki) RestURL() string { return w.Server.URL + "/w/rest.php/v1/page" }

// SearchURL returns the REST title search endpoint.
func (w *Wiki) SearchURL() string { return w.Server.URL + "/w/rest.php/v1/search/title" }

// Hits returns how many requests reached path.
func (w *Wiki) Hits(path string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.hits[path]
}

func (w *Wiki) snapshot(r *http.Request) []WikiPage {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.hits[r.URL.Path]++
	return append([]WikiPage(nil), w.pages...)
}

func (w *Wiki) handleAction(rw http.ResponseWriter, r *http.Request) {
	pages := w.snapshot(r)
	q := r.URL.Query()
	if q.Get("action") != "query" || q.Get("format") != "json" {
		writeJSON(rw, http.StatusBadRequest, map[string]any{"error": map[string]string{"code": "badquery"}})
		return
	}

	query := map[string]any{}
	switch {
	case q.Get("list") == "search":
		var hits []map[string]any
		for i, p := range pages {
			if containsFold(p.Title, q.Get("srsearch")) || containsFold(p.HTML, q.Get("srsearch")) {
				hits = append(hits, map[string]any{"pageid": i + 1, "title": p.Title, "snippet": p.Title})
			}
		}
		query["search"] = orEmpty(hits)

	case q.Get("list") == "categorymembers":
		cat := strings.TrimPrefix(q.Get("cmtitle"), "Category:")
		var members []map[string]any
		for i, p := range pages {
			if hasCategory(p, cat) && strings.HasPrefix(p.Title, q.Get("cmprefix")) {
				members = append(members, map[string]any{"pageid": i + 1, "title": p.Title})
			}
		}
		query["categorymembers"] = orEmpty(members)

	case q.Get("list") == "allcategories":
		counts := map[string]int{}
		for _, p := range pages {
			for _, c := range p.Categories {
				if strings.HasPrefix(c, q.Get("acprefix")) {
					counts[c]++
				}
			}
		}
		names := make([]string, 0, len(counts))
		for name := range counts {
			names = append(names, name)
		}
		sort.Strings(names)
		cats := make([]map[string]any, 0, len(names))
		for _, name := range names {
			cats = append(cats, map[string]any{"*": name, "pages": counts[name]})
		}
		query["allcategories"] = cats

	case q.Get("prop") == "categories":
		title := q.Get("titles")
		result := map[string]any{"-1": map[string]any{"title": title, "missing": ""}}
		for i, p := range pages {
			if p.Title != title {
				continue
			}
			cats := make([]map[string]string, 0, len(p.Categories))
			for _, c := range p.Categories {
				cats = append(cats, map[string]string{"title": "Category:" + c})
			}
			result = map[string]any{strconv.Itoa(i + 1): map[string]any{"title": p.Title, "categories": cats}}
		}
		query["pages"] = result
	}

	writeJSON(rw, http.StatusOK, map[string]any{"batchcomplete": "", "query": query})
}

func (w *Wiki) handleTitleSearch(rw http.ResponseWriter, r *http.Request) {
	pages := w.snapshot(r)
	q := r.URL.Query().Get("q")
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 10
	}

	var hits []map[string]any
	for i, p := range pages {
		if len(hits) == limit {
			break
		}
		if strings.HasPrefix(strings.ToLower(p.Title), strings.ToLower(q)) {
			hits = append(hits, map[string]any{"id": i + 1, "title": p.Title, "excerpt": p.Title})
		}
	}
	writeJSON(rw, http.StatusOK, map[string]any{"pages": orEmpty(hits)})
}

func (w *Wiki) handlePageHTML(rw http.ResponseWriter, r *http.Request) {
	pages := w.snapshot(r)
	title := r.PathValue("title")
	for _, p := range pages {
		if p.Title == title {
			rw.Header().Set("Content-Type", "text/html; charset=utf-8")
			rw.Write([]byte(p.HTML))
			return
		}
	}
	writeJSON(rw, http.StatusNotFound, map[string]string{"messageTranslations": "page not found"})
}

func hasCategory(p WikiPage, cat string) bool {
	for _, c := range p.Categories {
		if c == cat {
			return true
		}
	}
	return false
}

func containsFold(s, sub string) bool {
	return sub != "" && strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func orEmpty(v []map[string]any) []map[string]any {
	if v == nil {
		return []map[string]any{}
	}
	return v
}
