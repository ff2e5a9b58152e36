package wiki

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"
)

type fakeWiki struct {
	*httptest.Server
	requests atomic.Int32
}

func newFakeWiki(t *testing.T) *fakeWiki {
	t.Helper()
	f := &fakeWiki{}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /w/api.php", func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		q := r.URL.Query()
		if q.Get("action") != "query" || q.Get("format") != "json" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")

		switch {
		case q.Get("list") == "search":
			w.Write([]byte(`{"query":{"search":[
				{"pageid":1,"title":"Jerusalem","snippet":"city"},
				{"pageid":2,"title":"Jerusalem riots","snippet":"violence"},
				{"pageid":3,"title":"Jerusalem stone","snippet":"stone"}]}}`))
		case q.Get("list") == "allcategories":
			w.Write([]byte(`{"query":{"allcategories":[{"*":"History","pages":12},{"category":"קטגוריה:Historians","pages":3}]}}`))
		case q.Get("list") == "categorymembers" && q.Get("cmtype") == "page":
			if q.Get("cmcontinue") == "" {
				w.Write([]byte(`{"continue":{"cmcontinue":"page|2"},"query":{"categorymembers":[{"pageid":1,"title":"A"}]}}`))
				return
			}
			w.Write([]byte(`{"query":{"categorymembers":[{"pageid":2,"title":"B"}]}}`))
		case q.Get("list") == "categorymembers":
			if q.Get("cmtitle") != "קטגוריה:Cities" {
				t.Errorf("cmtitle = %q", q.Get("cmtitle"))
			}
			w.Write([]byte(`{"query":{"categorymembers":[{"pageid":1,"title":"Jerusalem"},{"pageid":4,"title":"Haifa"}]}}`))
		case q.Get("prop") == "categories":
			cats := map[string]string{
				"Jerusalem":       `[{"title":"קטגוריה:Cities"}]`,
				"Jerusalem riots": `[{"title":"קטגוריה:אלימות בירושלים"}]`,
				"Jerusalem stone": `[{"title":"קטגוריה:Building materials"}]`,
			}[q.Get("titles")]
			if cats == "" {
				cats = "[]"
			}
			w.Write([]byte(`{"query":{"pages":{"1":{"title":"x","categories":` + cats + `}}}}`))
		default:
			t.Errorf("unhandled query: %s", r.URL.RawQuery)
			w.Write([]byte(`{}`))
		}
	})

	mux.HandleFunc("GET /w/rest.php/v1/search/title", func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		if r.URL.Query().Get("limit") != "5" {
			t.Errorf("limit = %q", r.URL.Query().Get("limit"))
		}
		w.Write([]byte(`{"pages":[{"id":7,"title":"Jericho","excerpt":"Jer","description":"city"}]}`))
	})

	mux.HandleFunc("GET /w/rest.php/v1/page/{title}/html", func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><div class="mw-parser-output"><p>` + r.PathValue("title") + `</p></div></body></html>`))
	})

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeWiki) client(cfg Config) *Client {
	cfg.APIURL = f.URL + "/w/api.php"
	cfg.RestURL = f.URL + "/w/rest.php/v1/page"
	cfg.SearchURL = f.URL + "/w/rest.php/v1/search/title"
	return NewClient(cfg)
}

func titles(results []SearchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Title
	}
	return out
}

func TestSearchPages(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		query    string
		opts     SearchOptions
		want     []string
		requests int32
	}{
		{
			name:     "too short",
			query:    " J ",
			requests: 0,
		},
		{
			name:     "full text",
			query:    "Jerusalem",
			want:     []string{"Jerusalem", "Jerusalem riots", "Jerusalem stone"},
			requests: 1,
		},
		{
			name:     "limit",
			query:    "Jerusalem",
			opts:     SearchOptions{Limit: 2},
			want:     []string{"Jerusalem", "Jerusalem riots"},
			requests: 1,
		},
		{
			name:     "excluded category",
			cfg:      Config{ExcludeCategories: DefaultExcludeCategories},
			query:    "Jerusalem",
			want:     []string{"Jerusalem", "Jerusalem stone"},
			requests: 4,
		},
		{
			name:     "restricted categories",
			cfg:      Config{RestrictToCategories: []string{"cities"}},
			query:    "Jerusalem",
			want:     []string{"Jerusalem"},
			requests: 4,
		},
		{
			name:     "within category",
			query:    "jeru",
			opts:     SearchOptions{Category: "Cities"},
			want:     []string{"Jerusalem"},
			requests: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeWiki(t)
			got, err := f.client(tt.cfg).SearchPages(context.Background(), tt.query, tt.opts)
			if err != nil {
				t.Fatalf("SearchPages() error = %v", err)
			}
			if len(got) != len(tt.want) || (len(got) > 0 && !reflect.DeepEqual(titles(got), tt.want)) {
				t.Errorf("SearchPages() = %v, want %v", titles(got), tt.want)
			}
			if n := f.requests.Load(); n != tt.requests {
				t.Errorf("requests = %d, want %d", n, tt.requests)
			}
		})
	}
}

func TestSearchPages_Cached(t *testing.T) {
	f := newFakeWiki(t)
	c := f.client(Config{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := c.SearchPages(ctx, "Jerusalem", SearchOptions{}); err != nil {
			t.Fatal(err)
		}
	}
	if n := f.requests.Load(); n != 1 {
		t.Errorf("requests = %d, want 1", n)
	}

	c.Flush()
	c.SearchPages(ctx, "Jerusalem", SearchOptions{})
	if n := f.requests.Load(); n != 2 {
		t.Errorf("requests after flush = %d, want 2", n)
	}
}

func TestSearchTitles(t *testing.T) {
	f := newFakeWiki(t)
	got, err := f.client(Config{}).SearchTitles(context.Background(), "Jer", 5)
	if err != nil {
		t.Fatalf("SearchTitles() error = %v", err)
	}
	want := []SearchResult{{PageID: 7, Title: "Jericho", Snippet: "Jer", Description: "city"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SearchTitles() = %+v, want %+v", got, want)
	}
}

func TestSearchCategories(t *testing.T) {
	f := newFakeWiki(t)
	got, err := f.client(Config{}).SearchCategories(context.Background(), "Hist")
	if err != nil {
		t.Fatalf("SearchCategories() error = %v", err)
	}
	want := []Category{{Name: "History", Pages: 12}, {Name: "Historians", Pages: 3}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SearchCategories() = %+v, want %+v", got, want)
	}
}

func TestCategoryMembers_FollowsContinuation(t *testing.T) {
	f := newFakeWiki(t)
	got, err := f.client(Config{}).CategoryMembers(context.Background(), "Letters")
	if err != nil {
		t.Fatalf("CategoryMembers() error = %v", err)
	}
	if len(got) != 2 || got[0].Title != "A" || got[1].Title != "B" {
		t.Errorf("CategoryMembers() = %+v", got)
	}
}

func TestPageHTML(t *testing.T) {
	f := newFakeWiki(t)
	c := f.client(Config{})

	html, err := c.PageHTML(context.Background(), "Tel Aviv")
	if err != nil {
		t.Fatalf("PageHTML() error = %v", err)
	}
	want := `<html><body><div class="mw-parser-output"><p>Tel Aviv</p></div></body></html>`
	if html != want {
		t.Errorf("PageHTML() = %q", html)
	}
	c.PageHTML(context.Background(), "Tel Aviv")
	if n := f.requests.Load(); n != 1 {
		t.Errorf("requests = %d, want 1", n)
	}
}

func TestPageHTML_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c := NewClient(Config{RestURL: srv.URL})
	if _, err := c.PageHTML(context.Background(), "Missing"); err == nil {
		t.Error("expected error")
	}
}

func TestAllowed(t *testing.T) {
	tests := []struct {
		name     string
		cats     []string
		exclude  []string
		restrict []string
		want     bool
	}{
		{"no rules", []string{"x"}, nil, nil, true},
		{"excluded substring", []string{"Violence in sport"}, []string{"violence"}, nil, false},
		{"excluded superstring", []string{"War"}, []string{"war crimes"}, nil, false},
		{"restrict match", []string{"History of Israel"}, nil, []string{"history"}, true},
		{"restrict miss", []string{"Sport"}, nil, []string{"history"}, false},
		{"no categories restricted", nil, nil, []string{"history"}, false},
		{"no categories excluded only", nil, []string{"war"}, nil, true},
		{"blank category ignored", []string{""}, []string{"war"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Allowed(tt.cats, tt.exclude, tt.restrict); got != tt.want {
				t.Errorf("Allowed() = %v, want %v", got, tt.want)
			}
		})
	}
}
