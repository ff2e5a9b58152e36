package endpoints

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackzampolin/wikibook/internal/api"
	"github.com/jackzampolin/wikibook/internal/svcctx"
	"github.com/jackzampolin/wikibook/internal/testutil"
)

// testPages is the wiki content most endpoint tests run against.
var testPages = []testutil.WikiPage{
	{
		Title:      "Alpha",
		HTML:       `<html><body><h1>Alpha</h1><p>Alpha is the first letter.</p><h2>Usage</h2><p>It starts words.</p></body></html>`,
		Categories: []string{"Letters"},
	},
	{
		Title:      "Alphabet",
		HTML:       `<html><body><p>An alphabet is a set of letters.</p></body></html>`,
		Categories: []string{"Letters", "Writing"},
	},
	{
		Title:      "Alpine secret",
		HTML:       `<html><body><p>Not for print.</p></body></html>`,
		Categories: []string{"Hidden"},
	},
}

// newTestHandler serves every endpoint with env's services in the request
// context. Session checks mirror the server's.
func newTestHandler(t *testing.T, env *testutil.Env) *httptest.Server {
	t.Helper()

	registry := api.NewRegistry()
	registry.Register(All()...)

	mux := http.NewServeMux()
	registry.RegisterRoutes(mux, func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if !env.Services.Session.LoggedIn() {
				writeError(w, http.StatusUnauthorized, "sign in required")
				return
			}
			next(w, r)
		}
	})

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mux.ServeHTTP(w, r.WithContext(svcctx.WithServices(r.Context(), env.Services)))
	}))
	t.Cleanup(ts.Close)
	return ts
}

// doJSON sends body (when non-nil) as JSON and decodes the response into
// out (when non-nil). It returns the status code.
func doJSON(t *testing.T, method, url string, body, out any) int {
	t.Helper()

	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatal(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := testutil.HTTPClient().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			t.Fatalf("failed to decode %s %s response: %v", method, url, err)
		}
	}
	return resp.StatusCode
}
