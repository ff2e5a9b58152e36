package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClient_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if r.URL.Path != "/books" {
			t.Errorf("path = %s, want /books", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "success"})
	}))
	defer server.Close()

	client := NewClient(server.URL + "/")
	var resp map[string]string
	if err := client.Get(context.Background(), "/books", &resp); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if resp["status"] != "success" {
		t.Errorf("status = %q, want success", resp["status"])
	}
}

func TestClient_PostSendsJSONAndBearer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-123" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q", got)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["book_title"] != "Title" {
			t.Errorf("book_title = %v", body["book_title"])
		}
		json.NewEncoder(w).Encode(map[string]string{"task_id": "abc"})
	}))
	defer server.Close()

	client := NewClient(server.URL, WithTokenSource(StaticToken("tok-123")))
	var resp struct {
		TaskID string `json:"task_id"`
	}
	if err := client.Post(context.Background(), "/pdf/generate", map[string]string{"book_title": "Title"}, &resp); err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	if resp.TaskID != "abc" {
		t.Errorf("task_id = %q", resp.TaskID)
	}
}

func TestClient_NoTokenNoHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "" {
			t.Errorf("Authorization = %q, want empty", got)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(server.URL, WithTokenSource(StaticToken("")))
	if err := client.Delete(context.Background(), "/book/1", nil); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
}

func TestClient_StatusErrors(t *testing.T) {
	tests := []struct {
		name    string
		code    int
		body    string
		wantMsg string
	}{
		{"message field", 400, `{"message":"bad pages"}`, "bad pages"},
		{"error field", 500, `{"error":"boom"}`, "boom"},
		{"detail string", 404, `{"detail":"Book not found"}`, "Book not found"},
		{"detail list", 422, `{"detail":[{"loc":["body","email"],"msg":"value is not a valid email"}]}`, "email: value is not a valid email"},
		{"plain text", 502, `Bad Gateway`, "server error: 502"},
		{"empty body", 503, ``, "server error: 503"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			err := NewClient(server.URL).Get(context.Background(), "/x", nil)
			var se *StatusError
			if !errors.As(err, &se) {
				t.Fatalf("error = %v, want *StatusError", err)
			}
			if se.StatusCode != tt.code {
				t.Errorf("StatusCode = %d, want %d", se.StatusCode, tt.code)
			}
			if se.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", se.Message, tt.wantMsg)
			}
		})
	}
}

func TestClient_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Could not validate credentials"}`))
	}))
	defer server.Close()

	cleared := false
	client := NewClient(server.URL, WithUnauthorizedHandler(func() { cleared = true }))
	err := client.Get(context.Background(), "/auth/me", nil)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("error = %v, want ErrUnauthorized", err)
	}
	if !cleared {
		t.Error("unauthorized handler was not called")
	}
}

func TestClient_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	err := NewClient(url).Get(context.Background(), "/health", nil)
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("error = %v, want *TransportError", err)
	}
	if !strings.Contains(err.Error(), "cannot reach server") {
		t.Errorf("error message = %q", err.Error())
	}
}

func TestClient_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewClient(server.URL).Get(ctx, "/x", nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestClient_HeadAndDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/pdf/view/ok.pdf":
			w.Header().Set("Content-Type", "application/pdf")
			if r.Method == http.MethodGet {
				w.Write([]byte("%PDF-1.4 fake"))
			}
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ctx := context.Background()

	code, err := client.Head(ctx, "/pdf/view/ok.pdf")
	if err != nil || code != http.StatusOK {
		t.Fatalf("Head() = %d, %v", code, err)
	}
	if _, err := client.Head(ctx, "/pdf/view/missing.pdf"); err == nil {
		t.Error("Head() on missing file should fail")
	}

	var buf bytes.Buffer
	n, err := client.Download(ctx, server.URL+"/pdf/view/ok.pdf", &buf)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if n != int64(buf.Len()) || !strings.HasPrefix(buf.String(), "%PDF") {
		t.Errorf("Download() wrote %d bytes: %q", n, buf.String())
	}
}

func TestClient_ResolveURL(t *testing.T) {
	client := NewClient("https://pdf.example.org/api/")
	tests := map[string]string{
		"/pdf/view/a.pdf":           "https://pdf.example.org/api/pdf/view/a.pdf",
		"pdf/view/a.pdf":            "https://pdf.example.org/api/pdf/view/a.pdf",
		"https://cdn.example/a.pdf": "https://cdn.example/a.pdf",
	}
	for in, want := range tests {
		if got := client.ResolveURL(in); got != want {
			t.Errorf("ResolveURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClient_TokenOnlyForTrustedOrigins(t *testing.T) {
	seen := func(got *string) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*got = r.Header.Get("Authorization")
			w.Write([]byte("%PDF-1.4"))
		}))
	}
	var homeAuth, contentAuth, foreignAuth string
	home := seen(&homeAuth)
	defer home.Close()
	content := seen(&contentAuth)
	defer content.Close()
	foreign := seen(&foreignAuth)
	defer foreign.Close()

	client := NewClient(home.URL+"/api", WithTokenSource(StaticToken("secret")), WithTrustedOrigins(content.URL))
	ctx := context.Background()

	for _, u := range []string{"/file.pdf", content.URL + "/file.pdf", foreign.URL + "/file.pdf"} {
		if _, err := client.Download(ctx, u, &bytes.Buffer{}); err != nil {
			t.Fatalf("Download(%s) error = %v", u, err)
		}
	}
	if homeAuth != "Bearer secret" {
		t.Errorf("base origin Authorization = %q, want the token", homeAuth)
	}
	if contentAuth != "Bearer secret" {
		t.Errorf("trusted origin Authorization = %q, want the token", contentAuth)
	}
	if foreignAuth != "" {
		t.Errorf("foreign origin Authorization = %q, want none", foreignAuth)
	}
}

func TestOrigin(t *testing.T) {
	tests := map[string]string{
		"https://PDF.example.org/api/x": "https://pdf.example.org",
		"http://127.0.0.1:8080":         "http://127.0.0.1:8080",
		"/relative/path":                "",
		"file:///etc/passwd":            "",
	}
	for in, want := range tests {
		if got := Origin(in); got != want {
			t.Errorf("Origin(%q) = %q, want %q", in, got, want)
		}
	}
}
