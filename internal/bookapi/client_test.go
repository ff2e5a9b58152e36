package bookapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/jackzampolin/wikibook/internal/api"
	"github.com/jackzampolin/wikibook/internal/types"
)

func newTestClient(t *testing.T, handler http.Handler, token string) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(Config{BaseURL: server.URL + "/api", Tokens: api.StaticToken(token)})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestClient_Generate(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/pdf/generate", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		var req GenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		want := GenerateRequest{
			WikiPages: []string{"Page_A", "https://www.hamichlol.org.il/Page_B"},
			BookTitle: "My Book",
			BaseURL:   "https://www.hamichlol.org.il/w/rest.php/v1/page",
		}
		if !reflect.DeepEqual(req, want) {
			t.Errorf("request = %+v, want %+v", req, want)
		}
		writeJSON(w, http.StatusOK, map[string]string{"task_id": "11111111-2222-3333-4444-555555555555", "status": "processing"})
	})

	client := newTestClient(t, mux, "tok")
	resp, err := client.Generate(context.Background(), GenerateRequest{
		WikiPages: []string{"Page_A", "https://www.hamichlol.org.il/Page_B"},
		BookTitle: "My Book",
		BaseURL:   "https://www.hamichlol.org.il/w/rest.php/v1/page",
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if resp.TaskID != "11111111-2222-3333-4444-555555555555" {
		t.Errorf("TaskID = %q", resp.TaskID)
	}
}

func TestClient_JobStatus(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    *types.Job
		wantErr bool
	}{
		{
			name: "completed with urls",
			body: `{"status":"completed","task_id":"t1","message":"My Book","download_url":"/pdf/download/t1.pdf","view_url":"/pdf/view/t1.pdf"}`,
			want: &types.Job{TaskID: "t1", Status: types.StatusCompleted, Title: "My Book", Message: "My Book", DownloadURL: "/pdf/download/t1.pdf", ViewURL: "/pdf/view/t1.pdf"},
		},
		{
			name: "processing with nulls",
			body: `{"status":"processing","task_id":null,"download_url":null,"view_url":null,"message":"page 2 of 5"}`,
			want: &types.Job{TaskID: "t1", Status: types.StatusProcessing, Message: "page 2 of 5"},
		},
		{
			name: "unknown status",
			body: `{"status":"queued"}`,
			want: &types.Job{TaskID: "t1", Status: types.StatusUnknown, RawStatus: "queued"},
		},
		{
			name:    "missing status",
			body:    `{"task_id":"t1"}`,
			wantErr: true,
		},
		{
			name:    "status not a string",
			body:    `{"status":3}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("GET /api/pdf/status/{id}", func(w http.ResponseWriter, r *http.Request) {
				if r.PathValue("id") != "t1" {
					t.Errorf("id = %q", r.PathValue("id"))
				}
				w.Write([]byte(tt.body))
			})

			got, err := newTestClient(t, mux, "tok").JobStatus(context.Background(), "t1")
			if (err != nil) != tt.wantErr {
				t.Fatalf("JobStatus() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("JobStatus() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestClient_Login(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantToken string
		wantErr   error
		wantMsg   string
	}{
		{"access_token", 200, `{"access_token":"a1","user":{"email":"x@y.z"}}`, "a1", nil, ""},
		{"token", 200, `{"success":true,"token":"t1","user":{"email":"x@y.z"}}`, "t1", nil, ""},
		{"success false", 200, `{"success":false,"message":"account locked"}`, "", nil, "account locked"},
		{"no token", 200, `{"user":{"email":"x@y.z"}}`, "", ErrNoToken, ""},
		{"bad credentials", 401, `{"detail":"Incorrect email or password"}`, "", api.ErrUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
				var body map[string]string
				json.NewDecoder(r.Body).Decode(&body)
				if body["email"] != "x@y.z" || body["password"] != "pw" {
					t.Errorf("body = %v", body)
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			resp, err := newTestClient(t, mux, "").Login(context.Background(), "x@y.z", "pw")
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Login() error = %v, want %v", err, tt.wantErr)
				}
			case tt.wantMsg != "":
				if err == nil || err.Error() != tt.wantMsg {
					t.Fatalf("Login() error = %v, want %q", err, tt.wantMsg)
				}
			default:
				if err != nil {
					t.Fatalf("Login() error = %v", err)
				}
				if resp.BearerToken() != tt.wantToken {
					t.Errorf("token = %q, want %q", resp.BearerToken(), tt.wantToken)
				}
				if resp.User == nil || resp.User.Email != "x@y.z" {
					t.Errorf("user = %+v", resp.User)
				}
			}
		})
	}
}

func TestClient_Register(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["confirm_password"] != "pw2" {
			t.Errorf("confirm_password = %q", body["confirm_password"])
		}
		writeJSON(w, http.StatusOK, map[string]any{"access_token": "new", "user": map[string]string{"email": body["email"]}})
	})

	resp, err := newTestClient(t, mux, "").Register(context.Background(), "a@b.c", "pw", "pw2")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if resp.BearerToken() != "new" {
		t.Errorf("token = %q", resp.BearerToken())
	}
}

func TestClient_Validate(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/auth/validate", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer good" {
			writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
			return
		}
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "invalid token"})
	})
	client := newTestClient(t, mux, "session-token-ignored")

	if ok, err := client.Validate(context.Background(), "good"); !ok || err != nil {
		t.Errorf("Validate(good) = %v, %v", ok, err)
	}
	if ok, err := client.Validate(context.Background(), "bad"); ok || !errors.Is(err, api.ErrUnauthorized) {
		t.Errorf("Validate(bad) = %v, %v", ok, err)
	}
	if ok, _ := client.Validate(context.Background(), ""); ok {
		t.Error("Validate(empty) should be false")
	}
}

func TestClient_Me(t *testing.T) {
	for name, body := range map[string]string{
		"flat":    `{"id":"u1","email":"x@y.z"}`,
		"wrapped": `{"user":{"id":"u1","email":"x@y.z"}}`,
	} {
		t.Run(name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("GET /api/auth/me", func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			})
			user, err := newTestClient(t, mux, "tok").Me(context.Background())
			if err != nil {
				t.Fatalf("Me() error = %v", err)
			}
			if user.ID != "u1" || user.Email != "x@y.z" {
				t.Errorf("user = %+v", user)
			}
		})
	}
}

func TestClient_AccountCalls(t *testing.T) {
	type call struct {
		route string
		auth  string
		body  map[string]string
	}
	tests := []struct {
		name string
		do   func(*Client) error
		want call
	}{
		{
			name: "update profile",
			do: func(c *Client) error {
				_, err := c.UpdateProfile(context.Background(), ProfileUpdate{Name: "Ada"})
				return err
			},
			want: call{"PUT /api/auth/profile", "Bearer tok", map[string]string{"name": "Ada"}},
		},
		{
			name: "change password",
			do: func(c *Client) error {
				return c.ChangePassword(context.Background(), "old", "new", "new")
			},
			want: call{"PUT /api/auth/change-password", "Bearer tok", map[string]string{
				"current_password": "old", "new_password": "new", "confirm_password": "new",
			}},
		},
		{
			name: "delete account",
			do: func(c *Client) error {
				return c.DeleteAccount(context.Background(), "pw")
			},
			want: call{"DELETE /api/auth/delete-account", "Bearer tok", map[string]string{"password": "pw"}},
		},
		{
			name: "forgot password",
			do: func(c *Client) error {
				return c.ForgotPassword(context.Background(), "x@y.z")
			},
			want: call{"POST /api/auth/forgot-password", "Bearer tok", map[string]string{"email": "x@y.z"}},
		},
		{
			name: "reset password",
			do: func(c *Client) error {
				return c.ResetPassword(context.Background(), "rt", "new", "new")
			},
			want: call{"POST /api/auth/reset-password", "Bearer tok", map[string]string{
				"token": "rt", "new_password": "new", "confirm_password": "new",
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got call
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got.route = r.Method + " " + r.URL.Path
				got.auth = r.Header.Get("Authorization")
				json.NewDecoder(r.Body).Decode(&got.body)
				writeJSON(w, http.StatusOK, map[string]any{"user": map[string]string{"name": "Ada"}})
			})
			if err := tt.do(newTestClient(t, handler, "tok")); err != nil {
				t.Fatalf("error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("request = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestClient_AccountCallFailure(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Password is incorrect"})
	})
	err := newTestClient(t, handler, "tok").DeleteAccount(context.Background(), "nope")
	var statusErr *api.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("error = %v, want a 400 StatusError", err)
	}
}

func TestClient_Books(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/books", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "success",
			"books": []map[string]string{
				{"task_id": "t1", "title": "One", "status": "completed"},
				{"title": "Two", "view_url": "/pdf/view/aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee.pdf"},
			},
		})
	})
	mux.HandleFunc("GET /api/book/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "missing" {
			writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "no such book"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "task_id": r.PathValue("id"), "title": "One"})
	})
	mux.HandleFunc("DELETE /api/book/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	})
	client := newTestClient(t, mux, "tok")
	ctx := context.Background()

	books, err := client.Books(ctx)
	if err != nil {
		t.Fatalf("Books() error = %v", err)
	}
	if len(books) != 2 {
		t.Fatalf("len(books) = %d", len(books))
	}
	if got := BookTaskID(books[0]); got != "t1" {
		t.Errorf("BookTaskID(0) = %q", got)
	}
	if got := BookTaskID(books[1]); got != "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee" {
		t.Errorf("BookTaskID(1) = %q", got)
	}

	book, err := client.Book(ctx, "t1")
	if err != nil || book.TaskID != "t1" {
		t.Errorf("Book() = %+v, %v", book, err)
	}
	if _, err := client.Book(ctx, "missing"); !errors.Is(err, ErrBookNotFound) {
		t.Errorf("Book(missing) error = %v, want ErrBookNotFound", err)
	}
	if err := client.DeleteBook(ctx, "t1"); err != nil {
		t.Errorf("DeleteBook() error = %v", err)
	}
}

func TestClient_BooksUnexpectedStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/books", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "error", "message": "db down"})
	})
	if _, err := newTestClient(t, mux, "tok").Books(context.Background()); err == nil {
		t.Error("expected error")
	}
}

func TestClient_PDFMetadata(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/pdf/metadata/{path...}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("path") == "good.pdf" {
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "metadata": map[string]any{"title": "Good", "pageCount": 12}})
			return
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "not found"})
	})
	client := newTestClient(t, mux, "tok")

	meta := client.PDFMetadata(context.Background(), "good.pdf")
	if meta.Title != "Good" || meta.PageCount != 12 {
		t.Errorf("metadata = %+v", meta)
	}

	fallback := client.PDFMetadata(context.Background(), "books/My Book.pdf")
	if fallback.Title != "My Book" || fallback.Author != "unknown" {
		t.Errorf("fallback = %+v", fallback)
	}
}

func TestClient_CheckPDFAndDownload(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/pdf/view/ok.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		if r.Method == http.MethodGet {
			w.Write([]byte("%PDF-1.4\n"))
		}
	})
	mux.HandleFunc("/pdf/download/ok.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("%PDF-1.4\n"))
	})
	client := newTestClient(t, mux, "tok")
	ctx := context.Background()

	if !client.CheckPDF(ctx, "ok.pdf") {
		t.Error("CheckPDF(ok.pdf) = false")
	}
	if client.CheckPDF(ctx, "missing.pdf") {
		t.Error("CheckPDF(missing.pdf) = true")
	}

	dir := t.TempDir()
	path, err := client.DownloadFile(ctx, "/pdf/download/ok.pdf", dir, "")
	if err != nil {
		t.Fatalf("DownloadFile() error = %v", err)
	}
	if path != filepath.Join(dir, "ok.pdf") {
		t.Errorf("path = %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "%PDF-1.4\n" {
		t.Errorf("file content = %q, %v", data, err)
	}
}

func TestClient_DownloadFileStaysInDir(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/pdf/download/ok.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("%PDF-1.4\n"))
	})
	mux.HandleFunc("/pdf/download/page.html", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not a book</html>"))
	})
	client := newTestClient(t, mux, "tok")
	ctx := context.Background()

	root := t.TempDir()
	dir := filepath.Join(root, "home", "books")

	t.Run("parent segments are dropped", func(t *testing.T) {
		path, err := client.DownloadFile(ctx, "/pdf/download/ok.pdf", dir, "../../escaped.pdf")
		if err != nil {
			t.Fatalf("DownloadFile() error = %v", err)
		}
		if path != filepath.Join(dir, "escaped.pdf") {
			t.Errorf("path = %q, want it inside %s", path, dir)
		}
		if _, err := os.Stat(filepath.Join(root, "escaped.pdf")); !os.IsNotExist(err) {
			t.Errorf("file written outside the download directory: %v", err)
		}
	})

	for _, name := range []string{"..", ".", "/", ".hidden.pdf"} {
		t.Run("rejects "+name, func(t *testing.T) {
			_, err := client.DownloadFile(ctx, "/pdf/download/ok.pdf", dir, name)
			if !errors.Is(err, ErrInvalidFileName) {
				t.Errorf("error = %v, want ErrInvalidFileName", err)
			}
		})
	}

	t.Run("non pdf is discarded", func(t *testing.T) {
		_, err := client.DownloadFile(ctx, "/pdf/download/page.html", dir, "page.pdf")
		if !errors.Is(err, ErrNotPDF) {
			t.Fatalf("error = %v, want ErrNotPDF", err)
		}
		if _, err := os.Stat(filepath.Join(dir, "page.pdf")); !os.IsNotExist(err) {
			t.Errorf("rejected download left on disk: %v", err)
		}
	})
}

func TestClient_DownloadRefusesForeignHost(t *testing.T) {
	var foreignHits int
	foreign := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		foreignHits++
		w.Write([]byte("%PDF-1.4\n"))
	}))
	defer foreign.Close()

	client := newTestClient(t, http.NotFoundHandler(), "secret-token")
	dir := t.TempDir()

	_, err := client.DownloadFile(context.Background(), foreign.URL+"/x.pdf", dir, "")
	if !errors.Is(err, ErrForeignURL) {
		t.Fatalf("error = %v, want ErrForeignURL", err)
	}
	if foreignHits != 0 {
		t.Errorf("foreign host received %d requests, want none", foreignHits)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("download directory has %d entries, want none", len(entries))
	}
}

func TestClient_DownloadFromContentOrigin(t *testing.T) {
	var auth string
	content := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.Write([]byte("%PDF-1.4\n"))
	}))
	defer content.Close()
	service := httptest.NewServer(http.NotFoundHandler())
	defer service.Close()

	client, err := New(Config{
		BaseURL:        service.URL + "/api",
		ContentBaseURL: content.URL,
		Tokens:         api.StaticToken("tok"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := client.DownloadFile(context.Background(), content.URL+"/pdf/download/a.pdf", t.TempDir(), ""); err != nil {
		t.Fatalf("DownloadFile() error = %v", err)
	}
	if auth != "Bearer tok" {
		t.Errorf("Authorization = %q, want the token on the content origin", auth)
	}
}

func TestClient_URLs(t *testing.T) {
	client, err := New(Config{BaseURL: "https://pdf.example.org/api"})
	if err != nil {
		t.Fatal(err)
	}
	if got := client.ContentBaseURL(); got != "https://pdf.example.org" {
		t.Errorf("ContentBaseURL() = %q", got)
	}
	if got := client.ResolveURL("/pdf/download/a.pdf"); got != "https://pdf.example.org/pdf/download/a.pdf" {
		t.Errorf("ResolveURL() = %q", got)
	}
	if got := client.ResolveURL("https://cdn.example/a.pdf"); got != "https://cdn.example/a.pdf" {
		t.Errorf("ResolveURL(absolute) = %q", got)
	}
}

func TestFileNameFromURL(t *testing.T) {
	tests := map[string]string{
		"/pdf/download/abc.pdf":       "abc.pdf",
		"https://x.org/pdf/My%20Book": "My Book.pdf",
		"https://x.org/view?id=1":     "view.pdf",
		"":                            "book.pdf",
	}
	for in, want := range tests {
		if got := fileNameFromURL(in); got != want {
			t.Errorf("fileNameFromURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClient_Ping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"ok", http.StatusOK, false},
		{"not found still reachable", http.StatusNotFound, false},
		{"unauthorized still reachable", http.StatusUnauthorized, false},
		{"server error", http.StatusBadGateway, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cleared bool
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Authorization") != "" {
					t.Error("ping sent credentials")
				}
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client, err := New(Config{
				BaseURL:        server.URL + "/api",
				Tokens:         api.StaticToken("tok"),
				OnUnauthorized: func() { cleared = true },
			})
			if err != nil {
				t.Fatal(err)
			}
			err = client.Ping(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("Ping() error = %v, wantErr %v", err, tt.wantErr)
			}
			if cleared {
				t.Error("ping must not trigger the unauthorized handler")
			}
		})
	}

	t.Run("unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		base := server.URL
		server.Close()

		client, err := New(Config{BaseURL: base + "/api"})
		if err != nil {
			t.Fatal(err)
		}
		var terr *api.TransportError
		if err := client.Ping(context.Background()); !errors.As(err, &terr) {
			t.Errorf("Ping() error = %v, want TransportError", err)
		}
	})
}

func TestPDFPath(t *testing.T) {
	tests := map[string]string{
		"https://pdf.example.org/pdf/view/abc/book.pdf": "abc/book.pdf",
		"/pdf/view/book.pdf":                            "book.pdf",
		"https://cdn.example/files/book.pdf":            "book.pdf",
		"":                                              "",
	}
	for in, want := range tests {
		if got := PDFPath(in); got != want {
			t.Errorf("PDFPath(%q) = %q, want %q", in, got, want)
		}
	}
}
