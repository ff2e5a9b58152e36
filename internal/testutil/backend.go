package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jung-kurt/gofpdf"

	"github.com/jackzampolin/wikibook/internal/types"
)

// Credentials accepted by Backend.
const (
	BackendEmail      = "reader@example.org"
	BackendPassword   = "secret"
	BackendToken      = "test-token"
	BackendCredential = "google-credential"
	BackendResetToken = "reset-token"
)

// StatusStep is one scripted answer of the fake status endpoint. Nil
// fields are sent as JSON null.
type StatusStep struct {
	Status      string  `json:"status"`
	Title       *string `json:"title"`
	DownloadURL *string `json:"download_url"`
	ViewURL     *string `json:"view_url"`
	Message     *string `json:"message"`
	// Code, when set, replaces the 200 answer with this HTTP status.
	Code int `json:"-"`
	// Delay holds the answer back, or until the client gives up.
	Delay time.Duration `json:"-"`
}

// Str is a helper for StatusStep's optional fields.
func Str(s string) *string { return &s }

// GenerateCall records a body received by POST /api/pdf/generate.
type GenerateCall struct {
	WikiPages []string `json:"wiki_pages"`
	BookTitle string   `json:"book_title"`
	BaseURL   string   `json:"base_url"`
}

// Backend is an in-process PDF service. Its API lives under /api and
// generated files are served from /pdf/download/{name} and
// /api/pdf/view/{name}.
type Backend struct {
	Server *httptest.Server

	mu        sync.Mutex
	steps     []StatusStep
	polls     map[string]int
	generated []GenerateCall
	books     []types.RemoteBook
	pdf       []byte
	user      types.User
	password  string
	deleted   bool
	resets    []string
}

// NewBackend starts a fake PDF service that is closed with the test.
// Jobs walk processing, generating, completed unless SetStatuses changes
// the script.
func NewBackend(t *testing.T) *Backend {
	t.Helper()

	b := &Backend{
		polls:    make(map[string]int),
		pdf:      SamplePDF(t, 2),
		user:     types.User{ID: "u-1", Email: BackendEmail, Name: "Reader", Provider: "local"},
		password: BackendPassword,
	}
	b.Server = httptest.NewServer(b.routes())
	t.Cleanup(b.Server.Close)
	return b
}

// APIURL is the base URL clients are configured with.
func (b *Backend) APIURL() string {
	return b.Server.URL + "/api"
}

// SetStatuses replaces the status script. The last step repeats.
func (b *Backend) SetStatuses(steps ...StatusStep) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.steps = steps
}

// SetBooks replaces the library.
func (b *Backend) SetBooks(books ...types.RemoteBook) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.books = books
}

// Generated returns every generation request received so far.
func (b *Backend) Generated() []GenerateCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]GenerateCall(nil), b.generated...)
}

// Password returns the account's current password.
func (b *Backend) Password() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.password
}

// Deleted reports whether the account was deleted.
func (b *Backend) Deleted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.deleted
}

// ResetRequests returns the emails password resets were requested for.
func (b *Backend) ResetRequests() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.resets...)
}

// Polls returns how often the status of taskID was requested.
func (b *Backend) Polls(taskID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.polls[taskID]
}

func (b *Backend) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", b.handleLogin)
	mux.HandleFunc("POST /api/auth/register", b.handleLogin)
	mux.HandleFunc("POST /api/auth/google/verify", b.handleGoogle)
	mux.HandleFunc("GET /api/auth/validate", b.authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
	}))
	mux.HandleFunc("GET /api/auth/me", b.authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"user": b.currentUser()})
	}))
	mux.HandleFunc("PUT /api/auth/profile", b.authed(b.handleProfile))
	mux.HandleFunc("PUT /api/auth/change-password", b.authed(b.handleChangePassword))
	mux.HandleFunc("DELETE /api/auth/delete-account", b.authed(b.handleDeleteAccount))
	mux.HandleFunc("POST /api/auth/forgot-password", b.handleForgotPassword)
	mux.HandleFunc("POST /api/auth/reset-password", b.handleResetPassword)
	mux.HandleFunc("POST /api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	})
	mux.HandleFunc("POST /api/pdf/generate", b.authed(b.handleGenerate))
	mux.HandleFunc("GET /api/pdf/status/{id}", b.authed(b.handleStatus))
	mux.HandleFunc("GET /api/books", b.authed(b.handleBooks))
	mux.HandleFunc("GET /api/book/{id}", b.authed(b.handleBook))
	mux.HandleFunc("DELETE /api/book/{id}", b.authed(b.handleDeleteBook))
	mux.HandleFunc("GET /api/pdf/view/{name...}", b.handlePDF)
	mux.HandleFunc("GET /api/pdf/metadata/{name...}", b.handleMetadata)
	mux.HandleFunc("GET /pdf/download/{name...}", b.handlePDF)
	return mux
}

func (b *Backend) currentUser() types.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.user
}

func (b *Backend) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+BackendToken {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Not authenticated"})
			return
		}
		next(w, r)
	}
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}
	b.mu.Lock()
	ok := !b.deleted && req.Email == BackendEmail && req.Password == b.password
	b.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid credentials"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": BackendToken,
		"token_type":   "bearer",
		"user":         b.currentUser(),
	})
}

func (b *Backend) handleGoogle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Credential string `json:"credential"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Credential != BackendCredential {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "Invalid Google token"})
		return
	}
	u := b.currentUser()
	u.Provider = "google"
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "token": BackendToken, "user": u})
}

func (b *Backend) handleProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}
	b.mu.Lock()
	if req.Name != "" {
		b.user.Name = req.Name
	}
	if req.Email != "" {
		b.user.Email = req.Email
	}
	u := b.user
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"user": u})
}

func (b *Backend) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Current string `json:"current_password"`
		New     string `json:"new_password"`
		Confirm string `json:"confirm_password"`
	}
	json.NewDecoder(r.Body).Decode(&req)

	b.mu.Lock()
	defer b.mu.Unlock()
	if req.Current != b.password {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Current password is incorrect"})
		return
	}
	if req.New == "" || req.New != req.Confirm {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Passwords do not match"})
		return
	}
	b.password = req.New
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password changed"})
}

func (b *Backend) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	json.NewDecoder(r.Body).Decode(&req)

	b.mu.Lock()
	defer b.mu.Unlock()
	if req.Password != b.password {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Password is incorrect"})
		return
	}
	b.deleted = true
	writeJSON(w, http.StatusOK, map[string]string{"message": "Account deleted"})
}

func (b *Backend) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "email is required"})
		return
	}
	b.mu.Lock()
	b.resets = append(b.resets, req.Email)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"message": "If the account exists, an email was sent"})
}

func (b *Backend) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token   string `json:"token"`
		New     string `json:"new_password"`
		Confirm string `json:"confirm_password"`
	}
	json.NewDecoder(r.Body).Decode(&req)
	if req.Token != BackendResetToken {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Invalid or expired token"})
		return
	}
	if req.New == "" || req.New != req.Confirm {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Passwords do not match"})
		return
	}
	b.mu.Lock()
	b.password = req.New
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password reset"})
}

func (b *Backend) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateCall
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return
	}
	b.mu.Lock()
	b.generated = append(b.generated, req)
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{
		"task_id": uuid.NewString(),
		"status":  "processing",
		"message": "PDF generation started",
	})
}

func (b *Backend) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	b.mu.Lock()
	n := b.polls[id]
	b.polls[id] = n + 1
	steps := b.steps
	b.mu.Unlock()

	if len(steps) == 0 {
		steps = DefaultStatuses(id)
	}
	step := steps[min(n, len(steps)-1)]
	if step.Delay > 0 {
		select {
		case <-time.After(step.Delay):
		case <-r.Context().Done():
			return
		}
	}
	if step.Code != 0 {
		writeJSON(w, step.Code, map[string]string{"detail": "status unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, struct {
		StatusStep
		TaskID string `json:"task_id"`
	}{step, id})
}

// DefaultStatuses is the script a job follows when none was set.
func DefaultStatuses(taskID string) []StatusStep {
	return []StatusStep{
		{Status: "processing", Message: Str("Fetching pages")},
		{Status: "generating", Message: Str("Rendering")},
		{
			Status:      "completed",
			Message:     Str("My Book"),
			DownloadURL: Str("/pdf/download/" + taskID + ".pdf"),
			ViewURL:     Str("/api/pdf/view/" + taskID + ".pdf"),
		},
	}
}

func (b *Backend) handleBooks(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	books := append([]types.RemoteBook{}, b.books...)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "books": books})
}

func (b *Backend) findBook(id string) (types.RemoteBook, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, book := range b.books {
		if book.ID == id {
			return book, true
		}
	}
	return types.RemoteBook{}, false
}

func (b *Backend) handleBook(w http.ResponseWriter, r *http.Request) {
	book, ok := b.findBook(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "Book not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "book": book})
}

func (b *Backend) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, book := range b.books {
		if book.ID == id {
			b.books = append(b.books[:i], b.books[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]bool{"success": true})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Book not found"})
}

func (b *Backend) handlePDF(w http.ResponseWriter, r *http.Request) {
	if !strings.HasSuffix(r.PathValue("name"), ".pdf") {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Length", fmt.Sprint(len(b.pdf)))
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		w.Write(b.pdf)
	}
}

func (b *Backend) handleMetadata(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"metadata": types.PDFMetadata{
			Title:     strings.TrimSuffix(name, ".pdf"),
			Author:    "Reader",
			PageCount: 2,
			Size:      fmt.Sprintf("%d B", len(b.pdf)),
		},
	})
}

// SamplePDF renders a small PDF with the given number of pages.
func SamplePDF(t testing.TB, pages int) []byte {
	t.Helper()

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Helvetica", "", 14)
	for i := 1; i <= pages; i++ {
		pdf.AddPage()
		pdf.Cell(40, 10, fmt.Sprintf("Page %d", i))
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatalf("failed to render sample PDF: %v", err)
	}
	return buf.Bytes()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
