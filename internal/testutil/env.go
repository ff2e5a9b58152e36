package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/jackzampolin/wikibook/internal/bookflow"
	"github.com/jackzampolin/wikibook/internal/config"
	"github.com/jackzampolin/wikibook/internal/home"
	"github.com/jackzampolin/wikibook/internal/poller"
	"github.com/jackzampolin/wikibook/internal/svcctx"
)

// PollInterval is the status polling delay used by Env.
const PollInterval = 10 * time.Millisecond

// ServerConfig returns configuration values for creating a test server.
// This avoids importing the server package directly.
type ServerConfig struct {
	Host   string
	Port   string
	Logger *slog.Logger
}

// NewServerConfig creates configuration for a test server on a free port.
func NewServerConfig(t *testing.T) ServerConfig {
	t.Helper()

	port, err := FindFreePort()
	if err != nil {
		t.Fatalf("failed to find free port for HTTP: %v", err)
	}
	return ServerConfig{
		Host:   "127.0.0.1",
		Port:   port,
		Logger: Logger(),
	}
}

// URL returns the server URL for the given config.
func (c ServerConfig) URL() string {
	return fmt.Sprintf("http://%s:%s", c.Host, c.Port)
}

// Logger returns the logger tests hand to services. Only warnings and
// errors are printed.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// Env is a complete service graph wired to a fake PDF service and a fake
// wiki, with a private home directory.
type Env struct {
	Backend  *Backend
	Wiki     *Wiki
	Home     *home.Dir
	Config   *config.Config
	Services *svcctx.Services
}

// NewEnv builds an Env whose wiki serves pages. Background jobs poll every
// PollInterval and are cancelled when the test ends.
func NewEnv(t *testing.T, pages ...WikiPage) *Env {
	t.Helper()

	backend := NewBackend(t)
	wiki := NewWiki(t, pages...)

	h, err := home.New(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create home: %v", err)
	}
	if err := h.EnsureExists(); err != nil {
		t.Fatalf("failed to create home: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.Backend.BaseURL = backend.APIURL()
	cfg.Backend.TimeoutSeconds = 5
	cfg.Wiki.APIURL = wiki.APIURL()
	cfg.Wiki.RestURL = wiki.RestURL()
	cfg.Wiki.SearchURL = wiki.SearchURL()
	cfg.Wiki.SiteURL = wiki.Server.URL
	cfg.Wiki.CategoryPrefix = "Category"
	cfg.Wiki.ExcludeCategories = []string{"Hidden"}
	cfg.Poll.MaxAttempts = 5
	cfg.Render.RTL = false
	cfg.Render.Lang = "en"
	cfg.Server.RateLimitPerMinute = 0

	logger := Logger()
	services, err := svcctx.New(t.Context(), cfg, h, logger)
	if err != nil {
		t.Fatalf("failed to create services: %v", err)
	}

	// Same flow as svcctx.New builds, with a test-speed poll interval.
	services.Flow = bookflow.New(bookflow.Config{
		Service: services.BookAPI,
		Tokens:  services.Session,
		Poller: poller.New(poller.Config{
			Interval:    PollInterval,
			MaxAttempts: cfg.Poll.MaxAttempts,
			Logger:      logger,
		}),
		WikiBaseURL:  cfg.Wiki.RestURL,
		DefaultTitle: cfg.Book.DefaultTitle,
		Logger:       logger,
	})
	services.Tracker = bookflow.NewTracker(t.Context(), services.Flow, logger)
	t.Cleanup(services.Tracker.Wait)

	return &Env{
		Backend:  backend,
		Wiki:     wiki,
		Home:     h,
		Config:   cfg,
		Services: services,
	}
}

// SignIn logs the session in against the fake backend.
func (e *Env) SignIn(t *testing.T) {
	t.Helper()
	if _, err := e.Services.Session.Login(context.Background(), BackendEmail, BackendPassword); err != nil {
		t.Fatalf("sign in failed: %v", err)
	}
}

// WaitForServer polls the /health endpoint until the server answers ok.
func WaitForServer(url string, timeout time.Duration) error {
	client := &http.Client{Timeout: 2 * time.Second}
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url + "/health")
		if err == nil {
			var health struct {
				Status string `json:"status"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&health); err == nil && health.Status == "ok" {
				resp.Body.Close()
				return nil
			}
			resp.Body.Close()
		}
		time.Sleep(50 * time.Millisecond)
	}

	return fmt.Errorf("server not ready after %v", timeout)
}

// WaitForShutdown waits for a channel to receive a value or timeout.
func WaitForShutdown(done <-chan error, timeout time.Duration) error {
	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("timeout waiting for shutdown")
	}
}

// HTTPClient returns an HTTP client for making requests.
func HTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

// FindFreePort finds an available TCP port and returns it as a string.
func FindFreePort() (string, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", err
	}
	defer listener.Close()
	return fmt.Sprintf("%d", listener.Addr().(*net.TCPAddr).Port), nil
}

// StartServer is a helper type for managing server lifecycle in tests.
// Usage:
//
//	cfg := testutil.NewServerConfig(t)
//	srv, err := server.New(server.Config{...from cfg...})
//	starter := testutil.StartServer{Cancel: cancel, Done: done}
//	t.Cleanup(func() { starter.Stop() })
type StartServer struct {
	Cancel context.CancelFunc
	Done   <-chan error
}

// Stop cancels the server context and waits for shutdown.
func (s *StartServer) Stop() {
	if s.Cancel != nil {
		s.Cancel()
	}
	if s.Done != nil {
		<-s.Done
	}
}

// StatusResponse matches the server's /status response.
type StatusResponse struct {
	Server  string `json:"server"`
	Session struct {
		SignedIn bool   `json:"signed_in"`
		Email    string `json:"email"`
	} `json:"session"`
	Backend struct {
		URL    string `json:"url"`
		Health string `json:"health"`
	} `json:"backend"`
	Jobs struct {
		Running   int `json:"running"`
		Completed int `json:"completed"`
		Failed    int `json:"failed"`
	} `json:"jobs"`
}

// GetStatus fetches the /status endpoint and returns the parsed response.
func GetStatus(url string) (*StatusResponse, error) {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url + "/status")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var status StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, err
	}
	return &status, nil
}
