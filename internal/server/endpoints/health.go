package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/wikibook/internal/api"
	"github.com/jackzampolin/wikibook/internal/bookflow"
	"github.com/jackzampolin/wikibook/internal/svcctx"
)

// HealthResponse is the response for health check endpoints.
type HealthResponse struct {
	Status  string `json:"status"`
	Session string `json:"session,omitempty"`
	Backend string `json:"backend,omitempty"`
}

// HealthEndpoint handles GET /health.
type HealthEndpoint struct{}

func (e *HealthEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/health", e.handler
}

func (e *HealthEndpoint) RequiresSession() bool { return false }

func (e *HealthEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (e *HealthEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/health", &resp); err != nil {
				return err
			}
			fmt.Printf("Status: %s\n", resp.Status)
			return nil
		},
	}
}

// ReadyEndpoint handles GET /ready.
type ReadyEndpoint struct{}

func (e *ReadyEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/ready", e.handler
}

func (e *ReadyEndpoint) RequiresSession() bool { return false }

// handler reports ready when the PDF service answers. A missing session is
// reported but does not make the server unready; search works without one.
func (e *ReadyEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Session: "signed_out", Backend: "ok"}

	if sess := svcctx.SessionFrom(r.Context()); sess != nil && sess.LoggedIn() {
		resp.Session = "signed_in"
	}

	client := svcctx.BookAPIFrom(r.Context())
	if client == nil {
		resp.Status = "degraded"
		resp.Backend = "not_initialized"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	if err := client.Ping(r.Context()); err != nil {
		resp.Status = "degraded"
		resp.Backend = "unreachable"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *ReadyEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "ready",
		Short: "Check server readiness (includes the PDF service)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/ready", &resp); err != nil {
				return err
			}
			fmt.Printf("Status:  %s\n", resp.Status)
			fmt.Printf("Session: %s\n", resp.Session)
			fmt.Printf("Backend: %s\n", resp.Backend)
			return nil
		},
	}
}

// StatusResponse is the detailed status response.
type StatusResponse struct {
	Server  string        `json:"server"`
	Session SessionStatus `json:"session"`
	Backend BackendStatus `json:"backend"`
	Wiki    WikiStatus    `json:"wiki"`
	Jobs    JobCounts     `json:"jobs"`
}

// SessionStatus describes the signed-in user, if any.
type SessionStatus struct {
	SignedIn bool   `json:"signed_in"`
	Email    string `json:"email,omitempty"`
}

// BackendStatus shows the PDF service address and health.
type BackendStatus struct {
	URL    string `json:"url"`
	Health string `json:"health"`
}

// WikiStatus shows the wiki the server searches.
type WikiStatus struct {
	SiteURL string `json:"site_url"`
	APIURL  string `json:"api_url"`
}

// JobCounts tallies tracked book jobs by state.
type JobCounts struct {
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// StatusEndpoint handles GET /status.
type StatusEndpoint struct{}

func (e *StatusEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/status", e.handler
}

func (e *StatusEndpoint) RequiresSession() bool { return false }

func (e *StatusEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := StatusResponse{Server: "running"}

	if sess := svcctx.SessionFrom(ctx); sess != nil && sess.LoggedIn() {
		resp.Session.SignedIn = true
		if u := sess.User(); u != nil {
			resp.Session.Email = u.Email
		}
	}

	if client := svcctx.BookAPIFrom(ctx); client != nil {
		resp.Backend.URL = client.BaseURL()
		if err := client.Ping(ctx); err != nil {
			resp.Backend.Health = "unreachable"
		} else {
			resp.Backend.Health = "healthy"
		}
	} else {
		resp.Backend.Health = "not_initialized"
	}

	if wc := svcctx.WikiFrom(ctx); wc != nil {
		cfg := wc.Config()
		resp.Wiki = WikiStatus{SiteURL: cfg.SiteURL, APIURL: cfg.APIURL}
	}

	if tracker := svcctx.TrackerFrom(ctx); tracker != nil {
		for _, rec := range tracker.List() {
			switch rec.Status {
			case bookflow.StatusRunning:
				resp.Jobs.Running++
			case bookflow.StatusCompleted:
				resp.Jobs.Completed++
			case bookflow.StatusFailed:
				resp.Jobs.Failed++
			}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *StatusEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Get detailed server status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp StatusResponse
			if err := client.Get(cmd.Context(), "/status", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
