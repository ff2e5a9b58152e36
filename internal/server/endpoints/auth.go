package endpoints

import (
	"errors"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/wikibook/internal/api"
	"github.com/jackzampolin/wikibook/internal/svcctx"
	"github.com/jackzampolin/wikibook/internal/types"
)

// SessionResponse describes the current session.
type SessionResponse struct {
	SignedIn bool        `json:"signed_in"`
	User     *types.User `json:"user,omitempty"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// GoogleRequest is the body of POST /api/auth/google.
type GoogleRequest struct {
	Credential string `json:"credential"`
}

// PasswordFromEnv returns flag, or $WIKIBOOK_PASSWORD when flag is empty.
func PasswordFromEnv(flag string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv("WIKIBOOK_PASSWORD")
}

// LoginEndpoint handles POST /api/auth/login.
type LoginEndpoint struct{}

func (e *LoginEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/auth/login", e.handler
}

func (e *LoginEndpoint) RequiresSession() bool { return false }

// handler godoc
//
//	@Summary		Sign in
//	@Description	Sign in to the PDF service with email and password
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		LoginRequest	true	"Credentials"
//	@Success		200		{object}	SessionResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		502		{object}	ErrorResponse
//	@Router			/api/auth/login [post]
func (e *LoginEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	sess := svcctx.SessionFrom(r.Context())
	if sess == nil {
		writeError(w, http.StatusServiceUnavailable, "session not initialized")
		return
	}

	user, err := sess.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{SignedIn: true, User: user})
}

func (e *LoginEndpoint) Command(getServerURL func() string) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign the server in to the PDF service",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp SessionResponse
			req := LoginRequest{Email: email, Password: PasswordFromEnv(password)}
			if err := client.Post(cmd.Context(), "/api/auth/login", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email (required)")
	cmd.Flags().StringVar(&password, "password", "", "Password (default: $WIKIBOOK_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// RegisterEndpoint handles POST /api/auth/register.
type RegisterEndpoint struct{}

func (e *RegisterEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/auth/register", e.handler
}

func (e *RegisterEndpoint) RequiresSession() bool { return false }

// handler godoc
//
//	@Summary		Register
//	@Description	Create an account on the PDF service and sign in
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		RegisterRequest	true	"New account"
//	@Success		200		{object}	SessionResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		502		{object}	ErrorResponse
//	@Router			/api/auth/register [post]
func (e *RegisterEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}
	if req.Password != req.ConfirmPassword {
		writeError(w, http.StatusBadRequest, "passwords do not match")
		return
	}

	sess := svcctx.SessionFrom(r.Context())
	if sess == nil {
		writeError(w, http.StatusServiceUnavailable, "session not initialized")
		return
	}

	user, err := sess.Register(r.Context(), req.Email, req.Password, req.ConfirmPassword)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{SignedIn: true, User: user})
}

func (e *RegisterEndpoint) Command(getServerURL func() string) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign the server in",
		RunE: func(cmd *cobra.Command, args []string) error {
			pw := PasswordFromEnv(password)
			if pw == "" {
				return errors.New("--password or WIKIBOOK_PASSWORD is required")
			}
			client := api.NewClient(getServerURL())
			var resp SessionResponse
			req := RegisterRequest{Email: email, Password: pw, ConfirmPassword: pw}
			if err := client.Post(cmd.Context(), "/api/auth/register", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email (required)")
	cmd.Flags().StringVar(&password, "password", "", "Password (default: $WIKIBOOK_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// GoogleLoginEndpoint handles POST /api/auth/google.
type GoogleLoginEndpoint struct{}

func (e *GoogleLoginEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/auth/google", e.handler
}

func (e *GoogleLoginEndpoint) RequiresSession() bool { return false }

// handler godoc
//
//	@Summary		Sign in with Google
//	@Description	Exchange a Google ID token credential for a session
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		GoogleRequest	true	"Google credential"
//	@Success		200		{object}	SessionResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Router			/api/auth/google [post]
func (e *GoogleLoginEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req GoogleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Credential == "" {
		writeError(w, http.StatusBadRequest, "credential is required")
		return
	}

	sess := svcctx.SessionFrom(r.Context())
	if sess == nil {
		writeError(w, http.StatusServiceUnavailable, "session not initialized")
		return
	}

	user, err := sess.Google(r.Context(), req.Credential)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{SignedIn: true, User: user})
}

func (e *GoogleLoginEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "google <credential>",
		Short: "Sign the server in with a Google ID token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp SessionResponse
			if err := client.Post(cmd.Context(), "/api/auth/google", GoogleRequest{Credential: args[0]}, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// SessionEndpoint handles GET /api/auth/session.
type SessionEndpoint struct{}

func (e *SessionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/auth/session", e.handler
}

func (e *SessionEndpoint) RequiresSession() bool { return false }

// handler godoc
//
//	@Summary		Current session
//	@Description	Report whether the server is signed in and as whom
//	@Tags			auth
//	@Produce		json
//	@Success		200	{object}	SessionResponse
//	@Router			/api/auth/session [get]
func (e *SessionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sess := svcctx.SessionFrom(r.Context())
	if sess == nil || !sess.LoggedIn() {
		writeJSON(w, http.StatusOK, SessionResponse{})
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{SignedIn: true, User: sess.User()})
}

func (e *SessionEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Show the server's session",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp SessionResponse
			if err := client.Get(cmd.Context(), "/api/auth/session", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// LogoutEndpoint handles POST /api/auth/logout.
type LogoutEndpoint struct{}

func (e *LogoutEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/auth/logout", e.handler
}

func (e *LogoutEndpoint) RequiresSession() bool { return false }

// handler godoc
//
//	@Summary		Sign out
//	@Description	End the session locally and on the PDF service
//	@Tags			auth
//	@Produce		json
//	@Success		200	{object}	SessionResponse
//	@Router			/api/auth/logout [post]
func (e *LogoutEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	if sess := svcctx.SessionFrom(r.Context()); sess != nil {
		sess.Logout(r.Context())
	}
	writeJSON(w, http.StatusOK, SessionResponse{})
}

func (e *LogoutEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign the server out",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp SessionResponse
			if err := client.Post(cmd.Context(), "/api/auth/logout", nil, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
