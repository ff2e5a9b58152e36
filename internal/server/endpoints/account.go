package endpoints

import (
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/wikibook/internal/api"
	"github.com/jackzampolin/wikibook/internal/bookapi"
	"github.com/jackzampolin/wikibook/internal/svcctx"
)

// UpdateProfileRequest is the body of PUT /api/auth/profile.
type UpdateProfileRequest = bookapi.ProfileUpdate

// ChangePasswordRequest is the body of POST /api/auth/password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// DeleteAccountRequest is the body of DELETE /api/auth/account.
type DeleteAccountRequest struct {
	Password string `json:"password"`
}

// ForgotPasswordRequest is the body of POST /api/auth/forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest is the body of POST /api/auth/reset-password.
type ResetPasswordRequest struct {
	Token           string `json:"token"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// MessageResponse acknowledges an account operation.
type MessageResponse struct {
	Message string `json:"message"`
}

func bookClient(w http.ResponseWriter, r *http.Request) *bookapi.Client {
	client := svcctx.BookAPIFrom(r.Context())
	if client == nil {
		writeError(w, http.StatusServiceUnavailable, "book service client not initialized")
	}
	return client
}

// ProfileEndpoint handles GET /api/auth/profile.
type ProfileEndpoint struct{}

func (e *ProfileEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/auth/profile", e.handler
}

func (e *ProfileEndpoint) RequiresSession() bool { return true }

// handler godoc
//
//	@Summary		Get profile
//	@Description	Fetch the signed-in user's profile from the PDF service
//	@Tags			auth
//	@Produce		json
//	@Success		200	{object}	SessionResponse
//	@Failure		401	{object}	ErrorResponse
//	@Failure		502	{object}	ErrorResponse
//	@Router			/api/auth/profile [get]
func (e *ProfileEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	client := bookClient(w, r)
	if client == nil {
		return
	}
	user, err := client.Me(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := svcctx.SessionFrom(r.Context()).SetUser(user); err != nil {
		svcctx.LoggerFrom(r.Context()).Warn("failed to save profile", "error", err)
	}
	writeJSON(w, http.StatusOK, SessionResponse{SignedIn: true, User: user})
}

func (e *ProfileEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Show the signed-in user's profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp SessionResponse
			if err := client.Get(cmd.Context(), "/api/auth/profile", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// UpdateProfileEndpoint handles PUT /api/auth/profile.
type UpdateProfileEndpoint struct{}

func (e *UpdateProfileEndpoint) Route() (string, string, http.HandlerFunc) {
	return "PUT", "/api/auth/profile", e.handler
}

func (e *UpdateProfileEndpoint) RequiresSession() bool { return true }

// handler godoc
//
//	@Summary		Update profile
//	@Description	Change profile fields on the PDF service
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		UpdateProfileRequest	true	"Fields to change"
//	@Success		200		{object}	SessionResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		502		{object}	ErrorResponse
//	@Router			/api/auth/profile [put]
func (e *UpdateProfileEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req == (UpdateProfileRequest{}) {
		writeError(w, http.StatusBadRequest, "nothing to update")
		return
	}
	client := bookClient(w, r)
	if client == nil {
		return
	}

	user, err := client.UpdateProfile(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := svcctx.SessionFrom(r.Context()).SetUser(user); err != nil {
		svcctx.LoggerFrom(r.Context()).Warn("failed to save profile", "error", err)
	}
	writeJSON(w, http.StatusOK, SessionResponse{SignedIn: true, User: user})
}

func (e *UpdateProfileEndpoint) Command(getServerURL func() string) *cobra.Command {
	var req UpdateProfileRequest
	cmd := &cobra.Command{
		Use:   "update-profile",
		Short: "Change the signed-in user's profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp SessionResponse
			if err := client.Put(cmd.Context(), "/api/auth/profile", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "Display name")
	cmd.Flags().StringVar(&req.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&req.FirstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&req.LastName, "last-name", "", "Last name")
	return cmd
}

// ChangePasswordEndpoint handles POST /api/auth/password.
type ChangePasswordEndpoint struct{}

func (e *ChangePasswordEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/auth/password", e.handler
}

func (e *ChangePasswordEndpoint) RequiresSession() bool { return true }

// handler godoc
//
//	@Summary		Change password
//	@Description	Change the signed-in user's password
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ChangePasswordRequest	true	"Current and new password"
//	@Success		200		{object}	MessageResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Router			/api/auth/password [post]
func (e *ChangePasswordEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "current and new password are required")
		return
	}
	if req.NewPassword != req.ConfirmPassword {
		writeError(w, http.StatusBadRequest, "passwords do not match")
		return
	}
	client := bookClient(w, r)
	if client == nil {
		return
	}

	if err := client.ChangePassword(r.Context(), req.CurrentPassword, req.NewPassword, req.ConfirmPassword); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "password changed"})
}

func (e *ChangePasswordEndpoint) Command(getServerURL func() string) *cobra.Command {
	var current, next string
	cmd := &cobra.Command{
		Use:   "change-password",
		Short: "Change the signed-in user's password",
		RunE: func(cmd *cobra.Command, args []string) error {
			pw := PasswordFromEnv(current)
			if pw == "" {
				return errors.New("--current or WIKIBOOK_PASSWORD is required")
			}
			client := api.NewClient(getServerURL())
			var resp MessageResponse
			req := ChangePasswordRequest{CurrentPassword: pw, NewPassword: next, ConfirmPassword: next}
			if err := client.Post(cmd.Context(), "/api/auth/password", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&current, "current", "", "Current password (default: $WIKIBOOK_PASSWORD)")
	cmd.Flags().StringVar(&next, "new", "", "New password (required)")
	_ = cmd.MarkFlagRequired("new")
	return cmd
}

// DeleteAccountEndpoint handles DELETE /api/auth/account.
type DeleteAccountEndpoint struct{}

func (e *DeleteAccountEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/auth/account", e.handler
}

func (e *DeleteAccountEndpoint) RequiresSession() bool { return true }

// handler godoc
//
//	@Summary		Delete account
//	@Description	Delete the signed-in account on the PDF service and sign out
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		DeleteAccountRequest	true	"Password confirmation"
//	@Success		200		{object}	SessionResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Router			/api/auth/account [delete]
func (e *DeleteAccountEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req DeleteAccountRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusBadRequest, "password is required")
		return
	}
	client := bookClient(w, r)
	if client == nil {
		return
	}

	if err := client.DeleteAccount(r.Context(), req.Password); err != nil {
		writeServiceError(w, err)
		return
	}
	if sess := svcctx.SessionFrom(r.Context()); sess != nil {
		sess.Clear()
	}
	svcctx.LoggerFrom(r.Context()).Info("account deleted")
	writeJSON(w, http.StatusOK, SessionResponse{})
}

func (e *DeleteAccountEndpoint) Command(getServerURL func() string) *cobra.Command {
	var password string
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete-account",
		Short: "Delete the signed-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("deleting an account cannot be undone; pass --yes to confirm")
			}
			pw := PasswordFromEnv(password)
			if pw == "" {
				return errors.New("--password or WIKIBOOK_PASSWORD is required")
			}
			client := api.NewClient(getServerURL())
			var resp SessionResponse
			if err := client.DeleteWithBody(cmd.Context(), "/api/auth/account", DeleteAccountRequest{Password: pw}, &resp); err != nil {
				return err
			}
			api.Progressf("Account deleted")
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "Password (default: $WIKIBOOK_PASSWORD)")
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the deletion")
	return cmd
}

// ForgotPasswordEndpoint handles POST /api/auth/forgot-password.
type ForgotPasswordEndpoint struct{}

func (e *ForgotPasswordEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/auth/forgot-password", e.handler
}

func (e *ForgotPasswordEndpoint) RequiresSession() bool { return false }

// handler godoc
//
//	@Summary		Request password reset
//	@Description	Ask the PDF service to email a password reset link
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ForgotPasswordRequest	true	"Account email"
//	@Success		200		{object}	MessageResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		502		{object}	ErrorResponse
//	@Router			/api/auth/forgot-password [post]
func (e *ForgotPasswordEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}
	client := bookClient(w, r)
	if client == nil {
		return
	}

	if err := client.ForgotPassword(r.Context(), req.Email); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "reset email requested"})
}

func (e *ForgotPasswordEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "forgot-password <email>",
		Short: "Request a password reset email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp MessageResponse
			if err := client.Post(cmd.Context(), "/api/auth/forgot-password", ForgotPasswordRequest{Email: args[0]}, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// ResetPasswordEndpoint handles POST /api/auth/reset-password.
type ResetPasswordEndpoint struct{}

func (e *ResetPasswordEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/auth/reset-password", e.handler
}

func (e *ResetPasswordEndpoint) RequiresSession() bool { return false }

// handler godoc
//
//	@Summary		Reset password
//	@Description	Set a new password with the token from a reset email
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ResetPasswordRequest	true	"Reset token and new password"
//	@Success		200		{object}	MessageResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		502		{object}	ErrorResponse
//	@Router			/api/auth/reset-password [post]
func (e *ResetPasswordEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Token == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "token and new password are required")
		return
	}
	if req.NewPassword != req.ConfirmPassword {
		writeError(w, http.StatusBadRequest, "passwords do not match")
		return
	}
	client := bookClient(w, r)
	if client == nil {
		return
	}

	if err := client.ResetPassword(r.Context(), req.Token, req.NewPassword, req.ConfirmPassword); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "password reset"})
}

func (e *ResetPasswordEndpoint) Command(getServerURL func() string) *cobra.Command {
	var token, password string
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password with a reset token",
		RunE: func(cmd *cobra.Command, args []string) error {
			pw := PasswordFromEnv(password)
			if pw == "" {
				return errors.New("--password or WIKIBOOK_PASSWORD is required")
			}
			client := api.NewClient(getServerURL())
			var resp MessageResponse
			req := ResetPasswordRequest{Token: token, NewPassword: pw, ConfirmPassword: pw}
			if err := client.Post(cmd.Context(), "/api/auth/reset-password", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "Token from the reset email (required)")
	cmd.Flags().StringVar(&password, "password", "", "New password (default: $WIKIBOOK_PASSWORD)")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}
