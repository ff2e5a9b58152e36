package bookapi

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackzampolin/wikibook/internal/api"
	"github.com/jackzampolin/wikibook/internal/types"
)

// ErrNoToken is returned when an auth response carries no token.
var ErrNoToken = errors.New("authentication response contained no token")

// AuthResponse is returned by login, register and Google verification.
// Older service versions send the token as "token", newer as "access_token".
type AuthResponse struct {
	Success     *bool       `json:"success,omitempty"`
	AccessToken string      `json:"access_token,omitempty"`
	Token       string      `json:"token,omitempty"`
	TokenType   string      `json:"token_type,omitempty"`
	User        *types.User `json:"user,omitempty"`
	Message     string      `json:"message,omitempty"`
}

// BearerToken returns whichever token field is set.
func (r *AuthResponse) BearerToken() string {
	if r.AccessToken != "" {
		return r.AccessToken
	}
	return r.Token
}

func (r *AuthResponse) check(op string) error {
	if r.Success != nil && !*r.Success {
		msg := r.Message
		if msg == "" {
			msg = op + " failed"
		}
		return &api.StatusError{StatusCode: 200, Message: msg}
	}
	if r.BearerToken() == "" {
		return ErrNoToken
	}
	return nil
}

// Login authenticates with email and password.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	body := map[string]string{"email": email, "password": password}
	return c.authenticate(ctx, "login", "/auth/login", body)
}

// Register creates an account and signs in.
func (c *Client) Register(ctx context.Context, email, password, confirmPassword string) (*AuthResponse, error) {
	body := map[string]string{
		"email":            email,
		"password":         password,
		"confirm_password": confirmPassword,
	}
	return c.authenticate(ctx, "registration", "/auth/register", body)
}

// GoogleVerify exchanges a Google ID token credential for a service token.
func (c *Client) GoogleVerify(ctx context.Context, credential string) (*AuthResponse, error) {
	body := map[string]string{"credential": credential}
	return c.authenticate(ctx, "google sign-in", "/auth/google/verify", body)
}

func (c *Client) authenticate(ctx context.Context, op, path string, body any) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.http.Post(ctx, path, body, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := resp.check(op); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Validate reports whether token is still accepted by the service.
// Any failure, including an unreachable server, counts as invalid; the
// error is returned for logging.
func (c *Client) Validate(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	if err := c.withToken(token).Get(ctx, "/auth/validate", nil); err != nil {
		return false, err
	}
	return true, nil
}

// Me returns the signed-in user.
func (c *Client) Me(ctx context.Context) (*types.User, error) {
	var resp struct {
		types.User
		Wrapped *types.User `json:"user"`
	}
	if err := c.http.Get(ctx, "/auth/me", &resp); err != nil {
		return nil, fmt.Errorf("get current user: %w", err)
	}
	if resp.Wrapped != nil {
		return resp.Wrapped, nil
	}
	return &resp.User, nil
}

// Logout tells the service to end the session. Callers clear local state
// regardless of the result.
func (c *Client) Logout(ctx context.Context) error {
	return c.http.Post(ctx, "/auth/logout", struct{}{}, nil)
}

// ProfileUpdate holds the editable profile fields.
type ProfileUpdate struct {
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// UpdateProfile changes profile fields and returns the updated user.
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (*types.User, error) {
	var resp struct {
		types.User
		Wrapped *types.User `json:"user"`
	}
	if err := c.http.Put(ctx, "/auth/profile", update, &resp); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	if resp.Wrapped != nil {
		return resp.Wrapped, nil
	}
	return &resp.User, nil
}

// ChangePassword updates the account password.
func (c *Client) ChangePassword(ctx context.Context, current, next, confirm string) error {
	body := map[string]string{
		"current_password": current,
		"new_password":     next,
		"confirm_password": confirm,
	}
	if err := c.http.Put(ctx, "/auth/change-password", body, nil); err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	return nil
}

// DeleteAccount removes the signed-in account. The service asks for the
// password again.
func (c *Client) DeleteAccount(ctx context.Context, password string) error {
	body := map[string]string{"password": password}
	if err := c.http.DeleteWithBody(ctx, "/auth/delete-account", body, nil); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

// ForgotPassword asks the service to email a reset link to email.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	if err := c.http.Post(ctx, "/auth/forgot-password", body, nil); err != nil {
		return fmt.Errorf("request password reset: %w", err)
	}
	return nil
}

// ResetPassword sets a new password using the token from a reset email.
func (c *Client) ResetPassword(ctx context.Context, token, next, confirm string) error {
	body := map[string]string{
		"token":            token,
		"new_password":     next,
		"confirm_password": confirm,
	}
	if err := c.http.Post(ctx, "/auth/reset-password", body, nil); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	return nil
}
