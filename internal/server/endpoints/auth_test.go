package endpoints

import (
	"net/http"
	"os"
	"testing"

	"github.com/jackzampolin/wikibook/internal/testutil"
)

func TestLoginEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		req      LoginRequest
		wantCode int
	}{
		{"valid credentials", LoginRequest{Email: testutil.BackendEmail, Password: testutil.BackendPassword}, http.StatusOK},
		{"wrong password", LoginRequest{Email: testutil.BackendEmail, Password: "nope"}, http.StatusUnauthorized},
		{"missing password", LoginRequest{Email: testutil.BackendEmail}, http.StatusBadRequest},
		{"missing email", LoginRequest{Password: testutil.BackendPassword}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := testutil.NewEnv(t)
			ts := newTestHandler(t, env)

			var resp SessionResponse
			code := doJSON(t, "POST", ts.URL+"/api/auth/login", tt.req, &resp)
			if code != tt.wantCode {
				t.Fatalf("status = %d, want %d", code, tt.wantCode)
			}

			signedIn := tt.wantCode == http.StatusOK
			if env.Services.Session.LoggedIn() != signedIn {
				t.Errorf("LoggedIn() = %v, want %v", env.Services.Session.LoggedIn(), signedIn)
			}
			if !signedIn {
				return
			}
			if !resp.SignedIn || resp.User == nil || resp.User.Email != testutil.BackendEmail {
				t.Errorf("response = %+v, want signed in as %s", resp, testutil.BackendEmail)
			}
			if _, err := os.Stat(env.Home.SessionPath()); err != nil {
				t.Errorf("session file not written: %v", err)
			}
		})
	}
}

func TestRegisterEndpoint(t *testing.T) {
	env := testutil.NewEnv(t)
	ts := newTestHandler(t, env)

	t.Run("mismatched passwords", func(t *testing.T) {
		req := RegisterRequest{Email: testutil.BackendEmail, Password: "a", ConfirmPassword: "b"}
		if code := doJSON(t, "POST", ts.URL+"/api/auth/register", req, nil); code != http.StatusBadRequest {
			t.Fatalf("status = %d, want %d", code, http.StatusBadRequest)
		}
	})

	t.Run("registers and signs in", func(t *testing.T) {
		req := RegisterRequest{
			Email:           testutil.BackendEmail,
			Password:        testutil.BackendPassword,
			ConfirmPassword: testutil.BackendPassword,
		}
		var resp SessionResponse
		if code := doJSON(t, "POST", ts.URL+"/api/auth/register", req, &resp); code != http.StatusOK {
			t.Fatalf("status = %d, want %d", code, http.StatusOK)
		}
		if !resp.SignedIn {
			t.Error("SignedIn = false, want true")
		}
	})
}

func TestGoogleLoginEndpoint(t *testing.T) {
	env := testutil.NewEnv(t)
	ts := newTestHandler(t, env)

	if code := doJSON(t, "POST", ts.URL+"/api/auth/google", GoogleRequest{Credential: "forged"}, nil); code != http.StatusBadRequest {
		t.Errorf("forged credential status = %d, want %d", code, http.StatusBadRequest)
	}
	if env.Services.Session.LoggedIn() {
		t.Fatal("signed in with a forged credential")
	}

	var resp SessionResponse
	if code := doJSON(t, "POST", ts.URL+"/api/auth/google", GoogleRequest{Credential: testutil.BackendCredential}, &resp); code != http.StatusOK {
		t.Fatalf("status = %d, want %d", code, http.StatusOK)
	}
	if resp.User == nil || resp.User.Provider != "google" {
		t.Errorf("User = %+v, want a google user", resp.User)
	}
}

func TestSessionAndLogout(t *testing.T) {
	env := testutil.NewEnv(t)
	ts := newTestHandler(t, env)

	var resp SessionResponse
	doJSON(t, "GET", ts.URL+"/api/auth/session", nil, &resp)
	if resp.SignedIn {
		t.Fatal("SignedIn = true before login")
	}

	env.SignIn(t)
	doJSON(t, "GET", ts.URL+"/api/auth/session", nil, &resp)
	if !resp.SignedIn || resp.User == nil {
		t.Fatalf("session = %+v, want signed in", resp)
	}

	resp = SessionResponse{}
	if code := doJSON(t, "POST", ts.URL+"/api/auth/logout", nil, &resp); code != http.StatusOK {
		t.Fatalf("logout status = %d, want %d", code, http.StatusOK)
	}
	if resp.SignedIn || env.Services.Session.LoggedIn() {
		t.Error("still signed in after logout")
	}
	if _, err := os.Stat(env.Home.SessionPath()); !os.IsNotExist(err) {
		t.Errorf("session file remains after logout: %v", err)
	}
}
