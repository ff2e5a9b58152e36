package endpoints

import (
	"net/http"
	"testing"

	"github.com/jackzampolin/wikibook/internal/config"
	"github.com/jackzampolin/wikibook/internal/testutil"
)

func TestListSettingsEndpoint(t *testing.T) {
	env := testutil.NewEnv(t)
	ts := newTestHandler(t, env)

	var all SettingsResponse
	if code := doJSON(t, "GET", ts.URL+"/api/settings", nil, &all); code != http.StatusOK {
		t.Fatalf("status = %d, want %d", code, http.StatusOK)
	}
	if _, ok := all.Settings["poll.max_attempts"]; !ok {
		t.Error("poll.max_attempts missing from settings")
	}

	var wiki SettingsResponse
	doJSON(t, "GET", ts.URL+"/api/settings?prefix=wiki.", nil, &wiki)
	if len(wiki.Settings) == 0 || len(wiki.Settings) >= len(all.Settings) {
		t.Fatalf("prefix returned %d of %d settings", len(wiki.Settings), len(all.Settings))
	}
	for key := range wiki.Settings {
		if key[:5] != "wiki." {
			t.Errorf("unexpected key %q for prefix wiki.", key)
		}
	}
}

func TestGetSettingEndpoint(t *testing.T) {
	env := testutil.NewEnv(t)
	ts := newTestHandler(t, env)

	tests := []struct {
		name       string
		key        string
		wantCode   int
		wantSource config.Source
	}{
		{"default", "book.default_title", http.StatusOK, config.SourceDefault},
		{"unknown", "book.nothing", http.StatusNotFound, ""},
		{"invalid key", "book.title%21", http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp SettingResponse
			code := doJSON(t, "GET", ts.URL+"/api/settings/"+tt.key, nil, &resp)
			if code != tt.wantCode {
				t.Fatalf("status = %d, want %d", code, tt.wantCode)
			}
			if tt.wantSource == "" {
				return
			}
			if resp.Entry == nil || resp.Entry.Source != tt.wantSource {
				t.Errorf("Entry = %+v, want source %s", resp.Entry, tt.wantSource)
			}
		})
	}
}

func TestUpdateAndResetSetting(t *testing.T) {
	env := testutil.NewEnv(t)
	ts := newTestHandler(t, env)

	var resp SettingResponse
	code := doJSON(t, "PUT", ts.URL+"/api/settings/book.default_title", UpdateSettingRequest{Value: "Field Notes"}, &resp)
	if code != http.StatusOK {
		t.Fatalf("update status = %d, want %d", code, http.StatusOK)
	}
	if resp.Entry == nil || resp.Entry.Value != "Field Notes" || resp.Entry.Source != config.SourceFile {
		t.Fatalf("Entry = %+v, want Field Notes from file", resp.Entry)
	}

	stored, err := env.Services.ConfigStore.Get(t.Context(), "book.default_title")
	if err != nil {
		t.Fatal(err)
	}
	if stored.Value != "Field Notes" {
		t.Errorf("stored value = %v, want Field Notes", stored.Value)
	}

	resp = SettingResponse{}
	if code := doJSON(t, "POST", ts.URL+"/api/settings/reset/book.default_title", nil, &resp); code != http.StatusOK {
		t.Fatalf("reset status = %d, want %d", code, http.StatusOK)
	}
	if resp.Entry == nil || resp.Entry.Source != config.SourceDefault {
		t.Errorf("Entry after reset = %+v, want default", resp.Entry)
	}

	if code := doJSON(t, "POST", ts.URL+"/api/settings/reset/book.nothing", nil, nil); code != http.StatusNotFound {
		t.Errorf("reset unknown status = %d, want %d", code, http.StatusNotFound)
	}
}

func TestUpdateSettingEndpoint_Rejects(t *testing.T) {
	env := testutil.NewEnv(t)
	ts := newTestHandler(t, env)

	tests := []struct {
		name  string
		key   string
		value any
	}{
		{"value of wrong type", "poll.max_attempts", "many"},
		{"unknown key", "book.nothing", "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var errResp ErrorResponse
			code := doJSON(t, "PUT", ts.URL+"/api/settings/"+tt.key, UpdateSettingRequest{Value: tt.value}, &errResp)
			if code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", code, http.StatusBadRequest)
			}
			if errResp.Error == "" {
				t.Error("error message is empty")
			}
		})
	}
}
