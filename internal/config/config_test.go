package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config is invalid: %v", err)
	}
	if cfg.Poll.Interval() != 10*time.Second || cfg.Poll.MaxAttempts != 30 {
		t.Errorf("poll = %+v", cfg.Poll)
	}
	if len(cfg.Wiki.ExcludeCategories) == 0 {
		t.Error("expected default excluded categories")
	}
	if cfg.Server.Addr() != "127.0.0.1:8080" {
		t.Errorf("Addr() = %s", cfg.Server.Addr())
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{
			name:    "missing backend",
			mutate:  func(c *Config) { c.Backend.BaseURL = "" },
			wantErr: "backend.base_url: is required",
		},
		{
			name:    "relative wiki url",
			mutate:  func(c *Config) { c.Wiki.RestURL = "/w/rest.php" },
			wantErr: "wiki.rest_url",
		},
		{
			name:    "bad content base",
			mutate:  func(c *Config) { c.Backend.ContentBaseURL = "ftp://files" },
			wantErr: "backend.content_base_url",
		},
		{
			name:    "zero attempts",
			mutate:  func(c *Config) { c.Poll.MaxAttempts = 0 },
			wantErr: "poll.max_attempts",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		t.Setenv("TEST_BACKEND_HOST", "pdf.example.org")

		result := ResolveEnvVars("https://${TEST_BACKEND_HOST}/api")
		if result != "https://pdf.example.org/api" {
			t.Errorf("expected resolved url, got %s", result)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		result := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}")
		if result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		result := ResolveEnvVars("literal-value")
		if result != "literal-value" {
			t.Errorf("expected literal-value, got %s", result)
		}
	})
}

func TestNewManager(t *testing.T) {
	t.Run("loads from config file", func(t *testing.T) {
		configFile := filepath.Join(t.TempDir(), "config.yaml")
		configContent := `
backend:
  base_url: https://pdf.example.org/api
wiki:
  exclude_categories: [spam]
poll:
  max_attempts: 5
`
		if err := os.WriteFile(configFile, []byte(configContent), 0o644); err != nil {
			t.Fatal(err)
		}

		mgr, err := NewManager(configFile)
		if err != nil {
			t.Fatalf("NewManager() error = %v", err)
		}
		cfg := mgr.Get()
		if cfg.Backend.BaseURL != "https://pdf.example.org/api" {
			t.Errorf("BaseURL = %s", cfg.Backend.BaseURL)
		}
		if !reflect.DeepEqual(cfg.Wiki.ExcludeCategories, []string{"spam"}) {
			t.Errorf("ExcludeCategories = %v", cfg.Wiki.ExcludeCategories)
		}
		if cfg.Poll.MaxAttempts != 5 || cfg.Poll.IntervalSeconds != 10 {
			t.Errorf("Poll = %+v", cfg.Poll)
		}
		if cfg.Server.Port != "8080" {
			t.Errorf("default not applied: Port = %s", cfg.Server.Port)
		}
		if mgr.ConfigFile() != configFile {
			t.Errorf("ConfigFile() = %s", mgr.ConfigFile())
		}
	})

	t.Run("missing file uses defaults", func(t *testing.T) {
		mgr, err := NewManager(filepath.Join(t.TempDir(), "absent.yaml"))
		if err != nil {
			t.Fatalf("NewManager() error = %v", err)
		}
		if mgr.Get().Backend.BaseURL != DefaultConfig().Backend.BaseURL {
			t.Errorf("BaseURL = %s", mgr.Get().Backend.BaseURL)
		}
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("WIKIBOOK_BACKEND_BASE_URL", "http://localhost:3001/api")
		t.Setenv("WIKIBOOK_POLL_INTERVAL_SECONDS", "2")

		mgr, err := NewManager(filepath.Join(t.TempDir(), "absent.yaml"))
		if err != nil {
			t.Fatal(err)
		}
		cfg := mgr.Get()
		if cfg.Backend.BaseURL != "http://localhost:3001/api" {
			t.Errorf("BaseURL = %s", cfg.Backend.BaseURL)
		}
		if cfg.Poll.Interval() != 2*time.Second {
			t.Errorf("Interval() = %s", cfg.Poll.Interval())
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		configFile := filepath.Join(t.TempDir(), "config.yaml")
		os.WriteFile(configFile, []byte("backend: [unclosed"), 0o644)
		if _, err := NewManager(configFile); err == nil {
			t.Error("expected error for invalid yaml")
		}
	})
}

func TestManager_OnChange_Multiple(t *testing.T) {
	mgr, err := NewManager(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}

	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})

	mgr.mu.RLock()
	count := len(mgr.callbacks)
	mgr.mu.RUnlock()

	if count != 3 {
		t.Errorf("expected 3 callbacks, got %d", count)
	}
}

func TestManager_WatchConfig(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configFile, []byte("book:\n  default_title: First\n"), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	if got := mgr.Get().Book.DefaultTitle; got != "First" {
		t.Errorf("initial title = %s", got)
	}

	var callbackCount atomic.Int32
	var lastValue atomic.Value
	mgr.OnChange(func(cfg *Config) {
		callbackCount.Add(1)
		lastValue.Store(cfg.Book.DefaultTitle)
	})

	mgr.WatchConfig()

	// Give fsnotify time to set up the watcher
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(configFile, []byte("book:\n  default_title: Second\n"), 0o644); err != nil {
		t.Fatalf("failed to write updated config file: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if v, _ := lastValue.Load().(string); v == "Second" {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if callbackCount.Load() == 0 {
		t.Error("callback was not invoked after config file change")
	}
	if got := mgr.Get().Book.DefaultTitle; got != "Second" {
		t.Errorf("config not updated: got %s", got)
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# wikibook configuration") {
		t.Error("missing header")
	}

	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("written config does not load: %v", err)
	}
	got, want := mgr.Get(), DefaultConfig()
	if got.Backend != want.Backend || got.Poll != want.Poll || got.Render != want.Render || got.Server != want.Server {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
	if !reflect.DeepEqual(got.Wiki.ExcludeCategories, want.Wiki.ExcludeCategories) {
		t.Errorf("ExcludeCategories = %v", got.Wiki.ExcludeCategories)
	}
}
