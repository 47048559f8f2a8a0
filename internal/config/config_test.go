package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/mailsense/mailsense/internal/analysis"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("got port %d, want 8080", cfg.Server.Port)
	}
	if cfg.Analysis.MaxContentLength != 10000 {
		t.Errorf("got max_content_length %d, want 10000", cfg.Analysis.MaxContentLength)
	}
	if !cfg.Responses.Enabled {
		t.Error("expected responses to be enabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
server:
  port: 9090
inbox:
  provider: gmail
analysis:
  max_deadlines: 0
  sentiment_deadband: 1
  keywords:
    invoice: [statement, remittance]
responses:
  enabled: false
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("got level %s, want debug", cfg.Log.Level)
	}
	if cfg.Log.Format != "text" {
		t.Errorf("got format %s, want text", cfg.Log.Format)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("got port %d, want 9090", cfg.Server.Port)
	}
	if cfg.Inbox.Server != "imap.gmail.com" {
		t.Errorf("got server %s, want imap.gmail.com", cfg.Inbox.Server)
	}
	if cfg.Analysis.MaxDeadlines != 0 {
		t.Errorf("got max_deadlines %d, want 0", cfg.Analysis.MaxDeadlines)
	}
	if cfg.Analysis.MaxActionItems != 5 {
		t.Errorf("got max_action_items %d, want 5", cfg.Analysis.MaxActionItems)
	}
	if cfg.Responses.Enabled {
		t.Error("expected responses to be disabled")
	}

	want := []string{"statement", "remittance"}
	if got := cfg.Analysis.Keywords[analysis.CategoryInvoice]; !reflect.DeepEqual(got, want) {
		t.Errorf("got invoice keywords %v, want %v", got, want)
	}

	opts := cfg.AnalysisOptions(nil)
	if opts.SentimentDeadband != 1 || opts.ResponsesEnabled {
		t.Errorf("got options %+v", opts)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, "store:\n  path: /from/file.db\n")
	t.Setenv("MAILSENSE_DB_PATH", "/from/env.db")
	t.Setenv("MAILSENSE_LOG_LEVEL", "warn")
	t.Setenv("MAILSENSE_IMAP_PASSWORD", "secret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Store.Path != "/from/env.db" {
		t.Errorf("got path %s, want /from/env.db", cfg.Store.Path)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("got level %s, want warn", cfg.Log.Level)
	}
	if cfg.Inbox.Password != "secret" {
		t.Errorf("got password %q, want secret", cfg.Inbox.Password)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [not, a, map")
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Server.Port = 7070
	cfg.Analysis.Keywords = map[analysis.Category][]string{
		analysis.CategorySupport: {"outage"},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("failed to stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("got permissions %04o, want 0600", perm)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}
	if loaded.Server.Port != 7070 {
		t.Errorf("got port %d, want 7070", loaded.Server.Port)
	}
	if got := loaded.Analysis.Keywords[analysis.CategorySupport]; !reflect.DeepEqual(got, []string{"outage"}) {
		t.Errorf("got support keywords %v", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid defaults", mutate: func(*Config) {}},
		{name: "bad log level", mutate: func(c *Config) { c.Log.Level = "trace" }, wantErr: "log: unknown level"},
		{name: "bad log format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: "log: unknown format"},
		{name: "empty store path", mutate: func(c *Config) { c.Store.Path = "" }, wantErr: "store: path"},
		{name: "port out of range", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: "server: port"},
		{name: "negative limit", mutate: func(c *Config) { c.Analysis.MaxDeadlines = -1 }, wantErr: "max_deadlines"},
		{
			name: "unknown keyword category",
			mutate: func(c *Config) {
				c.Analysis.Keywords = map[analysis.Category][]string{"spam": {"viagra"}}
			},
			wantErr: "unknown category",
		},
		{
			name: "general has no keywords",
			mutate: func(c *Config) {
				c.Analysis.Keywords = map[analysis.Category][]string{analysis.CategoryGeneral: {"hello"}}
			},
			wantErr: "unknown category",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("got %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateInbox(t *testing.T) {
	cfg := Default()
	if err := cfg.ValidateInbox(); err == nil {
		t.Error("expected error for disabled inbox")
	}

	cfg.Inbox.Enabled = true
	cfg.Inbox.Server = "imap.example.com"
	cfg.Inbox.Email = "me@example.com"
	if err := cfg.ValidateInbox(); err == nil || !strings.Contains(err.Error(), "password") {
		t.Errorf("got %v, want password error", err)
	}

	cfg.Inbox.Password = "app-password"
	if err := cfg.ValidateInbox(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
