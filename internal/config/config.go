package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/mailsense/mailsense/internal/analysis"
)

// EnvPrefix prefixes every environment override, e.g. MAILSENSE_DB_PATH
const EnvPrefix = "MAILSENSE_"

func checkFilePermissions(path string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if perm := info.Mode().Perm(); perm&0077 != 0 {
		return fmt.Errorf("config file %s has insecure permissions %04o; should be 0600", path, perm)
	}
	return nil
}

type Config struct {
	Log       LogConfig       `yaml:"log"`
	Store     StoreConfig     `yaml:"store"`
	Server    ServerConfig    `yaml:"server"`
	Inbox     InboxConfig     `yaml:"inbox,omitempty"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Responses ResponsesConfig `yaml:"responses"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`   // debug, info, warn, error
	Format string `yaml:"format" env:"LOG_FORMAT"` // text or json
}

type StoreConfig struct {
	Path             string `yaml:"path" env:"DB_PATH"`
	RecentWindowDays int    `yaml:"recent_window_days"` // Dashboard "recent activity" window
}

type ServerConfig struct {
	Host               string `yaml:"host" env:"HOST"`
	Port               int    `yaml:"port" env:"PORT"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute"` // Per client, POST routes only
}

// InboxConfig holds IMAP settings for scanning a mailbox
type InboxConfig struct {
	Enabled    bool   `yaml:"enabled" env:"IMAP_ENABLED"`
	Provider   string `yaml:"provider"`                        // "gmail", "outlook", "imap"
	Server     string `yaml:"server" env:"IMAP_SERVER"`        // e.g., "imap.gmail.com"
	Port       int    `yaml:"port" env:"IMAP_PORT"`            // e.g., 993
	Email      string `yaml:"email" env:"IMAP_EMAIL"`          // Login address
	Password   string `yaml:"password" env:"IMAP_PASSWORD"`    // App password (not main password)
	Folder     string `yaml:"folder"`                          // Folder to scan (default: "INBOX")
	UnseenOnly bool   `yaml:"unseen_only"`                     // Only fetch messages without the \Seen flag
	ScanDays   int    `yaml:"scan_days"`                       // Default look-back for scans
	ScanLimit  int    `yaml:"scan_limit"`                      // Default cap on messages per scan
	TimeoutSec int    `yaml:"timeout_sec" env:"IMAP_TIMEOUT"` // Dial timeout
}

// AnalysisConfig tunes the pipeline. Zero limits mean unlimited.
type AnalysisConfig struct {
	MaxSubjectLength  int `yaml:"max_subject_length"`
	MaxContentLength  int `yaml:"max_content_length"`
	MaxActionItems    int `yaml:"max_action_items"`
	MaxActionLength   int `yaml:"max_action_length"`
	MaxDeadlines      int `yaml:"max_deadlines"`
	PreviewLength     int `yaml:"preview_length"`
	Workers           int `yaml:"workers" env:"WORKERS"` // 0 = GOMAXPROCS
	SentimentDeadband int `yaml:"sentiment_deadband"`

	analysis.Rules `yaml:",inline"`
}

type ResponsesConfig struct {
	Enabled bool `yaml:"enabled" env:"RESPONSES_ENABLED"`
}

func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".mailsense", "config.yaml")
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "mailsense.db"
	}
	return filepath.Join(home, ".mailsense", "mailsense.db")
}

// Default returns the configuration used when no file exists
func Default() *Config {
	opts := analysis.DefaultOptions()
	return &Config{
		Log: LogConfig{Level: "info", Format: "text"},
		Store: StoreConfig{
			Path:             defaultDBPath(),
			RecentWindowDays: 7,
		},
		Server: ServerConfig{
			Host:               "127.0.0.1",
			Port:               8080,
			RateLimitPerMinute: 10,
		},
		Inbox: InboxConfig{
			Provider:   "imap",
			Port:       993,
			Folder:     "INBOX",
			ScanDays:   7,
			ScanLimit:  50,
			TimeoutSec: 30,
		},
		Analysis: AnalysisConfig{
			MaxSubjectLength:  opts.MaxSubjectLength,
			MaxContentLength:  opts.MaxContentLength,
			MaxActionItems:    opts.MaxActionItems,
			MaxActionLength:   opts.MaxActionLength,
			MaxDeadlines:      opts.MaxDeadlines,
			PreviewLength:     opts.PreviewLength,
			Workers:           opts.Workers,
			SentimentDeadband: opts.SentimentDeadband,
		},
		Responses: ResponsesConfig{Enabled: true},
	}
}

// Load reads the YAML file at path over the defaults, then applies
// MAILSENSE_* environment overrides (a .env file in the working directory
// is honored). A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := checkFilePermissions(path); err != nil {
			fmt.Fprintf(os.Stderr, "WARNING: %v\n", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	// Set inbox defaults
	if cfg.Inbox.Folder == "" {
		cfg.Inbox.Folder = "INBOX"
	}
	if cfg.Inbox.Provider == "gmail" && cfg.Inbox.Server == "" {
		cfg.Inbox.Server = "imap.gmail.com"
		cfg.Inbox.Port = 993
	}
	if cfg.Inbox.Provider == "outlook" && cfg.Inbox.Server == "" {
		cfg.Inbox.Server = "outlook.office365.com"
		cfg.Inbox.Port = 993
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = defaultDBPath()
	}

	return cfg, nil
}

func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log: unknown level %q", c.Log.Level)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log: unknown format %q (text or json)", c.Log.Format)
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store: path is required")
	}
	if c.Store.RecentWindowDays < 1 {
		return fmt.Errorf("store: recent_window_days must be at least 1")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server: port %d out of range", c.Server.Port)
	}
	if c.Server.RateLimitPerMinute < 0 {
		return fmt.Errorf("server: rate_limit_per_minute must not be negative")
	}

	a := c.Analysis
	limits := map[string]int{
		"max_subject_length": a.MaxSubjectLength,
		"max_content_length": a.MaxContentLength,
		"max_action_items":   a.MaxActionItems,
		"max_action_length":  a.MaxActionLength,
		"max_deadlines":      a.MaxDeadlines,
		"preview_length":     a.PreviewLength,
		"workers":            a.Workers,
		"sentiment_deadband": a.SentimentDeadband,
	}
	for name, v := range limits {
		if v < 0 {
			return fmt.Errorf("analysis: %s must not be negative", name)
		}
	}
	for category := range a.Keywords {
		if parsed, ok := analysis.ParseCategory(string(category)); !ok || parsed == analysis.CategoryGeneral {
			return fmt.Errorf("analysis.keywords: unknown category %q", category)
		}
	}

	return nil
}

// ValidateInbox validates inbox configuration (only called when scanning)
func (c *Config) ValidateInbox() error {
	if !c.Inbox.Enabled {
		return fmt.Errorf("inbox: scanning is not enabled in config")
	}
	if c.Inbox.Email == "" {
		return fmt.Errorf("inbox: email address is required")
	}
	if c.Inbox.Password == "" {
		return fmt.Errorf("inbox: password (app password) is required")
	}
	if c.Inbox.Server == "" {
		return fmt.Errorf("inbox: IMAP server is required")
	}
	if c.Inbox.Port == 0 {
		return fmt.Errorf("inbox: IMAP port is required")
	}
	return nil
}

// AnalysisOptions converts the analysis and responses sections into pipeline options
func (c *Config) AnalysisOptions(logger *slog.Logger) analysis.Options {
	a := c.Analysis
	return analysis.Options{
		Rules:             a.Rules,
		MaxSubjectLength:  a.MaxSubjectLength,
		MaxContentLength:  a.MaxContentLength,
		MaxActionItems:    a.MaxActionItems,
		MaxActionLength:   a.MaxActionLength,
		MaxDeadlines:      a.MaxDeadlines,
		PreviewLength:     a.PreviewLength,
		Workers:           a.Workers,
		SentimentDeadband: a.SentimentDeadband,
		ResponsesEnabled:  c.Responses.Enabled,
		Logger:            logger,
	}
}
