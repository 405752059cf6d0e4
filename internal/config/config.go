package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Store selects the metadata store backend.
type Store struct {
	Driver string `toml:"driver"` // sqlite or postgres
	DSN    string `toml:"dsn"`    // postgres only; sqlite lives under paths.data_dir
}

// TMS contains connection settings for the remote translation service.
type TMS struct {
	BaseURL        string `toml:"base_url"`
	APIToken       string `toml:"api_token"`
	ProjectID      string `toml:"project_id"`
	WorkflowID     string `toml:"workflow_id"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	UserAgent      string `toml:"user_agent"`
}

// Content describes the host's language setup.
type Content struct {
	SourceLocale   string   `toml:"source_locale"`
	TargetLocales  []string `toml:"target_locales"`
	DefaultProfile string   `toml:"default_profile"`
}

// LanguageOverride adjusts a profile for a single locale. Unset fields inherit
// the profile's top-level values; the override only applies when Overrides is "custom".
type LanguageOverride struct {
	Overrides    string `toml:"overrides"`
	AutoUpload   *bool  `toml:"auto_upload"`
	AutoDownload *bool  `toml:"auto_download"`
	Enabled      *bool  `toml:"enabled"`
}

// Profile is a named automation policy.
type Profile struct {
	AutoUpload        bool                        `toml:"auto_upload"`
	AutoDownload      bool                        `toml:"auto_download"`
	LanguageOverrides map[string]LanguageOverride `toml:"language_overrides"`
}

// Webhook configures the inbound notification endpoint.
type Webhook struct {
	Secret             string `toml:"secret"`
	DedupWindowSeconds int    `toml:"dedup_window_seconds"`
	MaxBodyBytes       int64  `toml:"max_body_bytes"`
}

// Locking selects how per-unit mutations are serialized.
type Locking struct {
	Backend       string `toml:"backend"` // local or redis
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	KeyPrefix     string `toml:"key_prefix"`
	TTLSeconds    int    `toml:"ttl_seconds"`
	WaitSeconds   int    `toml:"wait_seconds"`
}

// Events configures the outbound status-change stream. Disabled when Brokers is empty.
type Events struct {
	Brokers []string `toml:"brokers"`
	Topic   string   `toml:"topic"`
}

// Notifications contains configuration for ntfy operator alerts.
type Notifications struct {
	NtfyTopic          string `toml:"ntfy_topic"`
	RequestTimeout     int    `toml:"request_timeout"`
	Ready              bool   `toml:"ready"`
	Errors             bool   `toml:"errors"`
	DedupWindowSeconds int    `toml:"dedup_window_seconds"`
}

// Metrics controls the Prometheus endpoint.
type Metrics struct {
	Enabled bool `toml:"enabled"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for tmsbridge.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories, API bind address and token
//   - Store: metadata store driver
//   - TMS: remote translation service connection
//   - Content: source locale, enabled target locales, default profile
//   - Profiles: named automation profiles with per-locale overrides
//   - Webhook: inbound notification endpoint settings
//   - Locking: per-unit lock backend
//   - Events: Kafka status-change stream
//   - Notifications: ntfy operator alerts
//   - Metrics: Prometheus endpoint
//   - Logging: log format and level
type Config struct {
	Paths         Paths              `toml:"paths"`
	Store         Store              `toml:"store"`
	TMS           TMS                `toml:"tms"`
	Content       Content            `toml:"content"`
	Profiles      map[string]Profile `toml:"profiles"`
	Webhook       Webhook            `toml:"webhook"`
	Locking       Locking            `toml:"locking"`
	Events        Events             `toml:"events"`
	Notifications Notifications      `toml:"notifications"`
	Metrics       Metrics            `toml:"metrics"`
	Logging       Logging            `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/tmsbridge/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and locales normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("tmsbridge.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon and CLI operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// StorePath returns the SQLite database location.
func (c *Config) StorePath() string {
	return filepath.Join(c.Paths.DataDir, "tmsbridge.db")
}

// LockPath returns the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "tmsbridge.lock")
}

// TMSTimeout bounds every outbound TMS call.
func (c *Config) TMSTimeout() time.Duration {
	return time.Duration(c.TMS.TimeoutSeconds) * time.Second
}

// DedupWindow returns how long identical webhook deliveries are collapsed.
func (c *Config) DedupWindow() time.Duration {
	return time.Duration(c.Webhook.DedupWindowSeconds) * time.Second
}

// LockTTL returns the expiry of a distributed unit lock.
func (c *Config) LockTTL() time.Duration {
	return time.Duration(c.Locking.TTLSeconds) * time.Second
}

// LockWait returns how long an action waits for a busy unit.
func (c *Config) LockWait() time.Duration {
	return time.Duration(c.Locking.WaitSeconds) * time.Second
}

// ProfileFor returns the profile id a new unit should carry when the caller
// did not choose one.
func (c *Config) ProfileFor(requested string) string {
	if id := strings.TrimSpace(requested); id != "" {
		return id
	}
	return c.Content.DefaultProfile
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
