package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// ConfigPathEnv names the environment variable that selects the config file.
const ConfigPathEnv = "CONFIG_PATH"

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	LibraryNames []string       `toml:"library_names"`
	Jellyfin     JellyfinConfig `toml:"jellyfin"`
	AniList      AniListConfig  `toml:"anilist"`
	Webhook      WebhookConfig  `toml:"webhook"`
	Sonarr       SonarrConfig   `toml:"sonarr"`
	Sync         SyncConfig     `toml:"sync"`
	Ledger       LedgerConfig   `toml:"ledger"`
	Database     DatabaseConfig `toml:"database"`
	Log          LogConfig      `toml:"log"`
}

// JellyfinConfig contains the media server address and API key.
type JellyfinConfig struct {
	ServerURL string `toml:"server_url"`
	APIKey    string `toml:"api_key"`
}

// AniListConfig contains catalog tokens and per-user sync policies, keyed by Jellyfin username.
type AniListConfig struct {
	GlobalToken       string            `toml:"global_token"`
	ClientID          string            `toml:"client_id"`
	ClientSecret      string            `toml:"client_secret"`
	RedirectURI       string            `toml:"redirect_uri"`
	RequestsPerMinute int               `toml:"requests_per_minute"`
	UserTokens        map[string]string `toml:"user_tokens"`
	UserAutoAdd       map[string]bool   `toml:"user_auto_add"`
	UserBulkUpdate    map[string]bool   `toml:"user_bulk_update"`
}

// WebhookConfig contains HTTP listener settings.
type WebhookConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns the host:port listen address.
func (w WebhookConfig) Addr() string {
	return fmt.Sprintf("%s:%d", w.Host, w.Port)
}

// SonarrConfig controls the optional /sonarr endpoint.
type SonarrConfig struct {
	Enabled         bool   `toml:"enabled"`
	APIKey          string `toml:"api_key"`
	RefreshJellyfin bool   `toml:"refresh_jellyfin"`
}

// SyncConfig holds engine timing.
type SyncConfig struct {
	Pacing           time.Duration `toml:"pacing"`
	RateLimitBackoff time.Duration `toml:"rate_limit_backoff"`
}

// LedgerConfig selects where unresolved series are recorded.
type LedgerConfig struct {
	Backend string `toml:"backend"`
	Path    string `toml:"path"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LogConfig sets the default log level.
type LogConfig struct {
	Level string `toml:"level"`
}

// LoadConfig reads a TOML configuration file and overlays it on the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile writes the embedded example config to path. It refuses to overwrite an existing file.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, exampleConf, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig encodes config as TOML and writes it to path.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ConfigPath picks the config file: an explicitly set flag wins, then CONFIG_PATH, then the flag default.
func ConfigPath(flagValue string, explicit bool) string {
	if explicit {
		return flagValue
	}
	if env := os.Getenv(ConfigPathEnv); env != "" {
		return env
	}
	return flagValue
}

// ApplyEnv overrides secrets from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("JELLYFIN_URL"); v != "" {
		c.Jellyfin.ServerURL = v
	}
	if v := os.Getenv("JELLYFIN_API_KEY"); v != "" {
		c.Jellyfin.APIKey = v
	}
	if v := os.Getenv("ANILIST_TOKEN"); v != "" {
		c.AniList.GlobalToken = v
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Jellyfin.ServerURL == "" {
		return fmt.Errorf("%w: jellyfin.server_url is required", ErrInvalidConfig)
	}
	if u, err := url.Parse(c.Jellyfin.ServerURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: jellyfin.server_url %q is not an absolute URL", ErrInvalidConfig, c.Jellyfin.ServerURL)
	}
	if c.Webhook.Port <= 0 || c.Webhook.Port > 65535 {
		return fmt.Errorf("%w: webhook.port %d out of range", ErrInvalidConfig, c.Webhook.Port)
	}
	switch c.Ledger.Backend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("%w: ledger.backend must be \"file\" or \"sqlite\", got %q", ErrInvalidConfig, c.Ledger.Backend)
	}
	if c.Ledger.Backend == "file" && c.Ledger.Path == "" {
		return fmt.Errorf("%w: ledger.path is required for the file backend", ErrInvalidConfig)
	}
	if c.Sync.Pacing < 0 || c.Sync.RateLimitBackoff < 0 {
		return fmt.Errorf("%w: sync durations must not be negative", ErrInvalidConfig)
	}
	if c.AniList.RequestsPerMinute < 0 {
		return fmt.Errorf("%w: anilist.requests_per_minute must not be negative", ErrInvalidConfig)
	}
	return nil
}

// TokenForUser returns the user's AniList token, falling back to the global token.
func (c *Config) TokenForUser(username string) (string, bool) {
	if token, ok := c.AniList.UserTokens[username]; ok && token != "" {
		return token, true
	}
	if c.AniList.GlobalToken != "" {
		return c.AniList.GlobalToken, true
	}
	return "", false
}

// AutoAddForUser reports whether missing list entries may be created for username. Defaults to true.
func (c *Config) AutoAddForUser(username string) bool {
	if v, ok := c.AniList.UserAutoAdd[username]; ok {
		return v
	}
	return true
}

// BulkUpdateForUser reports whether a login should trigger a library sync. Defaults to false.
func (c *Config) BulkUpdateForUser(username string) bool {
	if v, ok := c.AniList.UserBulkUpdate[username]; ok {
		return v
	}
	return false
}

// SetUserToken stores an AniList token for username.
func (c *Config) SetUserToken(username, token string) {
	if c.AniList.UserTokens == nil {
		c.AniList.UserTokens = make(map[string]string)
	}
	c.AniList.UserTokens[username] = token
}
