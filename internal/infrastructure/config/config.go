package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the notice daemon.
// All configuration is loaded from YAML and can be overridden by environment variables.
//
// The MQTT client record (server, client id, topic, token) is not part of this
// file; it is edited at runtime through the command API and persisted by the
// store package.
type Config struct {
	Storage       StorageConfig       `yaml:"storage"`
	MQTT          MQTTConfig          `yaml:"mqtt"`
	API           APIConfig           `yaml:"api"`
	WebSocket     WebSocketConfig     `yaml:"websocket"`
	InfluxDB      InfluxDBConfig      `yaml:"influxdb"`
	Logging       LoggingConfig       `yaml:"logging"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Security      SecurityConfig      `yaml:"security"`
}

// StorageConfig contains local persistence settings.
type StorageConfig struct {
	// Dir is the application data directory holding config.json and the history.
	// Defaults to <user config dir>/notice.
	Dir string `yaml:"dir"`

	// HistoryBackend selects the message history store: "json" or "sqlite".
	HistoryBackend string `yaml:"history_backend"`

	// Database is used when HistoryBackend is "sqlite".
	Database DatabaseConfig `yaml:"database"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains transport settings that are not part of the client record.
type MQTTConfig struct {
	// AutoConnect connects to the broker as soon as the daemon starts.
	AutoConnect bool          `yaml:"auto_connect"`
	TLS         MQTTTLSConfig `yaml:"tls"`
}

// MQTTTLSConfig tunes certificate verification for ssl:// and wss:// brokers.
type MQTTTLSConfig struct {
	CAFile             string `yaml:"ca_file"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// NotificationsConfig controls what happens locally when a message arrives.
type NotificationsConfig struct {
	// Desktop enables OS notification popups.
	Desktop bool `yaml:"desktop"`

	// DefaultTitle replaces an empty message title.
	DefaultTitle string `yaml:"default_title"`

	// MaxPerMinute throttles desktop popups. 0 disables throttling.
	MaxPerMinute int `yaml:"max_per_minute"`

	// Burst is the number of popups allowed back to back before throttling applies.
	Burst int `yaml:"burst"`

	// Exec is an optional command run for every message.
	// The message is passed through NOTICE_* environment variables and stdin.
	Exec string `yaml:"exec"`

	// ExecTimeout bounds a single exec hook run (seconds).
	ExecTimeout int `yaml:"exec_timeout"`

	// RecordHistory appends every received message to the message history.
	RecordHistory bool `yaml:"record_history"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	// APISecret enables bearer-token authentication on the HTTP API when set.
	APISecret string `yaml:"api_secret"`

	// TokenTTL is the lifetime of tokens minted by "noticed token" (minutes).
	TokenTTL int `yaml:"token_ttl"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// A missing file is not an error: the daemon runs on defaults so a fresh
// install works without any setup.
//
// Environment variables follow the pattern: NOTICE_SECTION_KEY
// For example: NOTICE_STORAGE_DIR, NOTICE_API_PORT
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if cfg.Storage.Database.Path == "" {
		cfg.Storage.Database.Path = filepath.Join(cfg.Storage.Dir, "messages.db")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Dir:            defaultDataDir(),
			HistoryBackend: "json",
			Database: DatabaseConfig{
				WALMode:     true,
				BusyTimeout: 5,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    9095,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Notifications: NotificationsConfig{
			Desktop:       true,
			DefaultTitle:  "Notice",
			MaxPerMinute:  30,
			Burst:         5,
			ExecTimeout:   30,
			RecordHistory: true,
		},
		Security: SecurityConfig{
			TokenTTL: 60 * 24 * 30,
		},
	}
}

// defaultDataDir returns <user config dir>/notice, falling back to ./data.
func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(dir, "notice")
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: NOTICE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Storage
	if v := os.Getenv("NOTICE_STORAGE_DIR"); v != "" {
		cfg.Storage.Dir = v
	}
	if v := os.Getenv("NOTICE_HISTORY_BACKEND"); v != "" {
		cfg.Storage.HistoryBackend = v
	}

	// API
	if v := os.Getenv("NOTICE_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("NOTICE_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// Logging
	if v := os.Getenv("NOTICE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// InfluxDB
	if v := os.Getenv("NOTICE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Security
	if v := os.Getenv("NOTICE_API_SECRET"); v != "" {
		cfg.Security.APISecret = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Storage.Dir == "" {
		errs = append(errs, "storage.dir is required")
	}
	switch c.Storage.HistoryBackend {
	case "json", "sqlite":
	default:
		errs = append(errs, "storage.history_backend must be json or sqlite")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.Notifications.MaxPerMinute < 0 {
		errs = append(errs, "notifications.max_per_minute cannot be negative")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	const minSecretLength = 32
	if c.Security.APISecret != "" && len(c.Security.APISecret) < minSecretLength {
		errs = append(errs, "security.api_secret must be at least 32 characters")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetExecTimeout returns the exec hook timeout as a Duration.
func (c *Config) GetExecTimeout() time.Duration {
	return time.Duration(c.Notifications.ExecTimeout) * time.Second
}
