// FILE: src/internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	lconfig "github.com/lixenwraith/config"
)

type Config struct {
	Server  ServerConfig  `toml:"server"`
	Store   StoreConfig   `toml:"store"`
	Archive ArchiveConfig `toml:"archive"`
	Logging LogConfig     `toml:"logging"`
}

type ServerConfig struct {
	Port int `toml:"port"`

	// FeedLink is the channel self link and the default item link
	FeedLink string `toml:"feed_link"`

	NetLimit NetLimitConfig `toml:"net_limit"`
}

type NetLimitConfig struct {
	Enabled           bool    `toml:"enabled"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	BurstSize         int     `toml:"burst_size"`
}

type StoreConfig struct {
	// TTLSeconds bounds record lifetime in the buffer. <= 0 selects the
	// default of 3 days.
	TTLSeconds int64 `toml:"ttl_seconds"`

	// ArchiveTimeoutSeconds bounds a single archival attempt
	ArchiveTimeoutSeconds int64 `toml:"archive_timeout_seconds"`

	// SweepIntervalSeconds drives background eviction, 0 disables
	SweepIntervalSeconds int64 `toml:"sweep_interval_seconds"`
}

type ArchiveConfig struct {
	Hostname string `toml:"hostname"`
	Port     int    `toml:"port"`
	Username string `toml:"username"`

	// PrivateKeyB64 is the base64-encoded PEM private key
	PrivateKeyB64 string `toml:"private_key_b64"`

	RemotePath string `toml:"remote_path"`
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:     8001,
			FeedLink: "http://homeassistant.local:8123",
			NetLimit: NetLimitConfig{
				Enabled:           false,
				RequestsPerSecond: 50,
				BurstSize:         100,
			},
		},
		Store: StoreConfig{
			TTLSeconds:            3 * 24 * 60 * 60,
			ArchiveTimeoutSeconds: 30,
			SweepIntervalSeconds:  60,
		},
		Archive: ArchiveConfig{
			Port:       22,
			RemotePath: "/config/.addons/rss_log_feed",
		},
		Logging: *DefaultLogConfig(),
	}
}

func Load(cliArgs []string) (*Config, error) {
	configPath := GetConfigPath()

	cfg, err := lconfig.NewBuilder().
		WithDefaults(defaults()).
		WithEnvPrefix("RSSLOGFEED_").
		WithFile(configPath).
		WithArgs(cliArgs).
		WithEnvTransform(envTransform).
		WithSources(
			lconfig.SourceCLI,
			lconfig.SourceEnv,
			lconfig.SourceFile,
			lconfig.SourceDefault,
		).
		Build()

	if err != nil {
		if !strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	if err := applyAddonEnv(cfg); err != nil {
		return nil, err
	}

	finalConfig := &Config{}
	if err := cfg.Scan(finalConfig); err != nil {
		return nil, fmt.Errorf("failed to scan config: %w", err)
	}

	return finalConfig, finalConfig.validate()
}

func envTransform(path string) string {
	env := strings.ReplaceAll(path, ".", "_")
	env = strings.ToUpper(env)
	env = "RSSLOGFEED_" + env
	return env
}

func GetConfigPath() string {
	if configFile := os.Getenv("RSSLOGFEED_CONFIG_FILE"); configFile != "" {
		if filepath.IsAbs(configFile) {
			return configFile
		}
		if configDir := os.Getenv("RSSLOGFEED_CONFIG_DIR"); configDir != "" {
			return filepath.Join(configDir, configFile)
		}
		return configFile
	}

	if configDir := os.Getenv("RSSLOGFEED_CONFIG_DIR"); configDir != "" {
		return filepath.Join(configDir, "rsslogfeed.toml")
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config", "rsslogfeed.toml")
	}

	return "rsslogfeed.toml"
}

// applyAddonEnv maps the add-on's legacy environment variables onto
// config paths. The supervisor passes unset variables through as the
// literal string "null", so that value means "not configured".
func applyAddonEnv(cfg *lconfig.Config) error {
	if ttl, ok := addonEnv("LOG_TTL"); ok {
		seconds, err := strconv.ParseInt(ttl, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid LOG_TTL value %q: %w", ttl, err)
		}
		cfg.Set("store.ttl_seconds", seconds)
	}

	if host, ok := addonEnv("SFTP_HOSTNAME"); ok {
		cfg.Set("archive.hostname", host)
	}
	if user, ok := addonEnv("SFTP_USERNAME"); ok {
		cfg.Set("archive.username", user)
	}
	if key, ok := addonEnv("SFTP_B64_PKEY_STRING"); ok {
		cfg.Set("archive.private_key_b64", key)
	}

	return nil
}

func addonEnv(name string) (string, bool) {
	v := os.Getenv(name)
	if v == "" || strings.EqualFold(v, "null") {
		return "", false
	}
	return v, true
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.FeedLink == "" {
		return fmt.Errorf("feed link must not be empty")
	}

	if c.Server.NetLimit.Enabled && c.Server.NetLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("net limit requests per second must be positive: %f",
			c.Server.NetLimit.RequestsPerSecond)
	}

	if c.Store.ArchiveTimeoutSeconds < 1 {
		return fmt.Errorf("archive timeout must be positive: %d", c.Store.ArchiveTimeoutSeconds)
	}

	if c.Store.SweepIntervalSeconds < 0 {
		return fmt.Errorf("sweep interval must not be negative: %d", c.Store.SweepIntervalSeconds)
	}

	if c.Archive.Port < 0 || c.Archive.Port > 65535 {
		return fmt.Errorf("invalid SFTP port: %d", c.Archive.Port)
	}

	if c.Archive.RemotePath == "" {
		return fmt.Errorf("archive remote path must not be empty")
	}

	return validateLogConfig(&c.Logging)
}
