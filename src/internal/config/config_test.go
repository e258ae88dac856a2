// FILE: src/internal/config/config_test.go
package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("RSSLOGFEED_CONFIG_DIR", t.TempDir())

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, 8001, cfg.Server.Port)
	assert.Equal(t, "http://homeassistant.local:8123", cfg.Server.FeedLink)
	assert.Equal(t, int64(3*24*60*60), cfg.Store.TTLSeconds)
	assert.Equal(t, 22, cfg.Archive.Port)
	assert.Equal(t, "/config/.addons/rss_log_feed", cfg.Archive.RemotePath)
	assert.Empty(t, cfg.Archive.Hostname)
}

func TestLoad_AddonEnv(t *testing.T) {
	t.Run("TTLOverride", func(t *testing.T) {
		t.Setenv("RSSLOGFEED_CONFIG_DIR", t.TempDir())
		t.Setenv("LOG_TTL", "120")

		cfg, err := Load(nil)
		require.NoError(t, err)
		assert.Equal(t, int64(120), cfg.Store.TTLSeconds)
	})

	t.Run("NullSentinelKeepsDefault", func(t *testing.T) {
		t.Setenv("RSSLOGFEED_CONFIG_DIR", t.TempDir())
		t.Setenv("LOG_TTL", "null")
		t.Setenv("SFTP_HOSTNAME", "null")

		cfg, err := Load(nil)
		require.NoError(t, err)
		assert.Equal(t, int64(3*24*60*60), cfg.Store.TTLSeconds)
		assert.Empty(t, cfg.Archive.Hostname)
	})

	t.Run("InvalidTTL", func(t *testing.T) {
		t.Setenv("RSSLOGFEED_CONFIG_DIR", t.TempDir())
		t.Setenv("LOG_TTL", "three days")

		_, err := Load(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "LOG_TTL")
	})

	t.Run("SFTPCredentials", func(t *testing.T) {
		t.Setenv("RSSLOGFEED_CONFIG_DIR", t.TempDir())
		t.Setenv("SFTP_HOSTNAME", "homeassistant.local")
		t.Setenv("SFTP_USERNAME", "addon")
		t.Setenv("SFTP_B64_PKEY_STRING", "c2VjcmV0")

		cfg, err := Load(nil)
		require.NoError(t, err)
		assert.Equal(t, "homeassistant.local", cfg.Archive.Hostname)
		assert.Equal(t, "addon", cfg.Archive.Username)
		assert.Equal(t, "c2VjcmV0", cfg.Archive.PrivateKeyB64)
	})
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return defaults()
	}

	t.Run("Defaults", func(t *testing.T) {
		assert.NoError(t, valid().validate())
	})

	t.Run("BadServerPort", func(t *testing.T) {
		cfg := valid()
		cfg.Server.Port = 0
		assert.Error(t, cfg.validate())
	})

	t.Run("EmptyFeedLink", func(t *testing.T) {
		cfg := valid()
		cfg.Server.FeedLink = ""
		assert.Error(t, cfg.validate())
	})

	t.Run("NetLimitEnabledWithoutRate", func(t *testing.T) {
		cfg := valid()
		cfg.Server.NetLimit.Enabled = true
		cfg.Server.NetLimit.RequestsPerSecond = 0
		assert.Error(t, cfg.validate())
	})

	t.Run("BadArchiveTimeout", func(t *testing.T) {
		cfg := valid()
		cfg.Store.ArchiveTimeoutSeconds = 0
		assert.Error(t, cfg.validate())
	})

	t.Run("EmptyRemotePath", func(t *testing.T) {
		cfg := valid()
		cfg.Archive.RemotePath = ""
		assert.Error(t, cfg.validate())
	})

	t.Run("BadLogOutput", func(t *testing.T) {
		cfg := valid()
		cfg.Logging.Output = "syslog"
		assert.Error(t, cfg.validate())
	})
}

func TestGetConfigPath(t *testing.T) {
	t.Run("ExplicitFile", func(t *testing.T) {
		t.Setenv("RSSLOGFEED_CONFIG_FILE", "/etc/rsslogfeed.toml")
		assert.Equal(t, "/etc/rsslogfeed.toml", GetConfigPath())
	})

	t.Run("FileInDir", func(t *testing.T) {
		t.Setenv("RSSLOGFEED_CONFIG_FILE", "custom.toml")
		t.Setenv("RSSLOGFEED_CONFIG_DIR", "/opt/cfg")
		assert.Equal(t, filepath.Join("/opt/cfg", "custom.toml"), GetConfigPath())
	})

	t.Run("DirOnly", func(t *testing.T) {
		t.Setenv("RSSLOGFEED_CONFIG_FILE", "")
		t.Setenv("RSSLOGFEED_CONFIG_DIR", "/opt/cfg")
		assert.Equal(t, filepath.Join("/opt/cfg", "rsslogfeed.toml"), GetConfigPath())
	})
}

func TestAddonEnv(t *testing.T) {
	t.Setenv("TEST_ADDON_VAR", "value")
	v, ok := addonEnv("TEST_ADDON_VAR")
	assert.True(t, ok)
	assert.Equal(t, "value", v)

	t.Setenv("TEST_ADDON_VAR", "NULL")
	_, ok = addonEnv("TEST_ADDON_VAR")
	assert.False(t, ok)

	t.Setenv("TEST_ADDON_VAR", "")
	_, ok = addonEnv("TEST_ADDON_VAR")
	assert.False(t, ok)
}
