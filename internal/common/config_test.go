package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig_IsValid(t *testing.T) {
	config := NewDefaultConfig()

	require.NoError(t, config.Validate())
	assert.Equal(t, 3, config.Crawler.MaxConcurrency)
	assert.Equal(t, "1s", config.Crawler.Stagger)
	assert.Equal(t, "2s", config.Crawler.RequestDelay)
	assert.Equal(t, 150, config.Session.MaxAttempts)
	assert.Equal(t, "336h", config.Cache.TTL)
	assert.Equal(t, 6, config.Discovery.ScrollThreshold)
	assert.Equal(t, 10, config.Discovery.MaxScrolls)
}

func TestLoadFromFiles_LaterFilesOverride(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.toml")
	override := filepath.Join(dir, "override.toml")

	require.NoError(t, os.WriteFile(base, []byte(`
[crawler]
max_concurrency = 2
request_delay = "5s"

[cache]
ttl = "24h"
`), 0644))
	require.NoError(t, os.WriteFile(override, []byte(`
[crawler]
max_concurrency = 1
`), 0644))

	config, err := LoadFromFiles(base, override)
	require.NoError(t, err)

	assert.Equal(t, 1, config.Crawler.MaxConcurrency)
	assert.Equal(t, "5s", config.Crawler.RequestDelay)
	assert.Equal(t, "24h", config.Cache.TTL)
	assert.Equal(t, "30s", config.Crawler.NavigationTimeout, "unset values keep defaults")
}

func TestLoadFromFiles_MissingFile(t *testing.T) {
	_, err := LoadFromFiles(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoadFromFiles_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gleaner.toml")
	require.NoError(t, os.WriteFile(path, []byte("[browser]\ndriver = \"chromedp\"\n"), 0644))

	t.Setenv("GLEANER_BROWSER_DRIVER", "playwright")
	t.Setenv("GLEANER_CRAWLER_MAX_CONCURRENCY", "2")
	t.Setenv("GLEANER_CACHE_ENABLED", "false")

	config, err := LoadFromFiles(path)
	require.NoError(t, err)

	assert.Equal(t, "playwright", config.Browser.Driver)
	assert.Equal(t, 2, config.Crawler.MaxConcurrency)
	assert.False(t, config.Cache.Enabled)
}

func TestApplyFlagOverrides(t *testing.T) {
	config := NewDefaultConfig()

	ApplyFlagOverrides(config, 0, "")
	assert.Equal(t, 8086, config.Server.Port)

	ApplyFlagOverrides(config, 9000, "0.0.0.0")
	assert.Equal(t, 9000, config.Server.Port)
	assert.Equal(t, "0.0.0.0", config.Server.Host)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown driver", func(c *Config) { c.Browser.Driver = "webkit" }},
		{"zero concurrency", func(c *Config) { c.Crawler.MaxConcurrency = 0 }},
		{"bad duration", func(c *Config) { c.Crawler.Stagger = "soon" }},
		{"bad ttl", func(c *Config) { c.Cache.TTL = "" }},
		{"search url without placeholder", func(c *Config) { c.Site.SearchURL = "https://host/search" }},
		{"bad cron", func(c *Config) { c.Cache.SweepSchedule = "every day" }},
		{"unknown content format", func(c *Config) { c.Crawler.ContentFormat = "pdf" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := NewDefaultConfig()
			tt.mutate(config)
			assert.Error(t, config.Validate())
		})
	}
}

func TestParseDurationOr(t *testing.T) {
	assert.Equal(t, "2s", ParseDurationOr("2s", 0).String())
	assert.Equal(t, "5s", ParseDurationOr("", 5e9).String())
	assert.Equal(t, "5s", ParseDurationOr("bogus", 5e9).String())
}

func TestLoadFromFiles_LocalDeploymentMatchesDefaults(t *testing.T) {
	config, err := LoadFromFiles(filepath.Join("..", "..", "deployments", "local", "gleaner.toml"))
	require.NoError(t, err)
	require.NoError(t, config.Validate())

	defaults := NewDefaultConfig()
	applyEnvOverrides(defaults)
	assert.Equal(t, defaults.Crawler, config.Crawler)
	assert.Equal(t, defaults.Discovery, config.Discovery)
	assert.Equal(t, defaults.Cache, config.Cache)
	assert.Equal(t, defaults.Server.WriteTimeout, config.Server.WriteTimeout)
}
