package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atikulmunna/geotail/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(config.LogPathEnv, "")

	c, err := config.Load(config.DefaultViper())
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, c.PollInterval)
	assert.Equal(t, "offset", c.Strategy)
	assert.Equal(t, 5, c.Top)
	assert.Equal(t, "text", c.Output)
	assert.Equal(t, config.ProviderIPAPI, c.Geo.Provider)
	assert.Equal(t, "http://ip-api.com/json/", c.Geo.Endpoint)
	assert.Equal(t, 3*time.Second, c.Geo.Timeout)
	assert.Nil(t, c.SkipPrivate)

	_, err = c.RequireLogPath()
	assert.ErrorIs(t, err, config.ErrNoLogPath)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv(config.LogPathEnv, "/var/log/nginx/access.log")
	t.Setenv("GEOTAIL_POLL_INTERVAL", "2s")
	t.Setenv("GEOTAIL_GEO_TIMEOUT", "500ms")
	t.Setenv("GEOTAIL_SKIP_PRIVATE", "true")

	c, err := config.Load(config.DefaultViper())
	require.NoError(t, err)

	path, err := c.RequireLogPath()
	require.NoError(t, err)
	assert.Equal(t, "/var/log/nginx/access.log", path)
	assert.Equal(t, 2*time.Second, c.PollInterval)
	assert.Equal(t, 500*time.Millisecond, c.Geo.Timeout)
	assert.True(t, c.SkipPrivateOr(false))
}

func TestReadFile(t *testing.T) {
	t.Setenv(config.LogPathEnv, "")

	path := filepath.Join(t.TempDir(), "geotail.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_path: /srv/access.log
strategy: rescan
skip_private: false
geo:
  provider: none
`), 0o644))

	vip := config.DefaultViper()
	require.NoError(t, config.ReadFile(vip, path))

	c, err := config.Load(vip)
	require.NoError(t, err)

	assert.Equal(t, "/srv/access.log", c.LogPath)
	assert.Equal(t, "rescan", c.Strategy)
	assert.Equal(t, config.ProviderNone, c.Geo.Provider)
	require.NotNil(t, c.SkipPrivate)
	assert.False(t, c.SkipPrivateOr(true))
}

func TestReadFile_Missing(t *testing.T) {
	vip := config.DefaultViper()
	assert.Error(t, config.ReadFile(vip, filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestLoadDotEnv(t *testing.T) {
	t.Setenv(config.LogPathEnv, "")
	os.Unsetenv(config.LogPathEnv)
	t.Setenv("GEOTAIL_TOP", "7")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("NGINX_LOG_PATH=/from/dotenv.log\nGEOTAIL_TOP=3\n"), 0o644))

	require.NoError(t, config.LoadDotEnv(path))

	c, err := config.Load(config.DefaultViper())
	require.NoError(t, err)

	assert.Equal(t, "/from/dotenv.log", c.LogPath)
	assert.Equal(t, 7, c.Top, "existing environment wins over .env")
}

func TestLoadDotEnv_Missing(t *testing.T) {
	assert.NoError(t, config.LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
}

func TestValidate(t *testing.T) {
	t.Setenv(config.LogPathEnv, "")

	tests := []struct {
		testName string
		mutate   func(c *config.Config)
		key      string
	}{
		{"strategy", func(c *config.Config) { c.Strategy = "inotify" }, "strategy"},
		{"output", func(c *config.Config) { c.Output = "xml" }, "output"},
		{"grammar", func(c *config.Config) { c.Grammar = "apache" }, "grammar"},
		{"provider", func(c *config.Config) { c.Geo.Provider = "maxmind" }, "geo.provider"},
		{"ip2location without db", func(c *config.Config) { c.Geo.Provider = config.ProviderIP2Location }, "geo.db_path"},
		{"poll interval", func(c *config.Config) { c.PollInterval = 0 }, "poll_interval"},
		{"top", func(c *config.Config) { c.Top = -1 }, "top"},
	}

	for _, tt := range tests {
		t.Run(tt.testName, func(t *testing.T) {
			c, err := config.Load(config.DefaultViper())
			require.NoError(t, err)

			tt.mutate(&c)
			err = c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key+":")
		})
	}
}

func TestValidate_Valid(t *testing.T) {
	t.Setenv(config.LogPathEnv, "")

	c, err := config.Load(config.DefaultViper())
	require.NoError(t, err)

	c.Grammar = "loose"
	c.Geo.Provider = config.ProviderIP2Location
	c.Geo.DBPath = "/srv/IP2LOCATION-LITE-DB3.BIN"
	assert.NoError(t, c.Validate())
}

func TestValidate_ReportsEveryKey(t *testing.T) {
	t.Setenv(config.LogPathEnv, "")

	c, err := config.Load(config.DefaultViper())
	require.NoError(t, err)

	c.Strategy = "inotify"
	c.Top = 0

	err = c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strategy: unknown value \"inotify\"")
	assert.Contains(t, err.Error(), "top: must be positive")
}
