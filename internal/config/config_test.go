package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigYAML = `
server:
  environment: test
database:
  postgres:
    host: localhost
    port: 5432
    database: badges
    user: badges
    password: secret
    ssl_mode: disable
  redis:
    enabled: true
    host: localhost
    port: 6379
    cache_ttl: 120
engine:
  workers: 8
  queue_size: 512
  handler_timeout: 15
scheduler:
  enabled: true
  resync_cron: "0 4 * * *"
  timezone: America/Argentina/Buenos_Aires
metrics:
  enabled: true
  port: 9090
  path: /metrics
logging:
  level: debug
  format: json
  output: stdout
`

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeTestConfig(t, testConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Server.Environment)
	assert.Equal(t, "localhost", cfg.Database.Postgres.Host)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.True(t, cfg.Database.Redis.Enabled)
	assert.Equal(t, 8, cfg.Engine.Workers)
	assert.Equal(t, 512, cfg.Engine.QueueSize)
	assert.Equal(t, "0 4 * * *", cfg.Scheduler.ResyncCron)
	assert.Equal(t, 9090, cfg.Metrics.Port)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("ENGINE_WORKERS", "2")

	cfg, err := Load(writeTestConfig(t, testConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Postgres.Host)
	assert.Equal(t, 2, cfg.Engine.Workers)
}

func TestLoadMissingRequired(t *testing.T) {
	_, err := Load(writeTestConfig(t, `
database:
  postgres:
    port: 5432
`))
	assert.Error(t, err)
}

func TestValidateRedisHost(t *testing.T) {
	cfg := &Config{}
	cfg.Database.Postgres.Host = "localhost"
	cfg.Database.Postgres.Database = "badges"
	cfg.Database.Postgres.User = "badges"
	cfg.Database.Redis.Enabled = true

	assert.Error(t, cfg.Validate())

	cfg.Database.Redis.Host = "localhost"
	assert.NoError(t, cfg.Validate())
}

func TestCacheTTLDuration(t *testing.T) {
	c := RedisConfig{CacheTTL: 120}
	assert.Equal(t, 2*time.Minute, c.CacheTTLDuration())

	// Default when unset.
	c = RedisConfig{}
	assert.Equal(t, 5*time.Minute, c.CacheTTLDuration())
}

func TestGetLocation(t *testing.T) {
	c := SchedulerConfig{Timezone: "America/Argentina/Buenos_Aires"}
	loc, err := c.GetLocation()
	require.NoError(t, err)
	assert.Equal(t, "America/Argentina/Buenos_Aires", loc.String())

	c.Timezone = "Not/AZone"
	_, err = c.GetLocation()
	assert.Error(t, err)
}
