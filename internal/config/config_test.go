package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_YAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
estimator:
  warmup: 5
  freshness_window: 30s
nats:
  url: nats://broker:4222
endpoints:
  - topic: /chatter
    subject: gons.topics.chatter
  - topic: gons.topics.imu
clickhouse:
  enabled: true
  host: ch
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Estimator.Warmup)
	assert.Equal(t, 100, cfg.Estimator.Capacity)
	assert.Equal(t, 30*time.Second, cfg.Estimator.FreshnessWindowDuration())
	assert.Equal(t, 3.0, cfg.Estimator.SigmaThreshold)
	assert.Equal(t, "nats://broker:4222", cfg.NATS.URL)
	assert.Equal(t, "gons.models", cfg.NATS.ModelSubject)
	require.Len(t, cfg.Endpoints, 2)
	assert.Equal(t, "gons.topics.imu", cfg.Endpoints[1].Subject, "subject defaults to topic")
	assert.True(t, cfg.ClickHouse.Enabled)
	assert.Equal(t, 9000, cfg.ClickHouse.Port)
	assert.Equal(t, "traffic_models", cfg.ClickHouse.Table)
}

func TestLoadConfig_TOML(t *testing.T) {
	path := writeFile(t, "config.toml", `
[estimator]
capacity = 50
warmup = 8

[log]
level = "debug"
format = "json"

[[endpoints]]
topic = "/odom"
subject = "gons.topics.odom"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Estimator.Capacity)
	assert.Equal(t, 8, cfg.Estimator.Warmup)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	require.Len(t, cfg.Endpoints, 1)
	assert.Equal(t, "gons.topics.odom", cfg.Endpoints[0].Subject)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"small warmup", "estimator:\n  warmup: 2\n"},
		{"capacity below warmup", "estimator:\n  capacity: 5\n  warmup: 10\n"},
		{"bad freshness", "estimator:\n  freshness_window: soon\n"},
		{"duplicate topic", "endpoints:\n  - topic: /a\n    subject: a\n  - topic: /a\n    subject: b\n"},
		{"duplicate subject", "endpoints:\n  - topic: /a\n    subject: x\n  - topic: /b\n    subject: x\n"},
		{"clickhouse without host", "clickhouse:\n  enabled: true\n"},
		{"alerter bad interval", "alerter:\n  enabled: true\n  check_interval: never\n"},
		{"malformed yaml", "estimator: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeFile(t, "config.yaml", tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_ShippedExample(t *testing.T) {
	cfg, err := LoadConfig("../../configs/config.yaml")
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Endpoints)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 15*time.Second, cfg.Estimator.FreshnessWindowDuration())
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfig_AlerterDefaults(t *testing.T) {
	path := writeFile(t, "config.yaml", `
alerter:
  enabled: true
  rules:
    - name: jitter
      metric: jitter_ratio
      operator: ">"
      threshold: 0.2
smtp:
  host: mail.example.com
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "1m", cfg.Alerter.CheckInterval)
	require.Len(t, cfg.Alerter.Rules, 1)
	assert.Equal(t, "*", cfg.Alerter.Rules[0].Topic)
	assert.Equal(t, 587, cfg.SMTP.Port)
}
