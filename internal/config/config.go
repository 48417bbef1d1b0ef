package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// EstimatorConfig holds the traffic model parameters shared by all collectors.
type EstimatorConfig struct {
	Capacity        int     `yaml:"capacity" toml:"capacity"`
	Warmup          int     `yaml:"warmup" toml:"warmup"`
	FreshnessWindow string  `yaml:"freshness_window" toml:"freshness_window"`
	SigmaThreshold  float64 `yaml:"sigma_threshold" toml:"sigma_threshold"`
	TimeTolerance   float64 `yaml:"time_tolerance" toml:"time_tolerance"`
	SizeTolerance   float64 `yaml:"size_tolerance" toml:"size_tolerance"`
}

// NATSConfig holds the connection to the host messaging layer.
type NATSConfig struct {
	URL           string `yaml:"url" toml:"url"`
	Name          string `yaml:"name" toml:"name"`
	ModelSubject  string `yaml:"model_subject" toml:"model_subject"`
	MaxReconnects int    `yaml:"max_reconnects" toml:"max_reconnects"`
	DrainTimeout  string `yaml:"drain_timeout" toml:"drain_timeout"`
}

// EndpointConfig binds a monitored NATS subject to the topic name its model is published under.
type EndpointConfig struct {
	Topic   string `yaml:"topic" toml:"topic"`
	Subject string `yaml:"subject" toml:"subject"`
}

// ClickHouseConfig holds the model history store settings.
type ClickHouseConfig struct {
	Enabled       bool   `yaml:"enabled" toml:"enabled"`
	Host          string `yaml:"host" toml:"host"`
	Port          int    `yaml:"port" toml:"port"`
	Database      string `yaml:"database" toml:"database"`
	Username      string `yaml:"username" toml:"username"`
	Password      string `yaml:"password" toml:"password"`
	Table         string `yaml:"table" toml:"table"`
	BatchSize     int    `yaml:"batch_size" toml:"batch_size"`
	FlushInterval string `yaml:"flush_interval" toml:"flush_interval"`
	QueueSize     int    `yaml:"queue_size" toml:"queue_size"`
}

// SnapshotConfig controls the periodic on-disk export of current models.
type SnapshotConfig struct {
	Enabled  bool   `yaml:"enabled" toml:"enabled"`
	Interval string `yaml:"interval" toml:"interval"`
	RootPath string `yaml:"root_path" toml:"root_path"`
}

// APIConfig holds the query and health endpoints.
type APIConfig struct {
	ListenAddr     string `yaml:"listen_addr" toml:"listen_addr"`
	GRPCListenAddr string `yaml:"grpc_listen_addr" toml:"grpc_listen_addr"`
}

// AlerterRule flags a model parameter that crosses a threshold. Topic "*"
// matches every endpoint.
type AlerterRule struct {
	Name      string  `yaml:"name" toml:"name"`
	Topic     string  `yaml:"topic" toml:"topic"`
	Metric    string  `yaml:"metric" toml:"metric"`
	Operator  string  `yaml:"operator" toml:"operator"`
	Threshold float64 `yaml:"threshold" toml:"threshold"`
}

// AlerterConfig controls periodic rule checks over the current models.
type AlerterConfig struct {
	Enabled       bool          `yaml:"enabled" toml:"enabled"`
	CheckInterval string        `yaml:"check_interval" toml:"check_interval"`
	Rules         []AlerterRule `yaml:"rules" toml:"rules"`
}

// SMTPConfig holds the mail relay used for alert notifications.
type SMTPConfig struct {
	Host     string `yaml:"host" toml:"host"`
	Port     int    `yaml:"port" toml:"port"`
	Username string `yaml:"username" toml:"username"`
	Password string `yaml:"password" toml:"password"`
	From     string `yaml:"from" toml:"from"`
	To       string `yaml:"to" toml:"to"`
}

// LogConfig holds the logger settings.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Estimator  EstimatorConfig  `yaml:"estimator" toml:"estimator"`
	NATS       NATSConfig       `yaml:"nats" toml:"nats"`
	Endpoints  []EndpointConfig `yaml:"endpoints" toml:"endpoints"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse" toml:"clickhouse"`
	Snapshot   SnapshotConfig   `yaml:"snapshot" toml:"snapshot"`
	API        APIConfig        `yaml:"api" toml:"api"`
	Alerter    AlerterConfig    `yaml:"alerter" toml:"alerter"`
	SMTP       SMTPConfig       `yaml:"smtp" toml:"smtp"`
	Log        LogConfig        `yaml:"log" toml:"log"`
}

// LoadConfig reads the configuration from a YAML or TOML file, chosen by
// extension, applies defaults and validates the result.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".toml":
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config TOML: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
		}
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", filePath, err)
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied and no endpoints.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Estimator.Capacity == 0 {
		c.Estimator.Capacity = 100
	}
	if c.Estimator.Warmup == 0 {
		c.Estimator.Warmup = 10
	}
	if c.Estimator.FreshnessWindow == "" {
		c.Estimator.FreshnessWindow = "15s"
	}
	if c.Estimator.SigmaThreshold == 0 {
		c.Estimator.SigmaThreshold = 3
	}
	if c.Estimator.TimeTolerance == 0 {
		c.Estimator.TimeTolerance = 1e-6
	}
	if c.Estimator.SizeTolerance == 0 {
		c.Estimator.SizeTolerance = 1e-6
	}

	if c.NATS.URL == "" {
		c.NATS.URL = "nats://127.0.0.1:4222"
	}
	if c.NATS.Name == "" {
		c.NATS.Name = "ns-estimator"
	}
	if c.NATS.ModelSubject == "" {
		c.NATS.ModelSubject = "gons.models"
	}
	if c.NATS.MaxReconnects == 0 {
		c.NATS.MaxReconnects = 60
	}
	if c.NATS.DrainTimeout == "" {
		c.NATS.DrainTimeout = "5s"
	}
	for i := range c.Endpoints {
		if c.Endpoints[i].Subject == "" {
			c.Endpoints[i].Subject = c.Endpoints[i].Topic
		}
	}

	if c.ClickHouse.Port == 0 {
		c.ClickHouse.Port = 9000
	}
	if c.ClickHouse.Database == "" {
		c.ClickHouse.Database = "default"
	}
	if c.ClickHouse.Table == "" {
		c.ClickHouse.Table = "traffic_models"
	}
	if c.ClickHouse.BatchSize == 0 {
		c.ClickHouse.BatchSize = 256
	}
	if c.ClickHouse.FlushInterval == "" {
		c.ClickHouse.FlushInterval = "5s"
	}
	if c.ClickHouse.QueueSize == 0 {
		c.ClickHouse.QueueSize = 4096
	}

	if c.Snapshot.Interval == "" {
		c.Snapshot.Interval = "1m"
	}
	if c.Snapshot.RootPath == "" {
		c.Snapshot.RootPath = "snapshots"
	}

	if c.Alerter.CheckInterval == "" {
		c.Alerter.CheckInterval = "1m"
	}
	for i := range c.Alerter.Rules {
		if c.Alerter.Rules[i].Topic == "" {
			c.Alerter.Rules[i].Topic = "*"
		}
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	if c.Estimator.Warmup < 3 {
		return fmt.Errorf("estimator.warmup must be at least 3, got %d", c.Estimator.Warmup)
	}
	if c.Estimator.Capacity < c.Estimator.Warmup {
		return fmt.Errorf("estimator.capacity (%d) must not be smaller than warmup (%d)", c.Estimator.Capacity, c.Estimator.Warmup)
	}
	if d, err := time.ParseDuration(c.Estimator.FreshnessWindow); err != nil || d <= 0 {
		return fmt.Errorf("invalid estimator.freshness_window %q", c.Estimator.FreshnessWindow)
	}
	if c.Estimator.SigmaThreshold <= 0 {
		return fmt.Errorf("estimator.sigma_threshold must be positive")
	}
	if _, err := time.ParseDuration(c.NATS.DrainTimeout); err != nil {
		return fmt.Errorf("invalid nats.drain_timeout: %w", err)
	}

	topics := make(map[string]bool, len(c.Endpoints))
	subjects := make(map[string]bool, len(c.Endpoints))
	for i, ep := range c.Endpoints {
		if ep.Topic == "" {
			return fmt.Errorf("endpoints[%d]: topic is required", i)
		}
		if topics[ep.Topic] {
			return fmt.Errorf("endpoints[%d]: duplicate topic %q", i, ep.Topic)
		}
		if subjects[ep.Subject] {
			return fmt.Errorf("endpoints[%d]: duplicate subject %q", i, ep.Subject)
		}
		topics[ep.Topic] = true
		subjects[ep.Subject] = true
	}

	if c.ClickHouse.Enabled {
		if c.ClickHouse.Host == "" {
			return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
		}
		if _, err := time.ParseDuration(c.ClickHouse.FlushInterval); err != nil {
			return fmt.Errorf("invalid clickhouse.flush_interval: %w", err)
		}
	}
	if c.Snapshot.Enabled {
		if d, err := time.ParseDuration(c.Snapshot.Interval); err != nil || d <= 0 {
			return fmt.Errorf("invalid snapshot.interval %q", c.Snapshot.Interval)
		}
	}
	if c.Alerter.Enabled {
		if d, err := time.ParseDuration(c.Alerter.CheckInterval); err != nil || d <= 0 {
			return fmt.Errorf("invalid alerter.check_interval %q", c.Alerter.CheckInterval)
		}
	}
	return nil
}

// FreshnessWindowDuration returns the parsed estimator freshness window.
func (e EstimatorConfig) FreshnessWindowDuration() time.Duration {
	d, _ := time.ParseDuration(e.FreshnessWindow)
	return d
}
