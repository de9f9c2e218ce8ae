package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the minimal bootstrap configuration for one engine.Engine
// instance.
type Config struct {
	Pool      PoolConfig      `yaml:"pool"`
	Timeouts  TimeoutConfig   `yaml:"timeouts"`
	TLS       TLSConfig       `yaml:"tls"`
	Admission AdmissionConfig `yaml:"admission"`
	Verbose   bool            `yaml:"verbose"`
}

// PoolConfig sizes the handle pool.
type PoolConfig struct {
	MaxRequestsCount int `yaml:"max_requests_count"`
}

// TimeoutConfig holds the per-request timeout defaults applied when a
// submission doesn't set its own.
type TimeoutConfig struct {
	ConnectSeconds  int `yaml:"connect_seconds"`
	TransferSeconds int `yaml:"transfer_seconds"`
}

// TLSConfig holds certificate verification settings.
type TLSConfig struct {
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
	CABundlePath       string `yaml:"ca_bundle_path"`
}

// AdmissionConfig configures the optional token-bucket admission limiter.
// Capacity == 0 disables it.
type AdmissionConfig struct {
	Capacity            int64 `yaml:"capacity"`
	RefillRate          int64 `yaml:"refill_rate"`
	RefillIntervalMilli int64 `yaml:"refill_interval_millis"`
}

// ConnectTimeout renders TimeoutConfig.ConnectSeconds as a time.Duration.
func (t TimeoutConfig) ConnectTimeout() time.Duration {
	return time.Duration(t.ConnectSeconds) * time.Second
}

// TransferTimeout renders TimeoutConfig.TransferSeconds as a time.Duration.
func (t TimeoutConfig) TransferTimeout() time.Duration {
	return time.Duration(t.TransferSeconds) * time.Second
}

// RefillInterval renders AdmissionConfig.RefillIntervalMilli as a
// time.Duration.
func (a AdmissionConfig) RefillInterval() time.Duration {
	return time.Duration(a.RefillIntervalMilli) * time.Millisecond
}

// Load reads config from a YAML file with graceful fallback. Returns default
// config if the file doesn't exist or is malformed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		// File doesn't exist - use defaults
		return DefaultConfig(), nil
	}

	var cfg Config
	// Try to parse YAML, but be resilient to bad formatting
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		// YAML parsing failed - use defaults
		return DefaultConfig(), nil
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()

	return &cfg, nil
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	cfg := &Config{
		Pool: PoolConfig{
			MaxRequestsCount: getEnvInt("NETENGINE_MAX_REQUESTS", 32),
		},
		Timeouts: TimeoutConfig{
			ConnectSeconds:  getEnvInt("NETENGINE_CONNECT_TIMEOUT_SECONDS", 10),
			TransferSeconds: getEnvInt("NETENGINE_TRANSFER_TIMEOUT_SECONDS", 60),
		},
		TLS: TLSConfig{
			InsecureSkipVerify: getEnvBool("NETENGINE_INSECURE_SKIP_VERIFY", false),
			CABundlePath:       getEnv("NETENGINE_CA_BUNDLE_PATH", ""),
		},
		Admission: AdmissionConfig{
			Capacity:            int64(getEnvInt("NETENGINE_ADMISSION_CAPACITY", 0)),
			RefillRate:          int64(getEnvInt("NETENGINE_ADMISSION_REFILL_RATE", 0)),
			RefillIntervalMilli: int64(getEnvInt("NETENGINE_ADMISSION_REFILL_INTERVAL_MS", 1000)),
		},
		Verbose: getEnvBool("NETENGINE_VERBOSE", false),
	}
	return cfg
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("NETENGINE_MAX_REQUESTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Pool.MaxRequestsCount = n
		}
	}
	if v := os.Getenv("NETENGINE_CONNECT_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Timeouts.ConnectSeconds = n
		}
	}
	if v := os.Getenv("NETENGINE_TRANSFER_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Timeouts.TransferSeconds = n
		}
	}
	if v := os.Getenv("NETENGINE_INSECURE_SKIP_VERIFY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.TLS.InsecureSkipVerify = b
		}
	}
	if v := os.Getenv("NETENGINE_CA_BUNDLE_PATH"); v != "" {
		c.TLS.CABundlePath = v
	}
	if v := os.Getenv("NETENGINE_ADMISSION_CAPACITY"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Admission.Capacity = n
		}
	}
	if v := os.Getenv("NETENGINE_ADMISSION_REFILL_RATE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Admission.RefillRate = n
		}
	}
	if v := os.Getenv("NETENGINE_ADMISSION_REFILL_INTERVAL_MS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Admission.RefillIntervalMilli = n
		}
	}
	if v := os.Getenv("NETENGINE_VERBOSE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Verbose = b
		}
	}
}

// applyDefaults fills in missing values with defaults.
func (c *Config) applyDefaults() {
	if c.Pool.MaxRequestsCount == 0 {
		c.Pool.MaxRequestsCount = 32
	}
	if c.Timeouts.ConnectSeconds == 0 {
		c.Timeouts.ConnectSeconds = 10
	}
	if c.Timeouts.TransferSeconds == 0 {
		c.Timeouts.TransferSeconds = 60
	}
	if c.Admission.RefillIntervalMilli == 0 {
		c.Admission.RefillIntervalMilli = 1000
	}
}

// getEnv gets environment variable or returns default.
func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// getEnvInt gets environment variable as int or returns default.
func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvBool gets environment variable as bool or returns default.
func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}
