package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Pool.MaxRequestsCount != 32 {
		t.Errorf("expected max requests count 32, got %d", cfg.Pool.MaxRequestsCount)
	}
	if cfg.Timeouts.ConnectSeconds != 10 {
		t.Errorf("expected connect timeout 10s, got %d", cfg.Timeouts.ConnectSeconds)
	}
	if cfg.Timeouts.TransferSeconds != 60 {
		t.Errorf("expected transfer timeout 60s, got %d", cfg.Timeouts.TransferSeconds)
	}
	if cfg.TLS.InsecureSkipVerify {
		t.Errorf("expected InsecureSkipVerify false by default")
	}
}

func TestLoadNonExistentFile(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Should return default config
	if cfg.Pool.MaxRequestsCount != 32 {
		t.Errorf("expected default max requests count 32, got %d", cfg.Pool.MaxRequestsCount)
	}
}

func TestLoadValidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yaml := `
pool:
  max_requests_count: 64
timeouts:
  connect_seconds: 5
  transfer_seconds: 30
tls:
  insecure_skip_verify: true
admission:
  capacity: 100
  refill_rate: 10
  refill_interval_millis: 500
verbose: true
`

	if err := os.WriteFile(configPath, []byte(yaml), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.Pool.MaxRequestsCount != 64 {
		t.Errorf("expected max requests count 64, got %d", cfg.Pool.MaxRequestsCount)
	}
	if cfg.Timeouts.ConnectSeconds != 5 {
		t.Errorf("expected connect timeout 5s, got %d", cfg.Timeouts.ConnectSeconds)
	}
	if !cfg.TLS.InsecureSkipVerify {
		t.Errorf("expected InsecureSkipVerify true")
	}
	if cfg.Admission.Capacity != 100 {
		t.Errorf("expected admission capacity 100, got %d", cfg.Admission.Capacity)
	}
	if !cfg.Verbose {
		t.Errorf("expected verbose true")
	}
}

func TestLoadBadlyFormattedYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "bad.yaml")

	// Badly formatted YAML (tabs instead of spaces, inconsistent indentation)
	badYAML := `
pool:
	max_requests_count: 64
  timeouts:
connect_seconds: 5
	transfer_seconds: not-a-number
`

	if err := os.WriteFile(configPath, []byte(badYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("expected no error (graceful fallback), got %v", err)
	}

	// Should fall back to defaults
	if cfg.Pool.MaxRequestsCount != 32 {
		t.Errorf("expected default max requests count 32, got %d", cfg.Pool.MaxRequestsCount)
	}
}

func TestEnvOverrides(t *testing.T) {
	os.Setenv("NETENGINE_MAX_REQUESTS", "16")
	os.Setenv("NETENGINE_CONNECT_TIMEOUT_SECONDS", "3")
	os.Setenv("NETENGINE_INSECURE_SKIP_VERIFY", "true")
	os.Setenv("NETENGINE_ADMISSION_CAPACITY", "50")

	defer func() {
		os.Unsetenv("NETENGINE_MAX_REQUESTS")
		os.Unsetenv("NETENGINE_CONNECT_TIMEOUT_SECONDS")
		os.Unsetenv("NETENGINE_INSECURE_SKIP_VERIFY")
		os.Unsetenv("NETENGINE_ADMISSION_CAPACITY")
	}()

	cfg := DefaultConfig()

	if cfg.Pool.MaxRequestsCount != 16 {
		t.Errorf("expected max requests count 16, got %d", cfg.Pool.MaxRequestsCount)
	}
	if cfg.Timeouts.ConnectSeconds != 3 {
		t.Errorf("expected connect timeout 3s, got %d", cfg.Timeouts.ConnectSeconds)
	}
	if !cfg.TLS.InsecureSkipVerify {
		t.Errorf("expected InsecureSkipVerify true")
	}
	if cfg.Admission.Capacity != 50 {
		t.Errorf("expected admission capacity 50, got %d", cfg.Admission.Capacity)
	}
}

func TestEnvOverridesYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yaml := `
pool:
  max_requests_count: 64
timeouts:
  connect_seconds: 5
`

	if err := os.WriteFile(configPath, []byte(yaml), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Environment variables should override YAML
	os.Setenv("NETENGINE_MAX_REQUESTS", "8")
	defer os.Unsetenv("NETENGINE_MAX_REQUESTS")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Pool size should be from env, not YAML
	if cfg.Pool.MaxRequestsCount != 8 {
		t.Errorf("expected max requests count 8 (from env), got %d", cfg.Pool.MaxRequestsCount)
	}
	// Connect timeout should be from YAML
	if cfg.Timeouts.ConnectSeconds != 5 {
		t.Errorf("expected connect timeout 5s (from YAML), got %d", cfg.Timeouts.ConnectSeconds)
	}
}
