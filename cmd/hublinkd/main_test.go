package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	originalEnv := os.Getenv("HUBLINK_CONFIG")
	defer os.Setenv("HUBLINK_CONFIG", originalEnv)

	os.Setenv("HUBLINK_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_MissingDatabasePath verifies run fails when database path is empty.
func TestRun_MissingDatabasePath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	configContent := `
database:
  path: ""
  wal_mode: true
  busy_timeout: 5

mqtt:
  enabled: false

influxdb:
  enabled: false

logging:
  level: error
  format: text
  output: stderr

api:
  host: "127.0.0.1"
  port: 18428
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("HUBLINK_CONFIG")
	defer os.Setenv("HUBLINK_CONFIG", originalEnv)
	os.Setenv("HUBLINK_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with empty database path")
	}
}

// TestRun_CleanShutdown starts the full daemon with optional transports
// disabled and verifies a context cancellation produces a clean exit.
func TestRun_CleanShutdown(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")
	dbPath := filepath.Join(tmpDir, "hublink.db")

	configContent := `
database:
  path: "` + dbPath + `"
  wal_mode: true
  busy_timeout: 5

mqtt:
  enabled: false

influxdb:
  enabled: false

logging:
  level: error
  format: text
  output: stderr

api:
  host: "127.0.0.1"
  port: 18429
  timeouts:
    read: 5
    write: 5
    idle: 10
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("HUBLINK_CONFIG")
	defer os.Setenv("HUBLINK_CONFIG", originalEnv)
	os.Setenv("HUBLINK_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Fatalf("run() error = %v, want clean shutdown", err)
	}

	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	originalEnv := os.Getenv("HUBLINK_CONFIG")
	defer os.Setenv("HUBLINK_CONFIG", originalEnv)

	os.Unsetenv("HUBLINK_CONFIG")

	path := getConfigPath()
	if path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	originalEnv := os.Getenv("HUBLINK_CONFIG")
	defer os.Setenv("HUBLINK_CONFIG", originalEnv)

	expected := "/custom/path/config.yaml"
	os.Setenv("HUBLINK_CONFIG", expected)

	path := getConfigPath()
	if path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}
