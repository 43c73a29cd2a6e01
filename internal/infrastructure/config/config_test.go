package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
database:
  path: "/tmp/hublink-test.db"
  wal_mode: true
  busy_timeout: 5
api:
  host: "127.0.0.1"
  port: 9001
hub:
  request_timeout: 15
  insecure_tls: false
mqtt:
  enabled: true
  broker:
    host: "broker.local"
    port: 1883
    client_id: "hublink-test"
  qos: 1
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/tmp/hublink-test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/hublink-test.db")
	}
	if cfg.API.Port != 9001 {
		t.Errorf("API.Port = %d, want 9001", cfg.API.Port)
	}
	if cfg.Hub.RequestTimeout != 15 {
		t.Errorf("Hub.RequestTimeout = %d, want 15", cfg.Hub.RequestTimeout)
	}
	if !cfg.MQTT.Enabled {
		t.Error("MQTT.Enabled = false, want true")
	}
	if cfg.MQTT.Broker.Host != "broker.local" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "broker.local")
	}
}

func TestLoad_DefaultsPreserved(t *testing.T) {
	// A minimal file keeps the defaults for everything it omits.
	cfg, err := Load(writeConfig(t, `database: {path: "/tmp/x.db"}`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, want loopback default", cfg.API.Host)
	}
	if cfg.Hub.RequestTimeout != 30 {
		t.Errorf("Hub.RequestTimeout = %d, want 30", cfg.Hub.RequestTimeout)
	}
	if cfg.MQTT.Enabled {
		t.Error("MQTT.Enabled = true, want disabled by default")
	}
	if cfg.MQTT.DiscoveryPrefix != "homeassistant" {
		t.Errorf("MQTT.DiscoveryPrefix = %q, want %q", cfg.MQTT.DiscoveryPrefix, "homeassistant")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty database path", `database: {path: ""}`},
		{"bad api port", "database: {path: \"/tmp/x.db\"}\napi: {port: 99999}"},
		{"bad qos", "database: {path: \"/tmp/x.db\"}\nmqtt: {qos: 7}"},
		{"influx enabled without url", "database: {path: \"/tmp/x.db\"}\ninfluxdb: {enabled: true}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Errorf("Load() expected validation error, got nil")
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HUBLINK_DATABASE_PATH", "/tmp/env-override.db")
	t.Setenv("HUBLINK_MQTT_PASSWORD", "secret-from-env")

	cfg, err := Load(writeConfig(t, `database: {path: "/tmp/file.db"}`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/tmp/env-override.db" {
		t.Errorf("Database.Path = %q, want env override", cfg.Database.Path)
	}
	if cfg.MQTT.Auth.Password != "secret-from-env" {
		t.Errorf("MQTT.Auth.Password not taken from environment")
	}
}
