package config

import (
	"os"
	"testing"
	"time"
)

const schemaPath = "../../schemas/device.cue"

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	tmpFile := "test-device.yaml"
	t.Cleanup(func() { os.Remove(tmpFile) })
	if err := os.WriteFile(tmpFile, []byte(yaml), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return tmpFile
}

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	if cfg.DeviceName != "SmartNode" {
		t.Errorf("device name = %q", cfg.DeviceName)
	}
	if cfg.WiFi.ConnectTimeout != 20*time.Second || cfg.WiFi.ReconnectInterval != 30*time.Second {
		t.Errorf("unexpected wifi timing: %+v", cfg.WiFi)
	}
	if cfg.WiFi.MaxReconnects != 5 {
		t.Errorf("max_reconnects = %d", cfg.WiFi.MaxReconnects)
	}
	if cfg.AccessPoint.Address != "192.168.4.1" || cfg.AccessPoint.DNSPort != 53 {
		t.Errorf("unexpected access point: %+v", cfg.AccessPoint)
	}
	if cfg.Telemetry.UpdateInterval != 2*time.Second || cfg.Telemetry.HistorySize != 50 {
		t.Errorf("unexpected telemetry: %+v", cfg.Telemetry)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadConfig_Valid(t *testing.T) {
	tmpFile := writeConfig(t, `
device_name: Greenhouse Node
wifi:
  connect_timeout: 12s
  max_reconnects: 3
telemetry:
  update_interval: 1s
  history_size: 20
  temperature:
    base: 18.5
`)

	cfg, err := Load(tmpFile, schemaPath)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.DeviceName != "Greenhouse Node" {
		t.Errorf("device name = %q", cfg.DeviceName)
	}
	if cfg.WiFi.ConnectTimeout != 12*time.Second {
		t.Errorf("connect_timeout = %v", cfg.WiFi.ConnectTimeout)
	}
	if cfg.WiFi.MaxReconnects != 3 {
		t.Errorf("max_reconnects = %d", cfg.WiFi.MaxReconnects)
	}
	if cfg.Telemetry.Temperature.Base != 18.5 {
		t.Errorf("temperature base = %f", cfg.Telemetry.Temperature.Base)
	}
	// Omitted fields keep their defaults.
	if cfg.AccessPoint.SSIDPrefix != "SmartNode-" {
		t.Errorf("ssid_prefix = %q", cfg.AccessPoint.SSIDPrefix)
	}
	if cfg.Telemetry.Humidity.Base != 45.0 {
		t.Errorf("humidity base = %f", cfg.Telemetry.Humidity.Base)
	}
}

func TestLoadConfig_ShippedDefaults(t *testing.T) {
	cfg, err := Load("../../config/device.yaml", schemaPath)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("shipped config should validate: %v", err)
	}
}

func TestLoadConfig_SchemaViolation(t *testing.T) {
	tmpFile := writeConfig(t, `
access_point:
  channel: 99
`)
	if _, err := Load(tmpFile, schemaPath); err == nil {
		t.Fatalf("expected schema error for out-of-range channel")
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := Load("no-such-file.yaml", schemaPath); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestValidateBounds(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*DeviceConfig)
	}{
		{"short device name", func(c *DeviceConfig) { c.DeviceName = "ab" }},
		{"long device name", func(c *DeviceConfig) { c.DeviceName = "0123456789012345678901234567890123" }},
		{"tiny history", func(c *DeviceConfig) { c.Telemetry.HistorySize = 5 }},
		{"zero update interval", func(c *DeviceConfig) { c.Telemetry.UpdateInterval = 0 }},
		{"zero connect timeout", func(c *DeviceConfig) { c.WiFi.ConnectTimeout = 0 }},
		{"recharge threshold above 100", func(c *DeviceConfig) { c.Telemetry.Battery.RechargeThreshold = 120 }},
		{"motion probability above 1", func(c *DeviceConfig) { c.Telemetry.Motion.Probability = 1.5 }},
	}
	for _, tc := range cases {
		cfg := Default()
		tc.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}
