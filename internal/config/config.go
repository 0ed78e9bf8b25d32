// YAML config loader with CUE schema validation
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// AccessPoint holds the self-hosted setup network settings.
type AccessPoint struct {
	SSIDPrefix string `yaml:"ssid_prefix"`
	Password   string `yaml:"password"`
	Channel    int    `yaml:"channel"`
	Hidden     bool   `yaml:"hidden"`
	MaxClients int    `yaml:"max_clients"`
	Address    string `yaml:"address"`
	DNSPort    int    `yaml:"dns_port"`
}

// WiFi holds client-mode connection and reconnection settings.
type WiFi struct {
	ConnectTimeout    time.Duration `yaml:"connect_timeout"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
	MaxReconnects     uint          `yaml:"max_reconnects"`
}

// Channel configures one continuous telemetry channel.
type Channel struct {
	Enabled   bool    `yaml:"enabled"`
	Base      float64 `yaml:"base"`
	Variation float64 `yaml:"variation"`
	Noise     float64 `yaml:"noise"`
}

// Motion configures the simulated motion sensor.
type Motion struct {
	Enabled     bool          `yaml:"enabled"`
	Probability float64       `yaml:"probability"`
	Duration    time.Duration `yaml:"duration"`
}

// Battery configures the battery drain/recharge model.
type Battery struct {
	Enabled           bool    `yaml:"enabled"`
	DrainRate         float64 `yaml:"drain_rate"`
	RechargeThreshold float64 `yaml:"recharge_threshold"`
	RechargeRate      float64 `yaml:"recharge_rate"`
}

// Telemetry holds the sampling and retention settings.
type Telemetry struct {
	UpdateInterval time.Duration `yaml:"update_interval"`
	StatsInterval  time.Duration `yaml:"stats_interval"`
	HistorySize    int           `yaml:"history_size"`
	Temperature    Channel       `yaml:"temperature"`
	Humidity       Channel       `yaml:"humidity"`
	Pressure       Channel       `yaml:"pressure"`
	Light          Channel       `yaml:"light"`
	Motion         Motion        `yaml:"motion"`
	Battery        Battery       `yaml:"battery"`
}

// Admin holds the presentation-layer listen settings.
type Admin struct {
	Listen string `yaml:"listen"`
}

// DeviceConfig is the root configuration for one smart node.
type DeviceConfig struct {
	DeviceName  string      `yaml:"device_name"`
	StorePath   string      `yaml:"store_path"`
	AccessPoint AccessPoint `yaml:"access_point"`
	WiFi        WiFi        `yaml:"wifi"`
	Telemetry   Telemetry   `yaml:"telemetry"`
	Admin       Admin       `yaml:"admin"`
}

// Default returns the built-in device configuration.
func Default() *DeviceConfig {
	return &DeviceConfig{
		DeviceName: "SmartNode",
		StorePath:  "smartnode-store.json",
		AccessPoint: AccessPoint{
			SSIDPrefix: "SmartNode-",
			Password:   "12345678",
			Channel:    1,
			MaxClients: 4,
			Address:    "192.168.4.1",
			DNSPort:    53,
		},
		WiFi: WiFi{
			ConnectTimeout:    20 * time.Second,
			ReconnectInterval: 30 * time.Second,
			MaxReconnects:     5,
		},
		Telemetry: Telemetry{
			UpdateInterval: 2 * time.Second,
			StatsInterval:  10 * time.Second,
			HistorySize:    50,
			Temperature:    Channel{Enabled: true, Base: 22.0, Variation: 5.0, Noise: 0.2},
			Humidity:       Channel{Enabled: true, Base: 45.0, Variation: 20.0, Noise: 0.5},
			Pressure:       Channel{Enabled: true, Base: 1013.25, Variation: 30.0, Noise: 0.3},
			Light:          Channel{Enabled: true, Base: 50.0, Variation: 25.0, Noise: 1.0},
			Motion:         Motion{Enabled: true, Probability: 0.15, Duration: 5 * time.Second},
			Battery:        Battery{Enabled: true, DrainRate: 0.01, RechargeThreshold: 10.0, RechargeRate: 5.0},
		},
		Admin: Admin{Listen: ":8080"},
	}
}

// Load reads the YAML config, validates it against the CUE schema, and
// merges it over the defaults.
func Load(configPath, cueSchemaPath string) (*DeviceConfig, error) {
	if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks bounds the schema cannot express across fields.
func (c *DeviceConfig) Validate() error {
	if len(c.DeviceName) < 3 || len(c.DeviceName) > 32 {
		return fmt.Errorf("device_name must be 3-32 characters, got %q", c.DeviceName)
	}
	if c.Telemetry.HistorySize < 10 {
		return fmt.Errorf("telemetry.history_size must be at least 10, got %d", c.Telemetry.HistorySize)
	}
	if c.Telemetry.UpdateInterval <= 0 {
		return fmt.Errorf("telemetry.update_interval must be positive")
	}
	if c.WiFi.ConnectTimeout <= 0 || c.WiFi.ReconnectInterval <= 0 {
		return fmt.Errorf("wifi timeouts must be positive")
	}
	if t := c.Telemetry.Battery.RechargeThreshold; t < 0 || t > 100 {
		return fmt.Errorf("battery.recharge_threshold must be within [0,100], got %f", t)
	}
	if p := c.Telemetry.Motion.Probability; p < 0 || p > 1 {
		return fmt.Errorf("motion.probability must be within [0,1], got %f", p)
	}
	return nil
}
