// Telemetry reading and statistics types
package telemetry

import (
	"os"
	"time"
)

// SensorReading is one immutable telemetry snapshot. Once produced it
// is appended to history and never mutated.
type SensorReading struct {
	Timestamp      time.Time `json:"ts"`
	Temperature    float64   `json:"temperature"`
	Humidity       float64   `json:"humidity"`
	Pressure       float64   `json:"pressure"`
	LightLevel     float64   `json:"light_level"`
	MotionDetected bool      `json:"motion_detected"`
	BatteryLevel   float64   `json:"battery_level"`
}

// ReadingTableName holds the table name used when shipping readings to
// GreptimeDB. It defaults to "node_telemetry" but can be overridden via
// the GREPTIMEDB_TABLE environment variable.
var ReadingTableName = func() string {
	if env := os.Getenv("GREPTIMEDB_TABLE"); env != "" {
		return env
	}
	return "node_telemetry"
}()

func (SensorReading) TableName() string {
	return ReadingTableName
}

// ChannelStats aggregates one continuous channel over the retained
// history window.
type ChannelStats struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
}

// Statistics is derived from the current history window plus the
// engine-level motion and battery state. Never persisted.
type Statistics struct {
	Temperature   ChannelStats `json:"temperature"`
	Humidity      ChannelStats `json:"humidity"`
	Pressure      ChannelStats `json:"pressure"`
	Light         ChannelStats `json:"light"`
	MotionEvents  int          `json:"motion_events"`
	LastMotion    time.Time    `json:"last_motion"`
	BatteryHealth float64      `json:"battery_health"`
	DataPoints    int          `json:"data_points"`
}

// MotionState tracks the simulated motion sensor. Active auto-clears
// after the configured duration from StartedAt.
type MotionState struct {
	Active    bool      `json:"active"`
	StartedAt time.Time `json:"started_at"`
	LastEvent time.Time `json:"last_event"`
	Events    int       `json:"events"`
}

// BatteryState tracks the simulated battery.
type BatteryState struct {
	Level    float64 `json:"level"`
	Charging bool    `json:"charging"`
}

// Channel names accepted by the enable/calibrate commands.
const (
	ChannelTemperature = "temperature"
	ChannelHumidity    = "humidity"
	ChannelPressure    = "pressure"
	ChannelLight       = "light"
	ChannelMotion      = "motion"
	ChannelBattery     = "battery"
)
