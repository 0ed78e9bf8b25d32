package device

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"smartnode-sim/internal/telemetry"
)

var (
	readingsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smartnode_readings_total",
		Help: "Total number of sensor readings produced.",
	})
	motionEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smartnode_motion_events_total",
		Help: "Total number of motion activations observed.",
	})
	temperatureGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "smartnode_temperature_celsius",
		Help: "Latest simulated temperature reading.",
	})
	humidityGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "smartnode_humidity_percent",
		Help: "Latest simulated relative humidity reading.",
	})
	pressureGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "smartnode_pressure_hpa",
		Help: "Latest simulated barometric pressure reading.",
	})
	lightGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "smartnode_light_percent",
		Help: "Latest simulated ambient light level.",
	})
	batteryGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "smartnode_battery_percent",
		Help: "Latest simulated battery level.",
	})
	motionGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "smartnode_motion_active",
		Help: "Whether motion is currently detected (0 or 1).",
	})
	connectedGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "smartnode_wifi_connected",
		Help: "Whether the WiFi link is up (0 or 1).",
	})
	accessPointGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "smartnode_access_point_active",
		Help: "Whether the configuration access point is active (0 or 1).",
	})
)

var lastMotion bool

func observeReading(r telemetry.SensorReading) {
	readingsTotal.Inc()
	temperatureGauge.Set(r.Temperature)
	humidityGauge.Set(r.Humidity)
	pressureGauge.Set(r.Pressure)
	lightGauge.Set(r.LightLevel)
	batteryGauge.Set(r.BatteryLevel)
	if r.MotionDetected {
		motionGauge.Set(1)
		if !lastMotion {
			motionEventsTotal.Inc()
		}
	} else {
		motionGauge.Set(0)
	}
	lastMotion = r.MotionDetected
}
