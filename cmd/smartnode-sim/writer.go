package main

import (
	"os"

	"smartnode-sim/internal/admin"
	"smartnode-sim/internal/device"
)

// newWriters assembles the telemetry fan-out from flags and env vars.
// The websocket hub always participates so the portal's live feed
// works in every mode. The cleanup function closes any file or broker
// resources.
func newWriters(deviceName string, hub *admin.Hub, printOnly bool, logFile string, tui bool) (device.TelemetryWriter, func(), error) {
	cleanup := func() {}

	base, err := baseWriter(deviceName, printOnly, tui)
	if err != nil {
		return nil, nil, err
	}
	writers := []device.TelemetryWriter{base, hub}

	var closers []func()
	if c, ok := base.(interface{ Close() error }); ok {
		closers = append(closers, func() { _ = c.Close() })
	} else if c, ok := base.(interface{ Close() }); ok {
		closers = append(closers, c.Close)
	}

	if logFile != "" {
		fw, err := device.NewFileWriter(logFile)
		if err != nil {
			return nil, nil, err
		}
		writers = append(writers, fw)
		closers = append(closers, func() { _ = fw.Close() })
	}

	if broker := os.Getenv("MQTT_BROKER"); broker != "" {
		mw, err := device.NewMQTTWriter(broker, deviceName)
		if err != nil {
			return nil, nil, err
		}
		writers = append(writers, mw)
		closers = append(closers, mw.Close)
	}

	cleanup = func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	return device.NewMultiWriter(writers...), cleanup, nil
}

// baseWriter picks the primary sink: TUI, STDOUT, or GreptimeDB.
func baseWriter(deviceName string, printOnly, tui bool) (device.TelemetryWriter, error) {
	if tui {
		return device.NewTUIWriter(deviceName), nil
	}
	if printOnly || os.Getenv("GREPTIMEDB_ENDPOINT") == "" {
		return &device.StdoutWriter{}, nil
	}
	return device.NewGreptimeDBWriter(os.Getenv("GREPTIMEDB_ENDPOINT"), "public", deviceName)
}
