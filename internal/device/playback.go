package device

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"smartnode-sim/internal/telemetry"
)

// ReplayLog replays recorded readings from r to writer. A speed >0
// accelerates playback. If speed <= 0, no artificial delay is inserted.
func ReplayLog(r io.Reader, writer TelemetryWriter, speed float64) error {
	dec := json.NewDecoder(r)
	var prev time.Time
	for {
		var reading telemetry.SensorReading
		if err := dec.Decode(&reading); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if !prev.IsZero() && speed > 0 {
			diff := reading.Timestamp.Sub(prev)
			if speed != 1 {
				diff = time.Duration(float64(diff) / speed)
			}
			if diff > 0 {
				time.Sleep(diff)
			}
		}
		if err := writer.Write(reading); err != nil {
			return err
		}
		prev = reading.Timestamp
	}
}

// ReplayLogFile opens a log file written by FileWriter and replays its
// readings.
func ReplayLogFile(path string, writer TelemetryWriter, speed float64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return ReplayLog(f, writer, speed)
}
