// Writer implementation printing telemetry to STDOUT
package device

import (
	"encoding/json"
	"fmt"

	"smartnode-sim/internal/telemetry"
)

// StdoutWriter prints sensor readings to STDOUT.
type StdoutWriter struct{}

// Write outputs a single reading.
func (w *StdoutWriter) Write(r telemetry.SensorReading) error {
	data, _ := json.Marshal(r)
	fmt.Println(string(data))
	return nil
}

// WriteBatch outputs multiple readings.
func (w *StdoutWriter) WriteBatch(rows []telemetry.SensorReading) error {
	for _, r := range rows {
		_ = w.Write(r)
	}
	return nil
}
