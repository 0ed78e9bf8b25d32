package device

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"smartnode-sim/internal/telemetry"
)

type collectWriter struct{ readings []telemetry.SensorReading }

func (c *collectWriter) Write(r telemetry.SensorReading) error {
	c.readings = append(c.readings, r)
	return nil
}

func TestReplayLog(t *testing.T) {
	readings := []telemetry.SensorReading{
		{Timestamp: time.Unix(0, 0), Temperature: 21.5, BatteryLevel: 100},
		{Timestamp: time.Unix(2, 0), Temperature: 21.7, BatteryLevel: 99.99},
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range readings {
		if err := enc.Encode(r); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	cw := &collectWriter{}
	if err := ReplayLog(&buf, cw, 0); err != nil {
		t.Fatalf("ReplayLog: %v", err)
	}
	if len(cw.readings) != len(readings) {
		t.Fatalf("expected %d readings, got %d", len(readings), len(cw.readings))
	}
	for i, r := range readings {
		if cw.readings[i].Temperature != r.Temperature {
			t.Fatalf("reading %d mismatch: %+v vs %+v", i, cw.readings[i], r)
		}
	}
}

func TestReplayLogRejectsCorruptInput(t *testing.T) {
	cw := &collectWriter{}
	if err := ReplayLog(bytes.NewBufferString("{not json"), cw, 0); err == nil {
		t.Fatalf("expected decode error")
	}
}
