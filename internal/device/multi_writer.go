package device

import (
	"smartnode-sim/internal/connectivity"
	"smartnode-sim/internal/telemetry"
)

// MultiWriter fan-outs sensor readings to multiple writers.
type MultiWriter struct {
	writers []TelemetryWriter
}

// NewMultiWriter creates a new MultiWriter.
func NewMultiWriter(ws ...TelemetryWriter) *MultiWriter {
	return &MultiWriter{writers: ws}
}

// Write sends a reading to all writers.
func (mw *MultiWriter) Write(r telemetry.SensorReading) error {
	for _, w := range mw.writers {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteStatus forwards the connectivity snapshot to writers that render it.
func (mw *MultiWriter) WriteStatus(s connectivity.StatusSnapshot) {
	for _, w := range mw.writers {
		if sw, ok := w.(statusWriter); ok {
			sw.WriteStatus(s)
		}
	}
}

// WriteStats forwards the windowed statistics to writers that render them.
func (mw *MultiWriter) WriteStats(s telemetry.Statistics) {
	for _, w := range mw.writers {
		if sw, ok := w.(statsWriter); ok {
			sw.WriteStats(s)
		}
	}
}

// WriteBatch sends multiple readings to all writers, using batch if supported.
func (mw *MultiWriter) WriteBatch(rows []telemetry.SensorReading) error {
	for _, w := range mw.writers {
		if bw, ok := w.(batchWriter); ok {
			if err := bw.WriteBatch(rows); err != nil {
				return err
			}
			continue
		}
		for _, r := range rows {
			if err := w.Write(r); err != nil {
				return err
			}
		}
	}
	return nil
}
