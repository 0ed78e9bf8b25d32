package device

import (
	"encoding/json"
	"os"

	"smartnode-sim/internal/telemetry"
)

// FileWriter appends sensor readings to a JSONL file.
type FileWriter struct {
	file *os.File
	enc  *json.Encoder
}

// NewFileWriter creates a FileWriter logging readings to path.
func NewFileWriter(path string) (*FileWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &FileWriter{file: f, enc: json.NewEncoder(f)}, nil
}

// Write logs a single reading.
func (f *FileWriter) Write(r telemetry.SensorReading) error {
	return f.enc.Encode(r)
}

// WriteBatch logs multiple readings.
func (f *FileWriter) WriteBatch(rows []telemetry.SensorReading) error {
	for _, r := range rows {
		if err := f.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying file.
func (f *FileWriter) Close() error {
	return f.file.Close()
}
