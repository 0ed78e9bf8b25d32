package device

import (
	"context"
	"log"

	"smartnode-sim/internal/telemetry"

	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	ingesterContext "github.com/GreptimeTeam/greptimedb-ingester-go/context"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"
)

// GreptimeDBWriter writes sensor readings to GreptimeDB via the ingester client
type GreptimeDBWriter struct {
	client greptime.Client
	db     string
	device string
	table  string
}

// NewGreptimeDBWriter creates a new GreptimeDB writer and auto-creates the table if needed.
func NewGreptimeDBWriter(endpoint, database, deviceID string) (*GreptimeDBWriter, error) {
	ctx := ingesterContext.NewContext(context.Background())
	client, err := greptime.NewClient(ctx, &greptime.Config{
		Endpoint: endpoint,
	})
	if err != nil {
		return nil, err
	}

	// Auto-create table schema
	ddl := `
CREATE TABLE IF NOT EXISTS ` + telemetry.ReadingTableName + ` (
  device_id STRING TAG,
  temperature DOUBLE,
  humidity DOUBLE,
  pressure DOUBLE,
  light DOUBLE,
  motion BOOLEAN,
  battery DOUBLE,
  ts TIMESTAMP TIME INDEX
) WITH (ttl='30d')
`
	if _, err := client.SQL(ctx, ddl); err != nil {
		return nil, err
	}

	return &GreptimeDBWriter{
		client: client,
		db:     database,
		device: deviceID,
		table:  telemetry.ReadingTableName,
	}, nil
}

// Write inserts a single reading.
func (w *GreptimeDBWriter) Write(r telemetry.SensorReading) error {
	return w.WriteBatch([]telemetry.SensorReading{r})
}

// WriteBatch inserts multiple readings.
func (w *GreptimeDBWriter) WriteBatch(rows []telemetry.SensorReading) error {
	if len(rows) == 0 {
		return nil
	}

	ctx := ingesterContext.NewContext(context.Background())

	tbl := table.New(w.table)
	tbl.AddTagColumn("device_id", types.StringType, 0)
	tbl.AddFieldColumn("temperature", types.Float64Type)
	tbl.AddFieldColumn("humidity", types.Float64Type)
	tbl.AddFieldColumn("pressure", types.Float64Type)
	tbl.AddFieldColumn("light", types.Float64Type)
	tbl.AddFieldColumn("motion", types.BooleanType)
	tbl.AddFieldColumn("battery", types.Float64Type)
	tbl.SetTimeIndex("ts", types.TimestampType)

	for _, r := range rows {
		tbl.AppendTagValue("device_id", w.device)
		tbl.AppendFieldValue("temperature", r.Temperature)
		tbl.AppendFieldValue("humidity", r.Humidity)
		tbl.AppendFieldValue("pressure", r.Pressure)
		tbl.AppendFieldValue("light", r.LightLevel)
		tbl.AppendFieldValue("motion", r.MotionDetected)
		tbl.AppendFieldValue("battery", r.BatteryLevel)
		tbl.AppendTimeIndex(r.Timestamp)
	}

	if err := w.client.Write(ctx, w.db, []*table.Table{tbl}); err != nil {
		log.Printf("[GreptimeDBWriter] Write failed: %v", err)
		return err
	}

	log.Printf("[GreptimeDBWriter] wrote %d rows", len(rows))
	return nil
}
