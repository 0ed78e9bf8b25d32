// Host loop orchestrating the connectivity and telemetry machines
package device

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"smartnode-sim/internal/connectivity"
	"smartnode-sim/internal/logging"
	"smartnode-sim/internal/store"
	"smartnode-sim/internal/telemetry"
)

// Version is the firmware version reported in device stats.
const Version = "2.0.0"

// TelemetryWriter is an interface to support different output writers.
type TelemetryWriter interface {
	Write(telemetry.SensorReading) error
}

// Optional: writers can also support batch mode.
type batchWriter interface {
	WriteBatch([]telemetry.SensorReading) error
}

// Optional: writers can render the connectivity status alongside readings.
type statusWriter interface {
	WriteStatus(connectivity.StatusSnapshot)
}

// Optional: writers can render the windowed statistics alongside readings.
type statsWriter interface {
	WriteStats(telemetry.Statistics)
}

// Stats is the device-level statistics snapshot.
type Stats struct {
	DeviceID         string        `json:"device_id"`
	DeviceName       string        `json:"device_name"`
	Version          string        `json:"version"`
	Uptime           time.Duration `json:"uptime_ms"`
	BootCount        uint32        `json:"boot_count"`
	TotalConnections uint32        `json:"total_connections"`
	FactoryResets    uint32        `json:"factory_reset_count"`
}

// Host ticks the connectivity state machine and the telemetry engine
// once per loop iteration and fans new readings out to the writers.
// Neither machine references the other; the host is the only owner.
type Host struct {
	mu    sync.Mutex
	conn  *connectivity.Manager
	eng   *telemetry.Engine
	st    store.Store
	wr    TelemetryWriter
	tick  time.Duration
	now   func() time.Time
	runID string

	startedAt        time.Time
	deviceName       string
	bootCount        uint32
	totalConnections uint32
	factoryResets    uint32
}

// NewHost loads the persisted counters, bumps the boot count, and
// registers the notification sinks on the connectivity manager.
func NewHost(conn *connectivity.Manager, eng *telemetry.Engine, st store.Store, wr TelemetryWriter, deviceName string, tick time.Duration) *Host {
	if tick <= 0 {
		tick = 100 * time.Millisecond
	}
	h := &Host{
		conn:  conn,
		eng:   eng,
		st:    st,
		wr:    wr,
		tick:  tick,
		now:   time.Now,
		runID: uuid.New().String(),
	}

	if name, ok := st.Get(store.KeyDeviceName); ok && name != "" {
		deviceName = name
	} else {
		st.Put(store.KeyDeviceName, deviceName)
	}
	h.deviceName = deviceName

	h.bootCount = readCounter(st, store.KeyBootCount) + 1
	h.totalConnections = readCounter(st, store.KeyTotalConnections)
	h.factoryResets = readCounter(st, store.KeyFactoryResets)
	st.Put(store.KeyBootCount, strconv.FormatUint(uint64(h.bootCount), 10))

	conn.OnConnected(func() {
		h.mu.Lock()
		h.totalConnections++
		n := h.totalConnections
		h.mu.Unlock()
		st.Put(store.KeyTotalConnections, strconv.FormatUint(uint64(n), 10))
		connectedGauge.Set(1)
	})
	conn.OnDisconnected(func() {
		connectedGauge.Set(0)
	})
	conn.OnAccessPointStarted(func() {
		accessPointGauge.Set(1)
	})

	return h
}

// DeviceName returns the current device name.
func (h *Host) DeviceName() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.deviceName
}

// SetDeviceName validates, persists, and re-derives the AP SSID.
func (h *Host) SetDeviceName(name string) error {
	if err := h.conn.SetDeviceName(name); err != nil {
		return err
	}
	if err := h.st.Put(store.KeyDeviceName, name); err != nil {
		return err
	}
	h.mu.Lock()
	h.deviceName = name
	h.mu.Unlock()
	return nil
}

// FactoryReset clears the whole store, bumps the reset counter, and
// performs the WiFi settings reset.
func (h *Host) FactoryReset() error {
	if err := h.st.Clear(); err != nil {
		return err
	}
	h.mu.Lock()
	h.factoryResets++
	n := h.factoryResets
	name := h.deviceName
	h.mu.Unlock()
	h.st.Put(store.KeyFactoryResets, strconv.FormatUint(uint64(n), 10))
	h.st.Put(store.KeyDeviceName, name)
	h.conn.ResetSettings()
	return nil
}

// Restart simulates a reboot: the boot counter is bumped, volatile
// telemetry state is discarded, and connectivity re-initializes from
// the persisted credentials.
func (h *Host) Restart() {
	h.mu.Lock()
	h.bootCount++
	n := h.bootCount
	h.startedAt = h.now()
	name := h.deviceName
	h.mu.Unlock()
	h.st.Put(store.KeyBootCount, strconv.FormatUint(uint64(n), 10))
	h.eng.ClearHistory()
	h.eng.ResetStatistics()
	h.conn.Initialize(name)
}

// Stats assembles the device statistics snapshot.
func (h *Host) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	var uptime time.Duration
	if !h.startedAt.IsZero() {
		uptime = h.now().Sub(h.startedAt)
	}
	return Stats{
		DeviceID:         h.runID,
		DeviceName:       h.deviceName,
		Version:          Version,
		Uptime:           uptime,
		BootCount:        h.bootCount,
		TotalConnections: h.totalConnections,
		FactoryResets:    h.factoryResets,
	}
}

// Connectivity exposes the connectivity manager to the presentation layer.
func (h *Host) Connectivity() *connectivity.Manager { return h.conn }

// Telemetry exposes the telemetry engine to the presentation layer.
func (h *Host) Telemetry() *telemetry.Engine { return h.eng }

// Run starts the host loop and blocks until the context is done.
func (h *Host) Run(ctx context.Context) {
	log := logging.FromContext(ctx)
	h.mu.Lock()
	h.startedAt = h.now()
	h.mu.Unlock()

	log.Info("host loop starting", "tick_interval", h.tick, "device", h.DeviceName())
	h.conn.Initialize(h.DeviceName())

	ticker := time.NewTicker(h.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			h.Step(ctx)
		case <-ctx.Done():
			log.Info("host loop stopping")
			return
		}
	}
}

// Step performs one host-loop iteration: both machines advance their
// own state independently, then any new reading is written out.
func (h *Host) Step(ctx context.Context) {
	log := logging.FromContext(ctx)

	h.conn.Tick()
	if !h.conn.AccessPointActive() {
		accessPointGauge.Set(0)
	}

	reading, produced := h.eng.Tick()
	if !produced {
		return
	}
	observeReading(reading)
	if h.wr == nil {
		return
	}
	if err := h.wr.Write(reading); err != nil {
		log.Error("telemetry write failed", "err", err)
	}
	if sw, ok := h.wr.(statusWriter); ok {
		sw.WriteStatus(h.conn.Snapshot())
	}
	if sw, ok := h.wr.(statsWriter); ok {
		sw.WriteStats(h.eng.Statistics())
	}
}

// WriteHistory flushes the retained window through the writer, using
// batch mode when supported.
func (h *Host) WriteHistory() error {
	if h.wr == nil {
		return nil
	}
	window := h.eng.History()
	if bw, ok := h.wr.(batchWriter); ok {
		return bw.WriteBatch(window)
	}
	for _, r := range window {
		if err := h.wr.Write(r); err != nil {
			return err
		}
	}
	return nil
}

func readCounter(st store.Store, key string) uint32 {
	v, ok := st.Get(key)
	if !ok {
		return 0
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0
	}
	return uint32(n)
}
