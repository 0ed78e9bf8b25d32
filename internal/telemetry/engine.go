// Telemetry engine generating policy-governed synthetic readings
package telemetry

import (
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"smartnode-sim/internal/config"
	"smartnode-sim/internal/errcode"
)

// batteryHealthFloor bounds the derived health figure from below.
const batteryHealthFloor = 50.0

// channelState carries the random-walk state of one continuous channel.
type channelState struct {
	cfg    config.Channel
	trend  float64
	offset float64 // user calibration, applied after walk and noise
}

// Engine owns synthetic reading generation, the bounded history ring,
// windowed statistics, and the motion/battery sub-state. Public methods
// are safe for concurrent use.
type Engine struct {
	mu   sync.Mutex
	cfg  config.Telemetry
	log  *slog.Logger
	now  func() time.Time
	rand *rand.Rand

	temperature channelState
	humidity    channelState
	pressure    channelState
	light       channelState
	motion      MotionState
	battery     BatteryState

	history *History
	current SensorReading

	stats      Statistics
	statsStale bool

	lastSample time.Time
	lastStats  time.Time
}

// NewEngine builds an engine from the telemetry configuration.
func NewEngine(cfg config.Telemetry, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		cfg:         cfg,
		log:         log,
		now:         time.Now,
		rand:        rand.New(rand.NewSource(time.Now().UnixNano())),
		temperature: channelState{cfg: cfg.Temperature},
		humidity:    channelState{cfg: cfg.Humidity},
		pressure:    channelState{cfg: cfg.Pressure},
		light:       channelState{cfg: cfg.Light},
		battery:     BatteryState{Level: 100},
		history:     NewHistory(cfg.HistorySize),
	}
}

// SetClock overrides the wall clock, for deterministic tests.
func (e *Engine) SetClock(now func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
}

// SetRand overrides the random source, for deterministic tests.
func (e *Engine) SetRand(r *rand.Rand) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rand = r
}

// Tick advances the engine by one host-loop iteration. When the update
// interval has elapsed a new reading is produced, appended to history,
// and returned with true. The statistics interval forces a recompute
// independently of reading generation.
func (e *Engine) Tick() (SensorReading, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	produced := false
	if e.lastSample.IsZero() || now.Sub(e.lastSample) >= e.cfg.UpdateInterval {
		e.current = e.generateLocked(now)
		e.history.Push(e.current)
		e.statsStale = true
		e.lastSample = now
		produced = true
	}

	// Motion auto-clear runs every tick, not only on sample ticks.
	if e.motion.Active && now.Sub(e.motion.StartedAt) >= e.cfg.Motion.Duration {
		e.motion.Active = false
	}

	if e.lastStats.IsZero() || now.Sub(e.lastStats) >= e.cfg.StatsInterval {
		e.recomputeLocked()
		e.lastStats = now
	}
	return e.current, produced
}

// generateLocked produces one reading per enabled channel.
func (e *Engine) generateLocked(now time.Time) SensorReading {
	r := SensorReading{Timestamp: now}

	if e.temperature.cfg.Enabled {
		r.Temperature = e.walkLocked(&e.temperature, e.temperature.cfg.Base)
	}
	if e.humidity.cfg.Enabled {
		r.Humidity = clamp(e.walkLocked(&e.humidity, e.humidity.cfg.Base), 0, 100)
	}
	if e.pressure.cfg.Enabled {
		r.Pressure = e.walkLocked(&e.pressure, e.pressure.cfg.Base)
	}
	if e.light.cfg.Enabled {
		r.LightLevel = clamp(e.walkLocked(&e.light, diurnalBase(e.light.cfg, now)), 0, 100)
	}

	if e.cfg.Motion.Enabled && !e.motion.Active {
		if e.rand.Float64() < e.cfg.Motion.Probability {
			e.motion.Active = true
			e.motion.StartedAt = now
			e.motion.LastEvent = now
			e.motion.Events++
		}
	}
	r.MotionDetected = e.motion.Active

	if e.cfg.Battery.Enabled {
		e.stepBatteryLocked()
	}
	r.BatteryLevel = e.battery.Level

	return r
}

// walkLocked advances the channel's bounded random walk: the trend is
// nudged by a small bounded delta, the value base+trend is clamped to
// the variation range, independent noise is added on top, and the
// calibration offset is applied last.
func (e *Engine) walkLocked(c *channelState, base float64) float64 {
	step := c.cfg.Variation * 0.1
	c.trend += (e.rand.Float64()*2 - 1) * step
	c.trend = clamp(c.trend, -c.cfg.Variation, c.cfg.Variation)

	v := base + c.trend
	v = clamp(v, base-c.cfg.Variation, base+c.cfg.Variation)
	v += (e.rand.Float64()*2 - 1) * c.cfg.Noise
	return v + c.offset
}

// diurnalBase modulates the light channel's base with a half-sine wave
// over the 24-hour day, between base-variation and base+variation.
func diurnalBase(c config.Channel, now time.Time) float64 {
	low := c.Base - c.Variation
	high := c.Base + c.Variation
	secs := float64(now.Hour()*3600 + now.Minute()*60 + now.Second())
	return low + (high-low)*math.Sin(math.Pi*secs/86400)
}

// stepBatteryLocked drains by the fixed rate per sample; below the
// threshold it recharges at the fixed rate until restored to full.
// There is no charging-source precondition: any level below threshold
// triggers recharging.
func (e *Engine) stepBatteryLocked() {
	b := &e.battery
	cfg := e.cfg.Battery
	switch {
	case b.Charging:
		b.Level += cfg.RechargeRate
		if b.Level >= 100 {
			b.Level = 100
			b.Charging = false
		}
	case b.Level < cfg.RechargeThreshold:
		b.Charging = true
		b.Level = clamp(b.Level+cfg.RechargeRate, 0, 100)
	default:
		b.Level = clamp(b.Level-cfg.DrainRate, 0, 100)
	}
}

// recomputeLocked rescans the retained window. Motion figures come from
// the engine counters, not from the scan; battery health derives from
// the current level, floor-bounded.
func (e *Engine) recomputeLocked() {
	window := e.history.Snapshot()
	s := Statistics{
		MotionEvents:  e.motion.Events,
		LastMotion:    e.motion.LastEvent,
		BatteryHealth: math.Max(batteryHealthFloor, e.battery.Level),
		DataPoints:    len(window),
	}
	if len(window) > 0 {
		s.Temperature = scanChannel(window, func(r SensorReading) float64 { return r.Temperature })
		s.Humidity = scanChannel(window, func(r SensorReading) float64 { return r.Humidity })
		s.Pressure = scanChannel(window, func(r SensorReading) float64 { return r.Pressure })
		s.Light = scanChannel(window, func(r SensorReading) float64 { return r.LightLevel })
	}
	e.stats = s
	e.statsStale = false
}

func scanChannel(window []SensorReading, value func(SensorReading) float64) ChannelStats {
	cs := ChannelStats{Min: value(window[0]), Max: value(window[0])}
	sum := 0.0
	for _, r := range window {
		v := value(r)
		if v < cs.Min {
			cs.Min = v
		}
		if v > cs.Max {
			cs.Max = v
		}
		sum += v
	}
	cs.Avg = sum / float64(len(window))
	return cs
}

// CurrentReading returns the most recent reading.
func (e *Engine) CurrentReading() SensorReading {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// History returns the retained readings in chronological order.
func (e *Engine) History() []SensorReading {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.Snapshot()
}

// HistorySize reports the current number of retained readings.
func (e *Engine) HistorySize() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.Len()
}

// Statistics returns window statistics, recomputing first if a new
// reading has invalidated them.
func (e *Engine) Statistics() Statistics {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.statsStale {
		e.recomputeLocked()
	}
	return e.stats
}

// SetHistorySize resizes the retention window, enforcing the floor and
// trimming the oldest entries immediately when shrinking.
func (e *Engine) SetHistorySize(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history.Resize(n)
	e.statsStale = true
}

// ClearHistory empties the window and invalidates statistics.
func (e *Engine) ClearHistory() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history.Clear()
	e.statsStale = true
}

// ResetStatistics zeroes the derived statistics and the engine-level
// motion counters without touching history.
func (e *Engine) ResetStatistics() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stats = Statistics{}
	e.motion.Events = 0
	e.motion.LastEvent = time.Time{}
	e.statsStale = false
}

// SetUpdateInterval changes the sampling interval.
func (e *Engine) SetUpdateInterval(d time.Duration) error {
	if d <= 0 {
		return errcode.InvalidParam
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg.UpdateInterval = d
	return nil
}

// UpdateInterval returns the sampling interval.
func (e *Engine) UpdateInterval() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg.UpdateInterval
}

// EnableChannel toggles one channel by name.
func (e *Engine) EnableChannel(name string, enabled bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch name {
	case ChannelTemperature:
		e.temperature.cfg.Enabled = enabled
	case ChannelHumidity:
		e.humidity.cfg.Enabled = enabled
	case ChannelPressure:
		e.pressure.cfg.Enabled = enabled
	case ChannelLight:
		e.light.cfg.Enabled = enabled
	case ChannelMotion:
		e.cfg.Motion.Enabled = enabled
	case ChannelBattery:
		e.cfg.Battery.Enabled = enabled
	default:
		return errcode.InvalidParam
	}
	return nil
}

// ChannelEnabled reports whether a channel is enabled.
func (e *Engine) ChannelEnabled(name string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch name {
	case ChannelTemperature:
		return e.temperature.cfg.Enabled, nil
	case ChannelHumidity:
		return e.humidity.cfg.Enabled, nil
	case ChannelPressure:
		return e.pressure.cfg.Enabled, nil
	case ChannelLight:
		return e.light.cfg.Enabled, nil
	case ChannelMotion:
		return e.cfg.Motion.Enabled, nil
	case ChannelBattery:
		return e.cfg.Battery.Enabled, nil
	}
	return false, errcode.InvalidParam
}

// Calibrate stores an additive offset for one continuous channel. It
// takes effect from the next generated sample and never rewrites
// history.
func (e *Engine) Calibrate(channel string, offset float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch channel {
	case ChannelTemperature:
		e.temperature.offset = offset
	case ChannelHumidity:
		e.humidity.offset = offset
	case ChannelPressure:
		e.pressure.offset = offset
	case ChannelLight:
		e.light.offset = offset
	default:
		return errcode.InvalidParam
	}
	return nil
}

// SetBatteryLevel overrides the simulated battery level, clamped.
func (e *Engine) SetBatteryLevel(level float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.battery.Level = clamp(level, 0, 100)
}

// Battery returns the battery sub-state.
func (e *Engine) Battery() BatteryState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.battery
}

// BatteryLow reports whether the level is below the recharge threshold.
func (e *Engine) BatteryLow() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.battery.Level < e.cfg.Battery.RechargeThreshold
}

// Motion returns the motion sub-state.
func (e *Engine) Motion() MotionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.motion
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
