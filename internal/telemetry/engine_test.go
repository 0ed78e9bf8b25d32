package telemetry

import (
	"math/rand"
	"testing"
	"time"

	"smartnode-sim/internal/config"
	"smartnode-sim/internal/errcode"
)

type fakeClock struct{ t time.Time }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func testTelemetryConfig() config.Telemetry {
	return config.Telemetry{
		UpdateInterval: 2 * time.Second,
		StatsInterval:  10 * time.Second,
		HistorySize:    50,
		Temperature:    config.Channel{Enabled: true, Base: 22.0, Variation: 5.0, Noise: 0.2},
		Humidity:       config.Channel{Enabled: true, Base: 45.0, Variation: 20.0, Noise: 0.5},
		Pressure:       config.Channel{Enabled: true, Base: 1013.25, Variation: 30.0, Noise: 0.3},
		Light:          config.Channel{Enabled: true, Base: 50.0, Variation: 25.0, Noise: 1.0},
		Motion:         config.Motion{Enabled: true, Probability: 0.15, Duration: 5 * time.Second},
		Battery:        config.Battery{Enabled: true, DrainRate: 0.01, RechargeThreshold: 10.0, RechargeRate: 5.0},
	}
}

func newTestEngine(cfg config.Telemetry) (*Engine, *fakeClock) {
	e := NewEngine(cfg, nil)
	clk := newFakeClock()
	e.SetClock(clk.Now)
	e.SetRand(rand.New(rand.NewSource(42)))
	return e, clk
}

// sample advances the clock by one update interval and ticks.
func sample(e *Engine, clk *fakeClock, interval time.Duration) SensorReading {
	r, ok := e.Tick()
	if !ok {
		clk.Advance(interval)
		r, ok = e.Tick()
		if !ok {
			panic("no reading produced after a full interval")
		}
	}
	clk.Advance(interval)
	return r
}

func TestTemperatureStaysWithinBounds(t *testing.T) {
	cfg := testTelemetryConfig()
	e, clk := newTestEngine(cfg)

	lo := cfg.Temperature.Base - cfg.Temperature.Variation - cfg.Temperature.Noise
	hi := cfg.Temperature.Base + cfg.Temperature.Variation + cfg.Temperature.Noise
	for i := 0; i < 10000; i++ {
		r := sample(e, clk, cfg.UpdateInterval)
		if r.Temperature < lo || r.Temperature > hi {
			t.Fatalf("sample %d: temperature %.4f outside [%.2f, %.2f]", i, r.Temperature, lo, hi)
		}
	}
}

func TestLightStaysWithinPercentRange(t *testing.T) {
	cfg := testTelemetryConfig()
	e, clk := newTestEngine(cfg)

	for i := 0; i < 5000; i++ {
		r := sample(e, clk, cfg.UpdateInterval)
		if r.LightLevel < 0 || r.LightLevel > 100 {
			t.Fatalf("sample %d: light %.4f outside [0, 100]", i, r.LightLevel)
		}
		if r.Humidity < 0 || r.Humidity > 100 {
			t.Fatalf("sample %d: humidity %.4f outside [0, 100]", i, r.Humidity)
		}
	}
}

func TestReadingProducedOncePerInterval(t *testing.T) {
	cfg := testTelemetryConfig()
	e, clk := newTestEngine(cfg)

	if _, ok := e.Tick(); !ok {
		t.Fatalf("first tick should produce a reading")
	}
	clk.Advance(500 * time.Millisecond)
	if _, ok := e.Tick(); ok {
		t.Fatalf("tick before the interval elapsed should not produce")
	}
	clk.Advance(1500 * time.Millisecond)
	if _, ok := e.Tick(); !ok {
		t.Fatalf("tick after the interval elapsed should produce")
	}
}

func TestHistoryEvictsOldestBeyondCapacity(t *testing.T) {
	cfg := testTelemetryConfig()
	e, clk := newTestEngine(cfg)

	var all []SensorReading
	for i := 0; i < 60; i++ {
		all = append(all, sample(e, clk, cfg.UpdateInterval))
	}
	if got := e.HistorySize(); got != 50 {
		t.Fatalf("history size = %d, want 50", got)
	}
	window := e.History()
	if !window[0].Timestamp.Equal(all[10].Timestamp) {
		t.Fatalf("oldest retained reading is %v, want %v", window[0].Timestamp, all[10].Timestamp)
	}
	if !window[49].Timestamp.Equal(all[59].Timestamp) {
		t.Fatalf("newest retained reading is %v, want %v", window[49].Timestamp, all[59].Timestamp)
	}

	// Statistics must cover exactly the retained window.
	stats := e.Statistics()
	if stats.DataPoints != 50 {
		t.Fatalf("stats data points = %d, want 50", stats.DataPoints)
	}
	wantMin, wantMax, sum := all[10].Temperature, all[10].Temperature, 0.0
	for _, r := range all[10:] {
		if r.Temperature < wantMin {
			wantMin = r.Temperature
		}
		if r.Temperature > wantMax {
			wantMax = r.Temperature
		}
		sum += r.Temperature
	}
	if stats.Temperature.Min != wantMin || stats.Temperature.Max != wantMax {
		t.Fatalf("temperature min/max = %.4f/%.4f, want %.4f/%.4f",
			stats.Temperature.Min, stats.Temperature.Max, wantMin, wantMax)
	}
	wantAvg := sum / 50
	if diff := stats.Temperature.Avg - wantAvg; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("temperature avg = %.6f, want %.6f", stats.Temperature.Avg, wantAvg)
	}
}

func TestMotionActivatesForConfiguredDuration(t *testing.T) {
	cfg := testTelemetryConfig()
	cfg.Motion.Probability = 1.0
	e, clk := newTestEngine(cfg)

	r, _ := e.Tick() // t=0: trial fires immediately
	if !r.MotionDetected {
		t.Fatalf("motion should trigger with probability 1")
	}
	if got := e.Motion().Events; got != 1 {
		t.Fatalf("motion events = %d, want 1", got)
	}

	// Active period suppresses re-trigger; events stay at 1.
	clk.Advance(2 * time.Second) // t=2
	if r, _ = e.Tick(); !r.MotionDetected {
		t.Fatalf("motion should remain active during the window")
	}
	clk.Advance(2 * time.Second) // t=4
	e.Tick()
	if got := e.Motion().Events; got != 1 {
		t.Fatalf("motion events = %d during active window, want 1", got)
	}

	// One second past the window: a non-sample tick clears it.
	clk.Advance(time.Second) // t=5
	e.Tick()
	if e.Motion().Active {
		t.Fatalf("motion should auto-clear once the duration elapses")
	}

	// Next sample re-triggers as a new event.
	clk.Advance(time.Second) // t=6
	if r, _ = e.Tick(); !r.MotionDetected {
		t.Fatalf("motion should re-trigger after clearing")
	}
	if got := e.Motion().Events; got != 2 {
		t.Fatalf("motion events = %d after re-trigger, want 2", got)
	}
}

func TestBatteryDrainsPerSample(t *testing.T) {
	cfg := testTelemetryConfig()
	e, clk := newTestEngine(cfg)
	e.SetBatteryLevel(50)

	r := sample(e, clk, cfg.UpdateInterval)
	if diff := r.BatteryLevel - 49.99; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("battery after one sample = %.4f, want 49.99", r.BatteryLevel)
	}
	for i := 0; i < 9; i++ {
		r = sample(e, clk, cfg.UpdateInterval)
	}
	if diff := r.BatteryLevel - 49.90; diff > 1e-6 || diff < -1e-6 {
		t.Fatalf("battery after ten samples = %.4f, want 49.90", r.BatteryLevel)
	}
}

func TestBatteryRechargesBelowThreshold(t *testing.T) {
	cfg := testTelemetryConfig()
	e, clk := newTestEngine(cfg)
	e.SetBatteryLevel(5)

	r := sample(e, clk, cfg.UpdateInterval)
	if r.BatteryLevel != 10 {
		t.Fatalf("battery after first recharge step = %.2f, want 10", r.BatteryLevel)
	}
	if !e.Battery().Charging {
		t.Fatalf("battery should be charging below the threshold")
	}

	// 5 + 5*n reaches 100 at n=19; the level must rise monotonically.
	prev := r.BatteryLevel
	for i := 0; i < 18; i++ {
		r = sample(e, clk, cfg.UpdateInterval)
		if r.BatteryLevel <= prev {
			t.Fatalf("battery should rise while charging: %.2f then %.2f", prev, r.BatteryLevel)
		}
		prev = r.BatteryLevel
	}
	if r.BatteryLevel != 100 {
		t.Fatalf("battery after full recharge = %.2f, want 100", r.BatteryLevel)
	}
	if e.Battery().Charging {
		t.Fatalf("charging should stop at 100")
	}

	// Back to draining.
	r = sample(e, clk, cfg.UpdateInterval)
	if r.BatteryLevel >= 100 {
		t.Fatalf("battery should drain after recharge completes, got %.4f", r.BatteryLevel)
	}
}

func TestDisabledChannelReadsZero(t *testing.T) {
	cfg := testTelemetryConfig()
	e, clk := newTestEngine(cfg)

	if err := e.EnableChannel(ChannelTemperature, false); err != nil {
		t.Fatalf("disable temperature: %v", err)
	}
	r := sample(e, clk, cfg.UpdateInterval)
	if r.Temperature != 0 {
		t.Fatalf("disabled channel reading = %.4f, want 0", r.Temperature)
	}
	if r.Humidity == 0 {
		t.Fatalf("other channels should keep producing")
	}

	if err := e.EnableChannel(ChannelTemperature, true); err != nil {
		t.Fatalf("re-enable temperature: %v", err)
	}
	r = sample(e, clk, cfg.UpdateInterval)
	if r.Temperature == 0 {
		t.Fatalf("re-enabled channel should produce again")
	}
}

func TestCalibrationOffsetAppliesToNewSamplesOnly(t *testing.T) {
	cfg := testTelemetryConfig()
	e, clk := newTestEngine(cfg)

	before := sample(e, clk, cfg.UpdateInterval)
	if err := e.Calibrate(ChannelTemperature, 100); err != nil {
		t.Fatalf("calibrate: %v", err)
	}
	after := sample(e, clk, cfg.UpdateInterval)
	if after.Temperature < 100 {
		t.Fatalf("calibrated reading = %.4f, offset not applied", after.Temperature)
	}
	window := e.History()
	if !window[0].Timestamp.Equal(before.Timestamp) || window[0].Temperature != before.Temperature {
		t.Fatalf("calibration must not rewrite history")
	}
}

func TestSetHistorySizeTrimsOldest(t *testing.T) {
	cfg := testTelemetryConfig()
	e, clk := newTestEngine(cfg)

	var all []SensorReading
	for i := 0; i < 50; i++ {
		all = append(all, sample(e, clk, cfg.UpdateInterval))
	}
	e.SetHistorySize(20)
	if got := e.HistorySize(); got != 20 {
		t.Fatalf("history size after shrink = %d, want 20", got)
	}
	window := e.History()
	if !window[0].Timestamp.Equal(all[30].Timestamp) {
		t.Fatalf("shrink should drop the oldest readings")
	}
}

func TestClearHistoryAndResetStatistics(t *testing.T) {
	cfg := testTelemetryConfig()
	cfg.Motion.Probability = 1.0
	e, clk := newTestEngine(cfg)

	for i := 0; i < 5; i++ {
		sample(e, clk, cfg.UpdateInterval)
	}
	e.ClearHistory()
	if got := e.HistorySize(); got != 0 {
		t.Fatalf("history size after clear = %d, want 0", got)
	}
	if got := e.Statistics().DataPoints; got != 0 {
		t.Fatalf("stats data points after clear = %d, want 0", got)
	}

	if e.Motion().Events == 0 {
		t.Fatalf("expected motion events before reset")
	}
	e.ResetStatistics()
	if got := e.Motion().Events; got != 0 {
		t.Fatalf("motion events after reset = %d, want 0", got)
	}
	if s := e.Statistics(); s.MotionEvents != 0 || s.DataPoints != 0 {
		t.Fatalf("statistics after reset = %+v, want zeroed", s)
	}
}

func TestSetUpdateIntervalRejectsNonPositive(t *testing.T) {
	cfg := testTelemetryConfig()
	e, _ := newTestEngine(cfg)

	if err := e.SetUpdateInterval(0); errcode.Of(err) != errcode.InvalidParam {
		t.Fatalf("zero interval accepted: %v", err)
	}
	if err := e.SetUpdateInterval(-time.Second); errcode.Of(err) != errcode.InvalidParam {
		t.Fatalf("negative interval accepted: %v", err)
	}
	if err := e.SetUpdateInterval(time.Second); err != nil {
		t.Fatalf("valid interval rejected: %v", err)
	}
	if got := e.UpdateInterval(); got != time.Second {
		t.Fatalf("update interval = %v, want 1s", got)
	}
}

func TestUnknownChannelRejected(t *testing.T) {
	cfg := testTelemetryConfig()
	e, _ := newTestEngine(cfg)

	if err := e.EnableChannel("co2", true); errcode.Of(err) != errcode.InvalidParam {
		t.Fatalf("unknown channel toggle accepted: %v", err)
	}
	if err := e.Calibrate("co2", 1); errcode.Of(err) != errcode.InvalidParam {
		t.Fatalf("unknown channel calibration accepted: %v", err)
	}
	if err := e.Calibrate(ChannelMotion, 1); errcode.Of(err) != errcode.InvalidParam {
		t.Fatalf("binary channel calibration accepted: %v", err)
	}
}

func TestSetBatteryLevelClamps(t *testing.T) {
	cfg := testTelemetryConfig()
	e, _ := newTestEngine(cfg)

	e.SetBatteryLevel(150)
	if got := e.Battery().Level; got != 100 {
		t.Fatalf("battery level = %.2f, want clamped to 100", got)
	}
	e.SetBatteryLevel(-5)
	if got := e.Battery().Level; got != 0 {
		t.Fatalf("battery level = %.2f, want clamped to 0", got)
	}
	if !e.BatteryLow() {
		t.Fatalf("battery at 0 should report low")
	}
}
