package device

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"smartnode-sim/internal/connectivity"
	"smartnode-sim/internal/telemetry"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

type readingMsg struct{ telemetry.SensorReading }
type statsMsg struct{ telemetry.Statistics }
type statusMsg struct{ connectivity.StatusSnapshot }

const logKeep = 500

// TUIWriter renders the device state using a bubbletea TUI.
type TUIWriter struct {
	program    teaProgram
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter.
func NewTUIWriter(deviceName string) *TUIWriter {
	w := &TUIWriter{done: make(chan struct{})}
	w.sendSignal.Store(true)
	p := tea.NewProgram(newTUIModel(deviceName), tea.WithAltScreen())
	w.program = p
	go func() {
		_, _ = p.Run()
		close(w.done)
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

// Write implements TelemetryWriter.
func (w *TUIWriter) Write(r telemetry.SensorReading) error {
	w.program.Send(readingMsg{r})
	return nil
}

// WriteBatch outputs multiple readings.
func (w *TUIWriter) WriteBatch(rows []telemetry.SensorReading) error {
	for _, r := range rows {
		_ = w.Write(r)
	}
	return nil
}

// WriteStatus updates the connectivity panel.
func (w *TUIWriter) WriteStatus(s connectivity.StatusSnapshot) {
	w.program.Send(statusMsg{s})
}

// WriteStats updates the statistics panel.
func (w *TUIWriter) WriteStats(s telemetry.Statistics) {
	w.program.Send(statsMsg{s})
}

// Close shuts down the TUI program and waits for cleanup.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	alertStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	borderStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

type tuiModel struct {
	deviceName string
	reading    telemetry.SensorReading
	haveRead   bool
	stats      telemetry.Statistics
	status     connectivity.StatusSnapshot
	logs       []string
	width      int
	height     int
	paused     bool
}

func newTUIModel(deviceName string) tuiModel {
	return tuiModel{deviceName: deviceName}
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "p":
			m.paused = !m.paused
		}
	case readingMsg:
		if m.paused {
			return m, nil
		}
		m.reading = msg.SensorReading
		m.haveRead = true
		m.logs = append(m.logs, formatReadingLine(msg.SensorReading))
		if len(m.logs) > logKeep {
			m.logs = m.logs[len(m.logs)-logKeep:]
		}
	case statsMsg:
		m.stats = msg.Statistics
	case statusMsg:
		m.status = msg.StatusSnapshot
	}
	return m, nil
}

func formatReadingLine(r telemetry.SensorReading) string {
	motion := " "
	if r.MotionDetected {
		motion = "M"
	}
	return fmt.Sprintf("[%s] t=%.2fC h=%.1f%% p=%.1fhPa l=%.1f%% batt=%.1f%% %s",
		r.Timestamp.Format(time.RFC3339), r.Temperature, r.Humidity,
		r.Pressure, r.LightLevel, r.BatteryLevel, motion)
}

func (m tuiModel) View() string {
	header := titleStyle.Render("smartnode " + m.deviceName)

	stateStyle := warnStyle
	switch m.status.State {
	case "connected":
		stateStyle = okStyle
	case "access_point":
		stateStyle = alertStyle
	}
	connLines := []string{
		labelStyle.Render("state    ") + stateStyle.Render(m.status.State),
		labelStyle.Render("ssid     ") + m.status.SSID,
		labelStyle.Render("ip       ") + m.status.LocalIP,
		labelStyle.Render("rssi     ") + fmt.Sprintf("%d dBm", m.status.RSSI),
		labelStyle.Render("retries  ") + fmt.Sprintf("%d", m.status.ReconnectAttempts),
	}
	if m.status.AccessPointActive {
		connLines = append(connLines,
			labelStyle.Render("ap ssid  ")+m.status.APSSID,
			labelStyle.Render("ap ip    ")+m.status.APIP)
	}
	connPanel := borderStyle.Render(strings.Join(connLines, "\n"))

	statLines := []string{
		labelStyle.Render("samples  ") + fmt.Sprintf("%d", m.stats.DataPoints),
		labelStyle.Render("temp     ") + formatChannel(m.stats.Temperature, "C"),
		labelStyle.Render("humidity ") + formatChannel(m.stats.Humidity, "%"),
		labelStyle.Render("pressure ") + formatChannel(m.stats.Pressure, "hPa"),
		labelStyle.Render("light    ") + formatChannel(m.stats.Light, "%"),
		labelStyle.Render("motion   ") + fmt.Sprintf("%d events", m.stats.MotionEvents),
	}
	statPanel := borderStyle.Render(strings.Join(statLines, "\n"))

	panels := lipgloss.JoinHorizontal(lipgloss.Top, connPanel, statPanel)

	logHeight := m.height - lipgloss.Height(header) - lipgloss.Height(panels) - 2
	if logHeight < 1 {
		logHeight = 1
	}
	start := len(m.logs) - logHeight
	if start < 0 {
		start = 0
	}
	logView := strings.Join(m.logs[start:], "\n")

	footer := labelStyle.Render("q quit | p pause")
	return strings.Join([]string{header, panels, logView, footer}, "\n")
}

func formatChannel(cs telemetry.ChannelStats, unit string) string {
	return fmt.Sprintf("%.2f/%.2f/%.2f %s", cs.Min, cs.Avg, cs.Max, unit)
}
