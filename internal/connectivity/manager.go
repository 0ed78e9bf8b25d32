// Package connectivity owns the radio mode state machine: client-mode
// connections, the self-hosted setup access point, credential
// persistence, and bounded reconnection.
package connectivity

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff"

	"smartnode-sim/internal/errcode"
	"smartnode-sim/internal/link"
	"smartnode-sim/internal/store"
)

// State enumerates the connectivity modes. Exactly one is active.
type State int

const (
	StateUninitialized State = iota
	StateConnecting
	StateConnected
	StateAccessPoint
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateAccessPoint:
		return "access_point"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "uninitialized"
	}
}

// Portal is the captive-portal DNS service. It runs exactly while the
// access point is up.
type Portal interface {
	Start(apAddress string) error
	Stop()
	Active() bool
}

// Config carries the connectivity settings.
type Config struct {
	SSIDPrefix        string
	APPassword        string
	APChannel         int
	APHidden          bool
	APMaxClients      int
	ConnectTimeout    time.Duration
	ReconnectInterval time.Duration
	MaxReconnects     uint
}

// StatusSnapshot is a read-only view served to the presentation layer.
type StatusSnapshot struct {
	State             string `json:"state"`
	Connected         bool   `json:"connected"`
	AccessPointActive bool   `json:"access_point_active"`
	SSID              string `json:"ssid"`
	APSSID            string `json:"ap_ssid"`
	LocalIP           string `json:"local_ip"`
	APIP              string `json:"access_point_ip"`
	RSSI              int    `json:"rssi"`
	ReconnectAttempts uint   `json:"reconnect_attempts"`
	LastError         string `json:"last_error,omitempty"`
}

// Manager is the connectivity state machine. All public methods are
// safe for concurrent use; the host loop and the presentation layer
// may call in from different goroutines.
type Manager struct {
	mu     sync.Mutex
	cfg    Config
	link   link.Driver
	store  store.Store
	portal Portal
	log    *slog.Logger
	now    func() time.Time

	state      State
	deviceName string
	apSSID     string
	ssid       string
	password   string
	apActive   bool
	lastError  errcode.Code

	connectDeadline time.Time

	reconnectArmed bool
	attemptsUsed   uint
	nextAttemptAt  time.Time
	retrySchedule  backoff.BackOff

	onConnected    func()
	onDisconnected func()
	onAPStarted    func()
}

// NewManager wires the state machine to its collaborators. The store
// owns credential persistence; the portal is started and stopped in
// lockstep with the access point.
func NewManager(cfg Config, drv link.Driver, st store.Store, portal Portal, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		cfg:    cfg,
		link:   drv,
		store:  st,
		portal: portal,
		log:    log,
		now:    time.Now,
		state:  StateUninitialized,
	}
}

// ScanNetworks lists the networks currently in range.
func (m *Manager) ScanNetworks() []link.Network {
	return m.link.Scan()
}

// SetClock overrides the wall clock, for deterministic tests.
func (m *Manager) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// OnConnected registers the connected notification sink.
func (m *Manager) OnConnected(fn func()) { m.mu.Lock(); m.onConnected = fn; m.mu.Unlock() }

// OnDisconnected registers the disconnected notification sink.
func (m *Manager) OnDisconnected(fn func()) { m.mu.Lock(); m.onDisconnected = fn; m.mu.Unlock() }

// OnAccessPointStarted registers the access-point-started sink.
func (m *Manager) OnAccessPointStarted(fn func()) { m.mu.Lock(); m.onAPStarted = fn; m.mu.Unlock() }

// Initialize loads stored credentials and either begins a client
// connection with them or starts the setup access point directly.
func (m *Manager) Initialize(deviceName string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deviceName = deviceName
	m.apSSID = sanitizeSSID(m.cfg.SSIDPrefix + deviceName)

	ssid, okS := m.store.Get(store.KeySSID)
	password, _ := m.store.Get(store.KeyPassword)
	if okS && ssid != "" {
		m.log.Info("connecting to stored network", "ssid", ssid)
		m.beginConnectLocked(ssid, password)
		return
	}
	m.log.Info("no stored credentials, starting access point", "ap_ssid", m.apSSID)
	m.startAccessPointLocked()
	m.state = StateAccessPoint
}

// Connect validates the credentials and begins a non-blocking client
// connection. A nil return means the attempt is pending; resolution is
// delivered from Tick as a connected or disconnected notification.
func (m *Manager) Connect(ssid, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(ssid) == 0 || len(ssid) > 32 {
		m.lastError = errcode.InvalidSSID
		return errcode.InvalidSSID
	}
	if len(password) != 0 && (len(password) < 8 || len(password) > 63) {
		m.lastError = errcode.InvalidPassword
		return errcode.InvalidPassword
	}

	if m.state == StateConnected {
		m.link.Disconnect()
	}
	m.beginConnectLocked(ssid, password)
	return nil
}

// beginConnectLocked starts a client association and arms the timeout.
func (m *Manager) beginConnectLocked(ssid, password string) {
	m.ssid = ssid
	m.password = password
	m.attemptsUsed = 0
	m.reconnectArmed = false
	m.connectDeadline = m.now().Add(m.cfg.ConnectTimeout)
	m.link.BeginClient(ssid, password)
	m.state = StateConnecting
}

// Disconnect disables auto-reconnect and tears down the client link.
// Idempotent when already disconnected. The access point is brought up
// so the device stays reachable for setup.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateConnected {
		return
	}
	m.reconnectArmed = false
	m.link.Disconnect()
	m.fireLocked(m.onDisconnected)
	m.startAccessPointLocked()
	m.state = StateAccessPoint
	m.log.Info("disconnected from network", "ssid", m.ssid)
}

// ResetSettings unconditionally disconnects, erases persisted
// credentials, and starts the access point. The terminal recovery
// action for a forgotten network.
func (m *Manager) ResetSettings() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateConnected {
		m.reconnectArmed = false
		m.link.Disconnect()
		m.fireLocked(m.onDisconnected)
	}
	m.store.Remove(store.KeySSID)
	m.store.Remove(store.KeyPassword)
	m.ssid = ""
	m.password = ""
	m.attemptsUsed = 0
	m.reconnectArmed = false
	m.startAccessPointLocked()
	m.state = StateAccessPoint
	m.log.Info("wifi settings reset")
}

// SetDeviceName re-derives the access-point SSID. If the access point
// is up it is restarted so the new SSID takes effect.
func (m *Manager) SetDeviceName(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !validDeviceName(name) {
		return errcode.InvalidDeviceName
	}
	m.deviceName = name
	m.apSSID = sanitizeSSID(m.cfg.SSIDPrefix + name)
	if m.apActive {
		m.stopAccessPointLocked()
		m.startAccessPointLocked()
	}
	return nil
}

// Tick advances the state machine by one host-loop iteration.
func (m *Manager) Tick() {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StateConnecting:
		m.tickConnectingLocked()
	case StateConnected:
		m.tickConnectedLocked()
	case StateReconnecting:
		m.tickReconnectingLocked()
	case StateAccessPoint:
		// A late association can still complete after we fell back to
		// the access point; promote it.
		if m.ssid != "" && m.link.Status() == link.StatusConnected {
			m.completeConnectLocked()
		}
	}
}

func (m *Manager) tickConnectingLocked() {
	switch m.link.Status() {
	case link.StatusConnected:
		m.completeConnectLocked()
	case link.StatusConnecting, link.StatusDisconnected:
		if m.now().After(m.connectDeadline) {
			m.log.Warn("connect timed out, starting access point", "ssid", m.ssid)
			m.lastError = errcode.LinkTimeout
			m.link.Disconnect()
			m.startAccessPointLocked()
			m.state = StateAccessPoint
		}
	}
}

func (m *Manager) tickConnectedLocked() {
	if m.link.Status() == link.StatusConnected {
		return
	}
	m.log.Warn("link lost", "ssid", m.ssid)
	m.lastError = errcode.LinkLost
	m.fireLocked(m.onDisconnected)
	if m.cfg.MaxReconnects == 0 {
		m.startAccessPointLocked()
		m.state = StateAccessPoint
		return
	}
	m.armReconnectLocked()
	m.state = StateReconnecting
}

func (m *Manager) tickReconnectingLocked() {
	if m.link.Status() == link.StatusConnected {
		m.completeConnectLocked()
		return
	}
	if m.now().Before(m.nextAttemptAt) {
		return
	}
	m.attemptsUsed++
	m.log.Info("reconnection attempt", "ssid", m.ssid, "attempt", m.attemptsUsed, "max", m.cfg.MaxReconnects)
	m.link.BeginClient(m.ssid, m.password)

	next := m.retrySchedule.NextBackOff()
	if next == backoff.Stop {
		m.log.Warn("reconnection attempts exhausted, starting access point")
		m.lastError = errcode.RetriesExhausted
		m.reconnectArmed = false
		m.startAccessPointLocked()
		m.state = StateAccessPoint
		return
	}
	m.nextAttemptAt = m.now().Add(next)
}

// armReconnectLocked schedules a bounded constant-interval retry
// sequence: the first attempt fires one interval after the loss, and
// the schedule stops after MaxReconnects attempts.
func (m *Manager) armReconnectLocked() {
	m.reconnectArmed = true
	m.attemptsUsed = 0
	m.retrySchedule = backoff.WithMaxRetries(
		backoff.NewConstantBackOff(m.cfg.ReconnectInterval),
		uint64(m.cfg.MaxReconnects-1),
	)
	m.nextAttemptAt = m.now().Add(m.cfg.ReconnectInterval)
}

// completeConnectLocked finalizes a successful client association:
// credentials are persisted, the access point and its DNS service are
// torn down, and the connected notification fires exactly once.
func (m *Manager) completeConnectLocked() {
	m.store.Put(store.KeySSID, m.ssid)
	m.store.Put(store.KeyPassword, m.password)
	if m.apActive {
		m.stopAccessPointLocked()
	}
	m.attemptsUsed = 0
	m.reconnectArmed = false
	m.lastError = errcode.OK
	m.state = StateConnected
	m.log.Info("connected", "ssid", m.ssid, "ip", m.link.LocalAddress(), "rssi", m.link.RSSI())
	m.fireLocked(m.onConnected)
}

func (m *Manager) startAccessPointLocked() {
	if m.apActive {
		return
	}
	if !m.link.StartAccessPoint(m.apSSID, m.cfg.APPassword, m.cfg.APChannel, m.cfg.APHidden, m.cfg.APMaxClients) {
		m.log.Error("failed to start access point", "ap_ssid", m.apSSID)
		m.lastError = errcode.APStart
		return
	}
	m.apActive = true
	if m.portal != nil {
		if err := m.portal.Start(m.link.APAddress()); err != nil {
			m.log.Error("captive portal start failed", "err", err)
		}
	}
	m.log.Info("access point started", "ap_ssid", m.apSSID, "ip", m.link.APAddress())
	m.fireLocked(m.onAPStarted)
}

func (m *Manager) stopAccessPointLocked() {
	if !m.apActive {
		return
	}
	if m.portal != nil {
		m.portal.Stop()
	}
	m.link.StopAccessPoint()
	m.apActive = false
	m.log.Info("access point stopped", "ap_ssid", m.apSSID)
}

// fireLocked invokes a notification sink while holding the manager
// lock; sinks are expected to be short and non-reentrant.
func (m *Manager) fireLocked(fn func()) {
	if fn != nil {
		fn()
	}
}

// State returns the current connectivity state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// AccessPointActive reports whether the setup network is up.
func (m *Manager) AccessPointActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.apActive
}

// AccessPointSSID returns the derived setup network name.
func (m *Manager) AccessPointSSID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.apSSID
}

// ConnectedSSID returns the network name while connected, else "".
func (m *Manager) ConnectedSSID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateConnected {
		return ""
	}
	return m.ssid
}

// Snapshot assembles the status view for the presentation layer.
func (m *Manager) Snapshot() StatusSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := StatusSnapshot{
		State:             m.state.String(),
		Connected:         m.state == StateConnected,
		AccessPointActive: m.apActive,
		APSSID:            m.apSSID,
		APIP:              m.link.APAddress(),
		ReconnectAttempts: m.attemptsUsed,
	}
	if m.state == StateConnected {
		s.SSID = m.ssid
		s.LocalIP = m.link.LocalAddress()
		s.RSSI = m.link.RSSI()
	}
	if m.lastError != errcode.OK && m.lastError != "" {
		s.LastError = string(m.lastError)
	}
	return s
}

// sanitizeSSID replaces disallowed characters and caps the length at 32.
func sanitizeSSID(ssid string) string {
	var b strings.Builder
	for _, r := range ssid {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	out := b.String()
	if len(out) > 32 {
		out = out[:32]
	}
	return out
}

func validDeviceName(name string) bool {
	if len(name) < 3 || len(name) > 32 {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == ' ':
		default:
			return false
		}
	}
	return true
}
