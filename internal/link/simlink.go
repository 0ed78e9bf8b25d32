package link

import (
	"math/rand"
	"sort"
	"sync"
	"time"
)

// SimDriver simulates a radio. Client associations to known networks
// succeed after a configurable latency; everything else stays in the
// connecting state until the caller gives up.
type SimDriver struct {
	mu       sync.Mutex
	networks map[string]string // ssid -> password
	latency  time.Duration
	now      func() time.Time
	rand     *rand.Rand

	target     string
	targetOK   bool
	beganAt    time.Time
	connecting bool
	connected  bool

	apActive  bool
	apAddress string
}

// NewSimDriver returns a simulated radio. apAddress is the address the
// device claims while hosting its setup network.
func NewSimDriver(apAddress string, latency time.Duration) *SimDriver {
	return &SimDriver{
		networks:  make(map[string]string),
		latency:   latency,
		now:       time.Now,
		rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
		apAddress: apAddress,
	}
}

// SetClock overrides the wall clock, for deterministic tests.
func (d *SimDriver) SetClock(now func() time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.now = now
}

// AddNetwork makes a network reachable.
func (d *SimDriver) AddNetwork(ssid, password string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.networks[ssid] = password
}

// RemoveNetwork makes a network unreachable. An established link to it
// is dropped.
func (d *SimDriver) RemoveNetwork(ssid string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.networks, ssid)
	if d.target == ssid {
		d.connected = false
		d.connecting = false
	}
}

// DropLink simulates an unexpected loss of the client link.
func (d *SimDriver) DropLink() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connected = false
	d.connecting = false
}

func (d *SimDriver) BeginClient(ssid, password string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	want, known := d.networks[ssid]
	d.target = ssid
	d.targetOK = known && want == password
	d.beganAt = d.now()
	d.connecting = true
	d.connected = false
	return nil
}

func (d *SimDriver) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.connecting && d.now().Sub(d.beganAt) >= d.latency {
		d.connecting = false
		d.connected = d.targetOK
	}
	switch {
	case d.connected:
		return StatusConnected
	case d.connecting:
		return StatusConnecting
	default:
		return StatusDisconnected
	}
}

func (d *SimDriver) Disconnect() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connected = false
	d.connecting = false
}

func (d *SimDriver) StartAccessPoint(ssid, password string, channel int, hidden bool, maxClients int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.apActive = true
	return true
}

func (d *SimDriver) StopAccessPoint() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.apActive = false
}

func (d *SimDriver) RSSI() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return 0
	}
	return -40 - d.rand.Intn(30)
}

func (d *SimDriver) LocalAddress() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return ""
	}
	return "192.168.1.50"
}

// Scan reports every known network with a synthetic signal strength.
func (d *SimDriver) Scan() []Network {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Network, 0, len(d.networks))
	for ssid, password := range d.networks {
		out = append(out, Network{
			SSID:   ssid,
			RSSI:   -40 - d.rand.Intn(50),
			Secure: password != "",
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RSSI > out[j].RSSI })
	return out
}

func (d *SimDriver) APAddress() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.apActive {
		return ""
	}
	return d.apAddress
}
