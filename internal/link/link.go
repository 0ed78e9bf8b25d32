// Package link abstracts the radio hardware used by the connectivity core.
package link

// Status reports the client-side link state.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Network describes one visible network in a scan result.
type Network struct {
	SSID   string `json:"ssid"`
	RSSI   int    `json:"rssi"`
	Secure bool   `json:"secure"`
}

// Driver is the radio contract. Real hardware would sit behind this;
// the repository ships a simulated implementation.
type Driver interface {
	// BeginClient starts a non-blocking association with the network.
	BeginClient(ssid, password string) error
	// Status reports the current client link state.
	Status() Status
	// Disconnect tears down the client link.
	Disconnect()
	// StartAccessPoint brings up the self-hosted network.
	StartAccessPoint(ssid, password string, channel int, hidden bool, maxClients int) bool
	// StopAccessPoint tears the self-hosted network down.
	StopAccessPoint()
	// RSSI reports signal strength in dBm, 0 when not connected.
	RSSI() int
	// LocalAddress is the client-mode IP, empty when not connected.
	LocalAddress() string
	// APAddress is the access-point IP, empty when the AP is down.
	APAddress() string
	// Scan lists the networks currently in range.
	Scan() []Network
}
