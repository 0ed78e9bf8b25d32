// Package store provides key-value persistence for device settings.
package store

// Well-known keys.
const (
	KeySSID             = "wifi-ssid"
	KeyPassword         = "wifi-password"
	KeyDeviceName       = "device-name"
	KeyBootCount        = "boot-count"
	KeyTotalConnections = "total-connections"
	KeyFactoryResets    = "factory-reset-count"
)

// Store is the persistence contract consumed by the device core.
type Store interface {
	Get(key string) (string, bool)
	Put(key, value string) error
	Remove(key string) error
	Clear() error
}

// Memory is a volatile Store for tests and ephemeral runs.
type Memory struct {
	values map[string]string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *Memory) Put(key, value string) error {
	m.values[key] = value
	return nil
}

func (m *Memory) Remove(key string) error {
	delete(m.values, key)
	return nil
}

func (m *Memory) Clear() error {
	m.values = make(map[string]string)
	return nil
}
