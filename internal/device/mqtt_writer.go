package device

import (
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"smartnode-sim/internal/telemetry"
)

// MQTTWriter publishes sensor readings to an MQTT broker, one JSON
// payload per reading.
type MQTTWriter struct {
	client mqtt.Client
	topic  string
}

// NewMQTTWriter connects to the broker and returns the writer. The
// topic is derived from the device name.
func NewMQTTWriter(brokerAddr, deviceName string) (*MQTTWriter, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(brokerAddr).
		SetClientID("smartnode-" + deviceName).
		SetAutoReconnect(true)
	c := mqtt.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return &MQTTWriter{
		client: c,
		topic:  "smartnode/" + deviceName + "/telemetry",
	}, nil
}

// Write publishes a single reading.
func (w *MQTTWriter) Write(r telemetry.SensorReading) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}
	token := w.client.Publish(w.topic, 0, false, payload)
	token.Wait()
	return token.Error()
}

// WriteBatch publishes multiple readings.
func (w *MQTTWriter) WriteBatch(rows []telemetry.SensorReading) error {
	for _, r := range rows {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// Close disconnects from the broker.
func (w *MQTTWriter) Close() {
	w.client.Disconnect(250)
}
