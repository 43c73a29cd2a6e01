package mqtt

import "fmt"

// DefaultDiscoveryPrefix is the discovery prefix Home Assistant ships
// with. Installations rarely change it.
const DefaultDiscoveryPrefix = "homeassistant"

// TopicPrefixDevice is the base for this device's own topics.
const TopicPrefixDevice = "hublink"

// Topics builds the topic names for the discovery convention. The zero
// value uses the default discovery prefix.
//
//	topics := mqtt.Topics{}
//	cfg := topics.SensorConfig("a1b2", "cpu_usage")
//	// Returns: "homeassistant/sensor/hublink_a1b2/cpu_usage/config"
type Topics struct {
	DiscoveryPrefix string
}

func (t Topics) prefix() string {
	if t.DiscoveryPrefix == "" {
		return DefaultDiscoveryPrefix
	}
	return t.DiscoveryPrefix
}

// SensorConfig returns the retained discovery config topic for one
// sensor of one device.
//
// Example: homeassistant/sensor/hublink_a1b2/cpu_usage/config
func (t Topics) SensorConfig(deviceID, sensorID string) string {
	return fmt.Sprintf("%s/sensor/%s_%s/%s/config", t.prefix(), TopicPrefixDevice, deviceID, sensorID)
}

// SensorState returns the state topic for one sensor of one device.
//
// Example: hublink/a1b2/sensor/cpu_usage/state
func (t Topics) SensorState(deviceID, sensorID string) string {
	return fmt.Sprintf("%s/%s/sensor/%s/state", TopicPrefixDevice, deviceID, sensorID)
}

// SensorAttributes returns the JSON attributes topic for one sensor.
//
// Example: hublink/a1b2/sensor/cpu_usage/attributes
func (t Topics) SensorAttributes(deviceID, sensorID string) string {
	return fmt.Sprintf("%s/%s/sensor/%s/attributes", TopicPrefixDevice, deviceID, sensorID)
}

// Availability returns the availability topic for a client. The Last
// Will publishes "offline" here; a clean connect publishes "online".
//
// Example: hublink/hublink-desktop/status
func (t Topics) Availability(clientID string) string {
	return fmt.Sprintf("%s/%s/status", TopicPrefixDevice, clientID)
}

// HubStatus returns the hub's birth/will topic. Home Assistant
// publishes "online" here after a restart; subscribers re-announce
// their discovery configs when they see it.
//
// Example: homeassistant/status
func (t Topics) HubStatus() string {
	return fmt.Sprintf("%s/status", t.prefix())
}
