// Package mqtt is the optional local sensor transport: readings pushed
// to the hub over the webhook are mirrored to an MQTT broker using the
// Home Assistant discovery convention, so installations that prefer the
// broker path (or run a second consumer on it) see the same entities.
//
// The client wraps paho.mqtt.golang with connection management,
// automatic reconnection, subscription restoration, and a Last Will so
// the broker marks this device unavailable on a crash. The discovery
// publisher on top of it announces each sensor once per session and
// re-announces when the hub's birth message arrives.
//
// The whole package is inert unless mqtt.enabled is set in config.
package mqtt
