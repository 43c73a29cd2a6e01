package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hublink/hublink-core/internal/infrastructure/config"
	"github.com/hublink/hublink-core/internal/sensor"
)

// discoveryConfig is the retained config payload the hub's MQTT
// discovery consumes to create an entity.
type discoveryConfig struct {
	Name              string          `json:"name"`
	UniqueID          string          `json:"unique_id"`
	StateTopic        string          `json:"state_topic"`
	JSONAttrsTopic    string          `json:"json_attributes_topic,omitempty"`
	AvailabilityTopic string          `json:"availability_topic"`
	DeviceClass       string          `json:"device_class,omitempty"`
	Unit              string          `json:"unit_of_measurement,omitempty"`
	StateClass        string          `json:"state_class,omitempty"`
	Icon              string          `json:"icon,omitempty"`
	Device            discoveryDevice `json:"device"`
}

// discoveryDevice groups all of this machine's entities under one
// device in the hub UI.
type discoveryDevice struct {
	Identifiers []string `json:"identifiers"`
	Name        string   `json:"name"`
	Model       string   `json:"model"`
	SWVersion   string   `json:"sw_version,omitempty"`
}

// Publisher mirrors sensor readings to the broker using the discovery
// convention. It satisfies the scheduler's Mirror interface.
//
// Each sensor's discovery config is published retained once per
// session, lazily on first sight of the sensor, and re-published when
// the hub's birth message arrives after a restart.
//
// Thread Safety: all methods are safe for concurrent use.
type Publisher struct {
	client     *Client
	topics     Topics
	qos        byte
	deviceID   string
	deviceName string
	appVersion string
	logger     Logger

	mu        sync.Mutex
	announced map[string]bool
}

// NewPublisher creates a Publisher on a connected client.
func NewPublisher(client *Client, cfg config.MQTTConfig, deviceID, deviceName, appVersion string, logger Logger) *Publisher {
	p := &Publisher{
		client:     client,
		topics:     Topics{DiscoveryPrefix: cfg.DiscoveryPrefix},
		qos:        byte(cfg.QoS),
		deviceID:   deviceID,
		deviceName: deviceName,
		appVersion: appVersion,
		logger:     logger,
		announced:  make(map[string]bool),
	}

	// Re-announce everything when the hub comes back; retained configs
	// survive broker restarts but not every hub reset wipes cleanly.
	if err := client.Subscribe(p.topics.HubStatus(), p.qos, p.onHubStatus); err != nil {
		logger.Warn("subscribing to hub status", "error", err)
	}
	return p
}

// MirrorReadings publishes the state of every reading, announcing new
// sensors first. Failures are logged and swallowed: the broker path is
// best-effort and must never disturb the webhook push.
func (p *Publisher) MirrorReadings(_ context.Context, readings []sensor.Reading) {
	for _, r := range readings {
		if err := p.announce(r); err != nil {
			p.logger.Warn("publishing discovery config", "sensor", r.ID, "error", err)
			continue
		}
		if err := p.publishState(r); err != nil {
			p.logger.Warn("publishing sensor state", "sensor", r.ID, "error", err)
		}
	}
}

// announce publishes the retained discovery config for a sensor the
// first time it is seen this session.
func (p *Publisher) announce(r sensor.Reading) error {
	p.mu.Lock()
	done := p.announced[r.ID]
	p.mu.Unlock()
	if done {
		return nil
	}

	payload, err := json.Marshal(p.discoveryFor(r))
	if err != nil {
		return err
	}
	if err := p.client.PublishRetained(p.topics.SensorConfig(p.deviceID, r.ID), payload); err != nil {
		return err
	}

	p.mu.Lock()
	p.announced[r.ID] = true
	p.mu.Unlock()
	return nil
}

// discoveryFor builds the discovery config for one reading.
func (p *Publisher) discoveryFor(r sensor.Reading) discoveryConfig {
	cfg := discoveryConfig{
		Name:              r.Name,
		UniqueID:          fmt.Sprintf("%s_%s_%s", TopicPrefixDevice, p.deviceID, r.ID),
		StateTopic:        p.topics.SensorState(p.deviceID, r.ID),
		AvailabilityTopic: p.topics.Availability(p.client.cfg.Broker.ClientID),
		DeviceClass:       r.DeviceClass,
		Unit:              r.Unit,
		StateClass:        r.StateClass,
		Icon:              r.Icon,
		Device: discoveryDevice{
			Identifiers: []string{TopicPrefixDevice + "_" + p.deviceID},
			Name:        p.deviceName,
			Model:       "HubLink Desktop",
			SWVersion:   p.appVersion,
		},
	}
	if len(r.Attributes) > 0 {
		cfg.JSONAttrsTopic = p.topics.SensorAttributes(p.deviceID, r.ID)
	}
	return cfg
}

// publishState publishes the raw state value, and the attributes as a
// JSON document when the reading carries any. All state topics are
// retained so a hub that reconnects sees the last value immediately.
func (p *Publisher) publishState(r sensor.Reading) error {
	stateTopic := p.topics.SensorState(p.deviceID, r.ID)
	if s, ok := r.State.(string); ok {
		if err := p.client.PublishString(stateTopic, s, p.qos, true); err != nil {
			return err
		}
	} else {
		state, err := encodeState(r.State)
		if err != nil {
			return err
		}
		if err := p.client.PublishRetained(stateTopic, state); err != nil {
			return err
		}
	}

	if len(r.Attributes) > 0 {
		attrs, err := json.Marshal(r.Attributes)
		if err != nil {
			return err
		}
		return p.client.PublishRetained(p.topics.SensorAttributes(p.deviceID, r.ID), attrs)
	}
	return nil
}

// Close detaches the publisher from the hub status topic. The MQTT
// client itself stays connected; its lifecycle belongs to the caller.
func (p *Publisher) Close() error {
	return p.client.Unsubscribe(p.topics.HubStatus())
}

// onHubStatus resets the announced set when the hub reports "online",
// so the next batch republishes every discovery config.
func (p *Publisher) onHubStatus(_ string, payload []byte) error {
	if string(payload) != payloadOnline {
		return nil
	}
	p.mu.Lock()
	p.announced = make(map[string]bool)
	p.mu.Unlock()
	return nil
}

// encodeState renders a state value as its MQTT payload. Strings go out
// bare, everything else as JSON, matching how discovery templates read
// state topics.
func encodeState(state any) ([]byte, error) {
	if s, ok := state.(string); ok {
		return []byte(s), nil
	}
	return json.Marshal(state)
}
