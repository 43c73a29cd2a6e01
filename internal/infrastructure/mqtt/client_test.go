package mqtt

import (
	"strings"
	"testing"

	"github.com/hublink/hublink-core/internal/infrastructure/config"
	"github.com/hublink/hublink-core/internal/sensor"
)

func TestTopicBuilders(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"sensor config", topics.SensorConfig("a1b2", "cpu_usage"), "homeassistant/sensor/hublink_a1b2/cpu_usage/config"},
		{"sensor state", topics.SensorState("a1b2", "cpu_usage"), "hublink/a1b2/sensor/cpu_usage/state"},
		{"sensor attributes", topics.SensorAttributes("a1b2", "cpu_usage"), "hublink/a1b2/sensor/cpu_usage/attributes"},
		{"availability", topics.Availability("hublink-desktop"), "hublink/hublink-desktop/status"},
		{"hub status", topics.HubStatus(), "homeassistant/status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestTopics_CustomDiscoveryPrefix(t *testing.T) {
	topics := Topics{DiscoveryPrefix: "ha"}

	if got := topics.SensorConfig("a1b2", "cpu_usage"); !strings.HasPrefix(got, "ha/sensor/") {
		t.Errorf("config topic = %q, want custom prefix", got)
	}
	if got := topics.HubStatus(); got != "ha/status" {
		t.Errorf("hub status = %q, want ha/status", got)
	}
	// State topics stay under the device prefix regardless.
	if got := topics.SensorState("a1b2", "cpu_usage"); got != "hublink/a1b2/sensor/cpu_usage/state" {
		t.Errorf("state topic = %q", got)
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "broker.local",
			Port:     8883,
			TLS:      true,
			ClientID: "hublink-test",
		},
		Auth: config.MQTTAuthConfig{
			Username: "hublink",
			Password: "secret",
		},
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     60,
		},
	}

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "ssl://broker.local:8883" {
		t.Errorf("broker URL = %v, want ssl://broker.local:8883", opts.Servers)
	}
	if opts.ClientID != "hublink-test" {
		t.Errorf("client id = %q", opts.ClientID)
	}
	if opts.Username != "hublink" {
		t.Errorf("username = %q", opts.Username)
	}
	if !opts.AutoReconnect {
		t.Error("auto reconnect disabled")
	}
}

func TestBuildClientOptions_PlainTCP(t *testing.T) {
	cfg := config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{Host: "127.0.0.1", Port: 1883, ClientID: "hublink"},
	}

	opts := buildClientOptions(cfg)
	if opts.Servers[0].Scheme != "tcp" {
		t.Errorf("scheme = %q, want tcp without TLS", opts.Servers[0].Scheme)
	}
}

func TestConfigureLWT(t *testing.T) {
	opts := buildClientOptions(config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{Host: "127.0.0.1", Port: 1883, ClientID: "hublink-desktop"},
	})
	configureLWT(opts, "hublink-desktop")

	if !opts.WillEnabled {
		t.Fatal("LWT not enabled")
	}
	if opts.WillTopic != "hublink/hublink-desktop/status" {
		t.Errorf("will topic = %q", opts.WillTopic)
	}
	if string(opts.WillPayload) != payloadOffline {
		t.Errorf("will payload = %q, want offline", opts.WillPayload)
	}
	if !opts.WillRetained {
		t.Error("will not retained")
	}
}

func TestPublish_Validation(t *testing.T) {
	c := &Client{subscriptions: make(map[string]subscription)}

	if err := c.Publish("", []byte("x"), 0, false); err != ErrInvalidTopic {
		t.Errorf("empty topic error = %v, want ErrInvalidTopic", err)
	}
	if err := c.Publish("hublink/x", []byte("x"), 3, false); err != ErrInvalidQoS {
		t.Errorf("qos 3 error = %v, want ErrInvalidQoS", err)
	}
}

func TestSubscribe_Validation(t *testing.T) {
	c := &Client{subscriptions: make(map[string]subscription)}

	if err := c.Subscribe("", 0, func(string, []byte) error { return nil }); err != ErrInvalidTopic {
		t.Errorf("empty topic error = %v, want ErrInvalidTopic", err)
	}
	if err := c.Subscribe("hublink/x", 3, func(string, []byte) error { return nil }); err != ErrInvalidQoS {
		t.Errorf("qos 3 error = %v, want ErrInvalidQoS", err)
	}
	if err := c.Subscribe("hublink/x", 0, nil); err == nil {
		t.Error("nil handler accepted")
	}
}

func TestUnsubscribe_Validation(t *testing.T) {
	c := &Client{subscriptions: make(map[string]subscription)}

	if err := c.Unsubscribe(""); err != ErrInvalidTopic {
		t.Errorf("empty topic error = %v, want ErrInvalidTopic", err)
	}
	if err := c.Unsubscribe("hublink/x"); err != ErrNotConnected {
		t.Errorf("disconnected error = %v, want ErrNotConnected", err)
	}
}

func TestDiscoveryConfig(t *testing.T) {
	p := &Publisher{
		client:     &Client{cfg: config.MQTTConfig{Broker: config.MQTTBrokerConfig{ClientID: "hublink-desktop"}}},
		topics:     Topics{},
		deviceID:   "a1b2",
		deviceName: "workstation",
		appVersion: "1.2.0",
		announced:  make(map[string]bool),
	}

	cfg := p.discoveryFor(sensor.Reading{
		ID:          "cpu_usage",
		Name:        "CPU Usage",
		DeviceClass: "power_factor",
		Unit:        "%",
		StateClass:  "measurement",
		Icon:        "mdi:cpu-64-bit",
	})

	if cfg.UniqueID != "hublink_a1b2_cpu_usage" {
		t.Errorf("unique id = %q", cfg.UniqueID)
	}
	if cfg.StateTopic != "hublink/a1b2/sensor/cpu_usage/state" {
		t.Errorf("state topic = %q", cfg.StateTopic)
	}
	if cfg.AvailabilityTopic != "hublink/hublink-desktop/status" {
		t.Errorf("availability topic = %q", cfg.AvailabilityTopic)
	}
	if cfg.JSONAttrsTopic != "" {
		t.Errorf("attributes topic = %q, want empty without attributes", cfg.JSONAttrsTopic)
	}
	if len(cfg.Device.Identifiers) != 1 || cfg.Device.Identifiers[0] != "hublink_a1b2" {
		t.Errorf("device identifiers = %v", cfg.Device.Identifiers)
	}
	if cfg.Device.Name != "workstation" || cfg.Device.SWVersion != "1.2.0" {
		t.Errorf("device block = %+v", cfg.Device)
	}
}

func TestDiscoveryConfig_AttributesTopic(t *testing.T) {
	p := &Publisher{
		client:    &Client{},
		deviceID:  "a1b2",
		announced: make(map[string]bool),
	}

	cfg := p.discoveryFor(sensor.Reading{
		ID:         "memory_usage",
		Attributes: map[string]any{"total_gb": 32},
	})
	if cfg.JSONAttrsTopic != "hublink/a1b2/sensor/memory_usage/attributes" {
		t.Errorf("attributes topic = %q", cfg.JSONAttrsTopic)
	}
}

func TestEncodeState(t *testing.T) {
	tests := []struct {
		name  string
		state any
		want  string
	}{
		{"string goes bare", "Linux", "Linux"},
		{"float as json", 42.5, "42.5"},
		{"int as json", 7, "7"},
		{"bool as json", true, "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := encodeState(tt.state)
			if err != nil {
				t.Fatalf("encodeState() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("encodeState(%v) = %q, want %q", tt.state, got, tt.want)
			}
		})
	}
}

func TestOnHubStatus_ResetsAnnouncements(t *testing.T) {
	p := &Publisher{announced: map[string]bool{"cpu_usage": true}}

	if err := p.onHubStatus("homeassistant/status", []byte("offline")); err != nil {
		t.Fatalf("onHubStatus() error = %v", err)
	}
	if !p.announced["cpu_usage"] {
		t.Error("offline message cleared the announced set")
	}

	if err := p.onHubStatus("homeassistant/status", []byte("online")); err != nil {
		t.Fatalf("onHubStatus() error = %v", err)
	}
	if p.announced["cpu_usage"] {
		t.Error("online message did not clear the announced set")
	}
}

func TestPublisherClose_Disconnected(t *testing.T) {
	p := &Publisher{
		client:    &Client{subscriptions: make(map[string]subscription)},
		announced: make(map[string]bool),
	}

	if err := p.Close(); err != ErrNotConnected {
		t.Errorf("Close() error = %v, want ErrNotConnected", err)
	}
}

func TestCloseNil(t *testing.T) {
	c := &Client{}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on unconnected client = %v", err)
	}
}
