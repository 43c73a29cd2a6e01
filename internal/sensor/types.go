package sensor

import "context"

// Descriptor describes one sensor the companion can mirror to the hub.
type Descriptor struct {
	// ID is the stable key the hub and the enablement map use,
	// e.g. "cpu_usage".
	ID string `json:"id"`

	// Name is the display label shown in the settings UI.
	Name string `json:"name"`

	// Enabled reflects the persisted user preference. Sensors unknown to
	// the enablement map default to enabled.
	Enabled bool `json:"enabled"`

	// UpdatesAtInterval is true for periodic metrics (CPU usage) and false
	// for static facts (OS version) captured once per registration or
	// startup.
	UpdatesAtInterval bool `json:"updates_at_interval"`
}

// Reading is one collected sensor value plus the hub-facing metadata that
// travels with every push.
type Reading struct {
	ID                string         `json:"unique_id"`
	Name              string         `json:"name"`
	State             any            `json:"state"`
	SensorType        string         `json:"sensor_type"` // "sensor" or "binary_sensor"
	DeviceClass       string         `json:"device_class,omitempty"`
	Unit              string         `json:"unit_of_measurement,omitempty"`
	StateClass        string         `json:"state_class,omitempty"`
	Icon              string         `json:"icon,omitempty"`
	Attributes        map[string]any `json:"attributes,omitempty"`
	UpdatesAtInterval bool           `json:"-"`
}

// Collector is the external capability that produces raw sensor data.
// The core never reads hardware itself; the collaborator that owns the
// platform-specific probes implements this interface.
type Collector interface {
	// Catalog returns the fixed ordered set of sensors this collector
	// knows, without enablement applied.
	Catalog() []Descriptor

	// CollectAll returns readings for every catalog sensor, static and
	// periodic. Used at registration time.
	CollectAll(ctx context.Context) ([]Reading, error)

	// CollectDynamic returns readings for periodic sensors only. Used on
	// every scheduler tick.
	CollectDynamic(ctx context.Context) ([]Reading, error)

	// CollectStatic returns readings for static sensors only. Used for the
	// one-time push at startup when already registered.
	CollectStatic(ctx context.Context) ([]Reading, error)
}
