package sensor

import "context"

// HostCollector is the built-in Collector. It covers the host facts the
// core can read portably (hostname, OS); the UI shell substitutes a full
// hardware collector with CPU/GPU/disk/battery probes on platforms where
// it has one.
type HostCollector struct {
	appVersion string
}

// NewHostCollector creates the built-in collector.
// appVersion is reported as a static sensor alongside the OS facts.
func NewHostCollector(appVersion string) *HostCollector {
	return &HostCollector{appVersion: appVersion}
}

// Catalog returns the fixed set of host-fact sensors.
func (c *HostCollector) Catalog() []Descriptor {
	return []Descriptor{
		{ID: "hostname", Name: "Hostname", UpdatesAtInterval: false},
		{ID: "os_name", Name: "Operating System", UpdatesAtInterval: false},
		{ID: "os_version", Name: "OS Version", UpdatesAtInterval: false},
		{ID: "app_version", Name: "Companion Version", UpdatesAtInterval: false},
	}
}

// CollectAll returns every reading this collector produces.
func (c *HostCollector) CollectAll(ctx context.Context) ([]Reading, error) {
	return c.CollectStatic(ctx)
}

// CollectDynamic returns no readings: all host facts are static.
func (c *HostCollector) CollectDynamic(_ context.Context) ([]Reading, error) {
	return nil, nil
}

// CollectStatic probes the host and returns one reading per catalog entry.
func (c *HostCollector) CollectStatic(_ context.Context) ([]Reading, error) {
	info := ProbeHost()

	return []Reading{
		{
			ID:         "hostname",
			Name:       "Hostname",
			State:      info.Hostname,
			SensorType: "sensor",
			Icon:       "mdi:desktop-tower",
		},
		{
			ID:         "os_name",
			Name:       "Operating System",
			State:      info.OSName,
			SensorType: "sensor",
			Icon:       "mdi:monitor",
		},
		{
			ID:         "os_version",
			Name:       "OS Version",
			State:      info.OSVersion,
			SensorType: "sensor",
			Icon:       "mdi:information-outline",
		},
		{
			ID:         "app_version",
			Name:       "Companion Version",
			State:      c.appVersion,
			SensorType: "sensor",
			Icon:       "mdi:package-variant",
		},
	}, nil
}
