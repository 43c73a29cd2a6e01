package sensor

import (
	"context"
	"fmt"

	"github.com/hublink/hublink-core/internal/store"
)

// EnablementStore is the slice of the settings store the registry needs.
type EnablementStore interface {
	Load(ctx context.Context) (*store.Settings, error)
	SetSensorEnabled(ctx context.Context, sensorID string, enabled bool) error
}

// Registry merges the collector's fixed catalog with the persisted
// enablement map. The catalog itself belongs to the collector; the
// registry owns only whether each sensor participates.
//
// Thread Safety: the registry holds no mutable state of its own; all
// state lives in the store, which serializes writes.
type Registry struct {
	collector Collector
	store     EnablementStore
}

// NewRegistry creates a Registry over the given collector and store.
func NewRegistry(collector Collector, enablement EnablementStore) *Registry {
	return &Registry{
		collector: collector,
		store:     enablement,
	}
}

// List returns the catalog in collector order with persisted enablement
// applied. Sensors without a persisted flag default to enabled.
func (r *Registry) List(ctx context.Context) ([]Descriptor, error) {
	settings, err := r.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading enablement: %w", err)
	}

	catalog := r.collector.Catalog()
	out := make([]Descriptor, len(catalog))
	for i, d := range catalog {
		d.Enabled = enabledFor(settings.EnabledSensors, d.ID)
		out[i] = d
	}
	return out, nil
}

// Toggle persists the enablement flag for a sensor.
//
// The change takes effect on the next scheduler tick; values already
// pushed to the hub are not retracted.
//
// Returns:
//   - error: ErrSensorNotFound for an id outside the catalog, or a store
//     error if persisting fails
func (r *Registry) Toggle(ctx context.Context, sensorID string, enabled bool) error {
	if !r.inCatalog(sensorID) {
		return fmt.Errorf("%w: %s", ErrSensorNotFound, sensorID)
	}
	return r.store.SetSensorEnabled(ctx, sensorID, enabled)
}

// Filter drops readings whose sensor is disabled. Enablement applies to
// static sensors the same way it applies to periodic ones.
func (r *Registry) Filter(ctx context.Context, readings []Reading) ([]Reading, error) {
	settings, err := r.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading enablement: %w", err)
	}

	out := make([]Reading, 0, len(readings))
	for _, reading := range readings {
		if enabledFor(settings.EnabledSensors, reading.ID) {
			out = append(out, reading)
		}
	}
	return out, nil
}

func (r *Registry) inCatalog(sensorID string) bool {
	for _, d := range r.collector.Catalog() {
		if d.ID == sensorID {
			return true
		}
	}
	return false
}

func enabledFor(flags map[string]bool, id string) bool {
	enabled, ok := flags[id]
	if !ok {
		return true
	}
	return enabled
}
