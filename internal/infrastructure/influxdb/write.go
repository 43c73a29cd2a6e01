package influxdb

import (
	"context"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/hublink/hublink-core/internal/sensor"
)

// WriteSensorReading records one sensor reading.
//
// Numeric states land in the "value" field, everything else in the
// "state" field as text. Attributes are deliberately not written; they
// are unbounded-cardinality and belong on the hub, not in the local
// history.
//
// The write is non-blocking; data is batched and sent asynchronously.
func (c *Client) WriteSensorReading(deviceID string, r sensor.Reading) {
	if !c.IsConnected() {
		return
	}

	fields := map[string]interface{}{}
	if v, ok := numericState(r.State); ok {
		fields["value"] = v
	} else if s, ok := r.State.(string); ok {
		fields["state"] = s
	} else {
		return
	}

	point := write.NewPoint(
		"sensor_state",
		map[string]string{
			"device_id": deviceID,
			"sensor_id": r.ID,
		},
		fields,
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// numericState converts the state kinds collectors actually produce.
func numericState(state any) (float64, bool) {
	switch v := state.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// Mirror adapts the client to the scheduler's fan-out hook, tagging
// every point with this machine's device id.
type Mirror struct {
	client   *Client
	deviceID string
}

// NewMirror creates a Mirror for the given device.
func NewMirror(client *Client, deviceID string) *Mirror {
	return &Mirror{client: client, deviceID: deviceID}
}

// MirrorReadings writes a collected batch to the local bucket.
func (m *Mirror) MirrorReadings(_ context.Context, readings []sensor.Reading) {
	for _, r := range readings {
		m.client.WriteSensorReading(m.deviceID, r)
	}
}
