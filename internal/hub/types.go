package hub

import "github.com/hublink/hublink-core/internal/sensor"

// RegistrationRequest is the device metadata submitted to the hub's
// registration endpoint.
type RegistrationRequest struct {
	DeviceID     string `json:"device_id"`
	DeviceName   string `json:"device_name"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Model        string `json:"model,omitempty"`
	OSName       string `json:"os_name,omitempty"`
	OSVersion    string `json:"os_version,omitempty"`
	AppVersion   string `json:"app_version,omitempty"`
}

// RegistrationResponse is the hub's answer to a registration request.
type RegistrationResponse struct {
	Success   bool   `json:"success"`
	WebhookID string `json:"webhook_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// webhookPayload is the envelope for all webhook posts.
type webhookPayload struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Webhook command types understood by the hub integration.
const (
	commandRegisterSensor = "register_sensor"
	commandUpdateStates   = "update_sensor_states"
)

// sensorRegistration is the per-sensor payload for register_sensor.
type sensorRegistration struct {
	UniqueID    string `json:"sensor_unique_id"`
	Name        string `json:"sensor_name"`
	SensorType  string `json:"sensor_type"`
	State       any    `json:"sensor_state"`
	DeviceClass string `json:"sensor_device_class,omitempty"`
	Unit        string `json:"sensor_unit_of_measurement,omitempty"`
	StateClass  string `json:"sensor_state_class,omitempty"`
	Icon        string `json:"sensor_icon,omitempty"`
}

// sensorStateUpdate is the per-sensor payload for update_sensor_states.
type sensorStateUpdate struct {
	UniqueID   string         `json:"sensor_unique_id"`
	State      any            `json:"sensor_state"`
	Attributes map[string]any `json:"sensor_attributes"`
	Icon       string         `json:"sensor_icon,omitempty"`
}

func registrationFromReading(r sensor.Reading) sensorRegistration {
	return sensorRegistration{
		UniqueID:    r.ID,
		Name:        r.Name,
		SensorType:  r.SensorType,
		State:       r.State,
		DeviceClass: r.DeviceClass,
		Unit:        r.Unit,
		StateClass:  r.StateClass,
		Icon:        r.Icon,
	}
}

func stateUpdateFromReading(r sensor.Reading) sensorStateUpdate {
	attrs := r.Attributes
	if attrs == nil {
		attrs = map[string]any{}
	}
	return sensorStateUpdate{
		UniqueID:   r.ID,
		State:      r.State,
		Attributes: attrs,
		Icon:       r.Icon,
	}
}
