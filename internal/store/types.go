package store

import "strings"

// Default values for connection settings.
const (
	// DefaultUpdateInterval is the sensor push period in seconds used
	// until the user configures one.
	DefaultUpdateInterval = 60

	// DefaultLanguage is the UI language used until the user picks one.
	DefaultLanguage = "en"

	// MinUpdateInterval is the shortest allowed push period in seconds.
	MinUpdateInterval = 1
)

// supportedLanguages lists the UI languages the companion ships with.
var supportedLanguages = map[string]bool{
	"en": true,
	"nl": true,
}

// ConnectionSettings holds the user-entered hub connection preferences.
//
// AccessToken is a long-lived hub token. It is persisted and returned to
// the settings UI, but must never appear in log output in full.
type ConnectionSettings struct {
	ServerURL      string `json:"server_url"`
	AccessToken    string `json:"access_token"`
	UpdateInterval int    `json:"update_interval"`
	Language       string `json:"language"`
	Autostart      bool   `json:"autostart"`
}

// DeviceIdentity holds the persistent identity this machine presents to
// the hub.
//
// DeviceID is minted locally on first successful registration and never
// regenerated; the hub keys the device's entities on it. WebhookID is
// issued by the hub and may be replaced on re-registration.
type DeviceIdentity struct {
	DeviceID     string `json:"device_id"`
	WebhookID    string `json:"webhook_id"`
	IsRegistered bool   `json:"is_registered"`
}

// Settings is the whole persisted record: connection preferences, device
// identity, and the per-sensor enablement map.
//
// Values returned by the store are snapshots. Mutating a snapshot has no
// effect on persisted state; callers that need fresh data call Load again.
type Settings struct {
	Connection     ConnectionSettings `json:"connection"`
	Identity       DeviceIdentity     `json:"identity"`
	EnabledSensors map[string]bool    `json:"enabled_sensors"`
}

// Patch is a partial settings update. Nil fields are left untouched,
// matching the save_settings command surface where the UI sends only the
// fields the user edited.
type Patch struct {
	ServerURL      *string
	AccessToken    *string
	UpdateInterval *int
	Language       *string
	Autostart      *bool
}

// DefaultSettings returns the first-run record: empty URL and token,
// 60 second interval, English UI, nothing registered.
func DefaultSettings() *Settings {
	return &Settings{
		Connection: ConnectionSettings{
			UpdateInterval: DefaultUpdateInterval,
			Language:       DefaultLanguage,
		},
		EnabledSensors: make(map[string]bool),
	}
}

// Clone returns an independent copy of the settings snapshot.
func (s *Settings) Clone() *Settings {
	if s == nil {
		return nil
	}
	cpy := *s
	cpy.EnabledSensors = make(map[string]bool, len(s.EnabledSensors))
	for k, v := range s.EnabledSensors {
		cpy.EnabledSensors[k] = v
	}
	return &cpy
}

// Configured reports whether both the server URL and access token are set,
// the precondition for registration and dashboard loading.
func (s *Settings) Configured() bool {
	return s.Connection.ServerURL != "" && s.Connection.AccessToken != ""
}

// NormalizeServerURL trims whitespace and strips trailing slashes so that
// URL comparison and path joining behave consistently.
func NormalizeServerURL(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}
