package registration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hublink/hublink-core/internal/hub"
	"github.com/hublink/hublink-core/internal/sensor"
	"github.com/hublink/hublink-core/internal/store"
)

// State is the registration lifecycle state.
type State string

// Registration states. Failed and Registered are both terminal until
// the next register attempt or settings change.
const (
	StateUnconfigured State = "unconfigured"
	StatePending      State = "pending"
	StateRegistered   State = "registered"
	StateFailed       State = "failed"
)

// Status is the externally visible registration state, with the failure
// reason when the last attempt failed.
type Status struct {
	State State  `json:"state"`
	Error string `json:"error,omitempty"`
}

// SettingsStore is the slice of the settings store the manager needs.
type SettingsStore interface {
	Load(ctx context.Context) (*store.Settings, error)
	SetIdentity(ctx context.Context, identity store.DeviceIdentity) error
}

// HubAPI is the slice of the hub client the manager needs.
type HubAPI interface {
	UpdateConfig(serverURL, token string)
	SetWebhookID(webhookID string)
	CheckReachable(ctx context.Context) error
	RegisterDevice(ctx context.Context, req hub.RegistrationRequest) (hub.RegistrationResponse, error)
	RegisterSensors(ctx context.Context, readings []sensor.Reading) error
	UpdateSensors(ctx context.Context, readings []sensor.Reading) error
}

// Logger is the minimal logging interface the manager needs.
// Compatible with logging.Logger.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Manager drives device registration against the hub.
//
// Thread Safety: all methods are safe for concurrent use. Register
// attempts are serialized; a second call blocks until the first
// finishes and then runs its own attempt.
type Manager struct {
	store      SettingsStore
	hub        HubAPI
	collector  sensor.Collector
	registry   *sensor.Registry
	logger     Logger
	appVersion string

	// settleDelay gives the hub time to create the device's entities
	// before the first sensor announcements arrive.
	settleDelay time.Duration

	// newID mints device ids. Swapped in tests for determinism.
	newID func() string

	// runMu serializes registration attempts; mu guards only the
	// observable state so Status never blocks behind a slow hub call.
	runMu   sync.Mutex
	mu      sync.Mutex
	state   State
	lastErr error
}

// Options configures a Manager.
type Options struct {
	// AppVersion is reported to the hub as device metadata.
	AppVersion string

	// SettleDelay is the pause between a successful registration and the
	// first sensor announcements. Zero means no pause.
	SettleDelay time.Duration
}

// NewManager creates a Manager. The initial state is derived from the
// persisted record: registered if a webhook survives from a previous
// run, unconfigured otherwise.
func NewManager(ctx context.Context, st SettingsStore, hubClient HubAPI, collector sensor.Collector, registry *sensor.Registry, logger Logger, opts Options) *Manager {
	m := &Manager{
		store:       st,
		hub:         hubClient,
		collector:   collector,
		registry:    registry,
		logger:      logger,
		appVersion:  opts.AppVersion,
		settleDelay: opts.SettleDelay,
		newID:       uuid.NewString,
		state:       StateUnconfigured,
	}

	settings, err := st.Load(ctx)
	if err == nil && settings.Identity.IsRegistered && settings.Identity.WebhookID != "" {
		m.state = StateRegistered
	}
	return m
}

// Status returns the current registration state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Status{State: m.state}
	if m.lastErr != nil {
		s.Error = m.lastErr.Error()
	}
	return s
}

// Invalidate marks the device as needing re-registration, without
// touching persisted state. Called when the scheduler sees the webhook
// is gone or when the user changes the server URL or token.
func (m *Manager) Invalidate() {
	m.setState(StateUnconfigured, nil)
}

// Register runs the full registration flow and returns the settings
// snapshot after a successful attempt.
//
// The flow: validate configuration, probe the companion integration,
// reuse or mint the device id, submit device metadata, persist the
// issued webhook, then announce sensors and push an initial state
// batch. A failure after the hub has accepted the registration (sensor
// announcement trouble) is logged but does not fail the registration;
// the scheduler retries sensor pushes on its own cadence.
//
// Returns:
//   - *store.Settings: Post-registration snapshot
//   - error: ErrNotConfigured before any I/O, or a hub error
//     (hub.ErrUnreachable, hub.ErrRegistrationRejected) on failure
func (m *Manager) Register(ctx context.Context) (*store.Settings, error) {
	m.runMu.Lock()
	defer m.runMu.Unlock()

	settings, err := m.store.Load(ctx)
	if err != nil && !errors.Is(err, store.ErrStorage) {
		return nil, err
	}
	if !settings.Configured() {
		m.setState(StateUnconfigured, nil)
		return nil, ErrNotConfigured
	}

	m.setState(StatePending, nil)

	m.hub.UpdateConfig(settings.Connection.ServerURL, settings.Connection.AccessToken)

	if err := m.hub.CheckReachable(ctx); err != nil {
		return nil, m.fail(err)
	}

	deviceID := settings.Identity.DeviceID
	if deviceID == "" {
		deviceID = m.newID()
	}

	host := sensor.ProbeHost()
	resp, err := m.hub.RegisterDevice(ctx, hub.RegistrationRequest{
		DeviceID:   deviceID,
		DeviceName: host.Hostname,
		OSName:     host.OSName,
		OSVersion:  host.OSVersion,
		AppVersion: m.appVersion,
	})
	if err != nil {
		return nil, m.fail(err)
	}

	identity := store.DeviceIdentity{
		DeviceID:     deviceID,
		WebhookID:    resp.WebhookID,
		IsRegistered: true,
	}
	if err := m.store.SetIdentity(ctx, identity); err != nil {
		return nil, m.fail(err)
	}
	m.hub.SetWebhookID(resp.WebhookID)

	m.setState(StateRegistered, nil)
	m.logger.Info("device registered",
		"device_id", deviceID,
		"webhook_id", resp.WebhookID)

	if err := m.settle(ctx); err != nil {
		return nil, err
	}
	m.announceSensors(ctx)

	settings.Identity = identity
	return settings, nil
}

// settle waits the configured delay so the hub can finish creating the
// device before sensor announcements land.
func (m *Manager) settle(ctx context.Context) error {
	if m.settleDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(m.settleDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// announceSensors registers every enabled sensor and pushes an initial
// state batch. Failures are logged, not returned: the device is already
// registered and the scheduler picks up from here.
func (m *Manager) announceSensors(ctx context.Context) {
	readings, err := m.collector.CollectAll(ctx)
	if err != nil {
		m.logger.Warn("collecting sensors after registration", "error", err)
		return
	}
	readings, err = m.registry.Filter(ctx, readings)
	if err != nil {
		m.logger.Warn("filtering sensors after registration", "error", err)
		return
	}

	if err := m.hub.RegisterSensors(ctx, readings); err != nil {
		m.logger.Warn("announcing sensors after registration", "error", err)
		return
	}
	if err := m.hub.UpdateSensors(ctx, readings); err != nil {
		m.logger.Warn("initial sensor push after registration", "error", err)
	}
}

// fail records a failed attempt and returns the wrapped error.
func (m *Manager) fail(err error) error {
	m.setState(StateFailed, err)
	m.logger.Warn("device registration failed", "error", err)
	return fmt.Errorf("registering device: %w", err)
}

func (m *Manager) setState(state State, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
	m.lastErr = err
}
