package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hublink/hublink-core/internal/hub"
	"github.com/hublink/hublink-core/internal/sensor"
	"github.com/hublink/hublink-core/internal/store"
)

// fakeSettings backs both the scheduler and the sensor registry.
type fakeSettings struct {
	mu       sync.Mutex
	settings *store.Settings
}

func newFakeSettings(registered bool) *fakeSettings {
	s := store.DefaultSettings()
	if registered {
		s.Identity = store.DeviceIdentity{
			DeviceID:     "dev-1",
			WebhookID:    "wh-1",
			IsRegistered: true,
		}
	}
	return &fakeSettings{settings: s}
}

func (f *fakeSettings) Load(_ context.Context) (*store.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settings.Clone(), nil
}

func (f *fakeSettings) SetRegistered(_ context.Context, registered bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings.Identity.IsRegistered = registered
	if !registered {
		f.settings.Identity.WebhookID = ""
	}
	return nil
}

func (f *fakeSettings) SetSensorEnabled(_ context.Context, sensorID string, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings.EnabledSensors[sensorID] = enabled
	return nil
}

func (f *fakeSettings) registered() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settings.Identity.IsRegistered
}

// fakePusher records batches and streams them to the test.
type fakePusher struct {
	mu      sync.Mutex
	err     error
	pushes  chan []sensor.Reading
	batches [][]sensor.Reading
}

func newFakePusher() *fakePusher {
	return &fakePusher{pushes: make(chan []sensor.Reading, 64)}
}

func (f *fakePusher) UpdateSensors(_ context.Context, readings []sensor.Reading) error {
	f.mu.Lock()
	err := f.err
	f.batches = append(f.batches, readings)
	f.mu.Unlock()

	f.pushes <- readings
	return err
}

func (f *fakePusher) setError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type fakeCollector struct{}

func (fakeCollector) Catalog() []sensor.Descriptor {
	return []sensor.Descriptor{
		{ID: "cpu_usage", Name: "CPU Usage", UpdatesAtInterval: true},
		{ID: "os_name", Name: "OS Name"},
	}
}

func (fakeCollector) CollectAll(_ context.Context) ([]sensor.Reading, error) {
	return []sensor.Reading{
		{ID: "cpu_usage", State: 10.0, UpdatesAtInterval: true},
		{ID: "os_name", State: "Linux"},
	}, nil
}

func (fakeCollector) CollectDynamic(_ context.Context) ([]sensor.Reading, error) {
	return []sensor.Reading{{ID: "cpu_usage", State: 10.0, UpdatesAtInterval: true}}, nil
}

func (fakeCollector) CollectStatic(_ context.Context) ([]sensor.Reading, error) {
	return []sensor.Reading{{ID: "os_name", State: "Linux"}}, nil
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}

type recordingNotifier struct {
	mu      sync.Mutex
	reasons []string
}

func (n *recordingNotifier) ReconnectRequired(reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reasons = append(n.reasons, reason)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.reasons)
}

func newTestScheduler(settings *fakeSettings, pusher *fakePusher) *Scheduler {
	registry := sensor.NewRegistry(fakeCollector{}, settings)
	return New(settings, pusher, fakeCollector{}, registry, nopLogger{})
}

func waitPush(t *testing.T, pusher *fakePusher) []sensor.Reading {
	t.Helper()
	select {
	case batch := <-pusher.pushes:
		return batch
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a push")
		return nil
	}
}

func waitStopped(t *testing.T, s *Scheduler) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if !s.Running() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("scheduler did not stop")
}

func TestStart_NotRegistered(t *testing.T) {
	s := newTestScheduler(newFakeSettings(false), newFakePusher())
	if err := s.Start(context.Background()); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("Start() error = %v, want ErrNotRegistered", err)
	}
}

func TestStart_AlreadyRunning(t *testing.T) {
	pusher := newFakePusher()
	s := newTestScheduler(newFakeSettings(true), pusher)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	if err := s.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second Start() error = %v, want ErrAlreadyRunning", err)
	}
}

func TestStaticPushedOnceThenPeriodic(t *testing.T) {
	pusher := newFakePusher()
	s := newTestScheduler(newFakeSettings(true), pusher)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()
	s.Reschedule(20 * time.Millisecond)

	first := waitPush(t, pusher)
	if len(first) != 1 || first[0].ID != "os_name" {
		t.Fatalf("first push = %v, want the static sensor once", ids(first))
	}

	// The following ticks carry periodic sensors only.
	for i := 0; i < 3; i++ {
		batch := waitPush(t, pusher)
		for _, r := range batch {
			if r.ID == "os_name" {
				t.Fatal("static sensor pushed again on a periodic tick")
			}
		}
		if len(batch) != 1 || batch[0].ID != "cpu_usage" {
			t.Fatalf("periodic push = %v, want cpu_usage", ids(batch))
		}
	}
}

func TestReschedule_WaitsFullNewInterval(t *testing.T) {
	pusher := newFakePusher()
	s := newTestScheduler(newFakeSettings(true), pusher)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()
	waitPush(t, pusher) // static

	// Default interval is 60s, so every push from here on is driven by
	// the reschedule. Re-arming the timer must not fire a tick early:
	// the next push comes one full new interval later, not immediately.
	rescheduled := time.Now()
	s.Reschedule(400 * time.Millisecond)

	select {
	case batch := <-pusher.pushes:
		t.Fatalf("push %v arrived %v after Reschedule, want none before the new interval",
			ids(batch), time.Since(rescheduled))
	case <-time.After(300 * time.Millisecond):
	}

	batch := waitPush(t, pusher)
	if elapsed := time.Since(rescheduled); elapsed < 350*time.Millisecond {
		t.Fatalf("push arrived %v after Reschedule, want the full 400ms interval", elapsed)
	}
	if len(batch) != 1 || batch[0].ID != "cpu_usage" {
		t.Fatalf("rescheduled push = %v, want cpu_usage", ids(batch))
	}
}

func TestTriggerNow(t *testing.T) {
	pusher := newFakePusher()
	s := newTestScheduler(newFakeSettings(true), pusher)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()
	waitPush(t, pusher) // static

	// Default interval is 60s; without a forced tick nothing arrives.
	s.TriggerNow()
	batch := waitPush(t, pusher)
	if len(batch) != 1 || batch[0].ID != "cpu_usage" {
		t.Fatalf("forced push = %v, want cpu_usage", ids(batch))
	}
}

func TestTransientErrorKeepsLoopAlive(t *testing.T) {
	pusher := newFakePusher()
	s := newTestScheduler(newFakeSettings(true), pusher)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()
	waitPush(t, pusher) // static

	pusher.setError(hub.ErrPushFailed)
	s.TriggerNow()
	waitPush(t, pusher) // failed tick

	pusher.setError(nil)
	s.TriggerNow()
	waitPush(t, pusher) // recovered tick

	if !s.Running() {
		t.Fatal("loop stopped on a transient error")
	}
}

func TestWebhookGoneStopsLoopAndClearsRegistration(t *testing.T) {
	settings := newFakeSettings(true)
	pusher := newFakePusher()
	notifier := &recordingNotifier{}

	s := newTestScheduler(settings, pusher)
	s.SetNotifier(notifier)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitPush(t, pusher) // static

	pusher.setError(hub.ErrWebhookGone)
	s.TriggerNow()
	waitPush(t, pusher)
	waitStopped(t, s)

	if settings.registered() {
		t.Error("registration flag not cleared after webhook loss")
	}
	if notifier.count() != 1 {
		t.Errorf("reconnect notifications = %d, want 1", notifier.count())
	}
}

func TestDisabledSensorNotPushed(t *testing.T) {
	settings := newFakeSettings(true)
	settings.settings.EnabledSensors["os_name"] = false
	pusher := newFakePusher()
	s := newTestScheduler(settings, pusher)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	// Static push is skipped entirely when its only sensor is disabled,
	// so the first batch is a periodic one.
	s.TriggerNow()
	batch := waitPush(t, pusher)
	for _, r := range batch {
		if r.ID == "os_name" {
			t.Error("disabled sensor was pushed")
		}
	}
}

type recordingMirror struct {
	mu      sync.Mutex
	batches int
}

func (m *recordingMirror) MirrorReadings(_ context.Context, _ []sensor.Reading) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches++
}

func (m *recordingMirror) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batches
}

func TestMirrorsReceiveBatches(t *testing.T) {
	pusher := newFakePusher()
	mirror := &recordingMirror{}
	s := newTestScheduler(newFakeSettings(true), pusher)
	s.AddMirror(mirror)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()
	waitPush(t, pusher) // static

	s.TriggerNow()
	waitPush(t, pusher)

	if mirror.count() != 1 {
		t.Errorf("mirrored batches = %d, want 1 periodic batch", mirror.count())
	}
}

func TestStop_Idempotent(t *testing.T) {
	pusher := newFakePusher()
	s := newTestScheduler(newFakeSettings(true), pusher)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitPush(t, pusher)

	s.Stop()
	s.Stop()
	if s.Running() {
		t.Fatal("scheduler still running after Stop")
	}
}

func ids(readings []sensor.Reading) []string {
	out := make([]string, len(readings))
	for i, r := range readings {
		out[i] = r.ID
	}
	return out
}
