package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hublink/hublink-core/internal/hub"
	"github.com/hublink/hublink-core/internal/sensor"
	"github.com/hublink/hublink-core/internal/store"
)

// SettingsStore is the slice of the settings store the scheduler needs.
type SettingsStore interface {
	Load(ctx context.Context) (*store.Settings, error)
	SetRegistered(ctx context.Context, registered bool) error
}

// Pusher is the slice of the hub client the scheduler needs.
type Pusher interface {
	UpdateSensors(ctx context.Context, readings []sensor.Reading) error
}

// Mirror receives every successfully collected batch for local fan-out
// (MQTT discovery, InfluxDB). Mirrors are best-effort; they log their
// own failures and never affect the hub push.
type Mirror interface {
	MirrorReadings(ctx context.Context, readings []sensor.Reading)
}

// Notifier carries scheduler events to the UI layer.
type Notifier interface {
	// ReconnectRequired fires when the hub reports the webhook is gone
	// and the device must be registered again.
	ReconnectRequired(reason string)
}

// Logger is the minimal logging interface the scheduler needs.
// Compatible with logging.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Scheduler runs the push loop.
//
// Thread Safety: all methods are safe for concurrent use. Ticks run on
// the loop goroutine only, so a slow push delays the next tick instead
// of overlapping it.
type Scheduler struct {
	store     SettingsStore
	hub       Pusher
	collector sensor.Collector
	registry  *sensor.Registry
	logger    Logger
	mirrors   []Mirror
	notifier  Notifier

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	reschedule chan time.Duration
	trigger    chan struct{}
}

// New creates a Scheduler. Mirrors and notifier may be nil.
func New(st SettingsStore, pusher Pusher, collector sensor.Collector, registry *sensor.Registry, logger Logger) *Scheduler {
	return &Scheduler{
		store:      st,
		hub:        pusher,
		collector:  collector,
		registry:   registry,
		logger:     logger,
		reschedule: make(chan time.Duration, 1),
		trigger:    make(chan struct{}, 1),
	}
}

// AddMirror registers a local fan-out target for collected batches.
// Must be called before Start.
func (s *Scheduler) AddMirror(m Mirror) {
	s.mirrors = append(s.mirrors, m)
}

// SetNotifier sets the UI event sink. Must be called before Start.
func (s *Scheduler) SetNotifier(n Notifier) {
	s.notifier = n
}

// Start begins the push loop at the persisted update interval.
//
// Static sensors are pushed once immediately; periodic sensors follow
// on every tick. Start fails if the device has no webhook yet.
//
// Returns:
//   - error: ErrNotRegistered or ErrAlreadyRunning; nil once the loop
//     is running
func (s *Scheduler) Start(ctx context.Context) error {
	settings, err := s.store.Load(ctx)
	if err != nil && !errors.Is(err, store.ErrStorage) {
		return err
	}
	if !settings.Identity.IsRegistered || settings.Identity.WebhookID == "" {
		return ErrNotRegistered
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	interval := intervalFrom(settings)
	s.logger.Info("sensor push loop starting", "interval", interval)

	go func() {
		defer close(done)
		defer s.markStopped()
		defer cancel()
		s.pushStatic(loopCtx)
		s.run(loopCtx, interval)
	}()
	return nil
}

// Stop cancels the loop and waits for it to exit. Safe to call when
// not running.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()
	<-done
}

// Running reports whether the loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Reschedule replaces the pending timer with the new interval. The
// change takes effect immediately: the in-flight wait is cancelled and
// the next tick fires one full new interval from now.
func (s *Scheduler) Reschedule(interval time.Duration) {
	select {
	case s.reschedule <- interval:
	default:
		// A pending reschedule is superseded; drain and replace.
		select {
		case <-s.reschedule:
		default:
		}
		s.reschedule <- interval
	}
}

// TriggerNow requests an immediate tick without disturbing the cadence
// more than necessary; the timer restarts after the forced tick.
func (s *Scheduler) TriggerNow() {
	select {
	case s.trigger <- struct{}{}:
	default:
		// A forced tick is already queued.
	}
}

// run owns the timer. All ticks execute here, so pushes never overlap.
func (s *Scheduler) run(ctx context.Context, interval time.Duration) {
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sensor push loop stopped")
			return

		case next := <-s.reschedule:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			interval = next
			timer.Reset(interval)
			s.logger.Info("sensor push rescheduled", "interval", interval)

		case <-s.trigger:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			if !s.tick(ctx) {
				return
			}
			timer.Reset(interval)

		case <-timer.C:
			if !s.tick(ctx) {
				return
			}
			timer.Reset(interval)
		}
	}
}

// tick collects, filters, mirrors, and pushes one batch of periodic
// readings. Returns false when the loop must stop because the webhook
// is gone.
func (s *Scheduler) tick(ctx context.Context) bool {
	readings, err := s.collector.CollectDynamic(ctx)
	if err != nil {
		s.logger.Warn("collecting sensors", "error", err)
		return true
	}

	readings, err = s.registry.Filter(ctx, readings)
	if err != nil {
		s.logger.Warn("filtering sensors", "error", err)
		return true
	}
	if len(readings) == 0 {
		s.logger.Debug("no enabled sensors to push")
		return true
	}

	for _, m := range s.mirrors {
		m.MirrorReadings(ctx, readings)
	}

	if err := s.hub.UpdateSensors(ctx, readings); err != nil {
		return s.handlePushError(ctx, err)
	}
	s.logger.Debug("pushed sensor batch", "count", len(readings))
	return true
}

// pushStatic sends the one-time static facts for this run. Failures are
// transient unless the webhook is gone, which the next tick will also
// see; the loop keeps starting either way.
func (s *Scheduler) pushStatic(ctx context.Context) {
	readings, err := s.collector.CollectStatic(ctx)
	if err != nil {
		s.logger.Warn("collecting static sensors", "error", err)
		return
	}
	readings, err = s.registry.Filter(ctx, readings)
	if err != nil || len(readings) == 0 {
		return
	}
	if err := s.hub.UpdateSensors(ctx, readings); err != nil {
		s.logger.Warn("pushing static sensors", "error", err)
	}
}

// handlePushError decides whether a failed push is transient. Only a
// webhook-gone answer stops the loop and clears the registration.
func (s *Scheduler) handlePushError(ctx context.Context, err error) bool {
	if !errors.Is(err, hub.ErrWebhookGone) {
		s.logger.Warn("sensor push failed, will retry next tick", "error", err)
		return true
	}

	s.logger.Warn("webhook gone, device must re-register", "error", err)
	if derr := s.store.SetRegistered(ctx, false); derr != nil {
		s.logger.Warn("clearing registration after webhook loss", "error", derr)
	}
	if s.notifier != nil {
		s.notifier.ReconnectRequired("webhook no longer exists on the hub")
	}
	return false
}

func (s *Scheduler) markStopped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
}

// intervalFrom converts the persisted interval (seconds) to a duration,
// falling back to the default when the record is somehow out of range.
func intervalFrom(settings *store.Settings) time.Duration {
	secs := settings.Connection.UpdateInterval
	if secs < store.MinUpdateInterval {
		secs = store.DefaultUpdateInterval
	}
	return time.Duration(secs) * time.Second
}
