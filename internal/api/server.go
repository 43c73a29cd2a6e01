package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hublink/hublink-core/internal/dashboard"
	"github.com/hublink/hublink-core/internal/hub"
	"github.com/hublink/hublink-core/internal/infrastructure/config"
	"github.com/hublink/hublink-core/internal/infrastructure/logging"
	"github.com/hublink/hublink-core/internal/registration"
	"github.com/hublink/hublink-core/internal/scheduler"
	"github.com/hublink/hublink-core/internal/sensor"
	"github.com/hublink/hublink-core/internal/store"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config       config.APIConfig
	WS           config.WebSocketConfig
	Security     config.SecurityConfig
	Logger       *logging.Logger
	Store        *store.Store
	Registry     *sensor.Registry
	HubClient    *hub.Client
	Registration *registration.Manager
	Scheduler    *scheduler.Scheduler
	Dashboard    *dashboard.Bootstrap
	View         dashboard.View // optional; dashboard loading 503s without one
	Version      string
}

// Server is the loopback HTTP API server.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg          config.APIConfig
	wsCfg        config.WebSocketConfig
	logger       *logging.Logger
	store        *store.Store
	registry     *sensor.Registry
	hubClient    *hub.Client
	registration *registration.Manager
	scheduler    *scheduler.Scheduler
	dashboard    *dashboard.Bootstrap
	view         dashboard.View
	version      string

	server  *http.Server
	wsHub   *Hub
	tickets *ticketIssuer
	cancel  context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("settings store is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("sensor registry is required")
	}
	if deps.HubClient == nil {
		return nil, fmt.Errorf("hub client is required")
	}
	if deps.Registration == nil {
		return nil, fmt.Errorf("registration manager is required")
	}

	tickets, err := newTicketIssuer(deps.Security.TicketSecret)
	if err != nil {
		return nil, err
	}

	return &Server{
		cfg:          deps.Config,
		wsCfg:        deps.WS,
		logger:       deps.Logger,
		store:        deps.Store,
		registry:     deps.Registry,
		hubClient:    deps.HubClient,
		registration: deps.Registration,
		scheduler:    deps.Scheduler,
		dashboard:    deps.Dashboard,
		view:         deps.View,
		version:      deps.Version,
		tickets:      tickets,
	}, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub, and launches the
// HTTP listener in a background goroutine. The server can be stopped
// with Close().
func (s *Server) Start(ctx context.Context) error {
	// Internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.wsHub == nil {
		s.wsHub = NewHub(s.wsCfg, s.logger)
		go s.wsHub.Run(srvCtx)
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	s.logger.Info("API server started", "address", s.server.Addr)
	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}

// ReconnectRequired satisfies the scheduler's notifier: the shell is
// told the device lost its webhook and must register again.
func (s *Server) ReconnectRequired(reason string) {
	if s.wsHub == nil {
		return
	}
	s.wsHub.Broadcast(ChannelRegistration, map[string]any{
		"event":  "reconnect_required",
		"reason": reason,
	})
}

// ShowSettings asks the shell to surface the settings window. Driven by
// the tray menu and by first-run detection.
func (s *Server) ShowSettings() {
	if s.wsHub == nil {
		return
	}
	s.wsHub.Broadcast(ChannelUI, map[string]any{"event": "show_settings"})
}

// MirrorReadings satisfies the scheduler's mirror: every pushed batch is
// summarized to subscribed shells so the UI can show push activity.
func (s *Server) MirrorReadings(_ context.Context, readings []sensor.Reading) {
	if s.wsHub == nil {
		return
	}
	ids := make([]string, 0, len(readings))
	for _, r := range readings {
		ids = append(ids, r.ID)
	}
	s.wsHub.Broadcast(ChannelSensors, map[string]any{
		"event":      "sensors_pushed",
		"count":      len(readings),
		"sensor_ids": ids,
	})
}
