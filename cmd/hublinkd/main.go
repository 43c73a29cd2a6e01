// HubLink Core - Device Synchronization Daemon
//
// This is the main entry point for the HubLink core process. It mirrors
// this machine's identity and system metrics into a remote hub:
//   - Registers the device against the hub's companion integration
//   - Pushes sensor readings on a user-configured interval via webhook
//   - Serves a loopback HTTP/WebSocket API for the UI shell
//   - Optionally mirrors readings to MQTT and a local InfluxDB bucket
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hublink/hublink-core/internal/api"
	"github.com/hublink/hublink-core/internal/dashboard"
	"github.com/hublink/hublink-core/internal/hub"
	"github.com/hublink/hublink-core/internal/infrastructure/config"
	"github.com/hublink/hublink-core/internal/infrastructure/database"
	"github.com/hublink/hublink-core/internal/infrastructure/influxdb"
	"github.com/hublink/hublink-core/internal/infrastructure/logging"
	"github.com/hublink/hublink-core/internal/infrastructure/mqtt"
	"github.com/hublink/hublink-core/internal/registration"
	"github.com/hublink/hublink-core/internal/scheduler"
	"github.com/hublink/hublink-core/internal/sensor"
	"github.com/hublink/hublink-core/internal/store"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting HubLink core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Settings store
	st, err := store.New(ctx, db.DB)
	if err != nil {
		return fmt.Errorf("initialising settings store: %w", err)
	}
	st.SetLogger(log)

	settings, err := st.Load(ctx)
	if err != nil {
		// A corrupt record degrades to first-run defaults; keep going.
		log.Warn("settings degraded to defaults", "error", err)
	}
	log.Info("settings loaded",
		"configured", settings.Configured(),
		"registered", settings.Identity.IsRegistered,
	)

	// Sensor catalog and enablement registry
	collector := sensor.NewHostCollector(version)
	registry := sensor.NewRegistry(collector, st)

	// Hub client, pointed at whatever the user saved last run
	hubClient := hub.New(
		settings.Connection.ServerURL,
		settings.Connection.AccessToken,
		settings.Identity.WebhookID,
		hub.Options{
			RequestTimeout: cfg.HubRequestTimeout(),
			InsecureTLS:    cfg.Hub.InsecureTLS,
		},
	)

	// Registration manager and update scheduler
	regMgr := registration.NewManager(ctx, st, hubClient, collector, registry, log, registration.Options{
		AppVersion:  version,
		SettleDelay: time.Duration(cfg.Hub.SettleDelay) * time.Second,
	})
	sched := scheduler.New(st, hubClient, collector, registry, log)
	defer sched.Stop()

	// Optional MQTT mirror (Home Assistant discovery convention)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		// Discovery topics are keyed by device id, so the mirror attaches
		// only once a registration from a previous run minted one.
		if settings.Identity.DeviceID != "" {
			publisher := mqtt.NewPublisher(mqttClient, cfg.MQTT,
				settings.Identity.DeviceID, sensor.ProbeHost().Hostname, version, log)
			defer func() {
				if closeErr := publisher.Close(); closeErr != nil {
					log.Warn("detaching MQTT mirror", "error", closeErr)
				}
			}()
			sched.AddMirror(publisher)
			log.Info("MQTT discovery mirror attached", "device_id", settings.Identity.DeviceID)
		} else {
			log.Info("MQTT mirror idle until first registration")
		}
	} else {
		log.Info("MQTT disabled")
	}

	// Optional InfluxDB mirror for local metric history
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})

		if settings.Identity.DeviceID != "" {
			sched.AddMirror(influxdb.NewMirror(influxClient, settings.Identity.DeviceID))
			log.Info("InfluxDB mirror attached", "device_id", settings.Identity.DeviceID)
		} else {
			log.Info("InfluxDB mirror idle until first registration")
		}
	} else {
		log.Info("InfluxDB disabled")
	}

	// Loopback API for the UI shell. The shell attaches its own webview
	// implementation of dashboard.View when it embeds this core; running
	// standalone the dashboard endpoint answers 503.
	apiServer, err := api.New(api.Deps{
		Config:       cfg.API,
		WS:           cfg.WebSocket,
		Security:     cfg.Security,
		Logger:       log,
		Store:        st,
		Registry:     registry,
		HubClient:    hubClient,
		Registration: regMgr,
		Scheduler:    sched,
		Dashboard:    dashboard.NewBootstrap(st, log),
		Version:      version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	// The shell is told over the registration channel when the webhook
	// dies and the device must register again, and gets a summary of
	// every pushed batch over the sensors channel.
	sched.SetNotifier(apiServer)
	sched.AddMirror(apiServer)

	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Resume periodic updates if a registration survives from a previous
	// run; otherwise wait for the user to configure and register.
	if settings.Identity.IsRegistered && settings.Identity.WebhookID != "" {
		if err := sched.Start(ctx); err != nil {
			log.Warn("could not resume sensor updates", "error", err)
		} else {
			log.Info("sensor updates resumed",
				"interval_seconds", settings.Connection.UpdateInterval,
			)
		}
	} else {
		log.Info("device not registered, waiting for setup")
		apiServer.ShowSettings()
	}

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, apiServer, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. InfluxDB (if enabled)
	// 3. MQTT (if enabled)
	// 4. Scheduler
	// 5. Database

	log.Info("HubLink core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses HUBLINK_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("HUBLINK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - apiServer: API server to check
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, apiServer *api.Server, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := apiServer.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
