package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
)

// schema is created idempotently on startup. The settings table is a
// single-row record (id is pinned to 1); sensor enablement is keyed by
// sensor id so unknown sensors simply have no row.
const schema = `
	CREATE TABLE IF NOT EXISTS settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		server_url TEXT NOT NULL DEFAULT '',
		access_token TEXT NOT NULL DEFAULT '',
		update_interval INTEGER NOT NULL DEFAULT 60,
		language TEXT NOT NULL DEFAULT 'en',
		autostart INTEGER NOT NULL DEFAULT 0,
		device_id TEXT NOT NULL DEFAULT '',
		webhook_id TEXT NOT NULL DEFAULT '',
		is_registered INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
	);
	CREATE TABLE IF NOT EXISTS sensor_enablement (
		sensor_id TEXT PRIMARY KEY,
		enabled INTEGER NOT NULL DEFAULT 1
	);`

// Logger is the minimal logging interface the store needs.
// Compatible with logging.Logger.
type Logger interface {
	Warn(msg string, args ...any)
}

// Store is the serialized owner of the persisted settings record.
//
// All mutations go through Store methods and are serialized by a mutex on
// top of SQLite's single-writer connection, so a concurrent Load observes
// either the pre-save or post-save record, never a mix.
//
// Thread Safety: all methods are safe for concurrent use.
type Store struct {
	db     *sql.DB
	logger Logger

	// mu serializes save operations. Reads go through SQLite directly;
	// each save rewrites the whole record in one transaction.
	mu sync.Mutex
}

// New creates a Store on the given database connection and ensures the
// schema exists.
//
// Parameters:
//   - ctx: Context for the schema bootstrap
//   - db: Open SQLite connection
//
// Returns:
//   - *Store: Ready store
//   - error: If the schema cannot be created
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("%w: creating schema: %w", ErrStorage, err)
	}
	return &Store{db: db}, nil
}

// SetLogger sets an optional logger for degraded-read warnings.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// Load returns a snapshot of the persisted record.
//
// A missing record means first run and yields defaults with a nil error.
// An unreadable record also yields defaults, but with an error wrapping
// ErrStorage so the caller can log the degradation; it is never fatal
// here.
func (s *Store) Load(ctx context.Context) (*Settings, error) {
	settings := DefaultSettings()

	row := s.db.QueryRowContext(ctx, `
		SELECT server_url, access_token, update_interval, language, autostart,
			device_id, webhook_id, is_registered
		FROM settings WHERE id = 1`)

	err := row.Scan(
		&settings.Connection.ServerURL,
		&settings.Connection.AccessToken,
		&settings.Connection.UpdateInterval,
		&settings.Connection.Language,
		&settings.Connection.Autostart,
		&settings.Identity.DeviceID,
		&settings.Identity.WebhookID,
		&settings.Identity.IsRegistered,
	)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// First run: no record yet.
		return settings, nil
	case err != nil:
		if s.logger != nil {
			s.logger.Warn("settings record unreadable, using first-run defaults", "error", err)
		}
		return DefaultSettings(), fmt.Errorf("%w: reading settings: %w", ErrStorage, err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT sensor_id, enabled FROM sensor_enablement`)
	if err != nil {
		return settings, fmt.Errorf("%w: reading sensor enablement: %w", ErrStorage, err)
	}
	defer rows.Close() //nolint:errcheck // Read-only cursor cleanup

	for rows.Next() {
		var id string
		var enabled bool
		if err := rows.Scan(&id, &enabled); err != nil {
			return settings, fmt.Errorf("%w: scanning sensor enablement: %w", ErrStorage, err)
		}
		settings.EnabledSensors[id] = enabled
	}
	if err := rows.Err(); err != nil {
		return settings, fmt.Errorf("%w: iterating sensor enablement: %w", ErrStorage, err)
	}

	return settings, nil
}

// Save applies a partial update to the connection settings and returns the
// resulting snapshot.
//
// Only fields present in the patch are changed; the whole record is then
// rewritten in one transaction, so no torn write is ever observable.
// The server URL is normalized and validation runs before any I/O.
//
// Returns:
//   - *Settings: The record after the save
//   - error: ErrInvalidInterval/ErrInvalidLanguage before I/O, or a
//     wrapped ErrStorage if the write fails
func (s *Store) Save(ctx context.Context, patch Patch) (*Settings, error) {
	if patch.UpdateInterval != nil && *patch.UpdateInterval < MinUpdateInterval {
		return nil, ErrInvalidInterval
	}
	if patch.Language != nil && !supportedLanguages[*patch.Language] {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLanguage, *patch.Language)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.Load(ctx)
	if err != nil && !errors.Is(err, ErrStorage) {
		return nil, err
	}

	if patch.ServerURL != nil {
		current.Connection.ServerURL = NormalizeServerURL(*patch.ServerURL)
	}
	if patch.AccessToken != nil {
		current.Connection.AccessToken = *patch.AccessToken
	}
	if patch.UpdateInterval != nil {
		current.Connection.UpdateInterval = *patch.UpdateInterval
	}
	if patch.Language != nil {
		current.Connection.Language = *patch.Language
	}
	if patch.Autostart != nil {
		current.Connection.Autostart = *patch.Autostart
	}

	if err := s.write(ctx, current); err != nil {
		return nil, err
	}
	return current, nil
}

// SetIdentity persists the device identity in one transaction.
//
// The caller is responsible for DeviceID stability: registration reuses an
// existing id and mints one only when none exists yet. The store itself
// never fabricates identity.
func (s *Store) SetIdentity(ctx context.Context, identity DeviceIdentity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.Load(ctx)
	if err != nil && !errors.Is(err, ErrStorage) {
		return err
	}
	current.Identity = identity
	return s.write(ctx, current)
}

// SetRegistered flips the registration flag without touching anything else.
// Used by the scheduler when the hub reports the webhook is gone.
func (s *Store) SetRegistered(ctx context.Context, registered bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.Load(ctx)
	if err != nil && !errors.Is(err, ErrStorage) {
		return err
	}
	current.Identity.IsRegistered = registered
	if !registered {
		current.Identity.WebhookID = ""
	}
	return s.write(ctx, current)
}

// SetSensorEnabled persists a single sensor's enablement flag.
func (s *Store) SetSensorEnabled(ctx context.Context, sensorID string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sensor_enablement (sensor_id, enabled) VALUES (?, ?)
		ON CONFLICT(sensor_id) DO UPDATE SET enabled = excluded.enabled`,
		sensorID, enabled)
	if err != nil {
		return fmt.Errorf("%w: saving sensor enablement: %w", ErrStorage, err)
	}
	return nil
}

// write rewrites the whole settings row inside a transaction.
// Callers must hold s.mu.
func (s *Store) write(ctx context.Context, settings *Settings) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: starting transaction: %w", ErrStorage, err)
	}
	defer tx.Rollback() //nolint:errcheck // No-op after commit

	_, err = tx.ExecContext(ctx, `
		INSERT INTO settings (id, server_url, access_token, update_interval,
			language, autostart, device_id, webhook_id, is_registered, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		ON CONFLICT(id) DO UPDATE SET
			server_url = excluded.server_url,
			access_token = excluded.access_token,
			update_interval = excluded.update_interval,
			language = excluded.language,
			autostart = excluded.autostart,
			device_id = excluded.device_id,
			webhook_id = excluded.webhook_id,
			is_registered = excluded.is_registered,
			updated_at = excluded.updated_at`,
		settings.Connection.ServerURL,
		settings.Connection.AccessToken,
		settings.Connection.UpdateInterval,
		settings.Connection.Language,
		settings.Connection.Autostart,
		settings.Identity.DeviceID,
		settings.Identity.WebhookID,
		settings.Identity.IsRegistered,
	)
	if err != nil {
		return fmt.Errorf("%w: writing settings: %w", ErrStorage, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing settings: %w", ErrStorage, err)
	}
	return nil
}
