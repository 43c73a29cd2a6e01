package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hublink/hublink-core/internal/store"
)

// storageKey is where the hub's frontend looks for a restored session.
const storageKey = "hassTokens"

// Credential is the session material written into the view's web
// storage, shaped the way the hub frontend expects to find it.
type Credential struct {
	HassURL     string `json:"hassUrl"`
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// View is the embedded web view the desktop shell provides. The core
// drives it; the shell owns the actual widget.
type View interface {
	// LoadBlank points the view at an empty same-origin document.
	LoadBlank(ctx context.Context) error

	// InjectSession evaluates a script in the view's current document.
	InjectSession(ctx context.Context, script string) error

	// Navigate points the view at the given URL.
	Navigate(ctx context.Context, url string) error
}

// SettingsStore is the slice of the settings store the bootstrap needs.
type SettingsStore interface {
	Load(ctx context.Context) (*store.Settings, error)
}

// Logger is the minimal logging interface the bootstrap needs.
// Compatible with logging.Logger.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Bootstrap drives the login-free dashboard load.
type Bootstrap struct {
	store  SettingsStore
	logger Logger
}

// NewBootstrap creates a Bootstrap over the given store.
func NewBootstrap(st SettingsStore, logger Logger) *Bootstrap {
	return &Bootstrap{store: st, logger: logger}
}

// Load runs the three-step sequence on the view: blank page, session
// injection, navigation. The order is fixed.
//
// A failed injection is logged and the navigation still happens; the
// user lands on the hub's own login page instead of a broken view. A
// failed blank load or navigation is returned as an error.
func (b *Bootstrap) Load(ctx context.Context, view View) error {
	settings, err := b.store.Load(ctx)
	if err != nil && !errors.Is(err, store.ErrStorage) {
		return err
	}
	if !settings.Configured() {
		return ErrNotConfigured
	}

	cred := Credential{
		HassURL:     settings.Connection.ServerURL,
		AccessToken: settings.Connection.AccessToken,
		TokenType:   "Bearer",
	}

	if err := view.LoadBlank(ctx); err != nil {
		return fmt.Errorf("loading blank page: %w", err)
	}

	script, err := StorageScript(cred)
	if err != nil {
		return err
	}
	if err := view.InjectSession(ctx, script); err != nil {
		b.logger.Warn("session injection failed, continuing to dashboard", "error", err)
	}

	if err := view.Navigate(ctx, settings.Connection.ServerURL); err != nil {
		return fmt.Errorf("navigating to dashboard: %w", err)
	}

	b.logger.Info("dashboard loaded", "server_url", settings.Connection.ServerURL)
	return nil
}

// StorageScript renders the script that plants the credential in the
// view's local storage. The credential is JSON-encoded twice: once as
// the stored value, once to embed that value safely in the script.
func StorageScript(cred Credential) (string, error) {
	value, err := json.Marshal(cred)
	if err != nil {
		return "", fmt.Errorf("encoding credential: %w", err)
	}
	embedded, err := json.Marshal(string(value))
	if err != nil {
		return "", fmt.Errorf("embedding credential: %w", err)
	}
	return fmt.Sprintf("localStorage.setItem(%q, %s);", storageKey, embedded), nil
}
