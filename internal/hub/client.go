package hub

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/hublink/hublink-core/internal/sensor"
)

// registrationPath is the hub integration's device registration endpoint.
const registrationPath = "/api/desktop_app/registrations"

// publicIPURL answers with the caller's public address in plain text.
const publicIPURL = "https://api.ipify.org"

// publicIPTimeout bounds the public-IP lookup independently of the hub
// request timeout.
const publicIPTimeout = 5 * time.Second

// Options configures a hub Client.
type Options struct {
	// RequestTimeout bounds each HTTP call to the hub.
	RequestTimeout time.Duration

	// InsecureTLS skips certificate verification for self-signed local
	// hubs.
	InsecureTLS bool
}

// Client talks to the remote hub: device registration authenticated by
// the long-lived token, and sensor pushes keyed by the webhook id.
//
// Thread Safety: all methods are safe for concurrent use. UpdateConfig
// and SetWebhookID re-point an existing client so dependents keep their
// reference across settings changes.
type Client struct {
	http *resty.Client

	mu        sync.RWMutex
	serverURL string
	token     string
	webhookID string

	// publicIPEndpoint is swapped in tests.
	publicIPEndpoint string
}

// New creates a hub client. serverURL and token may be empty on first
// run; UpdateConfig re-points the client once the user saves settings.
func New(serverURL, token, webhookID string, opts Options) *Client {
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	httpClient := resty.New().SetTimeout(timeout)
	if opts.InsecureTLS {
		httpClient.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true}) //nolint:gosec // Local hubs run self-signed certs
	}

	return &Client{
		http:             httpClient,
		serverURL:        strings.TrimRight(serverURL, "/"),
		token:            token,
		webhookID:        webhookID,
		publicIPEndpoint: publicIPURL,
	}
}

// UpdateConfig re-points the client at a new server URL and token.
func (c *Client) UpdateConfig(serverURL, token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.serverURL = strings.TrimRight(serverURL, "/")
	c.token = token
}

// SetWebhookID sets the webhook handle used for sensor pushes.
func (c *Client) SetWebhookID(webhookID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.webhookID = webhookID
}

// WebhookID returns the current webhook handle, empty if unregistered.
func (c *Client) WebhookID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.webhookID
}

// CheckReachable probes the registration endpoint so a missing companion
// integration produces a clear message before the real registration call.
//
// Returns:
//   - error: ErrUnreachable (wrapped) if the endpoint is absent or the
//     hub cannot be contacted
func (c *Client) CheckReachable(ctx context.Context) error {
	serverURL, token, _ := c.snapshot()
	if serverURL == "" {
		return ErrNotConfigured
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		Get(serverURL + registrationPath)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return fmt.Errorf("%w: companion integration not installed (404)", ErrUnreachable)
	}
	return nil
}

// RegisterDevice submits device metadata and returns the hub's response.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - req: Device metadata including the (possibly pre-existing) device id
//
// Returns:
//   - RegistrationResponse: Parsed hub response on HTTP success
//   - error: ErrNotConfigured before any I/O, or ErrRegistrationRejected
//     wrapping the hub's status/body on failure
func (c *Client) RegisterDevice(ctx context.Context, req RegistrationRequest) (RegistrationResponse, error) {
	serverURL, token, _ := c.snapshot()
	if serverURL == "" || token == "" {
		return RegistrationResponse{}, ErrNotConfigured
	}

	var out RegistrationResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		SetResult(&out).
		Post(serverURL + registrationPath)
	if err != nil {
		return RegistrationResponse{}, fmt.Errorf("%w: %w", ErrRegistrationRejected, err)
	}
	if resp.IsError() {
		return RegistrationResponse{}, fmt.Errorf("%w: %s: %s",
			ErrRegistrationRejected, resp.Status(), strings.TrimSpace(resp.String()))
	}
	if !out.Success {
		reason := out.Error
		if reason == "" {
			reason = "unknown error"
		}
		return RegistrationResponse{}, fmt.Errorf("%w: %s", ErrRegistrationRejected, reason)
	}
	return out, nil
}

// RegisterSensor announces one sensor to the hub through the webhook.
func (c *Client) RegisterSensor(ctx context.Context, reading sensor.Reading) error {
	return c.postWebhook(ctx, webhookPayload{
		Type: commandRegisterSensor,
		Data: registrationFromReading(reading),
	})
}

// RegisterSensors announces a batch of sensors one at a time, stopping at
// the first failure.
func (c *Client) RegisterSensors(ctx context.Context, readings []sensor.Reading) error {
	for _, r := range readings {
		if err := c.RegisterSensor(ctx, r); err != nil {
			return fmt.Errorf("registering sensor %s: %w", r.ID, err)
		}
	}
	return nil
}

// UpdateSensors pushes a batch of sensor states in one webhook call.
func (c *Client) UpdateSensors(ctx context.Context, readings []sensor.Reading) error {
	if len(readings) == 0 {
		return nil
	}

	updates := make([]sensorStateUpdate, len(readings))
	for i, r := range readings {
		updates[i] = stateUpdateFromReading(r)
	}

	return c.postWebhook(ctx, webhookPayload{
		Type: commandUpdateStates,
		Data: map[string]any{"sensors": updates},
	})
}

// CheckWebhook reports whether the webhook still exists on the hub,
// using an empty state update as the probe.
func (c *Client) CheckWebhook(ctx context.Context) bool {
	err := c.postWebhook(ctx, webhookPayload{
		Type: commandUpdateStates,
		Data: map[string]any{"sensors": []sensorStateUpdate{}},
	})
	return err == nil
}

// PublicIP returns this machine's public (outbound) address, for reverse
// proxy allowlists.
func (c *Client) PublicIP(ctx context.Context) (string, error) {
	resp, err := resty.New().SetTimeout(publicIPTimeout).R().
		SetContext(ctx).
		Get(c.publicIPEndpoint)
	if err != nil {
		return "", fmt.Errorf("looking up public IP: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("looking up public IP: %s", resp.Status())
	}
	return strings.TrimSpace(resp.String()), nil
}

// postWebhook sends a payload to the webhook endpoint and maps status
// codes onto the error taxonomy: 410/404 mean the webhook is gone and
// the device must re-register, anything else non-2xx is transient.
func (c *Client) postWebhook(ctx context.Context, payload webhookPayload) error {
	serverURL, _, webhookID := c.snapshot()
	if serverURL == "" || webhookID == "" {
		return ErrNotConfigured
	}

	url := fmt.Sprintf("%s/api/webhook/%s", serverURL, webhookID)
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(url)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPushFailed, err)
	}

	switch resp.StatusCode() {
	case http.StatusGone, http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrWebhookGone, resp.Status())
	}
	if resp.IsError() {
		return fmt.Errorf("%w: %s: %s", ErrPushFailed, resp.Status(), strings.TrimSpace(resp.String()))
	}
	return nil
}

// snapshot returns a consistent view of the mutable connection fields.
func (c *Client) snapshot() (serverURL, token, webhookID string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.serverURL, c.token, c.webhookID
}
