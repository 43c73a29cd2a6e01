package hub

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hublink/hublink-core/internal/sensor"
)

func testClient(serverURL, webhookID string) *Client {
	return New(serverURL, "test-token", webhookID, Options{
		RequestTimeout: 5 * time.Second,
	})
}

func TestRegisterDevice_Success(t *testing.T) {
	var gotAuth string
	var gotReq RegistrationRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/desktop_app/registrations" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		//nolint:errcheck // Test server response
		json.NewEncoder(w).Encode(RegistrationResponse{Success: true, WebhookID: "wh-789"})
	}))
	defer srv.Close()

	c := testClient(srv.URL, "")
	resp, err := c.RegisterDevice(context.Background(), RegistrationRequest{
		DeviceID:   "dev-1",
		DeviceName: "workstation",
		OSName:     "Linux",
	})
	if err != nil {
		t.Fatalf("RegisterDevice() error = %v", err)
	}
	if resp.WebhookID != "wh-789" {
		t.Errorf("WebhookID = %q, want wh-789", resp.WebhookID)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization = %q, want bearer token", gotAuth)
	}
	if gotReq.DeviceID != "dev-1" || gotReq.DeviceName != "workstation" {
		t.Errorf("request metadata = %+v", gotReq)
	}
}

func TestRegisterDevice_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			"http error status",
			func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "bad token", http.StatusUnauthorized)
			},
		},
		{
			"success false in body",
			func(w http.ResponseWriter, _ *http.Request) {
				//nolint:errcheck // Test server response
				json.NewEncoder(w).Encode(RegistrationResponse{Success: false, Error: "quota exceeded"})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := testClient(srv.URL, "").RegisterDevice(context.Background(), RegistrationRequest{DeviceID: "dev-1"})
			if !errors.Is(err, ErrRegistrationRejected) {
				t.Errorf("RegisterDevice() error = %v, want ErrRegistrationRejected", err)
			}
		})
	}
}

func TestRegisterDevice_NotConfigured(t *testing.T) {
	c := New("", "", "", Options{})
	_, err := c.RegisterDevice(context.Background(), RegistrationRequest{})
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("RegisterDevice() error = %v, want ErrNotConfigured", err)
	}
}

func TestUpdateSensors_PostsBatch(t *testing.T) {
	var gotPath string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		//nolint:errcheck // Test server decode
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(srv.URL, "wh-1")
	err := c.UpdateSensors(context.Background(), []sensor.Reading{
		{ID: "cpu_usage", State: 42.0},
		{ID: "memory_usage", State: 63.5},
	})
	if err != nil {
		t.Fatalf("UpdateSensors() error = %v", err)
	}

	if gotPath != "/api/webhook/wh-1" {
		t.Errorf("path = %q, want webhook path", gotPath)
	}
	if gotBody["type"] != "update_sensor_states" {
		t.Errorf("payload type = %v, want update_sensor_states", gotBody["type"])
	}
}

func TestUpdateSensors_EmptyBatchIsNoop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Error("no request expected for empty batch")
	}))
	defer srv.Close()

	if err := testClient(srv.URL, "wh-1").UpdateSensors(context.Background(), nil); err != nil {
		t.Errorf("UpdateSensors(nil) error = %v", err)
	}
}

func TestPushErrors_StatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{"410 gone means webhook gone", http.StatusGone, ErrWebhookGone},
		{"404 means webhook gone", http.StatusNotFound, ErrWebhookGone},
		{"500 is transient", http.StatusInternalServerError, ErrPushFailed},
		{"429 is transient", http.StatusTooManyRequests, ErrPushFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			err := testClient(srv.URL, "wh-1").UpdateSensors(context.Background(), []sensor.Reading{{ID: "cpu_usage", State: 1.0}})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("UpdateSensors() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRegisterSensors_StopsAtFirstFailure(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := testClient(srv.URL, "wh-1").RegisterSensors(context.Background(), []sensor.Reading{
		{ID: "a"}, {ID: "b"}, {ID: "c"},
	})
	if !errors.Is(err, ErrPushFailed) {
		t.Fatalf("RegisterSensors() error = %v, want ErrPushFailed", err)
	}
	if calls != 2 {
		t.Errorf("made %d calls, want stop after second", calls)
	}
}

func TestCheckWebhook(t *testing.T) {
	t.Run("valid webhook", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		if !testClient(srv.URL, "wh-1").CheckWebhook(context.Background()) {
			t.Error("CheckWebhook() = false, want true")
		}
	})

	t.Run("gone webhook", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusGone)
		}))
		defer srv.Close()

		if testClient(srv.URL, "wh-1").CheckWebhook(context.Background()) {
			t.Error("CheckWebhook() = true, want false")
		}
	})
}

func TestPublicIP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		//nolint:errcheck // Test server response
		w.Write([]byte("203.0.113.7\n"))
	}))
	defer srv.Close()

	c := testClient(srv.URL, "")
	c.publicIPEndpoint = srv.URL

	ip, err := c.PublicIP(context.Background())
	if err != nil {
		t.Fatalf("PublicIP() error = %v", err)
	}
	if ip != "203.0.113.7" {
		t.Errorf("PublicIP() = %q, want trimmed address", ip)
	}
}

func TestUpdateConfig_RepointsClient(t *testing.T) {
	c := New("https://old.example/", "old-token", "wh-old", Options{})

	c.UpdateConfig("https://new.example/", "new-token")
	c.SetWebhookID("wh-new")

	serverURL, token, webhookID := c.snapshot()
	if serverURL != "https://new.example" {
		t.Errorf("serverURL = %q, want trailing slash stripped", serverURL)
	}
	if token != "new-token" {
		t.Errorf("token = %q", token)
	}
	if webhookID != "wh-new" {
		t.Errorf("webhookID = %q", webhookID)
	}
}
