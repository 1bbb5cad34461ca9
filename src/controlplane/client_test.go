package controlplane

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"

	"logrero/src/apperr"
	"logrero/src/contracts"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	endpoint, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	return NewClient(contracts.AgentIdentity{ID: "device", Endpoint: endpoint, Credential: "secret"}, opts...)
}

func TestFetchPolicy(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/v1/device/device/settings" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("User-Agent"); !strings.HasPrefix(got, "logrero/") {
			t.Errorf("User-Agent = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"priorities":["3","4"]}`))
	})

	policy, err := client.FetchPolicy(context.Background())
	if err != nil {
		t.Fatalf("FetchPolicy() error: %v", err)
	}
	if !reflect.DeepEqual(policy.Priorities, []string{"3", "4"}) {
		t.Errorf("FetchPolicy() = %v", policy)
	}
}

func TestFetchPolicyErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantAuth   bool
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: "bad token", wantStatus: 401, wantAuth: true},
		{name: "server error", status: http.StatusInternalServerError, body: "boom", wantStatus: 500},
		{name: "not found", status: http.StatusNotFound, wantStatus: 404},
		{name: "malformed body", status: http.StatusOK, body: `{"priorities":`, wantStatus: 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.FetchPolicy(context.Background())
			var apiErr *apperr.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("FetchPolicy() error = %v, want APIError", err)
			}
			if apiErr.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.wantStatus)
			}
			if errors.Is(err, apperr.ErrUnauthorized) != tt.wantAuth {
				t.Errorf("errors.Is(ErrUnauthorized) = %v, want %v", !tt.wantAuth, tt.wantAuth)
			}
		})
	}
}

func TestFetchPolicyUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint, _ := url.Parse(srv.URL)
	srv.Close()

	client := NewClient(contracts.AgentIdentity{ID: "device", Endpoint: endpoint, Credential: "secret"})
	_, err := client.FetchPolicy(context.Background())

	var apiErr *apperr.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 0 {
		t.Fatalf("FetchPolicy() error = %v, want transport APIError", err)
	}
}

func TestForward(t *testing.T) {
	record := contracts.LogRecord{Message: "disk full", Priority: "3", Cursor: "c1"}
	payload, err := json.Marshal(record)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		compress bool
		status   int
		wantErr  bool
	}{
		{name: "plain", status: http.StatusOK},
		{name: "gzip", compress: true, status: http.StatusCreated},
		{name: "no content", status: http.StatusNoContent},
		{name: "rejected", status: http.StatusBadRequest, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.URL.Path != "/api/v1/device/device/logs" {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				if got := r.Header.Get("Content-Type"); got != "application/json" {
					t.Errorf("Content-Type = %q", got)
				}

				var body io.Reader = r.Body
				if tt.compress {
					if r.Header.Get("Content-Encoding") != "gzip" {
						t.Error("missing Content-Encoding: gzip")
					}
					zr, err := gzip.NewReader(r.Body)
					if err != nil {
						t.Errorf("gzip.NewReader() error: %v", err)
						return
					}
					defer zr.Close()
					body = zr
				}

				var got contracts.LogRecord
				if err := json.NewDecoder(body).Decode(&got); err != nil {
					t.Errorf("decode body: %v", err)
				}
				if got != record {
					t.Errorf("record = %+v, want %+v", got, record)
				}
				w.WriteHeader(tt.status)
			}, WithCompression(tt.compress))

			err := client.Forward(context.Background(), payload)
			if (err != nil) != tt.wantErr {
				t.Errorf("Forward() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHeartbeat(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/device/device/heartbeat" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var hb contracts.Heartbeat
		if err := json.NewDecoder(r.Body).Decode(&hb); err != nil {
			t.Errorf("decode heartbeat: %v", err)
		}
		if hb.Filters != 2 {
			t.Errorf("Filters = %d, want 2", hb.Filters)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	err := client.Heartbeat(context.Background(), contracts.Heartbeat{Timestamp: "2024-01-01T00:00:00Z", Priorities: []string{"3", "4"}, Filters: 2})
	if err != nil {
		t.Fatalf("Heartbeat() error: %v", err)
	}
}

func TestOperatorCalls(t *testing.T) {
	var updated contracts.Policy
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/api/v1/device/web-01/settings":
			_ = json.NewDecoder(r.Body).Decode(&updated)
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/device/web-01/logs":
			if got := r.URL.Query().Get("limit"); got != "5" {
				t.Errorf("limit = %q, want 5", got)
			}
			_, _ = w.Write([]byte(`[{"id":"r1","device_id":"web-01","received_at":"2024-01-01T00:00:00Z","record":{"message":"hi","priority":"4"}}]`))
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/devices":
			_, _ = w.Write([]byte(`[{"id":"web-01","policy":{"priorities":["4"]},"records":1}]`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	if err := client.SetPolicy(ctx, "web-01", contracts.Policy{Priorities: []string{"err"}}); err != nil {
		t.Fatalf("SetPolicy() error: %v", err)
	}
	if !updated.Equal(contracts.Policy{Priorities: []string{"err"}}) {
		t.Errorf("server received %v", updated)
	}

	records, err := client.ListLogs(ctx, "web-01", 5)
	if err != nil {
		t.Fatalf("ListLogs() error: %v", err)
	}
	if len(records) != 1 || records[0].Record.Message != "hi" {
		t.Errorf("ListLogs() = %+v", records)
	}

	devices, err := client.ListDevices(ctx)
	if err != nil {
		t.Fatalf("ListDevices() error: %v", err)
	}
	if len(devices) != 1 || devices[0].ID != "web-01" || devices[0].Records != 1 {
		t.Errorf("ListDevices() = %+v", devices)
	}
}

func TestNewClient(t *testing.T) {
	client := NewClient(contracts.AgentIdentity{ID: "device"}, WithUserAgent("custom/1"))

	if client == nil {
		t.Fatal("NewClient() returned nil")
	}
	if client.userAgent != "custom/1" {
		t.Errorf("userAgent = %q", client.userAgent)
	}
	if client.httpClient.Timeout == 0 {
		t.Error("NewClient() should set a default timeout")
	}
	if client.Identity().ID != "device" {
		t.Errorf("Identity() = %+v", client.Identity())
	}
}
