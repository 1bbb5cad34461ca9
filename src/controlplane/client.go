// Package controlplane provides a client for the logrero control-plane API.
package controlplane

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/klauspost/compress/gzip"

	"logrero/src/apperr"
	"logrero/src/contracts"
)

// Version is reported in the User-Agent header.
var Version = "0.1.0"

// maxErrorBody caps how much of a failed response is kept for diagnostics.
const maxErrorBody = 4 << 10

// Client is a control-plane API client bound to one agent identity.
type Client struct {
	identity   contracts.AgentIdentity
	httpClient *http.Client
	userAgent  string
	compress   bool
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithCompression gzips forwarded record bodies.
func WithCompression(enabled bool) Option {
	return func(c *Client) {
		c.compress = enabled
	}
}

// WithUserAgent overrides the client label sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient creates a new control-plane client.
func NewClient(identity contracts.AgentIdentity, opts ...Option) *Client {
	c := &Client{
		identity: identity,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		userAgent: "logrero/" + Version,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Identity returns the identity the client was created with.
func (c *Client) Identity() contracts.AgentIdentity {
	return c.identity
}

// FetchPolicy fetches the policy for the client's device.
func (c *Client) FetchPolicy(ctx context.Context) (contracts.Policy, error) {
	return c.PolicyFor(ctx, c.identity.ID)
}

// PolicyFor fetches the policy for any device.
func (c *Client) PolicyFor(ctx context.Context, deviceID string) (contracts.Policy, error) {
	const op = "fetch settings"

	var policy contracts.Policy
	if err := c.getJSON(ctx, op, c.deviceURL(deviceID, "settings"), &policy); err != nil {
		return contracts.Policy{}, err
	}
	return policy, nil
}

// Forward sends one serialized LogRecord. Any 2xx response is success.
func (c *Client) Forward(ctx context.Context, payload []byte) error {
	const op = "send record"

	body := payload
	if c.compress {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(payload); err != nil {
			return &apperr.APIError{Op: op, Err: fmt.Errorf("failed to compress body: %w", err)}
		}
		if err := zw.Close(); err != nil {
			return &apperr.APIError{Op: op, Err: fmt.Errorf("failed to compress body: %w", err)}
		}
		body = buf.Bytes()
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.deviceURL(c.identity.ID, "logs"), bytes.NewReader(body))
	if err != nil {
		return &apperr.APIError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.compress {
		req.Header.Set("Content-Encoding", "gzip")
	}

	return c.doNoContent(op, req)
}

// Heartbeat reports liveness and the active filter.
func (c *Client) Heartbeat(ctx context.Context, hb contracts.Heartbeat) error {
	const op = "heartbeat"

	payload, err := json.Marshal(hb)
	if err != nil {
		return &apperr.APIError{Op: op, Err: err}
	}
	req, err := c.newRequest(ctx, http.MethodPost, c.deviceURL(c.identity.ID, "heartbeat"), bytes.NewReader(payload))
	if err != nil {
		return &apperr.APIError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doNoContent(op, req)
}

// SetPolicy replaces the policy of a device.
func (c *Client) SetPolicy(ctx context.Context, deviceID string, policy contracts.Policy) error {
	const op = "update settings"

	payload, err := json.Marshal(policy)
	if err != nil {
		return &apperr.APIError{Op: op, Err: err}
	}
	req, err := c.newRequest(ctx, http.MethodPut, c.deviceURL(deviceID, "settings"), bytes.NewReader(payload))
	if err != nil {
		return &apperr.APIError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doNoContent(op, req)
}

// ListLogs returns the most recent stored records of a device, newest first.
// A limit of zero leaves the page size to the server.
func (c *Client) ListLogs(ctx context.Context, deviceID string, limit int) ([]contracts.StoredRecord, error) {
	u := c.deviceURL(deviceID, "logs")
	if limit > 0 {
		q := u.Query()
		q.Set("limit", strconv.Itoa(limit))
		u.RawQuery = q.Encode()
	}

	var records []contracts.StoredRecord
	if err := c.getJSON(ctx, "list logs", u, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// ListDevices returns every device known to the control plane.
func (c *Client) ListDevices(ctx context.Context) ([]contracts.DeviceSummary, error) {
	var devices []contracts.DeviceSummary
	if err := c.getJSON(ctx, "list devices", c.endpoint().JoinPath("api", "v1", "devices"), &devices); err != nil {
		return nil, err
	}
	return devices, nil
}

func (c *Client) endpoint() *url.URL {
	if c.identity.Endpoint == nil {
		return &url.URL{}
	}
	return c.identity.Endpoint
}

func (c *Client) deviceURL(deviceID, resource string) *url.URL {
	return c.endpoint().JoinPath("api", "v1", "device", deviceID, resource)
}

func (c *Client) newRequest(ctx context.Context, method string, u *url.URL, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.identity.Credential))
	req.Header.Set("User-Agent", c.userAgent)
	return req, nil
}

func (c *Client) getJSON(ctx context.Context, op string, u *url.URL, out interface{}) error {
	req, err := c.newRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &apperr.APIError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &apperr.APIError{Op: op, Err: fmt.Errorf("failed to execute request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apperr.StatusError(op, resp.StatusCode, readErrorBody(resp.Body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &apperr.APIError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

func (c *Client) doNoContent(op string, req *http.Request) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &apperr.APIError{Op: op, Err: fmt.Errorf("failed to execute request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperr.StatusError(op, resp.StatusCode, readErrorBody(resp.Body))
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	return nil
}

func readErrorBody(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	return string(bytes.TrimSpace(body))
}
