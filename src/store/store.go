// Package store persists forwarded records and per-device policies for the control plane.
package store

import (
	"context"
	"fmt"
	"time"

	"logrero/src/contracts"
)

// Store defines the interface for control-plane persistence.
type Store interface {
	// AppendRecord saves a forwarded record and assigns it an id.
	AppendRecord(ctx context.Context, deviceID string, record contracts.LogRecord) (contracts.StoredRecord, error)

	// ListRecords returns up to limit records of a device, newest first.
	ListRecords(ctx context.Context, deviceID string, limit int) ([]contracts.StoredRecord, error)

	// GetPolicy returns the policy set for a device, or ErrNotFound.
	GetPolicy(ctx context.Context, deviceID string) (contracts.Policy, error)

	// SetPolicy replaces the policy of a device.
	SetPolicy(ctx context.Context, deviceID string, policy contracts.Policy) error

	// Touch records that a device was seen at the given time.
	Touch(ctx context.Context, deviceID string, at time.Time) error

	// ListDevices returns every device with a policy, a record or a heartbeat.
	ListDevices(ctx context.Context) ([]Device, error)

	// Close closes the store connection
	Close() error
}

// Device is what the store knows about one device.
type Device struct {
	ID string
	// Policy is nil when none was set for the device.
	Policy   *contracts.Policy
	Records  int
	LastSeen time.Time
}

// DefaultListLimit is used when a caller passes a non-positive limit.
const DefaultListLimit = 100

// ErrNotFound is returned when a device has no stored policy.
type ErrNotFound struct {
	DeviceID string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("no policy for device: %s", e.DeviceID)
}
