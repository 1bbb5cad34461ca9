package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"logrero/src/contracts"
)

// MemoryStore is an in-memory implementation of Store.
// Useful for testing and single-node deployments without Postgres.
type MemoryStore struct {
	mu       sync.RWMutex
	records  map[string][]contracts.StoredRecord // deviceID -> records, oldest first
	policies map[string]contracts.Policy
	lastSeen map[string]time.Time
	now      func() time.Time
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:  make(map[string][]contracts.StoredRecord),
		policies: make(map[string]contracts.Policy),
		lastSeen: make(map[string]time.Time),
		now:      time.Now,
	}
}

// AppendRecord saves a forwarded record.
func (s *MemoryStore) AppendRecord(ctx context.Context, deviceID string, record contracts.LogRecord) (contracts.StoredRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	received := s.now().UTC()
	stored := contracts.StoredRecord{
		ID:         uuid.NewString(),
		DeviceID:   deviceID,
		ReceivedAt: received.Format(time.RFC3339Nano),
		Record:     record,
	}
	s.records[deviceID] = append(s.records[deviceID], stored)
	s.lastSeen[deviceID] = received
	return stored, nil
}

// ListRecords returns up to limit records of a device, newest first.
func (s *MemoryStore) ListRecords(ctx context.Context, deviceID string, limit int) ([]contracts.StoredRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.records[deviceID]
	out := make([]contracts.StoredRecord, 0, min(limit, len(all)))
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

// GetPolicy returns the policy of a device.
func (s *MemoryStore) GetPolicy(ctx context.Context, deviceID string) (contracts.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	policy, ok := s.policies[deviceID]
	if !ok {
		return contracts.Policy{}, ErrNotFound{DeviceID: deviceID}
	}
	return policy.Clone(), nil
}

// SetPolicy replaces the policy of a device.
func (s *MemoryStore) SetPolicy(ctx context.Context, deviceID string, policy contracts.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.policies[deviceID] = policy.Clone()
	return nil
}

// Touch records that a device was seen.
func (s *MemoryStore) Touch(ctx context.Context, deviceID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if at.After(s.lastSeen[deviceID]) {
		s.lastSeen[deviceID] = at.UTC()
	}
	return nil
}

// ListDevices returns every known device sorted by id.
func (s *MemoryStore) ListDevices(ctx context.Context) ([]Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make(map[string]struct{})
	for id := range s.records {
		ids[id] = struct{}{}
	}
	for id := range s.policies {
		ids[id] = struct{}{}
	}
	for id := range s.lastSeen {
		ids[id] = struct{}{}
	}

	devices := make([]Device, 0, len(ids))
	for id := range ids {
		d := Device{ID: id, Records: len(s.records[id]), LastSeen: s.lastSeen[id]}
		if p, ok := s.policies[id]; ok {
			clone := p.Clone()
			d.Policy = &clone
		}
		devices = append(devices, d)
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })
	return devices, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
