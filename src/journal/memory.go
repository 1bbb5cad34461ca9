package journal

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// MemoryCursor is an in-memory Cursor. Matches follow journal semantics:
// values for the same field are alternatives, different fields must all match.
// Useful for testing and local development.
type MemoryCursor struct {
	mu      sync.Mutex
	entries []Entry
	matches map[string][]string
	pos     int
	changed chan struct{}
	closed  bool

	// Failure injection.
	NextErr     error
	WaitErr     error
	AddMatchErr map[string]error
}

// NewMemoryCursor creates an empty cursor positioned before the head.
func NewMemoryCursor() *MemoryCursor {
	return &MemoryCursor{
		matches: make(map[string][]string),
		pos:     -1,
		changed: make(chan struct{}),
	}
}

// Append adds an entry with the given fields and wakes any waiter.
// Entries get cursors "c1", "c2", ... in append order.
func (m *MemoryCursor) Append(fields map[string]string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	cursor := fmt.Sprintf("c%d", len(m.entries)+1)
	m.entries = append(m.entries, Entry{
		Fields:             fields,
		Cursor:             cursor,
		RealtimeTimestamp:  uint64(1700000000000000 + len(m.entries)),
		MonotonicTimestamp: uint64(1000 + len(m.entries)),
	})
	close(m.changed)
	m.changed = make(chan struct{})
	return cursor
}

// AppendPriority adds an entry with only MESSAGE and PRIORITY set.
func (m *MemoryCursor) AppendPriority(message, priority string) string {
	return m.Append(map[string]string{"MESSAGE": message, PriorityField: priority})
}

// Closed reports whether Close was called.
func (m *MemoryCursor) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MemoryCursor) SeekHead() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pos = -1
	return nil
}

func (m *MemoryCursor) SeekCursor(cursor string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.entries {
		if m.entries[i].Cursor == cursor {
			m.pos = i - 1
			return nil
		}
	}
	return fmt.Errorf("cursor %q not found", cursor)
}

func (m *MemoryCursor) TestCursor(cursor string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pos < 0 || m.pos >= len(m.entries) {
		return false, nil
	}
	return m.entries[m.pos].Cursor == cursor, nil
}

func (m *MemoryCursor) Next() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.NextErr != nil {
		return 0, m.NextErr
	}
	for i := m.pos + 1; i < len(m.entries); i++ {
		if m.matchesEntry(m.entries[i]) {
			m.pos = i
			return 1, nil
		}
	}
	return 0, nil
}

func (m *MemoryCursor) Wait(timeout time.Duration) error {
	m.mu.Lock()
	if m.WaitErr != nil {
		m.mu.Unlock()
		return m.WaitErr
	}
	changed := m.changed
	m.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-changed:
	case <-timer.C:
	}
	return nil
}

func (m *MemoryCursor) GetEntry() (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pos < 0 || m.pos >= len(m.entries) {
		return nil, fmt.Errorf("no entry at position %d", m.pos)
	}
	e := m.entries[m.pos]
	return &e, nil
}

func (m *MemoryCursor) AddMatch(match string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.AddMatchErr[match]; err != nil {
		return err
	}
	field, value, ok := strings.Cut(match, "=")
	if !ok {
		return fmt.Errorf("invalid match %q", match)
	}
	m.matches[field] = append(m.matches[field], value)
	return nil
}

func (m *MemoryCursor) FlushMatches() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matches = make(map[string][]string)
}

func (m *MemoryCursor) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MemoryCursor) matchesEntry(e Entry) bool {
	for field, values := range m.matches {
		found := false
		for _, v := range values {
			if e.Fields[field] == v {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
