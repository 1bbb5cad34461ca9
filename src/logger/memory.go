package logger

import (
	"fmt"
	"strings"
	"sync"
)

// Entry is one line captured by MemoryLogger.
type Entry struct {
	Level   Level
	Message string
}

// MemoryLogger keeps every formatted line in memory.
// Tests use it to assert that failures were logged at the right level.
type MemoryLogger struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemoryLogger() *MemoryLogger {
	return &MemoryLogger{}
}

func (m *MemoryLogger) record(level Level, msg string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, Entry{Level: level, Message: fmt.Sprintf(msg, args...)})
}

func (m *MemoryLogger) Trace(msg string, args ...interface{}) { m.record(LevelTrace, msg, args...) }
func (m *MemoryLogger) Debug(msg string, args ...interface{}) { m.record(LevelDebug, msg, args...) }
func (m *MemoryLogger) Info(msg string, args ...interface{})  { m.record(LevelInfo, msg, args...) }
func (m *MemoryLogger) Warn(msg string, args ...interface{})  { m.record(LevelWarn, msg, args...) }
func (m *MemoryLogger) Error(msg string, args ...interface{}) { m.record(LevelError, msg, args...) }

// Entries returns a copy of the captured lines.
func (m *MemoryLogger) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Count returns how many lines at level contain substr.
func (m *MemoryLogger) Count(level Level, substr string) int {
	n := 0
	for _, e := range m.Entries() {
		if e.Level == level && strings.Contains(e.Message, substr) {
			n++
		}
	}
	return n
}
