package tui

import (
	"strings"
	"time"

	"logrero/src/contracts"
	"logrero/src/journal"
	"logrero/src/sanitize"
)

// Item is one stored record as shown in the record table.
type Item struct {
	Stored contracts.StoredRecord
}

// Time returns when the journal wrote the record, falling back to when the
// control plane received it.
func (i Item) Time() time.Time {
	if t, ok := i.Stored.Record.RealtimeTime(); ok {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, i.Stored.ReceivedAt); err == nil {
		return t
	}
	return time.Time{}
}

// Priority returns the numeric syslog priority, normalized from a name if needed.
func (i Item) Priority() string {
	return journal.NormalizePriority(i.Stored.Record.Priority)
}

// Source names what wrote the record: the unit, else the syslog identifier, else the command.
func (i Item) Source() string {
	r := i.Stored.Record
	for _, s := range []string{r.SystemdUnit, r.SyslogIdentifier, r.Comm} {
		if s != "" {
			return s
		}
	}
	return "-"
}

// Summary is the message on one line.
func (i Item) Summary() string {
	return sanitize.OneLine(i.Stored.Record.Message)
}

// Matches reports whether query (lower case) occurs in the message or the source fields.
func (i Item) Matches(query string) bool {
	r := i.Stored.Record
	for _, s := range []string{r.Message, r.SystemdUnit, r.SyslogIdentifier, r.Comm, r.Exe, r.Cmdline} {
		if strings.Contains(strings.ToLower(s), query) {
			return true
		}
	}
	return false
}
