// Package journal tails the systemd journal as a sequence of LogRecords.
package journal

import (
	"strconv"
	"time"

	"logrero/src/contracts"
)

// Entry is one journal entry with its address fields.
type Entry struct {
	Fields             map[string]string
	Cursor             string
	RealtimeTimestamp  uint64
	MonotonicTimestamp uint64
}

// Cursor is the position-bearing journal handle a Source reads from.
// Implementations need not be safe for concurrent use; a Source touches its
// Cursor from one goroutine at a time.
type Cursor interface {
	SeekHead() error
	SeekCursor(cursor string) error
	// TestCursor reports whether the current position is the given cursor.
	TestCursor(cursor string) (bool, error)
	// Next advances to the next matching entry and returns the number of
	// entries advanced (0 at the end of the journal).
	Next() (uint64, error)
	// Wait blocks until the journal changes or the timeout elapses.
	Wait(timeout time.Duration) error
	GetEntry() (*Entry, error)
	AddMatch(match string) error
	FlushMatches()
	Close() error
}

func toRecord(e *Entry) *contracts.LogRecord {
	f := e.Fields
	return &contracts.LogRecord{
		Message:            f[contracts.FieldMessage],
		Priority:           f[contracts.FieldPriority],
		Cursor:             e.Cursor,
		RealtimeTimestamp:  strconv.FormatUint(e.RealtimeTimestamp, 10),
		MonotonicTimestamp: strconv.FormatUint(e.MonotonicTimestamp, 10),
		BootID:             f[contracts.FieldBootID],
		Transport:          f[contracts.FieldTransport],
		SyslogFacility:     f[contracts.FieldSyslogFacility],
		SyslogIdentifier:   f[contracts.FieldSyslogIdentifier],
		UID:                f[contracts.FieldUID],
		GID:                f[contracts.FieldGID],
		Comm:               f[contracts.FieldComm],
		Exe:                f[contracts.FieldExe],
		Cmdline:            f[contracts.FieldCmdline],
		SystemdCgroup:      f[contracts.FieldSystemdCgroup],
		SystemdSession:     f[contracts.FieldSystemdSession],
		SystemdOwnerUID:    f[contracts.FieldSystemdOwnerUID],
		SystemdUnit:        f[contracts.FieldSystemdUnit],
		SystemdSlice:       f[contracts.FieldSystemdSlice],
		SystemdUserSlice:   f[contracts.FieldSystemdUserSlice],
		PID:                f[contracts.FieldPID],
	}
}
