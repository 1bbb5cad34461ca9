//go:build linux && cgo

package journal

import (
	"errors"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/sdjournal"

	"logrero/src/apperr"
	"logrero/src/logger"
)

// Open opens the local system journal and returns a Source positioned at its head.
func Open(log logger.Logger, opts ...Option) (*Source, error) {
	j, err := sdjournal.NewJournal()
	if err != nil {
		return nil, &apperr.SourceError{Op: "open", Err: err}
	}

	src, err := NewSource(&sdCursor{j: j}, log, opts...)
	if err != nil {
		j.Close()
		return nil, err
	}
	return src, nil
}

type sdCursor struct {
	j *sdjournal.Journal
}

func (c *sdCursor) SeekHead() error                { return c.j.SeekHead() }
func (c *sdCursor) SeekCursor(cursor string) error { return c.j.SeekCursor(cursor) }
func (c *sdCursor) Next() (uint64, error)          { return c.j.Next() }
func (c *sdCursor) AddMatch(match string) error    { return c.j.AddMatch(match) }
func (c *sdCursor) FlushMatches()                  { c.j.FlushMatches() }
func (c *sdCursor) Close() error                   { return c.j.Close() }

func (c *sdCursor) TestCursor(cursor string) (bool, error) {
	err := c.j.TestCursor(cursor)
	if errors.Is(err, sdjournal.ErrNoTestCursor) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *sdCursor) Wait(timeout time.Duration) error {
	if r := c.j.Wait(timeout); r < 0 {
		return syscall.Errno(-r)
	}
	return nil
}

func (c *sdCursor) GetEntry() (*Entry, error) {
	e, err := c.j.GetEntry()
	if err != nil {
		return nil, err
	}
	return &Entry{
		Fields:             e.Fields,
		Cursor:             e.Cursor,
		RealtimeTimestamp:  e.RealtimeTimestamp,
		MonotonicTimestamp: e.MonotonicTimestamp,
	}, nil
}
