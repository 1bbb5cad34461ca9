package journal

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"logrero/src/apperr"
	"logrero/src/contracts"
	"logrero/src/logger"
)

const (
	// DefaultPollTimeout bounds a single Await call.
	DefaultPollTimeout = 10 * time.Second
	// DefaultWaitSlice is the longest single journal wait inside Await.
	DefaultWaitSlice = 250 * time.Millisecond
)

var errStopped = errors.New("source stopped")

// Result is one delivery from a started Source: a record, or the terminal error.
type Result struct {
	Record *contracts.LogRecord
	Err    error
}

// Option configures a Source.
type Option func(*Source)

// WithPollTimeout sets the bound after which Await returns an empty result.
func WithPollTimeout(d time.Duration) Option {
	return func(s *Source) {
		if d > 0 {
			s.pollTimeout = d
		}
	}
}

// WithWaitSlice sets how long Await blocks on the journal before checking
// for queued filter changes.
func WithWaitSlice(d time.Duration) Option {
	return func(s *Source) {
		if d > 0 {
			s.waitSlice = d
		}
	}
}

type request struct {
	fn   func() error
	done chan error
}

// Source reads journal entries from a Cursor with a bounded wait.
//
// After Start the cursor belongs to the worker goroutine. Filter changes made
// through AddMatches and ReplaceMatches are queued to the worker and applied
// between reads. After any filter change the source re-seeks to the last entry
// it returned, so no entry is returned twice.
type Source struct {
	cursor      Cursor
	log         logger.Logger
	pollTimeout time.Duration
	waitSlice   time.Duration

	requests chan request
	started  atomic.Bool
	stopped  chan struct{}

	// Owned by whichever goroutine drives the cursor.
	lastCursor string
	delivered  string
	reseek     bool
	pending    bool

	mu      sync.Mutex
	matches []string
}

// NewSource wraps cursor and seeks it to the head of the journal.
func NewSource(cursor Cursor, log logger.Logger, opts ...Option) (*Source, error) {
	s := &Source{
		cursor:      cursor,
		log:         log,
		pollTimeout: DefaultPollTimeout,
		waitSlice:   DefaultWaitSlice,
		requests:    make(chan request),
		stopped:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := cursor.SeekHead(); err != nil {
		return nil, &apperr.SourceError{Op: "seek head", Err: err}
	}
	return s, nil
}

// Await returns the next matching record. It returns (nil, nil) when the poll
// timeout elapses with nothing available; the caller should call it again.
// Errors are *apperr.SourceError, or ctx.Err() when ctx is done.
func (s *Source) Await(ctx context.Context) (*contracts.LogRecord, error) {
	deadline := time.Now().Add(s.pollTimeout)
	for {
		s.serveQueued()

		record, err := s.next()
		if err != nil || record != nil {
			return record, err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		wait := s.waitSlice
		if remaining < wait {
			wait = remaining
		}
		if err := s.cursor.Wait(wait); err != nil {
			return nil, &apperr.SourceError{Op: "wait", Err: err}
		}
	}
}

// Start runs Await in a worker goroutine and delivers records on the returned
// channel. Empty polls are not delivered. A read failure is delivered once as
// Result{Err} and ends the worker. The channel is closed when the worker exits.
// The worker reads one entry ahead of the receiver. A filter change made while
// that entry is held discards it, so every delivered record matches the filter
// installed at delivery time. Close waits for the worker to exit.
func (s *Source) Start(ctx context.Context) <-chan Result {
	results := make(chan Result)
	s.started.Store(true)
	go s.work(ctx, results)
	return results
}

func (s *Source) work(ctx context.Context, results chan<- Result) {
	defer close(results)
	defer close(s.stopped)

	for {
		record, err := s.Await(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			for {
				select {
				case results <- Result{Err: err}:
					return
				case req := <-s.requests:
					req.done <- err
				case <-ctx.Done():
					return
				}
			}
		}
		if record == nil {
			s.log.Trace("[Journal] no entries within %s", s.pollTimeout)
			continue
		}

	deliver:
		for {
			select {
			case results <- Result{Record: record}:
				s.delivered = record.Cursor
				break deliver
			case req := <-s.requests:
				req.done <- req.fn()
				if s.reseek {
					// The held record was read under the old filter. Drop it
					// and read again after the last delivered entry.
					s.lastCursor = s.delivered
					break deliver
				}
			case <-ctx.Done():
				return
			}
		}
	}
}

// AddMatches installs field=value for each value. Predicates already present
// are skipped. If any predicate cannot be installed the previous set is restored.
func (s *Source) AddMatches(ctx context.Context, field string, values []string) error {
	return s.do(ctx, func() error {
		previous := s.Matches()
		for _, value := range values {
			if err := s.addMatch(field + "=" + value); err != nil {
				s.restore(previous)
				return err
			}
		}
		return nil
	})
}

// ReplaceMatches swaps the whole predicate set for field=value for each value.
// If a predicate cannot be installed the previous set is restored.
func (s *Source) ReplaceMatches(ctx context.Context, field string, values []string) error {
	return s.do(ctx, func() error {
		previous := s.Matches()
		if err := s.replaceMatches(field, values); err != nil {
			s.restore(previous)
			return err
		}
		return nil
	})
}

// Matches returns a copy of the installed predicates in installation order.
func (s *Source) Matches() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.matches))
	copy(out, s.matches)
	return out
}

// Close waits for the worker started by Start to exit and closes the
// underlying cursor. The worker exits when the context given to Start is done
// or after a read failure.
func (s *Source) Close() error {
	if s.started.Load() {
		<-s.stopped
	}
	return s.cursor.Close()
}

func (s *Source) do(ctx context.Context, fn func() error) error {
	if !s.started.Load() {
		return fn()
	}

	req := request{fn: fn, done: make(chan error, 1)}
	select {
	case s.requests <- req:
	case <-s.stopped:
		return &apperr.SourceError{Op: "filter", Err: errStopped}
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Source) serveQueued() {
	if !s.started.Load() {
		return
	}
	for {
		select {
		case req := <-s.requests:
			req.done <- req.fn()
		default:
			return
		}
	}
}

func (s *Source) next() (*contracts.LogRecord, error) {
	if s.reseek {
		if err := s.reposition(); err != nil {
			return nil, err
		}
		s.reseek = false
	}

	if s.pending {
		s.pending = false
	} else {
		n, err := s.cursor.Next()
		if err != nil {
			return nil, &apperr.SourceError{Op: "next", Err: err}
		}
		if n == 0 {
			return nil, nil
		}
	}

	entry, err := s.cursor.GetEntry()
	if err != nil {
		return nil, &apperr.SourceError{Op: "read entry", Err: err}
	}
	s.lastCursor = entry.Cursor
	return toRecord(entry), nil
}

// reposition moves the cursor back to the last returned entry after a filter
// change. When that entry no longer matches, the cursor lands on the next
// matching entry, which is then returned without another Next.
func (s *Source) reposition() error {
	s.pending = false
	if s.lastCursor == "" {
		if err := s.cursor.SeekHead(); err != nil {
			return &apperr.SourceError{Op: "seek head", Err: err}
		}
		return nil
	}

	if err := s.cursor.SeekCursor(s.lastCursor); err != nil {
		return &apperr.SourceError{Op: "seek cursor", Err: err}
	}
	n, err := s.cursor.Next()
	if err != nil {
		return &apperr.SourceError{Op: "next", Err: err}
	}
	if n == 0 {
		return nil
	}
	same, err := s.cursor.TestCursor(s.lastCursor)
	if err != nil {
		return &apperr.SourceError{Op: "test cursor", Err: err}
	}
	s.pending = !same
	return nil
}

func (s *Source) addMatch(match string) error {
	s.mu.Lock()
	for _, m := range s.matches {
		if m == match {
			s.mu.Unlock()
			return nil
		}
	}
	s.mu.Unlock()

	if err := s.cursor.AddMatch(match); err != nil {
		return &apperr.SourceError{Op: "add match " + match, Err: err}
	}

	s.mu.Lock()
	s.matches = append(s.matches, match)
	s.mu.Unlock()
	s.reseek = true
	s.log.Debug("[Journal] installed match %s", match)
	return nil
}

func (s *Source) replaceMatches(field string, values []string) error {
	s.cursor.FlushMatches()
	s.mu.Lock()
	s.matches = nil
	s.mu.Unlock()
	s.reseek = true

	for _, value := range values {
		if err := s.addMatch(field + "=" + value); err != nil {
			return err
		}
	}
	return nil
}

func (s *Source) restore(previous []string) {
	s.cursor.FlushMatches()
	s.mu.Lock()
	s.matches = nil
	s.mu.Unlock()
	s.reseek = true

	for _, match := range previous {
		if err := s.addMatch(match); err != nil {
			s.log.Error("[Journal] failed to restore match %s: %v", match, err)
		}
	}
}
