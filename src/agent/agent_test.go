package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"logrero/src/apperr"
	"logrero/src/contracts"
	"logrero/src/journal"
	"logrero/src/logger"
	"logrero/src/reconcile"
)

type policyResponse struct {
	policy contracts.Policy
	err    error
}

// fakePolicyClient serves responses in order and repeats the last one.
type fakePolicyClient struct {
	mu        sync.Mutex
	responses []policyResponse
	calls     int
}

func (f *fakePolicyClient) FetchPolicy(context.Context) (contracts.Policy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	f.calls++
	return f.responses[i].policy, f.responses[i].err
}

func (f *fakePolicyClient) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingSink struct {
	mu      sync.Mutex
	records []contracts.LogRecord
	calls   int
	fail    func(call int) error
	delay   time.Duration
}

func (s *recordingSink) Forward(_ context.Context, payload []byte) error {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.fail != nil {
		if err := s.fail(s.calls); err != nil {
			return err
		}
	}
	var record contracts.LogRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return err
	}
	s.records = append(s.records, record)
	return nil
}

func (s *recordingSink) Messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.records))
	for i, r := range s.records {
		out[i] = r.Message
	}
	return out
}

func (s *recordingSink) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type recordingHeartbeat struct {
	mu   sync.Mutex
	sent []contracts.Heartbeat
}

func (h *recordingHeartbeat) Heartbeat(_ context.Context, hb contracts.Heartbeat) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = append(h.sent, hb)
	return nil
}

func (h *recordingHeartbeat) Last() (contracts.Heartbeat, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.sent) == 0 {
		return contracts.Heartbeat{}, false
	}
	return h.sent[len(h.sent)-1], true
}

func newSource(t *testing.T, cursor *journal.MemoryCursor) *journal.Source {
	t.Helper()
	src, err := journal.NewSource(cursor, &logger.SilentLogger{},
		journal.WithPollTimeout(50*time.Millisecond), journal.WithWaitSlice(5*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	return src
}

func ok(priorities ...string) policyResponse {
	return policyResponse{policy: contracts.Policy{Priorities: priorities}}
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// runAgent starts Run in the background and returns a stop function that
// cancels it and returns Run's error.
func runAgent(t *testing.T, a *Agent) func() error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	return func() error {
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(3 * time.Second):
			t.Fatal("Run() did not return after cancel")
			return nil
		}
	}
}

func TestInitInstallsPolicy(t *testing.T) {
	src := newSource(t, journal.NewMemoryCursor())
	a := NewAgent(src, &fakePolicyClient{responses: []policyResponse{ok("4")}}, &recordingSink{}, &logger.SilentLogger{})

	if _, active := a.Policy(); active {
		t.Fatal("Policy() should be inactive before Init")
	}
	if err := a.Init(context.Background()); err != nil {
		t.Fatalf("Init() error: %v", err)
	}

	policy, active := a.Policy()
	if !active || !policy.Equal(contracts.Policy{Priorities: []string{"4"}}) {
		t.Errorf("Policy() = %v, %v", policy, active)
	}
	if got := src.Matches(); !reflect.DeepEqual(got, []string{"PRIORITY=4"}) {
		t.Errorf("Matches() = %v, want [PRIORITY=4]", got)
	}
}

func TestInitFailure(t *testing.T) {
	src := newSource(t, journal.NewMemoryCursor())
	client := &fakePolicyClient{responses: []policyResponse{{err: apperr.StatusError("fetch settings", 401, "")}}}
	a := NewAgent(src, client, &recordingSink{}, &logger.SilentLogger{})

	err := a.Init(context.Background())
	var cfgErr *apperr.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Init() error = %v, want ConfigurationError", err)
	}
	if !errors.Is(err, apperr.ErrUnauthorized) {
		t.Error("Init() error should expose ErrUnauthorized")
	}
	if len(src.Matches()) != 0 {
		t.Errorf("no filter should be installed, got %v", src.Matches())
	}

	if err := a.Run(context.Background()); !errors.As(err, &cfgErr) {
		t.Errorf("Run() without a policy error = %v, want ConfigurationError", err)
	}
}

func TestRunForwardsMatchingRecords(t *testing.T) {
	cursor := journal.NewMemoryCursor()
	cursor.AppendPriority("info", "6")
	cursor.AppendPriority("warn-1", "4")
	src := newSource(t, cursor)
	sink := &recordingSink{}
	a := NewAgent(src, &fakePolicyClient{responses: []policyResponse{ok("warning")}}, sink, &logger.SilentLogger{},
		WithRefreshInterval(time.Hour))

	stop := runAgent(t, a)
	cursor.AppendPriority("warn-2", "4")
	cursor.AppendPriority("debug", "7")

	eventually(t, "two forwarded records", func() bool { return sink.Calls() >= 2 })
	if err := stop(); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if got := sink.Messages(); !reflect.DeepEqual(got, []string{"warn-1", "warn-2"}) {
		t.Errorf("forwarded = %v, want [warn-1 warn-2]", got)
	}
}

// A failed forward is logged and the loop moves on to the next record.
func TestRunContinuesAfterForwardFailure(t *testing.T) {
	cursor := journal.NewMemoryCursor()
	cursor.AppendPriority("lost", "3")
	cursor.AppendPriority("kept", "3")
	src := newSource(t, cursor)
	sink := &recordingSink{fail: func(call int) error {
		if call == 1 {
			return &apperr.APIError{Op: "send record", Err: errors.New("connection reset")}
		}
		return nil
	}}
	log := logger.NewMemoryLogger()
	a := NewAgent(src, &fakePolicyClient{responses: []policyResponse{ok("3")}}, sink, log, WithRefreshInterval(time.Hour))

	stop := runAgent(t, a)
	eventually(t, "second forward", func() bool { return sink.Calls() >= 2 })
	if err := stop(); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v", err)
	}

	if got := sink.Messages(); !reflect.DeepEqual(got, []string{"kept"}) {
		t.Errorf("forwarded = %v, want [kept]", got)
	}
	if log.Count(logger.LevelError, "Failed to send record c1") != 1 {
		t.Errorf("expected one send failure log line, got %+v", log.Entries())
	}
}

// A refresh failure keeps the previous policy and the loop keeps tailing.
func TestRunRefreshFailureIsolation(t *testing.T) {
	cursor := journal.NewMemoryCursor()
	src := newSource(t, cursor)
	client := &fakePolicyClient{responses: []policyResponse{
		ok("4"),
		{err: &apperr.APIError{Op: "fetch settings", Err: errors.New("timeout")}},
		ok("3", "4"),
	}}
	sink := &recordingSink{}
	log := logger.NewMemoryLogger()
	a := NewAgent(src, client, sink, log, WithRefreshInterval(20*time.Millisecond))

	stop := runAgent(t, a)
	eventually(t, "refresh after failure", func() bool {
		p, _ := a.Policy()
		return p.Equal(contracts.Policy{Priorities: []string{"3", "4"}})
	})
	cursor.AppendPriority("after", "3")
	eventually(t, "forward after refresh", func() bool { return sink.Calls() >= 1 })
	_ = stop()

	if log.Count(logger.LevelError, "Failed to refresh settings") < 1 {
		t.Error("expected the refresh failure to be logged")
	}
	if got := src.Matches(); !reflect.DeepEqual(got, []string{"PRIORITY=4", "PRIORITY=3"}) {
		t.Errorf("Matches() = %v", got)
	}
}

// A reconciliation failure keeps the previous policy active.
func TestRunReconcileFailureKeepsPolicy(t *testing.T) {
	cursor := journal.NewMemoryCursor()
	cursor.AddMatchErr = map[string]error{"PRIORITY=5": errors.New("rejected")}
	src := newSource(t, cursor)
	client := &fakePolicyClient{responses: []policyResponse{ok("4"), ok("5")}}
	log := logger.NewMemoryLogger()
	a := NewAgent(src, client, &recordingSink{}, log, WithRefreshInterval(10*time.Millisecond))

	stop := runAgent(t, a)
	eventually(t, "failed reconciliation", func() bool {
		return log.Count(logger.LevelError, "Failed to apply settings") >= 1
	})
	_ = stop()

	if p, _ := a.Policy(); !p.Equal(contracts.Policy{Priorities: []string{"4"}}) {
		t.Errorf("Policy() = %v, want [4]", p)
	}
}

// Records and refreshes interleave when both are continuously ready.
func TestRunInterleavesRefreshAndRecords(t *testing.T) {
	cursor := journal.NewMemoryCursor()
	for i := 0; i < 100; i++ {
		cursor.AppendPriority(fmt.Sprintf("m%d", i), "4")
	}
	src := newSource(t, cursor)
	client := &fakePolicyClient{responses: []policyResponse{ok("4")}}
	sink := &recordingSink{delay: 2 * time.Millisecond}
	a := NewAgent(src, client, sink, &logger.SilentLogger{}, WithRefreshInterval(10*time.Millisecond))

	stop := runAgent(t, a)
	eventually(t, "all records", func() bool { return sink.Calls() >= 100 })
	_ = stop()

	if calls := client.Calls(); calls < 3 {
		t.Errorf("policy fetched %d times while records were flowing, want refreshes to interleave", calls)
	}
}

// A journal read failure stops the loop with a SourceError.
func TestRunStopsOnSourceError(t *testing.T) {
	cursor := journal.NewMemoryCursor()
	src := newSource(t, cursor)
	a := NewAgent(src, &fakePolicyClient{responses: []policyResponse{ok("4")}}, &recordingSink{}, &logger.SilentLogger{},
		WithRefreshInterval(time.Hour))
	if err := a.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	cursor.NextErr = errors.New("journal file corrupted")

	done := make(chan error, 1)
	go func() { done <- a.Run(context.Background()) }()

	select {
	case err := <-done:
		var srcErr *apperr.SourceError
		if !errors.As(err, &srcErr) {
			t.Errorf("Run() error = %v, want SourceError", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run() did not stop on a source error")
	}
}

// closeTrackingCursor counts journal reads made after Close.
type closeTrackingCursor struct {
	*journal.MemoryCursor
	mu        sync.Mutex
	closed    bool
	afterStop int
}

func (c *closeTrackingCursor) touch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		c.afterStop++
	}
}

func (c *closeTrackingCursor) Next() (uint64, error) {
	c.touch()
	return c.MemoryCursor.Next()
}

func (c *closeTrackingCursor) Wait(timeout time.Duration) error {
	c.touch()
	return c.MemoryCursor.Wait(timeout)
}

func (c *closeTrackingCursor) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return c.MemoryCursor.Close()
}

func (c *closeTrackingCursor) AfterClose() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.afterStop
}

// After Run returns the worker no longer touches the journal.
func TestRunReleasesSourceOnReturn(t *testing.T) {
	cursor := &closeTrackingCursor{MemoryCursor: journal.NewMemoryCursor()}
	src, err := journal.NewSource(cursor, &logger.SilentLogger{},
		journal.WithPollTimeout(time.Second), journal.WithWaitSlice(100*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	a := NewAgent(src, &fakePolicyClient{responses: []policyResponse{ok("4")}}, &recordingSink{}, &logger.SilentLogger{},
		WithRefreshInterval(time.Hour))

	stop := runAgent(t, a)
	time.Sleep(30 * time.Millisecond)
	if err := stop(); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}

	cursor.Close()
	time.Sleep(250 * time.Millisecond)
	if n := cursor.AfterClose(); n != 0 {
		t.Errorf("worker read the journal %d times after Run returned and Close ran", n)
	}
}

func TestRunReplaceModeAndHeartbeat(t *testing.T) {
	cursor := journal.NewMemoryCursor()
	src := newSource(t, cursor)
	client := &fakePolicyClient{responses: []policyResponse{ok("3", "4"), ok("err")}}
	hb := &recordingHeartbeat{}
	a := NewAgent(src, client, &recordingSink{}, &logger.SilentLogger{},
		WithRefreshInterval(10*time.Millisecond), WithFilterMode(reconcile.Replace), WithHeartbeat(hb))

	stop := runAgent(t, a)
	eventually(t, "heartbeat for replaced policy", func() bool {
		last, sent := hb.Last()
		return sent && reflect.DeepEqual(last.Priorities, []string{"err"})
	})
	_ = stop()

	if got := src.Matches(); !reflect.DeepEqual(got, []string{"PRIORITY=3"}) {
		t.Errorf("Matches() = %v, want [PRIORITY=3]", got)
	}
	if last, _ := hb.Last(); last.Filters != 1 {
		t.Errorf("heartbeat Filters = %d, want 1", last.Filters)
	}
}
