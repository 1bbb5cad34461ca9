// Package agent runs the control loop that tails the journal, keeps the
// filter in line with the control-plane policy and forwards matching records.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"logrero/src/apperr"
	"logrero/src/contracts"
	"logrero/src/journal"
	"logrero/src/logger"
	"logrero/src/reconcile"
)

// DefaultRefreshInterval is how often the policy is fetched again.
const DefaultRefreshInterval = 15 * time.Second

// Source is the journal the agent tails. *journal.Source implements it.
type Source interface {
	reconcile.Target
	Start(ctx context.Context) <-chan journal.Result
	Matches() []string
}

// PolicyClient fetches the policy for this agent.
type PolicyClient interface {
	FetchPolicy(ctx context.Context) (contracts.Policy, error)
}

// LogSink receives serialized LogRecords, one per call.
type LogSink interface {
	Forward(ctx context.Context, payload []byte) error
}

// HeartbeatSender reports liveness after each refresh.
type HeartbeatSender interface {
	Heartbeat(ctx context.Context, hb contracts.Heartbeat) error
}

// Option configures an Agent.
type Option func(*Agent)

// WithRefreshInterval sets the policy refresh period.
func WithRefreshInterval(d time.Duration) Option {
	return func(a *Agent) {
		if d > 0 {
			a.refreshInterval = d
		}
	}
}

// WithFilterMode selects how policy changes are applied to the journal filter.
func WithFilterMode(mode reconcile.Mode) Option {
	return func(a *Agent) {
		a.mode = mode
	}
}

// WithHeartbeat enables a heartbeat after every refresh.
func WithHeartbeat(h HeartbeatSender) Option {
	return func(a *Agent) {
		a.heartbeat = h
	}
}

// Agent owns the active policy and drives the control loop.
type Agent struct {
	source    Source
	policies  PolicyClient
	sink      LogSink
	heartbeat HeartbeatSender
	engine    *reconcile.Engine
	logger    logger.Logger

	refreshInterval time.Duration
	mode            reconcile.Mode

	// Written only by the control loop; the pointer is published for Policy().
	policy atomic.Pointer[contracts.Policy]
}

// NewAgent creates a new agent.
func NewAgent(source Source, policies PolicyClient, sink LogSink, log logger.Logger, opts ...Option) *Agent {
	a := &Agent{
		source:          source,
		policies:        policies,
		sink:            sink,
		logger:          log,
		refreshInterval: DefaultRefreshInterval,
		mode:            reconcile.Accumulate,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.engine = reconcile.NewEngine(source, a.mode, log)
	return a
}

// Policy returns a copy of the active policy, and false before Init succeeded.
func (a *Agent) Policy() (contracts.Policy, bool) {
	p := a.policy.Load()
	if p == nil {
		return contracts.Policy{}, false
	}
	return p.Clone(), true
}

// Init fetches the first policy and installs its filter. Any failure is a
// *apperr.ConfigurationError; the agent must not start tailing without a policy.
func (a *Agent) Init(ctx context.Context) error {
	a.logger.Info("[Agent] Fetching initial settings...")

	fetched, err := a.policies.FetchPolicy(ctx)
	if err != nil {
		return &apperr.ConfigurationError{Reason: "initial settings fetch failed", Err: err}
	}

	outcome, err := a.engine.Reconcile(ctx, nil, fetched)
	if err != nil {
		return &apperr.ConfigurationError{Reason: "initial filter could not be installed", Err: err}
	}
	a.policy.Store(&outcome.Policy)

	a.logger.Info("[Agent] Initial settings: priorities %v", outcome.Policy.Priorities)
	return nil
}

// Run tails the journal until ctx is done or the source fails. It calls Init
// first when no policy is active yet. Run returns ctx.Err() on cancellation and
// the *apperr.SourceError on a source failure. The source worker has exited
// when Run returns, so the source may be closed right after.
func (a *Agent) Run(ctx context.Context) error {
	if a.policy.Load() == nil {
		if err := a.Init(ctx); err != nil {
			return err
		}
	}

	a.logger.Info("[Agent] Starting (refresh every %s, %s filter)...", a.refreshInterval, a.mode)

	workerCtx, cancel := context.WithCancel(ctx)
	results := a.source.Start(workerCtx)
	// The worker owns the journal handle until its channel is closed.
	defer func() {
		cancel()
		for range results {
		}
	}()

	ticker := time.NewTicker(a.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.refresh(ctx)

		case res, ok := <-results:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return &apperr.SourceError{Op: "tail", Err: errors.New("entry channel closed")}
			}
			if res.Err != nil {
				a.logger.Error("[Agent] Journal failure, stopping: %v", res.Err)
				return res.Err
			}
			a.forward(ctx, res.Record)

		case <-ctx.Done():
			a.logger.Info("[Agent] Context cancelled, shutting down")
			return ctx.Err()
		}
	}
}

func (a *Agent) refresh(ctx context.Context) {
	fetched, err := a.policies.FetchPolicy(ctx)
	if err != nil {
		a.logger.Error("[Agent] Failed to refresh settings: %v", err)
		return
	}

	outcome, err := a.engine.Reconcile(ctx, a.policy.Load(), fetched)
	if err != nil {
		a.logger.Error("[Agent] Failed to apply settings, keeping priorities %v: %v", a.activePriorities(), err)
		return
	}
	if outcome.Changed {
		a.policy.Store(&outcome.Policy)
	}

	if a.heartbeat != nil {
		hb := contracts.Heartbeat{
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
			Priorities: a.activePriorities(),
			Filters:    len(a.source.Matches()),
		}
		if err := a.heartbeat.Heartbeat(ctx, hb); err != nil {
			a.logger.Warn("[Agent] Heartbeat failed: %v", err)
		}
	}
}

func (a *Agent) forward(ctx context.Context, record *contracts.LogRecord) {
	payload, err := json.Marshal(record)
	if err != nil {
		a.logger.Error("[Agent] Failed to marshal record %s: %v", record.Cursor, err)
		return
	}

	if err := a.sink.Forward(ctx, payload); err != nil {
		a.logger.Error("[Agent] Failed to send record %s: %v", record.Cursor, err)
		return
	}
	a.logger.Info("[Agent] Sent record %s (priority %s)", record.Cursor, record.Priority)
}

func (a *Agent) activePriorities() []string {
	if p := a.policy.Load(); p != nil {
		return p.Clone().Priorities
	}
	return nil
}
