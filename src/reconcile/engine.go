// Package reconcile turns a fetched Policy into journal match predicates.
package reconcile

import (
	"context"
	"fmt"

	"logrero/src/contracts"
	"logrero/src/journal"
	"logrero/src/logger"
)

// Mode selects how a changed Policy is applied to the filter.
type Mode string

const (
	// Accumulate adds the new predicates to those already installed.
	// The filter never shrinks.
	Accumulate Mode = "accumulate"
	// Replace swaps the installed predicates for exactly the new ones.
	Replace Mode = "replace"
)

// ParseMode maps a configuration value to a Mode. Empty means Accumulate.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", Accumulate:
		return Accumulate, nil
	case Replace:
		return Replace, nil
	default:
		return "", fmt.Errorf("unknown filter mode %q", s)
	}
}

// Target is the filter a Policy is installed on. *journal.Source implements it.
// Both methods apply every value or none of them.
type Target interface {
	AddMatches(ctx context.Context, field string, values []string) error
	ReplaceMatches(ctx context.Context, field string, values []string) error
}

// Outcome reports what Reconcile did.
type Outcome struct {
	// Changed is true when the fetched Policy was installed and should become active.
	Changed bool
	// Policy is the fetched Policy when Changed.
	Policy contracts.Policy
	// Added is the number of predicates applied.
	Added int
}

// Engine compares policies and mutates the Target when they differ.
type Engine struct {
	target Target
	mode   Mode
	log    logger.Logger
}

// NewEngine creates an Engine.
func NewEngine(target Target, mode Mode, log logger.Logger) *Engine {
	if mode == "" {
		mode = Accumulate
	}
	return &Engine{target: target, mode: mode, log: log}
}

// Reconcile installs fetched when active is nil or differs from it.
// On error the caller must keep its active Policy.
func (e *Engine) Reconcile(ctx context.Context, active *contracts.Policy, fetched contracts.Policy) (Outcome, error) {
	if active != nil && active.Equal(fetched) {
		e.log.Trace("[Reconcile] settings unchanged")
		return Outcome{}, nil
	}

	levels := make([]string, len(fetched.Priorities))
	for i, p := range fetched.Priorities {
		levels[i] = journal.NormalizePriority(p)
	}

	switch e.mode {
	case Replace:
		if err := e.target.ReplaceMatches(ctx, journal.PriorityField, levels); err != nil {
			return Outcome{}, fmt.Errorf("replace priority matches: %w", err)
		}
	default:
		if err := e.target.AddMatches(ctx, journal.PriorityField, levels); err != nil {
			return Outcome{}, fmt.Errorf("add priority matches: %w", err)
		}
	}

	e.log.Info("[Reconcile] settings updated: priorities %v (%s)", fetched.Priorities, e.mode)
	return Outcome{Changed: true, Policy: fetched.Clone(), Added: len(levels)}, nil
}
