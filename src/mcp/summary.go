package mcp

import (
	"sort"
	"strconv"
	"time"

	"logrero/src/contracts"
	"logrero/src/journal"
	"logrero/src/sanitize"
)

// Default record limits per tool.
const (
	DefaultLogsLimit    = 50
	DefaultSummaryLimit = 500
	MaxLimit            = 1000
	// DefaultGroupLimit caps the groups returned by summarize_logs.
	DefaultGroupLimit = 20
)

// priorityRank orders numeric priorities by severity; anything else sorts last.
func priorityRank(p string) int {
	if n, err := strconv.Atoi(p); err == nil && n >= 0 && n <= 7 {
		return n
	}
	return 8
}

func recordTime(stored contracts.StoredRecord) string {
	if t, ok := stored.Record.RealtimeTime(); ok {
		return t.UTC().Format(time.RFC3339)
	}
	return stored.ReceivedAt
}

func recordSource(r contracts.LogRecord) string {
	for _, s := range []string{r.SystemdUnit, r.SyslogIdentifier, r.Comm} {
		if s != "" {
			return s
		}
	}
	return "unknown"
}

// toRecordView trims a stored record for output.
func toRecordView(stored contracts.StoredRecord) RecordView {
	r := stored.Record
	return RecordView{
		ID:       stored.ID,
		Time:     recordTime(stored),
		Priority: journal.NormalizePriority(r.Priority),
		Source:   recordSource(r),
		PID:      r.PID,
		Message:  compactMessage(sanitize.Clean(r.Message)),
	}
}

// atMostPriority reports whether p is at least as severe as max.
func atMostPriority(p, max string) bool {
	return priorityRank(p) <= priorityRank(max)
}

// Summarize groups records by message pattern. Groups are ordered by severity,
// then by count, and cut to groupLimit.
func Summarize(device string, records []contracts.StoredRecord, groupLimit int) SummaryResponse {
	if groupLimit <= 0 {
		groupLimit = DefaultGroupLimit
	}

	resp := SummaryResponse{
		Device:     device,
		Scanned:    len(records),
		ByPriority: make(map[string]int),
		Groups:     []MessageGroup{},
	}

	groups := make(map[string]*MessageGroup)
	var order []string
	sources := make(map[string]map[string]bool)

	for _, stored := range records {
		view := toRecordView(stored)
		resp.ByPriority[view.Priority]++

		pattern := messagePattern(view.Message)
		g, ok := groups[pattern]
		if !ok {
			g = &MessageGroup{
				Pattern:   pattern,
				Priority:  view.Priority,
				FirstSeen: view.Time,
				LastSeen:  view.Time,
				Example:   view.Message,
			}
			groups[pattern] = g
			sources[pattern] = make(map[string]bool)
			order = append(order, pattern)
		}

		g.Count++
		if priorityRank(view.Priority) < priorityRank(g.Priority) {
			g.Priority = view.Priority
		}
		if view.Time < g.FirstSeen {
			g.FirstSeen = view.Time
		}
		if view.Time > g.LastSeen {
			g.LastSeen = view.Time
		}
		if !sources[pattern][view.Source] {
			sources[pattern][view.Source] = true
			g.Sources = append(g.Sources, view.Source)
		}
	}

	for _, pattern := range order {
		g := groups[pattern]
		sort.Strings(g.Sources)
		resp.Groups = append(resp.Groups, *g)
	}
	sort.SliceStable(resp.Groups, func(i, j int) bool {
		a, b := resp.Groups[i], resp.Groups[j]
		if ra, rb := priorityRank(a.Priority), priorityRank(b.Priority); ra != rb {
			return ra < rb
		}
		return a.Count > b.Count
	})
	if len(resp.Groups) > groupLimit {
		resp.Groups = resp.Groups[:groupLimit]
	}
	return resp
}
