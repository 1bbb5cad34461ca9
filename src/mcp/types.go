// Package mcp exposes forwarded journal records and device policies to MCP clients.
package mcp

// RecordView is a forwarded record trimmed for LLM consumption.
type RecordView struct {
	ID       string `json:"id"`
	Time     string `json:"time"`
	Priority string `json:"priority"`
	Source   string `json:"source"`
	PID      string `json:"pid,omitempty"`
	Message  string `json:"message"`
}

// LogsResponse is the get_logs tool response.
type LogsResponse struct {
	Device string `json:"device"`
	// Records fetched from the control plane before filtering.
	Scanned int          `json:"scanned"`
	Records []RecordView `json:"records"`
}

// MessageGroup collects records whose messages share a pattern.
type MessageGroup struct {
	Pattern string `json:"pattern"`
	// Most severe priority seen in the group.
	Priority  string   `json:"priority"`
	Count     int      `json:"count"`
	Sources   []string `json:"sources"`
	FirstSeen string   `json:"first_seen"`
	LastSeen  string   `json:"last_seen"`
	Example   string   `json:"example"`
}

// SummaryResponse is the summarize_logs tool response.
type SummaryResponse struct {
	Device     string         `json:"device"`
	Scanned    int            `json:"scanned"`
	ByPriority map[string]int `json:"by_priority"`
	Groups     []MessageGroup `json:"groups"`
}
