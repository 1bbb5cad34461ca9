package journal

import (
	"fmt"
	"strings"
)

// PriorityField is the journal field policies filter on.
const PriorityField = "PRIORITY"

var priorityLevels = map[string]string{
	"emerg":   "0",
	"alert":   "1",
	"crit":    "2",
	"err":     "3",
	"error":   "3",
	"warning": "4",
	"warn":    "4",
	"notice":  "5",
	"info":    "6",
	"debug":   "7",
}

// NormalizePriority maps a syslog priority name to its numeric level.
// Names are case-insensitive; numerals and unknown values are returned unchanged.
func NormalizePriority(p string) string {
	if level, ok := priorityLevels[strings.ToLower(strings.TrimSpace(p))]; ok {
		return level
	}
	return p
}

// ParsePriorities normalizes each value and rejects anything that is not a
// level between 0 and 7.
func ParsePriorities(raw []string) ([]string, error) {
	levels := make([]string, 0, len(raw))
	for _, p := range raw {
		level := NormalizePriority(p)
		if len(level) != 1 || level[0] < '0' || level[0] > '7' {
			return nil, fmt.Errorf("unknown priority %q", p)
		}
		levels = append(levels, level)
	}
	return levels, nil
}
