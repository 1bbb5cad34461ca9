package mcp

import (
	"regexp"
	"strings"
)

// timestampPattern matches leading timestamps in various formats:
// - 2024-05-21T10:00:05.123Z
// - 2024-05-21 10:00:05,123
// - 2024-05-21T10:00:05+00:00
var timestampPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}[.,]?\d*[Z]?([+-]\d{2}:?\d{2})?\s*`)

// stripTimestamps removes a leading timestamp that a unit printed itself.
func stripTimestamps(line string) string {
	return timestampPattern.ReplaceAllString(line, "")
}

// hashPattern matches hex strings of 12+ characters (container IDs, boot IDs, etc.)
var hashPattern = regexp.MustCompile(`\b[a-f0-9]{12,}\b`)

// maskHashes replaces long hex strings with <HASH>.
func maskHashes(line string) string {
	return hashPattern.ReplaceAllString(line, "<HASH>")
}

// numberPattern matches standalone decimal numbers: pids, ports, byte counts.
var numberPattern = regexp.MustCompile(`\b\d+\b`)

// maskNumbers replaces standalone numbers with <N>.
func maskNumbers(line string) string {
	return numberPattern.ReplaceAllString(line, "<N>")
}

// longPathPattern matches absolute paths with 3+ directories.
// Captures the filename (and optional line number) at the end.
var longPathPattern = regexp.MustCompile(`/(?:[^/\s]+/){3,}([^/\s:]+(?::\d+)?)`)

// compressPath shortens long file paths to .../filename.
func compressPath(line string) string {
	return longPathPattern.ReplaceAllString(line, ".../$1")
}

// whitespacePattern matches multiple consecutive whitespace characters.
var whitespacePattern = regexp.MustCompile(`\s+`)

// normalizeWhitespace collapses multiple spaces/tabs and trims.
func normalizeWhitespace(line string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(line, " "))
}

// compactMessage shortens a message for display without changing what it says.
func compactMessage(msg string) string {
	return normalizeWhitespace(compressPath(stripTimestamps(msg)))
}

// messagePattern reduces a message to the pattern its repeats share, so
// "worker 12 exited" and "worker 31 exited" group together.
func messagePattern(msg string) string {
	return maskNumbers(maskHashes(compactMessage(msg)))
}
