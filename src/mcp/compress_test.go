package mcp

import "testing"

func TestStripTimestamps(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "ISO timestamp with T separator",
			input:    "2024-05-21T10:00:05.123Z [ERROR] Connection failed",
			expected: "[ERROR] Connection failed",
		},
		{
			name:     "ISO timestamp with space separator",
			input:    "2024-05-21 10:00:05,123 [ERROR] Connection failed",
			expected: "[ERROR] Connection failed",
		},
		{
			name:     "timestamp with timezone offset",
			input:    "2024-05-21T10:00:05+00:00 [ERROR] Connection failed",
			expected: "[ERROR] Connection failed",
		},
		{
			name:     "no timestamp",
			input:    "[ERROR] Connection failed",
			expected: "[ERROR] Connection failed",
		},
		{
			name:     "timestamp mid-line preserved",
			input:    "Error at 2024-05-21T10:00:05Z in module",
			expected: "Error at 2024-05-21T10:00:05Z in module",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := stripTimestamps(tt.input)
			if result != tt.expected {
				t.Errorf("stripTimestamps(%q) = %q, expected %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestMaskHashes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "container ID",
			input:    "Container abc123def456789 failed to start",
			expected: "Container <HASH> failed to start",
		},
		{
			name:     "boot ID",
			input:    "Journal of boot 3c1f9a8e2d7b4c6a9e0f1d2c3b4a5968 rotated",
			expected: "Journal of boot <HASH> rotated",
		},
		{
			name:     "multiple hashes",
			input:    "Started scope abc123def456789 for machine def456abc789012",
			expected: "Started scope <HASH> for machine <HASH>",
		},
		{
			name:     "short hex preserved",
			input:    "Error code 0x1234 returned",
			expected: "Error code 0x1234 returned",
		},
		{
			name:     "no hashes",
			input:    "Connection failed to server",
			expected: "Connection failed to server",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := maskHashes(tt.input)
			if result != tt.expected {
				t.Errorf("maskHashes(%q) = %q, expected %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestCompressPath(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "long absolute path",
			input:    "/usr/lib/systemd/system/docker.service:12",
			expected: ".../docker.service:12",
		},
		{
			name:     "path with line reference",
			input:    "Failed to load /etc/nginx/sites-enabled/default/site.conf - error",
			expected: "Failed to load .../site.conf - error",
		},
		{
			name:     "short path preserved",
			input:    "src/main.go:10 - warning",
			expected: "src/main.go:10 - warning",
		},
		{
			name:     "no path",
			input:    "Connection refused",
			expected: "Connection refused",
		},
		{
			name:     "multiple paths",
			input:    "/a/b/c/file1.go:1 imports /d/e/f/file2.go:2",
			expected: ".../file1.go:1 imports .../file2.go:2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := compressPath(tt.input)
			if result != tt.expected {
				t.Errorf("compressPath(%q) = %q, expected %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNormalizeWhitespace(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "multiple spaces",
			input:    "Error    in     module",
			expected: "Error in module",
		},
		{
			name:     "tabs to spaces",
			input:    "Error\tin\tmodule",
			expected: "Error in module",
		},
		{
			name:     "leading/trailing spaces",
			input:    "   Error in module   ",
			expected: "Error in module",
		},
		{
			name:     "mixed whitespace",
			input:    "  Error  \t  in \t module  ",
			expected: "Error in module",
		},
		{
			name:     "already normalized",
			input:    "Error in module",
			expected: "Error in module",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := normalizeWhitespace(tt.input)
			if result != tt.expected {
				t.Errorf("normalizeWhitespace(%q) = %q, expected %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestMaskNumbers(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"pid", "worker 1234 exited with status 1", "worker <N> exited with status <N>"},
		{"port", "listen tcp :8080: bind: address already in use", "listen tcp :<N>: bind: address already in use"},
		{"digits inside words preserved", "ipv6 disabled on eth0", "ipv6 disabled on eth0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := maskNumbers(tt.input); result != tt.expected {
				t.Errorf("maskNumbers(%q) = %q, expected %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestMessagePattern(t *testing.T) {
	a := messagePattern("2024-05-21T10:00:05Z container 4f1c2a9e8b7d6c5f exited, pid 812")
	b := messagePattern("container 9a8b7c6d5e4f3a2b exited,   pid 77")
	if a != b {
		t.Errorf("patterns differ: %q vs %q", a, b)
	}
	if a != "container <HASH> exited, pid <N>" {
		t.Errorf("messagePattern() = %q", a)
	}
}
