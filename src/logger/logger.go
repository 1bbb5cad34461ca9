package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Logger defines the interface for logging throughout the application.
// Different implementations can be used for different contexts (console, silent, recording).
type Logger interface {
	Trace(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// Level orders log severities. Lower values are more verbose.
type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "TRACE"
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

// ParseLevel converts a config string (trace, debug, info, warn, error) to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// ConsoleLogger writes human-readable logs to stdout/stderr.
// Errors and warnings go to stderr, everything else to stdout.
type ConsoleLogger struct {
	mu     sync.Mutex
	min    Level
	out    io.Writer
	errOut io.Writer
}

// NewConsoleLogger creates a logger that drops anything below min.
func NewConsoleLogger(min Level) *ConsoleLogger {
	return &ConsoleLogger{
		min:    min,
		out:    os.Stdout,
		errOut: os.Stderr,
	}
}

func (c *ConsoleLogger) log(level Level, msg string, args ...interface{}) {
	if level < c.min {
		return
	}
	w := c.out
	if level >= LevelWarn {
		w = c.errOut
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(w, "["+level.String()+"] "+msg+"\n", args...)
}

func (c *ConsoleLogger) Trace(msg string, args ...interface{}) { c.log(LevelTrace, msg, args...) }
func (c *ConsoleLogger) Debug(msg string, args ...interface{}) { c.log(LevelDebug, msg, args...) }
func (c *ConsoleLogger) Info(msg string, args ...interface{})  { c.log(LevelInfo, msg, args...) }
func (c *ConsoleLogger) Warn(msg string, args ...interface{})  { c.log(LevelWarn, msg, args...) }
func (c *ConsoleLogger) Error(msg string, args ...interface{}) { c.log(LevelError, msg, args...) }

// SilentLogger discards all log messages.
// Used by the TUI and MCP commands, where stdout belongs to the UI or protocol.
type SilentLogger struct{}

func NewSilentLogger() *SilentLogger {
	return &SilentLogger{}
}

func (s *SilentLogger) Trace(msg string, args ...interface{}) {}
func (s *SilentLogger) Debug(msg string, args ...interface{}) {}
func (s *SilentLogger) Info(msg string, args ...interface{})  {}
func (s *SilentLogger) Warn(msg string, args ...interface{})  {}
func (s *SilentLogger) Error(msg string, args ...interface{}) {}
