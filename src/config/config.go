// Package config provides configuration management for the logrero binaries.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"logrero/src/apperr"
	"logrero/src/contracts"
)

// DefaultPath is the agent configuration file used when neither a flag nor
// LOGRERO_CONFIG names one.
const DefaultPath = "config.toml"

// Environment variables read by Load.
const (
	EnvConfig   = "LOGRERO_CONFIG"
	EnvToken    = "LOGRERO_TOKEN"
	EnvAgentID  = "LOGRERO_AGENT_ID"
	EnvLogLevel = "LOGRERO_LOG_LEVEL"
)

// Filter modes.
const (
	FilterAccumulate = "accumulate"
	FilterReplace    = "replace"
)

// Sink kinds.
const (
	SinkHTTP     = "http"
	SinkRedpanda = "redpanda"
)

// Config holds the agent configuration.
type Config struct {
	Server ServerSection `toml:"server"`
	Agent  AgentSection  `toml:"agent"`
	Sink   SinkSection   `toml:"sink"`
	Log    LogSection    `toml:"log"`
}

// ServerSection locates the control plane.
type ServerSection struct {
	Address string `toml:"address"`
	Port    int    `toml:"port"`
	Token   string `toml:"token"`
}

// AgentSection tunes the control loop.
type AgentSection struct {
	ID              string   `toml:"id"`
	RefreshInterval Duration `toml:"refresh_interval"`
	PollTimeout     Duration `toml:"poll_timeout"`
	FilterMode      string   `toml:"filter_mode"`
	Heartbeat       bool     `toml:"heartbeat"`
	Compress        bool     `toml:"compress"`
	HTTPTimeout     Duration `toml:"http_timeout"`
}

// SinkSection selects where forwarded records go.
type SinkSection struct {
	Kind    string   `toml:"kind"`
	Brokers []string `toml:"brokers"`
	Topic   string   `toml:"topic"`
}

// LogSection sets the minimum log level.
type LogSection struct {
	Level string `toml:"level"`
}

// Duration is a time.Duration written as a Go duration string ("15s").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns a configuration with every optional field filled in.
func Default() *Config {
	return &Config{
		Agent: AgentSection{
			ID:              "device",
			RefreshInterval: Duration{15 * time.Second},
			PollTimeout:     Duration{10 * time.Second},
			FilterMode:      FilterAccumulate,
			HTTPTimeout:     Duration{30 * time.Second},
		},
		Sink: SinkSection{
			Kind:    SinkHTTP,
			Brokers: []string{"localhost:19092"},
			Topic:   contracts.TopicLogs,
		},
		Log: LogSection{Level: "info"},
	}
}

// Load reads the agent configuration from path. An empty path falls back to
// LOGRERO_CONFIG and then DefaultPath. A .env file in the working directory is
// loaded first when present; existing environment variables win over it.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &apperr.ConfigurationError{
				Reason: fmt.Sprintf("read %s", path),
				Err:    fmt.Errorf("%w: %v", apperr.ErrMissingConfig, err),
			}
		}
		return nil, &apperr.ConfigurationError{Reason: fmt.Sprintf("read %s", path), Err: err}
	}

	return Parse(data)
}

// Parse decodes TOML data, applies environment overrides and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, &apperr.ConfigurationError{Reason: "decode TOML", Err: err}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if token := os.Getenv(EnvToken); token != "" {
		c.Server.Token = token
	}
	if id := os.Getenv(EnvAgentID); id != "" {
		c.Agent.ID = id
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.Log.Level = level
	}
}

// Validate checks that the configuration can address a control plane.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Address) == "" {
		return apperr.Configf("server.address must be set")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return apperr.Configf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Token == "" {
		return apperr.Configf("server.token must be set (or %s)", EnvToken)
	}
	if c.Agent.ID == "" {
		return apperr.Configf("agent.id must not be empty")
	}
	if c.Agent.RefreshInterval.Duration <= 0 {
		return apperr.Configf("agent.refresh_interval must be positive")
	}
	if c.Agent.PollTimeout.Duration <= 0 {
		return apperr.Configf("agent.poll_timeout must be positive")
	}
	switch c.Agent.FilterMode {
	case FilterAccumulate, FilterReplace:
	default:
		return apperr.Configf("agent.filter_mode must be %q or %q, got %q", FilterAccumulate, FilterReplace, c.Agent.FilterMode)
	}
	switch c.Sink.Kind {
	case SinkHTTP:
	case SinkRedpanda:
		if len(c.Sink.Brokers) == 0 {
			return apperr.Configf("sink.brokers must list at least one broker for kind %q", SinkRedpanda)
		}
		if c.Sink.Topic == "" {
			return apperr.Configf("sink.topic must be set for kind %q", SinkRedpanda)
		}
	default:
		return apperr.Configf("sink.kind must be %q or %q, got %q", SinkHTTP, SinkRedpanda, c.Sink.Kind)
	}
	return nil
}

// Endpoint returns the control-plane base URL, http://{address}:{port}.
func (c *Config) Endpoint() *url.URL {
	return &url.URL{
		Scheme: "http",
		Host:   net.JoinHostPort(c.Server.Address, strconv.Itoa(c.Server.Port)),
	}
}

// Identity returns the agent identity used for every control-plane call.
func (c *Config) Identity() contracts.AgentIdentity {
	return contracts.AgentIdentity{
		ID:         c.Agent.ID,
		Endpoint:   c.Endpoint(),
		Credential: c.Server.Token,
	}
}
