package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"logrero/src/apperr"
)

const sampleConfig = `
[server]
address = "127.0.0.1"
port = 8080
token = "secret"

[log]
level = "trace"
`

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvConfig, EnvToken, EnvAgentID, EnvLogLevel} {
		t.Setenv(key, "")
	}
}

func TestParse(t *testing.T) {
	clearEnv(t)

	cfg, err := Parse([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("Parse() unexpected error: %v", err)
	}

	if cfg.Server.Token != "secret" {
		t.Errorf("Parse() token = %v, want secret", cfg.Server.Token)
	}
	if cfg.Log.Level != "trace" {
		t.Errorf("Parse() log level = %v, want trace", cfg.Log.Level)
	}
	if cfg.Agent.ID != "device" {
		t.Errorf("Parse() agent id = %v, want device", cfg.Agent.ID)
	}
	if cfg.Agent.RefreshInterval.Duration != 15*time.Second {
		t.Errorf("Parse() refresh interval = %v, want 15s", cfg.Agent.RefreshInterval)
	}
	if cfg.Agent.PollTimeout.Duration != 10*time.Second {
		t.Errorf("Parse() poll timeout = %v, want 10s", cfg.Agent.PollTimeout)
	}
	if cfg.Agent.FilterMode != FilterAccumulate {
		t.Errorf("Parse() filter mode = %v, want %v", cfg.Agent.FilterMode, FilterAccumulate)
	}
	if got := cfg.Endpoint().String(); got != "http://127.0.0.1:8080" {
		t.Errorf("Endpoint() = %v, want http://127.0.0.1:8080", got)
	}
}

func TestParseAgentSection(t *testing.T) {
	clearEnv(t)

	data := sampleConfig + `
[agent]
id = "web-01"
refresh_interval = "1m"
poll_timeout = "500ms"
filter_mode = "replace"
heartbeat = true
compress = true

[sink]
kind = "redpanda"
brokers = ["kafka-1:9092", "kafka-2:9092"]
topic = "journal"
`
	cfg, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse() unexpected error: %v", err)
	}

	if cfg.Agent.ID != "web-01" || cfg.Agent.RefreshInterval.Duration != time.Minute || cfg.Agent.PollTimeout.Duration != 500*time.Millisecond {
		t.Errorf("Parse() agent = %+v", cfg.Agent)
	}
	if cfg.Agent.FilterMode != FilterReplace || !cfg.Agent.Heartbeat || !cfg.Agent.Compress {
		t.Errorf("Parse() agent flags = %+v", cfg.Agent)
	}
	if !reflect.DeepEqual(cfg.Sink.Brokers, []string{"kafka-1:9092", "kafka-2:9092"}) || cfg.Sink.Topic != "journal" {
		t.Errorf("Parse() sink = %+v", cfg.Sink)
	}
}

func TestParseInvalid(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name string
		data string
	}{
		{name: "not toml", data: "[server\naddress ="},
		{name: "missing address", data: "[server]\nport = 8080\ntoken = \"x\""},
		{name: "zero port", data: "[server]\naddress = \"h\"\ntoken = \"x\""},
		{name: "port out of range", data: "[server]\naddress = \"h\"\nport = 70000\ntoken = \"x\""},
		{name: "missing token", data: "[server]\naddress = \"h\"\nport = 1"},
		{name: "bad duration", data: sampleConfig + "\n[agent]\nrefresh_interval = \"soon\""},
		{name: "bad filter mode", data: sampleConfig + "\n[agent]\nfilter_mode = \"merge\""},
		{name: "bad sink", data: sampleConfig + "\n[sink]\nkind = \"s3\""},
		{name: "redpanda without topic", data: sampleConfig + "\n[sink]\nkind = \"redpanda\"\ntopic = \"\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			var cfgErr *apperr.ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Errorf("Parse() error = %v, want ConfigurationError", err)
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvToken, "from-env")
	t.Setenv(EnvAgentID, "edge-7")
	t.Setenv(EnvLogLevel, "error")

	cfg, err := Parse([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("Parse() unexpected error: %v", err)
	}
	if cfg.Server.Token != "from-env" || cfg.Agent.ID != "edge-7" || cfg.Log.Level != "error" {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
}

func TestLoad(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	t.Run("explicit path", func(t *testing.T) {
		path := filepath.Join(dir, "agent.toml")
		if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
			t.Fatal(err)
		}
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() unexpected error: %v", err)
		}
		if cfg.Server.Address != "127.0.0.1" {
			t.Errorf("Load() address = %v", cfg.Server.Address)
		}
	})

	t.Run("path from environment", func(t *testing.T) {
		path := filepath.Join(dir, "env.toml")
		if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
			t.Fatal(err)
		}
		t.Setenv(EnvConfig, path)
		if _, err := Load(""); err != nil {
			t.Fatalf("Load() unexpected error: %v", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "absent.toml"))
		if !errors.Is(err, apperr.ErrMissingConfig) {
			t.Errorf("Load() error = %v, want ErrMissingConfig", err)
		}
	})
}

func TestLoadServerFromEnv(t *testing.T) {
	for _, key := range []string{EnvToken, EnvListenAddr, EnvDatabaseURL, EnvPoliciesFile, EnvDefaultPriorities, EnvBrokers, EnvTopic} {
		t.Setenv(key, "")
	}

	t.Run("missing token", func(t *testing.T) {
		if _, err := LoadServerFromEnv(); err == nil {
			t.Error("LoadServerFromEnv() expected error for missing token, got nil")
		}
	})

	t.Run("defaults", func(t *testing.T) {
		t.Setenv(EnvToken, "secret")
		cfg, err := LoadServerFromEnv()
		if err != nil {
			t.Fatalf("LoadServerFromEnv() unexpected error: %v", err)
		}
		if cfg.ListenAddr != ":8080" {
			t.Errorf("ListenAddr = %v, want :8080", cfg.ListenAddr)
		}
		if !reflect.DeepEqual(cfg.DefaultPriorities, []string{"4"}) {
			t.Errorf("DefaultPriorities = %v, want [4]", cfg.DefaultPriorities)
		}
		if cfg.Brokers != nil || cfg.Topic != "logrero.logs" {
			t.Errorf("Brokers = %v, Topic = %v", cfg.Brokers, cfg.Topic)
		}
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv(EnvToken, "secret")
		t.Setenv(EnvListenAddr, "127.0.0.1:9000")
		t.Setenv(EnvDefaultPriorities, "3, 4,,6")
		t.Setenv(EnvBrokers, "r1:9092,r2:9092")
		cfg, err := LoadServerFromEnv()
		if err != nil {
			t.Fatalf("LoadServerFromEnv() unexpected error: %v", err)
		}
		if cfg.ListenAddr != "127.0.0.1:9000" {
			t.Errorf("ListenAddr = %v", cfg.ListenAddr)
		}
		if !reflect.DeepEqual(cfg.DefaultPriorities, []string{"3", "4", "6"}) {
			t.Errorf("DefaultPriorities = %v", cfg.DefaultPriorities)
		}
		if !reflect.DeepEqual(cfg.Brokers, []string{"r1:9092", "r2:9092"}) {
			t.Errorf("Brokers = %v", cfg.Brokers)
		}
	})
}
