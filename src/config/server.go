package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"logrero/src/contracts"
)

// Environment variables read by LoadServerFromEnv.
const (
	EnvListenAddr        = "LOGRERO_LISTEN"
	EnvDatabaseURL       = "LOGRERO_DATABASE_URL"
	EnvPoliciesFile      = "LOGRERO_POLICIES"
	EnvDefaultPriorities = "LOGRERO_DEFAULT_PRIORITIES"
	EnvBrokers           = "LOGRERO_BROKERS"
	EnvTopic             = "LOGRERO_TOPIC"
)

// ServerConfig holds the control-plane server configuration.
type ServerConfig struct {
	// ListenAddr is the HTTP listen address.
	ListenAddr string
	// Token is the bearer token every request must carry.
	Token string
	// DatabaseURL selects the Postgres store; empty keeps records in memory.
	DatabaseURL string
	// PoliciesFile optionally seeds per-device policies from YAML.
	PoliciesFile string
	// DefaultPriorities is served to devices without a policy of their own.
	DefaultPriorities []string
	// Brokers enables ingest of records published by agents with a redpanda sink.
	Brokers []string
	// Topic is the topic consumed when Brokers is set.
	Topic string
}

// LoadServerFromEnv loads the server configuration from environment variables.
func LoadServerFromEnv() (*ServerConfig, error) {
	_ = godotenv.Load()

	token := os.Getenv(EnvToken)
	if token == "" {
		return nil, fmt.Errorf("%s environment variable is required", EnvToken)
	}

	cfg := &ServerConfig{
		ListenAddr:        ":8080",
		Token:             token,
		DatabaseURL:       os.Getenv(EnvDatabaseURL),
		PoliciesFile:      os.Getenv(EnvPoliciesFile),
		DefaultPriorities: []string{"4"},
		Topic:             contracts.TopicLogs,
	}
	if addr := os.Getenv(EnvListenAddr); addr != "" {
		cfg.ListenAddr = addr
	}
	if raw := os.Getenv(EnvDefaultPriorities); raw != "" {
		cfg.DefaultPriorities = splitList(raw)
	}
	if raw := os.Getenv(EnvBrokers); raw != "" {
		cfg.Brokers = splitList(raw)
	}
	if topic := os.Getenv(EnvTopic); topic != "" {
		cfg.Topic = topic
	}
	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
