package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config captures runtime configuration sourced from environment variables.
type Config struct {
	Environment      string
	HTTPPort         string
	DatabasePath     string
	RoutingRulesPath string
	AuditLogPath     string
	JWTSecret        string
	TokenTTL         time.Duration
	// EscalationURLs are shoutrrr destinations for ESCALATE_TO_HUMAN
	// decisions and critical alerts. Comma-separated in the environment.
	EscalationURLs string
	// SweepSpec is the cron schedule for the agent health sweep.
	SweepSpec string
	// LivenessMinutes is how long an agent may stay silent before the
	// sweep marks it DEAD.
	LivenessMinutes int
}

// Load reads env vars and falls back to defaults so the server can boot with zero configuration.
func Load() (Config, error) {
	cfg := Config{
		Environment:      getEnv("DISPATCH_ENV", "development"),
		HTTPPort:         getEnv("DISPATCH_HTTP_PORT", "8080"),
		DatabasePath:     getEnv("DISPATCH_DB_PATH", filepath.Join("data", "dispatch.db")),
		RoutingRulesPath: getEnv("DISPATCH_ROUTING_RULES", filepath.Join("data", "routing_rules.json")),
		AuditLogPath:     getEnv("DISPATCH_AUDIT_LOG", filepath.Join("data", "audit-log.jsonl")),
		JWTSecret:        getEnv("DISPATCH_JWT_SECRET", ""),
		TokenTTL:         24 * time.Hour,
		EscalationURLs:   getEnv("DISPATCH_ESCALATION_URLS", ""),
		SweepSpec:        getEnv("DISPATCH_SWEEP_SPEC", "*/15 * * * *"),
		LivenessMinutes:  getEnvInt("DISPATCH_LIVENESS_MINUTES", 30),
	}

	if ttl := os.Getenv("DISPATCH_TOKEN_TTL_HOURS"); ttl != "" {
		hours, err := strconv.Atoi(ttl)
		if err != nil || hours <= 0 {
			return Config{}, fmt.Errorf("invalid DISPATCH_TOKEN_TTL_HOURS: %q", ttl)
		}
		cfg.TokenTTL = time.Duration(hours) * time.Hour
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
		return Config{}, fmt.Errorf("ensure data directory: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}

	return fallback
}
