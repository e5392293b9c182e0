// Package config loads and validates the bastiondns configuration.
//
// Configuration is a single YAML document, optionally overridden by
// environment variables. Load applies the built-in defaults first,
// then the file, then the environment, then validates the result, so a
// minimal file (or no file at all) yields a runnable server.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default listener settings. Port 1053 keeps the server runnable
// without privileges; production deployments set 53 explicitly.
const (
	DefaultHost = "0.0.0.0"
	DefaultPort = 1053
)

// ResolveConfigPath picks the configuration file path: an explicit
// flag wins, then the BASTIONDNS_CONFIG environment variable. Empty
// means run on defaults.
func ResolveConfigPath(flagValue string) string {
	if v := strings.TrimSpace(flagValue); v != "" {
		return v
	}
	return strings.TrimSpace(os.Getenv("BASTIONDNS_CONFIG"))
}

// Load reads the YAML configuration file at path, applies environment
// overrides, and validates the result. An empty path skips the file
// and loads defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// defaultConfig returns the built-in defaults. The YAML file and the
// environment override individual fields.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:       DefaultHost,
			Port:       DefaultPort,
			WorkersRaw: "auto",
			EnableTCP:  true,
		},
		Upstream: UpstreamConfig{
			UDPTimeout: "3s",
			TCPTimeout: "5s",
			MaxRetries: 3,
		},
		Logging: LoggingConfig{
			Level:            "INFO",
			StructuredFormat: "json",
		},
		RateLimit: RateLimitConfig{
			CleanupSeconds:   60,
			MaxIPEntries:     65536,
			MaxPrefixEntries: 16384,
		},
		API: APIConfig{Host: "0.0.0.0"},
	}
}

// applyEnvOverrides lets the environment override file settings, which
// keeps container deployments to one image plus variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BASTIONDNS_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("BASTIONDNS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("BASTIONDNS_WORKERS"); v != "" {
		cfg.Server.WorkersRaw = v
	}
	if v := os.Getenv("BASTIONDNS_ENABLE_TCP"); v != "" {
		cfg.Server.EnableTCP = envBool(v, cfg.Server.EnableTCP)
	}
	if v := os.Getenv("BASTIONDNS_UPSTREAM_SERVERS"); v != "" {
		cfg.Upstream.Servers = splitServers(v)
	}
	if v := os.Getenv("BASTIONDNS_ZONES_DIR"); v != "" {
		cfg.Zones.Directory = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// splitServers parses a comma-separated upstream list.
func splitServers(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// envBool parses a boolean-ish environment value, returning def when
// the value is unrecognized.
func envBool(raw string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

// Validate validates and normalizes the configuration.
func (cfg *Config) Validate() error {
	// Validate port
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return errors.New("server.port must be 1..65535")
	}

	// Limit to 3 upstream servers (strict-order failover). No servers
	// means no forwarding: this is an authoritative server first.
	if len(cfg.Upstream.Servers) > 3 {
		cfg.Upstream.Servers = cfg.Upstream.Servers[:3]
	}

	// Normalize logging
	cfg.Logging.Level = strings.ToUpper(strings.TrimSpace(cfg.Logging.Level))
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "INFO"
	}
	if cfg.Logging.StructuredFormat == "" {
		cfg.Logging.StructuredFormat = "json"
	}
	if cfg.Logging.ExtraFields == nil {
		cfg.Logging.ExtraFields = map[string]string{}
	}

	// Rate limiter capacity defaults. The QPS knobs stay as given:
	// zero disables that level.
	if cfg.RateLimit.CleanupSeconds <= 0 {
		cfg.RateLimit.CleanupSeconds = 60
	}
	if cfg.RateLimit.MaxIPEntries <= 0 {
		cfg.RateLimit.MaxIPEntries = 65536
	}
	if cfg.RateLimit.MaxPrefixEntries <= 0 {
		cfg.RateLimit.MaxPrefixEntries = 16384
	}

	// Normalize management API
	if cfg.API.Host == "" {
		cfg.API.Host = "0.0.0.0"
	}
	if cfg.API.Enabled {
		if cfg.API.Port <= 0 || cfg.API.Port > 65535 {
			return errors.New("api.port must be 1..65535")
		}
	}

	// Parse workers; a setting that is neither "auto" nor a positive
	// integer is a configuration mistake, not something to guess at.
	ws, err := parseWorkers(cfg.Server.WorkersRaw)
	if err != nil {
		return err
	}
	cfg.Server.Workers = ws

	return nil
}

// parseWorkers converts the workers string to a WorkerSetting.
func parseWorkers(raw string) (WorkerSetting, error) {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" || raw == "auto" {
		return WorkerSetting{Mode: WorkersAuto}, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return WorkerSetting{}, fmt.Errorf("server.workers must be \"auto\" or a positive integer, got %q", raw)
	}
	return WorkerSetting{Mode: WorkersFixed, Value: n}, nil
}
