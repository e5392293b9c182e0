package config

import "strconv"

// WorkersMode specifies how worker count is determined.
type WorkersMode int

const (
	// WorkersAuto automatically determines worker count based on available CPUs.
	WorkersAuto WorkersMode = iota
	// WorkersFixed uses a specific worker count.
	WorkersFixed
)

// WorkerSetting represents the workers configuration.
type WorkerSetting struct {
	Mode  WorkersMode
	Value int
}

// String returns the string representation of the worker setting.
func (w WorkerSetting) String() string {
	if w.Mode == WorkersAuto {
		return "auto"
	}
	return strconv.Itoa(w.Value)
}

// ServerConfig contains DNS listener settings.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	Workers        WorkerSetting `yaml:"-"`
	WorkersRaw     string        `yaml:"workers"`
	MaxConcurrency int           `yaml:"max_concurrency"`
	EnableTCP      bool          `yaml:"enable_tcp"`
}

// ZonesConfig describes where authoritative zone data comes from.
//
// Directory is scanned for master files; Files and Descriptors name
// individual master files and YAML zone descriptors. All three may be
// combined. With Watch set, changes under Directory reload the zones
// without a restart.
type ZonesConfig struct {
	Directory   string   `yaml:"directory"`
	Files       []string `yaml:"files,omitempty"`
	Descriptors []string `yaml:"descriptors,omitempty"`
	Watch       bool     `yaml:"watch"`
}

// UpstreamConfig contains forwarding settings. An empty server list
// disables forwarding entirely: queries outside our zones are refused
// instead of relayed.
type UpstreamConfig struct {
	Servers    []string `yaml:"servers,omitempty"`
	UDPTimeout string   `yaml:"udp_timeout"` // Timeout for UDP queries (e.g., "3s")
	TCPTimeout string   `yaml:"tcp_timeout"` // Timeout for TCP queries (e.g., "5s")
	MaxRetries int      `yaml:"max_retries"` // Max retries per upstream on timeout
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level            string            `yaml:"level"`
	Structured       bool              `yaml:"structured"`
	StructuredFormat string            `yaml:"structured_format"`
	IncludePID       bool              `yaml:"include_pid"`
	ExtraFields      map[string]string `yaml:"extra_fields,omitempty"`
}

// RateLimitConfig controls rate limiting settings.
type RateLimitConfig struct {
	// CleanupSeconds is how often stale entries are cleaned up (default: 60)
	CleanupSeconds float64 `yaml:"cleanup_seconds"`
	// MaxIPEntries is the maximum number of tracked IPs (default: 65536)
	MaxIPEntries int `yaml:"max_ip_entries"`
	// MaxPrefixEntries is the maximum number of tracked prefixes (default: 16384)
	MaxPrefixEntries int `yaml:"max_prefix_entries"`
	// GlobalQPS is the server-wide queries per second limit (0 = disabled)
	GlobalQPS float64 `yaml:"global_qps"`
	// GlobalBurst is the global burst size
	GlobalBurst int `yaml:"global_burst"`
	// PrefixQPS is the per-prefix QPS limit (0 = disabled)
	PrefixQPS float64 `yaml:"prefix_qps"`
	// PrefixBurst is the per-prefix burst size
	PrefixBurst int `yaml:"prefix_burst"`
	// IPQPS is the per-IP QPS limit (0 = disabled)
	IPQPS float64 `yaml:"ip_qps"`
	// IPBurst is the per-IP burst size
	IPBurst int `yaml:"ip_burst"`
}

// CatalogConfig points at the zone catalog database. An empty path
// disables the catalog.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// APIConfig contains management API settings.
//
// Note: APIKey is intentionally treated as a secret and should not be returned by API endpoints.
type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	APIKey  string `yaml:"api_key,omitempty"`
}

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Zones     ZonesConfig     `yaml:"zones"`
	Upstream  UpstreamConfig  `yaml:"upstream"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	API       APIConfig       `yaml:"api"`
}
