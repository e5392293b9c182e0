// Package handlers implements the REST API endpoint handlers for BastionDNS.
//
// REST API Endpoints:
//
// System Health:
//   - GET /api/v1/health - Health check status
//   - GET /api/v1/stats - Server statistics (uptime, memory, CPU, DNS metrics)
//
// Zones (Authoritative DNS):
//   - GET /api/v1/zones - List zones recorded in the catalog
//   - GET /api/v1/zones/:origin - Full zone dump in transfer order
//
// Debugging:
//   - GET /api/v1/resolve - Run a query through the live resolver chain
//
// Authentication:
//
// All /api/v1 endpoints support optional API key authentication via the
// X-API-Key header. With no key configured the API is open; bind it to
// localhost in that case.
//
// @title BastionDNS Management API
// @version 1.0
// @description REST API for inspecting a running BastionDNS server: health, statistics, zones, and debug lookups.
//
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
//
// @host localhost:8080
// @BasePath /api/v1
//
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
package handlers

import (
	"log/slog"
	"time"

	"github.com/bastiondns/bastiondns/internal/catalog"
	"github.com/bastiondns/bastiondns/internal/config"
	"github.com/bastiondns/bastiondns/internal/resolvers"
)

// DNSStatsSnapshot contains a point-in-time snapshot of DNS statistics.
type DNSStatsSnapshot struct {
	QueriesTotal     uint64
	QueriesUDP       uint64
	QueriesTCP       uint64
	ResponsesNX      uint64
	ResponsesRefused uint64
	ResponsesErr     uint64
	AvgLatencyMs     float64
}

// DNSStatsFunc is a function that returns DNS statistics.
type DNSStatsFunc func() DNSStatsSnapshot

// Deps carries the runtime components handlers read from. Every field
// is optional: endpoints whose dependency is missing answer 503 rather
// than failing to route.
type Deps struct {
	Catalog  *catalog.Catalog   // Zone bookkeeping (nil when no catalog is configured)
	Resolver resolvers.Resolver // The live resolver chain
	Stats    DNSStatsFunc       // DNS query statistics provider
}

// Handler contains dependencies for API handlers.
type Handler struct {
	cfg       *config.Config
	deps      Deps
	logger    *slog.Logger
	startTime time.Time
}

// New creates a new Handler with the given configuration and runtime
// dependencies.
func New(cfg *config.Config, deps Deps, logger *slog.Logger) *Handler {
	return &Handler{
		cfg:       cfg,
		deps:      deps,
		logger:    logger,
		startTime: time.Now(),
	}
}
