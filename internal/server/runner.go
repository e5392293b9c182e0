package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bastiondns/bastiondns/internal/api"
	"github.com/bastiondns/bastiondns/internal/api/handlers"
	"github.com/bastiondns/bastiondns/internal/catalog"
	"github.com/bastiondns/bastiondns/internal/config"
	"github.com/bastiondns/bastiondns/internal/dns"
	"github.com/bastiondns/bastiondns/internal/resolvers"
	"github.com/bastiondns/bastiondns/internal/zone"
)

// reloadDebounce collapses the burst of filesystem events editors
// produce per save into one reload.
const reloadDebounce = 500 * time.Millisecond

// Runner orchestrates server startup: configuration, zone loading, the
// resolver chain, the DNS transports, and the management API.
type Runner struct {
	logger *slog.Logger
}

// NewRunner creates a new server runner with the given logger.
func NewRunner(logger *slog.Logger) *Runner {
	return &Runner{logger: logger}
}

// Run starts the DNS server with the given configuration and blocks
// until SIGINT/SIGTERM.
func (r *Runner) Run(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return r.RunWithContext(ctx, cfg)
}

// loadedZone pairs an authority with the source it was built from.
type loadedZone struct {
	authority *resolvers.Authority
	source    string
	format    string // "master" or "descriptor"
}

// RunWithContext starts the DNS server and blocks until ctx is canceled
// or a server error occurs.
//
// Server lifecycle:
//  1. Configure runtime (GOMAXPROCS based on workers setting)
//  2. Open the zone catalog (optional)
//  3. Load zone files and descriptors into authorities
//  4. Build the resolver chain (authorities -> forwarder) behind a
//     reloadable switch
//  5. Watch the zone directory for changes (optional)
//  6. Start the UDP server, the TCP server, and the management API
//  7. Wait for shutdown and stop everything with a timeout
func (r *Runner) RunWithContext(ctx context.Context, cfg *config.Config) error {
	ctx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	desiredProcs := r.configureRuntime(cfg)
	maxConc := r.calculateMaxConcurrency(cfg, desiredProcs)

	var cat *catalog.Catalog
	if cfg.Catalog.Path != "" {
		var err error
		cat, err = catalog.Open(cfg.Catalog.Path)
		if err != nil {
			return fmt.Errorf("open zone catalog: %w", err)
		}
		defer cat.Close()
	}

	zones, err := r.loadZones(cfg)
	if err != nil {
		return err
	}
	r.recordZones(cat, zones)

	reloadable := resolvers.NewReloadable(r.buildChain(cfg, zones))
	defer reloadable.Close()

	if cfg.Zones.Watch && cfg.Zones.Directory != "" {
		if err := r.watchZones(ctx, cfg, reloadable, cat); err != nil {
			return fmt.Errorf("watch zone directory: %w", err)
		}
	}

	// Create server components
	stats := NewDNSStats()
	h := &QueryHandler{Logger: r.logger, Resolver: reloadable, Stats: stats, Timeout: 4 * time.Second}
	limits := RateLimitSettings{
		CleanupSeconds:   cfg.RateLimit.CleanupSeconds,
		MaxIPEntries:     cfg.RateLimit.MaxIPEntries,
		MaxPrefixEntries: cfg.RateLimit.MaxPrefixEntries,
		GlobalQPS:        cfg.RateLimit.GlobalQPS,
		GlobalBurst:      cfg.RateLimit.GlobalBurst,
		PrefixQPS:        cfg.RateLimit.PrefixQPS,
		PrefixBurst:      cfg.RateLimit.PrefixBurst,
		IPQPS:            cfg.RateLimit.IPQPS,
		IPBurst:          cfg.RateLimit.IPBurst,
	}
	limiter := NewRateLimiter(limits)
	if r.logger != nil {
		r.logger.Info("rate limits", "effective", FormatRateLimitsLog(limits))
	}

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	r.logStartup(cfg, addr, maxConc, len(zones))

	// Start servers
	udp := &UDPServer{Logger: r.logger, Handler: h, Limiter: limiter, MaxConcurrency: maxConc}
	var tcp *TCPServer
	if cfg.Server.EnableTCP {
		tcp = &TCPServer{Logger: r.logger, Handler: h}
	}

	var apiServer *api.Server
	if cfg.API.Enabled {
		apiServer = api.New(cfg, handlers.Deps{
			Catalog:  cat,
			Resolver: reloadable,
			Stats:    dnsStatsFunc(stats),
		}, r.logger)
	}

	errCh := make(chan error, 3)
	go func() { errCh <- udp.Run(ctx, addr) }()
	if tcp != nil {
		go func() { errCh <- tcp.Run(ctx, addr) }()
	}
	if apiServer != nil {
		go func() {
			if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
		if r.logger != nil {
			r.logger.Info("management api listening", "addr", apiServer.Addr())
		}
	}

	// Wait for shutdown or error
	select {
	case <-ctx.Done():
		// shutdown requested via signal
	case err := <-errCh:
		if err != nil {
			cancelRun()
			return err
		}
	}

	// Graceful shutdown
	stopTimeout := 5 * time.Second
	_ = udp.Stop(stopTimeout)
	if tcp != nil {
		_ = tcp.Stop(stopTimeout)
	}
	if apiServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		_ = apiServer.Shutdown(shutdownCtx)
		cancel()
	}
	return nil
}

// loadZones builds one authority per configured zone source. A broken
// zone file fails the whole load: a partially loaded zone would answer
// with records its file no longer has.
func (r *Runner) loadZones(cfg *config.Config) ([]loadedZone, error) {
	var paths []string
	if cfg.Zones.Directory != "" {
		discovered, err := zone.DiscoverZoneFiles(cfg.Zones.Directory)
		if err != nil {
			return nil, fmt.Errorf("scan zone directory: %w", err)
		}
		paths = append(paths, discovered...)
	}
	paths = append(paths, cfg.Zones.Files...)

	zones := make([]loadedZone, 0, len(paths)+len(cfg.Zones.Descriptors))
	for _, p := range paths {
		a, err := resolvers.FromFile(p, r.logger)
		if err != nil {
			return nil, fmt.Errorf("load zone file %s: %w", p, err)
		}
		zones = append(zones, loadedZone{authority: a, source: p, format: "master"})
	}
	for _, p := range cfg.Zones.Descriptors {
		a, err := resolvers.FromDescriptor(p)
		if err != nil {
			return nil, fmt.Errorf("load zone descriptor %s: %w", p, err)
		}
		zones = append(zones, loadedZone{authority: a, source: p, format: "descriptor"})
	}

	if r.logger != nil {
		for _, z := range zones {
			r.logger.Info("zone loaded",
				"origin", z.authority.Origin(),
				"source", z.source,
				"records", z.authority.Store().RecordCount(),
			)
		}
	}
	return zones, nil
}

// recordZones reflects the loaded zones into the catalog. Catalog
// trouble is logged, not fatal: the catalog is bookkeeping, not the
// source of DNS truth.
func (r *Runner) recordZones(cat *catalog.Catalog, zones []loadedZone) {
	if cat == nil {
		return
	}
	for _, z := range zones {
		origin := z.authority.Origin()
		if err := cat.Upsert(catalog.Zone{Origin: origin, Source: z.source, Format: z.format, Enabled: true}); err != nil {
			if r.logger != nil {
				r.logger.Warn("catalog upsert failed", "zone", origin, "err", err)
			}
			continue
		}
		if err := cat.MarkLoaded(origin, zoneSerial(z.authority)); err != nil && r.logger != nil {
			r.logger.Warn("catalog update failed", "zone", origin, "err", err)
		}
	}
}

// zoneSerial extracts the SOA serial of a loaded zone, zero when the
// zone carries no SOA.
func zoneSerial(a *resolvers.Authority) uint32 {
	soa, ok := a.Store().SOA()
	if !ok {
		return 0
	}
	if sd, ok := soa.Data.(*dns.SOAData); ok {
		return sd.Serial
	}
	return 0
}

// buildChain assembles authorities in load order, with the forwarder
// last when upstreams are configured.
func (r *Runner) buildChain(cfg *config.Config, zones []loadedZone) resolvers.Resolver {
	resList := make([]resolvers.Resolver, 0, len(zones)+1)
	for _, z := range zones {
		resList = append(resList, z.authority)
	}

	if len(cfg.Upstream.Servers) > 0 {
		udpTimeout, _ := time.ParseDuration(cfg.Upstream.UDPTimeout)
		tcpTimeout, _ := time.ParseDuration(cfg.Upstream.TCPTimeout)
		fwd := resolvers.NewForwardingResolver(
			cfg.Upstream.Servers,
			udpTimeout,
			tcpTimeout,
			cfg.Upstream.MaxRetries,
		)
		resList = append(resList, fwd)
	}

	return &resolvers.Chained{Resolvers: resList}
}

// watchZones reloads the resolver chain when files under the zone
// directory change.
//
// Goroutine lifecycle: one watcher goroutine, exits with the context.
func (r *Runner) watchZones(ctx context.Context, cfg *config.Config, rel *resolvers.Reloadable, cat *catalog.Catalog) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(cfg.Zones.Directory); err != nil {
		_ = watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()

		debounce := time.NewTimer(reloadDebounce)
		if !debounce.Stop() {
			<-debounce.C
		}

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) ||
					ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename) {
					debounce.Reset(reloadDebounce)
				}
			case <-debounce.C:
				r.reloadZones(cfg, rel, cat)
			case werr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				if r.logger != nil {
					r.logger.Warn("zone watcher error", "err", werr)
				}
			}
		}
	}()
	return nil
}

// reloadZones rebuilds the chain from disk and swaps it in. A failed
// load keeps the running resolver: stale answers beat no answers.
func (r *Runner) reloadZones(cfg *config.Config, rel *resolvers.Reloadable, cat *catalog.Catalog) {
	zones, err := r.loadZones(cfg)
	if err != nil {
		if r.logger != nil {
			r.logger.Error("zone reload failed, keeping previous zones", "err", err)
		}
		return
	}
	r.recordZones(cat, zones)

	if err := rel.Swap(r.buildChain(cfg, zones)); err != nil && r.logger != nil {
		r.logger.Warn("closing previous resolver chain", "err", err)
	}
	if r.logger != nil {
		r.logger.Info("zones reloaded", "zones", len(zones))
	}
}

// dnsStatsFunc adapts the server's stats counter to the snapshot shape
// the API handlers consume.
func dnsStatsFunc(stats *DNSStats) handlers.DNSStatsFunc {
	return func() handlers.DNSStatsSnapshot {
		s := stats.Snapshot()
		return handlers.DNSStatsSnapshot{
			QueriesTotal:     s.QueriesTotal,
			QueriesUDP:       s.QueriesUDP,
			QueriesTCP:       s.QueriesTCP,
			ResponsesNX:      s.ResponsesNX,
			ResponsesRefused: s.ResponsesRefused,
			ResponsesErr:     s.ResponsesErr,
			AvgLatencyMs:     s.AvgLatencyMs,
		}
	}
}

// configureRuntime sets GOMAXPROCS based on worker configuration.
// Workers can reduce but never increase parallelism beyond the default.
func (r *Runner) configureRuntime(cfg *config.Config) int {
	baseProcs := runtime.GOMAXPROCS(0)
	if baseProcs <= 0 {
		baseProcs = 1
	}
	desiredProcs := baseProcs

	if cfg.Server.Workers.Mode == config.WorkersFixed {
		w := cfg.Server.Workers.Value
		if w <= 0 {
			w = 1
		}
		if w < desiredProcs {
			desiredProcs = w
		}
	}

	prev := runtime.GOMAXPROCS(desiredProcs)
	actual := runtime.GOMAXPROCS(0)
	if r.logger != nil {
		r.logger.Info("runtime", "gomaxprocs", actual, "prev", prev, "base", baseProcs)
	}
	return actual
}

// calculateMaxConcurrency determines the maximum concurrent request handlers.
func (r *Runner) calculateMaxConcurrency(cfg *config.Config, procs int) int {
	maxConc := cfg.Server.MaxConcurrency
	if maxConc <= 0 {
		c := procs
		if c <= 0 {
			c = 1
		}
		maxConc = max(min(c*256, 2048), 1)
	}
	return maxConc
}

// logStartup logs server configuration at startup.
func (r *Runner) logStartup(cfg *config.Config, addr string, maxConc, zoneCount int) {
	if r.logger != nil {
		r.logger.Info(
			"dns listening",
			"addr", addr,
			"udp", true,
			"tcp", cfg.Server.EnableTCP,
			"zones", zoneCount,
			"upstreams", cfg.Upstream.Servers,
			"max_concurrency", maxConc,
		)
	}
}
