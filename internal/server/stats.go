package server

import (
	"sync/atomic"
)

// DNSStats counts queries and their outcomes across both transports.
// The counters follow the handler's outcome taxonomy: NXDOMAIN and
// REFUSED are tracked on their own because they are policy answers an
// authoritative server gives routinely, not failures. All methods are
// safe for concurrent use.
type DNSStats struct {
	queriesTotal     atomic.Uint64
	queriesUDP       atomic.Uint64
	queriesTCP       atomic.Uint64
	responsesNX      atomic.Uint64
	responsesRefused atomic.Uint64
	responsesErr     atomic.Uint64
	latencyTotalNs   atomic.Uint64
}

// NewDNSStats creates a new DNS statistics collector.
func NewDNSStats() *DNSStats {
	return &DNSStats{}
}

// RecordQuery records a DNS query for the given transport (udp or tcp).
func (s *DNSStats) RecordQuery(transport string) {
	s.queriesTotal.Add(1)
	switch transport {
	case "udp":
		s.queriesUDP.Add(1)
	case "tcp":
		s.queriesTCP.Add(1)
	}
}

// RecordNXDOMAIN records an authoritative name-does-not-exist answer.
func (s *DNSStats) RecordNXDOMAIN() {
	s.responsesNX.Add(1)
}

// RecordRefused records a query turned away because the name lies
// outside our zones and no forwarder is configured.
func (s *DNSStats) RecordRefused() {
	s.responsesRefused.Add(1)
}

// RecordError records a failure response (SERVFAIL, FORMERR, timeouts).
func (s *DNSStats) RecordError() {
	s.responsesErr.Add(1)
}

// RecordLatency records query latency in nanoseconds.
func (s *DNSStats) RecordLatency(ns int64) {
	if ns > 0 {
		s.latencyTotalNs.Add(uint64(ns))
	}
}

// DNSStatsSnapshot is a point-in-time snapshot of DNS server statistics.
type DNSStatsSnapshot struct {
	QueriesTotal     uint64
	QueriesUDP       uint64
	QueriesTCP       uint64
	ResponsesNX      uint64
	ResponsesRefused uint64
	ResponsesErr     uint64
	AvgLatencyMs     float64
}

// Snapshot returns the current statistics. The average latency spans
// every query seen so far, whatever its outcome.
func (s *DNSStats) Snapshot() DNSStatsSnapshot {
	total := s.queriesTotal.Load()
	latencyNs := s.latencyTotalNs.Load()

	avgLatencyMs := 0.0
	if total > 0 {
		avgLatencyMs = float64(latencyNs) / float64(total) / 1e6
	}

	return DNSStatsSnapshot{
		QueriesTotal:     total,
		QueriesUDP:       s.queriesUDP.Load(),
		QueriesTCP:       s.queriesTCP.Load(),
		ResponsesNX:      s.responsesNX.Load(),
		ResponsesRefused: s.responsesRefused.Load(),
		ResponsesErr:     s.responsesErr.Load(),
		AvgLatencyMs:     avgLatencyMs,
	}
}
