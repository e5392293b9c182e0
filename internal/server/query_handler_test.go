package server

import (
	"context"
	"errors"
	"log/slog"
	"net/netip"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bastiondns/bastiondns/internal/dns"
	"github.com/bastiondns/bastiondns/internal/resolvers"
)

// stubResolver implements resolvers.Resolver for testing.
type stubResolver struct {
	sections  resolvers.Sections
	err       error
	delay     time.Duration
	callCount int
}

func (s *stubResolver) Lookup(ctx context.Context, _ string, _ dns.RecordClass, _ dns.RecordType) (resolvers.Sections, error) {
	s.callCount++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return resolvers.Sections{}, ctx.Err()
		}
	}
	if s.err != nil {
		return resolvers.Sections{}, s.err
	}
	return s.sections, nil
}

func (s *stubResolver) Close() error { return nil }

// buildTestQuery creates a valid DNS query for testing.
func buildTestQuery(t *testing.T, qname string, qtype dns.RecordType) []byte {
	t.Helper()
	p := dns.Packet{
		Header:    dns.Header{ID: 1234, Flags: dns.RDFlag},
		Questions: []dns.Question{{Name: qname, Type: qtype, Class: dns.ClassIN}},
	}
	b, err := p.Marshal()
	require.NoError(t, err, "failed to marshal test query")
	return b
}

// addressRR builds an A record for the answer section.
func addressRR(t *testing.T, name, ip string, auth bool) dns.RR {
	t.Helper()
	addr, err := netip.ParseAddr(ip)
	require.NoError(t, err, "bad test address")
	return dns.RR{Name: name, Class: dns.ClassIN, TTL: 300, Auth: auth, Data: dns.NewIPData(addr)}
}

// soaRR builds the zone SOA record for the authority section.
func soaRR(apex string, serial uint32) dns.RR {
	return dns.RR{
		Name: apex, Class: dns.ClassIN, TTL: 1800, Auth: true,
		Data: &dns.SOAData{
			MName: "ns1." + apex, RName: "hostmaster." + apex,
			Serial: serial, Refresh: 7200, Retry: 3600, Expire: 1209600, Minimum: 1800,
		},
	}
}

func TestQueryHandler_Handle_Answer(t *testing.T) {
	qname := "www.example.com"
	resolver := &stubResolver{
		sections: resolvers.Sections{Answer: []dns.RR{addressRR(t, qname, "192.0.2.10", true)}},
	}
	handler := &QueryHandler{Resolver: resolver, Timeout: 5 * time.Second}

	result := handler.Handle(context.Background(), "udp", "192.168.1.1:12345", buildTestQuery(t, qname, dns.TypeA))

	assert.True(t, result.ParsedOK, "expected ParsedOK = true")
	assert.Equal(t, "answer", result.Source)
	assert.Equal(t, 1, resolver.callCount, "expected resolver to be called once")

	resp, err := dns.ParsePacket(result.ResponseBytes)
	require.NoError(t, err, "failed to parse response")
	assert.Equal(t, uint16(1234), resp.Header.ID, "transaction ID must be preserved")
	assert.NotZero(t, resp.Header.Flags&dns.QRFlag, "expected QR set")
	assert.NotZero(t, resp.Header.Flags&dns.AAFlag, "expected AA set for an authoritative answer")
	assert.NotZero(t, resp.Header.Flags&dns.RDFlag, "expected RD copied from the request")
	assert.Equal(t, dns.RCodeNoError, dns.RCodeFromFlags(resp.Header.Flags))
	require.Len(t, resp.Answers, 1)
	assert.Equal(t, dns.TypeA, resp.Answers[0].Type())
	assert.Equal(t, "192.0.2.10", resp.Answers[0].Data.String())
}

func TestQueryHandler_Handle_ForwardedAnswerNotAuthoritative(t *testing.T) {
	qname := "www.upstream.test"
	resolver := &stubResolver{
		sections: resolvers.Sections{Answer: []dns.RR{addressRR(t, qname, "198.51.100.7", false)}},
	}
	handler := &QueryHandler{Resolver: resolver, Timeout: 5 * time.Second}

	result := handler.Handle(context.Background(), "udp", "192.168.1.1:12345", buildTestQuery(t, qname, dns.TypeA))

	resp, err := dns.ParsePacket(result.ResponseBytes)
	require.NoError(t, err, "failed to parse response")
	assert.Zero(t, resp.Header.Flags&dns.AAFlag, "forwarded answers must not set AA")
	assert.Equal(t, "answer", result.Source)
}

func TestQueryHandler_Handle_NXDomain(t *testing.T) {
	resolver := &stubResolver{
		err: &resolvers.NameError{
			Name:      "nothere.example.com",
			Authority: []dns.RR{soaRR("example.com", 2026010100)},
		},
	}
	handler := &QueryHandler{Resolver: resolver, Timeout: 5 * time.Second}

	result := handler.Handle(context.Background(), "udp", "192.168.1.1:12345", buildTestQuery(t, "nothere.example.com", dns.TypeA))

	assert.Equal(t, "nxdomain", result.Source)
	resp, err := dns.ParsePacket(result.ResponseBytes)
	require.NoError(t, err, "failed to parse response")
	assert.Equal(t, dns.RCodeNXDomain, dns.RCodeFromFlags(resp.Header.Flags))
	assert.NotZero(t, resp.Header.Flags&dns.AAFlag, "NXDOMAIN from our zones is authoritative")
	assert.Empty(t, resp.Answers)
	require.Len(t, resp.Authorities, 1, "expected the zone SOA in the authority section")
	assert.Equal(t, dns.TypeSOA, resp.Authorities[0].Type())
}

func TestQueryHandler_Handle_NXDomainWithoutSOA(t *testing.T) {
	resolver := &stubResolver{err: resolvers.ErrNameNotFound}
	handler := &QueryHandler{Resolver: resolver, Timeout: 5 * time.Second}

	result := handler.Handle(context.Background(), "udp", "192.168.1.1:12345", buildTestQuery(t, "gone.example.com", dns.TypeA))

	assert.Equal(t, "nxdomain", result.Source)
	resp, err := dns.ParsePacket(result.ResponseBytes)
	require.NoError(t, err, "failed to parse response")
	assert.Equal(t, dns.RCodeNXDomain, dns.RCodeFromFlags(resp.Header.Flags))
	assert.Empty(t, resp.Authorities, "a bare ErrNameNotFound carries no SOA")
}

func TestQueryHandler_Handle_Refused(t *testing.T) {
	resolver := &stubResolver{err: resolvers.ErrNotInZone}
	handler := &QueryHandler{Resolver: resolver, Timeout: 5 * time.Second}

	result := handler.Handle(context.Background(), "udp", "192.168.1.1:12345", buildTestQuery(t, "other.test", dns.TypeA))

	assert.Equal(t, "refused", result.Source)
	resp, err := dns.ParsePacket(result.ResponseBytes)
	require.NoError(t, err, "failed to parse response")
	assert.Equal(t, dns.RCodeRefused, dns.RCodeFromFlags(resp.Header.Flags))
	assert.Zero(t, resp.Header.Flags&dns.AAFlag, "REFUSED asserts nothing about the name")
}

func TestQueryHandler_Handle_ResolverError(t *testing.T) {
	resolver := &stubResolver{err: errors.New("upstream failure")}
	handler := &QueryHandler{Resolver: resolver, Timeout: 5 * time.Second}

	result := handler.Handle(context.Background(), "udp", "192.168.1.1:12345", buildTestQuery(t, "example.com", dns.TypeA))

	assert.True(t, result.ParsedOK, "expected ParsedOK = true (parsing succeeded)")
	assert.Equal(t, "servfail", result.Source)
	resp, err := dns.ParsePacket(result.ResponseBytes)
	require.NoError(t, err, "failed to parse response")
	assert.Equal(t, dns.RCodeServFail, dns.RCodeFromFlags(resp.Header.Flags))
}

func TestQueryHandler_Handle_NoData(t *testing.T) {
	// An empty answer with the SOA in authority is a NODATA response:
	// the name exists, the type does not.
	resolver := &stubResolver{
		sections: resolvers.Sections{Authority: []dns.RR{soaRR("example.com", 2026010100)}},
	}
	handler := &QueryHandler{Resolver: resolver, Timeout: 5 * time.Second}

	result := handler.Handle(context.Background(), "udp", "192.168.1.1:12345", buildTestQuery(t, "www.example.com", dns.TypeAAAA))

	assert.Equal(t, "negative", result.Source)
	resp, err := dns.ParsePacket(result.ResponseBytes)
	require.NoError(t, err, "failed to parse response")
	assert.Equal(t, dns.RCodeNoError, dns.RCodeFromFlags(resp.Header.Flags))
	assert.Empty(t, resp.Answers)
	require.Len(t, resp.Authorities, 1)
	assert.NotZero(t, resp.Header.Flags&dns.AAFlag, "the negative answer comes from our zone")
}

func TestQueryHandler_Handle_ParseError(t *testing.T) {
	resolver := &stubResolver{}
	handler := &QueryHandler{Resolver: resolver, Timeout: 5 * time.Second}

	// Invalid DNS request (too short)
	result := handler.Handle(context.Background(), "udp", "192.168.1.1:12345", []byte{0x00, 0x01})

	assert.False(t, result.ParsedOK, "expected ParsedOK = false for invalid request")
	assert.True(t, result.Source == "parse-error" || result.Source == "formerr",
		"expected source 'parse-error' or 'formerr', got %q", result.Source)
	assert.Equal(t, 0, resolver.callCount, "resolver should not be called on parse error")
}

func TestQueryHandler_Handle_FormErrOnResponsePacket(t *testing.T) {
	// A packet with QR set is a response, not a query. The header and
	// question are intact, so the handler can reply FORMERR in kind.
	p := dns.Packet{
		Header:    dns.Header{ID: 0x4242, Flags: dns.QRFlag},
		Questions: []dns.Question{{Name: "example.com", Type: dns.TypeA, Class: dns.ClassIN}},
	}
	b, err := p.Marshal()
	require.NoError(t, err)

	resolver := &stubResolver{}
	handler := &QueryHandler{Resolver: resolver, Timeout: 5 * time.Second}

	result := handler.Handle(context.Background(), "udp", "192.168.1.1:12345", b)

	assert.False(t, result.ParsedOK)
	assert.Equal(t, "formerr", result.Source)
	assert.Equal(t, 0, resolver.callCount)

	resp, err := dns.ParsePacket(result.ResponseBytes)
	require.NoError(t, err, "failed to parse FORMERR response")
	assert.Equal(t, uint16(0x4242), resp.Header.ID)
	assert.Equal(t, dns.RCodeFormErr, dns.RCodeFromFlags(resp.Header.Flags))
}

func TestQueryHandler_Handle_Timeout(t *testing.T) {
	resolver := &stubResolver{delay: 500 * time.Millisecond}
	handler := &QueryHandler{
		Resolver: resolver,
		Timeout:  50 * time.Millisecond, // Very short timeout
	}

	result := handler.Handle(context.Background(), "udp", "192.168.1.1:12345", buildTestQuery(t, "example.com", dns.TypeA))

	assert.True(t, result.ParsedOK, "expected ParsedOK = true")
	assert.Equal(t, "timeout", result.Source)
	resp, err := dns.ParsePacket(result.ResponseBytes)
	require.NoError(t, err, "failed to parse response")
	assert.Equal(t, dns.RCodeServFail, dns.RCodeFromFlags(resp.Header.Flags))
}

func TestQueryHandler_Handle_ContextCancelled(t *testing.T) {
	resolver := &stubResolver{delay: 500 * time.Millisecond}
	handler := &QueryHandler{Resolver: resolver, Timeout: 5 * time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	// Cancel immediately
	cancel()

	result := handler.Handle(ctx, "udp", "192.168.1.1:12345", buildTestQuery(t, "example.com", dns.TypeA))

	assert.Equal(t, "shutdown", result.Source)
}

func TestQueryHandler_Handle_WithLogger(t *testing.T) {
	resolver := &stubResolver{
		sections: resolvers.Sections{Answer: []dns.RR{addressRR(t, "example.com", "192.0.2.1", true)}},
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	handler := &QueryHandler{
		Logger:   logger,
		Resolver: resolver,
		Timeout:  5 * time.Second,
	}

	result := handler.Handle(context.Background(), "tcp", "10.0.0.1:54321", buildTestQuery(t, "example.com", dns.TypeA))

	assert.True(t, result.ParsedOK, "expected ParsedOK = true")
}

func TestQueryHandler_Handle_DefaultTimeout(t *testing.T) {
	resolver := &stubResolver{
		sections: resolvers.Sections{Answer: []dns.RR{addressRR(t, "example.com", "192.0.2.1", true)}},
	}
	handler := &QueryHandler{
		Resolver: resolver,
		Timeout:  0, // Should default to 4s
	}

	start := time.Now()
	result := handler.Handle(context.Background(), "udp", "192.168.1.1:12345", buildTestQuery(t, "example.com", dns.TypeA))
	elapsed := time.Since(start)

	assert.True(t, result.ParsedOK, "expected ParsedOK = true")
	// Should complete quickly (stub has no delay)
	assert.Less(t, elapsed, 100*time.Millisecond, "expected quick response")
}

func TestQueryHandler_Handle_RecordsStats(t *testing.T) {
	stats := NewDNSStats()
	handler := &QueryHandler{Stats: stats, Timeout: time.Second}

	handler.Resolver = &stubResolver{
		sections: resolvers.Sections{Answer: []dns.RR{addressRR(t, "example.com", "192.0.2.1", true)}},
	}
	handler.Handle(context.Background(), "udp", "192.168.1.1:1", buildTestQuery(t, "example.com", dns.TypeA))
	handler.Handle(context.Background(), "tcp", "192.168.1.1:2", buildTestQuery(t, "example.com", dns.TypeA))

	handler.Resolver = &stubResolver{err: resolvers.ErrNameNotFound}
	handler.Handle(context.Background(), "udp", "192.168.1.1:3", buildTestQuery(t, "gone.example.com", dns.TypeA))

	handler.Resolver = &stubResolver{err: resolvers.ErrNotInZone}
	handler.Handle(context.Background(), "udp", "192.168.1.1:4", buildTestQuery(t, "elsewhere.test", dns.TypeA))

	handler.Resolver = &stubResolver{err: errors.New("boom")}
	handler.Handle(context.Background(), "udp", "192.168.1.1:5", buildTestQuery(t, "example.com", dns.TypeA))

	snap := stats.Snapshot()
	assert.Equal(t, uint64(5), snap.QueriesTotal)
	assert.Equal(t, uint64(4), snap.QueriesUDP)
	assert.Equal(t, uint64(1), snap.QueriesTCP)
	assert.Equal(t, uint64(1), snap.ResponsesNX)
	assert.Equal(t, uint64(1), snap.ResponsesRefused)
	assert.Equal(t, uint64(1), snap.ResponsesErr)
	assert.GreaterOrEqual(t, snap.AvgLatencyMs, 0.0)
}

func TestTryBuildErrorFromRaw_ValidHeader(t *testing.T) {
	queryBytes := buildTestQuery(t, "example.com", dns.TypeA)

	resp := tryBuildErrorFromRaw(queryBytes, dns.RCodeFormErr)

	require.NotNil(t, resp, "expected non-nil response")
	parsed, err := dns.ParsePacket(resp)
	require.NoError(t, err, "failed to parse error response")
	assert.Equal(t, dns.RCodeFormErr, dns.RCodeFromFlags(parsed.Header.Flags), "expected RCODE FORMERR")
	require.Len(t, parsed.Questions, 1, "question should be echoed back")
	assert.Equal(t, "example.com", parsed.Questions[0].Name)
}

func TestTryBuildErrorFromRaw_TooShort(t *testing.T) {
	// Too short to parse header
	resp := tryBuildErrorFromRaw([]byte{0x00}, dns.RCodeFormErr)
	assert.Nil(t, resp, "expected nil response for too-short request")
}

func TestTryBuildErrorFromRaw_HeaderOnlyNoQuestion(t *testing.T) {
	// Valid 12-byte header with QDCount=0
	header := []byte{
		0x12, 0x34, // ID
		0x00, 0x00, // Flags
		0x00, 0x00, // QDCount = 0
		0x00, 0x00, // ANCount
		0x00, 0x00, // NSCount
		0x00, 0x00, // ARCount
	}

	resp := tryBuildErrorFromRaw(header, dns.RCodeServFail)
	require.NotNil(t, resp, "expected non-nil response")

	parsed, err := dns.ParsePacket(resp)
	require.NoError(t, err, "failed to parse error response")
	assert.Equal(t, uint16(0x1234), parsed.Header.ID)
	assert.Empty(t, parsed.Questions)
}

func TestMustMarshal(t *testing.T) {
	p := dns.Packet{
		Header: dns.Header{ID: 1234, Flags: dns.QRFlag},
	}
	b := mustMarshal(p)
	assert.NotNil(t, b, "expected non-nil result for valid packet")
}
