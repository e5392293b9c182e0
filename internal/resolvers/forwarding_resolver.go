package resolvers

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"strings"
	"time"

	"github.com/bastiondns/bastiondns/internal/dns"
	"github.com/bastiondns/bastiondns/internal/helpers"
)

const (
	maxUpstreams = 3 // more than this buys nothing but latency

	DefaultUDPTimeout = 3 * time.Second
	DefaultTCPTimeout = 5 * time.Second
	DefaultMaxRetries = 3
)

// ForwardingResolver sends questions to upstream recursive servers. It
// is the plain transport tail of a resolver chain: no cache, no
// recursion of its own. Queries go out over UDP first and are retried
// over TCP when the response comes back truncated (RFC 1035 section
// 4.2.2).
type ForwardingResolver struct {
	upstreams  []string
	udpTimeout time.Duration
	tcpTimeout time.Duration
	maxRetries int
	recvSize   int
}

var _ Resolver = (*ForwardingResolver)(nil)

// NewForwardingResolver builds a forwarder for the given upstream
// servers. Upstreams are "host" or "host:port"; a bare host gets port
// 53. Zero timeouts and retries select the defaults.
func NewForwardingResolver(upstreams []string, udpTimeout, tcpTimeout time.Duration, maxRetries int) *ForwardingResolver {
	if len(upstreams) > maxUpstreams {
		upstreams = upstreams[:maxUpstreams]
	}
	if udpTimeout <= 0 {
		udpTimeout = DefaultUDPTimeout
	}
	if tcpTimeout <= 0 {
		tcpTimeout = DefaultTCPTimeout
	}
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &ForwardingResolver{
		upstreams:  upstreams,
		udpTimeout: udpTimeout,
		tcpTimeout: tcpTimeout,
		maxRetries: maxRetries,
		recvSize:   4096,
	}
}

// Close implements Resolver; the forwarder holds no persistent
// connections.
func (f *ForwardingResolver) Close() error {
	return nil
}

// Lookup builds a recursive query for the question and tries each
// upstream in order until one returns a valid response. An upstream
// NXDOMAIN becomes ErrNameNotFound so the chain stops there.
func (f *ForwardingResolver) Lookup(ctx context.Context, name string, qclass dns.RecordClass, qtype dns.RecordType) (Sections, error) {
	query := dns.Packet{
		Header:    dns.Header{ID: uint16(rand.Uint32()), Flags: dns.RDFlag},
		Questions: []dns.Question{{Name: name, Type: qtype, Class: qclass}},
	}
	queryBytes, err := query.Marshal()
	if err != nil {
		return Sections{}, fmt.Errorf("marshal upstream query: %w", err)
	}

	var lastErr error
	for _, up := range f.upstreams {
		if err := ctx.Err(); err != nil {
			return Sections{}, err
		}
		respBytes, err := f.queryUpstream(ctx, up, queryBytes)
		if err != nil {
			lastErr = fmt.Errorf("upstream %s: %w", up, err)
			continue
		}
		resp, err := validateResponse(query, respBytes)
		if err != nil {
			lastErr = fmt.Errorf("upstream %s: %w", up, err)
			continue
		}
		return sectionsFromResponse(name, resp)
	}

	if lastErr == nil {
		lastErr = errors.New("no upstream servers configured")
	}
	return Sections{}, lastErr
}

// sectionsFromResponse translates an upstream response into lookup
// results. The records keep Auth unset: nothing forwarded is ours to
// vouch for.
func sectionsFromResponse(name string, resp dns.Packet) (Sections, error) {
	switch rcode := dns.RCodeFromFlags(resp.Header.Flags); rcode {
	case dns.RCodeNoError:
	case dns.RCodeNXDomain:
		return Sections{}, fmt.Errorf("%w: %s", ErrNameNotFound, name)
	default:
		return Sections{}, fmt.Errorf("upstream answered %s with rcode %d", name, rcode)
	}
	return Sections{
		Answer:     resp.Answers,
		Authority:  resp.Authorities,
		Additional: withoutOPT(resp.Additionals),
	}, nil
}

// withoutOPT drops EDNS pseudo-records; they describe the upstream
// transport, not the answer.
func withoutOPT(records []dns.RR) []dns.RR {
	out := records[:0]
	for _, rr := range records {
		if rr.Type() == dns.TypeOPT {
			continue
		}
		out = append(out, rr)
	}
	return out
}

// queryUpstream sends one query to one upstream, retrying network
// errors up to maxRetries times.
func (f *ForwardingResolver) queryUpstream(ctx context.Context, up string, queryBytes []byte) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < f.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		resp, err := f.queryAttempt(ctx, up, queryBytes)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !isNetworkError(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

// queryAttempt is a single UDP round trip, escalating to TCP when the
// response is truncated.
func (f *ForwardingResolver) queryAttempt(ctx context.Context, up string, queryBytes []byte) ([]byte, error) {
	addr, err := net.ResolveUDPAddr("udp", upstreamAddr(up))
	if err != nil {
		return nil, err
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	deadline := time.Now().Add(f.udpTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	_ = conn.SetDeadline(deadline)

	if _, err := conn.Write(queryBytes); err != nil {
		return nil, err
	}
	buf := make([]byte, f.recvSize)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, err
	}
	resp := buf[:n:n]

	if isTruncated(resp) {
		return queryUpstreamTCP(ctx, queryBytes, up, f.tcpTimeout)
	}
	return resp, nil
}

// isTruncated peeks at the TC bit without parsing the whole message.
func isTruncated(msg []byte) bool {
	if len(msg) < 4 {
		return false
	}
	return binary.BigEndian.Uint16(msg[2:4])&dns.TCFlag != 0
}

func isNetworkError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr)
}

// upstreamAddr completes an upstream spec with the default DNS port.
func upstreamAddr(up string) string {
	if _, _, err := net.SplitHostPort(up); err == nil {
		return up
	}
	return net.JoinHostPort(up, "53")
}

// queryUpstreamTCP sends a DNS query over TCP with the 2-byte
// length-prefix framing of RFC 1035 section 4.2.2.
func queryUpstreamTCP(ctx context.Context, queryBytes []byte, up string, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	d := net.Dialer{}
	conn, err := d.DialContext(ctx, "tcp", upstreamAddr(up))
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	// Two writes to avoid an append of prefix+body.
	var prefix [2]byte
	binary.BigEndian.PutUint16(prefix[:], helpers.ClampIntToUint16(len(queryBytes)))
	if _, err := conn.Write(prefix[:]); err != nil {
		return nil, err
	}
	if _, err := conn.Write(queryBytes); err != nil {
		return nil, err
	}

	if _, err := io.ReadFull(conn, prefix[:]); err != nil {
		return nil, err
	}
	respLen := int(binary.BigEndian.Uint16(prefix[:]))
	if respLen == 0 {
		return nil, errors.New("empty TCP response")
	}
	resp := make([]byte, respLen)
	if _, err := io.ReadFull(conn, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// validateResponse parses an upstream response and checks it actually
// answers the query we sent: matching transaction ID and matching
// question. Anything else is discarded rather than relayed.
func validateResponse(query dns.Packet, respBytes []byte) (dns.Packet, error) {
	resp, err := dns.ParsePacket(respBytes)
	if err != nil {
		return dns.Packet{}, fmt.Errorf("parse upstream response: %w", err)
	}
	if resp.Header.ID != query.Header.ID {
		return dns.Packet{}, errors.New("response ID does not match query")
	}
	if len(resp.Questions) == 0 {
		return dns.Packet{}, errors.New("response has no question section")
	}

	want, got := query.Questions[0], resp.Questions[0]
	if !equalDNSNames(want.Name, got.Name) {
		return dns.Packet{}, fmt.Errorf("QNAME mismatch: asked %s, got %s", want.Name, got.Name)
	}
	if want.Type != got.Type {
		return dns.Packet{}, fmt.Errorf("QTYPE mismatch: asked %d, got %d", want.Type, got.Type)
	}
	if want.Class != got.Class {
		return dns.Packet{}, fmt.Errorf("QCLASS mismatch: asked %d, got %d", want.Class, got.Class)
	}
	return resp, nil
}

// equalDNSNames compares names case-insensitively, ignoring trailing
// dots.
func equalDNSNames(a, b string) bool {
	return strings.EqualFold(strings.TrimSuffix(a, "."), strings.TrimSuffix(b, "."))
}
