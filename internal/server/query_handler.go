// Package server implements DNS protocol servers for UDP and TCP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bastiondns/bastiondns/internal/dns"
	"github.com/bastiondns/bastiondns/internal/resolvers"
)

// defaultResolveTimeout bounds a single lookup when the handler is not
// configured with one.
const defaultResolveTimeout = 4 * time.Second

// QueryHandler turns raw DNS requests into raw DNS responses. It owns
// request parsing, the resolver call and its timeout, and the mapping
// from resolver errors to response codes:
//
//   - success           -> NOERROR with the resolved sections
//   - ErrNameNotFound   -> NXDOMAIN (zone SOA in authority when known)
//   - ErrNotInZone      -> REFUSED
//   - timeout, internal -> SERVFAIL
type QueryHandler struct {
	Logger   *slog.Logger       // Optional logger for debug output
	Resolver resolvers.Resolver // The resolver chain answering questions
	Stats    *DNSStats          // Optional statistics collector
	Timeout  time.Duration      // Maximum time for query resolution (default: 4s)
}

// HandleResult contains the outcome of query processing.
type HandleResult struct {
	ResponseBytes []byte     // Serialized DNS response (nil when nothing can be sent)
	Source        string     // Outcome label (answer, nxdomain, refused, ...)
	Parsed        dns.Packet // Parsed request (if ParsedOK is true)
	ParsedOK      bool       // Whether the request was successfully parsed
}

// Handle processes a DNS request and returns a response.
//
// Processing steps:
//  1. Parse the raw request bytes
//  2. Ask the resolver chain, bounded by the configured timeout
//  3. Map the outcome (sections or error) to a wire response
//  4. Log request details and fold the outcome into the stats
//
// The context is checked for cancellation (e.g., server shutdown).
func (h *QueryHandler) Handle(ctx context.Context, transport string, src string, reqBytes []byte) HandleResult {
	start := time.Now()
	if h.Stats != nil {
		h.Stats.RecordQuery(transport)
	}

	// Step 1: Parse request
	parsed, err := dns.ParseRequestBounded(reqBytes)
	if err != nil {
		res := h.handleParseError(reqBytes)
		h.recordOutcome(res.Source, start)
		return res
	}

	// ParseRequestBounded guarantees exactly one question.
	q := parsed.Questions[0]

	// Step 2+3: Resolve with timeout and build the reply
	resp, source := h.resolveWithTimeout(ctx, parsed, q)

	// Step 4: Log at debug level, count the outcome
	h.logRequest(ctx, transport, src, parsed, q, len(reqBytes), source)
	h.recordOutcome(source, start)

	return HandleResult{
		ResponseBytes: resp,
		Source:        source,
		Parsed:        parsed,
		ParsedOK:      true,
	}
}

// recordOutcome folds an outcome label into the statistics counters.
func (h *QueryHandler) recordOutcome(source string, start time.Time) {
	if h.Stats == nil {
		return
	}
	switch source {
	case "nxdomain":
		h.Stats.RecordNXDOMAIN()
	case "refused":
		h.Stats.RecordRefused()
	case "servfail", "timeout", "shutdown", "formerr", "parse-error", "marshal-error":
		h.Stats.RecordError()
	}
	h.Stats.RecordLatency(time.Since(start).Nanoseconds())
}

// handleParseError attempts to build an error response from a malformed request.
// Returns FORMERR if the header/question could be extracted, or nil if not.
func (h *QueryHandler) handleParseError(reqBytes []byte) HandleResult {
	resp := tryBuildErrorFromRaw(reqBytes, dns.RCodeFormErr)
	if resp == nil {
		return HandleResult{ResponseBytes: nil, Source: "parse-error", ParsedOK: false}
	}
	return HandleResult{ResponseBytes: resp, Source: "formerr", ParsedOK: false}
}

// lookupOutcome carries a resolver result across the worker channel.
type lookupOutcome struct {
	sections resolvers.Sections
	err      error
}

// resolveWithTimeout runs the resolver in a goroutine and waits for the
// result under a deadline. The deadline is propagated through the
// context so forwarding resolvers stop their upstream I/O with us.
func (h *QueryHandler) resolveWithTimeout(ctx context.Context, req dns.Packet, q dns.Question) ([]byte, string) {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = defaultResolveTimeout
	}
	lctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resCh := make(chan lookupOutcome, 1)
	go func() {
		sections, err := h.Resolver.Lookup(lctx, q.Name, q.Class, q.Type)
		resCh <- lookupOutcome{sections: sections, err: err}
	}()

	select {
	case <-lctx.Done():
		source := "timeout"
		if ctx.Err() != nil {
			source = "shutdown"
		}
		return mustMarshal(dns.BuildErrorResponse(req, dns.RCodeServFail)), source
	case r := <-resCh:
		return h.buildReply(req, q, r)
	}
}

// buildReply maps a lookup outcome to response bytes and a source label.
func (h *QueryHandler) buildReply(req dns.Packet, q dns.Question, r lookupOutcome) ([]byte, string) {
	if r.err == nil {
		return h.buildAnswer(req, q, r.sections)
	}

	switch {
	case errors.Is(r.err, resolvers.ErrNameNotFound):
		resp := dns.BuildErrorResponse(req, dns.RCodeNXDomain)
		// Only an authority can assert nonexistence, so the negative
		// answer is authoritative. A NameError carries the zone SOA
		// for the authority section (RFC 2308).
		resp.Header.Flags |= dns.AAFlag
		var ne *resolvers.NameError
		if errors.As(r.err, &ne) {
			resp.Authorities = ne.Authority
		}
		return mustMarshal(resp), "nxdomain"
	case errors.Is(r.err, resolvers.ErrNotInZone):
		return mustMarshal(dns.BuildErrorResponse(req, dns.RCodeRefused)), "refused"
	case errors.Is(r.err, context.DeadlineExceeded), errors.Is(r.err, context.Canceled):
		return mustMarshal(dns.BuildErrorResponse(req, dns.RCodeServFail)), "timeout"
	default:
		return mustMarshal(dns.BuildErrorResponse(req, dns.RCodeServFail)), "servfail"
	}
}

// buildAnswer assembles a NOERROR response from resolved sections.
func (h *QueryHandler) buildAnswer(req dns.Packet, q dns.Question, s resolvers.Sections) ([]byte, string) {
	flags := dns.BuildResponseFlags(req.Header.Flags, dns.RCodeNoError)
	if authoritative(s) {
		flags |= dns.AAFlag
	}

	resp := dns.Packet{
		Header:      dns.Header{ID: req.Header.ID, Flags: flags},
		Questions:   []dns.Question{q},
		Answers:     s.Answer,
		Authorities: s.Authority,
		Additionals: s.Additional,
	}
	b, err := resp.Marshal()
	if err != nil {
		return mustMarshal(dns.BuildErrorResponse(req, dns.RCodeServFail)), "marshal-error"
	}
	if len(s.Answer) == 0 {
		return b, "negative"
	}
	return b, "answer"
}

// authoritative decides the AA header bit from the per-record Auth
// flags: answers from our zones set it, forwarded answers do not, and
// a referral (non-authoritative NS records, no answer) leaves it clear.
func authoritative(s resolvers.Sections) bool {
	for _, rr := range s.Answer {
		if rr.Auth {
			return true
		}
	}
	if len(s.Answer) == 0 {
		for _, rr := range s.Authority {
			if rr.Auth {
				return true
			}
		}
	}
	return false
}

// logRequest logs DNS request details at debug level.
func (h *QueryHandler) logRequest(
	ctx context.Context,
	transport, src string,
	parsed dns.Packet,
	q dns.Question,
	reqLen int,
	source string,
) {
	if h.Logger == nil || !h.Logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	h.Logger.Debug(
		"dns request",
		"transport", transport,
		"src", src,
		"id", int(parsed.Header.ID),
		"qname", q.Name,
		"qtype", q.Type.String(),
		"bytes", reqLen,
		"source", source,
	)
}

// mustMarshal serializes a DNS packet, returning nil on error.
func mustMarshal(p dns.Packet) []byte {
	b, err := p.Marshal()
	if err != nil {
		return nil
	}
	return b
}

// tryBuildErrorFromRaw attempts to construct an error response from raw bytes.
// This is used when request parsing fails but we can still extract enough
// information (transaction ID, question) to build a valid error response.
//
// Returns nil if even the header cannot be parsed.
func tryBuildErrorFromRaw(reqBytes []byte, rcode dns.RCode) []byte {
	off := 0
	h, err := dns.ParseHeader(reqBytes, &off)
	if err != nil {
		return nil
	}

	// Try to include the question in the error response
	qd := int(h.QDCount)
	if qd <= 0 {
		p := dns.Packet{Header: dns.Header{ID: h.ID, Flags: h.Flags}, Questions: nil}
		b, _ := dns.BuildErrorResponse(p, rcode).Marshal()
		return b
	}

	q, err := dns.ParseQuestion(reqBytes, &off)
	if err != nil {
		return nil
	}
	p := dns.Packet{Header: dns.Header{ID: h.ID, Flags: h.Flags}, Questions: []dns.Question{q}}
	b, _ := dns.BuildErrorResponse(p, rcode).Marshal()
	return b
}
