package zone

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
	"sync"

	"github.com/bastiondns/bastiondns/internal/dns"
)

// RecordBuilder constructs a typed rdata payload from the whitespace
// tokens following the type keyword on a record line. Domain names in
// the rdata are resolved against origin so that relative names come out
// absolute.
type RecordBuilder func(rdata []string, origin string) (dns.Rdata, error)

var (
	buildersMu sync.RWMutex
	builders   = map[string]RecordBuilder{
		"SOA":   buildSOA,
		"NS":    buildNS,
		"A":     buildA,
		"AAAA":  buildAAAA,
		"CNAME": buildCNAME,
		"MX":    buildMX,
		"TXT":   buildTXT,
		"PTR":   buildPTR,
	}
)

// RegisterType adds or replaces the constructor for a record-type
// keyword, extending what the loaders accept. The keyword is stored
// upper-case; record lines must spell the mnemonic the customary way
// ("A", not "a") to match it.
func RegisterType(keyword string, build RecordBuilder) {
	buildersMu.Lock()
	defer buildersMu.Unlock()
	builders[strings.ToUpper(keyword)] = build
}

func lookupBuilder(keyword string) (RecordBuilder, bool) {
	buildersMu.RLock()
	defer buildersMu.RUnlock()
	b, ok := builders[keyword]
	return b, ok
}

// isTypeKeyword reports whether tok names a registered record type.
func isTypeKeyword(tok string) bool {
	_, ok := lookupBuilder(tok)
	return ok
}

func wantTokens(kind string, rdata []string, n int) error {
	if len(rdata) != n {
		return fmt.Errorf("%w: %s record wants %d rdata fields, got %d", ErrMalformedRecord, kind, n, len(rdata))
	}
	return nil
}

func buildA(rdata []string, _ string) (dns.Rdata, error) {
	if err := wantTokens("A", rdata, 1); err != nil {
		return nil, err
	}
	addr, err := netip.ParseAddr(rdata[0])
	if err != nil || !addr.Is4() {
		return nil, fmt.Errorf("%w: invalid IPv4 address %q", ErrMalformedRecord, rdata[0])
	}
	return dns.NewIPData(addr), nil
}

func buildAAAA(rdata []string, _ string) (dns.Rdata, error) {
	if err := wantTokens("AAAA", rdata, 1); err != nil {
		return nil, err
	}
	addr, err := netip.ParseAddr(rdata[0])
	if err != nil || !addr.Is6() || addr.Is4In6() {
		return nil, fmt.Errorf("%w: invalid IPv6 address %q", ErrMalformedRecord, rdata[0])
	}
	return dns.NewIPData(addr), nil
}

func buildNS(rdata []string, origin string) (dns.Rdata, error) {
	if err := wantTokens("NS", rdata, 1); err != nil {
		return nil, err
	}
	return dns.NewNSData(normalizeDomain(rdata[0], origin)), nil
}

func buildCNAME(rdata []string, origin string) (dns.Rdata, error) {
	if err := wantTokens("CNAME", rdata, 1); err != nil {
		return nil, err
	}
	return dns.NewCNAMEData(normalizeDomain(rdata[0], origin)), nil
}

func buildPTR(rdata []string, origin string) (dns.Rdata, error) {
	if err := wantTokens("PTR", rdata, 1); err != nil {
		return nil, err
	}
	return dns.NewPTRData(normalizeDomain(rdata[0], origin)), nil
}

func buildMX(rdata []string, origin string) (dns.Rdata, error) {
	if err := wantTokens("MX", rdata, 2); err != nil {
		return nil, err
	}
	pref, err := strconv.ParseUint(rdata[0], 10, 16)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid MX preference %q", ErrMalformedRecord, rdata[0])
	}
	return &dns.MXData{
		Preference: uint16(pref),
		Exchange:   normalizeDomain(rdata[1], origin),
	}, nil
}

func buildTXT(rdata []string, _ string) (dns.Rdata, error) {
	if len(rdata) == 0 {
		return nil, fmt.Errorf("%w: TXT record wants at least one string", ErrMalformedRecord)
	}
	strs := make([]string, 0, len(rdata))
	for _, tok := range rdata {
		strs = append(strs, unquote(tok))
	}
	return &dns.TXTData{Strings: strs}, nil
}

func buildSOA(rdata []string, origin string) (dns.Rdata, error) {
	if err := wantTokens("SOA", rdata, 7); err != nil {
		return nil, err
	}
	serial, err := strconv.ParseUint(rdata[2], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid SOA serial %q", ErrMalformedRecord, rdata[2])
	}
	timers := make([]uint32, 4)
	for i, tok := range rdata[3:] {
		v, err := parseTTL(tok)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid SOA timer %q", ErrMalformedRecord, tok)
		}
		timers[i] = v
	}
	return &dns.SOAData{
		MName:   normalizeDomain(rdata[0], origin),
		RName:   normalizeDomain(rdata[1], origin),
		Serial:  uint32(serial),
		Refresh: timers[0],
		Retry:   timers[1],
		Expire:  timers[2],
		Minimum: timers[3],
	}, nil
}

// unquote strips one pair of surrounding double quotes, the common way
// TXT strings are written in master files.
func unquote(tok string) string {
	if len(tok) >= 2 && tok[0] == '"' && tok[len(tok)-1] == '"' {
		return tok[1 : len(tok)-1]
	}
	return tok
}
