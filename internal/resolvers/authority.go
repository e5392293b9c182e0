package resolvers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bastiondns/bastiondns/internal/dns"
	"github.com/bastiondns/bastiondns/internal/zone"
)

// Authority answers questions for exactly one zone out of an in-memory
// record store. The store is built by a loader once and never written
// afterwards, so lookups are lock-free and the zero allocation path is
// a map read. The Authority owns its store; nothing else may hold a
// reference to it.
type Authority struct {
	store *zone.Store
}

var (
	_ Resolver        = (*Authority)(nil)
	_ ZoneTransferrer = (*Authority)(nil)
)

// NewAuthority wraps an already-built record store.
func NewAuthority(store *zone.Store) *Authority {
	return &Authority{store: store}
}

// FromFile loads a BIND master file into a fresh Authority.
func FromFile(path string, logger *slog.Logger) (*Authority, error) {
	store, err := zone.ParseFile(path, logger)
	if err != nil {
		return nil, err
	}
	return NewAuthority(store), nil
}

// FromText parses master-file text with the given origin.
func FromText(text, origin string, logger *slog.Logger) (*Authority, error) {
	store, err := zone.Parse(text, origin, logger)
	if err != nil {
		return nil, err
	}
	return NewAuthority(store), nil
}

// FromDescriptor loads a YAML zone descriptor into a fresh Authority.
func FromDescriptor(path string) (*Authority, error) {
	store, err := zone.LoadDescriptor(path)
	if err != nil {
		return nil, err
	}
	return NewAuthority(store), nil
}

// Origin returns the zone apex this Authority serves.
func (a *Authority) Origin() string {
	return a.store.Apex()
}

// Store exposes the record store for read-only inspection.
func (a *Authority) Store() *zone.Store {
	return a.store
}

// Close is a no-op; an Authority holds only memory.
func (a *Authority) Close() error {
	return nil
}

// Lookup resolves one question against the zone.
//
// NS records for names below the apex are referrals: they go to the
// authority section unauthenticated, since the child zone is the one
// authoritative for them (RFC 2181 section 6.1). CNAME records stand in
// for the answer when nothing matched the queried type directly. When
// the whole response would otherwise be empty, the SOA record rides
// along in the authority section so resolvers can cache the negative
// answer (RFC 1034 sections 3.7 and 4.3.4, RFC 2181 section 7.1).
func (a *Authority) Lookup(_ context.Context, name string, _ dns.RecordClass, qtype dns.RecordType) (Sections, error) {
	records := a.store.Records(name)
	if len(records) == 0 {
		if dns.IsSubdomainOf(name, a.store.Apex()) {
			return Sections{}, a.nameError(name)
		}
		return Sections{}, fmt.Errorf("%w: %s", ErrNotInZone, name)
	}

	apexKey := dns.NormalizeName(a.store.Apex())
	atApex := dns.NormalizeName(name) == apexKey

	var (
		answer    []dns.RR
		authority []dns.RR
		cnames    []dns.RR
		ttl       uint32
	)
	for _, rec := range records {
		ttl = a.recordTTL(rec)
		recType := rec.Data.Type()

		switch {
		case recType == dns.TypeNS && !atApex:
			authority = append(authority, dns.RR{
				Name: name, Class: dns.ClassIN, TTL: ttl, Auth: false, Data: rec.Data,
			})
		case recType == qtype || qtype == dns.TypeANY:
			answer = append(answer, dns.RR{
				Name: name, Class: dns.ClassIN, TTL: ttl, Auth: true, Data: rec.Data,
			})
		}
		if recType == dns.TypeCNAME {
			cnames = append(cnames, dns.RR{
				Name: name, Class: dns.ClassIN, TTL: ttl, Auth: true, Data: rec.Data,
			})
		}
	}
	if len(answer) == 0 {
		answer = cnames
	}

	// RFC 1034 section 4.3.2 step 6: chase answer and authority records
	// that name other hosts and attach their addresses. When CNAMEs are
	// in play the chased addresses join the answer section itself.
	glue := a.additionalRecords(answer, authority)
	var additional []dns.RR
	if len(cnames) > 0 {
		answer = append(answer, glue...)
	} else {
		additional = glue
	}

	if len(answer) == 0 && len(authority) == 0 {
		if soa, ok := a.store.SOA(); ok {
			// ttl still holds whatever the last examined record left
			// in it.
			authority = append(authority, dns.RR{
				Name: a.store.Apex(), Class: dns.ClassIN, TTL: ttl, Auth: true, Data: soa.Data,
			})
		}
	}

	return Sections{Answer: answer, Authority: authority, Additional: additional}, nil
}

// LookupZone dumps the whole zone in transfer order: SOA first, every
// other record after it, and the SOA once more to close the frame. Only
// the apex name itself is transferable; any other name fails as
// nonexistent.
func (a *Authority) LookupZone(_ context.Context, name string) ([]dns.RR, error) {
	apex := a.store.Apex()
	if dns.NormalizeName(name) != dns.NormalizeName(apex) {
		return nil, fmt.Errorf("%w: %s", ErrNameNotFound, name)
	}
	soa, ok := a.store.SOA()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNameNotFound, name)
	}

	out := make([]dns.RR, 0, a.store.RecordCount()+1)
	out = append(out, dns.RR{
		Name: apex, Class: dns.ClassIN, TTL: a.recordTTL(soa), Auth: true, Data: soa.Data,
	})
	for _, owner := range a.store.Names() {
		for _, rec := range a.store.Records(owner) {
			if rec.Data.Type() == dns.TypeSOA {
				continue
			}
			out = append(out, dns.RR{
				Name: owner, Class: dns.ClassIN, TTL: a.recordTTL(rec), Auth: true, Data: rec.Data,
			})
		}
	}
	return append(out, out[0]), nil
}

func (a *Authority) recordTTL(rec zone.Record) uint32 {
	if rec.HasTTL {
		return rec.TTL
	}
	return a.store.DefaultTTL()
}

// nameError builds the NXDOMAIN error for name, attaching the zone SOA
// for the response's authority section.
func (a *Authority) nameError(name string) *NameError {
	ne := &NameError{Name: name}
	if soa, ok := a.store.SOA(); ok {
		ne.Authority = []dns.RR{{
			Name: a.store.Apex(), Class: dns.ClassIN, TTL: a.recordTTL(soa), Auth: true, Data: soa.Data,
		}}
	}
	return ne
}

// additionalRecords finds address records for every answer or authority
// record that points at another host: CNAME and NS targets and MX
// exchanges.
func (a *Authority) additionalRecords(answer, authority []dns.RR) []dns.RR {
	var out []dns.RR
	for _, section := range [2][]dns.RR{answer, authority} {
		for _, rr := range section {
			target, ok := additionalTarget(rr.Data)
			if !ok {
				continue
			}
			for _, rec := range a.store.Records(target) {
				t := rec.Data.Type()
				if t != dns.TypeA && t != dns.TypeAAAA {
					continue
				}
				// A zero TTL on glue reads as unset.
				ttl := rec.TTL
				if !rec.HasTTL || ttl == 0 {
					ttl = a.store.DefaultTTL()
				}
				out = append(out, dns.RR{
					Name: target, Class: dns.ClassIN, TTL: ttl, Auth: true, Data: rec.Data,
				})
			}
		}
	}
	return out
}

// additionalTarget extracts the host name a record points at, for the
// record types subject to additional-section processing.
func additionalTarget(data dns.Rdata) (string, bool) {
	switch d := data.(type) {
	case *dns.NameData:
		if d.T == dns.TypeCNAME || d.T == dns.TypeNS {
			return d.Target, true
		}
	case *dns.MXData:
		return d.Exchange, true
	}
	return "", false
}
