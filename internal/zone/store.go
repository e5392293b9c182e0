// Package zone holds the in-memory record store for a single DNS zone
// and the loaders that populate it: a BIND master-file parser and a
// declarative YAML descriptor reader. Stores are built once at load
// time and only ever read afterwards, so lookups need no locking.
package zone

import (
	"strings"

	"github.com/bastiondns/bastiondns/internal/dns"
)

// Record is one zone-owned resource record: a typed payload plus an
// optional TTL. Records without their own TTL fall back to the store
// default at query time.
type Record struct {
	Data   dns.Rdata
	TTL    uint32
	HasTTL bool
}

// Store is the record set of one zone, keyed by case-folded owner name.
// It remembers first-insertion order of owner names so that zone dumps
// come out in a stable order, and it tracks the zone apex via the SOA
// record. Writes happen only during loading.
type Store struct {
	names   []string
	records map[string][]Record

	apex   string
	soa    Record
	hasSOA bool

	defaultTTL    uint32
	hasDefaultTTL bool
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{records: make(map[string][]Record)}
}

// Add appends a record under the given owner name. Owner names are
// case-folded and stripped of trailing dots for keying; the name as
// first written is kept for display. Adding an SOA record marks (or
// re-marks) the zone apex; the last SOA added wins.
func (s *Store) Add(owner string, rec Record) {
	key := dns.NormalizeName(owner)
	if _, seen := s.records[key]; !seen {
		s.names = append(s.names, strings.TrimSuffix(owner, "."))
	}
	s.records[key] = append(s.records[key], rec)

	if rec.Data.Type() == dns.TypeSOA {
		s.apex = strings.TrimSuffix(owner, ".")
		s.soa = rec
		s.hasSOA = true
	}
}

// Records returns the records stored under name, or nil when the name
// has none. Callers must not modify the returned slice.
func (s *Store) Records(name string) []Record {
	return s.records[dns.NormalizeName(name)]
}

// Names returns the owner names in first-insertion order. Callers must
// not modify the returned slice.
func (s *Store) Names() []string {
	return s.names
}

// Apex returns the zone apex, i.e. the owner name of the SOA record.
// Empty when the store holds no SOA.
func (s *Store) Apex() string {
	return s.apex
}

// SOA returns the zone's SOA record, if one was loaded.
func (s *Store) SOA() (Record, bool) {
	return s.soa, s.hasSOA
}

// SetDefaultTTL fixes the TTL applied to records that carry none of
// their own.
func (s *Store) SetDefaultTTL(ttl uint32) {
	s.defaultTTL = ttl
	s.hasDefaultTTL = true
}

// DefaultTTL returns the configured default TTL. When none was set
// explicitly it falls back to the larger of the SOA minimum and expire
// fields, a long-standing stand-in from before RFC 2308 gave the
// minimum its negative-caching meaning. Zero when the store has
// neither.
func (s *Store) DefaultTTL() uint32 {
	if s.hasDefaultTTL {
		return s.defaultTTL
	}
	if s.hasSOA {
		if soa, ok := s.soa.Data.(*dns.SOAData); ok {
			return max(soa.Minimum, soa.Expire)
		}
	}
	return 0
}

// RecordCount returns the total number of records across all owner
// names.
func (s *Store) RecordCount() int {
	n := 0
	for _, recs := range s.records {
		n += len(recs)
	}
	return n
}
