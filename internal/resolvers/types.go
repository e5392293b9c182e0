// Package resolvers answers DNS questions. An Authority serves one zone
// from memory, Chained walks several resolvers in order, Forwarding
// hands unanswered questions to upstream recursive servers, and
// Reloadable lets a running chain be swapped when zones change on disk.
package resolvers

import (
	"context"

	"github.com/bastiondns/bastiondns/internal/dns"
)

// Sections is a resolved answer split the way the DNS message format
// wants it: answers, authority records and additional records. A lookup
// either succeeds with Sections or fails with an error; there is no
// partial result.
type Sections struct {
	Answer     []dns.RR
	Authority  []dns.RR
	Additional []dns.RR
}

// Empty reports whether no section holds any record.
func (s Sections) Empty() bool {
	return len(s.Answer) == 0 && len(s.Authority) == 0 && len(s.Additional) == 0
}

// Resolver answers a single DNS question.
//
// Lookup returns ErrNameNotFound when the resolver is authoritative for
// the name and the name does not exist, and ErrNotInZone when the name
// is none of its business. Any other error means the resolver tried and
// failed.
type Resolver interface {
	Lookup(ctx context.Context, name string, qclass dns.RecordClass, qtype dns.RecordType) (Sections, error)

	// Close releases resources. Resolvers must tolerate Close after
	// Close.
	Close() error
}

// ZoneTransferrer is the optional ability to dump an entire zone in
// transfer order: the SOA record first and repeated last, every other
// record in between.
type ZoneTransferrer interface {
	LookupZone(ctx context.Context, name string) ([]dns.RR, error)
}
