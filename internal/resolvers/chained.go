package resolvers

import (
	"context"
	"errors"
	"fmt"

	"github.com/bastiondns/bastiondns/internal/dns"
)

// Chained tries several resolvers in order until one answers.
//
// The usual shape is a list of Authorities followed by a forwarder:
// each authority either answers for its zone or declares the name not
// its business, and only then does the question leave the process.
//
// ErrNameNotFound ends the walk immediately: the zone that owns the
// name has spoken, and asking anyone else would invent records the
// owner says do not exist. Every other error falls through to the next
// resolver.
type Chained struct {
	Resolvers []Resolver
}

var _ Resolver = (*Chained)(nil)

// Lookup walks the chain. Context cancellation is honored between
// hops.
func (c *Chained) Lookup(ctx context.Context, name string, qclass dns.RecordClass, qtype dns.RecordType) (Sections, error) {
	var lastErr error
	for _, r := range c.Resolvers {
		if err := ctx.Err(); err != nil {
			return Sections{}, err
		}

		s, err := r.Lookup(ctx, name, qclass, qtype)
		if err == nil {
			return s, nil
		}
		if errors.Is(err, ErrNameNotFound) {
			return Sections{}, err
		}
		lastErr = err
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("%w: %s", ErrNotInZone, name)
	}
	return Sections{}, lastErr
}

// LookupZone finds the child that serves name as a zone apex. Unlike
// Lookup, a name-not-found here only means "not my apex" and the walk
// keeps going: several authorities can share one chain and each
// transfers its own zone only.
func (c *Chained) LookupZone(ctx context.Context, name string) ([]dns.RR, error) {
	for _, r := range c.Resolvers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		zt, ok := r.(ZoneTransferrer)
		if !ok {
			continue
		}
		rrs, err := zt.LookupZone(ctx, name)
		if err == nil {
			return rrs, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNameNotFound, name)
}

// Close closes every child resolver and reports the last error; all of
// them are closed regardless.
func (c *Chained) Close() error {
	var lastErr error
	for _, r := range c.Resolvers {
		if err := r.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
