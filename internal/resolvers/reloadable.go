package resolvers

import (
	"context"
	"fmt"
	"sync"

	"github.com/bastiondns/bastiondns/internal/dns"
)

// Reloadable wraps a resolver that can be replaced while the server is
// running, e.g. after zone files change on disk. Lookups in flight keep
// the instance they started with; new lookups see the replacement.
//
// A Reloadable with no inner resolver answers every question with
// ErrNotInZone, so a chain keeps working while zones are broken or
// still loading.
type Reloadable struct {
	mu    sync.RWMutex
	inner Resolver
}

var _ Resolver = (*Reloadable)(nil)

// NewReloadable wraps inner, which may be nil.
func NewReloadable(inner Resolver) *Reloadable {
	return &Reloadable{inner: inner}
}

// Lookup delegates to the current inner resolver.
func (r *Reloadable) Lookup(ctx context.Context, name string, qclass dns.RecordClass, qtype dns.RecordType) (Sections, error) {
	r.mu.RLock()
	inner := r.inner
	r.mu.RUnlock()

	if inner == nil {
		return Sections{}, fmt.Errorf("%w: no zones loaded", ErrNotInZone)
	}
	return inner.Lookup(ctx, name, qclass, qtype)
}

// LookupZone delegates to the current inner resolver when it supports
// zone transfers.
func (r *Reloadable) LookupZone(ctx context.Context, name string) ([]dns.RR, error) {
	r.mu.RLock()
	inner := r.inner
	r.mu.RUnlock()

	if inner == nil {
		return nil, fmt.Errorf("%w: no zones loaded", ErrNotInZone)
	}
	zt, ok := inner.(ZoneTransferrer)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotInZone, name)
	}
	return zt.LookupZone(ctx, name)
}

// Swap installs next as the inner resolver and closes the previous one.
// next may be nil to take the resolver out of service.
func (r *Reloadable) Swap(next Resolver) error {
	r.mu.Lock()
	old := r.inner
	r.inner = next
	r.mu.Unlock()

	if old != nil {
		return old.Close()
	}
	return nil
}

// Close closes the current inner resolver and leaves the Reloadable
// empty.
func (r *Reloadable) Close() error {
	return r.Swap(nil)
}
