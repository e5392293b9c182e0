package resolvers

import (
	"context"
	"sync"

	"github.com/bastiondns/bastiondns/internal/dns"
)

// Outcome pairs one resolver's sections with its error, keeping track
// of which branch produced it so merged results stay in branch order.
type Outcome struct {
	Sections Sections
	Err      error
}

// Merge concatenates the sections of every successful outcome, in the
// order the outcomes are given. Failed branches contribute nothing; a
// result with every branch failed is simply empty.
func Merge(outcomes []Outcome) Sections {
	var merged Sections
	for _, o := range outcomes {
		if o.Err != nil {
			continue
		}
		merged.Answer = append(merged.Answer, o.Sections.Answer...)
		merged.Authority = append(merged.Authority, o.Sections.Authority...)
		merged.Additional = append(merged.Additional, o.Sections.Additional...)
	}
	return merged
}

// LookupAll asks every resolver the same question concurrently and
// merges whatever succeeded. Branch order is preserved regardless of
// completion order.
func LookupAll(ctx context.Context, rs []Resolver, name string, qclass dns.RecordClass, qtype dns.RecordType) Sections {
	outcomes := make([]Outcome, len(rs))
	var wg sync.WaitGroup
	for i, r := range rs {
		wg.Add(1)
		go func(i int, r Resolver) {
			defer wg.Done()
			s, err := r.Lookup(ctx, name, qclass, qtype)
			outcomes[i] = Outcome{Sections: s, Err: err}
		}(i, r)
	}
	wg.Wait()
	return Merge(outcomes)
}
