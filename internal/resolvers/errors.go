package resolvers

import (
	"errors"
	"fmt"

	"github.com/bastiondns/bastiondns/internal/dns"
)

var (
	// ErrNameNotFound means the queried name falls inside a zone this
	// server is authoritative for, but the zone has no such name. The
	// answer is a definitive NXDOMAIN; nothing downstream can change it.
	ErrNameNotFound = errors.New("name does not exist in zone")

	// ErrNotInZone means the queried name lies outside the resolver's
	// authority entirely. Callers should try the next resolver in the
	// chain.
	ErrNotInZone = errors.New("name not in zone")
)

// NameError is the authoritative form of ErrNameNotFound. It carries
// the zone's SOA record so the transport layer can put it in the
// authority section of the NXDOMAIN response it builds (RFC 2308
// section 2.1). errors.Is(err, ErrNameNotFound) holds for it.
type NameError struct {
	Name string
	// Authority holds the zone SOA, when the zone has one.
	Authority []dns.RR
}

func (e *NameError) Error() string {
	return fmt.Sprintf("%s: %s", ErrNameNotFound.Error(), e.Name)
}

func (e *NameError) Unwrap() error { return ErrNameNotFound }
