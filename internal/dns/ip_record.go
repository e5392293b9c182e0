package dns

import (
	"fmt"
	"net/netip"
)

// IPData is the payload of an A or AAAA record. The record type follows the
// address family: IPv4 encodes as TypeA, IPv6 as TypeAAAA.
type IPData struct {
	Addr netip.Addr
}

// NewIPData creates an address payload (A or AAAA based on address family).
func NewIPData(addr netip.Addr) *IPData {
	return &IPData{Addr: addr}
}

// Type returns TypeA for IPv4 addresses, TypeAAAA for IPv6.
func (d *IPData) Type() RecordType {
	if d.Addr.Is4() || d.Addr.Is4In6() {
		return TypeA
	}
	return TypeAAAA
}

// MarshalRData marshals the address to wire format (4 or 16 bytes).
func (d *IPData) MarshalRData() ([]byte, error) {
	if !d.Addr.IsValid() {
		return nil, fmt.Errorf("%w: invalid IP address", ErrDNSError)
	}
	if d.Addr.Is4In6() {
		a4 := d.Addr.Unmap().As4()
		return a4[:], nil
	}
	return d.Addr.AsSlice(), nil
}

// String returns the textual address form.
func (d *IPData) String() string {
	return d.Addr.String()
}

// ParseIPRData parses A or AAAA record RDATA from wire format.
func ParseIPRData(msg []byte, off *int, rdlen int) (*IPData, error) {
	if rdlen != 4 && rdlen != 16 {
		return nil, fmt.Errorf("%w: A/AAAA record must be 4/16 bytes (RFC 1035 §3.4.1), got %d", ErrDNSError, rdlen)
	}
	if *off+rdlen > len(msg) {
		return nil, fmt.Errorf("%w: unexpected EOF reading IP record (RFC 1035 §3.4.1)", ErrDNSError)
	}
	addr, ok := netip.AddrFromSlice(msg[*off : *off+rdlen])
	if !ok {
		return nil, fmt.Errorf("%w: invalid IP address bytes", ErrDNSError)
	}
	*off += rdlen
	return &IPData{Addr: addr}, nil
}
