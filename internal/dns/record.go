package dns

import (
	"encoding/binary"
	"fmt"

	"github.com/bastiondns/bastiondns/internal/helpers"
)

// Rdata is the typed payload of a resource record. Implementations carry
// parsed fields for the record types the server interprets; everything else
// travels as OpaqueData so it survives a parse/marshal round trip.
type Rdata interface {
	// Type returns the DNS record type this payload encodes.
	Type() RecordType

	// MarshalRData marshals the payload to wire format (RDATA only,
	// without the RR envelope).
	MarshalRData() ([]byte, error)

	// String returns the payload in zone-file presentation form.
	String() string
}

// RR is a resource record: an envelope of owner name, class, and TTL around
// a typed payload.
//
// Auth marks whether this server answers for the record authoritatively
// (referral NS records are not, RFC 2181 Section 6.1). It drives the AA
// header bit when a response is assembled and is not itself wire data.
type RR struct {
	Name  string
	Class RecordClass
	TTL   uint32
	Auth  bool
	Data  Rdata
}

// Type returns the record type of the payload.
func (rr RR) Type() RecordType { return rr.Data.Type() }

// ParseRecord parses a resource record from wire format.
// It advances *off past the parsed record on success.
func ParseRecord(msg []byte, off *int) (RR, error) {
	name, err := DecodeName(msg, off)
	if err != nil {
		return RR{}, err
	}
	if *off+10 > len(msg) {
		return RR{}, fmt.Errorf("%w: unexpected EOF while reading DNS record", ErrDNSError)
	}
	rrType := RecordType(binary.BigEndian.Uint16(msg[*off : *off+2]))
	rrClass := RecordClass(binary.BigEndian.Uint16(msg[*off+2 : *off+4]))
	ttl := binary.BigEndian.Uint32(msg[*off+4 : *off+8])
	rdlen := binary.BigEndian.Uint16(msg[*off+8 : *off+10])
	*off += 10
	start := *off
	if start+int(rdlen) > len(msg) {
		return RR{}, fmt.Errorf("%w: unexpected EOF while reading DNS record rdata", ErrDNSError)
	}

	data, err := parseRData(rrType, msg, off, start, int(rdlen))
	if err != nil {
		return RR{}, err
	}
	return RR{Name: name, Class: rrClass, TTL: ttl, Data: data}, nil
}

// parseRData parses RDATA into a typed payload based on record type.
//
// Parsed types are the ones the resolution engine interprets: addresses,
// name targets, MX, SOA, and TXT. Everything else (OPT, SRV, CAA, DNSSEC
// types, ...) is preserved opaquely.
func parseRData(rt RecordType, msg []byte, off *int, start, rdlen int) (Rdata, error) {
	switch rt {
	case TypeA, TypeAAAA:
		return ParseIPRData(msg, off, rdlen)
	case TypeCNAME, TypeNS, TypePTR:
		return ParseNameRData(msg, off, start, rdlen, rt)
	case TypeMX:
		return ParseMXRData(msg, off, start, rdlen)
	case TypeSOA:
		return ParseSOARData(msg, off, start, rdlen)
	case TypeTXT:
		return ParseTXTRData(msg, off, rdlen)
	default:
		return ParseOpaqueRData(msg, off, rdlen, rt)
	}
}

// MarshalRecord converts an RR to wire-format bytes.
// An empty owner name encodes as the root name (a single zero byte).
func MarshalRecord(rr RR) ([]byte, error) {
	rdata, err := rr.Data.MarshalRData()
	if err != nil {
		return nil, err
	}

	nameWire := []byte{0}
	if rr.Name != "" {
		b, err := EncodeName(rr.Name)
		if err != nil {
			return nil, err
		}
		nameWire = b
	}

	if len(rdata) > 65535 {
		return nil, fmt.Errorf("%w: rdata too large: %d bytes (max 65535)", ErrDNSError, len(rdata))
	}
	out := make([]byte, 0, len(nameWire)+10+len(rdata))
	out = append(out, nameWire...)
	fixed := make([]byte, 10)
	binary.BigEndian.PutUint16(fixed[0:2], uint16(rr.Data.Type()))
	binary.BigEndian.PutUint16(fixed[2:4], uint16(rr.Class))
	binary.BigEndian.PutUint32(fixed[4:8], rr.TTL)
	binary.BigEndian.PutUint16(fixed[8:10], helpers.ClampIntToUint16(len(rdata)))
	out = append(out, fixed...)
	out = append(out, rdata...)
	return out, nil
}
