package dns

import "fmt"

// NameData is the payload of records that carry a single domain name
// (CNAME, NS, PTR). Target is the name the record points at.
type NameData struct {
	T      RecordType
	Target string
}

// NewCNAMEData creates a CNAME payload.
func NewCNAMEData(target string) *NameData {
	return &NameData{T: TypeCNAME, Target: target}
}

// NewNSData creates an NS payload.
func NewNSData(target string) *NameData {
	return &NameData{T: TypeNS, Target: target}
}

// NewPTRData creates a PTR payload.
func NewPTRData(target string) *NameData {
	return &NameData{T: TypePTR, Target: target}
}

// Type returns the record type (CNAME, NS, or PTR).
func (d *NameData) Type() RecordType { return d.T }

// MarshalRData marshals the target name to wire format.
func (d *NameData) MarshalRData() ([]byte, error) {
	return EncodeName(d.Target)
}

// String returns the target name.
func (d *NameData) String() string { return d.Target }

// ParseNameRData parses CNAME, NS, or PTR record RDATA from wire format.
// The target may be compressed, so decoding consumes against the whole message.
func ParseNameRData(msg []byte, off *int, start, rdlen int, rt RecordType) (*NameData, error) {
	n, err := DecodeName(msg, off)
	if err != nil {
		return nil, err
	}
	if *off-start != rdlen {
		return nil, fmt.Errorf("%w: name record RDATA length mismatch (RFC 1035 §3.3)", ErrDNSError)
	}
	return &NameData{T: rt, Target: n}, nil
}
