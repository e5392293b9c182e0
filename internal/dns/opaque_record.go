package dns

import (
	"encoding/hex"
	"fmt"
)

// OpaqueData is the payload of a record type the server does not interpret.
// The raw RDATA bytes are preserved so the record can be re-marshaled intact.
type OpaqueData struct {
	T    RecordType
	Data []byte
}

// NewOpaqueData creates an opaque payload for unknown/unsupported types.
func NewOpaqueData(rt RecordType, data []byte) *OpaqueData {
	return &OpaqueData{T: rt, Data: data}
}

// Type returns the record type.
func (d *OpaqueData) Type() RecordType { return d.T }

// MarshalRData returns the raw RDATA bytes unchanged.
func (d *OpaqueData) MarshalRData() ([]byte, error) {
	return d.Data, nil
}

// String returns the RDATA in RFC 3597 unknown-data notation.
func (d *OpaqueData) String() string {
	return fmt.Sprintf(`\# %d %s`, len(d.Data), hex.EncodeToString(d.Data))
}

// ParseOpaqueRData copies raw RDATA for types without dedicated parsing.
func ParseOpaqueRData(msg []byte, off *int, rdlen int, rt RecordType) (*OpaqueData, error) {
	if *off+rdlen > len(msg) {
		return nil, fmt.Errorf("%w: unexpected EOF reading record rdata", ErrDNSError)
	}
	b := make([]byte, rdlen)
	copy(b, msg[*off:*off+rdlen])
	*off += rdlen
	return &OpaqueData{T: rt, Data: b}, nil
}
