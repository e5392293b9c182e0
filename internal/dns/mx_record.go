package dns

import (
	"encoding/binary"
	"fmt"
	"strconv"
)

// MXData is the payload of an MX record (RFC 1035 Section 3.3.9):
// a 16-bit preference followed by the exchange host name.
type MXData struct {
	Preference uint16
	Exchange   string
}

// NewMXData creates an MX payload.
func NewMXData(preference uint16, exchange string) *MXData {
	return &MXData{Preference: preference, Exchange: exchange}
}

// Type returns TypeMX.
func (d *MXData) Type() RecordType { return TypeMX }

// MarshalRData marshals the preference and exchange name to wire format.
func (d *MXData) MarshalRData() ([]byte, error) {
	name, err := EncodeName(d.Exchange)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 2, 2+len(name))
	binary.BigEndian.PutUint16(out[0:2], d.Preference)
	return append(out, name...), nil
}

// String returns "<preference> <exchange>".
func (d *MXData) String() string {
	return strconv.Itoa(int(d.Preference)) + " " + d.Exchange
}

// ParseMXRData parses MX record RDATA from wire format.
// The exchange name may be compressed, so decoding consumes against the whole message.
func ParseMXRData(msg []byte, off *int, start, rdlen int) (*MXData, error) {
	if *off+2 > len(msg) {
		return nil, fmt.Errorf("%w: unexpected EOF reading MX preference (RFC 1035 §3.3.9)", ErrDNSError)
	}
	pref := binary.BigEndian.Uint16(msg[*off : *off+2])
	*off += 2
	exchange, err := DecodeName(msg, off)
	if err != nil {
		return nil, err
	}
	if *off-start != rdlen {
		return nil, fmt.Errorf("%w: MX record RDATA length mismatch (RFC 1035 §3.3.9)", ErrDNSError)
	}
	return &MXData{Preference: pref, Exchange: exchange}, nil
}
