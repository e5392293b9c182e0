package dns

import (
	"fmt"
	"strings"
)

// TXTData is the payload of a TXT record (RFC 1035 Section 3.3.14):
// one or more character-strings of up to 255 bytes each.
type TXTData struct {
	Strings []string
}

// NewTXTData creates a TXT payload from the given character-strings.
func NewTXTData(strs ...string) *TXTData {
	return &TXTData{Strings: strs}
}

// Type returns TypeTXT.
func (d *TXTData) Type() RecordType { return TypeTXT }

// MarshalRData marshals each character-string as a length byte plus bytes.
func (d *TXTData) MarshalRData() ([]byte, error) {
	size := 0
	for _, s := range d.Strings {
		if len(s) > 255 {
			return nil, fmt.Errorf("%w: TXT character-string too long (%d > 255)", ErrDNSError, len(s))
		}
		size += 1 + len(s)
	}
	out := make([]byte, 0, size)
	for _, s := range d.Strings {
		out = append(out, byte(len(s)))
		out = append(out, s...)
	}
	return out, nil
}

// String returns the character-strings space-joined and quoted.
func (d *TXTData) String() string {
	quoted := make([]string, len(d.Strings))
	for i, s := range d.Strings {
		quoted[i] = `"` + s + `"`
	}
	return strings.Join(quoted, " ")
}

// ParseTXTRData parses TXT record RDATA from wire format.
func ParseTXTRData(msg []byte, off *int, rdlen int) (*TXTData, error) {
	end := *off + rdlen
	if end > len(msg) {
		return nil, fmt.Errorf("%w: unexpected EOF reading TXT record (RFC 1035 §3.3.14)", ErrDNSError)
	}
	var strs []string
	for *off < end {
		l := int(msg[*off])
		*off++
		if *off+l > end {
			return nil, fmt.Errorf("%w: TXT character-string exceeds RDATA bounds", ErrDNSError)
		}
		strs = append(strs, string(msg[*off:*off+l]))
		*off += l
	}
	return &TXTData{Strings: strs}, nil
}
