package dns

import (
	"encoding/binary"
	"fmt"
)

// SOAData is the payload of an SOA record (RFC 1035 Section 3.3.13).
//
// Minimum doubles as the negative-caching TTL (RFC 2308) and, together with
// Expire, feeds the legacy default-TTL fallback used by zone stores.
type SOAData struct {
	MName   string // primary name server
	RName   string // responsible party mailbox (dots for '@')
	Serial  uint32
	Refresh uint32
	Retry   uint32
	Expire  uint32
	Minimum uint32
}

// Type returns TypeSOA.
func (d *SOAData) Type() RecordType { return TypeSOA }

// MarshalRData marshals the SOA fields to wire format.
func (d *SOAData) MarshalRData() ([]byte, error) {
	mname, err := EncodeName(d.MName)
	if err != nil {
		return nil, err
	}
	rname, err := EncodeName(d.RName)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(mname)+len(rname)+20)
	out = append(out, mname...)
	out = append(out, rname...)
	var nums [20]byte
	binary.BigEndian.PutUint32(nums[0:4], d.Serial)
	binary.BigEndian.PutUint32(nums[4:8], d.Refresh)
	binary.BigEndian.PutUint32(nums[8:12], d.Retry)
	binary.BigEndian.PutUint32(nums[12:16], d.Expire)
	binary.BigEndian.PutUint32(nums[16:20], d.Minimum)
	return append(out, nums[:]...), nil
}

// String returns the SOA fields in zone-file presentation order.
func (d *SOAData) String() string {
	return fmt.Sprintf("%s %s %d %d %d %d %d",
		d.MName, d.RName, d.Serial, d.Refresh, d.Retry, d.Expire, d.Minimum)
}

// ParseSOARData parses SOA record RDATA from wire format.
// MNAME and RNAME may be compressed, so decoding consumes against the whole message.
func ParseSOARData(msg []byte, off *int, start, rdlen int) (*SOAData, error) {
	mname, err := DecodeName(msg, off)
	if err != nil {
		return nil, err
	}
	rname, err := DecodeName(msg, off)
	if err != nil {
		return nil, err
	}
	if *off+20 > len(msg) {
		return nil, fmt.Errorf("%w: unexpected EOF reading SOA fields (RFC 1035 §3.3.13)", ErrDNSError)
	}
	d := &SOAData{
		MName:   mname,
		RName:   rname,
		Serial:  binary.BigEndian.Uint32(msg[*off : *off+4]),
		Refresh: binary.BigEndian.Uint32(msg[*off+4 : *off+8]),
		Retry:   binary.BigEndian.Uint32(msg[*off+8 : *off+12]),
		Expire:  binary.BigEndian.Uint32(msg[*off+12 : *off+16]),
		Minimum: binary.BigEndian.Uint32(msg[*off+16 : *off+20]),
	}
	*off += 20
	if *off-start != rdlen {
		return nil, fmt.Errorf("%w: SOA record RDATA length mismatch (RFC 1035 §3.3.13)", ErrDNSError)
	}
	return d, nil
}
