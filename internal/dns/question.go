package dns

import (
	"encoding/binary"
	"fmt"
)

// Question is one entry of a message's question section (RFC 1035
// section 4.1.2): the name being asked about, the record type wanted,
// and the class.
type Question struct {
	Name  string
	Type  RecordType
	Class RecordClass
}

// Marshal serializes the question to DNS wire format.
func (q Question) Marshal() ([]byte, error) {
	name, err := EncodeName(q.Name)
	if err != nil {
		return nil, err
	}
	b := make([]byte, len(name)+4)
	n := copy(b, name)
	binary.BigEndian.PutUint16(b[n:n+2], uint16(q.Type))
	binary.BigEndian.PutUint16(b[n+2:], uint16(q.Class))
	return b, nil
}

// ParseQuestion parses a question from the message at the given offset,
// advancing *off past it on success.
func ParseQuestion(msg []byte, off *int) (Question, error) {
	name, err := DecodeName(msg, off)
	if err != nil {
		return Question{}, err
	}
	if *off+4 > len(msg) {
		return Question{}, fmt.Errorf("%w: question truncated after name", ErrDNSError)
	}
	q := Question{
		Name:  name,
		Type:  RecordType(binary.BigEndian.Uint16(msg[*off : *off+2])),
		Class: RecordClass(binary.BigEndian.Uint16(msg[*off+2 : *off+4])),
	}
	*off += 4
	return q, nil
}
