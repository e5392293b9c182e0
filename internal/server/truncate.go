package server

import (
	"encoding/binary"

	"github.com/bastiondns/bastiondns/internal/dns"
)

// truncateUDPResponse clamps a response to maxSize for UDP delivery.
// An oversized response is cut back to header plus question section
// with the TC bit set, and the client is expected to retry over TCP.
// Responses that already fit pass through untouched.
func truncateUDPResponse(resp []byte, maxSize int) []byte {
	if maxSize <= 0 {
		maxSize = dns.DefaultUDPPayloadSize
	}
	if len(resp) <= maxSize || len(resp) < dns.HeaderSize {
		return resp
	}

	header := truncatedHeader(resp)

	qdcount := int(binary.BigEndian.Uint16(resp[4:6]))
	if qdcount == 0 {
		return header
	}

	// Carry the question section over only when it sits intact inside
	// the limit; otherwise the bare header has to do.
	end := questionSectionEnd(resp, qdcount)
	if end <= dns.HeaderSize || end > maxSize {
		return header
	}

	out := make([]byte, 0, end)
	out = append(out, header...)
	return append(out, resp[dns.HeaderSize:end]...)
}

// truncatedHeader copies the message header, sets TC, keeps QDCOUNT and
// zeroes the answer, authority and additional counts.
func truncatedHeader(resp []byte) []byte {
	h := make([]byte, dns.HeaderSize)
	copy(h[:6], resp[:6]) // ID, flags and QDCOUNT survive
	binary.BigEndian.PutUint16(h[2:4], binary.BigEndian.Uint16(resp[2:4])|dns.TCFlag)
	return h
}

// questionSectionEnd returns the offset one past the last question, or
// len(msg) when the section runs off the end of the message.
func questionSectionEnd(msg []byte, qdcount int) int {
	pos := dns.HeaderSize
	for q := 0; q < qdcount; q++ {
		pos = skipName(msg, pos)
		if pos+4 > len(msg) { // QTYPE + QCLASS
			return len(msg)
		}
		pos += 4
	}
	return pos
}

// skipName advances past a wire-format name: length-prefixed labels
// ending in a zero byte, or a two-byte compression pointer. The result
// may land past the end of a malformed message; callers bound it.
func skipName(msg []byte, pos int) int {
	for pos < len(msg) {
		switch l := msg[pos]; {
		case l == 0:
			return pos + 1
		case l >= 0xC0:
			// A pointer is two bytes and terminates the name.
			if pos+2 > len(msg) {
				return len(msg)
			}
			return pos + 2
		default:
			pos += 1 + int(l)
		}
	}
	return pos
}
