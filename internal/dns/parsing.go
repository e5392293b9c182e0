package dns

import (
	"errors"
	"fmt"

	"github.com/bastiondns/bastiondns/internal/helpers"
)

// Bounds on incoming messages. Parsing rejects anything outside them
// before allocating for its contents.
const (
	MaxIncomingDNSMessageSize = 4096 // Bytes accepted from the wire
	MaxQuestions              = 4    // Question entries tolerated in a request header
	MaxRRPerSection           = 100  // Records per section
	MaxTotalRR                = 200  // Records across all sections
)

// DefaultUDPPayloadSize is the classic UDP message limit (RFC 1035
// section 2.3.4). Responses larger than this are truncated on UDP and
// the client retries over TCP.
const DefaultUDPPayloadSize = 512

// ParseRequestBounded parses and vets an incoming request: it must fit
// the size bound, be a standard query (QR clear, opcode 0), carry
// exactly one question, and stay inside the per-section record limits.
func ParseRequestBounded(msg []byte) (Packet, error) {
	if len(msg) > MaxIncomingDNSMessageSize {
		return Packet{}, errors.New("dns message too large")
	}
	p, err := ParsePacket(msg)
	if err != nil {
		return Packet{}, err
	}

	if isResponse(p.Header.Flags) {
		return Packet{}, errors.New("invalid packet: QR flag set (response packet received)")
	}
	if opcode := extractOpcode(p.Header.Flags); opcode != 0 {
		return Packet{}, fmt.Errorf("unsupported OpCode: %d", opcode)
	}
	if err := checkSectionCounts(p.Header); err != nil {
		return Packet{}, err
	}
	return p, nil
}

// isResponse reports whether the QR bit marks the message a response.
func isResponse(flags uint16) bool {
	return flags&QRFlag != 0
}

// extractOpcode pulls the 4-bit opcode out of bits 14-11.
func extractOpcode(flags uint16) uint16 {
	return (flags & OpcodeMask) >> 11
}

// checkSectionCounts enforces the record limits. A request must carry
// exactly one question; the other sections are bounded but tolerated,
// since EDNS clients put an OPT record in additional.
func checkSectionCounts(h Header) error {
	qd, an, ns, ar := int(h.QDCount), int(h.ANCount), int(h.NSCount), int(h.ARCount)

	switch {
	case qd > MaxQuestions:
		return errors.New("too many questions")
	case qd != 1:
		return errors.New("unsupported question count")
	case an > MaxRRPerSection || ns > MaxRRPerSection || ar > MaxRRPerSection:
		return errors.New("too many resource records")
	case an+ns+ar > MaxTotalRR:
		return errors.New("too many total resource records")
	}
	return nil
}

// BuildErrorResponse builds a response packet that carries only the
// request's questions and the given response code. The transaction ID
// and the RD flag survive from the request.
func BuildErrorResponse(req Packet, rcode RCode) Packet {
	h := Header{
		ID:      req.Header.ID,
		Flags:   BuildResponseFlags(req.Header.Flags, rcode),
		QDCount: helpers.ClampIntToUint16(len(req.Questions)),
	}
	return Packet{Header: h, Questions: req.Questions}
}

// BuildResponseFlags derives response flags from request flags: QR set,
// RD carried over, and the response code folded into the low bits.
func BuildResponseFlags(reqFlags uint16, rcode RCode) uint16 {
	flags := QRFlag | (reqFlags & RDFlag)
	return (flags &^ RCodeMask) | (uint16(rcode) & RCodeMask)
}
