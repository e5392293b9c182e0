// Package dns implements the DNS wire format: header, question, and
// resource-record encoding and decoding, plus the flag and response-code
// arithmetic the servers build replies with.
//
// The implemented subset follows RFC 1034/1035 (core protocol), RFC 2308
// (negative answers), and RFC 3596 (AAAA records).
//
// A resource record is an RR envelope (owner name, class, TTL) around a
// typed Rdata payload (IPData, NameData, MXData, SOAData, ...). Payload
// types the server does not interpret are carried as OpaqueData so
// unknown records survive a parse/marshal round trip.
//
// Parse and marshal errors wrap ErrDNSError; callers branch on it with
// errors.Is rather than on message text.
package dns

import "errors"

// ErrDNSError marks malformed or out-of-spec wire data.
var ErrDNSError = errors.New("dns wire error")
