package dns

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Example.COM", "example.com"},
		{"example.com.", "example.com"},
		{"EXAMPLE.COM.", "example.com"},
		{"example.com", "example.com"},
		{".", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeName(tt.in), "NormalizeName(%q)", tt.in)
	}
}

func TestIsSubdomainOf(t *testing.T) {
	tests := []struct {
		child    string
		ancestor string
		want     bool
	}{
		{"www.example.com", "example.com", true},
		{"example.com", "example.com", true},
		{"Example.COM.", "example.com", true},
		{"a.b.c.example.com", "example.com", true},
		{"wexample.com", "example.com", false},
		{"example.com", "www.example.com", false},
		{"example.net", "example.com", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsSubdomainOf(tt.child, tt.ancestor),
			"IsSubdomainOf(%q, %q)", tt.child, tt.ancestor)
	}
}

func TestEncodeName(t *testing.T) {
	b, err := EncodeName("google.com")
	require.NoError(t, err)
	exp := []byte{6, 'g', 'o', 'o', 'g', 'l', 'e', 3, 'c', 'o', 'm', 0}
	assert.Equal(t, exp, b)
}

func TestEncodeNameRoot(t *testing.T) {
	b, err := EncodeName(".")
	require.NoError(t, err)
	assert.Equal(t, []byte{0}, b)
}

func TestEncodeNameTooLong(t *testing.T) {
	// Four 62-byte labels push the encoded form past 255 bytes.
	label := strings.Repeat("a", 62)
	name := strings.Join([]string{label, label, label, label}, ".")
	_, err := EncodeName(name)
	assert.ErrorIs(t, err, ErrDNSError)
}

func TestDecodeName_Uncompressed(t *testing.T) {
	msg := []byte{3, 'w', 'w', 'w', 7, 'e', 'x', 'a', 'm', 'p', 'l', 'e', 3, 'c', 'o', 'm', 0}
	off := 0
	n, err := DecodeName(msg, &off)
	require.NoError(t, err)
	assert.Equal(t, "www.example.com", n)
	assert.Equal(t, len(msg), off)
}

func TestDecodeName_Compressed(t *testing.T) {
	// "example.com" at offset 0, then "www" + pointer back to it.
	msg := []byte{
		7, 'e', 'x', 'a', 'm', 'p', 'l', 'e', 3, 'c', 'o', 'm', 0, // offset 0
		3, 'w', 'w', 'w', 0xC0, 0x00, // offset 13
	}
	off := 13
	n, err := DecodeName(msg, &off)
	require.NoError(t, err)
	assert.Equal(t, "www.example.com", n)
	assert.Equal(t, len(msg), off, "offset should land just past the pointer")
}

func TestDecodeName_PointerLoop(t *testing.T) {
	// Two pointers chasing each other.
	msg := []byte{0xC0, 0x02, 0xC0, 0x00}
	off := 0
	_, err := DecodeName(msg, &off)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDNSError)
}

func TestDecodeName_PointerToSelf(t *testing.T) {
	msg := []byte{0xC0, 0x00}
	off := 0
	_, err := DecodeName(msg, &off)
	assert.ErrorIs(t, err, ErrDNSError)
}

func TestDecodeName_PointerOutOfBounds(t *testing.T) {
	msg := []byte{0xC0, 0x7F}
	off := 0
	_, err := DecodeName(msg, &off)
	assert.ErrorIs(t, err, ErrDNSError)
}

func TestDecodeName_ReservedLabelBits(t *testing.T) {
	// 01xxxxxx and 10xxxxxx label types are reserved.
	for _, b := range []byte{0x40, 0x80} {
		msg := []byte{b | 3, 'w', 'w', 'w', 0}
		off := 0
		_, err := DecodeName(msg, &off)
		assert.ErrorIs(t, err, ErrDNSError, "label byte 0x%02x", b|3)
	}
}

func TestDecodeName_Truncated(t *testing.T) {
	msg := []byte{3, 'w', 'w'}
	off := 0
	_, err := DecodeName(msg, &off)
	assert.ErrorIs(t, err, ErrDNSError)
}
