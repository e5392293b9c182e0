package zone

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Descriptor is the YAML form of a zone: an origin plus a flat list of
// tagged records. It is data, not code, and goes through the same
// record builders as the master-file parser.
//
//	origin: example.com
//	ttl: 3600
//	records:
//	  - {name: "@", type: SOA, value: "ns1 hostmaster 2026010100 1h 15m 1w 1h"}
//	  - {name: www, type: A, ttl: 300, value: "192.0.2.10"}
type Descriptor struct {
	Origin  string             `yaml:"origin"`
	TTL     uint32             `yaml:"ttl,omitempty"`
	Records []DescriptorRecord `yaml:"records"`
}

// DescriptorRecord is one tagged record. Value holds the rdata fields
// exactly as they would appear in a master file, whitespace separated.
// A nil TTL means the record has no TTL of its own and the store
// default applies at query time.
type DescriptorRecord struct {
	Name  string  `yaml:"name"`
	Type  string  `yaml:"type"`
	TTL   *uint32 `yaml:"ttl,omitempty"`
	Value string  `yaml:"value"`
}

// LoadDescriptor reads a YAML zone descriptor from disk.
func LoadDescriptor(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read zone descriptor: %w", err)
	}
	store, err := ParseDescriptor(data)
	if err != nil {
		return nil, fmt.Errorf("parse zone descriptor %s: %w", path, err)
	}
	return store, nil
}

// ParseDescriptor builds a record store from YAML descriptor bytes.
// Like the master-file parser it is all or nothing: any bad record
// fails the whole zone.
func ParseDescriptor(data []byte) (*Store, error) {
	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("unmarshal zone descriptor: %w", err)
	}
	return d.Build()
}

// Build materializes the descriptor into a record store.
func (d *Descriptor) Build() (*Store, error) {
	if d.Origin == "" {
		return nil, fmt.Errorf("%w: descriptor has no origin", ErrMalformedRecord)
	}
	origin := ensureAbsolute(d.Origin)

	store := NewStore()
	if d.TTL > 0 {
		store.SetDefaultTTL(d.TTL)
	}
	for i, dr := range d.Records {
		build, ok := lookupBuilder(strings.ToUpper(dr.Type))
		if !ok {
			return nil, fmt.Errorf("%w: %s (record %d)", ErrUnsupportedType, dr.Type, i)
		}
		data, err := build(strings.Fields(dr.Value), origin)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}

		name := dr.Name
		if name == "" || name == "@" {
			name = origin
		}
		rec := Record{Data: data}
		if dr.TTL != nil {
			rec.TTL = *dr.TTL
			rec.HasTTL = true
		}
		store.Add(normalizeDomain(name, origin), rec)
	}
	return store, nil
}
