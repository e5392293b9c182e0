package models

import "time"

// ZoneSummary is a brief zone description as recorded in the catalog.
type ZoneSummary struct {
	Origin   string     `json:"origin"`
	Source   string     `json:"source,omitempty"`
	Format   string     `json:"format,omitempty"`
	Enabled  bool       `json:"enabled"`
	Serial   uint32     `json:"serial"`
	LoadedAt *time.Time `json:"loaded_at,omitempty"`
}

// ZoneListResponse contains a list of zones.
type ZoneListResponse struct {
	Zones []ZoneSummary `json:"zones"`
	Count int           `json:"count"`
}

// ZoneDetailResponse contains a full zone dump.
type ZoneDetailResponse struct {
	Origin  string       `json:"origin"`
	Serial  uint32       `json:"serial"`
	Records []ZoneRecord `json:"records"`
}

// ZoneRecord represents a single DNS record in a zone.
type ZoneRecord struct {
	Name  string `json:"name"`
	TTL   uint32 `json:"ttl"`
	Class string `json:"class"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// ZoneCreateRequest is used to create a new zone.
type ZoneCreateRequest struct {
	Origin  string       `json:"origin" binding:"required"`
	Records []ZoneRecord `json:"records"`
}
