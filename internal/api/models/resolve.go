package models

// ResolveResponse is the result of a debug lookup through the live
// resolver chain.
type ResolveResponse struct {
	Name       string       `json:"name"`
	Type       string       `json:"type"`
	Status     string       `json:"status"`
	Answer     []ZoneRecord `json:"answer,omitempty"`
	Authority  []ZoneRecord `json:"authority,omitempty"`
	Additional []ZoneRecord `json:"additional,omitempty"`
}
