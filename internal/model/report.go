package model

import "time"

// Report is the complete result of scanning one page
type Report struct {
	Subject   string    `json:"subject"`              // Human-readable page subject
	SourceURL string    `json:"source_url,omitempty"` // URL or file that was scanned
	FetchedAt time.Time `json:"fetched_at"`           // When the scan occurred
	FetchMeta FetchMeta `json:"fetch_meta"`           // HTTP metadata (empty for local input)

	HasHistoricalData bool `json:"has_historical_data"` // Page carries person microdata

	People []*Person    `json:"people"` // Extracted family trees
	Rows   []PersonRow  `json:"rows"`   // Display projection, one row per person node
	Stats  ExtractStats `json:"stats"`

	Items     []*Item `json:"items,omitempty"` // Raw scanned items (debug output only)
	ItemsJSON string  `json:"-"`               // Items as an {"items": [...]} document, when stored with the scan
}

// FetchMeta contains HTTP metadata from fetching the source
type FetchMeta struct {
	StatusCode   int               `json:"status_code,omitempty"`
	ContentType  string            `json:"content_type,omitempty"`
	LastModified string            `json:"last_modified,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	FromCache    bool              `json:"from_cache,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
}

// PersonRow is a flattened, display-ready view of one person node.
type PersonRow struct {
	Depth      int          `json:"depth"`
	Relation   Relation     `json:"relation"`
	Name       string       `json:"name"`
	Birth      string       `json:"birth,omitempty"`
	BirthPlace string       `json:"birth_place,omitempty"`
	Death      string       `json:"death,omitempty"`
	DeathPlace string       `json:"death_place,omitempty"`
	Links      []SearchLink `json:"links,omitempty"`
	Clipboard  string       `json:"clipboard,omitempty"`
}

// ExtractStats summarizes what the extractor saw
type ExtractStats struct {
	Items   int `json:"items"`   // Top-level items scanned
	Persons int `json:"persons"` // Person nodes across all trees
	Roots   int `json:"roots"`   // Top-level persons
}
