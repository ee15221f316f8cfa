package models

import (
	"encoding/json"
	"time"
)

// Listing is a single scraped product record from one retail source.
// The shape is source-agnostic; site-specific extraction happens upstream
// and the catalog core never inspects RawPayload.
type Listing struct {
	Name       string          `json:"name" validate:"required"`
	Brand      string          `json:"brand"`
	Category   string          `json:"category"`
	Price      float64         `json:"price"`
	THCPercent *float64        `json:"thc_percent,omitempty"`
	CBDPercent *float64        `json:"cbd_percent,omitempty"`
	Weight     *string         `json:"weight,omitempty"`
	SourceURL  *string         `json:"source_url,omitempty"`
	RawPayload json.RawMessage `json:"raw_payload,omitempty"`
}

// ListingBatch is one scrape run's worth of listings for a single source.
// Listings keep their scrape order; the pipeline depends on it.
type ListingBatch struct {
	SourceID  string    `json:"source_id" validate:"required"`
	ScrapedAt time.Time `json:"scraped_at"`
	Listings  []Listing `json:"listings" validate:"required"`
}

// Candidate is a lightweight descriptor of a parent product used for match
// scoring. The pipeline appends new parents to its candidate index in-run so
// later listings in the same batch can match products created earlier.
type Candidate struct {
	ID         string   `json:"id" db:"id"`
	Name       string   `json:"name" db:"name"`
	Brand      string   `json:"brand" db:"brand"`
	THCPercent *float64 `json:"thc_percent,omitempty" db:"thc_percent"`
}

// Outcome describes what the pipeline did with a listing.
type Outcome string

const (
	OutcomeMerged     Outcome = "merged"
	OutcomeNew        Outcome = "new"
	OutcomeNewFlagged Outcome = "new_flagged"
)
