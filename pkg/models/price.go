package models

import "time"

// PriceRecord is the current price of one variant at one source. Each upsert
// that changes the amount rolls the old value into the previous_* fields, so
// the record carries a change history of depth 1 rather than a full ledger.
//
// Invariant: unique per (variant_id, source_id).
type PriceRecord struct {
	ID             string     `json:"id" db:"id"`
	VariantID      string     `json:"variant_id" db:"variant_id"`
	SourceID       string     `json:"source_id" db:"source_id"`
	Amount         float64    `json:"amount" db:"amount"`
	PreviousAmount *float64   `json:"previous_amount,omitempty" db:"previous_amount"`
	PercentChange  *float64   `json:"percent_change,omitempty" db:"percent_change"`
	LastChangedAt  *time.Time `json:"last_changed_at,omitempty" db:"last_changed_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}
