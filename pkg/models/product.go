package models

import "time"

// Product represents either a parent (canonical, unit-less) product or a
// weight variant of a parent.
//
// Invariants:
//   - a variant's ParentID always resolves to a row with IsParent=true
//   - a parent never references itself via ParentID
//   - at most one variant per (parent_id, grams_equivalent), including a
//     single unit-less variant when the weight is unknown
type Product struct {
	ID              string     `json:"id" db:"id"`
	BrandID         *string    `json:"brand_id,omitempty" db:"brand_id"`
	BrandName       string     `json:"brand_name" db:"brand_name"`
	Name            string     `json:"name" db:"name"`
	Category        *string    `json:"category,omitempty" db:"category"`
	THCPercent      *float64   `json:"thc_percent,omitempty" db:"thc_percent"`
	CBDPercent      *float64   `json:"cbd_percent,omitempty" db:"cbd_percent"`
	IsParent        bool       `json:"is_parent" db:"is_parent"`
	ParentID        *string    `json:"parent_id,omitempty" db:"parent_id"`
	Weight          *string    `json:"weight,omitempty" db:"weight"`
	GramsEquivalent *float64   `json:"grams_equivalent,omitempty" db:"grams_equivalent"`
	IsActive        bool       `json:"is_active" db:"is_active"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// Candidate converts a parent product to its match-index descriptor.
func (p *Product) Candidate() Candidate {
	return Candidate{
		ID:         p.ID,
		Name:       p.Name,
		Brand:      p.BrandName,
		THCPercent: p.THCPercent,
	}
}

// Brand is a case-insensitively unique producer name.
type Brand struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Source is a scrape source (one retail site).
type Source struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	BaseURL   *string   `json:"base_url,omitempty" db:"base_url"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// WatchlistItem is a user subscription to a parent product. Watchlist rows
// follow the surviving parent when duplicates are merged.
type WatchlistItem struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	ProductID string    `json:"product_id" db:"product_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
