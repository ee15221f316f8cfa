package models

import (
	"time"

	"github.com/lib/pq"

	"github.com/Ramsey-B/clover/pkg/database"
)

// ReviewKind identifies why a review record was created.
type ReviewKind string

const (
	// ReviewKindMatchReview is the legacy kind: the pipeline matched an
	// incoming listing to an existing parent and recorded it for audit.
	ReviewKindMatchReview ReviewKind = "match_review"
	// ReviewKindDataCleanup marks a newly created parent that failed quality
	// triage and is held inactive until an operator cleans it up.
	ReviewKindDataCleanup ReviewKind = "data_cleanup"
)

// ReviewStatus is the resolution state of a review record. Pending records
// resolve to approved, rejected, dismissed or cleaned. auto_merged is
// semi-resolved: it can still move to rejected (reject_auto_merge) or
// dismissed (dismiss, merge_duplicate). Every other status is terminal.
type ReviewStatus string

const (
	ReviewStatusPending    ReviewStatus = "pending"
	ReviewStatusAutoMerged ReviewStatus = "auto_merged"
	ReviewStatusApproved   ReviewStatus = "approved"
	ReviewStatusRejected   ReviewStatus = "rejected"
	ReviewStatusDismissed  ReviewStatus = "dismissed"
	ReviewStatusCleaned    ReviewStatus = "cleaned"
)

// Correction records an operator edit to a single field, kept for analytics
// on scraper accuracy.
type Correction struct {
	From any `json:"from"`
	To   any `json:"to"`
}

// CorrectionSet maps field name to the operator's edit.
type CorrectionSet map[string]Correction

// ReviewRecord is the audit/decision unit created whenever the pipeline
// cannot fully automate a decision. Records are never deleted; terminal
// statuses close them and they remain for analytics.
type ReviewRecord struct {
	ID     string       `json:"id" db:"id"`
	Kind   ReviewKind   `json:"kind" db:"kind"`
	Status ReviewStatus `json:"status" db:"status"`

	// Originally scraped fields, preserved verbatim.
	ScrapedName       string   `json:"scraped_name" db:"scraped_name"`
	ScrapedBrand      string   `json:"scraped_brand" db:"scraped_brand"`
	ScrapedCategory   *string  `json:"scraped_category,omitempty" db:"scraped_category"`
	ScrapedTHCPercent *float64 `json:"scraped_thc_percent,omitempty" db:"scraped_thc_percent"`
	ScrapedCBDPercent *float64 `json:"scraped_cbd_percent,omitempty" db:"scraped_cbd_percent"`
	ScrapedWeight     *string  `json:"scraped_weight,omitempty" db:"scraped_weight"`
	ScrapedPrice      *float64 `json:"scraped_price,omitempty" db:"scraped_price"`
	SourceURL         *string  `json:"source_url,omitempty" db:"source_url"`

	SourceID string `json:"source_id" db:"source_id"`

	// For match_review records: the matched parent. For data_cleanup records:
	// the just-created parent awaiting cleanup.
	MatchedProductID *string `json:"matched_product_id,omitempty" db:"matched_product_id"`

	Confidence float64        `json:"confidence" db:"confidence"`
	Issues     pq.StringArray `json:"issues" db:"issues"`

	AdminNotes  *string                       `json:"admin_notes,omitempty" db:"admin_notes"`
	Corrections database.JSONB[CorrectionSet] `json:"corrections" db:"corrections"`

	ResolvedBy *string    `json:"resolved_by,omitempty" db:"resolved_by"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty" db:"resolved_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// IsResolved reports whether the record is in a terminal status.
// auto_merged counts as resolved: it only re-opens through reject_auto_merge.
func (r *ReviewRecord) IsResolved() bool {
	return r.Status != ReviewStatusPending
}
