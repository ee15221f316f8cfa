package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/Ramsey-B/clover/pkg/models"
)

// EventType identifies a catalog change event
type EventType string

const (
	EventProductCreated EventType = "product.created"
	EventProductMerged  EventType = "product.merged"
	EventListingMerged  EventType = "listing.merged"
	EventReviewResolved EventType = "review.resolved"
)

// SchemaVersion is bumped on breaking envelope changes
const SchemaVersion = "1.0"

// BaseEvent is the common envelope for all catalog events
type BaseEvent struct {
	EventID       string    `json:"event_id"`
	EventType     EventType `json:"event_type"`
	SchemaVersion string    `json:"schema_version"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewBaseEvent creates an event envelope
func NewBaseEvent(eventType EventType) BaseEvent {
	return BaseEvent{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		SchemaVersion: SchemaVersion,
		Timestamp:     time.Now().UTC(),
	}
}

// ProductCreatedEvent announces a new parent product
type ProductCreatedEvent struct {
	BaseEvent
	ProductID string   `json:"product_id"`
	Name      string   `json:"name"`
	BrandName string   `json:"brand_name"`
	Category  *string  `json:"category,omitempty"`
	IsActive  bool     `json:"is_active"`
	THC       *float64 `json:"thc_percent,omitempty"`
	CBD       *float64 `json:"cbd_percent,omitempty"`
}

// ProductMergedEvent announces that a duplicate parent folded into a survivor
type ProductMergedEvent struct {
	BaseEvent
	WinnerID string `json:"winner_id"`
	LoserID  string `json:"loser_id"`
}

// ListingMergedEvent announces that a scraped listing matched an existing
// parent and contributed price data
type ListingMergedEvent struct {
	BaseEvent
	ProductID  string  `json:"product_id"`
	SourceID   string  `json:"source_id"`
	Confidence float64 `json:"confidence"`
}

// ReviewResolvedEvent announces an operator resolution
type ReviewResolvedEvent struct {
	BaseEvent
	RecordID   string              `json:"record_id"`
	Kind       models.ReviewKind   `json:"kind"`
	Status     models.ReviewStatus `json:"status"`
	ProductID  *string             `json:"product_id,omitempty"`
	SourceID   string              `json:"source_id"`
	ResolvedBy *string             `json:"resolved_by,omitempty"`
}
