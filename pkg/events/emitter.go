package events

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/models"
)

// Emitter publishes catalog events through a Kafka producer. It satisfies the
// pipeline and resolver emitter interfaces.
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates an event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitProductCreated publishes a product.created event
func (e *Emitter) EmitProductCreated(ctx context.Context, product *models.Product) error {
	event := ProductCreatedEvent{
		BaseEvent: NewBaseEvent(EventProductCreated),
		ProductID: product.ID,
		Name:      product.Name,
		BrandName: product.BrandName,
		Category:  product.Category,
		IsActive:  product.IsActive,
		THC:       product.THCPercent,
		CBD:       product.CBDPercent,
	}
	return e.publish(ctx, product.ID, event, string(EventProductCreated))
}

// EmitProductMerged publishes a product.merged event keyed by the survivor
func (e *Emitter) EmitProductMerged(ctx context.Context, winnerID, loserID string) error {
	event := ProductMergedEvent{
		BaseEvent: NewBaseEvent(EventProductMerged),
		WinnerID:  winnerID,
		LoserID:   loserID,
	}
	return e.publish(ctx, winnerID, event, string(EventProductMerged))
}

// EmitListingMerged publishes a listing.merged event
func (e *Emitter) EmitListingMerged(ctx context.Context, productID, sourceID string, confidence float64) error {
	event := ListingMergedEvent{
		BaseEvent:  NewBaseEvent(EventListingMerged),
		ProductID:  productID,
		SourceID:   sourceID,
		Confidence: confidence,
	}
	return e.publish(ctx, productID, event, string(EventListingMerged))
}

// EmitReviewResolved publishes a review.resolved event
func (e *Emitter) EmitReviewResolved(ctx context.Context, record *models.ReviewRecord) error {
	event := ReviewResolvedEvent{
		BaseEvent:  NewBaseEvent(EventReviewResolved),
		RecordID:   record.ID,
		Kind:       record.Kind,
		Status:     record.Status,
		ProductID:  record.MatchedProductID,
		SourceID:   record.SourceID,
		ResolvedBy: record.ResolvedBy,
	}
	key := record.ID
	if record.MatchedProductID != nil {
		key = *record.MatchedProductID
	}
	return e.publish(ctx, key, event, string(EventReviewResolved))
}

func (e *Emitter) publish(ctx context.Context, key string, event any, eventType string) error {
	return e.producer.Publish(ctx, key, event, map[string]string{"event_type": eventType})
}
