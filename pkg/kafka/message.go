package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Ramsey-B/clover/pkg/models"
)

// IncomingMessage wraps a raw Kafka message with its metadata
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string
}

// ParseBatch decodes the message value as a listing batch. A missing
// source_id falls back to the message header, then the message key, so
// scrapers can route batches either way.
func (m *IncomingMessage) ParseBatch() (*models.ListingBatch, error) {
	var batch models.ListingBatch
	if err := json.Unmarshal(m.Value, &batch); err != nil {
		return nil, fmt.Errorf("invalid listing batch payload: %w", err)
	}

	if batch.SourceID == "" {
		batch.SourceID = m.Headers["source_id"]
	}
	if batch.SourceID == "" {
		batch.SourceID = m.Key
	}
	if batch.SourceID == "" {
		return nil, fmt.Errorf("listing batch has no source_id")
	}

	if batch.ScrapedAt.IsZero() {
		batch.ScrapedAt = m.Timestamp
	}

	return &batch, nil
}
