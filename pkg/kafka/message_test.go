package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBatch(t *testing.T) {
	t.Run("payload source_id wins", func(t *testing.T) {
		msg := &IncomingMessage{
			Key:     "key-source",
			Headers: map[string]string{"source_id": "header-source"},
			Value:   []byte(`{"source_id": "payload-source", "listings": [{"name": "Blue Dream"}]}`),
		}

		batch, err := msg.ParseBatch()
		require.NoError(t, err)
		assert.Equal(t, "payload-source", batch.SourceID)
		require.Len(t, batch.Listings, 1)
		assert.Equal(t, "Blue Dream", batch.Listings[0].Name)
	})

	t.Run("falls back to header then key", func(t *testing.T) {
		msg := &IncomingMessage{
			Key:     "key-source",
			Headers: map[string]string{"source_id": "header-source"},
			Value:   []byte(`{"listings": [{"name": "Blue Dream"}]}`),
		}
		batch, err := msg.ParseBatch()
		require.NoError(t, err)
		assert.Equal(t, "header-source", batch.SourceID)

		msg.Headers = nil
		batch, err = msg.ParseBatch()
		require.NoError(t, err)
		assert.Equal(t, "key-source", batch.SourceID)
	})

	t.Run("no source_id anywhere is an error", func(t *testing.T) {
		msg := &IncomingMessage{Value: []byte(`{"listings": []}`)}
		_, err := msg.ParseBatch()
		assert.Error(t, err)
	})

	t.Run("missing scraped_at uses the message timestamp", func(t *testing.T) {
		ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		msg := &IncomingMessage{
			Key:       "src-1",
			Timestamp: ts,
			Value:     []byte(`{"listings": []}`),
		}

		batch, err := msg.ParseBatch()
		require.NoError(t, err)
		assert.Equal(t, ts, batch.ScrapedAt)
	})

	t.Run("malformed json is an error", func(t *testing.T) {
		msg := &IncomingMessage{Value: []byte(`{listings`)}
		_, err := msg.ParseBatch()
		assert.Error(t, err)
	})
}
