package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/scott-cmd11/ai-canada-pulse/internal/db"
	"github.com/scott-cmd11/ai-canada-pulse/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecordStore struct {
	hashes    map[string]bool
	insertErr error
	refreshed int
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{hashes: make(map[string]bool)}
}

func (f *fakeRecordStore) InsertDevelopment(_ context.Context, d *models.AIDevelopment) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	if f.hashes[d.Hash] {
		return db.ErrDuplicateHash
	}
	f.hashes[d.Hash] = true
	return nil
}

func (f *fakeRecordStore) RefreshStatViews(_ context.Context) error {
	f.refreshed++
	return nil
}

func testRecord() *models.AIDevelopment {
	publishedAt := time.Date(2025, 5, 20, 14, 30, 0, 0, time.UTC)
	sourceID := "betakit-abc123"
	url := "https://betakit.com/some-story"
	return &models.AIDevelopment{
		ID:           uuid.New(),
		SourceID:     sourceID,
		SourceType:   models.SourceMedia,
		Category:     models.CategoryNews,
		Title:        "Canadian AI startup raises Series A",
		URL:          url,
		Publisher:    "BetaKit",
		PublishedAt:  publishedAt,
		IngestedAt:   publishedAt.Add(5 * time.Minute),
		Language:     "en",
		Jurisdiction: "Canada",
		Entities:     []string{"BetaKit"},
		Tags:         []string{"funding", "startup"},
		Hash:         Fingerprint(sourceID, url, publishedAt),
		Confidence:   0.88,
	}
}

func TestWriterWriteOutcomes(t *testing.T) {
	ctx := context.Background()
	store := newFakeRecordStore()
	writer := NewWriter(store, newTestRedis(t), "ai_developments:new")

	rec := testRecord()
	assert.Equal(t, WriteInserted, writer.Write(ctx, rec))
	assert.Equal(t, WriteDuplicate, writer.Write(ctx, rec))

	store.insertErr = errors.New("connection reset")
	assert.Equal(t, WriteFailed, writer.Write(ctx, rec))
}

func TestWriterPublishesOnInsertOnly(t *testing.T) {
	ctx := context.Background()
	client := newTestRedis(t)
	writer := NewWriter(newFakeRecordStore(), client, "ai_developments:new")

	pubsub := client.Subscribe(ctx, "ai_developments:new")
	defer pubsub.Close()
	_, err := pubsub.Receive(ctx)
	require.NoError(t, err)
	messages := pubsub.Channel()

	rec := testRecord()
	require.Equal(t, WriteInserted, writer.Write(ctx, rec))

	select {
	case msg := <-messages:
		var payload map[string]any
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &payload))
		assert.Equal(t, rec.SourceID, payload["source_id"])
		assert.Equal(t, "media", payload["source_type"])
		assert.Equal(t, "news", payload["category"])
		assert.Equal(t, "2025-05-20T14:30:00+00:00", payload["published_at"])
	case <-time.After(2 * time.Second):
		t.Fatal("no publish after insert")
	}

	// The duplicate write must not publish.
	require.Equal(t, WriteDuplicate, writer.Write(ctx, rec))
	select {
	case msg := <-messages:
		t.Fatalf("unexpected publish on duplicate: %s", msg.Payload)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestEventPayload(t *testing.T) {
	rec := testRecord()
	rec.Entities = nil
	rec.Tags = nil

	payload := EventPayload(rec)

	assert.Equal(t, rec.ID.String(), payload["id"])
	assert.Equal(t, "media", payload["source_type"])
	assert.Equal(t, "news", payload["category"])
	assert.Equal(t, rec.Hash, payload["hash"])
	assert.Equal(t, 0.88, payload["confidence"])
	// Nil slices surface as empty arrays on the wire.
	assert.Equal(t, []string{}, payload["entities"])
	assert.Equal(t, []string{}, payload["tags"])
}
