package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/redis/go-redis/v9"
	"github.com/scott-cmd11/ai-canada-pulse/internal/db"
	"github.com/scott-cmd11/ai-canada-pulse/internal/models"
)

// WriteOutcome classifies a single record write.
type WriteOutcome int

const (
	WriteInserted WriteOutcome = iota
	WriteDuplicate
	WriteFailed
)

// RecordStore is the slice of db.Store the writer needs. Tests provide a
// fake.
type RecordStore interface {
	InsertDevelopment(ctx context.Context, d *models.AIDevelopment) error
	RefreshStatViews(ctx context.Context) error
}

// Writer owns dedup inserts and the pub/sub fanout of new rows.
type Writer struct {
	store   RecordStore
	redis   redis.UniversalClient
	channel string
}

func NewWriter(store RecordStore, client redis.UniversalClient, channel string) *Writer {
	return &Writer{store: store, redis: client, channel: channel}
}

// Write inserts one record. Duplicate detection is only by the unique hash
// constraint, never a pre-read. On insert the record is published; publish
// failure is logged and never rolls back the row.
func (w *Writer) Write(ctx context.Context, rec *models.AIDevelopment) WriteOutcome {
	if err := w.store.InsertDevelopment(ctx, rec); err != nil {
		if errors.Is(err, db.ErrDuplicateHash) {
			return WriteDuplicate
		}
		log.Printf("write error for %s: %v", rec.SourceID, err)
		return WriteFailed
	}

	w.publish(ctx, rec)
	return WriteInserted
}

func (w *Writer) publish(ctx context.Context, rec *models.AIDevelopment) {
	payload, err := json.Marshal(EventPayload(rec))
	if err != nil {
		log.Printf("encode publish payload for %s: %v", rec.SourceID, err)
		return
	}
	if err := w.redis.Publish(ctx, w.channel, payload).Err(); err != nil {
		log.Printf("publish %s to %s: %v", rec.SourceID, w.channel, err)
	}
}

// EventPayload is the canonical wire shape for the new-item channel:
// lowercase enums and isoformat timestamps.
func EventPayload(rec *models.AIDevelopment) map[string]any {
	entities := rec.Entities
	if entities == nil {
		entities = []string{}
	}
	tags := rec.Tags
	if tags == nil {
		tags = []string{}
	}
	return map[string]any{
		"id":           rec.ID.String(),
		"source_id":    rec.SourceID,
		"source_type":  string(rec.SourceType),
		"category":     string(rec.Category),
		"title":        rec.Title,
		"url":          rec.URL,
		"publisher":    rec.Publisher,
		"published_at": models.ISOFormat(rec.PublishedAt),
		"ingested_at":  models.ISOFormat(rec.IngestedAt),
		"language":     rec.Language,
		"jurisdiction": rec.Jurisdiction,
		"entities":     entities,
		"tags":         tags,
		"hash":         rec.Hash,
		"confidence":   rec.Confidence,
	}
}

// RefreshViews refreshes the materialized stats views. Best-effort: the
// caller only cares that it was attempted.
func (w *Writer) RefreshViews(ctx context.Context) {
	if err := w.store.RefreshStatViews(ctx); err != nil {
		log.Printf("refresh stat views: %v", err)
	}
}
