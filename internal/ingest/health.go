package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/scott-cmd11/ai-canada-pulse/internal/models"
)

const SourceHealthKey = "source_health:latest"

// HealthSnapshot is the composite view cached after every run. Readers
// tolerate a missing or partial snapshot.
type HealthSnapshot struct {
	UpdatedAt        string        `json:"updated_at"`
	RunStatus        string        `json:"run_status"`
	Sources          []HealthEntry `json:"sources"`
	InsertedTotal    int           `json:"inserted_total"`
	CandidatesTotal  int           `json:"candidates_total"`
	SkippedLockCount int           `json:"skipped_lock_count"`
}

// MergeHealthEntry folds one run result into the cached snapshot. Merging is
// idempotent on source key; skipped_lock_count only ever grows.
func MergeHealthEntry(ctx context.Context, client redis.UniversalClient, entry HealthEntry) error {
	var snapshot HealthSnapshot
	raw, err := client.Get(ctx, SourceHealthKey).Result()
	if err == nil && raw != "" {
		// A corrupt snapshot is discarded, not fatal.
		_ = json.Unmarshal([]byte(raw), &snapshot)
	}

	byKey := make(map[string]HealthEntry, len(snapshot.Sources)+1)
	for _, current := range snapshot.Sources {
		if current.Source != "" {
			byKey[current.Source] = current
		}
	}
	if entry.Source != "" {
		byKey[entry.Source] = entry
	}

	merged := make([]HealthEntry, 0, len(byKey))
	for _, value := range byKey {
		merged = append(merged, value)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Source < merged[j].Source
	})

	skippedLockCount := snapshot.SkippedLockCount
	if entry.Status == "skipped_lock" {
		skippedLockCount++
	}

	insertedTotal := 0
	candidatesTotal := 0
	for _, source := range merged {
		insertedTotal += source.Inserted
		candidatesTotal += source.Accepted
	}

	runStatus := "ok"
	if entry.Status != "ok" {
		runStatus = entry.Status
	}

	updated := HealthSnapshot{
		UpdatedAt:        models.ISOFormat(time.Now().UTC()),
		RunStatus:        runStatus,
		Sources:          merged,
		InsertedTotal:    insertedTotal,
		CandidatesTotal:  candidatesTotal,
		SkippedLockCount: skippedLockCount,
	}

	payload, err := json.Marshal(updated)
	if err != nil {
		return fmt.Errorf("encode health snapshot: %w", err)
	}
	if err := client.Set(ctx, SourceHealthKey, payload, 0).Err(); err != nil {
		return fmt.Errorf("store health snapshot: %w", err)
	}
	return nil
}

// ReadHealthSnapshot fetches the cached snapshot. An absent key yields an
// empty snapshot, not an error.
func ReadHealthSnapshot(ctx context.Context, client redis.UniversalClient) (*HealthSnapshot, error) {
	raw, err := client.Get(ctx, SourceHealthKey).Result()
	if err == redis.Nil {
		return &HealthSnapshot{Sources: []HealthEntry{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read health snapshot: %w", err)
	}

	var snapshot HealthSnapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return &HealthSnapshot{Sources: []HealthEntry{}}, nil
	}
	if snapshot.Sources == nil {
		snapshot.Sources = []HealthEntry{}
	}
	return &snapshot, nil
}
