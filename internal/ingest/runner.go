package ingest

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/scott-cmd11/ai-canada-pulse/internal/models"
)

const (
	ingestLockKeyPrefix = "ingest_live:lock"
	ingestLockMinTTL    = 600 * time.Second

	StatusOK          = "ok"
	StatusError       = "error"
	StatusSkippedLock = "skipped_lock"
)

// RunStore is the slice of db.Store the runner needs for state and run
// bookkeeping.
type RunStore interface {
	GetSourceState(ctx context.Context, sourceKey string) (*models.SourceState, error)
	SaveSourceState(ctx context.Context, st *models.SourceState) error
	InsertSourceRun(ctx context.Context, run *models.SourceRun) error
}

// Runner executes one source end-to-end under the per-source distributed
// lock.
type Runner struct {
	store  RunStore
	writer *Writer
	redis  redis.UniversalClient
	now    func() time.Time
}

func NewRunner(store RunStore, writer *Writer, client redis.UniversalClient) *Runner {
	return &Runner{
		store:  store,
		writer: writer,
		redis:  client,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func lockKeyFor(sourceKey string) string {
	return fmt.Sprintf("%s:%s", ingestLockKeyPrefix, sourceKey)
}

// RunSource runs one ingestion cycle. It always records a SourceRun and
// returns a health entry for the snapshot merge, whatever happened.
func (r *Runner) RunSource(ctx context.Context, def SourceDefinition, adapter Adapter) HealthEntry {
	startedAt := r.now()

	lockKey := lockKeyFor(def.Key)
	lockToken := uuid.New().String()
	lockTTL := time.Duration(def.CadenceMinutes) * 120 * time.Second
	if lockTTL < ingestLockMinTTL {
		lockTTL = ingestLockMinTTL
	}

	acquired, err := r.redis.SetNX(ctx, lockKey, lockToken, lockTTL).Result()
	if err != nil {
		log.Printf("lock attempt for %s: %v", def.Key, err)
	}
	if !acquired {
		return r.recordSkippedLock(ctx, def, startedAt)
	}
	defer r.releaseLock(ctx, lockKey, lockToken)

	fetched, accepted, inserted, duplicates, writeErrors := 0, 0, 0, 0, 0
	status := StatusOK
	runErr := ""

	state, stateErr := r.store.GetSourceState(ctx, def.Key)
	if stateErr != nil {
		log.Printf("load state for %s: %v", def.Key, stateErr)
		state = &models.SourceState{SourceKey: def.Key}
	}

	candidates, fetchErr := adapter.Fetch(ctx, def.FetchLimit)
	var finishedAt time.Time
	if fetchErr != nil {
		status = StatusError
		runErr = fetchErr.Error()
		finishedAt = r.now()
		state.LastErrorAt = &finishedAt
		state.LastError = truncateError(runErr)
		state.ConsecutiveFailures++
		backoff := backoffMinutes(def.CadenceMinutes, state.ConsecutiveFailures)
		next := finishedAt.Add(time.Duration(backoff) * time.Minute)
		state.NextRunAt = &next
	} else {
		fetched = len(candidates)
		for _, candidate := range candidates {
			if !IsCanadaRelevant(candidate, MinConfidence, MinCanadaRelevance) {
				continue
			}
			accepted++
			rec := candidate.AIDevelopment
			switch r.writer.Write(ctx, &rec) {
			case WriteInserted:
				inserted++
			case WriteDuplicate:
				duplicates++
			case WriteFailed:
				writeErrors++
			}
		}

		if inserted > 0 {
			r.writer.RefreshViews(ctx)
		}

		finishedAt = r.now()
		state.LastSuccessAt = &finishedAt
		state.LastErrorAt = nil
		state.LastError = ""
		state.ConsecutiveFailures = 0
		next := finishedAt.Add(time.Duration(def.CadenceMinutes) * time.Minute)
		state.NextRunAt = &next
	}

	state.UpdatedAt = finishedAt
	if err := r.store.SaveSourceState(ctx, state); err != nil {
		log.Printf("save state for %s: %v", def.Key, err)
	}

	durationMS := int(finishedAt.Sub(startedAt).Milliseconds())
	r.insertRun(ctx, def, status, startedAt, finishedAt, durationMS, fetched, accepted, inserted, duplicates, writeErrors, runErr)

	entry := HealthEntry{
		Source:          def.Key,
		DisplayName:     def.DisplayName,
		Status:          status,
		Fetched:         fetched,
		Accepted:        accepted,
		Inserted:        inserted,
		Duplicates:      duplicates,
		WriteErrors:     writeErrors,
		DurationMS:      durationMS,
		LastRun:         models.ISOFormat(finishedAt),
		Error:           runErr,
		CadenceMinutes:  def.CadenceMinutes,
		AcquisitionMode: def.AcquisitionMode,
		SourceType:      def.SourceType,
		Enabled:         def.Enabled,
	}

	failures := state.ConsecutiveFailures
	entry.ConsecutiveFailures = &failures
	if state.LastSuccessAt != nil {
		lag := int(finishedAt.Sub(*state.LastSuccessAt).Minutes())
		if lag < 0 {
			lag = 0
		}
		entry.FreshnessLagMinutes = &lag
		iso := models.ISOFormat(*state.LastSuccessAt)
		entry.LastSuccessAt = &iso
	}
	if state.NextRunAt != nil {
		iso := models.ISOFormat(*state.NextRunAt)
		entry.NextRunAt = &iso
	}
	if state.LastErrorAt != nil {
		iso := models.ISOFormat(*state.LastErrorAt)
		entry.LastErrorAt = &iso
	}

	return entry
}

func (r *Runner) recordSkippedLock(ctx context.Context, def SourceDefinition, startedAt time.Time) HealthEntry {
	finishedAt := r.now()
	durationMS := int(finishedAt.Sub(startedAt).Milliseconds())

	state, err := r.store.GetSourceState(ctx, def.Key)
	if err != nil {
		log.Printf("load state for %s: %v", def.Key, err)
		state = &models.SourceState{SourceKey: def.Key}
	}
	next := finishedAt.Add(time.Minute)
	state.NextRunAt = &next
	state.UpdatedAt = finishedAt
	if err := r.store.SaveSourceState(ctx, state); err != nil {
		log.Printf("save state for %s: %v", def.Key, err)
	}

	r.insertRun(ctx, def, StatusSkippedLock, startedAt, finishedAt, durationMS, 0, 0, 0, 0, 0, "")

	nextISO := models.ISOFormat(next)
	return HealthEntry{
		Source:          def.Key,
		DisplayName:     def.DisplayName,
		Status:          StatusSkippedLock,
		DurationMS:      durationMS,
		LastRun:         models.ISOFormat(finishedAt),
		CadenceMinutes:  def.CadenceMinutes,
		AcquisitionMode: def.AcquisitionMode,
		SourceType:      def.SourceType,
		Enabled:         def.Enabled,
		NextRunAt:       &nextISO,
	}
}

func (r *Runner) insertRun(ctx context.Context, def SourceDefinition, status string, startedAt, finishedAt time.Time, durationMS, fetched, accepted, inserted, duplicates, writeErrors int, runErr string) {
	run := &models.SourceRun{
		ID:          uuid.New(),
		SourceKey:   def.Key,
		Status:      status,
		StartedAt:   startedAt,
		FinishedAt:  finishedAt,
		DurationMS:  durationMS,
		Fetched:     fetched,
		Accepted:    accepted,
		Inserted:    inserted,
		Duplicates:  duplicates,
		WriteErrors: writeErrors,
		Error:       runErr,
		Details: map[string]any{
			"display_name":     def.DisplayName,
			"cadence_minutes":  def.CadenceMinutes,
			"acquisition_mode": def.AcquisitionMode,
		},
	}
	if err := r.store.InsertSourceRun(ctx, run); err != nil {
		log.Printf("record run for %s: %v", def.Key, err)
	}
}

// releaseLock deletes the lock only while it still holds our token. The
// GET-compare-DEL pair leaves the same narrow race the TTL already bounds.
func (r *Runner) releaseLock(ctx context.Context, lockKey, token string) {
	current, err := r.redis.Get(ctx, lockKey).Result()
	if err != nil {
		return
	}
	if current == token {
		if err := r.redis.Del(ctx, lockKey).Err(); err != nil {
			log.Printf("release lock %s: %v", lockKey, err)
		}
	}
}

func truncateError(msg string) string {
	if len(msg) > 2000 {
		return msg[:2000]
	}
	return msg
}

// backoffMinutes doubles per consecutive failure, multiplier capped at 8x
// and the whole delay at six hours.
func backoffMinutes(cadenceMinutes, failures int) int {
	exp := failures
	if exp > 4 {
		exp = 4
	}
	multiplier := 1 << exp
	if multiplier > 8 {
		multiplier = 8
	}
	delay := cadenceMinutes * multiplier
	if delay > 360 {
		delay = 360
	}
	return delay
}
