package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/scott-cmd11/ai-canada-pulse/internal/models"
)

const BackfillStatusKey = "backfill:status"

// BackfillRequest bounds one historical sweep. Dates are calendar days.
type BackfillRequest struct {
	StartDate        time.Time
	EndDate          time.Time
	PerPage          int
	MaxPagesPerMonth int
}

// MonthWindow is one [start, end] slice of the sweep.
type MonthWindow struct {
	Start time.Time
	End   time.Time
}

// MonthWindows partitions [start, end] into calendar months. The window end
// is the first day of the following month, capped at the overall end.
func MonthWindows(start, end time.Time) []MonthWindow {
	var windows []MonthWindow
	current := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	endDay := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	for !current.After(endDay) {
		nextMonth := time.Date(current.Year(), current.Month()+1, 1, 0, 0, 0, 0, time.UTC)
		windowEnd := nextMonth
		if windowEnd.After(endDay) {
			windowEnd = endDay
		}
		windows = append(windows, MonthWindow{Start: current, End: windowEnd})
		current = nextMonth
	}
	return windows
}

// Backfiller sweeps the academic source month by month, applying the looser
// backfill gate.
type Backfiller struct {
	adapter *OpenAlexAdapter
	writer  *Writer
	redis   redis.UniversalClient
	now     func() time.Time
}

func NewBackfiller(adapter *OpenAlexAdapter, writer *Writer, client redis.UniversalClient) *Backfiller {
	return &Backfiller{
		adapter: adapter,
		writer:  writer,
		redis:   client,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (b *Backfiller) setStatus(ctx context.Context, payload map[string]any) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		log.Printf("encode backfill status: %v", err)
		return
	}
	if err := b.redis.Set(ctx, BackfillStatusKey, encoded, 0).Err(); err != nil {
		log.Printf("store backfill status: %v", err)
	}
}

// Run executes the whole sweep. Progress is persisted before every new
// month so cancellation at a month boundary loses nothing.
func (b *Backfiller) Run(ctx context.Context, req BackfillRequest) error {
	perPage := req.PerPage
	if perPage < 10 {
		perPage = 10
	}
	if perPage > 200 {
		perPage = 200
	}
	maxPages := req.MaxPagesPerMonth
	if maxPages < 1 {
		maxPages = 1
	}
	if maxPages > 10 {
		maxPages = 10
	}
	endDate := req.EndDate
	if endDate.IsZero() {
		endDate = b.now()
	}

	startedAt := models.ISOFormat(b.now())
	startISO := req.StartDate.Format("2006-01-02")
	endISO := endDate.Format("2006-01-02")
	scanned := 0
	inserted := 0

	b.setStatus(ctx, map[string]any{
		"state":      "running",
		"started_at": startedAt,
		"start_date": startISO,
		"end_date":   endISO,
		"scanned":    scanned,
		"inserted":   inserted,
	})

	fail := func(err error) error {
		b.setStatus(ctx, map[string]any{
			"state":      "failed",
			"started_at": startedAt,
			"failed_at":  models.ISOFormat(b.now()),
			"start_date": startISO,
			"end_date":   endISO,
			"scanned":    scanned,
			"inserted":   inserted,
			"error":      err.Error(),
		})
		return err
	}

	for _, window := range MonthWindows(req.StartDate, endDate) {
		if err := ctx.Err(); err != nil {
			return fail(fmt.Errorf("backfill cancelled: %w", err))
		}

		records, err := b.adapter.FetchMonth(ctx, window.Start, window.End, perPage, maxPages)
		if err != nil {
			return fail(err)
		}

		for _, candidate := range records {
			scanned++
			if !IsCanadaRelevant(candidate, BackfillMinConfidence, BackfillMinCanadaRelevance) {
				continue
			}
			rec := candidate.AIDevelopment
			if b.writer.Write(ctx, &rec) == WriteInserted {
				inserted++
			}
		}

		b.setStatus(ctx, map[string]any{
			"state":         "running",
			"started_at":    startedAt,
			"start_date":    startISO,
			"end_date":      endISO,
			"current_month": window.Start.Format("2006-01-02"),
			"scanned":       scanned,
			"inserted":      inserted,
		})
	}

	b.writer.RefreshViews(ctx)

	b.setStatus(ctx, map[string]any{
		"state":       "completed",
		"started_at":  startedAt,
		"finished_at": models.ISOFormat(b.now()),
		"start_date":  startISO,
		"end_date":    endISO,
		"scanned":     scanned,
		"inserted":    inserted,
	})
	return nil
}

// ReadBackfillStatus returns the raw progress payload; {"state": "idle"}
// when no sweep has ever run.
func ReadBackfillStatus(ctx context.Context, client redis.UniversalClient) (map[string]any, error) {
	raw, err := client.Get(ctx, BackfillStatusKey).Result()
	if err == redis.Nil {
		return map[string]any{"state": "idle"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read backfill status: %w", err)
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return map[string]any{"state": "idle"}, nil
	}
	return payload, nil
}
