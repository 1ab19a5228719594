package ingest

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// Scheduler dispatches each enabled source at its cadence. Sources run as
// independent goroutines; a slow source never blocks another.
type Scheduler struct {
	registry                *Registry
	adapters                map[string]Adapter
	runner                  *Runner
	writer                  *Writer
	backfiller              *Backfiller
	redis                   redis.UniversalClient
	enableSyntheticFallback bool

	wg              sync.WaitGroup
	backfillRunning atomic.Bool
}

func NewScheduler(registry *Registry, adapters map[string]Adapter, runner *Runner, writer *Writer, backfiller *Backfiller, client redis.UniversalClient, enableSyntheticFallback bool) *Scheduler {
	return &Scheduler{
		registry:                registry,
		adapters:                adapters,
		runner:                  runner,
		writer:                  writer,
		backfiller:              backfiller,
		redis:                   client,
		enableSyntheticFallback: enableSyntheticFallback,
	}
}

// Start launches one ticker goroutine per enabled source. The first run is
// staggered a few seconds apart so startup does not thundering-herd the
// upstreams. Cancel the context to stop everything; Wait blocks until all
// workers exit.
func (s *Scheduler) Start(ctx context.Context) {
	stagger := 0
	for _, def := range s.registry.List(false) {
		adapter, ok := s.adapters[def.Key]
		if !ok {
			continue
		}
		stagger++

		s.wg.Add(1)
		go func(def SourceDefinition, adapter Adapter, initialDelay time.Duration) {
			defer s.wg.Done()

			select {
			case <-time.After(initialDelay):
			case <-ctx.Done():
				return
			}
			s.runAndMerge(ctx, def, adapter)

			ticker := time.NewTicker(time.Duration(def.CadenceMinutes) * time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					s.runAndMerge(ctx, def, adapter)
				case <-ctx.Done():
					return
				}
			}
		}(def, adapter, time.Duration(stagger)*3*time.Second)
	}
}

// Wait blocks until every source worker has stopped.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) runAndMerge(ctx context.Context, def SourceDefinition, adapter Adapter) HealthEntry {
	entry := s.runner.RunSource(ctx, def, adapter)
	if err := MergeHealthEntry(ctx, s.redis, entry); err != nil {
		log.Printf("merge health for %s: %v", def.Key, err)
	}
	return entry
}

// RunAllEnabled ingests every enabled source once, sequentially. When no
// source could run at all and the synthetic fallback is on, one generated
// record keeps dev environments alive.
func (s *Scheduler) RunAllEnabled(ctx context.Context) int {
	insertedTotal := 0
	ranAny := false
	for _, def := range s.registry.List(false) {
		adapter, ok := s.adapters[def.Key]
		if !ok {
			continue
		}
		ranAny = true
		entry := s.runAndMerge(ctx, def, adapter)
		insertedTotal += entry.Inserted
	}

	if !ranAny && s.enableSyntheticFallback {
		item := GenerateSyntheticItem(time.Now().UTC())
		rec := item.AIDevelopment
		if s.writer.Write(ctx, &rec) == WriteInserted {
			insertedTotal++
		}
	}
	return insertedTotal
}

// RunOne ingests a single source by key, on demand.
func (s *Scheduler) RunOne(ctx context.Context, key string) (HealthEntry, error) {
	def := s.registry.Get(key)
	if def == nil {
		return HealthEntry{}, fmt.Errorf("unknown source %q", key)
	}
	adapter, ok := s.adapters[key]
	if !ok {
		return HealthEntry{}, fmt.Errorf("source %q has no adapter", key)
	}
	return s.runAndMerge(ctx, *def, adapter), nil
}

// RunBackfill starts a sweep in the background. Only one sweep runs at a
// time; a second request while running is rejected.
func (s *Scheduler) RunBackfill(ctx context.Context, req BackfillRequest) error {
	if !s.backfillRunning.CompareAndSwap(false, true) {
		return fmt.Errorf("backfill already running")
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.backfillRunning.Store(false)
		if err := s.backfiller.Run(ctx, req); err != nil {
			log.Printf("backfill failed: %v", err)
		}
	}()
	return nil
}
