package main

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/scott-cmd11/ai-canada-pulse/internal/api"
	"github.com/scott-cmd11/ai-canada-pulse/internal/config"
	"github.com/scott-cmd11/ai-canada-pulse/internal/db"
	"github.com/scott-cmd11/ai-canada-pulse/internal/ingest"
	"github.com/scott-cmd11/ai-canada-pulse/internal/stats"
)

func main() {
	settings := config.Load()
	ctx := context.Background()

	pool, err := db.Connect(ctx, settings.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	redisOpts, err := redis.ParseURL(settings.RedisURL)
	if err != nil {
		log.Fatalf("Invalid REDIS_URL: %v", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	registry, err := ingest.LoadRegistry()
	if err != nil {
		log.Fatalf("Failed to load source catalog: %v", err)
	}
	adapters := ingest.BuildAdapters(registry)

	store := db.NewStore(pool)
	writer := ingest.NewWriter(store, redisClient, settings.SSEChannel)
	runner := ingest.NewRunner(store, writer, redisClient)

	openalex, _ := adapters["openalex"].(*ingest.OpenAlexAdapter)
	if openalex == nil {
		log.Fatal("openalex adapter missing from catalog")
	}
	backfiller := ingest.NewBackfiller(openalex, writer, redisClient)

	scheduler := ingest.NewScheduler(registry, adapters, runner, writer, backfiller, redisClient, settings.EnableSyntheticFallback)
	schedCtx, stopScheduler := context.WithCancel(ctx)
	defer stopScheduler()
	scheduler.Start(schedCtx)
	log.Printf("Scheduler started with %d sources", len(adapters))

	engine := stats.NewEngine(pool)
	srv := api.NewServer(store, engine, registry, scheduler, redisClient, settings.SSEChannel)

	addr := fmt.Sprintf("%s:%d", settings.APIHost, settings.APIPort)
	log.Printf("Server starting on %s...", addr)
	if err := srv.Start(addr); err != nil {
		log.Fatal(err)
	}
}
