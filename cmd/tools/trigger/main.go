package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/scott-cmd11/ai-canada-pulse/internal/config"
	"github.com/scott-cmd11/ai-canada-pulse/internal/db"
	"github.com/scott-cmd11/ai-canada-pulse/internal/ingest"
)

// Runs one source (or every enabled source) once, outside the scheduler.
// Useful for checking a feed change without waiting for its cadence.
func main() {
	source := flag.String("source", "", "source key to run; empty runs every enabled source")
	flag.Parse()

	settings := config.Load()
	ctx := context.Background()

	pool, err := db.Connect(ctx, settings.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	redisOpts, err := redis.ParseURL(settings.RedisURL)
	if err != nil {
		log.Fatal(err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	registry, err := ingest.LoadRegistry()
	if err != nil {
		log.Fatal(err)
	}
	adapters := ingest.BuildAdapters(registry)

	store := db.NewStore(pool)
	writer := ingest.NewWriter(store, redisClient, settings.SSEChannel)
	runner := ingest.NewRunner(store, writer, redisClient)
	scheduler := ingest.NewScheduler(registry, adapters, runner, writer, nil, redisClient, settings.EnableSyntheticFallback)

	if *source == "" {
		inserted := scheduler.RunAllEnabled(ctx)
		fmt.Printf("Inserted %d records across all enabled sources\n", inserted)
		return
	}

	entry, err := scheduler.RunOne(ctx, *source)
	if err != nil {
		fmt.Printf("Run failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%s: status=%s fetched=%d accepted=%d inserted=%d duplicates=%d\n",
		entry.Source, entry.Status, entry.Fetched, entry.Accepted, entry.Inserted, entry.Duplicates)
	if entry.Error != "" {
		fmt.Printf("error: %s\n", entry.Error)
	}
}
