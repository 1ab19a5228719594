package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/scott-cmd11/ai-canada-pulse/internal/config"
	"github.com/scott-cmd11/ai-canada-pulse/internal/db"
)

func main() {
	source := flag.String("source", "", "filter runs by source key")
	limit := flag.Int("limit", 20, "number of runs to show")
	flag.Parse()

	settings := config.Load()
	ctx := context.Background()

	pool, err := db.Connect(ctx, settings.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	runs, err := db.NewStore(pool).ListSourceRuns(ctx, *source, *limit)
	if err != nil {
		log.Fatal(err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Source", "Status", "Fetched", "Accepted", "Inserted", "Dups", "Errors", "Duration", "Started At"})

	for _, run := range runs {
		duration := time.Duration(run.DurationMS) * time.Millisecond
		errText := run.Error
		if len(errText) > 40 {
			errText = errText[:40] + "..."
		}
		t.AppendRow(table.Row{
			run.SourceKey, run.Status, run.Fetched, run.Accepted, run.Inserted,
			run.Duplicates, errText, duration.Round(time.Millisecond).String(),
			run.StartedAt.Format("2006-01-02 15:04:05"),
		})
	}
	t.Render()
}
