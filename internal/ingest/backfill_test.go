package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMonthWindows(t *testing.T) {
	windows := MonthWindows(day(2024, time.November, 15), day(2025, time.February, 10))
	require.Len(t, windows, 4)

	assert.Equal(t, day(2024, time.November, 1), windows[0].Start)
	assert.Equal(t, day(2024, time.December, 1), windows[0].End)
	assert.Equal(t, day(2024, time.December, 1), windows[1].Start)
	assert.Equal(t, day(2025, time.January, 1), windows[1].End)
	assert.Equal(t, day(2025, time.January, 1), windows[2].Start)
	assert.Equal(t, day(2025, time.February, 1), windows[2].End)
	// Final window is capped at the requested end day.
	assert.Equal(t, day(2025, time.February, 1), windows[3].Start)
	assert.Equal(t, day(2025, time.February, 10), windows[3].End)
}

func TestMonthWindowsSingleMonth(t *testing.T) {
	windows := MonthWindows(day(2025, time.March, 5), day(2025, time.March, 20))
	require.Len(t, windows, 1)
	assert.Equal(t, day(2025, time.March, 1), windows[0].Start)
	assert.Equal(t, day(2025, time.March, 20), windows[0].End)
}

func TestMonthWindowsStartAfterEnd(t *testing.T) {
	assert.Empty(t, MonthWindows(day(2025, time.June, 1), day(2025, time.May, 1)))
}

func TestReadBackfillStatusIdle(t *testing.T) {
	ctx := context.Background()
	client := newTestRedis(t)

	status, err := ReadBackfillStatus(ctx, client)
	require.NoError(t, err)
	assert.Equal(t, "idle", status["state"])
}

func TestReadBackfillStatusCorruptFallsBackToIdle(t *testing.T) {
	ctx := context.Background()
	client := newTestRedis(t)
	require.NoError(t, client.Set(ctx, BackfillStatusKey, "{not json", 0).Err())

	status, err := ReadBackfillStatus(ctx, client)
	require.NoError(t, err)
	assert.Equal(t, "idle", status["state"])
}
