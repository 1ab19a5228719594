package stats

import (
	"context"
	"time"
)

// KPIWindow is one count window with its previous-period delta.
type KPIWindow struct {
	Current      int     `json:"current"`
	Previous     int     `json:"previous"`
	DeltaPercent float64 `json:"delta_percent"`
}

type KPIsResponse struct {
	M15 KPIWindow `json:"m15"`
	H1  KPIWindow `json:"h1"`
	D7  KPIWindow `json:"d7"`
}

// KPIs reports counts over 15m, 1h and 7d windows, each against the
// window immediately before it.
func (e *Engine) KPIs(ctx context.Context) (*KPIsResponse, error) {
	now := e.now()

	build := func(window time.Duration) (KPIWindow, error) {
		currentStart := now.Add(-window)
		previousStart := now.Add(-2 * window)

		current, err := e.countBetween(ctx, currentStart, now)
		if err != nil {
			return KPIWindow{}, err
		}
		previous, err := e.countBetween(ctx, previousStart, currentStart)
		if err != nil {
			return KPIWindow{}, err
		}
		return KPIWindow{
			Current:      current,
			Previous:     previous,
			DeltaPercent: CalcDelta(current, previous),
		}, nil
	}

	m15, err := build(15 * time.Minute)
	if err != nil {
		return nil, err
	}
	h1, err := build(time.Hour)
	if err != nil {
		return nil, err
	}
	d7, err := build(7 * 24 * time.Hour)
	if err != nil {
		return nil, err
	}

	return &KPIsResponse{M15: m15, H1: h1, D7: d7}, nil
}
