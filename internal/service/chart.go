package service

import (
	"context"
	"sync"

	"cryptoverse/internal/domain"
)

// HistorySource provides price series for the chart view.
type HistorySource interface {
	History(ctx context.Context, coinID string, days int) (*domain.PriceHistory, error)
}

// ChartView holds the price chart of one coin for the selected timeframe.
//
// Every selection takes a new generation; a response is applied only while
// its generation is the latest, so a slow answer for an old timeframe never
// overwrites a newer one.
type ChartView struct {
	source HistorySource
	coinID string

	mu         sync.Mutex
	generation uint64
	days       int
	history    *domain.PriceHistory
}

// NewChartView creates a chart view for coinID.
func NewChartView(source HistorySource, coinID string) *ChartView {
	return &ChartView{
		source: source,
		coinID: coinID,
		days:   domain.DefaultHistoryDays,
	}
}

// Select switches to the given timeframe and loads its series.
// Returns ErrStaleResponse if another selection was made while loading.
func (v *ChartView) Select(ctx context.Context, days int) (*domain.PriceHistory, error) {
	if days <= 0 {
		days = domain.DefaultHistoryDays
	}

	v.mu.Lock()
	v.generation++
	gen := v.generation
	v.days = days
	v.mu.Unlock()

	history, err := v.source.History(ctx, v.coinID, days)

	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.generation {
		return nil, domain.ErrStaleResponse
	}
	if err != nil {
		return nil, err
	}
	v.history = history
	return history, nil
}

// Current returns the selected timeframe and the last applied series, which
// is nil until a selection has loaded.
func (v *ChartView) Current() (int, *domain.PriceHistory) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.days, v.history
}

// CoinID returns the coin this view charts.
func (v *ChartView) CoinID() string { return v.coinID }
