package service

import (
	"context"
	"sync"
	"testing"

	"cryptoverse/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChartView_Select(t *testing.T) {
	view := NewChartView(newTestMarket(newFakeSource()), "bitcoin")

	days, history := view.Current()
	assert.Equal(t, domain.DefaultHistoryDays, days)
	assert.Nil(t, history)

	h, err := view.Select(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, int64(30), h.Prices[0].Price.IntPart())

	days, history = view.Current()
	assert.Equal(t, 30, days)
	assert.Same(t, h, history)
	assert.Equal(t, "bitcoin", view.CoinID())
}

func TestChartView_DiscardsSupersededResponse(t *testing.T) {
	src := newFakeSource()
	release := make(chan struct{})
	started := make(chan struct{})
	src.historyHook = func(days int) {
		if days == 1825 {
			close(started)
			<-release
		}
	}
	view := NewChartView(newTestMarket(src), "bitcoin")

	var wg sync.WaitGroup
	var slowErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, slowErr = view.Select(context.Background(), 1825)
	}()

	<-started
	h, err := view.Select(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), h.Prices[0].Price.IntPart())

	close(release)
	wg.Wait()

	assert.ErrorIs(t, slowErr, domain.ErrStaleResponse)
	days, history := view.Current()
	assert.Equal(t, 7, days)
	assert.Equal(t, int64(7), history.Prices[0].Price.IntPart())
}

func TestChartView_ErrorKeepsPreviousSeries(t *testing.T) {
	src := newFakeSource()
	view := NewChartView(newTestMarket(src), "bitcoin")

	first, err := view.Select(context.Background(), 30)
	require.NoError(t, err)

	src.failWith(&domain.APIError{Endpoint: "/coins/bitcoin/market_chart", StatusCode: 500})
	_, err = view.Select(context.Background(), 90)
	require.Error(t, err)

	_, history := view.Current()
	assert.Same(t, first, history)
}
