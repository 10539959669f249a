package service

import (
	"context"
	"testing"

	"cryptoverse/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarketService_CachesQueries(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	svc := newTestMarket(src)

	for i := 0; i < 3; i++ {
		_, err := svc.GlobalStats(ctx)
		require.NoError(t, err)
		_, err = svc.CoinDetail(ctx, "bitcoin")
		require.NoError(t, err)
		_, err = svc.Trending(ctx, 0)
		require.NoError(t, err)
	}

	assert.Equal(t, 1, src.count(QueryGlobalStats))
	assert.Equal(t, 1, src.count(QueryCoinDetail))
	assert.Equal(t, 1, src.count(QueryTrendingCoins))

	_, err := svc.CoinDetail(ctx, "ethereum")
	require.NoError(t, err)
	assert.Equal(t, 2, src.count(QueryCoinDetail))
}

func TestMarketService_CoinsKeyedByCount(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	svc := newTestMarket(src)

	top2, err := svc.Coins(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, top2, 2)

	all, err := svc.Coins(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	_, err = svc.Coins(ctx, domain.FullListSize)
	require.NoError(t, err)
	assert.Equal(t, 2, src.count(QueryCoins))
}

func TestMarketService_Search(t *testing.T) {
	svc := newTestMarket(newFakeSource())

	coins, err := svc.Search(context.Background(), 0, "BITcoin")
	require.NoError(t, err)
	require.Len(t, coins, 2)
	assert.Equal(t, "bitcoin", coins[0].ID)
	assert.Equal(t, "bitcoin-cash", coins[1].ID)

	coins, err = svc.Search(context.Background(), 0, "")
	require.NoError(t, err)
	assert.Len(t, coins, 4)
}

func TestMarketService_HistoryDefaultsDays(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	svc := newTestMarket(src)

	h, err := svc.History(ctx, "bitcoin", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(domain.DefaultHistoryDays), h.Prices[0].Price.IntPart())

	_, err = svc.History(ctx, "bitcoin", domain.DefaultHistoryDays)
	require.NoError(t, err)
	assert.Equal(t, 1, src.count(QueryCoinHistory))
}

func TestMarketService_TrendingLimit(t *testing.T) {
	svc := newTestMarket(newFakeSource())

	coins, err := svc.Trending(context.Background(), domain.TrendingPreview)
	require.NoError(t, err)
	assert.Len(t, coins, 4)

	// Truncating one caller's view must not shrink the cached list.
	coins[0].Name = "mutated"
	all, err := svc.Trending(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
	assert.Equal(t, "Pepe", all[0].Name)
}

func TestMarketService_ErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	svc := newTestMarket(src)

	src.failWith(domain.NewNetworkError("GET /global", assert.AnError))
	_, err := svc.GlobalStats(ctx)
	require.Error(t, err)
	assert.True(t, domain.IsRetriable(err))

	src.failWith(nil)
	stats, err := svc.GlobalStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10000, stats.ActiveCryptocurrencies)
	assert.Equal(t, 2, src.count(QueryGlobalStats))
}

func TestMarketService_Refresh(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	svc := newTestMarket(src)

	_, err := svc.GlobalStats(ctx)
	require.NoError(t, err)
	_, err = svc.Coins(ctx, 10)
	require.NoError(t, err)

	require.NoError(t, svc.Refresh(QueryCoins))
	_, err = svc.GlobalStats(ctx)
	require.NoError(t, err)
	_, err = svc.Coins(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, src.count(QueryGlobalStats))
	assert.Equal(t, 2, src.count(QueryCoins))

	require.NoError(t, svc.Refresh(""))
	_, err = svc.GlobalStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, src.count(QueryGlobalStats))

	assert.ErrorIs(t, svc.Refresh("portfolio"), ErrUnknownQuery)
}

func TestMarketService_Watchlist(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	svc := newTestMarket(src)

	coins, err := svc.Watchlist(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, coins)
	assert.Zero(t, src.count(QueryCoins))

	coins, err = svc.Watchlist(ctx, []string{"solana", "bitcoin", "dogecoin"})
	require.NoError(t, err)
	require.Len(t, coins, 2)
	assert.Equal(t, "bitcoin", coins[0].ID)
	assert.Equal(t, "solana", coins[1].ID)

	// Every watchlist read goes to the network.
	_, err = svc.Watchlist(ctx, []string{"bitcoin"})
	require.NoError(t, err)
	assert.Equal(t, 2, src.count(QueryCoins))
}
