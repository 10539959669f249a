package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cryptoverse/internal/domain"
	"cryptoverse/internal/infra/query"
)

// Query names used as cache keys.
const (
	QueryGlobalStats   = "globalStats"
	QueryCoins         = "coins"
	QueryCoinDetail    = "coinDetail"
	QueryCoinHistory   = "coinHistory"
	QueryTrendingCoins = "trendingCoins"
)

// ErrUnknownQuery is returned by Refresh for names outside the query set.
var ErrUnknownQuery = errors.New("unknown query")

var knownQueries = map[string]struct{}{
	QueryGlobalStats:   {},
	QueryCoins:         {},
	QueryCoinDetail:    {},
	QueryCoinHistory:   {},
	QueryTrendingCoins: {},
}

// MarketService answers the display queries through the shared query cache.
type MarketService struct {
	source domain.MarketDataSource
	cache  *query.Cache
	logger *slog.Logger
}

// NewMarketService creates a new MarketService instance
func NewMarketService(source domain.MarketDataSource, cache *query.Cache, logger *slog.Logger) *MarketService {
	if logger == nil {
		logger = slog.Default()
	}
	return &MarketService{
		source: source,
		cache:  cache,
		logger: logger.With("module", "market_service"),
	}
}

// GlobalStats returns market-wide aggregates.
func (s *MarketService) GlobalStats(ctx context.Context) (*domain.GlobalStats, error) {
	return query.Fetch(ctx, s.cache, query.NewKey(QueryGlobalStats), s.source.GlobalStats)
}

// Coins returns the top count coins by market cap.
// A non-positive count asks for the full list.
func (s *MarketService) Coins(ctx context.Context, count int) ([]domain.MarketCoin, error) {
	if count <= 0 {
		count = domain.FullListSize
	}
	return query.Fetch(ctx, s.cache, query.NewKey(QueryCoins, count), func(ctx context.Context) ([]domain.MarketCoin, error) {
		return s.source.Coins(ctx, count)
	})
}

// Search returns the top count coins whose name contains term.
func (s *MarketService) Search(ctx context.Context, count int, term string) ([]domain.MarketCoin, error) {
	coins, err := s.Coins(ctx, count)
	if err != nil {
		return nil, err
	}
	return domain.FilterByName(coins, term), nil
}

// CoinDetail returns the detail document of one coin.
func (s *MarketService) CoinDetail(ctx context.Context, coinID string) (*domain.CoinDetail, error) {
	return query.Fetch(ctx, s.cache, query.NewKey(QueryCoinDetail, coinID), func(ctx context.Context) (*domain.CoinDetail, error) {
		return s.source.CoinDetail(ctx, coinID)
	})
}

// History returns the USD price series of a coin over the last days days.
func (s *MarketService) History(ctx context.Context, coinID string, days int) (*domain.PriceHistory, error) {
	if days <= 0 {
		days = domain.DefaultHistoryDays
	}
	return query.Fetch(ctx, s.cache, query.NewKey(QueryCoinHistory, coinID, days), func(ctx context.Context) (*domain.PriceHistory, error) {
		return s.source.CoinHistory(ctx, coinID, days)
	})
}

// Trending returns up to limit trending coins; a non-positive limit returns all of them.
func (s *MarketService) Trending(ctx context.Context, limit int) ([]domain.TrendingCoin, error) {
	coins, err := query.Fetch(ctx, s.cache, query.NewKey(QueryTrendingCoins), s.source.TrendingCoins)
	if err != nil {
		return nil, err
	}
	if limit > 0 && limit < len(coins) {
		coins = coins[:limit]
	}
	// The cached slice is shared between callers.
	out := make([]domain.TrendingCoin, len(coins))
	copy(out, coins)
	return out, nil
}

// Watchlist refetches the full coin list and keeps the coins in ids.
func (s *MarketService) Watchlist(ctx context.Context, ids []string) ([]domain.MarketCoin, error) {
	if len(ids) == 0 {
		return []domain.MarketCoin{}, nil
	}
	count := domain.FullListSize
	coins, err := query.Refetch(ctx, s.cache, query.NewKey(QueryCoins, count), func(ctx context.Context) ([]domain.MarketCoin, error) {
		return s.source.Coins(ctx, count)
	})
	if err != nil {
		return nil, err
	}
	return domain.FilterByIDs(coins, ids), nil
}

// Refresh drops every cached result of the named query so the next read refetches it.
// An empty name drops everything.
func (s *MarketService) Refresh(name string) error {
	if name == "" {
		s.cache.Reset()
		s.logger.Info("All queries invalidated")
		return nil
	}
	if _, ok := knownQueries[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownQuery, name)
	}
	s.cache.InvalidateQuery(name)
	s.logger.Info("Query invalidated", slog.String("query", name))
	return nil
}
