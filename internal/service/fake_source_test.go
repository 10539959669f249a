package service

import (
	"context"
	"sync"
	"sync/atomic"

	"cryptoverse/internal/domain"
	"cryptoverse/internal/infra"
	"cryptoverse/internal/infra/query"

	"github.com/shopspring/decimal"
)

// fakeSource is a domain.MarketDataSource that counts calls per query.
type fakeSource struct {
	mu    sync.Mutex
	calls map[string]int

	coins    []domain.MarketCoin
	trending []domain.TrendingCoin
	err      atomic.Pointer[error]

	// historyHook runs before CoinHistory answers; tests use it to block.
	historyHook func(days int)
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		calls: make(map[string]int),
		coins: []domain.MarketCoin{
			{ID: "bitcoin", Name: "Bitcoin", Symbol: "btc", CurrentPrice: decimal.NewFromInt(65000)},
			{ID: "ethereum", Name: "Ethereum", Symbol: "eth", CurrentPrice: decimal.NewFromInt(3200)},
			{ID: "bitcoin-cash", Name: "Bitcoin Cash", Symbol: "bch", CurrentPrice: decimal.NewFromInt(420)},
			{ID: "solana", Name: "Solana", Symbol: "sol", CurrentPrice: decimal.NewFromInt(150)},
		},
		trending: []domain.TrendingCoin{
			{ID: "pepe", Name: "Pepe"}, {ID: "sui", Name: "Sui"}, {ID: "kaspa", Name: "Kaspa"},
			{ID: "bonk", Name: "Bonk"}, {ID: "jupiter", Name: "Jupiter"},
		},
	}
}

func (f *fakeSource) failWith(err error) {
	if err == nil {
		f.err.Store(nil)
		return
	}
	f.err.Store(&err)
}

func (f *fakeSource) record(name string) error {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
	if p := f.err.Load(); p != nil {
		return *p
	}
	return nil
}

func (f *fakeSource) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeSource) GlobalStats(ctx context.Context) (*domain.GlobalStats, error) {
	if err := f.record(QueryGlobalStats); err != nil {
		return nil, err
	}
	return &domain.GlobalStats{ActiveCryptocurrencies: 10000}, nil
}

func (f *fakeSource) Coins(ctx context.Context, count int) ([]domain.MarketCoin, error) {
	if err := f.record(QueryCoins); err != nil {
		return nil, err
	}
	if count < len(f.coins) {
		return f.coins[:count], nil
	}
	return f.coins, nil
}

func (f *fakeSource) CoinDetail(ctx context.Context, coinID string) (*domain.CoinDetail, error) {
	if err := f.record(QueryCoinDetail); err != nil {
		return nil, err
	}
	return &domain.CoinDetail{ID: coinID, Name: coinID}, nil
}

func (f *fakeSource) CoinHistory(ctx context.Context, coinID string, days int) (*domain.PriceHistory, error) {
	if f.historyHook != nil {
		f.historyHook(days)
	}
	if err := f.record(QueryCoinHistory); err != nil {
		return nil, err
	}
	return &domain.PriceHistory{Prices: []domain.PricePoint{{Price: decimal.NewFromInt(int64(days))}}}, nil
}

func (f *fakeSource) TrendingCoins(ctx context.Context) ([]domain.TrendingCoin, error) {
	if err := f.record(QueryTrendingCoins); err != nil {
		return nil, err
	}
	return f.trending, nil
}

func newTestMarket(src domain.MarketDataSource) *MarketService {
	return NewMarketService(src, query.New(0, &infra.Metrics{}, nil), nil)
}
