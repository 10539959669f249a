package domain

import (
	"context"
)

// KeyValueStore is the durable string-valued storage the app mirrors its state into.
type KeyValueStore interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// MarketDataSource defines the remote queries the app issues.
type MarketDataSource interface {
	GlobalStats(ctx context.Context) (*GlobalStats, error)
	Coins(ctx context.Context, count int) ([]MarketCoin, error)
	CoinDetail(ctx context.Context, coinID string) (*CoinDetail, error)
	CoinHistory(ctx context.Context, coinID string, days int) (*PriceHistory, error)
	TrendingCoins(ctx context.Context) ([]TrendingCoin, error)
}

// BookmarkReader is the read side of the bookmark store.
type BookmarkReader interface {
	IsBookmarked(id string) bool
	List() []Bookmark
	IDs() []string
}
