package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"cryptoverse/internal/domain"
)

// WatchlistPoller periodically fetches market rows of the bookmarked coins.
type WatchlistPoller struct {
	market       *MarketService
	bookmarks    domain.BookmarkReader
	onUpdate     func([]domain.MarketCoin)
	pollInterval time.Duration
	logger       *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
}

// NewWatchlistPoller creates a poller. A non-positive interval defaults to one minute.
func NewWatchlistPoller(market *MarketService, bookmarks domain.BookmarkReader, interval time.Duration, onUpdate func([]domain.MarketCoin), logger *slog.Logger) *WatchlistPoller {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WatchlistPoller{
		market:       market,
		bookmarks:    bookmarks,
		onUpdate:     onUpdate,
		pollInterval: interval,
		logger:       logger.With("module", "watchlist"),
	}
}

// Start polls immediately and then on every interval until Stop, ctx ends,
// or a poll fails with an error that retrying cannot fix.
func (p *WatchlistPoller) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("Watchlist polling panic recovered", slog.Any("panic", r))
			}
		}()

		ticker := time.NewTicker(p.pollInterval)
		defer ticker.Stop()

		for {
			if err := p.poll(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				if !domain.IsRetriable(err) {
					p.logger.Error("Watchlist polling stopped", slog.Any("error", err))
					return
				}
				p.logger.Warn("Watchlist poll failed", slog.Any("error", err))
			}

			select {
			case <-ctx.Done():
				p.logger.Info("Watchlist polling stopped")
				return
			case <-ticker.C:
			}
		}
	}()
}

func (p *WatchlistPoller) poll(ctx context.Context) error {
	coins, err := p.market.Watchlist(ctx, p.bookmarks.IDs())

	p.mu.Lock()
	p.lastErr = err
	p.mu.Unlock()

	if err != nil {
		return err
	}
	if p.onUpdate != nil {
		p.onUpdate(coins)
	}
	return nil
}

// Err returns the error of the most recent poll, if any.
func (p *WatchlistPoller) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if errors.Is(p.lastErr, context.Canceled) {
		return nil
	}
	return p.lastErr
}

// Stop stops the polling and waits for the running poll to finish.
func (p *WatchlistPoller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
}

// Wait blocks until the poller has stopped on its own or through Stop.
func (p *WatchlistPoller) Wait() {
	p.wg.Wait()
}
