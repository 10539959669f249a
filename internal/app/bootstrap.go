package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"cryptoverse/internal/bookmark"
	"cryptoverse/internal/domain"
	"cryptoverse/internal/infra"
	"cryptoverse/internal/infra/coingecko"
	"cryptoverse/internal/infra/query"
	"cryptoverse/internal/infra/storage"
	"cryptoverse/internal/service"
)

// Bootstrap orchestrates the application startup sequence and owns the
// shared instances every command works with.
type Bootstrap struct {
	Config     *infra.Config
	Logger     *slog.Logger
	Metrics    *infra.Metrics
	Storage    *storage.Storage
	Downloader *infra.IconDownloader
	Client     *coingecko.Client
	Cache      *query.Cache
	Market     *service.MarketService
	Bookmarks  *bookmark.Store
	Theme      *service.ThemeService

	unsubscribe func()
	metaMu      sync.Mutex // orders coin metadata writes against removals
	syncs       sync.WaitGroup
	syncCtx     context.Context
	cancelSync  context.CancelFunc
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization (config, logger, DB, services).
// An empty configPath searches the default locations.
func (b *Bootstrap) Initialize(ctx context.Context, configPath string) error {
	// 1. Load Config
	if configPath == "" {
		configPath = infra.ResolveConfigPath()
	}
	cfg, err := infra.LoadConfigOrDefault(configPath)
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	b.Logger = infra.NewLogger(cfg)
	slog.SetDefault(b.Logger)
	b.Logger.Debug("Bootstrapping", slog.String("config", configPath), slog.String("version", cfg.App.Version))

	b.Metrics = &infra.Metrics{}

	// 3. Initialize Storage (DB)
	store, err := storage.NewStorage(cfg.DBPath())
	if err != nil {
		return err
	}
	b.Storage = store
	b.Logger.Debug("Database initialized", slog.String("path", cfg.DBPath()))

	// 4. Initialize Icon Downloader
	downloader, err := infra.NewIconDownloader(cfg.IconDir())
	if err != nil {
		store.Close()
		return err
	}
	b.Downloader = downloader

	// 5. Data access and services
	b.Client = coingecko.NewClient(cfg, b.Metrics, b.Logger)
	b.Cache = query.New(cfg.CacheRetention(), b.Metrics, b.Logger)
	b.Market = service.NewMarketService(b.Client, b.Cache, b.Logger)
	b.Bookmarks = bookmark.Open(ctx, b.Storage, b.Metrics, b.Logger)
	b.Theme = service.NewThemeService(ctx, b.Storage, cfg.UI.DarkModeDefault, b.Logger)

	// 6. Keep icon metadata in step with the bookmark collection
	b.syncCtx, b.cancelSync = context.WithCancel(context.WithoutCancel(ctx))
	b.unsubscribe = b.Bookmarks.Subscribe(b.onBookmarkChange)

	return nil
}

func (b *Bootstrap) onBookmarkChange(commit bookmark.Commit) {
	if !commit.Added {
		b.metaMu.Lock()
		defer b.metaMu.Unlock()
		if err := b.Storage.DeleteCoin(b.syncCtx, commit.Bookmark.ID); err != nil {
			b.Logger.Warn("Failed to drop icon metadata", slog.String("id", commit.Bookmark.ID), slog.Any("error", err))
		}
		return
	}

	b.syncs.Add(1)
	go func() {
		defer b.syncs.Done()
		b.syncIcon(b.syncCtx, commit.Bookmark)
	}()
}

// SyncIcons makes sure every bookmarked coin has icon metadata and a cached icon.
func (b *Bootstrap) SyncIcons(ctx context.Context) {
	bookmarks := b.Bookmarks.List()
	b.Logger.Info("Starting icon synchronization", slog.Int("bookmarks", len(bookmarks)))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, 5) // Limit concurrent downloads

	for _, bm := range bookmarks {
		wg.Add(1)
		go func(bm domain.Bookmark) {
			defer wg.Done()
			select {
			case <-ctx.Done():
				return
			case semaphore <- struct{}{}: // Acquire
			}
			defer func() { <-semaphore }() // Release

			b.syncIcon(ctx, bm)
		}(bm)
	}

	wg.Wait()
	b.Logger.Info("Icon synchronization completed")
}

// syncIcon is best effort; failures are logged.
func (b *Bootstrap) syncIcon(ctx context.Context, bm domain.Bookmark) {
	coin := &domain.CoinInfo{
		ID:       bm.ID,
		Symbol:   bm.Symbol,
		Name:     bm.Name,
		ImageURL: bm.Image,
	}

	// Keep what an earlier sync recorded
	if existing, _ := b.Storage.GetCoin(ctx, bm.ID); existing != nil {
		coin.IconPath = existing.IconPath
		coin.LastSyncedAt = existing.LastSyncedAt
		coin.CreatedAt = existing.CreatedAt
	}

	if bm.Image != "" {
		path, err := b.Downloader.DownloadIcon(ctx, bm.ID, bm.Image)
		if err != nil {
			b.Logger.Warn("Failed to download icon", slog.String("id", bm.ID), slog.Any("error", err))
		} else {
			coin.IconPath = path
			coin.LastSyncedAt = time.Now()
		}
	}

	// The bookmark may have been removed while the icon was downloading.
	b.metaMu.Lock()
	defer b.metaMu.Unlock()
	if !b.Bookmarks.IsBookmarked(bm.ID) {
		b.Logger.Debug("Skipping metadata of removed bookmark", slog.String("id", bm.ID))
		return
	}
	if err := b.Storage.UpsertCoin(ctx, coin); err != nil {
		b.Logger.Error("Failed to upsert coin", slog.String("id", bm.ID), slog.Any("error", err))
	}
}

// Shutdown waits for pending icon syncs up to ctx's deadline and releases resources.
func (b *Bootstrap) Shutdown(ctx context.Context) error {
	if b.unsubscribe != nil {
		b.unsubscribe()
	}
	if b.Bookmarks != nil {
		b.Bookmarks.Close()
	}

	done := make(chan struct{})
	go func() {
		b.syncs.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		b.Logger.Warn("Cancelling pending icon syncs", slog.Any("error", ctx.Err()))
		b.cancelSync()
		<-done
	}
	if b.cancelSync != nil {
		b.cancelSync()
	}

	var errs []error
	if b.Storage != nil {
		errs = append(errs, b.Storage.Close())
	}
	return errors.Join(errs...)
}
