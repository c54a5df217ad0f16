package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/ratelimit"

	"coin_tracker/internal/domain"
	"coin_tracker/internal/infra"
	"coin_tracker/internal/infra/storage"
	"coin_tracker/internal/render"
	"coin_tracker/internal/service"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config     *infra.Config
	Storage    *storage.Storage
	Downloader *infra.IconDownloader
	Client     *infra.MarketClient
	Feed       *service.Feed
	Formatter  *render.Formatter
	Metrics    *infra.Metrics
	Theme      render.Mode

	syncing atomic.Bool
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{Metrics: infra.GlobalMetrics}
}

// Initialize loads config, sets up logging, storage, the icon cache and
// the market feed. quiet keeps logs off stdout (terminal dashboard).
func (b *Bootstrap) Initialize(configPath string, quiet bool) error {
	// 1. Load Config
	cfg, err := infra.LoadConfig(configPath)
	missing := errors.Is(err, domain.ErrConfigNotFound)
	if err != nil && !missing {
		return err
	}
	if quiet {
		cfg.Logging.Stdout = false
	}
	b.Config = cfg

	// 2. Setup Logger
	slog.SetDefault(infra.NewLogger(cfg))
	slog.Info("🚀 Bootstrapping Coin Tracker...", slog.String("version", cfg.App.Version))
	if missing {
		slog.Warn("Config file not found, using defaults", slog.String("path", configPath))
	}

	// 3. Initialize Storage (DB)
	store, err := storage.NewStorage()
	if err != nil {
		return err
	}
	b.Storage = store
	slog.Info("✅ Database initialized")

	b.Theme = render.ParseMode(cfg.UI.Theme)
	if prefs, err := store.LoadConfigMap(); err != nil {
		slog.Warn("Failed to load preferences", slog.Any("error", err))
	} else if v, ok := prefs[domain.PrefTheme]; ok {
		b.Theme = render.ParseMode(v)
	}

	// 4. Initialize Icon Downloader
	if cfg.Icons.Enabled {
		downloader, err := infra.NewIconDownloader(cfg.Icons.Size)
		if err != nil {
			return err
		}
		b.Downloader = downloader
		slog.Info("✅ Icon downloader ready", slog.String("path", downloader.BasePath()))
	}

	// 5. Market feed
	b.Client = infra.NewMarketClientWithConfig(cfg, b.Metrics)
	b.Feed = service.NewFeed(b.Client)
	b.Feed.OnUpdate(b.onMarketUpdate)
	b.Formatter = render.NewFormatter(cfg.UI.Locale, cfg.UI.CurrencySymbol)

	return nil
}

// RefreshInterval is the configured polling period; 0 means fetch once.
func (b *Bootstrap) RefreshInterval() time.Duration {
	return time.Duration(b.Config.API.CoinGecko.RefreshIntervalSec) * time.Second
}

// Close releases the database.
func (b *Bootstrap) Close() {
	if b.Storage != nil {
		if err := b.Storage.Close(); err != nil {
			slog.Warn("Failed to close database", slog.Any("error", err))
		}
	}
}

func (b *Bootstrap) onMarketUpdate(ctx context.Context, records []domain.CoinRecord) {
	b.Metrics.SetRecordsLoaded(len(records), time.Now())
	if b.Storage == nil {
		return
	}
	if !b.syncing.CompareAndSwap(false, true) {
		slog.Debug("Asset synchronization already running")
		return
	}
	go func() {
		defer b.syncing.Store(false)
		b.SyncAssets(ctx, records)
	}()
}

// SyncAssets stores coin metadata and downloads missing icons in the
// background. Downloads run on a bounded semaphore paced by a rate limiter.
// It returns the number of icons downloaded.
func (b *Bootstrap) SyncAssets(ctx context.Context, records []domain.CoinRecord) int {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Asset sync panic recovered", slog.Any("panic", r))
		}
	}()
	slog.Info("🔄 Starting asset synchronization...", slog.Int("coins", len(records)))

	// 1. Upsert to DB
	if err := b.Storage.UpsertCoins(records); err != nil {
		slog.Error("Failed to upsert coins", slog.Any("error", err))
	}
	if b.Downloader == nil {
		return 0
	}

	workers := b.Config.Icons.Workers
	if workers <= 0 {
		workers = 1
	}
	rate := b.Config.Icons.RatePerSec
	if rate <= 0 {
		rate = 1
	}
	limiter := ratelimit.New(rate)

	var (
		wg         sync.WaitGroup
		downloaded atomic.Int32
	)
	semaphore := make(chan struct{}, workers) // Limit concurrent downloads

	for _, rec := range records {
		if rec.Image == "" || b.Downloader.HasIcon(rec.ID) {
			continue
		}
		select {
		case <-ctx.Done():
			wg.Wait()
			return int(downloaded.Load())
		case semaphore <- struct{}{}: // Acquire
		}

		wg.Add(1)
		go func(id, image string) {
			defer wg.Done()
			defer func() { <-semaphore }() // Release

			limiter.Take()
			if ctx.Err() != nil {
				return
			}

			// 2. Download Icon (if missing)
			path, err := b.Downloader.DownloadIcon(ctx, id, image)
			if err != nil {
				slog.Warn("Failed to download icon", slog.String("id", id), slog.Any("error", err))
				return
			}
			downloaded.Add(1)
			if err := b.Storage.SetIconPath(id, path); err != nil {
				slog.Error("Failed to record icon path", slog.String("id", id), slog.Any("error", err))
			}
		}(rec.ID, rec.Image)
	}

	wg.Wait()
	slog.Info("✨ Asset synchronization completed", slog.Int("downloaded", int(downloaded.Load())))
	return int(downloaded.Load())
}
