package app

import (
	"context"
	"log/slog"
	"sync"

	"perpdesk/internal/domain"
	"perpdesk/internal/infra"
	"perpdesk/internal/infra/kana"
	"perpdesk/internal/infra/storage"
	"perpdesk/internal/service"

	"github.com/shopspring/decimal"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config     *infra.Config
	Storage    *storage.Storage
	Trading    *service.TradingService
	Metrics    *infra.Metrics
	Verifier   *infra.JWTVerifier
	Kana       *kana.Client
	Downloader *infra.IconDownloader
	Logger     *slog.Logger
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization (config, logger, DB, services).
func (b *Bootstrap) Initialize(configPath string) error {
	// 1. Load Config
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)
	b.Logger = logger

	// 3. Initialize Storage (DB)
	store, err := storage.NewStorage(cfg.Database.Path)
	if err != nil {
		return err
	}
	b.Storage = store
	slog.Info("database initialized", slog.String("path", cfg.Database.Path))

	// 4. Seed default markets when the table is empty
	seeded, err := store.SeedMarkets(DefaultMarkets())
	if err != nil {
		return err
	}
	if seeded > 0 {
		slog.Info("markets seeded", slog.Int("count", seeded))
	}

	// 5. Core services
	b.Metrics = infra.NewMetrics()
	b.Trading = service.NewTradingService(store, logger)
	b.Verifier = infra.NewJWTVerifier(cfg.Auth.TokenSecret)

	// 6. Optional upstream exchange proxy
	if cfg.Kana.APIKey != "" {
		b.Kana = kana.NewClient(cfg.Kana.BaseURL, cfg.Kana.APIKey, logger)
		slog.Info("exchange proxy configured")
	}

	// 7. Icon downloader (optional)
	if cfg.Icons.Enabled {
		downloader, err := infra.NewIconDownloader(cfg.Icons.Dir)
		if err != nil {
			return err
		}
		b.Downloader = downloader
	}

	return nil
}

// SyncIcons downloads base-asset icons for all seeded markets in the
// background and records the paths on the market rows.
func (b *Bootstrap) SyncIcons(ctx context.Context) {
	if b.Downloader == nil {
		return
	}

	markets, err := b.Storage.ListMarkets()
	if err != nil {
		slog.Error("icon sync: failed to list markets", slog.Any("error", err))
		return
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, 5) // Limit concurrent downloads

	for _, m := range markets {
		wg.Add(1)
		go func(market domain.Market) {
			defer wg.Done()
			select {
			case <-ctx.Done():
				return
			case semaphore <- struct{}{}: // Acquire
			}
			defer func() { <-semaphore }() // Release

			path, err := b.Downloader.DownloadIcon(market.BaseAsset)
			if err != nil {
				slog.Warn("failed to download icon",
					slog.String("asset", market.BaseAsset), slog.Any("error", err))
				return
			}
			if err := b.Storage.UpdateMarketIcon(market.ID, path); err != nil {
				slog.Error("failed to record icon path",
					slog.String("symbol", market.Symbol), slog.Any("error", err))
			}
		}(m)
	}

	wg.Wait()
	slog.Info("icon synchronization completed")
}

// DefaultMarkets is the administrative seed set.
func DefaultMarkets() []domain.Market {
	return []domain.Market{
		{
			Symbol:       "APT/USDT",
			BaseAsset:    "APT",
			QuoteAsset:   "USDT",
			MinOrderSize: decimal.RequireFromString("0.1"),
			MaxOrderSize: decimal.RequireFromString("1000000"),
			TickSize:     decimal.RequireFromString("0.01"),
			IsActive:     true,
		},
		{
			Symbol:       "BTC/USDT",
			BaseAsset:    "BTC",
			QuoteAsset:   "USDT",
			MinOrderSize: decimal.RequireFromString("0.001"),
			MaxOrderSize: decimal.RequireFromString("1000"),
			TickSize:     decimal.RequireFromString("0.1"),
			IsActive:     true,
		},
		{
			Symbol:       "ETH/USDT",
			BaseAsset:    "ETH",
			QuoteAsset:   "USDT",
			MinOrderSize: decimal.RequireFromString("0.01"),
			MaxOrderSize: decimal.RequireFromString("10000"),
			TickSize:     decimal.RequireFromString("0.01"),
			IsActive:     true,
		},
		{
			Symbol:       "SOL/USDT",
			BaseAsset:    "SOL",
			QuoteAsset:   "USDT",
			MinOrderSize: decimal.RequireFromString("0.1"),
			MaxOrderSize: decimal.RequireFromString("100000"),
			TickSize:     decimal.RequireFromString("0.01"),
			IsActive:     true,
		},
	}
}
