// Package main is the entry point for the MarketView analytics service.
// It serves an interactive dashboard over historical daily price series:
// price and moving-average curves, recent-row previews, portfolio
// statistics and an optional naive next-day forecast, with CSV export of
// the last rendered dataset.
//
// Startup sequence:
//  1. Load configuration from environment variables (.env supported)
//  2. Initialize structured logging
//  3. Open and migrate the history and cache databases
//  4. Build the market-data source chain and the data fetcher
//  5. Wire the analytics pipeline and HTTP handlers
//  6. Register scheduled jobs (cache cleanup, history sync, archive
//     rotation) and start the HTTP server
//  7. Wait for a shutdown signal and stop everything gracefully
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/aristath/marketview/internal/clientdata"
	"github.com/aristath/marketview/internal/clients/alphavantage"
	"github.com/aristath/marketview/internal/clients/r2"
	"github.com/aristath/marketview/internal/clients/yahoo"
	"github.com/aristath/marketview/internal/config"
	"github.com/aristath/marketview/internal/database"
	"github.com/aristath/marketview/internal/domain"
	"github.com/aristath/marketview/internal/modules/dashboard"
	dashboardhandlers "github.com/aristath/marketview/internal/modules/dashboard/handlers"
	"github.com/aristath/marketview/internal/modules/export"
	"github.com/aristath/marketview/internal/modules/history"
	historyhandlers "github.com/aristath/marketview/internal/modules/history/handlers"
	"github.com/aristath/marketview/internal/modules/series"
	"github.com/aristath/marketview/internal/modules/watchlist"
	"github.com/aristath/marketview/internal/server"
	"github.com/aristath/marketview/internal/services"
	"github.com/aristath/marketview/pkg/logger"
)

// scheduledJob is what the cron scheduler runs: every job logs its own
// outcome and returns an error for the wrapper to record.
type scheduledJob interface {
	Run() error
	Name() string
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting MarketView")

	// Databases. history.db holds synced daily prices, cache.db holds
	// provider response blobs; both are created and migrated on startup.
	historyDB, err := database.New(database.Config{
		Path:    cfg.HistoryDBPath(),
		Profile: database.ProfileStandard,
		Name:    "history",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open history database")
	}
	defer historyDB.Close()

	cacheDB, err := database.New(database.Config{
		Path:    cfg.CacheDBPath(),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	for _, db := range []*database.DB{historyDB, cacheDB} {
		if err := db.Migrate(); err != nil {
			log.Fatal().Err(err).Str("database", db.Name()).Msg("Failed to migrate database")
		}
	}

	// Market-data source chain, in configured order.
	historyRepo := history.NewRepository(historyDB.Conn(), log)

	sources := make([]domain.BarSource, 0, len(cfg.PriceSources))
	for _, name := range cfg.PriceSources {
		switch name {
		case config.SourceYahoo:
			sources = append(sources, yahoo.NewClient(log))
		case config.SourceAlphaVantage:
			sources = append(sources, alphavantage.NewClient(cfg.AlphaVantageAPIKey, log))
		case config.SourceSQLite:
			sources = append(sources, history.NewSource(historyRepo))
		}
	}
	log.Info().Strs("sources", cfg.PriceSources).Msg("Price source chain configured")

	// Response cache is optional; a nil repository disables it.
	var cacheRepo *clientdata.Repository
	if cfg.CacheEnabled {
		cacheRepo = clientdata.NewRepository(cacheDB.Conn())
	}

	fetcher := services.NewDataFetcherService(sources, cacheRepo, cfg.CacheTTL, cfg.StaleCacheFallback, log)

	// Analytics pipeline.
	ingestor := series.NewService(fetcher, log)
	dashboardSvc := dashboard.NewService(ingestor, log)
	watchlistSvc := watchlist.NewService(cfg.WatchlistPath, log)

	// Export archiving only exists when R2 is fully configured.
	var archiveSvc *export.ArchiveService
	if cfg.Archive != nil {
		r2Client, err := r2.NewClient(
			cfg.Archive.Endpoint,
			cfg.Archive.AccessKeyID,
			cfg.Archive.SecretAccessKey,
			cfg.Archive.Bucket,
			log,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create R2 client")
		}
		archiveSvc = export.NewArchiveService(r2Client, cfg.Archive.RetentionDays, log)
		log.Info().Str("bucket", cfg.Archive.Bucket).Msg("Export archiving enabled")
	}

	// History sync pulls watchlist symbols from the first remote source.
	var syncSvc *history.SyncService
	if remote := firstRemoteSource(sources); remote != nil {
		syncSvc = history.NewSyncService(historyRepo, remote, watchlistSvc, cfg.HistoryLookbackDays, log)
	} else {
		log.Warn().Msg("No remote price source configured, history sync unavailable")
	}

	// Scheduled jobs.
	scheduler := cron.New()

	if cacheRepo != nil {
		registerJob(scheduler, "30 0 * * *", clientdata.NewCleanupJob(cacheRepo, log), log)
	}
	if syncSvc != nil && cfg.HistorySyncEnabled {
		registerJob(scheduler, cfg.HistorySyncSchedule, syncSvc, log)
	}
	if archiveSvc != nil {
		registerJob(scheduler, "0 1 * * *", archiveSvc, log)
	}
	scheduler.Start()

	// HTTP layer.
	dashboardHandler := dashboardhandlers.NewHandler(dashboardSvc, watchlistSvc, archiveSvc, log)
	historyHandler := historyhandlers.NewHandler(historyRepo, syncSvc, log)

	srv := server.New(server.Config{
		Log:       log,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
		DataDir:   cfg.DataDir,
		HistoryDB: historyDB,
		CacheDB:   cacheDB,
		Dashboard: dashboardHandler,
		History:   historyHandler,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for shutdown signal.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	stopCtx := scheduler.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		log.Warn().Msg("Timed out waiting for running jobs")
	}

	log.Info().Msg("Shutdown complete")
}

// firstRemoteSource returns the first source in the chain that is not
// the local store; pulling the store from itself would be a no-op.
func firstRemoteSource(sources []domain.BarSource) domain.BarSource {
	for _, src := range sources {
		if src.Name() != history.SourceName {
			return src
		}
	}
	return nil
}

// registerJob schedules a job and logs failures of individual runs.
func registerJob(scheduler *cron.Cron, schedule string, job scheduledJob, log zerolog.Logger) {
	_, err := scheduler.AddFunc(schedule, func() {
		if err := job.Run(); err != nil {
			log.Error().Err(err).Str("job", job.Name()).Msg("Scheduled job failed")
		}
	})
	if err != nil {
		log.Fatal().Err(err).Str("job", job.Name()).Str("schedule", schedule).Msg("Failed to schedule job")
	}

	log.Info().Str("job", job.Name()).Str("schedule", schedule).Msg("Scheduled job registered")
}
