package history

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/marketview/internal/domain"
)

// SymbolLister supplies the symbols to keep synced. Implemented by the
// watchlist service.
type SymbolLister interface {
	Symbols() []string
}

// SyncService pulls daily bars for every watchlist symbol from a remote
// source into the local store. It runs on a cron schedule when enabled
// and on demand through the history API.
type SyncService struct {
	repo         *Repository
	remote       domain.BarSource
	watchlist    SymbolLister
	lookbackDays int
	log          zerolog.Logger
}

// NewSyncService creates a new history sync service. The remote source
// must be an actual provider, not the local sqlite source.
func NewSyncService(
	repo *Repository,
	remote domain.BarSource,
	watchlist SymbolLister,
	lookbackDays int,
	log zerolog.Logger,
) *SyncService {
	return &SyncService{
		repo:         repo,
		remote:       remote,
		watchlist:    watchlist,
		lookbackDays: lookbackDays,
		log:          log.With().Str("service", "history_sync").Logger(),
	}
}

// SyncSymbol fetches one symbol since its last stored date (or the
// configured lookback for a fresh symbol) and upserts the result.
func (s *SyncService) SyncSymbol(ctx context.Context, symbol string) error {
	last, ok, err := s.repo.LastDate(symbol)
	if err != nil {
		return fmt.Errorf("failed to determine sync start for %s: %w", symbol, err)
	}

	// Re-fetch the last stored day too: its bar may have been written
	// mid-session and the upsert replaces it with the final values.
	var start time.Time
	if ok {
		start = last
	} else {
		start = time.Now().UTC().AddDate(0, 0, -s.lookbackDays)
	}

	candles, err := s.remote.DailyBars(ctx, symbol, start)
	if err != nil {
		return fmt.Errorf("failed to fetch %s from %s: %w", symbol, s.remote.Name(), err)
	}

	if len(candles) == 0 {
		s.log.Debug().Str("symbol", symbol).Msg("No new bars to sync")
		return nil
	}

	if err := s.repo.UpsertBars(symbol, candles); err != nil {
		return fmt.Errorf("failed to store bars for %s: %w", symbol, err)
	}

	s.log.Info().
		Str("symbol", symbol).
		Str("source", s.remote.Name()).
		Int("count", len(candles)).
		Time("since", start).
		Msg("Synced daily bars")

	return nil
}

// SyncAll syncs every watchlist symbol. One symbol's failure does not
// stop the others; the service reports how many failed at the end.
func (s *SyncService) SyncAll(ctx context.Context) error {
	symbols := s.watchlist.Symbols()
	s.log.Info().Int("symbols", len(symbols)).Msg("Starting history sync")

	failed := 0
	for _, symbol := range symbols {
		if err := s.SyncSymbol(ctx, symbol); err != nil {
			s.log.Error().Err(err).Str("symbol", symbol).Msg("Symbol sync failed")
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("history sync finished with %d of %d symbols failed", failed, len(symbols))
	}

	s.log.Info().Int("symbols", len(symbols)).Msg("History sync complete")
	return nil
}

// Run executes a full sync. Satisfies the scheduled job contract.
func (s *SyncService) Run() error {
	return s.SyncAll(context.Background())
}

// Name returns the job name for scheduling and logging.
func (s *SyncService) Name() string {
	return "history_sync"
}
