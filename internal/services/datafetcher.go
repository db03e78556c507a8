// Package services holds cross-module services. DataFetcherService is
// the single entry point for market data: it owns the ordered source
// chain and the persistent response cache, so the pipeline never talks
// to a provider directly.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/marketview/internal/clientdata"
	"github.com/aristath/marketview/internal/domain"
)

// DataFetcherService walks the configured sources in order until one
// succeeds. Responses from cacheable sources are stored in cache.db and
// served from there while fresh.
type DataFetcherService struct {
	sources       []domain.BarSource
	cache         *clientdata.Repository // nil disables caching
	cacheTTL      time.Duration
	staleFallback bool
	log           zerolog.Logger
}

// NewDataFetcherService creates a new data fetcher service. Pass a nil
// cache repository to disable response caching entirely.
func NewDataFetcherService(
	sources []domain.BarSource,
	cache *clientdata.Repository,
	cacheTTL time.Duration,
	staleFallback bool,
	log zerolog.Logger,
) *DataFetcherService {
	return &DataFetcherService{
		sources:       sources,
		cache:         cache,
		cacheTTL:      cacheTTL,
		staleFallback: staleFallback,
		log:           log.With().Str("service", "data_fetcher").Logger(),
	}
}

// DailyBars returns raw daily candles for a symbol from start to now,
// together with the name of the source that served them.
//
// Resolution order: fresh cache entry for any source in the chain, then
// each source in configured order (failures are logged and the next
// source tried), then (only when enabled) a stale cache entry. When
// everything fails the combined error propagates to the caller, which
// surfaces it as a whole-request failure.
func (s *DataFetcherService) DailyBars(ctx context.Context, symbol string, start time.Time) ([]domain.Candle, string, error) {
	key := cacheKey(symbol, start)

	if s.cache != nil {
		for _, src := range s.sources {
			table, cacheable := cacheTable(src.Name())
			if !cacheable {
				continue
			}

			var candles []domain.Candle
			hit, err := s.cache.GetIfFresh(table, key, &candles)
			if err != nil {
				s.log.Warn().Err(err).Str("table", table).Msg("Cache read failed")
				continue
			}
			if hit {
				s.log.Debug().
					Str("symbol", symbol).
					Str("source", src.Name()).
					Int("bars", len(candles)).
					Msg("Served daily bars from cache")
				return candles, src.Name() + " (cached)", nil
			}
		}
	}

	var errs []error
	for _, src := range s.sources {
		candles, err := src.DailyBars(ctx, symbol, start)
		if err != nil {
			s.log.Warn().
				Err(err).
				Str("symbol", symbol).
				Str("source", src.Name()).
				Msg("Source failed, trying next")
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
			continue
		}

		if s.cache != nil {
			if table, cacheable := cacheTable(src.Name()); cacheable {
				if err := s.cache.Store(table, key, candles, s.cacheTTL); err != nil {
					s.log.Warn().Err(err).Str("table", table).Msg("Cache write failed")
				}
			}
		}

		s.log.Debug().
			Str("symbol", symbol).
			Str("source", src.Name()).
			Int("bars", len(candles)).
			Msg("Fetched daily bars")
		return candles, src.Name(), nil
	}

	// Stale data is better than no data, but only when explicitly
	// enabled: the default keeps a provider outage visible to the user.
	if s.cache != nil && s.staleFallback {
		for _, src := range s.sources {
			table, cacheable := cacheTable(src.Name())
			if !cacheable {
				continue
			}

			var candles []domain.Candle
			hit, err := s.cache.Get(table, key, &candles)
			if err != nil {
				s.log.Warn().Err(err).Str("table", table).Msg("Stale cache read failed")
				continue
			}
			if hit {
				s.log.Warn().
					Str("symbol", symbol).
					Str("source", src.Name()).
					Msg("All sources failed, serving stale cache entry")
				return candles, src.Name() + " (stale)", nil
			}
		}
	}

	return nil, "", fmt.Errorf("all sources failed for %s: %w", symbol, errors.Join(errs...))
}

// cacheKey builds the cache key for one symbol and start date. The key
// excludes the end of the range since that is always "now".
func cacheKey(symbol string, start time.Time) string {
	return fmt.Sprintf("%s:%s", symbol, start.Format("2006-01-02"))
}

// cacheTable maps a source name onto its cache table. Sources without a
// table (the local sqlite store) are never cached.
func cacheTable(source string) (string, bool) {
	table := source + "_daily"
	for _, t := range clientdata.AllTables {
		if t == table {
			return table, true
		}
	}
	return "", false
}
