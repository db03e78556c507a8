// Package series fetches and normalizes one symbol's OHLCV history.
// It produces clean ascending daily bars for the downstream derivation
// and aggregation stages.
package series

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/marketview/internal/domain"
)

// Service turns raw provider candles into a normalized SymbolSeries.
type Service struct {
	fetcher domain.BarFetcher
	log     zerolog.Logger
}

// NewService creates a new series service
func NewService(fetcher domain.BarFetcher, log zerolog.Logger) *Service {
	return &Service{
		fetcher: fetcher,
		log:     log.With().Str("service", "series").Logger(),
	}
}

// Fetch retrieves one symbol's daily history from start to now and
// normalizes it. Rows missing any OHLCV field are dropped entirely,
// never interpolated. Provider failures propagate to the caller; an
// empty result is a valid series, not an error.
func (s *Service) Fetch(ctx context.Context, symbol string, start time.Time) (*domain.SymbolSeries, error) {
	candles, source, err := s.fetcher.DailyBars(ctx, symbol, start)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", symbol, err)
	}

	bars := normalize(candles)

	s.log.Debug().
		Str("symbol", symbol).
		Str("source", source).
		Int("fetched", len(candles)).
		Int("kept", len(bars)).
		Msg("Series normalized")

	return &domain.SymbolSeries{Symbol: symbol, Bars: bars}, nil
}

// normalize drops incomplete rows, truncates timestamps to the calendar
// day, sorts ascending by date, and keeps the last row when a provider
// reports the same day twice.
func normalize(candles []domain.Candle) []domain.DailyBar {
	bars := make([]domain.DailyBar, 0, len(candles))
	for _, c := range candles {
		if !c.Complete() {
			continue
		}
		bars = append(bars, domain.DailyBar{
			Date:   truncateToDay(c.Date),
			Open:   *c.Open,
			High:   *c.High,
			Low:    *c.Low,
			Close:  *c.Close,
			Volume: *c.Volume,
		})
	}

	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Date.Before(bars[j].Date)
	})

	deduped := bars[:0]
	for _, b := range bars {
		if n := len(deduped); n > 0 && deduped[n-1].Date.Equal(b.Date) {
			deduped[n-1] = b
			continue
		}
		deduped = append(deduped, b)
	}

	return deduped
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
