package domain

import (
	"context"
	"time"
)

// BarSource is one market-data provider: remote API or the local history
// store. Implementations return raw candles from start (inclusive) to the
// latest available day; they never normalize, that is the ingestor's job.
type BarSource interface {
	// Name identifies the source in logs and cache keys.
	Name() string

	// DailyBars fetches one symbol's raw daily history. A nil error with
	// zero rows is valid (symbol has no history in range); unknown symbols
	// and transport failures are errors.
	DailyBars(ctx context.Context, symbol string, start time.Time) ([]Candle, error)
}

// BarFetcher is what the pipeline consumes: a source chain plus caching
// behind one call. This interface keeps the pipeline testable without any
// network or database.
type BarFetcher interface {
	// DailyBars returns raw candles and the name of the source (or cache)
	// that served them.
	DailyBars(ctx context.Context, symbol string, start time.Time) ([]Candle, string, error)
}
