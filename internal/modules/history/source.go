package history

import (
	"context"
	"time"

	"github.com/aristath/marketview/internal/domain"
)

// SourceName identifies the local store in source chains. Unlike the
// remote providers it has no cache table; reads hit the database.
const SourceName = "sqlite"

// Source adapts the repository to the BarSource interface so the local
// store can sit anywhere in the price source chain. With a synced store
// this makes fully offline operation possible.
type Source struct {
	repo *Repository
}

// NewSource creates a bar source backed by the local history store.
func NewSource(repo *Repository) *Source {
	return &Source{repo: repo}
}

// Name returns the source name.
func (s *Source) Name() string {
	return SourceName
}

// DailyBars serves stored candles. Zero rows is a valid result; a
// symbol that was never synced simply has no history here.
func (s *Source) DailyBars(_ context.Context, symbol string, start time.Time) ([]domain.Candle, error) {
	return s.repo.DailyBars(symbol, start)
}
