// Package yahoo fetches daily OHLCV history from the Yahoo Finance
// chart API. No API key is required.
package yahoo

import (
	"context"
	"fmt"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/rs/zerolog"

	"github.com/aristath/marketview/internal/domain"
)

// SourceName identifies this provider in source chains and cache tables.
const SourceName = "yahoo"

// Client wraps the Yahoo Finance chart endpoint.
type Client struct {
	log zerolog.Logger
}

// NewClient creates a new Yahoo Finance client
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		log: log.With().Str("client", "yahoo").Logger(),
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return SourceName
}

// DailyBars retrieves daily candles for a symbol from start to now.
func (c *Client) DailyBars(ctx context.Context, symbol string, start time.Time) ([]domain.Candle, error) {
	end := time.Now()

	params := &chart.Params{
		Params:   finance.Params{Context: &ctx},
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	}

	iter := chart.Get(params)

	var candles []domain.Candle
	for iter.Next() {
		candles = append(candles, barToCandle(iter.Bar()))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("yahoo chart request for %s failed: %w", symbol, err)
	}

	c.log.Debug().
		Str("symbol", symbol).
		Int("bars", len(candles)).
		Msg("Fetched daily bars")

	return candles, nil
}

// barToCandle maps a chart bar onto the provider-neutral candle shape.
// Yahoo reports bar timestamps as unix seconds of the session open.
func barToCandle(bar *finance.ChartBar) domain.Candle {
	open, _ := bar.Open.Float64()
	high, _ := bar.High.Float64()
	low, _ := bar.Low.Float64()
	closePrice, _ := bar.Close.Float64()
	volume := int64(bar.Volume)

	return domain.Candle{
		Date:   time.Unix(int64(bar.Timestamp), 0).UTC(),
		Open:   &open,
		High:   &high,
		Low:    &low,
		Close:  &closePrice,
		Volume: &volume,
	}
}
