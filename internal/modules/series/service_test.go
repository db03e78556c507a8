package series

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/marketview/internal/domain"
)

type fakeFetcher struct {
	candles []domain.Candle
	err     error
}

func (f *fakeFetcher) DailyBars(_ context.Context, _ string, _ time.Time) ([]domain.Candle, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	return f.candles, "fake", nil
}

func fptr(v float64) *float64 { return &v }
func iptr(v int64) *int64     { return &v }

func candle(date time.Time, close float64, volume int64) domain.Candle {
	return domain.Candle{
		Date:   date,
		Open:   fptr(close),
		High:   fptr(close),
		Low:    fptr(close),
		Close:  fptr(close),
		Volume: iptr(volume),
	}
}

func TestFetch_SortsAscendingByDate(t *testing.T) {
	d1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 1)
	d3 := d1.AddDate(0, 0, 2)

	svc := NewService(&fakeFetcher{candles: []domain.Candle{
		candle(d3, 3, 30),
		candle(d1, 1, 10),
		candle(d2, 2, 20),
	}}, zerolog.Nop())

	series, err := svc.Fetch(context.Background(), "AAPL", d1)
	require.NoError(t, err)

	require.Len(t, series.Bars, 3)
	assert.Equal(t, d1, series.Bars[0].Date)
	assert.Equal(t, d2, series.Bars[1].Date)
	assert.Equal(t, d3, series.Bars[2].Date)
	assert.Equal(t, "AAPL", series.Symbol)
}

func TestFetch_DropsIncompleteRows(t *testing.T) {
	d1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 1)
	d3 := d1.AddDate(0, 0, 2)
	d4 := d1.AddDate(0, 0, 3)

	missingClose := candle(d2, 2, 20)
	missingClose.Close = nil

	missingVolume := candle(d3, 3, 30)
	missingVolume.Volume = nil

	negativeVolume := candle(d4, 4, -5)

	svc := NewService(&fakeFetcher{candles: []domain.Candle{
		candle(d1, 1, 10),
		missingClose,
		missingVolume,
		negativeVolume,
	}}, zerolog.Nop())

	series, err := svc.Fetch(context.Background(), "AAPL", d1)
	require.NoError(t, err)

	require.Len(t, series.Bars, 1)
	assert.Equal(t, d1, series.Bars[0].Date)
}

func TestFetch_DeduplicatesKeepingLastRow(t *testing.T) {
	d1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	svc := NewService(&fakeFetcher{candles: []domain.Candle{
		candle(d1, 1.0, 10),
		candle(d1, 2.0, 20),
	}}, zerolog.Nop())

	series, err := svc.Fetch(context.Background(), "AAPL", d1)
	require.NoError(t, err)

	require.Len(t, series.Bars, 1)
	assert.InDelta(t, 2.0, series.Bars[0].Close, 1e-9)
	assert.Equal(t, int64(20), series.Bars[0].Volume)
}

func TestFetch_TruncatesTimestampsToDay(t *testing.T) {
	stamped := time.Date(2024, 1, 5, 14, 30, 11, 0, time.UTC)

	svc := NewService(&fakeFetcher{candles: []domain.Candle{
		candle(stamped, 1, 10),
	}}, zerolog.Nop())

	series, err := svc.Fetch(context.Background(), "AAPL", stamped)
	require.NoError(t, err)

	require.Len(t, series.Bars, 1)
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), series.Bars[0].Date)
}

func TestFetch_EmptyResultIsNotAnError(t *testing.T) {
	svc := NewService(&fakeFetcher{}, zerolog.Nop())

	series, err := svc.Fetch(context.Background(), "AAPL", time.Now())
	require.NoError(t, err)
	assert.Empty(t, series.Bars)
}

func TestFetch_WrapsProviderError(t *testing.T) {
	underlying := fmt.Errorf("symbol not found")
	svc := NewService(&fakeFetcher{err: underlying}, zerolog.Nop())

	_, err := svc.Fetch(context.Background(), "BADTICKER", time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch BADTICKER")
	assert.ErrorIs(t, err, underlying)
}
