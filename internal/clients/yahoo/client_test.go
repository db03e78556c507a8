package yahoo

import (
	"testing"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientName(t *testing.T) {
	c := NewClient(zerolog.Nop())
	assert.Equal(t, "yahoo", c.Name())
}

func TestBarToCandle(t *testing.T) {
	// 2024-01-02 14:30:00 UTC session open
	bar := &finance.ChartBar{
		Timestamp: 1704205800,
		Open:      decimal.NewFromFloat(187.15),
		High:      decimal.NewFromFloat(188.44),
		Low:       decimal.NewFromFloat(183.89),
		Close:     decimal.NewFromFloat(185.64),
		Volume:    82488700,
	}

	candle := barToCandle(bar)

	assert.Equal(t, time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC), candle.Date)
	require.NotNil(t, candle.Open)
	assert.InDelta(t, 187.15, *candle.Open, 1e-9)
	require.NotNil(t, candle.High)
	assert.InDelta(t, 188.44, *candle.High, 1e-9)
	require.NotNil(t, candle.Low)
	assert.InDelta(t, 183.89, *candle.Low, 1e-9)
	require.NotNil(t, candle.Close)
	assert.InDelta(t, 185.64, *candle.Close, 1e-9)
	require.NotNil(t, candle.Volume)
	assert.Equal(t, int64(82488700), *candle.Volume)

	assert.True(t, candle.Complete())
}

func TestBarToCandle_ZeroVolume(t *testing.T) {
	bar := &finance.ChartBar{
		Timestamp: 1704205800,
		Open:      decimal.NewFromFloat(1),
		High:      decimal.NewFromFloat(1),
		Low:       decimal.NewFromFloat(1),
		Close:     decimal.NewFromFloat(1),
		Volume:    0,
	}

	candle := barToCandle(bar)

	require.NotNil(t, candle.Volume)
	assert.Equal(t, int64(0), *candle.Volume)
	assert.True(t, candle.Complete(), "zero volume is a valid trading day")
}
