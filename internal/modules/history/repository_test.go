package history

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/marketview/internal/domain"
)

const testSchema = `
CREATE TABLE daily_prices (
    symbol TEXT NOT NULL,
    date INTEGER NOT NULL,
    open REAL,
    high REAL,
    low REAL,
    close REAL,
    volume INTEGER,
    PRIMARY KEY (symbol, date)
);
`

func setupRepo(t *testing.T) *Repository {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	return NewRepository(db, zerolog.Nop())
}

func candlesFrom(start time.Time, closes ...float64) []domain.Candle {
	out := make([]domain.Candle, len(closes))
	for i := range closes {
		c := closes[i]
		v := int64(500)
		out[i] = domain.Candle{
			Date:   start.AddDate(0, 0, i),
			Open:   &c,
			High:   &c,
			Low:    &c,
			Close:  &c,
			Volume: &v,
		}
	}
	return out
}

func TestUpsertAndFetch(t *testing.T) {
	repo := setupRepo(t)
	start := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.UpsertBars("AAPL", candlesFrom(start, 100, 101, 102)))

	candles, err := repo.DailyBars("AAPL", start)
	require.NoError(t, err)
	require.Len(t, candles, 3)

	assert.Equal(t, start, candles[0].Date)
	assert.Equal(t, 100.0, *candles[0].Close)
	assert.Equal(t, 102.0, *candles[2].Close)
}

func TestUpsertBars_ReplacesSameDay(t *testing.T) {
	repo := setupRepo(t)
	start := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.UpsertBars("AAPL", candlesFrom(start, 100)))
	require.NoError(t, repo.UpsertBars("AAPL", candlesFrom(start, 105)))

	candles, err := repo.DailyBars("AAPL", start)
	require.NoError(t, err)
	require.Len(t, candles, 1, "same-day upsert must replace, not duplicate")
	assert.Equal(t, 105.0, *candles[0].Close)
}

func TestDailyBars_RespectsStart(t *testing.T) {
	repo := setupRepo(t)
	start := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.UpsertBars("AAPL", candlesFrom(start, 1, 2, 3, 4, 5)))

	candles, err := repo.DailyBars("AAPL", start.AddDate(0, 0, 3))
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, 4.0, *candles[0].Close)
}

func TestDailyBars_PreservesNullColumns(t *testing.T) {
	repo := setupRepo(t)
	start := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

	open := 10.0
	candle := domain.Candle{Date: start, Open: &open} // high/low/close/volume null
	require.NoError(t, repo.UpsertBars("AAPL", []domain.Candle{candle}))

	candles, err := repo.DailyBars("AAPL", start)
	require.NoError(t, err)
	require.Len(t, candles, 1)

	assert.Equal(t, 10.0, *candles[0].Open)
	assert.Nil(t, candles[0].Close)
	assert.Nil(t, candles[0].Volume)
	assert.False(t, candles[0].Complete())
}

func TestLastDate(t *testing.T) {
	repo := setupRepo(t)

	_, ok, err := repo.LastDate("AAPL")
	require.NoError(t, err)
	assert.False(t, ok, "symbol with no rows has no last date")

	start := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpsertBars("AAPL", candlesFrom(start, 1, 2, 3)))

	last, ok, err := repo.LastDate("AAPL")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, start.AddDate(0, 0, 2), last)
}

func TestCoverage(t *testing.T) {
	repo := setupRepo(t)
	start := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.UpsertBars("MSFT", candlesFrom(start, 1, 2)))
	require.NoError(t, repo.UpsertBars("AAPL", candlesFrom(start, 1, 2, 3)))

	coverage, err := repo.Coverage()
	require.NoError(t, err)
	require.Len(t, coverage, 2)

	assert.Equal(t, "AAPL", coverage[0].Symbol)
	assert.Equal(t, 3, coverage[0].Rows)
	assert.Equal(t, "2024-06-03", coverage[0].FirstDate)
	assert.Equal(t, "2024-06-05", coverage[0].LastDate)
	assert.Equal(t, "MSFT", coverage[1].Symbol)
}

func TestPrune(t *testing.T) {
	repo := setupRepo(t)
	start := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.UpsertBars("AAPL", candlesFrom(start, 1, 2, 3, 4)))

	deleted, err := repo.Prune(start.AddDate(0, 0, 2))
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	candles, err := repo.DailyBars("AAPL", time.Time{})
	require.NoError(t, err)
	assert.Len(t, candles, 2)
}
