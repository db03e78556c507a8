package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/marketview/internal/domain"
)

func sampleDataset(withLag bool) domain.Dataset {
	ma := 101.5
	lag := 100.0

	row := domain.DatasetRow{
		Date:          "2024-06-03",
		Open:          100,
		High:          103,
		Low:           99.5,
		Close:         102,
		Volume:        15000,
		MovingAverage: &ma,
		Symbol:        "AAPL",
	}
	first := domain.DatasetRow{
		Date:   "2024-05-31",
		Open:   99,
		High:   100,
		Low:    98,
		Close:  100,
		Volume: 12000,
		Symbol: "AAPL",
	}
	if withLag {
		row.LaggedClose = &lag
	}

	return domain.Dataset{
		Columns: domain.DatasetColumns(withLag),
		Rows:    []domain.DatasetRow{first, row},
	}
}

func TestWriteCSV_HeaderMatchesColumns(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleDataset(false)))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, []string{"date", "open", "high", "low", "close", "volume", "moving_average", "symbol"}, records[0])
}

func TestWriteCSV_NullCellsEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleDataset(false)))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)

	// First row has no moving average yet.
	assert.Equal(t, "", records[1][6])
	assert.Equal(t, "101.5", records[2][6])
}

func TestWriteCSV_LagColumnOnlyWhenRequested(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleDataset(true)))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)

	require.Len(t, records[0], 9)
	assert.Equal(t, "lagged_close", records[0][7])
	assert.Equal(t, "symbol", records[0][8])
	assert.Equal(t, "", records[1][7])
	assert.Equal(t, "100", records[2][7])
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	ds := sampleDataset(true)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, ds))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)

	// Re-parsing reproduces the row count and the column set.
	assert.Len(t, records, len(ds.Rows)+1)
	assert.Equal(t, ds.Columns, records[0])
	for _, record := range records[1:] {
		assert.Len(t, record, len(ds.Columns))
	}
}

func TestWriteCSV_EmptyDataset(t *testing.T) {
	var buf bytes.Buffer
	ds := domain.Dataset{Columns: domain.DatasetColumns(false)}

	require.NoError(t, WriteCSV(&buf, ds))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 1, "only the header row")
}

func TestParseArchiveKey(t *testing.T) {
	tests := []struct {
		key  string
		want time.Time
		ok   bool
	}{
		{"marketview-export-2026-08-26-143022.csv", time.Date(2026, 8, 26, 14, 30, 22, 0, time.UTC), true},
		{"marketview-export-garbage.csv", time.Time{}, false},
		{"other-object.csv", time.Time{}, false},
		{"marketview-export-2026-08-26-143022.tar.gz", time.Time{}, false},
		{"marketview-export-.csv", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, ok := parseArchiveKey(tt.key)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
