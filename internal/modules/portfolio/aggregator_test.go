package portfolio

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aristath/marketview/internal/domain"
)

func testSeries(symbol string, closes []float64, volumes []int64) *domain.SymbolSeries {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]domain.DailyBar, len(closes))
	for i := range closes {
		bars[i] = domain.DailyBar{
			Date:   start.AddDate(0, 0, i),
			Open:   closes[i],
			High:   closes[i],
			Low:    closes[i],
			Close:  closes[i],
			Volume: volumes[i],
		}
	}
	return &domain.SymbolSeries{Symbol: symbol, Bars: bars}
}

func TestAggregate_SingleSeries(t *testing.T) {
	s := testSeries("AAPL", []float64{10, 20, 30}, []int64{100, 200, 300})

	snap := Aggregate([]*domain.SymbolSeries{s})

	assert.InDelta(t, 20.0, snap.AverageClose, 1e-9)
	assert.InDelta(t, 30.0, snap.MaxClose, 1e-9)
	assert.InDelta(t, 10.0, snap.MinClose, 1e-9)
	assert.Equal(t, int64(600), snap.TotalVolume)
}

func TestAggregate_VolumeIsAdditive(t *testing.T) {
	a := testSeries("AAPL", []float64{1, 2}, []int64{10, 20})
	b := testSeries("MSFT", []float64{3, 4, 5}, []int64{30, 40, 50})

	onlyA := Aggregate([]*domain.SymbolSeries{a})
	onlyB := Aggregate([]*domain.SymbolSeries{b})
	both := Aggregate([]*domain.SymbolSeries{a, b})

	assert.Equal(t, onlyA.TotalVolume+onlyB.TotalVolume, both.TotalVolume)
	assert.Equal(t, int64(150), both.TotalVolume)
}

func TestAggregate_MeanIsRowWeighted(t *testing.T) {
	// Three rows for AAPL and one for MSFT: the mean is over all four
	// rows, not the mean of the two per-symbol means.
	a := testSeries("AAPL", []float64{1, 2, 3}, []int64{0, 0, 0})
	b := testSeries("MSFT", []float64{10}, []int64{0})

	snap := Aggregate([]*domain.SymbolSeries{a, b})

	assert.InDelta(t, 4.0, snap.AverageClose, 1e-9)
	assert.InDelta(t, 10.0, snap.MaxClose, 1e-9)
	assert.InDelta(t, 1.0, snap.MinClose, 1e-9)
}

func TestAggregate_Empty(t *testing.T) {
	tests := []struct {
		name string
		in   []*domain.SymbolSeries
	}{
		{"nil list", nil},
		{"empty list", []*domain.SymbolSeries{}},
		{"series without rows", []*domain.SymbolSeries{{Symbol: "AAPL"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := Aggregate(tt.in)

			assert.True(t, math.IsNaN(snap.AverageClose))
			assert.True(t, math.IsNaN(snap.MaxClose))
			assert.True(t, math.IsNaN(snap.MinClose))
			assert.Equal(t, int64(0), snap.TotalVolume)
		})
	}
}
