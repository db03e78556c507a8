// Package features derives per-series analytical columns from raw
// daily bars: the rolling moving average and the one-day lagged close.
package features

import (
	"math"

	"github.com/markcheno/go-talib"

	"github.com/aristath/marketview/internal/domain"
)

// MovingAverage computes a simple moving average over the close column.
// The result has one entry per input row; the first window-1 entries are
// nil because no full window of history exists yet. If the series is
// shorter than the window, every entry is nil.
func MovingAverage(closes []float64, window int) []*float64 {
	out := make([]*float64, len(closes))

	// talib.Sma panics when it cannot fill a single window
	if window < 1 || len(closes) < window {
		return out
	}

	sma := talib.Sma(closes, window)
	for i := window - 1; i < len(sma); i++ {
		if math.IsNaN(sma[i]) {
			continue
		}
		v := sma[i]
		out[i] = &v
	}

	return out
}

// LagClose shifts the close column down by one row. The first entry is
// nil since no previous close exists for the earliest date.
func LagClose(closes []float64) []*float64 {
	out := make([]*float64, len(closes))
	for i := 1; i < len(closes); i++ {
		v := closes[i-1]
		out[i] = &v
	}
	return out
}

// Enrich computes the derived columns for a series in place. The lag
// column is only materialized when the caller needs it for prediction.
func Enrich(s *domain.SymbolSeries, window int, withLag bool) {
	closes := s.Closes()
	s.MovingAvg = MovingAverage(closes, window)
	if withLag {
		s.LagClose = LagClose(closes)
	} else {
		s.LagClose = nil
	}
}
