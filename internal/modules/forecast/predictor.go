// Package forecast fits a naive next-day close estimate from the
// one-day lagged close. It is a single-feature least-squares baseline,
// not a time-series model.
package forecast

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/aristath/marketview/internal/domain"
)

// Predict fits close[i] ~ a + b*lag[i] on the series and projects one
// step forward by feeding the last observed close into the fitted line.
//
// Rows without a lag value (the first row) are dropped before fitting.
// Over the remaining m rows the training inputs are lag[0..m-2] and the
// targets are close[1..m-1], so the last row's lag never enters
// training and its close is reserved as the prediction input. The
// second return value reports whether a prediction exists; it is false
// when fewer than two rows survive the lag drop.
func Predict(s *domain.SymbolSeries) (domain.PredictionPoint, bool) {
	closes := s.Closes()
	n := len(closes)

	// Frame after dropping the lag-null first row has n-1 rows; fitting
	// needs at least two of them.
	if n-1 < 2 {
		return domain.PredictionPoint{}, false
	}

	// Lag values are closes[0..n-2]; frame closes are closes[1..n-1].
	x := closes[:n-2]
	y := closes[2:]

	alpha, beta := stat.LinearRegression(x, y, nil, false)

	// A single training pair or a constant input column has no variance
	// to regress on. Least squares then degenerates to the mean of the
	// targets with zero slope, which keeps the estimate finite and
	// deterministic.
	if math.IsNaN(beta) || math.IsInf(beta, 0) {
		beta = 0
		alpha = stat.Mean(y, nil)
	}

	last, _ := s.LastBar()
	predicted := alpha + beta*last.Close

	return domain.PredictionPoint{
		Symbol:         s.Symbol,
		TargetDate:     last.Date.AddDate(0, 0, 1),
		PredictedClose: predicted,
	}, true
}
