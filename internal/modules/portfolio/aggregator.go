// Package portfolio merges the rows of all requested symbols into one
// virtual table and computes cross-symbol summary statistics.
package portfolio

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/marketview/internal/domain"
)

// Aggregate concatenates every row of every series and computes
// portfolio-level statistics. The mean runs over rows, not symbols, so
// a symbol with more history weighs proportionally more. An empty union
// yields NaN close statistics and zero volume; callers treat that as a
// degenerate value, not an error.
func Aggregate(seriesList []*domain.SymbolSeries) domain.PortfolioSnapshot {
	var (
		closes []float64
		volume int64
	)

	for _, s := range seriesList {
		for _, bar := range s.Bars {
			closes = append(closes, bar.Close)
			volume += bar.Volume
		}
	}

	if len(closes) == 0 {
		return domain.PortfolioSnapshot{
			AverageClose: math.NaN(),
			MaxClose:     math.NaN(),
			MinClose:     math.NaN(),
			TotalVolume:  0,
		}
	}

	return domain.PortfolioSnapshot{
		AverageClose: stat.Mean(closes, nil),
		MaxClose:     floats.Max(closes),
		MinClose:     floats.Min(closes),
		TotalVolume:  volume,
	}
}
