// Package dashboard assembles one render request into plot curves,
// per-symbol table previews, portfolio metrics and the combined export
// dataset. It owns the whole-request failure policy: a failure for any
// requested symbol empties the entire result.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/marketview/internal/domain"
	"github.com/aristath/marketview/internal/modules/features"
	"github.com/aristath/marketview/internal/modules/forecast"
	"github.com/aristath/marketview/internal/modules/portfolio"
	"github.com/aristath/marketview/internal/modules/series"
)

// tableRowLimit is how many trailing rows each symbol's preview shows.
const tableRowLimit = 5

// Service runs the analytics pipeline for one render request.
type Service struct {
	series *series.Service
	log    zerolog.Logger
}

// NewService creates a new dashboard service.
func NewService(series *series.Service, log zerolog.Logger) *Service {
	return &Service{
		series: series,
		log:    log.With().Str("service", "dashboard").Logger(),
	}
}

// Assemble runs Ingestor -> Feature Deriver -> optional Predictor for
// every requested symbol, in request order, then aggregates and packages
// the outputs.
//
// Invalid input (no symbols, unparsable start date, non-positive window)
// degrades to an empty successful render. Any pipeline error for any
// symbol aborts the whole request: the result then carries empty curves,
// tables, metrics and dataset, plus a human-readable error string. That
// all-or-nothing behavior is deliberate and load-bearing; per-symbol
// isolation would change what users see for mixed symbol sets.
func (s *Service) Assemble(ctx context.Context, req domain.RenderRequest) domain.RenderResult {
	start, ok := s.validate(req)
	if !ok {
		return emptyResult(req.IncludePrediction)
	}

	seriesList := make([]*domain.SymbolSeries, 0, len(req.Symbols))
	predictions := make(map[string]domain.PredictionPoint)

	for _, symbol := range req.Symbols {
		sr, err := s.series.Fetch(ctx, symbol, start)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("Render aborted")
			return failedResult(err, req.IncludePrediction)
		}

		features.Enrich(sr, req.Window, req.IncludePrediction)

		if req.IncludePrediction {
			if point, ok := forecast.Predict(sr); ok {
				predictions[symbol] = point
			}
			// An absent prediction is silent: the symbol simply
			// contributes no prediction curve.
		}

		seriesList = append(seriesList, sr)
	}

	snapshot := portfolio.Aggregate(seriesList)

	result := domain.RenderResult{
		PlotSeries:  buildCurves(seriesList, predictions, req),
		TableBlocks: buildTables(seriesList),
		MetricsText: formatMetrics(snapshot),
		Dataset:     buildDataset(seriesList, req.IncludePrediction),
	}

	s.log.Debug().
		Int("symbols", len(seriesList)).
		Int("curves", len(result.PlotSeries)).
		Int("rows", len(result.Dataset.Rows)).
		Msg("Render assembled")

	return result
}

// validate checks the request parameters. Input errors are not pipeline
// failures: they degrade to "no data to render".
func (s *Service) validate(req domain.RenderRequest) (time.Time, bool) {
	if len(req.Symbols) == 0 {
		s.log.Warn().Msg("Render request without symbols")
		return time.Time{}, false
	}

	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		s.log.Warn().Str("start", req.StartDate).Msg("Unparsable start date")
		return time.Time{}, false
	}

	if req.Window < 1 {
		s.log.Warn().Int("window", req.Window).Msg("Non-positive window")
		return time.Time{}, false
	}

	return start, true
}

// buildCurves emits, per symbol in request order: the raw close curve,
// the moving-average curve (non-null rows only), and, when a prediction
// exists for the symbol, a single-point prediction curve.
func buildCurves(seriesList []*domain.SymbolSeries, predictions map[string]domain.PredictionPoint, req domain.RenderRequest) []domain.PlotSeries {
	curves := make([]domain.PlotSeries, 0, 3*len(seriesList))

	for _, sr := range seriesList {
		closeCurve := domain.PlotSeries{
			Name: fmt.Sprintf("%s Close", sr.Symbol),
			Kind: domain.SeriesKindLine,
			X:    make([]string, 0, len(sr.Bars)),
			Y:    make([]float64, 0, len(sr.Bars)),
		}
		maCurve := domain.PlotSeries{
			Name: fmt.Sprintf("%s MA%d", sr.Symbol, req.Window),
			Kind: domain.SeriesKindLine,
			X:    []string{},
			Y:    []float64{},
		}

		for i, bar := range sr.Bars {
			date := bar.Date.Format("2006-01-02")
			closeCurve.X = append(closeCurve.X, date)
			closeCurve.Y = append(closeCurve.Y, bar.Close)

			if ma := sr.MovingAvg[i]; ma != nil {
				maCurve.X = append(maCurve.X, date)
				maCurve.Y = append(maCurve.Y, *ma)
			}
		}

		curves = append(curves, closeCurve, maCurve)

		if point, ok := predictions[sr.Symbol]; ok {
			curves = append(curves, domain.PlotSeries{
				Name: fmt.Sprintf("%s Predicted Close", sr.Symbol),
				Kind: domain.SeriesKindPoint,
				X:    []string{point.TargetDate.Format("2006-01-02")},
				Y:    []float64{point.PredictedClose},
			})
		}
	}

	return curves
}

// buildTables emits one block per symbol with its trailing rows in
// ascending date order.
func buildTables(seriesList []*domain.SymbolSeries) []domain.TableBlock {
	blocks := make([]domain.TableBlock, 0, len(seriesList))

	for _, sr := range seriesList {
		first := len(sr.Bars) - tableRowLimit
		if first < 0 {
			first = 0
		}

		rows := make([]domain.TableRow, 0, len(sr.Bars)-first)
		for i := first; i < len(sr.Bars); i++ {
			bar := sr.Bars[i]
			rows = append(rows, domain.TableRow{
				Date:          bar.Date.Format("2006-01-02"),
				Open:          bar.Open,
				High:          bar.High,
				Low:           bar.Low,
				Close:         bar.Close,
				Volume:        bar.Volume,
				MovingAverage: sr.MovingAvg[i],
				Symbol:        sr.Symbol,
			})
		}

		blocks = append(blocks, domain.TableBlock{
			Symbol:  sr.Symbol,
			Columns: domain.TableColumns,
			Rows:    rows,
		})
	}

	return blocks
}

// buildDataset concatenates every symbol's full (non-truncated) rows.
func buildDataset(seriesList []*domain.SymbolSeries, withLag bool) domain.Dataset {
	ds := domain.Dataset{
		Columns: domain.DatasetColumns(withLag),
		Rows:    []domain.DatasetRow{},
	}

	for _, sr := range seriesList {
		for i, bar := range sr.Bars {
			row := domain.DatasetRow{
				Date:          bar.Date.Format("2006-01-02"),
				Open:          bar.Open,
				High:          bar.High,
				Low:           bar.Low,
				Close:         bar.Close,
				Volume:        bar.Volume,
				MovingAverage: sr.MovingAvg[i],
				Symbol:        sr.Symbol,
			}
			if withLag {
				row.LaggedClose = sr.LagClose[i]
			}
			ds.Rows = append(ds.Rows, row)
		}
	}

	return ds
}

// formatMetrics renders the portfolio snapshot as the metrics line. An
// empty union prints NaN close statistics, degenerate but valid.
func formatMetrics(snap domain.PortfolioSnapshot) string {
	return fmt.Sprintf("Average Close: %.2f | Max Close: %.2f | Min Close: %.2f | Total Volume: %d",
		snap.AverageClose, snap.MaxClose, snap.MinClose, snap.TotalVolume)
}

// emptyResult is the degraded-but-successful render for input errors.
func emptyResult(withLag bool) domain.RenderResult {
	return domain.RenderResult{
		PlotSeries:  []domain.PlotSeries{},
		TableBlocks: []domain.TableBlock{},
		MetricsText: "",
		ErrorText:   "",
		Dataset:     domain.Dataset{Columns: domain.DatasetColumns(withLag), Rows: []domain.DatasetRow{}},
	}
}

// failedResult carries the user-visible error and nothing else.
func failedResult(err error, withLag bool) domain.RenderResult {
	result := emptyResult(withLag)
	result.ErrorText = fmt.Sprintf("An error occurred: %s", err.Error())
	return result
}
