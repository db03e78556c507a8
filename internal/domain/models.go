// Package domain holds the analytics pipeline's data model.
// Types here are pure data with small helpers; no infrastructure imports.
package domain

import "time"

// Candle is a raw daily OHLCV observation as returned by a market-data
// source. Fields are pointers because sources can surface incomplete bars
// (halted sessions, unreported volume); normalization drops those rows.
type Candle struct {
	Date   time.Time `json:"date" msgpack:"date"`
	Open   *float64  `json:"open" msgpack:"open"`
	High   *float64  `json:"high" msgpack:"high"`
	Low    *float64  `json:"low" msgpack:"low"`
	Close  *float64  `json:"close" msgpack:"close"`
	Volume *int64    `json:"volume" msgpack:"volume"`
}

// Complete reports whether every required field is present and volume is
// non-negative. Incomplete candles never reach a SymbolSeries.
func (c Candle) Complete() bool {
	if c.Open == nil || c.High == nil || c.Low == nil || c.Close == nil || c.Volume == nil {
		return false
	}
	return *c.Volume >= 0
}

// DailyBar is one fully populated trading-day observation. Produced by the
// series ingestor; immutable once produced.
type DailyBar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// SymbolSeries owns one symbol's ordered daily bars plus derived columns.
// Invariant: bars sorted ascending by date, no duplicate dates, no missing
// fields. Derived columns are aligned with Bars; a nil slice means the
// column has not been derived, a nil entry means null for that row.
type SymbolSeries struct {
	Symbol string
	Bars   []DailyBar

	// MovingAvg is null for the first window-1 rows.
	MovingAvg []*float64

	// LagClose is the close shifted down by one row (null first row).
	// Derived only when a prediction is requested.
	LagClose []*float64
}

// Closes returns the close column.
func (s SymbolSeries) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// LastBar returns the most recent bar, if any.
func (s SymbolSeries) LastBar() (DailyBar, bool) {
	if len(s.Bars) == 0 {
		return DailyBar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// PredictionPoint is a naive one-step-ahead close forecast for a symbol.
// Produced only when the owning series has enough usable rows.
type PredictionPoint struct {
	Symbol         string
	TargetDate     time.Time
	PredictedClose float64
}

// PortfolioSnapshot holds cross-symbol summary statistics over the union of
// all requested symbols' rows. Derived per request, never stored. The close
// statistics are NaN when the union is empty.
type PortfolioSnapshot struct {
	AverageClose float64
	MaxClose     float64
	MinClose     float64
	TotalVolume  int64
}

// Plot series kinds.
const (
	SeriesKindLine  = "line"
	SeriesKindPoint = "point"
)

// PlotSeries is one named curve for the charting surface. X values are ISO
// dates aligned with Y.
type PlotSeries struct {
	Name string    `json:"name"`
	Kind string    `json:"kind"`
	X    []string  `json:"x"`
	Y    []float64 `json:"y"`
}

// TableColumns is the fixed column list of every per-symbol table block.
var TableColumns = []string{"date", "open", "high", "low", "close", "volume", "moving_average", "symbol"}

// TableRow is one typed record of a table block.
type TableRow struct {
	Date          string   `json:"date"`
	Open          float64  `json:"open"`
	High          float64  `json:"high"`
	Low           float64  `json:"low"`
	Close         float64  `json:"close"`
	Volume        int64    `json:"volume"`
	MovingAverage *float64 `json:"moving_average"`
	Symbol        string   `json:"symbol"`
}

// TableBlock is the last-rows preview for one symbol, ascending by date.
type TableBlock struct {
	Symbol  string     `json:"symbol"`
	Columns []string   `json:"columns"`
	Rows    []TableRow `json:"rows"`
}

// DatasetColumns returns the combined dataset's column list. The lagged
// close column exists only when a prediction was requested.
func DatasetColumns(withLag bool) []string {
	cols := []string{"date", "open", "high", "low", "close", "volume", "moving_average"}
	if withLag {
		cols = append(cols, "lagged_close")
	}
	return append(cols, "symbol")
}

// DatasetRow is one symbol-tagged observation of the combined dataset.
type DatasetRow struct {
	Date          string   `json:"date"`
	Open          float64  `json:"open"`
	High          float64  `json:"high"`
	Low           float64  `json:"low"`
	Close         float64  `json:"close"`
	Volume        int64    `json:"volume"`
	MovingAverage *float64 `json:"moving_average"`
	LaggedClose   *float64 `json:"lagged_close,omitempty"`
	Symbol        string   `json:"symbol"`
}

// Dataset is the combined row table over all requested symbols, with an
// explicit enumerated column list. It is what CSV export serializes.
type Dataset struct {
	Columns []string     `json:"columns"`
	Rows    []DatasetRow `json:"rows"`
}

// Empty reports whether the dataset has no rows.
func (d Dataset) Empty() bool {
	return len(d.Rows) == 0
}

// RenderRequest carries the four user-supplied parameters of one render.
// StartDate stays a raw string here; the pipeline validates it so that a
// malformed value degrades to an empty render instead of a transport error.
type RenderRequest struct {
	Symbols           []string
	StartDate         string
	Window            int
	IncludePrediction bool
}

// RenderResult is the externally owned output of one pipeline run. On
// failure every collection is empty and ErrorText carries the message; on
// success ErrorText is empty.
type RenderResult struct {
	PlotSeries  []PlotSeries `json:"plot_series"`
	TableBlocks []TableBlock `json:"table_blocks"`
	MetricsText string       `json:"metrics_text"`
	ErrorText   string       `json:"error_text"`
	Dataset     Dataset      `json:"dataset"`
}

// Failed reports whether this result carries an error instead of data.
func (r RenderResult) Failed() bool {
	return r.ErrorText != ""
}
