// Package history provides the local daily price store on history.db.
// It doubles as an offline market-data source: the sqlite source serves
// the pipeline straight from this store, and the sync service keeps the
// store current from a remote provider.
package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/marketview/internal/database"
	"github.com/aristath/marketview/internal/domain"
)

// Repository provides access to the daily_prices table.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new history repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "history").Logger(),
	}
}

// SymbolCoverage describes the stored history range for one symbol.
type SymbolCoverage struct {
	Symbol    string `json:"symbol"`
	FirstDate string `json:"first_date"`
	LastDate  string `json:"last_date"`
	Rows      int    `json:"rows"`
}

// UpsertBars inserts or replaces candles for a symbol in one
// transaction. Dates are stored as unix timestamps of midnight UTC, so
// re-syncing a range is idempotent.
func (r *Repository) UpsertBars(symbol string, candles []domain.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT OR REPLACE INTO daily_prices
			(symbol, date, open, high, low, close, volume)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, c := range candles {
			day := time.Date(c.Date.Year(), c.Date.Month(), c.Date.Day(), 0, 0, 0, 0, time.UTC)

			_, err = stmt.Exec(
				symbol,
				day.Unix(),
				nullFloat(c.Open),
				nullFloat(c.High),
				nullFloat(c.Low),
				nullFloat(c.Close),
				nullInt(c.Volume),
			)
			if err != nil {
				return fmt.Errorf("failed to insert bar for %s: %w", day.Format("2006-01-02"), err)
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	r.log.Debug().
		Str("symbol", symbol).
		Int("count", len(candles)).
		Msg("Upserted daily bars")

	return nil
}

// DailyBars fetches stored candles for a symbol from start onward,
// ascending by date. Nullable columns map onto nil candle fields; the
// ingestor drops those rows downstream.
func (r *Repository) DailyBars(symbol string, start time.Time) ([]domain.Candle, error) {
	query := `
		SELECT date, open, high, low, close, volume
		FROM daily_prices
		WHERE symbol = ? AND date >= ?
		ORDER BY date ASC
	`

	rows, err := r.db.Query(query, symbol, start.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to query daily bars: %w", err)
	}
	defer rows.Close()

	var candles []domain.Candle
	for rows.Next() {
		var (
			dateUnix                int64
			open, high, low, closeP sql.NullFloat64
			volume                  sql.NullInt64
		)

		if err := rows.Scan(&dateUnix, &open, &high, &low, &closeP, &volume); err != nil {
			return nil, fmt.Errorf("failed to scan daily bar: %w", err)
		}

		candles = append(candles, domain.Candle{
			Date:   time.Unix(dateUnix, 0).UTC(),
			Open:   floatPtr(open),
			High:   floatPtr(high),
			Low:    floatPtr(low),
			Close:  floatPtr(closeP),
			Volume: intPtr(volume),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily bars: %w", err)
	}

	return candles, nil
}

// LastDate returns the most recent stored date for a symbol. The second
// return value is false when the symbol has no rows.
func (r *Repository) LastDate(symbol string) (time.Time, bool, error) {
	var dateUnix sql.NullInt64

	err := r.db.QueryRow(
		"SELECT MAX(date) FROM daily_prices WHERE symbol = ?", symbol,
	).Scan(&dateUnix)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to query last date: %w", err)
	}
	if !dateUnix.Valid {
		return time.Time{}, false, nil
	}

	return time.Unix(dateUnix.Int64, 0).UTC(), true, nil
}

// Coverage summarizes the stored range per symbol, alphabetically.
func (r *Repository) Coverage() ([]SymbolCoverage, error) {
	query := `
		SELECT symbol, MIN(date), MAX(date), COUNT(*)
		FROM daily_prices
		GROUP BY symbol
		ORDER BY symbol ASC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query coverage: %w", err)
	}
	defer rows.Close()

	var coverage []SymbolCoverage
	for rows.Next() {
		var (
			c         SymbolCoverage
			firstUnix int64
			lastUnix  int64
		)

		if err := rows.Scan(&c.Symbol, &firstUnix, &lastUnix, &c.Rows); err != nil {
			return nil, fmt.Errorf("failed to scan coverage row: %w", err)
		}

		c.FirstDate = time.Unix(firstUnix, 0).UTC().Format("2006-01-02")
		c.LastDate = time.Unix(lastUnix, 0).UTC().Format("2006-01-02")
		coverage = append(coverage, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating coverage: %w", err)
	}

	return coverage, nil
}

// Prune removes rows older than the cutoff across all symbols. Returns
// the number of rows deleted.
func (r *Repository) Prune(olderThan time.Time) (int64, error) {
	result, err := r.db.Exec("DELETE FROM daily_prices WHERE date < ?", olderThan.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune daily bars: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if deleted > 0 {
		r.log.Info().
			Int64("rows_deleted", deleted).
			Time("older_than", olderThan).
			Msg("Pruned old daily bars")
	}

	return deleted, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func intPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	i := v.Int64
	return &i
}
