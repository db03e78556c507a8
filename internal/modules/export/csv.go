// Package export serializes the last rendered dataset to CSV and,
// when object storage is configured, archives the serialized form.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/aristath/marketview/internal/domain"
)

// FileName is the fixed download name of the CSV export.
const FileName = "stock_data.csv"

// WriteCSV serializes a dataset: header row from the dataset's column
// list, one line per observation, null cells empty, dates ISO. The
// lagged close column is written only when the dataset carries it.
func WriteCSV(w io.Writer, ds domain.Dataset) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(ds.Columns); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	withLag := hasColumn(ds.Columns, "lagged_close")

	record := make([]string, 0, len(ds.Columns))
	for _, row := range ds.Rows {
		record = record[:0]
		record = append(record,
			row.Date,
			formatFloat(row.Open),
			formatFloat(row.High),
			formatFloat(row.Low),
			formatFloat(row.Close),
			strconv.FormatInt(row.Volume, 10),
			formatNullable(row.MovingAverage),
		)
		if withLag {
			record = append(record, formatNullable(row.LaggedClose))
		}
		record = append(record, row.Symbol)

		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}

	return nil
}

func hasColumn(columns []string, name string) bool {
	for _, c := range columns {
		if c == name {
			return true
		}
	}
	return false
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatNullable(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
