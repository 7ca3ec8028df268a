package snapshot

import (
	"encoding/csv"
	"strconv"
	"strings"

	"coinetl/internal/etl/market"
)

// EncodeCSV writes rows as comma separated text with a header line.
// Nil numbers become empty cells.
func EncodeCSV(rows []market.Row) (string, error) {
	var buf strings.Builder
	w := csv.NewWriter(&buf)

	if err := w.Write(market.Columns); err != nil {
		return "", err
	}

	record := make([]string, len(market.Columns))
	for _, r := range rows {
		record = record[:0]
		record = append(record, r.ID, r.Symbol, r.Name)
		for _, v := range r.Values() {
			record = append(record, formatFloat(v))
		}
		record = append(record, r.TimeStamp.Format(market.TimestampLayout))

		if err := w.Write(record); err != nil {
			return "", err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
