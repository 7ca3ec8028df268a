package snapshot

import (
	"cmp"
	"slices"

	"coinetl/internal/etl/market"
)

// Gainers returns up to n rows with the highest 24h change, highest first.
func Gainers(rows []market.Row, n int) []market.Row {
	return ranked(rows, n, func(a, b float64) int { return cmp.Compare(b, a) })
}

// Losers returns up to n rows with the lowest 24h change, lowest first.
func Losers(rows []market.Row, n int) []market.Row {
	return ranked(rows, n, cmp.Compare[float64])
}

// ranked sorts a copy of the rows that have a 24h change. Equal values keep
// their original order.
func ranked(rows []market.Row, n int, compare func(a, b float64) int) []market.Row {
	out := make([]market.Row, 0, len(rows))
	for _, r := range rows {
		if r.PriceChangePercentage24h != nil {
			out = append(out, r)
		}
	}

	slices.SortStableFunc(out, func(a, b market.Row) int {
		return compare(*a.PriceChangePercentage24h, *b.PriceChangePercentage24h)
	})

	if len(out) > n {
		out = out[:n]
	}
	return out
}
