package market

import (
	"time"

	"coinetl/pkg/coingecko"
)

// TimestampLayout is the text form of Row.TimeStamp in snapshots and reports.
const TimestampLayout = "2006-01-02 15:04:05"

// DateLayout is the text form of a snapshot's calendar date.
const DateLayout = "2006-01-02"

// Columns is the fixed, ordered schema of a snapshot row.
var Columns = []string{
	"id",
	"symbol",
	"name",
	"current_price",
	"market_cap",
	"price_change_percentage_24h",
	"ath",
	"atl",
	"time_stamp",
}

// Row is one tracked asset captured by one extraction run.
// Numeric fields are nil when the source omitted them.
type Row struct {
	ID                       string    `json:"id"`                          // Stable asset id (e.g., "bitcoin")
	Symbol                   string    `json:"symbol"`                      // Ticker (e.g., "btc")
	Name                     string    `json:"name"`                        // Display name
	CurrentPrice             *float64  `json:"current_price"`               // Price in USD
	MarketCap                *float64  `json:"market_cap"`                  // Market cap in USD
	PriceChangePercentage24h *float64  `json:"price_change_percentage_24h"` // 24h change in percent
	ATH                      *float64  `json:"ath"`                         // All-time high
	ATL                      *float64  `json:"atl"`                         // All-time low
	TimeStamp                time.Time `json:"time_stamp"`                  // Capture time, second precision, shared by the run
}

// FromCoin maps an API record onto the fixed row schema, stamping it with capturedAt.
func FromCoin(c coingecko.MarketCoin, capturedAt time.Time) Row {
	return Row{
		ID:                       c.ID,
		Symbol:                   c.Symbol,
		Name:                     c.Name,
		CurrentPrice:             c.CurrentPrice,
		MarketCap:                c.MarketCap,
		PriceChangePercentage24h: c.PriceChangePercentage24h,
		ATH:                      c.ATH,
		ATL:                      c.ATL,
		TimeStamp:                capturedAt,
	}
}

// Values returns the row's numeric columns in schema order.
func (r Row) Values() []*float64 {
	return []*float64{r.CurrentPrice, r.MarketCap, r.PriceChangePercentage24h, r.ATH, r.ATL}
}
