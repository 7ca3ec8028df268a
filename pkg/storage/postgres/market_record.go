package postgres

import (
	"time"

	"coinetl/internal/etl/market"
)

// MarketRecord is one persisted snapshot row. The table name is chosen at
// runtime, so there is no TableName override.
type MarketRecord struct {
	AssetID                  string    `gorm:"column:id;type:varchar(100)"`
	Symbol                   string    `gorm:"column:symbol;type:varchar(50)"`
	Name                     string    `gorm:"column:name;type:varchar(150)"`
	CurrentPrice             *float64  `gorm:"column:current_price;type:double precision"`
	MarketCap                *float64  `gorm:"column:market_cap;type:double precision"`
	PriceChangePercentage24h *float64  `gorm:"column:price_change_percentage_24h;type:double precision"`
	ATH                      *float64  `gorm:"column:ath;type:double precision"`
	ATL                      *float64  `gorm:"column:atl;type:double precision"`
	TimeStamp                time.Time `gorm:"column:time_stamp;type:timestamp"`
}

// ToMarketRecord converts a snapshot row into a MarketRecord for DB insertion.
func ToMarketRecord(r market.Row) MarketRecord {
	return MarketRecord{
		AssetID:                  r.ID,
		Symbol:                   r.Symbol,
		Name:                     r.Name,
		CurrentPrice:             r.CurrentPrice,
		MarketCap:                r.MarketCap,
		PriceChangePercentage24h: r.PriceChangePercentage24h,
		ATH:                      r.ATH,
		ATL:                      r.ATL,
		TimeStamp:                r.TimeStamp,
	}
}

// ToRow converts a stored record back into a snapshot row.
func (m MarketRecord) ToRow() market.Row {
	return market.Row{
		ID:                       m.AssetID,
		Symbol:                   m.Symbol,
		Name:                     m.Name,
		CurrentPrice:             m.CurrentPrice,
		MarketCap:                m.MarketCap,
		PriceChangePercentage24h: m.PriceChangePercentage24h,
		ATH:                      m.ATH,
		ATL:                      m.ATL,
		TimeStamp:                m.TimeStamp,
	}
}
