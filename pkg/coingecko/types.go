package coingecko

// MarketCoin is one element of the /coins/markets response.
// Only the fields the pipeline keeps are decoded; pointer fields stay nil when
// the API omits the field or sends null.
type MarketCoin struct {
	ID                       string   `json:"id"`                          // e.g., "bitcoin"
	Symbol                   string   `json:"symbol"`                      // e.g., "btc"
	Name                     string   `json:"name"`                        // e.g., "Bitcoin"
	CurrentPrice             *float64 `json:"current_price"`               // in vs_currency
	MarketCap                *float64 `json:"market_cap"`                  // in vs_currency
	PriceChangePercentage24h *float64 `json:"price_change_percentage_24h"` // e.g., -2.41
	ATH                      *float64 `json:"ath"`                         // all-time high
	ATL                      *float64 `json:"atl"`                         // all-time low
}

// MarketsQuery holds the query parameters of a /coins/markets request.
type MarketsQuery struct {
	VsCurrency string // e.g., "usd"
	Order      string // e.g., "market_cap_desc"
	PerPage    int    // 1..250
	Page       int    // 1-based
}

// ErrorResponse is the body CoinGecko returns on rate limiting and bad requests.
type ErrorResponse struct {
	Status struct {
		ErrorCode    int    `json:"error_code"`
		ErrorMessage string `json:"error_message"`
	} `json:"status"`
	Error string `json:"error"`
}
