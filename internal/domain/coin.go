package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CoinRecord is a snapshot of one cryptocurrency at fetch time.
// Numeric fields are nullable so a missing or malformed upstream value
// survives decoding and can be rendered as a placeholder.
type CoinRecord struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Image  string `json:"image"`

	CurrentPrice             decimal.NullDecimal `json:"current_price"`
	PriceChangePercentage24h decimal.NullDecimal `json:"price_change_percentage_24h"`
	TotalVolume              decimal.NullDecimal `json:"total_volume"`
	MarketCap                decimal.NullDecimal `json:"market_cap"`

	MarketCapRank *int      `json:"market_cap_rank,omitempty"`
	LastUpdated   time.Time `json:"last_updated"`
}

// CloneRecords returns a copy of records so callers can hand out a
// result set without sharing the backing array.
func CloneRecords(records []CoinRecord) []CoinRecord {
	out := make([]CoinRecord, len(records))
	copy(out, records)
	return out
}
