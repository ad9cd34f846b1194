package models

// MPositionRecord is one held position with its mark-to-market P&L.
// Price is 0 when no current price is known.
type MPositionRecord struct {
	Symbol       string  `json:"symbol"`
	Position     float64 `json:"position"`
	AvgCost      float64 `json:"avgCost"`
	Price        float64 `json:"price"`
	UnrealizedPL float64 `json:"unrealizedPL"`
}
