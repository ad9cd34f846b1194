package models

// -----------------------------------------------------------------------------
// Order sides and stop references
// -----------------------------------------------------------------------------

const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

const (
	RefHod    = "HOD"
	RefLod    = "LOD"
	RefVwap   = "VWAP"
	RefCustom = "CUSTOM"
)

// Order lifecycle statuses, gateway vocabulary.
const (
	StatusPreSubmitted  = "PreSubmitted"
	StatusSubmitted     = "Submitted"
	StatusPendingSubmit = "PendingSubmit"
	StatusFilled        = "Filled"
	StatusCancelled     = "Cancelled"
)

// -----------------------------------------------------------------------------
// Request / result
// -----------------------------------------------------------------------------

// MOrderIntent is a risk-bounded order request.
type MOrderIntent struct {
	Symbol     string   `json:"symbol"`
	Side       string   `json:"side"`
	Reference  string   `json:"referenceKind"`
	CustomStop *float64 `json:"customStop,omitempty"`
}

// MOrderResult reports what was actually submitted. EntryPrice is the price
// observed at decision time, not the fill price.
type MOrderResult struct {
	OrderID    int     `json:"orderId"`
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"`
	Quantity   int     `json:"quantity"`
	EntryPrice float64 `json:"entryPrice"`
	StopPrice  float64 `json:"stopPrice"`
	Reference  string  `json:"referenceKind"`
}

// -----------------------------------------------------------------------------
// Listing / journal row
// -----------------------------------------------------------------------------

// MOrderRecord is one order as reported by the gateway or the journal.
type MOrderRecord struct {
	OrderID      int     `json:"orderId"`
	Symbol       string  `json:"symbol"`
	Side         string  `json:"side"`
	Quantity     int     `json:"quantity"`
	Filled       int     `json:"filled"`
	AvgFillPrice float64 `json:"avgFillPrice"`
	Status       string  `json:"status"`
}

// IsOpen reports whether the order still works at the gateway.
func (r MOrderRecord) IsOpen() bool {
	switch r.Status {
	case StatusPreSubmitted, StatusSubmitted, StatusPendingSubmit:
		return true
	}
	return false
}
