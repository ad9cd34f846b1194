package models

import "math"

// -----------------------------------------------------------------------------
// Per-symbol aggregate state
// -----------------------------------------------------------------------------

// MAggregateState is the running aggregate for one tracked symbol.
// Numeric fields use NaN as the "unset" sentinel; the JSON boundary converts
// them to null via Snapshot().
type MAggregateState struct {
	Symbol   string
	Price    float64
	Hod      float64
	Lod      float64
	VwapNum  float64
	VwapDen  float64
	Vwap     float64
	TestMode bool
	Seeded   bool // set by the first in-session print of the day
}

// -----------------------------------------------------------------------------

func NewAggregateState(symbol string, testMode bool) *MAggregateState {
	nan := math.NaN()
	return &MAggregateState{
		Symbol:   symbol,
		Price:    nan,
		Hod:      nan,
		Lod:      nan,
		Vwap:     nan,
		TestMode: testMode,
	}
}

// -----------------------------------------------------------------------------

// Snapshot converts the state into its nullable wire form.
func (s *MAggregateState) Snapshot() MSymbolSnapshot {
	return MSymbolSnapshot{
		Price: CleanFloat(s.Price),
		Hod:   CleanFloat(s.Hod),
		Lod:   CleanFloat(s.Lod),
		Vwap:  CleanFloat(s.Vwap),
	}
}

// -----------------------------------------------------------------------------
// Wire form
// -----------------------------------------------------------------------------

// MSymbolSnapshot is the read-only view of one symbol, nil meaning "no value yet".
type MSymbolSnapshot struct {
	Price *float64 `json:"price"`
	Hod   *float64 `json:"hod"`
	Lod   *float64 `json:"lod"`
	Vwap  *float64 `json:"vwap"`
}

// MWatchlistSnapshot is the payload pushed to websocket subscribers on every
// aggregate update.
type MWatchlistSnapshot struct {
	Type      string                     `json:"type"` // always "UPDATE"
	Symbols   map[string]MSymbolSnapshot `json:"symbols"`
	Timestamp int64                      `json:"timestamp"`
}

// -----------------------------------------------------------------------------

// CleanFloat maps non-finite values to nil so they serialize as JSON null.
func CleanFloat(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
