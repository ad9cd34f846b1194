package models

// MWatchlistConfig is the authoritative membership of the active watchlist.
// Symbols are normalized (trimmed, upper-cased) and de-duplicated, order kept.
type MWatchlistConfig struct {
	Symbols  []string `json:"symbols"`
	TestMode bool     `json:"testMode"`
}
