package interfaces

import (
	"context"

	"watchlist-trader/src/models"
)

// IStateReader exposes consistent reads of the aggregate state. Each call
// returns data from a single point in time; callers never see a half-applied
// update.
type IStateReader interface {

	// Snapshot returns the current view of every tracked symbol.
	Snapshot(ctx context.Context) (map[string]models.MSymbolSnapshot, error)

	// SymbolState returns one symbol's full aggregate state. The bool is
	// false when the symbol is not in the active watchlist.
	SymbolState(ctx context.Context, symbol string) (models.MAggregateState, bool, error)
}
