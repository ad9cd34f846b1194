package interfaces

import "watchlist-trader/src/models"

// IDataExchanger receives aggregate updates and fans them out to whoever is
// listening (websocket subscribers).
type IDataExchanger interface {
	Broadcast(snapshot *models.MWatchlistSnapshot)
}
