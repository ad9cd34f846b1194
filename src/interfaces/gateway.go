package interfaces

import (
	"context"

	"watchlist-trader/src/models"
)

// TickHandler receives raw tick events from the gateway feed thread.
type TickHandler func(tick models.MTick)

// -----------------------------------------------------------------------------
// IBrokerGateway is the brokerage collaborator contract. The core treats it
// as a black box: connection/handshake, contract qualification and order
// routing all live behind this interface.
// -----------------------------------------------------------------------------

type IBrokerGateway interface {

	// Connect establishes the gateway session.
	Connect(ctx context.Context, host string, port int, clientID int) error

	// Disconnect tears down the session and stops all feeds.
	Disconnect() error

	// -----------------------------------------------------------------------------

	// QualifyContracts resolves symbols into canonical tradable handles.
	// A symbol that cannot be qualified fails the whole call.
	QualifyContracts(ctx context.Context, symbols []string) ([]models.MContract, error)

	// RequestMarketData starts a one-shot (snapshot) or continuous tick feed
	// for the contract, delivered through the registered TickHandler.
	RequestMarketData(ctx context.Context, contract models.MContract, snapshot bool) error

	// CancelMarketData stops the continuous feed for the contract.
	CancelMarketData(contract models.MContract) error

	// OnTick registers the handler invoked for every feed event.
	OnTick(handler TickHandler)

	// MarketPrice returns the broker-estimated current price for the symbol,
	// NaN when no estimate exists.
	MarketPrice(symbol string) float64

	// -----------------------------------------------------------------------------

	// PlaceOrder submits a market order and returns the gateway order id.
	PlaceOrder(ctx context.Context, contract models.MContract, side string, quantity int) (int, error)

	// CancelOrder cancels a working order by id.
	CancelOrder(ctx context.Context, orderID int) error

	// Orders lists all orders known to the gateway session, open or not.
	Orders() []models.MOrderRecord

	// Positions lists currently held positions.
	Positions() []models.MPositionRecord
}
