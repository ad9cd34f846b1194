package trading

import (
	"context"
	"errors"
	"time"

	"watchlist-trader/src/helpers"
	"watchlist-trader/src/models"
)

// -----------------------------------------------------------------------------
// Order and position views
// -----------------------------------------------------------------------------

// ListOrders returns the orders still working at the gateway.
func (s *OrderSizer) ListOrders() []models.MOrderRecord {
	open := make([]models.MOrderRecord, 0)
	for _, rec := range s.gateway.Orders() {
		if rec.IsOpen() {
			open = append(open, rec)
		}
	}
	return open
}

// -----------------------------------------------------------------------------

// ListPositions marks every position against the freshest price available:
// aggregate state first, broker estimate second, zero when neither exists.
func (s *OrderSizer) ListPositions(ctx context.Context) ([]models.MPositionRecord, error) {
	positions := s.gateway.Positions()

	for i := range positions {
		price := 0.0
		if state, ok, err := s.state.SymbolState(ctx, positions[i].Symbol); err != nil {
			return nil, err
		} else if ok && isFinite(state.Price) {
			price = state.Price
		} else if mark := s.gateway.MarketPrice(positions[i].Symbol); isFinite(mark) {
			price = mark
		}

		positions[i].Price = price
		positions[i].UnrealizedPL = (price - positions[i].AvgCost) * positions[i].Position
	}
	return positions, nil
}

// -----------------------------------------------------------------------------

// CancelOrder cancels a working order by gateway id.
func (s *OrderSizer) CancelOrder(ctx context.Context, orderID int) error {
	timeout := time.Duration(s.Config.Gateway.OrderTimeoutSeconds) * time.Second
	octx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.gateway.CancelOrder(octx, orderID); err != nil {
		if errors.Is(err, helpers.ErrOrderNotFound) {
			return helpers.NewNotFoundError("cancel rejected", err)
		}
		return classifyGatewayError("cancel order", err)
	}

	if s.journal != nil {
		if err := s.journal.UpdateOrderStatus(orderID, models.StatusCancelled, 0, 0); err != nil {
			s.Logger.Error("Failed to journal cancel for order %d: %v", orderID, err)
		}
	}
	return nil
}
