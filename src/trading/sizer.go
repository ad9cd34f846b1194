package trading

import (
	"context"
	"errors"
	"math"
	"time"

	"watchlist-trader/src/helpers"
	"watchlist-trader/src/interfaces"
	"watchlist-trader/src/logger"
	"watchlist-trader/src/models"
)

// -----------------------------------------------------------------------------
// OrderSizer
// -----------------------------------------------------------------------------

// OrderSizer turns the current aggregate state into a risk-bounded market
// order: it picks a stop price from the requested reference, sizes the order
// against the fixed risk budget, and submits it through the gateway.
type OrderSizer struct {
	Config *models.MConfig
	Logger *logger.Logger

	state   interfaces.IStateReader
	gateway interfaces.IBrokerGateway
	journal interfaces.IOrderJournal
}

// -----------------------------------------------------------------------------

func NewOrderSizer(
	cfg *models.MConfig,
	state interfaces.IStateReader,
	gw interfaces.IBrokerGateway,
	journal interfaces.IOrderJournal,
	log *logger.Logger,
) *OrderSizer {
	return &OrderSizer{
		Config:  cfg,
		Logger:  log,
		state:   state,
		gateway: gw,
		journal: journal,
	}
}

// -----------------------------------------------------------------------------

// PlaceOrder computes and submits a risk-bounded market order. The entry
// price in the result is the decision-time price; the actual fill may differ.
func (s *OrderSizer) PlaceOrder(ctx context.Context, intent models.MOrderIntent) (*models.MOrderResult, error) {
	if intent.Side != models.SideBuy && intent.Side != models.SideSell {
		return nil, helpers.NewValidationError("side must be BUY or SELL", nil)
	}

	state, ok, err := s.state.SymbolState(ctx, intent.Symbol)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, helpers.NewNotFoundError("order rejected", helpers.ErrNotInWatchlist)
	}
	if !isFinite(state.Price) {
		return nil, helpers.NewComputationError("order rejected", helpers.ErrPriceUnavailable)
	}

	stop, err := resolveStop(intent, state)
	if err != nil {
		return nil, err
	}

	quantity, err := s.sizeQuantity(intent.Side, state.Price, stop)
	if err != nil {
		return nil, err
	}

	orderID, err := s.submit(ctx, intent.Symbol, intent.Side, quantity)
	if err != nil {
		return nil, err
	}

	result := &models.MOrderResult{
		OrderID:    orderID,
		Symbol:     intent.Symbol,
		Side:       intent.Side,
		Quantity:   quantity,
		EntryPrice: state.Price,
		StopPrice:  stop,
		Reference:  intent.Reference,
	}

	if s.journal != nil {
		rec := models.MOrderRecord{
			OrderID:  orderID,
			Symbol:   intent.Symbol,
			Side:     intent.Side,
			Quantity: quantity,
			Status:   models.StatusSubmitted,
		}
		if err := s.journal.SaveOrder(rec); err != nil {
			// The order is already at the gateway; journaling is best effort
			s.Logger.Error("Failed to journal order %d: %v", orderID, err)
		}
	}

	s.Logger.Info("Order %d placed: %s %d %s stop=%.4f entry=%.4f ref=%s",
		orderID, intent.Side, quantity, intent.Symbol, stop, state.Price, intent.Reference)
	return result, nil
}

// -----------------------------------------------------------------------------

// resolveStop applies the side/reference policy:
// SELL may reference HOD, VWAP or CUSTOM; BUY may reference LOD, VWAP or
// CUSTOM. Any other combination is rejected outright.
func resolveStop(intent models.MOrderIntent, state models.MAggregateState) (float64, error) {
	supported := false
	switch intent.Reference {
	case models.RefVwap, models.RefCustom:
		supported = true
	case models.RefHod:
		supported = intent.Side == models.SideSell
	case models.RefLod:
		supported = intent.Side == models.SideBuy
	}
	if !supported {
		return 0, helpers.NewValidationError("order rejected", helpers.ErrUnsupportedReference)
	}

	if intent.Reference == models.RefCustom {
		if intent.CustomStop == nil {
			return 0, helpers.NewValidationError("order rejected", helpers.ErrMissingCustomStop)
		}
		return *intent.CustomStop, nil
	}

	var stop float64
	switch intent.Reference {
	case models.RefHod:
		stop = state.Hod
	case models.RefLod:
		stop = state.Lod
	case models.RefVwap:
		stop = state.Vwap
	}
	if !isFinite(stop) {
		return 0, helpers.NewComputationError("order rejected", helpers.ErrReferenceUnavailable)
	}
	return stop, nil
}

// -----------------------------------------------------------------------------

// sizeQuantity converts per-unit risk into a lot-rounded quantity. A
// non-positive risk falls back to the configured floor instead of rejecting
// the order.
func (s *OrderSizer) sizeQuantity(side string, price, stop float64) (int, error) {
	risk := stop - price
	if side == models.SideBuy {
		risk = price - stop
	}
	if !isFinite(risk) || risk <= 0 {
		risk = s.Config.Risk.FloorRisk
	}

	lot := s.Config.Risk.LotSize
	quantity := int(math.Floor(s.Config.Risk.Budget / risk))
	quantity -= quantity % lot
	if quantity < lot {
		return 0, helpers.NewComputationError("order rejected", helpers.ErrQuantityTooSmall)
	}
	return quantity, nil
}

// -----------------------------------------------------------------------------

// submit qualifies the contract and places the order under the order timeout.
func (s *OrderSizer) submit(ctx context.Context, symbol, side string, quantity int) (int, error) {
	timeout := time.Duration(s.Config.Gateway.OrderTimeoutSeconds) * time.Second
	octx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	contracts, err := s.gateway.QualifyContracts(octx, []string{symbol})
	if err != nil {
		return 0, classifyGatewayError("qualify contract", err)
	}

	orderID, err := s.gateway.PlaceOrder(octx, contracts[0], side, quantity)
	if err != nil {
		return 0, classifyGatewayError("place order", err)
	}
	return orderID, nil
}

// -----------------------------------------------------------------------------

func classifyGatewayError(op string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return helpers.NewTimeoutError("gateway call timed out: "+op, err)
	case errors.Is(err, helpers.ErrUnknownSymbol):
		return helpers.NewNotFoundError("failed to "+op, err)
	default:
		return helpers.NewConnectivityError("failed to "+op, err)
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
