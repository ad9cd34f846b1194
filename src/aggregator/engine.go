package aggregator

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"watchlist-trader/src/helpers"
	"watchlist-trader/src/interfaces"
	"watchlist-trader/src/logger"
	"watchlist-trader/src/models"
)

// -----------------------------------------------------------------------------
// Engine
// -----------------------------------------------------------------------------

// Engine owns every per-symbol aggregate and the watchlist configuration.
// One goroutine (Run) is the single writer: ticks, resubscriptions and reads
// all pass through it, so no reader ever observes a half-applied update and
// a tick can never land on a partially replaced watchlist.
type Engine struct {
	Config *models.MConfig
	Logger *logger.Logger

	gateway interfaces.IBrokerGateway
	clock   interfaces.ISessionClock
	exch    interfaces.IDataExchanger

	ticks    <-chan models.MTick
	commands chan command

	// Owned exclusively by the Run goroutine.
	states    map[string]*models.MAggregateState
	contracts map[string]models.MContract
	watchlist models.MWatchlistConfig
}

var _ interfaces.IStateReader = (*Engine)(nil)

// -----------------------------------------------------------------------------

func NewEngine(
	cfg *models.MConfig,
	gw interfaces.IBrokerGateway,
	clock interfaces.ISessionClock,
	exch interfaces.IDataExchanger,
	ticks <-chan models.MTick,
	log *logger.Logger,
) *Engine {
	return &Engine{
		Config:    cfg,
		Logger:    log,
		gateway:   gw,
		clock:     clock,
		exch:      exch,
		ticks:     ticks,
		commands:  make(chan command, 16),
		states:    make(map[string]*models.MAggregateState),
		contracts: make(map[string]models.MContract),
	}
}

// -----------------------------------------------------------------------------

// Run is the single-writer loop. It returns when ctx is cancelled.
func (e *Engine) Run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	e.Logger.Info("Aggregator engine started")
	for {
		select {
		case <-ctx.Done():
			e.Logger.Info("Aggregator engine stopped")
			return
		case tick := <-e.ticks:
			e.applyTick(tick)
		case cmd := <-e.commands:
			switch c := cmd.(type) {
			case subscribeCmd:
				e.handleSubscribe(c)
			case snapshotCmd:
				c.reply <- e.snapshot()
			case symbolCmd:
				e.handleSymbolRead(c)
			}
		}
	}
}

// -----------------------------------------------------------------------------
// Tick application
// -----------------------------------------------------------------------------

func (e *Engine) applyTick(tick models.MTick) {
	state, ok := e.states[tick.Symbol]
	if !ok {
		// Stray ticks are expected during resubscription races
		return
	}

	price := tick.Price
	if !isFinite(price) {
		price = e.gateway.MarketPrice(tick.Symbol)
	}
	if !isFinite(price) {
		return
	}

	state.Price = price

	inSession := state.TestMode || e.clock.IsRegularHours(tick.Timestamp)
	if inSession {
		if !state.Seeded {
			state.Hod = price
			state.Lod = price
			state.Seeded = true
		}
		if price > state.Hod {
			state.Hod = price
		}
		if price < state.Lod {
			state.Lod = price
		}
		if tick.Size > 0 {
			state.VwapNum += price * tick.Size
			state.VwapDen += tick.Size
			state.Vwap = state.VwapNum / state.VwapDen
		}
	}

	e.publish()
}

// -----------------------------------------------------------------------------

func (e *Engine) publish() {
	if e.exch == nil {
		return
	}
	e.exch.Broadcast(&models.MWatchlistSnapshot{
		Type:      "UPDATE",
		Symbols:   e.snapshot(),
		Timestamp: time.Now().Unix(),
	})
}

// -----------------------------------------------------------------------------

func (e *Engine) snapshot() map[string]models.MSymbolSnapshot {
	out := make(map[string]models.MSymbolSnapshot, len(e.states))
	for sym, state := range e.states {
		out[sym] = state.Snapshot()
	}
	return out
}

// -----------------------------------------------------------------------------
// Watchlist replacement
// -----------------------------------------------------------------------------

// handleSubscribe performs the atomic watchlist swap: tear down old feeds,
// replace all state, then issue fresh gateway requests under the subscribe
// timeout. Requests already issued when the timeout hits are not rolled back.
func (e *Engine) handleSubscribe(cmd subscribeCmd) {
	for sym, contract := range e.contracts {
		if err := e.gateway.CancelMarketData(contract); err != nil {
			e.Logger.Warning("Failed to cancel market data for %s: %v", sym, err)
		}
	}

	e.states = make(map[string]*models.MAggregateState, len(cmd.symbols))
	e.contracts = make(map[string]models.MContract, len(cmd.symbols))
	e.watchlist = models.MWatchlistConfig{Symbols: cmd.symbols, TestMode: cmd.testMode}
	for _, sym := range cmd.symbols {
		e.states[sym] = models.NewAggregateState(sym, cmd.testMode)
	}

	timeout := time.Duration(e.Config.Gateway.SubscribeTimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	contracts, err := e.gateway.QualifyContracts(ctx, cmd.symbols)
	if err != nil {
		cmd.reply <- subscribeReply{err: classifyGatewayError("qualify contracts", err)}
		return
	}

	for _, contract := range contracts {
		e.contracts[contract.Symbol] = contract

		if err := e.gateway.RequestMarketData(ctx, contract, true); err != nil {
			cmd.reply <- subscribeReply{err: classifyGatewayError("request snapshot", err)}
			return
		}
		if err := e.gateway.RequestMarketData(ctx, contract, false); err != nil {
			cmd.reply <- subscribeReply{err: classifyGatewayError("request stream", err)}
			return
		}
	}

	e.Logger.Info("Watchlist replaced: %d symbols, testMode=%v", len(cmd.symbols), cmd.testMode)
	cmd.reply <- subscribeReply{config: e.watchlist}
}

// -----------------------------------------------------------------------------

func (e *Engine) handleSymbolRead(cmd symbolCmd) {
	state, ok := e.states[cmd.symbol]
	if !ok {
		cmd.reply <- symbolReply{}
		return
	}
	cmd.reply <- symbolReply{state: *state, ok: true}
}

// -----------------------------------------------------------------------------
// Helpers
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
