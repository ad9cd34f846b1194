package aggregator

import (
	"context"
	"strings"

	"watchlist-trader/src/helpers"
	"watchlist-trader/src/models"
)

// -----------------------------------------------------------------------------
// Commands
//
// Everything that touches engine state is a command consumed by the Run loop.
// Replies travel on per-command buffered channels so the loop never blocks
// on a caller that gave up.
// -----------------------------------------------------------------------------

type command interface{}

type subscribeCmd struct {
	symbols  []string
	testMode bool
	reply    chan subscribeReply
}

type subscribeReply struct {
	config models.MWatchlistConfig
	err    error
}

type snapshotCmd struct {
	reply chan map[string]models.MSymbolSnapshot
}

type symbolCmd struct {
	symbol string
	reply  chan symbolReply
}

type symbolReply struct {
	state models.MAggregateState
	ok    bool
}

// -----------------------------------------------------------------------------
// Public API
// -----------------------------------------------------------------------------

// Subscribe atomically replaces the watchlist. Validation happens before the
// command is queued, so a bad request never reaches the gateway.
func (e *Engine) Subscribe(ctx context.Context, symbols []string, testMode bool) (models.MWatchlistConfig, error) {
	normalized := NormalizeSymbols(symbols)
	if len(normalized) == 0 {
		return models.MWatchlistConfig{}, helpers.NewValidationError("watchlist rejected", helpers.ErrEmptyWatchlist)
	}

	cmd := subscribeCmd{
		symbols:  normalized,
		testMode: testMode,
		reply:    make(chan subscribeReply, 1),
	}

	select {
	case e.commands <- cmd:
	case <-ctx.Done():
		return models.MWatchlistConfig{}, helpers.NewTimeoutError("subscribe not accepted", ctx.Err())
	}

	select {
	case rep := <-cmd.reply:
		return rep.config, rep.err
	case <-ctx.Done():
		return models.MWatchlistConfig{}, helpers.NewTimeoutError("subscribe abandoned", ctx.Err())
	}
}

// -----------------------------------------------------------------------------

// Snapshot returns a consistent view of every tracked symbol.
func (e *Engine) Snapshot(ctx context.Context) (map[string]models.MSymbolSnapshot, error) {
	cmd := snapshotCmd{reply: make(chan map[string]models.MSymbolSnapshot, 1)}

	select {
	case e.commands <- cmd:
	case <-ctx.Done():
		return nil, helpers.NewTimeoutError("snapshot not accepted", ctx.Err())
	}

	select {
	case snap := <-cmd.reply:
		return snap, nil
	case <-ctx.Done():
		return nil, helpers.NewTimeoutError("snapshot abandoned", ctx.Err())
	}
}

// -----------------------------------------------------------------------------

// SymbolState reads one symbol's aggregate state in a single consistent read.
func (e *Engine) SymbolState(ctx context.Context, symbol string) (models.MAggregateState, bool, error) {
	cmd := symbolCmd{
		symbol: strings.ToUpper(strings.TrimSpace(symbol)),
		reply:  make(chan symbolReply, 1),
	}

	select {
	case e.commands <- cmd:
	case <-ctx.Done():
		return models.MAggregateState{}, false, helpers.NewTimeoutError("state read not accepted", ctx.Err())
	}

	select {
	case rep := <-cmd.reply:
		return rep.state, rep.ok, nil
	case <-ctx.Done():
		return models.MAggregateState{}, false, helpers.NewTimeoutError("state read abandoned", ctx.Err())
	}
}

// -----------------------------------------------------------------------------

// NormalizeSymbols trims, upper-cases and de-duplicates, keeping first-seen
// order.
func NormalizeSymbols(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, raw := range symbols {
		sym := strings.ToUpper(strings.TrimSpace(raw))
		if sym == "" {
			continue
		}
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	return out
}
