package aggregator

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"watchlist-trader/src/helpers"
	"watchlist-trader/src/interfaces"
	"watchlist-trader/src/logger"
	"watchlist-trader/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// Fakes
// -----------------------------------------------------------------------------

type fakeClock struct{ open bool }

func (c *fakeClock) IsRegularHours(t time.Time) bool { return c.open }

type fakeExchanger struct {
	mu    sync.Mutex
	count int
	last  *models.MWatchlistSnapshot
}

func (e *fakeExchanger) Broadcast(snapshot *models.MWatchlistSnapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.count++
	e.last = snapshot
}

func (e *fakeExchanger) broadcasts() (int, *models.MWatchlistSnapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.count, e.last
}

type fakeGateway struct {
	mu           sync.Mutex
	qualifyCalls [][]string
	qualifyErr   error
	cancelled    []int
	snapshots    []string
	streams      []string
	estimate     float64
	nextConID    int
	nextOrderID  int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{estimate: math.NaN()}
}

func (g *fakeGateway) Connect(ctx context.Context, host string, port int, clientID int) error {
	return nil
}
func (g *fakeGateway) Disconnect() error                       { return nil }
func (g *fakeGateway) OnTick(handler interfaces.TickHandler)   {}
func (g *fakeGateway) CancelOrder(ctx context.Context, orderID int) error { return nil }
func (g *fakeGateway) Orders() []models.MOrderRecord           { return nil }
func (g *fakeGateway) Positions() []models.MPositionRecord     { return nil }

func (g *fakeGateway) QualifyContracts(ctx context.Context, symbols []string) ([]models.MContract, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.qualifyCalls = append(g.qualifyCalls, symbols)
	if g.qualifyErr != nil {
		return nil, g.qualifyErr
	}
	out := make([]models.MContract, 0, len(symbols))
	for _, sym := range symbols {
		g.nextConID++
		out = append(out, models.MContract{ConID: g.nextConID, Symbol: sym, Exchange: "SMART", Currency: "USD"})
	}
	return out, nil
}

func (g *fakeGateway) RequestMarketData(ctx context.Context, contract models.MContract, snapshot bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if snapshot {
		g.snapshots = append(g.snapshots, contract.Symbol)
	} else {
		g.streams = append(g.streams, contract.Symbol)
	}
	return nil
}

func (g *fakeGateway) CancelMarketData(contract models.MContract) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancelled = append(g.cancelled, contract.ConID)
	return nil
}

func (g *fakeGateway) MarketPrice(symbol string) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.estimate
}

func (g *fakeGateway) PlaceOrder(ctx context.Context, contract models.MContract, side string, quantity int) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextOrderID++
	return g.nextOrderID, nil
}

// -----------------------------------------------------------------------------
// Harness
// -----------------------------------------------------------------------------

func testConfig() *models.MConfig {
	return &models.MConfig{
		Name:          "engine-test",
		LogLevel:      "ERROR",
		TickQueueSize: 64,
		Gateway:       models.MGatewayConfig{SubscribeTimeoutSeconds: 2, OrderTimeoutSeconds: 2},
		Risk:          models.MRiskConfig{Budget: 200, LotSize: 10, FloorRisk: 0.01},
	}
}

// startEngine runs the single-writer loop with an unbuffered tick channel.
// Sending on the returned channel returns only once the loop has picked the
// tick up, so a follow-up read command observes the applied tick.
func startEngine(t *testing.T, gw interfaces.IBrokerGateway, clock interfaces.ISessionClock, exch interfaces.IDataExchanger) (*Engine, chan models.MTick) {
	t.Helper()

	ticks := make(chan models.MTick)
	engine := NewEngine(testConfig(), gw, clock, exch, ticks, logger.NewLogger("ERROR", "engine-test"))

	ctx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}
	wg.Add(1)
	go engine.Run(ctx, wg)
	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})

	return engine, ticks
}

func tick(symbol string, price, size float64) models.MTick {
	return models.MTick{Symbol: symbol, Price: price, Size: size, Timestamp: time.Now()}
}

// -----------------------------------------------------------------------------
// Session policy
// -----------------------------------------------------------------------------

func TestOutOfSessionTickUpdatesPriceOnly(t *testing.T) {
	engine, ticks := startEngine(t, newFakeGateway(), &fakeClock{open: false}, nil)
	ctx := context.Background()

	_, err := engine.Subscribe(ctx, []string{"TSLA"}, false)
	require.NoError(t, err)

	ticks <- tick("TSLA", 101.5, 300)
	ticks <- tick("TSLA", 99.25, 200)

	state, ok, err := engine.SymbolState(ctx, "TSLA")
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, 99.25, state.Price)
	assert.True(t, math.IsNaN(state.Hod), "hod must stay unset outside the session")
	assert.True(t, math.IsNaN(state.Lod), "lod must stay unset outside the session")
	assert.True(t, math.IsNaN(state.Vwap), "vwap must stay unset outside the session")
	assert.False(t, state.Seeded)
}

func TestTestModeForcesInSession(t *testing.T) {
	engine, ticks := startEngine(t, newFakeGateway(), &fakeClock{open: false}, nil)
	ctx := context.Background()

	_, err := engine.Subscribe(ctx, []string{"TSLA"}, true)
	require.NoError(t, err)

	ticks <- tick("TSLA", 100, 100)

	state, ok, err := engine.SymbolState(ctx, "TSLA")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 100.0, state.Hod)
	assert.Equal(t, 100.0, state.Lod)
	assert.True(t, state.Seeded)
}

// -----------------------------------------------------------------------------
// Range and vwap accumulation
// -----------------------------------------------------------------------------

func TestHodLodMonotonic(t *testing.T) {
	engine, ticks := startEngine(t, newFakeGateway(), &fakeClock{open: true}, nil)
	ctx := context.Background()

	_, err := engine.Subscribe(ctx, []string{"NVDA"}, false)
	require.NoError(t, err)

	prices := []float64{100, 105, 95, 104, 96}
	var hod, lod float64 = math.Inf(-1), math.Inf(1)
	for _, p := range prices {
		ticks <- tick("NVDA", p, 0)
		hod = math.Max(hod, p)
		lod = math.Min(lod, p)

		state, ok, err := engine.SymbolState(ctx, "NVDA")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, hod, state.Hod)
		assert.Equal(t, lod, state.Lod)
	}

	state, _, err := engine.SymbolState(ctx, "NVDA")
	require.NoError(t, err)
	assert.Equal(t, 96.0, state.Price)
	assert.Equal(t, 105.0, state.Hod)
	assert.Equal(t, 95.0, state.Lod)
}

func TestVwapAccumulation(t *testing.T) {
	engine, ticks := startEngine(t, newFakeGateway(), &fakeClock{open: true}, nil)
	ctx := context.Background()

	_, err := engine.Subscribe(ctx, []string{"AAPL"}, false)
	require.NoError(t, err)

	type print struct{ price, size float64 }
	prints := []print{{100, 200}, {101, 100}, {99, 0}, {102, 300}}

	var num, den float64
	for _, p := range prints {
		ticks <- tick("AAPL", p.price, p.size)
		if p.size > 0 {
			num += p.price * p.size
			den += p.size
		}
	}

	state, ok, err := engine.SymbolState(ctx, "AAPL")
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, num/den, state.Vwap, 1e-9)
	assert.Equal(t, num, state.VwapNum)
	assert.Equal(t, den, state.VwapDen)
}

// -----------------------------------------------------------------------------
// Price resolution
// -----------------------------------------------------------------------------

func TestUnknownSymbolDiscarded(t *testing.T) {
	engine, ticks := startEngine(t, newFakeGateway(), &fakeClock{open: true}, nil)
	ctx := context.Background()

	_, err := engine.Subscribe(ctx, []string{"TSLA"}, false)
	require.NoError(t, err)

	ticks <- tick("MSFT", 400, 100)

	_, ok, err := engine.SymbolState(ctx, "MSFT")
	require.NoError(t, err)
	assert.False(t, ok)

	snap, err := engine.Snapshot(ctx)
	require.NoError(t, err)
	assert.NotContains(t, snap, "MSFT")
}

func TestMissingPriceFallsBackToEstimate(t *testing.T) {
	gw := newFakeGateway()
	gw.estimate = 51.5
	engine, ticks := startEngine(t, gw, &fakeClock{open: true}, nil)
	ctx := context.Background()

	_, err := engine.Subscribe(ctx, []string{"TSLA"}, false)
	require.NoError(t, err)

	ticks <- tick("TSLA", math.NaN(), 100)

	state, ok, err := engine.SymbolState(ctx, "TSLA")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 51.5, state.Price)
	assert.Equal(t, 51.5, state.Hod)
}

func TestMissingPriceWithoutEstimateDiscards(t *testing.T) {
	engine, ticks := startEngine(t, newFakeGateway(), &fakeClock{open: true}, nil)
	ctx := context.Background()

	_, err := engine.Subscribe(ctx, []string{"TSLA"}, false)
	require.NoError(t, err)

	ticks <- tick("TSLA", math.NaN(), 100)

	state, ok, err := engine.SymbolState(ctx, "TSLA")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, math.IsNaN(state.Price))
	assert.False(t, state.Seeded)
	assert.Equal(t, 0.0, state.VwapDen)
}

// -----------------------------------------------------------------------------
// Watchlist replacement
// -----------------------------------------------------------------------------

func TestSubscribeEmptyRejected(t *testing.T) {
	gw := newFakeGateway()
	engine, _ := startEngine(t, gw, &fakeClock{open: true}, nil)

	_, err := engine.Subscribe(context.Background(), []string{"  ", ""}, false)
	var validationErr *helpers.ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.ErrorIs(t, err, helpers.ErrEmptyWatchlist)

	// Rejected before any gateway call
	assert.Empty(t, gw.qualifyCalls)
}

func TestSubscribeNormalizesAndDedupes(t *testing.T) {
	engine, _ := startEngine(t, newFakeGateway(), &fakeClock{open: true}, nil)

	cfg, err := engine.Subscribe(context.Background(), []string{" tsla ", "TSLA", "aapl"}, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"TSLA", "AAPL"}, cfg.Symbols)
	assert.True(t, cfg.TestMode)
}

func TestSubscribeIssuesSnapshotAndStreamRequests(t *testing.T) {
	gw := newFakeGateway()
	engine, _ := startEngine(t, gw, &fakeClock{open: true}, nil)

	_, err := engine.Subscribe(context.Background(), []string{"TSLA", "AAPL"}, false)
	require.NoError(t, err)

	assert.Equal(t, []string{"TSLA", "AAPL"}, gw.snapshots)
	assert.Equal(t, []string{"TSLA", "AAPL"}, gw.streams)
}

func TestResubscribeReplacesWholesale(t *testing.T) {
	gw := newFakeGateway()
	engine, ticks := startEngine(t, gw, &fakeClock{open: true}, nil)
	ctx := context.Background()

	_, err := engine.Subscribe(ctx, []string{"TSLA", "AAPL"}, false)
	require.NoError(t, err)

	ticks <- tick("TSLA", 250, 100)
	ticks <- tick("AAPL", 180, 100)

	_, err = engine.Subscribe(ctx, []string{"NVDA"}, false)
	require.NoError(t, err)

	snap, err := engine.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap, 1)
	require.Contains(t, snap, "NVDA")

	// Fresh entries are all-null until the first tick
	assert.Nil(t, snap["NVDA"].Price)
	assert.Nil(t, snap["NVDA"].Hod)
	assert.Nil(t, snap["NVDA"].Lod)
	assert.Nil(t, snap["NVDA"].Vwap)

	// Prior feeds were torn down
	assert.Len(t, gw.cancelled, 2)
}

func TestSubscribeTimeoutSurfaced(t *testing.T) {
	gw := newFakeGateway()
	gw.qualifyErr = context.DeadlineExceeded
	engine, _ := startEngine(t, gw, &fakeClock{open: true}, nil)

	_, err := engine.Subscribe(context.Background(), []string{"TSLA"}, false)
	var timeoutErr *helpers.TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
}

func TestSubscribeUnknownSymbolSurfaced(t *testing.T) {
	gw := newFakeGateway()
	gw.qualifyErr = fmt.Errorf("%w: %q", helpers.ErrUnknownSymbol, "BOGUS")
	engine, _ := startEngine(t, gw, &fakeClock{open: true}, nil)

	_, err := engine.Subscribe(context.Background(), []string{"BOGUS"}, false)
	var notFoundErr *helpers.NotFoundError
	require.ErrorAs(t, err, &notFoundErr)
}

// -----------------------------------------------------------------------------
// Broadcasting
// -----------------------------------------------------------------------------

func TestEveryAppliedTickIsBroadcast(t *testing.T) {
	exch := &fakeExchanger{}
	engine, ticks := startEngine(t, newFakeGateway(), &fakeClock{open: true}, exch)
	ctx := context.Background()

	_, err := engine.Subscribe(ctx, []string{"TSLA"}, false)
	require.NoError(t, err)

	ticks <- tick("TSLA", 100, 100)
	ticks <- tick("TSLA", 101, 100)

	// Order the reads behind the second tick
	_, _, err = engine.SymbolState(ctx, "TSLA")
	require.NoError(t, err)

	count, last := exch.broadcasts()
	assert.Equal(t, 2, count)
	require.NotNil(t, last)
	assert.Equal(t, "UPDATE", last.Type)
	require.Contains(t, last.Symbols, "TSLA")
	require.NotNil(t, last.Symbols["TSLA"].Price)
	assert.Equal(t, 101.0, *last.Symbols["TSLA"].Price)
}

// -----------------------------------------------------------------------------
// Membership consistency under concurrency
// -----------------------------------------------------------------------------

func TestConcurrentSubscribeAndTicksKeepMembershipConsistent(t *testing.T) {
	engine, ticks := startEngine(t, newFakeGateway(), &fakeClock{open: true}, nil)
	ctx := context.Background()

	setA := []string{"TSLA", "AAPL"}
	setB := []string{"NVDA", "AMD", "MSFT"}
	all := append(append([]string{}, setA...), setB...)

	done := make(chan struct{})
	var producers sync.WaitGroup
	for w := 0; w < 4; w++ {
		producers.Add(1)
		go func(seed int) {
			defer producers.Done()
			i := seed
			for {
				select {
				case <-done:
					return
				case ticks <- tick(all[i%len(all)], 100+float64(i%7), 100):
					i++
				}
			}
		}(w)
	}

	asSet := func(symbols []string) map[string]struct{} {
		out := make(map[string]struct{}, len(symbols))
		for _, s := range symbols {
			out[s] = struct{}{}
		}
		return out
	}
	wantA, wantB := asSet(setA), asSet(setB)

	for round := 0; round < 30; round++ {
		target := setA
		if round%2 == 1 {
			target = setB
		}
		_, err := engine.Subscribe(ctx, target, true)
		require.NoError(t, err)

		for read := 0; read < 5; read++ {
			snap, err := engine.Snapshot(ctx)
			require.NoError(t, err)

			got := make(map[string]struct{}, len(snap))
			for sym := range snap {
				got[sym] = struct{}{}
			}
			if len(got) == len(wantA) {
				assert.Equal(t, wantA, got)
			} else {
				assert.Equal(t, wantB, got)
			}
		}
	}

	close(done)
	producers.Wait()
}
