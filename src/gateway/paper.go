package gateway

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"sync"
	"time"

	"watchlist-trader/src/helpers"
	"watchlist-trader/src/interfaces"
	"watchlist-trader/src/logger"
	"watchlist-trader/src/models"
)

// -----------------------------------------------------------------------------
// PaperGateway
// -----------------------------------------------------------------------------

// PaperGateway is an in-process brokerage gateway simulator. It qualifies
// contracts, generates tick feeds with a random walk around a per-symbol
// base price, and fills market orders against its own marks. It implements
// interfaces.IBrokerGateway so the rest of the system cannot tell it apart
// from a real gateway session.
type PaperGateway struct {
	Config *models.MConfig
	Logger *logger.Logger

	// FillDelay is how long a submitted order stays open before it fills.
	// Zero fills synchronously inside PlaceOrder.
	FillDelay time.Duration

	// TickInterval paces the continuous feeds.
	TickInterval time.Duration

	mu          sync.Mutex
	connected   bool
	handler     interfaces.TickHandler
	nextConID   int
	nextOrderID int
	marks       map[string]float64
	orders      map[int]*models.MOrderRecord
	orderSeq    []int
	positions   map[string]*models.MPositionRecord
	feeds       map[int]chan struct{}
	rng         *rand.Rand
}

var _ interfaces.IBrokerGateway = (*PaperGateway)(nil)

// -----------------------------------------------------------------------------

func NewPaperGateway(cfg *models.MConfig, log *logger.Logger) *PaperGateway {
	return &PaperGateway{
		Config:       cfg,
		Logger:       log,
		FillDelay:    250 * time.Millisecond,
		TickInterval: 500 * time.Millisecond,
		nextConID:    1000,
		marks:        make(map[string]float64),
		orders:       make(map[int]*models.MOrderRecord),
		positions:    make(map[string]*models.MPositionRecord),
		feeds:        make(map[int]chan struct{}),
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// -----------------------------------------------------------------------------
// Session lifecycle
// -----------------------------------------------------------------------------

func (g *PaperGateway) Connect(ctx context.Context, host string, port int, clientID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.connected {
		return nil
	}
	g.connected = true
	g.Logger.Info("Paper gateway session up (host=%s port=%d clientId=%d)", host, port, clientID)
	return nil
}

// -----------------------------------------------------------------------------

func (g *PaperGateway) Disconnect() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for conID, stop := range g.feeds {
		close(stop)
		delete(g.feeds, conID)
	}
	g.connected = false
	g.Logger.Info("Paper gateway session closed")
	return nil
}

// -----------------------------------------------------------------------------

func (g *PaperGateway) OnTick(handler interfaces.TickHandler) {
	g.mu.Lock()
	g.handler = handler
	g.mu.Unlock()
}

// -----------------------------------------------------------------------------
// Contracts and market data
// -----------------------------------------------------------------------------

func (g *PaperGateway) QualifyContracts(ctx context.Context, symbols []string) ([]models.MContract, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.connected {
		return nil, helpers.ErrNotConnected
	}

	contracts := make([]models.MContract, 0, len(symbols))
	for _, sym := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if sym == "" || len(sym) > 12 {
			return nil, fmt.Errorf("%w: %q", helpers.ErrUnknownSymbol, sym)
		}

		if _, ok := g.marks[sym]; !ok {
			g.marks[sym] = basePrice(sym)
		}

		g.nextConID++
		contracts = append(contracts, models.MContract{
			ConID:    g.nextConID,
			Symbol:   sym,
			Exchange: "SMART",
			Currency: "USD",
		})
	}
	return contracts, nil
}

// basePrice derives a stable pseudo price in [20, 400) from the symbol name.
func basePrice(symbol string) float64 {
	h := fnv.New32a()
	h.Write([]byte(symbol))
	return 20 + float64(h.Sum32()%38000)/100
}

// -----------------------------------------------------------------------------

func (g *PaperGateway) RequestMarketData(ctx context.Context, contract models.MContract, snapshot bool) error {
	g.mu.Lock()
	if !g.connected {
		g.mu.Unlock()
		return helpers.ErrNotConnected
	}
	g.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	if snapshot {
		g.emitTick(contract.Symbol, 0)
		return nil
	}

	stop := make(chan struct{})
	g.mu.Lock()
	if _, exists := g.feeds[contract.ConID]; exists {
		g.mu.Unlock()
		return fmt.Errorf("market data already requested for conId %d", contract.ConID)
	}
	g.feeds[contract.ConID] = stop
	g.mu.Unlock()

	go g.runFeed(contract.Symbol, stop)
	return nil
}

// -----------------------------------------------------------------------------

func (g *PaperGateway) CancelMarketData(contract models.MContract) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	stop, ok := g.feeds[contract.ConID]
	if !ok {
		return nil
	}
	close(stop)
	delete(g.feeds, contract.ConID)
	return nil
}

// -----------------------------------------------------------------------------

// runFeed walks the mark and emits sized ticks until cancelled.
func (g *PaperGateway) runFeed(symbol string, stop chan struct{}) {
	ticker := time.NewTicker(g.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			g.mu.Lock()
			mark := g.marks[symbol]
			drift := mark * (g.rng.Float64() - 0.5) * 0.001
			g.marks[symbol] = mark + drift
			size := float64(g.rng.Intn(10)+1) * 100
			g.mu.Unlock()

			g.emitTick(symbol, size)
		}
	}
}

// -----------------------------------------------------------------------------

func (g *PaperGateway) emitTick(symbol string, size float64) {
	g.mu.Lock()
	handler := g.handler
	price, ok := g.marks[symbol]
	g.mu.Unlock()

	if handler == nil {
		return
	}
	if !ok {
		price = math.NaN()
	}

	handler(models.MTick{
		Symbol:    symbol,
		Price:     price,
		Size:      size,
		Timestamp: time.Now(),
	})
}

// -----------------------------------------------------------------------------

func (g *PaperGateway) MarketPrice(symbol string) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	if mark, ok := g.marks[symbol]; ok {
		return mark
	}
	return math.NaN()
}

// -----------------------------------------------------------------------------
// Orders
// -----------------------------------------------------------------------------

func (g *PaperGateway) PlaceOrder(ctx context.Context, contract models.MContract, side string, quantity int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	g.mu.Lock()
	if !g.connected {
		g.mu.Unlock()
		return 0, helpers.ErrNotConnected
	}

	g.nextOrderID++
	id := g.nextOrderID
	rec := &models.MOrderRecord{
		OrderID:  id,
		Symbol:   contract.Symbol,
		Side:     side,
		Quantity: quantity,
		Status:   models.StatusSubmitted,
	}
	g.orders[id] = rec
	g.orderSeq = append(g.orderSeq, id)
	g.mu.Unlock()

	if g.FillDelay == 0 {
		g.fill(id)
	} else {
		time.AfterFunc(g.FillDelay, func() { g.fill(id) })
	}

	g.Logger.Info("Paper order %d submitted: %s %d %s", id, side, quantity, contract.Symbol)
	return id, nil
}

// -----------------------------------------------------------------------------

// fill executes a working order at the current mark and updates the position.
func (g *PaperGateway) fill(orderID int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.orders[orderID]
	if !ok || !rec.IsOpen() {
		return
	}

	mark, ok := g.marks[rec.Symbol]
	if !ok {
		mark = basePrice(rec.Symbol)
		g.marks[rec.Symbol] = mark
	}

	rec.Filled = rec.Quantity
	rec.AvgFillPrice = mark
	rec.Status = models.StatusFilled

	signed := float64(rec.Quantity)
	if rec.Side == models.SideSell {
		signed = -signed
	}

	pos, ok := g.positions[rec.Symbol]
	if !ok {
		pos = &models.MPositionRecord{Symbol: rec.Symbol}
		g.positions[rec.Symbol] = pos
	}

	prev := pos.Position
	next := prev + signed
	switch {
	case prev == 0 || prev*next < 0:
		// Opening or flipping: cost basis restarts at the fill
		pos.AvgCost = mark
	case math.Abs(next) > math.Abs(prev):
		// Adding to the position: weighted average cost
		pos.AvgCost = (pos.AvgCost*math.Abs(prev) + mark*math.Abs(signed)) / math.Abs(next)
	}
	pos.Position = next
	if next == 0 {
		pos.AvgCost = 0
	}
}

// -----------------------------------------------------------------------------

func (g *PaperGateway) CancelOrder(ctx context.Context, orderID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.orders[orderID]
	if !ok {
		return helpers.ErrOrderNotFound
	}
	if !rec.IsOpen() {
		return helpers.ErrOrderNotFound
	}
	rec.Status = models.StatusCancelled
	return nil
}

// -----------------------------------------------------------------------------

func (g *PaperGateway) Orders() []models.MOrderRecord {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]models.MOrderRecord, 0, len(g.orderSeq))
	for _, id := range g.orderSeq {
		out = append(out, *g.orders[id])
	}
	return out
}

// -----------------------------------------------------------------------------

func (g *PaperGateway) Positions() []models.MPositionRecord {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]models.MPositionRecord, 0, len(g.positions))
	for _, pos := range g.positions {
		out = append(out, *pos)
	}
	return out
}
