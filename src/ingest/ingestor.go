package ingest

import (
	"math"
	"strings"
	"time"

	"watchlist-trader/src/logger"
	"watchlist-trader/src/models"
)

// -----------------------------------------------------------------------------
// TickIngestor
// -----------------------------------------------------------------------------

// TickIngestor normalizes raw feed events into canonical MTicks and pushes
// them onto a bounded queue. The queue decouples the gateway feed thread from
// the aggregator: when the consumer falls behind, ticks are dropped rather
// than blocking the feed.
type TickIngestor struct {
	Logger *logger.Logger
	out    chan models.MTick
}

// -----------------------------------------------------------------------------

func NewTickIngestor(queueSize int, log *logger.Logger) *TickIngestor {
	return &TickIngestor{
		Logger: log,
		out:    make(chan models.MTick, queueSize),
	}
}

// -----------------------------------------------------------------------------

// Ticks is the consumer side of the queue. Exactly one consumer owns it.
func (i *TickIngestor) Ticks() <-chan models.MTick {
	return i.out
}

// -----------------------------------------------------------------------------

// OnTick is the gateway-facing entry point. Safe to call from any goroutine.
func (i *TickIngestor) OnTick(raw models.MTick) {
	tick, ok := normalize(raw)
	if !ok {
		return
	}

	select {
	case i.out <- tick:
	default:
		i.Logger.Warning("Tick queue full, dropping tick for %s", tick.Symbol)
	}
}

// -----------------------------------------------------------------------------

// normalize canonicalizes a raw event. Events with no symbol are unusable
// and reported as not ok.
func normalize(raw models.MTick) (models.MTick, bool) {
	symbol := strings.ToUpper(strings.TrimSpace(raw.Symbol))
	if symbol == "" {
		return models.MTick{}, false
	}

	price := raw.Price
	if math.IsInf(price, 0) {
		price = math.NaN()
	}

	size := raw.Size
	if size < 0 || math.IsNaN(size) || math.IsInf(size, 0) {
		size = 0
	}

	ts := raw.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	return models.MTick{
		Symbol:    symbol,
		Price:     price,
		Size:      size,
		Timestamp: ts,
	}, true
}
