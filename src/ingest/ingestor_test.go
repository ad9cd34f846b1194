package ingest

import (
	"math"
	"testing"
	"time"

	"watchlist-trader/src/logger"
	"watchlist-trader/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

func newIngestor(queueSize int) *TickIngestor {
	return NewTickIngestor(queueSize, logger.NewLogger("ERROR", "ingest-test"))
}

func drain(t *testing.T, i *TickIngestor) models.MTick {
	t.Helper()
	select {
	case tick := <-i.Ticks():
		return tick
	default:
		t.Fatal("expected a queued tick")
		return models.MTick{}
	}
}

// -----------------------------------------------------------------------------

func TestSymbolNormalized(t *testing.T) {
	i := newIngestor(8)
	i.OnTick(models.MTick{Symbol: "  tsla ", Price: 100, Size: 200, Timestamp: time.Now()})

	tick := drain(t, i)
	assert.Equal(t, "TSLA", tick.Symbol)
	assert.Equal(t, 100.0, tick.Price)
	assert.Equal(t, 200.0, tick.Size)
}

func TestEmptySymbolDropped(t *testing.T) {
	i := newIngestor(8)
	i.OnTick(models.MTick{Symbol: "   ", Price: 100, Size: 200})

	select {
	case tick := <-i.Ticks():
		t.Fatalf("unexpected tick queued: %+v", tick)
	default:
	}
}

func TestInfinitePriceBecomesUnset(t *testing.T) {
	i := newIngestor(8)
	i.OnTick(models.MTick{Symbol: "TSLA", Price: math.Inf(1), Size: 100})

	tick := drain(t, i)
	assert.True(t, math.IsNaN(tick.Price))
}

func TestBadSizeBecomesZero(t *testing.T) {
	for _, size := range []float64{-5, math.NaN(), math.Inf(1)} {
		i := newIngestor(8)
		i.OnTick(models.MTick{Symbol: "TSLA", Price: 100, Size: size})
		assert.Equal(t, 0.0, drain(t, i).Size)
	}
}

func TestZeroTimestampFilledIn(t *testing.T) {
	i := newIngestor(8)
	before := time.Now()
	i.OnTick(models.MTick{Symbol: "TSLA", Price: 100, Size: 100})

	tick := drain(t, i)
	require.False(t, tick.Timestamp.IsZero())
	assert.False(t, tick.Timestamp.Before(before))
}

func TestOverflowDropsInsteadOfBlocking(t *testing.T) {
	i := newIngestor(1)
	done := make(chan struct{})
	go func() {
		for n := 0; n < 5; n++ {
			i.OnTick(models.MTick{Symbol: "TSLA", Price: float64(100 + n), Size: 100})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("OnTick blocked on a full queue")
	}

	// Exactly the first tick survives
	assert.Equal(t, 100.0, drain(t, i).Price)
	select {
	case tick := <-i.Ticks():
		t.Fatalf("unexpected extra tick: %+v", tick)
	default:
	}
}
