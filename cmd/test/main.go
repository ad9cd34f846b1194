package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"watchlist-trader/src/aggregator"
	"watchlist-trader/src/gateway"
	"watchlist-trader/src/ingest"
	"watchlist-trader/src/logger"
	"watchlist-trader/src/models"
	"watchlist-trader/src/trading"
	"watchlist-trader/src/utils"
)

// -----------------------------------------------------------------------------
// Manual smoke harness: drives the paper gateway through the whole pipeline
// without the HTTP layer. Run it to eyeball aggregation and sizing output.
// -----------------------------------------------------------------------------

func main() {
	cfg := &models.MConfig{
		Name:          "watchlist-trader-smoke",
		LogLevel:      "DEBUG",
		TickQueueSize: 256,
		Gateway: models.MGatewayConfig{
			Host:                    "127.0.0.1",
			Port:                    4002,
			ClientID:                1,
			ConnectTimeoutSeconds:   5,
			SubscribeTimeoutSeconds: 15,
			OrderTimeoutSeconds:     10,
		},
		Risk: models.MRiskConfig{Budget: 200, LotSize: 10, FloorRisk: 0.01},
	}

	log := logger.NewLogger(cfg.LogLevel, cfg.Name)
	defer log.Sync()

	gw := gateway.NewPaperGateway(cfg, log)
	gw.TickInterval = 100 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := gw.Connect(ctx, cfg.Gateway.Host, cfg.Gateway.Port, cfg.Gateway.ClientID); err != nil {
		log.Critical("connect: %v", err)
	}
	defer gw.Disconnect()

	ingestor := ingest.NewTickIngestor(cfg.TickQueueSize, log)
	gw.OnTick(ingestor.OnTick)

	engine := aggregator.NewEngine(cfg, gw, utils.NewSessionClock(""), nil, ingestor.Ticks(), log)
	sizer := trading.NewOrderSizer(cfg, engine, gw, nil, log)

	wg := &sync.WaitGroup{}
	wg.Add(1)
	go engine.Run(ctx, wg)

	watchlist, err := engine.Subscribe(ctx, []string{"TSLA", "AAPL", "NVDA"}, true)
	if err != nil {
		log.Critical("subscribe: %v", err)
	}
	log.Info("Watching %v", watchlist.Symbols)

	// Let the feeds produce some state
	time.Sleep(3 * time.Second)

	snap, err := engine.Snapshot(ctx)
	if err != nil {
		log.Critical("snapshot: %v", err)
	}
	pretty, _ := json.MarshalIndent(snap, "", "  ")
	fmt.Printf("snapshot after 3s:\n%s\n", pretty)

	result, err := sizer.PlaceOrder(ctx, models.MOrderIntent{
		Symbol:    "TSLA",
		Side:      models.SideSell,
		Reference: models.RefHod,
	})
	if err != nil {
		log.Error("order rejected: %v", err)
	} else {
		fmt.Printf("placed: %+v\n", *result)
	}

	time.Sleep(500 * time.Millisecond)
	for _, rec := range gw.Orders() {
		fmt.Printf("order %d: %s %d %s status=%s fill=%.2f\n",
			rec.OrderID, rec.Side, rec.Quantity, rec.Symbol, rec.Status, rec.AvgFillPrice)
	}

	cancel()
	wg.Wait()
}
