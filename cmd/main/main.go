package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"watchlist-trader/src/aggregator"
	"watchlist-trader/src/config"
	"watchlist-trader/src/gateway"
	"watchlist-trader/src/ingest"
	"watchlist-trader/src/interfaces"
	"watchlist-trader/src/logger"
	"watchlist-trader/src/server"
	"watchlist-trader/src/storage"
	"watchlist-trader/src/trading"
	"watchlist-trader/src/utils"
)

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	flag.Parse()

	// Load config from YAML file
	config, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	appLogger := logger.NewLogger(config.LogLevel, config.Name)
	defer appLogger.Sync()

	// 2. Order journal
	var journal interfaces.IOrderJournal

	switch config.Storage.DBType {
	case "postgres":
		journal, err = storage.NewPostgresJournal(config.MConfig, appLogger)
	default:
		// Default to SQLite
		journal, err = storage.NewSQLiteJournal(config.MConfig, appLogger)
	}

	if err != nil {
		appLogger.Critical("Failed to init journal: %v", err)
	}
	if err := journal.Initialize(); err != nil {
		appLogger.Critical("Failed to migrate journal: %v", err)
	}
	defer journal.Close()

	// 3. Gateway session
	var gw interfaces.IBrokerGateway = gateway.NewPaperGateway(config.MConfig, appLogger)

	connectTimeout := time.Duration(config.Gateway.ConnectTimeoutSeconds) * time.Second
	connectCtx, cancelConnect := context.WithTimeout(context.Background(), connectTimeout)
	err = gw.Connect(connectCtx, config.Gateway.Host, config.Gateway.Port, config.Gateway.ClientID)
	cancelConnect()
	if err != nil {
		appLogger.Critical("Failed to connect to gateway: %v", err)
	}
	defer gw.Disconnect()

	// 4. Core pipeline: feed -> ingestor -> aggregator -> hub
	ingestor := ingest.NewTickIngestor(config.TickQueueSize, appLogger)
	gw.OnTick(ingestor.OnTick)

	srv := server.NewAPIServer(config.MConfig, appLogger)
	clock := utils.NewSessionClock("")

	engine := aggregator.NewEngine(config.MConfig, gw, clock, srv, ingestor.Ticks(), appLogger)
	sizer := trading.NewOrderSizer(config.MConfig, engine, gw, journal, appLogger)
	srv.Register(engine, sizer)

	// 5. Run
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wg := &sync.WaitGroup{}
	wg.Add(1)
	go engine.Run(ctx, wg)

	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Error("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down...")
	cancel()
	wg.Wait()
}
