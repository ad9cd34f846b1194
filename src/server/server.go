package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"watchlist-trader/src/aggregator"
	"watchlist-trader/src/helpers"
	"watchlist-trader/src/logger"
	"watchlist-trader/src/models"
	"watchlist-trader/src/trading"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// APIServer
// -----------------------------------------------------------------------------

type APIServer struct {
	Config *models.MConfig
	Logger *logger.Logger
	engine *gin.Engine

	aggregator *aggregator.Engine
	sizer      *trading.OrderSizer

	// WebSocket clients
	clients    map[*Client]struct{}
	broadcast  chan *models.MWatchlistSnapshot // Strongly typed and Buffered Queue
	register   chan *Client
	unregister chan *Client

	// Health reporting state, written by the hub loop
	stateMutex  sync.RWMutex
	lastUpdate  int64
	connections int
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewAPIServer(cfg *models.MConfig, logger *logger.Logger) *APIServer {
	// Set Gin mode
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &APIServer{
		Config:  cfg,
		Logger:  logger,
		engine:  gin.Default(),
		clients: make(map[*Client]struct{}),
		// Buffered channel so a burst of aggregate updates never blocks the
		// aggregator loop
		broadcast:  make(chan *models.MWatchlistSnapshot, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// setup web routes
	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------

// Register wires in the request-handling collaborators. Must be called before
// Start.
func (s *APIServer) Register(agg *aggregator.Engine, sizer *trading.OrderSizer) {
	s.aggregator = agg
	s.sizer = sizer
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *APIServer) setupRoutes() {
	// REST API endpoints
	s.engine.POST("/api/watchlist", s.setWatchlist)
	s.engine.GET("/api/watchlist", s.getWatchlist)
	s.engine.POST("/api/order", s.placeOrder)
	s.engine.GET("/api/orders", s.listOrders)
	s.engine.DELETE("/api/order/:id", s.cancelOrder)
	s.engine.GET("/api/positions", s.listPositions)
	s.engine.GET("/api/config", s.getConfig)
	s.engine.GET("/api/health", s.getHealth)

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *APIServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting server on %s", addr)

	go s.handleWebsockets()

	return s.engine.Run(addr)
}

// -----------------------------------------------------------------------------

func (s *APIServer) Stop() error {
	// Clean shutdown
	close(s.broadcast)
	close(s.register)
	close(s.unregister)
	return nil
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *APIServer) setWatchlist(c *gin.Context) {
	var req models.MWatchlistConfig
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, helpers.NewValidationError("invalid watchlist payload", err))
		return
	}

	cfg, err := s.aggregator.Subscribe(c.Request.Context(), req.Symbols, req.TestMode)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"symbols":  cfg.Symbols,
		"testMode": cfg.TestMode,
	})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getWatchlist(c *gin.Context) {
	snap, err := s.aggregator.Snapshot(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// -----------------------------------------------------------------------------

func (s *APIServer) placeOrder(c *gin.Context) {
	var intent models.MOrderIntent
	if err := c.ShouldBindJSON(&intent); err != nil {
		s.writeError(c, helpers.NewValidationError("invalid order payload", err))
		return
	}

	result, err := s.sizer.PlaceOrder(c.Request.Context(), intent)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// -----------------------------------------------------------------------------

func (s *APIServer) listOrders(c *gin.Context) {
	c.JSON(http.StatusOK, s.sizer.ListOrders())
}

// -----------------------------------------------------------------------------

func (s *APIServer) cancelOrder(c *gin.Context) {
	orderID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		s.writeError(c, helpers.NewValidationError("order id must be an integer", err))
		return
	}

	if err := s.sizer.CancelOrder(c.Request.Context(), orderID); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": orderID})
}

// -----------------------------------------------------------------------------

func (s *APIServer) listPositions(c *gin.Context) {
	positions, err := s.sizer.ListPositions(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, positions)
}

// -----------------------------------------------------------------------------

func (s *APIServer) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"riskBudget": s.Config.Risk.Budget,
		"lotSize":    s.Config.Risk.LotSize,
		"floorRisk":  s.Config.Risk.FloorRisk,
	})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getHealth(c *gin.Context) {
	s.stateMutex.RLock()
	lastUpdate := s.lastUpdate
	s.stateMutex.RUnlock()

	connections := s.connectionCount()

	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"connections":   connections,
		"latest_update": lastUpdate,
	})
}
