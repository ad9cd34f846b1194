package server

import (
	"net/http"

	"watchlist-trader/src/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// handleWebsockets is the main Hub loop
func (s *APIServer) handleWebsockets() {
	for {
		select {
		case client := <-s.register:
			// No retroactive snapshot on connect: new subscribers only see
			// updates produced after they joined
			s.addClient(client)

		case client := <-s.unregister:
			s.removeClient(client)

		case snapshot := <-s.broadcast:
			s.stateMutex.Lock()
			s.lastUpdate = snapshot.Timestamp
			s.stateMutex.Unlock()

			// Broadcast to all clients
			for client := range s.clients {
				select {
				case client.send <- snapshot:
					// Message sent successfully
				default:
					// Client too slow, disconnect to prevent Hub blocking.
					// Delivery to the remaining clients continues.
					s.removeClient(client)
				}
			}
		}
	}
}

// -----------------------------------------------------------------------------

func (s *APIServer) addClient(client *Client) {
	s.clients[client] = struct{}{}
	s.stateMutex.Lock()
	s.connections = len(s.clients)
	s.stateMutex.Unlock()
}

func (s *APIServer) removeClient(client *Client) {
	if _, ok := s.clients[client]; !ok {
		return
	}
	delete(s.clients, client)
	close(client.send)
	s.stateMutex.Lock()
	s.connections = len(s.clients)
	s.stateMutex.Unlock()
}

func (s *APIServer) connectionCount() int {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()
	return s.connections
}

// -----------------------------------------------------------------------------
// Data Exchange Interface Implementation
// -----------------------------------------------------------------------------

// Broadcast queues an aggregate update for fan-out. Never blocks the caller:
// when the queue is full the update is dropped, the next one supersedes it
// anyway.
func (s *APIServer) Broadcast(snapshot *models.MWatchlistSnapshot) {
	select {
	case s.broadcast <- snapshot:
	default:
		s.Logger.Warning("Broadcast queue full, dropping update")
	}
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *APIServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		id:   uuid.NewString(),
		hub:  s,
		conn: conn,
		// Buffered channel to prevent blocking the Hub loop
		send: make(chan *models.MWatchlistSnapshot, 256),
	}

	s.register <- client

	// Start goroutines for reading/writing
	go client.writePump()
	go client.readPump()
}
