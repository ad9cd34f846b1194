package interfaces

import "watchlist-trader/src/models"

// IOrderJournal is the durable audit trail for submitted orders.
type IOrderJournal interface {

	// Initialize opens the backing store and creates the schema.
	Initialize() error

	// SaveOrder appends a newly submitted order.
	SaveOrder(rec models.MOrderRecord) error

	// UpdateOrderStatus records a status change for an order.
	UpdateOrderStatus(orderID int, status string, filled int, avgFillPrice float64) error

	// ListOrders returns every journaled order, newest first.
	ListOrders() ([]models.MOrderRecord, error)

	// Close releases the backing store.
	Close() error
}
