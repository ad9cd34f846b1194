package storage

import (
	"database/sql"
	"fmt"
	"time"

	"watchlist-trader/src/interfaces"
	"watchlist-trader/src/logger"
	"watchlist-trader/src/models"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

// SQLiteJournal is the default order audit trail, a single-file database.
type SQLiteJournal struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

var _ interfaces.IOrderJournal = (*SQLiteJournal)(nil)

// -----------------------------------------------------------------------------

func NewSQLiteJournal(cfg *models.MConfig, log *logger.Logger) (*SQLiteJournal, error) {
	return &SQLiteJournal{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (j *SQLiteJournal) Initialize() error {
	dsn := j.Config.Storage.DBPath

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return err
	}

	j.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		j.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		j.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	query := `
		CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			order_id INTEGER,
			symbol TEXT,
			side TEXT,
			quantity INTEGER,
			filled INTEGER,
			avg_fill_price REAL,
			status TEXT,
			created_at TIMESTAMP,
			updated_at TIMESTAMP
		);
	`
	if _, err := j.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create orders table: %w", err)
	}
	if _, err := j.DB.Exec("CREATE INDEX IF NOT EXISTS idx_orders_order_id ON orders (order_id);"); err != nil {
		return fmt.Errorf("failed to index orders table: %w", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (j *SQLiteJournal) SaveOrder(rec models.MOrderRecord) error {
	now := time.Now().UTC()
	_, err := j.DB.Exec(`
		INSERT INTO orders (id, order_id, symbol, side, quantity, filled, avg_fill_price, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, uuid.NewString(), rec.OrderID, rec.Symbol, rec.Side, rec.Quantity, rec.Filled, rec.AvgFillPrice, rec.Status, now, now)
	return err
}

// -----------------------------------------------------------------------------

func (j *SQLiteJournal) UpdateOrderStatus(orderID int, status string, filled int, avgFillPrice float64) error {
	_, err := j.DB.Exec(`
		UPDATE orders SET status = ?, filled = ?, avg_fill_price = ?, updated_at = ?
		WHERE order_id = ?
	`, status, filled, avgFillPrice, time.Now().UTC(), orderID)
	return err
}

// -----------------------------------------------------------------------------

func (j *SQLiteJournal) ListOrders() ([]models.MOrderRecord, error) {
	rows, err := j.DB.Query(`
		SELECT order_id, symbol, side, quantity, filled, avg_fill_price, status
		FROM orders ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.MOrderRecord
	for rows.Next() {
		var rec models.MOrderRecord
		if err := rows.Scan(&rec.OrderID, &rec.Symbol, &rec.Side, &rec.Quantity, &rec.Filled, &rec.AvgFillPrice, &rec.Status); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// -----------------------------------------------------------------------------

func (j *SQLiteJournal) Close() error {
	if j.DB != nil {
		return j.DB.Close()
	}
	return nil
}
