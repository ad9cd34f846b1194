package storage

import (
	"database/sql"
	"fmt"
	"time"

	"watchlist-trader/src/interfaces"
	"watchlist-trader/src/logger"
	"watchlist-trader/src/models"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

// PostgresJournal is the shared-database variant of the order audit trail.
type PostgresJournal struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

var _ interfaces.IOrderJournal = (*PostgresJournal)(nil)

// -----------------------------------------------------------------------------

func NewPostgresJournal(cfg *models.MConfig, log *logger.Logger) (*PostgresJournal, error) {
	return &PostgresJournal{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (j *PostgresJournal) Initialize() error {
	db, err := sql.Open("postgres", j.Config.Storage.DBConnectionString)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return err
	}

	j.DB = db
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	query := `
		CREATE TABLE IF NOT EXISTS orders (
			id UUID PRIMARY KEY,
			order_id BIGINT,
			symbol TEXT,
			side TEXT,
			quantity INTEGER,
			filled INTEGER,
			avg_fill_price DOUBLE PRECISION,
			status TEXT,
			created_at TIMESTAMPTZ,
			updated_at TIMESTAMPTZ
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

func (j *PostgresJournal) SaveOrder(rec models.MOrderRecord) error {
	now := time.Now().UTC()
	_, err := j.DB.Exec(`
		INSERT INTO orders (id, order_id, symbol, side, quantity, filled, avg_fill_price, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, uuid.NewString(), rec.OrderID, rec.Symbol, rec.Side, rec.Quantity, rec.Filled, rec.AvgFillPrice, rec.Status, now, now)
	return err
}

// -----------------------------------------------------------------------------

func (j *PostgresJournal) UpdateOrderStatus(orderID int, status string, filled int, avgFillPrice float64) error {
	_, err := j.DB.Exec(`
		UPDATE orders SET status = $1, filled = $2, avg_fill_price = $3, updated_at = $4
		WHERE order_id = $5
	`, status, filled, avgFillPrice, time.Now().UTC(), orderID)
	return err
}

// -----------------------------------------------------------------------------

func (j *PostgresJournal) ListOrders() ([]models.MOrderRecord, error) {
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

func (j *PostgresJournal) Close() error {
	if j.DB != nil {
		return j.DB.Close()
	}
	return nil
}
