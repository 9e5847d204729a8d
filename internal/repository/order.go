package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/voicee/paytrack/internal/models"
	"github.com/voicee/paytrack/internal/repository/postgres"
	"go.uber.org/zap"
)

const (
	insertOrderQuery = `
						INSERT INTO orders (id, amount, customer_key, email, description, status, created)
						VALUES ($1, $2, $3, $4, $5, $6, $7)
						RETURNING id, amount, customer_key, email, description, receipt, payment_id, url, status, created
`
	selectOrderByIDQuery = `
						SELECT id, amount, customer_key, email, description, receipt, payment_id, url, status, created FROM orders
						WHERE id = $1
`
	updateOrderQuery = `
						UPDATE orders
						SET status = $1, url = $2, receipt = $3, payment_id = $4
						WHERE id = $5
						RETURNING id, amount, customer_key, email, description, receipt, payment_id, url, status, created
`
	selectOrdersByStatusQuery = `
						SELECT id, amount, customer_key, email, description, receipt, payment_id, url, status, created FROM orders
						WHERE status = $1
						ORDER BY created
`
)

// OrderRepository implements order storage on postgres
type OrderRepository struct {
	db     *postgres.DB
	logger *zap.Logger
}

// NewOrderRepository creates new OrderRepository instance
func NewOrderRepository(db *postgres.DB, logger *zap.Logger) *OrderRepository {
	return &OrderRepository{db: db, logger: logger}
}

// CreateOrder inserts new order to database
func (or *OrderRepository) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	row := or.db.QueryRow(ctx, insertOrderQuery,
		order.ID, order.Amount, order.CustomerKey, order.Email, order.Description, order.Status, order.Created)
	return scanOrder(row)
}

// GetOrderByID returns order by id
func (or *OrderRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := scanOrder(or.db.QueryRow(ctx, selectOrderByIDQuery, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

// UpdateOrder persists status, url, receipt and payment id of the order,
// keyed by id, and returns the freshly read row.
func (or *OrderRepository) UpdateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	receipt, err := marshalReceipt(order.Receipt)
	if err != nil {
		return nil, err
	}

	row := or.db.QueryRow(ctx, updateOrderQuery,
		order.Status, nullable(order.URL), receipt, nullable(order.PaymentID), order.ID)

	updated, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrOrderNotFound
		}
		return nil, err
	}
	return updated, nil
}

// GetOrdersByStatus returns orders with the given status, oldest first
func (or *OrderRepository) GetOrdersByStatus(ctx context.Context, status models.Status) ([]models.Order, error) {
	rows, err := or.db.Query(ctx, selectOrdersByStatusQuery, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []models.Order{}

	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			// a skipped row is an order the sweep will not resume this cycle
			or.logger.Warn("order row skipped", zap.String("status", string(status)), zap.Error(err))
			continue
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}

// scanOrder reads one order row, unpacking the nullable columns.
func scanOrder(row pgx.Row) (*models.Order, error) {
	var (
		order     models.Order
		receipt   []byte
		paymentID *string
		orderURL  *string
	)

	err := row.Scan(&order.ID, &order.Amount, &order.CustomerKey, &order.Email, &order.Description,
		&receipt, &paymentID, &orderURL, &order.Status, &order.Created)
	if err != nil {
		return nil, err
	}

	if paymentID != nil {
		order.PaymentID = *paymentID
	}
	if orderURL != nil {
		order.URL = *orderURL
	}
	if len(receipt) > 0 {
		r := models.Receipt{}
		if err := json.Unmarshal(receipt, &r); err != nil {
			return nil, err
		}
		order.Receipt = &r
	}

	return &order, nil
}

func marshalReceipt(r *models.Receipt) ([]byte, error) {
	if r == nil {
		return nil, nil
	}
	return json.Marshal(r)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
