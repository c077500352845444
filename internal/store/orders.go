package store

import (
	"context"
	"database/sql"
	"fmt"

	"farmmarket/internal/models"
)

// CreateOrder inserts an order header within the unit and fills in the
// generated id and timestamp.
func (t *Tx) CreateOrder(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (user_id, total_price, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	if err := t.tx.GetContext(ctx, order, query,
		order.UserID, order.Total, order.Status); err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// AddOrderLine inserts one order line within the unit
func (t *Tx) AddOrderLine(ctx context.Context, line *models.OrderLine) error {
	query := `
		INSERT INTO order_lines (order_id, product_id, quantity, price)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	if err := t.tx.GetContext(ctx, &line.ID, query,
		line.OrderID, line.ProductID, line.Quantity, line.UnitPrice); err != nil {
		return fmt.Errorf("failed to add order line: %w", err)
	}
	return nil
}

// OrderStatusForUpdate reads an order's status and locks the header row
func (t *Tx) OrderStatusForUpdate(ctx context.Context, orderID int64) (models.Status, error) {
	var status models.Status
	err := t.tx.GetContext(ctx, &status,
		"SELECT status FROM orders WHERE id = $1 FOR UPDATE", orderID)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("order not found: %d", orderID)
	}
	if err != nil {
		return "", err
	}
	return status, nil
}

// SetOrderStatus updates an order's status within the unit
func (t *Tx) SetOrderStatus(ctx context.Context, orderID int64, status models.Status) error {
	_, err := t.tx.ExecContext(ctx,
		"UPDATE orders SET status = $1 WHERE id = $2", status, orderID)
	return err
}

// GetOrderByID retrieves an order header
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderLines retrieves all lines for an order
func (s *Store) GetOrderLines(ctx context.Context, orderID int64) ([]models.OrderLine, error) {
	var lines []models.OrderLine
	err := s.db.SelectContext(ctx, &lines,
		"SELECT * FROM order_lines WHERE order_id = $1 ORDER BY id", orderID)
	return lines, err
}

// GetBuyerOrders retrieves a buyer's order history, newest first
func (s *Store) GetBuyerOrders(ctx context.Context, userID int64) ([]models.BuyerOrderRow, error) {
	var rows []models.BuyerOrderRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT o.id AS order_id, o.created_at, o.status,
		       p.name AS product_name, l.quantity, l.price
		FROM orders o
		JOIN order_lines l ON l.order_id = o.id
		JOIN products p ON p.id = l.product_id
		WHERE o.user_id = $1
		ORDER BY o.created_at DESC, l.id`, userID)
	return rows, err
}

// GetFarmerOrders retrieves sold lines for a farmer's products, newest first
func (s *Store) GetFarmerOrders(ctx context.Context, farmerID int64) ([]models.FarmerOrderRow, error) {
	var rows []models.FarmerOrderRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT o.id AS order_id, o.created_at, o.status,
		       p.name AS product_name, l.quantity, l.price,
		       u.username AS buyer_name
		FROM order_lines l
		JOIN orders o ON o.id = l.order_id
		JOIN products p ON p.id = l.product_id
		JOIN users u ON u.id = o.user_id
		WHERE p.farmer_id = $1
		ORDER BY o.created_at DESC, l.id`, farmerID)
	return rows, err
}

// GetAllOrders retrieves every order header with the buyer named, newest first
func (s *Store) GetAllOrders(ctx context.Context) ([]models.AdminOrderRow, error) {
	var rows []models.AdminOrderRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT o.id AS order_id, o.created_at, o.status, o.total_price,
		       u.username AS buyer_name
		FROM orders o
		JOIN users u ON u.id = o.user_id
		ORDER BY o.created_at DESC`)
	return rows, err
}
