package store

import (
	"context"
	"database/sql"
	"fmt"

	"farmmarket/internal/models"
)

// AddToCart inserts a cart line or bumps the quantity of an existing one.
// The (user_id, product_id) unique constraint keeps one line per product.
func (s *Store) AddToCart(ctx context.Context, userID, productID int64, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("cart quantity must be >= 1, got %d", quantity)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cart_lines (user_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_lines.quantity + EXCLUDED.quantity`,
		userID, productID, quantity)
	if err != nil {
		return fmt.Errorf("failed to add to cart: %w", err)
	}
	return nil
}

// GetCart retrieves a user's cart joined with product names and prices
func (s *Store) GetCart(ctx context.Context, userID int64) ([]models.CartView, error) {
	var lines []models.CartView
	err := s.db.SelectContext(ctx, &lines, `
		SELECT c.id, c.product_id, p.name, p.price, c.quantity
		FROM cart_lines c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1
		ORDER BY c.id`, userID)
	return lines, err
}

// RemoveFromCart deletes a single cart line owned by the user
func (s *Store) RemoveFromCart(ctx context.Context, userID, lineID int64) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM cart_lines WHERE id = $1 AND user_id = $2", lineID, userID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CheckoutLines reads a user's cart joined with live product price and
// availability, locking the product rows for the rest of the unit. Rows come
// back in product-id order so concurrent checkouts acquire locks in the same
// order.
func (t *Tx) CheckoutLines(ctx context.Context, userID int64) ([]models.CheckoutLine, error) {
	var lines []models.CheckoutLine
	err := t.tx.SelectContext(ctx, &lines, `
		SELECT c.product_id, p.name, c.quantity, p.price, p.quantity AS available
		FROM cart_lines c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1
		ORDER BY c.product_id
		FOR UPDATE OF p`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read cart for user %d: %w", userID, err)
	}
	return lines, nil
}

// ClearCart deletes every cart line for the user within the unit
func (t *Tx) ClearCart(ctx context.Context, userID int64) error {
	_, err := t.tx.ExecContext(ctx, "DELETE FROM cart_lines WHERE user_id = $1", userID)
	if err != nil {
		return fmt.Errorf("failed to clear cart for user %d: %w", userID, err)
	}
	return nil
}
