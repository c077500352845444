package store

import (
	"context"
	"database/sql"
	"fmt"

	"farmmarket/internal/models"
)

// CreateProduct inserts a new product for a farmer
func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (name, price, quantity, farmer_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, product, query,
		product.Name, product.Price, product.Quantity, product.FarmerID)
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProducts retrieves all products
func (s *Store) GetProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products, "SELECT * FROM products ORDER BY id")
	return products, err
}

// GetProductsByFarmer retrieves a farmer's own products
func (s *Store) GetProductsByFarmer(ctx context.Context, farmerID int64) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products,
		"SELECT * FROM products WHERE farmer_id = $1 ORDER BY id", farmerID)
	return products, err
}

// ReserveStock decrements availability for one product, guarded so the
// quantity can never go below zero. Returns false when the product is gone
// or has fewer units than requested; the caller must abort its whole unit.
func (t *Tx) ReserveStock(ctx context.Context, productID int64, quantity int) (bool, error) {
	res, err := t.tx.ExecContext(ctx,
		"UPDATE products SET quantity = quantity - $1 WHERE id = $2 AND quantity >= $1",
		quantity, productID)
	if err != nil {
		return false, fmt.Errorf("failed to reserve stock for product %d: %w", productID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}
