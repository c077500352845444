package service

import (
	"context"

	"farmmarket/internal/models"
	"farmmarket/internal/store"
	"farmmarket/internal/util"

	"go.uber.org/zap"
)

// CartService manages a user's cart outside of checkout. Cart rows belong to
// their user until the commit engine consumes them.
type CartService struct {
	store  *store.Store
	logger *zap.Logger
}

// NewCartService creates a new cart service
func NewCartService(st *store.Store) *CartService {
	return &CartService{
		store:  st,
		logger: util.GetLogger(),
	}
}

// AddToCart inserts a cart line or increments an existing one. The product
// must exist; availability is only enforced at checkout.
func (cs *CartService) AddToCart(ctx context.Context, userID, productID int64, quantity int) error {
	if _, err := cs.store.GetProductByID(ctx, productID); err != nil {
		return err
	}
	if err := cs.store.AddToCart(ctx, userID, productID, quantity); err != nil {
		return storageFault(err)
	}
	return nil
}

// ViewCart lists the user's cart joined with product names and prices
func (cs *CartService) ViewCart(ctx context.Context, userID int64) ([]models.CartView, error) {
	return cs.store.GetCart(ctx, userID)
}

// RemoveFromCart deletes one cart line owned by the user
func (cs *CartService) RemoveFromCart(ctx context.Context, userID, lineID int64) error {
	return cs.store.RemoveFromCart(ctx, userID, lineID)
}
