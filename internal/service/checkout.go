package service

import (
	"context"
	"errors"
	"time"

	"farmmarket/internal/models"
	"farmmarket/internal/store"
	"farmmarket/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CheckoutTx is the view of one atomic unit the commit engine needs. All
// methods act under the same transaction; none of their effects survive
// unless the unit commits.
type CheckoutTx interface {
	CheckoutLines(ctx context.Context, userID int64) ([]models.CheckoutLine, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	AddOrderLine(ctx context.Context, line *models.OrderLine) error
	ReserveStock(ctx context.Context, productID int64, quantity int) (bool, error)
	ClearCart(ctx context.Context, userID int64) error
}

// CheckoutStore opens atomic units for the commit engine. An error from fn
// must roll back everything done through the Tx; a nil return commits.
type CheckoutStore interface {
	WithinCheckout(ctx context.Context, fn func(tx CheckoutTx) error) error
}

// OrderEventPublisher notifies the rest of the system after a commit.
type OrderEventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
}

// sqlCheckoutStore adapts the sqlx store to CheckoutStore.
type sqlCheckoutStore struct {
	store *store.Store
}

func (a sqlCheckoutStore) WithinCheckout(ctx context.Context, fn func(tx CheckoutTx) error) error {
	return a.store.WithinTx(ctx, func(tx *store.Tx) error {
		return fn(tx)
	})
}

// CheckoutService converts a buyer's cart into a durable order. The whole
// conversion (order header, order lines, inventory decrement, cart clear) is
// one atomic unit: it either fully commits or leaves no trace.
type CheckoutService struct {
	store   CheckoutStore
	events  OrderEventPublisher
	logger  *zap.Logger
	timeout time.Duration
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(st *store.Store, events OrderEventPublisher, timeout time.Duration) *CheckoutService {
	return &CheckoutService{
		store:   sqlCheckoutStore{store: st},
		events:  events,
		logger:  util.GetLogger(),
		timeout: timeout,
	}
}

// PlaceOrder commits the buyer's cart as one order.
//
// A successful call is not safe to retry blindly (it would charge inventory
// again for a fresh cart); ErrEmptyCart and InsufficientStockError leave no
// writes and are always safe to retry.
func (s *CheckoutService) PlaceOrder(ctx context.Context, buyerID int64) (int64, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.PlaceOrder")
	defer span.End()

	start := time.Now()
	defer func() {
		util.CheckoutLatency.Observe(time.Since(start).Seconds())
	}()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var (
		order  models.Order
		placed []models.PlacedItemData
	)

	err := s.store.WithinCheckout(ctx, func(tx CheckoutTx) error {
		lines, err := tx.CheckoutLines(ctx, buyerID)
		if err != nil {
			return storageFault(err)
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		// Pre-check against the locked snapshot. The ReserveStock guard
		// below remains the authoritative check.
		for _, l := range lines {
			if l.Available < l.Quantity {
				return &InsufficientStockError{ProductID: l.ProductID}
			}
		}

		var total int64
		for _, l := range lines {
			total += l.UnitPrice * int64(l.Quantity)
		}

		order = models.Order{
			UserID: buyerID,
			Total:  total,
			Status: models.StatusPending,
		}
		if err := tx.CreateOrder(ctx, &order); err != nil {
			return storageFault(err)
		}

		placed = placed[:0]
		for _, l := range lines {
			line := models.OrderLine{
				OrderID:   order.ID,
				ProductID: l.ProductID,
				Quantity:  l.Quantity,
				UnitPrice: l.UnitPrice,
			}
			if err := tx.AddOrderLine(ctx, &line); err != nil {
				return storageFault(err)
			}

			ok, err := tx.ReserveStock(ctx, l.ProductID, l.Quantity)
			if err != nil {
				return storageFault(err)
			}
			if !ok {
				// Row changed or vanished since the read; abort everything.
				return &InsufficientStockError{ProductID: l.ProductID}
			}

			placed = append(placed, models.PlacedItemData{
				ProductID: l.ProductID,
				Quantity:  l.Quantity,
				UnitPrice: l.UnitPrice,
				Remaining: l.Available - l.Quantity,
			})
		}

		if err := tx.ClearCart(ctx, buyerID); err != nil {
			return storageFault(err)
		}
		return nil
	})

	if err != nil {
		var stockErr *InsufficientStockError
		var storeErr *StorageError
		switch {
		case errors.Is(err, ErrEmptyCart):
			util.CheckoutFailedTotal.WithLabelValues("empty_cart").Inc()
		case errors.As(err, &stockErr):
			util.CheckoutFailedTotal.WithLabelValues("insufficient_stock").Inc()
			s.logger.Info("Checkout rejected: insufficient stock",
				zap.Int64("buyer_id", buyerID),
				zap.Int64("product_id", stockErr.ProductID))
		case errors.As(err, &storeErr):
			util.CheckoutFailedTotal.WithLabelValues("storage").Inc()
			s.logger.Error("Checkout aborted by storage fault",
				zap.Int64("buyer_id", buyerID),
				zap.Error(err))
		default:
			// Commit failures surface here without a wrapper.
			err = storageFault(err)
			util.CheckoutFailedTotal.WithLabelValues("storage").Inc()
			s.logger.Error("Checkout aborted by storage fault",
				zap.Int64("buyer_id", buyerID),
				zap.Error(err))
		}
		return 0, err
	}

	util.OrdersPlacedTotal.Inc()
	s.logger.Info("Order placed",
		zap.Int64("order_id", order.ID),
		zap.Int64("buyer_id", buyerID),
		zap.Int64("total", order.Total),
		zap.Int("lines", len(placed)))

	if s.events != nil {
		event := &models.OrderPlacedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeOrderPlaced,
				Timestamp: time.Now(),
			},
			OrderID: order.ID,
			BuyerID: buyerID,
			Total:   order.Total,
			Items:   placed,
		}
		if err := s.events.PublishOrderPlaced(ctx, event); err != nil {
			// Notification only; the order is already durable.
			s.logger.Error("Failed to publish OrderPlaced event",
				zap.Int64("order_id", order.ID),
				zap.Error(err))
		}
	}

	return order.ID, nil
}
