package service

import (
	"context"
	"time"

	"farmmarket/internal/models"
	"farmmarket/internal/store"
	"farmmarket/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StatusEventPublisher notifies the rest of the system about status changes.
type StatusEventPublisher interface {
	PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
}

// OrderService serves the read paths over the order ledger and the admin
// status-update path. It never writes order headers or lines; only the
// checkout engine does that.
type OrderService struct {
	store  *store.Store
	events StatusEventPublisher
	logger *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(st *store.Store, events StatusEventPublisher) *OrderService {
	return &OrderService{
		store:  st,
		events: events,
		logger: util.GetLogger(),
	}
}

// GetOrder retrieves an order header and its lines
func (os *OrderService) GetOrder(ctx context.Context, orderID int64) (*models.Order, []models.OrderLine, error) {
	order, err := os.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	lines, err := os.store.GetOrderLines(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	return order, lines, nil
}

// BuyerOrders retrieves a buyer's order history
func (os *OrderService) BuyerOrders(ctx context.Context, userID int64) ([]models.BuyerOrderRow, error) {
	return os.store.GetBuyerOrders(ctx, userID)
}

// FarmerOrders retrieves the sold lines for a farmer's products
func (os *OrderService) FarmerOrders(ctx context.Context, farmerID int64) ([]models.FarmerOrderRow, error) {
	return os.store.GetFarmerOrders(ctx, farmerID)
}

// AllOrders retrieves every order for the admin view
func (os *OrderService) AllOrders(ctx context.Context) ([]models.AdminOrderRow, error) {
	return os.store.GetAllOrders(ctx)
}

// UpdateStatus moves an order to a new status. Only statuses from the
// canonical set are accepted, and only along legal transitions; the check
// and the update share one atomic unit so concurrent admin calls cannot
// race past the table.
func (os *OrderService) UpdateStatus(ctx context.Context, orderID int64, newStatus string) error {
	to, err := models.ParseStatus(newStatus)
	if err != nil {
		return err
	}

	var from models.Status
	err = os.store.WithinTx(ctx, func(tx *store.Tx) error {
		from, err = tx.OrderStatusForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !models.CanTransition(from, to) {
			return &InvalidTransitionError{From: from, To: to}
		}
		return tx.SetOrderStatus(ctx, orderID, to)
	})
	if err != nil {
		return err
	}

	os.logger.Info("Order status updated",
		zap.Int64("order_id", orderID),
		zap.String("from", string(from)),
		zap.String("to", string(to)))

	if os.events != nil {
		event := &models.OrderStatusChangedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeOrderStatusChanged,
				Timestamp: time.Now(),
			},
			OrderID: orderID,
			From:    from,
			To:      to,
		}
		if err := os.events.PublishOrderStatusChanged(ctx, event); err != nil {
			os.logger.Error("Failed to publish OrderStatusChanged event", zap.Error(err))
		}
	}

	return nil
}
