package worker

import (
	"context"

	"farmmarket/internal/broker"
	"farmmarket/internal/models"
	"farmmarket/internal/redisclient"
	"farmmarket/internal/util"

	"go.uber.org/zap"
)

// CacheWorker consumes order and catalog events and keeps the Redis
// quantity cache in step with the committed quantities. The cache is a read
// optimization only; nothing here participates in the checkout unit.
type CacheWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	cache        *redisclient.Client
	logger       *zap.Logger
}

// NewCacheWorker creates a new cache worker
func NewCacheWorker(consumer *broker.Consumer, cache *redisclient.Client) *CacheWorker {
	w := &CacheWorker{
		consumer: consumer,
		cache:    cache,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderPlaced(w.handleOrderPlaced)
	eventHandler.OnProductCreated(w.handleProductCreated)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *CacheWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting cache worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *CacheWorker) Stop() error {
	w.logger.Info("Stopping cache worker")
	return w.consumer.Close()
}

func (w *CacheWorker) handleOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	for _, item := range event.Items {
		if err := w.cache.SetQuantity(ctx, item.ProductID, item.Remaining); err != nil {
			util.CacheRefreshTotal.WithLabelValues("error").Inc()
			w.logger.Error("Failed to refresh quantity cache",
				zap.Int64("product_id", item.ProductID),
				zap.Error(err))
			continue
		}
		util.CacheRefreshTotal.WithLabelValues("ok").Inc()
	}
	return nil
}

func (w *CacheWorker) handleProductCreated(ctx context.Context, event *models.ProductCreatedEvent) error {
	if err := w.cache.SetQuantity(ctx, event.ProductID, event.Quantity); err != nil {
		util.CacheRefreshTotal.WithLabelValues("error").Inc()
		w.logger.Error("Failed to seed quantity cache",
			zap.Int64("product_id", event.ProductID),
			zap.Error(err))
		return nil
	}
	util.CacheRefreshTotal.WithLabelValues("ok").Inc()
	return nil
}
