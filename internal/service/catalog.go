package service

import (
	"context"
	"time"

	"farmmarket/internal/models"
	"farmmarket/internal/redisclient"
	"farmmarket/internal/store"
	"farmmarket/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CatalogEventPublisher notifies the rest of the system about catalog changes.
type CatalogEventPublisher interface {
	PublishProductCreated(ctx context.Context, event *models.ProductCreatedEvent) error
}

// CatalogService handles product listing and farmer product management.
type CatalogService struct {
	store  *store.Store
	cache  *redisclient.Client
	events CatalogEventPublisher
	logger *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(st *store.Store, cache *redisclient.Client, events CatalogEventPublisher) *CatalogService {
	return &CatalogService{
		store:  st,
		cache:  cache,
		events: events,
		logger: util.GetLogger(),
	}
}

// ListProducts retrieves the full catalog
func (cs *CatalogService) ListProducts(ctx context.Context) ([]models.Product, error) {
	return cs.store.GetProducts(ctx)
}

// GetProduct retrieves one product. Availability is served from the Redis
// cache when present (kept warm by the order worker); the database remains
// the source of truth and backfills misses.
func (cs *CatalogService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	product, err := cs.store.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if cs.cache == nil {
		return product, nil
	}

	quantity, found, err := cs.cache.GetQuantity(ctx, id)
	if err != nil {
		cs.logger.Warn("Quantity cache read failed",
			zap.Int64("product_id", id),
			zap.Error(err))
		return product, nil
	}
	if found {
		product.Quantity = quantity
		return product, nil
	}

	if err := cs.cache.SetQuantity(ctx, id, product.Quantity); err != nil {
		cs.logger.Warn("Quantity cache warm failed",
			zap.Int64("product_id", id),
			zap.Error(err))
	}
	return product, nil
}

// FarmerProducts retrieves a farmer's own products
func (cs *CatalogService) FarmerProducts(ctx context.Context, farmerID int64) ([]models.Product, error) {
	return cs.store.GetProductsByFarmer(ctx, farmerID)
}

// CreateProduct validates and creates a product owned by the farmer
func (cs *CatalogService) CreateProduct(ctx context.Context, name string, price int64, quantity int, farmerID int64) (*models.Product, error) {
	product, err := models.NewProduct(name, price, quantity, farmerID)
	if err != nil {
		return nil, err
	}

	if err := cs.store.CreateProduct(ctx, product); err != nil {
		return nil, storageFault(err)
	}

	util.ProductsCreatedTotal.Inc()
	cs.logger.Info("Product created",
		zap.Int64("product_id", product.ID),
		zap.Int64("farmer_id", farmerID))

	if cs.cache != nil {
		if err := cs.cache.SetQuantity(ctx, product.ID, product.Quantity); err != nil {
			cs.logger.Warn("Quantity cache warm failed",
				zap.Int64("product_id", product.ID),
				zap.Error(err))
		}
	}

	if cs.events != nil {
		event := &models.ProductCreatedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeProductCreated,
				Timestamp: time.Now(),
			},
			ProductID: product.ID,
			FarmerID:  farmerID,
			Quantity:  product.Quantity,
		}
		if err := cs.events.PublishProductCreated(ctx, event); err != nil {
			cs.logger.Error("Failed to publish ProductCreated event", zap.Error(err))
		}
	}

	return product, nil
}
