// internal/services/inventory_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/rfmontes/angel-fit-app/internal/config"
	"github.com/rfmontes/angel-fit-app/internal/metrics"
	"github.com/rfmontes/angel-fit-app/internal/models"
	"github.com/rfmontes/angel-fit-app/internal/store"
	"github.com/rfmontes/angel-fit-app/internal/utils"
)

// ErrCacheDiverged marks a product delete that failed remotely after the
// product was already evicted from the cache.
var ErrCacheDiverged = errors.New("cache evicted but remote delete failed")

// InventoryService holds the in-process mirror of products and sales and is
// the only path through which they are mutated. One instance is created per
// process and shared by every handler.
//
// Mutations are serialized. Stock writes are absolute values computed from
// the cache, so two processes writing to the same store can still lose
// updates; run a single instance per store.
type InventoryService struct {
	store   store.DataStore
	config  config.InventoryConfig
	logger  *logrus.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	opMu sync.Mutex

	mu       sync.RWMutex
	products []models.Product
	sales    []models.Sale
	loadedAt time.Time

	events broadcaster
}

type CreateProductRequest struct {
	Name     string          `json:"name" validate:"notblank,max=255"`
	Category string          `json:"category" validate:"max=100"`
	Color    string          `json:"color" validate:"max=100"`
	Size     string          `json:"size" validate:"max=50"`
	Supplier string          `json:"supplier" validate:"max=255"`
	Price    decimal.Decimal `json:"price" validate:"gte=0"`
	Cost     decimal.Decimal `json:"cost" validate:"gte=0"`
	Stock    int             `json:"stock" validate:"min=0"`
	MinStock int             `json:"min_stock" validate:"min=0"`
}

type UpdateProductRequest struct {
	Name     *string          `json:"name,omitempty" validate:"omitempty,notblank,max=255"`
	Category *string          `json:"category,omitempty" validate:"omitempty,max=100"`
	Color    *string          `json:"color,omitempty" validate:"omitempty,max=100"`
	Size     *string          `json:"size,omitempty" validate:"omitempty,max=50"`
	Supplier *string          `json:"supplier,omitempty" validate:"omitempty,max=255"`
	Price    *decimal.Decimal `json:"price,omitempty" validate:"omitempty,gte=0"`
	Cost     *decimal.Decimal `json:"cost,omitempty" validate:"omitempty,gte=0"`
	Stock    *int             `json:"stock,omitempty" validate:"omitempty,min=0"`
	MinStock *int             `json:"min_stock,omitempty" validate:"omitempty,min=0"`
}

func (r *UpdateProductRequest) fields() map[string]interface{} {
	fields := make(map[string]interface{})
	if r.Name != nil {
		fields["name"] = strings.TrimSpace(*r.Name)
	}
	if r.Category != nil {
		fields["category"] = strings.TrimSpace(*r.Category)
	}
	if r.Color != nil {
		fields["color"] = strings.TrimSpace(*r.Color)
	}
	if r.Size != nil {
		fields["size"] = strings.TrimSpace(*r.Size)
	}
	if r.Supplier != nil {
		fields["supplier"] = strings.TrimSpace(*r.Supplier)
	}
	if r.Price != nil {
		fields["price"] = *r.Price
	}
	if r.Cost != nil {
		fields["cost"] = *r.Cost
	}
	if r.Stock != nil {
		fields["stock"] = *r.Stock
	}
	if r.MinStock != nil {
		fields["min_stock"] = *r.MinStock
	}
	return fields
}

func NewInventoryService(ds store.DataStore, cfg *config.Config, logger *logrus.Logger, m *metrics.Metrics) *InventoryService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &InventoryService{
		store:   ds,
		config:  cfg.Inventory,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// Subscribe registers fn to be called after every cache change. The returned
// function removes the subscription.
func (s *InventoryService) Subscribe(fn func(Event)) func() {
	return s.events.subscribe(fn)
}

// Load replaces the cache with the current contents of the store. On failure
// the cache is left as it was.
func (s *InventoryService) Load(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.load(ctx)
}

func (s *InventoryService) load(ctx context.Context) error {
	products, err := s.store.SelectProducts(ctx)
	if err == nil {
		var sales []models.Sale
		sales, err = s.store.SelectSales(ctx)
		if err == nil {
			s.mu.Lock()
			s.products = products
			s.sales = sales
			s.loadedAt = s.now()
			s.mu.Unlock()
		}
	}
	s.metrics.ObserveCacheLoad(err)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load inventory from store")
		return fmt.Errorf("failed to load inventory: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"products": len(products),
	}).Debug("Inventory cache loaded")
	s.afterChange(Event{Type: EventCacheLoaded})
	return nil
}

// LoadedAt is the time of the last successful Load.
func (s *InventoryService) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}

func (s *InventoryService) afterChange(ev Event) {
	s.mu.RLock()
	out, low := 0, 0
	for i := range s.products {
		if s.products[i].IsOutOfStock() {
			out++
		} else if s.products[i].IsLowStock() {
			low++
		}
	}
	total := len(s.products)
	s.mu.RUnlock()
	s.metrics.SetStockLevels(total, out, low)

	ev.At = s.now()
	s.events.emit(ev)
}

// Products returns a copy of the cached products in store order.
func (s *InventoryService) Products() []models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Product, len(s.products))
	copy(out, s.products)
	return out
}

// Sales returns a deep copy of the cached sales in store order.
func (s *InventoryService) Sales() []models.Sale {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Sale, len(s.sales))
	for i := range s.sales {
		out[i] = s.sales[i].Clone()
	}
	return out
}

func (s *InventoryService) Product(id uuid.UUID) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.products {
		if s.products[i].ID == id {
			p := s.products[i]
			return &p, nil
		}
	}
	return nil, ErrProductNotFound
}

func (s *InventoryService) Sale(id uuid.UUID) (*models.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.sales {
		if s.sales[i].ID == id {
			sale := s.sales[i].Clone()
			return &sale, nil
		}
	}
	return nil, ErrSaleNotFound
}

// productIndex returns copies of the cached products keyed by id.
func (s *InventoryService) productIndex() map[uuid.UUID]*models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	index := make(map[uuid.UUID]*models.Product, len(s.products))
	for i := range s.products {
		p := s.products[i]
		index[p.ID] = &p
	}
	return index
}

// CountProducts asks the store directly, bypassing the cache.
func (s *InventoryService) CountProducts(ctx context.Context) (int64, error) {
	return s.store.CountProducts(ctx)
}

// AddProduct persists a new product and appends the stored row to the cache.
// Nothing is cached if the insert fails.
func (s *InventoryService) AddProduct(ctx context.Context, req *CreateProductRequest) (*models.Product, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()
	start := time.Now()

	row, err := s.store.InsertProduct(ctx, &models.Product{
		Name:     strings.TrimSpace(req.Name),
		Category: strings.TrimSpace(req.Category),
		Color:    strings.TrimSpace(req.Color),
		Size:     strings.TrimSpace(req.Size),
		Supplier: strings.TrimSpace(req.Supplier),
		Price:    req.Price,
		Cost:     req.Cost,
		Stock:    req.Stock,
		MinStock: req.MinStock,
	})
	if err != nil {
		s.metrics.ObserveOperation("product.create", "error", time.Since(start))
		s.logger.WithError(err).WithField("name", req.Name).Error("Failed to create product")
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.mu.Lock()
	s.products = append(s.products, *row)
	s.mu.Unlock()

	s.metrics.ObserveOperation("product.create", "success", time.Since(start))
	s.logger.WithFields(logrus.Fields{
		"product_id": row.ID,
		"name":       row.Name,
	}).Info("Product created")
	s.afterChange(Event{Type: EventProductCreated, ID: row.ID})

	out := *row
	return &out, nil
}

// UpdateProduct persists a partial change and replaces the cached entry with
// the row the store returns. The cache is untouched if the write fails.
func (s *InventoryService) UpdateProduct(ctx context.Context, id uuid.UUID, req *UpdateProductRequest) (*models.Product, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()
	start := time.Now()

	if _, err := s.Product(id); err != nil {
		return nil, err
	}

	row, err := s.store.UpdateProduct(ctx, id, req.fields())
	if err != nil {
		s.metrics.ObserveOperation("product.update", "error", time.Since(start))
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		s.logger.WithError(err).WithField("product_id", id).Error("Failed to update product")
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	s.mu.Lock()
	for i := range s.products {
		if s.products[i].ID == id {
			s.products[i] = *row
			break
		}
	}
	s.mu.Unlock()

	s.metrics.ObserveOperation("product.update", "success", time.Since(start))
	s.afterChange(Event{Type: EventProductUpdated, ID: id})

	out := *row
	return &out, nil
}

// DeleteProduct deletes the product remotely and evicts it from the cache.
// When the remote delete fails the entry is still evicted if
// EvictOnDeleteFailure is set, and the returned error wraps ErrCacheDiverged.
// Sale items referencing the product are left alone.
func (s *InventoryService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	start := time.Now()

	if _, err := s.Product(id); err != nil {
		return err
	}

	err := s.store.DeleteProduct(ctx, id)
	if err != nil && !s.config.EvictOnDeleteFailure {
		s.metrics.ObserveOperation("product.delete", "error", time.Since(start))
		s.logger.WithError(err).WithField("product_id", id).Error("Failed to delete product")
		return fmt.Errorf("failed to delete product: %w", err)
	}

	s.mu.Lock()
	for i := range s.products {
		if s.products[i].ID == id {
			s.products = append(s.products[:i], s.products[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	s.afterChange(Event{Type: EventProductDeleted, ID: id})

	if err != nil {
		s.metrics.ObserveOperation("product.delete", "diverged", time.Since(start))
		s.logger.WithError(err).WithField("product_id", id).
			Warn("Product evicted from cache but remote delete failed; cache and store diverged until next load")
		return fmt.Errorf("failed to delete product: %w: %w", ErrCacheDiverged, err)
	}

	s.metrics.ObserveOperation("product.delete", "success", time.Since(start))
	s.logger.WithField("product_id", id).Info("Product deleted")
	return nil
}

// ResetMinStock sets min_stock on every product, then reloads the cache.
func (s *InventoryService) ResetMinStock(ctx context.Context, value int) (int64, error) {
	if value < 0 {
		return 0, ErrNegativeAmount
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	n, err := s.store.UpdateAllProducts(ctx, map[string]interface{}{"min_stock": value})
	if err != nil {
		s.logger.WithError(err).Error("Failed to reset minimum stock")
		return 0, fmt.Errorf("failed to reset minimum stock: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"min_stock": value,
		"products":  n,
	}).Info("Minimum stock reset")
	return n, s.load(ctx)
}
