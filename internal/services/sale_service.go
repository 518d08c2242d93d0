// internal/services/sale_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/rfmontes/angel-fit-app/internal/models"
	"github.com/rfmontes/angel-fit-app/internal/store"
)

// SaleLine is one requested line of a sale. A nil Price captures the
// product's current price; an empty ProductName captures its current name.
type SaleLine struct {
	ProductID   uuid.UUID        `json:"product_id" validate:"required"`
	ProductName string           `json:"product_name,omitempty" validate:"max=255"`
	Quantity    int              `json:"quantity" validate:"min=1"`
	Price       *decimal.Decimal `json:"price,omitempty" validate:"omitempty,gte=0"`
}

type SaleRequest struct {
	CustomerName  string     `json:"customer_name" validate:"notblank,max=255"`
	CustomerPhone string     `json:"customer_phone" validate:"max=50"`
	PaymentMethod string     `json:"payment_method" validate:"max=50"`
	SaleDate      *time.Time `json:"sale_date,omitempty"`
	Items         []SaleLine `json:"items" validate:"required,min=1,dive"`
}

func validateSaleRequest(req *SaleRequest) error {
	if strings.TrimSpace(req.CustomerName) == "" {
		return ErrCustomerRequired
	}
	if len(req.Items) == 0 {
		return ErrEmptySale
	}
	for _, line := range req.Items {
		if line.Quantity < 1 {
			return ErrInvalidQuantity
		}
		if line.Price != nil && line.Price.IsNegative() {
			return ErrNegativeAmount
		}
	}
	return nil
}

// buildItems turns request lines into sale items priced against products and
// returns the total quantity requested per product, in first-seen order.
func buildItems(lines []SaleLine, products map[uuid.UUID]*models.Product) ([]models.SaleItem, []uuid.UUID, map[uuid.UUID]int, error) {
	items := make([]models.SaleItem, 0, len(lines))
	demand := make(map[uuid.UUID]int)
	var order []uuid.UUID

	for _, line := range lines {
		product, ok := products[line.ProductID]
		if !ok {
			return nil, nil, nil, fmt.Errorf("%w: %s", ErrProductNotFound, line.ProductID)
		}
		price := product.Price
		if line.Price != nil {
			price = *line.Price
		}
		name := strings.TrimSpace(line.ProductName)
		if name == "" {
			name = product.Name
		}
		items = append(items, models.SaleItem{
			ProductRef: models.NewProductRef(product.ID, name),
			Quantity:   line.Quantity,
			Price:      price,
		})
		if _, seen := demand[product.ID]; !seen {
			order = append(order, product.ID)
		}
		demand[product.ID] += line.Quantity
	}
	return items, order, demand, nil
}

func checkStock(order []uuid.UUID, demand map[uuid.UUID]int, products map[uuid.UUID]*models.Product) error {
	for _, id := range order {
		p := products[id]
		if p.Stock < demand[id] {
			return &InsufficientStockError{
				ProductID:   p.ID,
				ProductName: p.Name,
				Requested:   demand[id],
				Available:   p.Stock,
			}
		}
	}
	return nil
}

func (s *InventoryService) paymentMethod(requested string) string {
	if m := strings.TrimSpace(requested); m != "" {
		return m
	}
	return s.config.DefaultPaymentMethod
}

func (s *InventoryService) reject(op string, start time.Time, err error) error {
	s.metrics.ObserveOperation(op, "rejected", time.Since(start))
	s.logger.WithError(err).WithField("operation", op).Debug("Sale operation rejected")
	return err
}

func setStock(id uuid.UUID, stock int) stepFunc {
	return func(ctx context.Context, ds store.DataStore) error {
		_, err := ds.UpdateProduct(ctx, id, map[string]interface{}{"stock": stock})
		return err
	}
}

func setSaleStatus(id uuid.UUID, status models.SaleStatus) stepFunc {
	return func(ctx context.Context, ds store.DataStore) error {
		_, err := ds.UpdateSale(ctx, id, map[string]interface{}{"status": string(status)})
		return err
	}
}

// CreateSale records a sale: header, then items, then one stock decrement
// per product. Every line is checked against cached stock before anything
// is written. The cache is patched only after all writes succeeded.
func (s *InventoryService) CreateSale(ctx context.Context, req *SaleRequest) (*models.Sale, error) {
	const op = "sale.create"

	s.opMu.Lock()
	defer s.opMu.Unlock()
	start := time.Now()

	if err := validateSaleRequest(req); err != nil {
		return nil, s.reject(op, start, err)
	}

	products := s.productIndex()
	items, order, demand, err := buildItems(req.Items, products)
	if err != nil {
		return nil, s.reject(op, start, err)
	}
	if err := checkStock(order, demand, products); err != nil {
		return nil, s.reject(op, start, err)
	}

	saleDate := s.now().UTC()
	if req.SaleDate != nil && !req.SaleDate.IsZero() {
		saleDate = *req.SaleDate
	}
	header := &models.Sale{
		Total:         models.SumLines(items),
		PaymentMethod: s.paymentMethod(req.PaymentMethod),
		CustomerName:  strings.TrimSpace(req.CustomerName),
		CustomerPhone: strings.TrimSpace(req.CustomerPhone),
		SaleDate:      saleDate,
	}
	newStock := make(map[uuid.UUID]int, len(order))
	for _, id := range order {
		newStock[id] = products[id].Stock - demand[id]
	}

	var created *models.Sale
	err = s.mutate(ctx, op, uuid.Nil, func(m *mutation) error {
		header.Status = models.SaleStatusActive
		if !m.atomic {
			header.Status = models.SaleStatusPending
		}

		err := m.step("insert sale",
			func(ctx context.Context, ds store.DataStore) error {
				row, err := ds.InsertSale(ctx, header)
				if err != nil {
					return err
				}
				created = row
				m.saleID = row.ID
				return nil
			},
			func(ctx context.Context, ds store.DataStore) error {
				return ds.DeleteSale(ctx, created.ID)
			})
		if err != nil {
			return err
		}

		for i := range items {
			items[i].SaleID = created.ID
		}
		err = m.step("insert sale items",
			func(ctx context.Context, ds store.DataStore) error {
				rows, err := ds.InsertSaleItems(ctx, items)
				if err != nil {
					return err
				}
				created.Items = rows
				return nil
			},
			func(ctx context.Context, ds store.DataStore) error {
				return ds.DeleteSaleItems(ctx, created.ID)
			})
		if err != nil {
			return err
		}

		for _, id := range order {
			name := "update stock " + products[id].Name
			if err := m.step(name, setStock(id, newStock[id]), setStock(id, products[id].Stock)); err != nil {
				return err
			}
		}

		if !m.atomic {
			if err := m.step("activate sale", setSaleStatus(created.ID, models.SaleStatusActive), nil); err != nil {
				return err
			}
			created.Status = models.SaleStatusActive
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.applyStock(newStock)
	s.sales = append(s.sales, created.Clone())
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"sale_id":  created.ID,
		"customer": created.CustomerName,
		"total":    created.Total.StringFixed(2),
		"items":    len(created.Items),
	}).Info("Sale created")
	s.afterChange(Event{Type: EventSaleCreated, ID: created.ID})

	out := created.Clone()
	return &out, nil
}

// UpdateSale replaces a sale's header fields and items. Stock of the
// original items is restored into a working copy of every product, the new
// lines are checked and deducted against it, and the final stock of every
// product in the working copy is written back.
func (s *InventoryService) UpdateSale(ctx context.Context, id uuid.UUID, req *SaleRequest) (*models.Sale, error) {
	const op = "sale.update"

	s.opMu.Lock()
	defer s.opMu.Unlock()
	start := time.Now()

	original, err := s.Sale(id)
	if err != nil {
		return nil, err
	}
	if err := validateSaleRequest(req); err != nil {
		return nil, s.reject(op, start, err)
	}

	originalItems, err := s.store.SelectSaleItems(ctx, id)
	if err != nil {
		s.logger.WithError(err).WithField("sale_id", id).Error("Failed to read sale items")
		return nil, fmt.Errorf("failed to read sale items: %w", err)
	}

	// Working copy, in cache order so every write happens in a stable order.
	cached := s.Products()
	working := make(map[uuid.UUID]*models.Product, len(cached))
	for i := range cached {
		p := cached[i]
		working[p.ID] = &p
	}
	for _, item := range originalItems {
		if p, ok := item.Resolve(working); ok {
			p.Stock += item.Quantity
		}
	}

	items, order, demand, err := buildItems(req.Items, working)
	if err != nil {
		return nil, s.reject(op, start, err)
	}
	if err := checkStock(order, demand, working); err != nil {
		return nil, s.reject(op, start, err)
	}
	for _, pid := range order {
		working[pid].Stock -= demand[pid]
	}
	for i := range items {
		items[i].SaleID = id
	}

	saleDate := original.SaleDate
	if req.SaleDate != nil && !req.SaleDate.IsZero() {
		saleDate = *req.SaleDate
	}
	updated := models.Sale{
		BaseModel:     original.BaseModel,
		Total:         models.SumLines(items),
		PaymentMethod: s.paymentMethod(req.PaymentMethod),
		CustomerName:  strings.TrimSpace(req.CustomerName),
		CustomerPhone: strings.TrimSpace(req.CustomerPhone),
		SaleDate:      saleDate,
		Status:        models.SaleStatusActive,
	}
	previousHeader := map[string]interface{}{
		"total":          original.Total,
		"payment_method": original.PaymentMethod,
		"customer_name":  original.CustomerName,
		"customer_phone": original.CustomerPhone,
		"sale_date":      original.SaleDate,
		"status":         string(original.Status),
	}

	err = s.mutate(ctx, op, id, func(m *mutation) error {
		status := models.SaleStatusActive
		if !m.atomic {
			status = models.SaleStatusPending
		}
		header := map[string]interface{}{
			"total":          updated.Total,
			"payment_method": updated.PaymentMethod,
			"customer_name":  updated.CustomerName,
			"customer_phone": updated.CustomerPhone,
			"sale_date":      updated.SaleDate,
			"status":         string(status),
		}

		err := m.step("update sale",
			func(ctx context.Context, ds store.DataStore) error {
				row, err := ds.UpdateSale(ctx, id, header)
				if err == nil {
					updated.UpdatedAt = row.UpdatedAt
				}
				return err
			},
			func(ctx context.Context, ds store.DataStore) error {
				_, err := ds.UpdateSale(ctx, id, previousHeader)
				return err
			})
		if err != nil {
			return err
		}

		err = m.step("delete sale items",
			func(ctx context.Context, ds store.DataStore) error {
				return ds.DeleteSaleItems(ctx, id)
			},
			func(ctx context.Context, ds store.DataStore) error {
				_, err := ds.InsertSaleItems(ctx, originalItems)
				return err
			})
		if err != nil {
			return err
		}

		err = m.step("insert sale items",
			func(ctx context.Context, ds store.DataStore) error {
				rows, err := ds.InsertSaleItems(ctx, items)
				if err != nil {
					return err
				}
				updated.Items = rows
				return nil
			},
			func(ctx context.Context, ds store.DataStore) error {
				return ds.DeleteSaleItems(ctx, id)
			})
		if err != nil {
			return err
		}

		for i := range cached {
			p := cached[i]
			name := "update stock " + p.Name
			if err := m.step(name, setStock(p.ID, working[p.ID].Stock), setStock(p.ID, p.Stock)); err != nil {
				return err
			}
		}

		if !m.atomic {
			return m.step("activate sale", setSaleStatus(id, models.SaleStatusActive), nil)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.config.ReloadAfterSaleUpdate {
		if lerr := s.load(ctx); lerr == nil {
			s.logger.WithField("sale_id", id).Info("Sale updated")
			s.afterChange(Event{Type: EventSaleUpdated, ID: id})
			return s.Sale(id)
		}
		s.logger.WithField("sale_id", id).Warn("Reload after sale update failed, patching cache instead")
	}

	stock := make(map[uuid.UUID]int, len(working))
	for pid, p := range working {
		stock[pid] = p.Stock
	}
	s.mu.Lock()
	s.applyStock(stock)
	for i := range s.sales {
		if s.sales[i].ID == id {
			s.sales[i] = updated.Clone()
			break
		}
	}
	s.mu.Unlock()

	s.logger.WithField("sale_id", id).Info("Sale updated")
	s.afterChange(Event{Type: EventSaleUpdated, ID: id})

	out := updated.Clone()
	return &out, nil
}

// DeleteSale removes a sale and gives its units back to stock. Items are read
// from the store rather than the cache. Items whose product no longer exists
// are skipped.
func (s *InventoryService) DeleteSale(ctx context.Context, id uuid.UUID) error {
	const op = "sale.delete"

	s.opMu.Lock()
	defer s.opMu.Unlock()

	original, err := s.Sale(id)
	if err != nil {
		return err
	}

	items, err := s.store.SelectSaleItems(ctx, id)
	if err != nil {
		s.logger.WithError(err).WithField("sale_id", id).Error("Failed to read sale items")
		return fmt.Errorf("failed to read sale items: %w", err)
	}

	products := s.productIndex()
	restored := make(map[uuid.UUID]int)
	previous := make(map[uuid.UUID]int)
	var order []uuid.UUID
	for _, item := range items {
		p, ok := item.Resolve(products)
		if !ok {
			s.logger.WithFields(logrus.Fields{
				"sale_id":      id,
				"product_name": item.ProductName,
			}).Warn("Sale item references a missing product, stock not restored")
			continue
		}
		if _, seen := restored[p.ID]; !seen {
			order = append(order, p.ID)
			previous[p.ID] = p.Stock
			restored[p.ID] = p.Stock
		}
		restored[p.ID] += item.Quantity
	}

	err = s.mutate(ctx, op, id, func(m *mutation) error {
		if !m.atomic {
			err := m.step("mark sale pending",
				setSaleStatus(id, models.SaleStatusPending),
				setSaleStatus(id, original.Status))
			if err != nil {
				return err
			}
		}

		for _, pid := range order {
			name := "restore stock " + products[pid].Name
			if err := m.step(name, setStock(pid, restored[pid]), setStock(pid, previous[pid])); err != nil {
				return err
			}
		}

		err := m.step("delete sale items",
			func(ctx context.Context, ds store.DataStore) error {
				return ds.DeleteSaleItems(ctx, id)
			},
			func(ctx context.Context, ds store.DataStore) error {
				_, err := ds.InsertSaleItems(ctx, items)
				return err
			})
		if err != nil {
			return err
		}

		return m.step("delete sale", func(ctx context.Context, ds store.DataStore) error {
			err := ds.DeleteSale(ctx, id)
			if errors.Is(err, store.ErrNotFound) {
				return ErrSaleNotFound
			}
			return err
		}, nil)
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.applyStock(restored)
	for i := range s.sales {
		if s.sales[i].ID == id {
			s.sales = append(s.sales[:i], s.sales[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"sale_id":  id,
		"restored": len(order),
	}).Info("Sale deleted")
	s.afterChange(Event{Type: EventSaleDeleted, ID: id})
	return nil
}

// applyStock sets cached stock values. Callers hold mu.
func (s *InventoryService) applyStock(stock map[uuid.UUID]int) {
	for i := range s.products {
		if v, ok := stock[s.products[i].ID]; ok {
			s.products[i].Stock = v
		}
	}
}
