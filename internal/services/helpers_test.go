// internal/services/helpers_test.go
package services

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rfmontes/angel-fit-app/internal/config"
	"github.com/rfmontes/angel-fit-app/internal/models"
	"github.com/rfmontes/angel-fit-app/internal/store"
)

var errFault = errors.New("injected store failure")

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		JWT: config.JWTConfig{
			SecretKey:      "test-secret",
			AccessTokenTTL: 1,
		},
		Inventory: config.InventoryConfig{
			EvictOnDeleteFailure:  true,
			UseTransactions:       true,
			ReloadAfterSaleUpdate: true,
			DefaultPaymentMethod:  "Dinheiro",
			TimeZone:              "UTC",
			RecentSalesLimit:      5,
		},
	}
}

// faults decides which store calls fail. A positive value fails only that
// call number of the method; a negative value fails every call.
type faults struct {
	mu    sync.Mutex
	fail  map[string]int
	calls map[string]int
}

func newFaults() *faults {
	return &faults{fail: make(map[string]int), calls: make(map[string]int)}
}

func (f *faults) set(method string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[method] = n
	f.calls[method] = 0
}

func (f *faults) hit(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method]++
	n, ok := f.fail[method]
	if !ok || n == 0 {
		return nil
	}
	if n < 0 || f.calls[method] == n {
		return errFault
	}
	return nil
}

// faultyStore wraps a DataStore and fails the calls its faults ask for.
type faultyStore struct {
	store.DataStore
	faults *faults
}

func (f *faultyStore) InsertProduct(ctx context.Context, p *models.Product) (*models.Product, error) {
	if err := f.faults.hit("InsertProduct"); err != nil {
		return nil, err
	}
	return f.DataStore.InsertProduct(ctx, p)
}

func (f *faultyStore) UpdateProduct(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*models.Product, error) {
	if err := f.faults.hit("UpdateProduct"); err != nil {
		return nil, err
	}
	return f.DataStore.UpdateProduct(ctx, id, fields)
}

func (f *faultyStore) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if err := f.faults.hit("DeleteProduct"); err != nil {
		return err
	}
	return f.DataStore.DeleteProduct(ctx, id)
}

func (f *faultyStore) SelectSales(ctx context.Context) ([]models.Sale, error) {
	if err := f.faults.hit("SelectSales"); err != nil {
		return nil, err
	}
	return f.DataStore.SelectSales(ctx)
}

func (f *faultyStore) InsertSale(ctx context.Context, sale *models.Sale) (*models.Sale, error) {
	if err := f.faults.hit("InsertSale"); err != nil {
		return nil, err
	}
	return f.DataStore.InsertSale(ctx, sale)
}

func (f *faultyStore) UpdateSale(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*models.Sale, error) {
	if err := f.faults.hit("UpdateSale"); err != nil {
		return nil, err
	}
	return f.DataStore.UpdateSale(ctx, id, fields)
}

func (f *faultyStore) DeleteSale(ctx context.Context, id uuid.UUID) error {
	if err := f.faults.hit("DeleteSale"); err != nil {
		return err
	}
	return f.DataStore.DeleteSale(ctx, id)
}

func (f *faultyStore) InsertSaleItems(ctx context.Context, items []models.SaleItem) ([]models.SaleItem, error) {
	if err := f.faults.hit("InsertSaleItems"); err != nil {
		return nil, err
	}
	return f.DataStore.InsertSaleItems(ctx, items)
}

func (f *faultyStore) DeleteSaleItems(ctx context.Context, saleID uuid.UUID) error {
	if err := f.faults.hit("DeleteSaleItems"); err != nil {
		return err
	}
	return f.DataStore.DeleteSaleItems(ctx, saleID)
}

// faultyTxStore is a faultyStore over a transactional store. Calls made
// inside a transaction go through the same faults.
type faultyTxStore struct {
	*faultyStore
	tx store.Transactor
}

func (f *faultyTxStore) Transaction(ctx context.Context, fn func(tx store.DataStore) error) error {
	return f.tx.Transaction(ctx, func(inner store.DataStore) error {
		return fn(&faultyStore{DataStore: inner, faults: f.faults})
	})
}

func product(name, category, color string, price, cost int64, stock, minStock int) models.Product {
	return models.Product{
		Name:     name,
		Category: category,
		Color:    color,
		Supplier: "Angel Fit",
		Price:    decimal.NewFromInt(price),
		Cost:     decimal.NewFromInt(cost),
		Stock:    stock,
		MinStock: minStock,
	}
}

func line(p models.Product, quantity int, price int64) SaleLine {
	d := decimal.NewFromInt(price)
	return SaleLine{ProductID: p.ID, ProductName: p.Name, Quantity: quantity, Price: &d}
}

func saleRequest(customer string, lines ...SaleLine) *SaleRequest {
	return &SaleRequest{CustomerName: customer, Items: lines}
}
