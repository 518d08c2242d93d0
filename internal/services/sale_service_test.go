// internal/services/sale_service_test.go
package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/rfmontes/angel-fit-app/internal/metrics"
	"github.com/rfmontes/angel-fit-app/internal/models"
	"github.com/rfmontes/angel-fit-app/internal/store"
)

func stockOf(t *testing.T, ds store.DataStore, id uuid.UUID) int {
	products, err := ds.SelectProducts(context.Background())
	require.NoError(t, err)
	for _, p := range products {
		if p.ID == id {
			return p.Stock
		}
	}
	t.Fatalf("product %s not in store", id)
	return 0
}

func operationCount(t *testing.T, reg *prometheus.Registry, operation, result string) float64 {
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "angelfit_inventory_operations_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["operation"] == operation && labels["result"] == result {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

// SaleServiceTestSuite runs sale operations as store transactions.
type SaleServiceTestSuite struct {
	suite.Suite
	ctx     context.Context
	mem     *store.TxMemoryStore
	faults  *faults
	metrics *metrics.Metrics
	service *InventoryService
	top     models.Product
	calca   models.Product
	legging models.Product
}

func (suite *SaleServiceTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.mem = store.NewTxMemoryStore()
	seeded := suite.mem.Seed(
		product("Top Preto M", "Top", "Preto", 30, 12, 10, 2),
		product("Calça Azul G", "Calça", "Azul", 80, 35, 0, 1),
		product("Legging Preta P", "Legging", "Preto", 60, 25, 3, 1),
	)
	suite.top, suite.calca, suite.legging = seeded[0], seeded[1], seeded[2]

	suite.faults = newFaults()
	ds := &faultyTxStore{
		faultyStore: &faultyStore{DataStore: suite.mem, faults: suite.faults},
		tx:          suite.mem,
	}
	logger, _ := test.NewNullLogger()
	suite.metrics = metrics.New()
	suite.service = NewInventoryService(ds, testConfig(), logger, suite.metrics)
	require.NoError(suite.T(), suite.service.Load(suite.ctx))
}

func (suite *SaleServiceTestSuite) cachedStock(id uuid.UUID) int {
	p, err := suite.service.Product(id)
	require.NoError(suite.T(), err)
	return p.Stock
}

// assertConserved checks that, for each product, stock on hand plus units
// sold in cached active sales equals the given starting stock.
func (suite *SaleServiceTestSuite) assertConserved(initial map[uuid.UUID]int) {
	sold := map[uuid.UUID]int{}
	for _, sale := range suite.service.Sales() {
		if sale.IsPending() {
			continue
		}
		for _, item := range sale.Items {
			if item.ProductID != nil {
				sold[*item.ProductID] += item.Quantity
			}
		}
	}
	for id, start := range initial {
		assert.Equal(suite.T(), start, suite.cachedStock(id)+sold[id])
		assert.Equal(suite.T(), suite.cachedStock(id), stockOf(suite.T(), suite.mem, id))
	}
}

func (suite *SaleServiceTestSuite) TestCreateSale() {
	sale, err := suite.service.CreateSale(suite.ctx, saleRequest("Maria", line(suite.top, 3, 20)))
	require.NoError(suite.T(), err)

	assert.True(suite.T(), sale.Total.Equal(decimal.NewFromInt(60)))
	assert.Equal(suite.T(), models.SaleStatusActive, sale.Status)
	assert.Equal(suite.T(), "Maria", sale.CustomerName)
	require.Len(suite.T(), sale.Items, 1)
	assert.Equal(suite.T(), "Top Preto M", sale.Items[0].ProductName)
	assert.True(suite.T(), sale.Items[0].Price.Equal(decimal.NewFromInt(20)))

	assert.Equal(suite.T(), 7, suite.cachedStock(suite.top.ID))
	assert.Equal(suite.T(), 7, stockOf(suite.T(), suite.mem, suite.top.ID))

	cached, err := suite.service.Sale(sale.ID)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), cached.Total.Equal(models.SumLines(cached.Items)))
	assert.Equal(suite.T(), float64(1), operationCount(suite.T(), suite.metrics.Registry, "sale.create", "success"))
}

func (suite *SaleServiceTestSuite) TestDeleteSaleRestoresStock() {
	sale, err := suite.service.CreateSale(suite.ctx, saleRequest("Maria", line(suite.top, 3, 20)))
	require.NoError(suite.T(), err)

	require.NoError(suite.T(), suite.service.DeleteSale(suite.ctx, sale.ID))

	assert.Equal(suite.T(), 10, suite.cachedStock(suite.top.ID))
	assert.Equal(suite.T(), 10, stockOf(suite.T(), suite.mem, suite.top.ID))
	_, err = suite.service.Sale(sale.ID)
	assert.ErrorIs(suite.T(), err, ErrSaleNotFound)

	items, err := suite.mem.SelectSaleItems(suite.ctx, sale.ID)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), items)
}

func (suite *SaleServiceTestSuite) TestDeleteUnknownSale() {
	err := suite.service.DeleteSale(suite.ctx, uuid.New())
	assert.ErrorIs(suite.T(), err, ErrSaleNotFound)
}

func (suite *SaleServiceTestSuite) TestUpdateSaleInsufficientStockChangesNothing() {
	// legging starts at 3; after this sale 2 are left and the sale holds 1
	sale, err := suite.service.CreateSale(suite.ctx, saleRequest("Ana", line(suite.legging, 1, 60)))
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), 2, suite.cachedStock(suite.legging.ID))
	before := suite.service.Sales()

	_, err = suite.service.UpdateSale(suite.ctx, sale.ID, saleRequest("Ana", line(suite.legging, 5, 60)))

	var stockErr *InsufficientStockError
	require.ErrorAs(suite.T(), err, &stockErr)
	assert.Equal(suite.T(), suite.legging.ID, stockErr.ProductID)
	assert.Equal(suite.T(), "Legging Preta P", stockErr.ProductName)
	assert.Equal(suite.T(), 5, stockErr.Requested)
	assert.Equal(suite.T(), 3, stockErr.Available)

	assert.Equal(suite.T(), before, suite.service.Sales())
	assert.Equal(suite.T(), 2, suite.cachedStock(suite.legging.ID))
	assert.Equal(suite.T(), 2, stockOf(suite.T(), suite.mem, suite.legging.ID))
	items, _ := suite.mem.SelectSaleItems(suite.ctx, sale.ID)
	require.Len(suite.T(), items, 1)
	assert.Equal(suite.T(), 1, items[0].Quantity)
}

func (suite *SaleServiceTestSuite) TestUpdateSaleMovesStock() {
	sale, err := suite.service.CreateSale(suite.ctx, saleRequest("Ana", line(suite.top, 2, 30)))
	require.NoError(suite.T(), err)

	updated, err := suite.service.UpdateSale(suite.ctx, sale.ID, &SaleRequest{
		CustomerName:  "Ana Paula",
		PaymentMethod: "Pix",
		Items:         []SaleLine{line(suite.top, 1, 30), line(suite.legging, 3, 55)},
	})
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), "Ana Paula", updated.CustomerName)
	assert.Equal(suite.T(), "Pix", updated.PaymentMethod)
	assert.True(suite.T(), updated.Total.Equal(decimal.NewFromInt(195)))
	assert.Len(suite.T(), updated.Items, 2)
	assert.Equal(suite.T(), sale.SaleDate.Unix(), updated.SaleDate.Unix())

	assert.Equal(suite.T(), 9, suite.cachedStock(suite.top.ID))
	assert.Equal(suite.T(), 0, suite.cachedStock(suite.legging.ID))
	suite.assertConserved(map[uuid.UUID]int{suite.top.ID: 10, suite.legging.ID: 3})
}

func (suite *SaleServiceTestSuite) TestUpdateSaleWithoutReloadPatchesCache() {
	suite.service.config.ReloadAfterSaleUpdate = false
	sale, err := suite.service.CreateSale(suite.ctx, saleRequest("Ana", line(suite.top, 2, 30)))
	require.NoError(suite.T(), err)

	// nothing may be read from the store after the writes
	suite.faults.set("SelectSales", -1)
	updated, err := suite.service.UpdateSale(suite.ctx, sale.ID, saleRequest("Ana", line(suite.top, 4, 30)))
	require.NoError(suite.T(), err)

	assert.True(suite.T(), updated.Total.Equal(decimal.NewFromInt(120)))
	assert.Equal(suite.T(), 6, suite.cachedStock(suite.top.ID))
	cached, err := suite.service.Sale(sale.ID)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), cached.Items, 1)
	assert.Equal(suite.T(), 4, cached.Items[0].Quantity)
	suite.assertConserved(map[uuid.UUID]int{suite.top.ID: 10})
}

func (suite *SaleServiceTestSuite) TestUpdateUnknownSale() {
	_, err := suite.service.UpdateSale(suite.ctx, uuid.New(), saleRequest("Ana", line(suite.top, 1, 30)))
	assert.ErrorIs(suite.T(), err, ErrSaleNotFound)
}

func (suite *SaleServiceTestSuite) TestCreateSaleValidation() {
	cases := []struct {
		name string
		req  *SaleRequest
		want error
	}{
		{"blank customer", saleRequest("  ", line(suite.top, 1, 30)), ErrCustomerRequired},
		{"no items", saleRequest("Maria"), ErrEmptySale},
		{"zero quantity", saleRequest("Maria", line(suite.top, 0, 30)), ErrInvalidQuantity},
		{"negative price", saleRequest("Maria", line(suite.top, 1, -5)), ErrNegativeAmount},
		{"unknown product", saleRequest("Maria", SaleLine{ProductID: uuid.New(), Quantity: 1}), ErrProductNotFound},
	}
	for _, tc := range cases {
		suite.Run(tc.name, func() {
			_, err := suite.service.CreateSale(suite.ctx, tc.req)
			assert.ErrorIs(suite.T(), err, tc.want)
		})
	}

	assert.Empty(suite.T(), suite.service.Sales())
	assert.Equal(suite.T(), 10, suite.cachedStock(suite.top.ID))
	assert.Equal(suite.T(), float64(5), operationCount(suite.T(), suite.metrics.Registry, "sale.create", "rejected"))
}

func (suite *SaleServiceTestSuite) TestCreateSaleSumsRepeatedLines() {
	// 2 + 2 exceeds the 3 on hand even though each line alone fits
	_, err := suite.service.CreateSale(suite.ctx, saleRequest("Maria",
		line(suite.legging, 2, 60), line(suite.legging, 2, 60)))

	var stockErr *InsufficientStockError
	require.ErrorAs(suite.T(), err, &stockErr)
	assert.Equal(suite.T(), 4, stockErr.Requested)
	assert.Equal(suite.T(), 3, stockErr.Available)

	sale, err := suite.service.CreateSale(suite.ctx, saleRequest("Maria",
		line(suite.legging, 1, 60), line(suite.legging, 2, 50)))
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), sale.Items, 2)
	assert.True(suite.T(), sale.Total.Equal(decimal.NewFromInt(160)))
	assert.Equal(suite.T(), 0, suite.cachedStock(suite.legging.ID))
}

func (suite *SaleServiceTestSuite) TestCreateSaleRejectsOutOfStockProduct() {
	_, err := suite.service.CreateSale(suite.ctx, saleRequest("Maria", line(suite.calca, 1, 80)))

	var stockErr *InsufficientStockError
	require.ErrorAs(suite.T(), err, &stockErr)
	assert.Equal(suite.T(), suite.calca.ID, stockErr.ProductID)
	assert.Equal(suite.T(), 1, stockErr.Requested)
	assert.Equal(suite.T(), 0, stockErr.Available)
}

func (suite *SaleServiceTestSuite) TestCreateSaleDefaults() {
	fixed := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	suite.service.now = func() time.Time { return fixed }

	req := &SaleRequest{
		CustomerName: "Maria",
		Items:        []SaleLine{{ProductID: suite.top.ID, Quantity: 2}},
	}
	sale, err := suite.service.CreateSale(suite.ctx, req)
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), "Dinheiro", sale.PaymentMethod)
	assert.True(suite.T(), sale.SaleDate.Equal(fixed))
	assert.True(suite.T(), sale.Items[0].Price.Equal(decimal.NewFromInt(30)))
	assert.Equal(suite.T(), "Top Preto M", sale.Items[0].ProductName)
	assert.True(suite.T(), sale.Total.Equal(decimal.NewFromInt(60)))

	when := time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC)
	req.SaleDate = &when
	req.PaymentMethod = "Cartão"
	sale, err = suite.service.CreateSale(suite.ctx, req)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), sale.SaleDate.Equal(when))
	assert.Equal(suite.T(), "Cartão", sale.PaymentMethod)
}

func (suite *SaleServiceTestSuite) TestCreateSaleRollsBackOnStoreFailure() {
	suite.faults.set("UpdateProduct", 2)

	_, err := suite.service.CreateSale(suite.ctx, saleRequest("Maria",
		line(suite.top, 1, 30), line(suite.legging, 1, 60)))
	assert.ErrorIs(suite.T(), err, errFault)

	assert.Empty(suite.T(), suite.service.Sales())
	sales, err := suite.mem.SelectSales(suite.ctx)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), sales)
	assert.Equal(suite.T(), 10, stockOf(suite.T(), suite.mem, suite.top.ID))
	assert.Equal(suite.T(), 10, suite.cachedStock(suite.top.ID))
	assert.Equal(suite.T(), float64(1), operationCount(suite.T(), suite.metrics.Registry, "sale.create", "rolled_back"))
}

func (suite *SaleServiceTestSuite) TestDeleteSaleRollsBackOnStoreFailure() {
	sale, err := suite.service.CreateSale(suite.ctx, saleRequest("Maria", line(suite.top, 4, 30)))
	require.NoError(suite.T(), err)
	suite.faults.set("DeleteSale", -1)

	err = suite.service.DeleteSale(suite.ctx, sale.ID)
	assert.ErrorIs(suite.T(), err, errFault)

	assert.Equal(suite.T(), 6, stockOf(suite.T(), suite.mem, suite.top.ID))
	assert.Equal(suite.T(), 6, suite.cachedStock(suite.top.ID))
	items, _ := suite.mem.SelectSaleItems(suite.ctx, sale.ID)
	assert.Len(suite.T(), items, 1)
	_, err = suite.service.Sale(sale.ID)
	assert.NoError(suite.T(), err)
}

func (suite *SaleServiceTestSuite) TestStockConservedAcrossOperations() {
	initial := map[uuid.UUID]int{suite.top.ID: 10, suite.legging.ID: 3}

	a, err := suite.service.CreateSale(suite.ctx, saleRequest("A", line(suite.top, 2, 30), line(suite.legging, 1, 60)))
	require.NoError(suite.T(), err)
	b, err := suite.service.CreateSale(suite.ctx, saleRequest("B", line(suite.top, 5, 28)))
	require.NoError(suite.T(), err)
	suite.assertConserved(initial)

	_, err = suite.service.UpdateSale(suite.ctx, a.ID, saleRequest("A", line(suite.legging, 3, 60)))
	require.NoError(suite.T(), err)
	suite.assertConserved(initial)

	_, err = suite.service.CreateSale(suite.ctx, saleRequest("C", line(suite.top, 9, 30)))
	require.Error(suite.T(), err)
	suite.assertConserved(initial)

	require.NoError(suite.T(), suite.service.DeleteSale(suite.ctx, b.ID))
	suite.assertConserved(initial)

	for _, sale := range suite.service.Sales() {
		assert.True(suite.T(), sale.Total.Equal(models.SumLines(sale.Items)))
	}
}

func (suite *SaleServiceTestSuite) TestDeletedProductKeepsSaleReadable() {
	sale, err := suite.service.CreateSale(suite.ctx, saleRequest("Maria", line(suite.legging, 2, 55)))
	require.NoError(suite.T(), err)
	require.NoError(suite.T(), suite.service.DeleteProduct(suite.ctx, suite.legging.ID))

	cached, err := suite.service.Sale(sale.ID)
	require.NoError(suite.T(), err)
	view := suite.service.ViewSale(*cached)
	require.Len(suite.T(), view.Items, 1)
	assert.Equal(suite.T(), "Legging Preta P", view.Items[0].ProductName)
	assert.True(suite.T(), view.Items[0].Price.Equal(decimal.NewFromInt(55)))
	assert.False(suite.T(), view.Items[0].Resolved)

	// the orphaned item is skipped when stock is given back
	require.NoError(suite.T(), suite.service.DeleteSale(suite.ctx, sale.ID))
	assert.Equal(suite.T(), 10, suite.cachedStock(suite.top.ID))
}

func TestSaleServiceTestSuite(t *testing.T) {
	suite.Run(t, new(SaleServiceTestSuite))
}

// SagaTestSuite runs sale operations over a store without transactions, so
// failures are undone step by step.
type SagaTestSuite struct {
	suite.Suite
	ctx     context.Context
	mem     *store.MemoryStore
	faults  *faults
	metrics *metrics.Metrics
	hook    *test.Hook
	service *InventoryService
	top     models.Product
	legging models.Product
}

func (suite *SagaTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.mem = store.NewMemoryStore()
	seeded := suite.mem.Seed(
		product("Top Preto M", "Top", "Preto", 30, 12, 10, 2),
		product("Legging Preta P", "Legging", "Preto", 60, 25, 3, 1),
	)
	suite.top, suite.legging = seeded[0], seeded[1]

	suite.faults = newFaults()
	logger, hook := test.NewNullLogger()
	suite.hook = hook
	suite.metrics = metrics.New()
	ds := &faultyStore{DataStore: suite.mem, faults: suite.faults}
	suite.service = NewInventoryService(ds, testConfig(), logger, suite.metrics)
	require.NoError(suite.T(), suite.service.Load(suite.ctx))
}

func (suite *SagaTestSuite) TestCreateSaleActivatesAfterAllSteps() {
	sale, err := suite.service.CreateSale(suite.ctx, saleRequest("Maria", line(suite.top, 3, 20)))
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.SaleStatusActive, sale.Status)

	sales, err := suite.mem.SelectSales(suite.ctx)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), sales, 1)
	assert.Equal(suite.T(), models.SaleStatusActive, sales[0].Status)
	assert.Equal(suite.T(), 7, stockOf(suite.T(), suite.mem, suite.top.ID))
}

func (suite *SagaTestSuite) TestCreateSaleCompensated() {
	// the second product's stock write fails; the first is put back
	suite.faults.set("UpdateProduct", 2)

	_, err := suite.service.CreateSale(suite.ctx, saleRequest("Maria",
		line(suite.top, 1, 30), line(suite.legging, 1, 60)))
	assert.ErrorIs(suite.T(), err, errFault)

	var partial *PartialFailureError
	assert.False(suite.T(), errors.As(err, &partial))

	sales, err := suite.mem.SelectSales(suite.ctx)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), sales)
	assert.Equal(suite.T(), 10, stockOf(suite.T(), suite.mem, suite.top.ID))
	assert.Equal(suite.T(), 3, stockOf(suite.T(), suite.mem, suite.legging.ID))
	assert.Empty(suite.T(), suite.service.Sales())
	assert.Equal(suite.T(), float64(1), operationCount(suite.T(), suite.metrics.Registry, "sale.create", "rolled_back"))
}

func (suite *SagaTestSuite) TestCreateSalePartialFailure() {
	suite.faults.set("UpdateProduct", -1)
	suite.faults.set("DeleteSale", -1)

	_, err := suite.service.CreateSale(suite.ctx, saleRequest("Maria", line(suite.top, 3, 20)))

	var partial *PartialFailureError
	require.ErrorAs(suite.T(), err, &partial)
	assert.Equal(suite.T(), "sale.create", partial.Operation)
	assert.Equal(suite.T(), "update stock Top Preto M", partial.Step)
	assert.NotEqual(suite.T(), uuid.Nil, partial.SaleID)
	assert.ErrorIs(suite.T(), err, errFault)
	assert.Error(suite.T(), partial.CompensationErr)

	// the cache was resynced and shows the stranded sale as pending
	sales := suite.service.Sales()
	require.Len(suite.T(), sales, 1)
	assert.Equal(suite.T(), partial.SaleID, sales[0].ID)
	assert.True(suite.T(), sales[0].IsPending())
	assert.Equal(suite.T(), 10, stockOf(suite.T(), suite.mem, suite.top.ID))

	stats := suite.service.Stats(time.Now())
	assert.Equal(suite.T(), 1, stats.PendingSales)
	assert.True(suite.T(), stats.TotalRevenue.IsZero())
	assert.Empty(suite.T(), stats.RecentSales)

	assert.Equal(suite.T(), float64(1), operationCount(suite.T(), suite.metrics.Registry, "sale.create", "partial_failure"))
}

func (suite *SagaTestSuite) TestUpdateSaleCompensated() {
	sale, err := suite.service.CreateSale(suite.ctx, saleRequest("Maria", line(suite.top, 2, 30)))
	require.NoError(suite.T(), err)
	suite.faults.set("UpdateProduct", 2)

	_, err = suite.service.UpdateSale(suite.ctx, sale.ID, saleRequest("Maria Clara", line(suite.legging, 2, 60)))
	assert.ErrorIs(suite.T(), err, errFault)

	sales, err := suite.mem.SelectSales(suite.ctx)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), sales, 1)
	assert.Equal(suite.T(), "Maria", sales[0].CustomerName)
	assert.Equal(suite.T(), models.SaleStatusActive, sales[0].Status)
	require.Len(suite.T(), sales[0].Items, 1)
	require.NotNil(suite.T(), sales[0].Items[0].ProductID)
	assert.Equal(suite.T(), suite.top.ID, *sales[0].Items[0].ProductID)
	assert.Equal(suite.T(), 8, stockOf(suite.T(), suite.mem, suite.top.ID))
	assert.Equal(suite.T(), 3, stockOf(suite.T(), suite.mem, suite.legging.ID))

	cached, err := suite.service.Sale(sale.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Maria", cached.CustomerName)
}

func (suite *SagaTestSuite) TestDeleteSaleCompensated() {
	sale, err := suite.service.CreateSale(suite.ctx, saleRequest("Maria", line(suite.top, 4, 30)))
	require.NoError(suite.T(), err)
	suite.faults.set("DeleteSale", -1)

	err = suite.service.DeleteSale(suite.ctx, sale.ID)
	assert.ErrorIs(suite.T(), err, errFault)

	sales, err := suite.mem.SelectSales(suite.ctx)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), sales, 1)
	assert.Equal(suite.T(), models.SaleStatusActive, sales[0].Status)
	assert.Len(suite.T(), sales[0].Items, 1)
	assert.Equal(suite.T(), 6, stockOf(suite.T(), suite.mem, suite.top.ID))
	assert.Equal(suite.T(), 6, suite.service.Products()[0].Stock)
}

func TestSagaTestSuite(t *testing.T) {
	suite.Run(t, new(SagaTestSuite))
}
