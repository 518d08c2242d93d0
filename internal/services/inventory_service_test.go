// internal/services/inventory_service_test.go
package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/rfmontes/angel-fit-app/internal/metrics"
	"github.com/rfmontes/angel-fit-app/internal/models"
	"github.com/rfmontes/angel-fit-app/internal/store"
)

type InventoryServiceTestSuite struct {
	suite.Suite
	ctx     context.Context
	mem     *store.TxMemoryStore
	faults  *faults
	service *InventoryService
	hook    *test.Hook
	top     models.Product
	calca   models.Product
}

func (suite *InventoryServiceTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.mem = store.NewTxMemoryStore()
	seeded := suite.mem.Seed(
		product("Top Preto M", "Top", "Preto", 30, 12, 5, 2),
		product("Calça Azul G", "Calça", "Azul", 80, 35, 0, 1),
	)
	suite.top, suite.calca = seeded[0], seeded[1]

	suite.faults = newFaults()
	ds := &faultyTxStore{
		faultyStore: &faultyStore{DataStore: suite.mem, faults: suite.faults},
		tx:          suite.mem,
	}

	var logger *logrus.Logger
	logger, suite.hook = test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	suite.service = NewInventoryService(ds, testConfig(), logger, metrics.New())
	require.NoError(suite.T(), suite.service.Load(suite.ctx))
}

func (suite *InventoryServiceTestSuite) storeProduct(id uuid.UUID) *models.Product {
	products, err := suite.mem.SelectProducts(suite.ctx)
	require.NoError(suite.T(), err)
	for i := range products {
		if products[i].ID == id {
			return &products[i]
		}
	}
	return nil
}

func (suite *InventoryServiceTestSuite) TestLoad() {
	assert.Len(suite.T(), suite.service.Products(), 2)
	assert.Empty(suite.T(), suite.service.Sales())
	assert.False(suite.T(), suite.service.LoadedAt().IsZero())
}

func (suite *InventoryServiceTestSuite) TestLoadIsIdempotent() {
	_, err := suite.service.CreateSale(suite.ctx, saleRequest("Maria", line(suite.top, 1, 30)))
	require.NoError(suite.T(), err)

	require.NoError(suite.T(), suite.service.Load(suite.ctx))
	products, sales := suite.service.Products(), suite.service.Sales()

	require.NoError(suite.T(), suite.service.Load(suite.ctx))
	assert.Equal(suite.T(), products, suite.service.Products())
	assert.Equal(suite.T(), sales, suite.service.Sales())
}

func (suite *InventoryServiceTestSuite) TestLoadFailureKeepsCache() {
	suite.faults.set("SelectSales", -1)

	err := suite.service.Load(suite.ctx)
	assert.ErrorIs(suite.T(), err, errFault)
	assert.Len(suite.T(), suite.service.Products(), 2)
}

func (suite *InventoryServiceTestSuite) TestReadsReturnCopies() {
	products := suite.service.Products()
	products[0].Stock = 99

	p, err := suite.service.Product(suite.top.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 5, p.Stock)

	_, err = suite.service.Product(uuid.New())
	assert.ErrorIs(suite.T(), err, ErrProductNotFound)
}

func (suite *InventoryServiceTestSuite) TestAddProduct() {
	created, err := suite.service.AddProduct(suite.ctx, &CreateProductRequest{
		Name:     "  Shorts Rosa P ",
		Category: "Shorts",
		Color:    "Rosa",
		Size:     "P",
		Price:    decimal.NewFromInt(45),
		Cost:     decimal.NewFromInt(18),
		Stock:    4,
		MinStock: 1,
	})
	require.NoError(suite.T(), err)
	assert.NotEqual(suite.T(), uuid.Nil, created.ID)
	assert.Equal(suite.T(), "Shorts Rosa P", created.Name)

	cached, err := suite.service.Product(created.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), created.ID, cached.ID)
	assert.NotNil(suite.T(), suite.storeProduct(created.ID))
}

func (suite *InventoryServiceTestSuite) TestAddProductValidation() {
	_, err := suite.service.AddProduct(suite.ctx, &CreateProductRequest{Name: " ", Stock: 1})
	assert.Error(suite.T(), err)

	_, err = suite.service.AddProduct(suite.ctx, &CreateProductRequest{Name: "Top", Price: decimal.NewFromInt(-1)})
	assert.Error(suite.T(), err)

	_, err = suite.service.AddProduct(suite.ctx, &CreateProductRequest{Name: "Top", Stock: -1})
	assert.Error(suite.T(), err)
	assert.Len(suite.T(), suite.service.Products(), 2)
}

func (suite *InventoryServiceTestSuite) TestAddProductFailureLeavesCache() {
	suite.faults.set("InsertProduct", -1)

	_, err := suite.service.AddProduct(suite.ctx, &CreateProductRequest{Name: "Legging Preta M"})
	assert.ErrorIs(suite.T(), err, errFault)
	assert.Len(suite.T(), suite.service.Products(), 2)
}

func (suite *InventoryServiceTestSuite) TestUpdateProduct() {
	name := "Top Preto M Novo"
	stock := 9
	updated, err := suite.service.UpdateProduct(suite.ctx, suite.top.ID, &UpdateProductRequest{
		Name:  &name,
		Stock: &stock,
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), name, updated.Name)
	assert.Equal(suite.T(), 9, updated.Stock)
	assert.True(suite.T(), updated.Price.Equal(decimal.NewFromInt(30)))

	cached, _ := suite.service.Product(suite.top.ID)
	assert.Equal(suite.T(), name, cached.Name)
}

func (suite *InventoryServiceTestSuite) TestUpdateProductFailureLeavesCache() {
	suite.faults.set("UpdateProduct", -1)
	stock := 1

	_, err := suite.service.UpdateProduct(suite.ctx, suite.top.ID, &UpdateProductRequest{Stock: &stock})
	assert.ErrorIs(suite.T(), err, errFault)

	cached, _ := suite.service.Product(suite.top.ID)
	assert.Equal(suite.T(), 5, cached.Stock)
}

func (suite *InventoryServiceTestSuite) TestUpdateUnknownProduct() {
	stock := 1
	_, err := suite.service.UpdateProduct(suite.ctx, uuid.New(), &UpdateProductRequest{Stock: &stock})
	assert.ErrorIs(suite.T(), err, ErrProductNotFound)
}

func (suite *InventoryServiceTestSuite) TestDeleteProduct() {
	require.NoError(suite.T(), suite.service.DeleteProduct(suite.ctx, suite.calca.ID))

	_, err := suite.service.Product(suite.calca.ID)
	assert.ErrorIs(suite.T(), err, ErrProductNotFound)
	assert.Nil(suite.T(), suite.storeProduct(suite.calca.ID))
}

func (suite *InventoryServiceTestSuite) TestDeleteProductFailureEvictsByDefault() {
	suite.faults.set("DeleteProduct", -1)

	err := suite.service.DeleteProduct(suite.ctx, suite.calca.ID)
	assert.ErrorIs(suite.T(), err, ErrCacheDiverged)
	assert.ErrorIs(suite.T(), err, errFault)

	_, err = suite.service.Product(suite.calca.ID)
	assert.ErrorIs(suite.T(), err, ErrProductNotFound)
	assert.NotNil(suite.T(), suite.storeProduct(suite.calca.ID))

	entry := suite.hook.LastEntry()
	require.NotNil(suite.T(), entry)
	assert.Equal(suite.T(), logrus.WarnLevel, entry.Level)
	assert.Contains(suite.T(), entry.Message, "diverged")
}

func (suite *InventoryServiceTestSuite) TestDeleteProductFailureKeepsEntryWhenConfigured() {
	suite.service.config.EvictOnDeleteFailure = false
	suite.faults.set("DeleteProduct", -1)

	err := suite.service.DeleteProduct(suite.ctx, suite.calca.ID)
	assert.ErrorIs(suite.T(), err, errFault)
	assert.False(suite.T(), errors.Is(err, ErrCacheDiverged))

	_, err = suite.service.Product(suite.calca.ID)
	assert.NoError(suite.T(), err)
}

func (suite *InventoryServiceTestSuite) TestResetMinStock() {
	n, err := suite.service.ResetMinStock(suite.ctx, 0)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(2), n)
	for _, p := range suite.service.Products() {
		assert.Equal(suite.T(), 0, p.MinStock)
	}

	_, err = suite.service.ResetMinStock(suite.ctx, -1)
	assert.ErrorIs(suite.T(), err, ErrNegativeAmount)
}

func (suite *InventoryServiceTestSuite) TestSubscribe() {
	var events []Event
	cancel := suite.service.Subscribe(func(ev Event) {
		events = append(events, ev)
	})

	created, err := suite.service.CreateSale(suite.ctx, saleRequest("Maria", line(suite.top, 1, 30)))
	require.NoError(suite.T(), err)
	require.NoError(suite.T(), suite.service.DeleteSale(suite.ctx, created.ID))

	cancel()
	require.NoError(suite.T(), suite.service.Load(suite.ctx))

	require.Len(suite.T(), events, 2)
	assert.Equal(suite.T(), EventSaleCreated, events[0].Type)
	assert.Equal(suite.T(), created.ID, events[0].ID)
	assert.Equal(suite.T(), EventSaleDeleted, events[1].Type)
	assert.False(suite.T(), events[1].At.IsZero())
}

func TestInventoryServiceTestSuite(t *testing.T) {
	suite.Run(t, new(InventoryServiceTestSuite))
}
