// internal/store/store.go
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/rfmontes/angel-fit-app/internal/models"
)

// ErrNotFound is returned when an update or delete matches no row.
var ErrNotFound = errors.New("record not found")

// DataStore is the table-level boundary of the remote data store. Every
// method maps to one select, insert, update or delete against one table.
// Returned rows are copies owned by the caller.
type DataStore interface {
	SelectProducts(ctx context.Context) ([]models.Product, error)
	CountProducts(ctx context.Context) (int64, error)
	InsertProduct(ctx context.Context, product *models.Product) (*models.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*models.Product, error)
	UpdateAllProducts(ctx context.Context, fields map[string]interface{}) (int64, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error

	// SelectSales returns every sale with its items embedded.
	SelectSales(ctx context.Context) ([]models.Sale, error)
	InsertSale(ctx context.Context, sale *models.Sale) (*models.Sale, error)
	UpdateSale(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*models.Sale, error)
	DeleteSale(ctx context.Context, id uuid.UUID) error

	SelectSaleItems(ctx context.Context, saleID uuid.UUID) ([]models.SaleItem, error)
	InsertSaleItems(ctx context.Context, items []models.SaleItem) ([]models.SaleItem, error)
	DeleteSaleItems(ctx context.Context, saleID uuid.UUID) error
}

// Transactor is implemented by stores that can run several writes as one
// atomic unit. fn receives a DataStore bound to the transaction; returning an
// error from fn rolls every write back.
type Transactor interface {
	Transaction(ctx context.Context, fn func(tx DataStore) error) error
}

// UserStore backs password sign-in.
type UserStore interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	TouchLastLogin(ctx context.Context, id uuid.UUID) error
}

// Fields accepted by UpdateProduct and UpdateSale. Anything else is dropped.
var (
	productFields = map[string]bool{
		"name": true, "category": true, "color": true, "size": true, "supplier": true,
		"price": true, "cost": true, "stock": true, "min_stock": true,
	}
	saleFields = map[string]bool{
		"total": true, "payment_method": true, "customer_name": true,
		"customer_phone": true, "sale_date": true, "status": true,
	}
)

func filterFields(fields map[string]interface{}, allowed map[string]bool) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if allowed[k] {
			out[k] = v
		}
	}
	return out
}
