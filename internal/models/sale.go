// internal/models/sale.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Sale struct {
	BaseModel
	Total         decimal.Decimal `json:"total" gorm:"type:decimal(10,2);not null;default:0"`
	PaymentMethod string          `json:"payment_method" gorm:"size:50"`
	CustomerName  string          `json:"customer_name" gorm:"size:255"`
	CustomerPhone string          `json:"customer_phone" gorm:"size:50"`
	SaleDate      time.Time       `json:"sale_date" gorm:"not null;index"`
	Status        SaleStatus      `json:"status" gorm:"type:varchar(20);default:'active';index"`

	// Relationships
	Items []SaleItem `json:"items" gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
}

func (Sale) TableName() string {
	return "sales"
}

func (s *Sale) IsPending() bool {
	return s.Status == SaleStatusPending
}

// Pieces is the number of units sold across all lines.
func (s *Sale) Pieces() int {
	n := 0
	for _, item := range s.Items {
		n += item.Quantity
	}
	return n
}

// ProductRef is a weak reference to a product. The id may point to a deleted
// product; the name is a copy taken at sale time and is what displays fall
// back on.
type ProductRef struct {
	ProductID   *uuid.UUID `json:"product_id" gorm:"type:uuid;index"`
	ProductName string     `json:"product_name" gorm:"size:255"`
}

func NewProductRef(id uuid.UUID, name string) ProductRef {
	return ProductRef{ProductID: &id, ProductName: name}
}

// Resolve looks the referenced product up in index. It never assumes the
// reference is still valid.
func (r ProductRef) Resolve(index map[uuid.UUID]*Product) (*Product, bool) {
	if r.ProductID == nil || index == nil {
		return nil, false
	}
	p, ok := index[*r.ProductID]
	return p, ok && p != nil
}

type SaleItem struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	SaleID    uuid.UUID `json:"sale_id" gorm:"type:uuid;not null;index"`
	CreatedAt time.Time `json:"created_at"`
	ProductRef
	Quantity int             `json:"quantity" gorm:"not null"`
	Price    decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
}

func (SaleItem) TableName() string {
	return "sale_items"
}

func (i *SaleItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// LineTotal is the captured unit price times quantity.
func (i SaleItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func SumLines(items []SaleItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// Clone returns a deep copy of the sale including its items.
func (s Sale) Clone() Sale {
	if s.Items != nil {
		items := make([]SaleItem, len(s.Items))
		for i, item := range s.Items {
			items[i] = item.clone()
		}
		s.Items = items
	}
	return s
}

func (i SaleItem) clone() SaleItem {
	if i.ProductID != nil {
		id := *i.ProductID
		i.ProductID = &id
	}
	return i
}
