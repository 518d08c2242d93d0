// internal/models/product.go
package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	BaseModel
	Name     string          `json:"name" gorm:"size:255;not null"`
	Category string          `json:"category" gorm:"size:100;index"`
	Color    string          `json:"color" gorm:"size:100;index"`
	Size     string          `json:"size" gorm:"size:50"`
	Supplier string          `json:"supplier" gorm:"size:255"`
	Price    decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null;default:0"`
	Cost     decimal.Decimal `json:"cost" gorm:"type:decimal(10,2);not null;default:0"`
	Stock    int             `json:"stock" gorm:"not null;default:0"`
	MinStock int             `json:"min_stock" gorm:"not null;default:0"`

	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Product) TableName() string {
	return "products"
}

func (p *Product) IsOutOfStock() bool {
	return p.Stock == 0
}

// IsLowStock reports a positive stock at or below the reorder threshold.
func (p *Product) IsLowStock() bool {
	return p.Stock > 0 && p.Stock <= p.MinStock
}

// StockValue is the acquisition cost of the units on hand.
func (p *Product) StockValue() decimal.Decimal {
	return p.Cost.Mul(decimal.NewFromInt(int64(p.Stock)))
}

// PotentialRevenue values the units on hand at the current sale price.
func (p *Product) PotentialRevenue() decimal.Decimal {
	return p.Price.Mul(decimal.NewFromInt(int64(p.Stock)))
}
