// internal/services/queries.go
package services

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rfmontes/angel-fit-app/internal/models"
)

// Sort keys accepted by ListProducts.
var ProductSortKeys = []string{
	"name", "category", "color", "size", "supplier", "price", "cost", "stock", "min_stock", "created_at",
}

// AvailableProducts lists products that can go into a new sale: stock above
// zero and, when search is set, a case-insensitive match on name or
// category.
func (s *InventoryService) AvailableProducts(search string) []models.Product {
	search = strings.ToLower(strings.TrimSpace(search))
	out := []models.Product{}
	for _, p := range s.Products() {
		if p.Stock <= 0 {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Category), search) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// ListProducts returns every product sorted by key. Sorting by category
// groups by supplier first. Unknown keys fall back to name; order defaults
// to ascending.
func (s *InventoryService) ListProducts(key, order string) []models.Product {
	products := s.Products()
	desc := order == "desc"

	less := productLess(key)
	sort.SliceStable(products, func(i, j int) bool {
		if desc {
			return less(&products[j], &products[i])
		}
		return less(&products[i], &products[j])
	})
	return products
}

func productLess(key string) func(a, b *models.Product) bool {
	text := func(f func(p *models.Product) string) func(a, b *models.Product) bool {
		return func(a, b *models.Product) bool {
			return strings.ToLower(f(a)) < strings.ToLower(f(b))
		}
	}
	switch key {
	case "category":
		return text(func(p *models.Product) string { return p.Supplier + " | " + p.Category })
	case "color":
		return text(func(p *models.Product) string { return p.Color })
	case "size":
		return text(func(p *models.Product) string { return p.Size })
	case "supplier":
		return text(func(p *models.Product) string { return p.Supplier })
	case "price":
		return func(a, b *models.Product) bool { return a.Price.LessThan(b.Price) }
	case "cost":
		return func(a, b *models.Product) bool { return a.Cost.LessThan(b.Cost) }
	case "stock":
		return func(a, b *models.Product) bool { return a.Stock < b.Stock }
	case "min_stock":
		return func(a, b *models.Product) bool { return a.MinStock < b.MinStock }
	case "created_at":
		return func(a, b *models.Product) bool { return a.CreatedAt.Before(b.CreatedAt) }
	default:
		return text(func(p *models.Product) string { return p.Name })
	}
}

type SalesHistoryResult struct {
	Sales []models.Sale   `json:"sales"`
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

// SalesHistory filters sales by customer name and sorts them by sale date,
// newest first unless order is "asc". Count and Total summarize the
// filtered list.
func (s *InventoryService) SalesHistory(search, order string) SalesHistoryResult {
	search = strings.ToLower(strings.TrimSpace(search))
	result := SalesHistoryResult{Sales: []models.Sale{}, Total: decimal.Zero}

	for _, sale := range s.Sales() {
		if search != "" && !strings.Contains(strings.ToLower(sale.CustomerName), search) {
			continue
		}
		result.Sales = append(result.Sales, sale)
		result.Total = result.Total.Add(sale.Total)
	}
	result.Count = len(result.Sales)

	asc := order == "asc"
	sort.SliceStable(result.Sales, func(i, j int) bool {
		if asc {
			return result.Sales[i].SaleDate.Before(result.Sales[j].SaleDate)
		}
		return result.Sales[j].SaleDate.Before(result.Sales[i].SaleDate)
	})
	return result
}

// ItemView is a sale item prepared for display.
type ItemView struct {
	ProductID   *uuid.UUID      `json:"product_id"`
	ProductName string          `json:"product_name"`
	Category    string          `json:"category,omitempty"`
	Color       string          `json:"color,omitempty"`
	Size        string          `json:"size,omitempty"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	LineTotal   decimal.Decimal `json:"line_total"`
	Resolved    bool            `json:"resolved"`
}

// ResolveItem joins a sale item with its product when the product still
// exists. Name and price always come from the item itself, so a deleted or
// renamed product does not change how the sale reads.
func ResolveItem(item models.SaleItem, products map[uuid.UUID]*models.Product) ItemView {
	view := ItemView{
		ProductID:   item.ProductID,
		ProductName: item.ProductName,
		Quantity:    item.Quantity,
		Price:       item.Price,
		LineTotal:   item.LineTotal(),
	}
	if p, ok := item.Resolve(products); ok {
		view.Resolved = true
		view.Category = p.Category
		view.Color = p.Color
		view.Size = p.Size
		if view.ProductName == "" {
			view.ProductName = p.Name
		}
	}
	return view
}

// SaleView is a sale with display-ready items.
type SaleView struct {
	models.Sale
	Items []ItemView `json:"items"`
}

func (s *InventoryService) ViewSale(sale models.Sale) SaleView {
	return s.ViewSales([]models.Sale{sale})[0]
}

func (s *InventoryService) ViewSales(sales []models.Sale) []SaleView {
	index := s.productIndex()
	views := make([]SaleView, len(sales))
	for i, sale := range sales {
		items := make([]ItemView, len(sale.Items))
		for j, item := range sale.Items {
			items[j] = ResolveItem(item, index)
		}
		views[i] = SaleView{Sale: sale, Items: items}
	}
	return views
}
