// internal/services/dashboard_stats.go
package services

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rfmontes/angel-fit-app/internal/models"
)

const (
	UncategorizedLabel = "Sem Categoria"
	NoColorLabel       = "Sem Cor"
)

type DashboardStats struct {
	TotalProducts    int             `json:"total_products"`
	OutOfStock       int             `json:"out_of_stock"`
	LowStock         int             `json:"low_stock"`
	SalesToday       decimal.Decimal `json:"sales_today"`
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	ItemsSold        int             `json:"items_sold"`
	InventoryCost    decimal.Decimal `json:"inventory_cost"`
	StockUnits       int             `json:"stock_units"`
	TotalInvestment  decimal.Decimal `json:"total_investment"`
	PiecesPurchased  int             `json:"pieces_purchased"`
	PotentialRevenue decimal.Decimal `json:"potential_revenue"`
	PendingSales     int             `json:"pending_sales"`
	RecentSales      []SaleView      `json:"recent_sales"`
	GeneratedAt      time.Time       `json:"generated_at"`
}

// Stats aggregates the dashboard figures from the cache. Pending sales are
// counted but left out of every money and pieces figure.
func (s *InventoryService) Stats(now time.Time) DashboardStats {
	products := s.Products()
	sales := s.Sales()
	index := make(map[uuid.UUID]*models.Product, len(products))
	for i := range products {
		index[products[i].ID] = &products[i]
	}

	stats := DashboardStats{
		TotalProducts:    len(products),
		SalesToday:       decimal.Zero,
		TotalRevenue:     decimal.Zero,
		InventoryCost:    decimal.Zero,
		PotentialRevenue: decimal.Zero,
		GeneratedAt:      now,
	}

	for i := range products {
		p := &products[i]
		if p.IsOutOfStock() {
			stats.OutOfStock++
		} else if p.IsLowStock() {
			stats.LowStock++
		}
		stats.StockUnits += p.Stock
		stats.InventoryCost = stats.InventoryCost.Add(p.StockValue())
		stats.PotentialRevenue = stats.PotentialRevenue.Add(p.PotentialRevenue())
	}

	loc := s.config.Location()
	today := now.In(loc).Format("2006-01-02")
	soldCost := decimal.Zero
	active := make([]models.Sale, 0, len(sales))

	for _, sale := range sales {
		if sale.IsPending() {
			stats.PendingSales++
			continue
		}
		active = append(active, sale)

		stats.TotalRevenue = stats.TotalRevenue.Add(sale.Total)
		if sale.SaleDate.In(loc).Format("2006-01-02") == today {
			stats.SalesToday = stats.SalesToday.Add(sale.Total)
		}
		for _, item := range sale.Items {
			stats.ItemsSold += item.Quantity
			if p, ok := item.Resolve(index); ok {
				soldCost = soldCost.Add(p.Cost.Mul(decimal.NewFromInt(int64(item.Quantity))))
			}
		}
	}
	stats.TotalInvestment = stats.InventoryCost.Add(soldCost)
	stats.PiecesPurchased = stats.StockUnits + stats.ItemsSold

	sort.SliceStable(active, func(i, j int) bool {
		return active[j].SaleDate.Before(active[i].SaleDate)
	})
	limit := s.config.RecentSalesLimit
	if limit <= 0 {
		limit = 5
	}
	if len(active) > limit {
		active = active[:limit]
	}
	stats.RecentSales = s.ViewSales(active)

	return stats
}

type BreakdownRow struct {
	Name  string          `json:"name"`
	Stock int             `json:"stock"`
	Cost  decimal.Decimal `json:"cost"`
	Sales decimal.Decimal `json:"sales"`
}

// Breakdown groups stock, stock cost and sales by product category or color.
// Sales of items whose product no longer exists cannot be grouped and are
// skipped. Rows are sorted by sales, largest first, unless told otherwise.
func (s *InventoryService) Breakdown(by, key, order string) []BreakdownRow {
	label := func(p *models.Product) string {
		if v := strings.TrimSpace(p.Category); v != "" {
			return v
		}
		return UncategorizedLabel
	}
	if by == "color" {
		label = func(p *models.Product) string {
			if v := strings.TrimSpace(p.Color); v != "" {
				return v
			}
			return NoColorLabel
		}
	}

	products := s.Products()
	index := make(map[uuid.UUID]*models.Product, len(products))
	rows := make(map[string]*BreakdownRow)
	var names []string
	row := func(name string) *BreakdownRow {
		r, ok := rows[name]
		if !ok {
			r = &BreakdownRow{Name: name, Cost: decimal.Zero, Sales: decimal.Zero}
			rows[name] = r
			names = append(names, name)
		}
		return r
	}

	for i := range products {
		p := &products[i]
		index[p.ID] = p
		r := row(label(p))
		r.Stock += p.Stock
		r.Cost = r.Cost.Add(p.StockValue())
	}

	for _, sale := range s.Sales() {
		if sale.IsPending() {
			continue
		}
		for _, item := range sale.Items {
			p, ok := item.Resolve(index)
			if !ok {
				continue
			}
			r := row(label(p))
			r.Sales = r.Sales.Add(item.LineTotal())
		}
	}

	out := make([]BreakdownRow, 0, len(names))
	for _, name := range names {
		out = append(out, *rows[name])
	}

	less := func(a, b *BreakdownRow) bool { return a.Sales.LessThan(b.Sales) }
	switch key {
	case "name":
		less = func(a, b *BreakdownRow) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	case "stock":
		less = func(a, b *BreakdownRow) bool { return a.Stock < b.Stock }
	case "cost":
		less = func(a, b *BreakdownRow) bool { return a.Cost.LessThan(b.Cost) }
	}
	asc := order == "asc"
	sort.SliceStable(out, func(i, j int) bool {
		if asc {
			return less(&out[i], &out[j])
		}
		return less(&out[j], &out[i])
	})
	return out
}
