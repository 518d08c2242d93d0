// internal/services/report_service.go
package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/tealeg/xlsx"
)

const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportService renders the cached inventory and sales as spreadsheets.
type ReportService struct {
	inventory *InventoryService
	storage   *StorageService
	logger    *logrus.Logger
}

func NewReportService(inventory *InventoryService, storage *StorageService, logger *logrus.Logger) *ReportService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ReportService{
		inventory: inventory,
		storage:   storage,
		logger:    logger,
	}
}

func money(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

func addHeader(sheet *xlsx.Sheet, headers ...string) {
	row := sheet.AddRow()
	for _, h := range headers {
		row.AddCell().SetValue(h)
	}
}

// ProductsWorkbook builds a workbook with one row per product, sorted by
// supplier and category.
func (r *ReportService) ProductsWorkbook() (*xlsx.File, error) {
	file := xlsx.NewFile()
	if err := r.addProductsSheet(file); err != nil {
		return nil, err
	}
	return file, nil
}

// InventoryWorkbook builds the full report: products, sales and a summary
// of the dashboard figures at now.
func (r *ReportService) InventoryWorkbook(now time.Time) (*xlsx.File, error) {
	file := xlsx.NewFile()
	if err := r.addSummarySheet(file, now); err != nil {
		return nil, err
	}
	if err := r.addProductsSheet(file); err != nil {
		return nil, err
	}
	if err := r.addSalesSheet(file); err != nil {
		return nil, err
	}
	return file, nil
}

func (r *ReportService) addProductsSheet(file *xlsx.File) error {
	sheet, err := file.AddSheet("Estoque")
	if err != nil {
		return fmt.Errorf("failed to create products sheet: %w", err)
	}

	addHeader(sheet, "ID", "Nome", "Fornecedor", "Categoria", "Cor", "Tamanho",
		"Preço", "Custo", "Estoque", "Estoque Mínimo", "Valor em Estoque")
	for _, p := range r.inventory.ListProducts("category", "asc") {
		row := sheet.AddRow()
		row.AddCell().SetValue(p.ID.String())
		row.AddCell().SetValue(p.Name)
		row.AddCell().SetValue(p.Supplier)
		row.AddCell().SetValue(p.Category)
		row.AddCell().SetValue(p.Color)
		row.AddCell().SetValue(p.Size)
		row.AddCell().SetFloat(money(p.Price))
		row.AddCell().SetFloat(money(p.Cost))
		row.AddCell().SetInt(p.Stock)
		row.AddCell().SetInt(p.MinStock)
		row.AddCell().SetFloat(money(p.StockValue()))
	}
	return nil
}

func (r *ReportService) addSalesSheet(file *xlsx.File) error {
	sheet, err := file.AddSheet("Vendas")
	if err != nil {
		return fmt.Errorf("failed to create sales sheet: %w", err)
	}

	addHeader(sheet, "Venda", "Data", "Cliente", "Telefone", "Pagamento", "Situação",
		"Produto", "Quantidade", "Preço", "Total do Item")
	history := r.inventory.SalesHistory("", "asc")
	for _, sale := range r.inventory.ViewSales(history.Sales) {
		for _, item := range sale.Items {
			row := sheet.AddRow()
			row.AddCell().SetValue(sale.ID.String())
			row.AddCell().SetValue(sale.SaleDate.Format("2006-01-02 15:04:05"))
			row.AddCell().SetValue(sale.CustomerName)
			row.AddCell().SetValue(sale.CustomerPhone)
			row.AddCell().SetValue(sale.PaymentMethod)
			row.AddCell().SetValue(string(sale.Status))
			row.AddCell().SetValue(item.ProductName)
			row.AddCell().SetInt(item.Quantity)
			row.AddCell().SetFloat(money(item.Price))
			row.AddCell().SetFloat(money(item.LineTotal))
		}
	}
	return nil
}

func (r *ReportService) addSummarySheet(file *xlsx.File, now time.Time) error {
	sheet, err := file.AddSheet("Resumo")
	if err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	stats := r.inventory.Stats(now)
	addHeader(sheet, "Indicador", "Valor")
	line := func(label string, set func(c *xlsx.Cell)) {
		row := sheet.AddRow()
		row.AddCell().SetValue(label)
		set(row.AddCell())
	}
	line("Gerado em", func(c *xlsx.Cell) { c.SetValue(now.Format("2006-01-02 15:04:05")) })
	line("Produtos", func(c *xlsx.Cell) { c.SetInt(stats.TotalProducts) })
	line("Sem estoque", func(c *xlsx.Cell) { c.SetInt(stats.OutOfStock) })
	line("Estoque baixo", func(c *xlsx.Cell) { c.SetInt(stats.LowStock) })
	line("Vendas hoje", func(c *xlsx.Cell) { c.SetFloat(money(stats.SalesToday)) })
	line("Total vendido", func(c *xlsx.Cell) { c.SetFloat(money(stats.TotalRevenue)) })
	line("Peças vendidas", func(c *xlsx.Cell) { c.SetInt(stats.ItemsSold) })
	line("Custo do estoque", func(c *xlsx.Cell) { c.SetFloat(money(stats.InventoryCost)) })
	line("Investimento total", func(c *xlsx.Cell) { c.SetFloat(money(stats.TotalInvestment)) })
	line("Receita potencial", func(c *xlsx.Cell) { c.SetFloat(money(stats.PotentialRevenue)) })
	line("Vendas pendentes", func(c *xlsx.Cell) { c.SetInt(stats.PendingSales) })
	return nil
}

// WriteProducts streams the products workbook to w.
func (r *ReportService) WriteProducts(w io.Writer) error {
	file, err := r.ProductsWorkbook()
	if err != nil {
		return err
	}
	if err := file.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// PublishInventoryReport renders the full report and stores it, returning
// where it can be downloaded.
func (r *ReportService) PublishInventoryReport(ctx context.Context, now time.Time) (*UploadResult, error) {
	file, err := r.InventoryWorkbook(now)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	name := fmt.Sprintf("relatorio_%s.xlsx", now.Format("2006-01-02"))
	result, err := r.storage.Upload(ctx, buf.Bytes(), name, "reports", XLSXContentType)
	if err != nil {
		r.logger.WithError(err).Error("Failed to store inventory report")
		return nil, err
	}

	r.logger.WithFields(logrus.Fields{
		"key":  result.Key,
		"size": result.Size,
	}).Info("Inventory report stored")
	return result, nil
}
