// internal/handlers/product.go
package handlers

import (
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/rfmontes/angel-fit-app/internal/i18n"
	"github.com/rfmontes/angel-fit-app/internal/services"
	"github.com/rfmontes/angel-fit-app/internal/utils"
)

type ProductHandler struct {
	inventory *services.InventoryService
	reports   *services.ReportService
	logger    *logrus.Logger
}

func NewProductHandler(inventory *services.InventoryService, reports *services.ReportService, logger *logrus.Logger) *ProductHandler {
	return &ProductHandler{
		inventory: inventory,
		reports:   reports,
		logger:    logger,
	}
}

// GET /products
func (h *ProductHandler) GetProducts(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	if params.Sort != "" && !slices.Contains(services.ProductSortKeys, params.Sort) {
		lang := utils.GetLangFromContext(c)
		utils.ErrorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR",
			i18n.T(lang, i18n.KeyValidationInvalid, "sort"), gin.H{"allowed": services.ProductSortKeys})
		return
	}

	products := h.inventory.ListProducts(params.Sort, params.Order)
	start, end := utils.PageBounds(len(products), params)

	result := utils.CreatePaginationResult(products[start:end], int64(len(products)), params)
	utils.PaginatedResponse(c, result)
}

// GET /products/available
func (h *ProductHandler) GetAvailableProducts(c *gin.Context) {
	utils.SuccessResponse(c, gin.H{
		"products": h.inventory.AvailableProducts(c.Query("search")),
	})
}

// GET /products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := parseID(c, "product")
	if !ok {
		return
	}

	product, err := h.inventory.Product(id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"product":      product,
		"out_of_stock": product.IsOutOfStock(),
		"low_stock":    product.IsLowStock(),
	})
}

// POST /products
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.CreateProductRequest
	if !bindJSON(c, &req) {
		return
	}

	product, err := h.inventory.AddProduct(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyProductCreated),
		"product": product,
	})
}

// PUT /products/:id
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := parseID(c, "product")
	if !ok {
		return
	}

	var req services.UpdateProductRequest
	if !bindJSON(c, &req) {
		return
	}

	product, err := h.inventory.UpdateProduct(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyProductUpdated),
		"product": product,
	})
}

// DELETE /products/:id
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := parseID(c, "product")
	if !ok {
		return
	}

	if err := h.inventory.DeleteProduct(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyProductDeleted),
	})
}

type ResetMinStockRequest struct {
	MinStock *int `json:"min_stock" validate:"required,min=0"`
}

// PUT /products/min-stock
func (h *ProductHandler) ResetMinStock(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req ResetMinStockRequest
	if !bindJSON(c, &req) {
		return
	}

	n, err := h.inventory.ResetMinStock(c.Request.Context(), *req.MinStock)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyProductMinStockReset, n),
		"products": n,
	})
}

// GET /products/export
func (h *ProductHandler) ExportProducts(c *gin.Context) {
	file, err := h.reports.ProductsWorkbook()
	if err != nil {
		_ = c.Error(err)
		h.logger.WithError(err).Error("Failed to build products workbook")
		utils.InternalErrorResponse(c, "")
		return
	}

	filename := fmt.Sprintf("estoque_%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Type", services.XLSXContentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Status(http.StatusOK)

	if err := file.Write(c.Writer); err != nil {
		_ = c.Error(err)
	}
}
