// internal/handlers/sale.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/rfmontes/angel-fit-app/internal/i18n"
	"github.com/rfmontes/angel-fit-app/internal/services"
	"github.com/rfmontes/angel-fit-app/internal/utils"
)

type SaleHandler struct {
	inventory *services.InventoryService
	logger    *logrus.Logger
}

func NewSaleHandler(inventory *services.InventoryService, logger *logrus.Logger) *SaleHandler {
	return &SaleHandler{
		inventory: inventory,
		logger:    logger,
	}
}

// GET /sales
func (h *SaleHandler) GetSales(c *gin.Context) {
	history := h.inventory.SalesHistory(c.Query("search"), c.Query("order"))

	utils.SuccessResponseWithMeta(c, h.inventory.ViewSales(history.Sales), gin.H{
		"count": history.Count,
		"total": history.Total,
	})
}

// GET /sales/:id
func (h *SaleHandler) GetSale(c *gin.Context) {
	id, ok := parseID(c, "sale")
	if !ok {
		return
	}

	sale, err := h.inventory.Sale(id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"sale": h.inventory.ViewSale(*sale),
	})
}

// POST /sales
func (h *SaleHandler) CreateSale(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.SaleRequest
	if !bindJSON(c, &req) {
		return
	}

	sale, err := h.inventory.CreateSale(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeySaleCreated),
		"sale":    h.inventory.ViewSale(*sale),
	})
}

// PUT /sales/:id
func (h *SaleHandler) UpdateSale(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := parseID(c, "sale")
	if !ok {
		return
	}

	var req services.SaleRequest
	if !bindJSON(c, &req) {
		return
	}

	sale, err := h.inventory.UpdateSale(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeySaleUpdated),
		"sale":    h.inventory.ViewSale(*sale),
	})
}

// DELETE /sales/:id
func (h *SaleHandler) DeleteSale(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := parseID(c, "sale")
	if !ok {
		return
	}

	if err := h.inventory.DeleteSale(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeySaleDeleted),
	})
}
