// internal/handlers/dashboard.go
package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/rfmontes/angel-fit-app/internal/i18n"
	"github.com/rfmontes/angel-fit-app/internal/services"
	"github.com/rfmontes/angel-fit-app/internal/utils"
)

type DashboardHandler struct {
	inventory *services.InventoryService
	reports   *services.ReportService
	logger    *logrus.Logger
	now       func() time.Time
}

func NewDashboardHandler(inventory *services.InventoryService, reports *services.ReportService, logger *logrus.Logger) *DashboardHandler {
	return &DashboardHandler{
		inventory: inventory,
		reports:   reports,
		logger:    logger,
		now:       time.Now,
	}
}

// GET /dashboard/stats
func (h *DashboardHandler) GetStats(c *gin.Context) {
	utils.SuccessResponse(c, gin.H{
		"stats":     h.inventory.Stats(h.now()),
		"loaded_at": h.inventory.LoadedAt(),
	})
}

// GET /dashboard/breakdown?by=category|color&sort=name|stock|cost|sales&order=asc|desc
func (h *DashboardHandler) GetBreakdown(c *gin.Context) {
	by := c.DefaultQuery("by", "category")
	if by != "color" {
		by = "category"
	}

	utils.SuccessResponse(c, gin.H{
		"by":   by,
		"rows": h.inventory.Breakdown(by, c.Query("sort"), c.Query("order")),
	})
}

// POST /reports/inventory
func (h *DashboardHandler) PublishReport(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	result, err := h.reports.PublishInventoryReport(c.Request.Context(), h.now())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyReportCreated),
		"report":  result,
	})
}
