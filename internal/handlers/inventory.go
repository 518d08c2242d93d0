// internal/handlers/inventory.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/rfmontes/angel-fit-app/internal/i18n"
	"github.com/rfmontes/angel-fit-app/internal/services"
	"github.com/rfmontes/angel-fit-app/internal/utils"
)

type InventoryHandler struct {
	inventory *services.InventoryService
	version   string
	logger    *logrus.Logger
}

func NewInventoryHandler(inventory *services.InventoryService, version string, logger *logrus.Logger) *InventoryHandler {
	return &InventoryHandler{
		inventory: inventory,
		version:   version,
		logger:    logger,
	}
}

// POST /sync
func (h *InventoryHandler) Sync(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	if err := h.inventory.Load(c.Request.Context()); err != nil {
		respondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":   i18n.T(lang, i18n.KeyInventorySynced),
		"products":  len(h.inventory.Products()),
		"sales":     len(h.inventory.Sales()),
		"loaded_at": h.inventory.LoadedAt(),
	})
}

// GET /health probes the data store directly, like a head count on the
// products table.
func (h *InventoryHandler) Health(c *gin.Context) {
	count, err := h.inventory.CountProducts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"version": h.version,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"version":   h.version,
		"products":  count,
		"loaded_at": h.inventory.LoadedAt(),
	})
}
