// internal/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rfmontes/angel-fit-app/internal/i18n"
	"github.com/rfmontes/angel-fit-app/internal/services"
	"github.com/rfmontes/angel-fit-app/internal/utils"
)

// respondError maps a service error to the response envelope. Anything it
// does not recognise is reported as a data store failure.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	lang := utils.GetLangFromContext(c)
	_ = c.Error(err)

	if ve := utils.GetValidationErrors(err); len(ve) > 0 {
		utils.ValidationErrorResponse(c, ve)
		return
	}

	var stockErr *services.InsufficientStockError
	if errors.As(err, &stockErr) {
		utils.ErrorResponse(c, http.StatusBadRequest, "INSUFFICIENT_STOCK",
			i18n.T(lang, i18n.KeySaleInsufficientStock, stockErr.ProductName), gin.H{
				"product_id":   stockErr.ProductID,
				"product_name": stockErr.ProductName,
				"requested":    stockErr.Requested,
				"available":    stockErr.Available,
			})
		return
	}

	var partial *services.PartialFailureError
	if errors.As(err, &partial) {
		details := gin.H{
			"operation": partial.Operation,
			"step":      partial.Step,
		}
		if partial.SaleID != uuid.Nil {
			details["sale_id"] = partial.SaleID
		}
		if partial.CompensationErr != nil {
			details["compensation_error"] = partial.CompensationErr.Error()
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "PARTIAL_FAILURE",
			i18n.T(lang, i18n.KeySalePartialFailure), details)
		return
	}

	switch {
	case errors.Is(err, services.ErrCustomerRequired):
		validationError(c, i18n.T(lang, i18n.KeySaleCustomerRequired))
	case errors.Is(err, services.ErrEmptySale):
		validationError(c, i18n.T(lang, i18n.KeySaleEmpty))
	case errors.Is(err, services.ErrInvalidQuantity):
		validationError(c, i18n.T(lang, i18n.KeySaleInvalidQuantity))
	case errors.Is(err, services.ErrNegativeAmount):
		validationError(c, i18n.T(lang, i18n.KeyValidationInvalid, "amount"))
	case errors.Is(err, services.ErrOutOfStock):
		validationError(c, i18n.T(lang, i18n.KeyProductOutOfStock))
	case errors.Is(err, services.ErrProductNotFound):
		utils.NotFoundResponse(c, "product")
	case errors.Is(err, services.ErrSaleNotFound):
		utils.NotFoundResponse(c, "sale")
	case errors.Is(err, services.ErrInvalidCredentials):
		utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthInvalidCredentials))
	case errors.Is(err, services.ErrNoSession):
		utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthSessionExpired))
	case errors.Is(err, services.ErrUserSuspended):
		utils.ErrorResponse(c, http.StatusForbidden, "FORBIDDEN", i18n.T(lang, i18n.KeyAuthUserSuspended), nil)
	case errors.Is(err, services.ErrCacheDiverged):
		utils.ErrorResponse(c, http.StatusBadGateway, "STORE_ERROR",
			i18n.T(lang, i18n.KeyProductDeleteDiverged), gin.H{"evicted": true})
	default:
		logger.WithError(err).WithField("path", c.Request.URL.Path).Error("Data store request failed")
		utils.StoreErrorResponse(c)
	}
}

func validationError(c *gin.Context, message string) {
	utils.ErrorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", message, nil)
}

// bindJSON decodes and validates the request body, writing the error
// response itself when it fails.
func bindJSON(c *gin.Context, req interface{}) bool {
	lang := utils.GetLangFromContext(c)
	if err := c.ShouldBindJSON(req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return false
	}

	// Validate request
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return false
	}
	return true
}

func parseID(c *gin.Context, resource string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, resource+" id"), nil)
		return uuid.Nil, false
	}
	return id, true
}
