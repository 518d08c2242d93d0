// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess     = "success"
	KeyError       = "error"
	KeyStoreError  = "error.store"
	KeyInternal    = "error.internal"
	KeyRateLimited = "error.rate_limited"

	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthSessionExpired     = "auth.session_expired"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthUserSuspended      = "auth.user_suspended"
	KeyAuthLoginSuccess       = "auth.login_success"
	KeyAuthLogoutSuccess      = "auth.logout_success"

	// Products
	KeyProductCreated        = "product.created"
	KeyProductUpdated        = "product.updated"
	KeyProductDeleted        = "product.deleted"
	KeyProductNotFound       = "product.not_found"
	KeyProductOutOfStock     = "product.out_of_stock"
	KeyProductMinStockReset  = "product.min_stock_reset"
	KeyProductDeleteDiverged = "product.delete_diverged"

	// Sales
	KeySaleCreated           = "sale.created"
	KeySaleUpdated           = "sale.updated"
	KeySaleDeleted           = "sale.deleted"
	KeySaleNotFound          = "sale.not_found"
	KeySaleCustomerRequired  = "sale.customer_required"
	KeySaleEmpty             = "sale.empty"
	KeySaleInvalidQuantity   = "sale.invalid_quantity"
	KeySaleInsufficientStock = "sale.insufficient_stock"
	KeySalePartialFailure    = "sale.partial_failure"

	// Inventory
	KeyInventorySynced = "inventory.synced"
	KeyReportCreated   = "report.created"

	// Validation
	KeyValidationRequired = "validation.required"
	KeyValidationInvalid  = "validation.invalid"
)
