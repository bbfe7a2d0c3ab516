// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess = "success"
	KeyError   = "error"

	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthTokenExpired       = "auth.token_expired"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthLoginSuccess       = "auth.login_success"
	KeyAuthLogoutSuccess      = "auth.logout_success"
	KeyAdminAccessDenied      = "auth.admin_access_denied"

	// Accounts
	KeyAccountSwitched     = "account.switched"
	KeyAccountRemoved      = "account.removed"
	KeyAccountSwitchBusy   = "account.switch_in_progress"
	KeyAccountNotFound     = "account.not_found"

	// Users
	KeyUserNotFound     = "user.not_found"
	KeyUserCreated      = "user.created"
	KeyUserUpdated      = "user.updated"
	KeyUserDeleted      = "user.deleted"
	KeyUserHasOrders    = "user.has_orders"
	KeyUserAlreadyExist = "user.already_exists"

	// Catalog
	KeyProductCreated    = "product.created"
	KeyProductUpdated    = "product.updated"
	KeyProductDeleted    = "product.deleted"
	KeyProductNotFound   = "product.not_found"
	KeyProductOutOfStock = "product.out_of_stock"
	KeyCategoryNotFound  = "category.not_found"

	// Orders
	KeyOrderPlaced        = "order.placed"
	KeyOrderNotFound      = "order.not_found"
	KeyOrderUpdated       = "order.updated"
	KeyOrderCancelled     = "order.cancelled"
	KeyOrderDuplicate     = "order.duplicate"
	KeyOrderTotalMismatch = "order.total_mismatch"
	KeyOrderRetryLater    = "order.retry_later"

	// Payments
	KeyPaymentFailed        = "payment.failed"
	KeyPaymentMethodInvalid = "payment.invalid_method"

	// Validation
	KeyValidationRequired = "validation.required"
	KeyValidationInvalid  = "validation.invalid"
	KeyValidationEmail    = "validation.invalid_email"

	// File Upload
	KeyFileUploadSuccess = "file.upload_success"
	KeyFileUploadFailed  = "file.upload_failed"

	// Dependencies
	KeyServiceUnavailable = "service.unavailable"
)
