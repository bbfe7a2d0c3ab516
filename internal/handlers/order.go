// internal/handlers/order.go
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/shoplane/storefront-backend/internal/i18n"
	"github.com/shoplane/storefront-backend/internal/models"
	"github.com/shoplane/storefront-backend/internal/services"
	"github.com/shoplane/storefront-backend/internal/utils"
)

type OrderHandler struct {
	orderService   *services.OrderService
	paymentService *services.PaymentService
}

func NewOrderHandler(orderService *services.OrderService, paymentService *services.PaymentService) *OrderHandler {
	return &OrderHandler{
		orderService:   orderService,
		paymentService: paymentService,
	}
}

// POST /orders
// Also mounted as POST /orders/create-cod-order for storefront clients that
// use the checkout-specific path; that alias forces the COD method.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req services.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(err))
		return
	}

	resp, err := h.orderService.PlaceOrder(&req)
	if err != nil {
		h.writeOrderError(c, err)
		return
	}

	order, err := h.orderService.GetOrder(resp.OrderID)
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.CreatedResponse(c, gin.H{
		"order":   order,
		"message": i18n.T(lang, i18n.KeyOrderPlaced),
	})
}

// CreateCODOrder pins the payment method before delegating to CreateOrder.
func (h *OrderHandler) CreateCODOrder(c *gin.Context) {
	var req services.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}
	req.PaymentMethod = models.PaymentMethodCOD

	if err := utils.ValidateStruct(&req); err != nil {
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(err))
		return
	}

	resp, err := h.orderService.PlaceOrder(&req)
	if err != nil {
		h.writeOrderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":           true,
		"orderId":           resp.OrderID,
		"orderNumber":       resp.OrderNumber,
		"total":             resp.Total,
		"estimatedDelivery": resp.EstimatedDelivery,
	})
}

func (h *OrderHandler) writeOrderError(c *gin.Context, err error) {
	lang := utils.GetLangFromContext(c)

	// Placement failures are client-fixable and answer 400 with a stable
	// error code; the status never varies by failure kind.
	var stockErr *services.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		utils.ErrorResponse(c, http.StatusBadRequest, "OUT_OF_STOCK",
			i18n.T(lang, i18n.KeyProductOutOfStock, stockErr.ProductName, stockErr.Available, stockErr.Requested), nil)
	case errors.Is(err, services.ErrTotalMismatch):
		utils.ErrorResponse(c, http.StatusBadRequest, "TOTAL_MISMATCH",
			i18n.T(lang, i18n.KeyOrderTotalMismatch), nil)
	case errors.Is(err, services.ErrProductNotFound):
		utils.ErrorResponse(c, http.StatusBadRequest, "PRODUCT_NOT_FOUND",
			i18n.T(lang, i18n.KeyProductNotFound), nil)
	case errors.Is(err, services.ErrEmptyOrder):
		utils.BadRequestResponse(c, "Order must contain at least one item", nil)
	case errors.Is(err, services.ErrOrderNumberClash):
		utils.ErrorResponse(c, http.StatusBadRequest, "RETRY_LATER",
			i18n.T(lang, i18n.KeyOrderRetryLater), nil)
	default:
		utils.BadRequestResponse(c, err.Error(), nil)
	}
}

// GET /orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid order ID", nil)
		return
	}

	order, err := h.orderService.GetOrder(orderID)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			utils.NotFoundResponse(c, "order")
			return
		}
		utils.InternalErrorResponse(c, "")
		return
	}

	// Ownership check: admins see everything, shoppers only their own or
	// guest orders matching their email.
	role, _ := utils.GetUserRoleFromContext(c)
	if role != string(models.UserRoleAdmin) {
		email, _ := utils.GetUserEmailFromContext(c)
		userID, _ := utils.GetUserIDFromContext(c)
		owns := order.UserID != nil && order.UserID.String() == userID
		if !owns && !strings.EqualFold(order.CustomerEmail, email) {
			utils.NotFoundResponse(c, "order")
			return
		}
	}

	utils.SuccessResponse(c, order)
}

// GET /orders/track?number=...&email=...
// Public order tracking for guests; requires the matching email.
func (h *OrderHandler) TrackOrder(c *gin.Context) {
	number := c.Query("number")
	email := c.Query("email")
	if number == "" || !utils.IsValidEmail(email) {
		utils.BadRequestResponse(c, "Order number and email are required", nil)
		return
	}

	order, err := h.orderService.GetOrderByNumber(number, email)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			utils.NotFoundResponse(c, "order")
			return
		}
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, order)
}

// GET /orders/my
func (h *OrderHandler) GetMyOrders(c *gin.Context) {
	userIDStr, ok := utils.GetUserIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		utils.UnauthorizedResponse(c, "")
		return
	}

	params := utils.GetPaginationParams(c)
	result, err := h.orderService.GetUserOrders(userID, params)
	if err != nil {
		utils.ServiceUnavailableResponse(c, []interface{}{})
		return
	}

	utils.PaginatedResponse(c, *result)
}

// POST /orders/:id/payment-intent
func (h *OrderHandler) CreatePaymentIntent(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid order ID", nil)
		return
	}

	resp, err := h.paymentService.CreatePaymentIntentForOrder(orderID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOrderNotFound):
			utils.NotFoundResponse(c, "order")
		case errors.Is(err, services.ErrPaymentNotConfigured):
			utils.ServiceUnavailableResponse(c, nil)
		default:
			utils.BadRequestResponse(c, err.Error(), nil)
		}
		return
	}

	utils.SuccessResponse(c, resp)
}

// POST /payments/intent
// Body-based variant used by checkout clients that hold the order ID from
// the placement response.
func (h *OrderHandler) CreatePaymentIntentForCheckout(c *gin.Context) {
	var req struct {
		OrderID uuid.UUID `json:"order_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	resp, err := h.paymentService.CreatePaymentIntentForOrder(req.OrderID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOrderNotFound):
			utils.NotFoundResponse(c, "order")
		case errors.Is(err, services.ErrPaymentNotConfigured):
			utils.ServiceUnavailableResponse(c, nil)
		default:
			utils.BadRequestResponse(c, err.Error(), nil)
		}
		return
	}

	utils.SuccessResponse(c, resp)
}

// POST /orders/confirm-payment
func (h *OrderHandler) ConfirmPayment(c *gin.Context) {
	var req struct {
		PaymentIntentID string `json:"payment_intent_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	order, err := h.paymentService.ConfirmPayment(req.PaymentIntentID)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			utils.NotFoundResponse(c, "order")
			return
		}
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.SuccessResponse(c, order)
}
