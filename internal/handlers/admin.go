// internal/handlers/admin.go
package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/shoplane/storefront-backend/internal/i18n"
	"github.com/shoplane/storefront-backend/internal/models"
	"github.com/shoplane/storefront-backend/internal/services"
	"github.com/shoplane/storefront-backend/internal/utils"
)

type AdminHandler struct {
	adminService   *services.AdminService
	productService *services.ProductService
	orderService   *services.OrderService
	userService    *services.UserService
	storageService *services.StorageService
}

func NewAdminHandler(
	adminService *services.AdminService,
	productService *services.ProductService,
	orderService *services.OrderService,
	userService *services.UserService,
	storageService *services.StorageService,
) *AdminHandler {
	return &AdminHandler{
		adminService:   adminService,
		productService: productService,
		orderService:   orderService,
		userService:    userService,
		storageService: storageService,
	}
}

// GET /admin/dashboard
func (h *AdminHandler) GetDashboard(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))
	stats := h.adminService.GetDashboardStats(c.Request.Context(), days)
	utils.SuccessResponse(c, stats)
}

// GET /admin/analytics
// Same aggregates as the dashboard over a configurable window. Never
// hard-fails; a zeroed snapshot marked as a fallback is the floor.
func (h *AdminHandler) GetAnalytics(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "90"))
	stats := h.adminService.GetDashboardStats(c.Request.Context(), days)
	utils.SuccessResponse(c, stats)
}

// GET /admin/products
// Unlike the public catalog this includes inactive products.
func (h *AdminHandler) GetProducts(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	result, err := h.productService.ListAllProducts(params)
	if err != nil {
		utils.ServiceUnavailableResponse(c, []interface{}{})
		return
	}

	utils.PaginatedResponse(c, *result)
}

// POST /admin/products
func (h *AdminHandler) CreateProduct(c *gin.Context) {
	var req services.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(err))
		return
	}

	product, err := h.productService.CreateProduct(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, services.ErrCategoryNotFound) {
			utils.NotFoundResponse(c, "category")
			return
		}
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.CreatedResponse(c, product)
}

// PUT /admin/products/:id
func (h *AdminHandler) UpdateProduct(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid product ID", nil)
		return
	}

	var req services.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(err))
		return
	}

	product, err := h.productService.UpdateProduct(c.Request.Context(), productID, &req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrProductNotFound):
			utils.NotFoundResponse(c, "product")
		case errors.Is(err, services.ErrCategoryNotFound):
			utils.NotFoundResponse(c, "category")
		default:
			utils.InternalErrorResponse(c, "")
		}
		return
	}

	utils.SuccessResponse(c, product)
}

// DELETE /admin/products/:id
func (h *AdminHandler) DeleteProduct(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid product ID", nil)
		return
	}

	if err := h.productService.DeleteProduct(c.Request.Context(), productID); err != nil {
		if errors.Is(err, services.ErrProductNotFound) {
			utils.NotFoundResponse(c, "product")
			return
		}
		utils.InternalErrorResponse(c, "")
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.SuccessResponse(c, gin.H{"message": i18n.T(lang, i18n.KeyProductDeleted)})
}

// POST /admin/categories
func (h *AdminHandler) CreateCategory(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required,min=2,max=100"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	category, err := h.productService.CreateCategory(c.Request.Context(), req.Name)
	if err != nil {
		utils.ConflictResponse(c, "Category already exists")
		return
	}

	utils.CreatedResponse(c, category)
}

// POST /admin/products/upload
// Product image upload, S3 backed when configured.
func (h *AdminHandler) UploadProductImage(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		utils.BadRequestResponse(c, "No file provided", nil)
		return
	}
	defer file.Close()

	result, err := h.storageService.UploadFile(file, header, services.UploadOptions{
		Folder:       "products",
		MaxSize:      5 * 1024 * 1024,
		AllowedTypes: []string{".jpg", ".jpeg", ".png", ".webp"},
	})
	if err != nil {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyFileUploadFailed), err.Error())
		return
	}

	utils.CreatedResponse(c, result)
}

// DELETE /admin/products/images?key=products/...
// Removes an uploaded image from storage.
func (h *AdminHandler) DeleteProductImage(c *gin.Context) {
	key := c.Query("key")
	if key == "" || strings.Contains(key, "..") {
		utils.BadRequestResponse(c, "Invalid storage key", nil)
		return
	}

	if err := h.storageService.DeleteFile(key); err != nil {
		utils.NotFoundResponse(c, "file")
		return
	}

	utils.SuccessResponse(c, gin.H{"key": key})
}

// GET /admin/orders
func (h *AdminHandler) GetOrders(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	status := models.OrderStatus(c.Query("status"))
	if status != "" && !models.ValidOrderStatus(status) {
		utils.BadRequestResponse(c, "Unknown order status", nil)
		return
	}

	result, err := h.orderService.ListOrders(status, params.Search, params)
	if err != nil {
		utils.ServiceUnavailableResponse(c, []interface{}{})
		return
	}

	utils.PaginatedResponse(c, *result)
}

// PUT /admin/orders/:id
// Status transitions, including cancellation with stock restore.
func (h *AdminHandler) UpdateOrderStatus(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid order ID", nil)
		return
	}

	var req struct {
		Status models.OrderStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	order, err := h.orderService.UpdateOrderStatus(orderID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOrderNotFound):
			utils.NotFoundResponse(c, "order")
		case errors.Is(err, services.ErrInvalidTransition):
			utils.ConflictResponse(c, "Order status cannot change to "+string(req.Status))
		default:
			utils.InternalErrorResponse(c, "")
		}
		return
	}

	lang := utils.GetLangFromContext(c)
	message := i18n.T(lang, i18n.KeyOrderUpdated)
	if req.Status == models.OrderStatusCancelled {
		message = i18n.T(lang, i18n.KeyOrderCancelled)
	}

	utils.SuccessResponseWithMeta(c, order, gin.H{"message": message})
}

// POST /admin/users
func (h *AdminHandler) CreateUser(c *gin.Context) {
	var req services.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(err))
		return
	}

	lang := utils.GetLangFromContext(c)
	user, err := h.userService.CreateUser(&req)
	if err != nil {
		if errors.Is(err, services.ErrUserExists) {
			utils.ConflictResponse(c, i18n.T(lang, i18n.KeyUserAlreadyExist))
			return
		}
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.CreatedResponse(c, user)
}

// PUT /admin/users/:id
func (h *AdminHandler) UpdateUser(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid user ID", nil)
		return
	}

	var req services.AdminUpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(err))
		return
	}

	user, err := h.userService.AdminUpdateUser(userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			utils.NotFoundResponse(c, "user")
		case errors.Is(err, services.ErrProtectedAdmin):
			utils.ForbiddenResponse(c, "")
		default:
			utils.BadRequestResponse(c, err.Error(), nil)
		}
		return
	}

	utils.SuccessResponse(c, user)
}

// GET /admin/users
func (h *AdminHandler) GetUsers(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	result, err := h.userService.ListUsers(params.Search, params)
	if err != nil {
		utils.ServiceUnavailableResponse(c, []interface{}{})
		return
	}

	utils.PaginatedResponse(c, *result)
}

// PUT /admin/users/:id/role
func (h *AdminHandler) SetUserRole(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid user ID", nil)
		return
	}

	var req struct {
		Role models.UserRole `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	user, err := h.userService.SetRole(userID, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			utils.NotFoundResponse(c, "user")
		case errors.Is(err, services.ErrProtectedAdmin):
			utils.ForbiddenResponse(c, "")
		default:
			utils.BadRequestResponse(c, err.Error(), nil)
		}
		return
	}

	utils.SuccessResponse(c, user)
}

// DELETE /admin/users/:id
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid user ID", nil)
		return
	}

	lang := utils.GetLangFromContext(c)
	if err := h.userService.DeleteUser(userID); err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			utils.NotFoundResponse(c, "user")
		case errors.Is(err, services.ErrUserHasOrders):
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyUserHasOrders), nil)
		case errors.Is(err, services.ErrProtectedAdmin):
			utils.ForbiddenResponse(c, "")
		default:
			utils.InternalErrorResponse(c, "")
		}
		return
	}

	utils.SuccessResponse(c, gin.H{"message": i18n.T(lang, i18n.KeyUserDeleted)})
}
