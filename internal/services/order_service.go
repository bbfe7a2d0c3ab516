// internal/services/order_service.go
package services

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shoplane/storefront-backend/internal/config"
	"github.com/shoplane/storefront-backend/internal/models"
	"github.com/shoplane/storefront-backend/internal/utils"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrEmptyOrder        = errors.New("order contains no items")
	ErrProductNotFound   = errors.New("product not found")
	ErrTotalMismatch     = errors.New("order total mismatch")
	ErrOrderNumberClash  = errors.New("order number collision")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// InsufficientStockError reports the first line that cannot be fulfilled.
type InsufficientStockError struct {
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: %d available, %d requested",
		e.ProductName, e.Available, e.Requested)
}

type OrderService struct {
	db     *gorm.DB
	config *config.Config

	// Injected for deterministic tests. randMu guards rand, which is not
	// safe for concurrent placements on its own.
	now    func() time.Time
	rand   *rand.Rand
	randMu sync.Mutex
}

type OrderItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

type PlaceOrderRequest struct {
	Items []OrderItemRequest `json:"items" validate:"required,min=1,dive"`

	CustomerName  string `json:"customer_name" validate:"required,min=2,max=100"`
	CustomerEmail string `json:"customer_email" validate:"required,order_email"`
	CustomerPhone string `json:"customer_phone" validate:"required,min=7,max=20"`

	ShippingAddress string `json:"shipping_address" validate:"required,min=5,max=255"`
	ShippingCity    string `json:"shipping_city" validate:"required"`
	ShippingState   string `json:"shipping_state" validate:"required"`
	ShippingZip     string `json:"shipping_zip" validate:"required"`
	ShippingCountry string `json:"shipping_country,omitempty"`

	PaymentMethod models.PaymentMethod `json:"payment_method,omitempty"`

	// Total the client displayed, in minor units. When present it must match
	// the server-side computation exactly; the server figure is always the
	// one persisted.
	ClientTotal *int64 `json:"client_total,omitempty"`
}

type PlaceOrderResponse struct {
	OrderID           uuid.UUID `json:"orderId"`
	OrderNumber       string    `json:"orderNumber"`
	Total             int64     `json:"total"`
	EstimatedDelivery time.Time `json:"estimatedDelivery"`
}

func NewOrderService(db *gorm.DB, cfg *config.Config) *OrderService {
	return &OrderService{
		db:     db,
		config: cfg,
		now:    time.Now,
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// PlaceOrder validates the cart, recomputes all money figures server-side
// and commits the order and its stock decrements in one transaction. Stock
// is only released by the guarded UPDATE inside the transaction, so two
// concurrent orders can never both consume the last unit.
func (s *OrderService) PlaceOrder(req *PlaceOrderRequest) (*PlaceOrderResponse, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	if !utils.IsValidEmail(req.CustomerEmail) {
		return nil, fmt.Errorf("invalid customer email")
	}

	method := req.PaymentMethod
	if method == "" {
		method = models.PaymentMethodCOD
	}

	products, err := s.loadProducts(req.Items)
	if err != nil {
		return nil, err
	}

	// Pre-check before opening the transaction so shoppers get a precise
	// per-line message instead of a generic failure.
	for _, item := range req.Items {
		p := products[item.ProductID]
		if p.Stock < item.Quantity {
			return nil, &InsufficientStockError{
				ProductName: p.Name,
				Available:   p.Stock,
				Requested:   item.Quantity,
			}
		}
	}

	subtotal := int64(0)
	orderItems := make([]models.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		p := products[item.ProductID]
		lineTotal := p.Price * int64(item.Quantity)
		subtotal += lineTotal
		orderItems = append(orderItems, models.OrderItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			UnitPrice:   p.Price,
			Quantity:    item.Quantity,
			LineTotal:   lineTotal,
		})
	}

	shippingFee := s.shippingFee(subtotal)
	codFee := int64(0)
	if method == models.PaymentMethodCOD {
		codFee = s.config.Checkout.CODFee
	}
	discount := int64(0)
	total := subtotal + shippingFee + codFee - discount

	if req.ClientTotal != nil && *req.ClientTotal != total {
		return nil, ErrTotalMismatch
	}

	estimatedDelivery := s.estimatedDelivery()

	order := &models.Order{
		CustomerName:      strings.TrimSpace(req.CustomerName),
		CustomerEmail:     strings.ToLower(strings.TrimSpace(req.CustomerEmail)),
		CustomerPhone:     strings.TrimSpace(req.CustomerPhone),
		ShippingAddress:   req.ShippingAddress,
		ShippingCity:      req.ShippingCity,
		ShippingState:     req.ShippingState,
		ShippingZip:       req.ShippingZip,
		ShippingCountry:   req.ShippingCountry,
		Subtotal:          subtotal,
		ShippingFee:       shippingFee,
		CODFee:            codFee,
		Discount:          discount,
		Total:             total,
		Status:            models.OrderStatusPending,
		PaymentStatus:     models.PaymentStatusPending,
		PaymentMethod:     method,
		EstimatedDelivery: &estimatedDelivery,
		Items:             orderItems,
	}

	// Guest checkout is allowed; an existing account with the same email is
	// linked so the order shows up in their history.
	var user models.User
	if err := s.db.Where("LOWER(email) = ?", order.CustomerEmail).First(&user).Error; err == nil {
		order.UserID = &user.ID
	}

	if err := s.commitOrder(order, req.Items); err != nil {
		return nil, err
	}

	return &PlaceOrderResponse{
		OrderID:           order.ID,
		OrderNumber:       order.OrderNumber,
		Total:             order.Total,
		EstimatedDelivery: estimatedDelivery,
	}, nil
}

// commitOrder runs the atomic insert-and-decrement. The order number is
// regenerated once when the unique index rejects a duplicate.
func (s *OrderService) commitOrder(order *models.Order, items []OrderItemRequest) error {
	for attempt := 0; attempt < 2; attempt++ {
		order.OrderNumber = s.generateOrderNumber()
		order.ID = uuid.Nil
		for i := range order.Items {
			order.Items[i].ID = uuid.Nil
			order.Items[i].OrderID = uuid.Nil
		}

		err := s.db.Transaction(func(tx *gorm.DB) error {
			for _, item := range items {
				res := tx.Model(&models.Product{}).
					Where("id = ? AND stock >= ?", item.ProductID, item.Quantity).
					Update("stock", gorm.Expr("stock - ?", item.Quantity))
				if res.Error != nil {
					return res.Error
				}
				if res.RowsAffected == 0 {
					var p models.Product
					if err := tx.First(&p, "id = ?", item.ProductID).Error; err != nil {
						return ErrProductNotFound
					}
					return &InsufficientStockError{
						ProductName: p.Name,
						Available:   p.Stock,
						Requested:   item.Quantity,
					}
				}
			}

			if err := tx.Create(order).Error; err != nil {
				return err
			}

			payment := models.Payment{
				OrderID:  order.ID,
				Amount:   order.Total,
				Currency: s.config.Checkout.Currency,
				Method:   order.PaymentMethod,
				Status:   models.PaymentStatusPending,
			}
			return tx.Create(&payment).Error
		})

		if err == nil {
			return nil
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) && attempt == 0 {
			continue
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrOrderNumberClash
		}
		return err
	}
	return ErrOrderNumberClash
}

func (s *OrderService) loadProducts(items []OrderItemRequest) (map[uuid.UUID]*models.Product, error) {
	ids := make([]uuid.UUID, 0, len(items))
	seen := make(map[uuid.UUID]bool, len(items))
	for _, item := range items {
		if item.Quantity < 1 {
			return nil, fmt.Errorf("invalid quantity for product %s", item.ProductID)
		}
		if seen[item.ProductID] {
			return nil, fmt.Errorf("duplicate product %s in order", item.ProductID)
		}
		seen[item.ProductID] = true
		ids = append(ids, item.ProductID)
	}

	var products []models.Product
	if err := s.db.Where("id IN ? AND is_active = ?", ids, true).Find(&products).Error; err != nil {
		return nil, err
	}
	if len(products) != len(ids) {
		return nil, ErrProductNotFound
	}

	byID := make(map[uuid.UUID]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	return byID, nil
}

func (s *OrderService) shippingFee(subtotal int64) int64 {
	threshold := s.config.Checkout.FreeShippingThreshold
	if threshold > 0 && subtotal >= threshold {
		return 0
	}
	return s.config.Checkout.ShippingFee
}

// generateOrderNumber produces PREFIX-YYYYMMDD-NNN. The random suffix keeps
// numbers unguessable; uniqueness is enforced by the database index.
func (s *OrderService) generateOrderNumber() string {
	s.randMu.Lock()
	n := s.rand.Intn(1000)
	s.randMu.Unlock()
	return fmt.Sprintf("%s-%s-%03d",
		s.config.Checkout.OrderNumberPrefix,
		s.now().Format("20060102"),
		n)
}

func (s *OrderService) estimatedDelivery() time.Time {
	s.randMu.Lock()
	days := 3 + s.rand.Intn(5) // 3 to 7 days
	s.randMu.Unlock()
	return s.now().AddDate(0, 0, days)
}

// GetOrder loads an order with its lines and payment record.
func (s *OrderService) GetOrder(orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := s.db.Preload("Items").Preload("Payment").First(&order, "id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderByNumber supports the public order-tracking lookup.
func (s *OrderService) GetOrderByNumber(orderNumber, email string) (*models.Order, error) {
	var order models.Order
	err := s.db.Preload("Items").
		Where("order_number = ? AND LOWER(customer_email) = ?", orderNumber, strings.ToLower(email)).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetUserOrders returns the order history for a signed-in shopper.
func (s *OrderService) GetUserOrders(userID uuid.UUID, params utils.PaginationParams) (*utils.PaginationResult, error) {
	query := s.db.Model(&models.Order{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var orders []models.Order
	err := utils.ApplyPagination(query.Preload("Items").Order("created_at DESC"), params).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}

	result := utils.CreatePaginationResult(orders, total, params)
	return &result, nil
}

// ListOrders is the admin view with optional status and search filters.
func (s *OrderService) ListOrders(status models.OrderStatus, search string, params utils.PaginationParams) (*utils.PaginationResult, error) {
	query := s.db.Model(&models.Order{})

	if status != "" {
		query = query.Where("status = ?", status)
	}
	if search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"LOWER(order_number) LIKE ? OR LOWER(customer_email) LIKE ? OR LOWER(customer_name) LIKE ?",
			like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var orders []models.Order
	sorted := utils.ApplySort(query.Preload("Items"), params, []string{"created_at", "total", "status"})
	if err := utils.ApplyPagination(sorted, params).Find(&orders).Error; err != nil {
		return nil, err
	}

	result := utils.CreatePaginationResult(orders, total, params)
	return &result, nil
}

// UpdateOrderStatus moves an order along the fulfillment flow. Cancelling a
// live order restores the stock it held, in the same transaction as the
// status write. Cancelled orders are terminal.
func (s *OrderService) UpdateOrderStatus(orderID uuid.UUID, newStatus models.OrderStatus) (*models.Order, error) {
	if !models.ValidOrderStatus(newStatus) {
		return nil, ErrInvalidTransition
	}

	var order models.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items").First(&order, "id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}

		if order.Status == models.OrderStatusCancelled {
			return ErrInvalidTransition
		}
		if order.Status == newStatus {
			return nil
		}

		updates := map[string]interface{}{"status": newStatus}

		if newStatus == models.OrderStatusCancelled {
			for _, item := range order.Items {
				res := tx.Model(&models.Product{}).
					Where("id = ?", item.ProductID).
					Update("stock", gorm.Expr("stock + ?", item.Quantity))
				if res.Error != nil {
					return res.Error
				}
			}
			if order.PaymentStatus == models.PaymentStatusPending {
				updates["payment_status"] = models.PaymentStatusFailed
			}
		}

		if newStatus == models.OrderStatusDelivered && order.PaymentMethod == models.PaymentMethodCOD {
			// COD settles on delivery.
			updates["payment_status"] = models.PaymentStatusCompleted
			if err := tx.Model(&models.Payment{}).
				Where("order_id = ?", order.ID).
				Update("status", models.PaymentStatusCompleted).Error; err != nil {
				return err
			}
		}

		if err := tx.Model(&order).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Preload("Items").First(&order, "id = ?", orderID).Error
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}
