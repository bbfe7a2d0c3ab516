// internal/services/order_service_test.go
package services

import (
	"fmt"
	"math/rand"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/shoplane/storefront-backend/internal/config"
	"github.com/shoplane/storefront-backend/internal/models"
)

type OrderServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	cfg     *config.Config
	service *OrderService

	category models.Category
}

func (suite *OrderServiceTestSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(suite.T(), err)

	// One pooled connection keeps sqlite to a single writer, so concurrent
	// placements queue instead of failing with busy errors.
	sqlDB, err := db.DB()
	require.NoError(suite.T(), err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
	)
	require.NoError(suite.T(), err)

	suite.db = db
	suite.cfg = &config.Config{
		Checkout: config.CheckoutConfig{
			Currency:              "usd",
			ShippingFee:           500,
			FreeShippingThreshold: 10000,
			CODFee:                0,
			OrderNumberPrefix:     "ORD",
		},
		Admin: config.AdminConfig{Email: "admin@example.com"},
	}
	suite.service = NewOrderService(db, suite.cfg)

	suite.category = models.Category{Name: "Gadgets", Slug: "gadgets", IsActive: true}
	require.NoError(suite.T(), db.Create(&suite.category).Error)
}

func (suite *OrderServiceTestSuite) createProduct(name string, price int64, stock int) models.Product {
	product := models.Product{
		Name:       name,
		CategoryID: suite.category.ID,
		Price:      price,
		Stock:      stock,
		IsActive:   true,
	}
	require.NoError(suite.T(), suite.db.Create(&product).Error)
	return product
}

func (suite *OrderServiceTestSuite) placeRequest(items []OrderItemRequest) *PlaceOrderRequest {
	return &PlaceOrderRequest{
		Items:           items,
		CustomerName:    "Pat Doe",
		CustomerEmail:   "pat@example.com",
		CustomerPhone:   "5550001234",
		ShippingAddress: "1 Main Street",
		ShippingCity:    "Springfield",
		ShippingState:   "IL",
		ShippingZip:     "62701",
	}
}

func (suite *OrderServiceTestSuite) TestPlaceOrderComputesTotalsAndDecrementsStock() {
	p := suite.createProduct("Widget", 1000, 5)
	q := suite.createProduct("Gizmo", 2500, 1)

	resp, err := suite.service.PlaceOrder(suite.placeRequest([]OrderItemRequest{
		{ProductID: p.ID, Quantity: 2},
		{ProductID: q.ID, Quantity: 1},
	}))
	require.NoError(suite.T(), err)

	// 2*$10 + 1*$25 = $45 subtotal, below the $100 free-shipping threshold
	// so the $5 fee applies: $50 total.
	assert.Equal(suite.T(), int64(5000), resp.Total)
	assert.NotEmpty(suite.T(), resp.OrderNumber)

	var order models.Order
	require.NoError(suite.T(), suite.db.Preload("Items").First(&order, "id = ?", resp.OrderID).Error)
	assert.Equal(suite.T(), int64(4500), order.Subtotal)
	assert.Equal(suite.T(), int64(500), order.ShippingFee)
	assert.Equal(suite.T(), order.Subtotal+order.ShippingFee+order.CODFee-order.Discount, order.Total)
	assert.Equal(suite.T(), models.OrderStatusPending, order.Status)
	assert.Equal(suite.T(), models.PaymentMethodCOD, order.PaymentMethod)
	assert.Len(suite.T(), order.Items, 2)

	var pAfter, qAfter models.Product
	require.NoError(suite.T(), suite.db.First(&pAfter, "id = ?", p.ID).Error)
	require.NoError(suite.T(), suite.db.First(&qAfter, "id = ?", q.ID).Error)
	assert.Equal(suite.T(), 3, pAfter.Stock)
	assert.Equal(suite.T(), 0, qAfter.Stock)

	var payment models.Payment
	require.NoError(suite.T(), suite.db.First(&payment, "order_id = ?", order.ID).Error)
	assert.Equal(suite.T(), order.Total, payment.Amount)
	assert.Equal(suite.T(), models.PaymentStatusPending, payment.Status)
}

func (suite *OrderServiceTestSuite) TestPlaceOrderFreeShippingOverThreshold() {
	p := suite.createProduct("Widget", 6000, 10)

	resp, err := suite.service.PlaceOrder(suite.placeRequest([]OrderItemRequest{
		{ProductID: p.ID, Quantity: 2},
	}))
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(12000), resp.Total)
}

func (suite *OrderServiceTestSuite) TestPlaceOrderInsufficientStock() {
	p := suite.createProduct("Widget", 1000, 5)
	q := suite.createProduct("Gizmo", 2500, 1)

	_, err := suite.service.PlaceOrder(suite.placeRequest([]OrderItemRequest{
		{ProductID: p.ID, Quantity: 2},
		{ProductID: q.ID, Quantity: 3},
	}))
	require.Error(suite.T(), err)

	var stockErr *InsufficientStockError
	require.ErrorAs(suite.T(), err, &stockErr)
	assert.Equal(suite.T(), "Gizmo", stockErr.ProductName)
	assert.Equal(suite.T(), 1, stockErr.Available)
	assert.Equal(suite.T(), 3, stockErr.Requested)

	// Nothing committed: stock untouched, no orders.
	var pAfter models.Product
	require.NoError(suite.T(), suite.db.First(&pAfter, "id = ?", p.ID).Error)
	assert.Equal(suite.T(), 5, pAfter.Stock)

	var count int64
	suite.db.Model(&models.Order{}).Count(&count)
	assert.Zero(suite.T(), count)
}

func (suite *OrderServiceTestSuite) TestPlaceOrderLastUnitRace() {
	q := suite.createProduct("Gizmo", 2500, 1)

	_, err := suite.service.PlaceOrder(suite.placeRequest([]OrderItemRequest{
		{ProductID: q.ID, Quantity: 1},
	}))
	require.NoError(suite.T(), err)

	_, err = suite.service.PlaceOrder(suite.placeRequest([]OrderItemRequest{
		{ProductID: q.ID, Quantity: 1},
	}))
	var stockErr *InsufficientStockError
	require.ErrorAs(suite.T(), err, &stockErr)
	assert.Equal(suite.T(), 0, stockErr.Available)

	var qAfter models.Product
	require.NoError(suite.T(), suite.db.First(&qAfter, "id = ?", q.ID).Error)
	assert.Equal(suite.T(), 0, qAfter.Stock)
}

func (suite *OrderServiceTestSuite) TestConcurrentPlacementsSellExactStock() {
	p := suite.createProduct("Widget", 1000, 6)

	const placements = 8
	const quantity = 2

	errs := make([]error, placements)
	var wg sync.WaitGroup
	for i := 0; i < placements; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, errs[n] = suite.service.PlaceOrder(suite.placeRequest([]OrderItemRequest{
				{ProductID: p.ID, Quantity: quantity},
			}))
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		var stockErr *InsufficientStockError
		require.ErrorAs(suite.T(), err, &stockErr)
	}

	// 6 units at 2 per order sells exactly 3 orders, never more.
	assert.Equal(suite.T(), 3, successes)

	var pAfter models.Product
	require.NoError(suite.T(), suite.db.First(&pAfter, "id = ?", p.ID).Error)
	assert.Equal(suite.T(), 0, pAfter.Stock)

	var orderCount int64
	require.NoError(suite.T(), suite.db.Model(&models.Order{}).Count(&orderCount).Error)
	assert.Equal(suite.T(), int64(3), orderCount)
}

func (suite *OrderServiceTestSuite) TestPlaceOrderClientTotalMismatch() {
	p := suite.createProduct("Widget", 1000, 5)

	req := suite.placeRequest([]OrderItemRequest{{ProductID: p.ID, Quantity: 1}})
	wrong := int64(1000) // shipping fee omitted
	req.ClientTotal = &wrong

	_, err := suite.service.PlaceOrder(req)
	assert.ErrorIs(suite.T(), err, ErrTotalMismatch)

	var pAfter models.Product
	require.NoError(suite.T(), suite.db.First(&pAfter, "id = ?", p.ID).Error)
	assert.Equal(suite.T(), 5, pAfter.Stock)
}

func (suite *OrderServiceTestSuite) TestPlaceOrderMatchingClientTotal() {
	p := suite.createProduct("Widget", 1000, 5)

	req := suite.placeRequest([]OrderItemRequest{{ProductID: p.ID, Quantity: 1}})
	right := int64(1500)
	req.ClientTotal = &right

	resp, err := suite.service.PlaceOrder(req)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1500), resp.Total)
}

func (suite *OrderServiceTestSuite) TestPlaceOrderRejectsUnknownAndInactiveProducts() {
	p := suite.createProduct("Widget", 1000, 5)
	require.NoError(suite.T(), suite.db.Model(&models.Product{}).
		Where("id = ?", p.ID).Update("is_active", false).Error)

	_, err := suite.service.PlaceOrder(suite.placeRequest([]OrderItemRequest{
		{ProductID: p.ID, Quantity: 1},
	}))
	assert.ErrorIs(suite.T(), err, ErrProductNotFound)
}

func (suite *OrderServiceTestSuite) TestPlaceOrderLinksExistingUserByEmail() {
	user := models.User{Email: "pat@example.com", Name: "Pat", Role: models.UserRoleUser}
	require.NoError(suite.T(), suite.db.Create(&user).Error)

	p := suite.createProduct("Widget", 1000, 5)
	req := suite.placeRequest([]OrderItemRequest{{ProductID: p.ID, Quantity: 1}})
	req.CustomerEmail = "Pat@Example.com"

	resp, err := suite.service.PlaceOrder(req)
	require.NoError(suite.T(), err)

	var order models.Order
	require.NoError(suite.T(), suite.db.First(&order, "id = ?", resp.OrderID).Error)
	require.NotNil(suite.T(), order.UserID)
	assert.Equal(suite.T(), user.ID, *order.UserID)
	assert.Equal(suite.T(), "pat@example.com", order.CustomerEmail)
}

func (suite *OrderServiceTestSuite) TestOrderNumberFormat() {
	fixed := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	suite.service.now = func() time.Time { return fixed }

	p := suite.createProduct("Widget", 1000, 5)
	resp, err := suite.service.PlaceOrder(suite.placeRequest([]OrderItemRequest{
		{ProductID: p.ID, Quantity: 1},
	}))
	require.NoError(suite.T(), err)

	assert.Regexp(suite.T(), regexp.MustCompile(`^ORD-20260830-\d{3}$`), resp.OrderNumber)
}

func (suite *OrderServiceTestSuite) TestOrderNumberCollisionRetriesOnce() {
	fixed := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	suite.service.now = func() time.Time { return fixed }
	suite.service.rand = rand.New(rand.NewSource(42))

	// Replay the service's draw order to learn the first number it will
	// mint: one draw for the delivery estimate, then one per attempt.
	replica := rand.New(rand.NewSource(42))
	_ = replica.Intn(5)
	first := replica.Intn(1000)
	second := replica.Intn(1000)

	p := suite.createProduct("Widget", 1000, 10)

	// Occupy the first number so the initial attempt hits the unique index.
	taken := models.Order{
		OrderNumber:   fmt.Sprintf("ORD-20260830-%03d", first),
		CustomerName:  "Other",
		CustomerEmail: "other@example.com",
		CustomerPhone: "5550009999",
		Total:         100,
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusPending,
		PaymentMethod: models.PaymentMethodCOD,
	}
	require.NoError(suite.T(), suite.db.Create(&taken).Error)

	resp, err := suite.service.PlaceOrder(suite.placeRequest([]OrderItemRequest{
		{ProductID: p.ID, Quantity: 1},
	}))
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), fmt.Sprintf("ORD-20260830-%03d", second), resp.OrderNumber)

	// The failed attempt rolled back, so only one unit left the shelf.
	var pAfter models.Product
	require.NoError(suite.T(), suite.db.First(&pAfter, "id = ?", p.ID).Error)
	assert.Equal(suite.T(), 9, pAfter.Stock)
}

func (suite *OrderServiceTestSuite) TestEstimatedDeliveryWindow() {
	fixed := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	suite.service.now = func() time.Time { return fixed }

	p := suite.createProduct("Widget", 1000, 20)
	for i := 0; i < 5; i++ {
		resp, err := suite.service.PlaceOrder(suite.placeRequest([]OrderItemRequest{
			{ProductID: p.ID, Quantity: 1},
		}))
		require.NoError(suite.T(), err)

		days := int(resp.EstimatedDelivery.Sub(fixed).Hours() / 24)
		assert.GreaterOrEqual(suite.T(), days, 3)
		assert.LessOrEqual(suite.T(), days, 7)
	}
}

func (suite *OrderServiceTestSuite) TestCancelRestoresStock() {
	p := suite.createProduct("Widget", 1000, 5)
	resp, err := suite.service.PlaceOrder(suite.placeRequest([]OrderItemRequest{
		{ProductID: p.ID, Quantity: 2},
	}))
	require.NoError(suite.T(), err)

	order, err := suite.service.UpdateOrderStatus(resp.OrderID, models.OrderStatusCancelled)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.OrderStatusCancelled, order.Status)

	var pAfter models.Product
	require.NoError(suite.T(), suite.db.First(&pAfter, "id = ?", p.ID).Error)
	assert.Equal(suite.T(), 5, pAfter.Stock)
}

func (suite *OrderServiceTestSuite) TestCancelledOrderIsTerminal() {
	p := suite.createProduct("Widget", 1000, 5)
	resp, err := suite.service.PlaceOrder(suite.placeRequest([]OrderItemRequest{
		{ProductID: p.ID, Quantity: 1},
	}))
	require.NoError(suite.T(), err)

	_, err = suite.service.UpdateOrderStatus(resp.OrderID, models.OrderStatusCancelled)
	require.NoError(suite.T(), err)

	_, err = suite.service.UpdateOrderStatus(resp.OrderID, models.OrderStatusProcessing)
	assert.ErrorIs(suite.T(), err, ErrInvalidTransition)

	// Stock was restored exactly once.
	var pAfter models.Product
	require.NoError(suite.T(), suite.db.First(&pAfter, "id = ?", p.ID).Error)
	assert.Equal(suite.T(), 5, pAfter.Stock)
}

func (suite *OrderServiceTestSuite) TestDeliveredCODOrderSettlesPayment() {
	p := suite.createProduct("Widget", 1000, 5)
	resp, err := suite.service.PlaceOrder(suite.placeRequest([]OrderItemRequest{
		{ProductID: p.ID, Quantity: 1},
	}))
	require.NoError(suite.T(), err)

	order, err := suite.service.UpdateOrderStatus(resp.OrderID, models.OrderStatusDelivered)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.PaymentStatusCompleted, order.PaymentStatus)

	var payment models.Payment
	require.NoError(suite.T(), suite.db.First(&payment, "order_id = ?", order.ID).Error)
	assert.Equal(suite.T(), models.PaymentStatusCompleted, payment.Status)
}

func (suite *OrderServiceTestSuite) TestUpdateOrderStatusRejectsUnknownStatus() {
	p := suite.createProduct("Widget", 1000, 5)
	resp, err := suite.service.PlaceOrder(suite.placeRequest([]OrderItemRequest{
		{ProductID: p.ID, Quantity: 1},
	}))
	require.NoError(suite.T(), err)

	_, err = suite.service.UpdateOrderStatus(resp.OrderID, models.OrderStatus("MISPLACED"))
	assert.ErrorIs(suite.T(), err, ErrInvalidTransition)
}

func (suite *OrderServiceTestSuite) TestPlaceOrderRejectsEmptyAndDuplicates() {
	_, err := suite.service.PlaceOrder(suite.placeRequest(nil))
	assert.ErrorIs(suite.T(), err, ErrEmptyOrder)

	p := suite.createProduct("Widget", 1000, 5)
	_, err = suite.service.PlaceOrder(suite.placeRequest([]OrderItemRequest{
		{ProductID: p.ID, Quantity: 1},
		{ProductID: p.ID, Quantity: 2},
	}))
	assert.Error(suite.T(), err)
}

func (suite *OrderServiceTestSuite) TestTrackOrderRequiresMatchingEmail() {
	p := suite.createProduct("Widget", 1000, 5)
	resp, err := suite.service.PlaceOrder(suite.placeRequest([]OrderItemRequest{
		{ProductID: p.ID, Quantity: 1},
	}))
	require.NoError(suite.T(), err)

	order, err := suite.service.GetOrderByNumber(resp.OrderNumber, "PAT@example.com")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), resp.OrderID, order.ID)

	_, err = suite.service.GetOrderByNumber(resp.OrderNumber, "someone-else@example.com")
	assert.ErrorIs(suite.T(), err, ErrOrderNotFound)
}

func TestOrderServiceTestSuite(t *testing.T) {
	suite.Run(t, new(OrderServiceTestSuite))
}
