// internal/services/admin_service.go
package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/shoplane/storefront-backend/internal/models"
)

type AdminService struct {
	db *gorm.DB
}

type DashboardStats struct {
	TotalRevenue   int64            `json:"total_revenue"`
	TotalOrders    int64            `json:"total_orders"`
	TotalUsers     int64            `json:"total_users"`
	TotalProducts  int64            `json:"total_products"`
	PendingOrders  int64            `json:"pending_orders"`
	OrdersByStatus map[string]int64 `json:"orders_by_status"`
	RevenueByDay   []RevenuePoint   `json:"revenue_by_day"`
	TopProducts    []TopProduct     `json:"top_products"`
	LowStock       []models.Product `json:"low_stock"`
	// Revenue in the window vs the window before it, as a percentage.
	RevenueGrowth float64                `json:"revenue_growth"`
	Meta          map[string]interface{} `json:"meta,omitempty"`
}

type RevenuePoint struct {
	Date    string `json:"date"`
	Revenue int64  `json:"revenue"`
	Orders  int64  `json:"orders"`
}

type TopProduct struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	UnitsSold   int64  `json:"units_sold"`
	Revenue     int64  `json:"revenue"`
}

func NewAdminService(db *gorm.DB) *AdminService {
	return &AdminService{db: db}
}

// GetDashboardStats aggregates the admin dashboard in parallel. When any
// aggregate fails the whole dashboard degrades to a zeroed snapshot marked
// as a fallback, so the admin UI always renders.
func (s *AdminService) GetDashboardStats(ctx context.Context, days int) *DashboardStats {
	if days < 1 || days > 365 {
		days = 30
	}
	since := time.Now().AddDate(0, 0, -days)

	stats := &DashboardStats{
		OrdersByStatus: make(map[string]int64),
		RevenueByDay:   []RevenuePoint{},
		TopProducts:    []TopProduct{},
		LowStock:       []models.Product{},
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.db.WithContext(ctx).Model(&models.Order{}).
			Where("status <> ?", models.OrderStatusCancelled).
			Select("COALESCE(SUM(total), 0)").
			Scan(&stats.TotalRevenue).Error
	})

	g.Go(func() error {
		return s.db.WithContext(ctx).Model(&models.Order{}).Count(&stats.TotalOrders).Error
	})

	g.Go(func() error {
		return s.db.WithContext(ctx).Model(&models.User{}).Count(&stats.TotalUsers).Error
	})

	g.Go(func() error {
		return s.db.WithContext(ctx).Model(&models.Product{}).
			Where("is_active = ?", true).Count(&stats.TotalProducts).Error
	})

	g.Go(func() error {
		return s.db.WithContext(ctx).Model(&models.Order{}).
			Where("status = ?", models.OrderStatusPending).Count(&stats.PendingOrders).Error
	})

	var windowRevenue, priorRevenue int64
	g.Go(func() error {
		return s.db.WithContext(ctx).Model(&models.Order{}).
			Where("created_at >= ? AND status <> ?", since, models.OrderStatusCancelled).
			Select("COALESCE(SUM(total), 0)").
			Scan(&windowRevenue).Error
	})
	g.Go(func() error {
		prior := since.AddDate(0, 0, -days)
		return s.db.WithContext(ctx).Model(&models.Order{}).
			Where("created_at >= ? AND created_at < ? AND status <> ?", prior, since, models.OrderStatusCancelled).
			Select("COALESCE(SUM(total), 0)").
			Scan(&priorRevenue).Error
	})

	byStatus := make([]struct {
		Status string
		Count  int64
	}, 0)
	g.Go(func() error {
		return s.db.WithContext(ctx).Model(&models.Order{}).
			Select("status, COUNT(*) as count").
			Group("status").
			Scan(&byStatus).Error
	})

	g.Go(func() error {
		return s.db.WithContext(ctx).Model(&models.Order{}).
			Where("created_at >= ? AND status <> ?", since, models.OrderStatusCancelled).
			Select("DATE(created_at) as date, COALESCE(SUM(total), 0) as revenue, COUNT(*) as orders").
			Group("DATE(created_at)").
			Order("date ASC").
			Scan(&stats.RevenueByDay).Error
	})

	g.Go(func() error {
		return s.db.WithContext(ctx).Model(&models.OrderItem{}).
			Joins("JOIN orders ON orders.id = order_items.order_id").
			Where("orders.status <> ?", models.OrderStatusCancelled).
			Select("order_items.product_id, order_items.product_name, SUM(order_items.quantity) as units_sold, SUM(order_items.line_total) as revenue").
			Group("order_items.product_id, order_items.product_name").
			Order("units_sold DESC").
			Limit(5).
			Scan(&stats.TopProducts).Error
	})

	g.Go(func() error {
		return s.db.WithContext(ctx).
			Where("is_active = ? AND stock <= ?", true, 5).
			Order("stock ASC").
			Limit(10).
			Find(&stats.LowStock).Error
	})

	if err := g.Wait(); err != nil {
		logrus.WithError(err).Error("dashboard aggregation failed")
		return fallbackStats()
	}

	for _, row := range byStatus {
		stats.OrdersByStatus[row.Status] = row.Count
	}
	if priorRevenue > 0 {
		stats.RevenueGrowth = float64(windowRevenue-priorRevenue) / float64(priorRevenue) * 100
	}
	return stats
}

// fallbackStats is the all-zero snapshot served when aggregation fails.
func fallbackStats() *DashboardStats {
	return &DashboardStats{
		OrdersByStatus: make(map[string]int64),
		RevenueByDay:   []RevenuePoint{},
		TopProducts:    []TopProduct{},
		LowStock:       []models.Product{},
		Meta:           map[string]interface{}{"fallback": true},
	}
}
