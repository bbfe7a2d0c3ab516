// internal/models/order.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type Order struct {
	BaseModel
	OrderNumber string `json:"order_number" gorm:"uniqueIndex;size:32;not null"`
	// Nullable: guest checkout leaves the order unlinked.
	UserID *uuid.UUID `json:"user_id" gorm:"type:uuid;index"`

	CustomerName  string `json:"customer_name" gorm:"size:255;not null"`
	CustomerEmail string `json:"customer_email" gorm:"size:255;not null;index"`
	CustomerPhone string `json:"customer_phone" gorm:"size:30;not null"`

	ShippingAddress string `json:"shipping_address" gorm:"size:512;not null"`
	ShippingCity    string `json:"shipping_city" gorm:"size:100;not null"`
	ShippingState   string `json:"shipping_state" gorm:"size:100"`
	ShippingZip     string `json:"shipping_zip" gorm:"size:20;not null"`
	ShippingCountry string `json:"shipping_country" gorm:"size:100;not null"`

	// All amounts in minor currency units.
	// Total = Subtotal + ShippingFee + CODFee - Discount.
	Subtotal    int64 `json:"subtotal" gorm:"not null"`
	ShippingFee int64 `json:"shipping_fee" gorm:"not null"`
	CODFee      int64 `json:"cod_fee" gorm:"not null;default:0"`
	Discount    int64 `json:"discount" gorm:"not null;default:0"`
	Total       int64 `json:"total" gorm:"not null"`

	Status            OrderStatus   `json:"status" gorm:"type:varchar(20);default:'PENDING';index"`
	PaymentStatus     PaymentStatus `json:"payment_status" gorm:"type:varchar(20);default:'PENDING'"`
	PaymentMethod     PaymentMethod `json:"payment_method" gorm:"type:varchar(20);not null"`
	EstimatedDelivery *time.Time    `json:"estimated_delivery"`

	// Relationships
	User    *User       `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Items   []OrderItem `json:"items,omitempty" gorm:"foreignKey:OrderID"`
	Payment *Payment    `json:"payment,omitempty" gorm:"foreignKey:OrderID"`
}

// OrderItem is an immutable snapshot of a product at order time. Later
// product price changes never affect persisted line totals.
type OrderItem struct {
	BaseModel
	OrderID     uuid.UUID `json:"order_id" gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID `json:"product_id" gorm:"type:uuid;not null;index"`
	ProductName string    `json:"product_name" gorm:"size:255;not null"`
	UnitPrice   int64     `json:"unit_price" gorm:"not null"`
	Quantity    int       `json:"quantity" gorm:"not null"`
	LineTotal   int64     `json:"line_total" gorm:"not null"`

	Product Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

type Payment struct {
	BaseModel
	OrderID   uuid.UUID     `json:"order_id" gorm:"type:uuid;uniqueIndex;not null"`
	Amount    int64         `json:"amount" gorm:"not null"`
	Currency  string        `json:"currency" gorm:"size:3;not null"`
	Method    PaymentMethod `json:"method" gorm:"type:varchar(20);not null"`
	Status    PaymentStatus `json:"status" gorm:"type:varchar(20);default:'PENDING'"`
	Reference string        `json:"reference,omitempty" gorm:"size:255"`
}
