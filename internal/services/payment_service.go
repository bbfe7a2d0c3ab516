// internal/services/payment_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"gorm.io/gorm"

	"github.com/shoplane/storefront-backend/internal/config"
	"github.com/shoplane/storefront-backend/internal/models"
)

var ErrPaymentNotConfigured = errors.New("online payments are not configured")

type PaymentService struct {
	db     *gorm.DB
	config *config.Config
}

type PaymentIntentResponse struct {
	ClientSecret string `json:"client_secret"`
	PaymentID    string `json:"payment_id"`
	Status       string `json:"status"`
}

func NewPaymentService(db *gorm.DB, cfg *config.Config) *PaymentService {
	if cfg.Checkout.StripeSecretKey != "" {
		stripe.Key = cfg.Checkout.StripeSecretKey
	}
	return &PaymentService{db: db, config: cfg}
}

// CreatePaymentIntentForOrder opens a Stripe payment intent for an order
// placed with the ONLINE method. COD orders never reach this path.
func (s *PaymentService) CreatePaymentIntentForOrder(orderID uuid.UUID) (*PaymentIntentResponse, error) {
	if s.config.Checkout.StripeSecretKey == "" {
		return nil, ErrPaymentNotConfigured
	}

	var order models.Order
	if err := s.db.First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	if order.PaymentMethod != models.PaymentMethodOnline {
		return nil, fmt.Errorf("order %s is not an online payment order", order.OrderNumber)
	}
	if order.PaymentStatus == models.PaymentStatusCompleted {
		return nil, fmt.Errorf("order %s is already paid", order.OrderNumber)
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(order.Total),
		Currency: stripe.String(s.config.Checkout.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata("order_id", order.ID.String())
	params.AddMetadata("order_number", order.OrderNumber)

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	if err := s.db.Model(&models.Payment{}).
		Where("order_id = ?", order.ID).
		Update("reference", pi.ID).Error; err != nil {
		return nil, err
	}

	return &PaymentIntentResponse{
		ClientSecret: pi.ClientSecret,
		PaymentID:    pi.ID,
		Status:       string(pi.Status),
	}, nil
}

// ConfirmPayment verifies a payment intent with Stripe and marks the order
// paid when the charge succeeded.
func (s *PaymentService) ConfirmPayment(paymentIntentID string) (*models.Order, error) {
	if s.config.Checkout.StripeSecretKey == "" {
		return nil, ErrPaymentNotConfigured
	}

	pi, err := paymentintent.Get(paymentIntentID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve payment intent: %w", err)
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return nil, fmt.Errorf("payment not completed, status: %s", pi.Status)
	}

	var payment models.Payment
	if err := s.db.First(&payment, "reference = ?", paymentIntentID).Error; err != nil {
		return nil, ErrOrderNotFound
	}

	var order models.Order
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&payment).Update("status", models.PaymentStatusCompleted).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Order{}).
			Where("id = ?", payment.OrderID).
			Updates(map[string]interface{}{
				"payment_status": models.PaymentStatusCompleted,
				"status":         models.OrderStatusProcessing,
			}).Error; err != nil {
			return err
		}
		return tx.Preload("Items").First(&order, "id = ?", payment.OrderID).Error
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}
