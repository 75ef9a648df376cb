// internal/services/subscription_service.go
package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"gorm.io/gorm"

	"github.com/groundfund/groundfund-backend/internal/apperrors"
	"github.com/groundfund/groundfund-backend/internal/config"
	"github.com/groundfund/groundfund-backend/internal/models"
	"github.com/groundfund/groundfund-backend/internal/utils"
)

// SubscriptionService runs the funder subscription state machine. It only
// exposes the transitions; the expiry sweep is driven by the cron host in
// cmd/server.
type SubscriptionService struct {
	db                  *gorm.DB
	config              *config.Config
	authz               *AuthorizationService
	notificationService *NotificationService
}

type ActivateSubscriptionRequest struct {
	PaymentIntentID string `json:"payment_intent_id" validate:"required"`
}

type SubscriptionStatusResponse struct {
	Status  models.SubscriptionStatus `json:"status"`
	EndDate *time.Time                `json:"end_date,omitempty"`
}

type CheckoutResponse struct {
	ClientSecret    string  `json:"client_secret,omitempty"`
	PaymentIntentID string  `json:"payment_intent_id"`
	Amount          float64 `json:"amount"`
}

func NewSubscriptionService(db *gorm.DB, config *config.Config, authz *AuthorizationService, notificationService *NotificationService) *SubscriptionService {
	return &SubscriptionService{
		db:                  db,
		config:              config,
		authz:               authz,
		notificationService: notificationService,
	}
}

// StartCheckout creates the gateway payment intent for the subscription
// fee. Without a configured gateway it returns a locally generated intent
// id so the confirmation flow still works in development.
func (s *SubscriptionService) StartCheckout(funderID uuid.UUID) (*CheckoutResponse, error) {
	funder, err := s.authz.GetUser(nil, funderID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.RequireApprovedFunder(funder); err != nil {
		return nil, err
	}

	amount := s.config.Payment.SubscriptionFee

	if s.config.Payment.StripeSecretKey == "" {
		return &CheckoutResponse{
			PaymentIntentID: fmt.Sprintf("pi_local_%s", uuid.New().String()[:8]),
			Amount:          amount,
		}, nil
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(int64(amount * 100)),
		Currency: stripe.String("gbp"),
	}
	params.AddMetadata("user_id", funderID.String())
	params.AddMetadata("purpose", "subscription")

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	return &CheckoutResponse{
		ClientSecret:    pi.ClientSecret,
		PaymentIntentID: pi.ID,
		Amount:          amount,
	}, nil
}

// Activate applies the gateway confirmation: inactive or cancelled becomes
// active, pending_cancellation renews to active. The period end moves out
// by the configured subscription length.
func (s *SubscriptionService) Activate(funderID uuid.UUID, req *ActivateSubscriptionRequest) (*models.User, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if s.config.Payment.StripeSecretKey != "" {
		pi, err := paymentintent.Get(req.PaymentIntentID, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to verify payment intent: %w", err)
		}
		if pi.Status != stripe.PaymentIntentStatusSucceeded {
			return nil, apperrors.Preconditionf("payment intent %s is %s", pi.ID, pi.Status)
		}
	}

	var funder *models.User
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		funder, err = s.authz.GetUser(tx, funderID)
		if err != nil {
			return err
		}
		if err := s.authz.RequireApprovedFunder(funder); err != nil {
			return err
		}

		if funder.SubscriptionStatus == models.SubscriptionActive {
			return apperrors.InvalidStatef("subscription is already active")
		}

		endDate := time.Now().AddDate(0, 0, s.config.Payment.SubscriptionDays)
		funder.SubscriptionStatus = models.SubscriptionActive
		funder.SubscriptionEndDate = &endDate
		if err := tx.Save(funder).Error; err != nil {
			return fmt.Errorf("failed to activate subscription: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	go s.notificationService.NotifySubscriptionActivated(funder)

	return funder, nil
}

// Cancel moves active to pending_cancellation. Access continues until the
// sweep cancels at period end.
func (s *SubscriptionService) Cancel(funderID uuid.UUID) (*models.User, error) {
	var funder *models.User
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		funder, err = s.authz.GetUser(tx, funderID)
		if err != nil {
			return err
		}
		if err := s.authz.RequireRole(funder, models.RoleFunder); err != nil {
			return err
		}

		if funder.SubscriptionStatus != models.SubscriptionActive {
			return apperrors.InvalidStatef("subscription is %s", funder.SubscriptionStatus)
		}

		funder.SubscriptionStatus = models.SubscriptionPendingCancellation
		if err := tx.Save(funder).Error; err != nil {
			return fmt.Errorf("failed to cancel subscription: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return funder, nil
}

// ExpireDue finishes cancellations whose period has ended. Called by the
// external scheduler; returns how many subscriptions it closed.
func (s *SubscriptionService) ExpireDue(now time.Time) (int64, error) {
	res := s.db.Model(&models.User{}).
		Where("subscription_status = ? AND subscription_end_date <= ?",
			models.SubscriptionPendingCancellation, now).
		Update("subscription_status", models.SubscriptionCancelled)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to expire subscriptions: %w", res.Error)
	}

	if res.RowsAffected > 0 {
		logrus.WithField("count", res.RowsAffected).Info("Expired subscriptions")
	}

	return res.RowsAffected, nil
}

func (s *SubscriptionService) Status(funderID uuid.UUID) (*SubscriptionStatusResponse, error) {
	funder, err := s.authz.GetUser(nil, funderID)
	if err != nil {
		return nil, err
	}

	return &SubscriptionStatusResponse{
		Status:  funder.SubscriptionStatus,
		EndDate: funder.SubscriptionEndDate,
	}, nil
}
