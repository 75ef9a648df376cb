// internal/services/authorization_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/groundfund/groundfund-backend/internal/apperrors"
	"github.com/groundfund/groundfund-backend/internal/models"
)

// AuthorizationService is the single gate every state transition consults.
// Helpers take the caller's transaction handle so the check and the write
// see the same snapshot. Every refusal is a DenyError carrying one of the
// fixed reasons; callers surface it verbatim.
type AuthorizationService struct {
	db *gorm.DB
}

func NewAuthorizationService(db *gorm.DB) *AuthorizationService {
	return &AuthorizationService{db: db}
}

// GetUser loads a user inside tx, returning NotFound for unknown IDs.
func (s *AuthorizationService) GetUser(tx *gorm.DB, userID uuid.UUID) (*models.User, error) {
	if tx == nil {
		tx = s.db
	}
	var user models.User
	if err := tx.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFoundf("user %s", userID)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &user, nil
}

// RequireRole denies with wrong_role when the user is not of the given role.
func (s *AuthorizationService) RequireRole(user *models.User, role models.UserRole) error {
	if user.Role != role {
		return apperrors.Deny(apperrors.DenyWrongRole, fmt.Sprintf("requires role %s", role))
	}
	return nil
}

// RequireApprovedFunder checks role before approval so the caller learns
// the most specific refusal first.
func (s *AuthorizationService) RequireApprovedFunder(user *models.User) error {
	if err := s.RequireRole(user, models.RoleFunder); err != nil {
		return err
	}
	if !user.Approved {
		return apperrors.Deny(apperrors.DenyUnapproved, "account awaiting approval")
	}
	return nil
}

// RequireActiveSubscription permits initiating new engagements. Only the
// active status qualifies; pending_cancellation does not.
func (s *AuthorizationService) RequireActiveSubscription(user *models.User) error {
	if user.SubscriptionStatus != models.SubscriptionActive {
		return apperrors.Deny(apperrors.DenySubscriptionInactive,
			fmt.Sprintf("subscription is %s", user.SubscriptionStatus))
	}
	return nil
}

// RequireUsableSubscription permits using access already granted. A
// subscription pending cancellation still qualifies until period end.
func (s *AuthorizationService) RequireUsableSubscription(user *models.User) error {
	if !user.CanUseExistingAccess() {
		return apperrors.Deny(apperrors.DenySubscriptionInactive,
			fmt.Sprintf("subscription is %s", user.SubscriptionStatus))
	}
	return nil
}

// RequireProjectOwner loads the project inside tx and denies with not_owner
// unless userID owns it.
func (s *AuthorizationService) RequireProjectOwner(tx *gorm.DB, projectID, userID uuid.UUID) (*models.Project, error) {
	if tx == nil {
		tx = s.db
	}
	var project models.Project
	if err := tx.First(&project, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFoundf("project %s", projectID)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	if project.BorrowerID != userID {
		return nil, apperrors.Deny(apperrors.DenyNotOwner, "project belongs to another borrower")
	}
	return &project, nil
}

// RequireDealParticipant loads the deal inside tx and denies with
// not_participant unless userID is one of its two parties.
func (s *AuthorizationService) RequireDealParticipant(tx *gorm.DB, dealID, userID uuid.UUID) (*models.Deal, error) {
	if tx == nil {
		tx = s.db
	}
	var deal models.Deal
	if err := tx.First(&deal, dealID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFoundf("deal %s", dealID)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	if !deal.Participant(userID) {
		return nil, apperrors.Deny(apperrors.DenyNotParticipant, "deal belongs to other parties")
	}
	return &deal, nil
}
