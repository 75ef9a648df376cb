// internal/services/access_request_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/groundfund/groundfund-backend/internal/apperrors"
	"github.com/groundfund/groundfund-backend/internal/database"
	"github.com/groundfund/groundfund-backend/internal/models"
	"github.com/groundfund/groundfund-backend/internal/utils"
)

// AccessRequestService runs the per-(funder, project) request state
// machine. The one-active-request invariant rests on the partial unique
// index over (funder_id, project_id), never on a check-then-insert.
type AccessRequestService struct {
	db                  *gorm.DB
	authz               *AuthorizationService
	notificationService *NotificationService
}

type CreateAccessRequest struct {
	InitialMessage string `json:"initial_message,omitempty" validate:"max=2000"`
}

type DeclineAccessRequest struct {
	Note string `json:"note,omitempty" validate:"max=2000"`
}

type AccessRequestSearchParams struct {
	utils.PaginationParams
	ProjectID *uuid.UUID                  `json:"project_id,omitempty"`
	Status    *models.AccessRequestStatus `json:"status,omitempty"`
}

func NewAccessRequestService(db *gorm.DB, authz *AuthorizationService, notificationService *NotificationService) *AccessRequestService {
	return &AccessRequestService{
		db:                  db,
		authz:               authz,
		notificationService: notificationService,
	}
}

// Create opens a pending request. An unpaid target fails the precondition
// for every funder, whatever their approval or subscription standing; the
// identity checks come after so the caller always learns about the project
// first.
func (s *AccessRequestService) Create(projectID, funderID uuid.UUID, req *CreateAccessRequest) (*models.AccessRequest, error) {
	// The body is optional; nil means no initial message.
	if req == nil {
		req = &CreateAccessRequest{}
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var request *models.AccessRequest
	err := s.db.Transaction(func(tx *gorm.DB) error {
		funder, err := s.authz.GetUser(tx, funderID)
		if err != nil {
			return err
		}
		if err := s.authz.RequireRole(funder, models.RoleFunder); err != nil {
			return err
		}

		var project models.Project
		if err := tx.First(&project, projectID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFoundf("project %s", projectID)
			}
			return fmt.Errorf("database error: %w", err)
		}
		if project.PaymentStatus != models.PaymentStatusPaid {
			return apperrors.Preconditionf("project is not published")
		}

		if !funder.Approved {
			return apperrors.Deny(apperrors.DenyUnapproved, "account awaiting approval")
		}
		if err := s.authz.RequireActiveSubscription(funder); err != nil {
			return err
		}

		request = &models.AccessRequest{
			ProjectID:      projectID,
			FunderID:       funderID,
			Status:         models.AccessRequestPending,
			InitialMessage: req.InitialMessage,
			RequestedAt:    time.Now(),
		}
		if err := tx.Create(request).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return apperrors.Conflictf("an active access request already exists for this project")
			}
			return fmt.Errorf("failed to create access request: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.db.Preload("Project").Preload("Funder").First(request, request.ID)

	go s.notificationService.NotifyAccessRequestReceived(request)

	return request, nil
}

// Approve transitions pending → approved. Only the project's owning
// borrower may decide, and only once.
func (s *AccessRequestService) Approve(requestID, borrowerID uuid.UUID) (*models.AccessRequest, error) {
	request, err := s.decide(requestID, borrowerID, func(r *models.AccessRequest) {
		now := time.Now()
		r.Status = models.AccessRequestApproved
		r.ApprovedAt = &now
	})
	if err != nil {
		return nil, err
	}

	go s.notificationService.NotifyAccessRequestApproved(request)

	return request, nil
}

// Decline transitions pending → declined. Terminal.
func (s *AccessRequestService) Decline(requestID, borrowerID uuid.UUID, req *DeclineAccessRequest) (*models.AccessRequest, error) {
	if req != nil {
		if err := utils.ValidateStruct(req); err != nil {
			return nil, fmt.Errorf("validation failed: %w", err)
		}
	}

	request, err := s.decide(requestID, borrowerID, func(r *models.AccessRequest) {
		now := time.Now()
		r.Status = models.AccessRequestDeclined
		r.DeclinedAt = &now
		if req != nil {
			r.DecisionNote = req.Note
		}
	})
	if err != nil {
		return nil, err
	}

	go s.notificationService.NotifyAccessRequestDeclined(request)

	return request, nil
}

func (s *AccessRequestService) decide(requestID, borrowerID uuid.UUID, apply func(*models.AccessRequest)) (*models.AccessRequest, error) {
	var request models.AccessRequest
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Project").First(&request, requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFoundf("access request %s", requestID)
			}
			return fmt.Errorf("database error: %w", err)
		}

		if request.Project.BorrowerID != borrowerID {
			return apperrors.Deny(apperrors.DenyNotOwner, "project belongs to another borrower")
		}

		if request.Status != models.AccessRequestPending {
			return apperrors.InvalidStatef("access request is %s", request.Status)
		}

		apply(&request)
		if err := tx.Save(&request).Error; err != nil {
			return fmt.Errorf("failed to update access request: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.db.Preload("Project").Preload("Funder").First(&request, request.ID)

	return &request, nil
}

// Withdraw lets the requesting funder retract a still-pending request,
// freeing the uniqueness slot for a later re-request.
func (s *AccessRequestService) Withdraw(requestID, funderID uuid.UUID) (*models.AccessRequest, error) {
	var request models.AccessRequest
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&request, requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFoundf("access request %s", requestID)
			}
			return fmt.Errorf("database error: %w", err)
		}

		if request.FunderID != funderID {
			return apperrors.Deny(apperrors.DenyNotParticipant, "request belongs to another funder")
		}

		if request.Status != models.AccessRequestPending {
			return apperrors.InvalidStatef("access request is %s", request.Status)
		}

		now := time.Now()
		request.Status = models.AccessRequestWithdrawn
		request.WithdrawnAt = &now
		if err := tx.Save(&request).Error; err != nil {
			return fmt.Errorf("failed to withdraw access request: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (s *AccessRequestService) GetAccessRequest(requestID, userID uuid.UUID) (*models.AccessRequest, error) {
	var request models.AccessRequest
	if err := s.db.Preload("Project").Preload("Funder").Preload("Deal").First(&request, requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFoundf("access request %s", requestID)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if request.FunderID != userID && request.Project.BorrowerID != userID {
		user, err := s.authz.GetUser(nil, userID)
		if err != nil {
			return nil, err
		}
		if err := s.authz.RequireRole(user, models.RoleAdmin); err != nil {
			return nil, apperrors.Deny(apperrors.DenyNotParticipant, "access request belongs to other parties")
		}
	}

	return &request, nil
}

// ListForFunder returns the funder's own requests.
func (s *AccessRequestService) ListForFunder(funderID uuid.UUID, params AccessRequestSearchParams) ([]models.AccessRequest, int64, error) {
	query := s.db.Model(&models.AccessRequest{}).
		Where("funder_id = ?", funderID).
		Preload("Project")

	return s.list(query, params)
}

// ListForProject returns all requests against one of the borrower's
// projects.
func (s *AccessRequestService) ListForProject(projectID, borrowerID uuid.UUID, params AccessRequestSearchParams) ([]models.AccessRequest, int64, error) {
	if _, err := s.authz.RequireProjectOwner(nil, projectID, borrowerID); err != nil {
		return nil, 0, err
	}

	query := s.db.Model(&models.AccessRequest{}).
		Where("project_id = ?", projectID).
		Preload("Funder")

	return s.list(query, params)
}

func (s *AccessRequestService) list(query *gorm.DB, params AccessRequestSearchParams) ([]models.AccessRequest, int64, error) {
	if params.ProjectID != nil {
		query = query.Where("project_id = ?", *params.ProjectID)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count access requests: %w", err)
	}

	allowedSortFields := []string{"requested_at", "created_at", "status"}
	query = utils.ApplySort(query, params.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, params.PaginationParams)

	var requests []models.AccessRequest
	if err := query.Find(&requests).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch access requests: %w", err)
	}

	return requests, total, nil
}
