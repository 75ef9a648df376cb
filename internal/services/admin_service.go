// internal/services/admin_service.go
package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/groundfund/groundfund-backend/internal/apperrors"
	"github.com/groundfund/groundfund-backend/internal/models"
	"github.com/groundfund/groundfund-backend/internal/utils"
)

type AdminService struct {
	db                  *gorm.DB
	authz               *AuthorizationService
	notificationService *NotificationService
}

type UserSearchParams struct {
	utils.PaginationParams
	Role     *models.UserRole `json:"role,omitempty"`
	Approved *bool            `json:"approved,omitempty"`
	Search   string           `json:"search,omitempty"`
}

type DashboardStats struct {
	TotalUsers        int64 `json:"total_users"`
	PendingFunders    int64 `json:"pending_funders"`
	TotalProjects     int64 `json:"total_projects"`
	PublishedProjects int64 `json:"published_projects"`
	ActiveDeals       int64 `json:"active_deals"`
	OpenRequests      int64 `json:"open_requests"`
}

func NewAdminService(db *gorm.DB, authz *AuthorizationService, notificationService *NotificationService) *AdminService {
	return &AdminService{
		db:                  db,
		authz:               authz,
		notificationService: notificationService,
	}
}

// ApproveFunder is the single mutator of the approved flag. Idempotence is
// rejected loudly so a double-click surfaces as InvalidState rather than a
// silent re-approval.
func (s *AdminService) ApproveFunder(userID, adminID uuid.UUID) (*models.User, error) {
	var user *models.User
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		user, err = s.authz.GetUser(tx, userID)
		if err != nil {
			return err
		}
		if err := s.authz.RequireRole(user, models.RoleFunder); err != nil {
			return err
		}
		if user.Approved {
			return apperrors.InvalidStatef("funder is already approved")
		}

		now := time.Now()
		user.Approved = true
		user.ApprovedAt = &now
		if err := tx.Save(user).Error; err != nil {
			return fmt.Errorf("failed to approve funder: %w", err)
		}

		auditLog := &models.AuditLog{
			UserID:       &adminID,
			Action:       "user.approve_funder",
			ResourceType: "user",
			ResourceID:   &user.ID,
		}
		if err := tx.Create(auditLog).Error; err != nil {
			return fmt.Errorf("failed to create audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	go s.notificationService.NotifyFunderApproved(user)

	return user, nil
}

func (s *AdminService) ListUsers(params UserSearchParams) ([]models.User, int64, error) {
	query := s.db.Model(&models.User{})

	if params.Role != nil {
		query = query.Where("role = ?", *params.Role)
	}
	if params.Approved != nil {
		query = query.Where("approved = ?", *params.Approved)
	}
	if params.Search != "" {
		search := "%" + params.Search + "%"
		query = query.Where("username ILIKE ? OR email ILIKE ?", search, search)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	allowedSortFields := []string{"created_at", "username", "email", "role"}
	query = utils.ApplySort(query, params.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, params.PaginationParams)

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch users: %w", err)
	}

	return users, total, nil
}

// ListProjectsPendingReview surfaces drafts whose documents are complete:
// the listings most likely to publish next.
func (s *AdminService) ListProjectsPendingReview(params utils.PaginationParams) ([]models.Project, int64, error) {
	query := s.db.Model(&models.Project{}).
		Where("payment_status = ? AND documents_complete = ?", models.PaymentStatusUnpaid, true).
		Preload("Borrower")

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count projects: %w", err)
	}

	allowedSortFields := []string{"created_at", "updated_at", "title"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var projects []models.Project
	if err := query.Find(&projects).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch projects: %w", err)
	}

	return projects, total, nil
}

func (s *AdminService) GetDashboardStats() (*DashboardStats, error) {
	stats := &DashboardStats{}

	s.db.Model(&models.User{}).Count(&stats.TotalUsers)
	s.db.Model(&models.User{}).
		Where("role = ? AND approved = ?", models.RoleFunder, false).
		Count(&stats.PendingFunders)
	s.db.Model(&models.Project{}).Count(&stats.TotalProjects)
	s.db.Model(&models.Project{}).
		Where("payment_status = ?", models.PaymentStatusPaid).
		Count(&stats.PublishedProjects)
	s.db.Model(&models.Deal{}).
		Where("status = ?", models.DealStatusActive).
		Count(&stats.ActiveDeals)
	s.db.Model(&models.AccessRequest{}).
		Where("status = ?", models.AccessRequestPending).
		Count(&stats.OpenRequests)

	return stats, nil
}

// ListAuditLogs exposes the audit trail recorded by the middleware and the
// state transitions.
func (s *AdminService) ListAuditLogs(params utils.PaginationParams) ([]models.AuditLog, int64, error) {
	query := s.db.Model(&models.AuditLog{}).Preload("User")

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count audit logs: %w", err)
	}

	allowedSortFields := []string{"created_at", "action"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var logs []models.AuditLog
	if err := query.Find(&logs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch audit logs: %w", err)
	}

	return logs, total, nil
}
