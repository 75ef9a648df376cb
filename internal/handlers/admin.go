// internal/handlers/admin.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/groundfund/groundfund-backend/internal/i18n"
	"github.com/groundfund/groundfund-backend/internal/models"
	"github.com/groundfund/groundfund-backend/internal/services"
	"github.com/groundfund/groundfund-backend/internal/utils"
)

type AdminHandler struct {
	adminService *services.AdminService
}

func NewAdminHandler(adminService *services.AdminService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
	}
}

// PUT /admin/users/:id/approve
func (h *AdminHandler) ApproveFunder(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid user ID", nil)
		return
	}

	user, err := h.adminService.ApproveFunder(userID, adminID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyUserFunderApproved),
		"user":    user,
	})
}

// GET /admin/users
func (h *AdminHandler) ListUsers(c *gin.Context) {
	params := services.UserSearchParams{
		PaginationParams: utils.GetPaginationParams(c),
		Search:           c.Query("search"),
	}

	if role := c.Query("role"); role != "" {
		r := models.UserRole(role)
		params.Role = &r
	}
	if approvedStr := c.Query("approved"); approvedStr != "" {
		if approved, err := strconv.ParseBool(approvedStr); err == nil {
			params.Approved = &approved
		}
	}

	users, total, err := h.adminService.ListUsers(params)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	result := utils.CreatePaginationResult(users, total, params.PaginationParams)
	utils.PaginatedResponse(c, result)
}

// GET /admin/projects/pending-review
func (h *AdminHandler) ListProjectsPendingReview(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	projects, total, err := h.adminService.ListProjectsPendingReview(params)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	result := utils.CreatePaginationResult(projects, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /admin/dashboard
func (h *AdminHandler) GetDashboardStats(c *gin.Context) {
	stats, err := h.adminService.GetDashboardStats()
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"stats": stats})
}

// GET /admin/audit-logs
func (h *AdminHandler) ListAuditLogs(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	logs, total, err := h.adminService.ListAuditLogs(params)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	result := utils.CreatePaginationResult(logs, total, params)
	utils.PaginatedResponse(c, result)
}
