// internal/handlers/access_request.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/groundfund/groundfund-backend/internal/i18n"
	"github.com/groundfund/groundfund-backend/internal/models"
	"github.com/groundfund/groundfund-backend/internal/services"
	"github.com/groundfund/groundfund-backend/internal/utils"
)

type AccessRequestHandler struct {
	accessRequestService *services.AccessRequestService
}

func NewAccessRequestHandler(accessRequestService *services.AccessRequestService) *AccessRequestHandler {
	return &AccessRequestHandler{
		accessRequestService: accessRequestService,
	}
}

// POST /projects/:id/access-requests
func (h *AccessRequestHandler) Create(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid project ID", nil)
		return
	}

	var req services.CreateAccessRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
			return
		}
	}

	request, err := h.accessRequestService.Create(projectID, userID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":        i18n.T(lang, i18n.KeyAccessRequestCreated),
		"access_request": request,
	})
}

// PUT /access-requests/:id/approve
func (h *AccessRequestHandler) Approve(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid access request ID", nil)
		return
	}

	request, err := h.accessRequestService.Approve(requestID, userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":        i18n.T(lang, i18n.KeyAccessRequestApproved),
		"access_request": request,
	})
}

// PUT /access-requests/:id/decline
func (h *AccessRequestHandler) Decline(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid access request ID", nil)
		return
	}

	var req services.DeclineAccessRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
			return
		}
	}

	request, err := h.accessRequestService.Decline(requestID, userID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":        i18n.T(lang, i18n.KeyAccessRequestDeclined),
		"access_request": request,
	})
}

// PUT /access-requests/:id/withdraw
func (h *AccessRequestHandler) Withdraw(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid access request ID", nil)
		return
	}

	request, err := h.accessRequestService.Withdraw(requestID, userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":        i18n.T(lang, i18n.KeyAccessRequestWithdrawn),
		"access_request": request,
	})
}

// GET /access-requests/:id
func (h *AccessRequestHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid access request ID", nil)
		return
	}

	request, err := h.accessRequestService.GetAccessRequest(requestID, userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"access_request": request})
}

// GET /access-requests (funder's own)
func (h *AccessRequestHandler) ListOwn(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	params := h.searchParams(c)
	requests, total, err := h.accessRequestService.ListForFunder(userID, params)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	result := utils.CreatePaginationResult(requests, total, params.PaginationParams)
	utils.PaginatedResponse(c, result)
}

// GET /projects/:id/access-requests (borrower)
func (h *AccessRequestHandler) ListForProject(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid project ID", nil)
		return
	}

	params := h.searchParams(c)
	requests, total, err := h.accessRequestService.ListForProject(projectID, userID, params)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	result := utils.CreatePaginationResult(requests, total, params.PaginationParams)
	utils.PaginatedResponse(c, result)
}

func (h *AccessRequestHandler) searchParams(c *gin.Context) services.AccessRequestSearchParams {
	params := services.AccessRequestSearchParams{
		PaginationParams: utils.GetPaginationParams(c),
	}
	if status := c.Query("status"); status != "" {
		s := models.AccessRequestStatus(status)
		params.Status = &s
	}
	return params
}
