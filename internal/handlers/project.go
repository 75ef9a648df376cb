// internal/handlers/project.go
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

type ProjectHandler struct {
	projectService *services.ProjectService
}

func NewProjectHandler(projectService *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
	}
}

// POST /projects
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	project, err := h.projectService.CreateProject(userID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyProjectCreated),
		"project": project,
	})
}

// PUT /projects/:id
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
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

	var req services.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	project, err := h.projectService.UpdateProject(projectID, userID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyProjectUpdated),
		"project": project,
	})
}

// GET /projects/:id
func (h *ProjectHandler) GetProject(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid project ID", nil)
		return
	}

	role, _ := utils.GetRoleFromContext(c)
	project, err := h.projectService.GetProject(projectID, userID, models.UserRole(role))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"project": project})
}

// GET /projects
func (h *ProjectHandler) SearchProjects(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	params := services.ProjectSearchParams{
		PaginationParams: utils.GetPaginationParams(c),
	}

	if stage := c.Query("stage"); stage != "" {
		s := models.DevelopmentStage(stage)
		params.Stage = &s
	}
	if location := c.Query("location"); location != "" {
		params.Location = &location
	}
	if minStr := c.Query("min_loan_amount"); minStr != "" {
		if min, err := strconv.ParseFloat(minStr, 64); err == nil {
			params.MinLoanAmount = &min
		}
	}
	if maxStr := c.Query("max_loan_amount"); maxStr != "" {
		if max, err := strconv.ParseFloat(maxStr, 64); err == nil {
			params.MaxLoanAmount = &max
		}
	}

	role, _ := utils.GetRoleFromContext(c)
	projects, total, err := h.projectService.SearchProjects(params, userID, models.UserRole(role))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	result := utils.CreatePaginationResult(projects, total, params.PaginationParams)
	utils.PaginatedResponse(c, result)
}

// POST /projects/:id/documents
func (h *ProjectHandler) UploadDocument(c *gin.Context) {
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

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		utils.BadRequestResponse(c, "file is required", nil)
		return
	}
	defer file.Close()

	documentType := c.PostForm("document_type")

	document, err := h.projectService.UploadDocument(projectID, userID, documentType, file, header)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyProjectDocumentAdded),
		"document": document,
	})
}

// POST /projects/:id/documents/analysis
func (h *ProjectHandler) ApplyDocumentAnalysis(c *gin.Context) {
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

	var updates []services.DocumentPresenceUpdate
	if err := c.ShouldBindJSON(&updates); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	project, err := h.projectService.ApplyDocumentAnalysis(projectID, userID, updates)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"project": project})
}

// POST /projects/:id/publish
func (h *ProjectHandler) PublishProject(c *gin.Context) {
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

	var req services.PublishProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	project, err := h.projectService.PublishProject(projectID, userID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyProjectPublished),
		"project": project,
	})
}

// POST /projects/:id/return-to-draft (admin)
func (h *ProjectHandler) ReturnToDraft(c *gin.Context) {
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

	var req services.ReturnToDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "reason"), err.Error())
		return
	}

	project, err := h.projectService.ReturnToDraft(projectID, userID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyProjectReturnedToDraft),
		"project": project,
	})
}

// GET /projects/required-documents
func (h *ProjectHandler) ListRequiredDocumentTypes(c *gin.Context) {
	types, err := h.projectService.ListRequiredDocumentTypes()
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"required_documents": types})
}
