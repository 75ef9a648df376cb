// internal/handlers/deal.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/groundfund/groundfund-backend/internal/i18n"
	"github.com/groundfund/groundfund-backend/internal/services"
	"github.com/groundfund/groundfund-backend/internal/utils"
)

type DealHandler struct {
	dealService *services.DealService
}

func NewDealHandler(dealService *services.DealService) *DealHandler {
	return &DealHandler{
		dealService: dealService,
	}
}

// POST /deals
func (h *DealHandler) CreateDeal(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.CreateDealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "access_request_id"), err.Error())
		return
	}

	deal, err := h.dealService.CreateDeal(userID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyDealCreated),
		"deal":    deal,
	})
}

// GET /deals
func (h *DealHandler) ListDeals(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	deals, total, err := h.dealService.ListDeals(userID, params)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	result := utils.CreatePaginationResult(deals, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /deals/:id
func (h *DealHandler) GetDeal(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	dealID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid deal ID", nil)
		return
	}

	deal, err := h.dealService.GetDeal(dealID, userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"deal": deal})
}

// POST /deals/:id/document-requests
func (h *DealHandler) RequestDocument(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	dealID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid deal ID", nil)
		return
	}

	var req services.CreateDocumentRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	request, err := h.dealService.RequestDocument(dealID, userID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":          i18n.T(lang, i18n.KeyDealDocumentRequest),
		"document_request": request,
	})
}

// POST /deals/:id/document-requests/:rid/fulfill
func (h *DealHandler) FulfillDocumentRequest(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	dealID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid deal ID", nil)
		return
	}

	requestID, err := uuid.Parse(c.Param("rid"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid document request ID", nil)
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		utils.BadRequestResponse(c, "file is required", nil)
		return
	}
	defer file.Close()

	request, err := h.dealService.FulfillDocumentRequest(dealID, requestID, userID, file, header)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":          i18n.T(lang, i18n.KeyDealRequestFulfilled),
		"document_request": request,
	})
}

// POST /deals/:id/quotes
func (h *DealHandler) SubmitQuote(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	dealID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid deal ID", nil)
		return
	}

	var req services.SubmitQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	quote, err := h.dealService.SubmitQuote(dealID, userID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyDealQuoteSubmitted),
		"quote":   quote,
	})
}

// GET /deals/:id/quotes
func (h *DealHandler) ListQuotes(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	dealID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid deal ID", nil)
		return
	}

	quotes, err := h.dealService.ListQuotes(dealID, userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"quotes": quotes})
}

// POST /deals/:id/comments
func (h *DealHandler) PostComment(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	dealID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid deal ID", nil)
		return
	}

	var req services.PostCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "body"), err.Error())
		return
	}

	comment, err := h.dealService.PostComment(dealID, userID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyDealCommentPosted),
		"comment": comment,
	})
}

// GET /deals/:id/comments
func (h *DealHandler) ListComments(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	dealID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid deal ID", nil)
		return
	}

	comments, err := h.dealService.ListComments(dealID, userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"comments": comments})
}

// GET /deals/:id/documents
func (h *DealHandler) ListDocuments(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	dealID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid deal ID", nil)
		return
	}

	documents, err := h.dealService.ListDealDocuments(dealID, userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"documents": documents})
}

// PUT /deals/:id/close
func (h *DealHandler) CloseDeal(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	dealID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid deal ID", nil)
		return
	}

	deal, err := h.dealService.CloseDeal(dealID, userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyDealClosed),
		"deal":    deal,
	})
}
