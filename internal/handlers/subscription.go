// internal/handlers/subscription.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/groundfund/groundfund-backend/internal/i18n"
	"github.com/groundfund/groundfund-backend/internal/services"
	"github.com/groundfund/groundfund-backend/internal/utils"
)

type SubscriptionHandler struct {
	subscriptionService *services.SubscriptionService
}

func NewSubscriptionHandler(subscriptionService *services.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionService: subscriptionService,
	}
}

// POST /subscriptions/checkout
func (h *SubscriptionHandler) StartCheckout(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	checkout, err := h.subscriptionService.StartCheckout(userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"checkout": checkout})
}

// POST /subscriptions/activate
func (h *SubscriptionHandler) Activate(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.ActivateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "payment_intent_id"), err.Error())
		return
	}

	user, err := h.subscriptionService.Activate(userID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeySubscriptionActivated),
		"user":    user,
	})
}

// POST /subscriptions/cancel
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	user, err := h.subscriptionService.Cancel(userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeySubscriptionCancelled),
		"user":    user,
	})
}

// GET /subscriptions/status
func (h *SubscriptionHandler) Status(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	status, err := h.subscriptionService.Status(userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"subscription": status})
}
