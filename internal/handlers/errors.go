// internal/handlers/errors.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/groundfund/groundfund-backend/internal/apperrors"
	"github.com/groundfund/groundfund-backend/internal/utils"
)

// handleServiceError maps the service-layer error taxonomy onto HTTP.
// Gate refusals keep their reason code in the response body; everything
// unrecognized is a 500 without leaking internals.
func handleServiceError(c *gin.Context, err error) {
	if deny, ok := apperrors.AsDeny(err); ok {
		if errors.Is(err, apperrors.ErrForbidden) {
			utils.ForbiddenResponse(c, err.Error(), string(deny.Reason))
		} else {
			utils.UnauthorizedResponse(c, err.Error(), string(deny.Reason))
		}
		return
	}

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		utils.NotFoundResponse(c, err.Error())
	case errors.Is(err, apperrors.ErrConflict):
		utils.ConflictResponse(c, err.Error())
	case errors.Is(err, apperrors.ErrInvalidState):
		utils.InvalidStateResponse(c, err.Error())
	case errors.Is(err, apperrors.ErrPreconditionFailed):
		utils.PreconditionFailedResponse(c, err.Error())
	case errors.Is(err, apperrors.ErrForbidden):
		utils.ForbiddenResponse(c, err.Error(), "")
	case errors.Is(err, apperrors.ErrUnauthorized):
		utils.UnauthorizedResponse(c, err.Error(), "")
	default:
		if validationErrors := utils.GetValidationErrors(err); len(validationErrors) > 0 {
			utils.ValidationErrorResponse(c, validationErrors)
			return
		}
		utils.InternalErrorResponse(c, "internal error")
	}
}
