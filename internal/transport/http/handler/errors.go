package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/edumarket/storefront/internal/apiclient"
	"github.com/edumarket/storefront/internal/domain"
	"github.com/edumarket/storefront/internal/session"
	"github.com/gin-gonic/gin"
)

const (
	errInternalServer    = "Internal server error"
	errInvalidBody       = "Invalid request body"
	errInvalidInput      = "Please check the highlighted fields"
	errUnauthorized      = "Unauthorized"
	errAccountExists     = "An account with this email or phone number already exists"
	errFlowBusy          = "The previous step is still in progress"
	errInvalidTransition = "This step is not available right now"
	errSignKeyMismatch   = "Verification is no longer valid, please request a new code"
	errPhoneRequired     = "Add a phone number to your profile before changing your password"
	errFlowNotFound      = "This form has expired, please start again"
)

var errMalformedBody = errors.New("malformed request body")

// respondError maps err onto a status and a message safe to show the user.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	ctx := c.Request.Context()
	var verr *domain.ValidationError
	var apiErr *apiclient.Error

	switch {
	case errors.Is(err, errMalformedBody):
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBody})
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidInput, "fields": verr.Fields})
	case errors.Is(err, domain.ErrUnauthorized):
		body := gin.H{"error": errUnauthorized}
		if jar := session.JarFrom(ctx); jar != nil {
			if to := jar.Redirect(); to != "" {
				c.Header("Location", to)
				body["redirect"] = to
			}
		}
		c.JSON(http.StatusUnauthorized, body)
	case errors.Is(err, domain.ErrAccountExists):
		c.JSON(http.StatusConflict, gin.H{"error": errAccountExists})
	case errors.Is(err, domain.ErrFlowBusy):
		c.JSON(http.StatusConflict, gin.H{"error": errFlowBusy})
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrFlowClosed):
		c.JSON(http.StatusConflict, gin.H{"error": errInvalidTransition})
	case errors.Is(err, domain.ErrSignKeyMismatch):
		c.JSON(http.StatusConflict, gin.H{"error": errSignKeyMismatch})
	case errors.Is(err, domain.ErrPhoneRequired):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": errPhoneRequired})
	case errors.Is(err, domain.ErrFlowNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": errFlowNotFound})
	case errors.As(err, &apiErr):
		respondAPIError(c, logger, apiErr)
	default:
		logger.ErrorContext(ctx, "request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
	}
}

func respondAPIError(c *gin.Context, logger *slog.Logger, apiErr *apiclient.Error) {
	switch {
	case apiErr.Kind == apiclient.KindConnection:
		logger.WarnContext(c.Request.Context(), "marketplace api unreachable", "error", apiErr.Err)
		c.JSON(http.StatusBadGateway, gin.H{"error": apiErr.Message})
	case apiErr.ServerError():
		logger.ErrorContext(c.Request.Context(), "marketplace api error",
			"status", apiErr.Status, "detail", apiErr.Detail)
		c.JSON(http.StatusBadGateway, gin.H{"error": apiErr.Message})
	case apiErr.Kind == apiclient.KindEnvelope || apiErr.Status < 400:
		c.JSON(http.StatusBadRequest, gin.H{"error": apiErr.Message})
	default:
		c.JSON(apiErr.Status, gin.H{"error": apiErr.Message})
	}
}
