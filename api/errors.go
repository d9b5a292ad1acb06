package api

import (
	"errors"
	"net/http"

	"castgate/auth-api/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError collapses the service error taxonomy into the small public
// error surface. Token errors of every flavor read identically to clients;
// collaborator causes stay in the logs.
func respondError(c *gin.Context, requestID string, err error) {
	var (
		validationErr *service.ValidationError
		notExpiredErr *service.TokenNotExpiredError
		existsErr     *service.AlreadyExistsError
		externalErr   *service.ExternalServiceError
	)

	switch {
	case errors.As(err, &validationErr):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     validationErr.Msg,
			"requestID": requestID,
		})
	case errors.As(err, &notExpiredErr):
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":     "A code was already sent. Please wait before requesting another",
			"retryAt":   notExpiredErr.ExpiresAt,
			"requestID": requestID,
		})
	case errors.As(err, &existsErr):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{
			"error":     existsErr.Error(),
			"requestID": requestID,
		})
	case errors.Is(err, service.ErrInvalidToken), errors.Is(err, service.ErrTokenExpired):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error":     "Token expired or invalid",
			"requestID": requestID,
		})
	case errors.Is(err, service.ErrSessionExpired):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error":     "Session expired. Please sign in again",
			"requestID": requestID,
		})
	case errors.Is(err, service.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"error":     "Not found",
			"requestID": requestID,
		})
	case errors.As(err, &externalErr):
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{
			"error":     "Service temporarily unavailable. Please try again",
			"requestID": requestID,
		})

		zap.L().Error("Collaborator call failed",
			zap.String("op", externalErr.Op),
			zap.Error(externalErr),
			zap.String("requestID", requestID))
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Unhandled service error", zap.Error(err), zap.String("requestID", requestID))
	}
}
