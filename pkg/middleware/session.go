package middleware

import (
	"errors"
	"net/http"
	"strings"

	"castgate/auth-api/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewSessionMiddleware authenticates requests by their session ID, taken from
// the Authorization bearer header or the session_token cookie. Valid sessions
// are opportunistically slid forward, so active users never see theirs lapse.
// Sets sessionID and userID on the context.
func NewSessionMiddleware(sessions *service.Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.MustGet("requestID").(string)

		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     "No access token provided",
				"requestID": requestID,
			})
			return
		}

		session, err := sessions.ExtendExpiry(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) || errors.Is(err, service.ErrSessionExpired) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error":     "Session expired or invalid. Please sign in again",
					"requestID": requestID,
				})
				return
			}

			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to validate session", zap.Error(err), zap.String("requestID", requestID))
			return
		}

		c.Set("sessionID", session.ID)
		c.Set("userID", session.UserID)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}

	cookie, err := c.Cookie("session_token")
	if err == nil {
		return cookie
	}

	return ""
}
