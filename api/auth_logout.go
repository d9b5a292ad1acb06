package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (a *API) AuthLogout(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	sessionID := c.MustGet("sessionID").(string)

	if err := a.Sessions.Delete(c.Request.Context(), sessionID); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to delete session", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.SetCookie("session_token", "", -1, "/", "", false, true)

	c.JSON(http.StatusOK, gin.H{
		"message":   "Signed out",
		"requestID": requestID,
	})
}
