package api

import (
	"errors"
	"net/http"

	"castgate/auth-api/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (a *API) AuthSIWFURL(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	channel, err := a.Auth.URLChallenge(c.Request.Context())
	if err != nil {
		respondError(c, requestID, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":     channel.Token,
		"url":       channel.URL,
		"requestID": requestID,
	})
}

type siwfURLVerifyBody struct {
	Token string `json:"token"`
}

func (a *API) AuthSIWFURLVerify(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var data siwfURLVerifyBody
	if err := c.ShouldBind(&data); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})

		zap.L().Error("Can't bind request body", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if data.Token == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Token field can't be empty",
			"requestID": requestID,
		})
		return
	}

	result, err := a.Auth.VerifySIWFUrl(c.Request.Context(), data.Token)
	if err != nil {
		// Pending isn't a failure; the client just isn't done approving yet.
		if errors.Is(err, service.ErrSignInPending) {
			c.JSON(http.StatusAccepted, gin.H{
				"status":    "pending",
				"requestID": requestID,
			})
			return
		}

		respondError(c, requestID, err)
		return
	}

	respondSignedIn(c, requestID, result)
}
