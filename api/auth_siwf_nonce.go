package api

import (
	"net/http"
	"strconv"

	"castgate/auth-api/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func (a *API) AuthSIWFNonce(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	nonce, err := a.Auth.NonceChallenge(c.Request.Context())
	if err != nil {
		respondError(c, requestID, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"nonce":     nonce,
		"requestID": requestID,
	})
}

type siwfNonceVerifyBody struct {
	Message   string `json:"message"`
	Signature string `json:"signature"`
	Nonce     string `json:"nonce"`
}

func (a *API) AuthSIWFNonceVerify(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var data siwfNonceVerifyBody
	if err := c.ShouldBind(&data); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})

		zap.L().Error("Can't bind request body", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if data.Message == "" || data.Signature == "" || data.Nonce == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Message, signature and nonce fields can't be empty",
			"requestID": requestID,
		})
		return
	}

	result, err := a.Auth.VerifySIWFNonce(c.Request.Context(), data.Message, data.Signature, data.Nonce)
	if err != nil {
		respondError(c, requestID, err)
		return
	}

	respondSignedIn(c, requestID, result)
}

// respondSignedIn is the shared tail of every sign-in flow. The session ID is
// the access token; there is no separate signing layer on top.
func respondSignedIn(c *gin.Context, requestID string, result *service.SignInResult) {
	sslEnabled, err := strconv.ParseBool(viper.GetString("host.ssl.enabled"))
	if err != nil {
		sslEnabled = false
	}

	maxAge := int(result.Session.ExpiresAt.Sub(result.Session.CreatedAt).Seconds())
	c.SetCookie("session_token", result.Session.ID, maxAge, "/", "", sslEnabled, true)

	c.JSON(http.StatusOK, gin.H{
		"accessToken": result.Session.ID,
		"user": gin.H{
			"id":        result.User.ID,
			"createdAt": result.User.CreatedAt,
		},
		"requestID": requestID,
	})
}
