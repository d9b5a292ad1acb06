package api

import (
	"net/http"

	"castgate/auth-api/validators"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type otpIssueBody struct {
	Email string `json:"email"`
}

func (a *API) AuthOtpIssue(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var data otpIssueBody
	if err := c.ShouldBind(&data); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})

		zap.L().Error("Can't bind request body", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if err := validators.EmailValidator(data.Email); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}

	if err := a.Auth.IssueOtp(c.Request.Context(), data.Email); err != nil {
		respondError(c, requestID, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Code sent",
		"requestID": requestID,
	})
}

type otpVerifyBody struct {
	Email string `json:"email"`
	Otp   string `json:"otp"`
}

func (a *API) AuthOtpVerify(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var data otpVerifyBody
	if err := c.ShouldBind(&data); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})

		zap.L().Error("Can't bind request body", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if err := validators.EmailValidator(data.Email); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}

	if data.Otp == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Otp field can't be empty",
			"requestID": requestID,
		})
		return
	}

	result, err := a.Auth.VerifyOtp(c.Request.Context(), data.Email, data.Otp)
	if err != nil {
		respondError(c, requestID, err)
		return
	}

	respondSignedIn(c, requestID, result)
}
