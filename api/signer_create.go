package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (a *API) SignerCreate(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	signer, err := a.Signers.Create(c.Request.Context(), userID)
	if err != nil {
		respondError(c, requestID, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"signerUUID": signer.SignerUUID,
		"status":     signer.Status,
		"requestID":  requestID,
	})
}
