package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (a *API) SignerRegister(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)
	signerUUID := c.Param("uuid")

	if err := a.Signers.OwnedBy(c.Request.Context(), signerUUID, userID); err != nil {
		respondError(c, requestID, err)
		return
	}

	signer, err := a.Signers.RegisterSignedKey(c.Request.Context(), signerUUID)
	if err != nil {
		respondError(c, requestID, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"signerUUID":  signer.SignerUUID,
		"status":      signer.Status,
		"approvalURL": signer.Approval.URL,
		"deadline":    signer.Approval.Deadline,
		"requestID":   requestID,
	})
}
