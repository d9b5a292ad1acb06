package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (a *API) SignerStatus(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)
	signerUUID := c.Param("uuid")

	if err := a.Signers.OwnedBy(c.Request.Context(), signerUUID, userID); err != nil {
		respondError(c, requestID, err)
		return
	}

	signer, err := a.Signers.FindBySignerUUID(c.Request.Context(), signerUUID)
	if err != nil {
		respondError(c, requestID, err)
		return
	}

	out := gin.H{
		"signerUUID": signer.SignerUUID,
		"status":     signer.Status,
		"requestID":  requestID,
	}

	if signer.Approval != nil {
		out["approvalURL"] = signer.Approval.URL
		out["deadline"] = signer.Approval.Deadline
	}

	if signer.FID != 0 {
		out["fid"] = signer.FID
	}

	c.JSON(http.StatusOK, out)
}
