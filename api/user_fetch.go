package api

import (
	"net/http"

	"castgate/auth-api/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (a *API) UserFetch(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	var user model.User
	if err := a.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to load user", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	profiles, err := a.Profiles.Profiles(c.Request.Context(), userID)
	if err != nil {
		respondError(c, requestID, err)
		return
	}

	out := make([]gin.H, 0, len(profiles))
	for _, p := range profiles {
		entry := gin.H{
			"id":        p.ID,
			"key":       p.Meta.Key,
			"createdAt": p.CreatedAt,
		}

		switch p.Meta.Key {
		case model.MetaKeyEmail:
			entry["email"] = p.Meta.Email
		case model.MetaKeyFarcaster:
			entry["fid"] = p.Meta.FID
		}

		out = append(out, entry)
	}

	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"id":        user.ID,
			"createdAt": user.CreatedAt,
		},
		"profiles":  out,
		"requestID": requestID,
	})
}
