package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/FyliaCare/calibration-mvp-sub000/internal/models"
)

// RequireRoles rejects with 403 unless the resolved account's role is an
// exact member of the given set. There is no hierarchy: admin does not
// imply calibrator unless listed.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	roleSet := make(map[models.Role]struct{}, len(roles))
	for _, role := range roles {
		roleSet[role] = struct{}{}
	}

	return func(c *gin.Context) {
		accountVal, exists := c.Get(ContextAccount)
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		account, ok := accountVal.(models.Account)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		if _, ok := roleSet[account.Role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}

		c.Next()
	}
}
