package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/FyliaCare/calibration-mvp-sub000/internal/service"
)

const (
	ContextAccount     = "current_account"
	ContextBearerToken = "bearer_token"
)

// Authenticate resolves the bearer token to an account before any
// handler runs. Every request hits the store fresh so revocation takes
// effect immediately; there is no cross-request cache. The reason a
// token failed is logged server-side only.
func Authenticate(auth *service.AuthService, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		tokenStr := strings.TrimPrefix(header, "Bearer ")

		account, err := auth.Authenticate(c.Request.Context(), tokenStr)
		if err != nil {
			log.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("bearer rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set(ContextAccount, account)
		c.Set(ContextBearerToken, tokenStr)

		c.Next()
	}
}
