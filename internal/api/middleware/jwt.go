package middleware

import (
	"net/http"
	"strings"

	"github.com/jalaleddinemaoukil/interventions-m1/internal/pkg/metrics"
	"github.com/jalaleddinemaoukil/interventions-m1/internal/pkg/token"

	"github.com/gin-gonic/gin"
)

// Context keys set by Auth for downstream handlers.
const (
	CtxUserID   = "userID"
	CtxIdentity = "identity"
)

// Auth verifies the bearer token and puts the embedded identity into the
// gin context. Requests without a valid token are rejected with 401 before
// any handler runs.
func Auth(tokens *token.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			reject(c, "missing_token")
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			reject(c, "bad_header")
			return
		}

		identity, err := tokens.Verify(parts[1])
		if err != nil {
			reason := "invalid_token"
			if err == token.ErrTokenExpired {
				reason = "expired_token"
			}
			reject(c, reason)
			return
		}

		c.Set(CtxUserID, identity.UserID)
		c.Set(CtxIdentity, identity)
		c.Next()
	}
}

func reject(c *gin.Context, reason string) {
	metrics.AuthFailuresTotal.WithLabelValues(reason).Inc()
	c.JSON(http.StatusUnauthorized, gin.H{"error": true, "message": "access denied"})
	c.Abort()
}
