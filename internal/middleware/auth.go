package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CredentialSource reports the client's own session.
type CredentialSource interface {
	Credential() (string, bool)
	MemberID() int64
}

// RequireSession rejects requests while the client is signed out and exposes the member id.
func RequireSession(session CredentialSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := session.Credential(); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "client is not signed in"})
			return
		}

		c.Set("memberID", session.MemberID())
		c.Next()
	}
}
