// internal/middleware/auth.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rfmontes/angel-fit-app/internal/i18n"
	"github.com/rfmontes/angel-fit-app/internal/services"
	"github.com/rfmontes/angel-fit-app/internal/utils"
)

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header.
func BearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// AuthRequired lets the request through only with a token that belongs to a
// live session. Browsers cannot set headers on websocket upgrades, so the
// token is also accepted from the access_token query parameter.
func AuthRequired(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := utils.GetLangFromContext(c)

		token, ok := c.Query("access_token"), true
		if c.GetHeader("Authorization") != "" {
			token, ok = BearerToken(c)
		} else if token == "" {
			utils.UnauthorizedResponse(c, "")
			c.Abort()
			return
		}
		if !ok {
			utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthInvalidToken))
			c.Abort()
			return
		}

		session, err := auth.GetSession(token)
		if err != nil {
			utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthSessionExpired))
			c.Abort()
			return
		}

		// Set user info in context
		c.Set("user_id", session.User.ID.String())
		c.Set("email", session.User.Email)
		c.Set("session_id", session.ID)
		c.Set("token", token)
		c.Next()
	}
}
