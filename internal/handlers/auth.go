// internal/handlers/auth.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/rfmontes/angel-fit-app/internal/i18n"
	"github.com/rfmontes/angel-fit-app/internal/services"
	"github.com/rfmontes/angel-fit-app/internal/utils"
)

type AuthHandler struct {
	authService *services.AuthService
	logger      *logrus.Logger
}

func NewAuthHandler(authService *services.AuthService, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	session, err := h.authService.SignInWithPassword(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":    i18n.T(lang, i18n.KeyAuthLoginSuccess),
		"user":       session.User,
		"token":      session.AccessToken,
		"token_type": session.TokenType,
		"expires_at": session.ExpiresAt,
		"expires_in": session.ExpiresIn,
	})
}

// POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	if err := h.authService.SignOut(utils.GetTokenFromContext(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyAuthLogoutSuccess),
	})
}

// GET /auth/session
func (h *AuthHandler) GetSession(c *gin.Context) {
	session, err := h.authService.GetSession(utils.GetTokenFromContext(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	sessionID, _ := utils.GetSessionIDFromContext(c)
	utils.SuccessResponse(c, gin.H{
		"session_id": sessionID,
		"user":       session.User,
		"expires_at": session.ExpiresAt,
	})
}
