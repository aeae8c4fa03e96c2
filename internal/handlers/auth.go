package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"medicare-server/internal/config"
	"medicare-server/internal/services"
	"medicare-server/internal/utils"
)

// AuthHandler handles authentication-related requests.
type AuthHandler struct {
	auth *services.AuthService
	cfg  *config.Config
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth *services.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{auth: auth, cfg: cfg}
}

// LoginRequest represents the request body for user login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login handles user login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := utils.BindJSON(c, &req); err != nil {
		utils.Abort(c, err)
		return
	}

	session, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		utils.Abort(c, err)
		return
	}

	h.setCookies(c, session)
	utils.Success(c, "Logged in successfully!", gin.H{
		"accessToken":        session.AccessToken,
		"needPasswordChange": session.NeedPasswordChange,
	})
}

// RefreshTokenRequest is the optional body of a refresh when no cookie is sent.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshToken rotates the refresh token and issues a new access token.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	token, err := c.Cookie(utils.RefreshTokenCookie)
	if err != nil || token == "" {
		var req RefreshTokenRequest
		_ = c.ShouldBindJSON(&req)
		token = req.RefreshToken
	}

	session, err := h.auth.Refresh(c.Request.Context(), token)
	if err != nil {
		utils.Abort(c, err)
		return
	}

	h.setCookies(c, session)
	utils.Success(c, "Access token generated successfully!", gin.H{
		"accessToken": session.AccessToken,
	})
}

// Logout revokes the refresh token and clears the auth cookies.
func (h *AuthHandler) Logout(c *gin.Context) {
	token, _ := c.Cookie(utils.RefreshTokenCookie)
	if err := h.auth.Logout(c.Request.Context(), token); err != nil {
		utils.Abort(c, err)
		return
	}
	utils.ClearTokenCookies(c, h.cfg.IsProduction())
	utils.Success(c, "Logged out successfully", nil)
}

// ChangePasswordRequest is the body of POST /auth/change-password.
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=6"`
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	a, ok := currentActor(c)
	if !ok {
		return
	}
	var req ChangePasswordRequest
	if err := utils.BindJSON(c, &req); err != nil {
		utils.Abort(c, err)
		return
	}

	if err := h.auth.ChangePassword(c.Request.Context(), a.User().ID, req.OldPassword, req.NewPassword); err != nil {
		utils.Abort(c, err)
		return
	}
	utils.Success(c, "Password changed successfully", nil)
}

// ForgotPasswordRequest is the body of POST /auth/forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := utils.BindJSON(c, &req); err != nil {
		utils.Abort(c, err)
		return
	}
	if err := h.auth.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		utils.Abort(c, err)
		return
	}
	utils.Success(c, "Check your email!", nil)
}

// ResetPasswordRequest is the body of POST /auth/reset-password. The token may
// also be sent in the Authorization header.
type ResetPasswordRequest struct {
	ID       string `json:"id" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
	Token    string `json:"token"`
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := utils.BindJSON(c, &req); err != nil {
		utils.Abort(c, err)
		return
	}

	token := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
	if token == "" {
		token = req.Token
	}

	if err := h.auth.ResetPassword(c.Request.Context(), token, req.ID, req.Password); err != nil {
		utils.Abort(c, err)
		return
	}
	utils.Success(c, "Password reset!", nil)
}

func (h *AuthHandler) setCookies(c *gin.Context, s *services.Session) {
	utils.SetTokenCookies(c, s.AccessToken, s.RefreshToken,
		h.cfg.JWT.AccessExpires, h.cfg.JWT.RefreshExpires, h.cfg.IsProduction())
}
