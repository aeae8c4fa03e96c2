package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"medicare-server/internal/apperror"
	"medicare-server/internal/config"
	"medicare-server/internal/mailer"
	"medicare-server/internal/models"
	"medicare-server/internal/utils"
)

// AuthService handles login, token rotation and password management.
type AuthService struct {
	db     *gorm.DB
	cfg    *config.Config
	mailer mailer.Mailer
	log    zerolog.Logger
}

func NewAuthService(db *gorm.DB, cfg *config.Config, m mailer.Mailer, log zerolog.Logger) *AuthService {
	return &AuthService{db: db, cfg: cfg, mailer: m, log: log}
}

// Session is the result of a successful login or refresh.
type Session struct {
	User               models.UserSanitized `json:"user"`
	AccessToken        string               `json:"accessToken"`
	RefreshToken       string               `json:"refreshToken,omitempty"`
	NeedPasswordChange bool                 `json:"needPasswordChange"`
}

// Login verifies credentials of an ACTIVE user and issues a token pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Where("email = ? AND status = ?", email, models.UserStatusActive).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.BadRequest("Invalid user email")
	}
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if !user.CheckPassword(password) {
		return nil, apperror.BadRequest("Incorrect password")
	}

	return s.issue(s.db.WithContext(ctx), &user)
}

func (s *AuthService) issue(tx *gorm.DB, user *models.User) (*Session, error) {
	access, refresh, err := utils.GenerateTokens(user, s.cfg.JWT)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	stored := models.RefreshToken{
		UserID:    user.ID,
		Token:     refresh,
		ExpiresAt: time.Now().UTC().Add(s.cfg.JWT.RefreshExpires),
	}
	if err := tx.Create(&stored).Error; err != nil {
		return nil, apperror.Internal(err)
	}

	return &Session{
		User:               user.Sanitize(),
		AccessToken:        access,
		RefreshToken:       refresh,
		NeedPasswordChange: user.NeedPasswordChange,
	}, nil
}

// Refresh exchanges a stored, unrevoked refresh token for a new pair. The
// presented token is revoked.
func (s *AuthService) Refresh(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, apperror.Unauthorized("You are not authorized!")
	}
	claims, err := utils.ValidateToken(token, s.cfg.JWT.RefreshSecret)
	if err != nil {
		return nil, apperror.Wrap(401, "Invalid refresh token", err)
	}

	var session *Session
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stored models.RefreshToken
		if err := tx.Where("user_id = ? AND token = ?", claims.UserID, token).First(&stored).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.Unauthorized("Invalid refresh token")
			}
			return err
		}
		if !stored.Usable(time.Now().UTC()) {
			return apperror.Unauthorized("Refresh token has been revoked or expired")
		}

		var user models.User
		if err := tx.First(&user, "id = ?", claims.UserID).Error; err != nil {
			return apperror.FromDB(err, "User not found")
		}
		if !user.IsActive() {
			return apperror.Unauthorized("Your account is " + string(user.Status))
		}

		if err := tx.Model(&stored).Update("is_revoked", true).Error; err != nil {
			return err
		}

		session, err = s.issue(tx, &user)
		return err
	})
	if err != nil {
		return nil, apperror.FromDB(err, "")
	}
	return session, nil
}

// Logout revokes the given refresh token if it is known. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	err := s.db.WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("token = ? AND is_revoked = ?", token, false).
		Update("is_revoked", true).Error
	if err != nil {
		return apperror.Internal(err)
	}
	return nil
}

// ChangePassword replaces the password after checking the old one.
func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return apperror.FromDB(err, "User not found")
	}
	if !user.CheckPassword(oldPassword) {
		return apperror.BadRequest("Incorrect password")
	}
	return s.setPassword(ctx, &user, newPassword)
}

func (s *AuthService) setPassword(ctx context.Context, user *models.User, password string) error {
	if err := user.SetPassword(password, s.cfg.BcryptCost); err != nil {
		return apperror.Internal(err)
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(user).Updates(map[string]interface{}{
			"password":             user.Password,
			"need_password_change": false,
		}).Error; err != nil {
			return err
		}
		return tx.Model(&models.RefreshToken{}).
			Where("user_id = ? AND is_revoked = ?", user.ID, false).
			Update("is_revoked", true).Error
	})
	if err != nil {
		return apperror.Internal(err)
	}
	return nil
}

// ForgotPassword emails a short-lived reset link to an ACTIVE user.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	var user models.User
	err := s.db.WithContext(ctx).
		Where("email = ? AND status = ?", email, models.UserStatusActive).
		First(&user).Error
	if err != nil {
		return apperror.FromDB(err, "User not found")
	}

	token, err := utils.GenerateToken(&user, s.cfg.JWT.ForgotPasswordSecret, s.cfg.JWT.ForgotPasswordExpiry)
	if err != nil {
		return apperror.Internal(err)
	}

	link, err := url.Parse(s.cfg.JWT.ResetPasswordURL)
	if err != nil {
		return apperror.Internal(fmt.Errorf("parse reset url: %w", err))
	}
	q := link.Query()
	q.Set("userId", user.ID)
	q.Set("token", token)
	link.RawQuery = q.Encode()

	body, err := mailer.Render("reset-password", mailer.ResetPasswordData{
		Name:   s.displayName(ctx, &user),
		Link:   link.String(),
		Expiry: s.cfg.JWT.ForgotPasswordExpiry.String(),
	})
	if err != nil {
		return apperror.Internal(err)
	}

	if err := s.mailer.Send(ctx, mailer.Message{To: user.Email, Subject: "Reset your password", HTML: body}); err != nil {
		s.log.Error().Err(err).Str("userId", user.ID).Msg("failed to send reset password email")
		return apperror.Upstream("Failed to send reset password email", err)
	}
	return nil
}

// ResetPassword sets a new password for the user named by a reset token.
func (s *AuthService) ResetPassword(ctx context.Context, token, userID, newPassword string) error {
	if token == "" {
		return apperror.Unauthorized("You are not authorized!")
	}
	claims, err := utils.ValidateToken(token, s.cfg.JWT.ForgotPasswordSecret)
	if err != nil {
		return apperror.Wrap(401, "Invalid or expired reset token", err)
	}
	if claims.UserID != userID {
		return apperror.Forbidden("Reset token does not belong to this user")
	}

	var user models.User
	err = s.db.WithContext(ctx).
		Where("id = ? AND status = ?", userID, models.UserStatusActive).
		First(&user).Error
	if err != nil {
		return apperror.FromDB(err, "User not found")
	}
	return s.setPassword(ctx, &user, newPassword)
}

func (s *AuthService) displayName(ctx context.Context, user *models.User) string {
	var table interface{}
	switch user.Role {
	case models.RoleDoctor:
		table = &models.Doctor{}
	case models.RolePatient:
		table = &models.Patient{}
	default:
		table = &models.Admin{}
	}
	var name string
	s.db.WithContext(ctx).Model(table).Select("name").Where("email = ?", user.Email).Scan(&name)
	if name == "" {
		return user.Email
	}
	return name
}
