package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"medicare-server/internal/apperror"
	"medicare-server/internal/models"
	"medicare-server/internal/utils"
)

func TestLogin(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(db, testConfig(), &recordingMailer{}, nopLog)
	patient := seedPatient(t, db)
	email := patient.User().Email

	tests := []struct {
		name     string
		email    string
		password string
		want     int
	}{
		{"success", email, "secret123", 0},
		{"unknown email", "nobody@example.com", "secret123", 400},
		{"wrong password", email, "wrong", 400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := svc.Login(context.Background(), tt.email, tt.password)
			if tt.want != 0 {
				if apperror.StatusOf(err) != tt.want {
					t.Errorf("err = %v, want %d", err, tt.want)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			claims, err := utils.ValidateToken(s.AccessToken, "access-secret")
			if err != nil {
				t.Fatal(err)
			}
			if claims.UserID != patient.User().ID || claims.Role != models.RolePatient {
				t.Errorf("claims = %+v", claims)
			}
		})
	}

	db.Model(&models.User{}).Where("id = ?", patient.User().ID).Update("status", models.UserStatusBlocked)
	if _, err := svc.Login(context.Background(), email, "secret123"); apperror.StatusOf(err) != 400 {
		t.Errorf("blocked login err = %v, want 400", err)
	}
}

func TestRefresh_Rotates(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewAuthService(db, testConfig(), &recordingMailer{}, nopLog)
	patient := seedPatient(t, db)

	s, err := svc.Login(ctx, patient.User().Email, "secret123")
	if err != nil {
		t.Fatal(err)
	}
	next, err := svc.Refresh(ctx, s.RefreshToken)
	if err != nil {
		t.Fatal(err)
	}
	if next.RefreshToken == s.RefreshToken {
		t.Error("refresh token was not rotated")
	}
	if _, err := svc.Refresh(ctx, s.RefreshToken); apperror.StatusOf(err) != 401 {
		t.Errorf("reused token err = %v, want 401", err)
	}
	if _, err := svc.Refresh(ctx, s.AccessToken); apperror.StatusOf(err) != 401 {
		t.Errorf("access token as refresh err = %v, want 401", err)
	}

	if err := svc.Logout(ctx, next.RefreshToken); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Refresh(ctx, next.RefreshToken); apperror.StatusOf(err) != 401 {
		t.Errorf("logged out token err = %v, want 401", err)
	}
}

func TestChangePassword(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewAuthService(db, testConfig(), &recordingMailer{}, nopLog)
	patient := seedPatient(t, db)
	id := patient.User().ID

	s, err := svc.Login(ctx, patient.User().Email, "secret123")
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.ChangePassword(ctx, id, "wrong", "newsecret"); apperror.StatusOf(err) != 400 {
		t.Errorf("wrong old password err = %v, want 400", err)
	}
	if err := svc.ChangePassword(ctx, id, "secret123", "newsecret"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Refresh(ctx, s.RefreshToken); apperror.StatusOf(err) != 401 {
		t.Errorf("refresh after password change err = %v, want 401", err)
	}
	if _, err := svc.Login(ctx, patient.User().Email, "newsecret"); err != nil {
		t.Errorf("login with new password: %v", err)
	}
}

func TestForgotAndResetPassword(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	cfg := testConfig()
	mail := &recordingMailer{}
	svc := NewAuthService(db, cfg, mail, nopLog)
	patient := seedPatient(t, db)
	user := patient.User()

	if err := svc.ForgotPassword(ctx, user.Email); err != nil {
		t.Fatal(err)
	}
	if len(mail.sent) != 1 {
		t.Fatalf("sent %d mails, want 1", len(mail.sent))
	}
	if msg := mail.sent[0]; msg.To != user.Email || !strings.Contains(msg.HTML, user.ID) {
		t.Errorf("mail = %+v", msg)
	}
	if err := svc.ForgotPassword(ctx, "nobody@example.com"); apperror.StatusOf(err) != 404 {
		t.Errorf("unknown email err = %v, want 404", err)
	}

	token, err := utils.GenerateToken(user, cfg.JWT.ForgotPasswordSecret, cfg.JWT.ForgotPasswordExpiry)
	if err != nil {
		t.Fatal(err)
	}
	expired, err := utils.GenerateToken(user, cfg.JWT.ForgotPasswordSecret, -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	access, err := utils.GenerateToken(user, cfg.JWT.AccessSecret, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		token  string
		userID string
		want   int
	}{
		{"missing token", "", user.ID, 401},
		{"expired token", expired, user.ID, 401},
		{"wrong secret", access, user.ID, 401},
		{"other user", token, seedPatient(t, db).User().ID, 403},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := svc.ResetPassword(ctx, tt.token, tt.userID, "newsecret"); apperror.StatusOf(err) != tt.want {
				t.Errorf("err = %v, want %d", err, tt.want)
			}
		})
	}

	if err := svc.ResetPassword(ctx, token, user.ID, "newsecret"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Login(ctx, user.Email, "newsecret"); err != nil {
		t.Errorf("login after reset: %v", err)
	}
}

func TestForgotPassword_MailFailure(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(db, testConfig(), &recordingMailer{err: errGatewayDown}, nopLog)
	patient := seedPatient(t, db)

	err := svc.ForgotPassword(context.Background(), patient.User().Email)
	if apperror.StatusOf(err) != 502 {
		t.Errorf("err = %v, want 502", err)
	}
}
