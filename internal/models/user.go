package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Role enum
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleDoctor     Role = "DOCTOR"
	RolePatient    Role = "PATIENT"
)

// UserStatus enum
type UserStatus string

const (
	UserStatusActive  UserStatus = "ACTIVE"
	UserStatusBlocked UserStatus = "BLOCKED"
	UserStatusDeleted UserStatus = "DELETED"
)

// User is the login identity. Exactly one role profile (Admin, Doctor or
// Patient) shares its email.
type User struct {
	BaseModel
	Email              string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password           string     `gorm:"size:255;not null" json:"-"` // Never send password in JSON
	Role               Role       `gorm:"size:20;not null;default:'PATIENT'" json:"role"`
	Status             UserStatus `gorm:"size:20;not null;default:'ACTIVE'" json:"status"`
	NeedPasswordChange bool       `gorm:"default:false" json:"needPasswordChange"`

	RefreshTokens []RefreshToken `gorm:"foreignKey:UserID" json:"-"`
}

// UserSanitized represents the user data that is safe to send in API responses.
type UserSanitized struct {
	ID                 string     `json:"id"`
	Email              string     `json:"email"`
	Role               Role       `json:"role"`
	Status             UserStatus `json:"status"`
	NeedPasswordChange bool       `json:"needPasswordChange"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// SetPassword hashes a password and sets it on the user
func (u *User) SetPassword(password string, cost int) error {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword compares a password with the user's hashed password
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

// IsActive reports whether the user may authenticate.
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// Sanitize creates a UserSanitized struct from a User model, excluding sensitive data.
func (u *User) Sanitize() UserSanitized {
	return UserSanitized{
		ID:                 u.ID,
		Email:              u.Email,
		Role:               u.Role,
		Status:             u.Status,
		NeedPasswordChange: u.NeedPasswordChange,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}
