package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"medicare-server/internal/apperror"
	"medicare-server/internal/models"
)

// Actor is the authenticated caller, resolved once per request. It is one of
// *AdminActor, *DoctorActor or *PatientActor.
type Actor interface {
	User() *models.User
	actor()
}

// AdminActor is an ADMIN or SUPER_ADMIN user with their admin profile.
type AdminActor struct {
	user    *models.User
	Profile *models.Admin
	Super   bool
}

// DoctorActor is a DOCTOR user with their doctor profile.
type DoctorActor struct {
	user    *models.User
	Profile *models.Doctor
}

// PatientActor is a PATIENT user with their patient profile.
type PatientActor struct {
	user    *models.User
	Profile *models.Patient
}

func (a *AdminActor) User() *models.User   { return a.user }
func (a *DoctorActor) User() *models.User  { return a.user }
func (a *PatientActor) User() *models.User { return a.user }

func (*AdminActor) actor()   {}
func (*DoctorActor) actor()  {}
func (*PatientActor) actor() {}

// NewAdminActor, NewDoctorActor and NewPatientActor build actors from already
// loaded records.
func NewAdminActor(u *models.User, p *models.Admin) *AdminActor {
	return &AdminActor{user: u, Profile: p, Super: u.Role == models.RoleSuperAdmin}
}

func NewDoctorActor(u *models.User, p *models.Doctor) *DoctorActor {
	return &DoctorActor{user: u, Profile: p}
}

func NewPatientActor(u *models.User, p *models.Patient) *PatientActor {
	return &PatientActor{user: u, Profile: p}
}

// ResolveActor loads the user behind a token and their role profile. Users
// that are not ACTIVE and soft-deleted profiles are rejected.
func ResolveActor(ctx context.Context, db *gorm.DB, userID string) (Actor, error) {
	db = db.WithContext(ctx)

	var user models.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Unauthorized("You are not authorized!")
		}
		return nil, apperror.Internal(err)
	}
	if !user.IsActive() {
		return nil, apperror.Unauthorized("Your account is " + string(user.Status))
	}

	notFound := func(err error) error {
		return apperror.FromDB(err, "Profile not found for this user")
	}

	switch user.Role {
	case models.RoleAdmin, models.RoleSuperAdmin:
		var p models.Admin
		if err := db.Where("email = ? AND is_deleted = ?", user.Email, false).First(&p).Error; err != nil {
			return nil, notFound(err)
		}
		return NewAdminActor(&user, &p), nil
	case models.RoleDoctor:
		var p models.Doctor
		if err := db.Where("email = ? AND is_deleted = ?", user.Email, false).First(&p).Error; err != nil {
			return nil, notFound(err)
		}
		return NewDoctorActor(&user, &p), nil
	case models.RolePatient:
		var p models.Patient
		if err := db.Where("email = ? AND is_deleted = ?", user.Email, false).First(&p).Error; err != nil {
			return nil, notFound(err)
		}
		return NewPatientActor(&user, &p), nil
	}
	return nil, apperror.Forbidden("Unknown role " + string(user.Role))
}

// HasRole reports whether the actor's role is one of roles. SUPER_ADMIN
// satisfies ADMIN.
func HasRole(a Actor, roles ...models.Role) bool {
	role := a.User().Role
	for _, r := range roles {
		if role == r || (r == models.RoleAdmin && role == models.RoleSuperAdmin) {
			return true
		}
	}
	return false
}
