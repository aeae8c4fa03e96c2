package services

import (
	"context"

	"gorm.io/gorm"

	"medicare-server/internal/apperror"
	"medicare-server/internal/config"
	"medicare-server/internal/models"
	"medicare-server/internal/pagination"
)

// UserService creates users together with their role profile.
type UserService struct {
	db  *gorm.DB
	cfg *config.Config
}

func NewUserService(db *gorm.DB, cfg *config.Config) *UserService {
	return &UserService{db: db, cfg: cfg}
}

// Credentials are the login fields shared by every account kind.
type Credentials struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// CreatePatientInput is the body of POST /user/create-patient.
type CreatePatientInput struct {
	Password string `json:"password" binding:"required,min=6"`
	Patient  struct {
		Name          string `json:"name" binding:"required"`
		Email         string `json:"email" binding:"required,email"`
		ContactNumber string `json:"contactNumber"`
		Address       string `json:"address"`
	} `json:"patient" binding:"required"`
}

// CreateAdminInput is the body of POST /user/create-admin.
type CreateAdminInput struct {
	Password string `json:"password" binding:"required,min=6"`
	Admin    struct {
		Name          string `json:"name" binding:"required"`
		Email         string `json:"email" binding:"required,email"`
		ContactNumber string `json:"contactNumber" binding:"required"`
		Address       string `json:"address"`
	} `json:"admin" binding:"required"`
}

// CreateDoctorInput is the body of POST /user/create-doctor.
type CreateDoctorInput struct {
	Password string `json:"password" binding:"required,min=6"`
	Doctor   struct {
		Name                string        `json:"name" binding:"required"`
		Email               string        `json:"email" binding:"required,email"`
		ContactNumber       string        `json:"contactNumber" binding:"required"`
		Address             string        `json:"address"`
		RegistrationNumber  string        `json:"registrationNumber" binding:"required"`
		Experience          int           `json:"experience" binding:"min=0"`
		Gender              models.Gender `json:"gender" binding:"required,oneof=MALE FEMALE"`
		AppointmentFee      float64       `json:"appointmentFee" binding:"required,gt=0"`
		Qualification       string        `json:"qualification" binding:"required"`
		CurrentWorkingPlace string        `json:"currentWorkingPlace" binding:"required"`
		Designation         string        `json:"designation" binding:"required"`
		Specialties         []string      `json:"specialties"`
	} `json:"doctor" binding:"required"`
}

func (s *UserService) newUser(email, password string, role models.Role) (*models.User, error) {
	u := &models.User{Email: email, Role: role, Status: models.UserStatusActive}
	if err := u.SetPassword(password, s.cfg.BcryptCost); err != nil {
		return nil, apperror.Internal(err)
	}
	return u, nil
}

// CreatePatient registers a PATIENT user and profile in one transaction.
func (s *UserService) CreatePatient(ctx context.Context, in CreatePatientInput, photoURL string) (*models.Patient, error) {
	user, err := s.newUser(in.Patient.Email, in.Password, models.RolePatient)
	if err != nil {
		return nil, err
	}
	patient := &models.Patient{
		Name:          in.Patient.Name,
		Email:         in.Patient.Email,
		ContactNumber: in.Patient.ContactNumber,
		Address:       in.Patient.Address,
		ProfilePhoto:  photoURL,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		return tx.Create(patient).Error
	})
	if err != nil {
		return nil, apperror.FromDB(err, "")
	}
	return patient, nil
}

// CreateAdmin registers an ADMIN user and profile in one transaction.
func (s *UserService) CreateAdmin(ctx context.Context, in CreateAdminInput, photoURL string) (*models.Admin, error) {
	user, err := s.newUser(in.Admin.Email, in.Password, models.RoleAdmin)
	if err != nil {
		return nil, err
	}
	admin := &models.Admin{
		Name:          in.Admin.Name,
		Email:         in.Admin.Email,
		ContactNumber: in.Admin.ContactNumber,
		Address:       in.Admin.Address,
		ProfilePhoto:  photoURL,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		return tx.Create(admin).Error
	})
	if err != nil {
		return nil, apperror.FromDB(err, "")
	}
	return admin, nil
}

// CreateSuperAdmin creates the bootstrap SUPER_ADMIN account.
func (s *UserService) CreateSuperAdmin(ctx context.Context, name, email, password string) (*models.Admin, error) {
	user, err := s.newUser(email, password, models.RoleSuperAdmin)
	if err != nil {
		return nil, err
	}
	admin := &models.Admin{Name: name, Email: email}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		return tx.Create(admin).Error
	})
	if err != nil {
		return nil, apperror.FromDB(err, "")
	}
	return admin, nil
}

// CreateDoctor registers a DOCTOR user, profile and initial specialties in one transaction.
func (s *UserService) CreateDoctor(ctx context.Context, in CreateDoctorInput, photoURL string) (*models.Doctor, error) {
	user, err := s.newUser(in.Doctor.Email, in.Password, models.RoleDoctor)
	if err != nil {
		return nil, err
	}
	d := in.Doctor
	doctor := &models.Doctor{
		Name:                d.Name,
		Email:               d.Email,
		ContactNumber:       d.ContactNumber,
		Address:             d.Address,
		ProfilePhoto:        photoURL,
		RegistrationNumber:  d.RegistrationNumber,
		Experience:          d.Experience,
		Gender:              d.Gender,
		AppointmentFee:      d.AppointmentFee,
		Qualification:       d.Qualification,
		CurrentWorkingPlace: d.CurrentWorkingPlace,
		Designation:         d.Designation,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		if err := tx.Create(doctor).Error; err != nil {
			return err
		}
		return addSpecialties(tx, doctor.ID, d.Specialties)
	})
	if err != nil {
		return nil, apperror.FromDB(err, "")
	}
	return doctor, nil
}

// UserFilter lists the supported filters of GET /user.
type UserFilter struct {
	SearchTerm string            `form:"searchTerm"`
	Email      string            `form:"email"`
	Role       models.Role       `form:"role"`
	Status     models.UserStatus `form:"status"`
}

var userSortable = pagination.Sortable{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"email":     "email",
	"role":      "role",
	"status":    "status",
}

// List pages through users. Password hashes never leave this method.
func (s *UserService) List(ctx context.Context, f UserFilter, opts pagination.Options) (*pagination.Result[models.UserSanitized], error) {
	q := s.db.WithContext(ctx).Model(&models.User{})
	q = containsAny(q, f.SearchTerm, "email")
	if f.Email != "" {
		q = q.Where("email = ?", f.Email)
	}
	if f.Role != "" {
		q = q.Where("role = ?", f.Role)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	res, err := page[models.User](q, opts, userSortable)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	out := &pagination.Result[models.UserSanitized]{Meta: res.Meta, Data: make([]models.UserSanitized, len(res.Data))}
	for i := range res.Data {
		out.Data[i] = res.Data[i].Sanitize()
	}
	return out, nil
}

// Me is the current user merged with their role profile.
type Me struct {
	models.UserSanitized
	Profile interface{} `json:"profile"`
}

// GetMe returns the actor's account and profile.
func (s *UserService) GetMe(ctx context.Context, a Actor) (*Me, error) {
	me := &Me{UserSanitized: a.User().Sanitize()}
	switch act := a.(type) {
	case *AdminActor:
		me.Profile = act.Profile
	case *DoctorActor:
		var d models.Doctor
		err := s.db.WithContext(ctx).Preload("DoctorSpecialties.Specialty").First(&d, "id = ?", act.Profile.ID).Error
		if err != nil {
			return nil, apperror.FromDB(err, "Doctor not found")
		}
		me.Profile = &d
	case *PatientActor:
		me.Profile = act.Profile
	}
	return me, nil
}

// ProfileUpdate holds the editable profile fields. Doctor-only fields are
// ignored for other actors.
type ProfileUpdate struct {
	Name                *string  `json:"name" binding:"omitempty,min=1"`
	ContactNumber       *string  `json:"contactNumber"`
	Address             *string  `json:"address"`
	Qualification       *string  `json:"qualification"`
	CurrentWorkingPlace *string  `json:"currentWorkingPlace"`
	Designation         *string  `json:"designation"`
	Experience          *int     `json:"experience" binding:"omitempty,min=0"`
	AppointmentFee      *float64 `json:"appointmentFee" binding:"omitempty,gt=0"`
}

func (p ProfileUpdate) common(photoURL string) map[string]interface{} {
	m := map[string]interface{}{}
	if p.Name != nil {
		m["name"] = *p.Name
	}
	if p.ContactNumber != nil {
		m["contact_number"] = *p.ContactNumber
	}
	if p.Address != nil {
		m["address"] = *p.Address
	}
	if photoURL != "" {
		m["profile_photo"] = photoURL
	}
	return m
}

func (p ProfileUpdate) doctor(photoURL string) map[string]interface{} {
	m := p.common(photoURL)
	if p.Qualification != nil {
		m["qualification"] = *p.Qualification
	}
	if p.CurrentWorkingPlace != nil {
		m["current_working_place"] = *p.CurrentWorkingPlace
	}
	if p.Designation != nil {
		m["designation"] = *p.Designation
	}
	if p.Experience != nil {
		m["experience"] = *p.Experience
	}
	if p.AppointmentFee != nil {
		m["appointment_fee"] = *p.AppointmentFee
	}
	return m
}

// UpdateMyProfile applies p to the actor's own profile and returns it.
func (s *UserService) UpdateMyProfile(ctx context.Context, a Actor, p ProfileUpdate, photoURL string) (interface{}, error) {
	db := s.db.WithContext(ctx)
	switch act := a.(type) {
	case *AdminActor:
		return updateProfile(db, &models.Admin{}, act.Profile.ID, p.common(photoURL))
	case *DoctorActor:
		return updateProfile(db, &models.Doctor{}, act.Profile.ID, p.doctor(photoURL))
	case *PatientActor:
		return updateProfile(db, &models.Patient{}, act.Profile.ID, p.common(photoURL))
	}
	return nil, apperror.Forbidden("Unknown actor")
}

// updateProfile updates a non-deleted profile row and reloads it into dest.
func updateProfile[T any](db *gorm.DB, dest *T, id string, fields map[string]interface{}) (*T, error) {
	if len(fields) > 0 {
		res := db.Model(dest).Where("id = ? AND is_deleted = ?", id, false).Updates(fields)
		if res.Error != nil {
			return nil, apperror.FromDB(res.Error, "")
		}
		if res.RowsAffected == 0 {
			return nil, apperror.NotFound("Profile not found")
		}
	}
	if err := db.Where("id = ? AND is_deleted = ?", id, false).First(dest).Error; err != nil {
		return nil, apperror.FromDB(err, "Profile not found")
	}
	return dest, nil
}

// ChangeStatus sets a user's status. A SUPER_ADMIN cannot be changed here.
func (s *UserService) ChangeStatus(ctx context.Context, id string, status models.UserStatus) (*models.UserSanitized, error) {
	switch status {
	case models.UserStatusActive, models.UserStatusBlocked, models.UserStatusDeleted:
	default:
		return nil, apperror.BadRequest("Invalid user status")
	}

	db := s.db.WithContext(ctx)
	var user models.User
	if err := db.First(&user, "id = ?", id).Error; err != nil {
		return nil, apperror.FromDB(err, "User not found")
	}
	if user.Role == models.RoleSuperAdmin {
		return nil, apperror.Forbidden("Cannot change the status of a super admin")
	}
	if err := db.Model(&user).Update("status", status).Error; err != nil {
		return nil, apperror.Internal(err)
	}
	user.Status = status
	out := user.Sanitize()
	return &out, nil
}
