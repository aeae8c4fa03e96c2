package services

import (
	"context"

	"gorm.io/gorm"

	"medicare-server/internal/apperror"
	"medicare-server/internal/models"
	"medicare-server/internal/pagination"
)

// ProfileFilter lists the supported filters of GET /patient and GET /admin.
type ProfileFilter struct {
	SearchTerm    string `form:"searchTerm"`
	Email         string `form:"email"`
	ContactNumber string `form:"contactNumber"`
}

func (f ProfileFilter) apply(q *gorm.DB) *gorm.DB {
	q = containsAny(q, f.SearchTerm, "name", "email", "contact_number")
	if f.Email != "" {
		q = q.Where("email = ?", f.Email)
	}
	if f.ContactNumber != "" {
		q = q.Where("contact_number = ?", f.ContactNumber)
	}
	return q
}

var profileSortable = pagination.Sortable{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"name":      "name",
	"email":     "email",
}

// PatientService reads and maintains patient profiles.
type PatientService struct {
	db *gorm.DB
}

func NewPatientService(db *gorm.DB) *PatientService {
	return &PatientService{db: db}
}

func (s *PatientService) List(ctx context.Context, f ProfileFilter, opts pagination.Options) (*pagination.Result[models.Patient], error) {
	q := s.db.WithContext(ctx).Model(&models.Patient{}).Where("is_deleted = ?", false)
	res, err := page[models.Patient](f.apply(q), opts, profileSortable)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return res, nil
}

func (s *PatientService) Get(ctx context.Context, id string) (*models.Patient, error) {
	var p models.Patient
	if err := s.db.WithContext(ctx).Where("id = ? AND is_deleted = ?", id, false).First(&p).Error; err != nil {
		return nil, apperror.FromDB(err, "Patient not found")
	}
	return &p, nil
}

func (s *PatientService) Update(ctx context.Context, id string, in ProfileUpdate) (*models.Patient, error) {
	return updateProfile(s.db.WithContext(ctx), &models.Patient{}, id, in.common(""))
}

// SoftDelete marks the patient deleted and the linked user DELETED.
func (s *PatientService) SoftDelete(ctx context.Context, id string) (*models.Patient, error) {
	var p models.Patient
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return softDeleteProfile(tx, &p, id)
	})
	if err != nil {
		return nil, apperror.FromDB(err, "Patient not found")
	}
	return &p, nil
}

// AdminService reads and maintains admin profiles.
type AdminService struct {
	db *gorm.DB
}

func NewAdminService(db *gorm.DB) *AdminService {
	return &AdminService{db: db}
}

func (s *AdminService) List(ctx context.Context, f ProfileFilter, opts pagination.Options) (*pagination.Result[models.Admin], error) {
	q := s.db.WithContext(ctx).Model(&models.Admin{}).Where("is_deleted = ?", false)
	res, err := page[models.Admin](f.apply(q), opts, profileSortable)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return res, nil
}

func (s *AdminService) Get(ctx context.Context, id string) (*models.Admin, error) {
	var a models.Admin
	if err := s.db.WithContext(ctx).Where("id = ? AND is_deleted = ?", id, false).First(&a).Error; err != nil {
		return nil, apperror.FromDB(err, "Admin not found")
	}
	return &a, nil
}

func (s *AdminService) Update(ctx context.Context, id string, in ProfileUpdate) (*models.Admin, error) {
	return updateProfile(s.db.WithContext(ctx), &models.Admin{}, id, in.common(""))
}

// SoftDelete marks the admin deleted and the linked user DELETED. An admin
// cannot delete themselves.
func (s *AdminService) SoftDelete(ctx context.Context, a Actor, id string) (*models.Admin, error) {
	if act, ok := a.(*AdminActor); ok && act.Profile.ID == id {
		return nil, apperror.BadRequest("You cannot delete your own account")
	}
	var admin models.Admin
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return softDeleteProfile(tx, &admin, id)
	})
	if err != nil {
		return nil, apperror.FromDB(err, "Admin not found")
	}
	return &admin, nil
}

// SpecialtyService manages the specialty catalogue.
type SpecialtyService struct {
	db *gorm.DB
}

func NewSpecialtyService(db *gorm.DB) *SpecialtyService {
	return &SpecialtyService{db: db}
}

// SpecialtyInput is the "data" part of POST /specialties.
type SpecialtyInput struct {
	Title string `json:"title" binding:"required"`
}

func (s *SpecialtyService) Create(ctx context.Context, in SpecialtyInput, iconURL string) (*models.Specialty, error) {
	sp := &models.Specialty{Title: in.Title, Icon: iconURL}
	if err := s.db.WithContext(ctx).Create(sp).Error; err != nil {
		return nil, apperror.FromDB(err, "")
	}
	return sp, nil
}

func (s *SpecialtyService) List(ctx context.Context) ([]models.Specialty, error) {
	out := []models.Specialty{}
	if err := s.db.WithContext(ctx).Order("title asc").Find(&out).Error; err != nil {
		return nil, apperror.Internal(err)
	}
	return out, nil
}

// Delete removes a specialty and its doctor links.
func (s *SpecialtyService) Delete(ctx context.Context, id string) (*models.Specialty, error) {
	var sp models.Specialty
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&sp, "id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Where("specialty_id = ?", id).Delete(&models.DoctorSpecialty{}).Error; err != nil {
			return err
		}
		return tx.Delete(&sp).Error
	})
	if err != nil {
		return nil, apperror.FromDB(err, "Specialty not found")
	}
	return &sp, nil
}
