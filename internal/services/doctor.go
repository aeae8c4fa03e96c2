package services

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"medicare-server/internal/apperror"
	"medicare-server/internal/models"
	"medicare-server/internal/pagination"
)

// DoctorService reads and maintains doctor profiles.
type DoctorService struct {
	db *gorm.DB
}

func NewDoctorService(db *gorm.DB) *DoctorService {
	return &DoctorService{db: db}
}

// DoctorFilter lists the supported filters of GET /doctor. SearchTerm matches
// name, email and contact number; Specialties matches a specialty title; the
// rest are equality filters.
type DoctorFilter struct {
	SearchTerm     string        `form:"searchTerm"`
	Email          string        `form:"email"`
	ContactNumber  string        `form:"contactNumber"`
	Gender         models.Gender `form:"gender"`
	AppointmentFee *float64      `form:"appointmentFee"`
	Specialties    string        `form:"specialties"`
}

var doctorSortable = pagination.Sortable{
	"createdAt":      "created_at",
	"name":           "name",
	"experience":     "experience",
	"appointmentFee": "appointment_fee",
	"averageRating":  "average_rating",
}

func (f DoctorFilter) apply(q *gorm.DB) *gorm.DB {
	q = containsAny(q, f.SearchTerm, "name", "email", "contact_number")
	if f.Email != "" {
		q = q.Where("email = ?", f.Email)
	}
	if f.ContactNumber != "" {
		q = q.Where("contact_number = ?", f.ContactNumber)
	}
	if f.Gender != "" {
		q = q.Where("gender = ?", f.Gender)
	}
	if f.AppointmentFee != nil {
		q = q.Where("appointment_fee = ?", *f.AppointmentFee)
	}
	if f.Specialties != "" {
		sub := contains(q.Session(&gorm.Session{NewDB: true}).
			Table("doctor_specialties").
			Select("doctor_specialties.doctor_id").
			Joins("JOIN specialties ON specialties.id = doctor_specialties.specialty_id"),
			"specialties.title", f.Specialties)
		q = q.Where("id IN (?)", sub)
	}
	return q
}

// List pages through non-deleted doctors with their specialties.
func (s *DoctorService) List(ctx context.Context, f DoctorFilter, opts pagination.Options) (*pagination.Result[models.Doctor], error) {
	q := s.db.WithContext(ctx).Model(&models.Doctor{}).Where("is_deleted = ?", false)
	res, err := page[models.Doctor](f.apply(q), opts, doctorSortable, "DoctorSpecialties.Specialty")
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return res, nil
}

// Get returns a non-deleted doctor with specialties.
func (s *DoctorService) Get(ctx context.Context, id string) (*models.Doctor, error) {
	var d models.Doctor
	err := s.db.WithContext(ctx).
		Preload("DoctorSpecialties.Specialty").
		Where("id = ? AND is_deleted = ?", id, false).
		First(&d).Error
	if err != nil {
		return nil, apperror.FromDB(err, "Doctor not found")
	}
	return &d, nil
}

// DoctorUpdate is the body of PATCH /doctor/:id.
type DoctorUpdate struct {
	ProfileUpdate
	RegistrationNumber *string        `json:"registrationNumber"`
	Gender             *models.Gender `json:"gender" binding:"omitempty,oneof=MALE FEMALE"`
	Specialties        []string       `json:"specialties"`
	RemoveSpecialties  []string       `json:"removeSpecialties"`
}

// Update edits a doctor profile and its specialty links in one transaction.
// Admins may update any doctor, a doctor only themselves. Removals are
// applied before additions, so an id in both lists ends up linked.
func (s *DoctorService) Update(ctx context.Context, a Actor, id string, in DoctorUpdate) (*models.Doctor, error) {
	if d, ok := a.(*DoctorActor); ok && d.Profile.ID != id {
		return nil, apperror.Forbidden("You can only update your own profile")
	} else if !ok && !HasRole(a, models.RoleAdmin) {
		return nil, apperror.Forbidden("You are not authorized!")
	}

	fields := in.doctor("")
	if in.RegistrationNumber != nil {
		fields["registration_number"] = *in.RegistrationNumber
	}
	if in.Gender != nil {
		fields["gender"] = *in.Gender
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var d models.Doctor
		if err := tx.Where("id = ? AND is_deleted = ?", id, false).First(&d).Error; err != nil {
			return err
		}
		if len(fields) > 0 {
			if err := tx.Model(&d).Updates(fields).Error; err != nil {
				return err
			}
		}
		if len(in.RemoveSpecialties) > 0 {
			err := tx.Where("doctor_id = ? AND specialty_id IN ?", id, in.RemoveSpecialties).
				Delete(&models.DoctorSpecialty{}).Error
			if err != nil {
				return err
			}
		}
		return addSpecialties(tx, id, in.Specialties)
	})
	if err != nil {
		return nil, apperror.FromDB(err, "Doctor not found")
	}
	return s.Get(ctx, id)
}

// addSpecialties links specialties to a doctor, skipping existing links.
func addSpecialties(tx *gorm.DB, doctorID string, specialtyIDs []string) error {
	if len(specialtyIDs) == 0 {
		return nil
	}
	var count int64
	if err := tx.Model(&models.Specialty{}).Where("id IN ?", specialtyIDs).Count(&count).Error; err != nil {
		return err
	}
	if int(count) != len(uniqueStrings(specialtyIDs)) {
		return apperror.BadRequest("One or more specialties do not exist")
	}

	links := make([]models.DoctorSpecialty, 0, len(specialtyIDs))
	for _, id := range uniqueStrings(specialtyIDs) {
		links = append(links, models.DoctorSpecialty{DoctorID: doctorID, SpecialtyID: id})
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// SoftDelete marks the doctor deleted and the linked user DELETED.
func (s *DoctorService) SoftDelete(ctx context.Context, id string) (*models.Doctor, error) {
	var d models.Doctor
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return softDeleteProfile(tx, &d, id)
	})
	if err != nil {
		return nil, apperror.FromDB(err, "Doctor not found")
	}
	return &d, nil
}

// Delete removes a doctor, their specialty links, their slots and their
// user. Doctors with appointment history cannot be removed.
func (s *DoctorService) Delete(ctx context.Context, id string) (*models.Doctor, error) {
	var d models.Doctor
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&d, "id = ?", id).Error; err != nil {
			return err
		}
		var n int64
		if err := tx.Model(&models.Appointment{}).Where("doctor_id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return apperror.Conflict("Doctor has appointments and cannot be deleted; use soft delete")
		}
		if err := tx.Where("doctor_id = ?", id).Delete(&models.DoctorSpecialty{}).Error; err != nil {
			return err
		}
		if err := tx.Where("doctor_id = ?", id).Delete(&models.DoctorSchedule{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&d).Error; err != nil {
			return err
		}
		return tx.Where("email = ?", d.Email).Delete(&models.User{}).Error
	})
	if err != nil {
		return nil, apperror.FromDB(err, "Doctor not found")
	}
	return &d, nil
}

// softDeleteProfile flags a profile deleted and sets its user DELETED. dest
// is one of *models.Admin, *models.Doctor or *models.Patient and receives the
// updated row.
func softDeleteProfile(tx *gorm.DB, dest interface{}, id string) error {
	if err := tx.Where("id = ? AND is_deleted = ?", id, false).First(dest).Error; err != nil {
		return err
	}
	if err := tx.Model(dest).Update("is_deleted", true).Error; err != nil {
		return err
	}

	var email string
	if err := tx.Model(dest).Select("email").Where("id = ?", id).Scan(&email).Error; err != nil {
		return err
	}
	return tx.Model(&models.User{}).Where("email = ?", email).Update("status", models.UserStatusDeleted).Error
}
