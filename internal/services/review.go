package services

import (
	"context"

	"gorm.io/gorm"

	"medicare-server/internal/apperror"
	"medicare-server/internal/models"
	"medicare-server/internal/pagination"
)

// ReviewService records patient reviews and keeps doctor ratings current.
type ReviewService struct {
	db *gorm.DB
}

func NewReviewService(db *gorm.DB) *ReviewService {
	return &ReviewService{db: db}
}

// ReviewInput is the body of POST /review.
type ReviewInput struct {
	AppointmentID string  `json:"appointmentId" binding:"required"`
	Rating        float64 `json:"rating" binding:"required,min=1,max=5"`
	Comment       string  `json:"comment"`
}

// Create stores the patient's review of a completed, paid appointment and
// recomputes the doctor's average rating in the same transaction.
func (s *ReviewService) Create(ctx context.Context, patient *PatientActor, in ReviewInput) (*models.Review, error) {
	var review models.Review
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var appt models.Appointment
		if err := tx.First(&appt, "id = ?", in.AppointmentID).Error; err != nil {
			return apperror.FromDB(err, "Appointment not found")
		}
		if appt.PatientID != patient.Profile.ID {
			return apperror.BadRequest("This is not your appointment!")
		}
		if !appt.Billable() {
			return apperror.BadRequest("Reviews require a completed and paid appointment")
		}

		review = models.Review{
			AppointmentID: appt.ID,
			DoctorID:      appt.DoctorID,
			PatientID:     appt.PatientID,
			Rating:        in.Rating,
			Comment:       in.Comment,
		}
		if err := tx.Create(&review).Error; err != nil {
			return err
		}

		var avg float64
		err := tx.Model(&models.Review{}).
			Select("COALESCE(AVG(rating), 0)").
			Where("doctor_id = ?", appt.DoctorID).
			Scan(&avg).Error
		if err != nil {
			return err
		}
		return tx.Model(&models.Doctor{}).Where("id = ?", appt.DoctorID).Update("average_rating", avg).Error
	})
	if err != nil {
		if appErr, ok := apperror.As(apperror.FromDB(err, "")); ok && appErr.StatusCode == 409 {
			return nil, apperror.Conflict("This appointment has already been reviewed")
		}
		return nil, apperror.FromDB(err, "")
	}
	return &review, nil
}

// ReviewFilter lists the supported filters of GET /review.
type ReviewFilter struct {
	DoctorID     string `form:"doctorId"`
	PatientEmail string `form:"patientEmail"`
}

var reviewSortable = pagination.Sortable{
	"createdAt": "created_at",
	"rating":    "rating",
}

func (s *ReviewService) List(ctx context.Context, f ReviewFilter, opts pagination.Options) (*pagination.Result[models.Review], error) {
	db := s.db.WithContext(ctx)
	q := db.Model(&models.Review{})
	if f.DoctorID != "" {
		q = q.Where("doctor_id = ?", f.DoctorID)
	}
	if f.PatientEmail != "" {
		q = q.Where("patient_id IN (?)", db.Model(&models.Patient{}).Select("id").Where("email = ?", f.PatientEmail))
	}
	res, err := page[models.Review](q, opts, reviewSortable, "Doctor", "Patient")
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return res, nil
}
