package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"medicare-server/internal/apperror"
	"medicare-server/internal/models"
	"medicare-server/internal/pagination"
	"medicare-server/internal/report"
)

// PrescriptionService issues and renders prescriptions.
type PrescriptionService struct {
	db *gorm.DB
}

func NewPrescriptionService(db *gorm.DB) *PrescriptionService {
	return &PrescriptionService{db: db}
}

// PrescriptionInput is the body of POST /prescription.
type PrescriptionInput struct {
	AppointmentID string     `json:"appointmentId" binding:"required"`
	Instructions  string     `json:"instructions" binding:"required"`
	FollowUpDate  *time.Time `json:"followUpDate"`
}

// Create writes the single prescription of a completed, paid appointment of
// the calling doctor.
func (s *PrescriptionService) Create(ctx context.Context, doctor *DoctorActor, in PrescriptionInput) (*models.Prescription, error) {
	var p models.Prescription
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var appt models.Appointment
		if err := tx.First(&appt, "id = ?", in.AppointmentID).Error; err != nil {
			return apperror.FromDB(err, "No appointment found with id")
		}
		if appt.DoctorID != doctor.Profile.ID {
			return apperror.Forbidden("This is not your appointment!")
		}
		if !appt.Billable() {
			return apperror.BadRequest("Prescriptions require a completed and paid appointment")
		}

		p = models.Prescription{
			AppointmentID: appt.ID,
			DoctorID:      appt.DoctorID,
			PatientID:     appt.PatientID,
			Instructions:  in.Instructions,
		}
		if in.FollowUpDate != nil {
			t := in.FollowUpDate.UTC()
			p.FollowUpDate = &t
		}
		if err := tx.Create(&p).Error; err != nil {
			return err
		}
		return tx.Preload("Patient").First(&p, "id = ?", p.ID).Error
	})
	if err != nil {
		if appErr, ok := apperror.As(apperror.FromDB(err, "")); ok && appErr.StatusCode == 409 {
			return nil, apperror.Conflict("A prescription already exists for this appointment")
		}
		return nil, apperror.FromDB(err, "")
	}
	return &p, nil
}

// PrescriptionFilter lists the supported filters of GET /prescription.
type PrescriptionFilter struct {
	PatientEmail string `form:"patientEmail"`
	DoctorEmail  string `form:"doctorEmail"`
}

var prescriptionSortable = pagination.Sortable{
	"createdAt":    "created_at",
	"followUpDate": "follow_up_date",
}

// Mine pages through a patient's prescriptions.
func (s *PrescriptionService) Mine(ctx context.Context, patientID string, opts pagination.Options) (*pagination.Result[models.Prescription], error) {
	q := s.db.WithContext(ctx).Model(&models.Prescription{}).Where("patient_id = ?", patientID)
	res, err := page[models.Prescription](q, opts, prescriptionSortable, "Doctor", "Appointment")
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return res, nil
}

// List pages through all prescriptions.
func (s *PrescriptionService) List(ctx context.Context, f PrescriptionFilter, opts pagination.Options) (*pagination.Result[models.Prescription], error) {
	db := s.db.WithContext(ctx)
	q := db.Model(&models.Prescription{})
	if f.PatientEmail != "" {
		q = q.Where("patient_id IN (?)", db.Model(&models.Patient{}).Select("id").Where("email = ?", f.PatientEmail))
	}
	if f.DoctorEmail != "" {
		q = q.Where("doctor_id IN (?)", db.Model(&models.Doctor{}).Select("id").Where("email = ?", f.DoctorEmail))
	}
	res, err := page[models.Prescription](q, opts, prescriptionSortable, "Doctor", "Patient")
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return res, nil
}

// PDF renders a prescription visible to the actor: its patient, its doctor
// or any admin.
func (s *PrescriptionService) PDF(ctx context.Context, a Actor, id string) ([]byte, error) {
	var p models.Prescription
	err := s.db.WithContext(ctx).
		Preload("Doctor").Preload("Patient").Preload("Appointment.Schedule").
		First(&p, "id = ?", id).Error
	if err != nil {
		return nil, apperror.FromDB(err, "Prescription not found")
	}

	switch act := a.(type) {
	case *PatientActor:
		if p.PatientID != act.Profile.ID {
			return nil, apperror.Forbidden("This is not your prescription!")
		}
	case *DoctorActor:
		if p.DoctorID != act.Profile.ID {
			return nil, apperror.Forbidden("This is not your prescription!")
		}
	}

	doc := report.PrescriptionDoc{
		ID:           p.ID,
		IssuedAt:     p.CreatedAt,
		Instructions: p.Instructions,
		FollowUpDate: p.FollowUpDate,
	}
	if p.Doctor != nil {
		doc.DoctorName = p.Doctor.Name
		doc.Designation = p.Doctor.Designation
		doc.Qualification = p.Doctor.Qualification
		doc.Workplace = p.Doctor.CurrentWorkingPlace
	}
	if p.Patient != nil {
		doc.PatientName = p.Patient.Name
		doc.PatientEmail = p.Patient.Email
	}
	if p.Appointment != nil && p.Appointment.Schedule != nil {
		doc.Slot = p.Appointment.Schedule.StartDateTime
	}

	out, err := report.PrescriptionPDF(doc)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return out, nil
}
