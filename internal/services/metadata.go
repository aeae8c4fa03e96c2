package services

import (
	"context"

	"gorm.io/gorm"

	"medicare-server/internal/apperror"
	"medicare-server/internal/models"
)

// MetadataService builds the dashboard figures of each actor kind.
type MetadataService struct {
	db *gorm.DB
}

func NewMetadataService(db *gorm.DB) *MetadataService {
	return &MetadataService{db: db}
}

// StatusCount is one bucket of a group-by-status count.
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// AdminMetadata is the admin dashboard.
type AdminMetadata struct {
	PatientCount            int64         `json:"patientCount"`
	DoctorCount             int64         `json:"doctorCount"`
	AdminCount              int64         `json:"adminCount"`
	AppointmentCount        int64         `json:"appointmentCount"`
	PaymentCount            int64         `json:"paymentCount"`
	TotalRevenue            float64       `json:"totalRevenue"`
	UserStatusDistribution  []StatusCount `json:"userStatusDistribution"`
	AppointmentDistribution []StatusCount `json:"appointmentStatusDistribution"`
}

// DoctorMetadata is the doctor dashboard.
type DoctorMetadata struct {
	AppointmentCount        int64         `json:"appointmentCount"`
	PatientCount            int64         `json:"patientCount"`
	ReviewCount             int64         `json:"reviewCount"`
	TotalRevenue            float64       `json:"totalRevenue"`
	AppointmentDistribution []StatusCount `json:"appointmentStatusDistribution"`
}

// PatientMetadata is the patient dashboard.
type PatientMetadata struct {
	AppointmentCount        int64         `json:"appointmentCount"`
	PrescriptionCount       int64         `json:"prescriptionCount"`
	ReviewCount             int64         `json:"reviewCount"`
	AppointmentDistribution []StatusCount `json:"appointmentStatusDistribution"`
}

// Dashboard returns the figures for the actor's kind.
func (s *MetadataService) Dashboard(ctx context.Context, a Actor) (interface{}, error) {
	db := s.db.WithContext(ctx)
	var (
		out interface{}
		err error
	)
	switch act := a.(type) {
	case *AdminActor:
		out, err = adminMetadata(db)
	case *DoctorActor:
		out, err = doctorMetadata(db, act.Profile.ID)
	case *PatientActor:
		out, err = patientMetadata(db, act.Profile.ID)
	default:
		return nil, apperror.BadRequest("Invalid user role")
	}
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return out, nil
}

func count(db *gorm.DB, model interface{}, query string, args ...interface{}) (int64, error) {
	var n int64
	q := db.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	err := q.Count(&n).Error
	return n, err
}

func revenue(db *gorm.DB, doctorID string) (float64, error) {
	var sum float64
	q := db.Model(&models.Payment{}).Select("COALESCE(SUM(payments.amount), 0)").Where("payments.status = ?", models.PaymentPaid)
	if doctorID != "" {
		q = q.Joins("JOIN appointments ON appointments.id = payments.appointment_id").
			Where("appointments.doctor_id = ?", doctorID)
	}
	err := q.Scan(&sum).Error
	return sum, err
}

func groupByStatus(db *gorm.DB, model interface{}, query string, args ...interface{}) ([]StatusCount, error) {
	out := []StatusCount{}
	q := db.Model(model).Select("status, COUNT(*) AS count")
	if query != "" {
		q = q.Where(query, args...)
	}
	err := q.Group("status").Order("status").Scan(&out).Error
	return out, err
}

func adminMetadata(db *gorm.DB) (*AdminMetadata, error) {
	var m AdminMetadata
	var err error
	if m.PatientCount, err = count(db, &models.Patient{}, "is_deleted = ?", false); err != nil {
		return nil, err
	}
	if m.DoctorCount, err = count(db, &models.Doctor{}, "is_deleted = ?", false); err != nil {
		return nil, err
	}
	if m.AdminCount, err = count(db, &models.Admin{}, "is_deleted = ?", false); err != nil {
		return nil, err
	}
	if m.AppointmentCount, err = count(db, &models.Appointment{}, ""); err != nil {
		return nil, err
	}
	if m.PaymentCount, err = count(db, &models.Payment{}, ""); err != nil {
		return nil, err
	}
	if m.TotalRevenue, err = revenue(db, ""); err != nil {
		return nil, err
	}
	if m.UserStatusDistribution, err = groupByStatus(db, &models.User{}, ""); err != nil {
		return nil, err
	}
	if m.AppointmentDistribution, err = groupByStatus(db, &models.Appointment{}, ""); err != nil {
		return nil, err
	}
	return &m, nil
}

func doctorMetadata(db *gorm.DB, doctorID string) (*DoctorMetadata, error) {
	var m DoctorMetadata
	var err error
	if m.AppointmentCount, err = count(db, &models.Appointment{}, "doctor_id = ?", doctorID); err != nil {
		return nil, err
	}
	if err = db.Model(&models.Appointment{}).Where("doctor_id = ?", doctorID).Distinct("patient_id").Count(&m.PatientCount).Error; err != nil {
		return nil, err
	}
	if m.ReviewCount, err = count(db, &models.Review{}, "doctor_id = ?", doctorID); err != nil {
		return nil, err
	}
	if m.TotalRevenue, err = revenue(db, doctorID); err != nil {
		return nil, err
	}
	if m.AppointmentDistribution, err = groupByStatus(db, &models.Appointment{}, "doctor_id = ?", doctorID); err != nil {
		return nil, err
	}
	return &m, nil
}

func patientMetadata(db *gorm.DB, patientID string) (*PatientMetadata, error) {
	var m PatientMetadata
	var err error
	if m.AppointmentCount, err = count(db, &models.Appointment{}, "patient_id = ?", patientID); err != nil {
		return nil, err
	}
	if m.PrescriptionCount, err = count(db, &models.Prescription{}, "patient_id = ?", patientID); err != nil {
		return nil, err
	}
	if m.ReviewCount, err = count(db, &models.Review{}, "patient_id = ?", patientID); err != nil {
		return nil, err
	}
	if m.AppointmentDistribution, err = groupByStatus(db, &models.Appointment{}, "patient_id = ?", patientID); err != nil {
		return nil, err
	}
	return &m, nil
}
