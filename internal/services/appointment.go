package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"medicare-server/internal/apperror"
	"medicare-server/internal/events"
	"medicare-server/internal/models"
	"medicare-server/internal/pagination"
	"medicare-server/internal/payment"
)

// ErrSlotBooked is returned when the requested slot is already taken.
var ErrSlotBooked = apperror.Conflict("This schedule slot is already booked")

// AppointmentService books appointments and manages their lifecycle.
type AppointmentService struct {
	db      *gorm.DB
	gateway payment.Gateway
	events  events.Publisher
	log     zerolog.Logger
}

func NewAppointmentService(db *gorm.DB, gateway payment.Gateway, pub events.Publisher, log zerolog.Logger) *AppointmentService {
	return &AppointmentService{db: db, gateway: gateway, events: pub, log: log}
}

// BookingInput is the body of POST /appointment. PatientID is only read
// when an admin books on a patient's behalf.
type BookingInput struct {
	DoctorID   string `json:"doctorId" binding:"required"`
	ScheduleID string `json:"scheduleId" binding:"required"`
	PatientID  string `json:"patientId"`
}

// Booking is the result of a successful booking.
type Booking struct {
	Appointment *models.Appointment `json:"appointment"`
	PaymentURL  string              `json:"paymentUrl"`
}

// NewTransactionID returns a unique payment transaction id.
func NewTransactionID(now time.Time) string {
	return fmt.Sprintf("%s-%d", uuid.NewString(), now.UnixMilli())
}

// Book reserves a doctor's slot for a patient, creates the unpaid payment and
// opens a checkout session, all in one transaction. The slot row is locked
// where the database supports it and is flipped with a conditional update,
// so of two concurrent bookings of one slot exactly one succeeds. A gateway
// failure rolls everything back and is reported as a retryable 502.
func (s *AppointmentService) Book(ctx context.Context, a Actor, in BookingInput) (*Booking, error) {
	var patientID string
	switch act := a.(type) {
	case *PatientActor:
		patientID = act.Profile.ID
	case *AdminActor:
		if in.PatientID == "" {
			return nil, apperror.Validation([]apperror.Source{{Path: "patientId", Message: "patientId is required"}})
		}
		patientID = in.PatientID
	default:
		return nil, apperror.Forbidden("Only patients and admins can book appointments")
	}

	var booking *Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var patient models.Patient
		if err := tx.Where("id = ? AND is_deleted = ?", patientID, false).First(&patient).Error; err != nil {
			return apperror.FromDB(err, "Patient not found")
		}

		var doctor models.Doctor
		if err := tx.Where("id = ? AND is_deleted = ?", in.DoctorID, false).First(&doctor).Error; err != nil {
			return apperror.FromDB(err, "Doctor not found")
		}

		var slot models.DoctorSchedule
		lookup := tx
		if tx.Dialector.Name() != "sqlite" {
			lookup = lookup.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		err := lookup.
			Where("doctor_id = ? AND schedule_id = ? AND is_booked = ?", doctor.ID, in.ScheduleID, false).
			First(&slot).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return slotUnavailable(tx, doctor.ID, in.ScheduleID)
		}
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		appt := models.Appointment{
			PatientID:      patient.ID,
			DoctorID:       doctor.ID,
			ScheduleID:     in.ScheduleID,
			VideoCallingID: uuid.NewString(),
			Status:         models.AppointmentScheduled,
			PaymentStatus:  models.PaymentUnpaid,
		}
		if err := tx.Create(&appt).Error; err != nil {
			return err
		}

		res := tx.Model(&models.DoctorSchedule{}).
			Where("doctor_id = ? AND schedule_id = ? AND is_booked = ?", doctor.ID, in.ScheduleID, false).
			Updates(map[string]interface{}{"is_booked": true, "appointment_id": appt.ID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return ErrSlotBooked
		}

		pay := models.Payment{
			AppointmentID: appt.ID,
			Amount:        doctor.AppointmentFee,
			TransactionID: NewTransactionID(now),
			Status:        models.PaymentUnpaid,
		}
		if err := tx.Create(&pay).Error; err != nil {
			return err
		}

		checkout, err := s.gateway.CreateCheckout(ctx, payment.CheckoutRequest{
			AppointmentID: appt.ID,
			PaymentID:     pay.ID,
			TransactionID: pay.TransactionID,
			Amount:        pay.Amount,
			Description:   "Appointment with " + doctor.Name,
			CustomerName:  patient.Name,
			CustomerEmail: patient.Email,
			CustomerPhone: patient.ContactNumber,
			CustomerAddr:  patient.Address,
		})
		if err != nil {
			return apperror.Upstream("Payment gateway is unavailable, please try again", err)
		}

		appt.Payment = &pay
		booking = &Booking{Appointment: &appt, PaymentURL: checkout.URL}
		return nil
	})
	if err != nil {
		if appErr, ok := apperror.As(err); ok && appErr.StatusCode >= 500 {
			s.log.Error().Err(err).Str("doctorId", in.DoctorID).Str("scheduleId", in.ScheduleID).Msg("booking failed")
		}
		return nil, apperror.FromDB(err, "")
	}

	events.Emit(ctx, s.events, s.log, events.New(events.AppointmentBooked, booking.Appointment.ID, map[string]string{
		"doctorId":   booking.Appointment.DoctorID,
		"patientId":  booking.Appointment.PatientID,
		"scheduleId": booking.Appointment.ScheduleID,
	}))
	return booking, nil
}

func slotUnavailable(tx *gorm.DB, doctorID, scheduleID string) error {
	var n int64
	if err := tx.Model(&models.DoctorSchedule{}).Where("doctor_id = ? AND schedule_id = ?", doctorID, scheduleID).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return ErrSlotBooked
	}
	return apperror.NotFound("Doctor schedule not found")
}

// AppointmentFilter lists the supported filters of the appointment lists.
type AppointmentFilter struct {
	Status        models.AppointmentStatus `form:"status"`
	PaymentStatus models.PaymentStatus     `form:"paymentStatus"`
	DoctorEmail   string                   `form:"doctorEmail"`
	PatientEmail  string                   `form:"patientEmail"`
}

func (f AppointmentFilter) apply(q *gorm.DB) *gorm.DB {
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.PaymentStatus != "" {
		q = q.Where("payment_status = ?", f.PaymentStatus)
	}
	if f.DoctorEmail != "" {
		q = q.Where("doctor_id IN (?)", q.Session(&gorm.Session{NewDB: true}).Model(&models.Doctor{}).Select("id").Where("email = ?", f.DoctorEmail))
	}
	if f.PatientEmail != "" {
		q = q.Where("patient_id IN (?)", q.Session(&gorm.Session{NewDB: true}).Model(&models.Patient{}).Select("id").Where("email = ?", f.PatientEmail))
	}
	return q
}

var appointmentSortable = pagination.Sortable{
	"createdAt":     "created_at",
	"status":        "status",
	"paymentStatus": "payment_status",
}

var appointmentPreloads = []string{"Doctor", "Patient", "Schedule", "Payment"}

// ListMine pages through the actor's own appointments. Admins see all.
func (s *AppointmentService) ListMine(ctx context.Context, a Actor, f AppointmentFilter, opts pagination.Options) (*pagination.Result[models.Appointment], error) {
	q := s.db.WithContext(ctx).Model(&models.Appointment{})
	switch act := a.(type) {
	case *PatientActor:
		q = q.Where("patient_id = ?", act.Profile.ID)
	case *DoctorActor:
		q = q.Where("doctor_id = ?", act.Profile.ID)
	}
	f.DoctorEmail, f.PatientEmail = "", ""

	res, err := page[models.Appointment](f.apply(q), opts, appointmentSortable, appointmentPreloads...)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return res, nil
}

// List pages through all appointments.
func (s *AppointmentService) List(ctx context.Context, f AppointmentFilter, opts pagination.Options) (*pagination.Result[models.Appointment], error) {
	q := s.db.WithContext(ctx).Model(&models.Appointment{})
	res, err := page[models.Appointment](f.apply(q), opts, appointmentSortable, appointmentPreloads...)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return res, nil
}

// ChangeStatus moves an appointment to status. Doctors may only change their
// own appointments. Canceling an unpaid appointment releases its slot in the
// same transaction; a canceled appointment cannot change again.
func (s *AppointmentService) ChangeStatus(ctx context.Context, a Actor, id string, status models.AppointmentStatus) (*models.Appointment, error) {
	if !status.Valid() {
		return nil, apperror.BadRequest("Invalid appointment status")
	}

	var appt models.Appointment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&appt, "id = ?", id).Error; err != nil {
			return apperror.FromDB(err, "Appointment not found")
		}
		switch act := a.(type) {
		case *DoctorActor:
			if appt.DoctorID != act.Profile.ID {
				return apperror.Forbidden("This is not your appointment!")
			}
		case *AdminActor:
		default:
			return apperror.Forbidden("You are not authorized!")
		}
		if appt.Status == models.AppointmentCanceled {
			return apperror.BadRequest("A canceled appointment cannot change status")
		}

		if err := tx.Model(&appt).Update("status", status).Error; err != nil {
			return err
		}
		if status == models.AppointmentCanceled && appt.PaymentStatus == models.PaymentUnpaid {
			return releaseSlot(tx, &appt)
		}
		return nil
	})
	if err != nil {
		return nil, apperror.FromDB(err, "Appointment not found")
	}
	return &appt, nil
}

// releaseSlot makes the appointment's doctor slot bookable again. A slot
// already rebooked by another appointment is left untouched.
func releaseSlot(tx *gorm.DB, appt *models.Appointment) error {
	return tx.Model(&models.DoctorSchedule{}).
		Where("doctor_id = ? AND schedule_id = ? AND appointment_id = ?", appt.DoctorID, appt.ScheduleID, appt.ID).
		Updates(map[string]interface{}{"is_booked": false, "appointment_id": nil}).Error
}
