package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"medicare-server/internal/apperror"
	"medicare-server/internal/events"
	"medicare-server/internal/mailer"
	"medicare-server/internal/models"
	"medicare-server/internal/payment"
)

// Validator confirms gateway-initiated payment notifications.
type Validator interface {
	Validate(ctx context.Context, valID string) (*payment.Validation, error)
}

// PaymentService settles payments reported by the gateways.
type PaymentService struct {
	db        *gorm.DB
	checkout  payment.Gateway
	validator Validator
	events    events.Publisher
	mailer    mailer.Mailer
	log       zerolog.Logger
}

func NewPaymentService(db *gorm.DB, checkout payment.Gateway, validator Validator, pub events.Publisher, m mailer.Mailer, log zerolog.Logger) *PaymentService {
	return &PaymentService{db: db, checkout: checkout, validator: validator, events: pub, mailer: m, log: log}
}

// markPaid moves a payment and its appointment to PAID. It reports whether
// this call performed the transition; an already PAID pair is left as is.
func markPaid(tx *gorm.DB, pay *models.Payment, gatewayData []byte) (bool, error) {
	if pay.Status == models.PaymentPaid {
		return false, nil
	}
	res := tx.Model(&models.Payment{}).
		Where("id = ? AND status = ?", pay.ID, models.PaymentUnpaid).
		Updates(map[string]interface{}{
			"status":               models.PaymentPaid,
			"payment_gateway_data": datatypes.JSON(gatewayData),
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	err := tx.Model(&models.Appointment{}).
		Where("id = ?", pay.AppointmentID).
		Update("payment_status", models.PaymentPaid).Error
	if err != nil {
		return false, err
	}
	pay.Status = models.PaymentPaid
	return true, nil
}

// HandleCheckoutCompleted applies a verified checkout.session.completed
// event. A paid session moves the pair to PAID; an unpaid one records the
// gateway payload but never downgrades a PAID pair. Replays are no-ops.
func (s *PaymentService) HandleCheckoutCompleted(ctx context.Context, evt *payment.CheckoutCompleted) error {
	if evt.AppointmentID == "" || evt.PaymentID == "" {
		s.log.Warn().Str("session", evt.SessionID).Msg("checkout session without appointment metadata ignored")
		return nil
	}

	var pay models.Payment
	var transitioned bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("id = ? AND appointment_id = ?", evt.PaymentID, evt.AppointmentID).First(&pay).Error
		if err != nil {
			return err
		}
		if !evt.Paid {
			if pay.Status == models.PaymentPaid {
				return nil
			}
			return tx.Model(&pay).Update("payment_gateway_data", datatypes.JSON(evt.Raw)).Error
		}
		transitioned, err = markPaid(tx, &pay, evt.Raw)
		return err
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// The sweep may already have expired this appointment.
		s.log.Warn().Str("appointmentId", evt.AppointmentID).Str("paymentId", evt.PaymentID).Msg("webhook for unknown payment ignored")
		return nil
	}
	if err != nil {
		return apperror.FromDB(err, "Payment not found")
	}

	if transitioned {
		s.afterPaid(ctx, &pay)
	}
	return nil
}

// InitPayment opens a hosted checkout for the patient's unpaid appointment.
func (s *PaymentService) InitPayment(ctx context.Context, a Actor, appointmentID string) (string, error) {
	var pay models.Payment
	err := s.db.WithContext(ctx).Where("appointment_id = ?", appointmentID).First(&pay).Error
	if err != nil {
		return "", apperror.FromDB(err, "Payment data not found")
	}

	var appt models.Appointment
	if err := s.db.WithContext(ctx).Preload("Patient").First(&appt, "id = ?", appointmentID).Error; err != nil {
		return "", apperror.FromDB(err, "Appointment not found")
	}
	if p, ok := a.(*PatientActor); ok && appt.PatientID != p.Profile.ID {
		return "", apperror.Forbidden("This is not your appointment!")
	}
	if pay.Status == models.PaymentPaid {
		return "", apperror.Conflict("This appointment is already paid")
	}

	req := payment.CheckoutRequest{
		AppointmentID: appt.ID,
		PaymentID:     pay.ID,
		TransactionID: pay.TransactionID,
		Amount:        pay.Amount,
		Description:   "Appointment",
	}
	if appt.Patient != nil {
		req.CustomerName = appt.Patient.Name
		req.CustomerEmail = appt.Patient.Email
		req.CustomerPhone = appt.Patient.ContactNumber
		req.CustomerAddr = appt.Patient.Address
	}
	checkout, err := s.checkout.CreateCheckout(ctx, req)
	if err != nil {
		return "", apperror.Upstream("Payment gateway is unavailable, please try again", err)
	}
	return checkout.URL, nil
}

// IPNInput is the gateway's instant payment notification.
type IPNInput struct {
	TransactionID string `form:"tran_id" binding:"required"`
	ValID         string `form:"val_id"`
	Status        string `form:"status"`
}

// HandleIPN validates a gateway notification with the gateway itself and, if
// confirmed, marks the payment and appointment PAID. It returns a message
// for the caller; unconfirmed payments are not errors.
func (s *PaymentService) HandleIPN(ctx context.Context, in IPNInput) (string, error) {
	if in.Status != "VALID" || in.ValID == "" {
		return "Invalid Payment!", nil
	}

	v, err := s.validator.Validate(ctx, in.ValID)
	if err != nil {
		return "", apperror.Upstream("Payment validation failed, please retry", err)
	}
	if !v.Valid() || v.TransactionID != in.TransactionID {
		return "Payment Failed!", nil
	}

	var pay models.Payment
	var transitioned bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("transaction_id = ?", in.TransactionID).First(&pay).Error; err != nil {
			return err
		}
		transitioned, err = markPaid(tx, &pay, v.Raw)
		return err
	})
	if err != nil {
		return "", apperror.FromDB(err, "Payment not found")
	}

	if transitioned {
		s.afterPaid(ctx, &pay)
	}
	return "Payment success!", nil
}

// afterPaid publishes payment.paid and emails a receipt. Failures are logged.
func (s *PaymentService) afterPaid(ctx context.Context, pay *models.Payment) {
	events.Emit(ctx, s.events, s.log, events.New(events.PaymentPaid, pay.AppointmentID, map[string]interface{}{
		"paymentId":     pay.ID,
		"transactionId": pay.TransactionID,
		"amount":        pay.Amount,
	}))

	var appt models.Appointment
	err := s.db.WithContext(ctx).Preload("Patient").Preload("Doctor").Preload("Schedule").First(&appt, "id = ?", pay.AppointmentID).Error
	if err != nil || appt.Patient == nil {
		s.log.Error().Err(err).Str("appointmentId", pay.AppointmentID).Msg("cannot load appointment for receipt")
		return
	}
	data := mailer.PaymentReceiptData{
		Name:          appt.Patient.Name,
		Amount:        pay.Amount,
		TransactionID: pay.TransactionID,
	}
	if appt.Doctor != nil {
		data.DoctorName = appt.Doctor.Name
	}
	if appt.Schedule != nil {
		data.Slot = appt.Schedule.StartDateTime.UTC().Format("02 Jan 2006 15:04 MST")
	}
	body, err := mailer.Render("payment-receipt", data)
	if err == nil {
		err = s.mailer.Send(ctx, mailer.Message{To: appt.Patient.Email, Subject: "Payment received", HTML: body})
	}
	if err != nil {
		s.log.Error().Err(err).Str("appointmentId", pay.AppointmentID).Msg("failed to send payment receipt")
	}
}
