package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"medicare-server/internal/events"
	"medicare-server/internal/models"
)

// DefaultUnpaidTTL is how long an appointment may stay unpaid.
const DefaultUnpaidTTL = 30 * time.Minute

// Reconciler expires appointments that were never paid.
type Reconciler struct {
	db     *gorm.DB
	ttl    time.Duration
	events events.Publisher
	log    zerolog.Logger
}

func NewReconciler(db *gorm.DB, ttl time.Duration, pub events.Publisher, log zerolog.Logger) *Reconciler {
	if ttl <= 0 {
		ttl = DefaultUnpaidTTL
	}
	return &Reconciler{db: db, ttl: ttl, events: pub, log: log}
}

// Sweep deletes every UNPAID appointment created before now-ttl together
// with its payment, and releases its slot. One sweep is one transaction.
// Appointments that turn PAID while the sweep runs are left alone. It
// returns the number of appointments released.
func (r *Reconciler) Sweep(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.UTC().Add(-r.ttl)

	var expired []models.Appointment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stale []models.Appointment
		err := tx.Where("payment_status = ? AND created_at < ?", models.PaymentUnpaid, cutoff).
			Find(&stale).Error
		if err != nil {
			return err
		}

		for i := range stale {
			appt := &stale[i]
			err := tx.Where("appointment_id = ? AND status = ?", appt.ID, models.PaymentUnpaid).
				Delete(&models.Payment{}).Error
			if err != nil {
				return err
			}
			res := tx.Where("id = ? AND payment_status = ?", appt.ID, models.PaymentUnpaid).
				Delete(&models.Appointment{})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				continue
			}
			if err := releaseSlot(tx, appt); err != nil {
				return err
			}
			expired = append(expired, *appt)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, appt := range expired {
		events.Emit(ctx, r.events, r.log, events.New(events.AppointmentExpired, appt.ID, map[string]string{
			"doctorId":   appt.DoctorID,
			"scheduleId": appt.ScheduleID,
		}))
	}
	return len(expired), nil
}
