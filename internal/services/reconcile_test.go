package services

import (
	"context"
	"testing"
	"time"

	"medicare-server/internal/events"
	"medicare-server/internal/models"
	"medicare-server/internal/payment"
)

func TestSweep(t *testing.T) {
	db := newTestDB(t)
	doctor := seedDoctor(t, db, 60)
	booker := NewAppointmentService(db, &fakeGateway{}, events.Noop{}, nopLog)
	payments := NewPaymentService(db, &fakeGateway{}, nil, events.Noop{}, &recordingMailer{}, nopLog)
	ctx := context.Background()
	now := time.Now().UTC()

	book := func(i int, age time.Duration) *Booking {
		slot := seedSlot(t, db, doctor.Profile.ID, slotStart.Add(time.Duration(i)*time.Hour))
		b, err := booker.Book(ctx, seedPatient(t, db), BookingInput{DoctorID: doctor.Profile.ID, ScheduleID: slot.ID})
		if err != nil {
			t.Fatal(err)
		}
		if err := db.Model(&models.Appointment{}).Where("id = ?", b.Appointment.ID).
			Update("created_at", now.Add(-age)).Error; err != nil {
			t.Fatal(err)
		}
		return b
	}

	stale := book(0, 45*time.Minute)
	fresh := book(1, 5*time.Minute)
	paid := book(2, 2*time.Hour)
	err := payments.HandleCheckoutCompleted(ctx, &payment.CheckoutCompleted{
		AppointmentID: paid.Appointment.ID,
		PaymentID:     paid.Appointment.Payment.ID,
		Paid:          true,
		Raw:           []byte(`{}`),
	})
	if err != nil {
		t.Fatal(err)
	}

	pub := &recordingPublisher{}
	r := NewReconciler(db, 30*time.Minute, pub, nopLog)
	n, err := r.Sweep(ctx, now)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 1 {
		t.Errorf("released = %d, want 1", n)
	}

	var count int64
	db.Model(&models.Appointment{}).Where("id = ?", stale.Appointment.ID).Count(&count)
	if count != 0 {
		t.Error("stale appointment still present")
	}
	db.Model(&models.Payment{}).Where("appointment_id = ?", stale.Appointment.ID).Count(&count)
	if count != 0 {
		t.Error("stale payment still present")
	}
	if ds := loadSlot(t, db, doctor.Profile.ID, stale.Appointment.ScheduleID); ds.IsBooked || ds.AppointmentID != nil {
		t.Errorf("stale slot not released: %+v", ds)
	}

	for _, b := range []*Booking{fresh, paid} {
		db.Model(&models.Appointment{}).Where("id = ?", b.Appointment.ID).Count(&count)
		if count != 1 {
			t.Errorf("appointment %s removed", b.Appointment.ID)
		}
		if ds := loadSlot(t, db, doctor.Profile.ID, b.Appointment.ScheduleID); !ds.IsBooked {
			t.Errorf("slot of %s released", b.Appointment.ID)
		}
	}

	if got := pub.types(); len(got) != 1 || got[0] != events.AppointmentExpired {
		t.Errorf("events = %v", got)
	}

	n, err = r.Sweep(ctx, now)
	if err != nil || n != 0 {
		t.Errorf("second sweep = %d, %v; want 0, nil", n, err)
	}
}
