package services

import (
	"bytes"
	"context"
	"math"
	"testing"
	"time"

	"gorm.io/gorm"

	"medicare-server/internal/apperror"
	"medicare-server/internal/events"
	"medicare-server/internal/models"
	"medicare-server/internal/pagination"
)

// bookAppointment books a fresh slot of the doctor for the patient and, when
// settled, marks it COMPLETED and PAID.
func bookAppointment(t *testing.T, db *gorm.DB, doctor *DoctorActor, patient *PatientActor, start time.Time, settled bool) *models.Appointment {
	t.Helper()
	slot := seedSlot(t, db, doctor.Profile.ID, start)
	booking, err := NewAppointmentService(db, &fakeGateway{}, events.Noop{}, nopLog).
		Book(context.Background(), patient, BookingInput{DoctorID: doctor.Profile.ID, ScheduleID: slot.ID})
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	appt := booking.Appointment
	if settled {
		err := db.Model(appt).Updates(map[string]interface{}{
			"status":         models.AppointmentCompleted,
			"payment_status": models.PaymentPaid,
		}).Error
		if err != nil {
			t.Fatal(err)
		}
	}
	return appt
}

func TestReviewCreate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewReviewService(db)
	doctor := seedDoctor(t, db, 40)
	patient := seedPatient(t, db)

	first := bookAppointment(t, db, doctor, patient, slotStart, true)
	second := bookAppointment(t, db, doctor, patient, slotStart.Add(time.Hour), true)
	pending := bookAppointment(t, db, doctor, patient, slotStart.Add(2*time.Hour), false)

	if _, err := svc.Create(ctx, patient, ReviewInput{AppointmentID: first.ID, Rating: 5}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Create(ctx, patient, ReviewInput{AppointmentID: second.ID, Rating: 2, Comment: "late"}); err != nil {
		t.Fatal(err)
	}

	var d models.Doctor
	if err := db.First(&d, "id = ?", doctor.Profile.ID).Error; err != nil {
		t.Fatal(err)
	}
	if math.Abs(d.AverageRating-3.5) > 1e-9 {
		t.Errorf("average rating = %v, want 3.5", d.AverageRating)
	}

	tests := []struct {
		name    string
		patient *PatientActor
		apptID  string
		want    int
	}{
		{"already reviewed", patient, first.ID, 409},
		{"not completed", patient, pending.ID, 400},
		{"someone else's appointment", seedPatient(t, db), second.ID, 400},
		{"unknown appointment", patient, "missing", 404},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.patient, ReviewInput{AppointmentID: tt.apptID, Rating: 4})
			if apperror.StatusOf(err) != tt.want {
				t.Errorf("err = %v, want %d", err, tt.want)
			}
		})
	}

	if n := countRows(t, db, &models.Review{}); n != 2 {
		t.Errorf("reviews = %d, want 2", n)
	}
}

func TestPrescriptionCreateAndPDF(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewPrescriptionService(db)
	doctor := seedDoctor(t, db, 40)
	patient := seedPatient(t, db)

	done := bookAppointment(t, db, doctor, patient, slotStart, true)
	pending := bookAppointment(t, db, doctor, patient, slotStart.Add(time.Hour), false)
	followUp := time.Date(2030, 2, 1, 0, 0, 0, 0, time.UTC)

	p, err := svc.Create(ctx, doctor, PrescriptionInput{AppointmentID: done.ID, Instructions: "Rest for two days", FollowUpDate: &followUp})
	if err != nil {
		t.Fatal(err)
	}
	if p.PatientID != patient.Profile.ID {
		t.Errorf("patient = %s, want %s", p.PatientID, patient.Profile.ID)
	}

	otherDoctor := seedDoctor(t, db, 40)
	tests := []struct {
		name   string
		doctor *DoctorActor
		apptID string
		want   int
	}{
		{"duplicate", doctor, done.ID, 409},
		{"not completed", doctor, pending.ID, 400},
		{"other doctor", otherDoctor, done.ID, 403},
		{"unknown appointment", doctor, "missing", 404},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.doctor, PrescriptionInput{AppointmentID: tt.apptID, Instructions: "x"})
			if apperror.StatusOf(err) != tt.want {
				t.Errorf("err = %v, want %d", err, tt.want)
			}
		})
	}

	mine, err := svc.Mine(ctx, patient.Profile.ID, pagination.Calculate(nil))
	if err != nil || mine.Meta.Total != 1 {
		t.Errorf("mine = %+v, %v", mine, err)
	}

	pdfTests := []struct {
		name  string
		actor Actor
		want  int
	}{
		{"patient", patient, 0},
		{"doctor", doctor, 0},
		{"admin", seedAdmin(t, db, models.RoleAdmin), 0},
		{"other patient", seedPatient(t, db), 403},
		{"other doctor", otherDoctor, 403},
	}
	for _, tt := range pdfTests {
		t.Run("pdf "+tt.name, func(t *testing.T) {
			out, err := svc.PDF(ctx, tt.actor, p.ID)
			if tt.want != 0 {
				if apperror.StatusOf(err) != tt.want {
					t.Errorf("err = %v, want %d", err, tt.want)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.HasPrefix(out, []byte("%PDF")) {
				t.Errorf("output is not a PDF: %q", out[:min(len(out), 8)])
			}
		})
	}
}
