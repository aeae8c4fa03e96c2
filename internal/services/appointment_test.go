package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"medicare-server/internal/apperror"
	"medicare-server/internal/events"
	"medicare-server/internal/models"
	"medicare-server/internal/pagination"
)

var slotStart = time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)

func TestBook_Success(t *testing.T) {
	db := newTestDB(t)
	doctor := seedDoctor(t, db, 100)
	patient := seedPatient(t, db)
	slot := seedSlot(t, db, doctor.Profile.ID, slotStart)
	gw := &fakeGateway{}
	pub := &recordingPublisher{}
	svc := NewAppointmentService(db, gw, pub, nopLog)

	booking, err := svc.Book(context.Background(), patient, BookingInput{DoctorID: doctor.Profile.ID, ScheduleID: slot.ID})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	appt := booking.Appointment
	if appt.Status != models.AppointmentScheduled || appt.PaymentStatus != models.PaymentUnpaid {
		t.Errorf("appointment = %s/%s, want SCHEDULED/UNPAID", appt.Status, appt.PaymentStatus)
	}
	if appt.PatientID != patient.Profile.ID || appt.VideoCallingID == "" {
		t.Errorf("unexpected appointment %+v", appt)
	}
	if booking.PaymentURL == "" {
		t.Error("expected a payment url")
	}

	ds := loadSlot(t, db, doctor.Profile.ID, slot.ID)
	if !ds.IsBooked || ds.AppointmentID == nil || *ds.AppointmentID != appt.ID {
		t.Errorf("slot not booked by appointment: %+v", ds)
	}

	var pay models.Payment
	if err := db.First(&pay, "appointment_id = ?", appt.ID).Error; err != nil {
		t.Fatalf("payment: %v", err)
	}
	if pay.Amount != 100 || pay.Status != models.PaymentUnpaid || pay.TransactionID == "" {
		t.Errorf("unexpected payment %+v", pay)
	}
	if len(gw.calls) != 1 || gw.calls[0].PaymentID != pay.ID || gw.calls[0].AppointmentID != appt.ID {
		t.Errorf("gateway calls = %+v", gw.calls)
	}
	if got := pub.types(); len(got) != 1 || got[0] != events.AppointmentBooked {
		t.Errorf("events = %v", got)
	}
}

func TestBook_AlreadyBooked(t *testing.T) {
	db := newTestDB(t)
	doctor := seedDoctor(t, db, 50)
	slot := seedSlot(t, db, doctor.Profile.ID, slotStart)
	svc := NewAppointmentService(db, &fakeGateway{}, events.Noop{}, nopLog)

	first := seedPatient(t, db)
	if _, err := svc.Book(context.Background(), first, BookingInput{DoctorID: doctor.Profile.ID, ScheduleID: slot.ID}); err != nil {
		t.Fatalf("first booking: %v", err)
	}

	second := seedPatient(t, db)
	_, err := svc.Book(context.Background(), second, BookingInput{DoctorID: doctor.Profile.ID, ScheduleID: slot.ID})
	if apperror.StatusOf(err) != 409 {
		t.Fatalf("second booking err = %v, want 409", err)
	}
	if n := countRows(t, db, &models.Appointment{}); n != 1 {
		t.Errorf("appointments = %d, want 1", n)
	}
	if n := countRows(t, db, &models.Payment{}); n != 1 {
		t.Errorf("payments = %d, want 1", n)
	}
}

func TestBook_NotFound(t *testing.T) {
	db := newTestDB(t)
	doctor := seedDoctor(t, db, 50)
	patient := seedPatient(t, db)
	seedSlot(t, db, doctor.Profile.ID, slotStart)
	svc := NewAppointmentService(db, &fakeGateway{}, events.Noop{}, nopLog)

	tests := []struct {
		name string
		in   BookingInput
	}{
		{"unknown doctor", BookingInput{DoctorID: "missing", ScheduleID: "x"}},
		{"unknown slot", BookingInput{DoctorID: doctor.Profile.ID, ScheduleID: "missing"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Book(context.Background(), patient, tt.in)
			if apperror.StatusOf(err) != 404 {
				t.Errorf("err = %v, want 404", err)
			}
		})
	}
}

func TestBook_ConcurrentSameSlot(t *testing.T) {
	db := newTestDB(t)
	doctor := seedDoctor(t, db, 80)
	slot := seedSlot(t, db, doctor.Profile.ID, slotStart)
	svc := NewAppointmentService(db, &fakeGateway{}, events.Noop{}, nopLog)

	const n = 8
	patients := make([]*PatientActor, n)
	for i := range patients {
		patients[i] = seedPatient(t, db)
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Book(context.Background(), patients[i], BookingInput{DoctorID: doctor.Profile.ID, ScheduleID: slot.ID})
		}(i)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case apperror.StatusOf(err) == 409:
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflicts != n-1 {
		t.Errorf("successes = %d, conflicts = %d", ok, conflicts)
	}
	if got := countRows(t, db, &models.Appointment{}); got != 1 {
		t.Errorf("appointments = %d, want 1", got)
	}
}

func TestBook_GatewayFailureRollsBack(t *testing.T) {
	db := newTestDB(t)
	doctor := seedDoctor(t, db, 80)
	patient := seedPatient(t, db)
	slot := seedSlot(t, db, doctor.Profile.ID, slotStart)
	pub := &recordingPublisher{}
	svc := NewAppointmentService(db, &fakeGateway{err: errGatewayDown}, pub, nopLog)

	_, err := svc.Book(context.Background(), patient, BookingInput{DoctorID: doctor.Profile.ID, ScheduleID: slot.ID})
	appErr, ok := apperror.As(err)
	if !ok || appErr.StatusCode != 502 || !appErr.Retryable() {
		t.Fatalf("err = %v, want retryable 502", err)
	}
	if !errors.Is(err, errGatewayDown) {
		t.Errorf("cause not preserved: %v", err)
	}

	if n := countRows(t, db, &models.Appointment{}); n != 0 {
		t.Errorf("appointments = %d, want 0", n)
	}
	if n := countRows(t, db, &models.Payment{}); n != 0 {
		t.Errorf("payments = %d, want 0", n)
	}
	if ds := loadSlot(t, db, doctor.Profile.ID, slot.ID); ds.IsBooked {
		t.Error("slot still booked after rollback")
	}
	if len(pub.types()) != 0 {
		t.Errorf("events published after rollback: %v", pub.types())
	}
}

func TestBook_AdminForPatient(t *testing.T) {
	db := newTestDB(t)
	doctor := seedDoctor(t, db, 80)
	patient := seedPatient(t, db)
	admin := seedAdmin(t, db, models.RoleAdmin)
	slot := seedSlot(t, db, doctor.Profile.ID, slotStart)
	svc := NewAppointmentService(db, &fakeGateway{}, events.Noop{}, nopLog)

	_, err := svc.Book(context.Background(), admin, BookingInput{DoctorID: doctor.Profile.ID, ScheduleID: slot.ID})
	if apperror.StatusOf(err) != 400 {
		t.Fatalf("missing patientId err = %v, want 400", err)
	}

	booking, err := svc.Book(context.Background(), admin, BookingInput{DoctorID: doctor.Profile.ID, ScheduleID: slot.ID, PatientID: patient.Profile.ID})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if booking.Appointment.PatientID != patient.Profile.ID {
		t.Errorf("patient = %s", booking.Appointment.PatientID)
	}

	_, err = svc.Book(context.Background(), doctor, BookingInput{DoctorID: doctor.Profile.ID, ScheduleID: slot.ID})
	if apperror.StatusOf(err) != 403 {
		t.Errorf("doctor booking err = %v, want 403", err)
	}
}

func TestChangeStatus(t *testing.T) {
	db := newTestDB(t)
	doctor := seedDoctor(t, db, 80)
	other := seedDoctor(t, db, 80)
	patient := seedPatient(t, db)
	slot := seedSlot(t, db, doctor.Profile.ID, slotStart)
	svc := NewAppointmentService(db, &fakeGateway{}, events.Noop{}, nopLog)
	ctx := context.Background()

	booking, err := svc.Book(ctx, patient, BookingInput{DoctorID: doctor.Profile.ID, ScheduleID: slot.ID})
	if err != nil {
		t.Fatal(err)
	}
	id := booking.Appointment.ID

	if _, err := svc.ChangeStatus(ctx, other, id, models.AppointmentInProgress); apperror.StatusOf(err) != 403 {
		t.Errorf("other doctor err = %v, want 403", err)
	}
	if _, err := svc.ChangeStatus(ctx, doctor, id, "DONE"); apperror.StatusOf(err) != 400 {
		t.Errorf("invalid status err = %v, want 400", err)
	}

	appt, err := svc.ChangeStatus(ctx, doctor, id, models.AppointmentCanceled)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if appt.Status != models.AppointmentCanceled {
		t.Errorf("status = %s", appt.Status)
	}
	if ds := loadSlot(t, db, doctor.Profile.ID, slot.ID); ds.IsBooked || ds.AppointmentID != nil {
		t.Errorf("slot not released: %+v", ds)
	}

	if _, err := svc.ChangeStatus(ctx, doctor, id, models.AppointmentScheduled); apperror.StatusOf(err) != 400 {
		t.Errorf("reopen canceled err = %v, want 400", err)
	}
}

func TestListMine_ScopedByActor(t *testing.T) {
	db := newTestDB(t)
	doctor := seedDoctor(t, db, 80)
	p1 := seedPatient(t, db)
	p2 := seedPatient(t, db)
	admin := seedAdmin(t, db, models.RoleSuperAdmin)
	svc := NewAppointmentService(db, &fakeGateway{}, events.Noop{}, nopLog)
	ctx := context.Background()

	for i, p := range []*PatientActor{p1, p2, p2} {
		slot := seedSlot(t, db, doctor.Profile.ID, slotStart.Add(time.Duration(i)*time.Hour))
		if _, err := svc.Book(ctx, p, BookingInput{DoctorID: doctor.Profile.ID, ScheduleID: slot.ID}); err != nil {
			t.Fatal(err)
		}
	}

	opts := pagination.Calculate(nil)
	tests := []struct {
		name  string
		actor Actor
		want  int64
	}{
		{"patient one", p1, 1},
		{"patient two", p2, 2},
		{"doctor", doctor, 3},
		{"super admin", admin, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.ListMine(ctx, tt.actor, AppointmentFilter{}, opts)
			if err != nil {
				t.Fatal(err)
			}
			if res.Meta.Total != tt.want || int64(len(res.Data)) != tt.want {
				t.Errorf("total = %d, rows = %d, want %d", res.Meta.Total, len(res.Data), tt.want)
			}
		})
	}

	res, err := svc.List(ctx, AppointmentFilter{PatientEmail: p2.Profile.Email}, opts)
	if err != nil {
		t.Fatal(err)
	}
	if res.Meta.Total != 2 {
		t.Errorf("patientEmail filter total = %d, want 2", res.Meta.Total)
	}
	if res.Data[0].Doctor == nil || res.Data[0].Schedule == nil || res.Data[0].Payment == nil {
		t.Error("expected doctor, schedule and payment to be preloaded")
	}
}
