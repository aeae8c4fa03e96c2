package services

import (
	"context"
	"sort"
	"testing"
	"time"

	"medicare-server/internal/apperror"
	"medicare-server/internal/events"
	"medicare-server/internal/models"
	"medicare-server/internal/pagination"
)

func seedSpecialty(t *testing.T, svc *SpecialtyService, title string) *models.Specialty {
	t.Helper()
	sp, err := svc.Create(context.Background(), SpecialtyInput{Title: title}, "")
	if err != nil {
		t.Fatalf("create specialty: %v", err)
	}
	return sp
}

func specialtyTitles(d *models.Doctor) []string {
	out := make([]string, 0, len(d.DoctorSpecialties))
	for _, ds := range d.DoctorSpecialties {
		out = append(out, ds.Specialty.Title)
	}
	sort.Strings(out)
	return out
}

func TestDoctorUpdate_Specialties(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewDoctorService(db)
	specialties := NewSpecialtyService(db)
	doctor := seedDoctor(t, db, 40)
	admin := seedAdmin(t, db, models.RoleAdmin)

	cardio := seedSpecialty(t, specialties, "Cardiology")
	neuro := seedSpecialty(t, specialties, "Neurology")

	d, err := svc.Update(ctx, admin, doctor.Profile.ID, DoctorUpdate{Specialties: []string{cardio.ID, neuro.ID, cardio.ID}})
	if err != nil {
		t.Fatal(err)
	}
	if got := specialtyTitles(d); len(got) != 2 {
		t.Fatalf("specialties = %v", got)
	}

	// Removal runs first, so an id in both lists stays linked.
	d, err = svc.Update(ctx, doctor, doctor.Profile.ID, DoctorUpdate{
		Specialties:       []string{neuro.ID},
		RemoveSpecialties: []string{cardio.ID, neuro.ID},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := specialtyTitles(d); len(got) != 1 || got[0] != "Neurology" {
		t.Errorf("specialties = %v, want [Neurology]", got)
	}

	if _, err := svc.Update(ctx, admin, doctor.Profile.ID, DoctorUpdate{Specialties: []string{"missing"}}); apperror.StatusOf(err) != 400 {
		t.Errorf("unknown specialty err = %v, want 400", err)
	}

	list, err := svc.List(ctx, DoctorFilter{Specialties: "neuro"}, pagination.Calculate(nil))
	if err != nil || list.Meta.Total != 1 {
		t.Errorf("filter by specialty = %+v, %v", list, err)
	}
}

func TestDoctorUpdate_Authorization(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewDoctorService(db)
	doctor := seedDoctor(t, db, 40)
	other := seedDoctor(t, db, 50)
	name := "Dr. Wilson"

	if _, err := svc.Update(ctx, other, doctor.Profile.ID, DoctorUpdate{ProfileUpdate: ProfileUpdate{Name: &name}}); apperror.StatusOf(err) != 403 {
		t.Errorf("other doctor err = %v, want 403", err)
	}
	if _, err := svc.Update(ctx, seedPatient(t, db), doctor.Profile.ID, DoctorUpdate{}); apperror.StatusOf(err) != 403 {
		t.Errorf("patient err = %v, want 403", err)
	}

	d, err := svc.Update(ctx, doctor, doctor.Profile.ID, DoctorUpdate{ProfileUpdate: ProfileUpdate{Name: &name}})
	if err != nil {
		t.Fatal(err)
	}
	if d.Name != name {
		t.Errorf("name = %q, want %q", d.Name, name)
	}
}

func TestDoctorSoftDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewDoctorService(db)
	doctor := seedDoctor(t, db, 40)
	seedDoctor(t, db, 60)

	if _, err := svc.SoftDelete(ctx, doctor.Profile.ID); err != nil {
		t.Fatal(err)
	}

	var user models.User
	if err := db.First(&user, "email = ?", doctor.Profile.Email).Error; err != nil {
		t.Fatal(err)
	}
	if user.Status != models.UserStatusDeleted {
		t.Errorf("user status = %s, want DELETED", user.Status)
	}

	list, err := svc.List(ctx, DoctorFilter{}, pagination.Calculate(nil))
	if err != nil || list.Meta.Total != 1 {
		t.Errorf("list after soft delete = %+v, %v", list, err)
	}
	if _, err := svc.Get(ctx, doctor.Profile.ID); apperror.StatusOf(err) != 404 {
		t.Errorf("get err = %v, want 404", err)
	}
	if _, err := svc.SoftDelete(ctx, doctor.Profile.ID); apperror.StatusOf(err) != 404 {
		t.Errorf("second soft delete err = %v, want 404", err)
	}
	if _, err := ResolveActor(ctx, db, doctor.User().ID); apperror.StatusOf(err) != 401 {
		t.Errorf("resolve deleted doctor err = %v, want 401", err)
	}
}

func TestDoctorDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewDoctorService(db)

	idle := seedDoctor(t, db, 40)
	seedSlot(t, db, idle.Profile.ID, slotStart)
	if _, err := svc.Delete(ctx, idle.Profile.ID); err != nil {
		t.Fatal(err)
	}
	if n := countRows(t, db, &models.DoctorSchedule{}); n != 0 {
		t.Errorf("doctor schedules left = %d", n)
	}
	if n := countRows(t, db, &models.User{}); n != 0 {
		t.Errorf("users left = %d", n)
	}

	busy := seedDoctor(t, db, 40)
	slot := seedSlot(t, db, busy.Profile.ID, slotStart.Add(time.Hour))
	booker := NewAppointmentService(db, &fakeGateway{}, events.Noop{}, nopLog)
	if _, err := booker.Book(ctx, seedPatient(t, db), BookingInput{DoctorID: busy.Profile.ID, ScheduleID: slot.ID}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Delete(ctx, busy.Profile.ID); apperror.StatusOf(err) != 409 {
		t.Errorf("delete with appointments err = %v, want 409", err)
	}
}
