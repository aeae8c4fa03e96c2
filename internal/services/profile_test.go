package services

import (
	"context"
	"testing"

	"medicare-server/internal/apperror"
	"medicare-server/internal/models"
	"medicare-server/internal/pagination"
)

func TestPatientProfiles(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewPatientService(db)
	jane := seedPatient(t, db)
	seedPatient(t, db)

	addr := "12 Baker Street"
	p, err := svc.Update(ctx, jane.Profile.ID, ProfileUpdate{Address: &addr})
	if err != nil {
		t.Fatal(err)
	}
	if p.Address != addr {
		t.Errorf("address = %q", p.Address)
	}

	list, err := svc.List(ctx, ProfileFilter{SearchTerm: jane.Profile.Email}, pagination.Calculate(nil))
	if err != nil || list.Meta.Total != 1 {
		t.Errorf("search = %+v, %v", list, err)
	}

	if _, err := svc.SoftDelete(ctx, jane.Profile.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Get(ctx, jane.Profile.ID); apperror.StatusOf(err) != 404 {
		t.Errorf("get deleted err = %v, want 404", err)
	}
	if _, err := svc.Update(ctx, jane.Profile.ID, ProfileUpdate{Address: &addr}); apperror.StatusOf(err) != 404 {
		t.Errorf("update deleted err = %v, want 404", err)
	}
	list, err = svc.List(ctx, ProfileFilter{}, pagination.Calculate(nil))
	if err != nil || list.Meta.Total != 1 {
		t.Errorf("list = %+v, %v", list, err)
	}
}

func TestAdminSoftDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewAdminService(db)
	super := seedAdmin(t, db, models.RoleSuperAdmin)
	admin := seedAdmin(t, db, models.RoleAdmin)

	if _, err := svc.SoftDelete(ctx, super, super.Profile.ID); apperror.StatusOf(err) != 400 {
		t.Errorf("self delete err = %v, want 400", err)
	}
	if _, err := svc.SoftDelete(ctx, super, admin.Profile.ID); err != nil {
		t.Fatal(err)
	}

	var u models.User
	if err := db.First(&u, "id = ?", admin.User().ID).Error; err != nil {
		t.Fatal(err)
	}
	if u.Status != models.UserStatusDeleted {
		t.Errorf("status = %s, want DELETED", u.Status)
	}
}
