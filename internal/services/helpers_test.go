package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"medicare-server/internal/config"
	"medicare-server/internal/events"
	"medicare-server/internal/mailer"
	"medicare-server/internal/models"
	"medicare-server/internal/payment"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := models.Open(models.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		BcryptCost:  4,
		JWT: config.JWTConfig{
			AccessSecret:         "access-secret",
			AccessExpires:        time.Hour,
			RefreshSecret:        "refresh-secret",
			RefreshExpires:       24 * time.Hour,
			ForgotPasswordSecret: "forgot-secret",
			ForgotPasswordExpiry: 10 * time.Minute,
			ResetPasswordURL:     "http://localhost:3000/reset-password",
		},
	}
}

var seq atomic.Int64

func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s%d@example.com", prefix, seq.Add(1))
}

func createUser(t *testing.T, db *gorm.DB, email string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{Email: email, Role: role, Status: models.UserStatusActive}
	if err := u.SetPassword("secret123", 4); err != nil {
		t.Fatal(err)
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func seedDoctor(t *testing.T, db *gorm.DB, fee float64) *DoctorActor {
	t.Helper()
	email := uniqueEmail("doctor")
	u := createUser(t, db, email, models.RoleDoctor)
	d := &models.Doctor{
		Name:                "Dr. House",
		Email:               email,
		ContactNumber:       "01700000000",
		RegistrationNumber:  "REG-1",
		Gender:              models.GenderMale,
		AppointmentFee:      fee,
		Qualification:       "MBBS",
		CurrentWorkingPlace: "General Hospital",
		Designation:         "Consultant",
	}
	if err := db.Create(d).Error; err != nil {
		t.Fatalf("create doctor: %v", err)
	}
	return NewDoctorActor(u, d)
}

func seedPatient(t *testing.T, db *gorm.DB) *PatientActor {
	t.Helper()
	email := uniqueEmail("patient")
	u := createUser(t, db, email, models.RolePatient)
	p := &models.Patient{Name: "Jane Roe", Email: email}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("create patient: %v", err)
	}
	return NewPatientActor(u, p)
}

func seedAdmin(t *testing.T, db *gorm.DB, role models.Role) *AdminActor {
	t.Helper()
	email := uniqueEmail("admin")
	u := createUser(t, db, email, role)
	a := &models.Admin{Name: "Admin", Email: email, ContactNumber: "01800000000"}
	if err := db.Create(a).Error; err != nil {
		t.Fatalf("create admin: %v", err)
	}
	return NewAdminActor(u, a)
}

// seedSlot creates a schedule starting at start and offers it by the doctor.
func seedSlot(t *testing.T, db *gorm.DB, doctorID string, start time.Time) *models.Schedule {
	t.Helper()
	s := &models.Schedule{StartDateTime: start.UTC(), EndDateTime: start.UTC().Add(SlotInterval)}
	if err := db.Create(s).Error; err != nil {
		t.Fatalf("create schedule: %v", err)
	}
	if err := db.Create(&models.DoctorSchedule{DoctorID: doctorID, ScheduleID: s.ID}).Error; err != nil {
		t.Fatalf("create doctor schedule: %v", err)
	}
	return s
}

func loadSlot(t *testing.T, db *gorm.DB, doctorID, scheduleID string) models.DoctorSchedule {
	t.Helper()
	var ds models.DoctorSchedule
	if err := db.First(&ds, "doctor_id = ? AND schedule_id = ?", doctorID, scheduleID).Error; err != nil {
		t.Fatalf("load doctor schedule: %v", err)
	}
	return ds
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Count(&n).Error; err != nil {
		t.Fatal(err)
	}
	return n
}

type fakeGateway struct {
	mu    sync.Mutex
	err   error
	calls []payment.CheckoutRequest
}

func (g *fakeGateway) CreateCheckout(_ context.Context, req payment.CheckoutRequest) (*payment.Checkout, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, req)
	if g.err != nil {
		return nil, g.err
	}
	return &payment.Checkout{SessionID: "cs_" + req.PaymentID, URL: "https://pay.example.com/" + req.PaymentID}, nil
}

type fakeValidator struct {
	result *payment.Validation
	err    error
}

func (v *fakeValidator) Validate(context.Context, string) (*payment.Validation, error) {
	return v.result, v.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, evt events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

var errGatewayDown = errors.New("gateway down")

var nopLog = zerolog.Nop()
