package services

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"medicare-server/internal/apperror"
	"medicare-server/internal/models"
	"medicare-server/internal/pagination"
)

// DoctorScheduleService manages which slots each doctor offers.
type DoctorScheduleService struct {
	db *gorm.DB
}

func NewDoctorScheduleService(db *gorm.DB) *DoctorScheduleService {
	return &DoctorScheduleService{db: db}
}

// ClaimInput is the body of POST /doctor-schedule.
type ClaimInput struct {
	ScheduleIDs []string `json:"scheduleIds" binding:"required,min=1,dive,required"`
}

// Claim offers the given slots for the doctor. Slots already claimed are
// skipped; unknown slot ids are rejected. It returns the number of new claims.
func (s *DoctorScheduleService) Claim(ctx context.Context, doctorID string, in ClaimInput) (int64, error) {
	ids := uniqueStrings(in.ScheduleIDs)

	var created int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Schedule{}).Where("id IN ?", ids).Count(&n).Error; err != nil {
			return err
		}
		if int(n) != len(ids) {
			return apperror.BadRequest("One or more schedules do not exist")
		}

		rows := make([]models.DoctorSchedule, len(ids))
		for i, id := range ids {
			rows[i] = models.DoctorSchedule{DoctorID: doctorID, ScheduleID: id}
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
		created = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, apperror.FromDB(err, "")
	}
	return created, nil
}

// DoctorScheduleFilter lists the supported filters of the doctor-schedule lists.
type DoctorScheduleFilter struct {
	TimeRange
	DoctorID string `form:"doctorId"`
	IsBooked *bool  `form:"isBooked"`
}

var doctorScheduleSortable = pagination.Sortable{
	"createdAt":     "doctor_schedules.created_at",
	"startDateTime": "schedules.start_date_time",
}

func (s *DoctorScheduleService) list(ctx context.Context, f DoctorScheduleFilter, opts pagination.Options) (*pagination.Result[models.DoctorSchedule], error) {
	q := s.db.WithContext(ctx).
		Model(&models.DoctorSchedule{}).
		Joins("JOIN schedules ON schedules.id = doctor_schedules.schedule_id").
		Joins("JOIN doctors ON doctors.id = doctor_schedules.doctor_id AND doctors.is_deleted = ?", false)
	q = f.TimeRange.apply(q, "schedules.start_date_time", "schedules.end_date_time")
	if f.DoctorID != "" {
		q = q.Where("doctor_schedules.doctor_id = ?", f.DoctorID)
	}
	if f.IsBooked != nil {
		q = q.Where("doctor_schedules.is_booked = ?", *f.IsBooked)
	}

	res, err := page[models.DoctorSchedule](q, opts, doctorScheduleSortable, "Schedule", "Doctor")
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return res, nil
}

// Mine pages through the doctor's own slots.
func (s *DoctorScheduleService) Mine(ctx context.Context, doctorID string, f DoctorScheduleFilter, opts pagination.Options) (*pagination.Result[models.DoctorSchedule], error) {
	f.DoctorID = doctorID
	return s.list(ctx, f, opts)
}

// List pages through every doctor's slots.
func (s *DoctorScheduleService) List(ctx context.Context, f DoctorScheduleFilter, opts pagination.Options) (*pagination.Result[models.DoctorSchedule], error) {
	return s.list(ctx, f, opts)
}

// Release withdraws an unbooked slot from the doctor's offer.
func (s *DoctorScheduleService) Release(ctx context.Context, doctorID, scheduleID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ds models.DoctorSchedule
		err := tx.Where("doctor_id = ? AND schedule_id = ?", doctorID, scheduleID).First(&ds).Error
		if err != nil {
			return apperror.FromDB(err, "Doctor schedule not found")
		}
		if ds.IsBooked {
			return apperror.Conflict("Schedule is already booked and cannot be removed")
		}
		res := tx.Where("doctor_id = ? AND schedule_id = ? AND is_booked = ?", doctorID, scheduleID, false).
			Delete(&models.DoctorSchedule{})
		if res.Error != nil {
			return apperror.Internal(res.Error)
		}
		if res.RowsAffected == 0 {
			return apperror.Conflict("Schedule is already booked and cannot be removed")
		}
		return nil
	})
}
