package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"medicare-server/internal/apperror"
	"medicare-server/internal/models"
	"medicare-server/internal/pagination"
)

// SlotInterval is the length of every generated schedule slot.
const SlotInterval = 30 * time.Minute

const maxScheduleDays = 366

// ScheduleInput is the body of POST /schedule. Dates are YYYY-MM-DD and
// times HH:MM, all in UTC.
type ScheduleInput struct {
	StartDate string `json:"startDate" binding:"required"`
	EndDate   string `json:"endDate" binding:"required"`
	StartTime string `json:"startTime" binding:"required"`
	EndTime   string `json:"endTime" binding:"required"`
}

// Slot is a planned schedule window.
type Slot struct {
	Start time.Time
	End   time.Time
}

// PlanSlots expands a date range and a daily time window into consecutive
// SlotInterval slots. A trailing remainder shorter than the interval is not
// planned, and an end time at or before the start time yields no slots.
func PlanSlots(in ScheduleInput) ([]Slot, error) {
	startDate, err := parseDate(in.StartDate)
	if err != nil {
		return nil, apperror.BadRequest("Invalid startDate, expected YYYY-MM-DD")
	}
	endDate, err := parseDate(in.EndDate)
	if err != nil {
		return nil, apperror.BadRequest("Invalid endDate, expected YYYY-MM-DD")
	}
	if endDate.Before(startDate) {
		return nil, apperror.BadRequest("endDate must not be before startDate")
	}
	if endDate.Sub(startDate) > maxScheduleDays*24*time.Hour {
		return nil, apperror.BadRequest(fmt.Sprintf("A schedule range may span at most %d days", maxScheduleDays))
	}
	startOffset, err := parseClock(in.StartTime)
	if err != nil {
		return nil, apperror.BadRequest("Invalid startTime, expected HH:MM")
	}
	endOffset, err := parseClock(in.EndTime)
	if err != nil {
		return nil, apperror.BadRequest("Invalid endTime, expected HH:MM")
	}

	var slots []Slot
	for day := startDate; !day.After(endDate); day = day.AddDate(0, 0, 1) {
		windowEnd := day.Add(endOffset)
		for start := day.Add(startOffset); !start.Add(SlotInterval).After(windowEnd); start = start.Add(SlotInterval) {
			slots = append(slots, Slot{Start: start, End: start.Add(SlotInterval)})
		}
	}
	return slots, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

func parseClock(s string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, errors.New("malformed time")
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 24 {
		return 0, errors.New("malformed hour")
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 || (h == 24 && m != 0) {
		return 0, errors.New("malformed minute")
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute, nil
}

// ScheduleService generates and lists the shared schedule slots.
type ScheduleService struct {
	db *gorm.DB
}

func NewScheduleService(db *gorm.DB) *ScheduleService {
	return &ScheduleService{db: db}
}

// Generate creates the planned slots that do not exist yet and returns only
// the newly created rows. Running it twice with the same input creates
// nothing the second time.
func (s *ScheduleService) Generate(ctx context.Context, in ScheduleInput) ([]models.Schedule, error) {
	slots, err := PlanSlots(in)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	created := []models.Schedule{}
	for _, slot := range slots {
		var n int64
		err := db.Model(&models.Schedule{}).
			Where("start_date_time = ? AND end_date_time = ?", slot.Start, slot.End).
			Count(&n).Error
		if err != nil {
			return nil, apperror.Internal(err)
		}
		if n > 0 {
			continue
		}

		row := models.Schedule{StartDateTime: slot.Start, EndDateTime: slot.End}
		if err := db.Create(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				continue
			}
			return nil, apperror.Internal(err)
		}
		created = append(created, row)
	}
	return created, nil
}

// TimeRange filters slots fully inside [StartDateTime, EndDateTime]. Either
// bound may be omitted.
type TimeRange struct {
	StartDateTime *time.Time `form:"startDateTime" time_format:"2006-01-02T15:04:05Z07:00"`
	EndDateTime   *time.Time `form:"endDateTime" time_format:"2006-01-02T15:04:05Z07:00"`
}

func (r TimeRange) apply(q *gorm.DB, startCol, endCol string) *gorm.DB {
	if r.StartDateTime != nil {
		q = q.Where(startCol+" >= ?", r.StartDateTime.UTC())
	}
	if r.EndDateTime != nil {
		q = q.Where(endCol+" <= ?", r.EndDateTime.UTC())
	}
	return q
}

var scheduleSortable = pagination.Sortable{
	"createdAt":     "created_at",
	"startDateTime": "start_date_time",
	"endDateTime":   "end_date_time",
}

// ListForDoctor pages through slots the doctor has not claimed yet.
func (s *ScheduleService) ListForDoctor(ctx context.Context, doctorID string, r TimeRange, opts pagination.Options) (*pagination.Result[models.Schedule], error) {
	db := s.db.WithContext(ctx)
	claimed := db.Model(&models.DoctorSchedule{}).Select("schedule_id").Where("doctor_id = ?", doctorID)
	q := r.apply(db.Model(&models.Schedule{}), "start_date_time", "end_date_time").
		Where("id NOT IN (?)", claimed)

	res, err := page[models.Schedule](q, opts, scheduleSortable)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return res, nil
}

func (s *ScheduleService) Get(ctx context.Context, id string) (*models.Schedule, error) {
	var sc models.Schedule
	if err := s.db.WithContext(ctx).First(&sc, "id = ?", id).Error; err != nil {
		return nil, apperror.FromDB(err, "Schedule not found")
	}
	return &sc, nil
}

// Delete removes a schedule and its unbooked doctor claims. A slot booked by
// any doctor cannot be removed.
func (s *ScheduleService) Delete(ctx context.Context, id string) (*models.Schedule, error) {
	var sc models.Schedule
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&sc, "id = ?", id).Error; err != nil {
			return err
		}
		var booked int64
		if err := tx.Model(&models.DoctorSchedule{}).Where("schedule_id = ? AND is_booked = ?", id, true).Count(&booked).Error; err != nil {
			return err
		}
		if booked > 0 {
			return apperror.Conflict("Schedule is booked and cannot be deleted")
		}
		if err := tx.Where("schedule_id = ?", id).Delete(&models.DoctorSchedule{}).Error; err != nil {
			return err
		}
		return tx.Delete(&sc).Error
	})
	if err != nil {
		return nil, apperror.FromDB(err, "Schedule not found")
	}
	return &sc, nil
}
