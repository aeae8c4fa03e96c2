package models

import (
	"time"
)

// Schedule is a globally shared time slot template.
type Schedule struct {
	BaseModel
	StartDateTime time.Time `gorm:"not null;uniqueIndex:idx_schedule_window" json:"startDateTime"`
	EndDateTime   time.Time `gorm:"not null;uniqueIndex:idx_schedule_window" json:"endDateTime"`
}

// DoctorSchedule binds a doctor to a schedule slot. IsBooked is the
// mutual-exclusion flag for booking: at most one appointment holds a slot.
type DoctorSchedule struct {
	DoctorID      string    `gorm:"primaryKey;size:36" json:"doctorId"`
	ScheduleID    string    `gorm:"primaryKey;size:36" json:"scheduleId"`
	IsBooked      bool      `gorm:"not null;default:false;index" json:"isBooked"`
	AppointmentID *string   `gorm:"size:36" json:"appointmentId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`

	Doctor   *Doctor   `gorm:"foreignKey:DoctorID;constraint:OnDelete:CASCADE" json:"doctor,omitempty"`
	Schedule *Schedule `gorm:"foreignKey:ScheduleID;constraint:OnDelete:CASCADE" json:"schedule,omitempty"`
}
