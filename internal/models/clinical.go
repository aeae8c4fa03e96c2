package models

import (
	"time"
)

// Prescription is written by a doctor against a completed, paid appointment.
type Prescription struct {
	BaseModel
	AppointmentID string     `gorm:"size:36;not null;uniqueIndex" json:"appointmentId"`
	DoctorID      string     `gorm:"size:36;not null;index" json:"doctorId"`
	PatientID     string     `gorm:"size:36;not null;index" json:"patientId"`
	Instructions  string     `gorm:"type:text;not null" json:"instructions"`
	FollowUpDate  *time.Time `json:"followUpDate,omitempty"`

	Doctor      *Doctor      `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
	Patient     *Patient     `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Appointment *Appointment `gorm:"foreignKey:AppointmentID" json:"appointment,omitempty"`
}

// Review is a patient's rating of a completed, paid appointment.
type Review struct {
	BaseModel
	AppointmentID string  `gorm:"size:36;not null;uniqueIndex" json:"appointmentId"`
	DoctorID      string  `gorm:"size:36;not null;index" json:"doctorId"`
	PatientID     string  `gorm:"size:36;not null;index" json:"patientId"`
	Rating        float64 `gorm:"not null" json:"rating"`
	Comment       string  `gorm:"type:text" json:"comment"`

	Doctor  *Doctor  `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
	Patient *Patient `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
}
