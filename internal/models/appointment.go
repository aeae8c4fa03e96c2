package models

import (
	"gorm.io/datatypes"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	AppointmentScheduled  AppointmentStatus = "SCHEDULED"
	AppointmentInProgress AppointmentStatus = "INPROGRESS"
	AppointmentCompleted  AppointmentStatus = "COMPLETED"
	AppointmentCanceled   AppointmentStatus = "CANCELED"
)

// Valid reports whether s is a known appointment status.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentScheduled, AppointmentInProgress, AppointmentCompleted, AppointmentCanceled:
		return true
	}
	return false
}

// PaymentStatus is shared by appointments and payments.
type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "UNPAID"
	PaymentPaid   PaymentStatus = "PAID"
)

// Appointment is created only through the booking workflow.
type Appointment struct {
	BaseModel
	PatientID      string            `gorm:"size:36;not null;index" json:"patientId"`
	DoctorID       string            `gorm:"size:36;not null;index" json:"doctorId"`
	ScheduleID     string            `gorm:"size:36;not null;index" json:"scheduleId"`
	VideoCallingID string            `gorm:"size:64;not null" json:"videoCallingId"`
	Status         AppointmentStatus `gorm:"size:20;not null;default:'SCHEDULED'" json:"status"`
	PaymentStatus  PaymentStatus     `gorm:"size:20;not null;default:'UNPAID';index" json:"paymentStatus"`

	Patient  *Patient  `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Doctor   *Doctor   `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
	Schedule *Schedule `gorm:"foreignKey:ScheduleID" json:"schedule,omitempty"`
	Payment  *Payment  `gorm:"foreignKey:AppointmentID" json:"payment,omitempty"`
}

// Billable reports whether the appointment may receive a prescription or a review.
func (a *Appointment) Billable() bool {
	return a.Status == AppointmentCompleted && a.PaymentStatus == PaymentPaid
}

// Payment is created together with its appointment and settled by a gateway.
type Payment struct {
	BaseModel
	AppointmentID      string         `gorm:"size:36;not null;uniqueIndex" json:"appointmentId"`
	Amount             float64        `gorm:"not null" json:"amount"`
	TransactionID      string         `gorm:"size:128;not null;uniqueIndex" json:"transactionId"`
	Status             PaymentStatus  `gorm:"size:20;not null;default:'UNPAID'" json:"status"`
	PaymentGatewayData datatypes.JSON `json:"paymentGatewayData,omitempty"`
}
