package models

// Gender enum
type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
)

// Admin is the profile of an ADMIN or SUPER_ADMIN user.
type Admin struct {
	BaseModel
	Name          string `gorm:"size:255;not null" json:"name"`
	Email         string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	ProfilePhoto  string `gorm:"size:512" json:"profilePhoto,omitempty"`
	ContactNumber string `gorm:"size:32" json:"contactNumber"`
	Address       string `gorm:"size:255" json:"address,omitempty"`
	IsDeleted     bool   `gorm:"default:false;index" json:"isDeleted"`
}

// Doctor is the profile of a DOCTOR user.
type Doctor struct {
	BaseModel
	Name                string  `gorm:"size:255;not null" json:"name"`
	Email               string  `gorm:"uniqueIndex;size:255;not null" json:"email"`
	ProfilePhoto        string  `gorm:"size:512" json:"profilePhoto,omitempty"`
	ContactNumber       string  `gorm:"size:32" json:"contactNumber"`
	Address             string  `gorm:"size:255" json:"address,omitempty"`
	RegistrationNumber  string  `gorm:"size:64" json:"registrationNumber"`
	Experience          int     `gorm:"default:0" json:"experience"`
	Gender              Gender  `gorm:"size:10" json:"gender"`
	AppointmentFee      float64 `gorm:"not null" json:"appointmentFee"`
	Qualification       string  `gorm:"size:255" json:"qualification"`
	CurrentWorkingPlace string  `gorm:"size:255" json:"currentWorkingPlace"`
	Designation         string  `gorm:"size:255" json:"designation"`
	AverageRating       float64 `gorm:"default:0" json:"averageRating"`
	IsDeleted           bool    `gorm:"default:false;index" json:"isDeleted"`

	DoctorSpecialties []DoctorSpecialty `gorm:"foreignKey:DoctorID" json:"doctorSpecialties,omitempty"`
}

// Patient is the profile of a PATIENT user.
type Patient struct {
	BaseModel
	Name          string `gorm:"size:255;not null" json:"name"`
	Email         string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	ProfilePhoto  string `gorm:"size:512" json:"profilePhoto,omitempty"`
	ContactNumber string `gorm:"size:32" json:"contactNumber,omitempty"`
	Address       string `gorm:"size:255" json:"address,omitempty"`
	IsDeleted     bool   `gorm:"default:false;index" json:"isDeleted"`
}

// Specialty is a medical specialty doctors can be linked to.
type Specialty struct {
	BaseModel
	Title string `gorm:"uniqueIndex;size:255;not null" json:"title"`
	Icon  string `gorm:"size:512" json:"icon,omitempty"`
}

// DoctorSpecialty is the many-to-many join between doctors and specialties.
type DoctorSpecialty struct {
	DoctorID    string `gorm:"primaryKey;size:36" json:"doctorId"`
	SpecialtyID string `gorm:"primaryKey;size:36" json:"specialtyId"`

	Specialty Specialty `gorm:"foreignKey:SpecialtyID;constraint:OnDelete:CASCADE" json:"specialty"`
}
