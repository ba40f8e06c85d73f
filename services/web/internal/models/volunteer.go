package models

import (
	"time"

	"github.com/google/uuid"
)

// Volunteer user types.
const (
	UserTypeStudent      = "student"
	UserTypeProfessional = "professional"
)

// VolunteerUser is the volunteer profile kind.
type VolunteerUser struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FirstName    string    `gorm:"type:text;not null" json:"first_name"`
	LastName     string    `gorm:"type:text;not null" json:"last_name"`
	Email        string    `gorm:"type:text;uniqueIndex;not null" json:"email"`
	Phone        string    `gorm:"type:text" json:"phone,omitempty"`
	UserType     string    `gorm:"type:text;not null" json:"user_type"`
	University   string    `gorm:"type:text" json:"university,omitempty"`
	RollNumber   string    `gorm:"type:text" json:"roll_number,omitempty"`
	StudentEmail string    `gorm:"type:text" json:"student_email,omitempty"`
	Industry     string    `gorm:"type:text" json:"industry,omitempty"`
	Occupation   string    `gorm:"type:text" json:"occupation,omitempty"`
	WorkEmail    string    `gorm:"type:text" json:"work_email,omitempty"`
	IsApproved   bool      `gorm:"not null;default:true" json:"is_approved"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (VolunteerUser) TableName() string { return "volunteer_users" }
