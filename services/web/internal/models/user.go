package models

import (
	"time"

	"github.com/google/uuid"
)

// Roles carried by the users profile kind.
const (
	RoleVolunteer = "volunteer"
	RoleNGO       = "ngo"
	RoleAdmin     = "admin"
)

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleVolunteer, RoleNGO, RoleAdmin:
		return true
	default:
		return false
	}
}

// User is the organization/regular profile kind.
type User struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FirstName       string    `gorm:"type:text;not null" json:"first_name"`
	LastName        string    `gorm:"type:text;not null" json:"last_name"`
	Email           string    `gorm:"type:text;uniqueIndex;not null" json:"email"`
	Role            string    `gorm:"type:text;not null;index" json:"role"`
	ProfileImageURL string    `gorm:"type:text" json:"profile_image_url,omitempty"`
	IsApproved      bool      `gorm:"not null;default:false" json:"is_approved"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Profile kinds. A volunteer account holds a VolunteerUser row; every other
// account holds a User row.
const (
	KindVolunteer    = "volunteer"
	KindOrganization = "organization"
)
