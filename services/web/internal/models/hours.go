package models

import (
	"time"

	"github.com/google/uuid"
)

// VolunteerHours is time a volunteer logged against an event, verified by the
// owning NGO.
type VolunteerHours struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	VolunteerID uuid.UUID  `gorm:"type:uuid;not null;index" json:"volunteer_id"`
	EventID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"event_id"`
	HoursLogged float64    `gorm:"type:numeric(6,2);not null" json:"hours_logged"`
	Verified    bool       `gorm:"not null;default:false" json:"verified"`
	VerifiedBy  *uuid.UUID `gorm:"type:uuid" json:"verified_by,omitempty"`
	LoggedAt    time.Time  `gorm:"not null" json:"logged_at"`
}

func (VolunteerHours) TableName() string { return "volunteer_hours" }
