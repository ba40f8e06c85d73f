package models

import (
	"time"

	"github.com/google/uuid"
)

// Application statuses.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// ValidApplicationStatus reports whether status is a known application status.
func ValidApplicationStatus(status string) bool {
	switch status {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

// VolunteerApplication records a volunteer's request to join an event.
// There is at most one application per (event, volunteer).
type VolunteerApplication struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	EventID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_applications_event_volunteer" json:"event_id"`
	VolunteerID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_applications_event_volunteer;index" json:"volunteer_id"`
	Status      string    `gorm:"type:text;not null;default:'pending'" json:"status"`
	AppliedAt   time.Time `gorm:"not null" json:"applied_at"`

	Event *Event `gorm:"foreignKey:EventID;references:ID" json:"event,omitempty"`
}
