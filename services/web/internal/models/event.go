package models

import (
	"time"

	"github.com/google/uuid"
)

// Event is a volunteering opportunity owned by an NGO.
type Event struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	NGOID         uuid.UUID `gorm:"column:ngo_id;type:uuid;not null;index" json:"ngo_id"`
	Title         string    `gorm:"type:text;not null" json:"title"`
	Description   string    `gorm:"type:text" json:"description,omitempty"`
	Location      string    `gorm:"type:text" json:"location,omitempty"`
	EventDate     time.Time `gorm:"not null;index" json:"event_date"`
	Duration      int       `gorm:"not null;default:0" json:"duration"`
	Requirements  string    `gorm:"type:text" json:"requirements,omitempty"`
	MaxVolunteers int       `gorm:"not null;default:0" json:"max_volunteers"`
	EventImageURL string    `gorm:"type:text" json:"event_image_url,omitempty"`
	Category      string    `gorm:"type:text;not null" json:"category"`
	HoursRequired float64   `gorm:"type:numeric(6,2);not null" json:"hours_required"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
