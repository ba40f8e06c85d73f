package models

import (
	"time"

	"github.com/google/uuid"
)

// NGO is an organization that publishes events. Names are unique per owner.
type NGO struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_ngos_owner_name" json:"user_id"`
	Name         string    `gorm:"type:text;not null;uniqueIndex:idx_ngos_owner_name" json:"name"`
	Description  string    `gorm:"type:text" json:"description,omitempty"`
	WebsiteURL   string    `gorm:"type:text" json:"website_url,omitempty"`
	ContactEmail string    `gorm:"type:text" json:"contact_email,omitempty"`
	ContactPhone string    `gorm:"type:text" json:"contact_phone,omitempty"`
	LogoURL      string    `gorm:"type:text" json:"logo_url,omitempty"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (NGO) TableName() string { return "ngos" }
