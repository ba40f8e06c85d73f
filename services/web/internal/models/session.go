package models

import (
	"time"

	"github.com/google/uuid"
)

// Session tracks refresh token lifecycle state. Only the sha256 of the
// refresh token is stored.
type Session struct {
	ID               uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID        uuid.UUID `gorm:"type:uuid;not null;index"`
	RefreshTokenHash string    `gorm:"type:text;uniqueIndex;not null"`
	ExpiresAt        time.Time `gorm:"not null"`
	LastRefreshedAt  *time.Time
	CreatedAt        time.Time `gorm:"autoCreateTime"`
	RevokedAt        *time.Time
}

// Active reports whether the session can still authenticate requests at now.
func (s Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
