package store

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"volunteerverse/services/web/internal/models"
)

func (s *Store) AccountByEmail(ctx context.Context, email string) (models.Account, error) {
	orm, cancel := s.orm(ctx)
	defer cancel()

	var account models.Account
	err := orm.First(&account, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error
	return account, translate(err)
}

func (s *Store) CreateSession(ctx context.Context, session *models.Session) error {
	orm, cancel := s.orm(ctx)
	defer cancel()

	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	return translate(orm.Create(session).Error)
}

func (s *Store) SessionByID(ctx context.Context, id uuid.UUID) (models.Session, error) {
	orm, cancel := s.orm(ctx)
	defer cancel()

	var session models.Session
	err := orm.First(&session, "id = ?", id).Error
	return session, translate(err)
}

func (s *Store) SessionByRefreshHash(ctx context.Context, hash string) (models.Session, error) {
	orm, cancel := s.orm(ctx)
	defer cancel()

	var session models.Session
	err := orm.First(&session, "refresh_token_hash = ?", hash).Error
	return session, translate(err)
}

// RotateSession swaps the refresh token hash and extends the expiry of an
// unrevoked session.
func (s *Store) RotateSession(ctx context.Context, id uuid.UUID, refreshHash string, expiresAt, at time.Time) error {
	orm, cancel := s.orm(ctx)
	defer cancel()

	res := orm.Model(&models.Session{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Updates(map[string]any{
			"refresh_token_hash": refreshHash,
			"expires_at":         expiresAt,
			"last_refreshed_at":  at,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RevokeSession marks a session revoked. Revoking twice is not an error.
func (s *Store) RevokeSession(ctx context.Context, id uuid.UUID, at time.Time) error {
	orm, cancel := s.orm(ctx)
	defer cancel()

	return translate(orm.Model(&models.Session{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", at).Error)
}

func (s *Store) RevokeAccountSessions(ctx context.Context, accountID uuid.UUID, at time.Time) error {
	orm, cancel := s.orm(ctx)
	defer cancel()

	return translate(orm.Model(&models.Session{}).
		Where("account_id = ? AND revoked_at IS NULL", accountID).
		Update("revoked_at", at).Error)
}
