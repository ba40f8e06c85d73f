package store

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"volunteerverse/services/web/internal/models"
)

func (s *Store) VolunteerByID(ctx context.Context, id uuid.UUID) (models.VolunteerUser, error) {
	orm, cancel := s.orm(ctx)
	defer cancel()

	var v models.VolunteerUser
	err := orm.First(&v, "id = ?", id).Error
	return v, translate(err)
}

func (s *Store) ListVolunteers(ctx context.Context) ([]models.VolunteerUser, error) {
	orm, cancel := s.orm(ctx)
	defer cancel()

	var out []models.VolunteerUser
	err := orm.Order("created_at DESC").Find(&out).Error
	return out, translate(err)
}

func (s *Store) UpdateVolunteer(ctx context.Context, id uuid.UUID, patch Patch) (models.VolunteerUser, error) {
	orm, cancel := s.orm(ctx)
	defer cancel()

	res := orm.Model(&models.VolunteerUser{}).Where("id = ?", id).Updates(map[string]any(patch.withUpdatedAt()))
	if res.Error != nil {
		return models.VolunteerUser{}, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.VolunteerUser{}, ErrNotFound
	}

	var v models.VolunteerUser
	err := orm.First(&v, "id = ?", id).Error
	return v, translate(err)
}

func (s *Store) UserByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	orm, cancel := s.orm(ctx)
	defer cancel()

	var u models.User
	err := orm.First(&u, "id = ?", id).Error
	return u, translate(err)
}

// ListUsers returns users newest first, optionally filtered by role.
func (s *Store) ListUsers(ctx context.Context, role string) ([]models.User, error) {
	orm, cancel := s.orm(ctx)
	defer cancel()

	q := orm.Order("created_at DESC")
	if role != "" {
		q = q.Where("role = ?", role)
	}
	var out []models.User
	err := q.Find(&out).Error
	return out, translate(err)
}

func (s *Store) UpdateUser(ctx context.Context, id uuid.UUID, patch Patch) (models.User, error) {
	orm, cancel := s.orm(ctx)
	defer cancel()

	res := orm.Model(&models.User{}).Where("id = ?", id).Updates(map[string]any(patch.withUpdatedAt()))
	if res.Error != nil {
		return models.User{}, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.User{}, ErrNotFound
	}

	var u models.User
	err := orm.First(&u, "id = ?", id).Error
	return u, translate(err)
}

// DeleteUser removes the user profile together with its account and sessions.
func (s *Store) DeleteUser(ctx context.Context, id uuid.UUID) error {
	orm, cancel := s.orm(ctx)
	defer cancel()

	return translate(orm.Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.User{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Delete(&models.Account{}, "id = ?", id).Error
	}))
}

// SetApproval updates is_approved on whichever profile kind holds id and
// returns that kind.
func (s *Store) SetApproval(ctx context.Context, id uuid.UUID, approved bool) (string, error) {
	orm, cancel := s.orm(ctx)
	defer cancel()

	updates := map[string]any{"is_approved": approved, "updated_at": now()}

	res := orm.Model(&models.VolunteerUser{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return "", translate(res.Error)
	}
	if res.RowsAffected > 0 {
		return models.KindVolunteer, nil
	}

	res = orm.Model(&models.User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return "", translate(res.Error)
	}
	if res.RowsAffected > 0 {
		return models.KindOrganization, nil
	}
	return "", ErrNotFound
}

// RegisterVolunteer writes the account and its volunteer profile atomically.
func (s *Store) RegisterVolunteer(ctx context.Context, account *models.Account, v *models.VolunteerUser) error {
	if account == nil || v == nil {
		return errors.New("account and volunteer are required")
	}
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	v.ID = account.ID
	return s.register(ctx, account, v)
}

// RegisterUser writes the account and its user profile atomically.
func (s *Store) RegisterUser(ctx context.Context, account *models.Account, u *models.User) error {
	if account == nil || u == nil {
		return errors.New("account and user are required")
	}
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	u.ID = account.ID
	return s.register(ctx, account, u)
}

func (s *Store) register(ctx context.Context, account *models.Account, profile any) error {
	orm, cancel := s.orm(ctx)
	defer cancel()

	account.Email = strings.ToLower(strings.TrimSpace(account.Email))

	return translate(orm.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(account).Error; err != nil {
			return err
		}
		return tx.Create(profile).Error
	}))
}
