package store

import (
	"context"

	"github.com/google/uuid"

	"volunteerverse/services/web/internal/models"
)

// ListNGOs returns NGOs ordered by name, optionally restricted to one owner.
func (s *Store) ListNGOs(ctx context.Context, ownerID *uuid.UUID) ([]models.NGO, error) {
	orm, cancel := s.orm(ctx)
	defer cancel()

	q := orm.Order("name ASC")
	if ownerID != nil {
		q = q.Where("user_id = ?", *ownerID)
	}
	var out []models.NGO
	err := q.Find(&out).Error
	return out, translate(err)
}

func (s *Store) NGOByID(ctx context.Context, id uuid.UUID) (models.NGO, error) {
	orm, cancel := s.orm(ctx)
	defer cancel()

	var ngo models.NGO
	err := orm.First(&ngo, "id = ?", id).Error
	return ngo, translate(err)
}

// NGOByUserID returns the oldest NGO owned by userID.
func (s *Store) NGOByUserID(ctx context.Context, userID uuid.UUID) (models.NGO, error) {
	orm, cancel := s.orm(ctx)
	defer cancel()

	var ngo models.NGO
	err := orm.Order("created_at ASC").First(&ngo, "user_id = ?", userID).Error
	return ngo, translate(err)
}

// CreateNGO inserts an NGO. ErrConflict means the owner already has one with that name.
func (s *Store) CreateNGO(ctx context.Context, ngo *models.NGO) error {
	orm, cancel := s.orm(ctx)
	defer cancel()

	if ngo.ID == uuid.Nil {
		ngo.ID = uuid.New()
	}
	return translate(orm.Create(ngo).Error)
}

func (s *Store) UpdateNGO(ctx context.Context, id uuid.UUID, patch Patch) (models.NGO, error) {
	orm, cancel := s.orm(ctx)
	defer cancel()

	res := orm.Model(&models.NGO{}).Where("id = ?", id).Updates(map[string]any(patch))
	if res.Error != nil {
		return models.NGO{}, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NGO{}, ErrNotFound
	}

	var ngo models.NGO
	err := orm.First(&ngo, "id = ?", id).Error
	return ngo, translate(err)
}

func (s *Store) DeleteNGO(ctx context.Context, id uuid.UUID) error {
	orm, cancel := s.orm(ctx)
	defer cancel()

	res := orm.Delete(&models.NGO{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
