package store

import (
	"context"

	"github.com/google/uuid"

	"volunteerverse/services/web/internal/models"
)

func (s *Store) LogHours(ctx context.Context, h *models.VolunteerHours) error {
	orm, cancel := s.orm(ctx)
	defer cancel()

	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	if h.LoggedAt.IsZero() {
		h.LoggedAt = now()
	}
	return translate(orm.Create(h).Error)
}

func (s *Store) HoursByID(ctx context.Context, id uuid.UUID) (models.VolunteerHours, error) {
	orm, cancel := s.orm(ctx)
	defer cancel()

	var h models.VolunteerHours
	err := orm.First(&h, "id = ?", id).Error
	return h, translate(err)
}

func (s *Store) HoursByVolunteer(ctx context.Context, volunteerID uuid.UUID) ([]models.VolunteerHours, error) {
	orm, cancel := s.orm(ctx)
	defer cancel()

	var out []models.VolunteerHours
	err := orm.Where("volunteer_id = ?", volunteerID).Order("logged_at DESC").Find(&out).Error
	return out, translate(err)
}

// VerifyHours marks unverified hours as verified by verifier.
func (s *Store) VerifyHours(ctx context.Context, id, verifier uuid.UUID) (models.VolunteerHours, error) {
	orm, cancel := s.orm(ctx)
	defer cancel()

	res := orm.Model(&models.VolunteerHours{}).
		Where("id = ? AND verified = ?", id, false).
		Updates(map[string]any{"verified": true, "verified_by": verifier})
	if res.Error != nil {
		return models.VolunteerHours{}, translate(res.Error)
	}

	var h models.VolunteerHours
	if err := orm.First(&h, "id = ?", id).Error; err != nil {
		return models.VolunteerHours{}, translate(err)
	}
	if res.RowsAffected == 0 {
		return h, ErrAlreadyVerified
	}
	return h, nil
}
