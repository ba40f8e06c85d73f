package store

import (
	"context"

	"github.com/google/uuid"

	"volunteerverse/services/web/internal/models"
)

// CreateApplication inserts an application. ErrConflict means the volunteer
// already applied to the event.
func (s *Store) CreateApplication(ctx context.Context, app *models.VolunteerApplication) error {
	orm, cancel := s.orm(ctx)
	defer cancel()

	if app.ID == uuid.Nil {
		app.ID = uuid.New()
	}
	if app.Status == "" {
		app.Status = models.StatusPending
	}
	if app.AppliedAt.IsZero() {
		app.AppliedAt = now()
	}
	return translate(orm.Omit("Event").Create(app).Error)
}

func (s *Store) ApplicationByID(ctx context.Context, id uuid.UUID) (models.VolunteerApplication, error) {
	orm, cancel := s.orm(ctx)
	defer cancel()

	var app models.VolunteerApplication
	err := orm.First(&app, "id = ?", id).Error
	return app, translate(err)
}

func (s *Store) ApplicationFor(ctx context.Context, eventID, volunteerID uuid.UUID) (models.VolunteerApplication, error) {
	orm, cancel := s.orm(ctx)
	defer cancel()

	var app models.VolunteerApplication
	err := orm.First(&app, "event_id = ? AND volunteer_id = ?", eventID, volunteerID).Error
	return app, translate(err)
}

func (s *Store) ApplicationsByEvent(ctx context.Context, eventID uuid.UUID) ([]models.VolunteerApplication, error) {
	orm, cancel := s.orm(ctx)
	defer cancel()

	var out []models.VolunteerApplication
	err := orm.Where("event_id = ?", eventID).Order("applied_at ASC").Find(&out).Error
	return out, translate(err)
}

// ApplicationsByVolunteer returns a volunteer's applications with their events loaded.
func (s *Store) ApplicationsByVolunteer(ctx context.Context, volunteerID uuid.UUID) ([]models.VolunteerApplication, error) {
	orm, cancel := s.orm(ctx)
	defer cancel()

	var out []models.VolunteerApplication
	err := orm.Preload("Event").Where("volunteer_id = ?", volunteerID).Order("applied_at DESC").Find(&out).Error
	return out, translate(err)
}

func (s *Store) UpdateApplicationStatus(ctx context.Context, id uuid.UUID, status string) (models.VolunteerApplication, error) {
	orm, cancel := s.orm(ctx)
	defer cancel()

	res := orm.Model(&models.VolunteerApplication{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return models.VolunteerApplication{}, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.VolunteerApplication{}, ErrNotFound
	}

	var app models.VolunteerApplication
	err := orm.First(&app, "id = ?", id).Error
	return app, translate(err)
}

func (s *Store) DeleteApplication(ctx context.Context, id uuid.UUID) error {
	orm, cancel := s.orm(ctx)
	defer cancel()

	res := orm.Delete(&models.VolunteerApplication{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
