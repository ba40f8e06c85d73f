package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"volunteerverse/pkg/db"
	"volunteerverse/services/web/internal/models"
)

// DefaultEventLimit bounds catalogue listings.
const DefaultEventLimit = 50

// EventSummary is an event joined with the name of its NGO.
type EventSummary struct {
	ID            uuid.UUID `db:"id" json:"id"`
	NGOID         uuid.UUID `db:"ngo_id" json:"ngo_id"`
	NGOName       string    `db:"ngo_name" json:"ngo_name"`
	Title         string    `db:"title" json:"title"`
	Description   string    `db:"description" json:"description,omitempty"`
	Location      string    `db:"location" json:"location,omitempty"`
	EventDate     time.Time `db:"event_date" json:"event_date"`
	Duration      int       `db:"duration" json:"duration"`
	Requirements  string    `db:"requirements" json:"requirements,omitempty"`
	MaxVolunteers int       `db:"max_volunteers" json:"max_volunteers"`
	EventImageURL string    `db:"event_image_url" json:"event_image_url,omitempty"`
	Category      string    `db:"category" json:"category"`
	HoursRequired float64   `db:"hours_required" json:"hours_required"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

const eventSummarySelect = `
SELECT e.id, e.ngo_id, n.name AS ngo_name, e.title,
       COALESCE(e.description, '') AS description,
       COALESCE(e.location, '') AS location,
       e.event_date, e.duration,
       COALESCE(e.requirements, '') AS requirements,
       e.max_volunteers,
       COALESCE(e.event_image_url, '') AS event_image_url,
       e.category, e.hours_required::float8 AS hours_required, e.created_at
FROM events e
JOIN ngos n ON n.id = e.ngo_id`

// ListEvents returns up to limit events in ascending date order.
func (s *Store) ListEvents(ctx context.Context, limit int) ([]EventSummary, error) {
	if limit <= 0 || limit > DefaultEventLimit {
		limit = DefaultEventLimit
	}
	var out []EventSummary
	err := db.Select(ctx, s.DB, &out, eventSummarySelect+` ORDER BY e.event_date ASC LIMIT $1`, limit)
	return out, translate(err)
}

// EventsByNGO returns an NGO's events in ascending date order.
func (s *Store) EventsByNGO(ctx context.Context, ngoID uuid.UUID) ([]EventSummary, error) {
	var out []EventSummary
	err := db.Select(ctx, s.DB, &out, eventSummarySelect+` WHERE e.ngo_id = $1 ORDER BY e.event_date ASC`, ngoID)
	return out, translate(err)
}

// EventSummaryByID returns one event with its NGO name.
func (s *Store) EventSummaryByID(ctx context.Context, id uuid.UUID) (EventSummary, error) {
	var out EventSummary
	err := db.Get(ctx, s.DB, &out, eventSummarySelect+` WHERE e.id = $1`, id)
	return out, translate(err)
}

func (s *Store) EventByID(ctx context.Context, id uuid.UUID) (models.Event, error) {
	orm, cancel := s.orm(ctx)
	defer cancel()

	var e models.Event
	err := orm.First(&e, "id = ?", id).Error
	return e, translate(err)
}

func (s *Store) CreateEvent(ctx context.Context, e *models.Event) error {
	orm, cancel := s.orm(ctx)
	defer cancel()

	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return translate(orm.Create(e).Error)
}

func (s *Store) UpdateEvent(ctx context.Context, id uuid.UUID, patch Patch) (models.Event, error) {
	orm, cancel := s.orm(ctx)
	defer cancel()

	res := orm.Model(&models.Event{}).Where("id = ?", id).Updates(map[string]any(patch.withUpdatedAt()))
	if res.Error != nil {
		return models.Event{}, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.Event{}, ErrNotFound
	}

	var e models.Event
	err := orm.First(&e, "id = ?", id).Error
	return e, translate(err)
}

func (s *Store) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	orm, cancel := s.orm(ctx)
	defer cancel()

	res := orm.Delete(&models.Event{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
