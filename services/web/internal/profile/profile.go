package profile

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"volunteerverse/services/web/internal/models"
	"volunteerverse/services/web/internal/store"
)

// Profile is the application-level user record, whichever table holds it.
type Profile struct {
	ID         uuid.UUID `json:"id"`
	Kind       string    `json:"kind"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone,omitempty"`
	Role       string    `json:"role"`
	IsApproved bool      `json:"is_approved"`

	Volunteer *models.VolunteerUser `json:"volunteer,omitempty"`
	User      *models.User          `json:"user,omitempty"`
}

// Name returns the display name.
func (p *Profile) Name() string {
	if p == nil {
		return ""
	}
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// IsAdmin reports whether the profile carries the admin role.
func (p *Profile) IsAdmin() bool {
	return p != nil && p.Role == models.RoleAdmin
}

// FromVolunteer builds a Profile from the volunteer kind.
func FromVolunteer(v models.VolunteerUser) *Profile {
	return &Profile{
		ID:         v.ID,
		Kind:       models.KindVolunteer,
		FirstName:  v.FirstName,
		LastName:   v.LastName,
		Email:      v.Email,
		Phone:      v.Phone,
		Role:       models.RoleVolunteer,
		IsApproved: v.IsApproved,
		Volunteer:  &v,
	}
}

// FromUser builds a Profile from the organization kind.
func FromUser(u models.User) *Profile {
	return &Profile{
		ID:         u.ID,
		Kind:       models.KindOrganization,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Email:      u.Email,
		Role:       u.Role,
		IsApproved: u.IsApproved,
		User:       &u,
	}
}

// Source reads both profile kinds.
type Source interface {
	VolunteerByID(ctx context.Context, id uuid.UUID) (models.VolunteerUser, error)
	UserByID(ctx context.Context, id uuid.UUID) (models.User, error)
}

// Resolver maps a session's user id to its profile.
type Resolver struct {
	src    Source
	logger zerolog.Logger
}

// NewResolver returns a Resolver over src.
func NewResolver(src Source, logger zerolog.Logger) (*Resolver, error) {
	if src == nil {
		return nil, errors.New("profile source is required")
	}
	return &Resolver{src: src, logger: logger}, nil
}

// Resolve looks up the volunteer kind, then the organization kind. Backend
// errors are logged and count as a miss, so callers see "no profile".
func (r *Resolver) Resolve(ctx context.Context, id uuid.UUID) (*Profile, bool) {
	v, err := r.src.VolunteerByID(ctx, id)
	if err == nil {
		return FromVolunteer(v), true
	}
	if !errors.Is(err, store.ErrNotFound) {
		r.logger.Warn().Err(err).Str("user_id", id.String()).Msg("volunteer profile lookup failed")
	}

	u, err := r.src.UserByID(ctx, id)
	if err == nil {
		return FromUser(u), true
	}
	if !errors.Is(err, store.ErrNotFound) {
		r.logger.Warn().Err(err).Str("user_id", id.String()).Msg("user profile lookup failed")
	}
	return nil, false
}
