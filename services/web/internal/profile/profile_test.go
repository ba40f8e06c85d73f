package profile

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volunteerverse/services/web/internal/models"
	"volunteerverse/services/web/internal/store"
)

type fakeSource struct {
	volunteers map[uuid.UUID]models.VolunteerUser
	users      map[uuid.UUID]models.User
	volErr     error
	userErr    error
	calls      []string
}

func (f *fakeSource) VolunteerByID(_ context.Context, id uuid.UUID) (models.VolunteerUser, error) {
	f.calls = append(f.calls, "volunteer")
	if f.volErr != nil {
		return models.VolunteerUser{}, f.volErr
	}
	v, ok := f.volunteers[id]
	if !ok {
		return models.VolunteerUser{}, store.ErrNotFound
	}
	return v, nil
}

func (f *fakeSource) UserByID(_ context.Context, id uuid.UUID) (models.User, error) {
	f.calls = append(f.calls, "user")
	if f.userErr != nil {
		return models.User{}, f.userErr
	}
	u, ok := f.users[id]
	if !ok {
		return models.User{}, store.ErrNotFound
	}
	return u, nil
}

func TestResolve(t *testing.T) {
	volID := uuid.New()
	userID := uuid.New()
	outage := errors.New("connection refused")

	tests := []struct {
		name      string
		id        uuid.UUID
		volErr    error
		userErr   error
		wantOK    bool
		wantKind  string
		wantCalls []string
		wantLog   bool
	}{
		{name: "volunteer short-circuits", id: volID, wantOK: true, wantKind: models.KindVolunteer, wantCalls: []string{"volunteer"}},
		{name: "falls through to user", id: userID, wantOK: true, wantKind: models.KindOrganization, wantCalls: []string{"volunteer", "user"}},
		{name: "no profile", id: uuid.New(), wantCalls: []string{"volunteer", "user"}},
		{name: "volunteer outage still tries user", id: userID, volErr: outage, wantOK: true, wantKind: models.KindOrganization, wantCalls: []string{"volunteer", "user"}, wantLog: true},
		{name: "both outages mean no profile", id: volID, volErr: outage, userErr: outage, wantCalls: []string{"volunteer", "user"}, wantLog: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{
				volunteers: map[uuid.UUID]models.VolunteerUser{volID: {ID: volID, FirstName: "Ada", IsApproved: true}},
				users:      map[uuid.UUID]models.User{userID: {ID: userID, FirstName: "Grace", Role: models.RoleNGO}},
				volErr:     tt.volErr,
				userErr:    tt.userErr,
			}
			var buf bytes.Buffer
			r, err := NewResolver(src, zerolog.New(&buf))
			require.NoError(t, err)

			p, ok := r.Resolve(context.Background(), tt.id)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantCalls, src.calls)
			assert.Equal(t, tt.wantLog, buf.Len() > 0, "log output: %s", buf.String())
			if !tt.wantOK {
				assert.Nil(t, p)
				return
			}
			require.NotNil(t, p)
			assert.Equal(t, tt.wantKind, p.Kind)
			assert.Equal(t, tt.id, p.ID)
		})
	}
}

func TestProfileHelpers(t *testing.T) {
	vol := FromVolunteer(models.VolunteerUser{FirstName: "Ada", LastName: "Lovelace", IsApproved: true})
	assert.Equal(t, "Ada Lovelace", vol.Name())
	assert.Equal(t, models.RoleVolunteer, vol.Role)
	assert.False(t, vol.IsAdmin())

	admin := FromUser(models.User{FirstName: "Root", Role: models.RoleAdmin})
	assert.Equal(t, "Root", admin.Name())
	assert.True(t, admin.IsAdmin())

	var none *Profile
	assert.Equal(t, "", none.Name())
	assert.False(t, none.IsAdmin())
}
