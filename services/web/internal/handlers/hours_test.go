package handlers

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volunteerverse/services/web/internal/activity"
	"volunteerverse/services/web/internal/auth"
	"volunteerverse/services/web/internal/models"
)

func TestLogHours(t *testing.T) {
	f := newApplicationFixture(t)
	h := f.h
	volunteer := h.login(t, "ada@example.org")
	org := h.login(t, "org@example.org")

	tests := []struct {
		name   string
		body   map[string]any
		sess   *auth.Session
		status int
	}{
		{name: "logged", body: map[string]any{"event_id": f.event.ID, "hours_logged": 2.5}, sess: volunteer, status: http.StatusCreated},
		{name: "zero hours", body: map[string]any{"event_id": f.event.ID, "hours_logged": 0}, sess: volunteer, status: http.StatusBadRequest},
		{name: "over a day", body: map[string]any{"event_id": f.event.ID, "hours_logged": 25}, sess: volunteer, status: http.StatusBadRequest},
		{name: "missing event", body: map[string]any{"hours_logged": 1}, sess: volunteer, status: http.StatusBadRequest},
		{name: "unknown event", body: map[string]any{"event_id": uuid.New(), "hours_logged": 1}, sess: volunteer, status: http.StatusNotFound},
		{name: "organization account", body: map[string]any{"event_id": f.event.ID, "hours_logged": 1}, sess: org, status: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.do(t, http.MethodPost, "/api/volunteer_hours", tt.body, tt.sess)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	require.Len(t, h.mem.Hours, 1)
	for _, entry := range h.mem.Hours {
		assert.Equal(t, f.volunteer.ID, entry.VolunteerID)
		assert.Equal(t, 2.5, entry.HoursLogged)
		assert.False(t, entry.Verified)
	}

	rec := h.do(t, http.MethodGet, "/api/volunteer_hours/mine", nil, volunteer)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.VolunteerHours](t, rec), 1)
	assert.Contains(t, h.mem.AuditActions(), activity.HoursLogged)
}

func TestVerifyHours(t *testing.T) {
	f := newApplicationFixture(t)
	h := f.h
	volunteer := h.login(t, "ada@example.org")
	owner := h.login(t, "org@example.org")
	other := h.login(t, "other@example.org")

	rec := h.do(t, http.MethodPost, "/api/volunteer_hours", map[string]any{"event_id": f.event.ID, "hours_logged": 4}, volunteer)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	entry := decode[models.VolunteerHours](t, rec)
	target := "/api/volunteer_hours/" + entry.ID.String() + "/verify"

	rec = h.do(t, http.MethodPut, target, nil, volunteer)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(t, http.MethodPut, target, nil, other)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(t, http.MethodPut, target, nil, owner)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	verified := decode[models.VolunteerHours](t, rec)
	assert.True(t, verified.Verified)
	require.NotNil(t, verified.VerifiedBy)
	assert.Equal(t, owner.UserID, *verified.VerifiedBy)

	rec = h.do(t, http.MethodPut, target, nil, owner)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "hours already verified", errorMessage(t, rec))

	rec = h.do(t, http.MethodPut, "/api/volunteer_hours/"+uuid.NewString()+"/verify", nil, owner)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, h.mem.AuditActions(), activity.HoursVerified)
}
