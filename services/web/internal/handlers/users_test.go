package handlers

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volunteerverse/services/web/internal/activity"
	"volunteerverse/services/web/internal/models"
)

func studentSignup(email string) volunteerSignup {
	return volunteerSignup{
		Email:      email,
		Password:   password,
		FirstName:  "Grace",
		LastName:   "Hopper",
		UserType:   models.UserTypeStudent,
		University: "Yale",
	}
}

func TestRegisterVolunteer(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/register", studentSignup("Grace@Example.org"), nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decode[map[string]any](t, rec)
	assert.Equal(t, models.KindVolunteer, resp["kind"])
	assert.Equal(t, "grace@example.org", resp["email"])
	assert.Equal(t, true, resp["is_approved"])
	assert.Len(t, h.mem.Volunteers, 1)
	assert.Contains(t, h.mem.AuditActions(), activity.AccountRegistered)

	// The new account can sign in straight away.
	h.login(t, "grace@example.org")

	rec = h.do(t, http.MethodPost, "/api/register", studentSignup("grace@example.org"), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegisterVolunteerValidation(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name   string
		mutate func(*volunteerSignup)
		want   string
	}{
		{name: "student without university", mutate: func(s *volunteerSignup) { s.University = "" }, want: "university is required for students"},
		{name: "professional without occupation", mutate: func(s *volunteerSignup) { s.UserType = models.UserTypeProfessional }, want: "occupation is required for professionals"},
		{name: "unknown user type", mutate: func(s *volunteerSignup) { s.UserType = "retired" }, want: `user_type must be "student" or "professional"`},
		{name: "missing name", mutate: func(s *volunteerSignup) { s.LastName = " " }, want: "first_name and last_name are required"},
		{name: "short password", mutate: func(s *volunteerSignup) { s.Password = "short" }, want: "password must be at least 8 characters"},
		{name: "bad email", mutate: func(s *volunteerSignup) { s.Email = "grace" }, want: "a valid email is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := studentSignup("grace@example.org")
			tt.mutate(&req)
			rec := h.do(t, http.MethodPost, "/api/register", req, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.want, errorMessage(t, rec))
		})
	}
	assert.Empty(t, h.mem.Accounts)
}

func TestRegisterUser(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name     string
		email    string
		role     string
		status   int
		approved bool
	}{
		{name: "ngo starts pending", email: "ngo@example.org", role: models.RoleNGO, status: http.StatusCreated, approved: false},
		{name: "volunteer role approved", email: "vol@example.org", role: models.RoleVolunteer, status: http.StatusCreated, approved: true},
		{name: "admin refused", email: "admin@example.org", role: models.RoleAdmin, status: http.StatusForbidden},
		{name: "unknown role", email: "x@example.org", role: "owner", status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.do(t, http.MethodPost, "/api/users", userSignup{
				Email:     tt.email,
				Password:  password,
				FirstName: "Org",
				LastName:  "Owner",
				Role:      tt.role,
			}, nil)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.status != http.StatusCreated {
				return
			}
			resp := decode[map[string]any](t, rec)
			assert.Equal(t, models.KindOrganization, resp["kind"])
			assert.Equal(t, tt.role, resp["role"])
			assert.Equal(t, tt.approved, resp["is_approved"])
		})
	}
}

func TestGetUser(t *testing.T) {
	h := newHarness(t)
	v := h.mem.AddVolunteer(t, "ada@example.org", password, true)
	u := h.mem.AddUser(t, "org@example.org", password, models.RoleNGO, true)
	sess := h.login(t, "ada@example.org")

	rec := h.do(t, http.MethodGet, "/api/users/"+u.ID.String(), nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/users/"+u.ID.String(), nil, sess)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.KindOrganization, decode[map[string]any](t, rec)["kind"])

	rec = h.do(t, http.MethodGet, "/api/users/"+v.ID.String(), nil, sess)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.KindVolunteer, decode[map[string]any](t, rec)["kind"])

	rec = h.do(t, http.MethodGet, "/api/users/"+uuid.NewString(), nil, sess)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/users/not-a-uuid", nil, sess)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPatchUser(t *testing.T) {
	h := newHarness(t)
	v := h.mem.AddVolunteer(t, "ada@example.org", password, true)
	u := h.mem.AddUser(t, "org@example.org", password, models.RoleNGO, false)
	h.mem.AddUser(t, "admin@example.org", password, models.RoleAdmin, true)
	volunteer := h.login(t, "ada@example.org")
	org := h.login(t, "org@example.org")
	admin := h.login(t, "admin@example.org")

	userPath := "/api/users/" + u.ID.String()
	volunteerPath := "/api/users/" + v.ID.String()

	tests := []struct {
		name   string
		path   string
		body   any
		caller string
		status int
	}{
		{name: "self rename", path: volunteerPath, body: map[string]string{"first_name": "Augusta"}, caller: "volunteer", status: http.StatusOK},
		{name: "volunteer field", path: volunteerPath, body: map[string]string{"occupation": "Analyst"}, caller: "volunteer", status: http.StatusOK},
		{name: "other user", path: userPath, body: map[string]string{"first_name": "X"}, caller: "volunteer", status: http.StatusForbidden},
		{name: "self approval", path: userPath, body: map[string]bool{"is_approved": true}, caller: "org", status: http.StatusForbidden},
		{name: "role change", path: userPath, body: map[string]string{"role": "admin"}, caller: "org", status: http.StatusForbidden},
		{name: "empty name", path: userPath, body: map[string]string{"last_name": " "}, caller: "org", status: http.StatusBadRequest},
		{name: "volunteer field on org", path: userPath, body: map[string]string{"university": "MIT"}, caller: "org", status: http.StatusBadRequest},
		{name: "image on volunteer", path: volunteerPath, body: map[string]string{"profile_image_url": "x.png"}, caller: "volunteer", status: http.StatusBadRequest},
		{name: "no fields", path: userPath, body: map[string]string{}, caller: "org", status: http.StatusBadRequest},
		{name: "admin approves", path: userPath, body: map[string]bool{"is_approved": true}, caller: "admin", status: http.StatusOK},
		{name: "unknown user", path: "/api/users/" + uuid.NewString(), body: map[string]string{"first_name": "X"}, caller: "admin", status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := volunteer
			switch tt.caller {
			case "org":
				sess = org
			case "admin":
				sess = admin
			}
			rec := h.do(t, http.MethodPatch, tt.path, tt.body, sess)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	assert.Equal(t, "Augusta", h.mem.Volunteers[v.ID].FirstName)
	assert.Equal(t, "Analyst", h.mem.Volunteers[v.ID].Occupation)
	assert.True(t, h.mem.Users[u.ID].IsApproved)
}

func TestAdminUserManagement(t *testing.T) {
	h := newHarness(t)
	h.mem.AddVolunteer(t, "ada@example.org", password, true)
	pending := h.mem.AddUser(t, "org@example.org", password, models.RoleNGO, false)
	admin := h.mem.AddUser(t, "admin@example.org", password, models.RoleAdmin, true)
	volunteer := h.login(t, "ada@example.org")
	adminSess := h.login(t, "admin@example.org")

	rec := h.do(t, http.MethodGet, "/api/users", nil, volunteer)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/users?role=ngo", nil, adminSess)
	require.Equal(t, http.StatusOK, rec.Code)
	users := decode[[]models.User](t, rec)
	require.Len(t, users, 1)
	assert.Equal(t, pending.ID, users[0].ID)

	rec = h.do(t, http.MethodGet, "/api/users?role=owner", nil, adminSess)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodPut, "/api/users/"+pending.ID.String()+"/approve", nil, adminSess)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[map[string]any](t, rec)
	assert.Equal(t, models.KindOrganization, resp["kind"])
	assert.Equal(t, true, resp["is_approved"])
	assert.True(t, h.mem.Users[pending.ID].IsApproved)

	rec = h.do(t, http.MethodPut, "/api/users/"+pending.ID.String()+"/reject", nil, adminSess)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, h.mem.Users[pending.ID].IsApproved)

	rec = h.do(t, http.MethodPut, "/api/users/"+uuid.NewString()+"/approve", nil, adminSess)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodDelete, "/api/users/"+admin.ID.String(), nil, adminSess)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	orgSess := h.login(t, "org@example.org")
	rec = h.do(t, http.MethodDelete, "/api/users/"+pending.ID.String(), nil, adminSess)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotContains(t, h.mem.Users, pending.ID)

	rec = h.do(t, http.MethodGet, "/api/profile/me", nil, orgSess)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Subset(t, h.mem.AuditActions(), []string{activity.UserApproved, activity.UserRejected, activity.UserDeleted})
}

func TestProfileMe(t *testing.T) {
	h := newHarness(t)
	v := h.mem.AddVolunteer(t, "ada@example.org", password, true)
	u := h.mem.AddUser(t, "orphan@example.org", password, models.RoleNGO, true)
	sess := h.login(t, "ada@example.org")
	orphan := h.login(t, "orphan@example.org")
	delete(h.mem.Users, u.ID)

	rec := h.do(t, http.MethodGet, "/api/profile/me", nil, sess)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[map[string]any](t, rec)
	assert.Equal(t, v.ID.String(), resp["id"])
	assert.Equal(t, models.KindVolunteer, resp["kind"])

	rec = h.do(t, http.MethodGet, "/api/profile/me", nil, orphan)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
