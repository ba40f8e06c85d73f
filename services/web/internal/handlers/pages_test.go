package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volunteerverse/services/web/internal/models"
	"volunteerverse/services/web/internal/session"
	"volunteerverse/services/web/internal/testutil"
)

type pageFixture struct {
	h     *harness
	ngo   models.NGO
	event models.Event
}

func newPageFixture(t *testing.T) pageFixture {
	t.Helper()
	h := newHarness(t)
	h.mem.AddVolunteer(t, "ada@example.org", password, true)
	owner := h.mem.AddUser(t, "org@example.org", password, models.RoleNGO, true)
	ngo := h.mem.AddNGO(t, owner.ID, "Green Earth")
	event := h.mem.AddEvent(t, ngo.ID, "Plant trees", eventDay)
	return pageFixture{h: h, ngo: ngo, event: event}
}

func TestPublicPages(t *testing.T) {
	f := newPageFixture(t)

	tests := []struct {
		target string
		status int
		want   []string
	}{
		{target: "/", status: http.StatusOK, want: []string{"Upcoming events", "Plant trees", "Green Earth"}},
		{target: "/events", status: http.StatusOK, want: []string{"Plant trees", "community"}},
		{target: "/events/" + f.event.ID.String(), status: http.StatusOK, want: []string{"Plant trees", "Hosted by", "/events/register?event_id=" + f.event.ID.String()}},
		{target: "/events/" + uuid.NewString(), status: http.StatusNotFound, want: []string{"We could not find that event."}},
		{target: "/events/not-an-id", status: http.StatusNotFound, want: []string{"We could not find that event."}},
		{target: "/ngos", status: http.StatusOK, want: []string{"Green Earth"}},
		{target: "/ngos/" + f.ngo.ID.String(), status: http.StatusOK, want: []string{"Green Earth", "Plant trees"}},
		{target: "/ngos/" + uuid.NewString(), status: http.StatusNotFound, want: []string{"We could not find that organization."}},
		{target: "/about", status: http.StatusOK, want: []string{"About VolunteerVerse"}},
		{target: "/auth-test", status: http.StatusOK, want: []string{"unauthenticated", "absent"}},
		{target: "/login", status: http.StatusOK, want: []string{`action="/login"`}},
		{target: "/register", status: http.StatusOK, want: []string{`action="/register"`}},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := f.h.do(t, http.MethodGet, tt.target, nil, nil)
			require.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
			for _, want := range tt.want {
				assert.Contains(t, rec.Body.String(), want)
			}
		})
	}
}

func TestPagesUnavailableStore(t *testing.T) {
	f := newPageFixture(t)
	f.h.mem.SetFail(testutil.ErrUnavailable)

	rec := f.h.do(t, http.MethodGet, "/events", nil, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Something went wrong")
}

func TestProtectedPagesRedirectAnonymous(t *testing.T) {
	f := newPageFixture(t)

	rec := f.h.do(t, http.MethodGet, "/dashboard", nil, nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login?redirectTo=%2Fdashboard", rec.Header().Get("Location"))

	rec = f.h.do(t, http.MethodGet, "/my-activities", nil, nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login?redirectTo=%2Fmy-activities", rec.Header().Get("Location"))
}

func TestLoginPageKeepsOnlyLocalRedirects(t *testing.T) {
	f := newPageFixture(t)

	rec := f.h.do(t, http.MethodGet, "/login?redirectTo=%2Fevents", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="redirectTo" value="/events"`)

	rec = f.h.do(t, http.MethodGet, "/login?redirectTo=%2F%2Fevil.example", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "evil.example")
}

func TestLoginForm(t *testing.T) {
	f := newPageFixture(t)

	tests := []struct {
		name     string
		values   url.Values
		status   int
		location string
	}{
		{name: "default target", values: url.Values{"email": {"ada@example.org"}, "password": {password}}, status: http.StatusSeeOther, location: "/dashboard"},
		{name: "local target", values: url.Values{"email": {"ada@example.org"}, "password": {password}, "redirectTo": {"/events"}}, status: http.StatusSeeOther, location: "/events"},
		{name: "foreign target", values: url.Values{"email": {"ada@example.org"}, "password": {password}, "redirectTo": {"https://evil.example/"}}, status: http.StatusSeeOther, location: "/dashboard"},
		{name: "wrong password", values: url.Values{"email": {"ada@example.org"}, "password": {"wrong horse"}}, status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.h.form("/login", tt.values, nil)
			require.Equal(t, tt.status, rec.Code)
			if tt.location == "" {
				assert.Contains(t, rec.Body.String(), "Invalid email or password.")
				assert.Contains(t, rec.Body.String(), `value="ada@example.org"`)
				assert.Nil(t, sessionCookie(rec))
				return
			}
			assert.Equal(t, tt.location, rec.Header().Get("Location"))
			require.NotNil(t, sessionCookie(rec))
		})
	}
}

func TestRegisterForm(t *testing.T) {
	f := newPageFixture(t)

	values := url.Values{
		"email":      {"grace@example.org"},
		"password":   {password},
		"first_name": {"Grace"},
		"last_name":  {"Hopper"},
		"user_type":  {models.UserTypeProfessional},
		"occupation": {"Rear admiral"},
	}
	rec := f.h.form("/register", values, nil)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/dashboard?flash=registered", rec.Header().Get("Location"))
	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)

	rec = f.h.serve(newCookieRequest("/dashboard?flash=registered", cookie.Value), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Welcome to VolunteerVerse!")

	rec = f.h.form("/register", values, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "An account with this email already exists.")

	values.Set("email", "linus@example.org")
	values.Del("occupation")
	rec = f.h.form("/register", values, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "occupation is required for professionals")
	assert.NotContains(t, rec.Body.String(), password)
}

func TestLogoutForm(t *testing.T) {
	f := newPageFixture(t)
	sess := f.h.login(t, "ada@example.org")

	rec := f.h.form("/logout", url.Values{}, sess)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/?flash=logged-out", rec.Header().Get("Location"))
	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.Less(t, cookie.MaxAge, 0)

	rec = f.h.do(t, http.MethodGet, "/dashboard", nil, sess)
	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestVolunteerPages(t *testing.T) {
	f := newPageFixture(t)
	sess := f.h.login(t, "ada@example.org")

	rec := f.h.do(t, http.MethodGet, "/events/register?event_id="+f.event.ID.String(), nil, sess)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Submit application")

	rec = f.h.form("/events/register", url.Values{"event_id": {f.event.ID.String()}}, sess)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/my-activities?flash=applied", rec.Header().Get("Location"))
	require.Len(t, f.h.mem.Applications, 1)

	rec = f.h.form("/events/register", url.Values{"event_id": {f.event.ID.String()}}, sess)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Len(t, f.h.mem.Applications, 1)

	rec = f.h.do(t, http.MethodGet, "/my-activities?flash=applied", nil, sess)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Your application was submitted.")
	assert.Contains(t, body, "Plant trees")
	assert.Contains(t, body, "pending")

	rec = f.h.do(t, http.MethodGet, "/events/"+f.event.ID.String(), nil, sess)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Your application is <strong>pending</strong>.")

	rec = f.h.do(t, http.MethodGet, "/dashboard", nil, sess)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "verified hours")

	rec = f.h.do(t, http.MethodGet, "/profile", nil, sess)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ada@example.org")

	rec = f.h.do(t, http.MethodGet, "/auth-test", nil, sess)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), sess.UserID.String())
}

func TestApplyWithUnresolvedSessionKeepsEvent(t *testing.T) {
	h := newHarness(t, withUnreachableSessions(t))
	owner := h.mem.AddUser(t, "org@example.org", password, models.RoleNGO, true)
	ngo := h.mem.AddNGO(t, owner.ID, "Green Earth")
	event := h.mem.AddEvent(t, ngo.ID, "Plant trees", eventDay)

	req := httptest.NewRequest(http.MethodPost, "/events/register", strings.NewReader(url.Values{"event_id": {event.ID.String()}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: session.DefaultCookieName, Value: "stale"})
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/login?redirectTo=%2Fevents%2Fregister%3Fevent_id%3D"+event.ID.String(), rec.Header().Get("Location"))
	assert.Empty(t, h.mem.Applications)
}

func TestOrganizationCannotApplyFromPage(t *testing.T) {
	f := newPageFixture(t)
	sess := f.h.login(t, "org@example.org")

	rec := f.h.form("/events/register", url.Values{"event_id": {f.event.ID.String()}}, sess)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "Only volunteer accounts can apply to events.")
	assert.Empty(t, f.h.mem.Applications)
}

func TestOrganizationDashboard(t *testing.T) {
	f := newPageFixture(t)
	sess := f.h.login(t, "org@example.org")

	rec := f.h.do(t, http.MethodGet, "/dashboard", nil, sess)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Green Earth")
	assert.Contains(t, rec.Body.String(), "Plant trees")
}

func TestPendingAccountPages(t *testing.T) {
	f := newPageFixture(t)
	f.h.mem.AddUser(t, "new-org@example.org", password, models.RoleNGO, false)
	sess := f.h.login(t, "new-org@example.org")

	rec := f.h.do(t, http.MethodGet, "/dashboard", nil, sess)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/pending-approval", rec.Header().Get("Location"))

	rec = f.h.do(t, http.MethodGet, "/pending-approval", nil, sess)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "new-org@example.org")
}

func TestAdminDashboardListsPendingAccounts(t *testing.T) {
	f := newPageFixture(t)
	f.h.mem.AddUser(t, "new-org@example.org", password, models.RoleNGO, false)
	f.h.mem.AddVolunteer(t, "waiting@example.org", password, false)
	f.h.mem.AddUser(t, "admin@example.org", password, models.RoleAdmin, true)
	sess := f.h.login(t, "admin@example.org")

	rec := f.h.do(t, http.MethodGet, "/dashboard", nil, sess)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "new-org@example.org")
	assert.Contains(t, body, "waiting@example.org")
	assert.NotContains(t, body, "Member · org@example.org")
}
