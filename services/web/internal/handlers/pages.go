package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"volunteerverse/services/web/internal/gate"
	"volunteerverse/services/web/internal/models"
	"volunteerverse/services/web/internal/profile"
	"volunteerverse/services/web/internal/store"
)

// page is the value every template receives.
type page struct {
	Title  string
	Viewer *profile.Profile
	State  gate.State
	Flash  string
	Error  string
	Data   any
}

var flashes = map[string]string{
	"applied":    "Your application was submitted.",
	"registered": "Welcome to VolunteerVerse! Your account is ready.",
	"logged-out": "You have been signed out.",
}

type eventPageData struct {
	Event       store.EventSummary
	Application *models.VolunteerApplication
	CanApply    bool
}

type ngoPageData struct {
	NGO    models.NGO
	Events []store.EventSummary
}

type authTestData struct {
	HasCookie bool
	UserID    string
	ExpiresAt time.Time
}

type loginData struct {
	Email      string
	RedirectTo string
}

type activityData struct {
	Applications []models.VolunteerApplication
	Hours        []models.VolunteerHours
	TotalHours   float64
}

type dashboardData struct {
	Activity          activityData
	NGO               *models.NGO
	Events            []store.EventSummary
	PendingVolunteers []models.VolunteerUser
	PendingUsers      []models.User
}

type errorData struct {
	Status  int
	Message string
}

func (a *API) renderPage(w http.ResponseWriter, r *http.Request, status int, name string, p page) {
	ev := a.gate.Viewer(w, r)
	p.Viewer, p.State = ev.Profile, ev.State
	if p.Flash == "" {
		p.Flash = flashes[r.URL.Query().Get("flash")]
	}

	var buf bytes.Buffer
	if err := a.renderer.Render(&buf, name, p); err != nil {
		a.logger.Error().Err(err).Str("page", name).Msg("render page")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (a *API) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	a.renderPage(w, r, status, "error", page{
		Title: http.StatusText(status),
		Data:  errorData{Status: status, Message: message},
	})
}

func (a *API) renderBackendError(w http.ResponseWriter, r *http.Request, err error, what string) {
	if errors.Is(err, store.ErrNotFound) {
		a.renderError(w, r, http.StatusNotFound, "We could not find that "+what+".")
		return
	}
	a.logger.Error().Err(err).Str("path", r.URL.Path).Msg("page backend call")
	a.renderError(w, r, http.StatusInternalServerError, "Something went wrong. Please try again.")
}

func (a *API) handleStaticPage(name, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.renderPage(w, r, http.StatusOK, name, page{Title: title})
	}
}

func (a *API) handleHome(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	events, err := a.store.ListEvents(ctx, homeEventLimit)
	if err != nil {
		a.renderBackendError(w, r, err, "events")
		return
	}
	a.renderPage(w, r, http.StatusOK, "home", page{Title: "Home", Data: events})
}

func (a *API) handleEventsPage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	events, err := a.store.ListEvents(ctx, store.DefaultEventLimit)
	if err != nil {
		a.renderBackendError(w, r, err, "events")
		return
	}
	a.renderPage(w, r, http.StatusOK, "events", page{Title: "Events", Data: events})
}

// eventPage loads the event named by raw along with the viewer's application.
func (a *API) eventPage(w http.ResponseWriter, r *http.Request, raw string) (eventPageData, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		a.renderError(w, r, http.StatusNotFound, "We could not find that event.")
		return eventPageData{}, false
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	event, err := a.store.EventSummaryByID(ctx, id)
	if err != nil {
		a.renderBackendError(w, r, err, "event")
		return eventPageData{}, false
	}

	data := eventPageData{Event: event}
	ev := a.gate.Viewer(w, r)
	if ev.Profile != nil && ev.Profile.Kind == models.KindVolunteer {
		data.CanApply = true
		app, err := a.store.ApplicationFor(ctx, id, ev.Profile.ID)
		switch {
		case err == nil:
			data.Application = &app
		case !errors.Is(err, store.ErrNotFound):
			a.logger.Warn().Err(err).Msg("load application for event page")
		}
	}
	return data, true
}

func (a *API) handleEventPage(w http.ResponseWriter, r *http.Request) {
	data, ok := a.eventPage(w, r, chiParam(r, "id"))
	if !ok {
		return
	}
	a.renderPage(w, r, http.StatusOK, "event", page{Title: data.Event.Title, Data: data})
}

func (a *API) handleEventRegisterPage(w http.ResponseWriter, r *http.Request) {
	data, ok := a.eventPage(w, r, r.URL.Query().Get("event_id"))
	if !ok {
		return
	}
	a.renderPage(w, r, http.StatusOK, "event_register", page{Title: "Apply: " + data.Event.Title, Data: data})
}

func (a *API) handleEventRegisterSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		a.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	data, ok := a.eventPage(w, r, r.PostForm.Get("event_id"))
	if !ok {
		return
	}

	ev := a.gate.Viewer(w, r)
	if ev.Profile == nil {
		target := r.URL.Path + "?event_id=" + url.QueryEscape(data.Event.ID.String())
		http.Redirect(w, r, gate.LoginURL(target), http.StatusSeeOther)
		return
	}
	if !data.CanApply {
		a.renderPage(w, r, http.StatusForbidden, "event_register", page{
			Title: "Apply: " + data.Event.Title,
			Error: "Only volunteer accounts can apply to events.",
			Data:  data,
		})
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	if _, _, err := a.apply(ctx, ev.Profile.ID, data.Event.ID, ev.Profile.ID); err != nil {
		a.renderBackendError(w, r, err, "event")
		return
	}
	http.Redirect(w, r, "/my-activities?flash=applied", http.StatusSeeOther)
}

func (a *API) handleNGOsPage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	ngos, err := a.store.ListNGOs(ctx, nil)
	if err != nil {
		a.renderBackendError(w, r, err, "organizations")
		return
	}
	a.renderPage(w, r, http.StatusOK, "ngos", page{Title: "Organizations", Data: ngos})
}

func (a *API) handleNGOPage(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chiParam(r, "id"))
	if err != nil {
		a.renderError(w, r, http.StatusNotFound, "We could not find that organization.")
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	ngo, err := a.store.NGOByID(ctx, id)
	if err != nil {
		a.renderBackendError(w, r, err, "organization")
		return
	}
	events, err := a.store.EventsByNGO(ctx, id)
	if err != nil {
		a.renderBackendError(w, r, err, "events")
		return
	}
	a.renderPage(w, r, http.StatusOK, "ngo", page{Title: ngo.Name, Data: ngoPageData{NGO: ngo, Events: events}})
}

func (a *API) handleAuthTestPage(w http.ResponseWriter, r *http.Request) {
	ev := a.gate.Viewer(w, r)
	data := authTestData{HasCookie: a.sessions.HasCookie(r)}
	if ev.Session != nil {
		data.UserID = ev.Session.UserID.String()
		data.ExpiresAt = ev.Session.ExpiresAt
	}
	a.renderPage(w, r, http.StatusOK, "auth_test", page{Title: "Auth test", Data: data})
}

func (a *API) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	a.renderPage(w, r, http.StatusOK, "login", page{
		Title: "Sign in",
		Data:  loginData{RedirectTo: gate.SafeRedirect(r.URL.Query().Get("redirectTo"))},
	})
}

func (a *API) handleLoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		a.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	email := strings.TrimSpace(r.PostForm.Get("email"))
	data := loginData{Email: email, RedirectTo: gate.SafeRedirect(r.PostForm.Get("redirectTo"))}

	if _, _, err := a.login(w, r, email, r.PostForm.Get("password")); err != nil {
		status := loginStatus(err)
		message := "Invalid email or password."
		switch status {
		case http.StatusTooManyRequests:
			message = "Too many sign-in attempts. Please wait and try again."
		case http.StatusInternalServerError:
			a.logger.Error().Err(err).Msg("login")
			message = "Sign-in is unavailable right now. Please try again."
		}
		a.renderPage(w, r, status, "login", page{Title: "Sign in", Error: message, Data: data})
		return
	}

	target := data.RedirectTo
	if target == "" {
		target = "/dashboard"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (a *API) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	a.renderPage(w, r, http.StatusOK, "register", page{
		Title: "Create an account",
		Data:  volunteerSignup{UserType: models.UserTypeStudent},
	})
}

func (a *API) handleRegisterSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		a.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	form := volunteerSignup{
		Email:        strings.TrimSpace(r.PostForm.Get("email")),
		Password:     r.PostForm.Get("password"),
		FirstName:    r.PostForm.Get("first_name"),
		LastName:     r.PostForm.Get("last_name"),
		Phone:        r.PostForm.Get("phone"),
		UserType:     r.PostForm.Get("user_type"),
		University:   r.PostForm.Get("university"),
		RollNumber:   r.PostForm.Get("roll_number"),
		StudentEmail: r.PostForm.Get("student_email"),
		Industry:     r.PostForm.Get("industry"),
		Occupation:   r.PostForm.Get("occupation"),
		WorkEmail:    r.PostForm.Get("work_email"),
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	if _, err := a.registerVolunteer(ctx, form); err != nil {
		status := registerStatus(err)
		message := err.Error()
		if status == http.StatusConflict {
			message = "An account with this email already exists."
		} else if status == http.StatusInternalServerError {
			a.logger.Error().Err(err).Msg("register volunteer")
			message = "Registration is unavailable right now. Please try again."
		}
		form.Password = ""
		a.renderPage(w, r, status, "register", page{Title: "Create an account", Error: message, Data: form})
		return
	}

	if _, _, err := a.login(w, r, form.Email, form.Password); err != nil {
		a.logger.Warn().Err(err).Msg("sign in after registration")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/dashboard?flash=registered", http.StatusSeeOther)
}

func (a *API) handleLogoutSubmit(w http.ResponseWriter, r *http.Request) {
	if err := a.logout(w, r); err != nil {
		a.logger.Error().Err(err).Msg("logout")
	}
	http.Redirect(w, r, "/?flash=logged-out", http.StatusSeeOther)
}

func (a *API) activities(r *http.Request, volunteerID uuid.UUID) (activityData, error) {
	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	apps, err := a.store.ApplicationsByVolunteer(ctx, volunteerID)
	if err != nil {
		return activityData{}, err
	}
	hours, err := a.store.HoursByVolunteer(ctx, volunteerID)
	if err != nil {
		return activityData{}, err
	}

	data := activityData{Applications: apps, Hours: hours}
	for _, h := range hours {
		if h.Verified {
			data.TotalHours += h.HoursLogged
		}
	}
	return data, nil
}

func (a *API) handleDashboardPage(w http.ResponseWriter, r *http.Request) {
	ev := a.gate.Viewer(w, r)
	if ev.Profile == nil {
		http.Redirect(w, r, gate.LoginURL(r.URL.Path), http.StatusFound)
		return
	}

	var data dashboardData
	switch {
	case ev.Profile.Kind == models.KindVolunteer:
		acts, err := a.activities(r, ev.Profile.ID)
		if err != nil {
			a.renderBackendError(w, r, err, "activities")
			return
		}
		data.Activity = acts

	case ev.Profile.IsAdmin():
		pending, users, err := a.pendingAccounts(r)
		if err != nil {
			a.renderBackendError(w, r, err, "accounts")
			return
		}
		data.PendingVolunteers, data.PendingUsers = pending, users

	default:
		ctx, cancel := withTimeout(r.Context())
		defer cancel()

		ngo, err := a.store.NGOByUserID(ctx, ev.Profile.ID)
		switch {
		case err == nil:
			data.NGO = &ngo
			if data.Events, err = a.store.EventsByNGO(ctx, ngo.ID); err != nil {
				a.renderBackendError(w, r, err, "events")
				return
			}
		case !errors.Is(err, store.ErrNotFound):
			a.renderBackendError(w, r, err, "organization")
			return
		}
	}

	a.renderPage(w, r, http.StatusOK, "dashboard", page{Title: "Dashboard", Data: data})
}

func (a *API) pendingAccounts(r *http.Request) ([]models.VolunteerUser, []models.User, error) {
	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	volunteers, err := a.store.ListVolunteers(ctx)
	if err != nil {
		return nil, nil, err
	}
	users, err := a.store.ListUsers(ctx, "")
	if err != nil {
		return nil, nil, err
	}

	var pendingVolunteers []models.VolunteerUser
	for _, v := range volunteers {
		if !v.IsApproved {
			pendingVolunteers = append(pendingVolunteers, v)
		}
	}
	var pendingUsers []models.User
	for _, u := range users {
		if !u.IsApproved {
			pendingUsers = append(pendingUsers, u)
		}
	}
	return pendingVolunteers, pendingUsers, nil
}

func (a *API) handleProfilePage(w http.ResponseWriter, r *http.Request) {
	a.renderPage(w, r, http.StatusOK, "profile", page{Title: "Profile"})
}

func (a *API) handleActivitiesPage(w http.ResponseWriter, r *http.Request) {
	ev := a.gate.Viewer(w, r)
	if ev.Profile == nil {
		http.Redirect(w, r, gate.LoginURL(r.URL.Path), http.StatusFound)
		return
	}

	var data activityData
	if ev.Profile.Kind == models.KindVolunteer {
		var err error
		if data, err = a.activities(r, ev.Profile.ID); err != nil {
			a.renderBackendError(w, r, err, "activities")
			return
		}
	}
	a.renderPage(w, r, http.StatusOK, "activities", page{Title: "My activities", Data: data})
}
