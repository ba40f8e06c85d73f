package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"volunteerverse/services/web/internal/activity"
	"volunteerverse/services/web/internal/models"
	"volunteerverse/services/web/internal/store"
)

var errVolunteerRequired = errors.New("a volunteer profile is required")

// apply creates the application of volunteerID to eventID or returns the
// existing one. created reports whether a new row was written.
func (a *API) apply(ctx context.Context, actor, eventID, volunteerID uuid.UUID) (app models.VolunteerApplication, created bool, err error) {
	if _, err := a.store.EventByID(ctx, eventID); err != nil {
		return models.VolunteerApplication{}, false, err
	}
	if _, err := a.store.VolunteerByID(ctx, volunteerID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.VolunteerApplication{}, false, errVolunteerRequired
		}
		return models.VolunteerApplication{}, false, err
	}

	existing, err := a.store.ApplicationFor(ctx, eventID, volunteerID)
	switch {
	case err == nil:
		return existing, false, nil
	case !errors.Is(err, store.ErrNotFound):
		return models.VolunteerApplication{}, false, err
	}

	app = models.VolunteerApplication{EventID: eventID, VolunteerID: volunteerID, Status: models.StatusPending}
	if err := a.store.CreateApplication(ctx, &app); err != nil {
		if errors.Is(err, store.ErrConflict) {
			existing, err := a.store.ApplicationFor(ctx, eventID, volunteerID)
			return existing, false, err
		}
		return models.VolunteerApplication{}, false, err
	}

	a.activity.Log(ctx, activity.Event{
		ActorID:    &actor,
		Action:     activity.ApplicationCreated,
		TargetType: "volunteer_application",
		TargetID:   app.ID.String(),
		Metadata:   map[string]any{"event_id": eventID.String(), "volunteer_id": volunteerID.String()},
	})
	return app, true, nil
}

func (a *API) handleCreateApplication(w http.ResponseWriter, r *http.Request) {
	c, ok := requireProfile(w, r)
	if !ok {
		return
	}

	var req struct {
		EventID     uuid.UUID  `json:"event_id"`
		VolunteerID *uuid.UUID `json:"volunteer_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if req.EventID == uuid.Nil {
		respondError(w, http.StatusBadRequest, errors.New("event_id is required"))
		return
	}

	volunteerID := c.Session.UserID
	if req.VolunteerID != nil && *req.VolunteerID != volunteerID {
		if !c.isAdmin() {
			respondError(w, http.StatusForbidden, errors.New("cannot apply on behalf of another volunteer"))
			return
		}
		volunteerID = *req.VolunteerID
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	app, created, err := a.apply(ctx, c.Session.UserID, req.EventID, volunteerID)
	switch {
	case errors.Is(err, errVolunteerRequired):
		respondError(w, http.StatusForbidden, err)
		return
	case err != nil:
		respondStoreError(w, err, "event")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respondJSON(w, status, app)
}

func (a *API) handleCheckApplication(w http.ResponseWriter, r *http.Request) {
	eventID, err := queryID(r, "event_id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	volunteerID, err := queryID(r, "volunteer_id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if eventID == nil || volunteerID == nil {
		respondError(w, http.StatusBadRequest, errors.New("event_id and volunteer_id are required"))
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	_, err = a.store.ApplicationFor(ctx, *eventID, *volunteerID)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, map[string]bool{"exists": true})
	case errors.Is(err, store.ErrNotFound):
		respondJSON(w, http.StatusOK, map[string]bool{"exists": false})
	default:
		respondStoreError(w, err, "application")
	}
}

func (a *API) handleEventApplications(w http.ResponseWriter, r *http.Request) {
	c, ok := requireProfile(w, r)
	if !ok {
		return
	}
	eventID, err := pathID(r, "event_id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	if !c.isAdmin() {
		if _, ok := a.ownedEvent(w, r, c, eventID); !ok {
			return
		}
	}

	apps, err := a.store.ApplicationsByEvent(ctx, eventID)
	if err != nil {
		respondStoreError(w, err, "applications")
		return
	}
	respondJSON(w, http.StatusOK, apps)
}

func (a *API) handleMyApplications(w http.ResponseWriter, r *http.Request) {
	c, ok := requireProfile(w, r)
	if !ok {
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	apps, err := a.store.ApplicationsByVolunteer(ctx, c.Session.UserID)
	if err != nil {
		respondStoreError(w, err, "applications")
		return
	}
	respondJSON(w, http.StatusOK, apps)
}

// eventOwner reports whether uid owns the NGO that runs eventID.
func (a *API) eventOwner(ctx context.Context, eventID, uid uuid.UUID) (bool, error) {
	event, err := a.store.EventByID(ctx, eventID)
	if err != nil {
		return false, err
	}
	ngo, err := a.store.NGOByID(ctx, event.NGOID)
	if err != nil {
		return false, err
	}
	return ngo.UserID == uid, nil
}

func (a *API) handleGetApplication(w http.ResponseWriter, r *http.Request) {
	c, ok := requireProfile(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	app, err := a.store.ApplicationByID(ctx, id)
	if err != nil {
		respondStoreError(w, err, "application")
		return
	}
	if app.VolunteerID != c.Session.UserID && !c.isAdmin() {
		owner, err := a.eventOwner(ctx, app.EventID, c.Session.UserID)
		if err != nil {
			respondStoreError(w, err, "event")
			return
		}
		if !owner {
			respondError(w, http.StatusForbidden, errForbidden)
			return
		}
	}
	respondJSON(w, http.StatusOK, app)
}

func (a *API) handlePatchApplication(w http.ResponseWriter, r *http.Request) {
	c, ok := requireProfile(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	req.Status = strings.TrimSpace(req.Status)
	if !models.ValidApplicationStatus(req.Status) {
		respondError(w, http.StatusBadRequest, errors.New("status must be pending, approved or rejected"))
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	app, err := a.store.ApplicationByID(ctx, id)
	if err != nil {
		respondStoreError(w, err, "application")
		return
	}
	owner, err := a.eventOwner(ctx, app.EventID, c.Session.UserID)
	if err != nil {
		respondStoreError(w, err, "event")
		return
	}
	if !owner {
		respondError(w, http.StatusForbidden, errors.New("only the ngo owner can review applications"))
		return
	}

	updated, err := a.store.UpdateApplicationStatus(ctx, id, req.Status)
	if err != nil {
		respondStoreError(w, err, "application")
		return
	}

	actor := c.Session.UserID
	a.activity.Log(ctx, activity.Event{
		ActorID:    &actor,
		Action:     activity.ApplicationStatusChanged,
		TargetType: "volunteer_application",
		TargetID:   id.String(),
		Metadata:   map[string]any{"from": app.Status, "to": updated.Status},
	})
	respondJSON(w, http.StatusOK, updated)
}

func (a *API) handleDeleteApplication(w http.ResponseWriter, r *http.Request) {
	c, ok := requireProfile(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	app, err := a.store.ApplicationByID(ctx, id)
	if err != nil {
		respondStoreError(w, err, "application")
		return
	}
	if app.VolunteerID != c.Session.UserID && !c.isAdmin() {
		respondError(w, http.StatusForbidden, errForbidden)
		return
	}

	if err := a.store.DeleteApplication(ctx, id); err != nil {
		respondStoreError(w, err, "application")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
