package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"volunteerverse/services/web/internal/activity"
	"volunteerverse/services/web/internal/models"
	"volunteerverse/services/web/internal/store"
)

const maxHoursPerEntry = 24

func (a *API) handleLogHours(w http.ResponseWriter, r *http.Request) {
	c, ok := requireProfile(w, r)
	if !ok {
		return
	}
	if c.Profile.Kind != models.KindVolunteer {
		respondError(w, http.StatusForbidden, errVolunteerRequired)
		return
	}

	var req struct {
		EventID     uuid.UUID `json:"event_id"`
		HoursLogged float64   `json:"hours_logged"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if req.EventID == uuid.Nil {
		respondError(w, http.StatusBadRequest, errors.New("event_id is required"))
		return
	}
	if req.HoursLogged <= 0 || req.HoursLogged > maxHoursPerEntry {
		respondError(w, http.StatusBadRequest, errors.New("hours_logged must be between 0 and 24"))
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	if _, err := a.store.EventByID(ctx, req.EventID); err != nil {
		respondStoreError(w, err, "event")
		return
	}

	h := models.VolunteerHours{
		VolunteerID: c.Session.UserID,
		EventID:     req.EventID,
		HoursLogged: req.HoursLogged,
	}
	if err := a.store.LogHours(ctx, &h); err != nil {
		respondStoreError(w, err, "hours")
		return
	}

	actor := c.Session.UserID
	a.activity.Log(ctx, activity.Event{
		ActorID:    &actor,
		Action:     activity.HoursLogged,
		TargetType: "volunteer_hours",
		TargetID:   h.ID.String(),
		Metadata:   map[string]any{"event_id": req.EventID.String(), "hours": req.HoursLogged},
	})
	respondJSON(w, http.StatusCreated, h)
}

func (a *API) handleMyHours(w http.ResponseWriter, r *http.Request) {
	c, ok := requireProfile(w, r)
	if !ok {
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	hours, err := a.store.HoursByVolunteer(ctx, c.Session.UserID)
	if err != nil {
		respondStoreError(w, err, "hours")
		return
	}
	respondJSON(w, http.StatusOK, hours)
}

func (a *API) handleVerifyHours(w http.ResponseWriter, r *http.Request) {
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

	h, err := a.store.HoursByID(ctx, id)
	if err != nil {
		respondStoreError(w, err, "hours")
		return
	}
	owner, err := a.eventOwner(ctx, h.EventID, c.Session.UserID)
	if err != nil {
		respondStoreError(w, err, "event")
		return
	}
	if !owner {
		respondError(w, http.StatusForbidden, errors.New("only the ngo owner can verify hours"))
		return
	}

	verified, err := a.store.VerifyHours(ctx, id, c.Session.UserID)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyVerified) {
			respondError(w, http.StatusConflict, errors.New("hours already verified"))
			return
		}
		respondStoreError(w, err, "hours")
		return
	}

	actor := c.Session.UserID
	a.activity.Log(ctx, activity.Event{
		ActorID:    &actor,
		Action:     activity.HoursVerified,
		TargetType: "volunteer_hours",
		TargetID:   id.String(),
	})
	respondJSON(w, http.StatusOK, verified)
}
