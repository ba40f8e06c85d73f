package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"volunteerverse/services/web/internal/activity"
	"volunteerverse/services/web/internal/models"
	"volunteerverse/services/web/internal/store"
)

type eventRequest struct {
	NGOID         *uuid.UUID `json:"ngo_id"`
	Title         *string    `json:"title"`
	Description   *string    `json:"description"`
	Location      *string    `json:"location"`
	EventDate     *time.Time `json:"event_date"`
	Duration      *int       `json:"duration"`
	Requirements  *string    `json:"requirements"`
	MaxVolunteers *int       `json:"max_volunteers"`
	EventImageURL *string    `json:"event_image_url"`
	Category      *string    `json:"category"`
	HoursRequired *float64   `json:"hours_required"`
}

func (req eventRequest) validate() error {
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return errors.New("title cannot be empty")
	}
	if req.Category != nil && strings.TrimSpace(*req.Category) == "" {
		return errors.New("category cannot be empty")
	}
	if req.HoursRequired != nil && *req.HoursRequired < 0 {
		return errors.New("hours_required cannot be negative")
	}
	if req.Duration != nil && *req.Duration < 0 {
		return errors.New("duration cannot be negative")
	}
	if req.MaxVolunteers != nil && *req.MaxVolunteers < 0 {
		return errors.New("max_volunteers cannot be negative")
	}
	return nil
}

func (req eventRequest) patch() store.Patch {
	p := store.Patch{}
	for column, v := range map[string]*string{
		"title":           req.Title,
		"description":     req.Description,
		"location":        req.Location,
		"requirements":    req.Requirements,
		"event_image_url": req.EventImageURL,
		"category":        req.Category,
	} {
		if v != nil {
			p[column] = strings.TrimSpace(*v)
		}
	}
	if req.EventDate != nil {
		p["event_date"] = req.EventDate.UTC()
	}
	if req.Duration != nil {
		p["duration"] = *req.Duration
	}
	if req.MaxVolunteers != nil {
		p["max_volunteers"] = *req.MaxVolunteers
	}
	if req.HoursRequired != nil {
		p["hours_required"] = *req.HoursRequired
	}
	return p
}

func (a *API) handleListEvents(w http.ResponseWriter, r *http.Request) {
	limit := store.DefaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = n
	}
	ngoID, err := queryID(r, "ngo_id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	var events []store.EventSummary
	if ngoID != nil {
		events, err = a.store.EventsByNGO(ctx, *ngoID)
	} else {
		events, err = a.store.ListEvents(ctx, limit)
	}
	if err != nil {
		respondStoreError(w, err, "events")
		return
	}
	if events == nil {
		events = []store.EventSummary{}
	}
	respondJSON(w, http.StatusOK, events)
}

func (a *API) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	event, err := a.store.EventSummaryByID(ctx, id)
	if err != nil {
		respondStoreError(w, err, "event")
		return
	}
	respondJSON(w, http.StatusOK, event)
}

func (a *API) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	c, ok := requireProfile(w, r)
	if !ok {
		return
	}

	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if req.NGOID == nil || req.Title == nil || req.EventDate == nil || req.Category == nil || req.HoursRequired == nil {
		respondError(w, http.StatusBadRequest, errors.New("ngo_id, title, event_date, category and hours_required are required"))
		return
	}
	if err := req.validate(); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	ngo, err := a.store.NGOByID(ctx, *req.NGOID)
	if err != nil {
		respondStoreError(w, err, "ngo")
		return
	}
	if ngo.UserID != c.Session.UserID {
		respondError(w, http.StatusForbidden, errors.New("only the ngo owner can create events"))
		return
	}

	event := models.Event{
		NGOID:         ngo.ID,
		Title:         strings.TrimSpace(*req.Title),
		EventDate:     req.EventDate.UTC(),
		Category:      strings.TrimSpace(*req.Category),
		HoursRequired: *req.HoursRequired,
	}
	if req.Description != nil {
		event.Description = strings.TrimSpace(*req.Description)
	}
	if req.Location != nil {
		event.Location = strings.TrimSpace(*req.Location)
	}
	if req.Duration != nil {
		event.Duration = *req.Duration
	}
	if req.Requirements != nil {
		event.Requirements = strings.TrimSpace(*req.Requirements)
	}
	if req.MaxVolunteers != nil {
		event.MaxVolunteers = *req.MaxVolunteers
	}
	if req.EventImageURL != nil {
		event.EventImageURL = strings.TrimSpace(*req.EventImageURL)
	}

	if err := a.store.CreateEvent(ctx, &event); err != nil {
		respondStoreError(w, err, "event")
		return
	}

	actor := c.Session.UserID
	a.activity.Log(ctx, activity.Event{
		ActorID:    &actor,
		Action:     activity.EventCreated,
		TargetType: "event",
		TargetID:   event.ID.String(),
		Metadata:   map[string]any{"ngo_id": ngo.ID.String(), "title": event.Title},
	})
	respondJSON(w, http.StatusCreated, event)
}

// ownedEvent loads an event and checks that the caller owns its NGO.
func (a *API) ownedEvent(w http.ResponseWriter, r *http.Request, c caller, id uuid.UUID) (models.Event, bool) {
	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	event, err := a.store.EventByID(ctx, id)
	if err != nil {
		respondStoreError(w, err, "event")
		return models.Event{}, false
	}
	ngo, err := a.store.NGOByID(ctx, event.NGOID)
	if err != nil {
		respondStoreError(w, err, "ngo")
		return models.Event{}, false
	}
	if ngo.UserID != c.Session.UserID {
		respondError(w, http.StatusForbidden, errors.New("only the ngo owner can manage this event"))
		return models.Event{}, false
	}
	return event, true
}

func (a *API) handlePatchEvent(w http.ResponseWriter, r *http.Request) {
	c, ok := requireProfile(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if err := req.validate(); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	event, ok := a.ownedEvent(w, r, c, id)
	if !ok {
		return
	}
	if req.NGOID != nil && *req.NGOID != event.NGOID {
		respondError(w, http.StatusForbidden, errors.New("events cannot be moved to another ngo"))
		return
	}
	patch := req.patch()
	if len(patch) == 0 {
		respondError(w, http.StatusBadRequest, errors.New("no fields to update"))
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	updated, err := a.store.UpdateEvent(ctx, id, patch)
	if err != nil {
		respondStoreError(w, err, "event")
		return
	}

	actor := c.Session.UserID
	a.activity.Log(ctx, activity.Event{
		ActorID:    &actor,
		Action:     activity.EventUpdated,
		TargetType: "event",
		TargetID:   id.String(),
	})
	respondJSON(w, http.StatusOK, updated)
}

func (a *API) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	c, ok := requireProfile(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	event, ok := a.ownedEvent(w, r, c, id)
	if !ok {
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	if err := a.store.DeleteEvent(ctx, id); err != nil {
		respondStoreError(w, err, "event")
		return
	}

	actor := c.Session.UserID
	a.activity.Log(ctx, activity.Event{
		ActorID:    &actor,
		Action:     activity.EventDeleted,
		TargetType: "event",
		TargetID:   id.String(),
		Metadata:   map[string]any{"title": event.Title},
	})
	w.WriteHeader(http.StatusNoContent)
}
