package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"volunteerverse/services/web/internal/activity"
	"volunteerverse/services/web/internal/models"
	"volunteerverse/services/web/internal/store"
)

type ngoRequest struct {
	UserID       *uuid.UUID `json:"user_id"`
	Name         *string    `json:"name"`
	Description  *string    `json:"description"`
	WebsiteURL   *string    `json:"website_url"`
	ContactEmail *string    `json:"contact_email"`
	ContactPhone *string    `json:"contact_phone"`
	LogoURL      *string    `json:"logo_url"`
}

func (req ngoRequest) patch() store.Patch {
	p := store.Patch{}
	for column, v := range map[string]*string{
		"name":          req.Name,
		"description":   req.Description,
		"website_url":   req.WebsiteURL,
		"contact_email": req.ContactEmail,
		"contact_phone": req.ContactPhone,
		"logo_url":      req.LogoURL,
	} {
		if v != nil {
			p[column] = strings.TrimSpace(*v)
		}
	}
	return p
}

func (a *API) handleListNGOs(w http.ResponseWriter, r *http.Request) {
	owner, err := queryID(r, "user_id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	ngos, err := a.store.ListNGOs(ctx, owner)
	if err != nil {
		respondStoreError(w, err, "ngos")
		return
	}
	respondJSON(w, http.StatusOK, ngos)
}

func (a *API) handleGetNGO(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	ngo, err := a.store.NGOByID(ctx, id)
	if err != nil {
		respondStoreError(w, err, "ngo")
		return
	}
	respondJSON(w, http.StatusOK, ngo)
}

func (a *API) handleNGOByUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	ngo, err := a.store.NGOByUserID(ctx, id)
	if err != nil {
		respondStoreError(w, err, "ngo")
		return
	}
	respondJSON(w, http.StatusOK, ngo)
}

func (a *API) handleCreateNGO(w http.ResponseWriter, r *http.Request) {
	c, ok := requireProfile(w, r)
	if !ok {
		return
	}

	var req ngoRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		respondError(w, http.StatusBadRequest, errors.New("name is required"))
		return
	}

	owner := c.Session.UserID
	if req.UserID != nil && *req.UserID != owner {
		if !c.isAdmin() {
			respondError(w, http.StatusForbidden, errors.New("cannot create an ngo for another user"))
			return
		}
		owner = *req.UserID
	}

	ngo := models.NGO{UserID: owner}
	applyNGOFields(&ngo, req)

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	if err := a.store.CreateNGO(ctx, &ngo); err != nil {
		respondStoreError(w, err, "ngo with this name")
		return
	}

	actor := c.Session.UserID
	a.activity.Log(ctx, activity.Event{
		ActorID:    &actor,
		Action:     activity.NGOCreated,
		TargetType: "ngo",
		TargetID:   ngo.ID.String(),
		Metadata:   map[string]any{"name": ngo.Name},
	})
	respondJSON(w, http.StatusCreated, ngo)
}

func applyNGOFields(ngo *models.NGO, req ngoRequest) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&ngo.Name, req.Name)
	set(&ngo.Description, req.Description)
	set(&ngo.WebsiteURL, req.WebsiteURL)
	set(&ngo.ContactEmail, req.ContactEmail)
	set(&ngo.ContactPhone, req.ContactPhone)
	set(&ngo.LogoURL, req.LogoURL)
}

func (a *API) handlePatchNGO(w http.ResponseWriter, r *http.Request) {
	c, ok := requireProfile(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	var req ngoRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if req.UserID != nil {
		respondError(w, http.StatusForbidden, errors.New("ngo ownership cannot be changed"))
		return
	}
	patch := req.patch()
	if len(patch) == 0 {
		respondError(w, http.StatusBadRequest, errors.New("no fields to update"))
		return
	}
	if name, ok := patch["name"]; ok && name == "" {
		respondError(w, http.StatusBadRequest, errors.New("name cannot be empty"))
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	ngo, err := a.store.NGOByID(ctx, id)
	if err != nil {
		respondStoreError(w, err, "ngo")
		return
	}
	if ngo.UserID != c.Session.UserID && !c.isAdmin() {
		respondError(w, http.StatusForbidden, errForbidden)
		return
	}

	updated, err := a.store.UpdateNGO(ctx, id, patch)
	if err != nil {
		respondStoreError(w, err, "ngo with this name")
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (a *API) handleDeleteNGO(w http.ResponseWriter, r *http.Request) {
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

	ngo, err := a.store.NGOByID(ctx, id)
	if err != nil {
		respondStoreError(w, err, "ngo")
		return
	}
	if ngo.UserID != c.Session.UserID {
		respondError(w, http.StatusForbidden, errForbidden)
		return
	}

	if err := a.store.DeleteNGO(ctx, id); err != nil {
		respondStoreError(w, err, "ngo")
		return
	}

	actor := c.Session.UserID
	a.activity.Log(ctx, activity.Event{
		ActorID:    &actor,
		Action:     activity.NGODeleted,
		TargetType: "ngo",
		TargetID:   id.String(),
		Metadata:   map[string]any{"name": ngo.Name},
	})
	w.WriteHeader(http.StatusNoContent)
}
