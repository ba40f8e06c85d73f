package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"volunteerverse/services/web/internal/activity"
	"volunteerverse/services/web/internal/auth"
	"volunteerverse/services/web/internal/models"
	"volunteerverse/services/web/internal/profile"
	"volunteerverse/services/web/internal/store"
)

// validationError marks request problems that map to 400.
type validationError struct{ msg string }

func (e validationError) Error() string { return e.msg }

func invalid(format string, args ...any) error {
	return validationError{msg: fmt.Sprintf(format, args...)}
}

type volunteerSignup struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Phone        string `json:"phone"`
	UserType     string `json:"user_type"`
	University   string `json:"university"`
	RollNumber   string `json:"roll_number"`
	StudentEmail string `json:"student_email"`
	Industry     string `json:"industry"`
	Occupation   string `json:"occupation"`
	WorkEmail    string `json:"work_email"`
}

func (s *volunteerSignup) volunteer() (*models.VolunteerUser, error) {
	v := &models.VolunteerUser{
		FirstName:  strings.TrimSpace(s.FirstName),
		LastName:   strings.TrimSpace(s.LastName),
		Phone:      strings.TrimSpace(s.Phone),
		UserType:   strings.TrimSpace(s.UserType),
		IsApproved: true,
	}
	if v.FirstName == "" || v.LastName == "" {
		return nil, invalid("first_name and last_name are required")
	}

	switch v.UserType {
	case models.UserTypeStudent:
		v.University = strings.TrimSpace(s.University)
		v.RollNumber = strings.TrimSpace(s.RollNumber)
		v.StudentEmail = strings.TrimSpace(s.StudentEmail)
		if v.University == "" {
			return nil, invalid("university is required for students")
		}
	case models.UserTypeProfessional:
		v.Industry = strings.TrimSpace(s.Industry)
		v.Occupation = strings.TrimSpace(s.Occupation)
		v.WorkEmail = strings.TrimSpace(s.WorkEmail)
		if v.Occupation == "" {
			return nil, invalid("occupation is required for professionals")
		}
	default:
		return nil, invalid("user_type must be %q or %q", models.UserTypeStudent, models.UserTypeProfessional)
	}
	return v, nil
}

type userSignup struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

// registerStatus maps registration errors to status codes.
func registerStatus(err error) int {
	var ve validationError
	switch {
	case errors.As(err, &ve), errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, auth.ErrWeakPassword):
		return http.StatusBadRequest
	case errors.Is(err, errForbidden):
		return http.StatusForbidden
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) registerVolunteer(ctx context.Context, req volunteerSignup) (*models.VolunteerUser, error) {
	v, err := req.volunteer()
	if err != nil {
		return nil, err
	}
	account, err := a.auth.NewAccount(req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	v.Email = account.Email

	if err := a.store.RegisterVolunteer(ctx, account, v); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, fmt.Errorf("email already registered: %w", err)
		}
		return nil, err
	}
	a.activity.Log(ctx, activity.Event{
		ActorID:    &v.ID,
		Action:     activity.AccountRegistered,
		TargetType: models.KindVolunteer,
		TargetID:   v.ID.String(),
		Metadata:   map[string]any{"user_type": v.UserType},
	})
	return v, nil
}

func (a *API) registerUser(ctx context.Context, req userSignup) (*models.User, error) {
	role := strings.TrimSpace(req.Role)
	switch role {
	case models.RoleVolunteer, models.RoleNGO:
	case models.RoleAdmin:
		return nil, fmt.Errorf("%w: admin accounts cannot be self-registered", errForbidden)
	default:
		return nil, invalid("role must be %q or %q", models.RoleVolunteer, models.RoleNGO)
	}

	u := &models.User{
		FirstName:  strings.TrimSpace(req.FirstName),
		LastName:   strings.TrimSpace(req.LastName),
		Role:       role,
		IsApproved: role == models.RoleVolunteer,
	}
	if u.FirstName == "" || u.LastName == "" {
		return nil, invalid("first_name and last_name are required")
	}

	account, err := a.auth.NewAccount(req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	u.Email = account.Email

	if err := a.store.RegisterUser(ctx, account, u); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, fmt.Errorf("email already registered: %w", err)
		}
		return nil, err
	}
	a.activity.Log(ctx, activity.Event{
		ActorID:    &u.ID,
		Action:     activity.AccountRegistered,
		TargetType: models.KindOrganization,
		TargetID:   u.ID.String(),
		Metadata:   map[string]any{"role": u.Role},
	})
	return u, nil
}

func (a *API) handleRegisterVolunteer(w http.ResponseWriter, r *http.Request) {
	var req volunteerSignup
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	v, err := a.registerVolunteer(ctx, req)
	if err != nil {
		respondError(w, registerStatus(err), err)
		return
	}
	respondJSON(w, http.StatusCreated, profile.FromVolunteer(*v))
}

func (a *API) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	var req userSignup
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	u, err := a.registerUser(ctx, req)
	if err != nil {
		respondError(w, registerStatus(err), err)
		return
	}
	respondJSON(w, http.StatusCreated, profile.FromUser(*u))
}

// lookupProfile reads either profile kind, surfacing backend errors.
func (a *API) lookupProfile(ctx context.Context, id uuid.UUID) (*profile.Profile, error) {
	v, err := a.store.VolunteerByID(ctx, id)
	switch {
	case err == nil:
		return profile.FromVolunteer(v), nil
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}

	u, err := a.store.UserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return profile.FromUser(u), nil
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	role := r.URL.Query().Get("role")
	if role != "" && !models.ValidRole(role) {
		respondError(w, http.StatusBadRequest, fmt.Errorf("unknown role %q", role))
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	users, err := a.store.ListUsers(ctx, role)
	if err != nil {
		respondStoreError(w, err, "users")
		return
	}
	respondJSON(w, http.StatusOK, users)
}

func (a *API) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	p, err := a.lookupProfile(ctx, id)
	if err != nil {
		respondStoreError(w, err, "user")
		return
	}
	respondJSON(w, http.StatusOK, p)
}

type userPatchRequest struct {
	FirstName       *string `json:"first_name"`
	LastName        *string `json:"last_name"`
	Phone           *string `json:"phone"`
	ProfileImageURL *string `json:"profile_image_url"`
	University      *string `json:"university"`
	RollNumber      *string `json:"roll_number"`
	StudentEmail    *string `json:"student_email"`
	Industry        *string `json:"industry"`
	Occupation      *string `json:"occupation"`
	WorkEmail       *string `json:"work_email"`
	IsApproved      *bool   `json:"is_approved"`
	Role            *string `json:"role"`
}

// patch builds the column patch for a profile of kind.
func (req userPatchRequest) patch(kind string) (store.Patch, error) {
	p := store.Patch{}
	setString := func(column string, v *string) {
		if v != nil {
			p[column] = strings.TrimSpace(*v)
		}
	}
	setString("first_name", req.FirstName)
	setString("last_name", req.LastName)
	if req.IsApproved != nil {
		p["is_approved"] = *req.IsApproved
	}

	volunteerOnly := map[string]*string{
		"phone":         req.Phone,
		"university":    req.University,
		"roll_number":   req.RollNumber,
		"student_email": req.StudentEmail,
		"industry":      req.Industry,
		"occupation":    req.Occupation,
		"work_email":    req.WorkEmail,
	}
	for column, v := range volunteerOnly {
		if v == nil {
			continue
		}
		if kind != models.KindVolunteer {
			return nil, invalid("%s does not apply to %s profiles", column, kind)
		}
		setString(column, v)
	}
	if req.ProfileImageURL != nil {
		if kind != models.KindOrganization {
			return nil, invalid("profile_image_url does not apply to %s profiles", kind)
		}
		setString("profile_image_url", req.ProfileImageURL)
	}

	for _, column := range []string{"first_name", "last_name"} {
		if v, ok := p[column]; ok && v == "" {
			return nil, invalid("%s cannot be empty", column)
		}
	}
	return p, nil
}

func (a *API) handlePatchUser(w http.ResponseWriter, r *http.Request) {
	c, ok := callerFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, errUnauthorized)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if id != c.Session.UserID && !c.isAdmin() {
		respondError(w, http.StatusForbidden, errForbidden)
		return
	}

	var req userPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if req.Role != nil {
		respondError(w, http.StatusForbidden, errors.New("role cannot be changed"))
		return
	}
	if req.IsApproved != nil && !c.isAdmin() {
		respondError(w, http.StatusForbidden, errors.New("only admins can change approval"))
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	target, err := a.lookupProfile(ctx, id)
	if err != nil {
		respondStoreError(w, err, "user")
		return
	}

	patch, err := req.patch(target.Kind)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if len(patch) == 0 {
		respondError(w, http.StatusBadRequest, errors.New("no fields to update"))
		return
	}

	var updated *profile.Profile
	if target.Kind == models.KindVolunteer {
		v, err := a.store.UpdateVolunteer(ctx, id, patch)
		if err != nil {
			respondStoreError(w, err, "user")
			return
		}
		updated = profile.FromVolunteer(v)
	} else {
		u, err := a.store.UpdateUser(ctx, id, patch)
		if err != nil {
			respondStoreError(w, err, "user")
			return
		}
		updated = profile.FromUser(u)
	}
	respondJSON(w, http.StatusOK, updated)
}

func (a *API) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	c, _ := callerFrom(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	u, err := a.store.UserByID(ctx, id)
	if err != nil {
		respondStoreError(w, err, "user")
		return
	}
	if u.Role == models.RoleAdmin {
		respondError(w, http.StatusForbidden, errors.New("admin accounts cannot be deleted"))
		return
	}

	if err := a.auth.RevokeAll(ctx, id); err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	if err := a.store.DeleteUser(ctx, id); err != nil {
		respondStoreError(w, err, "user")
		return
	}

	actor := c.Session.UserID
	a.activity.Log(ctx, activity.Event{
		ActorID:    &actor,
		Action:     activity.UserDeleted,
		TargetType: models.KindOrganization,
		TargetID:   id.String(),
		Metadata:   map[string]any{"email": u.Email},
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleApproveUser(w http.ResponseWriter, r *http.Request) {
	a.setApproval(w, r, true)
}

func (a *API) handleRejectUser(w http.ResponseWriter, r *http.Request) {
	a.setApproval(w, r, false)
}

func (a *API) setApproval(w http.ResponseWriter, r *http.Request, approved bool) {
	c, _ := callerFrom(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	kind, err := a.store.SetApproval(ctx, id, approved)
	if err != nil {
		respondStoreError(w, err, "user")
		return
	}

	action := activity.UserRejected
	if approved {
		action = activity.UserApproved
	}
	actor := c.Session.UserID
	a.activity.Log(ctx, activity.Event{
		ActorID:    &actor,
		Action:     action,
		TargetType: kind,
		TargetID:   id.String(),
	})

	respondJSON(w, http.StatusOK, map[string]any{
		"id":          id,
		"kind":        kind,
		"is_approved": approved,
	})
}

func (a *API) handleProfileMe(w http.ResponseWriter, r *http.Request) {
	c, ok := callerFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, errUnauthorized)
		return
	}
	if c.Profile == nil {
		respondError(w, http.StatusNotFound, errNoProfile)
		return
	}
	respondJSON(w, http.StatusOK, c.Profile)
}
