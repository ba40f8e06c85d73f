package handlers

import (
	"errors"
	"net/http"
	"strings"

	"volunteerverse/services/web/internal/activity"
	"volunteerverse/services/web/internal/auth"
	"volunteerverse/services/web/internal/gate"
	"volunteerverse/services/web/internal/profile"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	State   gate.State       `json:"state"`
	UserID  string           `json:"user_id,omitempty"`
	Session *auth.Session    `json:"session,omitempty"`
	Profile *profile.Profile `json:"profile,omitempty"`
}

func stateOf(p *profile.Profile) gate.State {
	switch {
	case p == nil:
		return gate.StateUnauthenticated
	case p.IsApproved:
		return gate.StateApproved
	default:
		return gate.StatePending
	}
}

// loginStatus maps credential store errors to status codes.
func loginStatus(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// login opens a session, writes the cookie and records the login.
func (a *API) login(w http.ResponseWriter, r *http.Request, email, password string) (*auth.Session, *profile.Profile, error) {
	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	sess, err := a.auth.Login(ctx, email, password)
	if err != nil {
		return nil, nil, err
	}
	a.sessions.Set(w, sess)

	p, _ := a.profiles.Resolve(ctx, sess.UserID)
	uid := sess.UserID
	a.activity.Log(ctx, activity.Event{
		ActorID:    &uid,
		Action:     activity.SessionLogin,
		TargetType: "session",
		TargetID:   sess.ID.String(),
	})
	return sess, p, nil
}

// logout revokes the presented session and clears the cookie.
func (a *API) logout(w http.ResponseWriter, r *http.Request) error {
	defer a.sessions.Clear(w)

	token, ok := a.sessions.Token(r)
	if !ok {
		return nil
	}
	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	e := activity.Event{Action: activity.SessionLogout, TargetType: "session"}
	if sess, err := a.sessions.Current(r); err == nil {
		uid := sess.UserID
		e.ActorID = &uid
		e.TargetID = sess.ID.String()
	}

	if err := a.auth.Logout(ctx, token); err != nil {
		return err
	}
	a.activity.Log(ctx, e)
	return nil
}

func (a *API) handleAPILogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, errors.New("email and password are required"))
		return
	}

	sess, p, err := a.login(w, r, req.Email, req.Password)
	if err != nil {
		status := loginStatus(err)
		if status == http.StatusInternalServerError {
			a.logger.Error().Err(err).Msg("login")
		}
		respondError(w, status, err)
		return
	}

	respondJSON(w, http.StatusOK, sessionResponse{
		State:   stateOf(p),
		UserID:  sess.UserID.String(),
		Session: sess,
		Profile: p,
	})
}

func (a *API) handleAPILogout(w http.ResponseWriter, r *http.Request) {
	if err := a.logout(w, r); err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleAPIRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if req.RefreshToken == "" {
		respondError(w, http.StatusBadRequest, errors.New("refresh_token is required"))
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	sess, err := a.auth.Refresh(ctx, req.RefreshToken)
	switch {
	case auth.IsDefinitive(err):
		respondError(w, http.StatusUnauthorized, err)
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	a.sessions.Set(w, sess)

	p, _ := a.profiles.Resolve(ctx, sess.UserID)
	respondJSON(w, http.StatusOK, sessionResponse{
		State:   stateOf(p),
		UserID:  sess.UserID.String(),
		Session: sess,
		Profile: p,
	})
}

// handleAPISession reports what the gate sees for the current request.
func (a *API) handleAPISession(w http.ResponseWriter, r *http.Request) {
	ev := a.gate.Evaluate(w, r)
	if ev.Unresolved {
		respondError(w, http.StatusServiceUnavailable, errors.New("session store unavailable"))
		return
	}

	resp := sessionResponse{State: ev.State, Profile: ev.Profile}
	if ev.Session != nil {
		resp.UserID = ev.Session.UserID.String()
	}
	respondJSON(w, http.StatusOK, resp)
}
