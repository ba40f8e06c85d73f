package handlers

import (
	"context"
	"errors"
	"net/http"

	"volunteerverse/services/web/internal/auth"
	"volunteerverse/services/web/internal/gate"
	"volunteerverse/services/web/internal/profile"
	"volunteerverse/services/web/internal/session"
)

// caller is the authenticated principal of an API request. Profile is nil
// when the account has no profile row.
type caller struct {
	Session *auth.Session
	Profile *profile.Profile
}

func (c caller) isAdmin() bool {
	return c.Profile.IsAdmin()
}

type callerKey struct{}

func callerFrom(ctx context.Context) (caller, bool) {
	c, ok := ctx.Value(callerKey{}).(caller)
	return c, ok
}

// requireSession resolves the session for API requests. Definitive failures
// answer 401 and clear the cookie; backend failures answer 503.
func (a *API) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := a.sessions.Current(r)
		switch {
		case errors.Is(err, session.ErrNoSession):
			respondError(w, http.StatusUnauthorized, errUnauthorized)
			return
		case auth.IsDefinitive(err):
			if a.sessions.HasCookie(r) {
				a.sessions.Clear(w)
			}
			respondError(w, http.StatusUnauthorized, err)
			return
		case err != nil:
			a.logger.Error().Err(err).Str("path", r.URL.Path).Msg("resolve session")
			respondError(w, http.StatusServiceUnavailable, errors.New("session store unavailable"))
			return
		}

		if sess.Refreshed {
			a.sessions.Set(w, sess)
		}

		p, _ := a.profiles.Resolve(r.Context(), sess.UserID)
		ctx := context.WithValue(r.Context(), callerKey{}, caller{Session: sess, Profile: p})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *API) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, ok := callerFrom(r.Context())
		if !ok {
			respondError(w, http.StatusUnauthorized, errUnauthorized)
			return
		}
		if !c.isAdmin() {
			respondError(w, http.StatusForbidden, errForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireProfile returns the caller when it has a profile and answers 403 otherwise.
func requireProfile(w http.ResponseWriter, r *http.Request) (caller, bool) {
	c, ok := callerFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, errUnauthorized)
		return caller{}, false
	}
	if c.Profile == nil {
		respondError(w, http.StatusForbidden, errNoProfile)
		return caller{}, false
	}
	return c, true
}

// withViewer evaluates the visitor once per page request so handlers and the
// layout share one result.
func (a *API) withViewer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ev := a.gate.Viewer(w, r)
		next.ServeHTTP(w, r.WithContext(gate.WithEvaluation(r.Context(), ev)))
	})
}
