package gate

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"volunteerverse/services/web/internal/auth"
	"volunteerverse/services/web/internal/profile"
	"volunteerverse/services/web/internal/session"
)

// DefaultBypass lists path prefixes the gate never inspects.
var DefaultBypass = []string{"/api", "/static", "/metrics", "/healthz", "/readyz", "/favicon.ico"}

// Sessions is the session cache consulted by the gate.
type Sessions interface {
	Current(r *http.Request) (*auth.Session, error)
	HasCookie(r *http.Request) bool
	Set(w http.ResponseWriter, sess *auth.Session)
	Clear(w http.ResponseWriter)
}

// Profiles maps a user id to its profile.
type Profiles interface {
	Resolve(ctx context.Context, id uuid.UUID) (*profile.Profile, bool)
}

// Options configures a Gate.
type Options struct {
	Routes RouteTable
	Bypass []string
	// FailOpen lets requests through when a session cookie is present but the
	// credential store cannot be reached.
	FailOpen bool
	Logger   zerolog.Logger
}

// Evaluation is the visitor state computed for one request.
type Evaluation struct {
	State   State
	Session *auth.Session
	Profile *profile.Profile
	// Unresolved is set when a session cookie was presented but could not be
	// checked because of a backend failure.
	Unresolved bool
}

// Gate decides per page request whether to serve it or redirect.
type Gate struct {
	sessions Sessions
	profiles Profiles
	routes   RouteTable
	bypass   []string
	failOpen bool
	logger   zerolog.Logger
}

// New returns a Gate.
func New(sessions Sessions, profiles Profiles, opts Options) (*Gate, error) {
	if sessions == nil {
		return nil, errors.New("session cache is required")
	}
	if profiles == nil {
		return nil, errors.New("profile resolver is required")
	}
	if opts.Bypass == nil {
		opts.Bypass = DefaultBypass
	}
	return &Gate{
		sessions: sessions,
		profiles: profiles,
		routes:   opts.Routes,
		bypass:   opts.Bypass,
		failOpen: opts.FailOpen,
		logger:   opts.Logger,
	}, nil
}

// Routes returns the active route table.
func (g *Gate) Routes() RouteTable {
	return g.routes
}

// Evaluate resolves the visitor state. A refreshed access token is written
// back to the cookie and a definitively invalid cookie is cleared.
func (g *Gate) Evaluate(w http.ResponseWriter, r *http.Request) Evaluation {
	sess, err := g.sessions.Current(r)
	switch {
	case errors.Is(err, session.ErrNoSession):
		return Evaluation{State: StateUnauthenticated}
	case auth.IsDefinitive(err):
		if g.sessions.HasCookie(r) {
			g.sessions.Clear(w)
		}
		return Evaluation{State: StateUnauthenticated}
	case err != nil:
		g.logger.Warn().Err(err).Str("path", r.URL.Path).Msg("session lookup failed")
		// Only a session cookie earns the fail-open pass; a bare bearer header
		// is treated as anonymous.
		return Evaluation{State: StateUnauthenticated, Unresolved: g.sessions.HasCookie(r)}
	}

	if sess.Refreshed {
		g.sessions.Set(w, sess)
	}

	p, ok := g.profiles.Resolve(r.Context(), sess.UserID)
	if !ok {
		return Evaluation{State: StateUnauthenticated, Session: sess}
	}
	if p.IsApproved {
		return Evaluation{State: StateApproved, Session: sess, Profile: p}
	}
	return Evaluation{State: StatePending, Session: sess, Profile: p}
}

// Middleware enforces the route table on page requests.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.bypassed(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		cat := g.routes.Classify(r.URL.Path)
		if cat == CategoryPublic || cat == CategoryOther {
			decisionsTotal.WithLabelValues(string(cat), "unchecked", "allow").Inc()
			next.ServeHTTP(w, r)
			return
		}

		ev := g.Evaluate(w, r)
		ctx := WithEvaluation(r.Context(), ev)

		if ev.Unresolved && g.failOpen {
			decisionsTotal.WithLabelValues(string(cat), "unresolved", "allow").Inc()
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		d := Decide(cat, ev.State, r.URL)
		if !d.Allow {
			decisionsTotal.WithLabelValues(string(cat), string(ev.State), "redirect").Inc()
			http.Redirect(w, r, d.Location, http.StatusFound)
			return
		}

		decisionsTotal.WithLabelValues(string(cat), string(ev.State), "allow").Inc()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Viewer returns the evaluation stored by the middleware, evaluating on
// demand for pages the gate did not inspect.
func (g *Gate) Viewer(w http.ResponseWriter, r *http.Request) Evaluation {
	if ev, ok := FromContext(r.Context()); ok {
		return ev
	}
	return g.Evaluate(w, r)
}

func (g *Gate) bypassed(path string) bool {
	for _, prefix := range g.bypass {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

type ctxKey struct{}

// WithEvaluation stores ev on ctx.
func WithEvaluation(ctx context.Context, ev Evaluation) context.Context {
	return context.WithValue(ctx, ctxKey{}, ev)
}

// FromContext returns the evaluation stored by the middleware.
func FromContext(ctx context.Context) (Evaluation, bool) {
	ev, ok := ctx.Value(ctxKey{}).(Evaluation)
	return ev, ok
}
