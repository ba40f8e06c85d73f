package session

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"volunteerverse/services/web/internal/auth"
)

// DefaultCookieName is the single cookie that carries the session reference.
const DefaultCookieName = "volunteer-verse-auth"

// ErrNoSession means the request carries no session reference at all.
var ErrNoSession = errors.New("no session")

// Resolver resolves an access token into a live session.
type Resolver interface {
	Resolve(ctx context.Context, accessToken string) (*auth.Session, error)
}

// CookieOptions describes the session cookie attributes.
type CookieOptions struct {
	Name     string
	Domain   string
	MaxAge   time.Duration
	Secure   bool
	HTTPOnly bool
}

// Manager is the session cache. The cookie only references a session row held
// by the credential store, so every read re-validates against that row.
type Manager struct {
	resolver Resolver
	cookie   CookieOptions
}

// NewManager returns a Manager writing cookies with opts.
func NewManager(resolver Resolver, opts CookieOptions) (*Manager, error) {
	if resolver == nil {
		return nil, errors.New("resolver is required")
	}
	if opts.Name == "" {
		opts.Name = DefaultCookieName
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = 7 * 24 * time.Hour
	}
	return &Manager{resolver: resolver, cookie: opts}, nil
}

// CookieName returns the configured cookie name.
func (m *Manager) CookieName() string {
	return m.cookie.Name
}

// Token extracts the session reference from the cookie, falling back to an
// Authorization bearer header.
func (m *Manager) Token(r *http.Request) (string, bool) {
	if c, err := r.Cookie(m.cookie.Name); err == nil && c.Value != "" {
		return c.Value, true
	}
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") && strings.TrimSpace(token) != "" {
			return strings.TrimSpace(token), true
		}
	}
	return "", false
}

// HasCookie reports whether the request carries the session cookie.
func (m *Manager) HasCookie(r *http.Request) bool {
	c, err := r.Cookie(m.cookie.Name)
	return err == nil && c.Value != ""
}

// Current returns the session for the request. It returns ErrNoSession when
// no reference is present and the credential store error otherwise.
func (m *Manager) Current(r *http.Request) (*auth.Session, error) {
	token, ok := m.Token(r)
	if !ok {
		return nil, ErrNoSession
	}
	return m.resolver.Resolve(r.Context(), token)
}

// Set writes the session cookie.
func (m *Manager) Set(w http.ResponseWriter, sess *auth.Session) {
	if sess == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookie.Name,
		Value:    sess.AccessToken,
		Path:     "/",
		Domain:   m.cookie.Domain,
		MaxAge:   int(m.cookie.MaxAge.Seconds()),
		Secure:   m.cookie.Secure,
		HttpOnly: m.cookie.HTTPOnly,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear expires the session cookie.
func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookie.Name,
		Value:    "",
		Path:     "/",
		Domain:   m.cookie.Domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   m.cookie.Secure,
		HttpOnly: m.cookie.HTTPOnly,
		SameSite: http.SameSiteLaxMode,
	})
}
