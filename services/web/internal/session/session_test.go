package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volunteerverse/services/web/internal/auth"
)

type resolverFunc func(ctx context.Context, token string) (*auth.Session, error)

func (f resolverFunc) Resolve(ctx context.Context, token string) (*auth.Session, error) {
	return f(ctx, token)
}

func echoResolver() Resolver {
	return resolverFunc(func(_ context.Context, token string) (*auth.Session, error) {
		if token == "revoked" {
			return nil, auth.ErrSessionRevoked
		}
		return &auth.Session{AccessToken: token}, nil
	})
}

func TestNewManagerDefaults(t *testing.T) {
	_, err := NewManager(nil, CookieOptions{})
	assert.Error(t, err)

	m, err := NewManager(echoResolver(), CookieOptions{})
	require.NoError(t, err)
	assert.Equal(t, DefaultCookieName, m.CookieName())
}

func TestToken(t *testing.T) {
	m, err := NewManager(echoResolver(), CookieOptions{})
	require.NoError(t, err)

	tests := []struct {
		name   string
		cookie string
		header string
		want   string
		ok     bool
	}{
		{name: "none"},
		{name: "cookie", cookie: "from-cookie", want: "from-cookie", ok: true},
		{name: "bearer", header: "Bearer from-header", want: "from-header", ok: true},
		{name: "bearer lowercase", header: "bearer abc", want: "abc", ok: true},
		{name: "cookie wins", cookie: "from-cookie", header: "Bearer from-header", want: "from-cookie", ok: true},
		{name: "basic ignored", header: "Basic dXNlcjpwYXNz"},
		{name: "empty bearer", header: "Bearer  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: tt.cookie})
			}
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			got, ok := m.Token(req)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.cookie != "", m.HasCookie(req))
		})
	}
}

func TestCurrent(t *testing.T) {
	m, err := NewManager(echoResolver(), CookieOptions{})
	require.NoError(t, err)

	_, err = m.Current(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, errors.Is(err, ErrNoSession))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "tok"})
	sess, err := m.Current(req)
	require.NoError(t, err)
	assert.Equal(t, "tok", sess.AccessToken)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "revoked"})
	_, err = m.Current(req)
	assert.ErrorIs(t, err, auth.ErrSessionRevoked)
}

func TestSetAndClear(t *testing.T) {
	m, err := NewManager(echoResolver(), CookieOptions{
		Name:     "vv",
		Domain:   "volunteerverse.test",
		MaxAge:   24 * time.Hour,
		Secure:   true,
		HTTPOnly: true,
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	m.Set(rec, &auth.Session{AccessToken: "tok"})
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, "vv", c.Name)
	assert.Equal(t, "tok", c.Value)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, "volunteerverse.test", c.Domain)
	assert.Equal(t, 86400, c.MaxAge)
	assert.True(t, c.Secure)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)

	rec = httptest.NewRecorder()
	m.Clear(rec)
	cookies = rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "", cookies[0].Value)
	assert.Equal(t, -1, cookies[0].MaxAge)

	rec = httptest.NewRecorder()
	m.Set(rec, nil)
	assert.Empty(t, rec.Result().Cookies())
}
