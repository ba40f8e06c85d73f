package handlers

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volunteerverse/services/web/internal/models"
)

func TestUpload(t *testing.T) {
	h := newHarness(t)
	u := h.mem.AddUser(t, "org@example.org", password, models.RoleNGO, true)
	sess := h.login(t, "org@example.org")

	rec := h.do(t, http.MethodPost, "/api/uploads", map[string]string{"kind": "ngo-logo", "filename": "Logo.PNG"}, sess)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decode[map[string]any](t, rec)
	key, _ := resp["key"].(string)
	assert.True(t, strings.HasPrefix(key, "ngo-logo/"+u.ID.String()+"/"), key)
	assert.True(t, strings.HasSuffix(key, ".png"), key)
	assert.Equal(t, "image/png", resp["content_type"])
	assert.Contains(t, resp["upload_url"], "X-Amz-Signature")
	assert.NotEmpty(t, resp["expires_at"])

	assert.Equal(t, "volunteerverse-media", h.media.bucket)
	assert.Equal(t, key, h.media.key)
	assert.Equal(t, defaultUploadTTL, h.media.ttl)
}

func TestUploadRejects(t *testing.T) {
	h := newHarness(t)
	h.mem.AddUser(t, "org@example.org", password, models.RoleNGO, true)
	sess := h.login(t, "org@example.org")

	tests := []struct {
		name   string
		body   map[string]string
		status int
	}{
		{name: "unknown kind", body: map[string]string{"kind": "avatar", "filename": "me.png"}, status: http.StatusBadRequest},
		{name: "not an image", body: map[string]string{"kind": "event-image", "filename": "notes.pdf"}, status: http.StatusBadRequest},
		{name: "no extension", body: map[string]string{"kind": "event-image", "filename": "image"}, status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.do(t, http.MethodPost, "/api/uploads", tt.body, sess)
			assert.Equal(t, tt.status, rec.Code)
		})
	}

	rec := h.do(t, http.MethodPost, "/api/uploads", map[string]string{"kind": "event-image", "filename": "a.jpg"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	h.media.err = errors.New("signer offline")
	rec = h.do(t, http.MethodPost, "/api/uploads", map[string]string{"kind": "event-image", "filename": "a.jpg"}, sess)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestUploadWithoutMediaStorage(t *testing.T) {
	h := newHarness(t, withoutMedia())
	h.mem.AddUser(t, "org@example.org", password, models.RoleNGO, true)
	sess := h.login(t, "org@example.org")

	rec := h.do(t, http.MethodPost, "/api/uploads", map[string]string{"kind": "ngo-logo", "filename": "logo.png"}, sess)
	assert.Equal(t, http.StatusFailedDependency, rec.Code)
}
