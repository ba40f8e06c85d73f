package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

var uploadKinds = map[string]bool{
	"ngo-logo":      true,
	"event-image":   true,
	"profile-image": true,
}

var imageExtensions = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
}

func (a *API) handleUpload(w http.ResponseWriter, r *http.Request) {
	if a.media == nil {
		respondError(w, http.StatusFailedDependency, errors.New("media storage not configured"))
		return
	}
	c, ok := requireProfile(w, r)
	if !ok {
		return
	}

	var req struct {
		Kind     string `json:"kind"`
		Filename string `json:"filename"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	req.Kind = strings.TrimSpace(req.Kind)
	if !uploadKinds[req.Kind] {
		respondError(w, http.StatusBadRequest, fmt.Errorf("unknown upload kind %q", req.Kind))
		return
	}
	ext := strings.ToLower(path.Ext(strings.TrimSpace(req.Filename)))
	contentType, ok := imageExtensions[ext]
	if !ok {
		respondError(w, http.StatusBadRequest, errors.New("filename must be a png, jpg, gif, webp or svg image"))
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	key := fmt.Sprintf("%s/%s/%s%s", req.Kind, c.Session.UserID, uuid.New(), ext)
	ttl := a.config.MediaUploadTTL
	expiresAt := time.Now().UTC().Add(ttl)

	uploadURL, err := a.media.PresignPut(ctx, a.config.MediaBucket, key, contentType, ttl)
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Errorf("presign put: %w", err))
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"key":          key,
		"upload_url":   uploadURL,
		"content_type": contentType,
		"expires_at":   expiresAt,
	})
}
