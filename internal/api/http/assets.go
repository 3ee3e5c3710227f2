package http

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-learn/internal/apperr"
	"github.com/mind-engage/mindengage-learn/internal/storage"
)

// POST /api/uploads  { "data": "<base64>", "content_type": "image/png" }
func UploadImageHandler(bs storage.BlobStore, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in storage.ImageUpload
		if err := decodeJSON(r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		data, contentType, err := in.Decode(maxBytes)
		if err != nil {
			writeError(w, r, apperr.Validation("upload", err.Error(), apperr.FieldError{Field: "data", Error: err.Error()}))
			return
		}
		url, err := bs.Put(r.Context(), data, contentType)
		if err != nil {
			writeError(w, r, apperr.Upload("upload", err))
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"url": url, "content_type": contentType, "size": len(data)})
	}
}

// MountAssets serves stored blobs: GET /assets/* returns whatever follows /assets/.
func MountAssets(r chi.Router, bs storage.BlobStore) {
	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
		rc, contentType, err := bs.Get(r.Context(), key)
		switch {
		case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrInvalidKey):
			writeError(w, r, apperr.NotFound("assets.get", "asset not found"))
			return
		case err != nil:
			writeError(w, r, err)
			return
		}
		defer rc.Close()
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "private, max-age=86400")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		_, _ = io.Copy(w, rc)
	})
}
