// Package http exposes the service layer as a JSON API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/mind-engage/mindengage-learn/internal/apperr"
	"github.com/mind-engage/mindengage-learn/internal/rbac"
)

type ctxKey int

const loggerKey ctxKey = iota

func withLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), loggerKey, log)))
		})
	}
}

func loggerFrom(r *http.Request) logrus.FieldLogger {
	if l, ok := r.Context().Value(loggerKey).(logrus.FieldLogger); ok {
		return l
	}
	return logrus.StandardLogger()
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error  string              `json:"error"`
	Kind   string              `json:"kind"`
	Fields []apperr.FieldError `json:"fields,omitempty"`
}

func statusFor(k apperr.Kind) int {
	switch k {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindPermissionDenied:
		return http.StatusForbidden
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindUploadFailure:
		return http.StatusBadGateway
	case apperr.KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps service errors onto status codes. Unclassified errors are
// logged and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	code := statusFor(kind)
	body := errorBody{Error: apperr.Message(err), Kind: kind.String(), Fields: apperr.FieldsOf(err)}

	log := loggerFrom(r).WithFields(logrus.Fields{
		"req_id": middleware.GetReqID(r.Context()),
		"path":   r.URL.Path,
		"kind":   kind.String(),
	})
	if code >= 500 {
		log.WithError(err).Error("request failed")
		if kind == apperr.KindUnknown {
			body.Error = "internal error"
		}
	} else {
		log.WithError(err).Debug("request rejected")
	}
	writeJSON(w, code, body)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return apperr.Validation("decode", "request body too large")
		}
		if errors.Is(err, io.EOF) {
			return apperr.Validation("decode", "request body required")
		}
		return apperr.Validation("decode", "bad json: "+err.Error())
	}
	return nil
}

func idParam(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("params", name+" must be a positive integer",
			apperr.FieldError{Field: name, Error: "invalid id"})
	}
	return id, nil
}

func queryID(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, apperr.Validation("params", name+" is required", apperr.FieldError{Field: name, Error: "required"})
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("params", name+" must be a positive integer", apperr.FieldError{Field: name, Error: "invalid id"})
	}
	return id, nil
}

// principal is always present behind JWTMiddleware.
func principal(r *http.Request) rbac.Principal {
	p, _ := rbac.PrincipalFromContext(r.Context())
	return p
}

func limitBody(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if n > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}
