package http

import (
	"net/http"

	"github.com/mind-engage/mindengage-learn/internal/access"
)

// GET /api/permissions?student_id=
func ListPermissionsHandler(gate *access.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		studentID, err := queryID(r, "student_id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		list, err := gate.List(r.Context(), studentID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// PUT /api/permissions creates or replaces the grant for a (student, subject) pair.
func GrantPermissionHandler(gate *access.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in access.GrantInput
		if err := decodeJSON(r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		p, err := gate.Grant(r.Context(), in, principal(r).UserID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// DELETE /api/permissions/{studentID}/{subjectID}
func RevokePermissionHandler(gate *access.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		studentID, err := idParam(r, "studentID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		subjectID, err := idParam(r, "subjectID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := gate.Revoke(r.Context(), studentID, subjectID); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// GET /api/subjects/{subjectID}/access reports the caller's own access.
func MyAccessHandler(gate *access.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subjectID, err := idParam(r, "subjectID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		p := principal(r)
		ok := p.IsAdmin()
		if !ok {
			if ok, err = gate.CanAccess(r.Context(), p.UserID, subjectID); err != nil {
				writeError(w, r, err)
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"subject_id": subjectID, "has_access": ok})
	}
}
