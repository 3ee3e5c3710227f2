package http

import (
	"net/http"
	"strconv"

	"github.com/mind-engage/mindengage-learn/internal/notify"
)

// GET /api/notifications?unread=true
func ListNotificationsHandler(repo *notify.Repo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		unread, _ := strconv.ParseBool(r.URL.Query().Get("unread"))
		list, err := repo.ListForUser(r.Context(), principal(r).UserID, unread)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// POST /api/notifications/{notificationID}/read
func MarkNotificationReadHandler(repo *notify.Repo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "notificationID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := repo.MarkRead(r.Context(), principal(r).UserID, id); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "is_read": true})
	}
}
