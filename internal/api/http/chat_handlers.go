package http

import (
	"net/http"

	"github.com/mind-engage/mindengage-learn/internal/chat"
)

// POST /api/chat/ask  { "subject_id": 1, "question": "..." }
func AskHandler(svc *chat.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in chat.AskInput
		if err := decodeJSON(r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		reply, err := svc.Ask(r.Context(), principal(r), in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, reply)
	}
}

// GET /api/chat/history?subject_id=
func ChatHistoryHandler(svc *chat.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subjectID, err := queryID(r, "subject_id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		h, err := svc.History(r.Context(), principal(r), subjectID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, h)
	}
}
