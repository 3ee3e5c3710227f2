package http

import (
	"net/http"

	"github.com/mind-engage/mindengage-learn/internal/quiz"
)

// GET /api/quizzes/{quizID}
func GetQuizHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "quizID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		q, err := svc.Get(r.Context(), principal(r), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

// GET /api/subjects/{subjectID}/quizzes?type=daily
func ListQuizzesHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subjectID, err := idParam(r, "subjectID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		list, err := svc.ListBySubject(r.Context(), principal(r), subjectID, quiz.Type(r.URL.Query().Get("type")))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// POST /api/quizzes
func CreateQuizHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in quiz.NewQuiz
		if err := decodeJSON(r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		q, err := svc.Create(r.Context(), principal(r), in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, q)
	}
}

// DELETE /api/quizzes/{quizID}
func DeleteQuizHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "quizID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := svc.Delete(r.Context(), principal(r), id); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// POST /api/quizzes/{quizID}/submit
func SubmitQuizHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "quizID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		var in quiz.SubmitInput
		if err := decodeJSON(r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		res, err := svc.Submit(r.Context(), principal(r), id, in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// POST /api/answers/{answerID}/grade
func GradeAnswerHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "answerID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		var in quiz.GradeInput
		if err := decodeJSON(r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		a, err := svc.GradeAnswer(r.Context(), principal(r), id, in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// PUT /api/quizzes/{quizID}/model-answer
func UpdateModelAnswerHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "quizID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		var in quiz.ModelAnswerInput
		if err := decodeJSON(r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		if err := svc.UpdateModelAnswer(r.Context(), principal(r), id, in); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

// POST /api/quizzes/{quizID}/publish
func PublishResultsHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "quizID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := svc.PublishResults(r.Context(), principal(r), id); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"quiz_id": id, "status": quiz.StatusPublished})
	}
}

// GET /api/quizzes/{quizID}/results
func UserResultsHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "quizID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		res, err := svc.UserResults(r.Context(), principal(r), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// GET /api/quizzes/{quizID}/submissions
func ListSubmissionsHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "quizID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		list, err := svc.ListSubmissions(r.Context(), principal(r), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /api/quizzes/{quizID}/submissions/{studentID}
func SubmissionDetailsHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID, err := idParam(r, "quizID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		studentID, err := idParam(r, "studentID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		d, err := svc.SubmissionDetails(r.Context(), principal(r), quizID, studentID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}
