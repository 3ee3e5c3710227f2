package http

import (
	"net/http"

	"github.com/mind-engage/mindengage-learn/internal/course"
)

func ListSubjectsHandler(svc *course.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListSubjects(r.Context(), principal(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func GetSubjectHandler(svc *course.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "subjectID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		sub, err := svc.GetSubject(r.Context(), principal(r), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sub)
	}
}

func CreateSubjectHandler(svc *course.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in course.SubjectInput
		if err := decodeJSON(r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		sub, err := svc.CreateSubject(r.Context(), principal(r), in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, sub)
	}
}

func UpdateSubjectHandler(svc *course.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "subjectID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		var in course.SubjectInput
		if err := decodeJSON(r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		sub, err := svc.UpdateSubject(r.Context(), id, in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sub)
	}
}

func DeleteSubjectHandler(svc *course.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "subjectID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := svc.DeleteSubject(r.Context(), id); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// GET /api/subjects/{subjectID}/lessons
func ListLessonsHandler(svc *course.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "subjectID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		list, err := svc.ListLessons(r.Context(), principal(r), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func GetLessonHandler(svc *course.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "lessonID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		l, err := svc.GetLesson(r.Context(), principal(r), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, l)
	}
}

func CreateLessonHandler(svc *course.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in course.LessonInput
		if err := decodeJSON(r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		l, err := svc.CreateLesson(r.Context(), principal(r), in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, l)
	}
}

func UpdateLessonHandler(svc *course.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "lessonID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		var in course.LessonInput
		if err := decodeJSON(r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		l, err := svc.UpdateLesson(r.Context(), id, in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, l)
	}
}

func DeleteLessonHandler(svc *course.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "lessonID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := svc.DeleteLesson(r.Context(), id); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// POST /api/lessons/{lessonID}/complete
func CompleteLessonHandler(svc *course.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "lessonID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := svc.CompleteLesson(r.Context(), principal(r), id); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"lesson_id": id, "completed": true})
	}
}

// GET /api/subjects/{subjectID}/progress
func ProgressHandler(svc *course.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "subjectID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		p, err := svc.Progress(r.Context(), principal(r), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}
