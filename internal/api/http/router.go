package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/mind-engage/mindengage-learn/internal/access"
	googleauth "github.com/mind-engage/mindengage-learn/internal/auth"
	auth "github.com/mind-engage/mindengage-learn/internal/auth/middleware"
	"github.com/mind-engage/mindengage-learn/internal/chat"
	"github.com/mind-engage/mindengage-learn/internal/course"
	"github.com/mind-engage/mindengage-learn/internal/notify"
	"github.com/mind-engage/mindengage-learn/internal/quiz"
	"github.com/mind-engage/mindengage-learn/internal/rbac"
	"github.com/mind-engage/mindengage-learn/internal/storage"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Deps struct {
	Auth    *auth.AuthService
	Users   *auth.UserStore
	Courses *course.Service
	Quizzes *quiz.Service
	Access  *access.Gate
	Chat    *chat.Service
	Notes   *notify.Repo
	Blobs   storage.BlobStore
	DB      Pinger
	Log     logrus.FieldLogger
	Google  *googleauth.GoogleLogin // nil disables Google sign-in

	EnableLocalAuth bool
	MaxImageBytes   int64
	// MaxBodyBytes caps JSON bodies; submissions carry inline images.
	MaxBodyBytes int64
}

// Mount registers every route on r. Each protected route is gated by exactly
// one rbac.Require against rbac.RolePermissions.
func Mount(r chi.Router, d Deps) {
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	r.Use(withLogger(d.Log))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := d.DB.PingContext(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "db unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	if d.EnableLocalAuth {
		r.Post("/auth/login", auth.LoginHandler(d.Auth, d.Users))
	}
	if d.Google != nil {
		r.Get("/auth/google/login", d.Google.LoginHandler())
		r.Get("/auth/google/callback", d.Google.CallbackHandler())
	}

	// blob keys are unguessable; answer images are linked from results
	r.Route("/assets", func(ar chi.Router) {
		MountAssets(ar, d.Blobs)
	})

	// Protected API (JWT → role from DB → RBAC)
	r.Route("/api", func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(d.Auth), auth.AttachRoleFromDB(d.Users), limitBody(d.MaxBodyBytes))

		pr.Get("/me", MeHandler(d.Users))
		pr.With(rbac.Require("users:manage")).Post("/users", CreateUserHandler(d.Users))
		pr.With(rbac.Require("users:manage")).Get("/users", ListUsersHandler(d.Users))

		// Subjects & lessons
		pr.With(rbac.Require("subject:view")).Get("/subjects", ListSubjectsHandler(d.Courses))
		pr.With(rbac.Require("subject:manage")).Post("/subjects", CreateSubjectHandler(d.Courses))
		pr.With(rbac.Require("subject:view")).Get("/subjects/{subjectID}", GetSubjectHandler(d.Courses))
		pr.With(rbac.Require("subject:manage")).Put("/subjects/{subjectID}", UpdateSubjectHandler(d.Courses))
		pr.With(rbac.Require("subject:manage")).Delete("/subjects/{subjectID}", DeleteSubjectHandler(d.Courses))
		pr.With(rbac.Require("lesson:view")).Get("/subjects/{subjectID}/lessons", ListLessonsHandler(d.Courses))
		pr.With(rbac.Require("lesson:view")).Get("/subjects/{subjectID}/progress", ProgressHandler(d.Courses))
		pr.With(rbac.Require("quiz:view")).Get("/subjects/{subjectID}/quizzes", ListQuizzesHandler(d.Quizzes))
		pr.With(rbac.Require("access:view-own")).Get("/subjects/{subjectID}/access", MyAccessHandler(d.Access))

		pr.With(rbac.Require("lesson:manage")).Post("/lessons", CreateLessonHandler(d.Courses))
		pr.With(rbac.Require("lesson:view")).Get("/lessons/{lessonID}", GetLessonHandler(d.Courses))
		pr.With(rbac.Require("lesson:manage")).Put("/lessons/{lessonID}", UpdateLessonHandler(d.Courses))
		pr.With(rbac.Require("lesson:manage")).Delete("/lessons/{lessonID}", DeleteLessonHandler(d.Courses))
		pr.With(rbac.Require("lesson:complete")).Post("/lessons/{lessonID}/complete", CompleteLessonHandler(d.Courses))

		// Quizzes: student flow
		pr.With(rbac.Require("quiz:view")).Get("/quizzes/{quizID}", GetQuizHandler(d.Quizzes))
		pr.With(rbac.Require("quiz:submit")).Post("/quizzes/{quizID}/submit", SubmitQuizHandler(d.Quizzes))
		pr.With(rbac.Require("result:view-own")).Get("/quizzes/{quizID}/results", UserResultsHandler(d.Quizzes))

		// Quizzes: authoring & grading
		pr.With(rbac.Require("quiz:manage")).Post("/quizzes", CreateQuizHandler(d.Quizzes))
		pr.With(rbac.Require("quiz:manage")).Delete("/quizzes/{quizID}", DeleteQuizHandler(d.Quizzes))
		pr.With(rbac.Require("quiz:manage")).Put("/quizzes/{quizID}/model-answer", UpdateModelAnswerHandler(d.Quizzes))
		pr.With(rbac.Require("quiz:publish")).Post("/quizzes/{quizID}/publish", PublishResultsHandler(d.Quizzes))
		pr.With(rbac.Require("answer:grade")).Get("/quizzes/{quizID}/submissions", ListSubmissionsHandler(d.Quizzes))
		pr.With(rbac.Require("answer:grade")).Get("/quizzes/{quizID}/submissions/{studentID}", SubmissionDetailsHandler(d.Quizzes))
		pr.With(rbac.Require("answer:grade")).Post("/answers/{answerID}/grade", GradeAnswerHandler(d.Quizzes))

		// Access permissions
		pr.With(rbac.Require("access:manage")).Get("/permissions", ListPermissionsHandler(d.Access))
		pr.With(rbac.Require("access:manage")).Put("/permissions", GrantPermissionHandler(d.Access))
		pr.With(rbac.Require("access:manage")).Delete("/permissions/{studentID}/{subjectID}", RevokePermissionHandler(d.Access))

		pr.With(rbac.Require("chat:ask")).Post("/chat/ask", AskHandler(d.Chat))
		pr.With(rbac.Require("chat:ask")).Get("/chat/history", ChatHistoryHandler(d.Chat))

		pr.With(rbac.Require("notification:own")).Get("/notifications", ListNotificationsHandler(d.Notes))
		pr.With(rbac.Require("notification:own")).Post("/notifications/{notificationID}/read", MarkNotificationReadHandler(d.Notes))

		pr.With(rbac.Require("upload:create")).Post("/uploads", UploadImageHandler(d.Blobs, d.MaxImageBytes))
	})
}
