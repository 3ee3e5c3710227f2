package http

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mindengage-learn/internal/access"
	auth "github.com/mind-engage/mindengage-learn/internal/auth/middleware"
	"github.com/mind-engage/mindengage-learn/internal/chat"
	"github.com/mind-engage/mindengage-learn/internal/course"
	"github.com/mind-engage/mindengage-learn/internal/db"
	"github.com/mind-engage/mindengage-learn/internal/logging"
	"github.com/mind-engage/mindengage-learn/internal/notify"
	"github.com/mind-engage/mindengage-learn/internal/quiz"
	"github.com/mind-engage/mindengage-learn/internal/rbac"
	"github.com/mind-engage/mindengage-learn/internal/storage"
)

const publicURL = "http://learn.test"

type echoModel struct{}

func (echoModel) Complete(_ context.Context, _, prompt string) (string, error) {
	return "answer to: " + prompt, nil
}

type server struct {
	t         *testing.T
	srv       *httptest.Server
	db        *sql.DB
	authSvc   *auth.AuthService
	admin     string
	student   string
	outsider  string
	studentID int64
}

func newServer(t *testing.T) *server {
	t.Helper()
	ctx := context.Background()
	d, err := db.OpenMemory(ctx, t.Name())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	log := logging.Discard()
	blobs, err := storage.NewFSStore(t.TempDir(), publicURL)
	if err != nil {
		t.Fatal(err)
	}
	users := auth.NewUserStore(d)
	gate := access.NewGate(access.NewSQLStore(d))
	subjects := course.NewSQLStore(d)
	notes := notify.NewRepo(d)
	authSvc := auth.NewAuthService("test-secret", time.Hour)

	r := chi.NewRouter()
	Mount(r, Deps{
		Auth:            authSvc,
		Users:           users,
		Courses:         course.NewService(subjects, gate, log),
		Quizzes:         quiz.NewService(quiz.NewSQLStore(d), subjects, gate, blobs, quiz.WithNotifier(notes), quiz.WithLogger(log)),
		Access:          gate,
		Chat:            chat.NewService(chat.NewSQLStore(d), subjects, gate, echoModel{}, chat.WithLogger(log)),
		Notes:           notes,
		Blobs:           blobs,
		DB:              d,
		Log:             log,
		EnableLocalAuth: true,
		MaxImageBytes:   1 << 20,
		MaxBodyBytes:    8 << 20,
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	s := &server{t: t, srv: srv, db: d, authSvc: authSvc}
	hash, _ := bcrypt.GenerateFromPassword([]byte("admin-password"), bcrypt.MinCost)
	if _, err := users.EnsureAdmin(ctx, "admin@learn.test", string(hash)); err != nil {
		t.Fatal(err)
	}
	s.admin = s.login("admin@learn.test", "admin-password")
	s.studentID, s.student = s.addStudent("student@learn.test")
	_, s.outsider = s.addStudent("outsider@learn.test")
	return s
}

func (s *server) addStudent(email string) (int64, string) {
	s.t.Helper()
	var id int64
	err := s.db.QueryRow(`INSERT INTO users (email, name, role, password_hash, created_at) VALUES ($1,$2,'student','x',0) RETURNING id`,
		email, "Student").Scan(&id)
	if err != nil {
		s.t.Fatal(err)
	}
	tok, err := s.authSvc.IssueJWT(id, rbac.RoleStudent)
	if err != nil {
		s.t.Fatal(err)
	}
	return id, tok
}

func (s *server) login(email, password string) string {
	s.t.Helper()
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if code := s.do("", http.MethodPost, "/auth/login", map[string]string{"email": email, "password": password}, &out); code != http.StatusOK {
		s.t.Fatalf("login: status %d", code)
	}
	return out.AccessToken
}

func (s *server) do(token, method, path string, body, out any) int {
	s.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			s.t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.srv.URL+path, rd)
	if err != nil {
		s.t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		s.t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		raw, _ := io.ReadAll(resp.Body)
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, out); err != nil {
				s.t.Fatalf("%s %s: decode %q: %v", method, path, raw, err)
			}
		}
	}
	return resp.StatusCode
}

func (s *server) subject(name string) int64 {
	s.t.Helper()
	var sub course.Subject
	if code := s.do(s.admin, http.MethodPost, "/api/subjects", map[string]any{"name": name, "curriculum": "basics", "number_of_days": 5}, &sub); code != http.StatusCreated {
		s.t.Fatalf("create subject: %d", code)
	}
	return sub.ID
}

func (s *server) grant(studentID, subjectID int64) {
	s.t.Helper()
	if code := s.do(s.admin, http.MethodPut, "/api/permissions", map[string]any{"student_id": studentID, "subject_id": subjectID, "has_access": true}, nil); code != http.StatusOK {
		s.t.Fatalf("grant: %d", code)
	}
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	if code := s.do("", http.MethodGet, "/healthz", nil, nil); code != http.StatusOK {
		t.Fatalf("healthz: %d", code)
	}
	if code := s.do("", http.MethodGet, "/readyz", nil, nil); code != http.StatusOK {
		t.Fatalf("readyz: %d", code)
	}
}

func TestAuthRequired(t *testing.T) {
	s := newServer(t)
	if code := s.do("", http.MethodGet, "/api/subjects", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
	if code := s.do("not-a-token", http.MethodGet, "/api/subjects", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
	var me auth.User
	if code := s.do(s.admin, http.MethodGet, "/api/me", nil, &me); code != http.StatusOK || me.Role != rbac.RoleAdmin {
		t.Fatalf("me: %d %+v", code, me)
	}
}

func TestStudentCannotGradeOrPublish(t *testing.T) {
	s := newServer(t)
	var body errorBody
	code := s.do(s.student, http.MethodPost, "/api/answers/1/grade", map[string]any{"score": 1}, &body)
	if code != http.StatusForbidden || body.Kind != "permission_denied" {
		t.Fatalf("grade: %d %+v", code, body)
	}
	if code := s.do(s.student, http.MethodPost, "/api/quizzes/1/publish", nil, nil); code != http.StatusForbidden {
		t.Fatalf("publish: %d", code)
	}
	if code := s.do(s.student, http.MethodPost, "/api/subjects", map[string]any{"name": "x"}, nil); code != http.StatusForbidden {
		t.Fatalf("create subject: %d", code)
	}
}

func TestQuizLifecycle(t *testing.T) {
	s := newServer(t)
	subjectID := s.subject("Biology")
	s.grant(s.studentID, subjectID)

	var created quiz.FullQuiz
	code := s.do(s.admin, http.MethodPost, "/api/quizzes", map[string]any{
		"subject_id": subjectID,
		"title":      "Cells",
		"type":       "semester",
		"questions": []map[string]any{
			{"question": "Describe a cell", "question_type": "essay"},
			{"question": "Powerhouse?", "question_type": "multiple_choice", "options": []map[string]any{
				{"text": "Mitochondria", "is_correct": true}, {"text": "Nucleus"},
			}},
		},
	}, &created)
	if code != http.StatusCreated {
		t.Fatalf("create quiz: %d", code)
	}
	quizPath := fmt.Sprintf("/api/quizzes/%d", created.ID)

	var view map[string]any
	if code := s.do(s.student, http.MethodGet, quizPath, nil, &view); code != http.StatusOK {
		t.Fatalf("get quiz: %d", code)
	}
	raw, _ := json.Marshal(view)
	if strings.Contains(string(raw), "is_correct") {
		t.Fatalf("student view leaks is_correct: %s", raw)
	}
	if code := s.do(s.outsider, http.MethodGet, quizPath, nil, nil); code != http.StatusForbidden {
		t.Fatalf("outsider get: %d", code)
	}

	essay, mc := created.Questions[0], created.Questions[1]
	var res quiz.SubmissionResult
	code = s.do(s.student, http.MethodPost, quizPath+"/submit", map[string]any{"answers": []map[string]any{
		{"question_id": essay.ID, "text_answer": "It is the unit of life", "image_url": "file:///sdcard/cell.jpg"},
		{"question_id": mc.ID, "selected_option_id": mc.Options[0].ID},
	}}, &res)
	if code != http.StatusOK || res.Status != quiz.StatusPendingManualGrading || len(res.Warnings) != 1 {
		t.Fatalf("submit: %d %+v", code, res)
	}
	if code := s.do(s.student, http.MethodPost, quizPath+"/submit", map[string]any{"answers": []map[string]any{{"question_id": mc.ID}}}, nil); code != http.StatusConflict {
		t.Fatalf("resubmit: %d", code)
	}

	var results quiz.Results
	if code := s.do(s.student, http.MethodGet, quizPath+"/results", nil, &results); code != http.StatusOK || results.Status != quiz.StatusNotPublished {
		t.Fatalf("results before publish: %d %+v", code, results)
	}

	var detail quiz.SubmissionDetail
	if code := s.do(s.admin, http.MethodGet, fmt.Sprintf("%s/submissions/%d", quizPath, s.studentID), nil, &detail); code != http.StatusOK {
		t.Fatalf("details: %d", code)
	}
	var pendingID int64
	for _, a := range detail.Answers {
		if a.Score == nil {
			pendingID = a.ID
		}
	}
	if code := s.do(s.admin, http.MethodPost, fmt.Sprintf("/api/answers/%d/grade", pendingID), map[string]any{"score": 1, "feedback": "good"}, nil); code != http.StatusOK {
		t.Fatalf("grade: %d", code)
	}
	if code := s.do(s.admin, http.MethodPost, quizPath+"/publish", nil, nil); code != http.StatusOK {
		t.Fatalf("publish: %d", code)
	}

	if code := s.do(s.student, http.MethodGet, quizPath+"/results", nil, &results); code != http.StatusOK {
		t.Fatalf("results: %d", code)
	}
	if results.Status != quiz.StatusPublished || results.Published == nil || *results.Score != 100 {
		t.Fatalf("unexpected results %+v", results)
	}

	var notes []notify.Notification
	if code := s.do(s.student, http.MethodGet, "/api/notifications?unread=true", nil, &notes); code != http.StatusOK || len(notes) != 2 {
		t.Fatalf("notifications: %d %d", code, len(notes))
	}
	if code := s.do(s.student, http.MethodPost, fmt.Sprintf("/api/notifications/%d/read", notes[0].ID), nil, nil); code != http.StatusOK {
		t.Fatalf("mark read: %d", code)
	}
}

func TestSubmitBadRequests(t *testing.T) {
	s := newServer(t)
	req, _ := http.NewRequest(http.MethodPost, s.srv.URL+"/api/quizzes/1/submit", strings.NewReader("{not json"))
	req.Header.Set("Authorization", "Bearer "+s.student)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad json: %d", resp.StatusCode)
	}
	if code := s.do(s.student, http.MethodGet, "/api/quizzes/abc", nil, nil); code != http.StatusBadRequest {
		t.Fatalf("bad id: %d", code)
	}
	if code := s.do(s.student, http.MethodGet, "/api/quizzes/999", nil, nil); code != http.StatusNotFound {
		t.Fatalf("missing quiz: %d", code)
	}
}

func TestUploadAndServeAsset(t *testing.T) {
	s := newServer(t)
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	var up struct {
		URL string `json:"url"`
	}
	code := s.do(s.student, http.MethodPost, "/api/uploads", map[string]string{"data": base64.StdEncoding.EncodeToString(png)}, &up)
	if code != http.StatusCreated || !strings.HasPrefix(up.URL, publicURL+"/assets/answers/") {
		t.Fatalf("upload: %d %q", code, up.URL)
	}

	resp, err := http.Get(s.srv.URL + strings.TrimPrefix(up.URL, publicURL))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	got, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !bytes.Equal(got, png) || resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("asset: %d %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}

	if code := s.do(s.student, http.MethodPost, "/api/uploads", map[string]string{"data": base64.StdEncoding.EncodeToString([]byte("plain text"))}, nil); code != http.StatusBadRequest {
		t.Fatalf("non-image upload: %d", code)
	}
	if code := s.do("", http.MethodGet, "/assets/answers/../../etc/passwd", nil, nil); code != http.StatusNotFound {
		t.Fatalf("traversal: %d", code)
	}
}

func TestChat(t *testing.T) {
	s := newServer(t)
	subjectID := s.subject("History")
	s.grant(s.studentID, subjectID)

	var reply chat.Reply
	if code := s.do(s.student, http.MethodPost, "/api/chat/ask", map[string]any{"subject_id": subjectID, "question": "Who?"}, &reply); code != http.StatusOK || reply.Answer != "answer to: Who?" {
		t.Fatalf("ask: %d %+v", code, reply)
	}
	if code := s.do(s.outsider, http.MethodPost, "/api/chat/ask", map[string]any{"subject_id": subjectID, "question": "Who?"}, &reply); code != http.StatusOK || !reply.Denied {
		t.Fatalf("outsider ask: %d %+v", code, reply)
	}
	var history []chat.Message
	if code := s.do(s.student, http.MethodGet, fmt.Sprintf("/api/chat/history?subject_id=%d", subjectID), nil, &history); code != http.StatusOK || len(history) != 1 {
		t.Fatalf("history: %d %d", code, len(history))
	}
}

func TestAccessEndpoints(t *testing.T) {
	s := newServer(t)
	subjectID := s.subject("Art")

	var mine map[string]any
	path := fmt.Sprintf("/api/subjects/%d/access", subjectID)
	if code := s.do(s.student, http.MethodGet, path, nil, &mine); code != http.StatusOK || mine["has_access"] != false {
		t.Fatalf("access before grant: %d %v", code, mine)
	}
	s.grant(s.studentID, subjectID)
	if s.do(s.student, http.MethodGet, path, nil, &mine); mine["has_access"] != true {
		t.Fatalf("access after grant: %v", mine)
	}

	var list []access.Permission
	if code := s.do(s.admin, http.MethodGet, fmt.Sprintf("/api/permissions?student_id=%d", s.studentID), nil, &list); code != http.StatusOK || len(list) != 1 {
		t.Fatalf("list: %d %+v", code, list)
	}
	if code := s.do(s.admin, http.MethodDelete, fmt.Sprintf("/api/permissions/%d/%d", s.studentID, subjectID), nil, nil); code != http.StatusNoContent {
		t.Fatalf("revoke: %d", code)
	}
	if code := s.do(s.student, http.MethodGet, fmt.Sprintf("/api/subjects/%d/quizzes", subjectID), nil, nil); code != http.StatusForbidden {
		t.Fatalf("quizzes after revoke: %d", code)
	}
}
