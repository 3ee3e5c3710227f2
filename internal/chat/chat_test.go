package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mind-engage/mindengage-learn/internal/access"
	"github.com/mind-engage/mindengage-learn/internal/apperr"
	"github.com/mind-engage/mindengage-learn/internal/course"
	"github.com/mind-engage/mindengage-learn/internal/db"
	"github.com/mind-engage/mindengage-learn/internal/logging"
	"github.com/mind-engage/mindengage-learn/internal/rbac"
)

type fakeModel struct {
	answer string
	err    error
	calls  int
	system string
}

func (m *fakeModel) Complete(_ context.Context, system, _ string) (string, error) {
	m.calls++
	m.system = system
	return m.answer, m.err
}

type env struct {
	svc     *Service
	model   *fakeModel
	subject course.Subject
}

var (
	student  = rbac.Principal{UserID: 10, Role: rbac.RoleStudent}
	outsider = rbac.Principal{UserID: 11, Role: rbac.RoleStudent}
)

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	d, err := db.OpenMemory(ctx, t.Name())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	subjects := course.NewSQLStore(d)
	sub, err := subjects.InsertSubject(ctx, course.Subject{Name: "Chemistry", Curriculum: "Atoms and bonds", NumberOfDays: 10, CreatedBy: 1})
	if err != nil {
		t.Fatal(err)
	}
	gate := access.NewGate(access.NewSQLStore(d))
	if _, err := gate.Grant(ctx, access.GrantInput{StudentID: student.UserID, SubjectID: sub.ID, HasAccess: true}, 1); err != nil {
		t.Fatal(err)
	}
	m := &fakeModel{answer: "Atoms bond by sharing electrons."}
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	svc := NewService(NewSQLStore(d), subjects, gate, m,
		WithLogger(logging.Discard()),
		WithClock(func() time.Time { now = now.Add(time.Second); return now }),
	)
	return &env{svc: svc, model: m, subject: sub}
}

func TestAskStoresExchange(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	r, err := e.svc.Ask(ctx, student, AskInput{SubjectID: e.subject.ID, Question: " What is a bond? "})
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if r.Answer != "Atoms bond by sharing electrons." || r.Denied {
		t.Fatalf("unexpected reply %+v", r)
	}
	if !strings.Contains(e.model.system, "Atoms and bonds") {
		t.Fatalf("curriculum missing from system instruction: %q", e.model.system)
	}

	e.model.answer = "  "
	r, err = e.svc.Ask(ctx, student, AskInput{SubjectID: e.subject.ID, Question: "And ions?"})
	if err != nil || r.Answer != FallbackAnswer {
		t.Fatalf("expected fallback, got %+v, %v", r, err)
	}

	h, err := e.svc.History(ctx, student, e.subject.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(h) != 2 || h[0].Question != "What is a bond?" || h[1].Answer != FallbackAnswer {
		t.Fatalf("unexpected history %+v", h)
	}
}

func TestAskWithoutAccessIsRefused(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	r, err := e.svc.Ask(ctx, outsider, AskInput{SubjectID: e.subject.ID, Question: "hi"})
	if err != nil {
		t.Fatalf("denial must not be an error: %v", err)
	}
	if !r.Denied || r.Answer != DenialAnswer || e.model.calls != 0 {
		t.Fatalf("unexpected reply %+v (model calls %d)", r, e.model.calls)
	}
	h, _ := e.svc.History(ctx, outsider, e.subject.ID)
	if len(h) != 0 {
		t.Fatalf("refused question was stored")
	}
}

func TestAskErrors(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	if _, err := e.svc.Ask(ctx, student, AskInput{SubjectID: e.subject.ID, Question: "  "}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("blank question: %v", err)
	}
	if _, err := e.svc.Ask(ctx, student, AskInput{SubjectID: 999, Question: "x"}); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("unknown subject: %v", err)
	}
	e.model.err = errors.New("upstream down")
	if _, err := e.svc.Ask(ctx, student, AskInput{SubjectID: e.subject.ID, Question: "x"}); !apperr.Is(err, apperr.KindTransient) {
		t.Fatalf("model failure: %v", err)
	}
}

func TestGeminiClient(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models/gemini-test:generateContent" || r.Header.Get("x-goog-api-key") != "k" {
			http.Error(w, `{"error":{"code":404,"message":"no such model"}}`, http.StatusNotFound)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Hello "},{"text":"there"}]}}]}`))
	}))
	defer srv.Close()

	c := NewGeminiClient("k", srv.URL+"/v1beta/", "gemini-test")
	out, err := c.Complete(context.Background(), "be brief", "hi")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if out != "Hello there" {
		t.Fatalf("got %q", out)
	}
	if got.SystemInstruction == nil || got.SystemInstruction.Parts[0].Text != "be brief" || got.GenerationConfig.TopK != 64 {
		t.Fatalf("unexpected request %+v", got)
	}

	bad := NewGeminiClient("k", srv.URL+"/v1beta", "missing")
	if _, err := bad.Complete(context.Background(), "", "hi"); err == nil || !strings.Contains(err.Error(), "no such model") {
		t.Fatalf("expected model error, got %v", err)
	}
	if _, err := NewGeminiClient("", srv.URL, "m").Complete(context.Background(), "", "hi"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
