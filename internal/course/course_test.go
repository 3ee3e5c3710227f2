package course

import (
	"context"
	"testing"

	"github.com/mind-engage/mindengage-learn/internal/access"
	"github.com/mind-engage/mindengage-learn/internal/apperr"
	"github.com/mind-engage/mindengage-learn/internal/db"
	"github.com/mind-engage/mindengage-learn/internal/logging"
	"github.com/mind-engage/mindengage-learn/internal/rbac"
)

var (
	admin   = rbac.Principal{UserID: 1, Role: rbac.RoleAdmin}
	student = rbac.Principal{UserID: 2, Role: rbac.RoleStudent}
)

func newService(t *testing.T) (*Service, *access.Gate) {
	t.Helper()
	d, err := db.OpenMemory(context.Background(), t.Name())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	gate := access.NewGate(access.NewSQLStore(d))
	return NewService(NewSQLStore(d), gate, logging.Discard()), gate
}

func TestSubjectDefaultsAndValidation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	sub, err := svc.CreateSubject(ctx, admin, SubjectInput{Name: "  Biology "})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sub.NumberOfDays != 30 || sub.Name != "Biology" {
		t.Fatalf("unexpected subject %+v", sub)
	}
	if _, err := svc.CreateSubject(ctx, admin, SubjectInput{Name: ""}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.CreateLesson(ctx, admin, LessonInput{SubjectID: sub.ID, Title: "Day 31", Content: "x", DayNumber: 31}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected day range validation, got %v", err)
	}
}

func TestStudentGating(t *testing.T) {
	svc, gate := newService(t)
	ctx := context.Background()

	open, _ := svc.CreateSubject(ctx, admin, SubjectInput{Name: "Open"})
	closed, _ := svc.CreateSubject(ctx, admin, SubjectInput{Name: "Closed"})
	if _, err := gate.Grant(ctx, access.GrantInput{StudentID: student.UserID, SubjectID: open.ID, HasAccess: true}, admin.UserID); err != nil {
		t.Fatal(err)
	}
	lesson, err := svc.CreateLesson(ctx, admin, LessonInput{SubjectID: closed.ID, Title: "Intro", Content: "c", DayNumber: 1})
	if err != nil {
		t.Fatal(err)
	}

	subs, err := svc.ListSubjects(ctx, student)
	if err != nil || len(subs) != 1 || subs[0].ID != open.ID {
		t.Fatalf("student subjects = %+v, %v", subs, err)
	}
	all, _ := svc.ListSubjects(ctx, admin)
	if len(all) != 2 {
		t.Fatalf("admin should see all subjects, got %d", len(all))
	}

	if _, err := svc.ListLessons(ctx, student, closed.ID); !apperr.Is(err, apperr.KindPermissionDenied) {
		t.Fatalf("expected denial, got %v", err)
	}
	if _, err := svc.GetLesson(ctx, student, lesson.ID); !apperr.Is(err, apperr.KindPermissionDenied) {
		t.Fatalf("expected denial, got %v", err)
	}
	if _, err := svc.ListLessons(ctx, student, 999); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestProgress(t *testing.T) {
	svc, gate := newService(t)
	ctx := context.Background()

	sub, _ := svc.CreateSubject(ctx, admin, SubjectInput{Name: "Chem", NumberOfDays: 3})
	_, _ = gate.Grant(ctx, access.GrantInput{StudentID: student.UserID, SubjectID: sub.ID, HasAccess: true}, admin.UserID)
	var ids []int64
	for day := 1; day <= 3; day++ {
		l, err := svc.CreateLesson(ctx, admin, LessonInput{SubjectID: sub.ID, Title: "L", Content: "c", DayNumber: day})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, l.ID)
	}

	for i := 0; i < 2; i++ { // completing twice is a no-op
		if err := svc.CompleteLesson(ctx, student, ids[0]); err != nil {
			t.Fatalf("complete: %v", err)
		}
	}
	pr, err := svc.Progress(ctx, student, sub.ID)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if pr.Completed != 1 || pr.TotalLessons != 3 || pr.Percent != 33 {
		t.Fatalf("unexpected progress %+v", pr)
	}
}

func TestDeleteSubjectCascades(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	sub, _ := svc.CreateSubject(ctx, admin, SubjectInput{Name: "Tmp"})
	l, _ := svc.CreateLesson(ctx, admin, LessonInput{SubjectID: sub.ID, Title: "L", Content: "c", DayNumber: 1})

	if err := svc.DeleteSubject(ctx, sub.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.GetLesson(ctx, admin, l.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("lesson should be gone, got %v", err)
	}
	if err := svc.DeleteSubject(ctx, sub.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("second delete should be not found, got %v", err)
	}
}
