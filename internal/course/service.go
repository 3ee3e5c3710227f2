package course

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mind-engage/mindengage-learn/internal/apperr"
	"github.com/mind-engage/mindengage-learn/internal/grading"
	"github.com/mind-engage/mindengage-learn/internal/rbac"
	"github.com/mind-engage/mindengage-learn/internal/validate"
)

const defaultDays = 30

// AccessChecker is satisfied by *access.Gate.
type AccessChecker interface {
	CanAccess(ctx context.Context, studentID, subjectID int64) (bool, error)
}

type Service struct {
	store Store
	gate  AccessChecker
	log   logrus.FieldLogger
	now   func() time.Time
}

func NewService(store Store, gate AccessChecker, log logrus.FieldLogger) *Service {
	return &Service{store: store, gate: gate, log: log, now: time.Now}
}

// Authorize fails with PermissionDenied when a student has no active access
// to the subject. Admins always pass.
func (s *Service) Authorize(ctx context.Context, p rbac.Principal, subjectID int64) error {
	if p.IsAdmin() {
		return nil
	}
	ok, err := s.gate.CanAccess(ctx, p.UserID, subjectID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Denied("course.authorize", "you do not have access to this subject")
	}
	return nil
}

// ---- subjects ----

func (s *Service) CreateSubject(ctx context.Context, p rbac.Principal, in SubjectInput) (Subject, error) {
	if err := validate.Struct("course.create_subject", in); err != nil {
		return Subject{}, err
	}
	now := s.now().UTC().Truncate(time.Second)
	sub := Subject{CreatedBy: p.UserID, CreatedAt: now, UpdatedAt: now}
	applySubject(&sub, in)
	out, err := s.store.InsertSubject(ctx, sub)
	if err != nil {
		return Subject{}, err
	}
	s.log.WithFields(logrus.Fields{"subject_id": out.ID, "by": p.UserID}).Info("subject created")
	return out, nil
}

func (s *Service) UpdateSubject(ctx context.Context, id int64, in SubjectInput) (Subject, error) {
	if err := validate.Struct("course.update_subject", in); err != nil {
		return Subject{}, err
	}
	sub, err := s.store.GetSubject(ctx, id)
	if err != nil {
		return Subject{}, err
	}
	applySubject(&sub, in)
	sub.UpdatedAt = s.now().UTC().Truncate(time.Second)
	if err := s.store.UpdateSubject(ctx, sub); err != nil {
		return Subject{}, err
	}
	return sub, nil
}

func applySubject(sub *Subject, in SubjectInput) {
	sub.Name = strings.TrimSpace(in.Name)
	sub.Description = in.Description
	sub.Curriculum = in.Curriculum
	sub.CurriculumURL = in.CurriculumURL
	sub.NumberOfDays = in.NumberOfDays
	if sub.NumberOfDays == 0 {
		sub.NumberOfDays = defaultDays
	}
}

func (s *Service) DeleteSubject(ctx context.Context, id int64) error {
	if err := s.store.DeleteSubject(ctx, id); err != nil {
		return err
	}
	s.log.WithField("subject_id", id).Info("subject deleted")
	return nil
}

func (s *Service) GetSubject(ctx context.Context, p rbac.Principal, id int64) (Subject, error) {
	sub, err := s.store.GetSubject(ctx, id)
	if err != nil {
		return Subject{}, err
	}
	if err := s.Authorize(ctx, p, id); err != nil {
		return Subject{}, err
	}
	return sub, nil
}

// ListSubjects returns every subject for admins and only the accessible ones
// for students.
func (s *Service) ListSubjects(ctx context.Context, p rbac.Principal) ([]Subject, error) {
	all, err := s.store.ListSubjects(ctx)
	if err != nil || p.IsAdmin() {
		return all, err
	}
	out := make([]Subject, 0, len(all))
	for _, sub := range all {
		ok, err := s.gate.CanAccess(ctx, p.UserID, sub.ID)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, sub)
		}
	}
	return out, nil
}

// ---- lessons ----

func (s *Service) CreateLesson(ctx context.Context, p rbac.Principal, in LessonInput) (Lesson, error) {
	const op = "course.create_lesson"
	if err := validate.Struct(op, in); err != nil {
		return Lesson{}, err
	}
	sub, err := s.store.GetSubject(ctx, in.SubjectID)
	if err != nil {
		return Lesson{}, err
	}
	if err := checkDay(op, sub, in.DayNumber); err != nil {
		return Lesson{}, err
	}
	now := s.now().UTC().Truncate(time.Second)
	l := Lesson{SubjectID: in.SubjectID, CreatedBy: p.UserID, CreatedAt: now, UpdatedAt: now}
	applyLesson(&l, in)
	return s.store.InsertLesson(ctx, l)
}

func (s *Service) UpdateLesson(ctx context.Context, id int64, in LessonInput) (Lesson, error) {
	const op = "course.update_lesson"
	l, err := s.store.GetLesson(ctx, id)
	if err != nil {
		return Lesson{}, err
	}
	in.SubjectID = l.SubjectID
	if err := validate.Struct(op, in); err != nil {
		return Lesson{}, err
	}
	sub, err := s.store.GetSubject(ctx, l.SubjectID)
	if err != nil {
		return Lesson{}, err
	}
	if err := checkDay(op, sub, in.DayNumber); err != nil {
		return Lesson{}, err
	}
	applyLesson(&l, in)
	l.UpdatedAt = s.now().UTC().Truncate(time.Second)
	if err := s.store.UpdateLesson(ctx, l); err != nil {
		return Lesson{}, err
	}
	return l, nil
}

func applyLesson(l *Lesson, in LessonInput) {
	l.Title = strings.TrimSpace(in.Title)
	l.Content = in.Content
	l.DayNumber = in.DayNumber
	l.Order = in.Order
	if l.Order == 0 {
		l.Order = 1
	}
}

func checkDay(op string, sub Subject, day int) error {
	if day < 1 || day > sub.NumberOfDays {
		return apperr.Validation(op, "invalid input", apperr.FieldError{
			Field: "day_number",
			Error: "day_number must be between 1 and the subject's number of days",
		})
	}
	return nil
}

func (s *Service) DeleteLesson(ctx context.Context, id int64) error {
	return s.store.DeleteLesson(ctx, id)
}

func (s *Service) GetLesson(ctx context.Context, p rbac.Principal, id int64) (Lesson, error) {
	l, err := s.store.GetLesson(ctx, id)
	if err != nil {
		return Lesson{}, err
	}
	if err := s.Authorize(ctx, p, l.SubjectID); err != nil {
		return Lesson{}, err
	}
	return l, nil
}

func (s *Service) ListLessons(ctx context.Context, p rbac.Principal, subjectID int64) ([]Lesson, error) {
	if _, err := s.store.GetSubject(ctx, subjectID); err != nil {
		return nil, err
	}
	if err := s.Authorize(ctx, p, subjectID); err != nil {
		return nil, err
	}
	return s.store.ListLessons(ctx, subjectID)
}

// ---- progress ----

// CompleteLesson is idempotent.
func (s *Service) CompleteLesson(ctx context.Context, p rbac.Principal, lessonID int64) error {
	l, err := s.store.GetLesson(ctx, lessonID)
	if err != nil {
		return err
	}
	if err := s.Authorize(ctx, p, l.SubjectID); err != nil {
		return err
	}
	return s.store.MarkComplete(ctx, p.UserID, l.SubjectID, l.ID, s.now().Unix())
}

func (s *Service) Progress(ctx context.Context, p rbac.Principal, subjectID int64) (Progress, error) {
	lessons, err := s.ListLessons(ctx, p, subjectID)
	if err != nil {
		return Progress{}, err
	}
	done, err := s.store.CompletedLessons(ctx, p.UserID, subjectID)
	if err != nil {
		return Progress{}, err
	}
	return Progress{
		SubjectID:        subjectID,
		CompletedLessons: done,
		Completed:        len(done),
		TotalLessons:     len(lessons),
		Percent:          grading.Percent(len(done), len(lessons)),
	}, nil
}
