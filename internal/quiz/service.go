package quiz

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mind-engage/mindengage-learn/internal/apperr"
	"github.com/mind-engage/mindengage-learn/internal/course"
	"github.com/mind-engage/mindengage-learn/internal/grading"
	"github.com/mind-engage/mindengage-learn/internal/notify"
	"github.com/mind-engage/mindengage-learn/internal/rbac"
	"github.com/mind-engage/mindengage-learn/internal/storage"
	"github.com/mind-engage/mindengage-learn/internal/validate"
)

// AccessChecker is satisfied by *access.Gate.
type AccessChecker interface {
	CanAccess(ctx context.Context, studentID, subjectID int64) (bool, error)
}

// SubjectReader is satisfied by *course.SQLStore.
type SubjectReader interface {
	GetSubject(ctx context.Context, id int64) (course.Subject, error)
}

// Notifier is satisfied by *notify.Repo.
type Notifier interface {
	Create(ctx context.Context, n notify.Notification) (notify.Notification, error)
}

type Service struct {
	store    Store
	subjects SubjectReader
	gate     AccessChecker
	blobs    storage.BlobStore
	grader   grading.Grader
	notes    Notifier
	log      logrus.FieldLogger
	now      func() time.Time

	maxImageBytes int64
	uploadWorkers int
}

type ServiceOption func(*Service)

func WithClock(now func() time.Time) ServiceOption { return func(s *Service) { s.now = now } }
func WithGrader(g grading.Grader) ServiceOption { return func(s *Service) { s.grader = g } }
func WithNotifier(n Notifier) ServiceOption { return func(s *Service) { s.notes = n } }
func WithMaxImageBytes(n int64) ServiceOption { return func(s *Service) { s.maxImageBytes = n } }
func WithUploadWorkers(n int) ServiceOption { return func(s *Service) { s.uploadWorkers = n } }
func WithLogger(l logrus.FieldLogger) ServiceOption { return func(s *Service) { s.log = l } }

func NewService(store Store, subjects SubjectReader, gate AccessChecker, blobs storage.BlobStore, opts ...ServiceOption) *Service {
	s := &Service{
		store:         store,
		subjects:      subjects,
		gate:          gate,
		blobs:         blobs,
		grader:        grading.NewDefaultGrader(),
		log:           logrus.StandardLogger(),
		now:           time.Now,
		maxImageBytes: 5 << 20,
		uploadWorkers: 4,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) clock() time.Time { return s.now().UTC().Truncate(time.Second) }

func (s *Service) authorizeSubject(ctx context.Context, p rbac.Principal, subjectID int64) error {
	if p.IsAdmin() {
		return nil
	}
	ok, err := s.gate.CanAccess(ctx, p.UserID, subjectID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Denied("quiz.access", "you do not have access to this subject")
	}
	return nil
}

// loadPlayable returns the full quiz, or NotFound when it does not exist or
// has no questions.
func (s *Service) loadPlayable(ctx context.Context, quizID int64) (FullQuiz, error) {
	full, err := s.store.GetFullQuiz(ctx, quizID)
	if err != nil {
		return FullQuiz{}, err
	}
	if len(full.Questions) == 0 {
		return FullQuiz{}, apperr.NotFound("quiz.get", "quiz %d has no questions", quizID)
	}
	return full, nil
}

// Get serves the quiz to take. Students need subject access and get the
// answer-free view.
func (s *Service) Get(ctx context.Context, p rbac.Principal, quizID int64) (FullQuiz, error) {
	if err := rbac.Authorize(p, "quiz:view"); err != nil {
		return FullQuiz{}, err
	}
	full, err := s.loadPlayable(ctx, quizID)
	if err != nil {
		return FullQuiz{}, err
	}
	if p.IsAdmin() {
		return full, nil
	}
	if err := s.authorizeSubject(ctx, p, full.SubjectID); err != nil {
		return FullQuiz{}, err
	}
	return full.StudentView(), nil
}

func (s *Service) ListBySubject(ctx context.Context, p rbac.Principal, subjectID int64, typ Type) ([]Summary, error) {
	const op = "quiz.list"
	if err := rbac.Authorize(p, "quiz:view"); err != nil {
		return nil, err
	}
	if typ != "" && !typ.Valid() {
		return nil, apperr.Validation(op, "invalid input", apperr.FieldError{Field: "type", Error: "type must be one of daily, monthly, semester"})
	}
	if _, err := s.subjects.GetSubject(ctx, subjectID); err != nil {
		return nil, err
	}
	if err := s.authorizeSubject(ctx, p, subjectID); err != nil {
		return nil, err
	}
	var studentID int64
	if !p.IsAdmin() {
		studentID = p.UserID
	}
	list, err := s.store.ListQuizzes(ctx, subjectID, typ, studentID)
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin() {
		for i := range list {
			list[i].ModelAnswerText, list[i].ModelAnswerImageURL = nil, nil
		}
	}
	return list, nil
}

// Create validates and stores a quiz with its questions in one transaction.
func (s *Service) Create(ctx context.Context, p rbac.Principal, in NewQuiz) (FullQuiz, error) {
	const op = "quiz.create"
	if err := rbac.Authorize(p, "quiz:manage"); err != nil {
		return FullQuiz{}, err
	}
	if err := validate.Struct(op, in); err != nil {
		return FullQuiz{}, err
	}
	sub, err := s.subjects.GetSubject(ctx, in.SubjectID)
	if err != nil {
		return FullQuiz{}, err
	}
	if fields := checkNewQuiz(in, sub); len(fields) > 0 {
		return FullQuiz{}, apperr.Validation(op, "invalid input", fields...)
	}

	now := s.clock()
	full := FullQuiz{Quiz: Quiz{
		SubjectID:           in.SubjectID,
		Title:               strings.TrimSpace(in.Title),
		Description:         in.Description,
		Type:                in.Type,
		DayNumber:           in.DayNumber,
		ModelAnswerText:     in.ModelAnswerText,
		ModelAnswerImageURL: in.ModelAnswerImageURL,
		CreatedBy:           p.UserID,
		CreatedAt:           now,
		UpdatedAt:           now,
	}}
	if in.Type != TypeDaily {
		full.DayNumber = nil
	}
	for i, nq := range in.Questions {
		q := Question{
			Question:                strings.TrimSpace(nq.Question),
			Type:                    nq.Type,
			Order:                   orDefault(nq.Order, i+1),
			ReferenceAnswerText:     nq.ReferenceAnswerText,
			ReferenceAnswerImageURL: nq.ReferenceAnswerImageURL,
			Options:                 []Option{},
		}
		for j, no := range nq.Options {
			correct := no.IsCorrect
			q.Options = append(q.Options, Option{Text: strings.TrimSpace(no.Text), IsCorrect: &correct, Order: orDefault(no.Order, j+1)})
		}
		full.Questions = append(full.Questions, q)
	}

	out, err := s.store.InsertQuiz(ctx, full)
	if err != nil {
		return FullQuiz{}, err
	}
	s.log.WithFields(logrus.Fields{"quiz_id": out.ID, "subject_id": out.SubjectID, "type": out.Type, "questions": len(out.Questions)}).
		Info("quiz created")
	return out, nil
}

func checkNewQuiz(in NewQuiz, sub course.Subject) []apperr.FieldError {
	var fields []apperr.FieldError
	add := func(field, msg string) { fields = append(fields, apperr.FieldError{Field: field, Error: msg}) }

	switch {
	case in.Type == TypeDaily && in.DayNumber == nil:
		add("day_number", "day_number is required for daily quizzes")
	case in.Type == TypeDaily && *in.DayNumber > sub.NumberOfDays:
		add("day_number", "day_number exceeds the subject's number of days")
	case in.Type != TypeDaily && in.DayNumber != nil:
		add("day_number", "day_number is only allowed for daily quizzes")
	}
	if in.Type == TypeDaily && (in.ModelAnswerText != nil || in.ModelAnswerImageURL != nil) {
		add("model_answer_text", "daily quizzes do not have a model answer")
	}
	for i, q := range in.Questions {
		prefix := "questions[" + strconv.Itoa(i) + "]"
		switch q.Type {
		case grading.MultipleChoice:
			if len(q.Options) < 2 {
				add(prefix+".options", "multiple_choice questions need at least 2 options")
			}
			correct := 0
			for _, o := range q.Options {
				if o.IsCorrect {
					correct++
				}
			}
			if correct == 0 {
				add(prefix+".options", "at least one option must be correct")
			}
		case grading.ShortAnswer, grading.Essay:
			if len(q.Options) > 0 {
				add(prefix+".options", string(q.Type)+" questions cannot have options")
			}
		}
	}
	return fields
}

func (s *Service) Delete(ctx context.Context, p rbac.Principal, quizID int64) error {
	if err := rbac.Authorize(p, "quiz:manage"); err != nil {
		return err
	}
	if err := s.store.DeleteQuiz(ctx, quizID); err != nil {
		return err
	}
	s.log.WithField("quiz_id", quizID).Info("quiz deleted")
	return nil
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
