// Package chat is the curriculum assistant: students ask questions about a
// subject they have access to and the model answers with the subject's
// curriculum as context.
package chat

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mind-engage/mindengage-learn/internal/apperr"
	"github.com/mind-engage/mindengage-learn/internal/course"
	"github.com/mind-engage/mindengage-learn/internal/rbac"
	"github.com/mind-engage/mindengage-learn/internal/validate"
)

const (
	DenialAnswer   = "You do not have access to this subject. Please contact your administrator."
	FallbackAnswer = "Sorry, I could not generate an answer right now."
)

// Completer is a black-box text completion model.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

type AccessChecker interface {
	CanAccess(ctx context.Context, studentID, subjectID int64) (bool, error)
}

type SubjectReader interface {
	GetSubject(ctx context.Context, id int64) (course.Subject, error)
}

type Message struct {
	ID        int64     `json:"id"`
	StudentID int64     `json:"student_id"`
	SubjectID int64     `json:"subject_id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}

type AskInput struct {
	SubjectID int64  `json:"subject_id" validate:"required,gt=0"`
	Question  string `json:"question" validate:"notblank,max=4000"`
}

// Reply is returned for every answered or refused question.
type Reply struct {
	Answer string `json:"answer"`
	Denied bool   `json:"denied,omitempty"`
}

type Service struct {
	store    Store
	subjects SubjectReader
	gate     AccessChecker
	llm      Completer
	log      logrus.FieldLogger
	now      func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }
func WithLogger(l logrus.FieldLogger) Option { return func(s *Service) { s.log = l } }

func NewService(store Store, subjects SubjectReader, gate AccessChecker, llm Completer, opts ...Option) *Service {
	s := &Service{store: store, subjects: subjects, gate: gate, llm: llm, log: logrus.StandardLogger(), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Ask answers a question about a subject. A student without access gets
// DenialAnswer and nothing is recorded.
func (s *Service) Ask(ctx context.Context, p rbac.Principal, in AskInput) (Reply, error) {
	const op = "chat.ask"
	if err := rbac.Authorize(p, "chat:ask"); err != nil {
		return Reply{}, err
	}
	if err := validate.Struct(op, in); err != nil {
		return Reply{}, err
	}
	sub, err := s.subjects.GetSubject(ctx, in.SubjectID)
	if err != nil {
		return Reply{}, err
	}
	log := s.log.WithFields(logrus.Fields{"user_id": p.UserID, "subject_id": sub.ID})
	if !p.IsAdmin() {
		ok, err := s.gate.CanAccess(ctx, p.UserID, sub.ID)
		if err != nil {
			return Reply{}, err
		}
		if !ok {
			log.Info("chat refused: no subject access")
			return Reply{Answer: DenialAnswer, Denied: true}, nil
		}
	}

	question := strings.TrimSpace(in.Question)
	answer, err := s.llm.Complete(ctx, systemInstruction(sub), question)
	if err != nil {
		log.WithError(err).Warn("chat model call failed")
		return Reply{}, apperr.Transient(op, err)
	}
	if answer = strings.TrimSpace(answer); answer == "" {
		answer = FallbackAnswer
	}

	if _, err := s.store.Insert(ctx, Message{
		StudentID: p.UserID,
		SubjectID: sub.ID,
		Question:  question,
		Answer:    answer,
		CreatedAt: s.now().UTC().Truncate(time.Second),
	}); err != nil {
		return Reply{}, err
	}
	log.Debug("chat answered")
	return Reply{Answer: answer}, nil
}

// History returns the caller's exchanges for a subject, oldest first.
func (s *Service) History(ctx context.Context, p rbac.Principal, subjectID int64) ([]Message, error) {
	if err := rbac.Authorize(p, "chat:ask"); err != nil {
		return nil, err
	}
	return s.store.List(ctx, p.UserID, subjectID)
}

func systemInstruction(sub course.Subject) string {
	base := "You are an expert teaching assistant. Answer students' questions clearly, simply and directly."
	curriculum := strings.TrimSpace(sub.Curriculum)
	if curriculum == "" {
		return base + " The subject is: " + sub.Name + "."
	}
	return base + " The subject is: " + sub.Name + ". Its curriculum is:\n" + curriculum
}
