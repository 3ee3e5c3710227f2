package quiz

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mind-engage/mindengage-learn/internal/apperr"
	"github.com/mind-engage/mindengage-learn/internal/grading"
	"github.com/mind-engage/mindengage-learn/internal/notify"
	"github.com/mind-engage/mindengage-learn/internal/rbac"
	"github.com/mind-engage/mindengage-learn/internal/validate"
)

// PublishResults releases the results of a quiz to its students. It is
// idempotent and cannot be undone; students are only notified the first time.
func (s *Service) PublishResults(ctx context.Context, p rbac.Principal, quizID int64) error {
	if err := rbac.Authorize(p, "quiz:publish"); err != nil {
		return err
	}
	changed, err := s.store.Publish(ctx, quizID, s.clock())
	if err != nil {
		return err
	}
	log := s.log.WithFields(logrus.Fields{"quiz_id": quizID, "by": p.UserID})
	if !changed {
		log.Debug("results already published")
		return nil
	}
	log.Info("results published")

	attempts, err := s.store.ListAttempts(ctx, quizID)
	if err != nil {
		log.WithError(err).Warn("could not list attempts to notify")
		return nil
	}
	msg := s.quizLabel(ctx, quizID, "Results for %s are now available.")
	for _, a := range attempts {
		id := quizID
		s.notifyBestEffort(ctx, log, notify.Notification{
			UserID:    a.StudentID,
			Title:     "Results published",
			Message:   msg,
			Type:      notify.TypeQuiz,
			RelatedID: &id,
		})
	}
	return nil
}

// UpdateModelAnswer sets or clears the model answer of a monthly or
// semester quiz.
func (s *Service) UpdateModelAnswer(ctx context.Context, p rbac.Principal, quizID int64, in ModelAnswerInput) error {
	const op = "quiz.update_model_answer"
	if err := rbac.Authorize(p, "quiz:manage"); err != nil {
		return err
	}
	if err := validate.Struct(op, in); err != nil {
		return err
	}
	q, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return err
	}
	if q.Type == TypeDaily {
		return apperr.Validation(op, "daily quizzes do not have a model answer")
	}
	return s.store.SetModelAnswer(ctx, quizID, blankToNil(in.Text), blankToNil(in.ImageURL), s.clock())
}

// UserResults returns the caller's own results. Monthly and semester
// results stay hidden until published; daily results are always visible.
func (s *Service) UserResults(ctx context.Context, p rbac.Principal, quizID int64) (Results, error) {
	if err := rbac.Authorize(p, "result:view-own"); err != nil {
		return Results{}, err
	}
	full, err := s.store.GetFullQuiz(ctx, quizID)
	if err != nil {
		return Results{}, err
	}
	if full.Type != TypeDaily && !full.ResultsPublished {
		return Results{Status: StatusNotPublished}, nil
	}

	pub := &Published{
		QuizID:              quizID,
		Answers:             []ResultAnswer{},
		ModelAnswerText:     full.ModelAnswerText,
		ModelAnswerImageURL: full.ModelAnswerImageURL,
	}
	attempt, ok, err := s.store.GetAttempt(ctx, quizID, p.UserID)
	if err != nil {
		return Results{}, err
	}
	if !ok {
		return Results{Status: StatusPublished, Published: pub}, nil
	}
	answers, err := s.store.ListAnswers(ctx, attempt.ID)
	if err != nil {
		return Results{}, err
	}

	pub.AttemptID = &attempt.ID
	scores := make([]*int, 0, len(answers))
	for _, a := range answers {
		q, _ := full.question(a.QuestionID)
		ra := ResultAnswer{Answer: a, Question: q.Question, QuestionType: q.Type}
		for _, o := range q.Options {
			if o.Correct() {
				id := o.ID
				ra.CorrectOptionID = &id
				break
			}
		}
		pub.Answers = append(pub.Answers, ra)
		scores = append(scores, a.Score)
	}
	pub.GradedCount, pub.PendingCount = grading.Counts(scores)
	if full.Type == TypeDaily {
		sum := 0
		for _, sc := range scores {
			if sc != nil {
				sum += *sc
			}
		}
		v := grading.Percent(sum, len(full.Questions))
		pub.Score = &v
	} else {
		pub.Score = grading.Aggregate(scores)
	}
	return Results{Status: StatusPublished, Published: pub}, nil
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
