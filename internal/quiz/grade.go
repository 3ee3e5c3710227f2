package quiz

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mind-engage/mindengage-learn/internal/apperr"
	"github.com/mind-engage/mindengage-learn/internal/grading"
	"github.com/mind-engage/mindengage-learn/internal/notify"
	"github.com/mind-engage/mindengage-learn/internal/rbac"
	"github.com/mind-engage/mindengage-learn/internal/validate"
)

// GradeAnswer records a manual grade. Grading again overwrites score,
// feedback, grader and time; there is no way back to ungraded.
func (s *Service) GradeAnswer(ctx context.Context, p rbac.Principal, answerID int64, in GradeInput) (Answer, error) {
	const op = "quiz.grade_answer"
	if err := rbac.Authorize(p, "answer:grade"); err != nil {
		return Answer{}, err
	}
	if err := validate.Struct(op, in); err != nil {
		return Answer{}, err
	}
	if !grading.ValidScore(*in.Score) {
		return Answer{}, apperr.Validation(op, "invalid input", apperr.FieldError{Field: "score", Error: "score must be 0 or 1"})
	}

	ans, status, err := s.store.GradeAnswer(ctx, answerID, *in.Score, in.Feedback, p.UserID, s.clock())
	if err != nil {
		return Answer{}, err
	}
	log := s.log.WithFields(logrus.Fields{
		"answer_id":  ans.ID,
		"quiz_id":    ans.QuizID,
		"student_id": ans.StudentID,
		"score":      *in.Score,
		"by":         p.UserID,
	})
	log.WithField("attempt_status", status).Info("answer graded")

	quizID := ans.QuizID
	s.notifyBestEffort(ctx, log, notify.Notification{
		UserID:    ans.StudentID,
		Title:     "Answer graded",
		Message:   s.quizLabel(ctx, quizID, "One of your answers in %s has been graded."),
		Type:      notify.TypeGrade,
		RelatedID: &quizID,
	})
	return ans, nil
}

// ListSubmissions is the grading queue of a quiz: one row per attempt with
// its provisional score.
func (s *Service) ListSubmissions(ctx context.Context, p rbac.Principal, quizID int64) ([]SubmissionSummary, error) {
	if err := rbac.Authorize(p, "answer:grade"); err != nil {
		return nil, err
	}
	full, err := s.store.GetFullQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	list, err := s.store.ListAttempts(ctx, quizID)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].Score = attemptScore(full, list[i].ScoreSum, list[i].GradedCount)
	}
	return list, nil
}

// SubmissionDetails returns one student's answers next to the questions and
// the answer key.
func (s *Service) SubmissionDetails(ctx context.Context, p rbac.Principal, quizID, studentID int64) (SubmissionDetail, error) {
	const op = "quiz.submission_details"
	if err := rbac.Authorize(p, "answer:grade"); err != nil {
		return SubmissionDetail{}, err
	}
	full, err := s.store.GetFullQuiz(ctx, quizID)
	if err != nil {
		return SubmissionDetail{}, err
	}
	attempt, ok, err := s.store.GetAttempt(ctx, quizID, studentID)
	if err != nil {
		return SubmissionDetail{}, err
	}
	if !ok {
		return SubmissionDetail{}, apperr.NotFound(op, "student %d has not submitted quiz %d", studentID, quizID)
	}
	answers, err := s.store.ListAnswers(ctx, attempt.ID)
	if err != nil {
		return SubmissionDetail{}, err
	}

	out := SubmissionDetail{Attempt: attempt, Quiz: full.Quiz, Answers: make([]AnswerDetail, 0, len(answers))}
	sum, graded := 0, 0
	for _, a := range answers {
		q, _ := full.question(a.QuestionID)
		d := AnswerDetail{
			Answer:              a,
			Question:            q.Question,
			QuestionType:        q.Type,
			Options:             q.Options,
			ReferenceAnswerText: q.ReferenceAnswerText,
		}
		if q.Type.FreeText() && !a.Graded() {
			res, err := s.grader.Grade(ctx, toGradingQ(q), grading.Response{Text: deref(a.TextAnswer), ImageURL: deref(a.ImageURL)})
			if err == nil && len(res.Feedback) > 1 {
				d.Hints = res.Feedback[1:]
			}
		}
		if a.Score != nil {
			sum += *a.Score
			graded++
		}
		out.Answers = append(out.Answers, d)
	}
	out.Score = attemptScore(full, sum, graded)
	return out, nil
}

// attemptScore is the percent over all questions for daily quizzes and the
// average over graded answers otherwise.
func attemptScore(full FullQuiz, sum, graded int) *int {
	if graded == 0 {
		return nil
	}
	total := graded
	if full.Type == TypeDaily {
		total = len(full.Questions)
	}
	v := grading.Percent(sum, total)
	return &v
}

func (s *Service) notifyBestEffort(ctx context.Context, log logrus.FieldLogger, n notify.Notification) {
	if s.notes == nil {
		return
	}
	if _, err := s.notes.Create(ctx, n); err != nil {
		log.WithError(err).WithField("user_id", n.UserID).Warn("notification not sent")
	}
}

func (s *Service) quizLabel(ctx context.Context, quizID int64, format string) string {
	label := fmt.Sprintf("quiz %d", quizID)
	if q, err := s.store.GetQuiz(ctx, quizID); err == nil {
		label = fmt.Sprintf("%q", q.Title)
	}
	return fmt.Sprintf(format, label)
}
